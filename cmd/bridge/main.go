package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/CodeReclaimers/sketch-bridge/internal/bridge"
	"github.com/CodeReclaimers/sketch-bridge/internal/bridge/handlers"
	"github.com/CodeReclaimers/sketch-bridge/internal/bridge/library"
	"github.com/CodeReclaimers/sketch-bridge/internal/cad"
	"github.com/CodeReclaimers/sketch-bridge/internal/common/config"
	"github.com/CodeReclaimers/sketch-bridge/internal/common/middleware"
)

// ============================================================
// Bridge Service
// ============================================================

func main() {
	cfg := config.Load()

	descriptors, err := config.LoadEndpoints(cfg.EndpointsFile)
	if err != nil {
		log.Fatalf("load endpoints: %v", err)
	}

	manager, err := cad.NewManager(descriptors, time.Duration(cfg.ProbeTimeout)*time.Second)
	if err != nil {
		log.Fatalf("create CAD manager: %v", err)
	}
	manager.Subscribe(func(ev cad.StatusEvent) {
		log.Printf("[CAD] %s -> %s %s", ev.System, ev.Status.State, ev.Status.Reason)
	})

	core := bridge.NewCore(manager)

	lib, err := library.Open(cfg.LibraryDBPath)
	if err != nil {
		log.Fatalf("open library: %v", err)
	}
	defer lib.Close()

	bridgeHandler := handlers.NewBridgeHandler(core, lib)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Sketch Bridge",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Bridge Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/systems", bridgeHandler.ListSystems)
	api.Post("/systems/:system/probe", bridgeHandler.ProbeSystem)
	api.Post("/systems/:system/collect", bridgeHandler.Collect)

	api.Get("/sketches", bridgeHandler.ListSketches)
	api.Get("/sketches/:system/:id", bridgeHandler.GetSketch)
	api.Delete("/sketches/:system/:id", bridgeHandler.RemoveSketch)
	api.Post("/sketches/:system/:id/export", bridgeHandler.ExportSketch)
	api.Post("/sketches/:system/:id/save", bridgeHandler.SaveSketch)
	api.Post("/sketches/:system/:id/store", bridgeHandler.StoreInLibrary)

	api.Get("/selection", bridgeHandler.GetSelection)
	api.Put("/selection", bridgeHandler.SetSelection)

	api.Post("/files/load", bridgeHandler.LoadFile)

	api.Get("/library", bridgeHandler.LibraryList)
	api.Get("/library/:id", bridgeHandler.LibraryGet)
	api.Delete("/library/:id", bridgeHandler.LibraryDelete)

	// ============================================================
	// Monitoring & Server Start
	// ============================================================

	manager.StartMonitoring(time.Duration(cfg.PollInterval) * time.Second)
	defer manager.StopMonitoring()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Sketch Bridge on %s (env: %s)", addr, cfg.Environment)
	for _, d := range descriptors {
		log.Printf("CAD adapter %s at %s:%d", d.System, d.Host, d.Port)
	}

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
