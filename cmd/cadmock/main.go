package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"

	"github.com/CodeReclaimers/sketch-bridge/internal/common/middleware"
	"github.com/CodeReclaimers/sketch-bridge/internal/demo"
	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
	"github.com/CodeReclaimers/sketch-bridge/internal/transform"
)

// ============================================================
// Mock CAD Adapter
// ============================================================

// Мок-адаптер реализует сетевой контракт CAD-адаптера для локальной
// разработки: документ в памяти, заполненный демонстрационными
// эскизами. Запускается на порту нужной системы (PORT).

type document struct {
	mu       sync.Mutex
	sketches map[string]sketch.Sketch
	order    []string
}

func newDocument() *document {
	doc := &document{sketches: make(map[string]sketch.Sketch)}
	for _, s := range demo.Sketches() {
		doc.put(s)
	}
	return doc
}

func (d *document) put(s sketch.Sketch) {
	if _, ok := d.sketches[s.ID]; !ok {
		d.order = append(d.order, s.ID)
	}
	d.sketches[s.ID] = s
}

func (d *document) summaries() []sketch.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sketch.Summary, 0, len(d.order))
	for _, id := range d.order {
		s := d.sketches[id]
		out = append(out, sketch.Summary{
			ID:              s.ID,
			Name:            s.Name,
			EntityCount:     len(s.Geometry),
			ConstraintCount: len(s.Constraints),
		})
	}
	return out
}

func (d *document) get(id string) (sketch.Sketch, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sketches[id]
	return s, ok
}

func (d *document) create(s sketch.Sketch) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	s.ID = uuid.NewString()
	d.put(s)
	return s.ID
}

func validPlane(plane string) bool {
	switch plane {
	case transform.PlaneXY, transform.PlaneXZ, transform.PlaneYZ:
		return true
	}
	// Идентификаторы граней мок принимает в форме face:<id>.
	return strings.HasPrefix(plane, "face:") && len(plane) > len("face:")
}

func main() {
	system := getEnv("CADMOCK_SYSTEM", "freecad")
	port := getEnv("PORT", "9876")

	doc := newDocument()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		AppName:      "CAD Mock Adapter",
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())

	// ============================================================
	// Adapter Wire Contract
	// ============================================================

	app.Get("/status", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"system":   system,
			"document": "Demo",
		})
	})

	app.Get("/sketches", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"sketches": doc.summaries()})
	})

	app.Get("/sketches/:id", func(c fiber.Ctx) error {
		s, ok := doc.get(c.Params("id"))
		if !ok {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "sketch not found"})
		}
		return c.JSON(s)
	})

	app.Post("/sketches", func(c fiber.Ctx) error {
		var req struct {
			Sketch sketch.Sketch `json:"sketch"`
			Plane  string        `json:"plane"`
		}
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
		if !validPlane(req.Plane) {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": fmt.Sprintf("invalid plane or face: %q", req.Plane),
			})
		}
		if len(req.Sketch.Geometry) == 0 {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": "empty geometry"})
		}

		id := doc.create(req.Sketch)
		log.Printf("[CADMOCK] created sketch %s on %s", id, req.Plane)
		return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
	})

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting CAD Mock Adapter (%s) on %s", system, addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
