package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/CodeReclaimers/sketch-bridge/internal/bridge"
	"github.com/CodeReclaimers/sketch-bridge/internal/bridge/library"
	"github.com/CodeReclaimers/sketch-bridge/internal/cad"
	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
	"github.com/CodeReclaimers/sketch-bridge/internal/transform"
)

// ============================================================
// Bridge Handler
// ============================================================

type BridgeHandler struct {
	core *bridge.Core
	lib  *library.Library
}

func NewBridgeHandler(core *bridge.Core, lib *library.Library) *BridgeHandler {
	return &BridgeHandler{core: core, lib: lib}
}

// respondError переводит типизированные ошибки ядра в HTTP-статусы.
func respondError(c fiber.Ctx, err error) error {
	var (
		invalid  *transform.InvalidRequestError
		notFound *cad.NotFoundError
		notConn  *cad.NotConnectedError
		rejected *cad.RemoteRejectedError
		protocol *cad.ProtocolError
		connErr  *cad.ConnectionError
	)

	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &invalid):
		code = http.StatusBadRequest
	case errors.Is(err, bridge.ErrNoSuchSketch),
		errors.Is(err, library.ErrNotFound),
		errors.As(err, &notFound):
		code = http.StatusNotFound
	case errors.As(err, &notConn):
		code = http.StatusConflict
	case errors.As(err, &rejected):
		code = http.StatusUnprocessableEntity
	case errors.As(err, &protocol), errors.As(err, &connErr):
		code = http.StatusBadGateway
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func systemParam(c fiber.Ctx) (cad.System, error) {
	return cad.ParseSystem(c.Params("system"))
}

func keyParams(c fiber.Ctx) sketch.Key {
	return sketch.Key{System: c.Params("system"), ID: c.Params("id")}
}

// ============================================================
// Systems
// ============================================================

// ListSystems возвращает все CAD-системы с их статусами.
func (h *BridgeHandler) ListSystems(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"systems": h.core.ListSystems()})
}

// ProbeSystem запускает немедленную проверку доступности системы.
func (h *BridgeHandler) ProbeSystem(c fiber.Ctx) error {
	system, err := systemParam(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	st, err := h.core.Probe(context.Background(), system)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(st)
}

// Collect собирает эскизы системы в сессию. Частичный сбор отвечает
// 207 с собранными ключами и перечнем сбоев.
func (h *BridgeHandler) Collect(c fiber.Ctx) error {
	system, err := systemParam(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	keys, err := h.core.Collect(context.Background(), system)
	if err != nil {
		var partial *cad.PartialCollectionError
		if errors.As(err, &partial) {
			failures := make([]fiber.Map, 0, len(partial.Failures))
			for _, f := range partial.Failures {
				failures = append(failures, fiber.Map{
					"sketch_id": f.SketchID,
					"error":     f.Err.Error(),
				})
			}
			return c.Status(http.StatusMultiStatus).JSON(fiber.Map{
				"keys":     keys,
				"failures": failures,
			})
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"keys": keys})
}

// ============================================================
// Session Sketches
// ============================================================

// ListSketches возвращает эскизы сессии в порядке вставки.
func (h *BridgeHandler) ListSketches(c fiber.Ctx) error {
	sketches := h.core.Sketches()
	summaries := make([]fiber.Map, 0, len(sketches))
	for _, s := range sketches {
		summaries = append(summaries, fiber.Map{
			"key":              sketch.KeyOf(s),
			"name":             s.Name,
			"entity_count":     len(s.Geometry),
			"constraint_count": len(s.Constraints),
		})
	}
	return c.JSON(fiber.Map{"sketches": summaries})
}

// GetSketch возвращает полный конверт эскиза сессии.
func (h *BridgeHandler) GetSketch(c fiber.Ctx) error {
	s, err := h.core.Get(keyParams(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s)
}

// RemoveSketch удаляет эскиз из сессии.
func (h *BridgeHandler) RemoveSketch(c fiber.Ctx) error {
	if err := h.core.Remove(keyParams(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

// ============================================================
// Selection
// ============================================================

type selectRequest struct {
	Key sketch.Key `json:"key"`
}

// SetSelection запоминает выбранный эскиз.
func (h *BridgeHandler) SetSelection(c fiber.Ctx) error {
	var req selectRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if err := h.core.Select(req.Key); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"key": req.Key})
}

// GetSelection возвращает выбранный эскиз; 404, если выбора нет или
// эскиз был удален.
func (h *BridgeHandler) GetSelection(c fiber.Ctx) error {
	s, key, ok := h.core.Selection()
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "no selection"})
	}
	return c.JSON(fiber.Map{"key": key, "sketch": s})
}

// ============================================================
// Export
// ============================================================

type exportRequest struct {
	System        string            `json:"system"`
	Transform     transform.Request `json:"transform"`
	AboutCentroid bool              `json:"about_centroid"`
}

// ExportSketch преобразует эскиз сессии и создает его в целевой системе.
func (h *BridgeHandler) ExportSketch(c fiber.Ctx) error {
	key := keyParams(c)

	var req exportRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	system, err := cad.ParseSystem(req.System)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	treq := req.Transform
	if req.AboutCentroid {
		s, err := h.core.Get(key)
		if err != nil {
			return respondError(c, err)
		}
		treq = transform.AboutCentroid(s, treq)
	}

	remoteID, err := h.core.Export(context.Background(), key, system, treq)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"remote_id": remoteID})
}

// ============================================================
// Files
// ============================================================

type fileRequest struct {
	Path string `json:"path"`
}

// LoadFile загружает эскиз из файла в сессию.
func (h *BridgeHandler) LoadFile(c fiber.Ctx) error {
	var req fileRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Path == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "path required"})
	}

	key, err := h.core.LoadFile(req.Path)
	if err != nil {
		log.Printf("[BRIDGE] load file %s failed: %v", req.Path, err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"key": key})
}

// SaveSketch сохраняет эскиз сессии в файл.
func (h *BridgeHandler) SaveSketch(c fiber.Ctx) error {
	var req fileRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Path == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "path required"})
	}

	if err := h.core.SaveFile(keyParams(c), req.Path); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "saved", "path": req.Path})
}

// ============================================================
// Library
// ============================================================

// StoreInLibrary сохраняет эскиз сессии в библиотеку.
func (h *BridgeHandler) StoreInLibrary(c fiber.Ctx) error {
	s, err := h.core.Get(keyParams(c))
	if err != nil {
		return respondError(c, err)
	}

	id, err := h.lib.Put(context.Background(), s)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"library_id": id})
}

// LibraryList возвращает метаданные записей библиотеки.
func (h *BridgeHandler) LibraryList(c fiber.Ctx) error {
	entries, err := h.lib.List(context.Background())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// LibraryGet возвращает конверт эскиза из библиотеки.
func (h *BridgeHandler) LibraryGet(c fiber.Ctx) error {
	s, err := h.lib.Get(context.Background(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s)
}

// LibraryDelete удаляет запись библиотеки.
func (h *BridgeHandler) LibraryDelete(c fiber.Ctx) error {
	if err := h.lib.Delete(context.Background(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
