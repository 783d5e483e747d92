package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/CodeReclaimers/sketch-bridge/internal/bridge"
	"github.com/CodeReclaimers/sketch-bridge/internal/bridge/library"
	"github.com/CodeReclaimers/sketch-bridge/internal/cad"
	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
	"github.com/CodeReclaimers/sketch-bridge/internal/transform"
)

// ============================================================
// Test Fixtures
// ============================================================

type stubConnector struct {
	collect    []sketch.Sketch
	collectErr error
}

func (s *stubConnector) Descriptors() []cad.Descriptor {
	return cad.DefaultDescriptors()
}

func (s *stubConnector) StatusOf(system cad.System) cad.Status {
	return cad.Status{State: cad.StateConnected}
}

func (s *stubConnector) Probe(ctx context.Context, system cad.System) (cad.Status, error) {
	return s.StatusOf(system), nil
}

func (s *stubConnector) Collect(ctx context.Context, system cad.System) ([]sketch.Sketch, error) {
	return s.collect, s.collectErr
}

func (s *stubConnector) Export(ctx context.Context, system cad.System, sk sketch.Sketch, plane string) (string, error) {
	return "remote-1", nil
}

// testApp поднимает приложение с теми же маршрутами, что и сервер моста.
func testApp(t *testing.T, stub *stubConnector) *fiber.App {
	t.Helper()

	lib, err := library.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("open library failed: %v", err)
	}
	t.Cleanup(func() { lib.Close() })

	h := NewBridgeHandler(bridge.NewCore(stub), lib)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/systems", h.ListSystems)
	api.Post("/systems/:system/collect", h.Collect)
	api.Get("/sketches", h.ListSketches)
	api.Get("/sketches/:system/:id", h.GetSketch)
	return app
}

func testSketch(id string) sketch.Sketch {
	return sketch.Sketch{
		ID:           id,
		Name:         "Sketch " + id,
		SourceSystem: "freecad",
		Geometry: []sketch.Entity{
			{ID: "l1", Type: sketch.EntityLine, Points: []sketch.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}},
		},
	}
}

// ============================================================
// Error Mapping
// ============================================================

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid request", &transform.InvalidRequestError{Field: "dx", Value: math.NaN()}, http.StatusBadRequest},
		{"session miss", fmt.Errorf("%w: freecad/s1", bridge.ErrNoSuchSketch), http.StatusNotFound},
		{"remote not found", &cad.NotFoundError{System: cad.FreeCAD, SketchID: "s1"}, http.StatusNotFound},
		{"library miss", fmt.Errorf("%w: abc", library.ErrNotFound), http.StatusNotFound},
		{"not connected", &cad.NotConnectedError{System: cad.FreeCAD, State: cad.StateDisconnected}, http.StatusConflict},
		{"remote rejected", &cad.RemoteRejectedError{System: cad.Inventor, Reason: "invalid face id"}, http.StatusUnprocessableEntity},
		{"protocol", &cad.ProtocolError{System: cad.FreeCAD, Detail: "non-JSON body"}, http.StatusBadGateway},
		{"connection", &cad.ConnectionError{System: cad.FreeCAD, Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		app := fiber.New()
		failure := tc.err
		app.Get("/fail", func(c fiber.Ctx) error {
			return respondError(c, failure)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
		if err != nil {
			t.Fatalf("%s: request failed: %v", tc.name, err)
		}
		if resp.StatusCode != tc.code {
			t.Errorf("%s: status %d, want %d", tc.name, resp.StatusCode, tc.code)
		}

		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode failed: %v", tc.name, err)
		}
		resp.Body.Close()
		if body.Error == "" {
			t.Errorf("%s: empty error message", tc.name)
		}
	}
}

// ============================================================
// Collect
// ============================================================

func TestCollectPartialResponds207(t *testing.T) {
	stub := &stubConnector{
		collectErr: &cad.PartialCollectionError{
			System:    cad.FreeCAD,
			Collected: []sketch.Sketch{testSketch("s1")},
			Failures:  []cad.SketchFailure{{SketchID: "s2", Err: errors.New("document was reset")}},
		},
	}
	app := testApp(t, stub)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/systems/freecad/collect", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMultiStatus {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusMultiStatus)
	}

	var body struct {
		Keys     []sketch.Key `json:"keys"`
		Failures []struct {
			SketchID string `json:"sketch_id"`
			Error    string `json:"error"`
		} `json:"failures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(body.Keys) != 1 || body.Keys[0] != (sketch.Key{System: "freecad", ID: "s1"}) {
		t.Errorf("keys: %+v", body.Keys)
	}
	if len(body.Failures) != 1 {
		t.Fatalf("failures: %+v", body.Failures)
	}
	if body.Failures[0].SketchID != "s2" || body.Failures[0].Error == "" {
		t.Errorf("failure entry: %+v", body.Failures[0])
	}

	// Успешная часть сбора попала в сессию и доступна по ключу.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sketches/freecad/s1", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("collected sketch not in session: status %d", resp.StatusCode)
	}
}

func TestCollectFullSuccessResponds200(t *testing.T) {
	stub := &stubConnector{collect: []sketch.Sketch{testSketch("s1"), testSketch("s2")}}
	app := testApp(t, stub)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/systems/freecad/collect", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Keys []sketch.Key `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Keys) != 2 {
		t.Errorf("keys: %+v", body.Keys)
	}
}

func TestCollectNotConnectedResponds409(t *testing.T) {
	stub := &stubConnector{
		collectErr: &cad.NotConnectedError{System: cad.FreeCAD, State: cad.StateDisconnected},
	}
	app := testApp(t, stub)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/systems/freecad/collect", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestCollectUnknownSystemResponds400(t *testing.T) {
	app := testApp(t, &stubConnector{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/systems/paint/collect", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestGetSketchMissingResponds404(t *testing.T) {
	app := testApp(t, &stubConnector{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sketches/freecad/ghost", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
