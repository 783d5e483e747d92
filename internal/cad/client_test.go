package cad

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
)

// adapterStub — минимальный сервер контракта адаптера для тестов клиента.
func adapterStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /sketches", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"sketches": []sketch.Summary{
				{ID: "s1", Name: "first", EntityCount: 2, ConstraintCount: 1},
				{ID: "s2", Name: "second", EntityCount: 1},
			},
		})
	})
	mux.HandleFunc("GET /sketches/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "s1" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "sketch not found"})
			return
		}
		json.NewEncoder(w).Encode(sketch.Sketch{
			ID:   "s1",
			Name: "first",
			Geometry: []sketch.Entity{
				{ID: "L1", Type: sketch.EntityLine, Points: []sketch.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}},
			},
			Constraints: []sketch.Constraint{},
		})
	})
	mux.HandleFunc("POST /sketches", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Sketch sketch.Sketch `json:"sketch"`
			Plane  string        `json:"plane"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid json"})
			return
		}
		if req.Plane == "face:bad" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid face id"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "remote-1"})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func clientFor(t *testing.T, rawURL string) *FreeCADClient {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	c, err := NewFreeCADClient(host, port, 2*time.Second)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

// closedPort возвращает порт, на котором никто не слушает.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewFreeCADClient("", 9876, time.Second); err == nil {
		t.Error("expected error for empty host")
	}
	if _, err := NewInventorClient("localhost", 0, time.Second); err == nil {
		t.Error("expected error for zero port")
	}
	if _, err := NewClient(Descriptor{System: "paint", Host: "localhost", Port: 1}, time.Second); err == nil {
		t.Error("expected error for unknown system")
	}
}

func TestProbeConnected(t *testing.T) {
	ts := adapterStub(t)
	c := clientFor(t, ts.URL)

	st := c.Probe(context.Background())
	if st.State != StateConnected {
		t.Errorf("got %s (%s), want connected", st.State, st.Reason)
	}
	if st.LastCheckedAt.IsZero() {
		t.Error("LastCheckedAt not set")
	}
}

func TestProbeUnreachable(t *testing.T) {
	c, err := NewFreeCADClient("127.0.0.1", closedPort(t), 2*time.Second)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	start := time.Now()
	st := c.Probe(context.Background())
	if st.State != StateDisconnected {
		t.Errorf("got %s, want disconnected", st.State)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("probe took %s, want bounded by timeout", elapsed)
	}
}

func TestProbeMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not an adapter</html>"))
	}))
	t.Cleanup(ts.Close)

	st := clientFor(t, ts.URL).Probe(context.Background())
	if st.State != StateError {
		t.Errorf("got %s, want error", st.State)
	}
}

func TestListSketches(t *testing.T) {
	c := clientFor(t, adapterStub(t).URL)

	summaries, err := c.ListSketches(context.Background())
	if err != nil {
		t.Fatalf("ListSketches failed: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "s1" || summaries[1].ID != "s2" {
		t.Errorf("unexpected summaries: %+v", summaries)
	}
}

func TestListSketchesConnectionError(t *testing.T) {
	c, err := NewFreeCADClient("127.0.0.1", closedPort(t), time.Second)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	_, err = c.ListSketches(context.Background())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("expected ConnectionError, got %v", err)
	}
}

func TestListSketchesProtocolError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	t.Cleanup(ts.Close)

	_, err := clientFor(t, ts.URL).ListSketches(context.Background())
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Errorf("expected ProtocolError, got %v", err)
	}
}

func TestFetchSketch(t *testing.T) {
	c := clientFor(t, adapterStub(t).URL)

	s, err := c.FetchSketch(context.Background(), "s1")
	if err != nil {
		t.Fatalf("FetchSketch failed: %v", err)
	}
	if s.ID != "s1" || len(s.Geometry) != 1 {
		t.Errorf("unexpected sketch: %+v", s)
	}
	if s.SourceSystem != string(FreeCAD) {
		t.Errorf("source system not stamped: %q", s.SourceSystem)
	}
}

func TestFetchSketchNotFound(t *testing.T) {
	c := clientFor(t, adapterStub(t).URL)

	_, err := c.FetchSketch(context.Background(), "gone")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.SketchID != "gone" {
		t.Errorf("wrong sketch id: %q", notFound.SketchID)
	}
}

func TestCreateSketch(t *testing.T) {
	c := clientFor(t, adapterStub(t).URL)

	id, err := c.CreateSketch(context.Background(), sketch.Sketch{ID: "s9"}, "XY")
	if err != nil {
		t.Fatalf("CreateSketch failed: %v", err)
	}
	if id != "remote-1" {
		t.Errorf("got id %q, want remote-1", id)
	}
}

func TestCreateSketchRejected(t *testing.T) {
	c := clientFor(t, adapterStub(t).URL)

	_, err := c.CreateSketch(context.Background(), sketch.Sketch{ID: "s9"}, "face:bad")
	var rejected *RemoteRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RemoteRejectedError, got %v", err)
	}
	if rejected.Reason != "invalid face id" {
		t.Errorf("reason not propagated: %q", rejected.Reason)
	}
}
