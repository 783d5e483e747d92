package cad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
)

// ============================================================
// CAD Client
// ============================================================

// Client — унифицированный доступ к адаптеру одной CAD-системы.
// Все вызовы синхронные, с ограниченным таймаутом, без повторов;
// политика повторов принадлежит вызывающей стороне.
type Client interface {
	System() System
	Probe(ctx context.Context) Status
	ListSketches(ctx context.Context) ([]sketch.Summary, error)
	FetchSketch(ctx context.Context, id string) (sketch.Sketch, error)
	CreateSketch(ctx context.Context, s sketch.Sketch, plane string) (string, error)
}

// Контракт адаптера (внешний, фиксированный на порт системы):
//   GET  /status        — liveness
//   GET  /sketches      — список кратких записей
//   GET  /sketches/:id  — полное тело эскиза
//   POST /sketches      — {sketch, plane} -> {id}

// rpcClient — общее HTTP/JSON-ядро всех клиентов. Каждый вызов строит
// собственный запрос; разделяемого полуинициализированного состояния нет.
type rpcClient struct {
	system  System
	baseURL string
	http    *http.Client
}

func newRPCClient(system System, host string, port int, timeout time.Duration) (*rpcClient, error) {
	if host == "" {
		return nil, fmt.Errorf("%s: empty adapter host", system)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%s: invalid adapter port %d", system, port)
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &rpcClient{
		system:  system,
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *rpcClient) System() System {
	return c.system
}

func (c *rpcClient) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", c.system, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.system, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectionError{System: c.system, Err: err}
	}
	return resp, nil
}

func (c *rpcClient) decodeJSON(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectionError{System: c.system, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProtocolError{System: c.system, Detail: fmt.Sprintf("malformed response: %v", err)}
	}
	return nil
}

// errorReason вытаскивает поле error из тела ответа, если оно есть.
func errorReason(resp *http.Response) string {
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return resp.Status
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}

// Probe выполняет лёгкую проверку доступности адаптера. Обычная
// недоступность не является ошибкой вызова: возвращается статус
// disconnected либо error с причиной.
func (c *rpcClient) Probe(ctx context.Context) Status {
	now := time.Now()

	resp, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return Status{State: StateDisconnected, Reason: err.Error(), LastCheckedAt: now}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{
			State:         StateError,
			Reason:        fmt.Sprintf("unexpected status %d from /status", resp.StatusCode),
			LastCheckedAt: now,
		}
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := c.decodeJSON(resp, &payload); err != nil {
		return Status{State: StateError, Reason: err.Error(), LastCheckedAt: now}
	}
	return Status{State: StateConnected, LastCheckedAt: now}
}

// ListSketches возвращает краткие записи эскизов активного документа.
func (c *rpcClient) ListSketches(ctx context.Context) ([]sketch.Summary, error) {
	resp, err := c.do(ctx, http.MethodGet, "/sketches", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{
			System: c.system,
			Detail: fmt.Sprintf("unexpected status %d from /sketches", resp.StatusCode),
		}
	}

	var payload struct {
		Sketches []sketch.Summary `json:"sketches"`
	}
	if err := c.decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	return payload.Sketches, nil
}

// FetchSketch запрашивает полное тело эскиза и помечает его
// системой-источником.
func (c *rpcClient) FetchSketch(ctx context.Context, id string) (sketch.Sketch, error) {
	resp, err := c.do(ctx, http.MethodGet, "/sketches/"+id, nil)
	if err != nil {
		return sketch.Sketch{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return sketch.Sketch{}, &NotFoundError{System: c.system, SketchID: id}
	default:
		return sketch.Sketch{}, &ProtocolError{
			System: c.system,
			Detail: fmt.Sprintf("unexpected status %d fetching sketch %s", resp.StatusCode, id),
		}
	}

	var s sketch.Sketch
	if err := c.decodeJSON(resp, &s); err != nil {
		return sketch.Sketch{}, err
	}
	s.SourceSystem = string(c.system)
	return s, nil
}

// CreateSketch создает эскиз на указанной плоскости или грани и
// возвращает идентификатор, присвоенный удалённой стороной.
func (c *rpcClient) CreateSketch(ctx context.Context, s sketch.Sketch, plane string) (string, error) {
	req := struct {
		Sketch sketch.Sketch `json:"sketch"`
		Plane  string        `json:"plane"`
	}{Sketch: s, Plane: plane}

	resp, err := c.do(ctx, http.MethodPost, "/sketches", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "", &RemoteRejectedError{System: c.system, Reason: errorReason(resp)}
	default:
		return "", &ProtocolError{
			System: c.system,
			Detail: fmt.Sprintf("unexpected status %d creating sketch", resp.StatusCode),
		}
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := c.decodeJSON(resp, &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", &ProtocolError{System: c.system, Detail: "create response without sketch id"}
	}
	return payload.ID, nil
}

// ============================================================
// Per-System Clients
// ============================================================

// FreeCADClient — клиент адаптера FreeCAD.
type FreeCADClient struct{ *rpcClient }

// NewFreeCADClient создает клиент адаптера FreeCAD.
func NewFreeCADClient(host string, port int, timeout time.Duration) (*FreeCADClient, error) {
	rc, err := newRPCClient(FreeCAD, host, port, timeout)
	if err != nil {
		return nil, err
	}
	return &FreeCADClient{rc}, nil
}

// InventorClient — клиент адаптера Inventor.
type InventorClient struct{ *rpcClient }

// NewInventorClient создает клиент адаптера Inventor.
func NewInventorClient(host string, port int, timeout time.Duration) (*InventorClient, error) {
	rc, err := newRPCClient(Inventor, host, port, timeout)
	if err != nil {
		return nil, err
	}
	return &InventorClient{rc}, nil
}

// SolidWorksClient — клиент адаптера SolidWorks.
type SolidWorksClient struct{ *rpcClient }

// NewSolidWorksClient создает клиент адаптера SolidWorks.
func NewSolidWorksClient(host string, port int, timeout time.Duration) (*SolidWorksClient, error) {
	rc, err := newRPCClient(SolidWorks, host, port, timeout)
	if err != nil {
		return nil, err
	}
	return &SolidWorksClient{rc}, nil
}

// FusionClient — клиент адаптера Fusion 360.
type FusionClient struct{ *rpcClient }

// NewFusionClient создает клиент адаптера Fusion 360.
func NewFusionClient(host string, port int, timeout time.Duration) (*FusionClient, error) {
	rc, err := newRPCClient(Fusion360, host, port, timeout)
	if err != nil {
		return nil, err
	}
	return &FusionClient{rc}, nil
}

// NewClient возвращает клиент для системы из её дескриптора.
func NewClient(d Descriptor, timeout time.Duration) (Client, error) {
	switch d.System {
	case FreeCAD:
		return NewFreeCADClient(d.Host, d.Port, timeout)
	case Inventor:
		return NewInventorClient(d.Host, d.Port, timeout)
	case SolidWorks:
		return NewSolidWorksClient(d.Host, d.Port, timeout)
	case Fusion360:
		return NewFusionClient(d.Host, d.Port, timeout)
	default:
		return nil, fmt.Errorf("unknown CAD system: %q", d.System)
	}
}
