package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/CodeReclaimers/sketch-bridge/internal/cad"
	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
	"github.com/CodeReclaimers/sketch-bridge/internal/transform"
)

// ============================================================
// Application Core
// ============================================================

// Система-источник для эскизов, загруженных из файлов без provenance.
const fileSystem = "file"

// ErrNoSuchSketch — ключ не найден в сессии.
var ErrNoSuchSketch = errors.New("sketch not found in session")

// Connector — операции менеджера подключений, нужные ядру.
type Connector interface {
	Descriptors() []cad.Descriptor
	StatusOf(system cad.System) cad.Status
	Probe(ctx context.Context, system cad.System) (cad.Status, error)
	Collect(ctx context.Context, system cad.System) ([]sketch.Sketch, error)
	Export(ctx context.Context, system cad.System, s sketch.Sketch, plane string) (string, error)
}

// SystemStatus — дескриптор системы вместе с её текущим статусом.
type SystemStatus struct {
	cad.Descriptor
	Status cad.Status `json:"status"`
}

// Core хранит сессию собранных эскизов и оркеструет цепочку
// manager -> transform -> manager. Единственный владелец набора
// эскизов; все изменения сериализуются одним мьютексом.
type Core struct {
	mu       sync.Mutex
	conn     Connector
	sketches map[sketch.Key]sketch.Sketch
	order    []sketch.Key
	selected sketch.Key
	hasSel   bool
}

// NewCore создает ядро поверх менеджера подключений.
func NewCore(conn Connector) *Core {
	return &Core{
		conn:     conn,
		sketches: make(map[sketch.Key]sketch.Sketch),
	}
}

// ListSystems возвращает все CAD-системы с их текущими статусами.
func (c *Core) ListSystems() []SystemStatus {
	descs := c.conn.Descriptors()
	out := make([]SystemStatus, 0, len(descs))
	for _, d := range descs {
		out = append(out, SystemStatus{Descriptor: d, Status: c.conn.StatusOf(d.System)})
	}
	return out
}

// Probe запускает немедленную проверку доступности системы.
func (c *Core) Probe(ctx context.Context, system cad.System) (cad.Status, error) {
	return c.conn.Probe(ctx, system)
}

// put добавляет эскиз, сохраняя порядок вставки; существующий ключ
// перезаписывается на месте.
func (c *Core) put(s sketch.Sketch) sketch.Key {
	key := sketch.KeyOf(s)
	if _, ok := c.sketches[key]; !ok {
		c.order = append(c.order, key)
	}
	c.sketches[key] = s
	return key
}

// Collect собирает эскизы системы и сохраняет их в сессии. При
// частичном сборе успешные эскизы сохраняются, а PartialCollectionError
// передается вызывающей стороне для решения.
func (c *Core) Collect(ctx context.Context, system cad.System) ([]sketch.Key, error) {
	collected, err := c.conn.Collect(ctx, system)
	if err != nil {
		var partial *cad.PartialCollectionError
		if !errors.As(err, &partial) {
			return nil, err
		}
		collected = partial.Collected
	}

	c.mu.Lock()
	keys := make([]sketch.Key, 0, len(collected))
	for _, s := range collected {
		keys = append(keys, c.put(s))
	}
	c.mu.Unlock()

	log.Printf("[BRIDGE] collected %d sketches from %s", len(keys), system)
	return keys, err
}

// Sketches возвращает эскизы сессии в порядке вставки.
func (c *Core) Sketches() []sketch.Sketch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sketch.Sketch, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.sketches[key])
	}
	return out
}

// Get возвращает эскиз по ключу сессии.
func (c *Core) Get(key sketch.Key) (sketch.Sketch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sketches[key]
	if !ok {
		return sketch.Sketch{}, fmt.Errorf("%w: %s", ErrNoSuchSketch, key)
	}
	return s, nil
}

// Remove удаляет эскиз из сессии. Выбор, указывающий на удаленный
// эскиз, становится просто недействительным.
func (c *Core) Remove(key sketch.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sketches[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchSketch, key)
	}
	delete(c.sketches, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear очищает сессию.
func (c *Core) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sketches = make(map[sketch.Key]sketch.Sketch)
	c.order = nil
	c.hasSel = false
}

// Select запоминает выбранный эскиз. Хранится только ключ: слабая
// ссылка, не владение.
func (c *Core) Select(key sketch.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sketches[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchSketch, key)
	}
	c.selected = key
	c.hasSel = true
	return nil
}

// Selection возвращает выбранный эскиз; false, если выбора нет или
// эскиз был удален после выбора.
func (c *Core) Selection() (sketch.Sketch, sketch.Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSel {
		return sketch.Sketch{}, sketch.Key{}, false
	}
	s, ok := c.sketches[c.selected]
	return s, c.selected, ok
}

// Export преобразует эскиз сессии и создает его в целевой системе.
// Исходный эскиз остается в сессии нетронутым и доступен для
// повторного экспорта с другими параметрами.
func (c *Core) Export(ctx context.Context, key sketch.Key, system cad.System, req transform.Request) (string, error) {
	s, err := c.Get(key)
	if err != nil {
		return "", err
	}

	transformed, err := transform.Apply(s, req)
	if err != nil {
		return "", err
	}

	plane := req.TargetPlane
	if plane == "" {
		plane = transform.PlaneXY
	}

	remoteID, err := c.conn.Export(ctx, system, transformed, plane)
	if err != nil {
		return "", err
	}
	log.Printf("[BRIDGE] exported %s to %s as %s", key, system, remoteID)
	return remoteID, nil
}

// LoadFile загружает эскиз из файла в сессию. Эскизам без provenance
// присваивается источник file, без идентификатора — новый uuid.
func (c *Core) LoadFile(path string) (sketch.Key, error) {
	s, err := sketch.Load(path)
	if err != nil {
		return sketch.Key{}, err
	}
	if s.SourceSystem == "" {
		s.SourceSystem = fileSystem
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	c.mu.Lock()
	key := c.put(s)
	c.mu.Unlock()

	log.Printf("[BRIDGE] loaded sketch %s from %s", key, path)
	return key, nil
}

// SaveFile сохраняет эскиз сессии в файл в том же конверте, что и
// сетевой обмен.
func (c *Core) SaveFile(key sketch.Key, path string) error {
	s, err := c.Get(key)
	if err != nil {
		return err
	}
	return sketch.Save(s, path)
}
