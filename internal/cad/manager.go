package cad

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
)

// ============================================================
// Connection Manager
// ============================================================

// Manager владеет клиентом каждой настроенной CAD-системы, ведёт
// фоновый опрос доступности и является единственным писателем
// агрегированной таблицы статусов.
type Manager struct {
	mu        sync.Mutex
	clients   map[System]Client
	order     []System
	descs     map[System]Descriptor
	statuses  map[System]Status
	reported  map[System]Status
	listeners []func(StatusEvent)

	probeTimeout time.Duration

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewManager создает менеджер с клиентом для каждой системы из таблицы.
func NewManager(descriptors []Descriptor, probeTimeout time.Duration) (*Manager, error) {
	clients := make(map[System]Client, len(descriptors))
	descs := make(map[System]Descriptor, len(descriptors))
	order := make([]System, 0, len(descriptors))

	for _, d := range descriptors {
		client, err := NewClient(d, probeTimeout)
		if err != nil {
			return nil, fmt.Errorf("create %s client: %w", d.System, err)
		}
		clients[d.System] = client
		descs[d.System] = d
		order = append(order, d.System)
	}
	return newManager(clients, descs, order, probeTimeout), nil
}

func newManager(clients map[System]Client, descs map[System]Descriptor, order []System, probeTimeout time.Duration) *Manager {
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	statuses := make(map[System]Status, len(order))
	reported := make(map[System]Status, len(order))
	for _, system := range order {
		statuses[system] = Status{State: StateUnknown}
		reported[system] = Status{State: StateUnknown}
	}
	return &Manager{
		clients:      clients,
		descs:        descs,
		order:        order,
		statuses:     statuses,
		reported:     reported,
		probeTimeout: probeTimeout,
	}
}

// Descriptors возвращает дескрипторы систем в порядке регистрации.
func (m *Manager) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(m.order))
	for _, system := range m.order {
		out = append(out, m.descs[system])
	}
	return out
}

// Subscribe регистрирует наблюдателя изменений статуса. События одной
// системы доставляются в порядке фактических переходов; повторное
// разрешение в то же состояние события не порождает.
func (m *Manager) Subscribe(fn func(StatusEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// StatusOf возвращает последний известный статус без нового опроса.
func (m *Manager) StatusOf(system System) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.statuses[system]; ok {
		return st
	}
	return Status{State: StateUnknown}
}

// setStatus обновляет таблицу статусов и уведомляет подписчиков при
// смене состояния. Сравнение идет с последним доложенным статусом, а
// не с промежуточным checking: иначе каждое разрешение в прежнее
// состояние выглядело бы переходом. Само checking транслируется только
// из unknown, чтобы циклы опроса не дергали наблюдателей впустую.
func (m *Manager) setStatus(system System, st Status) {
	m.mu.Lock()
	m.statuses[system] = st

	prev := m.reported[system]
	notify := st.State != prev.State || st.Reason != prev.Reason
	if st.State == StateChecking && prev.State != StateUnknown {
		notify = false
	}

	var listeners []func(StatusEvent)
	if notify {
		m.reported[system] = st
		listeners = append(listeners, m.listeners...)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(StatusEvent{System: system, Status: st})
	}
}

func (m *Manager) client(system System) (Client, error) {
	client, ok := m.clients[system]
	if !ok {
		return nil, fmt.Errorf("unknown CAD system: %q", system)
	}
	return client, nil
}

// ============================================================
// Monitoring
// ============================================================

// StartMonitoring запускает периодический опрос всех систем.
// Повторный вызов при запущенном мониторинге не делает ничего.
func (m *Manager) StartMonitoring(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	log.Printf("[CAD] monitoring started (interval %s)", interval)

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.pollAll()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.pollAll()
			}
		}
	}()
}

// StopMonitoring останавливает опрос; безопасно при незапущенном.
func (m *Manager) StopMonitoring() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
	log.Printf("[CAD] monitoring stopped")
}

// pollAll опрашивает все системы параллельно: зависший адаптер одной
// системы не задерживает остальные, таймаут каждого опроса ограничен.
func (m *Manager) pollAll() {
	var wg sync.WaitGroup
	for _, system := range m.order {
		wg.Add(1)
		go func(system System) {
			defer wg.Done()
			m.probeSystem(system)
		}(system)
	}
	wg.Wait()
}

func (m *Manager) probeSystem(system System) {
	client := m.clients[system]

	m.setStatus(system, Status{State: StateChecking, LastCheckedAt: time.Now()})

	ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
	defer cancel()
	m.setStatus(system, client.Probe(ctx))
}

// Probe выполняет немедленный опрос одной системы по запросу пользователя.
func (m *Manager) Probe(ctx context.Context, system System) (Status, error) {
	client, err := m.client(system)
	if err != nil {
		return Status{}, err
	}

	m.setStatus(system, Status{State: StateChecking, LastCheckedAt: time.Now()})
	st := client.Probe(ctx)
	m.setStatus(system, st)
	return st, nil
}

// ============================================================
// Collect / Export
// ============================================================

// Collect получает список эскизов системы и затем тело каждого из них
// в порядке списка. Требует состояния connected. Частичный сбой
// возвращается как PartialCollectionError с уже собранными эскизами.
func (m *Manager) Collect(ctx context.Context, system System) ([]sketch.Sketch, error) {
	client, err := m.client(system)
	if err != nil {
		return nil, err
	}
	if st := m.StatusOf(system); st.State != StateConnected {
		return nil, &NotConnectedError{System: system, State: st.State}
	}

	summaries, err := client.ListSketches(ctx)
	if err != nil {
		return nil, err
	}

	collected := make([]sketch.Sketch, 0, len(summaries))
	var failures []SketchFailure
	for _, sum := range summaries {
		s, err := client.FetchSketch(ctx, sum.ID)
		if err != nil {
			log.Printf("[CAD] %s: fetch sketch %s failed: %v", system, sum.ID, err)
			failures = append(failures, SketchFailure{SketchID: sum.ID, Err: err})
			continue
		}
		collected = append(collected, s)
	}

	if len(failures) > 0 {
		return nil, &PartialCollectionError{System: system, Collected: collected, Failures: failures}
	}
	return collected, nil
}

// Export создает эскиз в целевой системе на указанной плоскости или
// грани. Требует состояния connected.
func (m *Manager) Export(ctx context.Context, system System, s sketch.Sketch, plane string) (string, error) {
	client, err := m.client(system)
	if err != nil {
		return "", err
	}
	if st := m.StatusOf(system); st.State != StateConnected {
		return "", &NotConnectedError{System: system, State: st.State}
	}
	return client.CreateSketch(ctx, s, plane)
}
