package cad

import (
	"fmt"
	"time"
)

// ============================================================
// CAD Systems
// ============================================================

// System — идентификатор поддерживаемой CAD-системы.
type System string

const (
	FreeCAD    System = "freecad"
	Inventor   System = "inventor"
	SolidWorks System = "solidworks"
	Fusion360  System = "fusion360"
)

// Descriptor — статическое описание адаптера CAD-системы.
// Таблица создается один раз при старте и не изменяется.
type Descriptor struct {
	System      System `json:"system" yaml:"system"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
}

var defaultDescriptors = []Descriptor{
	{System: FreeCAD, DisplayName: "FreeCAD", Host: "localhost", Port: 9876},
	{System: Inventor, DisplayName: "Inventor", Host: "localhost", Port: 9877},
	{System: SolidWorks, DisplayName: "SolidWorks", Host: "localhost", Port: 9878},
	{System: Fusion360, DisplayName: "Fusion 360", Host: "localhost", Port: 9879},
}

// Systems возвращает все поддерживаемые системы в фиксированном порядке.
func Systems() []System {
	out := make([]System, len(defaultDescriptors))
	for i, d := range defaultDescriptors {
		out[i] = d.System
	}
	return out
}

// DefaultDescriptors возвращает копию встроенной таблицы адаптеров.
func DefaultDescriptors() []Descriptor {
	out := make([]Descriptor, len(defaultDescriptors))
	copy(out, defaultDescriptors)
	return out
}

// ParseSystem разбирает идентификатор CAD-системы.
func ParseSystem(raw string) (System, error) {
	switch System(raw) {
	case FreeCAD, Inventor, SolidWorks, Fusion360:
		return System(raw), nil
	}
	return "", fmt.Errorf("unknown CAD system: %q", raw)
}

// ============================================================
// Connection Status
// ============================================================

// State — состояние подключения к CAD-системе.
type State string

const (
	StateUnknown      State = "unknown"
	StateChecking     State = "checking"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// Status — последний известный статус подключения.
type Status struct {
	State         State     `json:"state"`
	Reason        string    `json:"reason,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// StatusEvent — зафиксированное изменение статуса CAD-системы.
type StatusEvent struct {
	System System `json:"system"`
	Status Status `json:"status"`
}
