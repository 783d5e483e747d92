package cad

import (
	"fmt"

	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
)

// ============================================================
// Error Taxonomy
// ============================================================

// ConnectionError — транспортная ошибка при обращении к адаптеру
// (timeout, connection refused, недоступный хост).
type ConnectionError struct {
	System System
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.System, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError — ответ адаптера не соответствует ожидаемому конверту.
// Не повторяется автоматически: это несовпадение версий, а не сбой сети.
type ProtocolError struct {
	System System
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.System, e.Detail)
}

// NotFoundError — эскиз отсутствует на удалённой стороне на момент запроса.
type NotFoundError struct {
	System   System
	SketchID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: sketch %q not found", e.System, e.SketchID)
}

// NotConnectedError — операция требует состояния connected; сетевой
// вызов при этом не выполнялся.
type NotConnectedError struct {
	System System
	State  State
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s: not connected (state %s)", e.System, e.State)
}

// RemoteRejectedError — целевая CAD-система отвергла создаваемый эскиз
// (неверный идентификатор грани, неприемлемая геометрия).
type RemoteRejectedError struct {
	System System
	Reason string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("%s: remote rejected sketch: %s", e.System, e.Reason)
}

// SketchFailure — ошибка получения одного эскиза при сборе.
type SketchFailure struct {
	SketchID string
	Err      error
}

// PartialCollectionError — часть эскизов собрать не удалось. Collected
// содержит успешно полученные эскизы; принять их или отбросить решает
// вызывающая сторона.
type PartialCollectionError struct {
	System    System
	Collected []sketch.Sketch
	Failures  []SketchFailure
}

func (e *PartialCollectionError) Error() string {
	total := len(e.Collected) + len(e.Failures)
	msg := fmt.Sprintf("%s: collected %d of %d sketches", e.System, len(e.Collected), total)
	if len(e.Failures) > 0 {
		f := e.Failures[0]
		msg += fmt.Sprintf("; first failure: %s: %v", f.SketchID, f.Err)
	}
	return msg
}
