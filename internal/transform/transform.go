package transform

import (
	"fmt"
	"math"

	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
)

// ============================================================
// Transform Engine
// ============================================================

// Стандартные целевые плоскости. Любое другое значение TargetPlane
// трактуется как идентификатор грани модели и разрешается целевой
// CAD-системой.
const (
	PlaneXY = "XY"
	PlaneXZ = "XZ"
	PlaneYZ = "YZ"
)

// Request — параметры преобразования эскиза при экспорте.
type Request struct {
	DX               float64 `json:"dx"`
	DY               float64 `json:"dy"`
	RotationDegrees  float64 `json:"rotation_degrees"`
	StripConstraints bool    `json:"strip_constraints"`
	TargetPlane      string  `json:"target_plane,omitempty"`
}

// InvalidRequestError — нечисловой параметр преобразования (NaN/Inf).
type InvalidRequestError struct {
	Field string
	Value float64
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid transform request: %s is not finite (%v)", e.Field, e.Value)
}

func validate(r Request) error {
	checks := []struct {
		field string
		value float64
	}{
		{"dx", r.DX},
		{"dy", r.DY},
		{"rotation_degrees", r.RotationDegrees},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &InvalidRequestError{Field: c.field, Value: c.value}
		}
	}
	return nil
}

// Apply применяет жёсткое 2D-преобразование: сначала поворот вокруг
// начала координат эскиза (градусы, против часовой стрелки), затем
// перенос на (dx, dy). Идентификаторы, типы и топология примитивов
// сохраняются, меняются только координаты. При ненулевом повороте
// ограничения всегда отбрасываются: повернутая геометрия с прежними
// ограничениями рискует быть искажена решателем целевой CAD-системы.
// Исходный эскиз не изменяется.
func Apply(s sketch.Sketch, r Request) (sketch.Sketch, error) {
	if err := validate(r); err != nil {
		return sketch.Sketch{}, err
	}

	strip := r.StripConstraints
	if r.RotationDegrees != 0 {
		strip = true
	}

	sin, cos := math.Sincos(r.RotationDegrees * math.Pi / 180)

	out := sketch.Clone(s)
	for i := range out.Geometry {
		pts := out.Geometry[i].Points
		for j, p := range pts {
			pts[j] = sketch.Point{
				X: p.X*cos - p.Y*sin + r.DX,
				Y: p.X*sin + p.Y*cos + r.DY,
			}
		}
	}
	if strip {
		out.Constraints = []sketch.Constraint{}
	}
	return out, nil
}

// AboutCentroid переписывает запрос так, чтобы поворот выполнялся вокруг
// центроида эскиза, не меняя контракт Apply (поворот вокруг начала
// координат): перенос дополняется смещением c - R*c.
func AboutCentroid(s sketch.Sketch, r Request) Request {
	if r.RotationDegrees == 0 {
		return r
	}
	cx, cy := sketch.Centroid(s)
	sin, cos := math.Sincos(r.RotationDegrees * math.Pi / 180)
	r.DX += cx - (cx*cos - cy*sin)
	r.DY += cy - (cx*sin + cy*cos)
	return r
}
