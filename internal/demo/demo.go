package demo

import (
	"github.com/CodeReclaimers/sketch-bridge/internal/sketch"
)

// ============================================================
// Demo Sketches
// ============================================================

// Демонстрационные эскизы для мок-адаптера: покрывают все типы
// примитивов конверта и типичный набор ограничений.

func line(id string, x1, y1, x2, y2 float64) sketch.Entity {
	return sketch.Entity{
		ID:   id,
		Type: sketch.EntityLine,
		Points: []sketch.Point{
			{X: x1, Y: y1},
			{X: x2, Y: y2},
		},
	}
}

func constraint(id, ctype string, refs ...string) sketch.Constraint {
	return sketch.Constraint{ID: id, Type: ctype, Refs: refs}
}

// Plate возвращает прямоугольник с полным набором ограничений формы.
func Plate() sketch.Sketch {
	return sketch.Sketch{
		ID:   "demo-plate",
		Name: "Demo Plate",
		Geometry: []sketch.Entity{
			line("L1", 0, 0, 40, 0),
			line("L2", 40, 0, 40, 25),
			line("L3", 40, 25, 0, 25),
			line("L4", 0, 25, 0, 0),
		},
		Constraints: []sketch.Constraint{
			constraint("H1", "horizontal", "L1"),
			constraint("H2", "horizontal", "L3"),
			constraint("V1", "vertical", "L2"),
			constraint("V2", "vertical", "L4"),
			constraint("C1", "coincident", "L1", "L2"),
			constraint("C2", "coincident", "L2", "L3"),
			constraint("C3", "coincident", "L3", "L4"),
			constraint("C4", "coincident", "L4", "L1"),
			{ID: "D1", Type: "length", Refs: []string{"L1"}, Data: map[string]any{"value": 40.0}},
			{ID: "D2", Type: "length", Refs: []string{"L2"}, Data: map[string]any{"value": 25.0}},
		},
	}
}

// Cluster возвращает окружность и касательную дугу с концентрическим
// ограничением.
func Cluster() sketch.Sketch {
	return sketch.Sketch{
		ID:   "demo-cluster",
		Name: "Tangent Cluster",
		Geometry: []sketch.Entity{
			{
				ID:     "C1",
				Type:   sketch.EntityCircle,
				Points: []sketch.Point{{X: 70, Y: 12}},
				Params: map[string]float64{"radius": 8},
			},
			{
				ID:   "A1",
				Type: sketch.EntityArc,
				Points: []sketch.Point{
					{X: 70, Y: 12},
					{X: 86, Y: 12},
					{X: 70, Y: 28},
				},
				Params: map[string]float64{"radius": 16, "direction": 1},
			},
			line("L1", 86, 12, 86, -6),
		},
		Constraints: []sketch.Constraint{
			constraint("CC1", "concentric", "C1", "A1"),
			constraint("T1", "tangent", "A1", "L1"),
			{ID: "R1", Type: "radius", Refs: []string{"C1"}, Data: map[string]any{"value": 8.0}},
		},
	}
}

// Freeform возвращает сплайн и свободную точку без ограничений.
func Freeform() sketch.Sketch {
	return sketch.Sketch{
		ID:   "demo-freeform",
		Name: "Freeform",
		Geometry: []sketch.Entity{
			{
				ID:   "S1",
				Type: sketch.EntitySpline,
				Points: []sketch.Point{
					{X: 0, Y: 40},
					{X: 12, Y: 52},
					{X: 28, Y: 36},
					{X: 40, Y: 48},
				},
			},
			{
				ID:     "P1",
				Type:   sketch.EntityPoint,
				Points: []sketch.Point{{X: 20, Y: 44}},
			},
		},
		Constraints: []sketch.Constraint{},
	}
}

// Sketches возвращает все демонстрационные эскизы.
func Sketches() []sketch.Sketch {
	return []sketch.Sketch{Plate(), Cluster(), Freeform()}
}
