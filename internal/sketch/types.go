package sketch

// ============================================================
// Sketch Envelope
// ============================================================

// Типы геометрических примитивов.
const (
	EntityLine   = "line"
	EntityCircle = "circle"
	EntityArc    = "arc"
	EntityPoint  = "point"
	EntitySpline = "spline"
)

// Point — точка на плоскости эскиза, координаты в миллиметрах.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entity — 2D-примитив эскиза. Points содержит все координатные значения
// примитива (line: start, end; circle: center; arc: center, start, end;
// point: position; spline: контрольные точки по порядку). Params хранит
// скаляры, не зависящие от положения (radius, direction и т.п.).
type Entity struct {
	ID     string             `json:"id"`
	Type   string             `json:"type"`
	Points []Point            `json:"points"`
	Params map[string]float64 `json:"params,omitempty"`
}

// Constraint — запись ограничения между примитивами. Ядро не
// интерпретирует её содержимое, важны только наличие и ссылки.
type Constraint struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Refs []string       `json:"refs,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Sketch — эскиз: геометрия, ограничения и система-источник.
// После сбора эскиз не изменяется; преобразование всегда возвращает
// новое значение.
type Sketch struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	SourceSystem string       `json:"source_system,omitempty"`
	Geometry     []Entity     `json:"geometry"`
	Constraints  []Constraint `json:"constraints"`
}

// Summary — краткая запись эскиза из списка адаптера; полное тело
// запрашивается отдельным вызовом.
type Summary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	EntityCount     int    `json:"entity_count"`
	ConstraintCount int    `json:"constraint_count"`
}

// Key — ключ эскиза в сессии: пара (source_system, id).
type Key struct {
	System string `json:"system"`
	ID     string `json:"id"`
}

func (k Key) String() string {
	return k.System + "/" + k.ID
}

// KeyOf возвращает сессионный ключ эскиза.
func KeyOf(s Sketch) Key {
	return Key{System: s.SourceSystem, ID: s.ID}
}

// Clone возвращает глубокую копию эскиза.
func Clone(s Sketch) Sketch {
	out := s
	out.Geometry = make([]Entity, len(s.Geometry))
	for i, e := range s.Geometry {
		ce := e
		ce.Points = make([]Point, len(e.Points))
		copy(ce.Points, e.Points)
		if e.Params != nil {
			ce.Params = make(map[string]float64, len(e.Params))
			for k, v := range e.Params {
				ce.Params[k] = v
			}
		}
		out.Geometry[i] = ce
	}
	out.Constraints = make([]Constraint, len(s.Constraints))
	for i, c := range s.Constraints {
		cc := c
		cc.Refs = make([]string, len(c.Refs))
		copy(cc.Refs, c.Refs)
		if c.Data != nil {
			cc.Data = make(map[string]any, len(c.Data))
			for k, v := range c.Data {
				cc.Data[k] = v
			}
		}
		out.Constraints[i] = cc
	}
	return out
}

// ============================================================
// Geometry Helpers
// ============================================================

// Centroid возвращает центроид всех координатных точек эскиза.
// Для пустой геометрии — (0, 0).
func Centroid(s Sketch) (float64, float64) {
	var sumX, sumY float64
	n := 0
	for _, e := range s.Geometry {
		for _, p := range e.Points {
			sumX += p.X
			sumY += p.Y
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sumX / float64(n), sumY / float64(n)
}

// Bounds возвращает охватывающий прямоугольник (minX, minY, maxX, maxY).
// Для окружностей и дуг центр расширяется на радиус.
func Bounds(s Sketch) (float64, float64, float64, float64) {
	first := true
	var minX, minY, maxX, maxY float64

	grow := func(x, y float64) {
		if first {
			minX, minY, maxX, maxY = x, y, x, y
			first = false
			return
		}
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}

	for _, e := range s.Geometry {
		r := 0.0
		if e.Type == EntityCircle || e.Type == EntityArc {
			r = e.Params["radius"]
		}
		for i, p := range e.Points {
			if r != 0 && i == 0 {
				// Первая точка circle/arc — центр.
				grow(p.X-r, p.Y-r)
				grow(p.X+r, p.Y+r)
				continue
			}
			grow(p.X, p.Y)
		}
	}
	if first {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}
