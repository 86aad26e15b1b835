package export

import "math"

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns the area of an annotation. Degenerate shapes yield 0.
// Free-draw strokes are measured as closed polygons.
func Area(a Annotation) float64 {
	switch a.Type {
	case ShapeBox:
		return BoxArea(a.Coordinates)
	case ShapePolygon, ShapeFreeDraw:
		return PolygonArea(a.Coordinates)
	}
	return 0
}

// BoxArea is |w*h| of the first two points. Inverted corners are allowed.
func BoxArea(pts []Point) float64 {
	tl, br, ok := boxCorners(pts)
	if !ok {
		return 0
	}
	return math.Abs((br.X - tl.X) * (br.Y - tl.Y))
}

// PolygonArea applies the shoelace formula over the implicitly closed ring.
func PolygonArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

// BBox returns the bounding box of pts. An empty slice yields the zero Rect.
func BBox(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[0].X, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r
}

// NormalizeBox reorders two corners so the first is top-left.
func NormalizeBox(a, b Point) (Point, Point) {
	return Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
}

func boxCorners(pts []Point) (Point, Point, bool) {
	if len(pts) < 2 {
		return Point{}, Point{}, false
	}
	return pts[0], pts[1], true
}
