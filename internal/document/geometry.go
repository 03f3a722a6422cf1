// Package document describes page token geometry and the providers that
// supply it. Coordinates use a top-left origin with y growing downwards.
package document

import "fmt"

// Rect is an axis-aligned box in page coordinates.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewRect builds a normalized rect from two corners.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{X0: min(x0, x1), Y0: min(y0, y1), X1: max(x0, x1), Y1: max(y0, y1)}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// IsEmpty reports whether r has no area.
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Union returns the smallest rect covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{X0: min(r.X0, o.X0), Y0: min(r.Y0, o.Y0), X1: max(r.X1, o.X1), Y1: max(r.Y1, o.Y1)}
}

// Intersect returns the overlap of r and o, which may be empty.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{X0: max(r.X0, o.X0), Y0: max(r.Y0, o.Y0), X1: min(r.X1, o.X1), Y1: min(r.Y1, o.Y1)}
}

// Area returns the area of r, zero for empty rects.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Expand grows r by dx horizontally and dy vertically on each side.
func (r Rect) Expand(dx, dy float64) Rect {
	return Rect{X0: r.X0 - dx, Y0: r.Y0 - dy, X1: r.X1 + dx, Y1: r.Y1 + dy}
}

// Clamp limits r to bounds.
func (r Rect) Clamp(bounds Rect) Rect {
	return Rect{
		X0: max(r.X0, bounds.X0),
		Y0: max(r.Y0, bounds.Y0),
		X1: min(r.X1, bounds.X1),
		Y1: min(r.Y1, bounds.Y1),
	}
}

// Scale multiplies every coordinate by f (zoom).
func (r Rect) Scale(f float64) Rect {
	return Rect{X0: r.X0 * f, Y0: r.Y0 * f, X1: r.X1 * f, Y1: r.Y1 * f}
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect(%.2f, %.2f, %.2f, %.2f)", r.X0, r.Y0, r.X1, r.Y1)
}

// UnionAll covers every rect in rs. It returns the zero Rect for an empty slice.
func UnionAll(rs []Rect) Rect {
	if len(rs) == 0 {
		return Rect{}
	}
	u := rs[0]
	for _, r := range rs[1:] {
		u = u.Union(r)
	}
	return u
}

// Token is a word-like unit on a page.
type Token struct {
	Text string `json:"text"`
	Rect Rect   `json:"rect"`
}
