package chain

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
)

// Rect is an axis-aligned rectangle in image space.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// XYWH returns the rectangle with origin (x, y) and size w×h.
func XYWH(x, y, w, h float64) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// IsEmpty returns true if the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.MinX >= r.MaxX || r.MinY >= r.MaxY
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.MaxX - r.MinX
}

// Height returns the height of the rectangle.
func (r Rect) Height() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.MaxY - r.MinY
}

// Intersect returns the largest rectangle contained in both r and other.
// Disjoint rectangles yield an empty rectangle.
func (r Rect) Intersect(other Rect) Rect {
	out := Rect{
		MinX: math.Max(r.MinX, other.MinX),
		MinY: math.Max(r.MinY, other.MinY),
		MaxX: math.Min(r.MaxX, other.MaxX),
		MaxY: math.Min(r.MaxY, other.MaxY),
	}
	if out.IsEmpty() {
		return Rect{MinX: out.MinX, MinY: out.MinY, MaxX: out.MinX, MaxY: out.MinY}
	}
	return out
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", r.MinX, r.MinY, r.Width(), r.Height())
}

// Extent is the region over which an image is defined: a finite rectangle or
// the whole plane. The zero Extent is the empty finite rectangle.
type Extent struct {
	rect     Rect
	infinite bool
}

// Finite returns the extent covering r.
func Finite(r Rect) Extent { return Extent{rect: r} }

// Infinite returns the extent covering the whole plane.
func Infinite() Extent { return Extent{infinite: true} }

// IsInfinite reports whether e covers the whole plane.
func (e Extent) IsInfinite() bool { return e.infinite }

// Rect returns the finite rectangle and true, or a zero Rect and false for
// an infinite extent.
func (e Extent) Rect() (Rect, bool) {
	if e.infinite {
		return Rect{}, false
	}
	return e.rect, true
}

// Intersect clips e to r. Intersecting the infinite extent yields r itself.
func (e Extent) Intersect(r Rect) Extent {
	if e.infinite {
		return Finite(r)
	}
	return Finite(e.rect.Intersect(r))
}

// Transform maps e through the affine matrix m and returns the bounding box
// of the transformed corners. The infinite extent stays infinite.
//
// m is row-major: x' = m[0]*x + m[1]*y + m[2], y' = m[3]*x + m[4]*y + m[5].
func (e Extent) Transform(m f64.Aff3) Extent {
	if e.infinite {
		return e
	}
	r := e.rect
	corners := [4][2]float64{
		{r.MinX, r.MinY}, {r.MaxX, r.MinY},
		{r.MinX, r.MaxY}, {r.MaxX, r.MaxY},
	}
	out := Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, c := range corners {
		x := m[0]*c[0] + m[1]*c[1] + m[2]
		y := m[3]*c[0] + m[4]*c[1] + m[5]
		out.MinX = math.Min(out.MinX, x)
		out.MinY = math.Min(out.MinY, y)
		out.MaxX = math.Max(out.MaxX, x)
		out.MaxY = math.Max(out.MaxY, y)
	}
	return Finite(out)
}

// Scale multiplies the origin and size of e by sx and sy.
func (e Extent) Scale(sx, sy float64) Extent {
	return e.Transform(f64.Aff3{sx, 0, 0, 0, sy, 0})
}

// Resolve returns the finite rectangle to encode for an output of w×h:
// the rectangle itself, or (0, 0, w, h) for the infinite extent.
func (e Extent) Resolve(w, h int) Rect {
	if e.infinite {
		return XYWH(0, 0, float64(w), float64(h))
	}
	return e.rect
}

func (e Extent) String() string {
	if e.infinite {
		return "infinite"
	}
	return e.rect.String()
}
