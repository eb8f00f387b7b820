package chain

import (
	"fmt"
	"image/color"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

// Value kinds.
const (
	KindInvalid ValueKind = iota
	KindScalar
	KindVector
	KindColor
	KindImage
	KindText
)

var valueKindNames = [...]string{"invalid", "scalar", "vector", "color", "image", "text"}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	clamp := func(v float64) float64 { return min(max(v, 0), 1) }
	alpha := clamp(c.A)
	r = uint32(clamp(c.R) * alpha * 0xffff)
	g = uint32(clamp(c.G) * alpha * 0xffff)
	b = uint32(clamp(c.B) * alpha * 0xffff)
	a = uint32(alpha * 0xffff)
	return r, g, b, a
}

var _ color.Color = Color{}

// Value is an operation parameter. It holds exactly one of a scalar, a
// vector, a color, a text string or a reference to another image.
// The zero Value is invalid.
type Value struct {
	kind  ValueKind
	num   float64
	vec   []float64
	color Color
	image *Image
	text  string
}

// Scalar returns a scalar value.
func Scalar(f float64) Value { return Value{kind: KindScalar, num: f} }

// Vector returns a vector value. The components are copied.
func Vector(xs ...float64) Value { return Value{kind: KindVector, vec: slices.Clone(xs)} }

// RGBA returns a color value.
func RGBA(r, g, b, a float64) Value { return ColorValue(Color{R: r, G: g, B: b, A: a}) }

// ColorValue returns a color value.
func ColorValue(c Color) Value { return Value{kind: KindColor, color: c} }

// ImageValue returns a value referencing img.
func ImageValue(img *Image) Value { return Value{kind: KindImage, image: img} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// Scalar returns the scalar held by v.
func (v Value) Scalar() (float64, bool) { return v.num, v.kind == KindScalar }

// Vector returns a copy of the vector held by v.
func (v Value) Vector() ([]float64, bool) {
	if v.kind != KindVector {
		return nil, false
	}
	return slices.Clone(v.vec), true
}

// Color returns the color held by v.
func (v Value) Color() (Color, bool) { return v.color, v.kind == KindColor }

// Image returns the referenced image, or nil.
func (v Value) Image() *Image {
	if v.kind != KindImage {
		return nil
	}
	return v.image
}

// Text returns the text held by v.
func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

// Floats flattens a numeric value: one component for a scalar, the vector
// components, or R, G, B, A for a color. Image and text values return nil.
func (v Value) Floats() []float64 {
	switch v.kind {
	case KindScalar:
		return []float64{v.num}
	case KindVector:
		return slices.Clone(v.vec)
	case KindColor:
		return []float64{v.color.R, v.color.G, v.color.B, v.color.A}
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindVector:
		parts := make([]string, len(v.vec))
		for i, f := range v.vec {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindColor:
		return fmt.Sprintf("rgba(%g, %g, %g, %g)", v.color.R, v.color.G, v.color.B, v.color.A)
	case KindImage:
		if v.image == nil {
			return "image(nil)"
		}
		return fmt.Sprintf("image#%d", v.image.ID())
	case KindText:
		return strconv.Quote(v.text)
	}
	return "invalid"
}

// Params maps parameter names to values.
type Params map[string]Value

// Clone returns a shallow copy of p. Vectors are immutable once wrapped in a
// Value, so the copy shares nothing mutable.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	return slices.Sorted(maps.Keys(p))
}

// Float returns the scalar parameter name, or def if it is absent or not a
// scalar.
func (p Params) Float(name string, def float64) float64 {
	if f, ok := p[name].Scalar(); ok {
		return f
	}
	return def
}
