package chain

import (
	"math"
	"testing"

	"golang.org/x/image/math/f64"
)

func TestRectIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"contained", XYWH(0, 0, 100, 100), XYWH(10, 10, 50, 50), XYWH(10, 10, 50, 50)},
		{"overlap", XYWH(0, 0, 100, 100), XYWH(50, 50, 100, 100), XYWH(50, 50, 50, 50)},
		{"disjoint", XYWH(0, 0, 10, 10), XYWH(20, 20, 5, 5), Rect{MinX: 20, MinY: 20, MaxX: 20, MaxY: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersect(tt.b); got != tt.want {
				t.Errorf("Intersect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectEmptySize(t *testing.T) {
	r := Rect{MinX: 5, MinY: 5, MaxX: 1, MaxY: 9}
	if !r.IsEmpty() || r.Width() != 0 || r.Height() != 0 {
		t.Errorf("inverted rect should be empty with zero size, got %v", r)
	}
}

func TestExtentIntersectInfinite(t *testing.T) {
	got := Infinite().Intersect(XYWH(1, 2, 3, 4))
	r, ok := got.Rect()
	if !ok || r != XYWH(1, 2, 3, 4) {
		t.Errorf("Infinite ∩ r = %v, want r", got)
	}
}

func TestExtentTransform(t *testing.T) {
	src := Finite(XYWH(0, 0, 100, 50))

	tests := []struct {
		name string
		m    f64.Aff3
		want Rect
	}{
		{"identity", f64.Aff3{1, 0, 0, 0, 1, 0}, XYWH(0, 0, 100, 50)},
		{"translate", f64.Aff3{1, 0, 10, 0, 1, -5}, XYWH(10, -5, 100, 50)},
		{"rotate90", f64.Aff3{0, -1, 0, 1, 0, 0}, XYWH(-50, 0, 50, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := src.Transform(tt.m).Rect()
			if !ok {
				t.Fatal("finite extent became infinite")
			}
			if !rectNear(r, tt.want) {
				t.Errorf("Transform = %v, want %v", r, tt.want)
			}
		})
	}

	if !Infinite().Transform(f64.Aff3{2, 0, 0, 0, 2, 0}).IsInfinite() {
		t.Error("infinite extent must stay infinite")
	}
}

func TestExtentScale(t *testing.T) {
	r, _ := Finite(XYWH(0, 0, 100, 100)).Scale(2, 2).Rect()
	if r.Width() != 200 || r.Height() != 200 {
		t.Errorf("Scale(2) size = %gx%g, want 200x200", r.Width(), r.Height())
	}
}

func TestExtentResolve(t *testing.T) {
	if got := Infinite().Resolve(640, 480); got != XYWH(0, 0, 640, 480) {
		t.Errorf("Resolve(infinite) = %v", got)
	}
	if got := Finite(XYWH(3, 4, 5, 6)).Resolve(640, 480); got != XYWH(3, 4, 5, 6) {
		t.Errorf("Resolve(finite) = %v", got)
	}
}

func rectNear(a, b Rect) bool {
	const eps = 1e-9
	return math.Abs(a.MinX-b.MinX) < eps && math.Abs(a.MinY-b.MinY) < eps &&
		math.Abs(a.MaxX-b.MaxX) < eps && math.Abs(a.MaxY-b.MaxY) < eps
}
