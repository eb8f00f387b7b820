package chain

import (
	"image"
	"image/color"
	"testing"
)

func TestImageIdentity(t *testing.T) {
	a := New(SolidColor{})
	b := New(SolidColor{})
	if a.ID() == b.ID() {
		t.Fatal("distinct images must have distinct ids")
	}
	if !a.IsBase() {
		t.Error("New should return a base image")
	}

	blurred := a.Blurred(5)
	if blurred.IsBase() || blurred.Input() != a {
		t.Error("Apply should derive from the receiver")
	}
	if blurred.ID() <= a.ID() {
		t.Error("ids are assigned in construction order")
	}
}

func TestDeriveCopiesParams(t *testing.T) {
	params := Params{"radius": Scalar(3)}
	img := Derive(New(Empty{}), Operation{Name: OpGaussianBlur, Params: params})
	params["radius"] = Scalar(99)

	ops := img.Operations()
	if got := ops[0].Params.Float("radius", 0); got != 3 {
		t.Errorf("radius = %g, want 3", got)
	}
	ops[0].Name = "mutated"
	if img.Operations()[0].Name != OpGaussianBlur {
		t.Error("Operations must return a copy")
	}
}

func TestValueVariants(t *testing.T) {
	img := New(Empty{})
	tests := []struct {
		name   string
		v      Value
		kind   ValueKind
		floats []float64
	}{
		{"scalar", Scalar(2), KindScalar, []float64{2}},
		{"vector", Vector(1, 2, 3), KindVector, []float64{1, 2, 3}},
		{"color", RGBA(0.1, 0.2, 0.3, 1), KindColor, []float64{0.1, 0.2, 0.3, 1}},
		{"image", ImageValue(img), KindImage, nil},
		{"text", Text("hi"), KindText, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.v.Kind(), tt.kind)
			}
			got := tt.v.Floats()
			if len(got) != len(tt.floats) {
				t.Fatalf("Floats = %v, want %v", got, tt.floats)
			}
			for i := range got {
				if got[i] != tt.floats[i] {
					t.Errorf("Floats[%d] = %g, want %g", i, got[i], tt.floats[i])
				}
			}
		})
	}
	if ImageValue(img).Image() != img {
		t.Error("Image() should return the referenced image")
	}
	if Scalar(1).Image() != nil {
		t.Error("non-image values have no image")
	}
}

func TestParamsNamesSorted(t *testing.T) {
	p := Params{"radius": Scalar(1), "angle": Scalar(2), "center": Vector(0, 0)}
	names := p.Names()
	want := []string{"angle", "center", "radius"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
}

func TestPayloadExtents(t *testing.T) {
	src := ImageSource{Image: image.NewRGBA(image.Rect(0, 0, 100, 80))}
	if r, ok := src.Extent().Rect(); !ok || r != XYWH(0, 0, 100, 80) {
		t.Errorf("ImageSource extent = %v", src.Extent())
	}
	if !(SolidColor{}).Extent().IsInfinite() {
		t.Error("SolidColor must be infinite")
	}
	buf := PixelBuffer{Width: 4, Height: 2, Pix: make([]byte, 32)}
	if r, _ := buf.Extent().Rect(); r != XYWH(0, 0, 4, 2) {
		t.Errorf("PixelBuffer extent = %v", r)
	}
}

func TestTextSourceExtent(t *testing.T) {
	short, _ := TextSource{Text: "Hi", Size: 24}.Extent().Rect()
	long, _ := TextSource{Text: "Hi there, world", Size: 24}.Extent().Rect()
	if short.Width() <= 0 || short.Height() <= 0 {
		t.Fatalf("text extent = %v, want non-empty", short)
	}
	if long.Width() <= short.Width() {
		t.Errorf("longer text should be wider: %v vs %v", long, short)
	}
	if long.Height() != short.Height() {
		t.Errorf("line height should not depend on the text: %v vs %v", long, short)
	}
}

func TestRasterize(t *testing.T) {
	red := Color{R: 1, A: 1}
	dst := Rasterize(SolidColor{Color: red}, 8, 8)
	got := dst.RGBAAt(3, 5)
	if got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel = %v, want opaque red", got)
	}

	pix := make([]byte, 2*2*4)
	pix[0], pix[3] = 255, 255
	dst = Rasterize(PixelBuffer{Width: 2, Height: 2, Pix: pix}, 4, 4)
	if dst.RGBAAt(0, 0) != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel (0,0) = %v", dst.RGBAAt(0, 0))
	}
	if dst.RGBAAt(3, 3) != (color.RGBA{}) {
		t.Errorf("pixel outside the buffer should stay transparent, got %v", dst.RGBAAt(3, 3))
	}
}
