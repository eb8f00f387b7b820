package chain

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Payload is the content of a base image.
type Payload interface {
	// Extent returns the region the payload is defined over.
	Extent() Extent

	// Draw rasterizes the payload into dst. Pixel (x, y) of dst holds the
	// payload's pixel (x, y); anything outside the payload is left untouched.
	Draw(dst *image.RGBA)
}

// Empty is a payload with no pixels. Generators are applied on top of it.
type Empty struct{}

// Extent implements Payload.
func (Empty) Extent() Extent { return Finite(Rect{}) }

// Draw implements Payload.
func (Empty) Draw(*image.RGBA) {}

// ImageSource wraps a decoded image.
type ImageSource struct {
	Image image.Image
}

// Extent implements Payload.
func (s ImageSource) Extent() Extent {
	b := s.Image.Bounds()
	return Finite(Rect{
		MinX: float64(b.Min.X), MinY: float64(b.Min.Y),
		MaxX: float64(b.Max.X), MaxY: float64(b.Max.Y),
	})
}

// Draw implements Payload.
func (s ImageSource) Draw(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), s.Image, dst.Bounds().Min, draw.Src)
}

// SolidColor fills the whole plane with one color.
type SolidColor struct {
	Color Color
}

// Extent implements Payload.
func (SolidColor) Extent() Extent { return Infinite() }

// Draw implements Payload.
func (s SolidColor) Draw(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(s.Color), image.Point{}, draw.Src)
}

// PixelBuffer is tightly packed, premultiplied RGBA8 pixel data with its
// origin at (0, 0).
type PixelBuffer struct {
	Width, Height int
	Pix           []byte
}

// Extent implements Payload.
func (b PixelBuffer) Extent() Extent {
	return Finite(XYWH(0, 0, float64(b.Width), float64(b.Height)))
}

// Draw implements Payload.
func (b PixelBuffer) Draw(dst *image.RGBA) {
	if len(b.Pix) < 4*b.Width*b.Height {
		return
	}
	src := &image.RGBA{
		Pix:    b.Pix,
		Stride: 4 * b.Width,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
	draw.Draw(dst, dst.Bounds(), src, dst.Bounds().Min, draw.Src)
}

// TextSource is a single line of text set in Go Regular. The top-left corner
// of the line box sits at the origin.
type TextSource struct {
	Text  string
	Size  float64 // points at 72 DPI
	Color Color
}

var goRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// face returns a new face; opentype faces are not safe for concurrent use.
func (s TextSource) face() (font.Face, error) {
	f, err := goRegular()
	if err != nil {
		return nil, fmt.Errorf("chain: parse font: %w", err)
	}
	size := s.Size
	if size <= 0 {
		size = 12
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// Extent implements Payload. The width is the advance of the text and the
// height is ascent plus descent.
func (s TextSource) Extent() Extent {
	face, err := s.face()
	if err != nil {
		return Finite(Rect{})
	}
	defer face.Close()

	m := face.Metrics()
	advance := font.MeasureString(face, s.Text)
	return Finite(XYWH(0, 0, float64(advance.Ceil()), float64((m.Ascent + m.Descent).Ceil())))
}

// Draw implements Payload.
func (s TextSource) Draw(dst *image.RGBA) {
	face, err := s.face()
	if err != nil {
		return
	}
	defer face.Close()

	c := s.Color
	if c == (Color{}) {
		c = Color{A: 1}
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: face.Metrics().Ascent},
	}
	d.DrawString(s.Text)
}

// Rasterize draws p into a new w×h RGBA image.
func Rasterize(p Payload, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if p != nil {
		p.Draw(dst)
	}
	return dst
}
