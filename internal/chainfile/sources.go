package chainfile

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/internal/logx"
)

// source builds the base image of s. Exactly one of file, text, a
// width/height canvas or a color must be given; color also tints text.
func (ev *evaluator) source(s *hclSource) (*chain.Image, error) {
	cv, err := ev.eval(s.Color)
	if err != nil {
		return nil, err
	}
	var (
		color    chain.Color
		hasColor = !cv.IsNull()
	)
	if hasColor {
		if !cv.Type().Equals(colorType) {
			return nil, fmt.Errorf("%s: %w: color must be rgba(...)", rangeOf(s.Color), ErrInvalidValue)
		}
		if color, err = toColor(cv); err != nil {
			return nil, err
		}
	}

	kinds := 0
	for _, set := range []bool{s.File != nil, s.Text != nil, s.Width != nil || s.Height != nil} {
		if set {
			kinds++
		}
	}
	if kinds > 1 || (hasColor && (s.File != nil || s.Width != nil || s.Height != nil)) {
		return nil, fmt.Errorf("%w: file, text, width/height and color are exclusive", ErrInvalidValue)
	}
	if s.Size != nil && s.Text == nil {
		return nil, fmt.Errorf("%w: size applies to text only", ErrInvalidValue)
	}

	var p chain.Payload
	switch {
	case s.File != nil:
		img, err := ev.decode(*s.File)
		if err != nil {
			return nil, err
		}
		p = chain.ImageSource{Image: img}
	case s.Text != nil:
		ts := chain.TextSource{Text: *s.Text, Color: color}
		if s.Size != nil {
			ts.Size = *s.Size
		}
		p = ts
	case s.Width != nil || s.Height != nil:
		if s.Width == nil || s.Height == nil || *s.Width <= 0 || *s.Height <= 0 {
			return nil, fmt.Errorf("%w: canvas needs positive width and height", ErrInvalidValue)
		}
		w, h := *s.Width, *s.Height
		p = chain.PixelBuffer{Width: w, Height: h, Pix: make([]byte, 4*w*h)}
	case hasColor:
		p = chain.SolidColor{Color: color}
	default:
		return nil, fmt.Errorf("%w: source needs file, text, width/height or color", ErrInvalidValue)
	}
	return chain.New(p), nil
}

// decode reads an image file. PNG, JPEG, BMP, TIFF and WebP are supported.
func (ev *evaluator) decode(path string) (image.Image, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(ev.dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	logx.Logger().Debug("source decoded", "file", path, "format", format, "bounds", img.Bounds().String())
	return img, nil
}
