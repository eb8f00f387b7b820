package chain

import "golang.org/x/image/math/f64"

// Names of the built-in operations used by the helpers below.
const (
	OpCrop                  = "crop"
	OpAffineTransform       = "affineTransform"
	OpLanczosScaleTransform = "lanczosScaleTransform"
	OpGaussianBlur          = "gaussianBlur"
	OpBoxBlur               = "boxBlur"
	OpSourceOverCompositing = "sourceOverCompositing"
	OpBlendWithMask         = "blendWithMask"
	OpDissolveTransition    = "dissolveTransition"
	OpDisplacement          = "displacementDistortion"
	OpConstantColor         = "constantColor"
)

// Cropped returns img clipped to r.
func (img *Image) Cropped(r Rect) *Image {
	return img.Apply(OpCrop, Params{"rectangle": Vector(r.MinX, r.MinY, r.Width(), r.Height())})
}

// Transformed returns img mapped through the row-major affine matrix m.
func (img *Image) Transformed(m f64.Aff3) *Image {
	return img.Apply(OpAffineTransform, Params{"transform": Vector(m[:]...)})
}

// Scaled returns img resampled by scale vertically and scale*aspectRatio
// horizontally.
func (img *Image) Scaled(scale, aspectRatio float64) *Image {
	return img.Apply(OpLanczosScaleTransform, Params{
		"scale":       Scalar(scale),
		"aspectRatio": Scalar(aspectRatio),
	})
}

// Blurred returns img with a Gaussian blur of the given radius.
func (img *Image) Blurred(radius float64) *Image {
	return img.Apply(OpGaussianBlur, Params{"radius": Scalar(radius)})
}

// BoxBlurred returns img with a box blur of the given radius.
func (img *Image) BoxBlurred(radius float64) *Image {
	return img.Apply(OpBoxBlur, Params{"radius": Scalar(radius)})
}

// Over composites img on top of background.
func (img *Image) Over(background *Image) *Image {
	return img.Apply(OpSourceOverCompositing, Params{"background": ImageValue(background)})
}

// Masked blends img over background where mask is opaque.
func (img *Image) Masked(background, mask *Image) *Image {
	return img.Apply(OpBlendWithMask, Params{
		"background": ImageValue(background),
		"mask":       ImageValue(mask),
	})
}

// Dissolve cross-fades img into target by t in [0, 1].
func (img *Image) Dissolve(target *Image, t float64) *Image {
	return img.Apply(OpDissolveTransition, Params{
		"target": ImageValue(target),
		"time":   Scalar(t),
	})
}

// Displaced offsets the pixels of img by the red and green channels of
// displacement, multiplied by scale.
func (img *Image) Displaced(displacement *Image, scale float64) *Image {
	return img.Apply(OpDisplacement, Params{
		"displacement": ImageValue(displacement),
		"scale":        Scalar(scale),
	})
}

// Generate returns the output of the generator operation name. Generators
// are defined over the whole plane and ignore their input.
func Generate(name string, params Params) *Image {
	return New(Empty{}).Apply(name, params)
}

// ConstantColor returns an infinite image filled with c.
func ConstantColor(c Color) *Image {
	return Generate(OpConstantColor, Params{"color": ColorValue(c)})
}
