package shaders

import (
	"embed"

	"github.com/gogpu/filtergraph/gpucore"
)

//go:embed wgsl/*.wgsl
var bodies embed.FS

func scalar(name string, def, lo, hi float64) ParamSpec {
	return ParamSpec{Name: name, Components: 1, Default: []float64{def}, Min: lo, Max: hi}
}

func color(name string, r, g, b, a float64) ParamSpec {
	return ParamSpec{Name: name, Components: 4, Default: []float64{r, g, b, a}, Min: 0, Max: 1}
}

func point(name string, x, y float64) ParamSpec {
	return ParamSpec{Name: name, Components: 2, Default: []float64{x, y}}
}

var (
	radius      = []ParamSpec{scalar("radius", 10, 0, 500)}
	noParams    = []ParamSpec{}
	builtinList = []struct {
		name     string
		category Category
		params   []ParamSpec
	}{
		{"crop", CategoryStandard, []ParamSpec{{Name: "rectangle", Components: 4}}},
		{"affineTransform", CategoryStandard, []ParamSpec{{Name: "transform", Components: 6}}},
		{"lanczosScaleTransform", CategoryStandard, []ParamSpec{
			scalar("aspectRatio", 1, 0.001, 1000),
			scalar("scale", 1, 0.001, 1000),
		}},
		{"gaussianBlur", CategoryStandard, radius},
		{"gaussianBlurHorizontal", CategoryStandard, radius},
		{"gaussianBlurVertical", CategoryStandard, radius},
		{"boxBlur", CategoryStandard, radius},
		{"boxBlurHorizontal", CategoryStandard, radius},
		{"boxBlurVertical", CategoryStandard, radius},
		{"colorControls", CategoryStandard, []ParamSpec{
			scalar("brightness", 0, -1, 1),
			scalar("contrast", 1, 0, 4),
			scalar("saturation", 1, 0, 4),
		}},
		{"colorInvert", CategoryStandard, noParams},
		{"exposureAdjust", CategoryStandard, []ParamSpec{scalar("ev", 0, -10, 10)}},
		{"sepiaTone", CategoryStandard, []ParamSpec{scalar("intensity", 1, 0, 1)}},

		{"constantColor", CategoryGenerator, []ParamSpec{color("color", 0, 0, 0, 1)}},
		{"linearGradient", CategoryGenerator, []ParamSpec{
			color("color0", 1, 1, 1, 1),
			color("color1", 0, 0, 0, 1),
			point("point0", 0, 0),
			point("point1", 200, 200),
		}},
		{"checkerboard", CategoryGenerator, []ParamSpec{
			point("center", 150, 150),
			color("color0", 1, 1, 1, 1),
			color("color1", 0, 0, 0, 1),
			scalar("width", 80, 1, 10000),
		}},
		{"randomNoise", CategoryGenerator, noParams},

		{"sourceOverCompositing", CategoryCompositing, noParams},
		{"multiplyBlendMode", CategoryCompositing, noParams},
		{"dissolveTransition", CategoryTransition, []ParamSpec{scalar("time", 0, 0, 1)}},
		{"blendWithMask", CategoryBlendWithMask, noParams},
		{"areaAverage", CategoryReduction, noParams},
		{"displacementDistortion", CategoryDisplacement, []ParamSpec{scalar("scale", 50, -10000, 10000)}},
	}
)

// NewDefault returns a registry holding the built-in shaders.
func NewDefault(format gpucore.TextureFormat) *Registry {
	r := NewRegistry(format)
	for _, b := range builtinList {
		body, err := bodies.ReadFile("wgsl/" + b.name + ".wgsl")
		if err != nil {
			panic("shaders: missing embedded body for " + b.name)
		}
		r.Register(Shader{
			Name:     b.name,
			Category: b.category,
			Body:     string(body),
			Params:   b.params,
		})
	}
	return r
}
