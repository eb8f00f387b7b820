package graph

import (
	"maps"

	"github.com/gogpu/filtergraph/chain"
	"golang.org/x/image/math/f64"
)

// ExtentRule computes the output extent of an operation from the extent of
// its primary input and its non-image parameters.
type ExtentRule func(input chain.Extent, params chain.Params) chain.Extent

// ExtentRules is the output-extent policy table. Operations without a rule
// pass their input extent through unchanged; generators always produce the
// infinite extent.
//
// An ExtentRules value must not be modified while a Builder uses it;
// NewBuilder takes a copy.
type ExtentRules struct {
	rules      map[string]ExtentRule
	generators map[string]struct{}
}

// NewExtentRules returns an empty table: every operation passes through.
func NewExtentRules() *ExtentRules {
	return &ExtentRules{
		rules:      make(map[string]ExtentRule),
		generators: make(map[string]struct{}),
	}
}

// DefaultGenerators are the operations defined over the whole plane.
var DefaultGenerators = []string{
	"constantColor",
	"linearGradient",
	"radialGradient",
	"checkerboard",
	"stripes",
	"randomNoise",
	"roundedRectangle",
}

// DefaultExtentRules returns the rules for the built-in operations.
func DefaultExtentRules() *ExtentRules {
	r := NewExtentRules()
	r.Set(chain.OpCrop, cropExtent)
	r.Set(chain.OpAffineTransform, affineExtent)
	r.Set(chain.OpLanczosScaleTransform, scaleExtent)
	r.SetGenerator(DefaultGenerators...)
	return r
}

// Set installs the rule for name.
func (r *ExtentRules) Set(name string, rule ExtentRule) { r.rules[name] = rule }

// SetGenerator marks names as generators.
func (r *ExtentRules) SetGenerator(names ...string) {
	for _, n := range names {
		r.generators[n] = struct{}{}
	}
}

// IsGenerator reports whether name is a generator.
func (r *ExtentRules) IsGenerator(name string) bool {
	_, ok := r.generators[name]
	return ok
}

// Clone returns a copy of r.
func (r *ExtentRules) Clone() *ExtentRules {
	return &ExtentRules{
		rules:      maps.Clone(r.rules),
		generators: maps.Clone(r.generators),
	}
}

// Output returns the output extent of operation name.
func (r *ExtentRules) Output(name string, input chain.Extent, params chain.Params) chain.Extent {
	if r.IsGenerator(name) {
		return chain.Infinite()
	}
	if rule, ok := r.rules[name]; ok {
		return rule(input, params)
	}
	return input
}

// cropExtent intersects the input with the "rectangle" parameter (x, y, w, h).
func cropExtent(input chain.Extent, params chain.Params) chain.Extent {
	v, ok := params["rectangle"].Vector()
	if !ok || len(v) != 4 {
		return input
	}
	return input.Intersect(chain.XYWH(v[0], v[1], v[2], v[3]))
}

// affineExtent maps the input through the "transform" parameter, a
// row-major 2×3 matrix.
func affineExtent(input chain.Extent, params chain.Params) chain.Extent {
	v, ok := params["transform"].Vector()
	if !ok || len(v) != 6 {
		return input
	}
	return input.Transform(f64.Aff3(v))
}

// scaleExtent scales the input by "scale" vertically and by
// scale*"aspectRatio" horizontally.
func scaleExtent(input chain.Extent, params chain.Params) chain.Extent {
	scale := params.Float("scale", 1)
	aspect := params.Float("aspectRatio", 1)
	return input.Scale(scale*aspect, scale)
}
