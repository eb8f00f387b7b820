package compiler

import "github.com/gogpu/filtergraph/chain"

// DefaultSeparableThreshold is the blur radius above which separable blurs
// run as two passes.
const DefaultSeparableThreshold = 8

// defaultBlurRadius is the radius of a blur without a "radius" parameter.
const defaultBlurRadius = 10

// Expansion returns the pass operation names a node runs as, in order.
type Expansion func(params chain.Params) []string

// Separable returns the expansion of a separable blur op: a single pass
// while its radius is at most threshold, and op+"Horizontal" followed by
// op+"Vertical" above it.
func Separable(op string, threshold float64) Expansion {
	horizontal, vertical := op+"Horizontal", op+"Vertical"
	return func(params chain.Params) []string {
		if params.Float("radius", defaultBlurRadius) > threshold {
			return []string{horizontal, vertical}
		}
		return []string{op}
	}
}

// DefaultExpansions returns the expansion table for the built-in blurs.
func DefaultExpansions(threshold float64) map[string]Expansion {
	return map[string]Expansion{
		chain.OpGaussianBlur: Separable(chain.OpGaussianBlur, threshold),
		chain.OpBoxBlur:      Separable(chain.OpBoxBlur, threshold),
	}
}
