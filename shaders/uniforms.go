package shaders

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/gpucore"
)

// Uniform block layout: extent (x, y, w, h), size (w, h, 1/w, 1/h), then
// MaxParamSlots vec4 slots. Each parameter starts a new slot and takes
// ceil(components/4) slots, in name order.
const (
	MaxParamSlots = 8
	slotSize      = 16
	UniformSize   = slotSize * (2 + MaxParamSlots)
)

// Parameter validation errors. They are wrapped in a validation-kind
// *gpucore.Error.
var (
	ErrParamMissing  = errors.New("shaders: required parameter missing")
	ErrParamType     = errors.New("shaders: wrong parameter type")
	ErrParamRange    = errors.New("shaders: parameter out of range")
	ErrTooManyParams = errors.New("shaders: parameters exceed uniform block")
)

// ParamSpec describes one numeric parameter.
type ParamSpec struct {
	Name       string
	Components int

	// Default is used when the parameter is absent. Nil makes it required.
	Default []float64

	// Min and Max bound every component when Min < Max.
	Min, Max float64
}

func (p ParamSpec) check(vals []float64) error {
	if len(vals) != p.Components {
		return fmt.Errorf("%w: %q has %d components, want %d", ErrParamType, p.Name, len(vals), p.Components)
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q is not finite", ErrParamRange, p.Name)
		}
		if p.Min < p.Max && (v < p.Min || v > p.Max) {
			return fmt.Errorf("%w: %q = %g not in [%g, %g]", ErrParamRange, p.Name, v, p.Min, p.Max)
		}
	}
	return nil
}

func validation(name string, err error) error {
	return gpucore.NewError(gpucore.KindValidation, "encode parameters", name, err)
}

// EncodeUniforms encodes the uniform block of one pass of s. extent is the
// finite region the pass reads; width and height are the output size.
func EncodeUniforms(s Shader, params chain.Params, extent chain.Rect, width, height int) ([]byte, error) {
	values, err := collect(s, params)
	if err != nil {
		return nil, validation(s.Name, err)
	}

	buf := make([]byte, UniformSize)
	put := func(off int, v float64) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v)))
	}
	put(0, extent.MinX)
	put(4, extent.MinY)
	put(8, extent.Width())
	put(12, extent.Height())
	put(16, float64(width))
	put(20, float64(height))
	if width > 0 && height > 0 {
		put(24, 1/float64(width))
		put(28, 1/float64(height))
	}

	slot := 2
	for _, vals := range values {
		need := max(1, (len(vals)+3)/4)
		if slot+need > 2+MaxParamSlots {
			return nil, validation(s.Name, ErrTooManyParams)
		}
		for i, v := range vals {
			put(slot*slotSize+i*4, v)
		}
		slot += need
	}
	return buf, nil
}

// collect returns the parameter components in slot order.
func collect(s Shader, params chain.Params) ([][]float64, error) {
	if s.Params == nil {
		var out [][]float64
		for _, name := range params.Names() {
			vals := params[name].Floats()
			if vals == nil {
				continue
			}
			spec := ParamSpec{Name: name, Components: len(vals)}
			if err := spec.check(vals); err != nil {
				return nil, err
			}
			out = append(out, vals)
		}
		return out, nil
	}

	out := make([][]float64, 0, len(s.Params))
	for _, spec := range s.Params {
		v, ok := params[spec.Name]
		var vals []float64
		switch {
		case !ok && spec.Default == nil:
			return nil, fmt.Errorf("%w: %q", ErrParamMissing, spec.Name)
		case !ok:
			vals = spec.Default
		default:
			vals = v.Floats()
			if vals == nil {
				return nil, fmt.Errorf("%w: %q is %s", ErrParamType, spec.Name, v.Kind())
			}
		}
		if err := spec.check(vals); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, nil
}
