package chainfile

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/gogpu/filtergraph/chain"
)

// context exposes the images evaluated so far and the rgba() function.
func (ev *evaluator) context() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			rootSource: imageObject(ev.sources),
			rootImage:  imageObject(ev.images),
		},
		Functions: map[string]function.Function{
			"rgba": rgbaFunc,
		},
	}
}

func imageObject(images map[string]*chain.Image) cty.Value {
	attrs := make(map[string]cty.Value, len(images))
	for name, img := range images {
		attrs[name] = cty.CapsuleVal(imageType, img)
	}
	return cty.ObjectVal(attrs)
}

// eval evaluates expr. An absent attribute yields a null value.
func (ev *evaluator) eval(expr hcl.Expression) (cty.Value, error) {
	if expr == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	v, diags := expr.Value(ev.context())
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%s: %w: value is not known", expr.Range(), ErrInvalidValue)
	}
	return v, nil
}

// imageValue evaluates expr to an image reference.
func (ev *evaluator) imageValue(expr hcl.Expression) (*chain.Image, error) {
	v, err := ev.eval(expr)
	if err != nil {
		return nil, err
	}
	if v.IsNull() || !v.Type().Equals(imageType) {
		return nil, fmt.Errorf("%s: %w: want a source or image reference", rangeOf(expr), ErrInvalidValue)
	}
	return v.EncapsulatedValue().(*chain.Image), nil
}

func rangeOf(expr hcl.Expression) hcl.Range {
	if expr == nil {
		return hcl.Range{}
	}
	return expr.Range()
}

// toValue converts an evaluated filter attribute to an operation parameter.
func toValue(v cty.Value) (chain.Value, error) {
	if v.IsNull() {
		return chain.Value{}, fmt.Errorf("%w: null", ErrInvalidValue)
	}

	ty := v.Type()
	switch {
	case ty.Equals(imageType):
		return chain.ImageValue(v.EncapsulatedValue().(*chain.Image)), nil
	case ty.Equals(cty.Number):
		f, _ := v.AsBigFloat().Float64()
		return chain.Scalar(f), nil
	case ty.Equals(cty.String):
		return chain.Text(v.AsString()), nil
	case ty.Equals(cty.Bool):
		if v.True() {
			return chain.Scalar(1), nil
		}
		return chain.Scalar(0), nil
	case ty.Equals(colorType):
		c, err := toColor(v)
		if err != nil {
			return chain.Value{}, err
		}
		return chain.ColorValue(c), nil
	case ty.IsTupleType() || ty.IsListType():
		xs := make([]float64, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			if e.IsNull() || !e.Type().Equals(cty.Number) {
				return chain.Value{}, fmt.Errorf("%w: vectors hold numbers only", ErrInvalidValue)
			}
			f, _ := e.AsBigFloat().Float64()
			xs = append(xs, f)
		}
		return chain.Vector(xs...), nil
	}
	return chain.Value{}, fmt.Errorf("%w: unsupported type %s", ErrInvalidValue, ty.FriendlyName())
}

// toColor converts a value of colorType.
func toColor(v cty.Value) (chain.Color, error) {
	var comps [4]float64
	for i, name := range []string{"r", "g", "b", "a"} {
		c := v.GetAttr(name)
		if c.IsNull() {
			return chain.Color{}, fmt.Errorf("%w: color component %s is null", ErrInvalidValue, name)
		}
		comps[i], _ = c.AsBigFloat().Float64()
	}
	return chain.Color{R: comps[0], G: comps[1], B: comps[2], A: comps[3]}, nil
}

// sortedAttributes returns attrs ordered by name.
func sortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	names := slices.Sorted(maps.Keys(attrs))
	out := make([]*hcl.Attribute, len(names))
	for i, name := range names {
		out[i] = attrs[name]
	}
	return out
}

// image applies the filters of im to its input.
func (ev *evaluator) image(im *hclImage) (*chain.Image, error) {
	in, err := ev.eval(im.Input)
	if err != nil {
		return nil, err
	}

	var img *chain.Image
	if in.IsNull() {
		if len(im.Filters) == 0 {
			return nil, fmt.Errorf("%w: image needs an input or a filter", ErrInvalidValue)
		}
		img = chain.New(chain.Empty{})
	} else {
		if img, err = ev.imageValue(im.Input); err != nil {
			return nil, err
		}
	}

	for _, f := range im.Filters {
		params := make(chain.Params, len(f.Params))
		for _, attr := range sortedAttributes(f.Params) {
			v, err := ev.eval(attr.Expr)
			if err != nil {
				return nil, err
			}
			p, err := toValue(v)
			if err != nil {
				return nil, fmt.Errorf("%s: filter %q: %s: %w", attr.Range, f.Op, attr.Name, err)
			}
			params[attr.Name] = p
		}
		img = img.Apply(f.Op, params)
	}
	return img, nil
}
