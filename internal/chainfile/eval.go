package chainfile

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/gogpu/filtergraph/chain"
)

// Root names of references.
const (
	rootSource = "source"
	rootImage  = "image"
)

// imageType carries a *chain.Image through HCL expressions.
var imageType = cty.Capsule("image", reflect.TypeFor[chain.Image]())

// colorType is the result type of rgba().
var colorType = cty.Object(map[string]cty.Type{
	"r": cty.Number,
	"g": cty.Number,
	"b": cty.Number,
	"a": cty.Number,
})

// rgbaFunc builds a color from components in [0, 1]. Alpha defaults to 1.
var rgbaFunc = function.New(&function.Spec{
	Description: "Returns a color from red, green, blue and optional alpha components.",
	Params: []function.Parameter{
		{Name: "r", Type: cty.Number},
		{Name: "g", Type: cty.Number},
		{Name: "b", Type: cty.Number},
	},
	VarParam: &function.Parameter{Name: "a", Type: cty.Number},
	Type:     function.StaticReturnType(colorType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if len(args) > 4 {
			return cty.NilVal, fmt.Errorf("rgba takes 3 or 4 arguments, got %d", len(args))
		}
		a := cty.NumberIntVal(1)
		if len(args) == 4 {
			a = args[3]
		}
		return cty.ObjectVal(map[string]cty.Value{
			"r": args[0],
			"g": args[1],
			"b": args[2],
			"a": a,
		}), nil
	},
})

// ref names a declared source or image.
type ref struct {
	root, name string
}

func (r ref) String() string { return r.root + "." + r.name }

type evaluator struct {
	dir     string
	sources map[string]*chain.Image
	images  map[string]*chain.Image
	decls   map[string]*hclImage
}

func newEvaluator(dir string) *evaluator {
	return &evaluator{
		dir:     dir,
		sources: make(map[string]*chain.Image),
		images:  make(map[string]*chain.Image),
		decls:   make(map[string]*hclImage),
	}
}

func (ev *evaluator) run(f *hclFile) (*File, error) {
	for _, s := range f.Sources {
		if _, dup := ev.sources[s.Name]; dup {
			return nil, fmt.Errorf("%w: source %q", ErrDuplicate, s.Name)
		}
		img, err := ev.source(s)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", s.Name, err)
		}
		ev.sources[s.Name] = img
	}

	for _, im := range f.Images {
		if _, dup := ev.decls[im.Name]; dup {
			return nil, fmt.Errorf("%w: image %q", ErrDuplicate, im.Name)
		}
		ev.decls[im.Name] = im
	}

	order, err := ev.order(f.Images)
	if err != nil {
		return nil, err
	}
	for _, im := range order {
		img, err := ev.image(im)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", im.Name, err)
		}
		ev.images[im.Name] = img
	}

	if _, err := ev.references(f.Output); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	out, err := ev.imageValue(f.Output)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	return &File{Sources: ev.sources, Images: ev.images, Output: out}, nil
}

// order returns the images so that every image follows the images it
// references.
func (ev *evaluator) order(images []*hclImage) ([]*hclImage, error) {
	const (
		visiting = iota + 1
		done
	)
	state := make(map[string]int, len(images))
	order := make([]*hclImage, 0, len(images))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			cycle := append(slices.Clone(path[slices.Index(path, name):]), name)
			for i, n := range cycle {
				cycle[i] = rootImage + "." + n
			}
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}

		state[name] = visiting
		path = append(path, name)
		im := ev.decls[name]
		deps, err := ev.dependencies(im)
		if err != nil {
			return fmt.Errorf("image %q: %w", name, err)
		}
		for _, d := range deps {
			if d.root != rootImage {
				continue
			}
			if err := visit(d.name); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		order = append(order, im)
		return nil
	}

	for _, im := range images {
		if err := visit(im.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// dependencies returns the references of the input and filter parameters
// of im, in declaration order.
func (ev *evaluator) dependencies(im *hclImage) ([]ref, error) {
	deps, err := ev.references(im.Input)
	if err != nil {
		return nil, err
	}
	for _, f := range im.Filters {
		for _, attr := range sortedAttributes(f.Params) {
			refs, err := ev.references(attr.Expr)
			if err != nil {
				return nil, err
			}
			deps = append(deps, refs...)
		}
	}
	return deps, nil
}

// references checks every variable of expr against the declarations.
func (ev *evaluator) references(expr hcl.Expression) ([]ref, error) {
	if expr == nil {
		return nil, nil
	}
	var refs []ref
	for _, t := range expr.Variables() {
		root := t.RootName()
		if root != rootSource && root != rootImage {
			return nil, fmt.Errorf("%s: %w: %q", t.SourceRange(), ErrUndefined, root)
		}
		if len(t) < 2 {
			return nil, fmt.Errorf("%s: %w: %s needs a name", t.SourceRange(), ErrInvalidValue, root)
		}
		step, isAttr := t[1].(hcl.TraverseAttr)
		if !isAttr {
			return nil, fmt.Errorf("%s: %w: %s needs a name", t.SourceRange(), ErrInvalidValue, root)
		}
		r := ref{root: root, name: step.Name}
		var ok bool
		switch root {
		case rootSource:
			_, ok = ev.sources[r.name]
		case rootImage:
			_, ok = ev.decls[r.name]
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", t.SourceRange(), ErrUndefined, r)
		}
		refs = append(refs, r)
	}
	return refs, nil
}
