package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/internal/logx"
)

// PrimaryInput is the input key of the image an operation is applied to.
const PrimaryInput = "image"

// Errors returned by Build, wrapped in a gpucore.Error of KindValidation.
var (
	ErrNilImage         = errors.New("graph: nil image")
	ErrNilPayload       = errors.New("graph: base image without payload")
	ErrInvalidOperation = errors.New("graph: invalid operation")
)

// Builder converts chain.Image trees into Graphs.
//
// A Builder is safe for concurrent use.
type Builder struct {
	rules *ExtentRules
}

// NewBuilder returns a Builder using a copy of rules, or the default rules
// when rules is nil.
func NewBuilder(rules *ExtentRules) *Builder {
	if rules == nil {
		rules = DefaultExtentRules()
	} else {
		rules = rules.Clone()
	}
	return &Builder{rules: rules}
}

var defaultBuilder = NewBuilder(nil)

// Build converts img into a Graph using the default extent rules.
func Build(img *chain.Image) (*Graph, error) { return defaultBuilder.Build(img) }

// frame is one pending image on the explicit build stack.
type frame struct {
	img      *chain.Image
	expanded bool
}

// build holds the state of one Build call.
type build struct {
	rules *ExtentRules
	nodes map[NodeID]*Node
	memo  map[uint64]NodeID
	next  NodeID
}

// Build converts img into a Graph.
//
// Images reachable more than once (through the input chain or through image
// parameters) are folded once and shared. The traversal uses an explicit
// stack, so chain depth is bounded only by memory.
func (b *Builder) Build(img *chain.Image) (*Graph, error) {
	if img == nil {
		return nil, buildError("", ErrNilImage)
	}

	st := &build{
		rules: b.rules,
		nodes: make(map[NodeID]*Node),
		memo:  make(map[uint64]NodeID),
	}

	stack := []frame{{img: img}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := st.memo[f.img.ID()]; done {
			continue
		}

		deps, err := st.dependencies(f.img)
		if err != nil {
			return nil, err
		}
		var pending []*chain.Image
		for _, d := range deps {
			if _, done := st.memo[d.ID()]; !done {
				pending = append(pending, d)
			}
		}
		if len(pending) > 0 {
			if f.expanded {
				return nil, buildError("", fmt.Errorf("%w: image#%d depends on itself", ErrInvalidOperation, f.img.ID()))
			}
			stack = append(stack, frame{img: f.img, expanded: true})
			for _, d := range slices.Backward(pending) {
				stack = append(stack, frame{img: d})
			}
			continue
		}

		if err := st.fold(f.img); err != nil {
			return nil, err
		}
	}

	g := st.finish(st.memo[img.ID()])
	logx.Logger().Debug("filter graph built",
		"nodes", g.Len(), "sources", len(g.Sources), "output", g.Output)
	return g, nil
}

// dependencies returns the images that must be folded before img: its input
// (unless the first operation is a generator) and every image parameter.
func (st *build) dependencies(img *chain.Image) ([]*chain.Image, error) {
	if img.IsBase() {
		if img.Payload() == nil {
			return nil, buildError("", ErrNilPayload)
		}
		return nil, nil
	}

	ops := img.Operations()
	var deps []*chain.Image
	if in := img.Input(); in != nil {
		if len(ops) == 0 || !st.rules.IsGenerator(ops[0].Name) {
			deps = append(deps, in)
		}
	} else if len(ops) == 0 || !st.rules.IsGenerator(ops[0].Name) {
		return nil, buildError("", fmt.Errorf("%w: image#%d has no input", ErrInvalidOperation, img.ID()))
	}

	for _, op := range ops {
		if op.Name == "" {
			return nil, buildError("", fmt.Errorf("%w: empty operation name", ErrInvalidOperation))
		}
		for _, name := range op.Params.Names() {
			v := op.Params[name]
			if v.Kind() != chain.KindImage {
				continue
			}
			if name == PrimaryInput {
				return nil, buildError(op.Name, fmt.Errorf("%w: parameter %q is reserved", ErrInvalidOperation, name))
			}
			if v.Image() == nil {
				return nil, buildError(op.Name, fmt.Errorf("%w: parameter %q", ErrNilImage, name))
			}
			deps = append(deps, v.Image())
		}
	}
	return deps, nil
}

// fold creates the nodes for img once all of its dependencies are memoized.
func (st *build) fold(img *chain.Image) error {
	if img.IsBase() {
		p := img.Payload()
		ext := p.Extent()
		st.memo[img.ID()] = st.add(&Node{
			IsSource:     true,
			Source:       p,
			InputExtent:  ext,
			OutputExtent: ext,
		})
		return nil
	}

	cur, hasCur := NodeID(-1), false
	if in := img.Input(); in != nil {
		cur, hasCur = st.memo[in.ID()]
	}

	for _, op := range img.Operations() {
		n := &Node{
			Operation: op.Name,
			Params:    make(chain.Params, len(op.Params)),
			Inputs:    make(map[string]InputRef),
		}
		generator := st.rules.IsGenerator(op.Name)
		if !generator {
			if !hasCur {
				return buildError(op.Name, fmt.Errorf("%w: no input image", ErrInvalidOperation))
			}
			n.Inputs[PrimaryInput] = NodeInput(cur)
			n.InputExtent = st.nodes[cur].OutputExtent
		} else {
			n.InputExtent = chain.Infinite()
		}

		for name, v := range op.Params {
			if v.Kind() == chain.KindImage {
				n.Inputs[name] = ExternalInput(v.Image())
				continue
			}
			n.Params[name] = v
		}
		for key, ref := range n.Inputs {
			if ref.IsExternal() {
				n.Inputs[key] = NodeInput(st.memo[ref.External().ID()])
			}
		}

		n.OutputExtent = st.rules.Output(op.Name, n.InputExtent, n.Params)
		cur, hasCur = st.add(n), true
	}

	if !hasCur {
		return buildError("", fmt.Errorf("%w: image#%d has no operations", ErrInvalidOperation, img.ID()))
	}
	st.memo[img.ID()] = cur
	return nil
}

func (st *build) add(n *Node) NodeID {
	n.ID = st.next
	st.next++
	st.nodes[n.ID] = n
	return n.ID
}

// finish computes the execution order from output, drops nodes nothing
// consumes and assembles the Graph.
func (st *build) finish(output NodeID) *Graph {
	order := executionOrder(st.nodes, output)

	g := &Graph{
		Nodes:  make(map[NodeID]*Node, len(order)),
		Output: output,
		Order:  order,
	}
	for _, id := range order {
		n := st.nodes[id]
		g.Nodes[id] = n
		if n.IsSource {
			g.Sources = append(g.Sources, id)
		}
	}
	slices.Sort(g.Sources)
	return g
}

// executionOrder returns the post-order of the nodes reachable from output.
// Inputs are visited in sorted key order, so the result is deterministic.
func executionOrder(nodes map[NodeID]*Node, output NodeID) []NodeID {
	type visit struct {
		id   NodeID
		done bool
	}

	var order []NodeID
	seen := make(map[NodeID]bool, len(nodes))
	stack := []visit{{id: output}}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v.done {
			order = append(order, v.id)
			continue
		}
		if seen[v.id] {
			continue
		}
		seen[v.id] = true
		stack = append(stack, visit{id: v.id, done: true})

		keys := nodes[v.id].InputKeys()
		for _, key := range slices.Backward(keys) {
			in := nodes[v.id].Inputs[key].Node()
			if !seen[in] {
				stack = append(stack, visit{id: in})
			}
		}
	}
	return order
}

func buildError(name string, err error) error {
	return gpucore.NewError(gpucore.KindValidation, "build graph", name, err)
}
