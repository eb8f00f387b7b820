package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/gpucore"
)

// NodeID identifies a node within one Graph. IDs are assigned in dependency
// order: every input of a node has a smaller ID.
type NodeID int

// InputRef points at the producer of a node input. During construction it
// may refer to an external chain.Image that has not been folded yet; a built
// Graph only contains node references.
type InputRef struct {
	node     NodeID
	external *chain.Image
}

// NodeInput returns a reference to node id.
func NodeInput(id NodeID) InputRef { return InputRef{node: id} }

// ExternalInput returns an unresolved reference to img.
func ExternalInput(img *chain.Image) InputRef { return InputRef{node: -1, external: img} }

// IsExternal reports whether r is still unresolved.
func (r InputRef) IsExternal() bool { return r.external != nil }

// Node returns the referenced node. It is only meaningful when r is not
// external.
func (r InputRef) Node() NodeID { return r.node }

// External returns the unresolved image, or nil.
func (r InputRef) External() *chain.Image { return r.external }

func (r InputRef) String() string {
	if r.external != nil {
		return fmt.Sprintf("image#%d", r.external.ID())
	}
	return fmt.Sprintf("node#%d", r.node)
}

// Node is one vertex of a filter graph: a source holding a payload, or an
// operation consuming other nodes.
type Node struct {
	ID        NodeID
	Operation string

	// Params holds the non-image parameters. Image-valued parameters become
	// entries of Inputs.
	Params chain.Params

	// Inputs maps input keys ("image", "background", ...) to producers.
	Inputs map[string]InputRef

	IsSource bool
	Source   chain.Payload

	// InputExtent is the extent of the primary input; OutputExtent is what
	// the node produces.
	InputExtent  chain.Extent
	OutputExtent chain.Extent
}

// InputKeys returns the input keys of n in sorted order.
func (n *Node) InputKeys() []string {
	return slices.Sorted(maps.Keys(n.Inputs))
}

func (n *Node) String() string {
	if n.IsSource {
		return fmt.Sprintf("#%d source %s", n.ID, n.OutputExtent)
	}
	return fmt.Sprintf("#%d %s %s", n.ID, n.Operation, n.OutputExtent)
}

// Graph is a DAG of nodes with a single output.
type Graph struct {
	Nodes  map[NodeID]*Node
	Output NodeID

	// Sources lists the source nodes in ascending ID order.
	Sources []NodeID

	// Order is a valid execution order: each node appears after all of its
	// inputs and the output node comes last.
	Order []NodeID
}

// ErrInvalidGraph reports a structural defect found by Validate.
var ErrInvalidGraph = errors.New("graph: invalid graph")

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node { return g.Nodes[id] }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Nodes) }

// OutputNode returns the output node.
func (g *Graph) OutputNode() *Node { return g.Nodes[g.Output] }

// Validate checks the structural invariants of g: every input resolves to an
// existing node with a smaller ID, Order covers every node once with inputs
// first and the output last, and Sources is exactly the set of source nodes.
func (g *Graph) Validate() error {
	fail := func(format string, args ...any) error {
		return gpucore.NewError(gpucore.KindValidation, "validate graph", "",
			fmt.Errorf("%w: "+format, append([]any{ErrInvalidGraph}, args...)...))
	}

	if g.Nodes[g.Output] == nil {
		return fail("output node %d missing", g.Output)
	}
	if len(g.Order) != len(g.Nodes) {
		return fail("order has %d entries for %d nodes", len(g.Order), len(g.Nodes))
	}
	if g.Order[len(g.Order)-1] != g.Output {
		return fail("output node %d is not last in order", g.Output)
	}

	position := make(map[NodeID]int, len(g.Order))
	for i, id := range g.Order {
		if g.Nodes[id] == nil {
			return fail("order references missing node %d", id)
		}
		if _, dup := position[id]; dup {
			return fail("node %d appears twice in order", id)
		}
		position[id] = i
	}

	var sources []NodeID
	for id, n := range g.Nodes {
		if n.ID != id {
			return fail("node %d stored under id %d", n.ID, id)
		}
		if n.IsSource {
			if len(n.Inputs) != 0 {
				return fail("source node %d has inputs", id)
			}
			if n.Source == nil {
				return fail("source node %d has no payload", id)
			}
			sources = append(sources, id)
			continue
		}
		if n.Operation == "" {
			return fail("node %d has no operation", id)
		}
		for key, ref := range n.Inputs {
			if ref.IsExternal() {
				return fail("node %d input %q is unresolved", id, key)
			}
			in := ref.Node()
			if g.Nodes[in] == nil {
				return fail("node %d input %q references missing node %d", id, key, in)
			}
			if in >= id {
				return fail("node %d input %q references later node %d", id, key, in)
			}
			if position[in] >= position[id] {
				return fail("node %d runs before its input %d", id, in)
			}
		}
	}
	slices.Sort(sources)
	if !slices.Equal(sources, g.Sources) {
		return fail("sources %v, want %v", g.Sources, sources)
	}
	return nil
}
