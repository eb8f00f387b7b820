package compiler

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/graph"
	"github.com/gogpu/filtergraph/internal/logx"
	"github.com/gogpu/filtergraph/render"
	"github.com/gogpu/filtergraph/shaders"
)

// workgroupSize is the edge of the square workgroup every built-in shader
// declares.
const workgroupSize = 8

// ErrInvalidSize is returned for a non-positive output size.
var ErrInvalidSize = errors.New("compiler: output size must be positive")

// ErrNilGraph is returned when Compile is given no graph.
var ErrNilGraph = errors.New("compiler: nil graph")

// Config configures a Compiler.
type Config struct {
	// SeparableThreshold is the blur radius above which the default
	// expansions split a blur into two passes. Default: 8.
	SeparableThreshold float64

	// Expansions maps operation names to their pass expansion. Operations
	// without an entry run as a single pass. Default:
	// DefaultExpansions(SeparableThreshold).
	Expansions map[string]Expansion

	// Retain reports whether textures of a failed compile on adapter a go
	// back to the pool. When it returns false they are destroyed instead.
	// Default: always retain.
	Retain func(a gpucore.Adapter) bool
}

// Compiler turns filter graphs into execution plans. It is safe for
// concurrent use; its state lives in the shared cache and pool.
type Compiler struct {
	registry   *shaders.Registry
	cache      *render.PipelineCache
	pool       *render.TexturePool
	expansions map[string]Expansion
	retain     func(gpucore.Adapter) bool
}

// New returns a Compiler drawing shaders from registry, pipelines from cache
// and textures from pool.
func New(registry *shaders.Registry, cache *render.PipelineCache, pool *render.TexturePool, config Config) *Compiler {
	if config.SeparableThreshold <= 0 {
		config.SeparableThreshold = DefaultSeparableThreshold
	}
	expansions := config.Expansions
	if expansions == nil {
		expansions = DefaultExpansions(config.SeparableThreshold)
	} else {
		expansions = maps.Clone(expansions)
	}
	return &Compiler{
		registry:   registry,
		cache:      cache,
		pool:       pool,
		expansions: expansions,
		retain:     config.Retain,
	}
}

// Passes returns the pass operation names node op with params runs as.
func (c *Compiler) Passes(op string, params chain.Params) []string {
	if e, ok := c.expansions[op]; ok {
		return e(params)
	}
	return []string{op}
}

// session is the state of one Compile call.
type session struct {
	c      *Compiler
	a      gpucore.Adapter
	cg     *CompiledGraph
	output chain.Rect

	// resolved maps graph nodes to the texture holding their output.
	resolved map[graph.NodeID]int
}

// Compile turns g into an execution plan for a width×height output.
//
// Every node output is an output-sized texture from the pool. On failure
// every texture acquired by this call goes back to the pool, or is destroyed
// when Config.Retain rejects a, and every bind
// group and uniform buffer it created is destroyed, so a failed Compile
// leaks nothing.
func (c *Compiler) Compile(ctx context.Context, g *graph.Graph, width, height int, a gpucore.Adapter) (_ *CompiledGraph, err error) {
	if g == nil {
		return nil, gpucore.NewError(gpucore.KindValidation, "compile", "", ErrNilGraph)
	}
	if width <= 0 || height <= 0 {
		return nil, gpucore.NewError(gpucore.KindValidation, "compile", "",
			fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height))
	}

	s := &session{
		c: c,
		a: a,
		cg: &CompiledGraph{
			SourceTextures: make(map[graph.NodeID]int),
			Width:          width,
			Height:         height,
			Format:         c.registry.Format(),
		},
		output:   chain.XYWH(0, 0, float64(width), float64(height)),
		resolved: make(map[graph.NodeID]int, g.Len()),
	}
	defer func() {
		if err != nil {
			pool := c.pool
			if c.retain != nil && !c.retain(a) {
				pool = nil
			}
			s.cg.Release(a, pool)
		}
	}()

	if g.Len() == 1 && g.OutputNode().IsSource {
		idx, err := s.source(g.Output)
		if err != nil {
			return nil, err
		}
		s.cg.Output = idx
		logx.Logger().Debug("compiled pass-through graph", "size", fmt.Sprintf("%dx%d", width, height))
		return s.cg, nil
	}

	for _, id := range g.Order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := g.Node(id)
		if n.IsSource {
			idx, err := s.source(id)
			if err != nil {
				return nil, err
			}
			s.resolved[id] = idx
			continue
		}
		if err := s.operation(ctx, n); err != nil {
			return nil, err
		}
	}

	s.cg.Output = s.resolved[g.Output]
	logx.Logger().Debug("compiled filter graph",
		"nodes", g.Len(), "passes", len(s.cg.Nodes), "textures", len(s.cg.Textures))
	return s.cg, nil
}

// source acquires the upload texture of source node id.
func (s *session) source(id graph.NodeID) (int, error) {
	idx, err := s.acquire()
	if err != nil {
		return 0, err
	}
	s.cg.SourceTextures[id] = idx
	return idx, nil
}

func (s *session) acquire() (int, error) {
	cg := s.cg
	tex, err := s.c.pool.Acquire(s.a, uint32(cg.Width), uint32(cg.Height), cg.Format)
	if err != nil {
		return 0, err
	}
	cg.Textures = append(cg.Textures, tex)
	cg.TextureViews = append(cg.TextureViews, tex.View)
	return len(cg.Textures) - 1, nil
}

// operation compiles node n into one or more passes.
func (s *session) operation(ctx context.Context, n *graph.Node) error {
	inputs := make(map[string]int, len(n.Inputs))
	for key, ref := range n.Inputs {
		idx, ok := s.resolved[ref.Node()]
		if !ok {
			return gpucore.NewError(gpucore.KindValidation, "compile", n.Operation,
				fmt.Errorf("input %q of node %d is not compiled yet", key, n.ID))
		}
		inputs[key] = idx
	}

	passes := s.c.Passes(n.Operation, n.Params)
	var out int
	for i, op := range passes {
		extent := n.OutputExtent
		if i == 0 {
			extent = n.InputExtent
		}
		if i > 0 {
			inputs = maps.Clone(inputs)
			inputs[graph.PrimaryInput] = out
		}

		var err error
		out, err = s.pass(ctx, op, n.Params, inputs, extent.Resolve(s.cg.Width, s.cg.Height))
		if err != nil {
			return err
		}
	}
	s.resolved[n.ID] = out
	return nil
}

// pass records one dispatch of op and returns its output texture index.
func (s *session) pass(ctx context.Context, op string, params chain.Params, inputs map[string]int, extent chain.Rect) (int, error) {
	c, a, cg := s.c, s.a, s.cg

	shader, ok := c.registry.Shader(op)
	if !ok {
		return 0, gpucore.NewError(gpucore.KindUnsupported, "compile", op, shaders.ErrNoShader)
	}
	p, err := c.cache.Get(ctx, op, a)
	if err != nil {
		return 0, err
	}
	out, err := s.acquire()
	if err != nil {
		return 0, err
	}

	data, err := shaders.EncodeUniforms(shader, params, extent, cg.Width, cg.Height)
	if err != nil {
		return 0, err
	}
	buf, err := a.CreateBuffer(shaders.UniformSize, gpucore.UniformBufferUsage)
	if err != nil {
		return 0, gpucore.NewError(gpucore.KindResource, "create uniform buffer", op, err)
	}
	cg.UniformBuffers = append(cg.UniformBuffers, buf)
	uniforms := len(cg.UniformBuffers) - 1
	if err := a.WriteBuffer(buf, 0, data); err != nil {
		return 0, gpucore.NewError(gpucore.KindResource, "write uniform buffer", op, err)
	}

	bound, entries, err := s.bindings(op, p.Category, inputs, out, buf)
	if err != nil {
		return 0, err
	}

	group, err := a.CreateBindGroup(p.BindGroupLayout, entries)
	if err != nil {
		return 0, gpucore.NewError(gpucore.KindResource, "create bind group", op, err)
	}
	cg.Nodes = append(cg.Nodes, CompiledNode{
		Operation: op,
		Pipeline:  p,
		BindGroup: group,
		Inputs:    bound,
		Output:    out,
		Uniforms:  uniforms,
		Extent:    extent,
		Workgroups: [3]uint32{
			uint32((cg.Width + workgroupSize - 1) / workgroupSize),
			uint32((cg.Height + workgroupSize - 1) / workgroupSize),
			1,
		},
	})
	return out, nil
}

// bindings builds the bind group entries of a pass in category order: the
// category's inputs, the output texture, then the uniform buffer.
func (s *session) bindings(op string, cat shaders.Category, inputs map[string]int, out int, buf gpucore.BufferID) (map[string]int, []gpucore.BindGroupEntry, error) {
	views := s.cg.TextureViews
	keys := cat.Inputs()

	bound := make(map[string]int, len(keys))
	entries := make([]gpucore.BindGroupEntry, 0, len(keys)+2)
	for i, key := range keys {
		idx, ok := inputs[key]
		if !ok {
			return nil, nil, gpucore.NewError(gpucore.KindValidation, "bind", op,
				fmt.Errorf("%s operation needs input %q", cat, key))
		}
		bound[key] = idx
		entries = append(entries, gpucore.BindGroupEntry{Binding: uint32(i), TextureView: views[idx]})
	}

	ob := cat.OutputBinding()
	entries = append(entries,
		gpucore.BindGroupEntry{Binding: ob, TextureView: views[out]},
		gpucore.BindGroupEntry{Binding: ob + 1, Buffer: buf, Size: shaders.UniformSize},
	)
	return bound, entries, nil
}
