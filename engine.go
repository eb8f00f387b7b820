package filtergraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/compiler"
	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/graph"
	"github.com/gogpu/filtergraph/render"
	"github.com/gogpu/filtergraph/shaders"
)

// Engine turns image chains into GPU execution plans. It owns the shared
// device, the pipeline cache and the texture pool.
//
// Engine is safe for concurrent use.
type Engine struct {
	registry *shaders.Registry
	builder  *graph.Builder
	devices  *render.DeviceManager
	cache    *render.PipelineCache
	pool     *render.TexturePool
	compiler *compiler.Compiler

	mu    sync.Mutex
	bound *render.Device // device the cache and pool contents belong to
	plans map[*compiler.CompiledGraph]*render.Device
}

// New creates an Engine. The device is opened lazily by the first call that
// needs it.
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := cfg.registry
	if registry == nil {
		registry = shaders.NewDefault(cfg.format)
	}
	cache := render.NewPipelineCache(registry, render.PipelineCacheConfig{
		Compile:               cfg.compile,
		PrecompileConcurrency: cfg.precompileConcurrency,
	})
	pool := render.NewTexturePool(cfg.pool)

	e := &Engine{
		registry: registry,
		plans:    make(map[*compiler.CompiledGraph]*render.Device),
		builder:  graph.NewBuilder(cfg.rules),
		devices:  render.NewDeviceManager(cfg.deviceOpener()),
		cache:    cache,
		pool:     pool,
	}
	e.compiler = compiler.New(registry, cache, pool, compiler.Config{
		SeparableThreshold: cfg.separableThreshold,
		Retain:             e.isBound,
	})
	return e
}

// isBound reports whether a is the GPU of the device the pool belongs to.
func (e *Engine) isBound(a gpucore.Adapter) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bound != nil && e.bound.GPU() == a
}

// Registry returns the shader registry of the engine.
func (e *Engine) Registry() *shaders.Registry { return e.registry }

// Device returns the shared GPU device, opening it on first use.
func (e *Engine) Device(ctx context.Context) (*render.Device, error) {
	d, err := e.devices.Device(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bound != d {
		// Pipelines and pooled textures of an earlier device are unusable.
		if e.bound != nil {
			e.cache.Clear()
			e.pool.Clear()
		}
		e.bound = d
	}
	return d, nil
}

// Build converts img into a filter graph.
func (e *Engine) Build(img *chain.Image) (*graph.Graph, error) {
	return e.builder.Build(img)
}

// Compile builds img, compiles it for a width×height output and uploads the
// pixels of its sources. The plan must be given back with Release.
func (e *Engine) Compile(ctx context.Context, img *chain.Image, width, height int) (*compiler.CompiledGraph, error) {
	g, err := e.Build(img)
	if err != nil {
		return nil, err
	}
	return e.CompileGraph(ctx, g, width, height)
}

// CompileGraph compiles an already built graph and uploads its sources.
func (e *Engine) CompileGraph(ctx context.Context, g *graph.Graph, width, height int) (*compiler.CompiledGraph, error) {
	d, err := e.Device(ctx)
	if err != nil {
		return nil, err
	}
	a := d.GPU()

	cg, err := e.compiler.Compile(ctx, g, width, height, a)
	if err != nil {
		return nil, err
	}
	if err := cg.Upload(a, g); err != nil {
		if e.isBound(a) {
			cg.Release(a, e.pool)
		} else {
			cg.Release(a, nil)
		}
		return nil, err
	}

	e.mu.Lock()
	e.plans[cg] = d
	e.mu.Unlock()
	return cg, nil
}

// Release returns the textures of cg to the pool and destroys its bind
// groups and uniform buffers. Plans compiled on a device that has since been
// reset are destroyed instead of pooled. Releasing a plan twice is a no-op.
func (e *Engine) Release(cg *compiler.CompiledGraph) {
	e.mu.Lock()
	d, ok := e.plans[cg]
	delete(e.plans, cg)
	current := d == e.bound
	e.mu.Unlock()
	if !ok {
		return
	}

	if current {
		cg.Release(d.GPU(), e.pool)
		return
	}
	cg.Release(d.GPU(), nil)
}

// Warmup compiles the pipelines of names, or of every registered shader
// when names is empty. It returns how many pipelines are ready.
func (e *Engine) Warmup(ctx context.Context, names ...string) (int, error) {
	d, err := e.Device(ctx)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		names = e.registry.Names()
	}
	return e.cache.Precompile(ctx, names, d.GPU()), nil
}

// Reset drops every cached pipeline and pooled texture and closes the
// device. The next call that needs a device opens a new one.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.bound = nil
	e.mu.Unlock()

	e.cache.Clear()
	e.pool.Clear()
	e.devices.Reset()
}

// Close releases every GPU resource the engine holds. Calls that need a
// device fail afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	e.bound = nil
	e.mu.Unlock()

	e.cache.Clear()
	e.pool.Clear()
	e.devices.Close()
}

// Stats reports the state of the pipeline cache and the texture pool.
type Stats struct {
	Pipelines render.PipelineCacheStats
	Textures  render.PoolStats
}

func (s Stats) String() string {
	return fmt.Sprintf("pipelines: %s; textures: %s", s.Pipelines, s.Textures)
}

// Stats returns cache and pool statistics.
func (e *Engine) Stats() Stats {
	return Stats{Pipelines: e.cache.Stats(), Textures: e.pool.Stats()}
}
