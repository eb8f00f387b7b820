// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/internal/logx"
	"github.com/gogpu/filtergraph/shaders"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultPrecompileConcurrency bounds concurrent compiles in Precompile.
const DefaultPrecompileConcurrency = 4

// Pipeline is a compiled compute pipeline and the layouts it was built with.
type Pipeline struct {
	Name            string
	Category        shaders.Category
	Module          gpucore.ShaderModuleID
	BindGroupLayout gpucore.BindGroupLayoutID
	Layout          gpucore.PipelineLayoutID
	Pipeline        gpucore.ComputePipelineID

	adapter gpucore.Adapter
}

// destroy releases whatever part of p has been created, newest first.
func (p *Pipeline) destroy() {
	a := p.adapter
	if p.Pipeline != gpucore.InvalidID {
		a.DestroyComputePipeline(p.Pipeline)
	}
	if p.Layout != gpucore.InvalidID {
		a.DestroyPipelineLayout(p.Layout)
	}
	if p.BindGroupLayout != gpucore.InvalidID {
		a.DestroyBindGroupLayout(p.BindGroupLayout)
	}
	if p.Module != gpucore.InvalidID {
		a.DestroyShaderModule(p.Module)
	}
}

// PipelineCacheConfig configures a PipelineCache.
type PipelineCacheConfig struct {
	// Compile turns WGSL into SPIR-V. Default: shaders.CompileSPIRV.
	Compile shaders.CompileFunc

	// PrecompileConcurrency bounds Precompile. Default: 4.
	PrecompileConcurrency int
}

// PipelineCacheStats contains pipeline cache statistics.
type PipelineCacheStats struct {
	Pipelines int
	Hits      uint64
	Misses    uint64
	Compiles  uint64
	Failures  uint64
}

// String returns a human-readable string of cache stats.
func (s PipelineCacheStats) String() string {
	return fmt.Sprintf("PipelineCache[%d pipelines, %d hits, %d misses, %d compiles, %d failures]",
		s.Pipelines, s.Hits, s.Misses, s.Compiles, s.Failures)
}

// PipelineCache compiles and caches one compute pipeline per operation name
// and adapter. Pipelines are never shared across adapters.
//
// Concurrent requests for the same uncached name share one compilation.
// Failures are not cached, so the next request retries. Clear drops every
// pipeline and cancels compilations in flight.
//
// PipelineCache is safe for concurrent use.
type PipelineCache struct {
	registry    *shaders.Registry
	compile     shaders.CompileFunc
	concurrency int

	mu        sync.RWMutex
	pipelines map[gpucore.Adapter]map[string]*Pipeline
	adapters  map[gpucore.Adapter]uint64 // single-flight key part
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc

	group singleflight.Group

	// joined, if set, runs once a Get has registered with the single-flight
	// group and is about to wait for the result.
	joined func(name string)

	hits, misses, compiles, failures atomic.Uint64
}

// NewPipelineCache creates an empty cache over registry.
func NewPipelineCache(registry *shaders.Registry, config PipelineCacheConfig) *PipelineCache {
	if config.Compile == nil {
		config.Compile = shaders.CompileSPIRV
	}
	if config.PrecompileConcurrency <= 0 {
		config.PrecompileConcurrency = DefaultPrecompileConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PipelineCache{
		registry:    registry,
		compile:     config.Compile,
		concurrency: config.PrecompileConcurrency,
		pipelines:   make(map[gpucore.Adapter]map[string]*Pipeline),
		adapters:    make(map[gpucore.Adapter]uint64),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Get returns the pipeline for name on a, compiling it on first use.
//
// Errors are classified: a missing or uncompilable shader is a shader
// error, a failed layout or pipeline object a pipeline error. If Clear runs
// while the compilation is in flight, Get returns an error wrapping
// context.Canceled.
func (c *PipelineCache) Get(ctx context.Context, name string, a gpucore.Adapter) (*Pipeline, error) {
	c.mu.RLock()
	if p, ok := c.pipelines[a][name]; ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		return p, nil
	}
	c.mu.RUnlock()
	c.misses.Add(1)

	c.mu.Lock()
	id, ok := c.adapters[a]
	if !ok {
		id = uint64(len(c.adapters)) + 1
		c.adapters[a] = id
	}
	gen, taskCtx := c.gen, c.ctx
	c.mu.Unlock()

	key := strconv.FormatUint(gen, 10) + "/" + strconv.FormatUint(id, 10) + "/" + name
	ch := c.group.DoChan(key, func() (any, error) {
		return c.build(taskCtx, gen, name, a)
	})
	if c.joined != nil {
		c.joined(name)
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Pipeline), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-taskCtx.Done():
		return nil, fmt.Errorf("render: pipeline %q: %w", name, context.Canceled)
	}
}

func (c *PipelineCache) build(ctx context.Context, gen uint64, name string, a gpucore.Adapter) (*Pipeline, error) {
	// Double-check: a compilation may have finished since the caller
	// looked.
	c.mu.RLock()
	p, ok := c.pipelines[a][name]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := c.create(ctx, name, a)
	if err != nil {
		c.failures.Add(1)
		logx.Logger().Debug("pipeline compile failed", "op", name, "err", err)
		return nil, err
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		p.destroy()
		return nil, fmt.Errorf("render: pipeline %q: %w", name, context.Canceled)
	}
	byName := c.pipelines[a]
	if byName == nil {
		byName = make(map[string]*Pipeline)
		c.pipelines[a] = byName
	}
	byName[name] = p
	c.mu.Unlock()

	logx.Logger().Debug("pipeline compiled", "op", name, "category", p.Category.String())
	return p, nil
}

func (c *PipelineCache) create(ctx context.Context, name string, a gpucore.Adapter) (_ *Pipeline, err error) {
	shader, ok := c.registry.Shader(name)
	if !ok {
		return nil, gpucore.NewError(gpucore.KindShader, "get shader", name, shaders.ErrNoShader)
	}
	if !shader.Category.Bound() {
		return nil, gpucore.NewError(gpucore.KindUnsupported, "get shader", name,
			fmt.Errorf("category %s has no pipeline", shader.Category))
	}
	format := c.registry.Format()
	src, err := shader.Source(format)
	if err != nil {
		return nil, gpucore.NewError(gpucore.KindShader, "generate shader", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render: pipeline %q: %w", name, err)
	}

	c.compiles.Add(1)
	spirv, err := c.compile(src)
	if err != nil {
		return nil, gpucore.NewError(gpucore.KindShader, "compile shader", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render: pipeline %q: %w", name, err)
	}

	p := &Pipeline{Name: name, Category: shader.Category, adapter: a}
	defer func() {
		if err != nil {
			p.destroy()
		}
	}()

	p.Module, err = a.CreateShaderModule(spirv, name)
	if err != nil {
		return nil, gpucore.NewError(gpucore.KindShader, "create shader module", name, err)
	}
	p.BindGroupLayout, err = a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label:   name + "_bind_layout",
		Entries: shader.Category.LayoutEntries(format),
	})
	if err != nil {
		return nil, gpucore.NewError(gpucore.KindPipeline, "create bind group layout", name, err)
	}
	p.Layout, err = a.CreatePipelineLayout([]gpucore.BindGroupLayoutID{p.BindGroupLayout})
	if err != nil {
		return nil, gpucore.NewError(gpucore.KindPipeline, "create pipeline layout", name, err)
	}
	p.Pipeline, err = a.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        name,
		Layout:       p.Layout,
		ShaderModule: p.Module,
		EntryPoint:   shader.EntryPoint,
	})
	if err != nil {
		return nil, gpucore.NewError(gpucore.KindPipeline, "create compute pipeline", name, err)
	}
	return p, nil
}

// Precompile compiles names concurrently and waits for them. Failures are
// logged and otherwise ignored; they resurface on the first Get. It returns
// the number of pipelines available afterwards.
func (c *PipelineCache) Precompile(ctx context.Context, names []string, a gpucore.Adapter) int {
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	var ready atomic.Int64
	for _, name := range names {
		g.Go(func() error {
			if _, err := c.Get(ctx, name, a); err != nil {
				logx.Logger().Warn("precompile failed", "op", name, "err", err)
				return nil
			}
			ready.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(ready.Load())
}

// Clear destroys every cached pipeline on every adapter and cancels
// compilations in flight.
func (c *PipelineCache) Clear() {
	c.mu.Lock()
	old := c.pipelines
	c.pipelines = make(map[gpucore.Adapter]map[string]*Pipeline)
	c.adapters = make(map[gpucore.Adapter]uint64)
	c.gen++
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	for _, byName := range old {
		for _, p := range byName {
			p.destroy()
		}
	}
}

// Len returns the number of cached pipelines across all adapters.
func (c *PipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, byName := range c.pipelines {
		n += len(byName)
	}
	return n
}

// Stats returns cache statistics.
func (c *PipelineCache) Stats() PipelineCacheStats {
	return PipelineCacheStats{
		Pipelines: c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Compiles:  c.compiles.Load(),
		Failures:  c.failures.Load(),
	}
}
