// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/internal/gpufake"
	"github.com/gogpu/filtergraph/shaders"
)

// countingCompiler is a shader compiler that counts calls and can block.
type countingCompiler struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func (c *countingCompiler) compile(string) ([]uint32, error) {
	c.calls.Add(1)
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	return []uint32{0x07230203}, nil
}

func newTestCache(cc *countingCompiler) *PipelineCache {
	return NewPipelineCache(shaders.NewDefault(rgba8), PipelineCacheConfig{Compile: cc.compile})
}

func TestPipelineCacheHit(t *testing.T) {
	a := gpufake.New()
	cc := &countingCompiler{}
	c := newTestCache(cc)
	ctx := context.Background()

	p1, err := c.Get(ctx, "gaussianBlur", a)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.Get(ctx, "gaussianBlur", a)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("second Get must return the cached pipeline")
	}
	if cc.calls.Load() != 1 {
		t.Errorf("compile called %d times, want 1", cc.calls.Load())
	}
	if p1.Category != shaders.CategoryStandard || p1.Pipeline == gpucore.InvalidID {
		t.Errorf("unexpected pipeline %+v", p1)
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 || s.Pipelines != 1 {
		t.Errorf("Stats = %v", s)
	}
}

func TestPipelineCacheCoalescesConcurrentGets(t *testing.T) {
	tests := []struct {
		name       string
		compileErr error
	}{
		{"success", nil},
		{"shared error", errors.New("syntax error")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := gpufake.New()
			cc := &countingCompiler{started: make(chan struct{}, 2), release: make(chan struct{}), err: tt.compileErr}
			c := newTestCache(cc)
			joined := make(chan struct{}, 2)
			c.joined = func(string) { joined <- struct{}{} }

			var wg sync.WaitGroup
			results := make([]*Pipeline, 2)
			errs := make([]error, 2)
			wg.Add(2)
			for i := range results {
				go func() {
					defer wg.Done()
					results[i], errs[i] = c.Get(context.Background(), "sepiaTone", a)
				}()
			}

			// Both callers wait on the same compile before it may finish.
			<-cc.started
			<-joined
			<-joined
			close(cc.release)
			wg.Wait()

			if got := cc.calls.Load(); got != 1 {
				t.Errorf("compile called %d times, want 1", got)
			}
			if results[0] != results[1] {
				t.Error("both callers must receive the same pipeline")
			}
			if tt.compileErr != nil {
				for i, err := range errs {
					if !errors.Is(err, gpucore.ErrShader) {
						t.Errorf("Get %d: error = %v, want shader error", i, err)
					}
				}
				if errs[0] != errs[1] {
					t.Errorf("callers got different errors: %v, %v", errs[0], errs[1])
				}
				return
			}
			for i, err := range errs {
				if err != nil {
					t.Fatalf("Get %d: %v", i, err)
				}
			}
			if got := a.Calls(gpufake.CallCreateShaderModule); got != 1 {
				t.Errorf("CreateShaderModule called %d times, want 1", got)
			}
		})
	}
}

func TestPipelineCachePerAdapter(t *testing.T) {
	a1, a2 := gpufake.New(), gpufake.New()
	cc := &countingCompiler{}
	c := newTestCache(cc)
	ctx := context.Background()

	p1, err := c.Get(ctx, "crop", a1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.Get(ctx, "crop", a2)
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Fatal("adapters must not share a pipeline")
	}
	for i, a := range []*gpufake.Adapter{a1, a2} {
		if got := a.Live(gpufake.KindComputePipeline); got != 1 {
			t.Errorf("adapter %d: %d live pipelines, want 1", i, got)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	if again, _ := c.Get(ctx, "crop", a2); again != p2 {
		t.Error("repeat Get on the second adapter must hit")
	}

	c.Clear()
	if a1.Live(gpufake.KindComputePipeline) != 0 || a2.Live(gpufake.KindComputePipeline) != 0 {
		t.Error("Clear must destroy pipelines on every adapter")
	}
}

func TestPipelineCacheErrorsAreRetryable(t *testing.T) {
	a := gpufake.New()
	cc := &countingCompiler{err: errors.New("syntax error")}
	c := newTestCache(cc)
	ctx := context.Background()

	_, err := c.Get(ctx, "colorInvert", a)
	if !errors.Is(err, gpucore.ErrShader) {
		t.Fatalf("error = %v, want shader error", err)
	}

	cc.err = nil
	if _, err := c.Get(ctx, "colorInvert", a); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if cc.calls.Load() != 2 {
		t.Errorf("compile called %d times, want 2", cc.calls.Load())
	}
}

func TestPipelineCacheErrorKinds(t *testing.T) {
	ctx := context.Background()

	t.Run("no shader", func(t *testing.T) {
		c := newTestCache(&countingCompiler{})
		_, err := c.Get(ctx, "sharpen", gpufake.New())
		if !errors.Is(err, gpucore.ErrShader) || !errors.Is(err, shaders.ErrNoShader) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("pipeline creation", func(t *testing.T) {
		a := gpufake.New()
		a.FailAfter(gpufake.CallCreateComputePipeline, 0, nil)
		c := newTestCache(&countingCompiler{})
		_, err := c.Get(ctx, "crop", a)
		if !errors.Is(err, gpucore.ErrPipeline) {
			t.Errorf("error = %v, want pipeline error", err)
		}
		for _, kind := range []string{gpufake.KindShaderModule, gpufake.KindBindGroupLayout, gpufake.KindPipelineLayout} {
			if a.Live(kind) != 0 {
				t.Errorf("%s leaked after failed creation", kind)
			}
		}
		if c.Len() != 0 {
			t.Error("failures must not be cached")
		}
	})
}

func TestPipelineCacheClearCancelsInFlight(t *testing.T) {
	a := gpufake.New()
	cc := &countingCompiler{started: make(chan struct{}, 2), release: make(chan struct{})}
	c := newTestCache(cc)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "boxBlur", a)
		errc <- err
	}()
	<-cc.started
	c.Clear()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	close(cc.release)

	// The slot is free again: a new Get compiles from scratch.
	if _, err := c.Get(context.Background(), "boxBlur", a); err != nil {
		t.Fatalf("Get after Clear: %v", err)
	}
}

func TestPipelineCacheCallerContext(t *testing.T) {
	cc := &countingCompiler{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := newTestCache(cc)
	defer close(cc.release)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "boxBlur", gpufake.New())
		errc <- err
	}()
	<-cc.started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestPipelineCachePrecompile(t *testing.T) {
	a := gpufake.New()
	c := newTestCache(&countingCompiler{})

	n := c.Precompile(context.Background(), []string{"crop", "gaussianBlur", "missing", "sepiaTone"}, a)
	if n != 3 {
		t.Errorf("Precompile = %d, want 3", n)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestPipelineCacheClearDestroys(t *testing.T) {
	a := gpufake.New()
	c := newTestCache(&countingCompiler{})
	if _, err := c.Get(context.Background(), "crop", a); err != nil {
		t.Fatal(err)
	}
	c.Clear()
	if a.Live(gpufake.KindComputePipeline) != 0 {
		t.Error("Clear must destroy cached pipelines")
	}
}
