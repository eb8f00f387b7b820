package filtergraph

import (
	"context"
	"testing"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/graph"
	"github.com/gogpu/filtergraph/render"
	"github.com/gogpu/filtergraph/shaders"
	"github.com/gogpu/gputypes"
)

func TestDefaultConfig(t *testing.T) {
	c := defaultConfig()
	if c.format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("format = %v, want RGBA8Unorm", c.format)
	}
	if c.compile == nil {
		t.Error("compile is nil")
	}
	if c.opener != nil || c.registry != nil || c.rules != nil {
		t.Error("optional fields should be unset")
	}
	if c.deviceOpener() == nil {
		t.Error("deviceOpener() returned nil")
	}
}

func TestOptions(t *testing.T) {
	reg := shaders.NewRegistry(gputypes.TextureFormatRGBA16Float)
	rules := graph.NewExtentRules()
	var opened bool
	open := func(context.Context) (*render.Device, error) {
		opened = true
		return nil, nil
	}

	c := defaultConfig()
	for _, opt := range []Option{
		WithBackends(gputypes.BackendEmpty, gputypes.BackendVulkan),
		WithOpener(open),
		WithRegistry(reg),
		WithTextureFormat(gputypes.TextureFormatBGRA8Unorm),
		WithShaderCompiler(fakeCompile),
		WithPoolCapacity(2, 6),
		WithPrecompileConcurrency(3),
		WithSeparableThreshold(5),
		WithExtentRules(rules),
	} {
		opt(&c)
	}

	if len(c.backends) != 2 || c.backends[0] != gputypes.BackendEmpty {
		t.Errorf("backends = %v", c.backends)
	}
	if c.registry != reg {
		t.Error("registry not set")
	}
	if c.format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("format = %v", c.format)
	}
	if c.pool.PerKeyCapacity != 2 || c.pool.TotalCapacity != 6 {
		t.Errorf("pool = %+v", c.pool)
	}
	if c.precompileConcurrency != 3 {
		t.Errorf("precompileConcurrency = %d", c.precompileConcurrency)
	}
	if c.separableThreshold != 5 {
		t.Errorf("separableThreshold = %v", c.separableThreshold)
	}
	if c.rules != rules {
		t.Error("rules not set")
	}

	_, _ = c.deviceOpener()(context.Background())
	if !opened {
		t.Error("deviceOpener() ignored WithOpener")
	}
}

func TestWithSeparableThreshold(t *testing.T) {
	tests := []struct {
		threshold float64
		radius    float64
		passes    int
	}{
		{0, 8, 1},
		{0, 9, 2},
		{4, 4, 1},
		{4, 5, 2},
	}
	for _, tt := range tests {
		var opts []Option
		if tt.threshold > 0 {
			opts = append(opts, WithSeparableThreshold(tt.threshold))
		}
		e, _ := newTestEngine(t, opts...)
		cg, err := e.Compile(context.Background(), photo(8, 8).Blurred(tt.radius), 8, 8)
		if err != nil {
			t.Fatal(err)
		}
		if len(cg.Nodes) != tt.passes {
			t.Errorf("threshold %v radius %v: %d passes, want %d", tt.threshold, tt.radius, len(cg.Nodes), tt.passes)
		}
		e.Release(cg)
	}
}

func TestWithExtentRules(t *testing.T) {
	rules := graph.NewExtentRules()
	e, _ := newTestEngine(t, WithExtentRules(rules))

	g, err := e.Build(photo(10, 10).Cropped(chain.XYWH(0, 0, 2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	out := g.OutputNode()
	if out.OutputExtent != out.InputExtent {
		t.Errorf("empty rules should pass extents through, got %v -> %v", out.InputExtent, out.OutputExtent)
	}
}
