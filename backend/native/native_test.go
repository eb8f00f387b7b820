package native

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/compiler"
	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/graph"
	"github.com/gogpu/filtergraph/render"
	"github.com/gogpu/filtergraph/shaders"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"
)

var noopConfig = Config{Backends: []gputypes.Backend{gputypes.BackendEmpty}}

func openNoop(t *testing.T) *render.Device {
	t.Helper()
	dev, err := Open(context.Background(), noopConfig)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(dev.Close)
	return dev
}

func TestOpenNoop(t *testing.T) {
	dev := openNoop(t)

	if dev.GPU() == nil {
		t.Fatal("device has no adapter")
	}
	info := dev.AdapterInfo()
	if info.Name != "Noop Adapter" || info.Type != gpucontext.AdapterTypeUnknown {
		t.Errorf("AdapterInfo = %+v", info)
	}
	if dev.Backend() != gputypes.BackendEmpty.String() {
		t.Errorf("Backend = %q", dev.Backend())
	}
	if dev.Device() == nil || dev.Queue() == nil || dev.Adapter() == nil {
		t.Error("native handles missing")
	}
}

func TestOpenUnavailable(t *testing.T) {
	_, err := Open(context.Background(), Config{Backends: []gputypes.Backend{gputypes.BackendBrowserWebGPU}})
	if !errors.Is(err, gpucore.ErrNoBackend) {
		t.Fatalf("err = %v, want ErrNoBackend", err)
	}
	if !errors.Is(err, gpucore.ErrUnavailable) || gpucore.KindOf(err) != gpucore.KindUnavailable {
		t.Errorf("err = %v, want unavailable kind", err)
	}
}

func TestOpenFallsBack(t *testing.T) {
	cfg := Config{Backends: []gputypes.Backend{gputypes.BackendBrowserWebGPU, gputypes.BackendEmpty}}
	dev, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()
	if dev.Backend() != gputypes.BackendEmpty.String() {
		t.Errorf("Backend = %q, want the fallback", dev.Backend())
	}
}

func TestOpenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Open(ctx, noopConfig); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpenerWithDeviceManager(t *testing.T) {
	m := render.NewDeviceManager(Opener(noopConfig))
	defer m.Close()

	d1, err := m.Device(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	d2, err := m.Device(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("manager must cache the opened device")
	}
}

func TestPickAdapter(t *testing.T) {
	exposed := func(types ...gputypes.DeviceType) []hal.ExposedAdapter {
		out := make([]hal.ExposedAdapter, len(types))
		for i, dt := range types {
			out[i].Info.DeviceType = dt
		}
		return out
	}

	tests := []struct {
		name     string
		adapters []hal.ExposedAdapter
		want     int
	}{
		{"none", nil, -1},
		{"only cpu", exposed(gputypes.DeviceTypeCPU), 0},
		{"discrete wins", exposed(gputypes.DeviceTypeIntegratedGPU, gputypes.DeviceTypeDiscreteGPU), 1},
		{"integrated over cpu", exposed(gputypes.DeviceTypeCPU, gputypes.DeviceTypeIntegratedGPU), 1},
		{"first of others", exposed(gputypes.DeviceTypeOther, gputypes.DeviceTypeVirtualGPU), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickAdapter(tt.adapters); got != tt.want {
				t.Errorf("pickAdapter = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAdapterType(t *testing.T) {
	tests := []struct {
		in   gputypes.DeviceType
		want gpucontext.AdapterType
	}{
		{gputypes.DeviceTypeDiscreteGPU, gpucontext.AdapterTypeDiscrete},
		{gputypes.DeviceTypeIntegratedGPU, gpucontext.AdapterTypeIntegrated},
		{gputypes.DeviceTypeCPU, gpucontext.AdapterTypeSoftware},
		{gputypes.DeviceTypeVirtualGPU, gpucontext.AdapterTypeUnknown},
	}
	for _, tt := range tests {
		if got := adapterType(tt.in); got != tt.want {
			t.Errorf("adapterType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHALAdapterResources(t *testing.T) {
	a := openNoop(t).GPU().(*HALAdapter)

	tex, err := a.CreateTexture(&gpucore.TextureDesc{
		Width: 4, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm, Usage: gpucore.FilterTextureUsage,
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err := a.CreateTextureView(tex)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.WriteTexture(tex, 4, 2, make([]byte, 4*2*4)); err != nil {
		t.Errorf("WriteTexture: %v", err)
	}
	if err := a.WriteTexture(tex, 4, 2, make([]byte, 3)); err == nil {
		t.Error("short texture data accepted")
	}
	if err := a.WriteTexture(tex, 8, 2, make([]byte, 8*2*4)); err == nil {
		t.Error("oversized write accepted")
	}

	buf, err := a.CreateBuffer(shaders.UniformSize, gpucore.UniformBufferUsage)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.WriteBuffer(buf, 0, make([]byte, shaders.UniformSize)); err != nil {
		t.Errorf("WriteBuffer: %v", err)
	}
	if err := a.WriteBuffer(buf+1000, 0, []byte{1}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("unknown buffer: err = %v", err)
	}
	if _, err := a.CreateBuffer(0, gpucore.UniformBufferUsage); !errors.Is(err, ErrBadSize) {
		t.Errorf("zero buffer: err = %v", err)
	}

	layout, err := a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Entries: shaders.CategoryStandard.LayoutEntries(gputypes.TextureFormatRGBA8Unorm),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.CreateBindGroup(layout, []gpucore.BindGroupEntry{{Binding: 0}}); err == nil {
		t.Error("entry without a resource accepted")
	}
	group, err := a.CreateBindGroup(layout, []gpucore.BindGroupEntry{
		{Binding: 0, TextureView: view},
		{Binding: 1, TextureView: view},
		{Binding: 2, Buffer: buf, Size: shaders.UniformSize},
	})
	if err != nil {
		t.Fatal(err)
	}

	if a.Live() != 5 {
		t.Errorf("Live = %d, want 5", a.Live())
	}
	a.DestroyBindGroup(group)
	a.DestroyBindGroup(group)
	if a.Live() != 4 {
		t.Errorf("Live = %d after destroy, want 4", a.Live())
	}
	a.Destroy()
	if a.Live() != 0 {
		t.Errorf("Live = %d after Destroy, want 0", a.Live())
	}
}

func TestCompileOnNoopDevice(t *testing.T) {
	dev := openNoop(t)
	a := dev.GPU()

	reg := shaders.NewDefault(gputypes.TextureFormatRGBA8Unorm)
	pool := render.NewTexturePool(render.PoolConfig{})
	cache := render.NewPipelineCache(reg, render.PipelineCacheConfig{
		Compile: func(string) ([]uint32, error) { return []uint32{0x07230203}, nil },
	})
	c := compiler.New(reg, cache, pool, compiler.Config{})

	src := chain.New(chain.ImageSource{Image: image.NewRGBA(image.Rect(0, 0, 16, 16))})
	g, err := graph.Build(src.Blurred(12).Over(chain.ConstantColor(chain.Color{B: 1, A: 1})))
	if err != nil {
		t.Fatal(err)
	}
	cg, err := c.Compile(context.Background(), g, 16, 16, a)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := cg.Upload(a, g); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(cg.Nodes) != 4 {
		t.Errorf("passes = %d, want 4 (two blur passes, generator, compositing)", len(cg.Nodes))
	}

	cg.Release(a, pool)
	pool.Clear()
	cache.Clear()
	if live := a.(*HALAdapter).Live(); live != 0 {
		t.Errorf("Live = %d after release, want 0", live)
	}
}
