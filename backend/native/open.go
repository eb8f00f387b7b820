package native

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/internal/logx"
	"github.com/gogpu/filtergraph/render"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultBackends is the backend preference used when Config.Backends is
// empty.
var DefaultBackends = []gputypes.Backend{gputypes.BackendVulkan}

// Config selects how a device is opened.
type Config struct {
	// Backends are tried in order. Default: DefaultBackends.
	Backends []gputypes.Backend

	// Limits requested from the device. Default: gputypes.DefaultLimits().
	Limits *gputypes.Limits
}

// Open opens a device on the first backend in cfg.Backends that yields one.
//
// Each backend goes through three stages: obtaining the registered hal
// backend and creating an instance, picking an adapter (discrete before
// integrated before anything else) and opening the device. A failing stage
// maps to gpucore.ErrNoBackend, gpucore.ErrNoAdapter or gpucore.ErrNoDevice;
// when every backend fails, the error of the one that got furthest is
// returned as a KindUnavailable error.
func Open(ctx context.Context, cfg Config) (*render.Device, error) {
	backends := cfg.Backends
	if len(backends) == 0 {
		backends = DefaultBackends
	}
	limits := gputypes.DefaultLimits()
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}

	var best error
	bestStage := -1
	for _, variant := range backends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dev, stage, err := openBackend(ctx, variant, limits)
		if err == nil {
			return dev, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logx.Logger().Debug("GPU backend unavailable", "backend", variant.String(), "err", err)
		if stage > bestStage {
			best, bestStage = gpucore.NewError(gpucore.KindUnavailable, "open device", variant.String(), err), stage
		}
	}
	return nil, best
}

// Opener returns a render.DeviceOpener that calls Open with cfg.
func Opener(cfg Config) render.DeviceOpener {
	return func(ctx context.Context) (*render.Device, error) {
		return Open(ctx, cfg)
	}
}

// Stages of openBackend, in order.
const (
	stageBackend = iota
	stageAdapter
	stageDevice
)

func openBackend(ctx context.Context, variant gputypes.Backend, limits gputypes.Limits) (*render.Device, int, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, stageBackend, fmt.Errorf("%w: %s is not registered", gpucore.ErrNoBackend, variant)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, stageBackend, fmt.Errorf("%w: %w", gpucore.ErrNoBackend, err)
	}
	if err := ctx.Err(); err != nil {
		instance.Destroy()
		return nil, stageAdapter, err
	}

	adapters := instance.EnumerateAdapters(nil)
	idx := pickAdapter(adapters)
	if idx < 0 {
		instance.Destroy()
		return nil, stageAdapter, gpucore.ErrNoAdapter
	}
	for i, a := range adapters {
		if i != idx {
			a.Adapter.Destroy()
		}
	}
	exposed := adapters[idx]
	if err := ctx.Err(); err != nil {
		exposed.Adapter.Destroy()
		instance.Destroy()
		return nil, stageDevice, err
	}

	open, err := exposed.Adapter.Open(0, limits)
	if err != nil {
		exposed.Adapter.Destroy()
		instance.Destroy()
		return nil, stageDevice, fmt.Errorf("%w: %w", gpucore.ErrNoDevice, err)
	}

	gpu := NewHALAdapter(open.Device, open.Queue)
	info := gpucontext.AdapterInfo{Name: exposed.Info.Name, Type: adapterType(exposed.Info.DeviceType)}
	logx.Logger().Info("GPU adapter selected",
		"name", info.Name, "type", info.Type.String(), "backend", variant.String())

	return render.NewDevice(render.DeviceConfig{
		GPU:     gpu,
		Info:    info,
		Backend: variant.String(),
		Device:  open.Device,
		Queue:   open.Queue,
		Adapter: exposed.Adapter,
		Release: func() {
			gpu.Destroy()
			open.Device.Destroy()
			exposed.Adapter.Destroy()
			instance.Destroy()
		},
	}), stageDevice, nil
}

// pickAdapter returns the index of the preferred adapter: discrete, then
// integrated, then the first one reported. It returns -1 for none.
func pickAdapter(adapters []hal.ExposedAdapter) int {
	if len(adapters) == 0 {
		return -1
	}
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i, a := range adapters {
			if a.Info.DeviceType == want {
				return i
			}
		}
	}
	return 0
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterTypeUnknown
}
