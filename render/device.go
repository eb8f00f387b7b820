// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/internal/logx"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/sync/singleflight"
)

// DeviceConfig carries what a backend hands over when it opens a device.
type DeviceConfig struct {
	// GPU is the resource adapter the compiler allocates through.
	GPU gpucore.Adapter

	// Info describes the physical adapter.
	Info gpucontext.AdapterInfo

	// Backend names the graphics API, e.g. "Vulkan".
	Backend string

	// Device, Queue and Adapter are the native handles, exposed through
	// gpucontext.DeviceProvider. Any of them may be nil.
	Device  gpucontext.Device
	Queue   gpucontext.Queue
	Adapter gpucontext.Adapter

	// Release destroys the native objects. May be nil.
	Release func()
}

// Device is an open GPU device.
//
// Device implements gpucontext.DeviceProvider so it can be shared with
// other gogpu components.
type Device struct {
	cfg  DeviceConfig
	once sync.Once
}

var _ gpucontext.DeviceProvider = (*Device)(nil)

// NewDevice wraps an opened device.
func NewDevice(cfg DeviceConfig) *Device {
	return &Device{cfg: cfg}
}

// GPU returns the resource adapter of the device.
func (d *Device) GPU() gpucore.Adapter { return d.cfg.GPU }

// Backend returns the graphics API name.
func (d *Device) Backend() string { return d.cfg.Backend }

// Device implements gpucontext.DeviceProvider.
func (d *Device) Device() gpucontext.Device { return d.cfg.Device }

// Queue implements gpucontext.DeviceProvider.
func (d *Device) Queue() gpucontext.Queue { return d.cfg.Queue }

// Adapter implements gpucontext.DeviceProvider.
func (d *Device) Adapter() gpucontext.Adapter { return d.cfg.Adapter }

// AdapterInfo implements gpucontext.DeviceProvider.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo { return d.cfg.Info }

// SurfaceFormat implements gpucontext.DeviceProvider. Filter devices are
// headless.
func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Close releases the native device. It is safe to call more than once.
func (d *Device) Close() {
	d.once.Do(func() {
		if d.cfg.Release != nil {
			d.cfg.Release()
		}
	})
}

// ErrManagerClosed is returned by DeviceManager.Device after Close.
var ErrManagerClosed = errors.New("render: device manager closed")

// DeviceOpener opens a device. It should stop between stages once ctx is
// done, and report unavailability with the gpucore stage errors.
type DeviceOpener func(ctx context.Context) (*Device, error)

// DeviceManager lazily opens one device and shares it.
//
// The first call to Device opens it; concurrent callers wait for that same
// attempt. A successful device is kept until Reset. A failed attempt is
// forgotten, so the next call retries.
//
// DeviceManager is safe for concurrent use.
type DeviceManager struct {
	open DeviceOpener

	mu     sync.Mutex
	device *Device
	closed bool
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc

	group singleflight.Group

	// joined, if set, runs once a Device call has registered with the
	// single-flight group and is about to wait for the result.
	joined func()
}

// NewDeviceManager returns a manager that opens devices with open.
func NewDeviceManager(open DeviceOpener) *DeviceManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &DeviceManager{open: open, ctx: ctx, cancel: cancel}
}

// Device returns the shared device, opening it if needed.
func (m *DeviceManager) Device(ctx context.Context) (*Device, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if d := m.device; d != nil {
		m.mu.Unlock()
		return d, nil
	}
	gen, taskCtx := m.gen, m.ctx
	m.mu.Unlock()

	ch := m.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return m.init(taskCtx, gen)
	})
	if m.joined != nil {
		m.joined()
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Device), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-taskCtx.Done():
		return nil, fmt.Errorf("render: device initialization: %w", context.Canceled)
	}
}

func (m *DeviceManager) init(ctx context.Context, gen uint64) (*Device, error) {
	m.mu.Lock()
	if d := m.device; d != nil && m.gen == gen {
		m.mu.Unlock()
		return d, nil
	}
	m.mu.Unlock()

	d, err := m.open(ctx)
	if err != nil {
		logx.Logger().Debug("device initialization failed", "err", err)
		return nil, err
	}
	if d == nil {
		return nil, gpucore.ErrNoDevice
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		d.Close()
		return nil, fmt.Errorf("render: device initialization: %w", context.Canceled)
	}
	m.device = d
	m.mu.Unlock()

	info := d.AdapterInfo()
	logx.Logger().Info("GPU device ready", "adapter", info.Name, "type", info.Type.String(), "backend", d.Backend())
	return d, nil
}

// Reset closes the shared device and cancels an initialization in flight.
// The next call to Device opens a new one.
func (m *DeviceManager) Reset() {
	m.reset(false)
}

// Close closes the shared device and cancels an initialization in flight.
// Later calls to Device fail with ErrManagerClosed.
func (m *DeviceManager) Close() {
	m.reset(true)
}

func (m *DeviceManager) reset(closing bool) {
	m.mu.Lock()
	if closing {
		m.closed = true
	}
	d := m.device
	m.device = nil
	m.gen++
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	if d != nil {
		d.Close()
	}
}
