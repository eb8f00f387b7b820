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
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// fakeOpener opens gpufake devices, counting attempts. It can block and fail.
type fakeOpener struct {
	calls   atomic.Int32
	closed  atomic.Int32
	started chan struct{}
	release chan struct{}
	err     atomic.Pointer[error]
}

func (o *fakeOpener) open(ctx context.Context) (*Device, error) {
	o.calls.Add(1)
	if o.started != nil {
		o.started <- struct{}{}
	}
	if o.release != nil {
		<-o.release
	}
	if err := o.err.Load(); err != nil {
		return nil, *err
	}
	return NewDevice(DeviceConfig{
		GPU:     gpufake.New(),
		Info:    gpucontext.AdapterInfo{Name: "fake", Type: gpucontext.AdapterTypeSoftware},
		Backend: "fake",
		Release: func() { o.closed.Add(1) },
	}), nil
}

func (o *fakeOpener) fail(err error) { o.err.Store(&err) }

func TestDeviceProvider(t *testing.T) {
	d := NewDevice(DeviceConfig{Info: gpucontext.AdapterInfo{Name: "x"}})
	var p gpucontext.DeviceProvider = d
	if p.SurfaceFormat() != gputypes.TextureFormatUndefined {
		t.Error("filter devices are headless")
	}
	if p.AdapterInfo().Name != "x" {
		t.Errorf("AdapterInfo = %+v", p.AdapterInfo())
	}
	d.Close()
	d.Close()
}

func TestDeviceManagerCachesDevice(t *testing.T) {
	o := &fakeOpener{}
	m := NewDeviceManager(o.open)
	ctx := context.Background()

	d1, err := m.Device(ctx)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := m.Device(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("Device must return the cached device")
	}
	if o.calls.Load() != 1 {
		t.Errorf("opened %d times, want 1", o.calls.Load())
	}
}

// joinCounter reports every caller that has joined a single-flight call.
func joinCounter(n int) (chan struct{}, func()) {
	ch := make(chan struct{}, n)
	return ch, func() { ch <- struct{}{} }
}

func TestDeviceManagerCoalesces(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
	}{
		{"success", nil},
		{"shared error", gpucore.ErrNoDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &fakeOpener{started: make(chan struct{}, 2), release: make(chan struct{})}
			if tt.openErr != nil {
				o.fail(tt.openErr)
			}
			m := NewDeviceManager(o.open)
			joined, hook := joinCounter(2)
			m.joined = hook

			var wg sync.WaitGroup
			devices := make([]*Device, 2)
			errs := make([]error, 2)
			wg.Add(2)
			for i := range devices {
				go func() {
					defer wg.Done()
					devices[i], errs[i] = m.Device(context.Background())
				}()
			}

			// Both callers wait on the same open before it may finish.
			<-o.started
			<-joined
			<-joined
			close(o.release)
			wg.Wait()

			if o.calls.Load() != 1 {
				t.Errorf("opened %d times, want 1", o.calls.Load())
			}
			for i, err := range errs {
				if !errors.Is(err, tt.openErr) {
					t.Errorf("caller %d: error = %v, want %v", i, err, tt.openErr)
				}
			}
			if devices[0] != devices[1] {
				t.Error("concurrent callers must share one result")
			}
		})
	}
}

func TestDeviceManagerRetriesAfterFailure(t *testing.T) {
	o := &fakeOpener{}
	o.fail(gpucore.ErrNoAdapter)
	m := NewDeviceManager(o.open)

	_, err := m.Device(context.Background())
	if !errors.Is(err, gpucore.ErrNoAdapter) || !errors.Is(err, gpucore.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrNoAdapter", err)
	}

	o.err.Store(nil)
	if _, err := m.Device(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if o.calls.Load() != 2 {
		t.Errorf("opened %d times, want 2", o.calls.Load())
	}
}

func TestDeviceManagerReset(t *testing.T) {
	o := &fakeOpener{}
	m := NewDeviceManager(o.open)
	ctx := context.Background()

	d1, _ := m.Device(ctx)
	m.Reset()
	if o.closed.Load() != 1 {
		t.Error("Reset must close the cached device")
	}
	d2, err := m.Device(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d2 {
		t.Error("Reset must drop the cached device")
	}
}

func TestDeviceManagerResetCancelsInFlight(t *testing.T) {
	o := &fakeOpener{started: make(chan struct{}, 2), release: make(chan struct{})}
	m := NewDeviceManager(o.open)

	errc := make(chan error, 1)
	go func() {
		_, err := m.Device(context.Background())
		errc <- err
	}()
	<-o.started
	m.Reset()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	close(o.release)

	d, err := m.Device(context.Background())
	if err != nil || d == nil {
		t.Fatalf("Device after Reset: %v", err)
	}
}

func TestDeviceManagerClose(t *testing.T) {
	o := &fakeOpener{}
	m := NewDeviceManager(o.open)

	if _, err := m.Device(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Close()
	m.Close()
	if o.closed.Load() != 1 {
		t.Errorf("closed %d devices, want 1", o.closed.Load())
	}
	if _, err := m.Device(context.Background()); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("error = %v, want ErrManagerClosed", err)
	}
}
