// Package gpufake provides an in-memory gpucore.Adapter for tests.
//
// The fake records every call, tracks live resources per kind, keeps the
// bytes written to buffers and textures, and can be told to fail or block a
// given call.
package gpufake

import (
	"errors"
	"slices"
	"sync"

	"github.com/gogpu/filtergraph/gpucore"
)

// Call names, one per Adapter method that creates or writes something.
const (
	CallCreateShaderModule    = "CreateShaderModule"
	CallCreateBuffer          = "CreateBuffer"
	CallWriteBuffer           = "WriteBuffer"
	CallCreateTexture         = "CreateTexture"
	CallCreateTextureView     = "CreateTextureView"
	CallWriteTexture          = "WriteTexture"
	CallCreateBindGroupLayout = "CreateBindGroupLayout"
	CallCreatePipelineLayout  = "CreatePipelineLayout"
	CallCreateComputePipeline = "CreateComputePipeline"
	CallCreateBindGroup       = "CreateBindGroup"
)

// Resource kinds.
const (
	KindShaderModule    = "shader module"
	KindBuffer          = "buffer"
	KindTexture         = "texture"
	KindTextureView     = "texture view"
	KindBindGroupLayout = "bind group layout"
	KindPipelineLayout  = "pipeline layout"
	KindComputePipeline = "compute pipeline"
	KindBindGroup       = "bind group"
)

// ErrInjected is the default injected failure.
var ErrInjected = errors.New("gpufake: injected failure")

type failure struct {
	after int
	err   error
}

// BindGroup records the arguments of a CreateBindGroup call.
type BindGroup struct {
	Layout  gpucore.BindGroupLayoutID
	Entries []gpucore.BindGroupEntry
}

// Adapter is a fake gpucore.Adapter. The zero value is not usable; call New.
type Adapter struct {
	mu       sync.Mutex
	next     uint64
	live     map[uint64]string
	calls    map[string]int
	fail     map[string]failure
	hooks    map[string]func()
	buffers  map[uint64][]byte
	textures map[uint64][]byte
	groups   map[uint64]BindGroup
}

// New returns an empty fake adapter.
func New() *Adapter {
	return &Adapter{
		live:     make(map[uint64]string),
		calls:    make(map[string]int),
		fail:     make(map[string]failure),
		hooks:    make(map[string]func()),
		buffers:  make(map[uint64][]byte),
		textures: make(map[uint64][]byte),
		groups:   make(map[uint64]BindGroup),
	}
}

var _ gpucore.Adapter = (*Adapter)(nil)

// FailAfter makes call fail with err once it has been invoked n times; n=0
// fails the next invocation. A nil err means ErrInjected.
func (a *Adapter) FailAfter(call string, n int, err error) {
	if err == nil {
		err = ErrInjected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail[call] = failure{after: a.calls[call] + n, err: err}
}

// Hook runs fn at the start of every invocation of call, before the fake
// takes its lock. Tests use it to block a call.
func (a *Adapter) Hook(call string, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks[call] = fn
}

// Calls returns how many times call was invoked.
func (a *Adapter) Calls(call string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[call]
}

// Live returns the number of live resources of kind.
func (a *Adapter) Live(kind string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, k := range a.live {
		if k == kind {
			n++
		}
	}
	return n
}

// IsLive reports whether the resource id exists.
func (a *Adapter) IsLive(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.live[id]
	return ok
}

// BufferData returns a copy of the bytes written to a buffer.
func (a *Adapter) BufferData(id gpucore.BufferID) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.buffers[uint64(id)])
}

// TextureData returns a copy of the bytes last written to a texture.
func (a *Adapter) TextureData(id gpucore.TextureID) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.textures[uint64(id)])
}

// BindGroup returns the recorded arguments of a bind group.
func (a *Adapter) BindGroup(id gpucore.BindGroupID) (BindGroup, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.groups[uint64(id)]
	return g, ok
}

// begin runs the hook of call and records the invocation. It returns the
// injected error, if any.
func (a *Adapter) begin(call string) error {
	a.mu.Lock()
	hook := a.hooks[call]
	a.mu.Unlock()
	if hook != nil {
		hook()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.calls[call]
	a.calls[call] = n + 1
	if f, ok := a.fail[call]; ok && n >= f.after {
		delete(a.fail, call)
		return f.err
	}
	return nil
}

func (a *Adapter) create(call, kind string) (uint64, error) {
	if err := a.begin(call); err != nil {
		return gpucore.InvalidID, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.live[a.next] = kind
	return a.next, nil
}

func (a *Adapter) destroy(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.live, id)
	delete(a.buffers, id)
	delete(a.textures, id)
	delete(a.groups, id)
}

// CreateShaderModule implements gpucore.Adapter.
func (a *Adapter) CreateShaderModule(_ []uint32, _ string) (gpucore.ShaderModuleID, error) {
	id, err := a.create(CallCreateShaderModule, KindShaderModule)
	return gpucore.ShaderModuleID(id), err
}

// DestroyShaderModule implements gpucore.Adapter.
func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) { a.destroy(uint64(id)) }

// CreateBuffer implements gpucore.Adapter.
func (a *Adapter) CreateBuffer(size int, _ gpucore.BufferUsage) (gpucore.BufferID, error) {
	id, err := a.create(CallCreateBuffer, KindBuffer)
	if err == nil {
		a.mu.Lock()
		a.buffers[id] = make([]byte, size)
		a.mu.Unlock()
	}
	return gpucore.BufferID(id), err
}

// DestroyBuffer implements gpucore.Adapter.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) { a.destroy(uint64(id)) }

// WriteBuffer implements gpucore.Adapter.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	if err := a.begin(CallWriteBuffer); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[uint64(id)]
	if !ok || offset+uint64(len(data)) > uint64(len(buf)) {
		return errors.New("gpufake: write out of range")
	}
	copy(buf[offset:], data)
	return nil
}

// CreateTexture implements gpucore.Adapter.
func (a *Adapter) CreateTexture(_ *gpucore.TextureDesc) (gpucore.TextureID, error) {
	id, err := a.create(CallCreateTexture, KindTexture)
	return gpucore.TextureID(id), err
}

// DestroyTexture implements gpucore.Adapter.
func (a *Adapter) DestroyTexture(id gpucore.TextureID) { a.destroy(uint64(id)) }

// CreateTextureView implements gpucore.Adapter.
func (a *Adapter) CreateTextureView(_ gpucore.TextureID) (gpucore.TextureViewID, error) {
	id, err := a.create(CallCreateTextureView, KindTextureView)
	return gpucore.TextureViewID(id), err
}

// DestroyTextureView implements gpucore.Adapter.
func (a *Adapter) DestroyTextureView(id gpucore.TextureViewID) { a.destroy(uint64(id)) }

// WriteTexture implements gpucore.Adapter.
func (a *Adapter) WriteTexture(id gpucore.TextureID, width, height uint32, data []byte) error {
	if err := a.begin(CallWriteTexture); err != nil {
		return err
	}
	if len(data) != int(width)*int(height)*4 {
		return errors.New("gpufake: texture data size mismatch")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.live[uint64(id)] != KindTexture {
		return errors.New("gpufake: unknown texture")
	}
	a.textures[uint64(id)] = slices.Clone(data)
	return nil
}

// CreateBindGroupLayout implements gpucore.Adapter.
func (a *Adapter) CreateBindGroupLayout(_ *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	id, err := a.create(CallCreateBindGroupLayout, KindBindGroupLayout)
	return gpucore.BindGroupLayoutID(id), err
}

// DestroyBindGroupLayout implements gpucore.Adapter.
func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) { a.destroy(uint64(id)) }

// CreatePipelineLayout implements gpucore.Adapter.
func (a *Adapter) CreatePipelineLayout(_ []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	id, err := a.create(CallCreatePipelineLayout, KindPipelineLayout)
	return gpucore.PipelineLayoutID(id), err
}

// DestroyPipelineLayout implements gpucore.Adapter.
func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) { a.destroy(uint64(id)) }

// CreateComputePipeline implements gpucore.Adapter.
func (a *Adapter) CreateComputePipeline(_ *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	id, err := a.create(CallCreateComputePipeline, KindComputePipeline)
	return gpucore.ComputePipelineID(id), err
}

// DestroyComputePipeline implements gpucore.Adapter.
func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) { a.destroy(uint64(id)) }

// CreateBindGroup implements gpucore.Adapter.
func (a *Adapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	id, err := a.create(CallCreateBindGroup, KindBindGroup)
	if err == nil {
		a.mu.Lock()
		a.groups[id] = BindGroup{Layout: layout, Entries: slices.Clone(entries)}
		a.mu.Unlock()
	}
	return gpucore.BindGroupID(id), err
}

// DestroyBindGroup implements gpucore.Adapter.
func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) { a.destroy(uint64(id)) }
