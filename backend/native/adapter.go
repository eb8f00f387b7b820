// Package native opens GPU devices through gogpu/wgpu/hal and exposes them
// to the filter compiler as a gpucore.Adapter.
package native

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Errors returned by HALAdapter for unknown IDs and bad arguments.
var (
	ErrUnknownResource = errors.New("native: unknown resource")
	ErrEmptyShader     = errors.New("native: empty SPIR-V bytecode")
	ErrBadSize         = errors.New("native: size must be positive")
)

// texture is a hal texture and the size it was created with.
type texture struct {
	tex           hal.Texture
	width, height uint32
}

// HALAdapter implements gpucore.Adapter on top of a hal.Device and its
// queue. gpucore IDs map to hal objects.
//
// HALAdapter is safe for concurrent use. The maps are guarded by mu; hal
// calls run outside the lock.
type HALAdapter struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	nextID atomic.Uint64

	buffers          map[gpucore.BufferID]hal.Buffer
	textures         map[gpucore.TextureID]texture
	views            map[gpucore.TextureViewID]hal.TextureView
	shaderModules    map[gpucore.ShaderModuleID]hal.ShaderModule
	computePipelines map[gpucore.ComputePipelineID]hal.ComputePipeline
	bindGroupLayouts map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[gpucore.PipelineLayoutID]hal.PipelineLayout
	bindGroups       map[gpucore.BindGroupID]hal.BindGroup
}

var _ gpucore.Adapter = (*HALAdapter)(nil)

// NewHALAdapter wraps device and queue.
func NewHALAdapter(device hal.Device, queue hal.Queue) *HALAdapter {
	return &HALAdapter{
		device:           device,
		queue:            queue,
		buffers:          make(map[gpucore.BufferID]hal.Buffer),
		textures:         make(map[gpucore.TextureID]texture),
		views:            make(map[gpucore.TextureViewID]hal.TextureView),
		shaderModules:    make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		computePipelines: make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
	}
}

// newID returns a fresh non-zero ID.
func (a *HALAdapter) newID() uint64 {
	return a.nextID.Add(1)
}

// Live returns the number of resources the adapter still tracks.
func (a *HALAdapter) Live() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.buffers) + len(a.textures) + len(a.views) + len(a.shaderModules) +
		len(a.computePipelines) + len(a.bindGroupLayouts) + len(a.pipelineLayouts) + len(a.bindGroups)
}

// take removes id from m and reports whether it was present.
func take[K comparable, V any](mu *sync.RWMutex, m map[K]V, id K) (V, bool) {
	mu.Lock()
	defer mu.Unlock()
	v, ok := m[id]
	if ok {
		delete(m, id)
	}
	return v, ok
}

// === Shader Modules ===

// CreateShaderModule creates a shader module from SPIR-V words.
func (a *HALAdapter) CreateShaderModule(spirv []uint32, label string) (gpucore.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return gpucore.InvalidID, ErrEmptyShader
	}
	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module: %w", err)
	}

	id := gpucore.ShaderModuleID(a.newID())
	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (a *HALAdapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	if m, ok := take(&a.mu, a.shaderModules, id); ok {
		a.device.DestroyShaderModule(m)
	}
}

// === Buffers ===

// CreateBuffer creates a GPU buffer.
func (a *HALAdapter) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer of %d bytes", ErrBadSize, size)
	}
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Size:  uint64(size),
		Usage: usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer: %w", err)
	}

	id := gpucore.BufferID(a.newID())
	a.mu.Lock()
	a.buffers[id] = buf
	a.mu.Unlock()
	return id, nil
}

// DestroyBuffer releases a GPU buffer.
func (a *HALAdapter) DestroyBuffer(id gpucore.BufferID) {
	if b, ok := take(&a.mu, a.buffers, id); ok {
		a.device.DestroyBuffer(b)
	}
}

// WriteBuffer writes data to a buffer through the queue.
func (a *HALAdapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	a.mu.RLock()
	buf, ok := a.buffers[id]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	if len(data) == 0 {
		return nil
	}
	if err := a.queue.WriteBuffer(buf, offset, data); err != nil {
		return fmt.Errorf("native: write buffer %d: %w", id, err)
	}
	return nil
}

// === Textures ===

// CreateTexture creates a 2D texture.
func (a *HALAdapter) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture", ErrBadSize)
	}
	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture: %w", err)
	}

	id := gpucore.TextureID(a.newID())
	a.mu.Lock()
	a.textures[id] = texture{tex: tex, width: desc.Width, height: desc.Height}
	a.mu.Unlock()
	return id, nil
}

// DestroyTexture releases a texture.
func (a *HALAdapter) DestroyTexture(id gpucore.TextureID) {
	if t, ok := take(&a.mu, a.textures, id); ok {
		a.device.DestroyTexture(t.tex)
	}
}

// CreateTextureView creates the default 2D view of a texture.
func (a *HALAdapter) CreateTextureView(id gpucore.TextureID) (gpucore.TextureViewID, error) {
	a.mu.RLock()
	t, ok := a.textures[id]
	a.mu.RUnlock()
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
	}

	view, err := a.device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture view: %w", err)
	}

	vid := gpucore.TextureViewID(a.newID())
	a.mu.Lock()
	a.views[vid] = view
	a.mu.Unlock()
	return vid, nil
}

// DestroyTextureView releases a texture view.
func (a *HALAdapter) DestroyTextureView(id gpucore.TextureViewID) {
	if v, ok := take(&a.mu, a.views, id); ok {
		a.device.DestroyTextureView(v)
	}
}

// WriteTexture uploads tightly packed 4-byte texels covering width×height.
func (a *HALAdapter) WriteTexture(id gpucore.TextureID, width, height uint32, data []byte) error {
	a.mu.RLock()
	t, ok := a.textures[id]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
	}
	if width > t.width || height > t.height {
		return fmt.Errorf("native: write %dx%d into %dx%d texture", width, height, t.width, t.height)
	}
	if want := int(width) * int(height) * 4; len(data) != want {
		return fmt.Errorf("native: texture data is %d bytes, want %d", len(data), want)
	}

	err := a.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: width * 4, RowsPerImage: height},
		&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: write texture %d: %w", id, err)
	}
	return nil
}

// === Pipelines ===

// CreateBindGroupLayout creates a compute-visible bind group layout.
func (a *HALAdapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, errors.New("native: nil bind group layout descriptor")
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = convertLayoutEntry(e)
	}

	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group layout: %w", err)
	}

	id := gpucore.BindGroupLayoutID(a.newID())
	a.mu.Lock()
	a.bindGroupLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (a *HALAdapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	if l, ok := take(&a.mu, a.bindGroupLayouts, id); ok {
		a.device.DestroyBindGroupLayout(l)
	}
}

// CreatePipelineLayout creates a pipeline layout from bind group layouts.
func (a *HALAdapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	a.mu.RLock()
	for i, id := range layouts {
		l, ok := a.bindGroupLayouts[id]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, id)
		}
		halLayouts[i] = l
	}
	a.mu.RUnlock()

	layout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{BindGroupLayouts: halLayouts})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout: %w", err)
	}

	id := gpucore.PipelineLayoutID(a.newID())
	a.mu.Lock()
	a.pipelineLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (a *HALAdapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	if l, ok := take(&a.mu, a.pipelineLayouts, id); ok {
		a.device.DestroyPipelineLayout(l)
	}
}

// CreateComputePipeline creates a compute pipeline.
func (a *HALAdapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, errors.New("native: nil compute pipeline descriptor")
	}

	a.mu.RLock()
	layout, layoutOK := a.pipelineLayouts[desc.Layout]
	module, moduleOK := a.shaderModules[desc.ShaderModule]
	a.mu.RUnlock()
	if !layoutOK {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", ErrUnknownResource, desc.Layout)
	}
	if !moduleOK {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", ErrUnknownResource, desc.ShaderModule)
	}

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create compute pipeline: %w", err)
	}

	id := gpucore.ComputePipelineID(a.newID())
	a.mu.Lock()
	a.computePipelines[id] = pipeline
	a.mu.Unlock()
	return id, nil
}

// DestroyComputePipeline releases a compute pipeline.
func (a *HALAdapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	if p, ok := take(&a.mu, a.computePipelines, id); ok {
		a.device.DestroyComputePipeline(p)
	}
}

// CreateBindGroup creates a bind group. Each entry binds either a buffer
// range or a texture view.
func (a *HALAdapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.RLock()
	halLayout, ok := a.bindGroupLayouts[layout]
	if !ok {
		a.mu.RUnlock()
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownResource, layout)
	}
	halEntries := make([]gputypes.BindGroupEntry, len(entries))
	for i, e := range entries {
		he, err := a.convertEntry(e)
		if err != nil {
			a.mu.RUnlock()
			return gpucore.InvalidID, err
		}
		halEntries[i] = he
	}
	a.mu.RUnlock()

	group, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Layout:  halLayout,
		Entries: halEntries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group: %w", err)
	}

	id := gpucore.BindGroupID(a.newID())
	a.mu.Lock()
	a.bindGroups[id] = group
	a.mu.Unlock()
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (a *HALAdapter) DestroyBindGroup(id gpucore.BindGroupID) {
	if g, ok := take(&a.mu, a.bindGroups, id); ok {
		a.device.DestroyBindGroup(g)
	}
}

// Destroy releases every resource the adapter still tracks. The device
// itself is left to its owner.
func (a *HALAdapter) Destroy() {
	a.mu.Lock()
	groups, pipelines, playouts, layouts := a.bindGroups, a.computePipelines, a.pipelineLayouts, a.bindGroupLayouts
	modules, views, textures, buffers := a.shaderModules, a.views, a.textures, a.buffers
	a.bindGroups = make(map[gpucore.BindGroupID]hal.BindGroup)
	a.computePipelines = make(map[gpucore.ComputePipelineID]hal.ComputePipeline)
	a.pipelineLayouts = make(map[gpucore.PipelineLayoutID]hal.PipelineLayout)
	a.bindGroupLayouts = make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout)
	a.shaderModules = make(map[gpucore.ShaderModuleID]hal.ShaderModule)
	a.views = make(map[gpucore.TextureViewID]hal.TextureView)
	a.textures = make(map[gpucore.TextureID]texture)
	a.buffers = make(map[gpucore.BufferID]hal.Buffer)
	a.mu.Unlock()

	for _, g := range groups {
		a.device.DestroyBindGroup(g)
	}
	for _, p := range pipelines {
		a.device.DestroyComputePipeline(p)
	}
	for _, l := range playouts {
		a.device.DestroyPipelineLayout(l)
	}
	for _, l := range layouts {
		a.device.DestroyBindGroupLayout(l)
	}
	for _, m := range modules {
		a.device.DestroyShaderModule(m)
	}
	for _, v := range views {
		a.device.DestroyTextureView(v)
	}
	for _, t := range textures {
		a.device.DestroyTexture(t.tex)
	}
	for _, b := range buffers {
		a.device.DestroyBuffer(b)
	}
}
