// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sync"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/internal/logx"
)

// Default pool capacities.
const (
	DefaultPerKeyCapacity = 4
	DefaultTotalCapacity  = 20
)

// TextureKey identifies a class of interchangeable textures.
type TextureKey struct {
	Width, Height uint32
	Format        gpucore.TextureFormat
}

func (k TextureKey) String() string {
	return fmt.Sprintf("%dx%d/%s", k.Width, k.Height, k.Format)
}

// Texture is a filter texture and its default view.
type Texture struct {
	ID   gpucore.TextureID
	View gpucore.TextureViewID
	Key  TextureKey
}

// PoolConfig configures a TexturePool.
type PoolConfig struct {
	// PerKeyCapacity bounds each free list. Default: 4.
	PerKeyCapacity int

	// TotalCapacity bounds all free lists together. Default: 20.
	TotalCapacity int
}

// PoolStats contains texture pool statistics.
type PoolStats struct {
	// Pooled is the number of textures currently held in free lists.
	Pooled int

	// Hits counts acquires served from a free list.
	Hits uint64

	// Misses counts acquires that allocated a new texture.
	Misses uint64

	// Discards counts released textures destroyed because the pool was full.
	Discards uint64
}

// String returns a human-readable string of pool stats.
func (s PoolStats) String() string {
	return fmt.Sprintf("TexturePool[%d pooled, %d hits, %d misses, %d discards]",
		s.Pooled, s.Hits, s.Misses, s.Discards)
}

// pooled remembers which adapter owns a free texture.
type pooled struct {
	tex     Texture
	adapter gpucore.Adapter
}

// TexturePool recycles filter textures by (width, height, format).
//
// TexturePool is safe for concurrent use.
type TexturePool struct {
	mu     sync.Mutex
	config PoolConfig
	free   map[TextureKey][]pooled
	total  int

	hits, misses, discards uint64
}

// NewTexturePool creates a pool. Zero config fields take their defaults.
func NewTexturePool(config PoolConfig) *TexturePool {
	if config.PerKeyCapacity <= 0 {
		config.PerKeyCapacity = DefaultPerKeyCapacity
	}
	if config.TotalCapacity <= 0 {
		config.TotalCapacity = DefaultTotalCapacity
	}
	return &TexturePool{
		config: config,
		free:   make(map[TextureKey][]pooled),
	}
}

// Acquire returns a width×height texture of format, reusing a released one
// owned by a when available. A fresh allocation failure is a resource error.
func (p *TexturePool) Acquire(a gpucore.Adapter, width, height uint32, format gpucore.TextureFormat) (Texture, error) {
	key := TextureKey{Width: width, Height: height, Format: format}

	p.mu.Lock()
	list := p.free[key]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].adapter != a {
			continue
		}
		tex := list[i].tex
		p.free[key] = append(list[:i], list[i+1:]...)
		p.total--
		p.hits++
		p.mu.Unlock()
		logx.Logger().Debug("texture pool hit", "key", key.String())
		return tex, nil
	}
	p.misses++
	p.mu.Unlock()

	return allocate(a, key)
}

func allocate(a gpucore.Adapter, key TextureKey) (Texture, error) {
	id, err := a.CreateTexture(&gpucore.TextureDesc{
		Label:  "filter_" + key.String(),
		Width:  key.Width,
		Height: key.Height,
		Format: key.Format,
		Usage:  gpucore.FilterTextureUsage,
	})
	if err != nil {
		return Texture{}, gpucore.NewError(gpucore.KindResource, "create texture", key.String(), err)
	}
	view, err := a.CreateTextureView(id)
	if err != nil {
		a.DestroyTexture(id)
		return Texture{}, gpucore.NewError(gpucore.KindResource, "create texture view", key.String(), err)
	}
	logx.Logger().Debug("texture pool miss", "key", key.String())
	return Texture{ID: id, View: view, Key: key}, nil
}

// Release returns tex to the pool. When its free list or the pool is full,
// the texture is destroyed instead.
func (p *TexturePool) Release(a gpucore.Adapter, tex Texture) {
	if tex.ID == gpucore.InvalidID {
		return
	}

	p.mu.Lock()
	list := p.free[tex.Key]
	if len(list) < p.config.PerKeyCapacity && p.total < p.config.TotalCapacity {
		p.free[tex.Key] = append(list, pooled{tex: tex, adapter: a})
		p.total++
		p.mu.Unlock()
		return
	}
	p.discards++
	p.mu.Unlock()

	destroy(a, tex)
}

func destroy(a gpucore.Adapter, tex Texture) {
	a.DestroyTextureView(tex.View)
	a.DestroyTexture(tex.ID)
}

// Clear destroys every pooled texture and empties the free lists.
func (p *TexturePool) Clear() {
	p.mu.Lock()
	free := p.free
	p.free = make(map[TextureKey][]pooled)
	p.total = 0
	p.mu.Unlock()

	n := 0
	for _, list := range free {
		for _, e := range list {
			destroy(e.adapter, e.tex)
			n++
		}
	}
	if n > 0 {
		logx.Logger().Debug("texture pool cleared", "destroyed", n)
	}
}

// Len returns the number of pooled textures.
func (p *TexturePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// KeyLen returns the number of pooled textures for key.
func (p *TexturePool) KeyLen(key TextureKey) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[key])
}

// Stats returns pool statistics.
func (p *TexturePool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Pooled: p.total, Hits: p.hits, Misses: p.misses, Discards: p.discards}
}
