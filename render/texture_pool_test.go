// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"testing"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/internal/gpufake"
	"github.com/gogpu/gputypes"
)

const rgba8 = gputypes.TextureFormatRGBA8Unorm

func acquireN(t *testing.T, p *TexturePool, a gpucore.Adapter, n int, w, h uint32) []Texture {
	t.Helper()
	out := make([]Texture, n)
	for i := range out {
		tex, err := p.Acquire(a, w, h, rgba8)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		out[i] = tex
	}
	return out
}

func TestTexturePoolReuse(t *testing.T) {
	a := gpufake.New()
	p := NewTexturePool(PoolConfig{})

	tex := acquireN(t, p, a, 1, 64, 32)[0]
	p.Release(a, tex)

	again, err := p.Acquire(a, 64, 32, rgba8)
	if err != nil {
		t.Fatal(err)
	}
	if again != tex {
		t.Errorf("Acquire returned %+v, want the released %+v", again, tex)
	}
	if got := a.Calls(gpufake.CallCreateTexture); got != 1 {
		t.Errorf("CreateTexture called %d times, want 1", got)
	}

	other := acquireN(t, p, a, 1, 32, 64)[0]
	if other.ID == tex.ID {
		t.Error("a different key must not reuse the texture")
	}
	if s := p.Stats(); s.Hits != 1 || s.Misses != 2 {
		t.Errorf("Stats = %v", s)
	}
}

func TestTexturePoolPerKeyCapacity(t *testing.T) {
	a := gpufake.New()
	p := NewTexturePool(PoolConfig{})
	key := TextureKey{Width: 16, Height: 16, Format: rgba8}

	texs := acquireN(t, p, a, DefaultPerKeyCapacity+3, 16, 16)
	for _, tex := range texs {
		p.Release(a, tex)
	}

	if got := p.KeyLen(key); got != DefaultPerKeyCapacity {
		t.Fatalf("KeyLen = %d, want %d", got, DefaultPerKeyCapacity)
	}
	if got := a.Live(gpufake.KindTexture); got != DefaultPerKeyCapacity {
		t.Errorf("live textures = %d, want %d (overflow destroyed)", got, DefaultPerKeyCapacity)
	}

	created := a.Calls(gpufake.CallCreateTexture)
	for i := 0; i < DefaultPerKeyCapacity; i++ {
		if _, err := p.Acquire(a, 16, 16, rgba8); err != nil {
			t.Fatal(err)
		}
	}
	if a.Calls(gpufake.CallCreateTexture) != created {
		t.Error("acquire must return pooled textures while any remain")
	}
	if p.KeyLen(key) != 0 {
		t.Errorf("KeyLen = %d after draining", p.KeyLen(key))
	}
}

func TestTexturePoolTotalCapacity(t *testing.T) {
	a := gpufake.New()
	p := NewTexturePool(PoolConfig{PerKeyCapacity: 4, TotalCapacity: 6})

	for size := uint32(1); size <= 3; size++ {
		for _, tex := range acquireN(t, p, a, 4, size, size) {
			p.Release(a, tex)
		}
	}
	if got := p.Len(); got != 6 {
		t.Errorf("Len = %d, want 6", got)
	}
	if s := p.Stats(); s.Discards != 6 {
		t.Errorf("Discards = %d, want 6", s.Discards)
	}
}

func TestTexturePoolClear(t *testing.T) {
	a := gpufake.New()
	p := NewTexturePool(PoolConfig{})
	for _, tex := range acquireN(t, p, a, 3, 8, 8) {
		p.Release(a, tex)
	}
	p.Clear()

	if p.Len() != 0 {
		t.Errorf("Len = %d after Clear", p.Len())
	}
	if a.Live(gpufake.KindTexture) != 0 || a.Live(gpufake.KindTextureView) != 0 {
		t.Error("Clear must destroy pooled textures and views")
	}
}

func TestTexturePoolSeparatesAdapters(t *testing.T) {
	a, b := gpufake.New(), gpufake.New()
	p := NewTexturePool(PoolConfig{})
	p.Release(a, acquireN(t, p, a, 1, 8, 8)[0])

	acquireN(t, p, b, 1, 8, 8)
	if b.Calls(gpufake.CallCreateTexture) != 1 {
		t.Error("a texture pooled for one adapter must not be handed to another")
	}
}

func TestTexturePoolAllocationFailure(t *testing.T) {
	a := gpufake.New()
	p := NewTexturePool(PoolConfig{})
	a.FailAfter(gpufake.CallCreateTextureView, 0, nil)

	_, err := p.Acquire(a, 8, 8, rgba8)
	if !errors.Is(err, gpucore.ErrResource) {
		t.Fatalf("error = %v, want resource error", err)
	}
	if a.Live(gpufake.KindTexture) != 0 {
		t.Error("texture must be destroyed when its view cannot be created")
	}
}
