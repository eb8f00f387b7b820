package native

import (
	"fmt"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/gputypes"
)

// convertLayoutEntry converts a gpucore layout entry to a compute-visible
// gputypes entry.
func convertLayoutEntry(e gpucore.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	out := gputypes.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	switch e.Type {
	case gpucore.BindingTypeUniformBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: e.MinBindingSize,
		}
	case gpucore.BindingTypeSampledTexture:
		out.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gpucore.BindingTypeStorageTexture:
		out.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        e.Format,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	}
	return out
}

// convertEntry converts a gpucore bind group entry. Must be called with
// mu held.
func (a *HALAdapter) convertEntry(e gpucore.BindGroupEntry) (gputypes.BindGroupEntry, error) {
	out := gputypes.BindGroupEntry{Binding: e.Binding}
	switch {
	case e.Buffer != gpucore.InvalidID:
		buf, ok := a.buffers[e.Buffer]
		if !ok {
			return out, fmt.Errorf("%w: buffer %d in binding %d", ErrUnknownResource, e.Buffer, e.Binding)
		}
		out.Resource = gputypes.BufferBinding{
			Buffer: buf.NativeHandle(),
			Offset: e.Offset,
			Size:   e.Size,
		}
	case e.TextureView != gpucore.InvalidID:
		view, ok := a.views[e.TextureView]
		if !ok {
			return out, fmt.Errorf("%w: texture view %d in binding %d", ErrUnknownResource, e.TextureView, e.Binding)
		}
		out.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
	default:
		return out, fmt.Errorf("native: binding %d has no resource", e.Binding)
	}
	return out, nil
}
