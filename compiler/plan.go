package compiler

import (
	"fmt"
	"slices"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/graph"
	"github.com/gogpu/filtergraph/render"
)

// CompiledNode is one GPU pass: a pipeline dispatch reading the textures in
// Inputs and writing the texture at Output.
type CompiledNode struct {
	Operation string
	Pipeline  *render.Pipeline
	BindGroup gpucore.BindGroupID

	// Inputs maps the bound input keys to texture indices.
	Inputs map[string]int

	// Output is the index of the texture written by this pass.
	Output int

	// Uniforms is the index of the pass's uniform buffer.
	Uniforms int

	// Extent is the finite region encoded into the uniforms.
	Extent chain.Rect

	// Workgroups is the dispatch size for 8×8 workgroups.
	Workgroups [3]uint32
}

// CompiledGraph is an execution plan: passes in order and the resources
// they bind. It owns its textures, uniform buffers and bind groups until
// Release.
type CompiledGraph struct {
	Nodes []CompiledNode

	// Textures and TextureViews are parallel: index i of both describes
	// one pooled texture.
	Textures     []render.Texture
	TextureViews []gpucore.TextureViewID

	UniformBuffers []gpucore.BufferID

	// SourceTextures maps source nodes to the texture their pixels must be
	// uploaded into.
	SourceTextures map[graph.NodeID]int

	// Output is the index of the texture holding the final image.
	Output int

	Width, Height int
	Format        gpucore.TextureFormat

	released bool
}

// OutputTexture returns the texture holding the final image.
func (cg *CompiledGraph) OutputTexture() render.Texture { return cg.Textures[cg.Output] }

// Upload rasterizes the payload of every source node of g at the output
// size and writes it into the node's texture. g must be the graph cg was
// compiled from.
func (cg *CompiledGraph) Upload(a gpucore.Adapter, g *graph.Graph) error {
	ids := make([]graph.NodeID, 0, len(cg.SourceTextures))
	for id := range cg.SourceTextures {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		n := g.Node(id)
		if n == nil || !n.IsSource {
			return gpucore.NewError(gpucore.KindResource, "upload", "",
				fmt.Errorf("node %d is not a source of this graph", id))
		}
		pix := chain.Rasterize(n.Source, cg.Width, cg.Height)
		tex := cg.Textures[cg.SourceTextures[id]]
		if err := a.WriteTexture(tex.ID, uint32(cg.Width), uint32(cg.Height), pix.Pix); err != nil {
			return gpucore.NewError(gpucore.KindResource, "upload", fmt.Sprintf("node %d", id), err)
		}
	}
	return nil
}

// Release returns the textures to pool and destroys the bind groups and
// uniform buffers. With a nil pool the textures are destroyed too.
// Pipelines stay in their cache. Release is idempotent.
func (cg *CompiledGraph) Release(a gpucore.Adapter, pool *render.TexturePool) {
	if cg.released {
		return
	}
	cg.released = true

	for _, n := range cg.Nodes {
		if n.BindGroup != gpucore.InvalidID {
			a.DestroyBindGroup(n.BindGroup)
		}
	}
	for _, b := range cg.UniformBuffers {
		a.DestroyBuffer(b)
	}
	for _, t := range cg.Textures {
		if pool == nil {
			a.DestroyTextureView(t.View)
			a.DestroyTexture(t.ID)
			continue
		}
		pool.Release(a, t)
	}
}

func (cg *CompiledGraph) String() string {
	return fmt.Sprintf("CompiledGraph{passes: %d, textures: %d, sources: %d, output: %d, size: %dx%d}",
		len(cg.Nodes), len(cg.Textures), len(cg.SourceTextures), cg.Output, cg.Width, cg.Height)
}
