package shaders

import (
	"fmt"
	"strings"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/gputypes"
)

// Category is the binding category of an operation. It fixes the ordered
// bind group layout the operation's shader is written against.
type Category uint8

// Binding categories.
const (
	// CategoryStandard binds input, output, uniforms.
	CategoryStandard Category = iota

	// CategorySource is never bound; source textures only feed other nodes.
	CategorySource

	// CategoryGenerator binds output, uniforms. Generators read no input.
	CategoryGenerator

	// CategoryCompositing binds foreground, background, output, uniforms.
	CategoryCompositing

	// CategoryTransition binds input, target, output, uniforms.
	CategoryTransition

	// CategoryBlendWithMask binds input, background, mask, output, uniforms.
	CategoryBlendWithMask

	// CategoryReduction has the standard layout.
	CategoryReduction

	// CategoryDisplacement binds input, displacement map, output, uniforms.
	CategoryDisplacement
)

var categoryNames = [...]string{
	CategoryStandard:      "standard",
	CategorySource:        "source",
	CategoryGenerator:     "generator",
	CategoryCompositing:   "compositing",
	CategoryTransition:    "transition",
	CategoryBlendWithMask: "blendWithMask",
	CategoryReduction:     "reduction",
	CategoryDisplacement:  "displacement",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// Input keys.
const (
	InputImage        = "image"
	InputBackground   = "background"
	InputTarget       = "target"
	InputMask         = "mask"
	InputDisplacement = "displacement"
)

// Inputs returns the node input keys bound by c, in binding order.
func (c Category) Inputs() []string {
	switch c {
	case CategoryStandard, CategoryReduction:
		return []string{InputImage}
	case CategoryCompositing:
		return []string{InputImage, InputBackground}
	case CategoryTransition:
		return []string{InputImage, InputTarget}
	case CategoryBlendWithMask:
		return []string{InputImage, InputBackground, InputMask}
	case CategoryDisplacement:
		return []string{InputImage, InputDisplacement}
	}
	return nil
}

// Bound reports whether operations of category c get a bind group.
func (c Category) Bound() bool { return c != CategorySource }

// OutputBinding returns the binding index of the output texture.
// The uniform buffer follows it.
func (c Category) OutputBinding() uint32 { return uint32(len(c.Inputs())) }

// LayoutEntries returns the bind group layout of c for storage textures of
// the given format.
func (c Category) LayoutEntries(format gpucore.TextureFormat) []gpucore.BindGroupLayoutEntry {
	inputs := c.Inputs()
	entries := make([]gpucore.BindGroupLayoutEntry, 0, len(inputs)+2)
	for i := range inputs {
		entries = append(entries, gpucore.BindGroupLayoutEntry{
			Binding: uint32(i),
			Type:    gpucore.BindingTypeSampledTexture,
		})
	}
	out := c.OutputBinding()
	return append(entries,
		gpucore.BindGroupLayoutEntry{Binding: out, Type: gpucore.BindingTypeStorageTexture, Format: format},
		gpucore.BindGroupLayoutEntry{Binding: out + 1, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: UniformSize},
	)
}

// storageFormat returns the WGSL texel format name of a storage texture
// format.
func storageFormat(f gpucore.TextureFormat) (string, bool) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return "rgba8unorm", true
	case gputypes.TextureFormatRGBA16Float:
		return "rgba16float", true
	case gputypes.TextureFormatRGBA32Float:
		return "rgba32float", true
	}
	return "", false
}

// prelude returns the WGSL declarations shared by every shader of category
// c: the uniform block, the bindings in layout order, and a clamped load_<key>
// helper per input.
func (c Category) prelude(texel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `struct Uniforms {
    extent: vec4<f32>,
    size: vec4<f32>,
    params: array<vec4<f32>, %d>,
}

`, MaxParamSlots)

	inputs := c.Inputs()
	for i, key := range inputs {
		fmt.Fprintf(&b, "@group(0) @binding(%d) var %s_tex: texture_2d<f32>;\n", i, key)
	}
	out := c.OutputBinding()
	fmt.Fprintf(&b, "@group(0) @binding(%d) var output_tex: texture_storage_2d<%s, write>;\n", out, texel)
	fmt.Fprintf(&b, "@group(0) @binding(%d) var<uniform> u: Uniforms;\n\n", out+1)

	b.WriteString(`fn output_size() -> vec2<i32> {
    return vec2<i32>(i32(u.size.x), i32(u.size.y));
}

fn in_extent(p: vec2<i32>) -> bool {
    let q = vec2<f32>(p) + vec2<f32>(0.5);
    return all(q >= u.extent.xy) && all(q < u.extent.xy + u.extent.zw);
}

fn store(p: vec2<i32>, c: vec4<f32>) {
    textureStore(output_tex, p, c);
}
`)
	for _, key := range inputs {
		fmt.Fprintf(&b, `
fn load_%[1]s(p: vec2<i32>) -> vec4<f32> {
    let dims = vec2<i32>(textureDimensions(%[1]s_tex));
    return textureLoad(%[1]s_tex, clamp(p, vec2<i32>(0), dims - vec2<i32>(1)), 0);
}
`, key)
	}
	b.WriteString("\n")
	return b.String()
}
