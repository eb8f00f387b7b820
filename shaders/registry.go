package shaders

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Registry errors.
var (
	ErrNoShader      = errors.New("shaders: no shader registered")
	ErrStorageFormat = errors.New("shaders: unsupported storage texture format")
)

// DefaultEntryPoint is the entry point of every built-in shader.
const DefaultEntryPoint = "main"

// Shader is a compute shader for one operation.
type Shader struct {
	Name     string
	Category Category

	// Body is WGSL defining the entry point. It is appended to the
	// category prelude, so it can use u, store, in_extent, output_size and
	// the load_<input> helpers.
	Body string

	// EntryPoint defaults to DefaultEntryPoint.
	EntryPoint string

	// Params is the parameter schema, sorted by name. Nil means every
	// numeric parameter passed is encoded, sorted by name.
	Params []ParamSpec
}

// Source returns the complete WGSL source of s for output textures of the
// given format.
func (s Shader) Source(format gpucore.TextureFormat) (string, error) {
	texel, ok := storageFormat(format)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrStorageFormat, format)
	}
	var b strings.Builder
	b.WriteString("// ")
	b.WriteString(s.Name)
	b.WriteString(" (")
	b.WriteString(s.Category.String())
	b.WriteString(")\n\n")
	b.WriteString(s.Category.prelude(texel))
	b.WriteString(s.Body)
	return b.String(), nil
}

// Registry maps operation names to shaders. It is safe for concurrent use.
type Registry struct {
	format  gpucore.TextureFormat
	shaders *gpucontext.Registry[Shader]
}

// NewRegistry returns an empty registry generating sources for output
// textures of format. A zero format means RGBA8Unorm.
func NewRegistry(format gpucore.TextureFormat) *Registry {
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	return &Registry{
		format:  format,
		shaders: gpucontext.NewRegistry[Shader](),
	}
}

// Register adds or replaces the shader for s.Name.
func (r *Registry) Register(s Shader) {
	if s.EntryPoint == "" {
		s.EntryPoint = DefaultEntryPoint
	}
	if s.Params != nil {
		s.Params = slices.Clone(s.Params)
		slices.SortFunc(s.Params, func(a, b ParamSpec) int { return strings.Compare(a.Name, b.Name) })
	}
	r.shaders.Register(s.Name, func() Shader { return s })
}

// Format returns the output texture format the registry generates for.
func (r *Registry) Format() gpucore.TextureFormat { return r.format }

// Has reports whether a shader is registered for name.
func (r *Registry) Has(name string) bool { return r.shaders.Has(name) }

// Shader returns the shader registered for name.
func (r *Registry) Shader(name string) (Shader, bool) {
	if !r.shaders.Has(name) {
		return Shader{}, false
	}
	s := r.shaders.Get(name)
	return s, s.Name == name
}

// Source returns the WGSL source for name.
func (r *Registry) Source(name string) (string, error) {
	s, ok := r.Shader(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoShader, name)
	}
	return s.Source(r.format)
}

// Category returns the binding category of name. Unknown names are
// standard.
func (r *Registry) Category(name string) Category {
	s, ok := r.Shader(name)
	if !ok {
		return CategoryStandard
	}
	return s.Category
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	names := r.shaders.Available()
	slices.Sort(names)
	return names
}
