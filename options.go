package filtergraph

import (
	"github.com/gogpu/filtergraph/backend/native"
	"github.com/gogpu/filtergraph/gpucore"
	"github.com/gogpu/filtergraph/graph"
	"github.com/gogpu/filtergraph/render"
	"github.com/gogpu/filtergraph/shaders"
	"github.com/gogpu/gputypes"
)

// Option configures an Engine during creation.
//
// Example:
//
//	// Default: Vulkan device, built-in shaders, RGBA8 textures
//	e := filtergraph.New()
//
//	// Float textures and an earlier switch to two-pass blurs
//	e := filtergraph.New(
//		filtergraph.WithTextureFormat(gputypes.TextureFormatRGBA16Float),
//		filtergraph.WithSeparableThreshold(4),
//	)
type Option func(*config)

// config holds the Engine configuration.
type config struct {
	backends              []gputypes.Backend
	opener                render.DeviceOpener
	registry              *shaders.Registry
	format                gpucore.TextureFormat
	compile               shaders.CompileFunc
	pool                  render.PoolConfig
	precompileConcurrency int
	separableThreshold    float64
	rules                 *graph.ExtentRules
}

// defaultConfig returns the default engine configuration.
func defaultConfig() config {
	return config{
		format:  gputypes.TextureFormatRGBA8Unorm,
		compile: shaders.CompileSPIRV,
	}
}

// WithBackends sets the graphics backends tried when opening the device,
// in order of preference. It has no effect together with WithOpener.
func WithBackends(backends ...gputypes.Backend) Option {
	return func(c *config) {
		c.backends = backends
	}
}

// WithOpener replaces the native device opener. Use this for dependency
// injection of an already opened device or a test double.
func WithOpener(open render.DeviceOpener) Option {
	return func(c *config) {
		c.opener = open
	}
}

// WithRegistry replaces the built-in shader registry. The registry's format
// becomes the texture format.
func WithRegistry(r *shaders.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithTextureFormat sets the format of every filter texture. Ignored when
// WithRegistry is given.
func WithTextureFormat(f gpucore.TextureFormat) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithShaderCompiler replaces the WGSL to SPIR-V compiler.
func WithShaderCompiler(compile shaders.CompileFunc) Option {
	return func(c *config) {
		c.compile = compile
	}
}

// WithPoolCapacity bounds the texture pool: perKey textures per size and
// format, total across all keys. Zero keeps the default.
func WithPoolCapacity(perKey, total int) Option {
	return func(c *config) {
		c.pool = render.PoolConfig{PerKeyCapacity: perKey, TotalCapacity: total}
	}
}

// WithPrecompileConcurrency bounds concurrent shader compiles in Warmup.
func WithPrecompileConcurrency(n int) Option {
	return func(c *config) {
		c.precompileConcurrency = n
	}
}

// WithSeparableThreshold sets the blur radius above which blurs run as a
// horizontal and a vertical pass.
func WithSeparableThreshold(radius float64) Option {
	return func(c *config) {
		c.separableThreshold = radius
	}
}

// WithExtentRules replaces the output-extent rules of the graph builder.
func WithExtentRules(rules *graph.ExtentRules) Option {
	return func(c *config) {
		c.rules = rules
	}
}

// deviceOpener returns the configured opener or the native one.
func (c *config) deviceOpener() render.DeviceOpener {
	if c.opener != nil {
		return c.opener
	}
	return native.Opener(native.Config{Backends: c.backends})
}
