// Package filtergraph compiles chains of image filters into GPU compute
// plans.
//
// # Overview
//
// An image is described lazily: a base payload (pixels, a solid color,
// text) followed by named operations such as "gaussianBlur" or
// "sourceOver". Nothing is computed while the chain is built. An Engine
// turns the chain into a directed acyclic graph, compiles every operation
// into one or more compute passes and allocates the textures, uniform
// buffers and bind groups the passes need.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/filtergraph"
//		"github.com/gogpu/filtergraph/chain"
//	)
//
//	e := filtergraph.New()
//	defer e.Close()
//
//	photo := chain.New(chain.ImageSource{Image: img})
//	out := photo.Blurred(12).Over(chain.ConstantColor(chain.Color{A: 1}))
//
//	plan, err := e.Compile(ctx, out, 1024, 768)
//	if err != nil {
//		return err
//	}
//	defer e.Release(plan)
//
// # Architecture
//
// The module is organized into:
//   - chain: immutable image descriptions and operation parameters
//   - graph: the filter graph, its builder and output-extent rules
//   - shaders: the WGSL filter library and its registry
//   - compiler: graph to plan compilation
//   - render: pipeline cache, texture pool and device management
//   - backend/native: device opening on top of gogpu/wgpu HAL
//
// # Logging
//
// The module logs through log/slog and is silent by default. See SetLogger.
//
// # Thread Safety
//
// Engine, the pipeline cache, the texture pool and the device manager are
// safe for concurrent use. Compiled plans are not; each belongs to the
// goroutine that compiled it until it is released.
package filtergraph
