// Package compiler turns filter graphs into GPU execution plans.
//
// A Compiler walks a graph.Graph in execution order. Every node output gets
// an output-sized texture from a render.TexturePool, every operation gets
// its pipeline from a render.PipelineCache, and separable blurs with a large
// radius are split into a horizontal and a vertical pass. Each pass carries
// a uniform buffer with its encoded parameters and a bind group laid out by
// its shaders.Category.
//
// The resulting CompiledGraph owns its textures, bind groups and uniform
// buffers until Release.
package compiler
