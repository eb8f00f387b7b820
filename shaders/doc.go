// Package shaders is the shader registry of the filter compiler.
//
// Every operation name maps to a [Shader]: a WGSL compute body plus its
// binding [Category] and parameter schema. The category fixes the ordered
// bind group layout (inputs, output storage texture, uniform buffer), and the
// registry generates the matching WGSL declarations in front of each body, so
// the layout the compiler binds and the layout the shader declares come from
// the same table.
//
// Per-pass parameters are packed by [EncodeUniforms], which also validates
// them against the schema.
package shaders
