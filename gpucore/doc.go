// Package gpucore provides the GPU capability the filtergraph compiler is
// written against.
//
// The [Adapter] interface abstracts the handful of primitive GPU operations a
// compiled filter plan needs: textures and their views, uniform buffers,
// shader modules, bind group layouts, pipeline layouts, compute pipelines and
// bind groups. Resources are referenced through opaque IDs ([TextureID],
// [BufferID], ...), and each adapter keeps the mapping between IDs and the
// real backend objects.
//
//	        +-------------------+
//	        | compiler / render |
//	        +---------+---------+
//	                  |
//	          gpucore.Adapter
//	                  |
//	     +------------+------------+
//	     |                         |
//	+----v-----------+    +--------v-------+
//	| native adapter |    |   test fakes   |
//	|  (hal.Device)  |    | (gpufake, ...) |
//	+----------------+    +----------------+
//
// # Errors
//
// Every failure the compiler can surface is classified by [ErrorKind].
// Errors returned by this module can be tested with [errors.Is] against the
// per-kind sentinels ([ErrUnavailable], [ErrShader], [ErrPipeline],
// [ErrResource], [ErrValidation], [ErrUnsupportedFilter]) or inspected with
// [KindOf].
package gpucore
