// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render holds the long-lived GPU services the filter compiler
// draws on.
//
//   - [DeviceManager] opens the process GPU device on first use and shares
//     it. Concurrent first callers wait for one initialization.
//   - [PipelineCache] compiles one compute pipeline per operation name and
//     keeps it. Concurrent requests for the same name share one compilation.
//   - [TexturePool] recycles textures by (width, height, format) within
//     fixed per-key and total capacities.
//
// All three are safe for concurrent use and have an explicit reset path:
// [DeviceManager.Reset], [PipelineCache.Clear] and [TexturePool.Clear].
package render
