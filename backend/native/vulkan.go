//go:build linux || windows || darwin

package native

import _ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan backend
