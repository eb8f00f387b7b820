package shaders

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

// CompileFunc turns WGSL source into SPIR-V words.
type CompileFunc func(source string) ([]uint32, error)

// CompileSPIRV compiles WGSL source to SPIR-V with naga.
func CompileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shaders: compile: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shaders: compile: SPIR-V size %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}
