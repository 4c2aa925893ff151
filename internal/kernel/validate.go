package kernel

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate compiles the generated shader to SPIR-V with naga and returns
// the module. It catches generator bugs before a device sees the source.
func (p *Program) Validate() ([]byte, error) {
	spirv, err := naga.Compile(p.wgsl)
	if err != nil {
		return nil, fmt.Errorf("kernel: compile flame shader: %w", err)
	}
	return spirv, nil
}
