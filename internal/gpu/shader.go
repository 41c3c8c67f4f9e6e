//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
)

// blendWorkgroup is the side of the square compute workgroup.
const blendWorkgroup = 8

// blend8ShaderSource blends one sample per invocation. Samples are widened
// to u32 on upload so every invocation owns its own word.
const blend8ShaderSource = `
struct Params {
    width: u32,
    height: u32,
    alpha: u32,
    _pad: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<u32>;
@group(0) @binding(2) var<storage, read_write> dst: array<u32>;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.width || id.y >= params.height) {
        return;
    }
    let i = id.y * params.width + id.x;
    let a = params.alpha;
    dst[i] = (dst[i] * (256u - a) + src[i] * a) >> 8u;
}
`

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// compileShader compiles WGSL source to SPIR-V words.
func compileShader(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: %d bytes is not a whole number of words", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if len(code) == 0 || code[0] != spirvMagic {
		return nil, fmt.Errorf("compile shader: output is not SPIR-V")
	}
	return code, nil
}
