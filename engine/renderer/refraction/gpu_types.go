package refraction

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// ShaderSource is the WGSL implementation of the refraction material. Its vertex stage reads the
// gem mesh at locations 0-1 and the per-instance model matrix and color at locations 2-6.
// The source carries @gem: annotations and must go through the shader pre-processor.
//
//go:embed assets/refraction.wgsl
var ShaderSource string

// GPURefractionUniformSource is the canonical WGSL definition of the RefractionParams struct.
//
//go:embed assets/refraction_params.wgsl
var GPURefractionUniformSource string

// GPURefractionUniform is the GPU-aligned representation of Params.
// Matches the WGSL RefractionParams struct (16 bytes).
type GPURefractionUniform struct {
	IOR                float32 // offset  0
	Bounces            uint32  // offset  4
	AberrationStrength float32 // offset  8
	FresnelBias        float32 // offset 12
}

// NewGPURefractionUniform converts validated Params into their GPU layout.
//
// Parameters:
//   - p: the shader parameters
//
// Returns:
//   - GPURefractionUniform: the uniform ready to Marshal
func NewGPURefractionUniform(p Params) GPURefractionUniform {
	return GPURefractionUniform{
		IOR:                p.IOR,
		Bounces:            uint32(p.Bounces),
		AberrationStrength: p.AberrationStrength,
		FresnelBias:        p.FresnelBias,
	}
}

// Size returns the size of the GPURefractionUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPURefractionUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform into a little-endian byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPURefractionUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.IOR))
	binary.LittleEndian.PutUint32(buf[4:], g.Bounces)
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.AberrationStrength))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.FresnelBias))
	return buf
}
