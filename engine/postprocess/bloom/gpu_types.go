package bloom

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// ShaderSource holds the full-screen bloom passes: fs_threshold, fs_downsample, fs_upsample
// and fs_composite, all driven by vs_fullscreen. Every pass uses the same bind group layout:
// the BloomParams uniform, two source textures and a linear sampler. The struct is injected
// by the shader pre-processor.
//
//go:embed assets/bloom.wgsl
var ShaderSource string

// GPUBloomUniformSource is the canonical WGSL definition of the BloomParams struct.
//
//go:embed assets/bloom_params.wgsl
var GPUBloomUniformSource string

// GPUBloomUniform is the GPU-aligned representation of Settings.
// Matches the WGSL BloomParams struct (16 bytes).
type GPUBloomUniform struct {
	Threshold  float32 // offset  0
	Intensity  float32 // offset  4
	InvLevels  float32 // offset  8: glow normalization, 1 / Levels
	EncodeSRGB uint32  // offset 12: 1 when the composite target is not an sRGB format
}

// NewGPUBloomUniform converts Settings into their GPU layout.
//
// Parameters:
//   - s: validated bloom settings
//   - encodeSRGB: whether the composite pass must gamma-encode its output
//
// Returns:
//   - GPUBloomUniform: the uniform ready to Marshal
func NewGPUBloomUniform(s Settings, encodeSRGB bool) GPUBloomUniform {
	u := GPUBloomUniform{
		Threshold: s.Threshold,
		Intensity: s.Intensity,
		InvLevels: 1 / float32(max(1, s.Levels)),
	}
	if encodeSRGB {
		u.EncodeSRGB = 1
	}
	return u
}

// Size returns the size of the GPUBloomUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUBloomUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform into a little-endian byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUBloomUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.Threshold))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.Intensity))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.InvLevels))
	binary.LittleEndian.PutUint32(buf[12:], g.EncodeSRGB)
	return buf
}

// MipSizes returns the dimensions of every level of the bloom chain for a frame size.
// The GPU renderer allocates its textures from this so both implementations agree.
//
// Parameters:
//   - width, height: level 0 size
//   - levels: number of levels
//
// Returns:
//   - [][2]int: width and height per level
func MipSizes(width, height, levels int) [][2]int {
	sizes := make([][2]int, levels)
	w, h := width, height
	for l := range sizes {
		sizes[l] = [2]int{w, h}
		w = max(1, (w+1)/2)
		h = max(1, (h+1)/2)
	}
	return sizes
}
