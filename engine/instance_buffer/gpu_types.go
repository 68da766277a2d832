package instance_buffer

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// GPUInstanceSource is the WGSL declaration of the per-instance vertex attributes.
//
//go:embed assets/instance.wgsl
var GPUInstanceSource string

// GPUInstance is one row of the transform buffer: a column-major model matrix.
// Size: 64 bytes. Colors live in a separate 12-byte-stride buffer.
type GPUInstance struct {
	Model [16]float32
}

// ColorStride is the byte stride of one instance in the color buffer.
const ColorStride = 12

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance into a little-endian byte buffer.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, 64)
	for i, f := range g.Model {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(f))
	}
	return buf
}

// VertexBufferLayouts describes the transform buffer (slot 1, locations 2-5) and the color buffer
// (slot 2, location 6). Both step once per instance.
//
// Returns:
//   - []wgpu.VertexBufferLayout: the transform and color layouts in slot order
func VertexBufferLayouts() []wgpu.VertexBufferLayout {
	model := make([]wgpu.VertexAttribute, 4)
	for i := range model {
		model[i] = wgpu.VertexAttribute{
			Format:         wgpu.VertexFormatFloat32x4,
			Offset:         uint64(i * 16),
			ShaderLocation: uint32(2 + i),
		}
	}
	return []wgpu.VertexBufferLayout{
		{
			ArrayStride: 64,
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes:  model,
		},
		{
			ArrayStride: ColorStride,
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 6},
			},
		},
	}
}
