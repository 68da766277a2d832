package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the WGSL declaration of CameraUniform, injected by the shader
// pre-processor wherever a shader asks for the camera.
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the camera state shared by both renderers. The WebGPU renderer uploads it
// as-is; the CPU renderer unprojects its primary rays through InvViewProj.
// Size: 144 bytes.
type GPUCameraUniform struct {
	ViewProj    [16]float32 // offset   0
	InvViewProj [16]float32 // offset  64: clip space back to world space
	Eye         [3]float32  // offset 128: world-space eye, the origin of every view ray
	_pad        float32     // offset 140
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform little-endian in WGSL layout.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := 0
	put := func(vs ...float32) {
		for _, v := range vs {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}
	put(g.ViewProj[:]...)
	put(g.InvViewProj[:]...)
	put(g.Eye[:]...)
	return buf
}
