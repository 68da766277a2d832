package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUShadowDataSource is the canonical WGSL definition of the ShadowData struct.
// Matches GPUShadowData layout exactly (96 bytes).
//
//go:embed assets/shadow_data.wgsl
var GPUShadowDataSource string

// ShadowDepthShaderSource draws the instanced gems into the shadow map through the light's
// view-projection. It has a vertex stage only.
//
//go:embed assets/shadow_depth.wgsl
var ShadowDepthShaderSource string

// ShadowCatcherShaderSource is the full-screen pass that intersects every view ray with the
// catcher plane and darkens the background where the shadow map occludes the hit.
//
//go:embed assets/shadow_catcher.wgsl
var ShadowCatcherShaderSource string

// GPUShadowData is the GPU-aligned shadow state shared by the depth and catcher passes.
// Matches the WGSL ShadowData struct layout exactly (see GPUShadowDataSource).
// Size: 96 bytes.
type GPUShadowData struct {
	LightViewProj  [16]float32 // offset  0
	GroundColor    [3]float32  // offset 64: linear background the catcher darkens
	GroundHeight   float32     // offset 76
	GroundHalfSize float32     // offset 80
	Opacity        float32     // offset 84: 0 when the light casts no shadows
	Bias           float32     // offset 88
	TexelSize      float32     // offset 92: 1 / shadow map resolution
}

// NewGPUShadowData packs the light, the catcher and the background into their GPU layout.
//
// Parameters:
//   - l: the shadow-casting light
//   - c: the catcher plane
//   - background: the linear clear color
//
// Returns:
//   - GPUShadowData: the uniform ready to Marshal
func NewGPUShadowData(l DirectionalLight, c ShadowCatcher, background mgl32.Vec3) GPUShadowData {
	g := GPUShadowData{
		LightViewProj:  l.ViewProjection(),
		GroundColor:    background,
		GroundHeight:   c.Height,
		GroundHalfSize: c.HalfSize,
		Bias:           l.ShadowBias(),
		TexelSize:      1 / float32(max(1, l.ShadowMapResolution())),
	}
	if l.CastsShadows() {
		g.Opacity = c.Opacity
	}
	return g
}

// Size returns the size of the GPUShadowData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUShadowData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUShadowData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (g *GPUShadowData) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := 0
	put := func(vs ...float32) {
		for _, v := range vs {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}
	put(g.LightViewProj[:]...)
	put(g.GroundColor[:]...)
	put(g.GroundHeight, g.GroundHalfSize, g.Opacity, g.Bias, g.TexelSize)
	return buf
}
