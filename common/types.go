// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds pixel data for a texture pending GPU upload.
// The renderer uses it for the environment radiance map, which is stored as 32-bit float RGBA.
type TextureStagingData struct {
	// Pixels is the raw pixel data in the layout described by Format.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Format is the GPU texture format of Pixels. Zero means wgpu.TextureFormatRGBA8Unorm.
	Format wgpu.TextureFormat
}

// BytesPerPixel returns the size of one texel for the staging format.
//
// Returns:
//   - uint32: bytes per texel
func (t TextureStagingData) BytesPerPixel() uint32 {
	switch t.Format {
	case wgpu.TextureFormatRGBA32Float:
		return 16
	case wgpu.TextureFormatRGBA16Float:
		return 8
	default:
		return 4
	}
}

// Validate checks that the pixel slice matches the declared dimensions.
//
// Returns:
//   - error: error if the dimensions are zero or the pixel count does not match
func (t TextureStagingData) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return fmt.Errorf("texture has zero size %dx%d", t.Width, t.Height)
	}
	want := int(t.Width) * int(t.Height) * int(t.BytesPerPixel())
	if len(t.Pixels) != want {
		return fmt.Errorf("texture pixel data is %d bytes, expected %d", len(t.Pixels), want)
	}
	return nil
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
	// Compare makes a comparison sampler for depth textures. Left undefined for color sampling.
	Compare wgpu.CompareFunction
}
