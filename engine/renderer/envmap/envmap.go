// Package envmap provides the environment radiance maps sampled by the refraction material.
// Maps are immutable after construction and safe to share across goroutines.
package envmap

import (
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// EnvironmentMap is a read-only radiance lookup by world-space direction.
type EnvironmentMap interface {
	// Sample returns the linear radiance arriving from dir.
	Sample(dir mgl32.Vec3) mgl32.Vec3
}

var (
	_ EnvironmentMap = &Equirect{}
	_ EnvironmentMap = Constant{}
)

// Constant is an environment that returns the same radiance in every direction.
type Constant struct {
	Color mgl32.Vec3
}

func (c Constant) Sample(mgl32.Vec3) mgl32.Vec3 {
	return c.Color
}

// Equirect is a latitude/longitude radiance map stored as linear float RGB.
// Row 0 is the zenith (+Y) and column 0 faces +Z; the horizontal angle grows toward +X.
type Equirect struct {
	Width  int
	Height int
	Pix    []float32 // RGB triples, row-major
}

// NewEquirect allocates a black map of the given size.
//
// Parameters:
//   - width, height: map dimensions in texels (both > 0)
//
// Returns:
//   - *Equirect: the new map
func NewEquirect(width, height int) *Equirect {
	return &Equirect{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*3),
	}
}

// DirectionToUV maps a direction to equirect texture coordinates in [0, 1].
// It matches sample_env in the refraction WGSL.
func DirectionToUV(dir mgl32.Vec3) (u, v float32) {
	d := dir.Normalize()
	u = 0.5 + math32.Atan2(d[0], -d[2])/(2*math32.Pi)
	v = math32.Acos(math32.Max(-1, math32.Min(1, d[1]))) / math32.Pi
	return u, v
}

// UVToDirection is the inverse of DirectionToUV.
func UVToDirection(u, v float32) mgl32.Vec3 {
	theta := v * math32.Pi
	phi := (u - 0.5) * 2 * math32.Pi
	st := math32.Sin(theta)
	return mgl32.Vec3{st * math32.Sin(phi), math32.Cos(theta), -st * math32.Cos(phi)}
}

// Sample returns the nearest texel in the direction dir.
func (e *Equirect) Sample(dir mgl32.Vec3) mgl32.Vec3 {
	u, v := DirectionToUV(dir)
	x := clampInt(int(u*float32(e.Width)), 0, e.Width-1)
	y := clampInt(int(v*float32(e.Height)), 0, e.Height-1)
	i := (y*e.Width + x) * 3
	return mgl32.Vec3{e.Pix[i], e.Pix[i+1], e.Pix[i+2]}
}

// Set writes the radiance of one texel.
func (e *Equirect) Set(x, y int, c mgl32.Vec3) {
	i := (y*e.Width + x) * 3
	e.Pix[i], e.Pix[i+1], e.Pix[i+2] = c[0], c[1], c[2]
}

// Staging converts the map into RGBA32Float texel data for GPU upload.
//
// Returns:
//   - common.TextureStagingData: the texture payload
func (e *Equirect) Staging() common.TextureStagingData {
	buf := make([]byte, e.Width*e.Height*16)
	for i := 0; i < e.Width*e.Height; i++ {
		o := i * 16
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(e.Pix[i*3]))
		binary.LittleEndian.PutUint32(buf[o+4:], math.Float32bits(e.Pix[i*3+1]))
		binary.LittleEndian.PutUint32(buf[o+8:], math.Float32bits(e.Pix[i*3+2]))
		binary.LittleEndian.PutUint32(buf[o+12:], math.Float32bits(1))
	}
	return common.TextureStagingData{
		Pixels: buf,
		Width:  uint32(e.Width),
		Height: uint32(e.Height),
		Format: wgpu.TextureFormatRGBA32Float,
	}
}

// FromImage builds an equirect map from a decoded LDR image. The image is resampled to
// width x height, decoded from sRGB to linear and multiplied by exposure so bright regions
// can exceed 1 and reach the bloom threshold.
//
// Parameters:
//   - img: the source image in equirect layout
//   - width, height: working size of the map
//   - exposure: linear radiance multiplier
//
// Returns:
//   - *Equirect: the converted map
func FromImage(img image.Image, width, height int, exposure float32) *Equirect {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	e := NewEquirect(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := dst.PixOffset(x, y)
			e.Set(x, y, mgl32.Vec3{
				common.SRGBToLinear(float32(dst.Pix[o])/255) * exposure,
				common.SRGBToLinear(float32(dst.Pix[o+1])/255) * exposure,
				common.SRGBToLinear(float32(dst.Pix[o+2])/255) * exposure,
			})
		}
	}
	return e
}

// Load decodes a PNG or JPEG equirect image from disk. See FromImage.
//
// Parameters:
//   - path: the image file
//   - width, height: working size of the map
//   - exposure: linear radiance multiplier
//
// Returns:
//   - *Equirect: the converted map
//   - error: error if the file cannot be opened or decoded
func Load(path string, width, height int, exposure float32) (*Equirect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open environment %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode environment %s: %w", path, err)
	}
	return FromImage(img, width, height, exposure), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
