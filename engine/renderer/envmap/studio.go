package envmap

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Softbox is a rectangular emitter in the studio environment, given in equirect UV space.
type Softbox struct {
	U0, V0, U1, V1 float32
	Radiance       mgl32.Vec3
}

// DefaultSoftboxes are bright enough to push refracted highlights over the default bloom threshold.
var DefaultSoftboxes = []Softbox{
	{U0: 0.10, V0: 0.18, U1: 0.22, V1: 0.34, Radiance: mgl32.Vec3{8, 8, 8}},
	{U0: 0.45, V0: 0.05, U1: 0.60, V1: 0.15, Radiance: mgl32.Vec3{12, 11.5, 11}},
	{U0: 0.72, V0: 0.22, U1: 0.80, V1: 0.40, Radiance: mgl32.Vec3{5, 5.5, 6}},
}

// Studio renders a procedural photo-studio environment: a soft vertical gradient from a grey
// floor to a bright ceiling with a set of rectangular softboxes.
//
// Parameters:
//   - width, height: map dimensions in texels
//   - boxes: emitters to paint over the gradient (nil uses DefaultSoftboxes)
//
// Returns:
//   - *Equirect: the generated map
func Studio(width, height int, boxes []Softbox) *Equirect {
	if boxes == nil {
		boxes = DefaultSoftboxes
	}
	floor := mgl32.Vec3{0.18, 0.18, 0.2}
	horizon := mgl32.Vec3{0.85, 0.85, 0.87}
	ceiling := mgl32.Vec3{1.1, 1.1, 1.15}

	e := NewEquirect(width, height)
	for y := 0; y < height; y++ {
		v := (float32(y) + 0.5) / float32(height)
		elevation := math32.Cos(v * math32.Pi) // +1 at zenith, -1 at nadir
		var c mgl32.Vec3
		if elevation >= 0 {
			c = lerp(horizon, ceiling, elevation)
		} else {
			c = lerp(horizon, floor, math32.Min(1, -elevation*3))
		}
		for x := 0; x < width; x++ {
			u := (float32(x) + 0.5) / float32(width)
			px := c
			for _, b := range boxes {
				if u >= b.U0 && u < b.U1 && v >= b.V0 && v < b.V1 {
					px = b.Radiance
				}
			}
			e.Set(x, y, px)
		}
	}
	return e
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
