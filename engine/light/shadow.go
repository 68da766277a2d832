package light

import "github.com/go-gl/mathgl/mgl32"

// ShadowMapResolution is the default width and height in texels of the shadow depth texture.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units) of the
// directional light's shadow frustum, centered on the light's target.
const DefaultShadowHalfExtent float32 = 10.0

// DefaultShadowDistance is how far behind its target, along the light direction, the shadow
// camera sits.
const DefaultShadowDistance float32 = 30.0

// DefaultShadowNear is the default near plane of the orthographic shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of the orthographic shadow projection.
const DefaultShadowFar float32 = 60.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.002

// ShadowCatcher is an invisible horizontal square that only shows the shadows falling on it.
// Unshadowed points keep the background color; a fully shadowed point is darkened by Opacity.
type ShadowCatcher struct {
	Height   float32 // world-space y of the plane
	HalfSize float32 // the plane spans [-HalfSize, HalfSize] on x and z
	Opacity  float32 // in [0, 1]
}

// DefaultShadowCatcher returns the 100 x 100 plane one unit below the origin at 25% opacity.
//
// Returns:
//   - ShadowCatcher: the default catcher
func DefaultShadowCatcher() ShadowCatcher {
	return ShadowCatcher{Height: -1, HalfSize: 50, Opacity: 0.25}
}

// Intersect returns where a ray meets the catcher, if it does so in front of the origin and
// inside the square.
//
// Parameters:
//   - origin: the ray origin
//   - dir: the ray direction, not necessarily normalized
//
// Returns:
//   - mgl32.Vec3: the hit point
//   - bool: whether the ray hits the catcher
func (c ShadowCatcher) Intersect(origin, dir mgl32.Vec3) (mgl32.Vec3, bool) {
	if dir.Y() > -1e-6 && dir.Y() < 1e-6 {
		return mgl32.Vec3{}, false
	}
	t := (c.Height - origin.Y()) / dir.Y()
	if t <= 0 {
		return mgl32.Vec3{}, false
	}
	hit := origin.Add(dir.Mul(t))
	if hit.X() < -c.HalfSize || hit.X() > c.HalfSize || hit.Z() < -c.HalfSize || hit.Z() > c.HalfSize {
		return mgl32.Vec3{}, false
	}
	return hit, true
}

// Shade darkens the background color by the catcher's opacity times the shadowed fraction.
//
// Parameters:
//   - background: the linear background color
//   - shadowed: 0 for a fully lit point, 1 for a fully shadowed one
//
// Returns:
//   - mgl32.Vec3: the color of the ground point
func (c ShadowCatcher) Shade(background mgl32.Vec3, shadowed float32) mgl32.Vec3 {
	return background.Mul(1 - c.Opacity*shadowed)
}
