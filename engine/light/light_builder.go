package light

import "github.com/go-gl/mathgl/mgl32"

// DirectionalLightBuilderOption is a function that configures a DirectionalLight during construction.
type DirectionalLightBuilderOption func(*directionalLightImpl)

// WithPosition sets the point the light shines from.
//
// Parameters:
//   - x, y, z: position components
//
// Returns:
//   - DirectionalLightBuilderOption: a function that applies the position option
func WithPosition(x, y, z float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget sets the point the light shines toward. Defaults to the origin.
//
// Parameters:
//   - x, y, z: target components
//
// Returns:
//   - DirectionalLightBuilderOption: a function that applies the target option
func WithTarget(x, y, z float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.target = mgl32.Vec3{x, y, z}
	}
}

// WithCastsShadows sets whether the light renders a shadow map. Enabled by default.
//
// Parameters:
//   - castsShadows: true to enable shadow casting
//
// Returns:
//   - DirectionalLightBuilderOption: a function that applies the option
func WithCastsShadows(castsShadows bool) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.castsShadows = castsShadows
	}
}

// WithShadowMapResolution sets the shadow depth texture size. Values below 1 keep the default.
//
// Parameters:
//   - texels: width and height in texels
//
// Returns:
//   - DirectionalLightBuilderOption: a function that applies the resolution option
func WithShadowMapResolution(texels int) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		if texels > 0 {
			l.resolution = texels
		}
	}
}

// WithShadowFrustum sets the orthographic half-extent and the near and far planes of the shadow
// camera. Non-positive extents and inverted planes keep the defaults.
//
// Parameters:
//   - halfExtent: half width of the frustum in world units
//   - near, far: clip plane distances from the shadow camera
//
// Returns:
//   - DirectionalLightBuilderOption: a function that applies the frustum option
func WithShadowFrustum(halfExtent, near, far float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		if halfExtent > 0 {
			l.halfExtent = halfExtent
		}
		if near < far {
			l.near, l.far = near, far
		}
	}
}

// WithShadowBias sets the constant depth bias of shadow comparisons.
//
// Parameters:
//   - bias: the bias in clip-space depth units
//
// Returns:
//   - DirectionalLightBuilderOption: a function that applies the bias option
func WithShadowBias(bias float32) DirectionalLightBuilderOption {
	return func(l *directionalLightImpl) {
		l.bias = bias
	}
}
