// Package light holds the scene's shadow-casting directional light and the shadow catcher
// ground plane that receives its shadows.
package light

import (
	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/go-gl/mathgl/mgl32"
)

// directionalLightImpl is the implementation of the DirectionalLight interface.
type directionalLightImpl struct {
	position     mgl32.Vec3
	target       mgl32.Vec3
	castsShadows bool

	resolution int
	halfExtent float32
	distance   float32
	near       float32
	far        float32
	bias       float32
}

// DirectionalLight is a distant light shining from Position toward Target. When it casts
// shadows, the gems are drawn into a depth map through an orthographic camera looking along
// the light direction, and the shadow catcher samples that map.
type DirectionalLight interface {
	// Position returns the point the light shines from. Only the direction to Target matters.
	Position() mgl32.Vec3

	// Target returns the point the light shines toward, the center of the shadow frustum.
	Target() mgl32.Vec3

	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - mgl32.Vec3: the unit direction from Position toward Target, straight down when they coincide
	Direction() mgl32.Vec3

	// CastsShadows returns whether the light renders a shadow map.
	CastsShadows() bool

	// ShadowMapResolution returns the width and height of the shadow depth texture in texels.
	ShadowMapResolution() int

	// ShadowHalfExtent returns the half width of the orthographic shadow frustum in world units.
	ShadowHalfExtent() float32

	// ShadowBias returns the depth bias subtracted before each shadow comparison.
	ShadowBias() float32

	// ViewProjection returns the shadow camera's combined view and orthographic projection,
	// mapping world space to clip space with [0, 1] depth.
	//
	// Returns:
	//   - mgl32.Mat4: the light view-projection matrix
	ViewProjection() mgl32.Mat4

	// SetPosition moves the light, changing its direction.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)
}

var _ DirectionalLight = &directionalLightImpl{}

// NewDirectionalLight creates a shadow-casting light at (5, 5, 5) aimed at the origin, with a
// 20 x 20 unit shadow frustum.
//
// Parameters:
//   - opts: variadic list of DirectionalLightBuilderOption functions to configure the light
//
// Returns:
//   - DirectionalLight: a new light
func NewDirectionalLight(opts ...DirectionalLightBuilderOption) DirectionalLight {
	l := &directionalLightImpl{
		position:     mgl32.Vec3{5, 5, 5},
		castsShadows: true,
		resolution:   ShadowMapResolution,
		halfExtent:   DefaultShadowHalfExtent,
		distance:     DefaultShadowDistance,
		near:         DefaultShadowNear,
		far:          DefaultShadowFar,
		bias:         DefaultShadowBias,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *directionalLightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *directionalLightImpl) Target() mgl32.Vec3 {
	return l.target
}

func (l *directionalLightImpl) Direction() mgl32.Vec3 {
	d := l.target.Sub(l.position)
	if d.Len() < 1e-6 {
		return mgl32.Vec3{0, -1, 0}
	}
	return d.Normalize()
}

func (l *directionalLightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *directionalLightImpl) ShadowMapResolution() int {
	return l.resolution
}

func (l *directionalLightImpl) ShadowHalfExtent() float32 {
	return l.halfExtent
}

func (l *directionalLightImpl) ShadowBias() float32 {
	return l.bias
}

func (l *directionalLightImpl) ViewProjection() mgl32.Mat4 {
	dir := l.Direction()
	eye := l.target.Sub(dir.Mul(l.distance))
	up := mgl32.Vec3{0, 1, 0}
	if d := dir.Dot(up); d > 0.99 || d < -0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(eye, l.target, up)

	var proj mgl32.Mat4
	e := l.halfExtent
	common.Orthographic(proj[:], -e, e, -e, e, l.near, l.far)
	return proj.Mul4(view)
}

func (l *directionalLightImpl) SetPosition(x, y, z float32) {
	l.position = mgl32.Vec3{x, y, z}
}
