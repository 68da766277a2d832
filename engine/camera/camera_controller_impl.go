package camera

import (
	"math"
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraControllerImpl is the implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	target mgl32.Vec3
	eye    mgl32.Vec3

	radius  float32
	azimuth float32
	polar   float32

	minRadius float32
	maxRadius float32
	minPolar  float32
	maxPolar  float32

	// orbitStep is the angle of one keyboard orbit call, rotateSpeed the angle per dragged pixel.
	orbitStep   float32
	rotateSpeed float32
	zoomSpeed   float32

	// autoRotateSpeed is in turns per minute.
	autoRotate      bool
	autoRotateSpeed float32

	// initialEye is resolved against the target once every option has been applied.
	initialEye *mgl32.Vec3
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates an orbit controller.
//
// Defaults: target at the origin, radius 35 at a 45° azimuth just above the horizon, polar
// bounds [0, π], radius bounds [2, 200] and auto-rotate off at one turn per minute.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},

		radius:  35,
		azimuth: -math.Pi / 4,
		polar:   math.Pi/2 - 0.03,

		minRadius: 2,
		maxRadius: 200,
		minPolar:  0,
		maxPolar:  math.Pi,

		orbitStep:   0.03,
		rotateSpeed: 0.005,
		zoomSpeed:   1,

		autoRotateSpeed: 1,
	}

	for _, option := range options {
		option(cc)
	}

	if cc.initialEye != nil {
		cc.setFromEye(*cc.initialEye)
	}
	// The poles themselves are excluded: LookAt with a +Y up vector degenerates there.
	cc.minPolar = math32.Max(cc.minPolar, poleMargin)
	cc.maxPolar = math32.Min(cc.maxPolar, math.Pi-poleMargin)
	if cc.minPolar > cc.maxPolar {
		cc.minPolar = cc.maxPolar
	}
	if cc.minRadius > cc.maxRadius {
		cc.minRadius = cc.maxRadius
	}
	cc.polar = mgl32.Clamp(cc.polar, cc.minPolar, cc.maxPolar)
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)

	cc.updateEye()
	return cc
}

const poleMargin = 1e-3

// autoRotateRate is the azimuth rate, in radians per second, of an auto-rotate speed of 1.
const autoRotateRate = 2 * math.Pi / 60

// setFromEye derives radius, azimuth and polar angle of an eye position around the target.
func (cc *cameraControllerImpl) setFromEye(eye mgl32.Vec3) {
	d := eye.Sub(cc.target)
	r := d.Len()
	if r < 1e-6 {
		return
	}
	cc.radius = r
	cc.azimuth = math32.Atan2(d.X(), d.Z())
	cc.polar = math32.Acos(mgl32.Clamp(d.Y()/r, -1, 1))
}

// updateEye recomputes the eye from the spherical coordinates. Caller must hold the mutex.
func (cc *cameraControllerImpl) updateEye() {
	sinP, cosP := math32.Sincos(cc.polar)
	sinA, cosA := math32.Sincos(cc.azimuth)
	cc.eye = cc.target.Add(mgl32.Vec3{sinP * sinA, cosP, sinP * cosA}.Mul(cc.radius))
}

// orbit adds to the azimuth and polar angle, wrapping one and clamping the other.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) orbit(dAzimuth, dPolar float32) {
	cc.azimuth += dAzimuth
	if cc.azimuth > math.Pi || cc.azimuth < -math.Pi {
		cc.azimuth = math32.Remainder(cc.azimuth, 2*math.Pi)
	}
	cc.polar = mgl32.Clamp(cc.polar+dPolar, cc.minPolar, cc.maxPolar)
	cc.updateEye()
}

func (cc *cameraControllerImpl) Position() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.eye.Elem()
}

func (cc *cameraControllerImpl) Target() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target.Elem()
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) Polar() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.polar
}

func (cc *cameraControllerImpl) PolarBounds() (lo, hi float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minPolar, cc.maxPolar
}

func (cc *cameraControllerImpl) Rotate(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(-dx*cc.rotateSpeed, -dy*cc.rotateSpeed)
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = mgl32.Clamp(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.updateEye()
}

func (cc *cameraControllerImpl) OrbitLeft() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(-cc.orbitStep, 0)
}

func (cc *cameraControllerImpl) OrbitRight() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(cc.orbitStep, 0)
}

func (cc *cameraControllerImpl) OrbitUp() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(0, -cc.orbitStep)
}

func (cc *cameraControllerImpl) OrbitDown() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(0, cc.orbitStep)
}

func (cc *cameraControllerImpl) AutoRotate() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.autoRotate
}

func (cc *cameraControllerImpl) SetAutoRotate(enabled bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.autoRotate = enabled
}

func (cc *cameraControllerImpl) Update(dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.autoRotate || dt <= 0 {
		return
	}
	cc.orbit(-cc.autoRotateSpeed*autoRotateRate*dt, 0)
}
