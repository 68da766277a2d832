package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a Y-up perspective camera whose eye and target come from a CameraController.
// Matrices are recomputed on Update and whenever the projection changes, so every getter
// returns the state of the last recompute.
type Camera interface {
	// Projection returns the perspective parameters.
	//
	// Returns:
	//   - Projection: field of view, aspect and clip planes
	Projection() Projection

	// SetAspect changes the aspect ratio (width / height), typically after a resize.
	//
	// Parameters:
	//   - aspect: the new aspect ratio, ignored unless positive
	SetAspect(aspect float32)

	// View returns the world-to-camera matrix.
	View() mgl32.Mat4

	// InverseView returns the camera-to-world matrix.
	InverseView() mgl32.Mat4

	// ViewProjection returns projection × view.
	ViewProjection() mgl32.Mat4

	// Eye returns the world-space eye position the matrices were built from.
	Eye() mgl32.Vec3

	// Uniform packs the matrices and eye position for GPU upload.
	//
	// Returns:
	//   - GPUCameraUniform: the camera uniform
	Uniform() GPUCameraUniform

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Update advances the controller's auto-rotation by dt seconds and recomputes the
	// matrices from its eye and target. Does nothing without a controller.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)
}

// Projection is a perspective projection with WebGPU [0, 1] depth.
type Projection struct {
	Fov    float32 // vertical field of view in radians
	Aspect float32
	Near   float32
	Far    float32
}

// Matrix returns the projection matrix.
func (p Projection) Matrix() mgl32.Mat4 {
	var m mgl32.Mat4
	common.Perspective(m[:], p.Fov, p.Aspect, p.Near, p.Far)
	return m
}

type cameraImpl struct {
	mu *sync.Mutex

	projection Projection
	controller CameraController

	eye         mgl32.Vec3
	view        mgl32.Mat4
	invView     mgl32.Mat4
	viewProj    mgl32.Mat4
	invViewProj mgl32.Mat4
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with a 15° field of view, clip planes at 0.1 and 500 and a
// square aspect. Without a controller the view is the identity.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu: &sync.Mutex{},
		projection: Projection{
			Fov:    15 * math.Pi / 180,
			Aspect: 1,
			Near:   0.1,
			Far:    500,
		},
		view:    mgl32.Ident4(),
		invView: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.recompute()
	return c
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 {
		return
	}
	c.projection.Aspect = aspect
	c.recompute()
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) InverseView() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invView
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		ViewProj:    c.viewProj,
		InvViewProj: c.invViewProj,
		Eye:         c.eye,
	}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update(dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.controller.Update(dt)
	c.recompute()
}

// recompute rebuilds every matrix from the controller and projection. Caller must hold the mutex.
func (c *cameraImpl) recompute() {
	if c.controller != nil {
		px, py, pz := c.controller.Position()
		tx, ty, tz := c.controller.Target()
		c.eye = mgl32.Vec3{px, py, pz}
		c.view = mgl32.LookAtV(c.eye, mgl32.Vec3{tx, ty, tz}, mgl32.Vec3{0, 1, 0})
		c.invView = c.view.Inv()
	}
	proj := c.projection.Matrix()
	c.viewProj = proj.Mul4(c.view)
	c.invViewProj = c.invView.Mul4(proj.Inv())
}
