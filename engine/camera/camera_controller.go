package camera

// CameraController orbits an eye around a fixed target. The camera reads the eye and target
// from it each update and builds its view matrix from them.
//
// The eye is kept in spherical coordinates relative to the target: a radius, an azimuth around
// +Y measured from +Z, and a polar angle measured down from +Y. The polar angle is clamped to the
// configured bounds on every change, so with bounds [0, π/2] the eye never drops below the
// target's horizontal plane.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - x, y, z: world-space camera position
	Position() (x, y, z float32)

	// Target returns the look-at point.
	//
	// Returns:
	//   - x, y, z: world-space target position
	Target() (x, y, z float32)

	// Radius returns the eye's distance from the target.
	Radius() float32

	// Azimuth returns the horizontal angle in radians, 0 on the +Z side of the target.
	Azimuth() float32

	// Polar returns the angle between +Y and the target-to-eye direction, in radians.
	Polar() float32

	// PolarBounds returns the clamp applied to the polar angle.
	//
	// Returns:
	//   - lo, hi: bounds in radians
	PolarBounds() (lo, hi float32)

	// Rotate applies a pointer drag. Dragging right moves the eye left around the target and
	// dragging down raises it.
	//
	// Parameters:
	//   - dx, dy: drag in pixels
	Rotate(dx, dy float32)

	// Zoom moves the eye toward the target for positive delta, clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: zoom amount in scroll wheel notches
	Zoom(delta float32)

	// OrbitLeft moves the eye one orbit step left around the target.
	OrbitLeft()

	// OrbitRight moves the eye one orbit step right around the target.
	OrbitRight()

	// OrbitUp raises the eye one orbit step, clamped to the polar bounds.
	OrbitUp()

	// OrbitDown lowers the eye one orbit step, clamped to the polar bounds.
	OrbitDown()

	// AutoRotate reports whether the eye circles the target on its own.
	AutoRotate() bool

	// SetAutoRotate enables or disables automatic rotation.
	//
	// Parameters:
	//   - enabled: true to rotate on every Update
	SetAutoRotate(enabled bool)

	// Update advances automatic rotation by dt seconds. Does nothing while auto-rotate is off.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)
}
