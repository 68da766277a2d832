package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - CameraControllerOption: functional option to set the radius
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - CameraControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithPolar sets the initial angle from +Y.
//
// Parameters:
//   - polar: angle in radians (π/2 = on the horizon)
//
// Returns:
//   - CameraControllerOption: functional option to set the polar angle
func WithPolar(polar float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.polar = polar
	}
}

// WithTarget sets the look-at/pivot point.
//
// Parameters:
//   - x, y, z: world-space target position
//
// Returns:
//   - CameraControllerOption: functional option to set the target position
func WithTarget(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = mgl32.Vec3{x, y, z}
	}
}

// WithEyePosition places the eye at a world-space point. Radius, azimuth and polar angle are
// derived from it relative to the target after all options are applied.
//
// Parameters:
//   - x, y, z: world-space eye position
//
// Returns:
//   - CameraControllerOption: functional option to set the eye position
func WithEyePosition(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.initialEye = &mgl32.Vec3{x, y, z}
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - min: minimum zoom distance
//   - max: maximum zoom distance
//
// Returns:
//   - CameraControllerOption: functional option to set radius bounds
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithPolarBounds limits the polar angle, measured from the +Y axis, to [min, max].
// A max of π/2 keeps the eye at or above the target's horizontal plane.
//
// Parameters:
//   - min: smallest polar angle in radians
//   - max: largest polar angle in radians
//
// Returns:
//   - CameraControllerOption: functional option to set the polar bounds
func WithPolarBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minPolar = min
		cc.maxPolar = max
	}
}

// WithOrbitStep sets the angle of one keyboard orbit call.
//
// Parameters:
//   - step: radians per OrbitLeft, OrbitRight, OrbitUp or OrbitDown call
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit step
func WithOrbitStep(step float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitStep = step
	}
}

// WithRotateSpeed sets how far a drag turns the eye.
//
// Parameters:
//   - radiansPerPixel: rotation per dragged pixel
//
// Returns:
//   - CameraControllerOption: functional option to set the drag speed
func WithRotateSpeed(radiansPerPixel float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.rotateSpeed = radiansPerPixel
	}
}

// WithZoomSpeed sets the zoom speed multiplier.
//
// Parameters:
//   - speed: world units per scroll wheel notch
//
// Returns:
//   - CameraControllerOption: functional option to set zoom speed
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}

// WithAutoRotate enables or disables automatic rotation around the target.
func WithAutoRotate(enabled bool) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.autoRotate = enabled
	}
}

// WithAutoRotateSpeed sets the automatic rotation speed, where 1 is one turn per minute.
func WithAutoRotateSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.autoRotateSpeed = speed
	}
}
