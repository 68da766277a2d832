package physics

import "github.com/go-gl/mathgl/mgl32"

type WorldBuilderOption func(*world)

// WithGravity sets the gravitational acceleration.
//
// Parameters:
//   - x, y, z: acceleration in m/s^2
//
// Returns:
//   - WorldBuilderOption: a function that sets the gravity
func WithGravity(x, y, z float32) WorldBuilderOption {
	return func(w *world) {
		w.gravity = mgl32.Vec3{x, y, z}
	}
}

// WithSubsteps sets how many equal substeps each Step is split into.
//
// Parameters:
//   - n: substep count, values below 1 are ignored
//
// Returns:
//   - WorldBuilderOption: a function that sets the substep count
func WithSubsteps(n int) WorldBuilderOption {
	return func(w *world) {
		if n >= 1 {
			w.substeps = n
		}
	}
}

// WithSolverIterations sets the contact solver iteration budget.
//
// Parameters:
//   - n: iterations per substep, values below 1 are ignored
//
// Returns:
//   - WorldBuilderOption: a function that sets the iteration budget
func WithSolverIterations(n int) WorldBuilderOption {
	return func(w *world) {
		if n >= 1 {
			w.solver.iterations = n
		}
	}
}

// WithSolverTolerance sets the residual, in m/s, above which a solve is reported as diverged.
func WithSolverTolerance(t float32) WorldBuilderOption {
	return func(w *world) {
		w.tolerance = t
	}
}

// WithDamping sets the linear and angular velocity damping rates, in 1/s.
//
// Parameters:
//   - linear: linear damping rate
//   - angular: angular damping rate
//
// Returns:
//   - WorldBuilderOption: a function that sets the damping
func WithDamping(linear, angular float32) WorldBuilderOption {
	return func(w *world) {
		w.linDamping = linear
		w.angDamping = angular
	}
}

// WithSleep sets the speeds below which a body counts as idle and how long it must stay idle
// before it is put to sleep.
//
// Parameters:
//   - linear: linear speed threshold in m/s
//   - angular: angular speed threshold in rad/s
//   - seconds: idle time before sleeping; zero or less disables sleeping
//
// Returns:
//   - WorldBuilderOption: a function that sets the sleep thresholds
func WithSleep(linear, angular, seconds float32) WorldBuilderOption {
	return func(w *world) {
		w.sleepLinear = linear
		w.sleepAngular = angular
		if seconds <= 0 {
			w.sleepLinear, w.sleepAngular = 0, 0
		}
		w.sleepTime = seconds
	}
}

// WithWorkers sets the size of the narrow-phase worker pool. One disables the pool.
func WithWorkers(n int) WorldBuilderOption {
	return func(w *world) {
		w.workers = max(n, 1)
	}
}

// WithWarningHandler replaces the handler that receives solver divergence warnings.
// A nil handler discards them.
func WithWarningHandler(h WarningHandler) WorldBuilderOption {
	return func(w *world) {
		w.onWarn = h
	}
}

// WithRestingDamping sets the extra damping applied to slow bodies held up by a contact. It drains
// the small oscillations a faceted body can keep up while rocking between resting faces.
//
// Parameters:
//   - linear: speed in m/s below which a supported body counts as slow
//   - angular: angular speed in rad/s below which a supported body counts as slow
//   - rate: damping rate in 1/s; zero or less disables it
//
// Returns:
//   - WorldBuilderOption: a function that sets the resting damping
func WithRestingDamping(linear, angular, rate float32) WorldBuilderOption {
	return func(w *world) {
		w.restLinear = linear
		w.restAngular = angular
		w.restDamping = rate
	}
}
