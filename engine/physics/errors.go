package physics

import (
	"fmt"
	"log"
)

// InvalidShapeError is returned by CreateBody and the shape constructors when a collision shape is
// missing or has degenerate geometry. It is fatal at startup.
type InvalidShapeError struct {
	Reason string
}

func (e *InvalidShapeError) Error() string {
	return "invalid collision shape: " + e.Reason
}

func invalidShape(format string, args ...any) *InvalidShapeError {
	return &InvalidShapeError{Reason: fmt.Sprintf(format, args...)}
}

// SolverDivergenceWarning reports that the contact solver did not converge within its iteration
// budget. The step still completes: correction velocities are clamped and the simulation continues.
type SolverDivergenceWarning struct {
	// Step is the world step counter at which the warning was raised.
	Step uint64
	// Residual is the largest remaining normal velocity error in m/s.
	Residual float32
	// Iterations is the iteration budget that was exhausted.
	Iterations int
	// Contacts is the number of contacts in the failing solve.
	Contacts int
}

func (w *SolverDivergenceWarning) Error() string {
	return fmt.Sprintf("contact solver did not converge at step %d: residual %.4f m/s after %d iterations over %d contacts",
		w.Step, w.Residual, w.Iterations, w.Contacts)
}

// WarningHandler receives solver warnings. It is called synchronously from Step.
type WarningHandler func(w *SolverDivergenceWarning)

// LogWarnings returns the default handler. It logs the first warning and then at most one
// warning per interval steps, with the number suppressed in between.
//
// Parameters:
//   - interval: minimum number of steps between two log lines
//
// Returns:
//   - WarningHandler: the logging handler
func LogWarnings(interval uint64) WarningHandler {
	var last uint64
	var logged bool
	suppressed := 0
	return func(w *SolverDivergenceWarning) {
		if logged && w.Step-last < interval {
			suppressed++
			return
		}
		if suppressed > 0 {
			log.Printf("[Physics] %v (%d similar warnings suppressed)", w, suppressed)
		} else {
			log.Printf("[Physics] %v", w)
		}
		last = w.Step
		logged = true
		suppressed = 0
	}
}
