package refraction

import (
	"fmt"

	"github.com/chewxy/math32"
)

// MaxBounces bounds the internal bounce loop so the WGSL shader can use a fixed loop limit.
const MaxBounces = 16

// Params holds the scalar inputs of the refraction shader.
type Params struct {
	// IOR is the index of refraction of the solid. 1 means no bending.
	IOR float32
	// Bounces is how many internal reflection/refraction events are traced before the
	// environment is sampled. 0 disables transmission entirely.
	Bounces int
	// AberrationStrength splits the traced ray per color channel.
	AberrationStrength float32
	// FresnelBias is the reflectance at normal incidence used by the Schlick term.
	FresnelBias float32
}

// ShaderParameterError is returned when a refraction parameter is outside its valid range.
// It is a startup error: the frame loop never starts with invalid parameters.
type ShaderParameterError struct {
	Field  string
	Value  float32
	Reason string
}

func (e *ShaderParameterError) Error() string {
	return fmt.Sprintf("shader parameter %s=%g: %s", e.Field, e.Value, e.Reason)
}

// DefaultParams returns the parameters of the reference gem material.
//
// Returns:
//   - Params: ior 3, 2 bounces, 0.02 aberration, 0.1 fresnel bias
func DefaultParams() Params {
	return Params{
		IOR:                3,
		Bounces:            2,
		AberrationStrength: 0.02,
		FresnelBias:        0.1,
	}
}

// Validate checks the parameter ranges accepted by both the CPU and the WGSL shader.
//
// Returns:
//   - error: a *ShaderParameterError describing the first invalid field, or nil
func (p Params) Validate() error {
	if !(p.IOR > 0) || math32.IsInf(p.IOR, 0) {
		return &ShaderParameterError{Field: "ior", Value: p.IOR, Reason: "must be a finite value > 0"}
	}
	if p.Bounces < 0 {
		return &ShaderParameterError{Field: "bounces", Value: float32(p.Bounces), Reason: "must be >= 0"}
	}
	if p.Bounces > MaxBounces {
		return &ShaderParameterError{Field: "bounces", Value: float32(p.Bounces), Reason: fmt.Sprintf("must be <= %d", MaxBounces)}
	}
	if !(p.AberrationStrength >= 0) || math32.IsInf(p.AberrationStrength, 0) {
		return &ShaderParameterError{Field: "aberration", Value: p.AberrationStrength, Reason: "must be a finite value >= 0"}
	}
	if !(p.FresnelBias >= 0 && p.FresnelBias <= 1) {
		return &ShaderParameterError{Field: "fresnel", Value: p.FresnelBias, Reason: "must be in [0, 1]"}
	}
	return nil
}
