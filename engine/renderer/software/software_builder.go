package software

import (
	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/envmap"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBuilderOption is a functional option applied to a software renderer during construction.
type RendererBuilderOption func(*renderer)

// WithSize sets the output size in pixels.
//
// Parameters:
//   - width, height: output dimensions
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.width, r.height = width, height
	}
}

// WithEnvironment sets the radiance map sampled by the gems. Defaults to the procedural studio.
//
// Parameters:
//   - env: the environment map
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithEnvironment(env envmap.EnvironmentMap) RendererBuilderOption {
	return func(r *renderer) {
		r.env = env
	}
}

// WithRefraction sets the material parameters.
//
// Parameters:
//   - p: refraction parameters, validated by NewRenderer
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithRefraction(p refraction.Params) RendererBuilderOption {
	return func(r *renderer) {
		r.params = p
	}
}

// WithBloom sets the post-process parameters.
//
// Parameters:
//   - s: bloom settings, validated by NewRenderer
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithBloom(s bloom.Settings) RendererBuilderOption {
	return func(r *renderer) {
		r.settings = s
	}
}

// WithBackground sets the linear clear color behind the gems.
func WithBackground(c mgl32.Vec3) RendererBuilderOption {
	return func(r *renderer) {
		r.background = c
	}
}

// WithWorkers shades bands of rows on a worker pool. Values below 2 render on the calling goroutine.
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = n
	}
}

// WithLight sets the directional light whose shadows fall on the catcher. Defaults to
// light.NewDirectionalLight().
func WithLight(l light.DirectionalLight) RendererBuilderOption {
	return func(r *renderer) {
		r.light = l
	}
}

// WithShadowCatcher sets the ground plane that shows the shadows. Opacity must lie in [0, 1].
func WithShadowCatcher(c light.ShadowCatcher) RendererBuilderOption {
	return func(r *renderer) {
		r.catcher = c
	}
}
