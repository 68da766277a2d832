package renderer

import (
	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/envmap"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the gem pass.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.msaa = max(MSAAOff, count)
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithEnvironment sets the radiance map uploaded for the gems. Defaults to the procedural studio.
//
// Parameters:
//   - env: the equirect map
//
// Returns:
//   - RendererBuilderOption: a function that applies the option
func WithEnvironment(env *envmap.Equirect) RendererBuilderOption {
	return func(r *renderer) {
		r.env = env
	}
}

// WithRefraction sets the material parameters, validated by NewRenderer.
func WithRefraction(p refraction.Params) RendererBuilderOption {
	return func(r *renderer) {
		r.params = p
	}
}

// WithBloom sets the post-process parameters, validated by NewRenderer.
func WithBloom(s bloom.Settings) RendererBuilderOption {
	return func(r *renderer) {
		r.settings = s
	}
}

// WithBackground sets the linear clear color of the HDR target.
func WithBackground(c mgl32.Vec3) RendererBuilderOption {
	return func(r *renderer) {
		r.background = c
	}
}

// WithLight sets the directional light whose shadows fall on the catcher plane. Defaults to
// light.NewDirectionalLight(). A light that casts no shadows skips the shadow map pass.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - RendererBuilderOption: a function that applies the light option to a renderer
func WithLight(l light.DirectionalLight) RendererBuilderOption {
	return func(r *renderer) {
		r.light = l
	}
}

// WithShadowCatcher sets the ground plane that shows the shadows. Opacity must lie in [0, 1].
//
// Parameters:
//   - c: the catcher
//
// Returns:
//   - RendererBuilderOption: a function that applies the catcher option to a renderer
func WithShadowCatcher(c light.ShadowCatcher) RendererBuilderOption {
	return func(r *renderer) {
		r.catcher = c
	}
}
