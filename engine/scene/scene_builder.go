package scene

import (
	"github.com/Carmen-Shannon/gemfall/engine/camera"
	"github.com/Carmen-Shannon/gemfall/engine/generator"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/physics"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier used in log output.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCamera replaces the camera built from the config.
//
// Parameters:
//   - cam: the camera to use
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.camera = cam
	}
}

// WithRenderer attaches a renderer at construction.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRenderer(r Renderer) SceneBuilderOption {
	return func(s *scene) {
		s.renderer = r
	}
}

// WithMesh replaces the procedural brilliant-cut gem. The collider is the convex hull of the mesh.
//
// Parameters:
//   - m: the gem mesh
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMesh(m mesh.Mesh) SceneBuilderOption {
	return func(s *scene) {
		s.gem = m
	}
}

// WithGeneratorOptions overrides the generator settings derived from the config.
//
// Parameters:
//   - opts: generator options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGeneratorOptions(opts generator.Options) SceneBuilderOption {
	return func(s *scene) {
		s.genOpts = opts
	}
}

// WithGeneratorCache shares a generator cache, so scenes rebuilt with the same options skip generation.
//
// Parameters:
//   - c: the cache
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGeneratorCache(c *generator.Cache) SceneBuilderOption {
	return func(s *scene) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithWorldOptions appends physics options after the ones derived from the config,
// so they take precedence. They are reapplied on every Reset.
//
// Parameters:
//   - opts: physics world options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorldOptions(opts ...physics.WorldBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.worldOpts = append(s.worldOpts, opts...)
	}
}
