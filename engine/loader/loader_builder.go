package loader

import (
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithNode selects one node (or, failing that, one mesh) by name instead of merging the whole
// default scene. The node's own transform is not applied.
//
// Parameters:
//   - name: the node or mesh name, e.g. "Diamond_1_0"
//
// Returns:
//   - LoaderBuilderOption: a function that applies the node option to a loader
func WithNode(name string) LoaderBuilderOption {
	return func(l *loader) {
		l.node = name
	}
}

// WithTargetRadius rescales imported geometry so its bounding radius equals r.
// Zero or negative keeps the file's units.
//
// Parameters:
//   - r: the bounding radius after import
//
// Returns:
//   - LoaderBuilderOption: a function that applies the radius option to a loader
func WithTargetRadius(r float32) LoaderBuilderOption {
	return func(l *loader) {
		l.targetRadius = r
	}
}

// WithMesh is an option builder that pre-populates the mesh cache.
//
// Parameters:
//   - key: the cache key for the mesh
//   - m: the mesh to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the mesh option to a loader
func WithMesh(key string, m mesh.Mesh) LoaderBuilderOption {
	return func(l *loader) {
		l.meshCache[key] = m
	}
}
