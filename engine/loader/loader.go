package loader

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	node         string
	targetRadius float32

	meshCache map[string]mesh.Mesh
}

// Loader imports gem geometry from glTF 2.0 files (.gltf or .glb) and caches the resulting meshes.
//
// Imported geometry is recentred on its bounding box so the origin lies inside the solid, then
// optionally rescaled to a target bounding radius. Only positions and triangle indices are read;
// the gem is flat shaded, so normals, UVs and materials in the file are ignored.
type Loader interface {
	// Load imports a mesh from a file and caches it by path. A cached mesh is returned as is.
	//
	// Parameters:
	//   - path: the .gltf or .glb file path
	//
	// Returns:
	//   - mesh.Mesh: the imported mesh
	//   - error: error if the file cannot be parsed or holds no usable geometry
	Load(path string) (mesh.Mesh, error)

	// LoadReader imports a mesh from a reader and caches it by name.
	//
	// Parameters:
	//   - name: the cache key and mesh name
	//   - r: the reader providing the file contents
	//   - isGLB: true if the reader provides a GLB container
	//
	// Returns:
	//   - mesh.Mesh: the imported mesh
	//   - error: error if parsing fails or the geometry is unusable
	LoadReader(name string, r io.Reader, isGLB bool) (mesh.Mesh, error)

	// Get retrieves a cached mesh by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - mesh.Mesh: the cached mesh or nil
	Get(name string) mesh.Mesh

	// Meshes returns a copy of the mesh cache.
	//
	// Returns:
	//   - map[string]mesh.Mesh: all cached meshes keyed by name
	Meshes() map[string]mesh.Mesh
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the given options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:        sync.RWMutex{},
		meshCache: make(map[string]mesh.Mesh),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (mesh.Mesh, error) {
	if m := l.Get(path); m != nil {
		return m, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gltf" && ext != ".glb" {
		return nil, fmt.Errorf("unsupported mesh format %q", ext)
	}

	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := l.build(parser, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	l.store(path, m)
	log.Printf("[Loader] %s: %d triangles, bounding radius %.3f", path, m.TriangleCount(), m.BoundingRadius())
	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (mesh.Mesh, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	m, err := l.build(parser, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	l.store(name, m)
	return m, nil
}

func (l *loader) Get(name string) mesh.Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meshCache[name]
}

func (l *loader) Meshes() map[string]mesh.Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]mesh.Mesh, len(l.meshCache))
	for k, v := range l.meshCache {
		out[k] = v
	}
	return out
}

func (l *loader) store(name string, m mesh.Mesh) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.meshCache[name] = m
}

// build extracts the configured node (or the whole scene), normalizes it and builds the mesh.
func (l *loader) build(parser gltfParser, name string) (mesh.Mesh, error) {
	extractor := newGLTFMeshExtractor(parser)

	var positions []mgl32.Vec3
	var indices []uint32
	var err error
	if l.node != "" {
		positions, indices, err = extractor.ExtractNode(l.node)
		name = l.node
	} else {
		positions, indices, err = extractor.ExtractScene()
	}
	if err != nil {
		return nil, err
	}

	normalize(positions, l.targetRadius)
	return mesh.FromPositions(name, positions, indices)
}

// normalize moves the bounding box centre to the origin and, when targetRadius is positive,
// scales the points so the farthest lies at targetRadius.
func normalize(positions []mgl32.Vec3, targetRadius float32) {
	if len(positions) == 0 {
		return
	}

	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], p[k])
			hi[k] = math32.Max(hi[k], p[k])
		}
	}
	center := lo.Add(hi).Mul(0.5)

	var radius float32
	for i := range positions {
		positions[i] = positions[i].Sub(center)
		radius = math32.Max(radius, positions[i].Len())
	}

	if targetRadius <= 0 || radius == 0 {
		return
	}
	s := targetRadius / radius
	for i := range positions {
		positions[i] = positions[i].Mul(s)
	}
}
