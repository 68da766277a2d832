package loader

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrNodeNotFound is returned when no node or mesh carries the requested name.
var ErrNodeNotFound = errors.New("node not found")

// errNoTriangles is returned when the selected geometry has no triangle primitives.
var errNoTriangles = errors.New("no triangle primitives")

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor flattens glTF mesh primitives into one indexed triangle list.
type gltfMeshExtractor interface {
	// ExtractNode returns the geometry of the node with the given name in the node's own
	// space, ignoring its transform. When no node matches, a mesh of that name is tried.
	//
	// Parameters:
	//   - name: the node or mesh name
	//
	// Returns:
	//   - []mgl32.Vec3: positions
	//   - []uint32: triangle list indices into positions
	//   - error: ErrNodeNotFound, or an error if the geometry cannot be read
	ExtractNode(name string) ([]mgl32.Vec3, []uint32, error)

	// ExtractScene returns every mesh reachable from the default scene, each transformed by
	// its node's world matrix, merged into one triangle list.
	//
	// Returns:
	//   - []mgl32.Vec3: positions
	//   - []uint32: triangle list indices into positions
	//   - error: error if the scene has no triangles or the geometry cannot be read
	ExtractScene() ([]mgl32.Vec3, []uint32, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractNode(name string) ([]mgl32.Vec3, []uint32, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, errors.New("no document loaded")
	}

	meshIndex := -1
	for i := range doc.Nodes {
		if doc.Nodes[i].Name == name && doc.Nodes[i].Mesh != nil {
			meshIndex = *doc.Nodes[i].Mesh
			break
		}
	}
	if meshIndex < 0 {
		for i := range doc.Meshes {
			if doc.Meshes[i].Name == name {
				meshIndex = i
				break
			}
		}
	}
	if meshIndex < 0 {
		return nil, nil, fmt.Errorf("%q: %w", name, ErrNodeNotFound)
	}

	var positions []mgl32.Vec3
	var indices []uint32
	if err := e.appendMesh(meshIndex, mgl32.Ident4(), &positions, &indices); err != nil {
		return nil, nil, err
	}
	if len(indices) == 0 {
		return nil, nil, fmt.Errorf("%q: %w", name, errNoTriangles)
	}
	return positions, indices, nil
}

func (e *gltfMeshExtractorImpl) ExtractScene() ([]mgl32.Vec3, []uint32, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, errors.New("no document loaded")
	}

	var positions []mgl32.Vec3
	var indices []uint32
	visited := make([]bool, len(doc.Nodes))

	var walk func(node int, parent mgl32.Mat4) error
	walk = func(node int, parent mgl32.Mat4) error {
		if node < 0 || node >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", node)
		}
		if visited[node] {
			return fmt.Errorf("node %d is reachable twice", node)
		}
		visited[node] = true

		n := &doc.Nodes[node]
		world := parent.Mul4(gltfNodeMatrix(n))
		if n.Mesh != nil {
			if err := e.appendMesh(*n.Mesh, world, &positions, &indices); err != nil {
				return fmt.Errorf("node %q: %w", n.Name, err)
			}
		}
		for _, child := range n.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range gltfSceneRoots(doc) {
		if err := walk(root, mgl32.Ident4()); err != nil {
			return nil, nil, err
		}
	}
	if len(indices) == 0 {
		return nil, nil, fmt.Errorf("scene: %w", errNoTriangles)
	}
	return positions, indices, nil
}

// appendMesh appends the triangle primitives of a mesh, transformed by m. Points and lines are
// skipped. Primitives without indices are drawn in vertex order.
func (e *gltfMeshExtractorImpl) appendMesh(meshIndex int, m mgl32.Mat4, positions *[]mgl32.Vec3, indices *[]uint32) error {
	doc := e.parser.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	gm := &doc.Meshes[meshIndex]
	for pi := range gm.Primitives {
		prim := &gm.Primitives[pi]
		if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
			continue
		}
		posAccessor, ok := prim.Attributes[gltfAttributePosition]
		if !ok {
			return fmt.Errorf("mesh %q primitive %d has no %s attribute", gm.Name, pi, gltfAttributePosition)
		}

		raw, err := e.parser.ReadVec3Accessor(posAccessor)
		if err != nil {
			return fmt.Errorf("mesh %q primitive %d positions: %w", gm.Name, pi, err)
		}

		var primIndices []uint32
		if prim.Indices != nil {
			primIndices, err = e.parser.ReadIndicesAccessor(*prim.Indices)
			if err != nil {
				return fmt.Errorf("mesh %q primitive %d indices: %w", gm.Name, pi, err)
			}
		} else {
			primIndices = make([]uint32, len(raw))
			for i := range primIndices {
				primIndices[i] = uint32(i)
			}
		}
		if len(primIndices)%3 != 0 {
			return fmt.Errorf("mesh %q primitive %d: %d indices is not a triangle list", gm.Name, pi, len(primIndices))
		}

		base := uint32(len(*positions))
		for _, p := range raw {
			*positions = append(*positions, mgl32.TransformCoordinate(mgl32.Vec3(p), m))
		}
		for _, idx := range primIndices {
			if int(idx) >= len(raw) {
				return fmt.Errorf("mesh %q primitive %d: index %d out of range for %d positions", gm.Name, pi, idx, len(raw))
			}
			*indices = append(*indices, base+idx)
		}
	}
	return nil
}

// gltfNodeMatrix returns the node's local transform. glTF matrices are column-major, as is mgl32.
func gltfNodeMatrix(n *gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}

	m := mgl32.Ident4()
	if n.Translation != nil {
		t := n.Translation
		m = mgl32.Translate3D(t[0], t[1], t[2])
	}
	if n.Rotation != nil {
		r := n.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
		m = m.Mul4(q.Mat4())
	}
	if n.Scale != nil {
		s := n.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

// gltfSceneRoots returns the root nodes of the default scene, the first scene when none is
// marked default, or every parentless node when the file has no scenes.
func gltfSceneRoots(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			s = *doc.Scene
		}
		return doc.Scenes[s].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for i := range doc.Nodes {
		for _, c := range doc.Nodes[i].Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}
