// Package mesh holds the static gem geometry shared by every instance: a flat-shaded triangle
// list for drawing and the same positions for building the collision hull.
package mesh

import (
	"fmt"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	name           string
	vertices       []GPUVertex
	indices        []uint32
	positions      []mgl32.Vec3
	boundingRadius float32

	// brilliant cut proportions, relative to the girdle radius
	facets        int
	radius        float32
	tableRatio    float32
	crownHeight   float32
	pavilionDepth float32
}

// Mesh is an immutable triangle mesh. It is safe to share across goroutines once built.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Vertices returns the flat-shaded vertices, three per triangle.
	//
	// Returns:
	//   - []GPUVertex: the vertices
	Vertices() []GPUVertex

	// Indices returns the triangle list indices into Vertices.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// Positions returns the vertex positions aligned with Vertices, suitable for building a
	// convex hull collider together with Indices.
	//
	// Returns:
	//   - []mgl32.Vec3: the positions
	Positions() []mgl32.Vec3

	// Triangle returns the three corners and the face normal of triangle i.
	//
	// Parameters:
	//   - i: triangle index in [0, TriangleCount())
	//
	// Returns:
	//   - [3]mgl32.Vec3: the corners
	//   - mgl32.Vec3: the outward face normal
	Triangle(i int) ([3]mgl32.Vec3, mgl32.Vec3)

	// TriangleCount returns the number of triangles.
	//
	// Returns:
	//   - int: the triangle count
	TriangleCount() int

	// BoundingRadius returns the maximum vertex distance from the origin. Used by culling.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// VertexData returns the vertex buffer bytes.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the index buffer bytes.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// IndexCount returns the number of indices.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int
}

var _ Mesh = &mesh{}

// NewBrilliantCut builds a round brilliant gem centered on the origin with its table facing +Y.
// The stone has a flat octagonal table, a crown sloping down to the girdle, and a pavilion that
// closes at the culet.
//
// Parameters:
//   - options: functional options, see mesh_builder.go
//
// Returns:
//   - Mesh: the gem mesh
func NewBrilliantCut(options ...MeshBuilderOption) Mesh {
	m := &mesh{
		name:          "brilliant",
		facets:        8,
		radius:        0.5,
		tableRatio:    0.55,
		crownHeight:   0.32,
		pavilionDepth: 0.86,
	}
	for _, option := range options {
		option(m)
	}

	n := m.facets
	table := ring(n, m.radius*m.tableRatio, m.radius*m.crownHeight, 0)
	girdle := ring(2*n, m.radius, 0, -0.5)
	top := mgl32.Vec3{0, m.radius * m.crownHeight, 0}
	culet := mgl32.Vec3{0, -m.radius * m.pavilionDepth, 0}

	for k := 0; k < n; k++ {
		k1 := (k + 1) % n
		m.addFace(top, table[k], table[k1])

		g0, g1, g2 := girdle[2*k], girdle[2*k+1], girdle[(2*k+2)%(2*n)]
		m.addFace(table[k], g0, g1)
		m.addFace(table[k], g1, table[k1])
		m.addFace(table[k1], g1, g2)
	}
	for i := 0; i < 2*n; i++ {
		m.addFace(girdle[i], girdle[(i+1)%(2*n)], culet)
	}
	return m
}

// FromPositions builds a flat-shaded mesh from an externally supplied indexed triangle list.
// Triangles are re-wound so their normals face away from the origin, which must lie inside the
// solid.
//
// Parameters:
//   - name: the mesh identifier
//   - positions: vertex positions
//   - indices: triangle list indices into positions
//
// Returns:
//   - Mesh: the mesh
//   - error: error if the index list is malformed or empty
func FromPositions(name string, positions []mgl32.Vec3, indices []uint32) (Mesh, error) {
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("mesh %q: index count %d is not a positive multiple of 3", name, len(indices))
	}
	m := &mesh{name: name}
	for i := 0; i < len(indices); i += 3 {
		var tri [3]mgl32.Vec3
		for k := 0; k < 3; k++ {
			idx := indices[i+k]
			if int(idx) >= len(positions) {
				return nil, fmt.Errorf("mesh %q: index %d out of range for %d positions", name, idx, len(positions))
			}
			tri[k] = positions[idx]
		}
		m.addFace(tri[0], tri[1], tri[2])
	}
	if len(m.indices) == 0 {
		return nil, fmt.Errorf("mesh %q: every triangle is degenerate", name)
	}
	return m, nil
}

// ring returns count points on a horizontal circle. phase is in units of one step.
func ring(count int, radius, y, phase float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, count)
	step := 2 * math32.Pi / float32(count)
	for i := range out {
		a := (float32(i) + phase) * step
		out[i] = mgl32.Vec3{radius * math32.Cos(a), y, radius * math32.Sin(a)}
	}
	return out
}

// addFace appends one flat triangle, flipping it if its normal points toward the origin.
// Degenerate triangles are skipped.
func (m *mesh) addFace(a, b, c mgl32.Vec3) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l < 1e-12 {
		return
	}
	n = n.Mul(1 / l)
	if n.Dot(a.Add(b).Add(c)) < 0 {
		b, c = c, b
		n = n.Mul(-1)
	}

	base := uint32(len(m.vertices))
	for _, p := range [3]mgl32.Vec3{a, b, c} {
		m.vertices = append(m.vertices, GPUVertex{Position: p, Normal: n})
		m.positions = append(m.positions, p)
		m.boundingRadius = math32.Max(m.boundingRadius, p.Len())
	}
	m.indices = append(m.indices, base, base+1, base+2)
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Vertices() []GPUVertex {
	return m.vertices
}

func (m *mesh) Indices() []uint32 {
	return m.indices
}

func (m *mesh) Positions() []mgl32.Vec3 {
	return m.positions
}

func (m *mesh) Triangle(i int) ([3]mgl32.Vec3, mgl32.Vec3) {
	a, b, c := m.indices[3*i], m.indices[3*i+1], m.indices[3*i+2]
	return [3]mgl32.Vec3{m.positions[a], m.positions[b], m.positions[c]}, m.vertices[a].Normal
}

func (m *mesh) TriangleCount() int {
	return len(m.indices) / 3
}

func (m *mesh) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *mesh) VertexData() []byte {
	return common.SliceToBytes(m.vertices)
}

func (m *mesh) IndexData() []byte {
	return common.SliceToBytes(m.indices)
}

func (m *mesh) IndexCount() int {
	return len(m.indices)
}
