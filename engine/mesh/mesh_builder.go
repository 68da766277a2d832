package mesh

// MeshBuilderOption is a functional option for configuring a procedural Mesh.
type MeshBuilderOption func(*mesh)

// WithName is an option builder that sets the name of the Mesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithFacets sets the number of table sides. The girdle gets twice as many.
//
// Parameters:
//   - n: table sides, values below 3 are ignored
//
// Returns:
//   - MeshBuilderOption: a function that applies the facet count to a mesh
func WithFacets(n int) MeshBuilderOption {
	return func(m *mesh) {
		if n >= 3 {
			m.facets = n
		}
	}
}

// WithRadius sets the girdle radius. All other proportions scale with it.
//
// Parameters:
//   - r: girdle radius
//
// Returns:
//   - MeshBuilderOption: a function that applies the radius to a mesh
func WithRadius(r float32) MeshBuilderOption {
	return func(m *mesh) {
		if r > 0 {
			m.radius = r
		}
	}
}

// WithProportions sets the cut proportions relative to the girdle radius.
//
// Parameters:
//   - table: table radius over girdle radius, in (0, 1)
//   - crown: crown height over girdle radius
//   - pavilion: pavilion depth over girdle radius
//
// Returns:
//   - MeshBuilderOption: a function that applies the proportions to a mesh
func WithProportions(table, crown, pavilion float32) MeshBuilderOption {
	return func(m *mesh) {
		if table > 0 && table < 1 {
			m.tableRatio = table
		}
		if crown > 0 {
			m.crownHeight = crown
		}
		if pavilion > 0 {
			m.pavilionDepth = pavilion
		}
	}
}
