package common

import (
	"github.com/chewxy/math32"
)

// Plane is the set of points p with Normal·p + Distance = 0. Points with a positive value lie on
// the inner side.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns Normal·p + Distance, the distance of p from a normalized plane.
func (p Plane) SignedDistance(x, y, z float32) float32 {
	return p.Normal[0]*x + p.Normal[1]*y + p.Normal[2]*z + p.Distance
}

// Frustum is the six inward-facing planes of a view volume, used to skip instances that cannot
// be hit by any view ray.
type Frustum struct {
	Planes [6]Plane
}

// Plane indices into Frustum.Planes.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ExtractFrustumFromMatrix extracts the frustum planes of a column-major view-projection matrix
// whose clip depth runs from 0 at the near plane to w at the far plane, as Perspective produces.
//
// Each plane is a sum or difference of rows of the matrix (Gribb and Hartmann). With 0..1 depth
// the near plane is row 2 alone rather than row 3 + row 2.
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	// Element (row r, column c) lives at c*4 + r.
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var rows [6][4]float32
	for k := 0; k < 4; k++ {
		rows[FrustumLeft][k] = r3[k] + r0[k]
		rows[FrustumRight][k] = r3[k] - r0[k]
		rows[FrustumBottom][k] = r3[k] + r1[k]
		rows[FrustumTop][k] = r3[k] - r1[k]
		rows[FrustumNear][k] = r2[k]
		rows[FrustumFar][k] = r3[k] - r2[k]
	}

	var f Frustum
	for i, v := range rows {
		n := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		if n == 0 {
			n = 1
		}
		f.Planes[i] = Plane{Normal: [3]float32{v[0] / n, v[1] / n, v[2] / n}, Distance: v[3] / n}
	}
	return f
}

// ContainsSphere reports whether a sphere intersects or lies inside the frustum.
// A sphere is rejected only when it is fully behind one of the six planes.
//
// Parameters:
//   - cx, cy, cz: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false if the sphere is entirely outside the frustum
func (f *Frustum) ContainsSphere(cx, cy, cz, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(cx, cy, cz) < -radius {
			return false
		}
	}
	return true
}
