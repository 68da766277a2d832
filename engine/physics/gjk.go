package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	gjkMaxIterations = 64
	epaMaxIterations = 64
	epaMaxFaces      = 128
	epaTolerance     = 1e-4
)

// minkowskiVertex is a point of the Minkowski difference A-B together with the two support points
// that produced it, so contact points can be recovered from barycentric weights.
type minkowskiVertex struct {
	p, a, b mgl32.Vec3
}

func minkowskiSupport(a, b *body, dir mgl32.Vec3) minkowskiVertex {
	sa := a.support(dir)
	sb := b.support(dir.Mul(-1))
	return minkowskiVertex{p: sa.Sub(sb), a: sa, b: sb}
}

// penetration describes an overlap found by GJK and EPA. normal points from b toward a.
type penetration struct {
	normal mgl32.Vec3
	depth  float32
	point  mgl32.Vec3
}

// gjkEPA tests two convex bodies for overlap. When they overlap it expands the final GJK simplex
// with EPA to find the minimum translation and a contact point.
func gjkEPA(a, b *body) (penetration, bool) {
	var s [4]minkowskiVertex // s[0] is the newest point, s[1..3] hold the current simplex

	dir := a.center().Sub(b.center())
	if dir.LenSqr() < 1e-12 {
		dir = mgl32.Vec3{1, 0, 0}
	}
	s[2] = minkowskiSupport(a, b, dir)
	dir = s[2].p.Mul(-1)
	s[1] = minkowskiSupport(a, b, dir)
	if s[1].p.Dot(dir) < 0 {
		return penetration{}, false
	}

	cb := s[2].p.Sub(s[1].p)
	dir = cb.Cross(s[1].p.Mul(-1)).Cross(cb)
	if dir.LenSqr() < 1e-12 {
		dir = cb.Cross(mgl32.Vec3{1, 0, 0})
		if dir.LenSqr() < 1e-12 {
			dir = cb.Cross(mgl32.Vec3{0, 0, -1})
		}
	}

	dim := 2
	for iter := 0; iter < gjkMaxIterations; iter++ {
		if dir.LenSqr() < 1e-12 {
			// The origin lies on the simplex boundary: touching, not penetrating.
			return penetration{}, false
		}
		s[0] = minkowskiSupport(a, b, dir)
		if s[0].p.Dot(dir) < 0 {
			return penetration{}, false
		}
		dim++
		if dim == 3 {
			dim, dir = updateTriangle(&s)
			continue
		}
		var enclosed bool
		dim, dir, enclosed = updateTetrahedron(&s)
		if enclosed {
			return epa(a, b, s)
		}
	}
	return penetration{}, false
}

// updateTriangle reduces the triangle s[0],s[1],s[2] to the feature nearest the origin.
// The kept points are written back into s[1..3] with the winding updateTetrahedron expects.
func updateTriangle(s *[4]minkowskiVertex) (int, mgl32.Vec3) {
	a, b, c := s[0], s[1], s[2]
	ab, ac := b.p.Sub(a.p), c.p.Sub(a.p)
	n := ab.Cross(ac)
	ao := a.p.Mul(-1)

	if ab.Cross(n).Dot(ao) > 0 {
		s[2] = a
		return 2, ab.Cross(ao).Cross(ab)
	}
	if n.Cross(ac).Dot(ao) > 0 {
		s[1] = a
		return 2, ac.Cross(ao).Cross(ac)
	}
	if n.Dot(ao) > 0 {
		s[3], s[2], s[1] = c, b, a
		return 3, n
	}
	s[3], s[1] = b, a
	return 3, n.Mul(-1)
}

// updateTetrahedron tests the origin against the three faces that contain the newest point.
// The base face s[1],s[2],s[3] is already known to face the origin.
func updateTetrahedron(s *[4]minkowskiVertex) (int, mgl32.Vec3, bool) {
	a, b, c, d := s[0], s[1], s[2], s[3]
	ab, ac, ad := b.p.Sub(a.p), c.p.Sub(a.p), d.p.Sub(a.p)
	abc := ab.Cross(ac)
	acd := ac.Cross(ad)
	adb := ad.Cross(ab)
	ao := a.p.Mul(-1)

	if abc.Dot(ao) > 0 {
		s[3], s[2], s[1] = c, b, a
		return 3, abc, false
	}
	if acd.Dot(ao) > 0 {
		s[1] = a
		return 3, acd, false
	}
	if adb.Dot(ao) > 0 {
		s[2], s[3], s[1] = d, b, a
		return 3, adb, false
	}
	return 4, mgl32.Vec3{}, true
}

type epaFace struct {
	v      [3]minkowskiVertex
	normal mgl32.Vec3
	dist   float32
}

type epaEdge struct {
	a, b minkowskiVertex
}

func newEPAFace(a, b, c minkowskiVertex) (epaFace, bool) {
	n := b.p.Sub(a.p).Cross(c.p.Sub(a.p))
	l := n.Len()
	if l < 1e-12 {
		return epaFace{}, false
	}
	n = n.Mul(1 / l)
	f := epaFace{v: [3]minkowskiVertex{a, b, c}, normal: n, dist: n.Dot(a.p)}
	if f.dist < 0 {
		// Keep every face wound so its normal points away from the origin.
		f.v[0], f.v[1] = f.v[1], f.v[0]
		f.normal = n.Mul(-1)
		f.dist = -f.dist
	}
	return f, true
}

// epa expands the enclosing tetrahedron toward the boundary of the Minkowski difference until the
// closest face stops moving, then reports that face as the minimum translation.
func epa(a, b *body, s [4]minkowskiVertex) (penetration, bool) {
	faces := make([]epaFace, 0, epaMaxFaces)
	for _, tri := range [4][3]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 1}, {1, 3, 2}} {
		f, ok := newEPAFace(s[tri[0]], s[tri[1]], s[tri[2]])
		if !ok {
			return penetration{}, false
		}
		faces = append(faces, f)
	}
	edges := make([]epaEdge, 0, 32)

	var closest epaFace
	for iter := 0; iter < epaMaxIterations; iter++ {
		closest = faces[0]
		for _, f := range faces[1:] {
			if f.dist < closest.dist {
				closest = f
			}
		}

		p := minkowskiSupport(a, b, closest.normal)
		if p.p.Dot(closest.normal)-closest.dist < epaTolerance {
			return closestFaceContact(closest), true
		}

		edges = edges[:0]
		kept := faces[:0]
		for _, f := range faces {
			if f.normal.Dot(p.p.Sub(f.v[0].p)) > 0 {
				for k := 0; k < 3; k++ {
					edges = addLooseEdge(edges, f.v[k], f.v[(k+1)%3])
				}
				continue
			}
			kept = append(kept, f)
		}
		faces = kept

		for _, e := range edges {
			if len(faces) >= epaMaxFaces {
				break
			}
			if f, ok := newEPAFace(e.a, e.b, p); ok {
				faces = append(faces, f)
			}
		}
		if len(faces) == 0 {
			return penetration{}, false
		}
	}
	return closestFaceContact(closest), true
}

// addLooseEdge records the boundary of the removed faces. An edge shared by two removed faces
// appears in both windings and cancels out.
func addLooseEdge(edges []epaEdge, a, b minkowskiVertex) []epaEdge {
	for i, e := range edges {
		if e.a.p == b.p && e.b.p == a.p {
			edges[i] = edges[len(edges)-1]
			return edges[:len(edges)-1]
		}
	}
	return append(edges, epaEdge{a: a, b: b})
}

// closestFaceContact projects the origin onto the face and maps its barycentric weights back onto
// both bodies' support points. The contact point is the midpoint of the two witnesses.
func closestFaceContact(f epaFace) penetration {
	proj := f.normal.Mul(f.dist)
	u, v, w := barycentric(proj, f.v[0].p, f.v[1].p, f.v[2].p)
	wa := f.v[0].a.Mul(u).Add(f.v[1].a.Mul(v)).Add(f.v[2].a.Mul(w))
	wb := f.v[0].b.Mul(u).Add(f.v[1].b.Mul(v)).Add(f.v[2].b.Mul(w))
	return penetration{
		normal: f.normal.Mul(-1),
		depth:  f.dist,
		point:  wa.Add(wb).Mul(0.5),
	}
}

func barycentric(p, a, b, c mgl32.Vec3) (float32, float32, float32) {
	v0, v1, v2 := b.Sub(a), c.Sub(a), p.Sub(a)
	d00, d01, d11 := v0.Dot(v0), v0.Dot(v1), v1.Dot(v1)
	d20, d21 := v2.Dot(v0), v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math32.Abs(denom) < 1e-12 {
		return 1, 0, 0
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return 1 - v - w, v, w
}
