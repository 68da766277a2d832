package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	maxManifoldPoints = 8
	maxCandidates     = 32
	maxFacePoints     = 32

	// featureTolerance is the depth band, relative to the smaller body, within which hull vertices
	// count as part of a contact face.
	featureTolerance = 0.02

	// epaFeature marks the single fallback contact of a hull pair.
	epaFeature int32 = -1 << 30
)

// contact is one solver row set: a normal constraint plus two friction directions.
// normal points from b toward a; sep is negative while the bodies overlap.
type contact struct {
	a, b int
	// feature names the vertex the contact was generated from: an index into a's vertices, or
	// -(index+1) into b's. It matches contacts across substeps for warm starting.
	feature int32
	point   mgl32.Vec3
	normal  mgl32.Vec3
	sep     float32

	ra, rb   mgl32.Vec3
	tangent  [2]mgl32.Vec3
	friction float32

	normalMass  float32
	tangentMass [2]float32
	target      float32
	bias        float32

	lambdaN float32
	lambdaT [2]float32
	lambdaP float32

	// warmN and warmT are the normal and friction impulses of the matching contact from the
	// previous substep.
	warmN float32
	warmT mgl32.Vec3
}

// manifold is the fixed-capacity contact set produced for one pair.
type manifold struct {
	n      int
	points [maxManifoldPoints]contact
}

func (m *manifold) add(c contact) {
	if m.n < maxManifoldPoints {
		m.points[m.n] = c
		m.n++
	}
}

// candidateSet collects contacts before reduction. Once full, a new contact replaces the
// shallowest one if it is deeper.
type candidateSet struct {
	n  int
	cs [maxCandidates]contact
}

func (s *candidateSet) add(c contact) {
	if s.n < maxCandidates {
		s.cs[s.n] = c
		s.n++
		return
	}
	if i := shallowest(s.cs[:]); s.cs[i].sep > c.sep {
		s.cs[i] = c
	}
}

// collide generates contacts for one broad-phase pair.
func collide(a, b *body, ia, ib int, margin float32, out *manifold) {
	out.n = 0
	if b.kind == ShapeKindBox {
		boxManifold(a, b, ia, ib, margin, out)
		return
	}
	hullManifold(a, b, ia, ib, out)
}

// boxManifold tests the vertices of a against the box b. A single face of the box is chosen for
// the whole pair: the one the center of a lies farthest outside of. Every vertex of a within the
// speculative margin of that face's plane and inside its lateral bounds becomes a candidate, and
// the candidates are reduced to at most maxManifoldPoints.
func boxManifold(a, b *body, ia, ib int, margin float32, out *manifold) {
	inv := b.rot.Inverse()
	h := b.half
	c := inv.Rotate(a.center().Sub(b.pos))

	axis, sign := 0, float32(1)
	best := math32.Inf(-1)
	for k := 0; k < 3; k++ {
		for _, s := range [2]float32{-1, 1} {
			if d := s*c[k] - h[k]; d > best {
				best, axis, sign = d, k, s
			}
		}
	}
	var localN mgl32.Vec3
	localN[axis] = sign
	normal := b.rot.Rotate(localN)
	u, v := (axis+1)%3, (axis+2)%3

	var cands candidateSet
	for i, w := range a.world {
		l := inv.Rotate(w.Sub(b.pos))
		sep := sign*l[axis] - h[axis]
		if sep > margin {
			continue
		}
		if math32.Abs(l[u]) > h[u]+margin || math32.Abs(l[v]) > h[v]+margin {
			continue
		}
		cands.add(contact{a: ia, b: ib, feature: int32(i), point: w, normal: normal, sep: sep})
	}
	reduceManifold(cands.cs[:cands.n], out)
}

// hullManifold builds the contacts of two overlapping hulls. EPA supplies the normal. The vertices
// of each hull within a thin band of its extreme plane along that normal form a contact face, and
// every vertex of one face that projects inside the other face becomes a contact. Two edges
// crossing produce no such vertex and keep the single EPA point.
func hullManifold(a, b *body, ia, ib int, out *manifold) {
	p, ok := gjkEPA(a, b)
	if !ok {
		return
	}
	n := p.normal
	t1, t2 := tangentBasis(n)
	tol := featureTolerance * math32.Min(a.extent, b.extent)

	// a lies on the +n side, so its face is its minimum along n and b's is its maximum.
	minA := extremeAlong(a.world, n, -1)
	maxB := extremeAlong(b.world, n, 1)

	var faceA, faceB contactFace
	faceA.collect(a.world, n, t1, t2, minA, tol, -1)
	faceB.collect(b.world, n, t1, t2, maxB, tol, 1)
	faceA.buildHull()
	faceB.buildHull()

	var cands candidateSet
	slack := 0.25 * tol
	for i := 0; i < faceA.n; i++ {
		if !faceB.contains(faceA.pt[i], slack) {
			continue
		}
		w := a.world[faceA.idx[i]]
		cands.add(contact{a: ia, b: ib, feature: int32(faceA.idx[i]), point: w, normal: n, sep: w.Dot(n) - maxB})
	}
	for j := 0; j < faceB.n; j++ {
		if !faceA.contains(faceB.pt[j], slack) {
			continue
		}
		w := b.world[faceB.idx[j]]
		cands.add(contact{a: ia, b: ib, feature: -int32(faceB.idx[j]) - 1, point: w, normal: n, sep: minA - w.Dot(n)})
	}

	if cands.n == 0 {
		out.add(contact{a: ia, b: ib, feature: epaFeature, point: p.point, normal: n, sep: -p.depth})
		return
	}
	reduceManifold(cands.cs[:cands.n], out)
}

// extremeAlong returns the largest (side 1) or smallest (side -1) projection of verts onto n.
func extremeAlong(verts []mgl32.Vec3, n mgl32.Vec3, side float32) float32 {
	best := side * verts[0].Dot(n)
	for _, v := range verts[1:] {
		best = math32.Max(best, side*v.Dot(n))
	}
	return side * best
}

// contactFace is the set of hull vertices near an extreme plane, projected into that plane, and
// the counter-clockwise convex polygon they span.
type contactFace struct {
	n     int
	idx   [maxFacePoints]int
	pt    [maxFacePoints][2]float32
	hullN int
	hull  [maxFacePoints][2]float32
}

func (f *contactFace) collect(verts []mgl32.Vec3, n, t1, t2 mgl32.Vec3, plane, tol, side float32) {
	f.n = 0
	for i, v := range verts {
		if side*v.Dot(n) < side*plane-tol {
			continue
		}
		if f.n == maxFacePoints {
			break
		}
		f.idx[f.n] = i
		f.pt[f.n] = [2]float32{v.Dot(t1), v.Dot(t2)}
		f.n++
	}
}

// buildHull runs a monotone chain over the face points. Faces of fewer than three points, or
// whose points are collinear, get no polygon.
func (f *contactFace) buildHull() {
	f.hullN = 0
	if f.n < 3 {
		return
	}

	var order [maxFacePoints]int
	for i := 0; i < f.n; i++ {
		order[i] = i
	}
	less := func(i, j int) bool {
		p, q := f.pt[i], f.pt[j]
		return p[0] < q[0] || (p[0] == q[0] && p[1] < q[1])
	}
	for i := 1; i < f.n; i++ {
		for j := i; j > 0 && less(order[j], order[j-1]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	var chain [2 * maxFacePoints][2]float32
	k := 0
	for i := 0; i < f.n; i++ {
		p := f.pt[order[i]]
		for k >= 2 && cross2(chain[k-2], chain[k-1], p) <= 0 {
			k--
		}
		chain[k] = p
		k++
	}
	for i, lower := f.n-2, k+1; i >= 0; i-- {
		p := f.pt[order[i]]
		for k >= lower && cross2(chain[k-2], chain[k-1], p) <= 0 {
			k--
		}
		chain[k] = p
		k++
	}

	// The chain ends on its starting point.
	if k-1 < 3 {
		return
	}
	f.hullN = copy(f.hull[:], chain[:k-1])
}

// contains reports whether p lies inside the face polygon or within slack of its boundary.
func (f *contactFace) contains(p [2]float32, slack float32) bool {
	if f.hullN < 3 {
		return false
	}
	for i := 0; i < f.hullN; i++ {
		a, b := f.hull[i], f.hull[(i+1)%f.hullN]
		ex, ey := b[0]-a[0], b[1]-a[1]
		l := math32.Sqrt(ex*ex + ey*ey)
		if l == 0 {
			continue
		}
		if cross2(a, b, p) < -slack*l {
			return false
		}
	}
	return true
}

func cross2(o, a, b [2]float32) float32 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func shallowest(cs []contact) int {
	idx := 0
	for i := range cs {
		if cs[i].sep > cs[idx].sep {
			idx = i
		}
	}
	return idx
}

// reduceManifold keeps the deepest point, the point farthest from it, the point spanning the
// largest triangle with those two and the point farthest outside that triangle. The remaining
// slots go to whichever candidate lies farthest from every point kept so far, so the kept set
// covers the outline of the support region.
func reduceManifold(cs []contact, out *manifold) {
	if len(cs) <= maxManifoldPoints {
		for _, c := range cs {
			out.add(c)
		}
		return
	}

	i0 := 0
	for i := range cs {
		if cs[i].sep < cs[i0].sep {
			i0 = i
		}
	}
	p0 := cs[i0].point

	i1 := farthestContact(cs, func(p mgl32.Vec3) float32 { return p.Sub(p0).LenSqr() })
	p1 := cs[i1].point

	e := p1.Sub(p0)
	i2 := farthestContact(cs, func(p mgl32.Vec3) float32 { return e.Cross(p.Sub(p0)).LenSqr() })
	p2 := cs[i2].point

	n := cs[i0].normal
	if e.Cross(p2.Sub(p0)).Dot(n) < 0 {
		n = n.Mul(-1)
	}
	i3 := farthestContact(cs, func(p mgl32.Vec3) float32 {
		a := p1.Sub(p).Cross(p2.Sub(p)).Dot(n)
		b := p2.Sub(p).Cross(p0.Sub(p)).Dot(n)
		c := p0.Sub(p).Cross(p1.Sub(p)).Dot(n)
		return -math32.Min(a, math32.Min(b, c))
	})

	var picked [maxManifoldPoints]int
	np := 0
	for _, i := range [4]int{i0, i1, i2, i3} {
		dup := false
		for _, j := range picked[:np] {
			if i == j {
				dup = true
				break
			}
		}
		if !dup {
			picked[np] = i
			np++
		}
	}

	for np < maxManifoldPoints {
		best, bestDist := -1, float32(1e-12)
		for i := range cs {
			d := math32.Inf(1)
			for _, j := range picked[:np] {
				d = math32.Min(d, cs[i].point.Sub(cs[j].point).LenSqr())
			}
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			break
		}
		picked[np] = best
		np++
	}

	for _, i := range picked[:np] {
		out.add(cs[i])
	}
}

func farthestContact(cs []contact, score func(mgl32.Vec3) float32) int {
	best, bestScore := 0, score(cs[0].point)
	for i := 1; i < len(cs); i++ {
		if s := score(cs[i].point); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
