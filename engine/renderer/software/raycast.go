package software

import (
	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/instance_buffer"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// triangle is one world-space gem facet. e1 and e2 are the edges from a.
type triangle struct {
	a, e1, e2 mgl32.Vec3
	normal    mgl32.Vec3
}

// instanceBounds is the world-space bounding sphere of one instance and its slice of triangles.
type instanceBounds struct {
	center mgl32.Vec3
	radius float32
	first  int
	count  int
	color  mgl32.Vec3
}

// ray is a world-space ray with a normalized direction.
type ray struct {
	origin mgl32.Vec3
	dir    mgl32.Vec3
}

// frameGeometry is the flattened geometry of one frame.
type frameGeometry struct {
	tris []triangle
	// casters holds every instance; off-screen gems still shadow the visible ground.
	casters []instanceBounds
	visible []instanceBounds
}

// build transforms every mesh triangle by each instance row. Camera rays only test the instances
// whose bounding sphere touches the frustum. Storage is reused across frames.
func (s *frameGeometry) build(m mesh.Mesh, inst instance_buffer.InstanceBuffer, frustum common.Frustum) {
	s.tris = s.tris[:0]
	s.casters = s.casters[:0]
	s.visible = s.visible[:0]

	triCount := m.TriangleCount()
	colors := inst.Colors()
	for i := 0; i < inst.Len(); i++ {
		row := inst.Row(i)
		center := mgl32.Vec3{row[12], row[13], row[14]}
		sx := mgl32.Vec3{row[0], row[1], row[2]}.Len()
		sy := mgl32.Vec3{row[4], row[5], row[6]}.Len()
		sz := mgl32.Vec3{row[8], row[9], row[10]}.Len()
		radius := m.BoundingRadius() * math32.Max(sx, math32.Max(sy, sz))

		b := instanceBounds{
			center: center,
			radius: radius,
			first:  len(s.tris),
			count:  triCount,
			color:  mgl32.Vec3{colors[i*3], colors[i*3+1], colors[i*3+2]},
		}
		for t := 0; t < triCount; t++ {
			local, _ := m.Triangle(t)
			var w [3]mgl32.Vec3
			for k, p := range local {
				x, y, z, _ := common.TransformPoint(row, p[0], p[1], p[2])
				w[k] = mgl32.Vec3{x, y, z}
			}
			e1, e2 := w[1].Sub(w[0]), w[2].Sub(w[0])
			n := e1.Cross(e2)
			if l := n.Len(); l > 0 {
				n = n.Mul(1 / l)
			}
			s.tris = append(s.tris, triangle{a: w[0], e1: e1, e2: e2, normal: n})
		}
		s.casters = append(s.casters, b)
		if frustum.ContainsSphere(center[0], center[1], center[2], radius) {
			s.visible = append(s.visible, b)
		}
	}
}

// occluded reports whether any instance blocks r.
func (s *frameGeometry) occluded(r ray) bool {
	inf := math32.Inf(1)
	for i := range s.casters {
		b := &s.casters[i]
		if !hitSphere(r, b.center, b.radius, inf) {
			continue
		}
		for k := b.first; k < b.first+b.count; k++ {
			if _, ok := hitTriangle(r, &s.tris[k]); ok {
				return true
			}
		}
	}
	return false
}

// intersect returns the nearest triangle hit along r and the instance it belongs to.
func (s *frameGeometry) intersect(r ray) (t float32, tri *triangle, inst *instanceBounds) {
	t = math32.Inf(1)
	for i := range s.visible {
		b := &s.visible[i]
		if !hitSphere(r, b.center, b.radius, t) {
			continue
		}
		for k := b.first; k < b.first+b.count; k++ {
			if d, ok := hitTriangle(r, &s.tris[k]); ok && d < t {
				t, tri, inst = d, &s.tris[k], b
			}
		}
	}
	return t, tri, inst
}

// hitSphere reports whether r passes through the sphere closer than tMax.
func hitSphere(r ray, c mgl32.Vec3, radius, tMax float32) bool {
	oc := r.origin.Sub(c)
	b := oc.Dot(r.dir)
	cc := oc.Dot(oc) - radius*radius
	disc := b*b - cc
	if disc < 0 {
		return false
	}
	sq := math32.Sqrt(disc)
	return -b+sq >= 0 && -b-sq < tMax
}

// hitTriangle is the Möller–Trumbore test. Both faces count as hits.
func hitTriangle(r ray, tri *triangle) (float32, bool) {
	const eps = 1e-7
	p := r.dir.Cross(tri.e2)
	det := tri.e1.Dot(p)
	if math32.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	tv := r.origin.Sub(tri.a)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := tv.Cross(tri.e1)
	v := r.dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := tri.e2.Dot(q) * inv
	if t <= eps {
		return 0, false
	}
	return t, true
}

// unproject maps a pixel center to a world-space ray through the inverse view-projection.
// Depth runs 0 at the near plane to 1 at the far plane.
func unproject(invViewProj []float32, px, py, width, height int) ray {
	nx := 2*(float32(px)+0.5)/float32(width) - 1
	ny := 1 - 2*(float32(py)+0.5)/float32(height)

	x0, y0, z0, _ := common.TransformPoint(invViewProj, nx, ny, 0)
	x1, y1, z1, _ := common.TransformPoint(invViewProj, nx, ny, 1)
	near := mgl32.Vec3{x0, y0, z0}
	far := mgl32.Vec3{x1, y1, z1}
	return ray{origin: near, dir: far.Sub(near).Normalize()}
}
