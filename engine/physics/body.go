package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

// BodyID identifies a body for the lifetime of its world. IDs are assigned densely from zero in
// creation order and are never reused.
type BodyID int

// ColliderParams are the fixed surface and mass parameters of a body.
type ColliderParams struct {
	Friction    float32
	Restitution float32
	// Density is mass per unit volume. It is ignored for static bodies.
	Density float32
}

// DefaultColliderParams returns the material used for the gems.
func DefaultColliderParams() ColliderParams {
	return ColliderParams{Friction: 0.5, Restitution: 0.1, Density: 1}
}

type body struct {
	id    BodyID
	shape Shape
	kind  ShapeKind

	// local holds the shape vertices with the body scale applied; world is rebuilt from it.
	local []mgl32.Vec3
	world []mgl32.Vec3
	half  mgl32.Vec3 // scaled half-extents, boxes only
	aabb  ms3.Box
	// bounds is aabb grown by the speculative reach of the current substep; the broad phase pairs on it.
	bounds ms3.Box
	// extent is the largest scaled dimension of the shape.
	extent float32

	pos   mgl32.Vec3
	rot   mgl32.Quat
	scale mgl32.Vec3

	vel    mgl32.Vec3
	angVel mgl32.Vec3

	// biasVel and biasAngVel carry the position correction of one substep. They move the body but
	// are never added to its momentum.
	biasVel    mgl32.Vec3
	biasAngVel mgl32.Vec3

	invMass         float32
	invInertiaLocal mgl32.Vec3
	invInertiaWorld mgl32.Mat3

	friction    float32
	restitution float32

	isStatic  bool
	sleeping  bool
	supported bool
	idleTime  float32
	// motion is a low-passed measure of speed relative to the sleep thresholds.
	motion float32
}

// maxMotion caps the filtered motion so a body that stops after a fast fall can still fall
// asleep promptly. New and woken bodies start at the cap.
const maxMotion = 10

func newBody(id BodyID, shape Shape, pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3, isStatic bool, params ColliderParams) *body {
	b := &body{
		id:          id,
		shape:       shape,
		kind:        shape.Kind(),
		pos:         pos,
		rot:         rot.Normalize(),
		scale:       scale,
		friction:    params.Friction,
		restitution: params.Restitution,
		isStatic:    isStatic,
		motion:      maxMotion,
	}

	verts := shape.Vertices()
	b.local = make([]mgl32.Vec3, len(verts))
	for i, v := range verts {
		b.local[i] = mulElem(v, scale)
	}
	b.world = make([]mgl32.Vec3, len(verts))
	if box, ok := shape.(*Box); ok {
		b.half = mulElem(box.HalfExtents, scale)
	}
	e := mulElem(shape.Extents(), scale)
	b.extent = math32.Max(e[0], math32.Max(e[1], e[2]))

	if !isStatic {
		mass := params.Density * shape.Volume() * scale[0] * scale[1] * scale[2]
		ix := mass / 12 * (e[1]*e[1] + e[2]*e[2])
		iy := mass / 12 * (e[0]*e[0] + e[2]*e[2])
		iz := mass / 12 * (e[0]*e[0] + e[1]*e[1])
		b.invMass = 1 / mass
		b.invInertiaLocal = mgl32.Vec3{1 / ix, 1 / iy, 1 / iz}
	}

	b.refresh()
	b.bounds = b.aabb
	return b
}

// refresh rebuilds the world-space vertices, bounding box and world inverse inertia from the
// current position and orientation.
func (b *body) refresh() {
	for i, v := range b.local {
		w := b.pos.Add(b.rot.Rotate(v))
		b.world[i] = w
		if i == 0 {
			b.aabb = ms3.Box{Min: toMS3(w), Max: toMS3(w)}
			continue
		}
		b.aabb = b.aabb.IncludePoint(toMS3(w))
	}

	if b.invMass > 0 {
		r := b.rot.Mat4().Mat3()
		b.invInertiaWorld = r.Mul3(mgl32.Diag3(b.invInertiaLocal)).Mul3(r.Transpose())
	}
}

// effectiveInvMass reports the inverse mass the solver sees. Sleeping bodies act as static.
func (b *body) effectiveInvMass() float32 {
	if b.isStatic || b.sleeping {
		return 0
	}
	return b.invMass
}

func (b *body) applyImpulse(impulse, r mgl32.Vec3) {
	if b.isStatic || b.sleeping {
		return
	}
	b.vel = b.vel.Add(impulse.Mul(b.invMass))
	b.angVel = b.angVel.Add(b.invInertiaWorld.Mul3x1(r.Cross(impulse)))
}

func (b *body) velocityAt(r mgl32.Vec3) mgl32.Vec3 {
	return b.vel.Add(b.angVel.Cross(r))
}

func (b *body) applyPseudoImpulse(impulse, r mgl32.Vec3) {
	if b.isStatic || b.sleeping {
		return
	}
	b.biasVel = b.biasVel.Add(impulse.Mul(b.invMass))
	b.biasAngVel = b.biasAngVel.Add(b.invInertiaWorld.Mul3x1(r.Cross(impulse)))
}

func (b *body) pseudoVelocityAt(r mgl32.Vec3) mgl32.Vec3 {
	return b.biasVel.Add(b.biasAngVel.Cross(r))
}

func (b *body) wake() {
	b.sleeping = false
	b.idleTime = 0
	b.motion = maxMotion
}

// support returns the world vertex farthest along dir.
func (b *body) support(dir mgl32.Vec3) mgl32.Vec3 {
	best := b.world[0]
	bestDot := best.Dot(dir)
	for _, v := range b.world[1:] {
		if d := v.Dot(dir); d > bestDot {
			best, bestDot = v, d
		}
	}
	return best
}

// lowest returns the minimum world-space y over the body's vertices.
func (b *body) lowest() float32 {
	y := b.world[0][1]
	for _, v := range b.world[1:] {
		y = math32.Min(y, v[1])
	}
	return y
}

func (b *body) center() mgl32.Vec3 {
	c := b.aabb.Center()
	return mgl32.Vec3{c.X, c.Y, c.Z}
}

func toMS3(v mgl32.Vec3) ms3.Vec {
	return ms3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// grow returns box expanded by margin on every side.
func grow(box ms3.Box, margin float32) ms3.Box {
	return ms3.Box{Min: ms3.AddScalar(-margin, box.Min), Max: ms3.AddScalar(margin, box.Max)}
}

// overlaps reports whether two boxes share a region of positive volume.
func overlaps(a, b ms3.Box) bool {
	return !a.Intersect(b).Empty()
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
