package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// solver runs sequential impulses over the contacts of one substep. Accumulated impulses are
// clamped per constraint, so the result after every iteration is a valid set of contact forces.
//
// Penetration is corrected on separate pseudo velocities (split impulses). They move bodies apart
// during position integration and are then discarded, so correcting overlap never adds kinetic
// energy.
type solver struct {
	iterations           int
	baumgarte            float32
	linearSlop           float32
	maxCorrection        float32
	restitutionThreshold float32
	// warmStart scales the impulses carried over from the previous substep.
	warmStart float32
}

func invInertia(b *body) mgl32.Mat3 {
	if b.isStatic || b.sleeping {
		return mgl32.Mat3{}
	}
	return b.invInertiaWorld
}

func constraintMass(a, b *body, ra, rb, dir mgl32.Vec3) float32 {
	k := a.effectiveInvMass() + b.effectiveInvMass()
	k += invInertia(a).Mul3x1(ra.Cross(dir)).Cross(ra).Dot(dir)
	k += invInertia(b).Mul3x1(rb.Cross(dir)).Cross(rb).Dot(dir)
	if k <= 0 {
		return 0
	}
	return 1 / k
}

// prepare computes lever arms, effective masses and targets for every contact, then applies the
// warm-start impulses. Targets are computed first so restitution sees the approach velocity from
// before any impulse.
func (s *solver) prepare(bodies []*body, contacts []contact, h float32) {
	for i := range contacts {
		c := &contacts[i]
		a, b := bodies[c.a], bodies[c.b]
		c.ra = c.point.Sub(a.pos)
		c.rb = c.point.Sub(b.pos)
		c.tangent[0], c.tangent[1] = tangentBasis(c.normal)

		c.normalMass = constraintMass(a, b, c.ra, c.rb, c.normal)
		c.tangentMass[0] = constraintMass(a, b, c.ra, c.rb, c.tangent[0])
		c.tangentMass[1] = constraintMass(a, b, c.ra, c.rb, c.tangent[1])
		c.friction = 0.5 * (a.friction + b.friction)
		c.lambdaP = 0

		vn := a.velocityAt(c.ra).Sub(b.velocityAt(c.rb)).Dot(c.normal)
		c.target = 0
		if c.sep > 0 {
			// Speculative: the bodies may approach until they just touch.
			c.target = -c.sep / h
		}
		if vn < -s.restitutionThreshold && -vn*h >= c.sep {
			e := 0.5 * (a.restitution + b.restitution)
			c.target = math32.Max(c.target, -e*vn)
		}

		c.bias = 0
		if c.sep < -s.linearSlop {
			c.bias = math32.Min(s.baumgarte*(-c.sep-s.linearSlop)/h, s.maxCorrection)
		}
	}

	for i := range contacts {
		c := &contacts[i]
		a, b := bodies[c.a], bodies[c.b]
		c.lambdaN = s.warmStart * c.warmN
		limit := c.friction * c.lambdaN
		for t := 0; t < 2; t++ {
			c.lambdaT[t] = mgl32.Clamp(s.warmStart*c.warmT.Dot(c.tangent[t]), -limit, limit)
		}
		imp := c.normal.Mul(c.lambdaN).Add(c.tangent[0].Mul(c.lambdaT[0])).Add(c.tangent[1].Mul(c.lambdaT[1]))
		a.applyImpulse(imp, c.ra)
		b.applyImpulse(imp.Mul(-1), c.rb)
	}
}

func (s *solver) iterate(bodies []*body, contacts []contact) {
	for i := range contacts {
		c := &contacts[i]
		a, b := bodies[c.a], bodies[c.b]

		for t := 0; t < 2; t++ {
			vrel := a.velocityAt(c.ra).Sub(b.velocityAt(c.rb))
			d := -c.tangentMass[t] * vrel.Dot(c.tangent[t])
			limit := c.friction * c.lambdaN
			old := c.lambdaT[t]
			c.lambdaT[t] = math32.Max(-limit, math32.Min(old+d, limit))
			d = c.lambdaT[t] - old
			imp := c.tangent[t].Mul(d)
			a.applyImpulse(imp, c.ra)
			b.applyImpulse(imp.Mul(-1), c.rb)
		}

		vn := a.velocityAt(c.ra).Sub(b.velocityAt(c.rb)).Dot(c.normal)
		d := c.normalMass * (c.target - vn)
		old := c.lambdaN
		c.lambdaN = math32.Max(old+d, 0)
		d = c.lambdaN - old
		imp := c.normal.Mul(d)
		a.applyImpulse(imp, c.ra)
		b.applyImpulse(imp.Mul(-1), c.rb)
	}
}

// solve runs the iteration budget and returns the largest remaining normal velocity error.
func (s *solver) solve(bodies []*body, contacts []contact) float32 {
	for it := 0; it < s.iterations; it++ {
		s.iterate(bodies, contacts)
	}
	return s.residual(bodies, contacts)
}

// solvePositions drives the pseudo velocities toward the correction speed of every overlapping
// contact. The same iteration budget applies.
func (s *solver) solvePositions(bodies []*body, contacts []contact) {
	for it := 0; it < s.iterations; it++ {
		for i := range contacts {
			c := &contacts[i]
			if c.sep > 0 {
				continue
			}
			a, b := bodies[c.a], bodies[c.b]
			vn := a.pseudoVelocityAt(c.ra).Sub(b.pseudoVelocityAt(c.rb)).Dot(c.normal)
			d := c.normalMass * (c.bias - vn)
			old := c.lambdaP
			c.lambdaP = math32.Max(old+d, 0)
			d = c.lambdaP - old
			imp := c.normal.Mul(d)
			a.applyPseudoImpulse(imp, c.ra)
			b.applyPseudoImpulse(imp.Mul(-1), c.rb)
		}
	}
}

// residual measures how far the normal constraints are from satisfied: an active contact should sit
// exactly on its target, an inactive one at or above it.
func (s *solver) residual(bodies []*body, contacts []contact) float32 {
	var worst float32
	for i := range contacts {
		c := &contacts[i]
		a, b := bodies[c.a], bodies[c.b]
		if c.normalMass == 0 {
			continue
		}
		err := c.target - a.velocityAt(c.ra).Sub(b.velocityAt(c.rb)).Dot(c.normal)
		if c.lambdaN > 0 {
			err = math32.Abs(err)
		}
		worst = math32.Max(worst, err)
	}
	return worst
}

// tangentBasis returns two unit vectors orthogonal to n and to each other.
func tangentBasis(n mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	ref := mgl32.Vec3{1, 0, 0}
	if math32.Abs(n[0]) > 0.57 {
		ref = mgl32.Vec3{0, 1, 0}
	}
	t1 := n.Cross(ref).Normalize()
	return t1, n.Cross(t1)
}

func clampLength(v mgl32.Vec3, max float32) mgl32.Vec3 {
	if l := v.Len(); l > max {
		return v.Mul(max / l)
	}
	return v
}
