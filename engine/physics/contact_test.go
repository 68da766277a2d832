package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

func TestHullManifoldFaceContact(t *testing.T) {
	top := newBody(0, cubeHull(t, 0.3), mgl32.Vec3{0.05, 0.79, 0.02}, mgl32.QuatRotate(0.3, mgl32.Vec3{0, 1, 0}),
		mgl32.Vec3{1, 1, 1}, false, DefaultColliderParams())
	bottom := newBody(1, cubeHull(t, 0.5), mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}, false, DefaultColliderParams())

	var m manifold
	collide(top, bottom, 0, 1, 0, &m)
	if m.n != 4 {
		t.Fatalf("got %d contacts, want the 4 bottom corners of the small cube", m.n)
	}
	for _, c := range m.points[:m.n] {
		if !c.normal.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-3) {
			t.Errorf("normal = %v, want +y", c.normal)
		}
		if !mgl32.FloatEqualThreshold(c.sep, -0.01, 1e-3) {
			t.Errorf("sep = %v, want -0.01", c.sep)
		}
		if c.feature < 0 || int(c.feature) >= len(top.world) {
			t.Errorf("feature %d is not a vertex of the top cube", c.feature)
		}
		if !mgl32.FloatEqualThreshold(c.point.Y(), 0.49, 1e-3) {
			t.Errorf("contact point %v is not on the small cube's bottom face", c.point)
		}
	}
}

func TestHullManifoldSeparated(t *testing.T) {
	a := newBody(0, cubeHull(t, 0.5), mgl32.Vec3{0, 1.2, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}, false, DefaultColliderParams())
	b := newBody(1, cubeHull(t, 0.5), mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}, false, DefaultColliderParams())

	var m manifold
	collide(a, b, 0, 1, 0, &m)
	if m.n != 0 {
		t.Errorf("separated hulls produced %d contacts", m.n)
	}
}

func TestContactFaceHull(t *testing.T) {
	f := contactFace{n: 5}
	f.pt = [maxFacePoints][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 0.5}}
	f.buildHull()
	if f.hullN != 4 {
		t.Fatalf("hull has %d points, want 4", f.hullN)
	}
	if !f.contains([2]float32{0.5, 0.2}, 0) || !f.contains([2]float32{1, 0.5}, 0) {
		t.Error("inside or boundary point reported outside")
	}
	if f.contains([2]float32{1.1, 0.5}, 0) {
		t.Error("outside point reported inside")
	}
	if !f.contains([2]float32{1.05, 0.5}, 0.1) {
		t.Error("slack did not admit a point just outside the edge")
	}

	line := contactFace{n: 3}
	line.pt = [maxFacePoints][2]float32{{0, 0}, {1, 0}, {2, 0}}
	line.buildHull()
	if line.hullN != 0 || line.contains([2]float32{1, 0}, 1) {
		t.Errorf("collinear face built a polygon of %d points", line.hullN)
	}
}

func TestReduceManifoldKeepsOutline(t *testing.T) {
	var cs []contact
	for i := 0; i < 12; i++ {
		x, z := float32(i%4), float32(i/4)
		cs = append(cs, contact{feature: int32(i), point: mgl32.Vec3{x, 0, z}, normal: mgl32.Vec3{0, 1, 0}, sep: -0.001 * float32(i)})
	}

	var m manifold
	reduceManifold(cs, &m)
	if m.n != maxManifoldPoints {
		t.Fatalf("kept %d points, want %d", m.n, maxManifoldPoints)
	}

	kept := map[int32]bool{}
	for _, c := range m.points[:m.n] {
		if kept[c.feature] {
			t.Errorf("feature %d kept twice", c.feature)
		}
		kept[c.feature] = true
	}
	if !kept[11] {
		t.Error("deepest point was dropped")
	}
	for _, corner := range []int32{0, 3, 8, 11} {
		if !kept[corner] {
			t.Errorf("corner %d was dropped", corner)
		}
	}
}

func TestWarmStartMatchesByFeature(t *testing.T) {
	w := NewWorld(WithWorkers(1)).(*world)
	w.contacts = []contact{
		{a: 0, b: 1, feature: 3, normal: mgl32.Vec3{0, 1, 0}, tangent: [2]mgl32.Vec3{{1, 0, 0}, {0, 0, 1}}, lambdaN: 2, lambdaT: [2]float32{0.5, 0}},
		{a: 0, b: 1, feature: 4, lambdaN: 7},
		{a: 2, b: 1, feature: 3, lambdaN: 9},
	}
	w.keepContacts()

	w.contacts = []contact{
		{a: 0, b: 1, feature: 3},
		{a: 0, b: 1, feature: 5},
		{a: 2, b: 1, feature: 3},
	}
	w.matchContacts()

	if got := w.contacts[0]; got.warmN != 2 || got.warmT != (mgl32.Vec3{0.5, 0, 0}) {
		t.Errorf("matched contact warm start = %v %v", got.warmN, got.warmT)
	}
	if got := w.contacts[1]; got.warmN != 0 {
		t.Errorf("new feature inherited impulse %v", got.warmN)
	}
	if got := w.contacts[2]; got.warmN != 9 {
		t.Errorf("other pair warm start = %v, want 9", got.warmN)
	}
}

func TestBoundsOverlap(t *testing.T) {
	unit := ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}}
	tests := []struct {
		name  string
		other ms3.Box
		want  bool
	}{
		{"overlapping", unit.Add(ms3.Vec{X: 0.5, Y: 0.5}), true},
		{"contained", ms3.NewCenteredBox(ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, ms3.Vec{X: 0.1, Y: 0.1, Z: 0.1}), true},
		{"face touching", unit.Add(ms3.Vec{Y: 1}), false},
		{"apart", unit.Add(ms3.Vec{Z: 3}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlaps(unit, tt.other); got != tt.want {
				t.Errorf("overlaps = %v, want %v", got, tt.want)
			}
		})
	}
	if !overlaps(grow(unit, 0.1), unit.Add(ms3.Vec{Y: 1.05})) {
		t.Error("grown bounds missed a box within the margin")
	}
}

func TestHoveringBodyGetsSpeculativeContact(t *testing.T) {
	w := newFloorWorld(t, WithWorkers(1), WithGravity(0, 0, 0)).(*world)
	if _, err := w.CreateBody(cubeHull(t, 0.5), mgl32.Vec3{0, floorTop + 0.51, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}, false, DefaultColliderParams()); err != nil {
		t.Fatal(err)
	}
	if err := w.Step(1.0 / 60.0); err != nil {
		t.Fatal(err)
	}
	if st := w.Stats(); st.Pairs != 1 || st.Contacts != 4 {
		t.Errorf("pairs = %d, contacts = %d; want 1 pair with 4 speculative contacts", st.Pairs, st.Contacts)
	}
}
