package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func clip(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	c := m.Mul4x1(p.Vec4(1))
	return c.Vec3().Mul(1 / c.W())
}

func TestDefaultLightShinesTowardOrigin(t *testing.T) {
	l := NewDirectionalLight()
	want := mgl32.Vec3{-1, -1, -1}.Normalize()
	if !l.Direction().ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("direction = %v, want %v", l.Direction(), want)
	}
	if !l.CastsShadows() || l.ShadowMapResolution() != ShadowMapResolution {
		t.Errorf("casts = %v, resolution = %d", l.CastsShadows(), l.ShadowMapResolution())
	}
}

func TestViewProjectionFramesTarget(t *testing.T) {
	l := NewDirectionalLight(WithPosition(5, 5, 5), WithTarget(0, 0, 0))
	vp := l.ViewProjection()

	c := clip(vp, mgl32.Vec3{})
	if math.Abs(float64(c.X())) > 1e-5 || math.Abs(float64(c.Y())) > 1e-5 {
		t.Errorf("target maps to %v, want the center of the map", c)
	}
	if c.Z() <= 0 || c.Z() >= 1 {
		t.Errorf("target depth = %v, want inside (0, 1)", c.Z())
	}

	// A point further along the light direction is deeper.
	behind := clip(vp, l.Direction().Mul(2))
	if behind.Z() <= c.Z() {
		t.Errorf("depth along the light = %v, want more than %v", behind.Z(), c.Z())
	}

	// Points across the frustum edge leave the [-1, 1] square.
	side := l.Direction().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	edge := clip(vp, side.Mul(DefaultShadowHalfExtent*1.01))
	if math.Abs(float64(edge.X())) <= 1 && math.Abs(float64(edge.Y())) <= 1 {
		t.Errorf("point past the half-extent maps inside the map: %v", edge)
	}
}

func TestStraightDownLightHasValidView(t *testing.T) {
	l := NewDirectionalLight(WithPosition(0, 10, 0))
	vp := l.ViewProjection()
	for i, v := range vp {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("element %d = %v", i, v)
		}
	}
	if c := clip(vp, mgl32.Vec3{}); math.Abs(float64(c.X())) > 1e-5 {
		t.Errorf("target maps to %v", c)
	}
}

func TestShadowFrustumOptionKeepsDefaultsForInvalidValues(t *testing.T) {
	l := NewDirectionalLight(WithShadowFrustum(-1, 5, 1), WithShadowMapResolution(0)).(*directionalLightImpl)
	if l.halfExtent != DefaultShadowHalfExtent || l.near != DefaultShadowNear || l.far != DefaultShadowFar {
		t.Errorf("frustum = %v %v %v", l.halfExtent, l.near, l.far)
	}
	if l.resolution != ShadowMapResolution {
		t.Errorf("resolution = %d", l.resolution)
	}
}

func TestCatcherIntersect(t *testing.T) {
	c := DefaultShadowCatcher()
	tests := []struct {
		name        string
		origin, dir mgl32.Vec3
		hit         bool
		want        mgl32.Vec3
	}{
		{"straight down", mgl32.Vec3{2, 5, 3}, mgl32.Vec3{0, -1, 0}, true, mgl32.Vec3{2, -1, 3}},
		{"slanted", mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, -1, 0}, true, mgl32.Vec3{2, -1, 0}},
		{"pointing up", mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 1, 0}, false, mgl32.Vec3{}},
		{"parallel", mgl32.Vec3{0, 5, 0}, mgl32.Vec3{1, 0, 0}, false, mgl32.Vec3{}},
		{"past the edge", mgl32.Vec3{60, 5, 0}, mgl32.Vec3{0, -1, 0}, false, mgl32.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := c.Intersect(tt.origin, tt.dir)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && !p.ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("point = %v, want %v", p, tt.want)
			}
		})
	}
}

func TestCatcherShade(t *testing.T) {
	c := DefaultShadowCatcher()
	bg := mgl32.Vec3{0.8, 0.8, 0.8}
	if got := c.Shade(bg, 0); got != bg {
		t.Errorf("lit ground = %v, want background", got)
	}
	if got := c.Shade(bg, 1); !got.ApproxEqualThreshold(bg.Mul(0.75), 1e-6) {
		t.Errorf("shadowed ground = %v, want 75%% of background", got)
	}
}

func TestGPUShadowDataLayout(t *testing.T) {
	l := NewDirectionalLight(WithShadowMapResolution(1024), WithShadowBias(0.004))
	g := NewGPUShadowData(l, DefaultShadowCatcher(), mgl32.Vec3{0.1, 0.2, 0.3})
	if g.Size() != 96 {
		t.Fatalf("size = %d, want 96", g.Size())
	}
	buf := g.Marshal()
	if len(buf) != 96 {
		t.Fatalf("marshal len = %d", len(buf))
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }

	vp := l.ViewProjection()
	if f(0) != vp[0] || f(60) != vp[15] {
		t.Errorf("matrix = %v.. %v, want %v.. %v", f(0), f(60), vp[0], vp[15])
	}
	if f(64) != 0.1 || f(72) != 0.3 || f(76) != -1 || f(80) != 50 {
		t.Errorf("ground = %v %v %v %v", f(64), f(72), f(76), f(80))
	}
	if f(84) != 0.25 || f(88) != 0.004 || f(92) != 1.0/1024 {
		t.Errorf("opacity %v, bias %v, texel %v", f(84), f(88), f(92))
	}

	off := NewGPUShadowData(NewDirectionalLight(WithCastsShadows(false)), DefaultShadowCatcher(), mgl32.Vec3{})
	if off.Opacity != 0 {
		t.Errorf("non-casting light kept opacity %v", off.Opacity)
	}
}
