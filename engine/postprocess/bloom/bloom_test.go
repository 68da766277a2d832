package bloom

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func almostEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func newBloom(t *testing.T, s Settings) *Bloom {
	t.Helper()
	b, err := New(s)
	if err != nil {
		t.Fatalf("New(%+v): %v", s, err)
	}
	return b
}

func TestBelowThresholdPixelContributesNothing(t *testing.T) {
	b := newBloom(t, DefaultSettings())

	src := NewFrame(16, 16)
	src.Set(7, 9, mgl32.Vec3{1.9, 1.9, 1.9}) // luminance 1.9 < 2
	dst := NewFrame(16, 16)
	b.Apply(dst, src)

	for i := range dst.Pix {
		if dst.Pix[i] != src.Pix[i] {
			t.Fatalf("pixel component %d changed: %v -> %v", i, src.Pix[i], dst.Pix[i])
		}
	}
}

func TestAtThresholdPixelContributes(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {16, 16}, {37, 19}} {
		// The threshold is computed the same way the pass computes luminance, so the pixel sits exactly on it.
		b := newBloom(t, Settings{Threshold: Luminance(2, 2, 2), Intensity: 1.5, Levels: 9})
		src := NewFrame(size[0], size[1])
		x, y := size[0]/2, size[1]/2
		src.Set(x, y, mgl32.Vec3{2, 2, 2})
		dst := NewFrame(size[0], size[1])
		b.Apply(dst, src)

		added := dst.At(x, y).Sub(src.At(x, y))
		if added[0] <= 0 || added[1] <= 0 || added[2] <= 0 {
			t.Fatalf("%v frame: bloom contribution at the bright pixel = %v, want > 0", size, added)
		}
	}
}

func TestSinglePixelFrameGlowEqualsPixel(t *testing.T) {
	b := newBloom(t, Settings{Threshold: 1, Intensity: 1.5, Levels: 9})
	src := NewFrame(1, 1)
	src.Set(0, 0, mgl32.Vec3{4, 2, 1})
	dst := NewFrame(1, 1)
	b.Apply(dst, src)

	want := mgl32.Vec3{4 + 1.5*4, 2 + 1.5*2, 1 + 1.5*1}
	if got := dst.At(0, 0); !got.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("composited pixel = %v, want %v", got, want)
	}
}

func TestContributionScalesWithIntensity(t *testing.T) {
	src := NewFrame(32, 32)
	src.Set(10, 12, mgl32.Vec3{6, 5, 4})
	src.Set(11, 12, mgl32.Vec3{3, 3, 3})

	contribution := func(intensity float32) *Frame {
		b := newBloom(t, Settings{Threshold: 2, Intensity: intensity, Levels: 5})
		dst := NewFrame(32, 32)
		b.Apply(dst, src)
		for i := range dst.Pix {
			dst.Pix[i] -= src.Pix[i]
		}
		return dst
	}

	one := contribution(1.5)
	two := contribution(3)
	zero := contribution(0)
	for i := range one.Pix {
		if !almostEqual(two.Pix[i], 2*one.Pix[i], 1e-5) {
			t.Fatalf("component %d: intensity 3 gives %v, want twice %v", i, two.Pix[i], one.Pix[i])
		}
		if zero.Pix[i] != 0 {
			t.Fatalf("component %d: intensity 0 still adds %v", i, zero.Pix[i])
		}
	}
}

func TestGlowSpreadsToNeighbours(t *testing.T) {
	b := newBloom(t, DefaultSettings())
	src := NewFrame(64, 64)
	src.Set(32, 32, mgl32.Vec3{50, 50, 50})

	glow := b.Glow(src)
	if n := glow.At(34, 32); n[0] <= 0 {
		t.Fatalf("glow two pixels away = %v, want > 0", n)
	}
	if far, near := glow.At(60, 32)[0], glow.At(34, 32)[0]; far > near {
		t.Fatalf("glow grows with distance: near %v, far %v", near, far)
	}
}

func TestApplyInPlaceAndReuse(t *testing.T) {
	b := newBloom(t, DefaultSettings())
	f := NewFrame(8, 8)
	f.Set(3, 3, mgl32.Vec3{10, 10, 10})
	want := NewFrame(8, 8)
	copy(want.Pix, f.Pix)
	b.Apply(want, want)

	// A second call on a fresh copy of the same input must give the same answer.
	g := NewFrame(8, 8)
	g.Set(3, 3, mgl32.Vec3{10, 10, 10})
	b.Apply(g, g)
	for i := range g.Pix {
		if g.Pix[i] != want.Pix[i] {
			t.Fatalf("component %d differs between runs: %v vs %v", i, g.Pix[i], want.Pix[i])
		}
	}
}

func TestEmptyFrame(t *testing.T) {
	b := newBloom(t, DefaultSettings())
	for _, size := range [][2]int{{0, 0}, {16, 0}, {0, 9}} {
		src := NewFrame(size[0], size[1])
		if g := b.Glow(src); len(g.Pix) != 0 || g.Width != size[0] || g.Height != size[1] {
			t.Errorf("Glow(%dx%d) = %dx%d with %d floats", size[0], size[1], g.Width, g.Height, len(g.Pix))
		}
		dst := NewFrame(4, 4)
		b.Apply(dst, src)
		if len(dst.Pix) != 0 || dst.Width != size[0] || dst.Height != size[1] {
			t.Errorf("Apply(%dx%d) left dst %dx%d", size[0], size[1], dst.Width, dst.Height)
		}
	}

	// The processor still works on a real frame afterwards.
	f := NewFrame(1, 1)
	f.Set(0, 0, mgl32.Vec3{4, 4, 4})
	if g := b.Glow(f); g.Width != 1 || g.Pix[0] == 0 {
		t.Errorf("glow after empty frames = %v", g.Pix)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name  string
		s     Settings
		field string
	}{
		{"defaults", DefaultSettings(), ""},
		{"zero levels", Settings{Threshold: 2, Intensity: 1, Levels: 0}, "levels"},
		{"negative intensity", Settings{Threshold: 2, Intensity: -1, Levels: 1}, "intensity"},
		{"nan threshold", Settings{Threshold: float32(math.NaN()), Intensity: 1, Levels: 1}, "threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var pe *ParameterError
			if !errors.As(err, &pe) || pe.Field != tt.field {
				t.Fatalf("got %v, want ParameterError on %s", err, tt.field)
			}
		})
	}
	if _, err := New(Settings{Levels: 0}); err == nil {
		t.Fatal("New accepted zero levels")
	}
}

func TestMipSizes(t *testing.T) {
	got := MipSizes(37, 19, 4)
	want := [][2]int{{37, 19}, {19, 10}, {10, 5}, {5, 3}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("level %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGPUBloomUniform(t *testing.T) {
	u := NewGPUBloomUniform(DefaultSettings(), true)
	if u.Size() != 16 || len(u.Marshal()) != 16 {
		t.Fatalf("uniform size = %d", u.Size())
	}
	if !almostEqual(u.InvLevels, 1.0/9, 1e-7) || u.EncodeSRGB != 1 {
		t.Fatalf("unexpected uniform %+v", u)
	}
}
