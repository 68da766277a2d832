package envmap

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func almostEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func TestUVDirectionRoundTrip(t *testing.T) {
	dirs := []mgl32.Vec3{
		{0, 0, -1},
		{1, 0, 0},
		{0.3, 0.8, 0.2},
		{-0.5, -0.5, 0.7},
	}
	for _, d := range dirs {
		u, v := DirectionToUV(d)
		if u < 0 || u > 1 || v < 0 || v > 1 {
			t.Fatalf("uv for %v out of range: (%v, %v)", d, u, v)
		}
		back := UVToDirection(u, v)
		want := d.Normalize()
		if !back.ApproxEqualThreshold(want, 1e-4) {
			t.Errorf("round trip of %v = %v", want, back)
		}
	}
}

func TestEquirectSampleOrientation(t *testing.T) {
	e := NewEquirect(4, 2)
	up := mgl32.Vec3{1, 0, 0}
	down := mgl32.Vec3{0, 0, 1}
	for x := 0; x < 4; x++ {
		e.Set(x, 0, up)
		e.Set(x, 1, down)
	}
	if got := e.Sample(mgl32.Vec3{0, 1, 0}); got != up {
		t.Errorf("zenith sample = %v, want %v", got, up)
	}
	if got := e.Sample(mgl32.Vec3{0, -1, 0}); got != down {
		t.Errorf("nadir sample = %v, want %v", got, down)
	}
}

func TestStudioHasBloomableHighlights(t *testing.T) {
	e := Studio(64, 32, nil)
	var peak float32
	for i := 0; i < len(e.Pix); i += 3 {
		if l := 0.2126*e.Pix[i] + 0.7152*e.Pix[i+1] + 0.0722*e.Pix[i+2]; l > peak {
			peak = l
		}
	}
	if peak <= 2 {
		t.Fatalf("studio peak luminance = %v, want > 2", peak)
	}
}

func TestFromImageLinearizes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	e := FromImage(img, 4, 2, 3)
	for i, v := range e.Pix {
		if !almostEqual(v, 3, 1e-4) {
			t.Fatalf("texel component %d = %v, want 3", i, v)
		}
	}
}

func TestStagingSize(t *testing.T) {
	e := NewEquirect(8, 4)
	s := e.Staging()
	if err := s.Validate(); err != nil {
		t.Fatalf("staging data invalid: %v", err)
	}
	if len(s.Pixels) != 8*4*16 {
		t.Fatalf("staging bytes = %d, want %d", len(s.Pixels), 8*4*16)
	}
}

func TestConstant(t *testing.T) {
	c := Constant{Color: mgl32.Vec3{2, 3, 4}}
	if got := c.Sample(mgl32.Vec3{0.2, -1, 0}); got != c.Color {
		t.Fatalf("constant sample = %v", got)
	}
}
