package generator

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestGenerateDeterministic(t *testing.T) {
	opts := DefaultOptions(100)
	opts.Seed = 7

	a, err := Generate(opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(opts)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < a.Len(); i++ {
		if a.Positions[i] != b.Positions[i] || a.Rotations[i] != b.Rotations[i] || a.Scales[i] != b.Scales[i] {
			t.Fatalf("instance %d differs between runs with the same seed", i)
		}
	}
	for i := range a.Colors {
		if a.Colors[i] != b.Colors[i] {
			t.Fatalf("color component %d differs between runs with the same seed", i)
		}
	}

	opts.Seed = 8
	c, err := Generate(opts)
	if err != nil {
		t.Fatal(err)
	}
	if c.Positions[1] == a.Positions[1] {
		t.Error("different seeds produced the same spawn position")
	}
}

func TestGenerateShapes(t *testing.T) {
	for _, n := range []int{1, 2, 100} {
		opts := DefaultOptions(n)
		opts.Seed = 1
		in, err := Generate(opts)
		if err != nil {
			t.Fatal(err)
		}
		if in.Len() != n || len(in.Rotations) != n || len(in.Scales) != n || len(in.PaletteIndex) != n {
			t.Fatalf("count %d: array lengths do not match", n)
		}
		if len(in.Colors) != 3*n {
			t.Fatalf("count %d: color buffer has %d floats, want %d", n, len(in.Colors), 3*n)
		}
	}
}

func TestGenerateHeroInstance(t *testing.T) {
	opts := DefaultOptions(50)
	opts.Seed = 3
	in, err := Generate(opts)
	if err != nil {
		t.Fatal(err)
	}

	if in.Scales[0] != (mgl32.Vec3{2, 2, 2}) {
		t.Errorf("hero scale = %v, want 2", in.Scales[0])
	}
	if in.PaletteIndex[0] != opts.Palette.Default {
		t.Errorf("hero palette bucket = %d, want default %d", in.PaletteIndex[0], opts.Palette.Default)
	}
	if in.Colors[0] != 1 || in.Colors[1] != 1 || in.Colors[2] != 1 {
		t.Errorf("hero color = %v, want white", in.Colors[0:3])
	}
}

func TestGenerateRanges(t *testing.T) {
	opts := DefaultOptions(500)
	opts.Seed = 11
	in, err := Generate(opts)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < in.Len(); i++ {
		p := in.Positions[i]
		if r := (mgl32.Vec2{p[0], p[2]}).Len(); r > opts.SpreadRadius+1e-5 {
			t.Fatalf("instance %d spawned outside the disk at radius %v", i, r)
		}
		wantY := opts.BaseHeight + float32(i)*opts.HeightStep
		if !mgl32.FloatEqualThreshold(p[1], wantY, 1e-4) {
			t.Fatalf("instance %d height = %v, want %v", i, p[1], wantY)
		}
		if l := in.Rotations[i].Len(); !mgl32.FloatEqualThreshold(l, 1, 1e-4) {
			t.Fatalf("instance %d rotation is not unit length: %v", i, l)
		}
		if i > 0 {
			s := in.Scales[i][0]
			if s < opts.ScaleMin || s >= opts.ScaleMax {
				t.Fatalf("instance %d scale %v outside [%v, %v)", i, s, opts.ScaleMin, opts.ScaleMax)
			}
		}
	}
}

func TestGeneratePaletteDistribution(t *testing.T) {
	opts := DefaultOptions(5000)
	opts.Seed = 99
	in, err := Generate(opts)
	if err != nil {
		t.Fatal(err)
	}

	counts := make([]int, len(opts.Palette.Buckets))
	for _, b := range in.PaletteIndex[1:] {
		counts[b]++
	}
	total := float32(in.Len() - 1)
	for i, b := range opts.Palette.Buckets {
		got := float32(counts[i]) / total
		if got < b.Weight-0.03 || got > b.Weight+0.03 {
			t.Errorf("bucket %s frequency = %.3f, want about %.2f", b.Hex, got, b.Weight)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero count", func(o *Options) { o.Count = 0 }},
		{"empty palette", func(o *Options) { o.Palette = Palette{} }},
		{"default out of range", func(o *Options) { o.Palette.Default = 9 }},
		{"bad hex", func(o *Options) { o.Palette.Buckets[0].Hex = "nope" }},
		{"negative weight", func(o *Options) { o.Palette.Buckets[1].Weight = -1 }},
		{"inverted scale range", func(o *Options) { o.ScaleMin, o.ScaleMax = 1, 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions(10)
			opts.Seed = 1
			tt.mutate(&opts)
			if _, err := Generate(opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTimeSeedIsRecorded(t *testing.T) {
	in, err := Generate(DefaultOptions(3))
	if err != nil {
		t.Fatal(err)
	}
	if in.Seed == 0 {
		t.Fatal("time-based seed was not recorded")
	}

	opts := DefaultOptions(3)
	opts.Seed = in.Seed
	again, err := Generate(opts)
	if err != nil {
		t.Fatal(err)
	}
	if again.Positions[2] != in.Positions[2] {
		t.Error("replaying the recorded seed did not reproduce the run")
	}
}

func TestCache(t *testing.T) {
	var c Cache
	opts := DefaultOptions(20)
	opts.Seed = 5

	a, err := c.Get(opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Get(opts)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("identical options regenerated instead of hitting the cache")
	}

	opts.Palette.Buckets[0].Weight = 0.2
	d, err := c.Get(opts)
	if err != nil {
		t.Fatal(err)
	}
	if d == a {
		t.Error("changed palette returned the stale cached result")
	}

	c.Invalidate()
	e, err := c.Get(opts)
	if err != nil {
		t.Fatal(err)
	}
	if e == d {
		t.Error("Invalidate did not drop the cached result")
	}
}
