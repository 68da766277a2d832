// Package generator produces the initial state of every gem instance: spawn positions,
// orientations, scales and the immutable per-instance colors.
package generator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Bucket is one palette entry and its selection weight.
type Bucket struct {
	Hex    string
	Weight float32
}

// Palette is a small weighted set of colors. Buckets are tried in order against a uniform
// draw, so a bucket is chosen when the draw falls inside its share of the cumulative weight.
type Palette struct {
	Buckets []Bucket
	// Default is the bucket forced onto the hero instance.
	Default int
}

// DefaultPalette returns white at 70% and three saturated accents at 10% each.
func DefaultPalette() Palette {
	return Palette{
		Buckets: []Bucket{
			{Hex: "#00509a", Weight: 0.1},
			{Hex: "#509a00", Weight: 0.1},
			{Hex: "#9a0050", Weight: 0.1},
			{Hex: "#ffffff", Weight: 0.7},
		},
		Default: 3,
	}
}

// Options controls instance generation.
type Options struct {
	Count        int
	Seed         int64 // 0 picks a time-based seed
	SpreadRadius float32
	BaseHeight   float32
	HeightStep   float32
	HeroScale    float32
	ScaleMin     float32
	ScaleMax     float32
	Palette      Palette
}

// DefaultOptions returns the settings of the reference scene for count instances.
//
// Parameters:
//   - count: number of instances
//
// Returns:
//   - Options: the default options
func DefaultOptions(count int) Options {
	return Options{
		Count:        count,
		SpreadRadius: 3,
		BaseHeight:   5,
		HeightStep:   0.1,
		HeroScale:    2,
		ScaleMin:     0.2,
		ScaleMax:     0.6,
		Palette:      DefaultPalette(),
	}
}

// Instances holds the generated per-instance arrays; index i of every slice describes instance i.
type Instances struct {
	Positions    []mgl32.Vec3
	Rotations    []mgl32.Quat
	Scales       []mgl32.Vec3
	PaletteIndex []int
	// Colors is the flat linear RGB buffer, 3 floats per instance.
	Colors []float32
	// Seed is the seed actually used, so a time-seeded run can be reproduced.
	Seed int64
}

// Len returns the number of generated instances.
func (in *Instances) Len() int {
	return len(in.Positions)
}

// Generate produces the initial state for opts.Count instances.
// The same options with the same non-zero seed always produce identical output.
//
// Parameters:
//   - opts: generation options
//
// Returns:
//   - *Instances: the generated arrays
//   - error: error if the count or palette is invalid
func Generate(opts Options) (*Instances, error) {
	if opts.Count < 1 {
		return nil, fmt.Errorf("instance count must be positive, got %d", opts.Count)
	}
	if opts.ScaleMax < opts.ScaleMin {
		return nil, fmt.Errorf("scale range [%g, %g) is empty", opts.ScaleMin, opts.ScaleMax)
	}
	colors, total, err := resolvePalette(opts.Palette)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	n := opts.Count
	out := &Instances{
		Positions:    make([]mgl32.Vec3, n),
		Rotations:    make([]mgl32.Quat, n),
		Scales:       make([]mgl32.Vec3, n),
		PaletteIndex: make([]int, n),
		Colors:       make([]float32, 3*n),
		Seed:         seed,
	}

	for i := 0; i < n; i++ {
		// Uniform in the disk: the square root keeps density constant across the radius.
		r := opts.SpreadRadius * math32.Sqrt(rng.Float32())
		theta := 2 * math32.Pi * rng.Float32()
		out.Positions[i] = mgl32.Vec3{
			r * math32.Cos(theta),
			opts.BaseHeight + float32(i)*opts.HeightStep,
			r * math32.Sin(theta),
		}

		ax, ay, az := rng.Float32(), rng.Float32(), rng.Float32()
		out.Rotations[i] = mgl32.AnglesToQuat(ax, ay, az, mgl32.XYZ).Normalize()

		s := opts.HeroScale
		if i > 0 {
			s = opts.ScaleMin + rng.Float32()*(opts.ScaleMax-opts.ScaleMin)
		}
		out.Scales[i] = mgl32.Vec3{s, s, s}
	}

	for i := 0; i < n; i++ {
		draw := rng.Float32()
		b := opts.Palette.Default
		if i > 0 {
			b = pickBucket(opts.Palette.Buckets, draw*total)
		}
		out.PaletteIndex[i] = b
		copy(out.Colors[i*3:i*3+3], colors[b][:])
	}

	return out, nil
}

// resolvePalette validates the palette and converts every bucket to linear RGB.
func resolvePalette(p Palette) ([][3]float32, float32, error) {
	if len(p.Buckets) == 0 {
		return nil, 0, fmt.Errorf("palette has no buckets")
	}
	if p.Default < 0 || p.Default >= len(p.Buckets) {
		return nil, 0, fmt.Errorf("palette default bucket %d out of range", p.Default)
	}
	colors := make([][3]float32, len(p.Buckets))
	var total float32
	for i, b := range p.Buckets {
		if b.Weight < 0 {
			return nil, 0, fmt.Errorf("palette bucket %d has negative weight %g", i, b.Weight)
		}
		c, err := common.HexToLinear(b.Hex)
		if err != nil {
			return nil, 0, fmt.Errorf("palette bucket %d: %w", i, err)
		}
		colors[i] = c
		total += b.Weight
	}
	if total <= 0 {
		return nil, 0, fmt.Errorf("palette weights sum to zero")
	}
	return colors, total, nil
}

func pickBucket(buckets []Bucket, x float32) int {
	var acc float32
	for i, b := range buckets {
		acc += b.Weight
		if x < acc {
			return i
		}
	}
	return len(buckets) - 1
}

// Cache memoizes the last generated Instances and regenerates only when the options change.
type Cache struct {
	mu     sync.Mutex
	opts   Options
	result *Instances
}

// Get returns the cached instances for opts, generating them on a miss.
//
// Parameters:
//   - opts: generation options
//
// Returns:
//   - *Instances: the cached or freshly generated instances
//   - error: error from Generate on a miss
func (c *Cache) Get(opts Options) (*Instances, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil && sameOptions(c.opts, opts) {
		return c.result, nil
	}
	res, err := Generate(opts)
	if err != nil {
		return nil, err
	}
	c.opts = opts
	c.opts.Palette.Buckets = append([]Bucket(nil), opts.Palette.Buckets...)
	c.result = res
	return res, nil
}

// Invalidate drops the cached result so the next Get regenerates.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
}

func sameOptions(a, b Options) bool {
	if a.Count != b.Count || a.Seed != b.Seed ||
		a.SpreadRadius != b.SpreadRadius || a.BaseHeight != b.BaseHeight || a.HeightStep != b.HeightStep ||
		a.HeroScale != b.HeroScale || a.ScaleMin != b.ScaleMin || a.ScaleMax != b.ScaleMax ||
		a.Palette.Default != b.Palette.Default || len(a.Palette.Buckets) != len(b.Palette.Buckets) {
		return false
	}
	for i := range a.Palette.Buckets {
		if a.Palette.Buckets[i] != b.Palette.Buckets[i] {
			return false
		}
	}
	return true
}
