package bloom

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Settings are the fixed parameters of the bloom stage.
type Settings struct {
	// Threshold is the luminance at or above which a pixel contributes to the glow.
	Threshold float32
	// Intensity scales the glow before it is added to the frame.
	Intensity float32
	// Levels is the number of mip levels the bright pass is spread across.
	Levels int
}

// ParameterError is returned for bloom settings outside their valid range.
type ParameterError struct {
	Field  string
	Value  float32
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("bloom parameter %s=%g: %s", e.Field, e.Value, e.Reason)
}

// DefaultSettings returns threshold 2, intensity 1.5 and 9 levels.
func DefaultSettings() Settings {
	return Settings{Threshold: 2.0, Intensity: 1.5, Levels: 9}
}

// Validate checks the settings.
//
// Returns:
//   - error: a *ParameterError for the first invalid field, or nil
func (s Settings) Validate() error {
	if math32.IsNaN(s.Threshold) || math32.IsInf(s.Threshold, 0) {
		return &ParameterError{Field: "threshold", Value: s.Threshold, Reason: "must be finite"}
	}
	if !(s.Intensity >= 0) || math32.IsInf(s.Intensity, 0) {
		return &ParameterError{Field: "intensity", Value: s.Intensity, Reason: "must be a finite value >= 0"}
	}
	if s.Levels < 1 {
		return &ParameterError{Field: "levels", Value: float32(s.Levels), Reason: "must be >= 1"}
	}
	return nil
}

// Bloom is the CPU implementation of the luminance-threshold bloom stage.
// The output depends only on the current frame and the settings; the processor keeps its mip
// chains between calls so a steady frame size allocates nothing after the first Apply.
// A Bloom is not safe for concurrent use.
type Bloom struct {
	settings Settings
	down     []*Frame
	up       []*Frame
}

// New creates a bloom processor.
//
// Parameters:
//   - settings: validated bloom parameters
//
// Returns:
//   - *Bloom: the processor
//   - error: a *ParameterError if the settings are invalid
func New(settings Settings) (*Bloom, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	b := &Bloom{
		settings: settings,
		down:     make([]*Frame, settings.Levels),
		up:       make([]*Frame, settings.Levels),
	}
	for i := range b.down {
		b.down[i] = &Frame{}
		b.up[i] = &Frame{}
	}
	return b, nil
}

// Settings returns the parameters the processor was built with.
func (b *Bloom) Settings() Settings {
	return b.settings
}

// Apply composites the bloom of src into dst: dst = src + Intensity * glow.
// dst and src may be the same frame. An empty src leaves dst empty.
//
// Parameters:
//   - dst: output frame, resized to match src
//   - src: the rendered HDR frame
func (b *Bloom) Apply(dst, src *Frame) {
	if src.Width <= 0 || src.Height <= 0 {
		dst.resize(max(0, src.Width), max(0, src.Height))
		return
	}
	glow := b.Glow(src)
	dst.resize(src.Width, src.Height)
	k := b.settings.Intensity
	for i := range src.Pix {
		dst.Pix[i] = src.Pix[i] + k*glow.Pix[i]
	}
}

// Glow runs the bright pass and the mip blur without compositing.
// The returned frame is owned by the processor and is overwritten by the next call.
//
// Parameters:
//   - src: the rendered HDR frame
//
// Returns:
//   - *Frame: the normalized glow layer at full resolution, empty for an empty src
func (b *Bloom) Glow(src *Frame) *Frame {
	if src.Width <= 0 || src.Height <= 0 {
		b.up[0].resize(max(0, src.Width), max(0, src.Height))
		return b.up[0]
	}
	b.allocate(src.Width, src.Height)
	b.threshold(b.down[0], src)
	for l := 1; l < len(b.down); l++ {
		downsample(b.down[l], b.down[l-1])
	}

	last := len(b.up) - 1
	copy(b.up[last].Pix, b.down[last].Pix)
	for l := last - 1; l >= 0; l-- {
		upsampleAdd(b.up[l], b.down[l], b.up[l+1])
	}

	scale := 1 / float32(b.settings.Levels)
	out := b.up[0]
	for i := range out.Pix {
		out.Pix[i] *= scale
	}
	return out
}

// allocate sizes the mip chains for a frame; level l is the previous level halved, rounding up.
func (b *Bloom) allocate(width, height int) {
	w, h := width, height
	for l := range b.down {
		b.down[l].resize(w, h)
		b.up[l].resize(w, h)
		w = max(1, (w+1)/2)
		h = max(1, (h+1)/2)
	}
}

// threshold keeps pixels whose luminance reaches the threshold and zeroes the rest.
func (b *Bloom) threshold(dst, src *Frame) {
	t := b.settings.Threshold
	for i := 0; i < len(src.Pix); i += 3 {
		r, g, bl := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		if Luminance(r, g, bl) >= t {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = r, g, bl
		} else {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = 0, 0, 0
		}
	}
}

// downsample averages 2x2 blocks of src into dst, clamping at the edges.
func downsample(dst, src *Frame) {
	for y := 0; y < dst.Height; y++ {
		y0 := min(2*y, src.Height-1)
		y1 := min(2*y+1, src.Height-1)
		for x := 0; x < dst.Width; x++ {
			x0 := min(2*x, src.Width-1)
			x1 := min(2*x+1, src.Width-1)
			a := (y0*src.Width + x0) * 3
			bb := (y0*src.Width + x1) * 3
			c := (y1*src.Width + x0) * 3
			d := (y1*src.Width + x1) * 3
			o := (y*dst.Width + x) * 3
			for ch := 0; ch < 3; ch++ {
				dst.Pix[o+ch] = 0.25 * (src.Pix[a+ch] + src.Pix[bb+ch] + src.Pix[c+ch] + src.Pix[d+ch])
			}
		}
	}
}

// upsampleAdd writes dst = base + bilinear(coarse), where coarse is half the size of base.
func upsampleAdd(dst, base, coarse *Frame) {
	sx := float32(coarse.Width) / float32(base.Width)
	sy := float32(coarse.Height) / float32(base.Height)
	for y := 0; y < base.Height; y++ {
		fy := math32.Max(0, (float32(y)+0.5)*sy-0.5)
		y0 := min(int(fy), coarse.Height-1)
		y1 := min(y0+1, coarse.Height-1)
		ty := fy - float32(y0)
		for x := 0; x < base.Width; x++ {
			fx := math32.Max(0, (float32(x)+0.5)*sx-0.5)
			x0 := min(int(fx), coarse.Width-1)
			x1 := min(x0+1, coarse.Width-1)
			tx := fx - float32(x0)

			a := (y0*coarse.Width + x0) * 3
			bb := (y0*coarse.Width + x1) * 3
			c := (y1*coarse.Width + x0) * 3
			d := (y1*coarse.Width + x1) * 3
			o := (y*base.Width + x) * 3
			for ch := 0; ch < 3; ch++ {
				top := coarse.Pix[a+ch] + (coarse.Pix[bb+ch]-coarse.Pix[a+ch])*tx
				bottom := coarse.Pix[c+ch] + (coarse.Pix[d+ch]-coarse.Pix[c+ch])*tx
				dst.Pix[o+ch] = base.Pix[o+ch] + top + (bottom-top)*ty
			}
		}
	}
}
