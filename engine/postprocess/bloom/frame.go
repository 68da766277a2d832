package bloom

import "github.com/go-gl/mathgl/mgl32"

// Frame is a linear HDR color buffer with three floats per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []float32 // RGB triples, row-major
}

// NewFrame allocates a black frame.
//
// Parameters:
//   - width, height: dimensions in pixels
//
// Returns:
//   - *Frame: the new frame
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*3),
	}
}

// At returns the color of one pixel.
func (f *Frame) At(x, y int) mgl32.Vec3 {
	i := (y*f.Width + x) * 3
	return mgl32.Vec3{f.Pix[i], f.Pix[i+1], f.Pix[i+2]}
}

// Set writes the color of one pixel.
func (f *Frame) Set(x, y int, c mgl32.Vec3) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c[0], c[1], c[2]
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c mgl32.Vec3) {
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c[0], c[1], c[2]
	}
}

// resize reallocates the pixel slice only when the dimensions change.
func (f *Frame) resize(width, height int) {
	if f.Width == width && f.Height == height {
		return
	}
	f.Width, f.Height = width, height
	if n := width * height * 3; cap(f.Pix) >= n {
		f.Pix = f.Pix[:n]
	} else {
		f.Pix = make([]float32, n)
	}
}

// Luminance returns the Rec. 709 luminance of a linear RGB triple.
func Luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}
