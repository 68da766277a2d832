package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseHexColor parses a "#rrggbb" or "#rgb" string into sRGB components in [0, 1].
//
// Parameters:
//   - s: the hex color string, with or without the leading '#'
//
// Returns:
//   - [3]float32: the red, green and blue components
//   - error: error if the string is not a valid hex color
func ParseHexColor(s string) ([3]float32, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return [3]float32{}, fmt.Errorf("hex color %q must have 3 or 6 digits", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return [3]float32{}, fmt.Errorf("hex color %q: %w", s, err)
	}
	return [3]float32{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

// SRGBToLinear converts one sRGB-encoded channel to linear light.
func SRGBToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow((float64(c)+0.055)/1.055, 2.4))
}

// LinearToSRGB converts one linear channel to sRGB encoding. Values are clamped to [0, 1] first.
func LinearToSRGB(c float32) float32 {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 1
	}
	if c <= 0.0031308 {
		return c * 12.92
	}
	return float32(1.055*math.Pow(float64(c), 1/2.4) - 0.055)
}

// HexToLinear parses a hex color and converts each channel to linear light.
//
// Parameters:
//   - s: the hex color string
//
// Returns:
//   - [3]float32: linear red, green and blue
//   - error: error if the string is not a valid hex color
func HexToLinear(s string) ([3]float32, error) {
	c, err := ParseHexColor(s)
	if err != nil {
		return c, err
	}
	for i := range c {
		c[i] = SRGBToLinear(c[i])
	}
	return c, nil
}
