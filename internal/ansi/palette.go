package ansi

import "fmt"

// Color is a palette-resolved RGB color.
type Color struct {
	R, G, B uint8
}

// Hex returns the "#rrggbb" form of the color.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// The standard xterm 16-color palette: 8 normal, 8 bright.
var base16 = [16]Color{
	{0, 0, 0},       // black
	{205, 0, 0},     // red
	{0, 205, 0},     // green
	{205, 205, 0},   // yellow
	{0, 0, 238},     // blue
	{205, 0, 205},   // magenta
	{0, 205, 205},   // cyan
	{229, 229, 229}, // white
	{127, 127, 127}, // bright black
	{255, 0, 0},     // bright red
	{0, 255, 0},     // bright green
	{255, 255, 0},   // bright yellow
	{92, 92, 255},   // bright blue
	{255, 0, 255},   // bright magenta
	{0, 255, 255},   // bright cyan
	{255, 255, 255}, // bright white
}

// cubeLevels are the channel values of the xterm 6x6x6 color cube.
var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

var palette = buildPalette()

func buildPalette() [256]Color {
	var p [256]Color
	copy(p[:16], base16[:])

	// 16..231: 6x6x6 color cube
	for i := 16; i <= 231; i++ {
		n := i - 16
		p[i] = Color{
			R: cubeLevels[n/36],
			G: cubeLevels[(n/6)%6],
			B: cubeLevels[n%6],
		}
	}

	// 232..255: grayscale ramp
	for i := 232; i <= 255; i++ {
		v := uint8(8 + 10*(i-232))
		p[i] = Color{R: v, G: v, B: v}
	}

	return p
}

// Palette returns the RGB value of a 256-color palette index.
func Palette(index uint8) Color {
	return palette[index]
}
