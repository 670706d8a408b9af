// Package ghostpaint models pixel-art canvases and stores them as JSON
// artwork files in the virtual filesystem.
package ghostpaint

import (
	"fmt"
	"math/rand/v2"
	"regexp"
)

// Transparent marks an unpainted pixel.
const Transparent = "transparent"

// DefaultSize is the edge length of a new canvas.
const DefaultSize = 32

// MaxSize bounds either canvas dimension.
const MaxSize = 256

// Palette is the default set of colors.
var Palette = []string{
	"#55FF55", // bright green
	"#5555FF", // bright blue
	"#FF5555", // bright red
	"#FFFF55", // yellow
	"#55FFFF", // bright cyan
	"#FF55FF", // bright magenta
	"#FFFFFF", // white
	"#AAAAAA", // light gray
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Canvas is a grid of colors indexed [y][x].
type Canvas struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Pixels [][]string `json:"pixels"`
}

// NewCanvas returns a fully transparent canvas.
func NewCanvas(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 || width > MaxSize || height > MaxSize {
		return nil, fmt.Errorf("canvas size %dx%d out of range (1..%d)", width, height, MaxSize)
	}
	pixels := make([][]string, height)
	for y := range pixels {
		row := make([]string, width)
		for x := range row {
			row[x] = Transparent
		}
		pixels[y] = row
	}
	return &Canvas{Width: width, Height: height, Pixels: pixels}, nil
}

// Set paints one pixel.
func (c *Canvas) Set(x, y int, color string) error {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return fmt.Errorf("pixel (%d,%d) outside %dx%d canvas", x, y, c.Width, c.Height)
	}
	if !validColor(color) {
		return fmt.Errorf("invalid color %q", color)
	}
	c.Pixels[y][x] = color
	return nil
}

// Painted reports whether any pixel is not transparent.
func (c *Canvas) Painted() bool {
	for _, row := range c.Pixels {
		for _, p := range row {
			if p != Transparent {
				return true
			}
		}
	}
	return false
}

// Corrupt flips one pixel (70%) or two (30%) to a random palette color or
// back to transparent. Blank canvases are left alone. It returns the number
// of pixels touched.
func (c *Canvas) Corrupt(rng *rand.Rand) int {
	if !c.Painted() {
		return 0
	}
	count := 1
	if rng.Float64() >= 0.7 {
		count = 2
	}
	for i := 0; i < count; i++ {
		x, y := rng.IntN(c.Width), rng.IntN(c.Height)
		if rng.Float64() < 0.5 {
			c.Pixels[y][x] = Palette[rng.IntN(len(Palette))]
		} else {
			c.Pixels[y][x] = Transparent
		}
	}
	return count
}

// Validate checks dimensions and colors.
func (c *Canvas) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.Width > MaxSize || c.Height > MaxSize {
		return fmt.Errorf("canvas size %dx%d out of range (1..%d)", c.Width, c.Height, MaxSize)
	}
	if len(c.Pixels) != c.Height {
		return fmt.Errorf("expected %d rows, got %d", c.Height, len(c.Pixels))
	}
	for y, row := range c.Pixels {
		if len(row) != c.Width {
			return fmt.Errorf("row %d has %d pixels, want %d", y, len(row), c.Width)
		}
		for x, p := range row {
			if !validColor(p) {
				return fmt.Errorf("pixel (%d,%d) has invalid color %q", x, y, p)
			}
		}
	}
	return nil
}

func validColor(color string) bool {
	return color == Transparent || hexColor.MatchString(color)
}
