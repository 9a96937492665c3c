package viz

import (
	"math"
	"strings"

	"github.com/san-kum/odestep/internal/analysis"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells, each holding 2x4 dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = []rune(strings.Repeat(string(rune(blank)), w))
	}
	return c
}

// Set turns on the dot at (x, y) in sub-pixel coordinates. The canvas is
// Width*2 dots wide and Height*4 dots high; dots outside are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Portrait draws a phase portrait as a continuous braille curve, joining
// consecutive points, scaled to fill a width x height cell canvas.
func Portrait(p *analysis.PhasePortrait2D, width, height int) string {
	c := NewCanvas(width, height)
	if p == nil || len(p.Points) == 0 {
		return c.String()
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, pt := range p.Points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	spanX, spanY := maxX-minX, maxY-minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}

	dotsX, dotsY := float64(width*2-1), float64(height*4-1)
	project := func(pt analysis.Point) (int, int) {
		x := int(math.Round((pt.X - minX) / spanX * dotsX))
		y := int(math.Round((maxY - pt.Y) / spanY * dotsY))
		return x, y
	}

	px, py := project(p.Points[0])
	c.Set(px, py)
	for _, pt := range p.Points[1:] {
		x, y := project(pt)
		c.DrawLine(px, py, x, y)
		px, py = x, y
	}
	return c.String()
}
