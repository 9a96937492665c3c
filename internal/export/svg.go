// Package export renders runs as standalone SVG documents.
package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/san-kum/odestep/internal/analysis"
	"github.com/san-kum/odestep/internal/viz"
)

const background = "#0a0a0a"

// Braille dot-to-bit mapping, row by row
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// CanvasToSVG draws every dot of a braille canvas as a circle, scale
// pixels apart.
func CanvasToSVG(w io.Writer, canvas *viz.Canvas, scale float64) error {
	if canvas == nil {
		return fmt.Errorf("nil canvas")
	}
	bw := bufio.NewWriter(w)

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4
	header(bw, width, height)
	fmt.Fprintln(bw, `<g fill="#00ff00">`)

	dotRadius := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			pattern := canvas.Grid[row][col] - 0x2800
			if pattern <= 0 {
				continue
			}
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := range 4 {
				for dx := range 2 {
					if pattern&dotBits[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
				}
			}
		}
	}

	fmt.Fprintln(bw, "</g>\n</svg>")
	return bw.Flush()
}

// PortraitToSVG draws a phase portrait as a single path, with a 10%
// margin around the points.
func PortraitToSVG(w io.Writer, p *analysis.PhasePortrait2D, width, height int, strokeColor string) error {
	if p == nil || len(p.Points) < 2 {
		return fmt.Errorf("phase portrait needs at least two points")
	}
	return pathSVG(w, p.Points, width, height, strokeColor)
}

// SeriesToSVG draws values against times as a single path.
func SeriesToSVG(w io.Writer, times, values []float64, width, height int, strokeColor string) error {
	if len(times) != len(values) {
		return fmt.Errorf("series has %d times and %d values", len(times), len(values))
	}
	if len(times) < 2 {
		return fmt.Errorf("series needs at least two points")
	}
	points := make([]analysis.Point, len(times))
	for i := range times {
		points[i] = analysis.Point{X: times[i], Y: values[i]}
	}
	return pathSVG(w, points, width, height, strokeColor)
}

func pathSVG(w io.Writer, points []analysis.Point, width, height int, strokeColor string) error {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	bw := bufio.NewWriter(w)
	header(bw, float64(width), float64(height))
	fmt.Fprintf(bw, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, strokeColor)
	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(bw, "%s%.1f,%.1f", cmd, x, y)
	}
	fmt.Fprintln(bw, "\"/>\n</svg>")
	return bw.Flush()
}

func header(w io.Writer, width, height float64) {
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}
