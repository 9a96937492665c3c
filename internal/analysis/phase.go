package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/events"
	"github.com/san-kum/odestep/internal/sampling"
	"github.com/san-kum/odestep/internal/sim"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// PhasePortrait projects sampled states on components xIdx and yIdx.
func PhasePortrait(samples *sampling.Samples, xIdx, yIdx int) (*PhasePortrait2D, error) {
	return portrait(samples.States, xIdx, yIdx)
}

func portrait(states []dynamo.State, xIdx, yIdx int) (*PhasePortrait2D, error) {
	p := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, len(states)),
	}
	for _, y := range states {
		if xIdx < 0 || yIdx < 0 || xIdx >= len(y) || yIdx >= len(y) {
			return nil, fmt.Errorf("components %d and %d out of range for dimension %d", xIdx, yIdx, len(y))
		}
		p.Points = append(p.Points, Point{X: y[xIdx], Y: y[yIdx]})
	}
	return p, nil
}

// ASCII renders the portrait on a width x height character canvas, with
// the axes drawn when they are visible.
func (p *PhasePortrait2D) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}

	// 10% padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := newCanvas(width, height)
	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		canvas.set(row, col, '•')
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			canvas.fill(row, col, '│')
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			canvas.fill(row, col, '─')
		}
	}
	return canvas.String()
}

type canvas [][]rune

func newCanvas(width, height int) canvas {
	c := make(canvas, height)
	for i := range c {
		c[i] = []rune(strings.Repeat(" ", width))
	}
	return c
}

func (c canvas) set(row, col int, r rune) {
	if row >= 0 && row < len(c) && col >= 0 && col < len(c[row]) {
		c[row][col] = r
	}
}

// fill sets the cell only when it is empty.
func (c canvas) fill(row, col int, r rune) {
	if row >= 0 && row < len(c) && col >= 0 && col < len(c[row]) && c[row][col] == ' ' {
		c[row][col] = r
	}
}

func (c canvas) String() string {
	var sb strings.Builder
	for _, row := range c {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Section is the set of states at which a trajectory crossed a surface.
type Section struct {
	Times  []float64
	States []dynamo.State
}

// Portrait projects the section on components xIdx and yIdx.
func (s *Section) Portrait(xIdx, yIdx int) (*PhasePortrait2D, error) {
	return portrait(s.States, xIdx, yIdx)
}

// sectionHandler records the increasing crossings of y[index] through
// level that happen at or after from. It never alters the run.
type sectionHandler struct {
	index   int
	level   float64
	from    float64
	section *Section
}

func (h *sectionHandler) Init(t0 float64, y0 dynamo.State, t float64) {
	h.section = &Section{}
}

func (h *sectionHandler) G(t float64, y dynamo.State) float64 { return y[h.index] - h.level }

func (h *sectionHandler) EventOccurred(t float64, y dynamo.State, increasing bool) events.Action {
	if increasing && t >= h.from {
		h.section.Times = append(h.section.Times, t)
		h.section.States = append(h.section.States, y.Clone())
	}
	return events.Continue
}

func (h *sectionHandler) ResetState(t float64, y dynamo.State) dynamo.State { return y }

// PoincareSection integrates eq with a fixed step from (t0, y0) to t1 and
// records the state every time y[index] crosses level upwards. Crossings
// are located by the event detector, so they lie on the surface up to its
// convergence threshold.
func PoincareSection(
	stepper sim.Stepper,
	step float64,
	eq dynamo.Equation,
	t0 float64,
	y0 dynamo.State,
	t1 float64,
	index int,
	level float64,
) (*Section, error) {
	s, h, err := sectionRun(stepper, step, eq, index, level, t0)
	if err != nil {
		return nil, err
	}
	if _, err := s.Run(eq, t0, y0, t1); err != nil {
		return nil, err
	}
	return h.section, nil
}

func sectionRun(stepper sim.Stepper, step float64, eq dynamo.Equation, index int, level, from float64) (*sim.Simulator, *sectionHandler, error) {
	if index < 0 || index >= eq.Dimension() {
		return nil, nil, fmt.Errorf("section component %d out of range for dimension %d", index, eq.Dimension())
	}
	cfg := sim.DefaultConfig()
	cfg.Step = step
	s := sim.New(stepper, cfg)
	h := &sectionHandler{index: index, level: level, from: from}
	s.AddEventHandler(h, events.DefaultSettings())
	return s, h, nil
}
