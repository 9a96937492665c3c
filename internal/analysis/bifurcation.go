package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sim"
)

// BifurcationPoint holds the distinct section values found for one
// parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// Sweep describes a bifurcation diagram: for every value of Param the
// equation is integrated for Transient+Record time units and the values of
// y[Record] at the upward crossings of y[Cross] through Level are kept,
// ignoring the transient.
type Sweep struct {
	// NewEquation builds a fresh equation; each parameter value gets its own.
	NewEquation func() dynamo.Equation
	Param       string
	Values      []float64

	Y0        dynamo.State
	Step      float64
	Transient float64
	Duration  float64

	Cross  int
	Level  float64
	Record int
}

// BifurcationDiagram runs every parameter value of sw concurrently.
func BifurcationDiagram(ctx context.Context, stepper sim.Stepper, sw Sweep) ([]BifurcationPoint, error) {
	jobs := make([]sim.Job, 0, len(sw.Values))
	handlers := make([]*sectionHandler, 0, len(sw.Values))

	for _, value := range sw.Values {
		eq := sw.NewEquation()
		tunable, ok := eq.(dynamo.Configurable)
		if !ok {
			return nil, fmt.Errorf("equation has no parameters to sweep")
		}
		if err := tunable.SetParam(sw.Param, value); err != nil {
			return nil, err
		}
		if sw.Record < 0 || sw.Record >= eq.Dimension() {
			return nil, fmt.Errorf("recorded component %d out of range for dimension %d", sw.Record, eq.Dimension())
		}

		s, h, err := sectionRun(stepper, sw.Step, eq, sw.Cross, sw.Level, sw.Transient)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, sim.Job{
			Name:      fmt.Sprintf("%s=%g", sw.Param, value),
			Simulator: s,
			Equation:  eq,
			Y0:        sw.Y0.Clone(),
			T1:        sw.Transient + sw.Duration,
		})
		handlers = append(handlers, h)
	}

	if _, err := sim.NewEnsemble(0).Run(ctx, jobs); err != nil {
		return nil, err
	}

	results := make([]BifurcationPoint, 0, len(sw.Values))
	for i, value := range sw.Values {
		values := make([]float64, 0)
		seen := make(map[int64]bool)
		for _, y := range handlers[i].section.States {
			v := y[sw.Record]
			// quantize to find distinct values
			key := int64(math.Round(v * 1000))
			if !seen[key] {
				seen[key] = true
				values = append(values, v)
			}
		}
		results = append(results, BifurcationPoint{Param: value, Values: values})
	}
	return results, nil
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 1 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, p := range data {
		for _, v := range p.Values {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if math.IsInf(minVal, 1) {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	c := newCanvas(width, height)
	for i, p := range data {
		col := i * width / len(data)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			c.set(row, col, '•')
		}
	}
	return c.String()
}
