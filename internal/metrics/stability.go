package metrics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sampling"
)

// Stability is the fraction of step ends whose state stays within
// threshold in every component.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Init(t0 float64, y0 dynamo.State, t float64) {
	s.violations, s.samples = 0, 0
}

func (s *Stability) HandleStep(in *sampling.Interpolator, isLast bool) error {
	s.samples++
	for _, v := range in.CurrentState() {
		if math.Abs(v) > s.threshold || math.IsNaN(v) {
			s.violations++
			break
		}
	}
	return nil
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}
