package sampling

import (
	"fmt"
	"sort"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Trajectory keeps a copy of every accepted step so the whole run can be
// queried after integration.
type Trajectory struct {
	steps []*Interpolator
	t0    float64
	y0    dynamo.State
	dir   dynamo.Direction
}

func NewTrajectory() *Trajectory {
	return &Trajectory{}
}

func (tr *Trajectory) Init(t0 float64, y0 dynamo.State, t float64) {
	tr.steps = tr.steps[:0]
	tr.t0 = t0
	tr.y0 = y0.Clone()
	tr.dir = dynamo.DirectionOf(t0, t)
}

func (tr *Trajectory) HandleStep(in *Interpolator, _ bool) error {
	// zero length pieces carry no information
	if in.Duration() == 0 {
		return nil
	}
	tr.steps = append(tr.steps, in.Copy())
	return nil
}

func (tr *Trajectory) Len() int { return len(tr.steps) }

func (tr *Trajectory) InitialTime() float64 { return tr.t0 }

func (tr *Trajectory) FinalTime() float64 {
	if len(tr.steps) == 0 {
		return tr.t0
	}
	return tr.steps[len(tr.steps)-1].CurrentTime()
}

// Step returns the i-th recorded step.
func (tr *Trajectory) Step(i int) *Interpolator { return tr.steps[i] }

// StateAt evaluates the recorded solution at t. At a step boundary the
// state at the end of the earlier step is returned, which matters after a
// state reset.
func (tr *Trajectory) StateAt(t float64) (dynamo.State, error) {
	if len(tr.steps) == 0 {
		if t == tr.t0 {
			return tr.y0.Clone(), nil
		}
		return nil, fmt.Errorf("%w: empty trajectory", dynamo.ErrOutOfRange)
	}
	i := sort.Search(len(tr.steps), func(i int) bool {
		return !tr.dir.After(t, tr.steps[i].CurrentTime())
	})
	if i == len(tr.steps) {
		return nil, fmt.Errorf("%w: t=%v after end of trajectory %v", dynamo.ErrOutOfRange, t, tr.FinalTime())
	}
	return tr.steps[i].StateAt(t)
}
