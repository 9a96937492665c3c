package metrics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sampling"
)

// Exact is a closed form solution y(t).
type Exact func(t float64) dynamo.State

// ErrorTracker compares the middle of every piece, and the final state,
// against an exact solution and keeps the largest and the last
// infinity-norm error. Piece ends other than the last are skipped: they are
// event times when a reset made the exact solution jump.
//
// With WithEvents the tracker also knows where the exact solution has its
// events. Pieces holding one of those times strictly inside are not
// compared, since the located event and the exact one may sit on either
// side of the sample. Every piece that does not start on the grid of fixed
// steps starts at a located event, and its distance to the nearest exact
// event time is the time error.
type ErrorTracker struct {
	exact  Exact
	events []float64
	step   float64

	maxError     float64
	lastError    float64
	maxTime      float64
	maxTimeError float64

	// h is the signed step, next the end of the current grid step.
	h, next float64
	onGrid  bool
}

func NewErrorTracker(exact Exact) *ErrorTracker {
	return &ErrorTracker{exact: exact}
}

// WithEvents sets the event times of the exact solution and the magnitude
// of the fixed step of the runs it observes. It returns e.
func (e *ErrorTracker) WithEvents(step float64, times ...float64) *ErrorTracker {
	e.step = math.Abs(step)
	e.events = append([]float64(nil), times...)
	return e
}

func (e *ErrorTracker) Name() string { return "max_error" }

func (e *ErrorTracker) Init(t0 float64, y0 dynamo.State, t float64) {
	e.maxError, e.lastError, e.maxTime, e.maxTimeError = 0, 0, t0, 0
	e.h = float64(dynamo.DirectionOf(t0, t)) * e.step
	e.next = t0 + e.h
	e.onGrid = true
}

func (e *ErrorTracker) HandleStep(in *sampling.Interpolator, isLast bool) error {
	start, end := in.PreviousTime(), in.CurrentTime()
	if e.step > 0 {
		if !e.onGrid {
			e.checkTime(start)
		}
		// a step restarted from an event ends one full step after it
		e.onGrid = end == e.next || end == start+e.h
		if e.onGrid {
			e.next = end + e.h
		}
	}

	if !e.straddlesEvent(start, end) {
		mid := start + 0.5*in.Duration()
		y, err := in.StateAt(mid)
		if err != nil {
			return err
		}
		e.check(mid, y)
	}
	if isLast {
		e.check(end, in.CurrentState())
	}
	return nil
}

func (e *ErrorTracker) check(t float64, y dynamo.State) {
	err := y.MaxDistance(e.exact(t))
	e.lastError = err
	if err > e.maxError {
		e.maxError = err
		e.maxTime = t
	}
}

// checkTime records the distance of a located event to the closest exact
// event time.
func (e *ErrorTracker) checkTime(t float64) {
	if len(e.events) == 0 {
		return
	}
	best := math.Inf(1)
	for _, te := range e.events {
		best = math.Min(best, math.Abs(t-te))
	}
	if best > e.maxTimeError {
		e.maxTimeError = best
	}
}

func (e *ErrorTracker) straddlesEvent(a, b float64) bool {
	lo, hi := math.Min(a, b), math.Max(a, b)
	for _, te := range e.events {
		if lo < te && te < hi {
			return true
		}
	}
	return false
}

func (e *ErrorTracker) Value() float64 { return e.maxError }

func (e *ErrorTracker) LastError() float64 { return e.lastError }

// MaxErrorTime is the time at which the largest error was seen.
func (e *ErrorTracker) MaxErrorTime() float64 { return e.maxTime }

// MaxTimeError is the largest distance between a located event and the
// exact event time closest to it. It stays zero without WithEvents.
func (e *ErrorTracker) MaxTimeError() float64 { return e.maxTimeError }
