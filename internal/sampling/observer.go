package sampling

import "github.com/san-kum/odestep/internal/dynamo"

// Observer receives every accepted step of a run.
//
// The interpolator handed to HandleStep is only valid for the duration of
// the call; observers that keep it must take a Copy.
type Observer interface {
	Init(t0 float64, y0 dynamo.State, t float64)
	HandleStep(in *Interpolator, isLast bool) error
}

// ObserverFunc adapts a plain step callback to Observer.
type ObserverFunc func(in *Interpolator, isLast bool) error

func (f ObserverFunc) Init(float64, dynamo.State, float64) {}

func (f ObserverFunc) HandleStep(in *Interpolator, isLast bool) error {
	return f(in, isLast)
}
