package events

import "github.com/san-kum/odestep/internal/dynamo"

// Threshold fires when component Index of the state crosses Level.
type Threshold struct {
	Index  int
	Level  float64
	Action Action
}

func (h *Threshold) Init(t0 float64, y0 dynamo.State, t float64) {}

func (h *Threshold) G(t float64, y dynamo.State) float64 {
	return y[h.Index] - h.Level
}

func (h *Threshold) EventOccurred(t float64, y dynamo.State, increasing bool) Action {
	return h.Action
}

func (h *Threshold) ResetState(t float64, y dynamo.State) dynamo.State { return y }

// AtTime fires once the integration reaches Time.
type AtTime struct {
	Time   float64
	Action Action
}

func (h *AtTime) Init(t0 float64, y0 dynamo.State, t float64) {}

func (h *AtTime) G(t float64, y dynamo.State) float64 { return t - h.Time }

func (h *AtTime) EventOccurred(t float64, y dynamo.State, increasing bool) Action {
	return h.Action
}

func (h *AtTime) ResetState(t float64, y dynamo.State) dynamo.State { return y }
