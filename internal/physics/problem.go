package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/events"
)

// Problem is an initial value problem ready to integrate.
type Problem struct {
	Name     string
	Equation dynamo.Equation
	T0, T1   float64
	Y0       dynamo.State
	// Exact is the closed form solution, nil when unknown.
	Exact func(t float64) dynamo.State
	// Events are the times at which Exact meets its handlers.
	Events []float64
	// Handlers are part of the problem definition, such as the bounces of
	// Bounce. Each Problem value owns fresh handlers.
	Handlers []events.Handler
}

// InitialState returns a copy of Y0.
func (p *Problem) InitialState() dynamo.State { return p.Y0.Clone() }

// ramp is y' = 1.
type ramp struct{}

func (ramp) Dimension() int { return 1 }

func (ramp) Derive(float64, dynamo.State) (dynamo.State, error) {
	return dynamo.State{1}, nil
}

func Ramp() *Problem {
	return &Problem{
		Name:     "ramp",
		Equation: ramp{},
		T0:       0,
		T1:       5,
		Y0:       dynamo.State{0},
		Exact:    func(t float64) dynamo.State { return dynamo.State{t} },
	}
}

// decay is y' = -y, componentwise.
type decay struct{ dim int }

func (d decay) Dimension() int { return d.dim }

func (d decay) Derive(_ float64, y dynamo.State) (dynamo.State, error) {
	return y.Scale(-1), nil
}

func decayProblem(name string, t1 float64) *Problem {
	y0 := dynamo.State{1.0, 0.1}
	return &Problem{
		Name:     name,
		Equation: decay{dim: 2},
		T0:       0,
		T1:       t1,
		Y0:       y0,
		Exact: func(t float64) dynamo.State {
			return y0.Scale(math.Exp(-t))
		},
	}
}

func Decay() *Problem { return decayProblem("decay", 4) }

// DecayBackward integrates the decay towards negative times.
func DecayBackward() *Problem { return decayProblem("decay-backward", -4) }

// Harmonic is the undamped oscillator d²x/dt² = -ω²x. State: [x, v].
type Harmonic struct {
	Omega float64
}

func (h *Harmonic) Dimension() int { return 2 }

func (h *Harmonic) Derive(_ float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{y[1], -h.Omega * h.Omega * y[0]}, nil
}

func (h *Harmonic) Energy(y dynamo.State) float64 {
	return 0.5 * (y[1]*y[1] + h.Omega*h.Omega*y[0]*y[0])
}

func (h *Harmonic) GetParams() map[string]float64 { return map[string]float64{"omega": h.Omega} }

func (h *Harmonic) SetParam(name string, value float64) error {
	if name != "omega" {
		return unknownParam("oscillator", name)
	}
	h.Omega = value
	return nil
}

// Oscillator starts the harmonic oscillator at rest from x = 1 and follows
// it for two periods.
func Oscillator() *Problem {
	h := &Harmonic{Omega: 1}
	return &Problem{
		Name:     "oscillator",
		Equation: h,
		T0:       0,
		T1:       4 * math.Pi / h.Omega,
		Y0:       dynamo.State{1, 0},
		Exact: func(t float64) dynamo.State {
			w := h.Omega
			return dynamo.State{math.Cos(w * t), -w * math.Sin(w*t)}
		},
	}
}

// bounce reflects the oscillator every time its first component reaches
// zero, so it stays in the upper half plane.
type bounce struct{}

func (bounce) Init(float64, dynamo.State, float64) {}

func (bounce) G(_ float64, y dynamo.State) float64 { return y[0] }

func (bounce) EventOccurred(float64, dynamo.State, bool) events.Action {
	return events.ResetState
}

func (bounce) ResetState(_ float64, y dynamo.State) dynamo.State {
	return dynamo.State{-y[0], -y[1]}
}

const bouncePhase = 1.2

// Bounce is the oscillator y = (sin(t+a), cos(t+a)) reflected at every zero
// of its first component and stopped at t = 12, before its nominal end.
func Bounce() *Problem {
	return &Problem{
		Name:     "bounce",
		Equation: &Harmonic{Omega: 1},
		T0:       0,
		T1:       15,
		Y0:       dynamo.State{math.Sin(bouncePhase), math.Cos(bouncePhase)},
		Exact: func(t float64) dynamo.State {
			s, c := math.Sincos(t + bouncePhase)
			if s < 0 {
				return dynamo.State{-s, -c}
			}
			return dynamo.State{s, c}
		},
		Events: []float64{
			math.Pi - bouncePhase,
			2*math.Pi - bouncePhase,
			3*math.Pi - bouncePhase,
			4*math.Pi - bouncePhase,
			12,
		},
		Handlers: []events.Handler{
			bounce{},
			&events.AtTime{Time: 12, Action: events.Stop},
		},
	}
}
