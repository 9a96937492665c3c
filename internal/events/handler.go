package events

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Action tells the integrator what to do once an event has been located.
type Action int

const (
	Continue Action = iota
	ResetDerivatives
	ResetState
	Stop
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case ResetDerivatives:
		return "reset_derivatives"
	case ResetState:
		return "reset_state"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, error) {
	for _, a := range []Action{Continue, ResetDerivatives, ResetState, Stop} {
		if a.String() == s {
			return a, nil
		}
	}
	return Continue, fmt.Errorf("unknown event action: %q", s)
}

// Handler is a switching function g(t, y) whose zeros are events.
//
// A handler holds no per-run bookkeeping; the detector keeps it, so the same
// handler value may be registered with several concurrent runs provided its
// own methods are safe for that.
type Handler interface {
	Init(t0 float64, y0 dynamo.State, t float64)
	G(t float64, y dynamo.State) float64
	EventOccurred(t float64, y dynamo.State, increasing bool) Action
	// ResetState is only called when EventOccurred returned ResetState.
	ResetState(t float64, y dynamo.State) dynamo.State
}

// Settings control how a handler is watched.
type Settings struct {
	// MaxCheckInterval is the largest time span between two evaluations of g
	// when looking for a sign change. +Inf checks only the step ends.
	MaxCheckInterval float64
	// Convergence is the time accuracy of located roots.
	Convergence float64
	// MaxIterations bounds the root search.
	MaxIterations int
	// Window is the span after an event during which the same handler cannot
	// trigger again. Zero means Convergence.
	Window float64
}

func DefaultSettings() Settings {
	return Settings{
		MaxCheckInterval: math.Inf(1),
		Convergence:      1e-10,
		MaxIterations:    100,
	}
}

func (s Settings) Validate() error {
	if !(s.MaxCheckInterval > 0) {
		return fmt.Errorf("%w: max check interval must be positive, got %v", dynamo.ErrInvalidSettings, s.MaxCheckInterval)
	}
	if !(s.Convergence > 0) || math.IsInf(s.Convergence, 0) {
		return fmt.Errorf("%w: convergence must be positive, got %v", dynamo.ErrInvalidSettings, s.Convergence)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", dynamo.ErrInvalidSettings, s.MaxIterations)
	}
	if s.Window < 0 || math.IsNaN(s.Window) || math.IsInf(s.Window, 0) {
		return fmt.Errorf("%w: window must be finite and non-negative, got %v", dynamo.ErrInvalidSettings, s.Window)
	}
	return nil
}

func (s Settings) window() float64 {
	if s.Window > 0 {
		return s.Window
	}
	return s.Convergence
}

// Registration pairs a handler with its settings.
type Registration struct {
	Handler  Handler
	Settings Settings
}
