package metrics

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/sampling"
)

// oscillator is d²x/dt² = -x with energy (x² + v²)/2.
type oscillator struct{}

func (oscillator) Dimension() int { return 2 }

func (oscillator) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{y[1], -y[0]}, nil
}

func (oscillator) Energy(y dynamo.State) float64 {
	return 0.5 * (y[0]*y[0] + y[1]*y[1])
}

func advance(t *testing.T, eq dynamo.Equation, t0 float64, y0 dynamo.State, h float64, n int, obs sampling.Observer) {
	t.Helper()
	obs.Init(t0, y0, t0+float64(n)*h)
	stepper := integrators.NewEuler()
	y, tc := y0, t0
	for i := 0; i < n; i++ {
		s, err := stepper.Advance(eq, tc, y, tc+h)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if err := obs.HandleStep(sampling.NewInterpolator(s), i == n-1); err != nil {
			t.Fatalf("handle step: %v", err)
		}
		y, tc = s.Y1, s.T1
	}
}

func TestEnergyDriftGrowsWithEuler(t *testing.T) {
	m := NewEnergyDrift(oscillator{})
	advance(t, oscillator{}, 0, dynamo.State{1, 0}, 0.1, 10, m)

	// explicit Euler multiplies the energy by 1 + h² each step
	want := math.Pow(1.01, 10) - 1
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("drift = %v, want %v", m.Value(), want)
	}
	if m.Name() != "energy_drift" {
		t.Errorf("unexpected name %q", m.Name())
	}
}

func TestEnergyDriftReset(t *testing.T) {
	m := NewEnergyDrift(oscillator{})
	advance(t, oscillator{}, 0, dynamo.State{1, 0}, 0.1, 5, m)
	if m.Value() == 0 {
		t.Fatal("expected non-zero drift")
	}

	m.Init(0, dynamo.State{0, 2}, 1)
	if m.Value() != 0 {
		t.Errorf("expected zero drift after Init, got %v", m.Value())
	}
	if m.Final() != 2 {
		t.Errorf("expected energy 2, got %v", m.Final())
	}
}

func TestErrorTracker(t *testing.T) {
	exact := func(t float64) dynamo.State { return dynamo.State{math.Cos(t), -math.Sin(t)} }
	m := NewErrorTracker(exact)
	advance(t, oscillator{}, 0, dynamo.State{1, 0}, 0.01, 100, m)

	if m.Value() <= 0 || m.Value() > 0.02 {
		t.Errorf("max error %v out of expected range", m.Value())
	}
	if m.LastError() > m.Value() {
		t.Errorf("last error %v exceeds max error %v", m.LastError(), m.Value())
	}
	if m.MaxErrorTime() <= 0 {
		t.Errorf("max error time %v", m.MaxErrorTime())
	}
}

// slope is y' = 1.
type slope struct{}

func (slope) Dimension() int { return 1 }

func (slope) Derive(float64, dynamo.State) (dynamo.State, error) { return dynamo.State{1}, nil }

// jumpAt is y = t - 0.5 that drops by 10 at t = 0.5.
func jumpAt(t float64) dynamo.State {
	if t < 0.5 {
		return dynamo.State{t - 0.5}
	}
	return dynamo.State{t - 10.5}
}

// feed hands m the Euler steps of slope between the given times, restarting
// from the exact solution after every reset time.
func feed(t *testing.T, m *ErrorTracker, times []float64, resets map[int]bool) {
	t.Helper()
	y := jumpAt(times[0])
	for i := 1; i < len(times); i++ {
		s, err := integrators.NewEuler().Advance(slope{}, times[i-1], y, times[i])
		if err != nil {
			t.Fatal(err)
		}
		if err := m.HandleStep(sampling.NewInterpolator(s), i == len(times)-1); err != nil {
			t.Fatal(err)
		}
		y = s.Y1
		if resets[i] {
			y = jumpAt(times[i])
		}
	}
}

func TestErrorTrackerAroundLateEvent(t *testing.T) {
	const h = 1.0
	// the event at 0.5 is located at 1.2, past the middle of its piece
	tn := 1.2
	times := []float64{0, tn, tn + h, tn + h + h}

	plain := NewErrorTracker(jumpAt)
	plain.Init(0, jumpAt(0), times[len(times)-1])
	feed(t, plain, times, map[int]bool{1: true})
	if plain.Value() < 9 {
		t.Fatalf("without event times the sample at 0.6 should see the jump, got %v", plain.Value())
	}

	m := NewErrorTracker(jumpAt).WithEvents(h, 0.5)
	m.Init(0, jumpAt(0), times[len(times)-1])
	feed(t, m, times, map[int]bool{1: true})
	if m.Value() > 1e-12 {
		t.Errorf("max error %v at t=%v, want the piece holding the event skipped", m.Value(), m.MaxErrorTime())
	}
	if math.Abs(m.MaxTimeError()-0.7) > 1e-12 {
		t.Errorf("MaxTimeError() = %v, want 0.7", m.MaxTimeError())
	}
}

func TestErrorTrackerTimeErrorFollowsTheGrid(t *testing.T) {
	h := -0.25
	// backward steps from 2, with an event located at 1.61 that leaves the
	// grid untouched and one at 1.12 that restarts it
	t1, t2 := 2+h, 2+h+h
	times := []float64{2, t1, 1.61, t2, t2 + h, 1.12, 1.12 + h, 1.12 + h + h}
	events := []float64{1.6, 1.1}

	m := NewErrorTracker(func(t float64) dynamo.State { return dynamo.State{t - 0.5} }).WithEvents(h, events...)
	m.Init(2, dynamo.State{1.5}, times[len(times)-1])
	y := dynamo.State{1.5}
	for i := 1; i < len(times); i++ {
		s, err := integrators.NewEuler().Advance(slope{}, times[i-1], y, times[i])
		if err != nil {
			t.Fatal(err)
		}
		if err := m.HandleStep(sampling.NewInterpolator(s), i == len(times)-1); err != nil {
			t.Fatal(err)
		}
		y = s.Y1
	}

	if got := m.MaxTimeError(); math.Abs(got-0.02) > 1e-12 {
		t.Errorf("MaxTimeError() = %v, want 0.02", got)
	}
	if m.Value() > 1e-12 {
		t.Errorf("max error %v on an exact ramp", m.Value())
	}

	m.Init(2, dynamo.State{1.5}, 0)
	if m.MaxTimeError() != 0 {
		t.Errorf("Init kept time error %v", m.MaxTimeError())
	}
}

func TestStability(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"all within", 10, 1},
		{"all outside", 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStability(tt.threshold)
			advance(t, oscillator{}, 0, dynamo.State{1, 0}, 0.1, 5, m)
			if m.Value() != tt.want {
				t.Errorf("Value() = %v, want %v", m.Value(), tt.want)
			}
		})
	}

	if NewStability(1).Value() != 1 {
		t.Error("expected stability 1 without samples")
	}
}

func TestRecordCollectors(t *testing.T) {
	steps := testutil.ToFloat64(StepsTotal)
	RecordStep(-0.5)
	RecordStep(0.25)
	if got := testutil.ToFloat64(StepsTotal) - steps; got != 2 {
		t.Errorf("steps increment = %v, want 2", got)
	}

	stops := testutil.ToFloat64(EventsTotal.WithLabelValues("stop"))
	RecordEvent("stop")
	if got := testutil.ToFloat64(EventsTotal.WithLabelValues("stop")) - stops; got != 1 {
		t.Errorf("stop events increment = %v, want 1", got)
	}

	failed := testutil.ToFloat64(RunsTotal.WithLabelValues("failed"))
	RecordRun("failed")
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues("failed")) - failed; got != 1 {
		t.Errorf("failed runs increment = %v, want 1", got)
	}
}
