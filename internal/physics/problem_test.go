package physics_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odestep/internal/events"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/metrics"
	"github.com/san-kum/odestep/internal/physics"
	"github.com/san-kum/odestep/internal/sim"
)

func problems() []*physics.Problem {
	return []*physics.Problem{
		physics.Ramp(),
		physics.Decay(),
		physics.DecayBackward(),
		physics.Oscillator(),
		physics.Bounce(),
	}
}

func TestExactSolutionsSolveTheirEquation(t *testing.T) {
	for _, p := range problems() {
		t.Run(p.Name, func(t *testing.T) {
			assert.InDeltaSlice(t, p.Y0, p.Exact(p.T0), 1e-15)

			// away from the bounces of Bounce
			for _, tc := range []float64{0.5, 1.0, 3.0, 6.5} {
				if p.T1 < p.T0 {
					tc = -tc
				}
				const h = 1e-5
				dy, err := p.Equation.Derive(tc, p.Exact(tc))
				require.NoError(t, err)
				plus, minus := p.Exact(tc+h), p.Exact(tc-h)
				for i := range dy {
					assert.InDelta(t, dy[i], (plus[i]-minus[i])/(2*h), 1e-6, "t=%v component %d", tc, i)
				}
			}
		})
	}
}

func TestInitialStateIsACopy(t *testing.T) {
	p := physics.Decay()
	y := p.InitialState()
	y[0] = 42
	assert.Equal(t, 1.0, p.Y0[0])
}

func TestProblemsAreIndependent(t *testing.T) {
	a, b := physics.Oscillator(), physics.Oscillator()
	require.NoError(t, a.Equation.(*physics.Harmonic).SetParam("omega", 2))
	assert.Equal(t, 1.0, b.Equation.(*physics.Harmonic).Omega)
}

func TestProblemsIntegrateAccurately(t *testing.T) {
	for _, p := range problems() {
		t.Run(p.Name, func(t *testing.T) {
			s := sim.New(integrators.NewRK4(), sim.Config{Step: 0.01, MaxSteps: 100_000, ValidateState: true})
			tracker := metrics.NewErrorTracker(p.Exact)
			s.AddObserver(tracker)
			for _, h := range p.Handlers {
				s.AddEventHandler(h, events.DefaultSettings())
			}

			res, err := s.Run(p.Equation, p.T0, p.InitialState(), p.T1)
			require.NoError(t, err)
			assert.Less(t, tracker.Value(), 1e-6)
			assert.Less(t, tracker.LastError(), 1e-6)
			assert.Equal(t, sim.Done, res.Status)
		})
	}
}

func TestBounceStopsAtTwelve(t *testing.T) {
	p := physics.Bounce()
	s := sim.New(integrators.NewRK4(), sim.Config{Step: 0.01, MaxSteps: 10_000})
	for _, h := range p.Handlers {
		s.AddEventHandler(h, events.DefaultSettings())
	}

	res, err := s.Run(p.Equation, p.T0, p.InitialState(), p.T1)
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.InDelta(t, 12.0, res.FinalTime, 1e-9)
	assert.InDeltaSlice(t, p.Exact(12), res.FinalState, 1e-5)

	// the first component vanishes at k*pi - a
	require.Len(t, res.Events, 5)
	for k, ev := range res.Events[:4] {
		assert.Equal(t, 0, ev.Handler)
		assert.Equal(t, events.ResetState, ev.Action)
		assert.False(t, ev.Increasing)
		assert.InDelta(t, float64(k+1)*math.Pi-1.2, ev.Time, 1e-6)
		assert.InDelta(t, p.Events[k], ev.Time, 1e-6)
	}
	last := res.Events[4]
	assert.Equal(t, 1, last.Handler)
	assert.Equal(t, events.Stop, last.Action)
	assert.InDelta(t, p.Events[4], last.Time, 1e-9)
}
