package sim

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/events"
	"github.com/san-kum/odestep/internal/metrics"
	"github.com/san-kum/odestep/internal/sampling"
)

// Simulator integrates equations with a fixed step. It only holds
// configuration: every call to Run builds its own detector table and step
// records. Observers and handlers are shared by the runs of one Simulator,
// so concurrent runs need one Simulator each.
type Simulator struct {
	stepper   Stepper
	cfg       Config
	observers []sampling.Observer
	handlers  []events.Registration
	logger    zerolog.Logger
}

func New(stepper Stepper, cfg Config) *Simulator {
	return &Simulator{
		stepper: stepper,
		cfg:     cfg,
		logger:  zerolog.Nop(),
	}
}

func (s *Simulator) AddObserver(o sampling.Observer) { s.observers = append(s.observers, o) }

// AddEventHandler registers h; its index is the number of handlers
// registered before it.
func (s *Simulator) AddEventHandler(h events.Handler, settings events.Settings) {
	s.handlers = append(s.handlers, events.Registration{Handler: h, Settings: settings})
}

func (s *Simulator) SetLogger(l zerolog.Logger) { s.logger = l }

func (s *Simulator) Stepper() Stepper { return s.stepper }
func (s *Simulator) Config() Config   { return s.cfg }

// Integrate runs from (t0, y0) to t and copies the final state into yOut.
// It returns the time reached, which is t unless a Stop event ended the run
// earlier. yOut is left untouched on error.
func (s *Simulator) Integrate(eq dynamo.Equation, t0 float64, y0 dynamo.State, t float64, yOut dynamo.State) (float64, error) {
	if err := dynamo.CheckDimension("output state", yOut, eq.Dimension()); err != nil {
		return t0, err
	}
	res, err := s.Run(eq, t0, y0, t)
	if err != nil {
		return t0, err
	}
	copy(yOut, res.FinalState)
	return res.FinalTime, nil
}

// Run integrates from (t0, y0) to t and reports the final point together
// with the run statistics. Equation errors are returned as is; other fatal
// conditions are wrapped in a *dynamo.IntegrationError carrying the last
// accepted point.
func (s *Simulator) Run(eq dynamo.Equation, t0 float64, y0 dynamo.State, t float64) (*Result, error) {
	if err := s.validate(eq, t0, y0, t); err != nil {
		return nil, err
	}
	det, err := events.NewDetector(s.handlers)
	if err != nil {
		return nil, err
	}

	r := &run{
		sim:    s,
		eq:     &countingEquation{Equation: eq},
		det:    det,
		dir:    dynamo.DirectionOf(t0, t),
		target: t,
		t:      t0,
		y:      y0.Clone(),
		res:    &Result{Status: Running},
		log: s.logger.With().
			Str("stepper", s.stepper.Name()).
			Float64("t0", t0).
			Float64("t1", t).
			Logger(),
	}
	return r.execute()
}

func (s *Simulator) validate(eq dynamo.Equation, t0 float64, y0 dynamo.State, t float64) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if err := dynamo.CheckDimension("initial state", y0, eq.Dimension()); err != nil {
		return err
	}
	if math.IsNaN(t0) || math.IsInf(t0, 0) || math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: integration bounds [%v, %v] are not finite", dynamo.ErrDegenerateStep, t0, t)
	}
	if math.Abs(t-t0) <= 1e-12*math.Max(math.Abs(t0), math.Abs(t)) {
		return fmt.Errorf("%w: empty integration span [%v, %v]", dynamo.ErrDegenerateStep, t0, t)
	}
	return nil
}

// run is the mutable part of one integration.
type run struct {
	sim    *Simulator
	eq     *countingEquation
	det    *events.Detector
	dir    dynamo.Direction
	target float64
	t      float64
	y      dynamo.State
	res    *Result
	log    zerolog.Logger
}

func (r *run) execute() (*Result, error) {
	r.log.Debug().Int("handlers", r.det.Len()).Msg("run started")

	for _, o := range r.sim.observers {
		o.Init(r.t, r.y.Clone(), r.target)
	}
	r.det.Init(r.t, r.y, r.target)

	if err := r.loop(); err != nil {
		r.res.Status = Failed
		r.res.Evaluations = r.eq.calls
		metrics.RecordRun("failed")
		r.log.Debug().Err(err).Int("steps", r.res.Steps).Float64("t", r.t).Msg("run failed")
		return nil, err
	}

	r.res.Status = Done
	r.res.FinalTime = r.t
	r.res.FinalState = r.y
	r.res.Evaluations = r.eq.calls

	outcome := "done"
	if r.res.Stopped {
		outcome = "stopped"
	}
	metrics.RecordRun(outcome)
	r.log.Debug().
		Str("outcome", outcome).
		Int("steps", r.res.Steps).
		Int("evaluations", r.res.Evaluations).
		Float64("t", r.t).
		Msg("run finished")
	return r.res, nil
}

func (r *run) loop() error {
	step := float64(r.dir) * r.sim.cfg.Step

	for r.t != r.target {
		if limit := r.sim.cfg.MaxSteps; limit > 0 && r.res.Steps >= limit {
			return r.fail(fmt.Errorf("%w: %d steps before reaching t=%v", dynamo.ErrStepExhausted, limit, r.target))
		}

		end := r.t + step
		if !r.dir.Before(end, r.target) {
			end = r.target
		}
		if end == r.t {
			return r.fail(fmt.Errorf("%w: step %v vanishes at t=%v", dynamo.ErrDegenerateStep, step, r.t))
		}

		st, err := r.sim.stepper.Advance(r.eq, r.t, r.y, end)
		if err != nil {
			return err
		}
		r.res.Steps++
		metrics.RecordStep(st.H())

		if r.sim.cfg.ValidateState && !st.Y1.IsValid() {
			return r.fail(fmt.Errorf("%w: at t=%v", dynamo.ErrInvalidState, st.T1))
		}

		stop, err := r.accept(sampling.NewInterpolator(st))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// accept scans one step for events and dispatches the accepted pieces. It
// returns true when a Stop event ended the run.
func (r *run) accept(in *sampling.Interpolator) (bool, error) {
	for {
		state, occ, err := r.det.Scan(in)
		if err != nil {
			return false, r.fail(err)
		}
		if state == events.NoEvent {
			if err := r.dispatch(in, in.CurrentTime() == r.target); err != nil {
				return false, err
			}
			r.t, r.y = in.CurrentTime(), in.CurrentState()
			return false, nil
		}

		out, err := r.det.Process(occ)
		if err != nil {
			return false, r.fail(err)
		}
		r.record(out)

		switch out.Action {
		case events.Stop:
			if err := r.dispatch(occ.Interpolator, true); err != nil {
				return false, err
			}
			r.t, r.y = out.Time, out.State
			r.res.Stopped = out.Time != r.target
			return true, nil

		case events.ResetState, events.ResetDerivatives:
			if err := r.dispatch(occ.Interpolator, out.Time == r.target); err != nil {
				return false, err
			}
			r.t, r.y = out.Time, out.State
			return false, nil

		default:
			if out.Time == in.CurrentTime() {
				if err := r.dispatch(occ.Interpolator, out.Time == r.target); err != nil {
					return false, err
				}
				r.t, r.y = out.Time, out.State
				return false, nil
			}
			if err := r.dispatch(occ.Interpolator, false); err != nil {
				return false, err
			}
			if in, err = in.Restrict(out.Time); err != nil {
				return false, r.fail(err)
			}
		}
	}
}

func (r *run) dispatch(in *sampling.Interpolator, isLast bool) error {
	for _, o := range r.sim.observers {
		if err := o.HandleStep(in, isLast); err != nil {
			return r.fail(err)
		}
	}
	return nil
}

func (r *run) record(out *events.Outcome) {
	for _, ev := range out.Events {
		r.res.Events = append(r.res.Events, EventRecord{
			Time:       out.Time,
			Handler:    ev.Handler,
			Increasing: ev.Increasing,
			Action:     ev.Action,
		})
		metrics.RecordEvent(ev.Action.String())
	}
	r.log.Debug().
		Float64("t", out.Time).
		Int("handlers", len(out.Events)).
		Stringer("action", out.Action).
		Msg("event")
}

func (r *run) fail(err error) error {
	return &dynamo.IntegrationError{
		Step:    r.res.Steps,
		Time:    r.t,
		State:   r.y.Clone(),
		Wrapped: err,
	}
}
