package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/events"
	"github.com/san-kum/odestep/internal/metrics"
	"github.com/san-kum/odestep/internal/physics"
	"github.com/san-kum/odestep/internal/sampling"
	"github.com/san-kum/odestep/internal/sim"
)

// stabilityBound is the magnitude above which a state component counts as
// blown up.
const stabilityBound = 1e6

// Outcome is everything a finished experiment produced.
type Outcome struct {
	Config  *config.Config
	Problem *physics.Problem
	Result  *sim.Result
	Samples *sampling.Samples
	// Metrics holds the value of every metric observer, keyed by name.
	Metrics map[string]float64
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   zerolog.Logger

	// ctx of the current Run, checked between steps
	ctx       context.Context
	problem   *physics.Problem
	simulator *sim.Simulator
	samples   *sampling.Samples
	metrics   []metrics.Metric
}

func New(cfg *config.Config, registry *Registry) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: registry,
		logger:   zerolog.Nop(),
		ctx:      context.Background(),
	}
}

func (e *Experiment) SetLogger(l zerolog.Logger) { e.logger = l }

// Setup resolves the problem and stepper and wires handlers and observers
// into a new simulator.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	problem, err := e.registry.GetProblem(e.cfg.Problem)
	if err != nil {
		return err
	}
	stepper, err := e.registry.GetStepper(e.cfg.Stepper)
	if err != nil {
		return err
	}
	if err := applyOverrides(problem, e.cfg); err != nil {
		return err
	}

	s := sim.New(stepper, sim.Config{
		Step:          e.cfg.Step,
		MaxSteps:      e.cfg.MaxSteps,
		ValidateState: true,
	})
	s.SetLogger(e.logger)

	settings := eventSettings(e.cfg.Events)
	for _, h := range problem.Handlers {
		s.AddEventHandler(h, settings)
	}
	if stop := e.cfg.StopWhen; stop != nil {
		if stop.Index >= problem.Equation.Dimension() {
			return fmt.Errorf("stop_when index %d out of range for %s (dimension %d)",
				stop.Index, problem.Name, problem.Equation.Dimension())
		}
		s.AddEventHandler(&events.Threshold{Index: stop.Index, Level: stop.Level, Action: events.Stop}, settings)
	}

	e.samples = &sampling.Samples{}
	normalizer, err := sampling.NewStepNormalizer(e.cfg.SampleStep, e.samples)
	if err != nil {
		return err
	}
	s.AddObserver(normalizer)

	e.metrics = e.metrics[:0]
	if problem.Exact != nil {
		e.metrics = append(e.metrics, metrics.NewErrorTracker(problem.Exact).WithEvents(e.cfg.Step, problem.Events...))
	}
	if h, ok := problem.Equation.(dynamo.Hamiltonian); ok {
		e.metrics = append(e.metrics, metrics.NewEnergyDrift(h))
	}
	e.metrics = append(e.metrics, metrics.NewStability(stabilityBound))
	for _, m := range e.metrics {
		s.AddObserver(m)
	}
	s.AddObserver(sampling.ObserverFunc(func(*sampling.Interpolator, bool) error {
		return e.ctx.Err()
	}))

	e.problem = problem
	e.simulator = s
	return nil
}

// applyOverrides applies parameters and span overrides of cfg to p.
func applyOverrides(p *physics.Problem, cfg *config.Config) error {
	if len(cfg.Params) > 0 {
		c, ok := p.Equation.(dynamo.Configurable)
		if !ok {
			return fmt.Errorf("problem %s has no parameters", p.Name)
		}
		for name, value := range cfg.Params {
			if err := c.SetParam(name, value); err != nil {
				return err
			}
		}
	}
	if cfg.T0 != nil {
		p.T0 = *cfg.T0
	}
	if cfg.T1 != nil {
		p.T1 = *cfg.T1
	}
	if cfg.Y0 != nil {
		y0 := dynamo.State(cfg.Y0).Clone()
		if err := dynamo.CheckDimension("initial state of "+p.Name, y0, p.Equation.Dimension()); err != nil {
			return err
		}
		p.Y0 = y0
		// the closed form belongs to the default initial state
		p.Exact, p.Events = nil, nil
	}
	return nil
}

func eventSettings(cfg config.EventsConfig) events.Settings {
	settings := events.DefaultSettings()
	if cfg.Convergence > 0 {
		settings.Convergence = cfg.Convergence
	}
	if cfg.MaxIterations > 0 {
		settings.MaxIterations = cfg.MaxIterations
	}
	if cfg.MaxCheck > 0 {
		settings.MaxCheckInterval = cfg.MaxCheck
	}
	settings.Window = cfg.Window
	return settings
}

// Run integrates the problem. Cancelling ctx aborts the run at the next
// step boundary.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.ctx = ctx

	p := e.problem
	e.logger.Info().
		Str("problem", p.Name).
		Str("stepper", e.simulator.Stepper().Name()).
		Float64("step", e.cfg.Step).
		Float64("t0", p.T0).
		Float64("t1", p.T1).
		Msg("experiment started")

	res, err := e.simulator.Run(p.Equation, p.T0, p.InitialState(), p.T1)
	if err != nil {
		return nil, fmt.Errorf("%s with %s: %w", p.Name, e.simulator.Stepper().Name(), err)
	}

	out := &Outcome{
		Config:  e.cfg,
		Problem: p,
		Result:  res,
		Samples: e.samples,
		Metrics: make(map[string]float64, len(e.metrics)),
	}
	for _, m := range e.metrics {
		out.Metrics[m.Name()] = m.Value()
		if et, ok := m.(*metrics.ErrorTracker); ok && len(p.Events) > 0 {
			out.Metrics["max_time_error"] = et.MaxTimeError()
		}
	}

	e.logger.Info().
		Int("steps", res.Steps).
		Int("events", len(res.Events)).
		Bool("stopped", res.Stopped).
		Float64("t", res.FinalTime).
		Msg("experiment finished")
	return out, nil
}

// Simulator returns the simulator built by Setup, for adding observers.
func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}

// ConvergencePoint is the outcome of one run of a convergence study.
type ConvergencePoint struct {
	Step  float64
	Error float64
	// TimeError is the largest distance between a located event and the
	// exact event time, zero for problems without events.
	TimeError   float64
	Steps       int
	Evaluations int
}

type ConvergenceReport struct {
	Problem string
	Stepper string
	Points  []ConvergencePoint
	// Order is the slope of log(error) against log(step).
	Order float64
}

// Convergence integrates problem with step, step/2, ... step/2^halvings
// concurrently and measures the maximal errors in value and in event time
// against the exact solution. Roots are located to a millionth of the step.
func (r *Registry) Convergence(ctx context.Context, problem, stepper string, step float64, halvings int) (*ConvergenceReport, error) {
	if !(step > 0) {
		return nil, fmt.Errorf("step must be positive, got %v", step)
	}
	if halvings < 1 {
		return nil, fmt.Errorf("need at least one halving, got %d", halvings)
	}

	jobs := make([]sim.Job, 0, halvings+1)
	trackers := make([]*metrics.ErrorTracker, 0, halvings+1)
	h := step
	for k := 0; k <= halvings; k++ {
		p, err := r.GetProblem(problem)
		if err != nil {
			return nil, err
		}
		if p.Exact == nil {
			return nil, fmt.Errorf("problem %s has no exact solution", problem)
		}
		st, err := r.GetStepper(stepper)
		if err != nil {
			return nil, err
		}

		s := sim.New(st, sim.Config{Step: h, MaxSteps: config.DefaultMaxSteps, ValidateState: true})
		settings := events.DefaultSettings()
		settings.Convergence = 1e-6 * h
		for _, handler := range p.Handlers {
			s.AddEventHandler(handler, settings)
		}
		tracker := metrics.NewErrorTracker(p.Exact).WithEvents(h, p.Events...)
		s.AddObserver(tracker)

		jobs = append(jobs, sim.Job{
			Name:      fmt.Sprintf("h=%g", h),
			Simulator: s,
			Equation:  p.Equation,
			T0:        p.T0,
			Y0:        p.InitialState(),
			T1:        p.T1,
		})
		trackers = append(trackers, tracker)
		h /= 2
	}

	results, err := sim.NewEnsemble(0).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	report := &ConvergenceReport{Problem: problem, Stepper: stepper}
	for i, res := range results {
		report.Points = append(report.Points, ConvergencePoint{
			Step:        jobs[i].Simulator.Config().Step,
			Error:       trackers[i].Value(),
			TimeError:   trackers[i].MaxTimeError(),
			Steps:       res.Steps,
			Evaluations: res.Evaluations,
		})
	}
	report.Order = observedOrder(report.Points)
	return report, nil
}

// observedOrder fits log(error) = c + p log(step) by least squares. Points
// with a zero error are left out.
func observedOrder(points []ConvergencePoint) float64 {
	var xs, ys []float64
	for _, pt := range points {
		if pt.Error > 0 {
			xs = append(xs, math.Log(pt.Step))
			ys = append(ys, math.Log(pt.Error))
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}
