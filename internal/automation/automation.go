// Package automation runs batches of experiments: scripted scenarios loaded
// from YAML, parameter sweeps and Monte Carlo trials around an initial
// state. Runs of a batch execute concurrently and are reported in input
// order.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/log"
)

// Scenario defines a scripted batch of runs
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun is one run of a scenario. Fields missing from the file take
// their defaults from config.DefaultConfig.
type ScenarioRun struct {
	Name   string
	Config *config.Config
}

func (r *ScenarioRun) UnmarshalYAML(node *yaml.Node) error {
	var named struct {
		Name string `yaml:"name"`
	}
	if err := node.Decode(&named); err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if err := node.Decode(cfg); err != nil {
		return err
	}
	r.Name = named.Name
	r.Config = cfg
	return nil
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %s has no runs", path)
	}
	for i := range scenario.Runs {
		run := &scenario.Runs[i]
		if run.Name == "" {
			run.Name = fmt.Sprintf("run-%d", i+1)
		}
		if err := run.Config.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", run.Name, err)
		}
	}
	return &scenario, nil
}

// RunScenario executes all runs of a scenario, at most limit at a time
// (no limit when limit <= 0). The first failure cancels the runs still
// in flight.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, limit int) ([]*experiment.Outcome, error) {
	logger := log.WithComponent("automation")
	cfgs := make([]*config.Config, len(scenario.Runs))
	for i, run := range scenario.Runs {
		cfgs[i] = run.Config
	}

	outcomes, err := runAll(ctx, registry, cfgs, limit)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	for i, out := range outcomes {
		logger.Info().
			Str("scenario", scenario.Name).
			Str("run", scenario.Runs[i].Name).
			Int("steps", out.Result.Steps).
			Msg("scenario run finished")
	}
	return outcomes, nil
}

func runAll(ctx context.Context, registry *experiment.Registry, cfgs []*config.Config, limit int) ([]*experiment.Outcome, error) {
	outcomes := make([]*experiment.Outcome, len(cfgs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, cfg := range cfgs {
		g.Go(func() error {
			out, err := runOne(gctx, registry, cfg)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func runOne(ctx context.Context, registry *experiment.Registry, cfg *config.Config) (*experiment.Outcome, error) {
	exp := experiment.New(cfg, registry)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// ParameterSweep runs one experiment per value of a parameter, spaced
// evenly over [Min, Max].
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Min    float64
	Max    float64
	Points int
}

// SweepResult holds the outcome for one parameter value
type SweepResult struct {
	Value      float64
	FinalTime  float64
	FinalState dynamo.State
	Stopped    bool
	Metrics    map[string]float64
}

func (s *ParameterSweep) values() ([]float64, error) {
	if s.Base == nil {
		return nil, fmt.Errorf("sweep has no base config")
	}
	if s.Param == "" {
		return nil, fmt.Errorf("sweep has no parameter")
	}
	if s.Points < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", s.Points)
	}
	if s.Points == 1 {
		return []float64{s.Min}, nil
	}
	vals := make([]float64, s.Points)
	step := (s.Max - s.Min) / float64(s.Points-1)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	vals[s.Points-1] = s.Max
	return vals, nil
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, limit int) ([]SweepResult, error) {
	vals, err := sweep.values()
	if err != nil {
		return nil, err
	}

	cfgs := make([]*config.Config, len(vals))
	for i, v := range vals {
		cfg := sweep.Base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[sweep.Param] = v
		cfgs[i] = cfg
	}

	outcomes, err := runAll(ctx, registry, cfgs, limit)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", sweep.Param, err)
	}

	results := make([]SweepResult, len(outcomes))
	for i, out := range outcomes {
		results[i] = SweepResult{
			Value:      vals[i],
			FinalTime:  out.Result.FinalTime,
			FinalState: out.Result.FinalState,
			Stopped:    out.Result.Stopped,
			Metrics:    out.Metrics,
		}
	}
	return results, nil
}

// MonteCarloConfig perturbs the initial state of Base uniformly in
// [-Perturbation, Perturbation] per component.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	Trials       int
	Seed         int64
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	Trial      int
	Y0         dynamo.State
	FinalState dynamo.State
	// Stable is false when the state left the stability bound or became
	// invalid.
	Stable bool
}

// RunMonteCarlo executes Trials runs from perturbed initial states. The
// perturbations only depend on Seed.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, registry *experiment.Registry, limit int) ([]MonteCarloResult, error) {
	if mc.Base == nil {
		return nil, fmt.Errorf("monte carlo has no base config")
	}
	if mc.Trials < 1 {
		return nil, fmt.Errorf("monte carlo needs at least one trial, got %d", mc.Trials)
	}

	base := dynamo.State(mc.Base.Y0)
	if base == nil {
		p, err := registry.GetProblem(mc.Base.Problem)
		if err != nil {
			return nil, err
		}
		base = p.InitialState()
	}

	rng := rand.New(rand.NewSource(mc.Seed))
	results := make([]MonteCarloResult, mc.Trials)
	for i := range results {
		y0 := base.Clone()
		for j := range y0 {
			y0[j] += (rng.Float64() - 0.5) * 2 * mc.Perturbation
		}
		results[i] = MonteCarloResult{Trial: i, Y0: y0}
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range results {
		g.Go(func() error {
			cfg := mc.Base.Clone()
			cfg.Y0 = results[i].Y0.Clone()
			out, err := runOne(gctx, registry, cfg)
			switch {
			case errors.Is(err, dynamo.ErrInvalidState):
				return nil
			case err != nil:
				return fmt.Errorf("trial %d: %w", i, err)
			}
			results[i].FinalState = out.Result.FinalState
			results[i].Stable = out.Metrics["stability"] == 1
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloStats counts stable and unstable trials
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
