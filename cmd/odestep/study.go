package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/analysis"
	"github.com/san-kum/odestep/internal/automation"
	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/optim"
	"github.com/san-kum/odestep/internal/physics"
	"github.com/san-kum/odestep/internal/sim"
	"github.com/san-kum/odestep/internal/viz"
)

// studyCommands are the commands running many integrations of a problem.
func studyCommands() []*cobra.Command {
	compareCmd := &cobra.Command{
		Use:   "compare [problem] [steppers...]",
		Short: "measure the convergence order of steppers on a problem with a known solution",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSteppers,
	}
	compareCmd.Flags().Float64("step", 0.1, "largest step")
	compareCmd.Flags().Int("halvings", 4, "number of times the step is halved")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [problem]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.ExactArgs(1),
		RunE:  lyapunov,
	}
	integrationFlags(lyapunovCmd)
	lyapunovCmd.Flags().Float64("duration", 100, "integration time")
	lyapunovCmd.Flags().Float64("perturbation", 1e-8, "initial separation")

	poincareCmd := &cobra.Command{
		Use:   "poincare [problem]",
		Short: "plot the upward crossings of a state component through a level",
		Args:  cobra.ExactArgs(1),
		RunE:  poincare,
	}
	integrationFlags(poincareCmd)
	sectionFlags(poincareCmd)
	poincareCmd.Flags().Float64("t1", 0, "target time (defaults to the problem's)")
	poincareCmd.Flags().IntP("x", "x", 0, "state index for the x axis")
	poincareCmd.Flags().IntP("y", "y", 1, "state index for the y axis")

	bifurcationCmd := &cobra.Command{
		Use:   "bifurcation [problem]",
		Short: "sweep a parameter and plot the distinct section values",
		Args:  cobra.ExactArgs(1),
		RunE:  bifurcation,
	}
	integrationFlags(bifurcationCmd)
	sectionFlags(bifurcationCmd)
	rangeFlags(bifurcationCmd, 20)
	bifurcationCmd.Flags().Int("record", 0, "state component recorded at the crossings")
	bifurcationCmd.Flags().Float64("transient", 50, "time skipped before recording")
	bifurcationCmd.Flags().Float64("duration", 50, "recorded time")

	sweepCmd := &cobra.Command{
		Use:   "sweep [problem]",
		Short: "run a problem for evenly spaced values of a parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  sweep,
	}
	integrationFlags(sweepCmd)
	rangeFlags(sweepCmd, 5)
	sweepCmd.Flags().Int("parallel", 0, "concurrent runs (0 for no limit)")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [problem]",
		Short: "run a problem from randomly perturbed initial states",
		Args:  cobra.ExactArgs(1),
		RunE:  monteCarlo,
	}
	integrationFlags(monteCarloCmd)
	monteCarloCmd.Flags().Int("trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64("perturbation", 0.1, "largest perturbation per component")
	monteCarloCmd.Flags().Int64("seed", 1, "random seed")
	monteCarloCmd.Flags().Int("parallel", 0, "concurrent runs (0 for no limit)")

	tuneCmd := &cobra.Command{
		Use:   "tune [problem]",
		Short: "grid search the parameters minimising a metric",
		Args:  cobra.ExactArgs(1),
		RunE:  tune,
	}
	integrationFlags(tuneCmd)
	tuneCmd.Flags().StringArray("grid", nil, "candidate values, name=v1,v2,... (repeatable)")
	tuneCmd.Flags().String("metric", "max_error", "metric to minimise")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every run of a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  scenario,
	}
	scenarioCmd.Flags().Int("parallel", 0, "concurrent runs (0 for no limit)")
	scenarioCmd.Flags().Bool("save", false, "save every run")

	return []*cobra.Command{compareCmd, lyapunovCmd, poincareCmd, bifurcationCmd, sweepCmd, monteCarloCmd, tuneCmd, scenarioCmd}
}

func integrationFlags(cmd *cobra.Command) {
	cmd.Flags().String("stepper", "rk4", "stepper (euler, midpoint, rk4)")
	cmd.Flags().Float64("step", config.DefaultStep, "integration step")
	cmd.Flags().StringToString("param", nil, "problem parameter, name=value (repeatable)")
}

func sectionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("cross", 0, "state component defining the section")
	cmd.Flags().Float64("level", 0, "level the component crosses upwards")
}

func rangeFlags(cmd *cobra.Command, points int) {
	cmd.Flags().String("sweep", "", "parameter to sweep")
	cmd.Flags().Float64("from", 0, "first parameter value")
	cmd.Flags().Float64("to", 1, "last parameter value")
	cmd.Flags().Int("points", points, "number of parameter values")
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for name, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// baseConfig builds the run config shared by the study commands.
func baseConfig(cmd *cobra.Command, problem string) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := config.DefaultConfig()
	cfg.Problem = problem
	cfg.Stepper, _ = flags.GetString("stepper")
	cfg.Step, _ = flags.GetFloat64("step")
	raw, _ := flags.GetStringToString("param")
	params, err := parseParams(raw)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		cfg.Params = params
	}
	return cfg, cfg.Validate()
}

// setupProblem resolves the problem and stepper of cfg with the parameters
// applied.
func setupProblem(registry *experiment.Registry, cfg *config.Config) (*physics.Problem, sim.Stepper, error) {
	p, err := registry.GetProblem(cfg.Problem)
	if err != nil {
		return nil, nil, err
	}
	if err := applyParams(p.Equation, cfg.Params); err != nil {
		return nil, nil, err
	}
	s, err := registry.GetStepper(cfg.Stepper)
	if err != nil {
		return nil, nil, err
	}
	return p, s, nil
}

func applyParams(eq dynamo.Equation, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	tunable, ok := eq.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("problem has no parameters")
	}
	for name, v := range params {
		if err := tunable.SetParam(name, v); err != nil {
			return err
		}
	}
	return nil
}

func compareSteppers(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	problem := args[0]
	steppers := args[1:]
	if len(steppers) == 0 {
		steppers = registry.ListSteppers()
	}
	step, _ := cmd.Flags().GetFloat64("step")
	halvings, _ := cmd.Flags().GetInt("halvings")

	ctx, stop := interruptible()
	defer stop()

	rows := make([][]string, 0)
	summary := make([][]string, 0, len(steppers))
	for _, name := range steppers {
		report, err := registry.Convergence(ctx, problem, name, step, halvings)
		if err != nil {
			return err
		}
		for _, pt := range report.Points {
			rows = append(rows, []string{
				name,
				fmt.Sprintf("%g", pt.Step),
				fmt.Sprintf("%.3e", pt.Error),
				fmt.Sprintf("%.3e", pt.TimeError),
				fmt.Sprint(pt.Steps),
				fmt.Sprint(pt.Evaluations),
			})
		}
		s, _ := registry.GetStepper(name)
		summary = append(summary, []string{name, fmt.Sprint(s.Order()), fmt.Sprintf("%.2f", report.Order)})
	}

	fmt.Println(viz.Title.Render("convergence on " + problem))
	fmt.Println(viz.Table([]string{"stepper", "step", "max error", "time error", "steps", "evaluations"}, rows))
	fmt.Println(viz.Table([]string{"stepper", "order", "observed"}, summary))
	return nil
}

func lyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(cmd, args[0])
	if err != nil {
		return err
	}
	p, s, err := setupProblem(experiment.NewRegistry(), cfg)
	if err != nil {
		return err
	}
	duration, _ := cmd.Flags().GetFloat64("duration")
	perturbation, _ := cmd.Flags().GetFloat64("perturbation")

	lambda, err := analysis.LyapunovExponent(s, p.Equation, p.T0, p.InitialState(), cfg.Step, duration, perturbation)
	if err != nil {
		return err
	}

	verdict := viz.StatusDone.Render("regular")
	if lambda > 0.01 {
		verdict = viz.StatusStopped.Render("chaotic")
	}
	fmt.Println(viz.Metric("largest lyapunov exponent", fmt.Sprintf("%.6g", lambda)))
	fmt.Println(viz.Metric("behaviour", verdict))
	return nil
}

func poincare(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(cmd, args[0])
	if err != nil {
		return err
	}
	p, s, err := setupProblem(experiment.NewRegistry(), cfg)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	cross, _ := flags.GetInt("cross")
	level, _ := flags.GetFloat64("level")
	x, _ := flags.GetInt("x")
	y, _ := flags.GetInt("y")
	end := p.T1
	if flags.Changed("t1") {
		end, _ = flags.GetFloat64("t1")
	}

	section, err := analysis.PoincareSection(s, cfg.Step, p.Equation, p.T0, p.InitialState(), end, cross, level)
	if err != nil {
		return err
	}
	fmt.Println(viz.Metric("crossings", fmt.Sprint(len(section.Times))))
	if len(section.Times) == 0 {
		return nil
	}
	portrait, err := section.Portrait(x, y)
	if err != nil {
		return err
	}
	fmt.Print(portrait.ASCII(60, 20))
	return nil
}

func sweepValues(cmd *cobra.Command) (string, []float64, error) {
	flags := cmd.Flags()
	param, _ := flags.GetString("sweep")
	if param == "" {
		return "", nil, fmt.Errorf("--sweep is required")
	}
	from, _ := flags.GetFloat64("from")
	to, _ := flags.GetFloat64("to")
	points, _ := flags.GetInt("points")
	if points < 2 {
		return "", nil, fmt.Errorf("--points must be at least 2, got %d", points)
	}
	values := make([]float64, points)
	for i := range values {
		values[i] = from + (to-from)*float64(i)/float64(points-1)
	}
	return param, values, nil
}

func bifurcation(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()
	p, s, err := setupProblem(registry, cfg)
	if err != nil {
		return err
	}
	param, values, err := sweepValues(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	cross, _ := flags.GetInt("cross")
	level, _ := flags.GetFloat64("level")
	record, _ := flags.GetInt("record")
	transient, _ := flags.GetFloat64("transient")
	duration, _ := flags.GetFloat64("duration")

	ctx, stop := interruptible()
	defer stop()

	diagram, err := analysis.BifurcationDiagram(ctx, s, analysis.Sweep{
		NewEquation: func() dynamo.Equation {
			fresh, _ := registry.GetProblem(cfg.Problem)
			_ = applyParams(fresh.Equation, cfg.Params)
			return fresh.Equation
		},
		Param:     param,
		Values:    values,
		Y0:        p.InitialState(),
		Step:      cfg.Step,
		Transient: transient,
		Duration:  duration,
		Cross:     cross,
		Level:     level,
		Record:    record,
	})
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("y%d at the crossings of y%d = %g, %s in [%g, %g]",
		record, cross, level, param, values[0], values[len(values)-1])))
	fmt.Print(analysis.BifurcationToASCII(diagram, 60, 20))
	return nil
}

func sweep(cmd *cobra.Command, args []string) error {
	base, err := baseConfig(cmd, args[0])
	if err != nil {
		return err
	}
	param, values, err := sweepValues(cmd)
	if err != nil {
		return err
	}
	parallel, _ := cmd.Flags().GetInt("parallel")

	ctx, stop := interruptible()
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:   base,
		Param:  param,
		Min:    values[0],
		Max:    values[len(values)-1],
		Points: len(values),
	}, experiment.NewRegistry(), parallel)
	if err != nil {
		return err
	}

	var metricNames []string
	if len(results) > 0 {
		metricNames = sortedParams(results[0].Metrics)
	}
	headers := append([]string{param, "t", "final state"}, metricNames...)
	rows := make([][]string, len(results))
	for i, r := range results {
		row := []string{fmt.Sprintf("%.6g", r.Value), fmt.Sprintf("%.6g", r.FinalTime), fmt.Sprintf("%.4g", []float64(r.FinalState))}
		for _, name := range metricNames {
			row = append(row, fmt.Sprintf("%.4g", r.Metrics[name]))
		}
		rows[i] = row
	}
	fmt.Println(viz.Table(headers, rows))
	return nil
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	base, err := baseConfig(cmd, args[0])
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	trials, _ := flags.GetInt("trials")
	perturbation, _ := flags.GetFloat64("perturbation")
	seed, _ := flags.GetInt64("seed")
	parallel, _ := flags.GetInt("parallel")

	ctx, stop := interruptible()
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         base,
		Perturbation: perturbation,
		Trials:       trials,
		Seed:         seed,
	}, experiment.NewRegistry(), parallel)
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Println(viz.Metric("trials", fmt.Sprint(len(results))))
	fmt.Println(viz.Metric("stable", viz.StatusDone.Render(fmt.Sprint(stable))))
	fmt.Println(viz.Metric("unstable", viz.StatusFailed.Render(fmt.Sprint(unstable))))
	return nil
}

func tune(cmd *cobra.Command, args []string) error {
	base, err := baseConfig(cmd, args[0])
	if err != nil {
		return err
	}
	grid, _ := cmd.Flags().GetStringArray("grid")
	metric, _ := cmd.Flags().GetString("metric")
	if len(grid) == 0 {
		return fmt.Errorf("--grid is required")
	}

	names := make([]string, 0, len(grid))
	ranges := make([][]float64, 0, len(grid))
	for _, g := range grid {
		name, list, ok := strings.Cut(g, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid grid %q, want name=v1,v2,...", g)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("grid %s: %w", name, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	ctx, stop := interruptible()
	defer stop()

	best, value, err := optim.NewGridSearch(names, ranges).Search(ctx, base, experiment.NewRegistry(), metric)
	if err != nil {
		return err
	}
	for _, name := range sortedParams(best) {
		fmt.Println(viz.Metric(name, fmt.Sprintf("%g", best[name])))
	}
	fmt.Println(viz.Metric(metric, fmt.Sprintf("%.6g", value)))
	return nil
}

func scenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	parallel, _ := cmd.Flags().GetInt("parallel")
	save, _ := cmd.Flags().GetBool("save")

	ctx, stop := interruptible()
	defer stop()

	outcomes, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), parallel)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(sc.Name))
	if sc.Description != "" {
		fmt.Println(viz.Subtle.Render(sc.Description))
	}

	headers := []string{"run", "problem", "stepper", "t", "steps", "events", "status"}
	if save {
		headers = append(headers, "id")
	}
	rows := make([][]string, len(outcomes))
	for i, out := range outcomes {
		res := out.Result
		rows[i] = []string{
			sc.Runs[i].Name,
			out.Problem.Name,
			out.Config.Stepper,
			fmt.Sprintf("%.6g", res.FinalTime),
			fmt.Sprint(res.Steps),
			fmt.Sprint(len(res.Events)),
			viz.Status(res.Stopped),
		}
		if save {
			st, err := openStore()
			if err != nil {
				return err
			}
			id, err := st.Save(out)
			if err != nil {
				return err
			}
			rows[i] = append(rows[i], id)
		}
	}
	fmt.Println(viz.Table(headers, rows))
	return nil
}
