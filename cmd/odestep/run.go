package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/log"
	"github.com/san-kum/odestep/internal/viz"
)

var (
	stepper    string
	step       float64
	t0         float64
	t1         float64
	y0         []float64
	maxSteps   int
	sampleStep float64
	configFile string
	preset     string
	stopIndex  int
	stopLevel  float64
	params     map[string]string
	noSave     bool
)

func runCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "integrate a problem and save the run",
		Long: "Integrate a problem with a fixed step stepper. Settings come from, in increasing\n" +
			"priority, the defaults, --preset, --config and the flags given explicitly.",
		Args: cobra.MaximumNArgs(1),
		RunE: runSimulation,
	}
	runCmd.Flags().StringVar(&stepper, "stepper", config.DefaultConfig().Stepper, "stepper (euler, midpoint, rk4)")
	runCmd.Flags().Float64Var(&step, "step", config.DefaultStep, "integration step")
	runCmd.Flags().Float64Var(&t0, "t0", 0, "start time (defaults to the problem's)")
	runCmd.Flags().Float64Var(&t1, "t1", 0, "target time (defaults to the problem's)")
	runCmd.Flags().Float64SliceVar(&y0, "y0", nil, "initial state (defaults to the problem's)")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", config.DefaultMaxSteps, "step budget (0 for none)")
	runCmd.Flags().Float64Var(&sampleStep, "sample", config.DefaultSampleStep, "sampling interval of the saved trajectory")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().IntVar(&stopIndex, "stop-index", 0, "state component watched by --stop-level")
	runCmd.Flags().Float64Var(&stopLevel, "stop-level", 0, "stop when the watched component crosses this level")
	runCmd.Flags().StringToStringVar(&params, "param", nil, "problem parameter, name=value (repeatable)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the run")
	return runCmd
}

// resolveConfig layers the preset, the config file and the changed flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	problem := ""
	if len(args) == 1 {
		problem = args[0]
	}

	if preset != "" {
		if problem == "" {
			return nil, fmt.Errorf("--preset needs a problem")
		}
		p := config.GetPreset(problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(problem))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if problem != "" {
		cfg.Problem = problem
	}

	flags := cmd.Flags()
	if flags.Changed("stepper") {
		cfg.Stepper = stepper
	}
	if flags.Changed("step") {
		cfg.Step = step
	}
	if flags.Changed("t0") {
		cfg.T0 = config.Float(t0)
	}
	if flags.Changed("t1") {
		cfg.T1 = config.Float(t1)
	}
	if flags.Changed("y0") {
		cfg.Y0 = y0
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}
	if flags.Changed("sample") {
		cfg.SampleStep = sampleStep
	}
	if flags.Changed("stop-level") || flags.Changed("stop-index") {
		cfg.StopWhen = &config.StopConfig{Index: stopIndex, Level: stopLevel}
	}
	if len(params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for name, raw := range params {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", name, err)
			}
			cfg.Params[name] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, experiment.NewRegistry())
	exp.SetLogger(log.WithComponent("experiment"))
	if err := exp.Setup(); err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s with %s, step %g", cfg.Problem, cfg.Stepper, cfg.Step)))
	start := time.Now()

	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	res := out.Result
	fmt.Println(viz.Metric("status", viz.Status(res.Stopped)))
	fmt.Println(viz.Metric("final time", fmt.Sprintf("%.10g", res.FinalTime)))
	fmt.Println(viz.Metric("final state", fmt.Sprintf("%.6g", []float64(res.FinalState))))
	fmt.Println(viz.Metric("steps", fmt.Sprint(res.Steps)))
	fmt.Println(viz.Metric("evaluations", fmt.Sprint(res.Evaluations)))
	fmt.Println(viz.Metric("elapsed", elapsed.String()))

	if len(out.Metrics) > 0 {
		fmt.Println()
		for _, name := range sortedParams(out.Metrics) {
			fmt.Println(viz.Metric(name, fmt.Sprintf("%.6g", out.Metrics[name])))
		}
	}

	if len(res.Events) > 0 {
		rows := make([][]string, len(res.Events))
		for i, ev := range res.Events {
			rows[i] = eventRow(i, ev.Time, ev.Handler, ev.Increasing, ev.Action.String())
		}
		fmt.Println()
		fmt.Println(viz.Table(eventHeaders, rows))
	}

	if out.Samples.Len() > 1 {
		fmt.Println()
		for i := range out.Problem.Equation.Dimension() {
			fmt.Printf("%s %s\n", viz.MetricLabel.Render(fmt.Sprintf("y%-2d", i)), viz.Sparkline(out.Samples.Component(i), 60))
		}
	}

	if noSave {
		return nil
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	runID, err := st.Save(out)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.Metric("run id", runID))
	return nil
}

var eventHeaders = []string{"#", "time", "handler", "direction", "action"}

func eventRow(i int, t float64, handler int, increasing bool, action string) []string {
	dir := "decreasing"
	if increasing {
		dir = "increasing"
	}
	return []string{fmt.Sprint(i + 1), fmt.Sprintf("%.10g", t), fmt.Sprint(handler), dir, action}
}

func sortedParams(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
