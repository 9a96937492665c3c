package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/log"
	"github.com/san-kum/odestep/internal/storage"
	"github.com/san-kum/odestep/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	logJSON    bool
	metricsOut string
)

// main registers the commands and flags of the odestep CLI and executes the
// root command, exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "odestep",
		Short:         "fixed step ODE integration with event detection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Configure(log.Config{Level: logLevel, Pretty: !logJSON})
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsOut == "" {
				return nil
			}
			return prometheus.WriteToTextfile(metricsOut, prometheus.DefaultGatherer)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".odestep", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to $LOG_LEVEL or info")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON instead of console text")
	rootCmd.PersistentFlags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics of the command to this file")

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list problems and steppers",
		Args:  cobra.NoArgs,
		RunE:  listProblems,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(problemsCmd, presetsCmd)
	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(runsCommands()...)
	rootCmd.AddCommand(studyCommands()...)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusFailed.Render("error:"), err)
		os.Exit(1)
	}
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func listProblems(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()

	rows := make([][]string, 0)
	for _, name := range registry.ListProblems() {
		p, err := registry.GetProblem(name)
		if err != nil {
			return err
		}
		exact := "-"
		if p.Exact != nil {
			exact = "yes"
		}
		rows = append(rows, []string{
			name,
			fmt.Sprint(p.Equation.Dimension()),
			fmt.Sprintf("[%g, %g]", p.T0, p.T1),
			exact,
			strings.Join(config.ListPresets(name), ", "),
		})
	}
	fmt.Println(viz.Table([]string{"problem", "dim", "span", "exact", "presets"}, rows))
	fmt.Println(viz.Metric("steppers", strings.Join(registry.ListSteppers(), ", ")))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	problems := make([]string, 0, len(config.Presets))
	if len(args) == 1 {
		problems = append(problems, args[0])
	} else {
		problems = experiment.NewRegistry().ListProblems()
	}

	rows := make([][]string, 0)
	for _, problem := range problems {
		for _, name := range config.ListPresets(problem) {
			cfg := config.GetPreset(problem, name)
			rows = append(rows, []string{problem, name, cfg.Stepper, fmt.Sprint(cfg.Step), describeOverrides(cfg)})
		}
	}
	if len(rows) == 0 {
		fmt.Println(viz.Subtle.Render("no presets"))
		return nil
	}
	fmt.Println(viz.Table([]string{"problem", "preset", "stepper", "step", "overrides"}, rows))
	return nil
}

func describeOverrides(cfg *config.Config) string {
	var parts []string
	if cfg.T1 != nil {
		parts = append(parts, fmt.Sprintf("t1=%g", *cfg.T1))
	}
	if cfg.Y0 != nil {
		parts = append(parts, fmt.Sprintf("y0=%v", cfg.Y0))
	}
	for _, k := range sortedParams(cfg.Params) {
		parts = append(parts, fmt.Sprintf("%s=%g", k, cfg.Params[k]))
	}
	if cfg.StopWhen != nil {
		parts = append(parts, fmt.Sprintf("stop y[%d]=%g", cfg.StopWhen.Index, cfg.StopWhen.Level))
	}
	return strings.Join(parts, " ")
}
