package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/odestep/internal/analysis"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/export"
	"github.com/san-kum/odestep/internal/sampling"
	"github.com/san-kum/odestep/internal/viz"
)

var (
	component int
	xAxis     int
	yAxis     int
	svgOut    string
	outFile   string
	width     int
	height    int
)

// runsCommands are the commands working on saved runs.
func runsCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one state component of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&component, "component", 0, "state component")
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the plot as SVG to this file")

	eventsCmd := &cobra.Command{
		Use:   "events [run_id]",
		Short: "show the events of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showEvents,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "draw the phase portrait of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVarP(&xAxis, "x", "x", 0, "state index for the x axis")
	phaseCmd.Flags().IntVarP(&yAxis, "y", "y", 1, "state index for the y axis")
	phaseCmd.Flags().IntVar(&width, "width", 60, "width in characters")
	phaseCmd.Flags().IntVar(&height, "height", 20, "height in characters")
	phaseCmd.Flags().StringVar(&svgOut, "svg", "", "also write the portrait as SVG to this file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one state component",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&component, "component", 0, "state component")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the sampled states of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	return []*cobra.Command{listCmd, plotCmd, eventsCmd, phaseCmd, analyzeCmd, exportJSONCmd, exportCSVCmd}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(viz.Subtle.Render("no runs in " + dataDir))
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Problem,
			r.Stepper,
			fmt.Sprint(r.Step),
			fmt.Sprintf("%.6g", r.FinalTime),
			fmt.Sprint(r.Steps),
			fmt.Sprint(len(r.Events)),
			viz.Status(r.Stopped),
		}
	}
	fmt.Println(viz.Table([]string{"id", "time", "problem", "stepper", "step", "t", "steps", "events", "status"}, rows))
	return nil
}

// loadSamples reads the sampled trajectory of a run.
func loadSamples(runID string) (*sampling.Samples, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("run %s has no samples", runID)
	}
	samples := &sampling.Samples{Times: times, States: make([]dynamo.State, len(states))}
	for i, s := range states {
		samples.States[i] = dynamo.State(s)
	}
	return samples, nil
}

func componentOf(samples *sampling.Samples, i int) ([]float64, error) {
	if dim := len(samples.States[0]); i < 0 || i >= dim {
		return nil, fmt.Errorf("component %d out of range for dimension %d", i, dim)
	}
	return samples.Component(i), nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	samples, err := loadSamples(runID)
	if err != nil {
		return err
	}
	data, err := componentOf(samples, component)
	if err != nil {
		return err
	}

	caption := fmt.Sprintf("y%d over [%g, %g]", component, samples.Times[0], samples.Times[len(samples.Times)-1])
	fmt.Println(viz.Plot(data, caption))

	if svgOut == "" {
		return nil
	}
	return writeFile(svgOut, func(w io.Writer) error {
		return export.SeriesToSVG(w, samples.Times, data, 800, 400, "#00ccff")
	})
}

func showEvents(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s with %s", meta.Problem, meta.Stepper)))
	if len(meta.Events) == 0 {
		fmt.Println(viz.Subtle.Render("no events"))
		return nil
	}
	rows := make([][]string, len(meta.Events))
	for i, ev := range meta.Events {
		rows[i] = eventRow(i, ev.Time, ev.Handler, ev.Increasing, ev.Action)
	}
	fmt.Println(viz.Table(eventHeaders, rows))
	fmt.Println(viz.Metric("status", viz.Status(meta.Stopped)))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	samples, err := loadSamples(args[0])
	if err != nil {
		return err
	}
	portrait, err := analysis.PhasePortrait(samples, xAxis, yAxis)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("y%d against y%d", yAxis, xAxis)))
	fmt.Print(viz.Portrait(portrait, width, height))

	if svgOut == "" {
		return nil
	}
	return writeFile(svgOut, func(w io.Writer) error {
		return export.PortraitToSVG(w, portrait, 600, 600, "#00ffff")
	})
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	samples, err := loadSamples(args[0])
	if err != nil {
		return err
	}
	if samples.Len() < 4 {
		return fmt.Errorf("run %s has too few samples to analyze", args[0])
	}
	data, err := componentOf(samples, component)
	if err != nil {
		return err
	}

	dt := math.Abs(samples.Times[1] - samples.Times[0])
	freq, err := analysis.DominantFrequency(data, dt)
	if err != nil {
		return err
	}

	fmt.Println(viz.Metric("samples", fmt.Sprint(samples.Len())))
	fmt.Println(viz.Metric("sample step", fmt.Sprintf("%g", dt)))
	fmt.Println(viz.Metric("dominant frequency", fmt.Sprintf("%.6g", freq)))
	if freq > 0 {
		fmt.Println(viz.Metric("period", fmt.Sprintf("%.6g", 1/freq)))
	}

	spectrum := analysis.PowerSpectrum(data)
	if len(spectrum) > 1 {
		fmt.Println()
		fmt.Println(viz.Plot(spectrum[1:], fmt.Sprintf("power spectrum of y%d, bins of %.4g", component, 1/(float64(len(data))*dt))))
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	return writeOutput(func(w io.Writer) error { return st.ExportJSON(args[0], w) })
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	return writeOutput(func(w io.Writer) error { return st.ExportCSV(args[0], w) })
}

// writeOutput writes to --output, or stdout when it is empty.
func writeOutput(write func(io.Writer) error) error {
	if outFile == "" {
		return write(os.Stdout)
	}
	if err := writeFile(outFile, write); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, viz.Subtle.Render("written to "+outFile))
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
