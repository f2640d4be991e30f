package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/nrsolve/internal/config"
	"github.com/san-kum/nrsolve/internal/export"
	"github.com/san-kum/nrsolve/internal/newton"
	"github.com/san-kum/nrsolve/internal/storage"
	"github.com/san-kum/nrsolve/internal/systems"
	"github.com/san-kum/nrsolve/internal/trace"
	"github.com/san-kum/nrsolve/internal/tui"
	"github.com/san-kum/nrsolve/internal/viz"
)

var (
	dataDir  string
	logLevel string
	theme    string

	guess      []float64
	tol        float64
	maxIters   int
	condLimit  float64
	configFile string
	preset     string

	quiet    bool
	noSave   bool
	strict   bool
	showPlot bool

	outPath string
)

// exitError carries a process exit status other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nrsolve",
		Short:        "newton-raphson solver for nonlinear systems",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viz.SetTheme(theme)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, []string{config.DefaultSystem})
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".nrsolve", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "terminal", "colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	solveCmd := &cobra.Command{
		Use:   "solve [system]",
		Short: "solve a system and save the run",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	addSolverFlags(solveCmd)
	solveCmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the per-iteration trace")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the run")
	solveCmd.Flags().BoolVar(&strict, "strict", false, "exit with status 2 when the iteration budget runs out")
	solveCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the convergence history")

	stepCmd := &cobra.Command{
		Use:   "step [system]",
		Short: "step through a solve interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  runStep,
	}
	addSolverFlags(stepCmd)

	systemsCmd := &cobra.Command{
		Use:   "systems",
		Short: "list example systems",
		RunE:  listSystems,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for system: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				cfg := config.GetPreset(args[0], p)
				fmt.Printf("  %-16s guess=%v tol=%g max_iters=%d\n", p, cfg.InitialGuess, cfg.Tolerance, cfg.MaxIterations)
			}
			return nil
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export iteration history to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render the convergence chart to an image",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVar(&outPath, "out", "", "output file (default <run_id>.png)")

	rootCmd.AddCommand(solveCmd, stepCmd, systemsCmd, presetsCmd, initConfigCmd, listCmd, showCmd, exportJSONCmd, exportCSVCmd, exportPNGCmd)
	return rootCmd
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().Float64SliceVar(&guess, "guess", nil, "initial guess, comma separated")
	cmd.Flags().Float64Var(&tol, "tol", config.DefaultTolerance, "tolerance on the change between iterates")
	cmd.Flags().IntVar(&maxIters, "max-iters", config.DefaultMaxIterations, "maximum iterations")
	cmd.Flags().Float64Var(&condLimit, "cond-limit", newton.DefaultConditionLimit, "largest accepted jacobian condition number")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig layers defaults, preset, config file and explicit flags, in that order.
func resolveConfig(cmd *cobra.Command, system string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.System = system

	if preset != "" {
		p := config.GetPreset(system, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(system))
		}
		cfg = p
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if fileCfg.System != system {
			return nil, fmt.Errorf("config file is for system %s, not %s", fileCfg.System, system)
		}
		cfg = fileCfg
	}

	flags := cmd.Flags()
	if flags.Changed("guess") {
		cfg.InitialGuess = guess
	}
	if flags.Changed("tol") {
		cfg.Tolerance = tol
	}
	if flags.Changed("max-iters") {
		cfg.MaxIterations = maxIters
	}
	if flags.Changed("cond-limit") {
		cfg.ConditionLimit = condLimit
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	log, err := trace.NewLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	sys, err := systems.NewRegistry().Get(cfg.System)
	if err != nil {
		return err
	}
	x0 := cfg.Guess(sys.Guess)
	if err := sys.CheckGuess(x0); err != nil {
		return err
	}

	solver := newton.New(cfg.SolverConfig())
	if !quiet {
		solver.AddObserver(trace.NewPrinter(os.Stdout))
	}
	solver.AddObserver(trace.NewLogObserver(log, sys.Name))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("solving %s from %s\n", sys.Name, trace.FormatVector(x0, 4))
	res, solveErr := solver.Solve(ctx, sys.F, sys.DF, x0)
	log.Info("solve finished",
		"system", sys.Name,
		"status", res.Status.String(),
		"iterations", res.Iterations,
		"err", res.Error,
	)

	fmt.Println(viz.Summary(sys.Name, res, solveErr))
	if showPlot {
		if chart := viz.ConvergencePlot(res.History, 60, 10); chart != "" {
			fmt.Println(chart)
		}
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(sys.Name, cfg.SolverConfig(), x0, res, solveErr)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	if solveErr != nil {
		return solveErr
	}
	if res.Status == newton.StatusNonConvergence {
		fmt.Printf("warning: no convergence within %d iterations (error %.3e > tolerance %g)\n", cfg.MaxIterations, res.Error, cfg.Tolerance)
		if strict {
			return &exitError{code: 2, err: res.Err()}
		}
	}
	return nil
}

func runStep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	sys, err := systems.NewRegistry().Get(cfg.System)
	if err != nil {
		return err
	}

	m, err := tui.New(sys, cfg.Guess(sys.Guess), cfg.SolverConfig())
	if err != nil {
		return err
	}
	return tui.Run(m)
}

func listSystems(cmd *cobra.Command, args []string) error {
	registry := systems.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIM\tGUESS\tEQUATIONS")
	for _, name := range registry.List() {
		sys, err := registry.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", sys.Name, sys.Dim, trace.FormatVector(sys.Guess, 2), sys.Description)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tSTATUS\tITERS\tERROR\tTIMESTAMP")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID,
			run.System,
			run.Status,
			run.Iterations,
			formatFinalError(run.FinalError),
			run.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}

func formatFinalError(e *float64) string {
	if e == nil {
		return "-"
	}
	return fmt.Sprintf("%.3e", *e)
}

func loadRun(runID string) (*storage.RunMetadata, []newton.IterationRecord, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	history, err := st.LoadHistory(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, history, nil
}

// runResult rebuilds the solver result of a saved run. A run stored without a
// final error never completed a step, so its error is +Inf.
func runResult(meta *storage.RunMetadata, history []newton.IterationRecord) (*newton.Result, error) {
	status, ok := newton.ParseStatus(meta.Status)
	if !ok {
		return nil, fmt.Errorf("run %s has unknown status %q", meta.ID, meta.Status)
	}
	res := &newton.Result{
		X:          meta.Solution,
		Iterations: meta.Iterations,
		Error:      math.Inf(1),
		Status:     status,
		History:    history,
	}
	if meta.FinalError != nil {
		res.Error = *meta.FinalError
	}
	return res, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}

	res, err := runResult(meta, history)
	if err != nil {
		return err
	}
	var reason error
	if meta.Message != "" {
		reason = errors.New(meta.Message)
	}

	fmt.Println(viz.Summary(meta.System, res, reason))
	fmt.Println(viz.Field("guess", trace.FormatVector(meta.InitialGuess, 4)))
	fmt.Println(viz.Field("tolerance", fmt.Sprintf("%g", meta.Tolerance)))
	fmt.Println(viz.Field("max iters", fmt.Sprintf("%d", meta.MaxIterations)))

	if chart := viz.ConvergencePlot(history, 60, 10); chart != "" {
		fmt.Println()
		fmt.Println(chart)
	}

	if len(history) > 0 {
		path := []newton.Vector{meta.InitialGuess}
		for _, rec := range history {
			path = append(path, rec.X)
		}
		fmt.Println()
		fmt.Print(viz.PathPlot(path, 40, 10))
	}
	return nil
}

// openOutput returns stdout when path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if outPath != "" {
		return export.ExportJSON(outPath, *meta, history)
	}
	return export.WriteJSON(os.Stdout, *meta, history)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := export.WriteCSV(w, len(meta.InitialGuess), history); err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "exported %d iterations to %s\n", len(history), outPath)
	}
	return nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, history, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outPath
	if path == "" {
		path = meta.ID + ".png"
	}
	if err := export.ConvergencePNG(path, meta.System+" ("+meta.Status+")", history); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
