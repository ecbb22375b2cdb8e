package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/sentomas/Digital-Twin-CNC/internal/config"
	"github.com/sentomas/Digital-Twin-CNC/internal/logger"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
	"github.com/sentomas/Digital-Twin-CNC/internal/prognosis"
	"github.com/sentomas/Digital-Twin-CNC/internal/spectrum"
	"github.com/sentomas/Digital-Twin-CNC/internal/storage"
	"github.com/sentomas/Digital-Twin-CNC/internal/twin"
)

var (
	dataDir  string
	logLevel string

	configFile string
	preset     string
	duration   float64
	seed       int64
	feed       = -1.0
	spindle    = -1.0
	speed      float64
	coolant    bool
	output     string
	emitEvery  int
	save       bool
	runs       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cnctwin",
		Short: "spindle digital twin with vibration analytics",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cnctwin", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logger.InfoLevel, "log level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a batch simulation",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use a named machine preset")
	runCmd.Flags().Float64Var(&duration, "time", 0, "simulated duration (overrides config)")
	runCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	runCmd.Flags().Float64Var(&feed, "feed", -1, "feed override [0, 1.5]")
	runCmd.Flags().Float64Var(&spindle, "spindle", -1, "spindle override [0, 1.5]")
	runCmd.Flags().Float64Var(&speed, "speed", 0, "spindle target speed (rev/min)")
	runCmd.Flags().BoolVar(&coolant, "coolant", false, "force coolant on")
	runCmd.Flags().StringVar(&output, "output", "table", "telemetry output: table, json, none")
	runCmd.Flags().IntVar(&emitEvery, "emit-every", 0, "emit one telemetry line per N ticks")
	runCmd.Flags().BoolVar(&save, "save", false, "persist the run to the data directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive dashboard",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	liveCmd.Flags().StringVar(&preset, "preset", "", "use a named machine preset")
	liveCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one configuration across several seeds in parallel",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use a named machine preset")
	sweepCmd.Flags().Float64Var(&duration, "time", 0, "simulated duration (overrides config)")
	sweepCmd.Flags().Int64Var(&seed, "seed", 1, "first seed of the ensemble")
	sweepCmd.Flags().IntVar(&runs, "runs", 8, "number of ensemble members")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "show a stored run's summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showReport,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "plot the vibration spectrum of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSpectrum,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available machine presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, sweepCmd, listCmd, reportCmd, spectrumCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig merges preset, config file, and CLI flags, in that
// order of increasing precedence.
func resolveConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		c := *p
		cfg = &c
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if duration > 0 {
		cfg.Run.Duration = duration
	}
	if feed >= 0 {
		cfg.Command.FeedOverride = feed
	}
	if spindle >= 0 {
		cfg.Command.SpindleOverride = spindle
	}
	if speed > 0 {
		cfg.Command.TargetSpeed = speed
	}
	if coolant {
		cfg.Command.Coolant = true
	}
	if emitEvery > 0 {
		cfg.Run.EmitEvery = emitEvery
	}
	if cfg.Run.Seed == 0 {
		cfg.Run.Seed = seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	log := logger.New(logLevel)
	defer log.Sync()

	tw := twin.New(cfg.Parameters(), cfg.InitialCommand(), cfg.Run.Seed, log)
	switch output {
	case "table":
		tw.AddWriter(twin.NewStdoutWriter(cfg.Run.EmitEvery))
	case "json":
		tw.AddWriter(twin.NewJSONWriter(os.Stdout, cfg.Run.EmitEvery))
	case "none":
	default:
		return fmt.Errorf("unknown output: %s", output)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	steps := cfg.Steps()
	log.Infow("starting run", "steps", steps, "duration", cfg.Run.Duration, "seed", cfg.Run.Seed)
	start := time.Now()

	if err := tw.RunSteps(ctx, steps); err != nil {
		log.Warnw("run interrupted", "error", err)
	}
	elapsed := time.Since(start)

	printSummary(tw, elapsed)

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg.Parameters(), cfg.Run.Seed, cfg.Run.Duration,
			tw.Stats(), tw.State().Wear, tw.Reports(), tw.Telemetry())
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return nil
}

func printSummary(tw *twin.Twin, elapsed time.Duration) {
	stats := tw.Stats()
	state := tw.State()
	est := tw.Estimate()

	fmt.Printf("\ncompleted in %v\n\n", elapsed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "status\t%s\n", stats.Status)
	fmt.Fprintf(w, "rms displacement\t%.3e m\n", stats.RMSDisplacement)
	fmt.Fprintf(w, "peak velocity\t%.3e m/s\n", stats.PeakVelocity)
	fmt.Fprintf(w, "rms acceleration\t%.3e m/s²\n", stats.RMSAcceleration)
	fmt.Fprintf(w, "dominant frequency\t%.1f Hz\n", stats.DominantFrequency)
	fmt.Fprintf(w, "average load\t%.1f %%\n", stats.AverageLoad)
	fmt.Fprintf(w, "wear\t%.4f\n", state.Wear)
	fmt.Fprintf(w, "temperature\t%.1f °C\n", state.Temperature)
	fmt.Fprintf(w, "cycles completed\t%d\n", len(tw.Reports()))
	if est.Stable {
		fmt.Fprintf(w, "remaining life\tstable\n")
	} else {
		fmt.Fprintf(w, "remaining life\t%.1f time units\n", est.TimeToFailure)
	}
	w.Flush()

	if bins := tw.Spectrum(); len(bins) > 0 {
		mags := make([]float64, len(bins))
		for i, b := range bins {
			mags[i] = b.Magnitude
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(mags,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("displacement spectrum, %.1f Hz per bin", bins[0].Frequency)),
		))
		if peak, ok := spectrum.Dominant(bins); ok {
			fmt.Printf("peak: %.3e m at %.1f Hz\n", peak.Magnitude, peak.Frequency)
		}
	}

	if len(est.Forecast) > 0 {
		vals := make([]float64, len(est.Forecast))
		for i, p := range est.Forecast {
			vals[i] = p.Value
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(vals,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("rms velocity forecast, %.1f time units per step", prognosis.ForecastStep)),
		))
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	if runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", runs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ens := twin.NewEnsemble(cfg.Parameters(), cfg.InitialCommand(), cfg.Run.Seed, runs)
	start := time.Now()
	results, err := ens.Run(ctx, cfg.Steps())
	if err != nil {
		return err
	}
	fmt.Printf("%d runs of %.1fs in %v\n\n", runs, cfg.Run.Duration, time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTATUS\tRMS DISP\tAVG LOAD\tWEAR\tCYCLES\tREMAINING LIFE")
	for _, r := range results {
		life := "stable"
		if !r.Estimate.Stable {
			life = fmt.Sprintf("%.1f", r.Estimate.TimeToFailure)
		}
		fmt.Fprintf(w, "%d\t%s\t%.3e\t%.1f%%\t%.4f\t%d\t%s\n",
			r.Seed, r.Stats.Status, r.Stats.RMSDisplacement,
			r.Stats.AverageLoad, r.FinalWear, r.Cycles, life)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nworst status: %s\n", twin.WorstStatus(results))
	return nil
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
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tCYCLES\tSTATUS\tWEAR")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.1fs\t%d\t%s\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			len(run.Cycles),
			run.FinalStatus,
			run.FinalWear,
		)
	}
	return w.Flush()
}

func showReport(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotSpectrum(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	samples, err := st.LoadTelemetry(args[0])
	if err != nil {
		return err
	}

	bins := spectrum.Compute(samples, machine.SampleRate)
	if len(bins) == 0 {
		return fmt.Errorf("not enough telemetry for a spectrum (need %d samples, have %d)",
			spectrum.MinSamples, len(samples))
	}

	mags := make([]float64, len(bins))
	for i, b := range bins {
		mags[i] = b.Magnitude
	}
	fmt.Println(asciigraph.Plot(mags,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("displacement spectrum, %.1f Hz per bin", bins[0].Frequency)),
	))
	if peak, ok := spectrum.Dominant(bins); ok {
		fmt.Printf("peak: %.3e m at %.1f Hz\n", peak.Magnitude, peak.Frequency)
	}
	return nil
}
