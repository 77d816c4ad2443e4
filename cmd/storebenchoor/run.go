package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/storebenchoor/pkg/bench"
	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/orchestrator"
	"github.com/ethpandaops/storebenchoor/pkg/report"
	"github.com/ethpandaops/storebenchoor/pkg/store"
	"github.com/ethpandaops/storebenchoor/pkg/sysinfo"
)

var (
	runProviders []string
	runName      string
	runNotes     string
	runPrefix    string
	runWorkers   int
	runRepeats   int
	runQuick     bool
	runFull      bool
	runNoCompare bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark",
	Long:  `Benchmark all enabled providers and persist the results.`,
	RunE:  runBenchmark,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runProviders, "provider", nil,
		"Limit to providers with these names (comma-separated or repeated flag)")
	runCmd.Flags().StringVar(&runName, "name", "", "Name for this run")
	runCmd.Flags().StringVar(&runNotes, "notes", "", "Notes to store with this run")
	runCmd.Flags().StringVar(&runPrefix, "prefix", "", "Override the object key prefix")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Override the parallel worker count")
	runCmd.Flags().IntVar(&runRepeats, "runs", 0, "Override the repeats per test cell")
	runCmd.Flags().BoolVar(&runQuick, "quick", false, "Use the quick profile (small sizes only)")
	runCmd.Flags().BoolVar(&runFull, "full", false, "Use the full profile (up to 100MiB files)")
	runCmd.Flags().BoolVar(&runNoCompare, "no-compare", false,
		"Skip the provider comparison after the run")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	if runQuick && runFull {
		return fmt.Errorf("--quick and --full are mutually exclusive")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	providers, err := selectProviders(cfg, runProviders)
	if err != nil {
		return err
	}

	profileName := "default"
	if runQuick {
		profileName = "quick"
	} else if runFull {
		profileName = "full"
	}

	profile, err := bench.ProfileByName(profileName)
	if err != nil {
		return err
	}

	benchOpts := benchOptions(cfg)
	if runPrefix != "" {
		benchOpts.Prefix = runPrefix
	}

	if runWorkers > 0 {
		benchOpts.Workers = runWorkers
	}

	if runRepeats > 0 {
		benchOpts.Repeats = runRepeats
	}

	// Setup context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	info, err := sysinfo.Collect(ctx).JSON()
	if err != nil {
		log.WithError(err).Warn("Failed to collect system info")
	}

	run := &store.Run{
		Timestamp:  time.Now(),
		Name:       runName,
		Profile:    profile.Name,
		Workers:    benchOpts.Workers,
		Repeats:    benchOpts.Repeats,
		Status:     "running",
		Notes:      runNotes,
		SystemInfo: info,
	}

	if err := st.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	totalCells := len(providers) * len(profile.Classes) * len(bench.Operations)
	bar := pb.New(totalCells)
	bar.SetRefreshRate(time.Millisecond * 125)
	bar.SetTemplateString(`{{counters . }} {{bar . }} {{percent . }}`)
	bar.Start()

	o := orchestrator.NewOrchestrator(log, &orchestrator.Options{
		Profile:   profile,
		Providers: providers,
		Bench:     benchOpts,
		Cleanup:   cfg.Benchmark.CleanupEnabled(),
		OnResult: func(*bench.Result) {
			bar.Increment()
		},
	})

	outcome, err := o.Run(ctx)

	bar.Finish()

	if err != nil {
		if ferr := st.FinishRun(context.Background(), run.ID, "interrupted"); ferr != nil {
			log.WithError(ferr).Warn("Failed to mark run interrupted")
		}

		return fmt.Errorf("running benchmark: %w", err)
	}

	rows := make([]*store.Result, 0, len(outcome.Results))
	for _, result := range outcome.Results {
		rows = append(rows, store.ResultFromBench(run.ID, result))
	}

	if err := st.AddResults(ctx, run.ID, rows); err != nil {
		return fmt.Errorf("persisting results: %w", err)
	}

	if err := st.FinishRun(ctx, run.ID, string(outcome.Status)); err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	for _, failure := range outcome.FailedProviders {
		log.WithField("provider", failure.Provider).
			WithField("reason", failure.Reason).
			Warn("Provider did not complete")
	}

	persisted, err := st.GetRunResults(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("reading back results: %w", err)
	}

	reporter := report.NewReporter(os.Stdout)
	reporter.WriteRunResults(run, persisted)

	if !runNoCompare {
		fmt.Println()
		reporter.WriteComparison(persisted)
	}

	log.WithField("run_id", run.ID).
		WithField("status", outcome.Status).
		Info("Benchmark run finished")

	if outcome.Status == orchestrator.StatusTotalFailure {
		return fmt.Errorf("no provider completed the benchmark")
	}

	return nil
}

// benchOptions maps the benchmark config section onto runner options.
func benchOptions(cfg *config.Config) *bench.Options {
	return &bench.Options{
		Repeats:    cfg.Benchmark.RunsPerTest,
		Workers:    cfg.Benchmark.DefaultWorkers,
		MaxRetries: cfg.Benchmark.MaxRetries,
		Timeout:    time.Duration(cfg.Benchmark.TimeoutSeconds) * time.Second,
		Prefix:     cfg.Benchmark.TestPrefix,
		RateLimit:  cfg.Benchmark.RateLimit,
	}
}

// selectProviders returns the enabled providers, optionally limited to the
// given names. Naming an unknown or disabled provider is an error.
func selectProviders(cfg *config.Config, names []string) ([]config.ProviderConfig, error) {
	enabled := cfg.EnabledProviders()

	if len(names) == 0 {
		if len(enabled) == 0 {
			return nil, fmt.Errorf("no providers are enabled")
		}

		return enabled, nil
	}

	byName := make(map[string]config.ProviderConfig, len(enabled))
	for _, p := range enabled {
		byName[p.Name] = p
	}

	selected := make([]config.ProviderConfig, 0, len(names))

	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("provider %q is not configured or not enabled", name)
		}

		selected = append(selected, p)
	}

	return selected, nil
}
