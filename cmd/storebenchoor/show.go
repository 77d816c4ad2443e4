package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/storebenchoor/pkg/report"
	"github.com/ethpandaops/storebenchoor/pkg/store"
)

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the results of a benchmark run",
	Long:  `Show the full result table of a run. Without an argument, the latest run is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  showRun,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func showRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	run, err := resolveRun(cmd.Context(), st, args)
	if err != nil {
		return err
	}

	results, err := st.GetRunResults(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("reading run results: %w", err)
	}

	report.NewReporter(os.Stdout).WriteRunResults(run, results)

	return nil
}

// resolveRun returns the run named by the first argument, or the latest run
// when no argument is given.
func resolveRun(ctx context.Context, st store.Store, args []string) (*store.Run, error) {
	if len(args) == 0 {
		run, err := st.GetLatestRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("no benchmark runs recorded yet")
		}

		return run, nil
	}

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q", args[0])
	}

	run, err := st.GetRun(ctx, uint(id))
	if err != nil {
		return nil, fmt.Errorf("run %d not found", id)
	}

	return run, nil
}
