package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/report"
	"github.com/ethpandaops/storebenchoor/pkg/store"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List past benchmark runs",
	RunE:  listRuns,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	runs, err := st.GetRuns(cmd.Context(), listLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No benchmark runs recorded yet.")

		return nil
	}

	report.NewReporter(os.Stdout).WriteRunList(runs)

	return nil
}

// openStore loads the config and starts the persistence store.
func openStore(ctx context.Context) (store.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting store: %w", err)
	}

	return st, nil
}
