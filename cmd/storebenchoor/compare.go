package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/storebenchoor/pkg/report"
)

var compareProviders []string

var compareCmd = &cobra.Command{
	Use:   "compare [run-id]",
	Short: "Compare providers within a benchmark run",
	Long: `Compare the providers of a run cell by cell, with an overall score
per provider. Without an argument, the latest run is compared.`,
	Args: cobra.MaximumNArgs(1),
	RunE: compareRun,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringSliceVar(&compareProviders, "provider", nil,
		"Limit the comparison to these providers (comma-separated or repeated flag)")
}

func compareRun(cmd *cobra.Command, args []string) error {
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

	if len(compareProviders) > 0 {
		wanted := make(map[string]bool, len(compareProviders))
		for _, name := range compareProviders {
			wanted[name] = true
		}

		filtered := results[:0]

		for _, res := range results {
			if wanted[res.Provider] {
				filtered = append(filtered, res)
			}
		}

		results = filtered
	}

	report.NewReporter(os.Stdout).WriteComparison(results)

	return nil
}
