package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/storebenchoor/pkg/report"
)

var statsProvider string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show all-time aggregates per provider",
	RunE:  showStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsProvider, "provider", "",
		"Show stats for a single provider (default: all)")
}

func showStats(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	stats, err := st.GetProviderStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("aggregating provider stats: %w", err)
	}

	if statsProvider != "" {
		filtered := stats[:0]

		for _, s := range stats {
			if s.Provider == statsProvider {
				filtered = append(filtered, s)
			}
		}

		stats = filtered

		if len(stats) == 0 {
			return fmt.Errorf("no results recorded for provider %q", statsProvider)
		}
	}

	if len(stats) == 0 {
		fmt.Println("No benchmark results recorded yet.")

		return nil
	}

	report.NewReporter(os.Stdout).WriteProviderStats(stats)

	return nil
}
