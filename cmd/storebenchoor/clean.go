package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/storage"
)

var (
	cleanProviders []string
	cleanPrefix    string
	cleanYes       bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete leftover benchmark objects from providers",
	Long: `Delete all objects under the benchmark prefix from the enabled
providers. Useful after an interrupted run or when cleanup_after is disabled.`,
	RunE: cleanObjects,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringSliceVar(&cleanProviders, "provider", nil,
		"Limit to providers with these names (comma-separated or repeated flag)")
	cleanCmd.Flags().StringVar(&cleanPrefix, "prefix", "", "Override the object key prefix")
	cleanCmd.Flags().BoolVar(&cleanYes, "yes", false, "Skip the confirmation prompt")
}

func cleanObjects(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	providers, err := selectProviders(cfg, cleanProviders)
	if err != nil {
		return err
	}

	prefix := cfg.Benchmark.TestPrefix
	if cleanPrefix != "" {
		prefix = cleanPrefix
	}

	if !cleanYes && !confirm(fmt.Sprintf(
		"Delete all objects under prefix %q from %d provider(s)?", prefix, len(providers),
	)) {
		fmt.Println("Aborted.")

		return nil
	}

	ctx := cmd.Context()
	timeout := time.Duration(cfg.Benchmark.TimeoutSeconds) * time.Second

	for i := range providers {
		provider := &providers[i]
		plog := log.WithField("provider", provider.Name)

		backend, err := storage.New(log, provider, timeout)
		if err != nil {
			plog.WithError(err).Error("Failed to create backend")

			continue
		}

		if err := backend.Validate(ctx); err != nil {
			plog.WithError(err).Error("Provider is not reachable")

			continue
		}

		keys, err := backend.List(ctx, prefix)
		if err != nil {
			plog.WithError(err).Error("Failed to list benchmark objects")

			continue
		}

		if len(keys) == 0 {
			plog.Info("No benchmark objects found")

			continue
		}

		bar := pb.New(len(keys))
		bar.SetRefreshRate(time.Millisecond * 125)
		bar.SetTemplateString(`{{counters . }} {{bar . }} {{percent . }}`)
		bar.Start()

		var failed int

		for _, key := range keys {
			if err := backend.Delete(ctx, key); err != nil {
				failed++

				plog.WithError(err).WithField("key", key).Debug("Failed to delete object")
			}

			bar.Increment()
		}

		bar.Finish()

		if failed > 0 {
			plog.WithField("failed", failed).Warn("Some objects could not be deleted")
		} else {
			plog.WithField("deleted", len(keys)).Info("Benchmark objects deleted")
		}
	}

	return nil
}

// confirm prompts on stdin and returns true on a "y"/"yes" answer.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)

	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}
