package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/storebenchoor/pkg/api"
	"github.com/ethpandaops/storebenchoor/pkg/config"
	"github.com/ethpandaops/storebenchoor/pkg/store"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve persisted benchmark results over HTTP",
	RunE:  serveResults,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
}

func serveResults(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if serveListen != "" {
		cfg.API.Listen = serveListen
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	server := api.NewServer(log, &cfg.API, st)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.WithField("signal", sig).Info("Received shutdown signal")

	if err := server.Stop(); err != nil {
		return fmt.Errorf("stopping API server: %w", err)
	}

	return nil
}
