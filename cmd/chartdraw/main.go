package main

import (
	"fmt"
	"os"

	"github.com/raykavin/chartdraw/internal/config"
	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/raykavin/chartdraw/pkg/logger/zerolog"
	"github.com/raykavin/chartdraw/pkg/storage"
	"github.com/raykavin/chartdraw/pkg/viewport"
	"github.com/spf13/cobra"
)

// Global flags and the state they load
var (
	configPath string
	envFile    string

	cfg *config.Config
	log logger.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "chartdraw",
		Short:             "Chart drawing annotations: storage, snapshots and a live API",
		Version:           "1.0.0",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file loaded before the configuration")

	rootCmd.AddCommand(
		buildInitCmd(),
		buildServeCmd(),
		buildRenderCmd(),
		buildListCmd(),
		buildImportCmd(),
		buildClearCmd(),
		buildFetchCmd(),
	)

	return rootCmd
}

func loadConfig(_ *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(configPath, envFile); err != nil {
		return err
	}

	adapter, err := zerolog.New(cfg.Log.Level, cfg.Log.TimeFormat, cfg.Log.Colored, cfg.Log.JSON)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	log = adapter

	return nil
}

func buildInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists", configPath)
			}
			if err := config.WriteDefault(configPath); err != nil {
				return err
			}
			log.WithField("path", configPath).Info("default configuration written")
			return nil
		},
	}
}

func openStorage() (storage.Backend, error) {
	backend, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}
	return backend, nil
}

func closeStorage(backend storage.Backend) {
	if err := backend.Close(); err != nil {
		log.WithError(err).Warn("closing storage")
	}
}

func viewportOptions() []viewport.Option {
	return []viewport.Option{
		viewport.WithSize(float64(cfg.Chart.Width), float64(cfg.Chart.Height)),
		viewport.WithBarSpacing(cfg.Chart.BarSpacing),
		viewport.WithRightOffset(cfg.Chart.RightOffset),
	}
}
