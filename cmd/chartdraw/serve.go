package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raykavin/chartdraw/pkg/feed"
	"github.com/raykavin/chartdraw/pkg/plot"
	"github.com/spf13/cobra"
)

var servePort int

func buildServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the drawings API, snapshots and websocket updates",
		RunE:  runServe,
	}

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides server.port)")

	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	backend, err := openStorage()
	if err != nil {
		return err
	}
	defer closeStorage(backend)

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	options := []plot.Option{
		plot.WithPort(port),
		plot.WithViewport(viewportOptions()...),
	}

	if cfg.Feed.CSV != "" {
		csvFeed, err := feed.NewCSVFeed(cfg.Feed.TargetTimeframe, feed.PairFeed{
			Pair:      cfg.Feed.Pair,
			File:      cfg.Feed.CSV,
			Timeframe: cfg.Feed.Timeframe,
		})
		if err != nil {
			return err
		}
		options = append(options, plot.WithBars(csvFeed))
		log.WithField("sources", csvFeed.Sources()).Info("bar feed loaded")
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return plot.NewServer(backend, log, options...).Start(ctx)
}

// contextOrBackground guards commands executed without ExecuteContext
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
