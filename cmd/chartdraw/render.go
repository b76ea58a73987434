package main

import (
	"fmt"
	"os"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/feed"
	"github.com/raykavin/chartdraw/pkg/plot"
	"github.com/spf13/cobra"
)

var (
	renderSource       string
	renderCSV          string
	renderCSVTimeframe string
	renderOutput       string
)

func buildRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the drawings of a source over its bars as PNG",
		RunE:  runRender,
	}

	renderCmd.Flags().StringVarP(&renderSource, "source", "s", "", "Source id (e.g. BTCUSDT_1h)")
	renderCmd.Flags().StringVar(&renderCSV, "csv", "", "CSV file with the bars")
	renderCmd.Flags().StringVar(&renderCSVTimeframe, "csv-timeframe", "", "Timeframe of the CSV bars when it differs from the source interval")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output PNG file")

	_ = renderCmd.MarkFlagRequired("source")
	_ = renderCmd.MarkFlagRequired("csv")
	_ = renderCmd.MarkFlagRequired("output")

	return renderCmd
}

func runRender(cmd *cobra.Command, _ []string) error {
	pair, interval, err := core.ParseSourceID(renderSource)
	if err != nil {
		return err
	}

	csvTimeframe := renderCSVTimeframe
	if csvTimeframe == "" {
		csvTimeframe = interval
	}

	csvFeed, err := feed.NewCSVFeed(interval, feed.PairFeed{Pair: pair, File: renderCSV, Timeframe: csvTimeframe})
	if err != nil {
		return err
	}
	bars, err := csvFeed.Bars(pair, interval)
	if err != nil {
		return err
	}

	backend, err := openStorage()
	if err != nil {
		return err
	}
	defer closeStorage(backend)

	drawings, err := backend.Load(contextOrBackground(cmd), renderSource)
	if err != nil {
		return err
	}

	out, err := os.Create(renderOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := plot.RenderSnapshot(out, bars, drawings, log, viewportOptions()...); err != nil {
		return fmt.Errorf("rendering %s: %w", renderSource, err)
	}

	log.WithFields(map[string]any{
		"source":   renderSource,
		"bars":     len(bars),
		"drawings": len(drawings),
		"output":   renderOutput,
	}).Info("snapshot written")

	return out.Close()
}
