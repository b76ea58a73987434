package main

import (
	"fmt"
	"os"
	"time"

	"github.com/raykavin/chartdraw/pkg/feed"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	fetchPair      string
	fetchTimeframe string
	fetchLimit     int
	fetchOutput    string
)

func buildFetchCmd() *cobra.Command {
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download recent bars from Binance into a CSV file",
		RunE:  runFetch,
	}

	fetchCmd.Flags().StringVarP(&fetchPair, "pair", "p", "", "Trading pair (e.g. BTCUSDT)")
	fetchCmd.Flags().StringVarP(&fetchTimeframe, "timeframe", "t", "", "Timeframe (e.g. 1h)")
	fetchCmd.Flags().IntVarP(&fetchLimit, "limit", "l", 500, "Number of closed bars")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Output file path (e.g. ./btc.csv)")

	_ = fetchCmd.MarkFlagRequired("pair")
	_ = fetchCmd.MarkFlagRequired("timeframe")
	_ = fetchCmd.MarkFlagRequired("output")

	return fetchCmd
}

func runFetch(cmd *cobra.Command, _ []string) error {
	if fetchLimit <= 0 {
		return fmt.Errorf("invalid limit %d", fetchLimit)
	}

	binanceFeed := feed.NewBinanceFeed(log, feed.WithCredentials(cfg.Binance.APIKey, cfg.Binance.SecretKey))

	spinner := progressbar.Default(-1, fmt.Sprintf("fetching %s %s", fetchPair, fetchTimeframe))
	bars, err := binanceFeed.BarsByLimit(contextOrBackground(cmd), fetchPair, fetchTimeframe, fetchLimit)
	_ = spinner.Finish()
	if err != nil {
		return err
	}

	out, err := os.Create(fetchOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := feed.WriteCSV(out, bars, 8); err != nil {
		return fmt.Errorf("writing %s: %w", fetchOutput, err)
	}

	fields := map[string]any{"pair": fetchPair, "bars": len(bars), "output": fetchOutput}
	if len(bars) > 0 {
		fields["from"] = bars[0].GetTime().Format(time.DateTime)
		fields["to"] = bars[len(bars)-1].GetTime().Format(time.DateTime)
	}
	log.WithFields(fields).Info("bars saved")
	return out.Close()
}
