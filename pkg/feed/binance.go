package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/logger"
)

// BinanceFeed fetches klines from the Binance spot API
type BinanceFeed struct {
	client *binance.Client
	log    logger.Logger
}

// BinanceOption configures a BinanceFeed
type BinanceOption func(*BinanceFeed)

// WithCredentials sets the API key pair; public klines work without one
func WithCredentials(key, secret string) BinanceOption {
	return func(b *BinanceFeed) {
		b.client.APIKey = key
		b.client.SecretKey = secret
	}
}

// WithBaseURL points the client at another API host
func WithBaseURL(url string) BinanceOption {
	return func(b *BinanceFeed) {
		b.client.BaseURL = url
	}
}

// NewBinanceFeed creates a feed using the public spot endpoints
func NewBinanceFeed(log logger.Logger, opts ...BinanceOption) *BinanceFeed {
	b := &BinanceFeed{
		client: binance.NewClient("", ""),
		log:    log,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// BarsByLimit returns the last limit closed bars of pair. The bar still being
// formed is discarded.
func (b *BinanceFeed) BarsByLimit(ctx context.Context, pair, timeframe string, limit int) ([]core.Bar, error) {
	data, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(timeframe).
		Limit(limit + 1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s klines: %w", pair, timeframe, err)
	}

	if len(data) > 0 {
		data = data[:len(data)-1]
	}

	b.log.WithFields(map[string]any{"pair": pair, "timeframe": timeframe}).
		Debugf("fetched %d bars", len(data))

	return barsFromKlines(data)
}

// BarsByPeriod returns the bars of pair opened between start and end
func (b *BinanceFeed) BarsByPeriod(ctx context.Context, pair, timeframe string, start, end time.Time) ([]core.Bar, error) {
	data, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(timeframe).
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s klines: %w", pair, timeframe, err)
	}

	return barsFromKlines(data)
}

func barsFromKlines(data []*binance.Kline) ([]core.Bar, error) {
	bars := make([]core.Bar, 0, len(data))
	for _, k := range data {
		bar, err := barFromKline(*k)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func barFromKline(k binance.Kline) (core.Bar, error) {
	bar := core.Bar{Time: k.OpenTime / int64(time.Second/time.Millisecond)}

	for name, field := range map[string]struct {
		raw string
		dst *float64
	}{
		"open":   {k.Open, &bar.Open},
		"high":   {k.High, &bar.High},
		"low":    {k.Low, &bar.Low},
		"close":  {k.Close, &bar.Close},
		"volume": {k.Volume, &bar.Volume},
	} {
		v, err := strconv.ParseFloat(field.raw, 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("invalid kline %s %q: %w", name, field.raw, err)
		}
		*field.dst = v
	}

	return bar, nil
}
