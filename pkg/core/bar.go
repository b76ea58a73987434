package core

import (
	"fmt"
	"strconv"
	"time"
)

// Bar represents one OHLCV bucket of the time series under the chart.
// Time is the bucket start in unix seconds.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// BarSource exposes the bar series currently loaded under the chart.
type BarSource interface {
	Bars() []Bar
}

// BarSlice adapts a plain slice to BarSource
type BarSlice []Bar

// Bars implements BarSource.
func (b BarSlice) Bars() []Bar { return b }

// GetTime returns the bucket start as a time.Time in UTC
func (b Bar) GetTime() time.Time { return time.Unix(b.Time, 0).UTC() }

// Prices returns the four OHLC prices in open, high, low, close order
func (b Bar) Prices() [4]float64 { return [4]float64{b.Open, b.High, b.Low, b.Close} }

// ToSlice converts a bar to a string slice for CSV serialization
// with the specified decimal precision
func (b Bar) ToSlice(precision int) []string {
	return []string{
		fmt.Sprintf("%d", b.Time),
		strconv.FormatFloat(b.Open, 'f', precision, 64),
		strconv.FormatFloat(b.Close, 'f', precision, 64),
		strconv.FormatFloat(b.Low, 'f', precision, 64),
		strconv.FormatFloat(b.High, 'f', precision, 64),
		strconv.FormatFloat(b.Volume, 'f', precision, 64),
	}
}

// BarTimes returns the bucket times of bars as a series
func BarTimes(bars []Bar) Series[int64] {
	times := make(Series[int64], len(bars))
	for i, bar := range bars {
		times[i] = bar.Time
	}
	return times
}
