// Package coord projects domain coordinates (time, price) to chart pixels.
package coord

import (
	"math"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
	"gonum.org/v1/gonum/stat"
)

// IntervalWindow is the number of trailing bars used to estimate the bar interval
const IntervalWindow = 10

// Resolver maps domain points to pixels. When the host cannot place a time it
// falls back to a logical index derived from the bar series.
type Resolver struct {
	chart core.ChartSurface
	bars  core.BarSource
}

// NewResolver creates a resolver over the host chart and the bar series
func NewResolver(chart core.ChartSurface, bars core.BarSource) *Resolver {
	return &Resolver{chart: chart, bars: bars}
}

// PriceToPixel delegates to the host price scale
func (r *Resolver) PriceToPixel(price float64) (float64, bool) {
	return r.chart.PriceToPixel(price)
}

// TimeToPixel tries the host time scale first, then the logical index fallback
func (r *Resolver) TimeToPixel(time int64) (float64, bool) {
	if x, ok := r.chart.TimeToPixel(time); ok {
		return x, true
	}

	index, ok := r.LogicalIndex(time)
	if !ok {
		return 0, false
	}

	return r.chart.LogicalIndexToPixel(index)
}

// LogicalIndex returns the fractional bar position of time. Exact bar times map
// to their index, times between bars are interpolated and times outside the
// series are extrapolated with the average recent interval.
func (r *Resolver) LogicalIndex(time int64) (float64, bool) {
	bars := r.bars.Bars()
	if len(bars) == 0 {
		return 0, false
	}

	times := core.BarTimes(bars)
	idx, exact := times.Search(time)
	if exact {
		return float64(idx), true
	}

	first, last := times[0], times.Last(0)
	if time > last || time < first {
		interval, ok := AverageInterval(times)
		if !ok {
			return 0, false
		}
		if time > last {
			return float64(len(times)-1) + float64(time-last)/interval, true
		}
		return -float64(first-time) / interval, true
	}

	// times[idx-1] < time < times[idx]
	prev, next := times[idx-1], times[idx]
	if next <= prev {
		return 0, false
	}
	ratio := float64(time-prev) / float64(next-prev)

	return float64(idx-1) + ratio, true
}

// AverageInterval is the mean gap between the last IntervalWindow bar times
func AverageInterval(times core.Series[int64]) (float64, bool) {
	window := times.LastValues(IntervalWindow)
	if window.Length() < 2 {
		return 0, false
	}

	gaps := make([]float64, 0, window.Length()-1)
	for i := 1; i < window.Length(); i++ {
		gaps = append(gaps, float64(window[i]-window[i-1]))
	}

	mean := stat.Mean(gaps, nil)
	if mean <= 0 || math.IsNaN(mean) {
		return 0, false
	}

	return mean, true
}

// PointToPixel resolves both axes of p
func (r *Resolver) PointToPixel(p core.Point) (geom.Pixel, bool) {
	x, ok := r.TimeToPixel(p.Time)
	if !ok {
		return geom.Pixel{}, false
	}
	y, ok := r.PriceToPixel(p.Price)
	if !ok {
		return geom.Pixel{}, false
	}
	return geom.Pixel{X: x, Y: y}, true
}

// PointsToPixels resolves every point, reporting false if any fails
func (r *Resolver) PointsToPixels(points []core.Point) ([]geom.Pixel, bool) {
	pixels := make([]geom.Pixel, len(points))
	for i, p := range points {
		px, ok := r.PointToPixel(p)
		if !ok {
			return nil, false
		}
		pixels[i] = px
	}
	return pixels, true
}

// PixelToPoint inverts a screen position through the host scales
func (r *Resolver) PixelToPoint(x, y float64) (core.Point, bool) {
	t, ok := r.chart.PixelToTime(x)
	if !ok {
		return core.Point{}, false
	}
	price, ok := r.chart.PixelToPrice(y)
	if !ok {
		return core.Point{}, false
	}
	return core.Point{Time: t, Price: price}, true
}

// BarAt returns the bar whose bucket contains time: the last bar starting at
// or before it. Times before the first bar resolve to nothing.
func (r *Resolver) BarAt(time int64) (core.Bar, bool) {
	bars := r.bars.Bars()
	if len(bars) == 0 {
		return core.Bar{}, false
	}

	idx, exact := core.BarTimes(bars).Search(time)
	if exact {
		return bars[idx], true
	}
	if idx == 0 {
		return core.Bar{}, false
	}
	return bars[idx-1], true
}
