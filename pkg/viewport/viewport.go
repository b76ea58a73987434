// Package viewport is a self-contained chart surface: bars laid out right to left
// from the latest one at a fixed spacing, and a linear price scale fitted to them.
package viewport

import (
	"math"
	"sync"

	"github.com/raykavin/chartdraw/pkg/coord"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/samber/lo"
)

const (
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultBarSpacing  = 8
	DefaultRightOffset = 60
	DefaultPadding     = 0.1
)

// Viewport implements core.ChartSurface over an in-memory bar series
type Viewport struct {
	sync.Mutex
	width, height float64
	barSpacing    float64
	rightOffset   float64
	padding       float64

	bars     []core.Bar
	minPrice float64
	maxPrice float64
	redraw   func()
}

// Option configures a Viewport
type Option func(*Viewport)

// WithSize sets the surface size in pixels
func WithSize(width, height float64) Option {
	return func(v *Viewport) {
		v.width, v.height = width, height
	}
}

// WithBarSpacing sets the distance between two consecutive bars
func WithBarSpacing(spacing float64) Option {
	return func(v *Viewport) {
		v.barSpacing = spacing
	}
}

// WithRightOffset sets the empty space right of the latest bar
func WithRightOffset(offset float64) Option {
	return func(v *Viewport) {
		v.rightOffset = offset
	}
}

// WithPricePadding sets the fraction of the price range added above and below
func WithPricePadding(padding float64) Option {
	return func(v *Viewport) {
		v.padding = padding
	}
}

// WithPriceRange sets the initial price scale; SetBars refits it
func WithPriceRange(min, max float64) Option {
	return func(v *Viewport) {
		v.minPrice, v.maxPrice = min, max
	}
}

// WithRedraw sets the callback run by RequestRedraw
func WithRedraw(fn func()) Option {
	return func(v *Viewport) {
		v.redraw = fn
	}
}

// New creates a viewport with no bars
func New(opts ...Option) *Viewport {
	v := &Viewport{
		width:       DefaultWidth,
		height:      DefaultHeight,
		barSpacing:  DefaultBarSpacing,
		rightOffset: DefaultRightOffset,
		padding:     DefaultPadding,
		maxPrice:    1,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// SetBars replaces the bar series and refits the price scale
func (v *Viewport) SetBars(bars []core.Bar) {
	v.Lock()
	v.bars = append([]core.Bar(nil), bars...)
	v.Unlock()

	v.FitPrices(bars)
}

// Bars implements core.BarSource.
func (v *Viewport) Bars() []core.Bar {
	v.Lock()
	defer v.Unlock()
	return append([]core.Bar(nil), v.bars...)
}

// FitPrices sets the price scale to the low/high range of bars plus padding.
// A flat range is widened by one unit each way.
func (v *Viewport) FitPrices(bars []core.Bar) {
	if len(bars) == 0 {
		return
	}

	low := lo.MinBy(bars, func(a, b core.Bar) bool { return a.Low < b.Low }).Low
	high := lo.MaxBy(bars, func(a, b core.Bar) bool { return a.High > b.High }).High
	if high <= low {
		low, high = low-1, high+1
	}
	pad := (high - low) * v.padding

	v.Lock()
	defer v.Unlock()
	v.minPrice, v.maxPrice = low-pad, high+pad
}

// PriceRange returns the current bottom and top of the price scale
func (v *Viewport) PriceRange() (min, max float64) {
	v.Lock()
	defer v.Unlock()
	return v.minPrice, v.maxPrice
}

// SetRedraw replaces the redraw callback
func (v *Viewport) SetRedraw(fn func()) {
	v.Lock()
	defer v.Unlock()
	v.redraw = fn
}

// Size returns the surface size in pixels
func (v *Viewport) Size() (width, height float64) {
	return v.width, v.height
}

// BarSpacing returns the distance between two consecutive bars
func (v *Viewport) BarSpacing() float64 {
	return v.barSpacing
}

// LogicalIndexToPixel implements core.ChartSurface.
func (v *Viewport) LogicalIndexToPixel(index float64) (float64, bool) {
	v.Lock()
	defer v.Unlock()

	if len(v.bars) == 0 {
		return 0, false
	}
	last := float64(len(v.bars) - 1)
	return v.width - v.rightOffset - (last-index)*v.barSpacing, true
}

// TimeToPixel implements core.ChartSurface. Only exact bar times that fall on
// the visible part of the surface resolve.
func (v *Viewport) TimeToPixel(time int64) (float64, bool) {
	v.Lock()
	idx, exact := core.BarTimes(v.bars).Search(time)
	v.Unlock()

	if !exact {
		return 0, false
	}

	x, ok := v.LogicalIndexToPixel(float64(idx))
	if !ok || x < 0 || x > v.width {
		return 0, false
	}
	return x, true
}

// PixelToTime implements core.ChartSurface. Positions between bars are
// interpolated, positions outside the series extrapolated with the average
// recent interval.
func (v *Viewport) PixelToTime(x float64) (int64, bool) {
	v.Lock()
	defer v.Unlock()

	if len(v.bars) == 0 || v.barSpacing <= 0 {
		return 0, false
	}

	times := core.BarTimes(v.bars)
	last := len(times) - 1
	index := float64(last) - (v.width-v.rightOffset-x)/v.barSpacing

	if index >= 0 && index <= float64(last) {
		lower := int(math.Floor(index))
		if lower == last {
			return times[last], true
		}
		frac := index - float64(lower)
		span := float64(times[lower+1] - times[lower])
		return times[lower] + int64(math.Round(frac*span)), true
	}

	interval, ok := coord.AverageInterval(times)
	if !ok {
		return 0, false
	}
	if index > float64(last) {
		return times[last] + int64(math.Round((index-float64(last))*interval)), true
	}
	return times[0] + int64(math.Round(index*interval)), true
}

// PriceToPixel implements core.ChartSurface.
func (v *Viewport) PriceToPixel(price float64) (float64, bool) {
	v.Lock()
	defer v.Unlock()

	span := v.maxPrice - v.minPrice
	if span <= 0 {
		return 0, false
	}
	return v.height - (price-v.minPrice)/span*v.height, true
}

// PixelToPrice implements core.ChartSurface.
func (v *Viewport) PixelToPrice(y float64) (float64, bool) {
	v.Lock()
	defer v.Unlock()

	span := v.maxPrice - v.minPrice
	if span <= 0 || v.height <= 0 {
		return 0, false
	}
	return v.minPrice + (v.height-y)/v.height*span, true
}

// RequestRedraw implements core.ChartSurface.
func (v *Viewport) RequestRedraw() {
	v.Lock()
	redraw := v.redraw
	v.Unlock()

	if redraw != nil {
		redraw()
	}
}
