package interaction

import (
	"math"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
)

// MagnetRadius is the pixel distance within which a point snaps to a bar price
const MagnetRadius = 30.0

// snap replaces the price of p with the nearest OHLC price of the bar at p's
// time when that price is within MagnetRadius of the pointer.
func (m *Machine) snap(p core.Point, pointer geom.Pixel) core.Point {
	bar, ok := m.resolver.BarAt(p.Time)
	if !ok {
		return p
	}

	x, ok := m.resolver.TimeToPixel(bar.Time)
	if !ok {
		x = pointer.X
	}

	best, bestDist := 0.0, math.Inf(1)
	for _, price := range bar.Prices() {
		y, ok := m.resolver.PriceToPixel(price)
		if !ok {
			continue
		}
		if dist := geom.Distance(pointer, geom.Pt(x, y)); dist < bestDist {
			best, bestDist = price, dist
		}
	}

	if bestDist > MagnetRadius {
		return p
	}

	p.Price = best
	return p
}
