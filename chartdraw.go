// Package chartdraw wires the annotation engine together: a store of drawings
// per source, the coordinate resolver, renderer, hit-tester and the interaction
// machine that turns pointer events into persisted drawings.
package chartdraw

import (
	"context"

	"github.com/raykavin/chartdraw/pkg/coord"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/hittest"
	"github.com/raykavin/chartdraw/pkg/interaction"
	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/raykavin/chartdraw/pkg/render"
	"github.com/raykavin/chartdraw/pkg/store"
)

// Engine owns the annotation components of one chart
type Engine struct {
	Store    *store.Store
	Resolver *coord.Resolver
	Renderer *render.Renderer
	Tester   *hittest.Tester
	Machine  *interaction.Machine

	chart          core.ChartSurface
	log            logger.Logger
	redraw         func()
	machineOptions []interaction.Option
}

// New builds an engine drawing on chart and persisting to storage
func New(chart core.ChartSurface, storage core.DrawingStorage, opts ...Option) *Engine {
	e := &Engine{
		chart: chart,
		log:   DefaultLog,
	}

	for _, opt := range opts {
		opt(e)
	}

	redraw := e.redraw
	if redraw == nil {
		redraw = chart.RequestRedraw
	}

	e.Store = store.New(e.log, store.WithRedraw(redraw))
	e.Resolver = coord.NewResolver(chart, e.Store)
	e.Renderer = render.New(e.Resolver, e.Store, e.log)
	e.Tester = hittest.New(e.Resolver, e.Store)
	e.Machine = interaction.New(e.Store, e.Resolver, e.Tester, storage, e.log, e.machineOptions...)

	return e
}

// Open shows symbol at interval: bars replace the series under the chart and
// the drawings of the source are loaded in the background.
func (e *Engine) Open(ctx context.Context, symbol, interval string, bars []core.Bar) error {
	e.Store.SetBarSeries(bars)
	return e.Machine.SwitchSource(ctx, symbol, interval)
}

// Draw paints the background layer on c when the store changed since the last
// frame, or always when force is set. It reports whether a frame was painted.
func (e *Engine) Draw(c core.Canvas, force bool) bool {
	if !force && !e.Store.Dirty() {
		return false
	}
	e.Renderer.Render(c)
	return true
}

// Close waits for pending storage operations
func (e *Engine) Close() {
	e.Machine.Wait()
}
