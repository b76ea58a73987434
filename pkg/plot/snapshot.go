package plot

import (
	"io"

	"github.com/raykavin/chartdraw/pkg/coord"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/raykavin/chartdraw/pkg/render"
	"github.com/raykavin/chartdraw/pkg/render/raster"
	"github.com/raykavin/chartdraw/pkg/store"
	"github.com/raykavin/chartdraw/pkg/viewport"
)

// Background is the snapshot background color
var Background = "#131722"

// bodyRatio is the share of the bar spacing taken by a candle body
const bodyRatio = 0.7

// RenderSnapshot draws bars and drawings on a fresh raster canvas and writes it as PNG
func RenderSnapshot(w io.Writer, bars []core.Bar, drawings []core.Drawing, log logger.Logger, opts ...viewport.Option) error {
	view := viewport.New(opts...)
	view.SetBars(bars)
	width, height := view.Size()

	st := store.New(log)
	st.SetBarSeries(bars)
	st.SetPersisted(drawings)

	canvas := raster.New(int(width), int(height))
	canvas.Paint(Background)
	canvas.DrawBars(view, bars, view.BarSpacing()*bodyRatio)

	render.New(coord.NewResolver(view, st), st, log).Render(canvas)

	return canvas.PNG(w)
}
