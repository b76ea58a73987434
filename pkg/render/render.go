// Package render paints drawings onto a core.Canvas.
package render

import (
	"fmt"
	"math"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/raykavin/chartdraw/pkg/store"
)

const (
	ArrowHeadLength    = 14.0
	ArrowHalfAngle     = math.Pi / 6
	RayExtension       = 2000.0
	EdgeTickLength     = 12.0
	ControlPointRadius = 4.0
	TextPadding        = 4.0
	HaloExtraWidth     = 6.0
	HaloAlpha          = 0.3
	GlowBlur           = 8.0
)

// Projector resolves domain coordinates to pixels
type Projector interface {
	TimeToPixel(time int64) (float64, bool)
	PriceToPixel(price float64) (float64, bool)
	PointToPixel(p core.Point) (geom.Pixel, bool)
	PointsToPixels(points []core.Point) ([]geom.Pixel, bool)
}

// FrameSource provides per-frame snapshots and receives measured text bounds
type FrameSource interface {
	Snapshot() store.Frame
	SetTextBounds(id string, bounds geom.Rect)
	MarkClean()
}

// Renderer draws the background layer (persisted and transient drawings) and
// the temporary drawing on top with edit decoration.
type Renderer struct {
	projector Projector
	frames    FrameSource
	log       logger.Logger
}

// New creates a renderer
func New(projector Projector, frames FrameSource, log logger.Logger) *Renderer {
	return &Renderer{
		projector: projector,
		frames:    frames,
		log:       log,
	}
}

// Render paints one frame. Background drawings sharing the temporary drawing's
// id are skipped so a dragged shape is not painted twice.
func (r *Renderer) Render(c core.Canvas) {
	frame := r.frames.Snapshot()

	for _, d := range frame.Background {
		if frame.Temporary != nil && d.ID == frame.Temporary.ID {
			continue
		}
		if err := r.Draw(c, d, false); err != nil {
			r.log.WithField("id", d.ID).Warn(err)
		}
	}

	if frame.Temporary != nil {
		if err := r.Draw(c, *frame.Temporary, true); err != nil {
			r.log.WithField("id", frame.Temporary.ID).Warn(err)
		}
	}

	r.frames.MarkClean()
}

// Draw paints a single drawing. editing marks the in-progress drawing, which is
// always decorated. Unresolvable or degenerate drawings are skipped silently.
func (r *Renderer) Draw(c core.Canvas, d core.Drawing, editing bool) error {
	c.Save()
	defer c.Restore()

	applyStyle(c, d.Properties)
	decorated := editing || d.Selected || d.Hovered

	switch d.Type {
	case core.DrawingHorizontalLine:
		r.drawHorizontalLine(c, d, decorated)
	case core.DrawingVerticalLine:
		r.drawVerticalLine(c, d, decorated)
	case core.DrawingHorizontalRay:
		r.drawHorizontalRay(c, d, decorated)
	case core.DrawingArrowLine:
		r.drawArrowLine(c, d, decorated)
	case core.DrawingRectangle:
		r.drawRectangle(c, d, decorated)
	case core.DrawingTriangle:
		r.drawTriangle(c, d, decorated)
	case core.DrawingRotatedRectangle:
		r.drawRotatedRectangle(c, d, decorated)
	case core.DrawingBrush:
		r.drawBrush(c, d, decorated)
	case core.DrawingText:
		r.drawText(c, d, decorated, editing)
	case core.DrawingTrendline, core.DrawingRay:
		r.drawLine(c, d, decorated)
	default:
		return fmt.Errorf("render: %w: %q", core.ErrUnknownType, string(d.Type))
	}

	return nil
}

func applyStyle(c core.Canvas, props core.Properties) {
	c.SetStrokeStyle(props.Color)
	c.SetFillStyle(props.Color)
	c.SetLineWidth(props.LineWidth)
	c.SetLineDash(props.LineStyle.DashPattern())
}

func (r *Renderer) drawHorizontalLine(c core.Canvas, d core.Drawing, decorated bool) {
	if len(d.Points) < 1 {
		return
	}
	y, ok := r.projector.PriceToPixel(d.Points[0].Price)
	if !ok {
		return
	}

	strokeSegment(c, geom.Pt(0, y), geom.Pt(c.Width(), y))
	c.SetLineDash([]float64{})

	if decorated {
		x, ok := r.projector.TimeToPixel(d.Points[0].Time)
		if !ok {
			x = c.Width() / 2
		}
		drawControlPoints(c, d.Properties.Color, geom.Pt(x, y))
	}
}

func (r *Renderer) drawVerticalLine(c core.Canvas, d core.Drawing, decorated bool) {
	if len(d.Points) < 1 {
		return
	}
	x, ok := r.projector.TimeToPixel(d.Points[0].Time)
	if !ok {
		return
	}

	strokeSegment(c, geom.Pt(x, 0), geom.Pt(x, c.Height()))
	c.SetLineDash([]float64{})

	if decorated {
		y, ok := r.projector.PriceToPixel(d.Points[0].Price)
		if !ok {
			y = c.Height() / 2
		}
		drawControlPoints(c, d.Properties.Color, geom.Pt(x, y))
	}
}

func (r *Renderer) drawHorizontalRay(c core.Canvas, d core.Drawing, decorated bool) {
	if len(d.Points) < 1 {
		return
	}
	anchor, ok := r.projector.PointToPixel(d.Points[0])
	if !ok {
		return
	}

	strokeSegment(c, anchor, geom.Pt(c.Width(), anchor.Y))
	c.SetLineDash([]float64{})

	if decorated {
		drawControlPoints(c, d.Properties.Color, anchor)
	}
}

func (r *Renderer) drawLine(c core.Canvas, d core.Drawing, decorated bool) {
	if len(d.Points) < 2 {
		return
	}

	p0, ok0 := r.projector.PointToPixel(d.Points[0])
	p1, ok1 := r.projector.PointToPixel(d.Points[1])

	switch {
	case ok0 && ok1:
		end := p1
		if d.Type == core.DrawingRay {
			end = p0.Add(p1.Sub(p0).Scale(RayExtension))
		}
		strokeSegment(c, p0, end)
		if decorated {
			drawControlPoints(c, d.Properties.Color, p0, p1)
		}
	case ok0:
		r.drawEdgeTick(c, d.Points[0], d.Points[1])
	case ok1:
		r.drawEdgeTick(c, d.Points[1], d.Points[0])
	}
}

// drawEdgeTick marks an endpoint whose time is off-screen with a short tick on
// the near canvas edge at its price.
func (r *Renderer) drawEdgeTick(c core.Canvas, visible, hidden core.Point) {
	y, ok := r.projector.PriceToPixel(hidden.Price)
	if !ok {
		return
	}

	if hidden.Time < visible.Time {
		strokeSegment(c, geom.Pt(0, y), geom.Pt(EdgeTickLength, y))
		return
	}
	w := c.Width()
	strokeSegment(c, geom.Pt(w-EdgeTickLength, y), geom.Pt(w, y))
}

func (r *Renderer) drawArrowLine(c core.Canvas, d core.Drawing, decorated bool) {
	if len(d.Points) < 2 {
		return
	}
	tail, ok := r.projector.PointToPixel(d.Points[0])
	if !ok {
		return
	}
	tip, ok := r.projector.PointToPixel(d.Points[1])
	if !ok {
		return
	}

	strokeSegment(c, tail, tip)

	angle := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	left := geom.Pt(
		tip.X-ArrowHeadLength*math.Cos(angle-ArrowHalfAngle),
		tip.Y-ArrowHeadLength*math.Sin(angle-ArrowHalfAngle),
	)
	right := geom.Pt(
		tip.X-ArrowHeadLength*math.Cos(angle+ArrowHalfAngle),
		tip.Y-ArrowHeadLength*math.Sin(angle+ArrowHalfAngle),
	)

	c.SetLineDash([]float64{})
	tracePolygon(c, []geom.Pixel{tip, left, right})
	c.Fill()

	if decorated {
		drawControlPoints(c, d.Properties.Color, tail, tip)
	}
}

func (r *Renderer) drawRectangle(c core.Canvas, d core.Drawing, decorated bool) {
	if len(d.Points) < 2 {
		return
	}
	a, ok := r.projector.PointToPixel(d.Points[0])
	if !ok {
		return
	}
	b, ok := r.projector.PointToPixel(d.Points[1])
	if !ok {
		return
	}

	corners := geom.RectCorners(a, b)
	x, y := corners[0].X, corners[0].Y
	w, h := corners[2].X-x, corners[2].Y-y

	if d.Properties.ShowBackground {
		c.SetFillStyle(backgroundColor(d.Properties))
		c.FillRect(x, y, w, h)
	}
	c.StrokeRect(x, y, w, h)

	if decorated {
		drawControlPoints(c, d.Properties.Color, corners...)
	}
}

func (r *Renderer) drawTriangle(c core.Canvas, d core.Drawing, decorated bool) {
	pixels, ok := r.projector.PointsToPixels(d.Points)
	if !ok || len(pixels) < 3 {
		return
	}

	drawPolygon(c, d.Properties, pixels[:3])
	if decorated {
		drawControlPoints(c, d.Properties.Color, pixels[:3]...)
	}
}

func (r *Renderer) drawRotatedRectangle(c core.Canvas, d core.Drawing, decorated bool) {
	pixels, ok := r.projector.PointsToPixels(d.Points)
	if !ok || len(pixels) < 3 {
		return
	}

	corners, ok := geom.RotatedRectCorners(pixels[0], pixels[1], pixels[2])
	if !ok {
		return
	}

	drawPolygon(c, d.Properties, corners)
	if decorated {
		drawControlPoints(c, d.Properties.Color, pixels[:3]...)
	}
}

func (r *Renderer) drawBrush(c core.Canvas, d core.Drawing, decorated bool) {
	pixels := make([]geom.Pixel, 0, len(d.Points))
	for _, p := range d.Points {
		if px, ok := r.projector.PointToPixel(p); ok {
			pixels = append(pixels, px)
		}
	}
	if len(pixels) < 2 {
		return
	}

	if d.Selected {
		c.Save()
		c.SetGlobalAlpha(HaloAlpha)
		c.SetLineWidth(d.Properties.LineWidth + HaloExtraWidth)
		c.SetLineDash([]float64{})
		tracePolyline(c, pixels)
		c.Stroke()
		c.Restore()
	}

	tracePolyline(c, pixels)
	c.Stroke()

	if decorated {
		drawControlPoints(c, d.Properties.Color, pixels[0], pixels[len(pixels)-1])
	}
}

func (r *Renderer) drawText(c core.Canvas, d core.Drawing, decorated, editing bool) {
	if len(d.Points) < 1 {
		return
	}
	anchor, ok := r.projector.PointToPixel(d.Points[0])
	if !ok {
		return
	}

	size := d.Properties.FontSize
	if size <= 0 {
		size = core.DefaultProperties().FontSize
	}
	c.SetFont(size)
	w, h := c.MeasureText(d.Properties.Text)
	bounds := geom.Rect{X: anchor.X, Y: anchor.Y, W: w, H: h}

	if d.Properties.ShowBackground {
		c.SetFillStyle(backgroundColor(d.Properties))
		c.FillRect(bounds.X-TextPadding, bounds.Y-TextPadding, w+2*TextPadding, h+2*TextPadding)
		c.SetFillStyle(d.Properties.Color)
	}

	c.FillText(d.Properties.Text, anchor.X, anchor.Y)

	if d.Selected || editing {
		c.Save()
		c.SetShadow(d.Properties.Color, GlowBlur)
		c.SetLineWidth(1)
		c.SetLineDash([]float64{})
		outline := bounds.Expand(TextPadding)
		c.StrokeRect(outline.X, outline.Y, outline.W, outline.H)
		c.Restore()
	}

	if decorated {
		drawControlPoints(c, d.Properties.Color, anchor)
	}

	r.frames.SetTextBounds(d.ID, bounds)
}

func drawPolygon(c core.Canvas, props core.Properties, vertices []geom.Pixel) {
	tracePolygon(c, vertices)
	if props.ShowBackground {
		c.SetFillStyle(backgroundColor(props))
		c.Fill()
	}
	c.Stroke()
}

func drawControlPoints(c core.Canvas, color string, points ...geom.Pixel) {
	c.Save()
	defer c.Restore()

	c.SetLineDash([]float64{})
	c.SetLineWidth(1.5)
	c.SetFillStyle("#FFFFFF")
	c.SetStrokeStyle(color)

	for _, p := range points {
		c.BeginPath()
		c.Arc(p.X, p.Y, ControlPointRadius, 0, 2*math.Pi)
		c.Fill()
		c.Stroke()
	}
}

func strokeSegment(c core.Canvas, a, b geom.Pixel) {
	c.BeginPath()
	c.MoveTo(a.X, a.Y)
	c.LineTo(b.X, b.Y)
	c.Stroke()
}

func tracePolyline(c core.Canvas, points []geom.Pixel) {
	c.BeginPath()
	c.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		c.LineTo(p.X, p.Y)
	}
}

func tracePolygon(c core.Canvas, vertices []geom.Pixel) {
	tracePolyline(c, vertices)
	c.ClosePath()
}

func backgroundColor(props core.Properties) string {
	if props.BackgroundColor != "" {
		return props.BackgroundColor
	}
	return core.DefaultProperties().BackgroundColor
}
