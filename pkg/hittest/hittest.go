// Package hittest finds the drawing, and the control point, under a pointer.
package hittest

import (
	"fmt"
	"math"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
)

const (
	// Threshold is the pixel distance within which a line or point is hit
	Threshold = 8.0
	// TextMargin grows cached text bounds before the contains test
	TextMargin = 5.0
	// NoControlPoint marks a whole-shape hit
	NoControlPoint = -1
)

// Hit is the drawing under the pointer and the control point index targeted,
// NoControlPoint when the shape as a whole is targeted.
type Hit struct {
	Drawing      core.Drawing
	ControlPoint int
}

// WholeShape reports whether the hit targets the shape rather than one point
func (h Hit) WholeShape() bool { return h.ControlPoint == NoControlPoint }

// Projector resolves domain coordinates to pixels
type Projector interface {
	TimeToPixel(time int64) (float64, bool)
	PriceToPixel(price float64) (float64, bool)
	PointToPixel(p core.Point) (geom.Pixel, bool)
	PointsToPixels(points []core.Point) ([]geom.Pixel, bool)
}

// Source exposes the drawings eligible for hit-testing and cached text bounds
type Source interface {
	Visible() []core.Drawing
	TextBounds(id string) (geom.Rect, bool)
}

// Tester scans persisted and transient drawings in order; the first match wins.
// The temporary drawing is never a target.
type Tester struct {
	projector Projector
	source    Source
}

// New creates a hit tester
func New(projector Projector, source Source) *Tester {
	return &Tester{projector: projector, source: source}
}

// HitTest returns the first drawing under (x, y), or nil
func (t *Tester) HitTest(x, y float64) *Hit {
	p := geom.Pt(x, y)
	for _, d := range t.source.Visible() {
		if cp, ok, err := t.Test(d, p); err == nil && ok {
			return &Hit{Drawing: d, ControlPoint: cp}
		}
	}
	return nil
}

// Test checks a single drawing against p
func (t *Tester) Test(d core.Drawing, p geom.Pixel) (controlPoint int, hit bool, err error) {
	switch d.Type {
	case core.DrawingText:
		return NoControlPoint, t.testText(d, p), nil
	case core.DrawingBrush:
		return NoControlPoint, t.testBrush(d, p), nil
	case core.DrawingHorizontalLine:
		return NoControlPoint, t.testHorizontalLine(d, p), nil
	case core.DrawingVerticalLine:
		return NoControlPoint, t.testVerticalLine(d, p), nil
	case core.DrawingHorizontalRay:
		return NoControlPoint, t.testHorizontalRay(d, p), nil
	case core.DrawingRectangle, core.DrawingTriangle, core.DrawingRotatedRectangle:
		controlPoint, hit = t.testShape(d, p)
		return controlPoint, hit, nil
	case core.DrawingTrendline, core.DrawingRay, core.DrawingArrowLine:
		controlPoint, hit = t.testSegment(d, p)
		return controlPoint, hit, nil
	default:
		return NoControlPoint, false, fmt.Errorf("hittest: %w: %q", core.ErrUnknownType, string(d.Type))
	}
}

func (t *Tester) testText(d core.Drawing, p geom.Pixel) bool {
	bounds, ok := t.source.TextBounds(d.ID)
	if !ok {
		return false
	}
	return bounds.Expand(TextMargin).Contains(p)
}

func (t *Tester) testBrush(d core.Drawing, p geom.Pixel) bool {
	for i := 1; i < len(d.Points); i++ {
		a, okA := t.projector.PointToPixel(d.Points[i-1])
		b, okB := t.projector.PointToPixel(d.Points[i])
		if !okA || !okB {
			continue
		}
		if geom.DistanceToSegment(p, a, b) <= Threshold {
			return true
		}
	}
	return false
}

func (t *Tester) testHorizontalLine(d core.Drawing, p geom.Pixel) bool {
	if len(d.Points) < 1 {
		return false
	}
	y, ok := t.projector.PriceToPixel(d.Points[0].Price)
	return ok && math.Abs(p.Y-y) <= Threshold
}

func (t *Tester) testVerticalLine(d core.Drawing, p geom.Pixel) bool {
	if len(d.Points) < 1 {
		return false
	}
	x, ok := t.projector.TimeToPixel(d.Points[0].Time)
	return ok && math.Abs(p.X-x) <= Threshold
}

func (t *Tester) testHorizontalRay(d core.Drawing, p geom.Pixel) bool {
	if len(d.Points) < 1 {
		return false
	}
	anchor, ok := t.projector.PointToPixel(d.Points[0])
	return ok && math.Abs(p.Y-anchor.Y) <= Threshold && p.X >= anchor.X-Threshold
}

// testShape gives corner handles priority over the polygon interior
func (t *Tester) testShape(d core.Drawing, p geom.Pixel) (int, bool) {
	pixels, ok := t.projector.PointsToPixels(d.Points)
	if !ok {
		return NoControlPoint, false
	}

	if idx, ok := firstWithin(pixels, p); ok {
		return idx, true
	}

	var polygon []geom.Pixel
	switch d.Type {
	case core.DrawingRectangle:
		if len(pixels) < 2 {
			return NoControlPoint, false
		}
		polygon = geom.RectCorners(pixels[0], pixels[1])
	case core.DrawingTriangle:
		if len(pixels) < 3 {
			return NoControlPoint, false
		}
		polygon = pixels[:3]
	case core.DrawingRotatedRectangle:
		if len(pixels) < 3 {
			return NoControlPoint, false
		}
		if polygon, ok = geom.RotatedRectCorners(pixels[0], pixels[1], pixels[2]); !ok {
			return NoControlPoint, false
		}
	}

	return NoControlPoint, geom.PointInPolygon(p, polygon)
}

// testSegment checks endpoints first, then the finite segment. A ray is
// tested on its two defining points only, not its rendered extension.
func (t *Tester) testSegment(d core.Drawing, p geom.Pixel) (int, bool) {
	if len(d.Points) < 2 {
		return NoControlPoint, false
	}
	pixels, ok := t.projector.PointsToPixels(d.Points[:2])
	if !ok {
		return NoControlPoint, false
	}

	if idx, ok := firstWithin(pixels, p); ok {
		return idx, true
	}

	return NoControlPoint, geom.DistanceToSegment(p, pixels[0], pixels[1]) <= Threshold
}

// firstWithin returns the first point within Threshold of p
func firstWithin(points []geom.Pixel, p geom.Pixel) (int, bool) {
	for i, pt := range points {
		if geom.Distance(pt, p) <= Threshold {
			return i, true
		}
	}
	return NoControlPoint, false
}
