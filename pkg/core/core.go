package core

import "context"

// ChartSurface is the host chart the annotations are drawn on. Every projection
// reports false when the host cannot resolve the coordinate.
type ChartSurface interface {
	TimeToPixel(time int64) (float64, bool)
	LogicalIndexToPixel(index float64) (float64, bool)
	PriceToPixel(price float64) (float64, bool)
	PixelToTime(x float64) (int64, bool)
	PixelToPrice(y float64) (float64, bool)
	RequestRedraw()
}

// Canvas is a 2D drawing surface with a save/restore style stack.
// Text is positioned by its top-left corner.
type Canvas interface {
	Width() float64
	Height() float64

	Save()
	Restore()

	SetStrokeStyle(color string)
	SetFillStyle(color string)
	SetLineWidth(width float64)
	SetLineDash(pattern []float64)
	SetGlobalAlpha(alpha float64)
	SetShadow(color string, blur float64)
	SetFont(size float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Arc(x, y, radius, start, end float64)
	ClosePath()
	Stroke()
	Fill()

	FillRect(x, y, w, h float64)
	StrokeRect(x, y, w, h float64)
	MeasureText(text string) (width, height float64)
	FillText(text string, x, y float64)
}

// Overlay is a lightweight surface for freehand previews that bypass the renderer
type Overlay interface {
	StrokeSegment(x0, y0, x1, y1 float64, color string, width float64)
	Clear()
}

// DrawingStorage is the persistence backend for drawings, partitioned by source id
type DrawingStorage interface {
	// Load returns every drawing stored for sourceID
	Load(ctx context.Context, sourceID string) ([]Drawing, error)

	// Save inserts the drawing or replaces the one with the same id
	Save(ctx context.Context, drawing Drawing) error

	// Delete removes a drawing by id
	Delete(ctx context.Context, id string) error

	// Clear removes every drawing stored for sourceID
	Clear(ctx context.Context, sourceID string) error
}
