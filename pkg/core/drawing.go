package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Point is a domain coordinate: unix seconds on the time axis, quote price on the price axis
type Point struct {
	Time  int64   `json:"time" yaml:"time"`
	Price float64 `json:"price" yaml:"price"`
}

// DrawingType selects rendering, hit-testing and interaction behaviour of a drawing
type DrawingType string

const (
	DrawingTrendline        DrawingType = "trendline"
	DrawingRay              DrawingType = "ray"
	DrawingArrowLine        DrawingType = "arrow_line"
	DrawingHorizontalLine   DrawingType = "horizontal_line"
	DrawingVerticalLine     DrawingType = "vertical_line"
	DrawingHorizontalRay    DrawingType = "horizontal_ray"
	DrawingRectangle        DrawingType = "rectangle"
	DrawingTriangle         DrawingType = "triangle"
	DrawingRotatedRectangle DrawingType = "rotated_rectangle"
	DrawingBrush            DrawingType = "brush"
	DrawingText             DrawingType = "text"
)

// MinBrushPoints is the smallest stroke that is worth persisting
const MinBrushPoints = 2

// AllTypes returns every supported drawing type
func AllTypes() []DrawingType {
	return []DrawingType{
		DrawingTrendline, DrawingRay, DrawingArrowLine,
		DrawingHorizontalLine, DrawingVerticalLine, DrawingHorizontalRay,
		DrawingRectangle, DrawingTriangle, DrawingRotatedRectangle,
		DrawingBrush, DrawingText,
	}
}

// PointCount returns how many points a completed drawing of this type holds.
// For brush strokes the count is a minimum and variable is true.
func (t DrawingType) PointCount() (count int, variable bool, err error) {
	switch t {
	case DrawingHorizontalLine, DrawingVerticalLine, DrawingHorizontalRay, DrawingText:
		return 1, false, nil
	case DrawingTrendline, DrawingRay, DrawingArrowLine, DrawingRectangle:
		return 2, false, nil
	case DrawingTriangle, DrawingRotatedRectangle:
		return 3, false, nil
	case DrawingBrush:
		return MinBrushPoints, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
}

// SingleClick reports whether one pointer down completes the drawing
func (t DrawingType) SingleClick() bool {
	switch t {
	case DrawingHorizontalLine, DrawingVerticalLine, DrawingHorizontalRay:
		return true
	default:
		return false
	}
}

// LineStyle is the stroke dash style, stored as a small integer
type LineStyle int

const (
	LineSolid  LineStyle = 0
	LineDotted LineStyle = 1
	LineDashed LineStyle = 2
)

// DashPattern returns the canvas dash pattern for the style
func (s LineStyle) DashPattern() []float64 {
	switch s {
	case LineDotted:
		return []float64{2, 2}
	case LineDashed:
		return []float64{5, 5}
	default:
		return []float64{}
	}
}

// Properties is the style and content bag of a drawing
type Properties struct {
	Color           string    `json:"color" yaml:"color"`
	LineWidth       float64   `json:"line_width" yaml:"line_width"`
	LineStyle       LineStyle `json:"line_style" yaml:"line_style"`
	ShowBackground  bool      `json:"show_background" yaml:"show_background"`
	BackgroundColor string    `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	Text            string    `json:"text,omitempty" yaml:"text,omitempty"`
	FontSize        float64   `json:"font_size,omitempty" yaml:"font_size,omitempty"`
}

// DefaultProperties returns the style applied to new drawings
func DefaultProperties() Properties {
	return Properties{
		Color:           "#2962FF",
		LineWidth:       2,
		LineStyle:       LineSolid,
		BackgroundColor: "rgba(41, 98, 255, 0.2)",
		FontSize:        14,
	}
}

// Drawing is a user annotation anchored to domain coordinates
type Drawing struct {
	ID         string      `json:"id" yaml:"id"`
	SourceID   string      `json:"source_id" yaml:"source_id"`
	Type       DrawingType `json:"type" yaml:"type"`
	Points     []Point     `json:"points" yaml:"points"`
	Properties Properties  `json:"properties" yaml:"properties"`
	Selected   bool        `json:"selected" yaml:"selected"`
	Hovered    bool        `json:"-" yaml:"-"`
	CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy so the points slice is never shared
func (d Drawing) Clone() Drawing {
	clone := d
	clone.Points = append([]Point(nil), d.Points...)
	return clone
}

// Validate checks the identity fields and the type's point cardinality
func (d Drawing) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDrawing)
	}
	if d.SourceID == "" {
		return fmt.Errorf("%w: %s", ErrInvalidDrawing, ErrEmptySource)
	}
	if d.Properties.Color == "" {
		return fmt.Errorf("%w: %s has no color", ErrInvalidDrawing, d.ID)
	}

	count, variable, err := d.Type.PointCount()
	if err != nil {
		return err
	}

	if variable && len(d.Points) < count {
		return fmt.Errorf("%w: %s needs at least %d points, got %d", ErrInvalidDrawing, d.Type, count, len(d.Points))
	}
	if !variable && len(d.Points) != count {
		return fmt.Errorf("%w: %s needs %d points, got %d", ErrInvalidDrawing, d.Type, count, len(d.Points))
	}

	return nil
}

// Translate moves every point by the given time and price delta
func (d Drawing) Translate(dt int64, dp float64) Drawing {
	moved := d.Clone()
	for i := range moved.Points {
		moved.Points[i].Time += dt
		moved.Points[i].Price += dp
	}
	return moved
}

// DrawingFilter selects drawings when listing a backend
type DrawingFilter func(drawing Drawing) bool

// WithType keeps drawings of any of the given types
func WithType(types ...DrawingType) DrawingFilter {
	return func(drawing Drawing) bool {
		return slices.Contains(types, drawing.Type)
	}
}

// WithSource keeps drawings that belong to sourceID
func WithSource(sourceID string) DrawingFilter {
	return func(drawing Drawing) bool {
		return drawing.SourceID == sourceID
	}
}

// Apply returns the drawings that pass every filter
func Apply(drawings []Drawing, filters ...DrawingFilter) []Drawing {
	return lo.Filter(drawings, func(d Drawing, _ int) bool {
		for _, filter := range filters {
			if !filter(d) {
				return false
			}
		}
		return true
	})
}
