package core

// Tool is the active pointer tool, either a plain pointer mode or a drawing type
type Tool string

const (
	ToolCursor    Tool = "cursor"
	ToolCrosshair Tool = "crosshair"
	ToolText      Tool = Tool(DrawingText)
	ToolBrush     Tool = Tool(DrawingBrush)
)

// ToolFor returns the tool that creates drawings of type t
func ToolFor(t DrawingType) Tool { return Tool(t) }

// IsPointer reports whether the tool selects and drags instead of drawing
func (t Tool) IsPointer() bool { return t == ToolCursor || t == ToolCrosshair }

// DrawingType returns the drawing type created by the tool
func (t Tool) DrawingType() (DrawingType, bool) {
	if t.IsPointer() {
		return "", false
	}
	dt := DrawingType(t)
	if _, _, err := dt.PointCount(); err != nil {
		return "", false
	}
	return dt, true
}
