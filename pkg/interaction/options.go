package interaction

import (
	"context"

	"github.com/raykavin/chartdraw/pkg/core"
)

// TextRequester opens the host's text editor. existing is nil for a new label.
// The host completes the edit through Machine.ApplyText.
type TextRequester func(existing *core.Drawing, at core.Point)

// Option configures a Machine
type Option func(*Machine)

// WithOverlay sets the surface used for freehand previews
func WithOverlay(overlay core.Overlay) Option {
	return func(m *Machine) {
		m.overlay = overlay
	}
}

// WithTextRequester sets the callback that opens the text editor
func WithTextRequester(fn TextRequester) Option {
	return func(m *Machine) {
		m.requestText = fn
	}
}

// WithIDGenerator replaces the uuid generator for new drawing ids
func WithIDGenerator(fn func() string) Option {
	return func(m *Machine) {
		m.newID = fn
	}
}

// WithDefaultProperties sets the style of new drawings
func WithDefaultProperties(props core.Properties) Option {
	return func(m *Machine) {
		m.defaults = props
	}
}

// WithMagnet enables snapping to bar prices
func WithMagnet(enabled bool) Option {
	return func(m *Machine) {
		m.magnet = enabled
	}
}

// WithToolListener is notified whenever the active tool changes
func WithToolListener(fn func(core.Tool)) Option {
	return func(m *Machine) {
		m.onTool = fn
	}
}

// WithContext sets the context used by saves issued from pointer events
func WithContext(ctx context.Context) Option {
	return func(m *Machine) {
		m.ctx = ctx
	}
}
