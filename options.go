package chartdraw

import (
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/interaction"
	"github.com/raykavin/chartdraw/pkg/logger"
)

// Option configures an Engine before its components are built
type Option func(*Engine)

// WithLogger replaces DefaultLog
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithRedraw replaces the host chart's RequestRedraw as the store redraw callback
func WithRedraw(fn func()) Option {
	return func(e *Engine) {
		e.redraw = fn
	}
}

// WithOverlay sets the surface for freehand brush previews
func WithOverlay(overlay core.Overlay) Option {
	return func(e *Engine) {
		e.machineOptions = append(e.machineOptions, interaction.WithOverlay(overlay))
	}
}

// WithTextRequester sets the callback that opens the host's text editor
func WithTextRequester(fn interaction.TextRequester) Option {
	return func(e *Engine) {
		e.machineOptions = append(e.machineOptions, interaction.WithTextRequester(fn))
	}
}

// WithMagnet starts the engine with price snapping on or off
func WithMagnet(enabled bool) Option {
	return func(e *Engine) {
		e.machineOptions = append(e.machineOptions, interaction.WithMagnet(enabled))
	}
}

// WithInteractionOptions passes extra options to the interaction machine
func WithInteractionOptions(opts ...interaction.Option) Option {
	return func(e *Engine) {
		e.machineOptions = append(e.machineOptions, opts...)
	}
}
