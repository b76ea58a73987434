// Package zerolog builds the console logger used by the chartdraw binaries.
package zerolog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Option customizes the console writer
type Option func(*zerolog.ConsoleWriter)

// WithOutput redirects log output, stdout by default
func WithOutput(w io.Writer) Option {
	return func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
	}
}

// New builds a leveled console logger. jsonFormat keeps zerolog's field layout
// instead of the bracketed columns.
func New(level, timeLayout string, colored, jsonFormat bool, opts ...Option) (*Adapter, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    !colored,
		TimeFormat: timeLayout,
	}

	if !jsonFormat {
		output.FormatLevel = formatLevel
		output.FormatMessage = formatMessage
		output.FormatCaller = formatCaller
		output.FormatTimestamp = func(i any) string {
			return formatTimestamp(i, timeLayout)
		}
	}

	for _, opt := range opts {
		opt(&output)
	}

	l := zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return NewAdapter(&l), nil
}

func formatLevel(i any) string {
	level, _ := i.(string)
	switch level {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	case zerolog.LevelPanicValue:
		return term.Redf("[PAN]")
	default:
		return term.Whitef("[UNK]")
	}
}

func formatMessage(i any) string {
	const width = 72

	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}

	if len(msg) > width {
		msg = msg[:width]
	}

	return term.Whitef("> %-*s", width, msg)
}

func formatCaller(i any) string {
	const fileWidth, lineWidth = 16, 4

	fname, ok := i.(string)
	if !ok || fname == "" {
		return ""
	}

	file, line, found := strings.Cut(filepath.Base(fname), ":")
	if !found {
		return file
	}

	if len(file) > fileWidth {
		file = file[:fileWidth]
	}
	if len(line) > lineWidth {
		line = line[len(line)-lineWidth:]
	}

	return term.Yellowf("[%-*s:%*s]", fileWidth, file, lineWidth, line)
}

func formatTimestamp(i any, timeLayout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}

	if ts, err := time.ParseInLocation(time.RFC3339, raw, time.Local); err == nil {
		raw = ts.In(time.Local).Format(timeLayout)
	}

	return term.Cyanf("[%s]", raw)
}
