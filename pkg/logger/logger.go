// Package logger defines the logging collaborator every chartdraw component receives.
package logger

// Level is the minimum severity a logger emits
type Level int8

const (
	Disabled   Level = -1   // Disabled turns logging off.
	TraceLevel Level = iota // TraceLevel logs pointer-level interaction detail.
	DebugLevel              // DebugLevel logs discarded strokes and cache pruning.
	InfoLevel               // InfoLevel logs loads, commits and server lifecycle.
	WarnLevel               // WarnLevel logs recoverable anomalies such as stale loads.
	ErrorLevel              // ErrorLevel logs persistence failures.
	FatalLevel              // FatalLevel logs and exits the program.
	PanicLevel              // PanicLevel logs and panics.
	NoLevel                 // NoLevel logs without a level.
)

type Logger interface {
	// Contextual loggers derived from the receiver
	WithField(key string, value any) Logger  // WithField returns a logger with the given key-value pair.
	WithFields(fields map[string]any) Logger // WithFields returns a logger with the given fields.
	WithError(err error) Logger              // WithError returns a logger with the given error.

	Print(args ...any) // Print logs the message with the default level.
	Trace(args ...any) // Trace logs the message with the trace level.
	Debug(args ...any) // Debug logs the message with the debug level.
	Info(args ...any)  // Info logs the message with the info level.
	Warn(args ...any)  // Warn logs the message with the warning level.
	Error(args ...any) // Error logs the message with the error level.
	Fatal(args ...any) // Fatal logs the message and then exits the program.
	Panic(args ...any) // Panic logs the message and then panics.

	Printf(format string, args ...any) // Printf logs a formatted message with the default level.
	Tracef(format string, args ...any) // Tracef logs a formatted message with the trace level.
	Debugf(format string, args ...any) // Debugf logs a formatted message with the debug level.
	Infof(format string, args ...any)  // Infof logs a formatted message with the info level.
	Warnf(format string, args ...any)  // Warnf logs a formatted message with the warning level.
	Errorf(format string, args ...any) // Errorf logs a formatted message with the error level.
	Fatalf(format string, args ...any) // Fatalf logs a formatted message and then exits the program.
	Panicf(format string, args ...any) // Panicf logs a formatted message and then panics.

	SetLevel(level Level) // SetLevel sets the minimum level emitted.
	GetLevel() Level      // GetLevel returns the minimum level emitted.
}
