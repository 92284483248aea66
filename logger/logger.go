// Package logger defines the logging sink used by go-trgen.
//
// The trigger generator client never writes to a global logging facility on its
// own: every Connection carries a Logger taken from its configuration, so host
// applications decide where records go by passing their own implementation with
// trgen.WithLogger.
//
// Two implementations ship with the package:
//
//   - NewSlog: log/slog based, JSON output, or a colored console handler
//     (github.com/phsym/console-slog) when ENV=development.
//   - NewZap: adapter over an existing *zap.Logger.
//
// Log Levels:
//
//   - DebugLevel: per-request wire traffic.
//   - InfoLevel:  connection lifecycle.
//   - WarnLevel:  recoverable device or network conditions.
//   - ErrorLevel: failed requests.
//   - FatalLevel: critical errors that cause program termination.
package logger

// Level indicates the logging severity level.
type Level = int8

// LogLevel is kept as an alias of Level.
type LogLevel = Level

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// ParseLevel converts a level name ("debug", "info", "warn", "error", "fatal")
// to a Level. Unknown names map to InfoLevel.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Logger defines a common interface for logging.
type Logger interface {
	// Debug logs a message at DebugLevel.
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel.
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel.
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	//
	// The logger then calls os.Exit(1), even if logging at FatalLevel is disabled.
	Fatal(msg string, keysAndValues ...any)
	// With creates a child logger and adds structured context to it.
	// Key-values added to the child don't affect the parent, and vice versa.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level for this logger.
	Level() Level
	// SetLevel sets the minimum enabled level for this logger.
	SetLevel(level Level)
}
