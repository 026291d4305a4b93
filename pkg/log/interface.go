// Package log provides the structured logging interface used by the training
// pipeline, the evaluator, and the dashboard.
//
// The interface is slog-shaped so that call sites read like log/slog, while the
// default implementation is backed by zerolog (see zerolog.go). Tests use
// TestLogger to capture JSON lines in memory.
//
// Example usage:
//
//	logger := log.NewZerologProvider(log.LevelInfo).GetLoggerWithName("training")
//	logger.Info("Data preparation completed",
//	    log.OperationKey, log.OperationPrepare,
//	    log.SamplesKey, 506,
//	    log.FeaturesKey, 8,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key-value pairs. Error treats an error value among the
// fields specially: implementations attach the message and, for cockroachdb
// errors, the stack trace.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error, it will be handled specially:
	//
	//	logger.Error("Model evaluation failed", err, log.StageKey, "evaluate")
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific name/component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}

// Nop returns a Logger that discards everything. Components fall back to it
// when constructed without a logger.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

func (nopLogger) Info(string, ...any) {}

func (nopLogger) Warn(string, ...any) {}

func (nopLogger) Error(string, ...any) {}

func (n nopLogger) With(...any) Logger {
	return n
}

func (nopLogger) Enabled(context.Context, Level) bool {
	return false
}
