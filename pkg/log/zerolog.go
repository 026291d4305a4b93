package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	scerrors "github.com/YuminosukeSato/houseprice/pkg/errors"
)

const (
	ErrAttrKey = "error"
)

// ZerologLogger implements Logger on top of a zerolog.Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// Debug implements Logger.Debug.
func (z *ZerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *ZerologLogger) Info(msg string, fields ...any) {
	z.emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *ZerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error. A leading error argument is attached with
// zerolog's Err and, when it carries a cockroachdb stack, the stack trace.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	event := z.logger.Error()
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			attachError(event, err)
			fields = fields[1:]
		}
	}
	z.emit(event, msg, fields)
}

// With implements Logger.With.
func (z *ZerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), normalize(fields[i+1]))
	}
	return &ZerologLogger{logger: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= z.logger.GetLevel()
}

func (z *ZerologLogger) emit(event *zerolog.Event, msg string, fields []any) {
	if event == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok && key == ErrAttrKey {
			attachError(event, err)
			continue
		}
		event = event.Interface(key, normalize(fields[i+1]))
	}
	event.Msg(msg)
}

func attachError(event *zerolog.Event, err error) {
	event.Err(err)
	if st := extractStacktrace(err); st != "" {
		event.Str(StacktraceKey, st)
	}
	var obj zerolog.LogObjectMarshaler
	if errors.As(err, &obj) {
		event.Object("error.detail", obj)
	}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func normalize(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// ZerologProvider implements LoggerProvider. Loggers it hands out share one
// output and one level.
type ZerologProvider struct {
	mu     sync.Mutex
	base   zerolog.Logger
	output io.Writer
}

// NewZerologProvider creates a provider writing JSON lines to stderr.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter creates a provider writing to w.
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	p := &ZerologProvider{
		output: w,
		base:   zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level)),
	}
	return p
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &ZerologLogger{logger: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &ZerologLogger{logger: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel. Loggers handed out earlier
// keep their level.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

// ToLogLevel parses "debug", "info", "warn" or "error" (case-insensitive).
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, scerrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
