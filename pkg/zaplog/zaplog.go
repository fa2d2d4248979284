// Package zaplog adapts a *zap.Logger to the clabject.Logger interface.
package zaplog

import (
	"fmt"
	"strings"

	clabject "github.com/goliatone/go-clabject"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes model events as structured zap entries. Successful
// operations are written at the configured level and failures at error
// level.
type Logger struct {
	logger *zap.Logger
	level  zapcore.Level
}

// Option configures a Logger.
type Option func(*Logger)

// WithLevel sets the level used for successful operations (default: debug).
func WithLevel(level zapcore.Level) Option {
	return func(l *Logger) {
		l.level = level
	}
}

// New wraps logger. A nil logger yields a no-op zap logger.
func New(logger *zap.Logger, opts ...Option) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Logger{logger: logger.Named("clabject"), level: zapcore.DebugLevel}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// LogEvent implements clabject.Logger.
func (l *Logger) LogEvent(event clabject.LogEvent) {
	level := l.level
	if event.Err != nil {
		level = zapcore.ErrorLevel
	}
	ce := l.logger.Check(level, message(event))
	if ce == nil {
		return
	}
	ce.Write(fields(event)...)
}

func message(event clabject.LogEvent) string {
	op := event.Op
	if op == "" {
		op = "event"
	}
	if event.Err != nil {
		return op + " failed"
	}
	return op
}

func fields(event clabject.LogEvent) []zap.Field {
	out := []zap.Field{
		zap.String("op", event.Op),
		zap.Duration("duration", event.Duration),
	}
	if event.Node != "" {
		out = append(out, zap.String("node", string(event.Node)))
	}
	if event.Feature != "" {
		out = append(out, zap.String("feature", event.Feature))
	}
	if event.Op == clabject.OpDeclare {
		out = append(out, zap.Int("potency", event.Potency))
	}
	if event.Affected > 0 {
		out = append(out, zap.Int("affected", event.Affected))
	}
	if event.Engine != "" {
		out = append(out, zap.String("engine", event.Engine))
	}
	if event.Err != nil {
		out = append(out, zap.Error(event.Err))
	}
	return out
}

// ParseLevel maps a textual level ("debug", "info", "warn", "error") to a
// zap level. An empty string means debug.
func ParseLevel(text string) (zapcore.Level, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return zapcore.DebugLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(text))
	if err != nil {
		return zapcore.DebugLevel, fmt.Errorf("zaplog: %w", err)
	}
	return level, nil
}

// NewProduction builds a JSON production logger at level and wraps it.
func NewProduction(level zapcore.Level) (*Logger, *zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	base, err := config.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("zaplog: build logger: %w", err)
	}
	return New(base, WithLevel(level)), base, nil
}
