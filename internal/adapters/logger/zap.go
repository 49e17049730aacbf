// Package logger provides the structured-logging adapter used throughout
// branchkeeper.
package logger

import (
	"context"

	"go.uber.org/zap"
)

// Logger is the logging interface used throughout the application. The
// reconciliation engine itself never logs; only the CLI layer and
// adapters do.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// ZapLogger adapts a *zap.Logger to the application's Logger interface.
type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger builds a ZapLogger. A production (JSON) core is used
// unless level is "debug", in which case a development (console) core is
// used instead so local runs stay readable.
func NewZapLogger(level string) (*ZapLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if level == "debug" {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: zl}, nil
}

// NewZapLoggerFromZap wraps an already-constructed *zap.Logger. Useful in
// tests that want to assert on a zaptest/observer core.
func NewZapLoggerFromZap(zl *zap.Logger) *ZapLogger {
	return &ZapLogger{log: zl}
}

// Info logs an info message.
func (a *ZapLogger) Info(_ context.Context, msg string, fields map[string]any) {
	a.log.Info(msg, toZapFields(fields)...)
}

// Debug logs a debug message.
func (a *ZapLogger) Debug(_ context.Context, msg string, fields map[string]any) {
	a.log.Debug(msg, toZapFields(fields)...)
}

// Warn logs a warning message.
func (a *ZapLogger) Warn(_ context.Context, msg string, fields map[string]any) {
	a.log.Warn(msg, toZapFields(fields)...)
}

// Error logs an error message.
func (a *ZapLogger) Error(_ context.Context, msg string, err error, fields map[string]any) {
	zfields := toZapFields(fields)
	if err != nil {
		zfields = append(zfields, zap.Error(err))
	}
	a.log.Error(msg, zfields...)
}

// Sync flushes any buffered log entries.
func (a *ZapLogger) Sync() error {
	return a.log.Sync()
}

func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
