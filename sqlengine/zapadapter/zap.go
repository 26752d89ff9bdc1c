// Package zapadapter implements the engine's logger interfaces on top of go.uber.org/zap.
package zapadapter

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// Logger implements sqlengine.Logger and sqlengine.ContextualLogger with a sugared zap logger.
// The slog-style key/value args map to zap's loosely typed fields.
type Logger struct {
	sugar *zap.SugaredLogger
}

// enforce compilation error
var (
	_ sqlengine.Logger           = (*Logger)(nil)
	_ sqlengine.ContextualLogger = (*Logger)(nil)
)

// New wraps an existing zap logger.
func New(logger *zap.Logger) *Logger {
	return &Logger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// NewJSON creates a JSON logger writing to w at level. A nil w writes to stderr.
func NewJSON(level zapcore.Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), level)

	return New(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
}

func (l *Logger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// DebugContext ignores ctx, zap does not correlate by context.
func (l *Logger) DebugContext(_ context.Context, msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *Logger) InfoContext(_ context.Context, msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *Logger) WarnContext(_ context.Context, msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *Logger) ErrorContext(_ context.Context, msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
