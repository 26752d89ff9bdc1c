// Package oteladapters connects the engine's observability interfaces to OpenTelemetry.
package oteladapters

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// SlogBridgeLogger implements sqlengine.ContextualLogger on top of the OpenTelemetry slog bridge,
// which correlates every record with the span found in the context.
type SlogBridgeLogger struct {
	logger *slog.Logger
}

// NewSlogBridgeLogger creates a logger named name on the global LoggerProvider.
func NewSlogBridgeLogger(name string, options ...otelslog.Option) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name, options...)}
}

// NewSlogBridgeLoggerWithHandler uses handler as-is. Records are only trace-correlated if handler does it.
func NewSlogBridgeLoggerWithHandler(handler slog.Handler) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: slog.New(handler)}
}

func (l *SlogBridgeLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

var _ sqlengine.ContextualLogger = (*SlogBridgeLogger)(nil)

// OTelLogger implements sqlengine.ContextualLogger by emitting records through the OpenTelemetry log API.
type OTelLogger struct {
	logger log.Logger
}

// NewOTelLogger creates a logger emitting to logger.
func NewOTelLogger(logger log.Logger) *OTelLogger {
	return &OTelLogger{logger: logger}
}

func (l *OTelLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityDebug, msg, args)
}

func (l *OTelLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityInfo, msg, args)
}

func (l *OTelLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityWarn, msg, args)
}

func (l *OTelLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityError, msg, args)
}

// emit converts slog-style key/value args into typed log attributes. A trailing key without value is dropped.
func (l *OTelLogger) emit(ctx context.Context, severity log.Severity, msg string, args []any) {
	var record log.Record
	record.SetTimestamp(timeNow())
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(log.StringValue(msg))

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}

		record.AddAttributes(log.KeyValue{Key: key, Value: logValue(args[i+1])})
	}

	l.logger.Emit(ctx, record)
}

func logValue(v any) log.Value {
	switch value := v.(type) {
	case string:
		return log.StringValue(value)
	case bool:
		return log.BoolValue(value)
	case int:
		return log.IntValue(value)
	case int64:
		return log.Int64Value(value)
	case float64:
		return log.Float64Value(value)
	case error:
		return log.StringValue(value.Error())
	default:
		return log.StringValue(slog.AnyValue(v).String())
	}
}

var _ sqlengine.ContextualLogger = (*OTelLogger)(nil)
