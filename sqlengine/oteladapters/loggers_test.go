package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/oteladapters"
)

// recordingLogger is an OpenTelemetry log.Logger that keeps every emitted record.
type recordingLogger struct {
	embedded.Logger
	mu      sync.Mutex
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record.Clone())
}

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}

func attributesOf(record log.Record) map[string]log.Value {
	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	return attrs
}

func Test_SlogBridgeLogger_AllLevels(t *testing.T) {
	// setup
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "executed sql for: query", "duration_ms", 1.5)
	logger.InfoContext(ctx, "sqlengine operation: query completed")
	logger.WarnContext(ctx, "failed to close statement")
	logger.ErrorContext(ctx, "sqlengine operation failed", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG","msg":"executed sql for: query","duration_ms":1.5`)
	assert.Contains(t, output, `"level":"INFO","msg":"sqlengine operation: query completed"`)
	assert.Contains(t, output, `"level":"WARN","msg":"failed to close statement"`)
	assert.Contains(t, output, `"level":"ERROR","msg":"sqlengine operation failed","error":"boom"`)
}

func Test_SlogBridgeLogger_UsesTheGlobalProvider(t *testing.T) {
	// act
	logger := oteladapters.NewSlogBridgeLogger("sqlengine")

	// assert
	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "sqlengine operation: commit completed")
	})
}

func Test_OTelLogger_EmitsTypedRecords(t *testing.T) {
	// setup
	otelLogger := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(otelLogger)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug")
	logger.InfoContext(ctx, "sqlengine operation: update completed",
		"statement_id", "users.update",
		"row_count", int64(3),
		"duration_ms", 1.25,
		"cached", true,
		"attempt", 2,
	)
	logger.WarnContext(ctx, "warn", "error", errors.New("close failed"), "dangling")
	logger.ErrorContext(ctx, "error", 42, "not a key", "bounds", struct{ Limit int }{Limit: 5})

	// assert
	require.Len(t, otelLogger.records, 4)
	assert.Equal(t, log.SeverityDebug, otelLogger.records[0].Severity())
	assert.Equal(t, log.SeverityError, otelLogger.records[3].Severity())

	info := otelLogger.records[1]
	assert.Equal(t, log.SeverityInfo, info.Severity())
	assert.Equal(t, "INFO", info.SeverityText())
	assert.Equal(t, "sqlengine operation: update completed", info.Body().AsString())
	attrs := attributesOf(info)
	assert.Equal(t, "users.update", attrs["statement_id"].AsString())
	assert.Equal(t, int64(3), attrs["row_count"].AsInt64())
	assert.InDelta(t, 1.25, attrs["duration_ms"].AsFloat64(), 0.0001)
	assert.True(t, attrs["cached"].AsBool())
	assert.Equal(t, int64(2), attrs["attempt"].AsInt64())

	warnAttrs := attributesOf(otelLogger.records[2])
	assert.Equal(t, "close failed", warnAttrs["error"].AsString())
	assert.Len(t, warnAttrs, 1)

	errorAttrs := attributesOf(otelLogger.records[3])
	assert.Len(t, errorAttrs, 1)
	assert.Equal(t, "{5}", errorAttrs["bounds"].AsString())
}

func Test_OTelLogger_WithNoopProvider(t *testing.T) {
	// setup
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))

	// act & assert
	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "message", "key1", "value1", "key2")
	})
}
