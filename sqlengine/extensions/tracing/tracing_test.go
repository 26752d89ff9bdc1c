package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/extensions/tracing"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
	. "github.com/AntonStoeckl/pluggable-sqlengine-go/testutil/helper" //nolint:revive
)

type spanContextKey struct{}

// spanContextCollector wraps a TracingCollectorSpy and marks the returned context with the span name.
type spanContextCollector struct {
	*TracingCollectorSpy
}

func (c spanContextCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, sqlengine.SpanContext) {
	_, span := c.TracingCollectorSpy.StartSpan(ctx, name, attrs)
	return context.WithValue(ctx, spanContextKey{}, name), span
}

// executor answers Commit only and remembers the context it was called with.
type executor struct {
	sqlengine.Executor
	seenCtx context.Context
	err     error
}

func (e *executor) Commit(ctx context.Context, _ bool) error {
	e.seenCtx = ctx
	return e.err
}

func givenTracedExecutor(t *testing.T, extension *tracing.Extension, target *executor) sqlengine.Executor {
	t.Helper()

	wrapped, err := extension.Wrap(target)
	require.NoError(t, err)

	return wrapped.(sqlengine.Executor)
}

func Test_Tracing_RecordsASpanAndPassesItsContextOn(t *testing.T) {
	// setup
	spy := NewTracingCollectorSpy(true)
	target := &executor{}
	traced := givenTracedExecutor(t, tracing.New(spanContextCollector{spy}), target)

	// act
	err := traced.Commit(context.Background(), true)

	// assert
	require.NoError(t, err)
	assert.True(t, spy.HasSpan("sqlengine.extension.executor.commit", sqlengine.SpanStatusSuccess))
	assert.Equal(t, "Executor.Commit(context.Context, bool)", spy.GetSpanRecords()[0].StartAttributes["method"])
	assert.Equal(t, "sqlengine.extension.executor.commit", target.seenCtx.Value(spanContextKey{}))
}

func Test_Tracing_MarksFailures(t *testing.T) {
	// setup
	spy := NewTracingCollectorSpy(true)
	errCommit := errors.New("serialization failure")
	traced := givenTracedExecutor(t, tracing.New(spy), &executor{err: errCommit})

	// act
	err := traced.Commit(context.Background(), true)

	// assert
	assert.ErrorIs(t, err, errCommit)
	assert.True(t, spy.HasSpan("sqlengine.extension.executor.commit", sqlengine.SpanStatusError))
	assert.Equal(t, "serialization failure", spy.GetSpanRecords()[0].EndAttributes["error"])
}

func Test_Tracing_UsesTheConfiguredPrefix(t *testing.T) {
	// setup
	spy := NewTracingCollectorSpy(true)
	extension := tracing.New(spy)
	require.NoError(t, extension.SetProperties(plugin.Properties{"span_prefix": "orders.db"}))
	traced := givenTracedExecutor(t, extension, &executor{})

	// act
	err := traced.Commit(context.Background(), false)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{"orders.db.executor.commit"}, spy.GetSpanNames())
}

func Test_Tracing_RejectsAnEmptyPrefix(t *testing.T) {
	// act
	err := tracing.New(NewTracingCollectorSpy(true)).SetProperties(plugin.Properties{"span_prefix": "  "})

	// assert
	assert.ErrorIs(t, err, plugin.ErrInvalidProperty)
}

func Test_Tracing_ToleratesCollectorsWithoutSpans(t *testing.T) {
	// setup
	traced := givenTracedExecutor(t, tracing.New(NewTracingCollectorSpy(false)), &executor{})

	// act
	err := traced.Commit(context.Background(), true)

	// assert
	assert.NoError(t, err)
}

func Test_Tracing_FactoryNeedsACollector(t *testing.T) {
	// act
	_, err := tracing.Factory(plugin.Dependencies{})
	extension, okErr := tracing.Factory(plugin.Dependencies{TracingCollector: NewTracingCollectorSpy(true)})

	// assert
	assert.ErrorIs(t, err, plugin.ErrInvalidProperty)
	require.NoError(t, okErr)
	assert.True(t, extension.Signatures().Contains(plugin.StatementHandlerQuery))
}
