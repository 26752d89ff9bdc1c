package oteladapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/oteladapters"
)

func givenMetricsCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not found", "%s", name)

	return metricdata.Metrics{}
}

func Test_MetricsCollector_RecordDurationInSeconds(t *testing.T) {
	// setup
	collector, reader := givenMetricsCollector()

	// act
	collector.RecordDuration("sqlengine_query_duration_seconds", 150*time.Millisecond, map[string]string{
		"operation": "query",
		"status":    "success",
	})

	// assert
	m := collectMetric(t, reader, "sqlengine_query_duration_seconds")
	histogram, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(1), histogram.DataPoints[0].Count)
	assert.InDelta(t, 0.15, histogram.DataPoints[0].Sum, 0.001)
	assert.Equal(t, "s", m.Unit)

	expectedAttrs := attribute.NewSet(attribute.String("operation", "query"), attribute.String("status", "success"))
	assert.True(t, histogram.DataPoints[0].Attributes.Equals(&expectedAttrs))
}

func Test_MetricsCollector_IncrementCounterReusesTheInstrument(t *testing.T) {
	// setup
	collector, reader := givenMetricsCollector()
	labels := map[string]string{"operation": "update", "error_type": "execution"}

	// act
	collector.IncrementCounter("sqlengine_operation_errors_total", labels)
	collector.IncrementCounterContext(context.Background(), "sqlengine_operation_errors_total", labels)
	collector.IncrementCounter("sqlengine_operation_errors_total", nil)

	// assert
	sum, ok := collectMetric(t, reader, "sqlengine_operation_errors_total").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	total := int64(0)
	for _, point := range sum.DataPoints {
		total += point.Value
	}
	assert.Equal(t, int64(3), total)
}

func Test_MetricsCollector_RecordValueKeepsTheLastValue(t *testing.T) {
	// setup
	collector, reader := givenMetricsCollector()
	labels := map[string]string{"operation": "query"}

	// act
	collector.RecordValue("sqlengine_rows_returned", 7, labels)
	collector.RecordValueContext(context.Background(), "sqlengine_rows_returned", 3, labels)

	// assert
	gauge, ok := collectMetric(t, reader, "sqlengine_rows_returned").Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 3.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_RejectedInstrumentsAreSkipped(t *testing.T) {
	// setup
	collector, reader := givenMetricsCollector()

	// act
	assert.NotPanics(t, func() {
		collector.RecordDuration("invalid metric name!", time.Second, nil)
		collector.IncrementCounter("", nil)
	})

	// assert
	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))
}
