package postgresengine

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

const (
	metricUpdateDuration   = "sqlengine_update_duration_seconds"
	metricQueryDuration    = "sqlengine_query_duration_seconds"
	metricFlushDuration    = "sqlengine_flush_duration_seconds"
	metricCommitDuration   = "sqlengine_commit_duration_seconds"
	metricRollbackDuration = "sqlengine_rollback_duration_seconds"
	metricRowsAffected     = "sqlengine_rows_affected"
	metricRowsReturned     = "sqlengine_rows_returned"
	metricOperationErrors  = "sqlengine_operation_errors_total"
	metricLocalCacheHits   = "sqlengine_local_cache_hits_total"

	spanNameUpdate      = "sqlengine.update"
	spanNameQuery       = "sqlengine.query"
	spanNameQueryCursor = "sqlengine.query_cursor"
	spanNameFlush       = "sqlengine.flush_statements"
	spanNameCommit      = "sqlengine.commit"
	spanNameRollback    = "sqlengine.rollback"

	spanAttrOperation   = "operation"
	spanAttrStatementID = "statement_id"
	spanAttrExecutorID  = "executor_id"
	spanAttrErrorType   = "error_type"
	spanAttrRowCount    = "row_count"
	spanAttrDurationMS  = "duration_ms"

	operationUpdate      = "update"
	operationQuery       = "query"
	operationQueryCursor = "query_cursor"
	operationFlush       = "flush_statements"
	operationCommit      = "commit"
	operationRollback    = "rollback"

	statusSuccess = sqlengine.SpanStatusSuccess
	statusError   = sqlengine.SpanStatusError

	errorTypeKeyGeneration = "key_generation"
	errorTypeExecution     = "execution"
	errorTypeClosed        = "executor_closed"
	errorTypeOther         = "other"
)

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (c *Configuration) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if c.logger != nil {
		c.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (c *Configuration) logOperation(ctx context.Context, action string, args ...any) {
	if c.logger != nil {
		c.logger.Info(logMsgOperation+action, args...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarning logs non-critical issues at warn level if a logger is configured.
func (c *Configuration) logWarning(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if c.logger != nil {
		c.logger.Warn(message, allArgs...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

// logError logs error information at error level if a logger is configured.
func (c *Configuration) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if c.logger != nil {
		c.logger.Error(message, allArgs...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDurationMetricsContext records a duration with context if the collector supports it.
func (c *Configuration) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	labels map[string]string,
) {
	if c.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := c.metricsCollector.(sqlengine.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	c.metricsCollector.RecordDuration(metricName, duration, labels)
}

// recordValueMetricsContext records a value with context if the collector supports it.
func (c *Configuration) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	labels map[string]string,
) {
	if c.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := c.metricsCollector.(sqlengine.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	c.metricsCollector.RecordValue(metricName, value, labels)
}

// incrementCounterContext increments a counter with context if the collector supports it.
func (c *Configuration) incrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	if c.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := c.metricsCollector.(sqlengine.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricName, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metricName, labels)
}

// operationObserver times one executor operation and reports it to logs, metrics and traces.
type operationObserver struct {
	cfg         *Configuration
	ctx         context.Context
	operation   string
	metricName  string
	statementID string
	executorID  string
	start       time.Time
	span        sqlengine.SpanContext
}

func (c *Configuration) observe(
	ctx context.Context,
	operation, metricName, spanName, statementID, executorID string,
) (context.Context, *operationObserver) {
	o := &operationObserver{
		cfg:         c,
		operation:   operation,
		metricName:  metricName,
		statementID: statementID,
		executorID:  executorID,
		start:       time.Now(),
	}

	if c.tracingCollector != nil {
		attrs := map[string]string{
			spanAttrOperation:  operation,
			spanAttrExecutorID: executorID,
		}
		if statementID != "" {
			attrs[spanAttrStatementID] = statementID
		}

		ctx, o.span = c.tracingCollector.StartSpan(ctx, spanName, attrs)
	}

	o.ctx = ctx

	return ctx, o
}

// finish reports the outcome. rowCount < 0 means the operation has no row count.
func (o *operationObserver) finish(err error, rowCount int64) {
	duration := time.Since(o.start)
	labels := map[string]string{spanAttrOperation: o.operation}

	if err != nil {
		labels["status"] = statusError
		o.cfg.recordDurationMetricsContext(o.ctx, o.metricName, duration, labels)

		errorType := classifyError(err)
		o.cfg.incrementCounterContext(o.ctx, metricOperationErrors, map[string]string{
			spanAttrOperation: o.operation,
			spanAttrErrorType: errorType,
		})
		o.cfg.logError(o.ctx, logMsgOperationFailed, err,
			logAttrOperation, o.operation,
			logAttrStatementID, o.statementID,
			logAttrExecutorID, o.executorID,
		)
		o.finishSpan(statusError, map[string]string{
			spanAttrErrorType:  errorType,
			spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64),
		})

		return
	}

	labels["status"] = statusSuccess
	o.cfg.recordDurationMetricsContext(o.ctx, o.metricName, duration, labels)

	args := []any{
		logAttrStatementID, o.statementID,
		logAttrExecutorID, o.executorID,
		logAttrDurationMS, toMilliseconds(duration),
	}
	spanAttrs := map[string]string{spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64)}

	if rowCount >= 0 {
		args = append(args, logAttrRowCount, rowCount)
		spanAttrs[spanAttrRowCount] = strconv.FormatInt(rowCount, 10)

		metric := metricRowsReturned
		if o.operation == operationUpdate {
			metric = metricRowsAffected
		}
		o.cfg.recordValueMetricsContext(o.ctx, metric, float64(rowCount), map[string]string{spanAttrOperation: o.operation})
	}

	o.cfg.logOperation(o.ctx, o.operation+" completed", args...)
	o.finishSpan(statusSuccess, spanAttrs)
}

func (o *operationObserver) finishSpan(status string, attrs map[string]string) {
	if o.cfg.tracingCollector == nil || o.span == nil {
		return
	}

	o.span.SetStatus(status)
	o.cfg.tracingCollector.FinishSpan(o.span, status, attrs)
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, sqlengine.ErrKeyGenerationFailed):
		return errorTypeKeyGeneration
	case errors.Is(err, sqlengine.ErrExecutorClosed):
		return errorTypeClosed
	case errors.Is(err, sqlengine.ErrExecutionFailed):
		return errorTypeExecution
	default:
		return errorTypeOther
	}
}
