package postgresengine

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// BatchUpdateReturnValue is returned by Update on a batch executor for queued writes.
// The real update counts are reported by FlushStatements.
const BatchUpdateReturnValue int64 = math.MinInt32 + 1002

var ErrPrepareReturnedNoStatement = errors.New("prepare returned no statement")

// executor is the simple and batch Executor. It is owned by one goroutine.
type executor struct {
	id         string
	cfg        *Configuration
	tx         sqlengine.Transaction
	batchMode  bool
	localCache sqlengine.Cache
	queryStack int
	closed     bool
	cursors    []*statementCursor

	batchStatements []*sqlengine.Statement
	batchResults    []sqlengine.BatchResult
	flushedResults  []sqlengine.BatchResult
	currentSQL      string
	currentMS       *sqlengine.MappedStatement
}

func newExecutor(cfg *Configuration, tx sqlengine.Transaction) *executor {
	id := uuid.NewString()

	return &executor{
		id:         id,
		cfg:        cfg,
		tx:         tx,
		batchMode:  cfg.executorType == ExecutorBatch,
		localCache: cfg.cacheFactory(id),
	}
}

func (e *executor) Update(ctx context.Context, ms *sqlengine.MappedStatement, parameter any) (int64, error) {
	if e.closed {
		return 0, sqlengine.ErrExecutorClosed
	}

	ctx, observer := e.cfg.observe(ctx, operationUpdate, metricUpdateDuration, spanNameUpdate, ms.ID, e.id)

	if err := e.ClearLocalCache(); err != nil {
		observer.finish(err, -1)
		return 0, err
	}

	var (
		rowsAffected int64
		err          error
	)

	if e.batchMode && ms.KeyGenerator == nil {
		rowsAffected, err = e.doBatchUpdate(ctx, ms, parameter)
		observer.finish(err, -1)

		return rowsAffected, err
	}

	if e.batchMode {
		if err = e.flushPendingBatch(ctx); err != nil {
			observer.finish(err, -1)
			return 0, err
		}
	}

	rowsAffected, err = e.doUpdate(ctx, ms, parameter)
	observer.finish(err, rowsAffected)

	return rowsAffected, err
}

func (e *executor) Query(
	ctx context.Context,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) ([]any, error) {
	if e.closed {
		return nil, sqlengine.ErrExecutorClosed
	}

	ctx, observer := e.cfg.observe(ctx, operationQuery, metricQueryDuration, spanNameQuery, ms.ID, e.id)

	results, err := e.query(ctx, ms, parameter, bounds)
	observer.finish(err, int64(len(results)))

	return results, err
}

func (e *executor) query(
	ctx context.Context,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) ([]any, error) {
	boundSQL := ms.BoundSQL(parameter)

	key, err := e.CreateCacheKey(ms, parameter, bounds, boundSQL)
	if err != nil {
		return nil, err
	}

	if e.queryStack == 0 && ms.FlushCache {
		if err = e.ClearLocalCache(); err != nil {
			return nil, err
		}
	}

	if ms.UseCache {
		cached, found, err := e.localCache.Get(key)
		if err != nil {
			return nil, err
		}

		if found {
			e.cfg.incrementCounterContext(ctx, metricLocalCacheHits, map[string]string{spanAttrStatementID: ms.ID})
			return slices.Clone(cached), nil
		}
	}

	if e.batchMode {
		if err = e.flushPendingBatch(ctx); err != nil {
			return nil, err
		}
	}

	e.queryStack++
	results, err := e.doQuery(ctx, ms, parameter, bounds)
	e.queryStack--

	if err != nil {
		return nil, err
	}

	if ms.UseCache {
		if err = e.localCache.Put(key, slices.Clone(results)); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (e *executor) QueryCursor(
	ctx context.Context,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) (sqlengine.Cursor, error) {
	if e.closed {
		return nil, sqlengine.ErrExecutorClosed
	}

	ctx, observer := e.cfg.observe(ctx, operationQueryCursor, metricQueryDuration, spanNameQueryCursor, ms.ID, e.id)

	cursor, err := e.queryCursor(ctx, ms, parameter, bounds)
	observer.finish(err, -1)

	return cursor, err
}

func (e *executor) queryCursor(
	ctx context.Context,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) (sqlengine.Cursor, error) {
	if e.batchMode {
		if err := e.flushPendingBatch(ctx); err != nil {
			return nil, err
		}
	}

	handler, err := e.cfg.NewStatementHandler(e, ms, parameter, bounds)
	if err != nil {
		return nil, err
	}

	stmt, err := e.prepareStatement(ctx, handler)
	if err != nil {
		return nil, err
	}

	cursor, err := handler.QueryCursor(ctx, stmt)
	if err != nil {
		e.closeStatement(ctx, stmt)
		return nil, err
	}

	// closed cursors are forgotten so long sessions do not accumulate them
	e.cursors = slices.DeleteFunc(e.cursors, (*statementCursor).isClosed)

	wrapped := &statementCursor{Cursor: cursor, stmt: stmt}
	e.cursors = append(e.cursors, wrapped)

	return wrapped, nil
}

func (e *executor) FlushStatements(ctx context.Context) ([]sqlengine.BatchResult, error) {
	if e.closed {
		return nil, sqlengine.ErrExecutorClosed
	}

	ctx, observer := e.cfg.observe(ctx, operationFlush, metricFlushDuration, spanNameFlush, "", e.id)

	results, err := e.flush(ctx, false)
	observer.finish(err, int64(len(results)))

	return results, err
}

func (e *executor) CreateCacheKey(
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
	boundSQL sqlengine.BoundSQL,
) (sqlengine.CacheKey, error) {
	if e.closed {
		return sqlengine.CacheKey{}, sqlengine.ErrExecutorClosed
	}

	builder := sqlengine.NewCacheKeyBuilder(ms.ID).
		Update(bounds.Offset).
		Update(bounds.Limit).
		Update(boundSQL.SQL)

	args, err := bindArgs(boundSQL)
	if err != nil {
		return sqlengine.CacheKey{}, errors.Join(sqlengine.ErrBindingParametersFailed, err)
	}

	for _, arg := range args {
		builder.Update(arg)
	}

	return builder.Build(), nil
}

func (e *executor) IsCached(_ *sqlengine.MappedStatement, key sqlengine.CacheKey) (bool, error) {
	if e.closed {
		return false, sqlengine.ErrExecutorClosed
	}

	_, found, err := e.localCache.Get(key)

	return found, err
}

func (e *executor) ClearLocalCache() error {
	if e.closed {
		return nil
	}

	return e.localCache.Clear()
}

func (e *executor) Commit(ctx context.Context, required bool) error {
	if e.closed {
		return sqlengine.ErrExecutorClosed
	}

	ctx, observer := e.cfg.observe(ctx, operationCommit, metricCommitDuration, spanNameCommit, "", e.id)

	err := e.ClearLocalCache()
	if err == nil {
		_, err = e.flush(ctx, false)
	}

	if err == nil && required {
		if err = e.tx.Commit(ctx); err != nil {
			err = errors.Join(sqlengine.ErrExecutionFailed, err)
		}
	}

	observer.finish(err, -1)

	return err
}

func (e *executor) Rollback(ctx context.Context, required bool) error {
	if e.closed {
		return nil
	}

	ctx, observer := e.cfg.observe(ctx, operationRollback, metricRollbackDuration, spanNameRollback, "", e.id)

	err := e.ClearLocalCache()

	_, flushErr := e.flush(ctx, true)
	err = multierr.Append(err, flushErr)

	if required {
		if rollbackErr := e.tx.Rollback(ctx); rollbackErr != nil {
			err = multierr.Append(err, errors.Join(sqlengine.ErrExecutionFailed, rollbackErr))
		}
	}

	observer.finish(err, -1)

	return err
}

func (e *executor) Close(ctx context.Context, forceRollback bool) error {
	if e.closed {
		return nil
	}

	err := e.Rollback(ctx, forceRollback)

	for _, cursor := range e.cursors {
		if closeErr := cursor.Close(); closeErr != nil {
			e.cfg.logWarning(ctx, logMsgCloseCursorFailed, closeErr, logAttrExecutorID, e.id)
			err = multierr.Append(err, closeErr)
		}
	}

	err = multierr.Append(err, e.tx.Close(ctx))

	e.cursors = nil
	e.closed = true
	e.localCache = nil

	if e.cfg.logger != nil {
		e.cfg.logger.Debug(logMsgExecutorClosed, logAttrExecutorID, e.id)
	}

	return err
}

func (e *executor) doUpdate(ctx context.Context, ms *sqlengine.MappedStatement, parameter any) (int64, error) {
	handler, err := e.cfg.NewStatementHandler(e, ms, parameter, sqlengine.NoRowBounds)
	if err != nil {
		return 0, err
	}

	stmt, err := e.prepareStatement(ctx, handler)
	if err != nil {
		return 0, err
	}
	defer e.closeStatement(ctx, stmt)

	return handler.Update(ctx, stmt)
}

func (e *executor) doQuery(
	ctx context.Context,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) ([]any, error) {
	handler, err := e.cfg.NewStatementHandler(e, ms, parameter, bounds)
	if err != nil {
		return nil, err
	}

	stmt, err := e.prepareStatement(ctx, handler)
	if err != nil {
		return nil, err
	}
	defer e.closeStatement(ctx, stmt)

	return handler.Query(ctx, stmt)
}

// doBatchUpdate queues the write. Consecutive writes of the same statement share one prepared statement.
func (e *executor) doBatchUpdate(ctx context.Context, ms *sqlengine.MappedStatement, parameter any) (int64, error) {
	handler, err := e.cfg.NewStatementHandler(e, ms, parameter, sqlengine.NoRowBounds)
	if err != nil {
		return 0, err
	}

	boundSQL := ms.BoundSQL(parameter)
	last := len(e.batchStatements) - 1

	var stmt *sqlengine.Statement
	if last >= 0 && e.currentMS == ms && e.currentSQL == boundSQL.SQL {
		stmt = e.batchStatements[last]
		if err = handler.Parameterize(stmt); err != nil {
			return 0, err
		}

		e.batchResults[last].ParameterObjects = append(e.batchResults[last].ParameterObjects, parameter)
	} else {
		stmt, err = e.prepareStatement(ctx, handler)
		if err != nil {
			return 0, err
		}

		e.currentMS = ms
		e.currentSQL = boundSQL.SQL
		e.batchStatements = append(e.batchStatements, stmt)
		e.batchResults = append(e.batchResults, sqlengine.BatchResult{
			MappedStatement:  ms,
			SQL:              boundSQL.SQL,
			ParameterObjects: []any{parameter},
		})
	}

	if err = handler.Batch(stmt); err != nil {
		return 0, err
	}

	return BatchUpdateReturnValue, nil
}

// flushPendingBatch executes queued writes before an immediate statement and keeps
// their results for the next FlushStatements.
func (e *executor) flushPendingBatch(ctx context.Context) error {
	if len(e.batchStatements) == 0 {
		return nil
	}

	pending := len(e.batchStatements)

	results, err := e.flush(ctx, false)
	if err != nil {
		return err
	}

	e.flushedResults = append(e.flushedResults, results...)

	if e.cfg.logger != nil {
		e.cfg.logger.Debug(logMsgImplicitFlush, logAttrExecutorID, e.id, logAttrBatchCount, pending)
	}

	return nil
}

// flush executes (or with rollback discards) all queued writes and resets the batch state.
func (e *executor) flush(ctx context.Context, rollback bool) ([]sqlengine.BatchResult, error) {
	statements := e.batchStatements
	pending := e.batchResults
	results := e.flushedResults

	e.batchStatements = nil
	e.batchResults = nil
	e.flushedResults = nil
	e.currentSQL = ""
	e.currentMS = nil

	defer func() {
		for _, stmt := range statements {
			e.closeStatement(ctx, stmt)
		}
	}()

	if rollback {
		return []sqlengine.BatchResult{}, nil
	}

	if results == nil {
		results = make([]sqlengine.BatchResult, 0, len(pending))
	}

	for i, stmt := range statements {
		counts, err := stmt.ExecuteBatch(ctx)
		if err != nil {
			e.cfg.logError(ctx, logMsgDBExecFailed, err, logAttrStatementID, pending[i].MappedStatement.ID)
			return results, errors.Join(sqlengine.ErrExecutionFailed, err)
		}

		result := pending[i]
		result.UpdateCounts = counts
		results = append(results, result)
	}

	return results, nil
}

func (e *executor) prepareStatement(ctx context.Context, handler sqlengine.StatementHandler) (*sqlengine.Statement, error) {
	conn, err := e.tx.Conn(ctx)
	if err != nil {
		return nil, errors.Join(sqlengine.ErrExecutionFailed, err)
	}

	stmt, err := handler.Prepare(ctx, conn, e.tx.Timeout())
	if err != nil {
		return nil, err
	}

	if stmt == nil {
		return nil, errors.Join(sqlengine.ErrExecutionFailed, ErrPrepareReturnedNoStatement)
	}

	if err = handler.Parameterize(stmt); err != nil {
		e.closeStatement(ctx, stmt)
		return nil, err
	}

	return stmt, nil
}

func (e *executor) closeStatement(ctx context.Context, stmt *sqlengine.Statement) {
	if err := stmt.Close(); err != nil {
		e.cfg.logWarning(ctx, logMsgCloseStatementFailed, err, logAttrExecutorID, e.id)
	}
}

// statementCursor closes the statement that owns the result set together with the cursor.
type statementCursor struct {
	sqlengine.Cursor
	stmt   *sqlengine.Statement
	closed bool
}

func (c *statementCursor) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true

	return multierr.Append(c.Cursor.Close(), c.stmt.Close())
}

func (c *statementCursor) isClosed() bool {
	return c.closed
}
