package sqlengine

import (
	"context"
	"time"
)

// Executor runs mapped statements within one transaction and owns the local cache scope.
// Bounded reads take a RowBounds, unbounded reads pass NoRowBounds.
type Executor interface {
	Update(ctx context.Context, ms *MappedStatement, parameter any) (int64, error)
	Query(ctx context.Context, ms *MappedStatement, parameter any, bounds RowBounds) ([]any, error)
	QueryCursor(ctx context.Context, ms *MappedStatement, parameter any, bounds RowBounds) (Cursor, error)
	FlushStatements(ctx context.Context) ([]BatchResult, error)
	CreateCacheKey(ms *MappedStatement, parameter any, bounds RowBounds, boundSQL BoundSQL) (CacheKey, error)
	IsCached(ms *MappedStatement, key CacheKey) (bool, error)
	ClearLocalCache() error
	Commit(ctx context.Context, required bool) error
	Rollback(ctx context.Context, required bool) error
	Close(ctx context.Context, forceRollback bool) error
}

// StatementHandler prepares one statement on a live connection, binds it and executes it.
type StatementHandler interface {
	Prepare(ctx context.Context, conn Conn, transactionTimeout time.Duration) (*Statement, error)
	Parameterize(stmt *Statement) error
	Batch(stmt *Statement) error
	Update(ctx context.Context, stmt *Statement) (int64, error)
	Query(ctx context.Context, stmt *Statement) ([]any, error)
	QueryCursor(ctx context.Context, stmt *Statement) (Cursor, error)
}

// ParameterHandler binds the caller's parameter object to a prepared statement.
type ParameterHandler interface {
	SetParameters(stmt *Statement) error
}

// ResultSetHandler maps the open result set of an executed statement.
type ResultSetHandler interface {
	HandleResultSets(stmt *Statement) ([]any, error)
	HandleCursorResultSets(stmt *Statement) (Cursor, error)
	HandleOutputParameters(stmt *Statement) error
}

// BatchResult reports the outcome of one flushed batch statement.
type BatchResult struct {
	MappedStatement  *MappedStatement
	SQL              string
	ParameterObjects []any
	UpdateCounts     []int64
}
