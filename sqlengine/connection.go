package sqlengine

import (
	"context"
	"time"
)

// Conn is a live connection (or transaction) statements are executed on.
type Conn interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

// BatchConn is implemented by connections that can send a queue of statements in one round trip.
type BatchConn interface {
	Conn
	ExecBatch(ctx context.Context, items []BatchItem) ([]int64, error)
}

// BatchItem is one queued statement execution.
type BatchItem struct {
	SQL  string
	Args []any
}

// Rows is an open result set.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Result is the outcome of a write execution.
type Result interface {
	RowsAffected() (int64, error)
}

// Transaction hands out the connection an Executor works on and controls its lifetime.
// With auto-commit the connection is the pool itself, otherwise a database transaction
// is started on the first call to Conn.
type Transaction interface {
	Conn(ctx context.Context) (Conn, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
	Timeout() time.Duration
}

// TransactionFactory creates a Transaction per Executor.
type TransactionFactory interface {
	NewTransaction(autoCommit bool) (Transaction, error)
}
