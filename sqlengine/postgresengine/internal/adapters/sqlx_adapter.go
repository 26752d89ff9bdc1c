package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Query executes a query using the sqlx.DB and returns wrapped rows.
func (s *SQLXAdapter) Query(ctx context.Context, q string, args ...any) (sqlengine.Rows, error) {
	rows, err := s.db.QueryxContext(ctx, q, arrayArgs(args)...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows.Rows}, nil
}

// Exec executes a statement using the sqlx.DB and returns the wrapped result.
func (s *SQLXAdapter) Exec(ctx context.Context, q string, args ...any) (sqlengine.Result, error) {
	return exec(ctx, s.db, q, args...)
}

// ExecBatch executes the items sequentially.
func (s *SQLXAdapter) ExecBatch(ctx context.Context, items []sqlengine.BatchItem) ([]int64, error) {
	return execBatch(ctx, s.db, items)
}

// Begin starts a transaction.
func (s *SQLXAdapter) Begin(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &sqlxTx{tx: tx}, nil
}

// sqlxTx wraps *sqlx.Tx to implement DBTx.
type sqlxTx struct {
	tx *sqlx.Tx
}

func (t *sqlxTx) Query(ctx context.Context, q string, args ...any) (sqlengine.Rows, error) {
	rows, err := t.tx.QueryxContext(ctx, q, arrayArgs(args)...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows.Rows}, nil
}

func (t *sqlxTx) Exec(ctx context.Context, q string, args ...any) (sqlengine.Result, error) {
	return exec(ctx, t.tx, q, args...)
}

func (t *sqlxTx) ExecBatch(ctx context.Context, items []sqlengine.BatchItem) ([]int64, error) {
	return execBatch(ctx, t.tx, items)
}

func (t *sqlxTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *sqlxTx) Rollback(context.Context) error {
	return t.tx.Rollback()
}
