package adapters

import (
	"context"
	"database/sql"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	db *sql.DB
}

// NewSQLAdapter creates a new SQL adapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Query executes a query using the sql.DB and returns wrapped rows.
func (s *SQLAdapter) Query(ctx context.Context, q string, args ...any) (sqlengine.Rows, error) {
	return query(ctx, s.db, q, args...)
}

// Exec executes a statement using the sql.DB and returns the wrapped result.
func (s *SQLAdapter) Exec(ctx context.Context, q string, args ...any) (sqlengine.Result, error) {
	return exec(ctx, s.db, q, args...)
}

// ExecBatch executes the items sequentially.
func (s *SQLAdapter) ExecBatch(ctx context.Context, items []sqlengine.BatchItem) ([]int64, error) {
	return execBatch(ctx, s.db, items)
}

// Begin starts a transaction.
func (s *SQLAdapter) Begin(ctx context.Context) (DBTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &sqlTx{tx: tx}, nil
}
