package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// pgxQuerier is the part of *pgxpool.Pool and pgx.Tx the adapter needs.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PGXAdapter implements DBAdapter for pgxpool.Pool.
type PGXAdapter struct {
	pool *pgxpool.Pool
}

// NewPGXAdapter creates a new PGX adapter.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

// Query executes a query using the pgx pool and returns wrapped rows.
func (p *PGXAdapter) Query(ctx context.Context, sql string, args ...any) (sqlengine.Rows, error) {
	return pgxQuery(ctx, p.pool, sql, args...)
}

// Exec executes a statement using the pgx pool and returns the wrapped result.
func (p *PGXAdapter) Exec(ctx context.Context, sql string, args ...any) (sqlengine.Result, error) {
	return pgxExec(ctx, p.pool, sql, args...)
}

// ExecBatch sends all items as one pgx.Batch.
func (p *PGXAdapter) ExecBatch(ctx context.Context, items []sqlengine.BatchItem) ([]int64, error) {
	return pgxExecBatch(ctx, p.pool, items)
}

// Begin starts a transaction.
func (p *PGXAdapter) Begin(ctx context.Context) (DBTx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &pgxTx{tx: tx}, nil
}

// pgxTx wraps pgx.Tx to implement DBTx.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Query(ctx context.Context, sql string, args ...any) (sqlengine.Rows, error) {
	return pgxQuery(ctx, t.tx, sql, args...)
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (sqlengine.Result, error) {
	return pgxExec(ctx, t.tx, sql, args...)
}

func (t *pgxTx) ExecBatch(ctx context.Context, items []sqlengine.BatchItem) ([]int64, error) {
	return pgxExecBatch(ctx, t.tx, items)
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func pgxQuery(ctx context.Context, db pgxQuerier, sql string, args ...any) (sqlengine.Rows, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

func pgxExec(ctx context.Context, db pgxQuerier, sql string, args ...any) (sqlengine.Result, error) {
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	return &pgxResult{tag: tag}, nil
}

func pgxExecBatch(ctx context.Context, db pgxQuerier, items []sqlengine.BatchItem) (counts []int64, err error) {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(item.SQL, item.Args...)
	}

	results := db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	counts = make([]int64, 0, len(items))
	for range items {
		tag, execErr := results.Exec()
		if execErr != nil {
			return counts, execErr
		}

		counts = append(counts, tag.RowsAffected())
	}

	return counts, nil
}

// pgxRows wraps pgx.Rows to implement sqlengine.Rows.
type pgxRows struct {
	rows pgx.Rows
}

// Columns returns the result column names.
func (p *pgxRows) Columns() ([]string, error) {
	fields := p.rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	return columns, nil
}

// Next advances to the next row.
func (p *pgxRows) Next() bool {
	return p.rows.Next()
}

// Scan copies row values into provided destinations.
func (p *pgxRows) Scan(dest ...any) error {
	return p.rows.Scan(dest...)
}

// Err returns the error that ended iteration, if any.
func (p *pgxRows) Err() error {
	return p.rows.Err()
}

// Close closes the rows iterator.
func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

// pgxResult wraps pgconn.CommandTag to implement sqlengine.Result.
type pgxResult struct {
	tag pgconn.CommandTag
}

// RowsAffected returns the number of rows affected by the command.
func (p *pgxResult) RowsAffected() (int64, error) {
	return p.tag.RowsAffected(), nil
}
