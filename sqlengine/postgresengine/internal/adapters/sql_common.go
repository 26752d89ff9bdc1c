package adapters

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"reflect"

	"github.com/lib/pq"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// stdRows wraps standard library sql.Rows to implement sqlengine.Rows.
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Columns() ([]string, error) {
	return s.rows.Columns()
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement sqlengine.Result.
type stdResult struct {
	result sql.Result
}

func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}

// sqlExecer is the part of *sql.DB and *sql.Tx the adapters need.
type sqlExecer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func query(ctx context.Context, db sqlExecer, query string, args ...any) (sqlengine.Rows, error) {
	rows, err := db.QueryContext(ctx, query, arrayArgs(args)...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func exec(ctx context.Context, db sqlExecer, query string, args ...any) (sqlengine.Result, error) {
	result, err := db.ExecContext(ctx, query, arrayArgs(args)...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// execBatch runs the items one after another, database/sql has no pipelining.
func execBatch(ctx context.Context, db sqlExecer, items []sqlengine.BatchItem) ([]int64, error) {
	counts := make([]int64, 0, len(items))

	for _, item := range items {
		result, err := db.ExecContext(ctx, item.SQL, arrayArgs(item.Args)...)
		if err != nil {
			return counts, err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return counts, err
		}

		counts = append(counts, rowsAffected)
	}

	return counts, nil
}

// arrayArgs wraps slice arguments in pq.Array, database/sql only converts scalars.
// []byte stays a bytea value and driver.Valuer implementations convert themselves.
func arrayArgs(args []any) []any {
	var wrapped []any

	for i, arg := range args {
		if !isArrayArg(arg) {
			continue
		}

		if wrapped == nil {
			wrapped = make([]any, len(args))
			copy(wrapped, args)
		}

		wrapped[i] = pq.Array(arg)
	}

	if wrapped == nil {
		return args
	}

	return wrapped
}

func isArrayArg(arg any) bool {
	if arg == nil {
		return false
	}

	if _, ok := arg.(driver.Valuer); ok {
		return false
	}

	if _, ok := arg.([]byte); ok {
		return false
	}

	return reflect.TypeOf(arg).Kind() == reflect.Slice
}

// sqlTx wraps *sql.Tx to implement DBTx.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Query(ctx context.Context, q string, args ...any) (sqlengine.Rows, error) {
	return query(ctx, t.tx, q, args...)
}

func (t *sqlTx) Exec(ctx context.Context, q string, args ...any) (sqlengine.Result, error) {
	return exec(ctx, t.tx, q, args...)
}

func (t *sqlTx) ExecBatch(ctx context.Context, items []sqlengine.BatchItem) ([]int64, error) {
	return execBatch(ctx, t.tx, items)
}

func (t *sqlTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(context.Context) error {
	return t.tx.Rollback()
}
