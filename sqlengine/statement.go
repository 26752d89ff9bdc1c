package sqlengine

import (
	"context"
	"errors"
	"slices"
	"time"
)

// Statement is a prepared statement bound to a live connection.
// It is owned by the goroutine that prepared it and must be closed after use,
// which also invalidates any cursor reading its result set.
type Statement struct {
	conn                Conn
	sql                 string
	args                []any
	timeout             time.Duration
	batch               []BatchItem
	rows                Rows
	cancel              context.CancelFunc
	rowsAffected        int64
	generatedKeyColumns []string
	generatedKeys       [][]any
	closed              bool
}

// NewStatement binds sql to conn. A zero timeout means no statement timeout.
func NewStatement(conn Conn, sql string, timeout time.Duration) *Statement {
	return &Statement{
		conn:    conn,
		sql:     sql,
		timeout: timeout,
	}
}

// Conn returns the connection the statement is bound to.
func (s *Statement) Conn() Conn {
	return s.conn
}

// SQL returns the statement text.
func (s *Statement) SQL() string {
	return s.sql
}

// SetSQL replaces the statement text, e.g. to rewrite it in an extension.
func (s *Statement) SetSQL(sql string) {
	s.sql = sql
}

// Args returns a copy of the bound arguments.
func (s *Statement) Args() []any {
	return slices.Clone(s.args)
}

// SetArgs binds the positional arguments.
func (s *Statement) SetArgs(args ...any) {
	s.args = args
}

// Timeout returns the statement timeout.
func (s *Statement) Timeout() time.Duration {
	return s.timeout
}

// SetTimeout changes the statement timeout.
func (s *Statement) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// Execute runs the statement as a write and returns the number of affected rows.
func (s *Statement) Execute(ctx context.Context) (int64, error) {
	if s.closed {
		return 0, ErrStatementClosed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.conn.Exec(ctx, s.sql, s.args...)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	s.rowsAffected = rowsAffected

	return rowsAffected, nil
}

// ExecuteWithGeneratedKeys runs a write that returns its generated keys as a result set,
// e.g. an INSERT with a RETURNING clause. Every returned row counts as one affected row.
func (s *Statement) ExecuteWithGeneratedKeys(ctx context.Context, sql string) (int64, error) {
	if s.closed {
		return 0, ErrStatementClosed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, sql, s.args...)
	if err != nil {
		return 0, err
	}

	columns, keys, err := readAll(rows)
	if err != nil {
		return 0, err
	}

	s.generatedKeyColumns = columns
	s.generatedKeys = keys
	s.rowsAffected = int64(len(keys))

	return s.rowsAffected, nil
}

// ExecuteQuery runs the statement as a read and keeps its result set open until Close.
func (s *Statement) ExecuteQuery(ctx context.Context) error {
	if s.closed {
		return ErrStatementClosed
	}

	ctx, cancel := s.withTimeout(ctx)

	rows, err := s.conn.Query(ctx, s.sql, s.args...)
	if err != nil {
		cancel()
		return err
	}

	s.rows = rows
	s.cancel = cancel

	return nil
}

// ResultRows returns the open result set of the last ExecuteQuery.
func (s *Statement) ResultRows() (Rows, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}

	if s.rows == nil {
		return nil, ErrNoResultSet
	}

	return s.rows, nil
}

// GeneratedKeys returns the key columns and one row of key values per written row.
func (s *Statement) GeneratedKeys() ([]string, [][]any) {
	return s.generatedKeyColumns, s.generatedKeys
}

// RowsAffected returns the row count of the last write.
func (s *Statement) RowsAffected() int64 {
	return s.rowsAffected
}

// AddBatch queues the statement with its currently bound arguments.
func (s *Statement) AddBatch() {
	s.batch = append(s.batch, BatchItem{SQL: s.sql, Args: s.Args()})
}

// BatchSize returns the number of queued executions.
func (s *Statement) BatchSize() int {
	return len(s.batch)
}

// ExecuteBatch sends all queued executions and returns one update count per execution.
func (s *Statement) ExecuteBatch(ctx context.Context) ([]int64, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}

	items := s.batch
	s.batch = nil

	if len(items) == 0 {
		return []int64{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if batchConn, ok := s.conn.(BatchConn); ok {
		return batchConn.ExecBatch(ctx, items)
	}

	counts := make([]int64, 0, len(items))
	for _, item := range items {
		result, err := s.conn.Exec(ctx, item.SQL, item.Args...)
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

// Close releases the open result set. Closing twice is a no-op.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	s.batch = nil

	var err error
	if s.rows != nil {
		err = s.rows.Close()
		s.rows = nil
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	return err
}

// IsClosed reports whether Close was called.
func (s *Statement) IsClosed() bool {
	return s.closed
}

func (s *Statement) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}

	return context.WithCancel(ctx)
}

// readAll drains and closes rows, scanning every column into an untyped value.
func readAll(rows Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Join(err, rows.Close())
	}

	values := make([][]any, 0)
	for rows.Next() {
		row := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range row {
			dest[i] = &row[i]
		}

		if err = rows.Scan(dest...); err != nil {
			return nil, nil, errors.Join(err, rows.Close())
		}

		values = append(values, row)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, errors.Join(err, rows.Close())
	}

	if err = rows.Close(); err != nil {
		return nil, nil, err
	}

	return columns, values, nil
}
