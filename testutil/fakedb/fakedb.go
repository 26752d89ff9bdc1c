// Package fakedb provides a scripted, in-memory execution target for engine tests.
// Statements are matched against stubs by SQL substring; every execution is recorded.
package fakedb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

var ErrNoStub = errors.New("fakedb: no query stub matches")
var ErrRowsClosed = errors.New("fakedb: rows are closed")

// Call kinds.
const (
	CallExec  = "exec"
	CallQuery = "query"
	CallBatch = "batch"
)

// DefaultRowsAffected is reported for writes without a matching stub.
const DefaultRowsAffected int64 = 1

// Call is one recorded execution. TxID is 0 for auto-commit executions.
type Call struct {
	Kind string
	SQL  string
	Args []any
	TxID int
}

type stub struct {
	contains     string
	columns      []string
	rows         [][]any
	rowsAffected int64
	err          error
	remaining    int
	query        bool
}

// DB is the scripted database. It implements sqlengine.TransactionFactory.
type DB struct {
	mu                sync.Mutex
	stubs             []*stub
	calls             []Call
	events            []string
	nextTxID          int
	openRows          int
	openTxs           int
	txTimeout         time.Duration
	newTransactionErr error
}

// New creates an empty DB.
func New() *DB {
	return &DB{calls: make([]Call, 0), events: make([]string, 0)}
}

// StubExec makes writes containing sqlContains report rowsAffected.
func (db *DB) StubExec(sqlContains string, rowsAffected int64) {
	db.addStub(&stub{contains: sqlContains, rowsAffected: rowsAffected})
}

// StubExecError makes writes containing sqlContains fail with err.
func (db *DB) StubExecError(sqlContains string, err error) {
	db.addStub(&stub{contains: sqlContains, err: err})
}

// StubQuery makes reads containing sqlContains return rows.
func (db *DB) StubQuery(sqlContains string, columns []string, rows ...[]any) {
	db.addStub(&stub{contains: sqlContains, columns: columns, rows: rows, query: true})
}

// StubQueryOnce is StubQuery for the next matching read only.
func (db *DB) StubQueryOnce(sqlContains string, columns []string, rows ...[]any) {
	db.addStub(&stub{contains: sqlContains, columns: columns, rows: rows, query: true, remaining: 1})
}

// StubQueryError makes reads containing sqlContains fail with err.
func (db *DB) StubQueryError(sqlContains string, err error) {
	db.addStub(&stub{contains: sqlContains, err: err, query: true})
}

// FailNewTransaction makes NewTransaction fail with err.
func (db *DB) FailNewTransaction(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.newTransactionErr = err
}

// SetTransactionTimeout sets the timeout reported by new transactions.
func (db *DB) SetTransactionTimeout(timeout time.Duration) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.txTimeout = timeout
}

// Calls returns a copy of all recorded executions.
func (db *DB) Calls() []Call {
	db.mu.Lock()
	defer db.mu.Unlock()

	return slices.Clone(db.calls)
}

// CallsOfKind returns the recorded executions of kind.
func (db *DB) CallsOfKind(kind string) []Call {
	calls := make([]Call, 0)
	for _, call := range db.Calls() {
		if call.Kind == kind {
			calls = append(calls, call)
		}
	}

	return calls
}

// Events returns the recorded executions and transaction boundaries as "kind: sql", "begin", "commit" or "rollback".
func (db *DB) Events() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	return slices.Clone(db.events)
}

// OpenRows returns the number of result sets not closed yet.
func (db *DB) OpenRows() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.openRows
}

// OpenTransactions returns the number of begun database transactions not finished yet.
func (db *DB) OpenTransactions() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.openTxs
}

// Reset forgets calls and events, stubs are kept.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.calls = make([]Call, 0)
	db.events = make([]string, 0)
}

// Conn returns an auto-commit connection.
func (db *DB) Conn() sqlengine.BatchConn {
	return &conn{db: db}
}

// NewTransaction implements sqlengine.TransactionFactory.
func (db *DB) NewTransaction(autoCommit bool) (sqlengine.Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.newTransactionErr != nil {
		return nil, db.newTransactionErr
	}

	return &Tx{db: db, autoCommit: autoCommit, timeout: db.txTimeout}, nil
}

func (db *DB) addStub(s *stub) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stubs = append(db.stubs, s)
}

// match returns the most recently registered stub matching sql. Exhausted one-shot stubs are skipped.
func (db *DB) match(sql string, query bool) *stub {
	for i := len(db.stubs) - 1; i >= 0; i-- {
		s := db.stubs[i]
		if s.query != query || s.remaining < 0 || !strings.Contains(sql, s.contains) {
			continue
		}

		if s.remaining == 1 {
			s.remaining = -1
		}

		return s
	}

	return nil
}

func (db *DB) record(kind, sql string, args []any, txID int) {
	db.calls = append(db.calls, Call{Kind: kind, SQL: sql, Args: slices.Clone(args), TxID: txID})
	db.events = append(db.events, kind+": "+sql)
}

func (db *DB) exec(ctx context.Context, kind, sql string, args []any, txID int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.record(kind, sql, args, txID)

	s := db.match(sql, false)
	if s == nil {
		return DefaultRowsAffected, nil
	}

	if s.err != nil {
		return 0, s.err
	}

	return s.rowsAffected, nil
}

func (db *DB) query(ctx context.Context, sql string, args []any, txID int) (sqlengine.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.record(CallQuery, sql, args, txID)

	s := db.match(sql, true)
	if s == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoStub, sql)
	}

	if s.err != nil {
		return nil, s.err
	}

	db.openRows++

	return &Rows{db: db, columns: slices.Clone(s.columns), values: s.rows, index: -1}, nil
}

type conn struct {
	db   *DB
	txID int
}

func (c *conn) Query(ctx context.Context, query string, args ...any) (sqlengine.Rows, error) {
	return c.db.query(ctx, query, args, c.txID)
}

func (c *conn) Exec(ctx context.Context, query string, args ...any) (sqlengine.Result, error) {
	rowsAffected, err := c.db.exec(ctx, CallExec, query, args, c.txID)
	if err != nil {
		return nil, err
	}

	return result(rowsAffected), nil
}

func (c *conn) ExecBatch(ctx context.Context, items []sqlengine.BatchItem) ([]int64, error) {
	counts := make([]int64, 0, len(items))

	for _, item := range items {
		rowsAffected, err := c.db.exec(ctx, CallBatch, item.SQL, item.Args, c.txID)
		if err != nil {
			return counts, err
		}

		counts = append(counts, rowsAffected)
	}

	return counts, nil
}

type result int64

func (r result) RowsAffected() (int64, error) {
	return int64(r), nil
}

// Rows is a scripted result set.
type Rows struct {
	db      *DB
	columns []string
	values  [][]any
	index   int
	closed  bool
}

func (r *Rows) Columns() ([]string, error) {
	return r.columns, nil
}

func (r *Rows) Next() bool {
	if r.closed || r.index+1 >= len(r.values) {
		return false
	}

	r.index++

	return true
}

// Scan assigns the current row to dest, converting numeric kinds where Go allows.
func (r *Rows) Scan(dest ...any) error {
	if r.closed {
		return ErrRowsClosed
	}

	if r.index < 0 || r.index >= len(r.values) {
		return errors.New("fakedb: scan without current row")
	}

	row := r.values[r.index]
	if len(dest) != len(row) {
		return fmt.Errorf("fakedb: %d destinations for %d columns", len(dest), len(row))
	}

	for i, value := range row {
		if err := assign(dest[i], value); err != nil {
			return fmt.Errorf("fakedb: column %q: %w", r.columns[i], err)
		}
	}

	return nil
}

func (r *Rows) Err() error {
	return nil
}

func (r *Rows) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.openRows--

	return nil
}

func assign(dest, value any) error {
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("destination %T is not a pointer", dest)
	}

	target = target.Elem()
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	source := reflect.ValueOf(value)
	switch {
	case source.Type().AssignableTo(target.Type()):
		target.Set(source)
	case source.Type().ConvertibleTo(target.Type()):
		target.Set(source.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}

	return nil
}

// Tx is a scripted transaction. The database transaction begins on the first Conn call unless auto-commit is set.
type Tx struct {
	db         *DB
	id         int
	autoCommit bool
	timeout    time.Duration
}

func (t *Tx) Conn(ctx context.Context) (sqlengine.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.autoCommit {
		return &conn{db: t.db}, nil
	}

	if t.id == 0 {
		t.db.mu.Lock()
		t.db.nextTxID++
		t.id = t.db.nextTxID
		t.db.openTxs++
		t.db.events = append(t.db.events, "begin")
		t.db.mu.Unlock()
	}

	return &conn{db: t.db, txID: t.id}, nil
}

func (t *Tx) Commit(context.Context) error {
	if t.id == 0 {
		return nil
	}

	t.finish("commit")

	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.id == 0 {
		return nil
	}

	t.finish("rollback")

	return nil
}

func (t *Tx) Close(ctx context.Context) error {
	return t.Rollback(ctx)
}

func (t *Tx) Timeout() time.Duration {
	return t.timeout
}

func (t *Tx) finish(event string) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.events = append(t.db.events, event)
	t.db.openTxs--
	t.id = 0
}
