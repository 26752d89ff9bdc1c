package postgresengine

import (
	"context"
	"time"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/postgresengine/internal/adapters"
)

// adapterTransactions creates transactions on a database adapter.
type adapterTransactions struct {
	db      adapters.DBAdapter
	timeout time.Duration
}

func (f *adapterTransactions) NewTransaction(autoCommit bool) (sqlengine.Transaction, error) {
	if f.db == nil {
		return nil, sqlengine.ErrNilDatabaseConnection
	}

	return &adapterTransaction{db: f.db, autoCommit: autoCommit, timeout: f.timeout}, nil
}

// adapterTransaction begins the database transaction lazily on the first Conn call.
// With auto-commit every statement runs on the pool directly.
type adapterTransaction struct {
	db         adapters.DBAdapter
	tx         adapters.DBTx
	autoCommit bool
	timeout    time.Duration
}

func (t *adapterTransaction) Conn(ctx context.Context) (sqlengine.Conn, error) {
	if t.autoCommit {
		return t.db, nil
	}

	if t.tx == nil {
		tx, err := t.db.Begin(ctx)
		if err != nil {
			return nil, err
		}
		t.tx = tx
	}

	return t.tx, nil
}

func (t *adapterTransaction) Commit(ctx context.Context) error {
	if t.tx == nil {
		return nil
	}

	tx := t.tx
	t.tx = nil

	return tx.Commit(ctx)
}

func (t *adapterTransaction) Rollback(ctx context.Context) error {
	if t.tx == nil {
		return nil
	}

	tx := t.tx
	t.tx = nil

	return tx.Rollback(ctx)
}

func (t *adapterTransaction) Close(ctx context.Context) error {
	return t.Rollback(ctx)
}

func (t *adapterTransaction) Timeout() time.Duration {
	return t.timeout
}
