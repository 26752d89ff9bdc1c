package adapters

import (
	"context"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// DBAdapter defines the pooled connection operations needed by the engine.
type DBAdapter interface {
	sqlengine.BatchConn
	Begin(ctx context.Context) (DBTx, error)
}

// DBTx defines an open database transaction.
type DBTx interface {
	sqlengine.BatchConn
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
