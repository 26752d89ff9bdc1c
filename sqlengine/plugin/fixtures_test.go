package plugin_test

import (
	"context"
	"time"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

// executorStub records calls into a shared log and returns scripted results.
type executorStub struct {
	log          *[]string
	updateResult int64
	updateErr    error
	lastParam    any
	updateCalls  int
}

func (e *executorStub) Update(_ context.Context, _ *sqlengine.MappedStatement, parameter any) (int64, error) {
	e.updateCalls++
	e.lastParam = parameter
	if e.log != nil {
		*e.log = append(*e.log, "target")
	}

	return e.updateResult, e.updateErr
}

func (e *executorStub) Query(context.Context, *sqlengine.MappedStatement, any, sqlengine.RowBounds) ([]any, error) {
	return []any{"row"}, nil
}

func (e *executorStub) QueryCursor(context.Context, *sqlengine.MappedStatement, any, sqlengine.RowBounds) (sqlengine.Cursor, error) {
	return nil, nil
}

func (e *executorStub) FlushStatements(context.Context) ([]sqlengine.BatchResult, error) {
	return []sqlengine.BatchResult{}, nil
}

func (e *executorStub) CreateCacheKey(ms *sqlengine.MappedStatement, _ any, _ sqlengine.RowBounds, _ sqlengine.BoundSQL) (sqlengine.CacheKey, error) {
	return sqlengine.NewCacheKeyBuilder(ms.ID).Build(), nil
}

func (e *executorStub) IsCached(*sqlengine.MappedStatement, sqlengine.CacheKey) (bool, error) {
	return false, nil
}

func (e *executorStub) ClearLocalCache() error {
	return nil
}

func (e *executorStub) Commit(context.Context, bool) error {
	return nil
}

func (e *executorStub) Rollback(context.Context, bool) error {
	return nil
}

func (e *executorStub) Close(context.Context, bool) error {
	return nil
}

// statementHandlerStub implements only the StatementHandler role.
type statementHandlerStub struct{}

func (statementHandlerStub) Prepare(_ context.Context, conn sqlengine.Conn, _ time.Duration) (*sqlengine.Statement, error) {
	return sqlengine.NewStatement(conn, "SELECT 1", 0), nil
}

func (statementHandlerStub) Parameterize(*sqlengine.Statement) error { return nil }

func (statementHandlerStub) Batch(*sqlengine.Statement) error { return nil }

func (statementHandlerStub) Update(context.Context, *sqlengine.Statement) (int64, error) { return 1, nil }

func (statementHandlerStub) Query(context.Context, *sqlengine.Statement) ([]any, error) { return nil, nil }

func (statementHandlerStub) QueryCursor(context.Context, *sqlengine.Statement) (sqlengine.Cursor, error) {
	return nil, nil
}

// parameterAndResultHandlerStub implements both the ParameterHandler and the ResultSetHandler role.
type parameterAndResultHandlerStub struct {
	setParametersCalls int
}

func (h *parameterAndResultHandlerStub) SetParameters(*sqlengine.Statement) error {
	h.setParametersCalls++
	return nil
}

func (h *parameterAndResultHandlerStub) HandleResultSets(*sqlengine.Statement) ([]any, error) {
	return []any{"mapped"}, nil
}

func (h *parameterAndResultHandlerStub) HandleCursorResultSets(*sqlengine.Statement) (sqlengine.Cursor, error) {
	return nil, nil
}

func (h *parameterAndResultHandlerStub) HandleOutputParameters(*sqlengine.Statement) error {
	return nil
}

func givenMappedStatement() *sqlengine.MappedStatement {
	ms, err := sqlengine.NewMappedStatement("users.insert", sqlengine.KindInsert, "INSERT INTO users (name) VALUES (#{name})")
	if err != nil {
		panic(err)
	}

	return ms
}

// loggingExtension appends its name to log before proceeding.
func loggingExtension(name string, log *[]string, methods ...plugin.Method) *plugin.InterceptorFunc {
	set, err := plugin.Intercepting(methods...)
	if err != nil {
		panic(err)
	}

	return plugin.NewInterceptorFunc(set, func(inv *plugin.Invocation) (any, error) {
		*log = append(*log, name)
		return inv.Proceed()
	})
}

// droppingExtension returns a value from Wrap that implements no role.
type droppingExtension struct {
	plugin.Base
}

func (e *droppingExtension) Intercept(inv *plugin.Invocation) (any, error) {
	return inv.Proceed()
}

func (e *droppingExtension) Wrap(any) (any, error) {
	return struct{}{}, nil
}
