package plugin

import (
	"context"
	"time"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

/***** Executor *****/

type executorProxy struct {
	capability
	target sqlengine.Executor
	raw    any
}

func (p *executorProxy) proxyTarget() any { return p.raw }

func (p *executorProxy) Update(ctx context.Context, ms *sqlengine.MappedStatement, parameter any) (int64, error) {
	m := ExecutorUpdate
	if !p.intercepts(m) {
		return p.target.Update(ctx, ms, parameter)
	}

	result, err := p.invoke(p.raw, m, []any{ctx, ms, parameter}, func(args []any) (any, error) {
		ctx, err := argAs[context.Context](m, args, 0)
		if err != nil {
			return nil, err
		}

		ms, err := argAs[*sqlengine.MappedStatement](m, args, 1)
		if err != nil {
			return nil, err
		}

		return p.target.Update(ctx, ms, args[2])
	})

	return resultAs[int64](m, result, err)
}

func (p *executorProxy) Query(
	ctx context.Context,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) ([]any, error) {
	m := ExecutorQuery
	if !p.intercepts(m) {
		return p.target.Query(ctx, ms, parameter, bounds)
	}

	result, err := p.invoke(p.raw, m, []any{ctx, ms, parameter, bounds}, func(args []any) (any, error) {
		ctx, ms, bounds, err := readArgs(m, args)
		if err != nil {
			return nil, err
		}

		return p.target.Query(ctx, ms, args[2], bounds)
	})

	return resultAs[[]any](m, result, err)
}

func (p *executorProxy) QueryCursor(
	ctx context.Context,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) (sqlengine.Cursor, error) {
	m := ExecutorQueryCursor
	if !p.intercepts(m) {
		return p.target.QueryCursor(ctx, ms, parameter, bounds)
	}

	result, err := p.invoke(p.raw, m, []any{ctx, ms, parameter, bounds}, func(args []any) (any, error) {
		ctx, ms, bounds, err := readArgs(m, args)
		if err != nil {
			return nil, err
		}

		return p.target.QueryCursor(ctx, ms, args[2], bounds)
	})

	return resultAs[sqlengine.Cursor](m, result, err)
}

func (p *executorProxy) FlushStatements(ctx context.Context) ([]sqlengine.BatchResult, error) {
	m := ExecutorFlushStatements
	if !p.intercepts(m) {
		return p.target.FlushStatements(ctx)
	}

	result, err := p.invoke(p.raw, m, []any{ctx}, func(args []any) (any, error) {
		ctx, err := argAs[context.Context](m, args, 0)
		if err != nil {
			return nil, err
		}

		return p.target.FlushStatements(ctx)
	})

	return resultAs[[]sqlengine.BatchResult](m, result, err)
}

func (p *executorProxy) CreateCacheKey(
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
	boundSQL sqlengine.BoundSQL,
) (sqlengine.CacheKey, error) {
	m := ExecutorCreateCacheKey
	if !p.intercepts(m) {
		return p.target.CreateCacheKey(ms, parameter, bounds, boundSQL)
	}

	result, err := p.invoke(p.raw, m, []any{ms, parameter, bounds, boundSQL}, func(args []any) (any, error) {
		ms, err := argAs[*sqlengine.MappedStatement](m, args, 0)
		if err != nil {
			return nil, err
		}

		bounds, err := argAs[sqlengine.RowBounds](m, args, 2)
		if err != nil {
			return nil, err
		}

		boundSQL, err := argAs[sqlengine.BoundSQL](m, args, 3)
		if err != nil {
			return nil, err
		}

		return p.target.CreateCacheKey(ms, args[1], bounds, boundSQL)
	})

	return resultAs[sqlengine.CacheKey](m, result, err)
}

func (p *executorProxy) IsCached(ms *sqlengine.MappedStatement, key sqlengine.CacheKey) (bool, error) {
	m := ExecutorIsCached
	if !p.intercepts(m) {
		return p.target.IsCached(ms, key)
	}

	result, err := p.invoke(p.raw, m, []any{ms, key}, func(args []any) (any, error) {
		ms, err := argAs[*sqlengine.MappedStatement](m, args, 0)
		if err != nil {
			return nil, err
		}

		key, err := argAs[sqlengine.CacheKey](m, args, 1)
		if err != nil {
			return nil, err
		}

		return p.target.IsCached(ms, key)
	})

	return resultAs[bool](m, result, err)
}

func (p *executorProxy) ClearLocalCache() error {
	m := ExecutorClearLocalCache
	if !p.intercepts(m) {
		return p.target.ClearLocalCache()
	}

	_, err := p.invoke(p.raw, m, []any{}, func([]any) (any, error) {
		return nil, p.target.ClearLocalCache()
	})

	return err
}

func (p *executorProxy) Commit(ctx context.Context, required bool) error {
	m := ExecutorCommit
	if !p.intercepts(m) {
		return p.target.Commit(ctx, required)
	}

	_, err := p.invoke(p.raw, m, []any{ctx, required}, func(args []any) (any, error) {
		ctx, flag, err := contextAndFlag(m, args)
		if err != nil {
			return nil, err
		}

		return nil, p.target.Commit(ctx, flag)
	})

	return err
}

func (p *executorProxy) Rollback(ctx context.Context, required bool) error {
	m := ExecutorRollback
	if !p.intercepts(m) {
		return p.target.Rollback(ctx, required)
	}

	_, err := p.invoke(p.raw, m, []any{ctx, required}, func(args []any) (any, error) {
		ctx, flag, err := contextAndFlag(m, args)
		if err != nil {
			return nil, err
		}

		return nil, p.target.Rollback(ctx, flag)
	})

	return err
}

func (p *executorProxy) Close(ctx context.Context, forceRollback bool) error {
	m := ExecutorClose
	if !p.intercepts(m) {
		return p.target.Close(ctx, forceRollback)
	}

	_, err := p.invoke(p.raw, m, []any{ctx, forceRollback}, func(args []any) (any, error) {
		ctx, flag, err := contextAndFlag(m, args)
		if err != nil {
			return nil, err
		}

		return nil, p.target.Close(ctx, flag)
	})

	return err
}

func readArgs(m Method, args []any) (context.Context, *sqlengine.MappedStatement, sqlengine.RowBounds, error) {
	ctx, err := argAs[context.Context](m, args, 0)
	if err != nil {
		return nil, nil, sqlengine.RowBounds{}, err
	}

	ms, err := argAs[*sqlengine.MappedStatement](m, args, 1)
	if err != nil {
		return nil, nil, sqlengine.RowBounds{}, err
	}

	bounds, err := argAs[sqlengine.RowBounds](m, args, 3)
	if err != nil {
		return nil, nil, sqlengine.RowBounds{}, err
	}

	return ctx, ms, bounds, nil
}

func contextAndFlag(m Method, args []any) (context.Context, bool, error) {
	ctx, err := argAs[context.Context](m, args, 0)
	if err != nil {
		return nil, false, err
	}

	flag, err := argAs[bool](m, args, 1)
	if err != nil {
		return nil, false, err
	}

	return ctx, flag, nil
}

/***** StatementHandler *****/

type statementHandlerProxy struct {
	capability
	target sqlengine.StatementHandler
	raw    any
}

func (p *statementHandlerProxy) proxyTarget() any { return p.raw }

func (p *statementHandlerProxy) Prepare(
	ctx context.Context,
	conn sqlengine.Conn,
	transactionTimeout time.Duration,
) (*sqlengine.Statement, error) {
	m := StatementHandlerPrepare
	if !p.intercepts(m) {
		return p.target.Prepare(ctx, conn, transactionTimeout)
	}

	result, err := p.invoke(p.raw, m, []any{ctx, conn, transactionTimeout}, func(args []any) (any, error) {
		ctx, err := argAs[context.Context](m, args, 0)
		if err != nil {
			return nil, err
		}

		conn, err := argAs[sqlengine.Conn](m, args, 1)
		if err != nil {
			return nil, err
		}

		timeout, err := argAs[time.Duration](m, args, 2)
		if err != nil {
			return nil, err
		}

		return p.target.Prepare(ctx, conn, timeout)
	})

	return resultAs[*sqlengine.Statement](m, result, err)
}

func (p *statementHandlerProxy) Parameterize(stmt *sqlengine.Statement) error {
	m := StatementHandlerParameterize
	if !p.intercepts(m) {
		return p.target.Parameterize(stmt)
	}

	_, err := p.invoke(p.raw, m, []any{stmt}, func(args []any) (any, error) {
		stmt, err := argAs[*sqlengine.Statement](m, args, 0)
		if err != nil {
			return nil, err
		}

		return nil, p.target.Parameterize(stmt)
	})

	return err
}

func (p *statementHandlerProxy) Batch(stmt *sqlengine.Statement) error {
	m := StatementHandlerBatch
	if !p.intercepts(m) {
		return p.target.Batch(stmt)
	}

	_, err := p.invoke(p.raw, m, []any{stmt}, func(args []any) (any, error) {
		stmt, err := argAs[*sqlengine.Statement](m, args, 0)
		if err != nil {
			return nil, err
		}

		return nil, p.target.Batch(stmt)
	})

	return err
}

func (p *statementHandlerProxy) Update(ctx context.Context, stmt *sqlengine.Statement) (int64, error) {
	m := StatementHandlerUpdate
	if !p.intercepts(m) {
		return p.target.Update(ctx, stmt)
	}

	result, err := p.invoke(p.raw, m, []any{ctx, stmt}, func(args []any) (any, error) {
		ctx, stmt, err := contextAndStatement(m, args)
		if err != nil {
			return nil, err
		}

		return p.target.Update(ctx, stmt)
	})

	return resultAs[int64](m, result, err)
}

func (p *statementHandlerProxy) Query(ctx context.Context, stmt *sqlengine.Statement) ([]any, error) {
	m := StatementHandlerQuery
	if !p.intercepts(m) {
		return p.target.Query(ctx, stmt)
	}

	result, err := p.invoke(p.raw, m, []any{ctx, stmt}, func(args []any) (any, error) {
		ctx, stmt, err := contextAndStatement(m, args)
		if err != nil {
			return nil, err
		}

		return p.target.Query(ctx, stmt)
	})

	return resultAs[[]any](m, result, err)
}

func (p *statementHandlerProxy) QueryCursor(ctx context.Context, stmt *sqlengine.Statement) (sqlengine.Cursor, error) {
	m := StatementHandlerQueryCursor
	if !p.intercepts(m) {
		return p.target.QueryCursor(ctx, stmt)
	}

	result, err := p.invoke(p.raw, m, []any{ctx, stmt}, func(args []any) (any, error) {
		ctx, stmt, err := contextAndStatement(m, args)
		if err != nil {
			return nil, err
		}

		return p.target.QueryCursor(ctx, stmt)
	})

	return resultAs[sqlengine.Cursor](m, result, err)
}

func contextAndStatement(m Method, args []any) (context.Context, *sqlengine.Statement, error) {
	ctx, err := argAs[context.Context](m, args, 0)
	if err != nil {
		return nil, nil, err
	}

	stmt, err := argAs[*sqlengine.Statement](m, args, 1)
	if err != nil {
		return nil, nil, err
	}

	return ctx, stmt, nil
}

/***** ParameterHandler *****/

type parameterHandlerProxy struct {
	capability
	target sqlengine.ParameterHandler
	raw    any
}

func (p *parameterHandlerProxy) proxyTarget() any { return p.raw }

func (p *parameterHandlerProxy) SetParameters(stmt *sqlengine.Statement) error {
	m := ParameterHandlerSetParameters
	if !p.intercepts(m) {
		return p.target.SetParameters(stmt)
	}

	_, err := p.invoke(p.raw, m, []any{stmt}, func(args []any) (any, error) {
		stmt, err := argAs[*sqlengine.Statement](m, args, 0)
		if err != nil {
			return nil, err
		}

		return nil, p.target.SetParameters(stmt)
	})

	return err
}

/***** ResultSetHandler *****/

type resultSetHandlerProxy struct {
	capability
	target sqlengine.ResultSetHandler
	raw    any
}

func (p *resultSetHandlerProxy) proxyTarget() any { return p.raw }

func (p *resultSetHandlerProxy) HandleResultSets(stmt *sqlengine.Statement) ([]any, error) {
	m := ResultSetHandlerHandleResultSets
	if !p.intercepts(m) {
		return p.target.HandleResultSets(stmt)
	}

	result, err := p.invoke(p.raw, m, []any{stmt}, func(args []any) (any, error) {
		stmt, err := argAs[*sqlengine.Statement](m, args, 0)
		if err != nil {
			return nil, err
		}

		return p.target.HandleResultSets(stmt)
	})

	return resultAs[[]any](m, result, err)
}

func (p *resultSetHandlerProxy) HandleCursorResultSets(stmt *sqlengine.Statement) (sqlengine.Cursor, error) {
	m := ResultSetHandlerHandleCursorResultSets
	if !p.intercepts(m) {
		return p.target.HandleCursorResultSets(stmt)
	}

	result, err := p.invoke(p.raw, m, []any{stmt}, func(args []any) (any, error) {
		stmt, err := argAs[*sqlengine.Statement](m, args, 0)
		if err != nil {
			return nil, err
		}

		return p.target.HandleCursorResultSets(stmt)
	})

	return resultAs[sqlengine.Cursor](m, result, err)
}

func (p *resultSetHandlerProxy) HandleOutputParameters(stmt *sqlengine.Statement) error {
	m := ResultSetHandlerHandleOutputParameters
	if !p.intercepts(m) {
		return p.target.HandleOutputParameters(stmt)
	}

	_, err := p.invoke(p.raw, m, []any{stmt}, func(args []any) (any, error) {
		stmt, err := argAs[*sqlengine.Statement](m, args, 0)
		if err != nil {
			return nil, err
		}

		return nil, p.target.HandleOutputParameters(stmt)
	})

	return err
}
