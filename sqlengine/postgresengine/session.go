package postgresengine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// Session runs mapped statements by id on one executor. It is owned by one goroutine.
type Session struct {
	id         string
	cfg        *Configuration
	executor   sqlengine.Executor
	autoCommit bool
	dirty      bool
	closed     bool
}

// OpenSession creates a session with its own executor and transaction.
func (c *Configuration) OpenSession(autoCommit bool) (*Session, error) {
	executor, err := c.NewExecutor(autoCommit)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:         uuid.NewString(),
		cfg:        c,
		executor:   executor,
		autoCommit: autoCommit,
	}, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Executor returns the executor of the session as wrapped by the extension chain.
func (s *Session) Executor() sqlengine.Executor {
	return s.executor
}

// IsDirty reports whether writes happened since the last commit or rollback.
func (s *Session) IsDirty() bool {
	return s.dirty
}

// SelectOne returns the single result of the statement, nil when there is none.
func (s *Session) SelectOne(ctx context.Context, statementID string, parameter any) (any, error) {
	results, err := s.SelectList(ctx, statementID, parameter)
	if err != nil {
		return nil, err
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return nil, fmt.Errorf("%w: statement %q returned %d rows", sqlengine.ErrTooManyResults, statementID, len(results))
	}
}

// SelectList returns all results of the statement.
func (s *Session) SelectList(ctx context.Context, statementID string, parameter any) ([]any, error) {
	return s.SelectListBounded(ctx, statementID, parameter, sqlengine.NoRowBounds)
}

// SelectListBounded returns the results of the statement within bounds.
func (s *Session) SelectListBounded(
	ctx context.Context,
	statementID string,
	parameter any,
	bounds sqlengine.RowBounds,
) ([]any, error) {
	ms, err := s.statement(statementID)
	if err != nil {
		return nil, err
	}

	return s.executor.Query(ctx, ms, parameter, bounds)
}

// SelectCursor returns a lazy cursor over the results of the statement within bounds.
// The cursor must be closed before the session, or is closed together with it.
func (s *Session) SelectCursor(
	ctx context.Context,
	statementID string,
	parameter any,
	bounds sqlengine.RowBounds,
) (sqlengine.Cursor, error) {
	ms, err := s.statement(statementID)
	if err != nil {
		return nil, err
	}

	return s.executor.QueryCursor(ctx, ms, parameter, bounds)
}

// Insert runs a write statement and returns the number of affected rows.
func (s *Session) Insert(ctx context.Context, statementID string, parameter any) (int64, error) {
	return s.Update(ctx, statementID, parameter)
}

// Update runs a write statement and returns the number of affected rows.
func (s *Session) Update(ctx context.Context, statementID string, parameter any) (int64, error) {
	ms, err := s.statement(statementID)
	if err != nil {
		return 0, err
	}

	s.dirty = true

	return s.executor.Update(ctx, ms, parameter)
}

// Delete runs a write statement and returns the number of affected rows.
func (s *Session) Delete(ctx context.Context, statementID string, parameter any) (int64, error) {
	return s.Update(ctx, statementID, parameter)
}

// FlushStatements executes queued batch writes.
func (s *Session) FlushStatements(ctx context.Context) ([]sqlengine.BatchResult, error) {
	return s.executor.FlushStatements(ctx)
}

// Commit commits pending writes. force commits even when the session is clean.
func (s *Session) Commit(ctx context.Context, force bool) error {
	if err := s.executor.Commit(ctx, s.commitOrRollbackRequired(force)); err != nil {
		return err
	}

	s.dirty = false

	return nil
}

// Rollback discards pending writes. force rolls back even when the session is clean.
func (s *Session) Rollback(ctx context.Context, force bool) error {
	if err := s.executor.Rollback(ctx, s.commitOrRollbackRequired(force)); err != nil {
		return err
	}

	s.dirty = false

	return nil
}

// Close rolls back uncommitted writes and releases the executor. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}

	s.closed = true
	err := s.executor.Close(ctx, s.commitOrRollbackRequired(false))
	s.dirty = false

	return err
}

func (s *Session) statement(statementID string) (*sqlengine.MappedStatement, error) {
	if s.closed {
		return nil, sqlengine.ErrExecutorClosed
	}

	return s.cfg.MappedStatement(statementID)
}

func (s *Session) commitOrRollbackRequired(force bool) bool {
	return (!s.autoCommit && s.dirty) || force
}

// SelectOneAs returns the single result of the statement as T.
// found is false when the statement returned no row.
func SelectOneAs[T any](ctx context.Context, s *Session, statementID string, parameter any) (T, bool, error) {
	var zero T

	result, err := s.SelectOne(ctx, statementID, parameter)
	if err != nil || result == nil {
		return zero, false, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, false, fmt.Errorf("%w: %T is not %T", sqlengine.ErrMappingResultFailed, result, zero)
	}

	return typed, true, nil
}
