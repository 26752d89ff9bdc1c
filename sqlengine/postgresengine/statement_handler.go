package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

var returningClause = regexp.MustCompile(`(?i)\breturning\b`)

// statementHandler executes one mapped statement as a prepared statement.
// Writes fire the key generation hook around the physical execution.
type statementHandler struct {
	cfg              *Configuration
	executor         sqlengine.Executor
	ms               *sqlengine.MappedStatement
	bounds           sqlengine.RowBounds
	boundSQL         sqlengine.BoundSQL
	parameterHandler sqlengine.ParameterHandler
	resultSetHandler sqlengine.ResultSetHandler
}

func (h *statementHandler) Prepare(
	_ context.Context,
	conn sqlengine.Conn,
	transactionTimeout time.Duration,
) (*sqlengine.Statement, error) {
	if conn == nil {
		return nil, sqlengine.ErrNilDatabaseConnection
	}

	return sqlengine.NewStatement(conn, h.boundSQL.SQL, h.effectiveTimeout(transactionTimeout)), nil
}

func (h *statementHandler) Parameterize(stmt *sqlengine.Statement) error {
	return h.parameterHandler.SetParameters(stmt)
}

func (h *statementHandler) Batch(stmt *sqlengine.Statement) error {
	if stmt.IsClosed() {
		return sqlengine.ErrStatementClosed
	}

	stmt.AddBatch()

	return nil
}

func (h *statementHandler) Update(ctx context.Context, stmt *sqlengine.Statement) (int64, error) {
	keyGenerator := h.ms.KeyGeneratorOrNone()
	kctx := sqlengine.KeyGenerationContext{
		Executor:  h.executor,
		Statement: h.ms,
		Stmt:      stmt,
		Parameter: h.boundSQL.Parameter,
	}

	if err := keyGenerator.ProcessBefore(ctx, kctx); err != nil {
		if keyErr := h.keyGenerationFailed(ctx, err); keyErr != nil {
			return 0, keyErr
		}
	}

	start := time.Now()

	var (
		rowsAffected int64
		err          error
		action       = logActionUpdate
	)

	if sqlengine.RequestsGeneratedKeys(keyGenerator) && len(h.ms.EffectiveKeyColumns()) > 0 {
		action = logActionUpdateReturningKeys
		rowsAffected, err = stmt.ExecuteWithGeneratedKeys(ctx, returningSQL(stmt.SQL(), h.ms.EffectiveKeyColumns()))
	} else {
		rowsAffected, err = stmt.Execute(ctx)
	}

	if err != nil {
		h.cfg.logError(ctx, logMsgDBExecFailed, err, logAttrStatementID, h.ms.ID, logAttrQuery, stmt.SQL())
		return 0, errors.Join(sqlengine.ErrExecutionFailed, fmt.Errorf("statement %q: %w", h.ms.ID, err))
	}

	h.cfg.logQueryWithDuration(ctx, stmt.SQL(), action, time.Since(start))

	if err = keyGenerator.ProcessAfter(ctx, kctx); err != nil {
		if keyErr := h.keyGenerationFailed(ctx, err); keyErr != nil {
			return 0, keyErr
		}
	}

	return rowsAffected, nil
}

func (h *statementHandler) Query(ctx context.Context, stmt *sqlengine.Statement) ([]any, error) {
	if err := h.executeQuery(ctx, stmt); err != nil {
		return nil, err
	}

	return h.resultSetHandler.HandleResultSets(stmt)
}

func (h *statementHandler) QueryCursor(ctx context.Context, stmt *sqlengine.Statement) (sqlengine.Cursor, error) {
	if err := h.executeQuery(ctx, stmt); err != nil {
		return nil, err
	}

	return h.resultSetHandler.HandleCursorResultSets(stmt)
}

func (h *statementHandler) executeQuery(ctx context.Context, stmt *sqlengine.Statement) error {
	start := time.Now()

	if err := stmt.ExecuteQuery(ctx); err != nil {
		h.cfg.logError(ctx, logMsgDBQueryFailed, err, logAttrStatementID, h.ms.ID, logAttrQuery, stmt.SQL())
		return errors.Join(sqlengine.ErrExecutionFailed, fmt.Errorf("statement %q: %w", h.ms.ID, err))
	}

	h.cfg.logQueryWithDuration(ctx, stmt.SQL(), logActionQuery, time.Since(start))

	return nil
}

// effectiveTimeout is the statement timeout, else the default one, capped by a smaller transaction timeout.
func (h *statementHandler) effectiveTimeout(transactionTimeout time.Duration) time.Duration {
	timeout := h.ms.Timeout
	if timeout == 0 {
		timeout = h.cfg.defaultStatementTimeout
	}

	if transactionTimeout > 0 && (timeout == 0 || transactionTimeout < timeout) {
		return transactionTimeout
	}

	return timeout
}

// keyGenerationFailed returns the error that fails the write, or nil for optional keys.
func (h *statementHandler) keyGenerationFailed(ctx context.Context, err error) error {
	if h.ms.KeyOptional {
		h.cfg.logWarning(ctx, logMsgKeyGenerationSkipped, err, logAttrStatementID, h.ms.ID)
		return nil
	}

	if errors.Is(err, sqlengine.ErrKeyGenerationFailed) {
		return errors.Join(sqlengine.ErrExecutionFailed, err)
	}

	return errors.Join(sqlengine.ErrExecutionFailed, sqlengine.ErrKeyGenerationFailed, err)
}

// returningSQL appends a RETURNING clause for the key columns unless the statement already has one.
func returningSQL(sql string, keyColumns []string) string {
	if returningClause.MatchString(sql) {
		return sql
	}

	quoted := make([]string, len(keyColumns))
	for i, column := range keyColumns {
		quoted[i] = pq.QuoteIdentifier(column)
	}

	return strings.TrimRight(strings.TrimSpace(sql), ";") + " RETURNING " + strings.Join(quoted, ", ")
}
