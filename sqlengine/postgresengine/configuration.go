package postgresengine

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/postgresengine/internal/adapters"
)

const (
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "sqlengine operation: "
	logMsgOperationFailed        = "sqlengine operation failed"
	logMsgDBExecFailed           = "database execution failed"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgKeyGenerationSkipped   = "optional key generation failed, keeping the write"
	logMsgCloseStatementFailed   = "failed to close statement"
	logMsgCloseCursorFailed      = "failed to close cursor"
	logMsgExecutorClosed         = "executor closed"
	logMsgImplicitFlush          = "flushed pending batch before immediate execution"
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrDurationMS            = "duration_ms"
	logAttrOperation             = "operation"
	logAttrStatementID           = "statement_id"
	logAttrExecutorID            = "executor_id"
	logAttrRowCount              = "row_count"
	logAttrBatchCount            = "batch_count"
	logActionUpdate              = "update"
	logActionUpdateReturningKeys = "update returning keys"
	logActionQuery               = "query"
)

// ExecutorType selects how executors run write statements.
type ExecutorType int

const (
	// ExecutorSimple executes every statement immediately.
	ExecutorSimple ExecutorType = iota
	// ExecutorBatch queues writes until FlushStatements, Commit or a read.
	ExecutorBatch
)

// String returns the configuration name of the executor type.
func (t ExecutorType) String() string {
	if t == ExecutorBatch {
		return "batch"
	}

	return "simple"
}

// ParseExecutorType maps a configuration name to an ExecutorType. The empty name means simple.
func ParseExecutorType(name string) (ExecutorType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "simple":
		return ExecutorSimple, nil
	case "batch":
		return ExecutorBatch, nil
	default:
		return ExecutorSimple, fmt.Errorf("%w: %q", ErrUnknownExecutorType, name)
	}
}

var ErrUnknownExecutorType = errors.New("unknown executor type")

// Configuration is the context object threaded through startup.
// It owns the frozen extension chain and the mapped statements, and creates
// every role object already wrapped by the chain.
type Configuration struct {
	transactions            sqlengine.TransactionFactory
	db                      adapters.DBAdapter
	chain                   *plugin.Chain
	pendingExtensions       []plugin.Extension
	statements              map[string]*sqlengine.MappedStatement
	executorType            ExecutorType
	defaultStatementTimeout time.Duration
	transactionTimeout      time.Duration
	cacheFactory            func(id string) sqlengine.Cache
	logger                  sqlengine.Logger
	contextualLogger        sqlengine.ContextualLogger
	metricsCollector        sqlengine.MetricsCollector
	tracingCollector        sqlengine.TracingCollector
}

// NewConfigurationFromPGXPool creates a Configuration using a pgx Pool with optional configuration.
func NewConfigurationFromPGXPool(db *pgxpool.Pool, options ...Option) (*Configuration, error) {
	if db == nil {
		return nil, sqlengine.ErrNilDatabaseConnection
	}

	return newConfiguration(nil, adapters.NewPGXAdapter(db), options)
}

// NewConfigurationFromSQLDB creates a Configuration using a sql.DB with optional configuration.
func NewConfigurationFromSQLDB(db *sql.DB, options ...Option) (*Configuration, error) {
	if db == nil {
		return nil, sqlengine.ErrNilDatabaseConnection
	}

	return newConfiguration(nil, adapters.NewSQLAdapter(db), options)
}

// NewConfigurationFromSQLX creates a Configuration using a sqlx.DB with optional configuration.
func NewConfigurationFromSQLX(db *sqlx.DB, options ...Option) (*Configuration, error) {
	if db == nil {
		return nil, sqlengine.ErrNilDatabaseConnection
	}

	return newConfiguration(nil, adapters.NewSQLXAdapter(db), options)
}

// NewConfiguration creates a Configuration on top of any TransactionFactory.
// WithTransactionTimeout has no effect here, the factory decides the timeout.
func NewConfiguration(transactions sqlengine.TransactionFactory, options ...Option) (*Configuration, error) {
	if transactions == nil {
		return nil, sqlengine.ErrNilDatabaseConnection
	}

	return newConfiguration(transactions, nil, options)
}

func newConfiguration(
	transactions sqlengine.TransactionFactory,
	db adapters.DBAdapter,
	options []Option,
) (*Configuration, error) {
	c := &Configuration{
		transactions: transactions,
		db:           db,
		statements:   make(map[string]*sqlengine.MappedStatement),
		cacheFactory: func(id string) sqlengine.Cache { return sqlengine.NewPerpetualCache(id) },
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	if c.transactions == nil {
		c.transactions = &adapterTransactions{db: c.db, timeout: c.transactionTimeout}
	}

	if err := c.freezeChain(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Configuration) freezeChain() error {
	if c.chain == nil {
		chain, err := plugin.NewChain(plugin.WithChainLogger(c.logger))
		if err != nil {
			return err
		}
		c.chain = chain
	}

	for _, ext := range c.pendingExtensions {
		if err := c.chain.AddExtension(ext); err != nil {
			return err
		}
	}

	c.pendingExtensions = nil
	c.chain.Freeze()

	return nil
}

// Chain returns the frozen extension chain.
func (c *Configuration) Chain() *plugin.Chain {
	return c.chain
}

// ExecutorType returns the configured executor type.
func (c *Configuration) ExecutorType() ExecutorType {
	return c.executorType
}

// MappedStatement returns the statement registered under id.
func (c *Configuration) MappedStatement(id string) (*sqlengine.MappedStatement, error) {
	ms, ok := c.statements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sqlengine.ErrUnknownStatement, id)
	}

	return ms, nil
}

// MappedStatementIDs returns the ids of all registered statements, sorted.
func (c *Configuration) MappedStatementIDs() []string {
	ids := make([]string, 0, len(c.statements))
	for id := range c.statements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// NewExecutor creates an executor with its own transaction, wrapped by the extension chain.
func (c *Configuration) NewExecutor(autoCommit bool) (sqlengine.Executor, error) {
	tx, err := c.transactions.NewTransaction(autoCommit)
	if err != nil {
		return nil, errors.Join(sqlengine.ErrExecutionFailed, err)
	}

	return plugin.Apply[sqlengine.Executor](c.chain, newExecutor(c, tx))
}

// NewStatementHandler creates the statement handler for one execution of ms, wrapped by the extension chain.
// Its parameter and result set handlers are created and wrapped as well.
func (c *Configuration) NewStatementHandler(
	executor sqlengine.Executor,
	ms *sqlengine.MappedStatement,
	parameter any,
	bounds sqlengine.RowBounds,
) (sqlengine.StatementHandler, error) {
	boundSQL := ms.BoundSQL(parameter)

	parameterHandler, err := c.NewParameterHandler(ms, parameter, boundSQL)
	if err != nil {
		return nil, err
	}

	resultSetHandler, err := c.NewResultSetHandler(executor, ms, bounds, parameterHandler, boundSQL)
	if err != nil {
		return nil, err
	}

	handler := &statementHandler{
		cfg:              c,
		executor:         executor,
		ms:               ms,
		bounds:           bounds,
		boundSQL:         boundSQL,
		parameterHandler: parameterHandler,
		resultSetHandler: resultSetHandler,
	}

	return plugin.Apply[sqlengine.StatementHandler](c.chain, handler)
}

// NewParameterHandler creates the parameter handler binding parameter, wrapped by the extension chain.
func (c *Configuration) NewParameterHandler(
	ms *sqlengine.MappedStatement,
	parameter any,
	boundSQL sqlengine.BoundSQL,
) (sqlengine.ParameterHandler, error) {
	handler := &parameterHandler{
		ms:        ms,
		parameter: parameter,
		boundSQL:  boundSQL,
	}

	return plugin.Apply[sqlengine.ParameterHandler](c.chain, handler)
}

// NewResultSetHandler creates the result set handler of ms, wrapped by the extension chain.
func (c *Configuration) NewResultSetHandler(
	executor sqlengine.Executor,
	ms *sqlengine.MappedStatement,
	bounds sqlengine.RowBounds,
	parameterHandler sqlengine.ParameterHandler,
	boundSQL sqlengine.BoundSQL,
) (sqlengine.ResultSetHandler, error) {
	handler := &resultSetHandler{
		executor:         executor,
		ms:               ms,
		bounds:           bounds,
		parameterHandler: parameterHandler,
		boundSQL:         boundSQL,
	}

	return plugin.Apply[sqlengine.ResultSetHandler](c.chain, handler)
}
