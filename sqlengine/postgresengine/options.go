package postgresengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

var ErrNegativeTimeout = errors.New("negative timeout supplied")
var ErrNilCacheFactory = errors.New("nil cache factory supplied")

// Option defines a functional option for configuring a Configuration.
type Option func(*Configuration) error

// WithExtensions appends extensions to the chain, in order.
func WithExtensions(extensions ...plugin.Extension) Option {
	return func(c *Configuration) error {
		c.pendingExtensions = append(c.pendingExtensions, extensions...)
		return nil
	}
}

// WithChain uses a prepared chain. Extensions given with WithExtensions are appended to it
// unless it is already frozen, which fails the configuration.
func WithChain(chain *plugin.Chain) Option {
	return func(c *Configuration) error {
		if chain == nil {
			return fmt.Errorf("%w: nil chain", plugin.ErrConfiguration)
		}

		c.chain = chain

		return nil
	}
}

// WithMappedStatements registers statements by their id.
func WithMappedStatements(statements ...*sqlengine.MappedStatement) Option {
	return func(c *Configuration) error {
		for _, ms := range statements {
			if ms == nil || ms.ID == "" {
				return sqlengine.ErrEmptyStatementID
			}

			if _, exists := c.statements[ms.ID]; exists {
				return fmt.Errorf("%w: %q", sqlengine.ErrDuplicateStatement, ms.ID)
			}

			c.statements[ms.ID] = ms
		}

		return nil
	}
}

// WithExecutorType selects simple or batch executors.
func WithExecutorType(executorType ExecutorType) Option {
	return func(c *Configuration) error {
		c.executorType = executorType
		return nil
	}
}

// WithDefaultStatementTimeout applies to statements without their own timeout.
func WithDefaultStatementTimeout(timeout time.Duration) Option {
	return func(c *Configuration) error {
		if timeout < 0 {
			return ErrNegativeTimeout
		}

		c.defaultStatementTimeout = timeout

		return nil
	}
}

// WithTransactionTimeout bounds every statement of a transaction when it is smaller than the statement timeout.
func WithTransactionTimeout(timeout time.Duration) Option {
	return func(c *Configuration) error {
		if timeout < 0 {
			return ErrNegativeTimeout
		}

		c.transactionTimeout = timeout

		return nil
	}
}

// WithCacheFactory replaces the in-memory local cache of executors.
func WithCacheFactory(factory func(id string) sqlengine.Cache) Option {
	return func(c *Configuration) error {
		if factory == nil {
			return ErrNilCacheFactory
		}

		c.cacheFactory = factory

		return nil
	}
}

// WithLogger sets the logger for the Configuration and everything it creates.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Operation summaries with row counts and durations (production-safe)
// Warn level: Non-critical issues like cleanup failures or skipped optional keys
// Error level: Failures that fail an operation.
func WithLogger(logger sqlengine.Logger) Option {
	return func(c *Configuration) error {
		c.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for trace-correlated logging.
func WithContextualLogger(logger sqlengine.ContextualLogger) Option {
	return func(c *Configuration) error {
		c.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector sqlengine.MetricsCollector) Option {
	return func(c *Configuration) error {
		c.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector sqlengine.TracingCollector) Option {
	return func(c *Configuration) error {
		c.tracingCollector = collector
		return nil
	}
}
