// Package tracing provides an extension that records a span for every intercepted executor and statement call.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

// Name is the name the extension is registered under.
const Name = "tracing"

const (
	propertySpanPrefix = "span_prefix"
	defaultSpanPrefix  = "sqlengine.extension"

	spanAttrMethod      = "method"
	spanAttrStatementID = "statement_id"
	spanAttrSQL         = "sql"
	spanAttrError       = "error"
)

var signatures = plugin.MustSignatureSet(
	plugin.SignatureOf(plugin.ExecutorUpdate),
	plugin.SignatureOf(plugin.ExecutorQuery),
	plugin.SignatureOf(plugin.ExecutorQueryCursor),
	plugin.SignatureOf(plugin.ExecutorFlushStatements),
	plugin.SignatureOf(plugin.ExecutorCommit),
	plugin.SignatureOf(plugin.ExecutorRollback),
	plugin.SignatureOf(plugin.StatementHandlerUpdate),
	plugin.SignatureOf(plugin.StatementHandlerQuery),
	plugin.SignatureOf(plugin.StatementHandlerQueryCursor),
)

// Extension starts a span before the call proceeds and finishes it with the outcome.
// The span context replaces the context argument, so nested calls become child spans.
type Extension struct {
	plugin.Base
	collector  sqlengine.TracingCollector
	spanPrefix string
}

// New creates the extension reporting to collector.
func New(collector sqlengine.TracingCollector) *Extension {
	return &Extension{
		Base:       plugin.NewBase(signatures),
		collector:  collector,
		spanPrefix: defaultSpanPrefix,
	}
}

// Factory creates the extension from the shared dependencies.
func Factory(deps plugin.Dependencies) (plugin.Extension, error) {
	if deps.TracingCollector == nil {
		return nil, fmt.Errorf("%w: %s needs a tracing collector", plugin.ErrInvalidProperty, Name)
	}

	return New(deps.TracingCollector), nil
}

// Register adds the factory to factories.
func Register(factories *plugin.Factories) error {
	return factories.Register(Name, Factory)
}

func (e *Extension) SetProperties(props plugin.Properties) error {
	prefix := strings.TrimSpace(props.String(propertySpanPrefix, defaultSpanPrefix))
	if prefix == "" {
		return fmt.Errorf("%w: empty %s", plugin.ErrInvalidProperty, propertySpanPrefix)
	}

	e.spanPrefix = prefix

	return e.Base.SetProperties(props)
}

func (e *Extension) Wrap(target any) (any, error) {
	return plugin.Wrap(target, e)
}

func (e *Extension) Intercept(inv *plugin.Invocation) (any, error) {
	m := inv.Method()
	attrs := map[string]string{spanAttrMethod: m.String()}

	switch m.Role() {
	case plugin.RoleExecutor:
		if len(inv.Args()) > 1 {
			if ms, ok := inv.Arg(1).(*sqlengine.MappedStatement); ok && ms != nil {
				attrs[spanAttrStatementID] = ms.ID
			}
		}
	case plugin.RoleStatementHandler:
		if stmt, ok := inv.Arg(1).(*sqlengine.Statement); ok && stmt != nil {
			attrs[spanAttrSQL] = stmt.SQL()
		}
	}

	ctx, span := e.collector.StartSpan(inv.Context(), e.spanName(m), attrs)
	if _, ok := inv.Arg(0).(context.Context); ok {
		_ = inv.SetArg(0, ctx) // argument 0 exists
	}

	result, err := inv.Proceed()

	if span == nil {
		return result, err
	}

	if err != nil {
		span.SetStatus(sqlengine.SpanStatusError)
		e.collector.FinishSpan(span, sqlengine.SpanStatusError, map[string]string{spanAttrError: err.Error()})

		return result, err
	}

	span.SetStatus(sqlengine.SpanStatusSuccess)
	e.collector.FinishSpan(span, sqlengine.SpanStatusSuccess, nil)

	return result, nil
}

func (e *Extension) spanName(m plugin.Method) string {
	return e.spanPrefix + "." + strings.ToLower(m.Role().String()) + "." + strings.ToLower(m.Name())
}
