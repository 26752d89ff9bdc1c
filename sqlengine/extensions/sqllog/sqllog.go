// Package sqllog provides an extension that logs every executed statement with its arguments and duration.
package sqllog

import (
	"fmt"
	"math"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

// Name is the name the extension is registered under.
const Name = "sqllog"

const (
	propertyLevel         = "level"
	propertySlowThreshold = "slow_threshold"
	propertyLogArgs       = "log_args"

	levelDebug = "debug"
	levelInfo  = "info"

	logMsgStatementExecuted = "sql statement executed"
	logMsgStatementFailed   = "sql statement failed"
	logMsgSlowStatement     = "slow sql statement"
	logAttrMethod           = "method"
	logAttrSQL              = "sql"
	logAttrArgs             = "args"
	logAttrDurationMS       = "duration_ms"
	logAttrError            = "error"
)

var signatures = plugin.MustSignatureSet(
	plugin.SignatureOf(plugin.StatementHandlerUpdate),
	plugin.SignatureOf(plugin.StatementHandlerQuery),
	plugin.SignatureOf(plugin.StatementHandlerQueryCursor),
)

// Extension logs statements executed by statement handlers.
//
// Properties:
//
//	level           debug (default) or info
//	slow_threshold  duration; statements taking at least this long are logged at warn level
//	log_args        true (default) renders the bound arguments as JSON
type Extension struct {
	plugin.Base
	logger        sqlengine.Logger
	level         string
	slowThreshold time.Duration
	logArgs       bool
}

// New creates the extension logging to logger.
func New(logger sqlengine.Logger) *Extension {
	return &Extension{
		Base:    plugin.NewBase(signatures),
		logger:  logger,
		level:   levelDebug,
		logArgs: true,
	}
}

// Factory creates the extension from the shared dependencies.
func Factory(deps plugin.Dependencies) (plugin.Extension, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("%w: %s needs a logger", plugin.ErrInvalidProperty, Name)
	}

	return New(deps.Logger), nil
}

// Register adds the factory to factories.
func Register(factories *plugin.Factories) error {
	return factories.Register(Name, Factory)
}

func (e *Extension) SetProperties(props plugin.Properties) error {
	level := strings.ToLower(props.String(propertyLevel, levelDebug))
	if level != levelDebug && level != levelInfo {
		return fmt.Errorf("%w: %s=%q", plugin.ErrInvalidProperty, propertyLevel, level)
	}

	slowThreshold, err := props.Duration(propertySlowThreshold, 0)
	if err != nil {
		return err
	}

	logArgs, err := props.Bool(propertyLogArgs, true)
	if err != nil {
		return err
	}

	e.level = level
	e.slowThreshold = slowThreshold
	e.logArgs = logArgs

	return e.Base.SetProperties(props)
}

func (e *Extension) Wrap(target any) (any, error) {
	return plugin.Wrap(target, e)
}

func (e *Extension) Intercept(inv *plugin.Invocation) (any, error) {
	stmt, err := plugin.ArgAs[*sqlengine.Statement](inv, 1)
	if err != nil || stmt == nil {
		return inv.Proceed()
	}

	start := time.Now()
	result, err := inv.Proceed()
	duration := time.Since(start)

	args := []any{
		logAttrMethod, inv.Method().String(),
		logAttrSQL, stmt.SQL(),
		logAttrDurationMS, math.Round(float64(duration.Nanoseconds())/1e3) / 1e3,
	}

	if e.logArgs {
		args = append(args, logAttrArgs, renderArgs(stmt.Args()))
	}

	switch {
	case err != nil:
		e.logger.Error(logMsgStatementFailed, append(args, logAttrError, err.Error())...)
	case e.slowThreshold > 0 && duration >= e.slowThreshold:
		e.logger.Warn(logMsgSlowStatement, args...)
	case e.level == levelInfo:
		e.logger.Info(logMsgStatementExecuted, args...)
	default:
		e.logger.Debug(logMsgStatementExecuted, args...)
	}

	return result, err
}

func renderArgs(args []any) string {
	rendered, err := jsoniter.ConfigFastest.MarshalToString(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}

	return rendered
}
