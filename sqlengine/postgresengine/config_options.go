package postgresengine

import (
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/config"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

// OptionsFromConfig turns a loaded file configuration into options.
// Extensions are instantiated through factories in the listed order and receive deps;
// the ambient collaborators in deps are also set on the Configuration.
func OptionsFromConfig(cfg config.Config, factories *plugin.Factories, deps plugin.Dependencies) ([]Option, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	executorType, err := ParseExecutorType(cfg.Engine.ExecutorType)
	if err != nil {
		return nil, err
	}

	statementTimeout, err := cfg.Engine.StatementTimeout()
	if err != nil {
		return nil, err
	}

	transactionTimeout, err := cfg.Engine.TxTimeout()
	if err != nil {
		return nil, err
	}

	extensions, err := factories.BuildExtensions(cfg.Extensions, deps)
	if err != nil {
		return nil, err
	}

	options := []Option{
		WithExecutorType(executorType),
		WithDefaultStatementTimeout(statementTimeout),
		WithTransactionTimeout(transactionTimeout),
		WithExtensions(extensions...),
	}

	if deps.Logger != nil {
		options = append(options, WithLogger(deps.Logger))
	}

	if deps.ContextualLogger != nil {
		options = append(options, WithContextualLogger(deps.ContextualLogger))
	}

	if deps.MetricsCollector != nil {
		options = append(options, WithMetrics(deps.MetricsCollector))
	}

	if deps.TracingCollector != nil {
		options = append(options, WithTracing(deps.TracingCollector))
	}

	return options, nil
}
