package keygen

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/internal/properties"
)

var ErrNilKeyStatement = errors.New("nil key statement supplied")
var ErrKeyStatementNotSelect = errors.New("key statement is not a select statement")
var ErrKeyStatementResultCount = errors.New("key statement must return exactly one row")

// SelectKeyGenerator obtains the key by running a separately configured read statement
// after the write, through the same executor and therefore the same transaction.
type SelectKeyGenerator struct {
	keyStatement *sqlengine.MappedStatement
}

// NewSelectKeyGenerator creates a SelectKeyGenerator running keyStatement.
func NewSelectKeyGenerator(keyStatement *sqlengine.MappedStatement) (*SelectKeyGenerator, error) {
	if keyStatement == nil {
		return nil, ErrNilKeyStatement
	}

	if keyStatement.Kind != sqlengine.KindSelect {
		return nil, fmt.Errorf("%w: %q", ErrKeyStatementNotSelect, keyStatement.ID)
	}

	return &SelectKeyGenerator{keyStatement: keyStatement}, nil
}

// KeyStatement returns the read statement the key is selected with.
func (g *SelectKeyGenerator) KeyStatement() *sqlengine.MappedStatement {
	return g.keyStatement
}

// ProcessBefore does nothing.
func (g *SelectKeyGenerator) ProcessBefore(context.Context, sqlengine.KeyGenerationContext) error {
	return nil
}

// ProcessAfter runs the key statement and writes its single result into the key properties.
// A scalar result goes to the first key property; a row result (struct or map) fills
// every key property from the matching key column.
func (g *SelectKeyGenerator) ProcessAfter(ctx context.Context, kctx sqlengine.KeyGenerationContext) error {
	ms := kctx.Statement
	if len(ms.KeyProperties) == 0 {
		return keyGenerationError(ms, ErrMissingKeyProperties)
	}

	if kctx.Parameter == nil {
		return nil
	}

	results, err := kctx.Executor.Query(ctx, g.keyStatement, kctx.Parameter, sqlengine.NoRowBounds)
	if err != nil {
		return keyGenerationError(ms, err)
	}

	if len(results) != 1 {
		return keyGenerationError(ms, fmt.Errorf("%w: got %d", ErrKeyStatementResultCount, len(results)))
	}

	targets, err := parameterObjects(kctx.Parameter)
	if err != nil {
		return keyGenerationError(ms, err)
	}

	if len(targets) != 1 {
		return keyGenerationError(ms, fmt.Errorf("%w: %d parameter objects", ErrKeyStatementResultCount, len(targets)))
	}

	if err = assignKeyResult(targets[0], ms, results[0]); err != nil {
		return keyGenerationError(ms, err)
	}

	return nil
}

func assignKeyResult(target reflect.Value, ms *sqlengine.MappedStatement, result any) error {
	if properties.IsSimple(result) {
		return properties.SetValue(target, ms.KeyProperties[0], result)
	}

	keyColumns := ms.EffectiveKeyColumns()
	for i, property := range ms.KeyProperties {
		column := property
		if i < len(keyColumns) {
			column = keyColumns[i]
		}

		value, err := properties.Get(result, column)
		if err != nil {
			return err
		}

		if err = properties.SetValue(target, property, value); err != nil {
			return err
		}
	}

	return nil
}
