package keygen

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/internal/properties"
)

var ErrMissingKeyProperties = sqlengine.ErrMissingKeyProperties
var ErrTooManyKeys = errors.New("more generated key rows than parameter objects")
var ErrMissingKeyColumn = errors.New("generated keys lack a key column")

// DriverKeyGenerator reads the keys the database generated for a write.
// The statement handler executes the write with its key columns requested
// (INSERT ... RETURNING on PostgreSQL); ProcessAfter copies the returned keys into
// the parameter object. For slice parameters key row i goes to element i.
type DriverKeyGenerator struct{}

// NewDriverKeyGenerator creates a DriverKeyGenerator.
func NewDriverKeyGenerator() *DriverKeyGenerator {
	return &DriverKeyGenerator{}
}

// RequestsGeneratedKeys implements sqlengine.GeneratedKeysRequester.
func (g *DriverKeyGenerator) RequestsGeneratedKeys() bool {
	return true
}

// ProcessBefore does nothing, the keys only exist after the write.
func (g *DriverKeyGenerator) ProcessBefore(context.Context, sqlengine.KeyGenerationContext) error {
	return nil
}

// ProcessAfter assigns the generated keys of kctx.Stmt to the key properties of kctx.Parameter.
func (g *DriverKeyGenerator) ProcessAfter(_ context.Context, kctx sqlengine.KeyGenerationContext) error {
	ms := kctx.Statement
	if len(ms.KeyProperties) == 0 {
		return keyGenerationError(ms, ErrMissingKeyProperties)
	}

	if kctx.Parameter == nil {
		return nil
	}

	columns, keys := kctx.Stmt.GeneratedKeys()
	if len(keys) == 0 {
		return nil
	}

	positions, err := keyColumnPositions(columns, ms.EffectiveKeyColumns())
	if err != nil {
		return keyGenerationError(ms, err)
	}

	targets, err := parameterObjects(kctx.Parameter)
	if err != nil {
		return keyGenerationError(ms, err)
	}

	if len(keys) > len(targets) {
		return keyGenerationError(ms, fmt.Errorf("%w: %d rows for %d objects", ErrTooManyKeys, len(keys), len(targets)))
	}

	for i, row := range keys {
		for j, property := range ms.KeyProperties {
			if err = properties.SetValue(targets[i], property, row[positions[j]]); err != nil {
				return keyGenerationError(ms, err)
			}
		}
	}

	return nil
}

// keyColumnPositions finds every key column in the returned columns, case-insensitively.
func keyColumnPositions(returned, keyColumns []string) ([]int, error) {
	positions := make([]int, len(keyColumns))

	for i, keyColumn := range keyColumns {
		positions[i] = -1
		for j, column := range returned {
			if strings.EqualFold(column, keyColumn) {
				positions[i] = j
				break
			}
		}

		if positions[i] < 0 {
			// a single returned column is taken as the only key, whatever the driver named it
			if len(keyColumns) == 1 && len(returned) == 1 {
				positions[i] = 0
				continue
			}

			return nil, fmt.Errorf("%w: %q", ErrMissingKeyColumn, keyColumn)
		}
	}

	return positions, nil
}

// parameterObjects returns the writable objects keys are assigned to, in insertion order.
func parameterObjects(parameter any) ([]reflect.Value, error) {
	v := reflect.ValueOf(parameter)

	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Slice {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Array && !v.CanAddr() {
			return nil, fmt.Errorf("%w: %T", properties.ErrNotWritable, parameter)
		}

		targets := make([]reflect.Value, v.Len())
		for i := range targets {
			targets[i] = v.Index(i)
		}

		return targets, nil

	case reflect.Pointer, reflect.Map:
		return []reflect.Value{v}, nil

	default:
		return nil, fmt.Errorf("%w: %T", properties.ErrNotWritable, parameter)
	}
}

func keyGenerationError(ms *sqlengine.MappedStatement, err error) error {
	return errors.Join(sqlengine.ErrKeyGenerationFailed, fmt.Errorf("statement %q: %w", ms.ID, err))
}
