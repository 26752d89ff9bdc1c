package postgresengine

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx/reflectx"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/internal/properties"
)

var ErrMissingDestination = errors.New("result column has no destination field")

type resultSetHandler struct {
	executor         sqlengine.Executor
	ms               *sqlengine.MappedStatement
	bounds           sqlengine.RowBounds
	parameterHandler sqlengine.ParameterHandler
	boundSQL         sqlengine.BoundSQL
}

func (h *resultSetHandler) HandleResultSets(stmt *sqlengine.Statement) ([]any, error) {
	cursor, err := h.HandleCursorResultSets(stmt)
	if err != nil {
		return nil, err
	}

	results, err := sqlengine.CollectCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("statement %q: %w", h.ms.ID, err)
	}

	if err = h.HandleOutputParameters(stmt); err != nil {
		return nil, err
	}

	return results, nil
}

func (h *resultSetHandler) HandleCursorResultSets(stmt *sqlengine.Statement) (sqlengine.Cursor, error) {
	rows, err := stmt.ResultRows()
	if err != nil {
		return nil, err
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Join(sqlengine.ErrMappingResultFailed, err, rows.Close())
	}

	mapRow, err := newRowMapper(h.ms.ResultType, columns)
	if err != nil {
		return nil, errors.Join(sqlengine.ErrMappingResultFailed, fmt.Errorf("statement %q: %w", h.ms.ID, err), rows.Close())
	}

	return sqlengine.NewRowsCursor(rows, mapRow, h.bounds), nil
}

// HandleOutputParameters does nothing, PostgreSQL functions return OUT parameters as a result row.
func (h *resultSetHandler) HandleOutputParameters(*sqlengine.Statement) error {
	return nil
}

// newRowMapper maps rows to resultType: structs by column name, other types from the first column,
// no type to map[string]any.
func newRowMapper(resultType reflect.Type, columns []string) (sqlengine.RowMapper, error) {
	if resultType == nil {
		return mapRowToMap(columns), nil
	}

	structType := resultType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	if structType.Kind() == reflect.Struct && !isSimpleType(structType) {
		return mapRowToStruct(resultType, structType, columns)
	}

	return mapRowToScalar(resultType, len(columns)), nil
}

func mapRowToMap(columns []string) sqlengine.RowMapper {
	return func(rows sqlengine.Rows) (any, error) {
		values, err := scanValues(rows, len(columns))
		if err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}

		return row, nil
	}
}

func mapRowToStruct(resultType, structType reflect.Type, columns []string) (sqlengine.RowMapper, error) {
	traversals := properties.Mapper().TraversalsByName(structType, columns)
	for i, traversal := range traversals {
		if len(traversal) == 0 {
			return nil, fmt.Errorf("%w: %q in %s", ErrMissingDestination, columns[i], structType)
		}
	}

	return func(rows sqlengine.Rows) (any, error) {
		values, err := scanValues(rows, len(columns))
		if err != nil {
			return nil, err
		}

		target := reflect.New(structType)
		for i, traversal := range traversals {
			field := reflectx.FieldByIndexes(target.Elem(), traversal)
			if err = properties.Assign(field, values[i]); err != nil {
				return nil, fmt.Errorf("column %q: %w", columns[i], err)
			}
		}

		if resultType.Kind() == reflect.Pointer {
			return target.Interface(), nil
		}

		return target.Elem().Interface(), nil
	}, nil
}

func mapRowToScalar(resultType reflect.Type, columnCount int) sqlengine.RowMapper {
	return func(rows sqlengine.Rows) (any, error) {
		values, err := scanValues(rows, columnCount)
		if err != nil {
			return nil, err
		}

		if columnCount == 0 {
			return reflect.Zero(resultType).Interface(), nil
		}

		target := reflect.New(resultType).Elem()
		if err = properties.Assign(target, values[0]); err != nil {
			return nil, err
		}

		return target.Interface(), nil
	}
}

func scanValues(rows sqlengine.Rows, columnCount int) ([]any, error) {
	values := make([]any, columnCount)
	dest := make([]any, columnCount)
	for i := range values {
		dest[i] = &values[i]
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	return values, nil
}

// isSimpleType reports struct types that are mapped as one value, like time.Time or sql.Null*.
func isSimpleType(t reflect.Type) bool {
	return properties.IsSimple(reflect.Zero(t).Interface())
}
