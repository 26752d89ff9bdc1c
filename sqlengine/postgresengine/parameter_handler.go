package postgresengine

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/internal/properties"
)

type parameterHandler struct {
	ms        *sqlengine.MappedStatement
	parameter any
	boundSQL  sqlengine.BoundSQL
}

func (h *parameterHandler) SetParameters(stmt *sqlengine.Statement) error {
	args, err := bindArgs(h.boundSQL)
	if err != nil {
		return errors.Join(sqlengine.ErrBindingParametersFailed, fmt.Errorf("statement %q: %w", h.ms.ID, err))
	}

	stmt.SetArgs(args...)

	return nil
}

// bindArgs resolves the positional arguments of boundSQL from its parameter object.
//
// Without mappings a []any parameter is bound positionally. A slice of objects binds
// each mapping as a typed slice of that property across all elements, e.g. []string. A simple parameter
// is bound to every placeholder. Otherwise each placeholder reads the named property.
func bindArgs(boundSQL sqlengine.BoundSQL) ([]any, error) {
	parameter := boundSQL.Parameter
	mappings := boundSQL.ParameterMappings

	if len(mappings) == 0 {
		if positional, ok := parameter.([]any); ok {
			return slices.Clone(positional), nil
		}

		return nil, nil
	}

	args := make([]any, len(mappings))

	if elements, ok := objectSlice(parameter); ok {
		for i, property := range mappings {
			column := make([]any, len(elements))
			for j, element := range elements {
				value, err := properties.Get(element, property)
				if err != nil {
					return nil, err
				}
				column[j] = value
			}
			args[i] = typedColumn(column)
		}

		return args, nil
	}

	if properties.IsSimple(parameter) {
		for i := range args {
			args[i] = parameter
		}

		return args, nil
	}

	for i, property := range mappings {
		value, err := properties.Get(parameter, property)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}

	return args, nil
}

// typedColumn converts values into a slice of their common element type so that drivers
// can encode it as a Postgres array. Mixed or all-nil values stay []any.
// Nil values force a pointer element type, e.g. []*string, so they bind as NULL.
func typedColumn(values []any) any {
	var elemType reflect.Type

	for _, value := range values {
		if value == nil {
			continue
		}

		t := reflect.TypeOf(value)
		if elemType == nil {
			elemType = t
			continue
		}

		if t != elemType {
			return values
		}
	}

	if elemType == nil {
		return values
	}

	hasNil := slices.Contains(values, nil)
	if hasNil && !nillable(elemType) {
		elemType = reflect.PointerTo(elemType)
	}

	column := reflect.MakeSlice(reflect.SliceOf(elemType), len(values), len(values))
	for i, value := range values {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Type() != elemType {
			p := reflect.New(v.Type())
			p.Elem().Set(v)
			v = p
		}

		column.Index(i).Set(v)
	}

	return column.Interface()
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// objectSlice returns the elements of a non-empty slice whose elements are bound by property.
// Element pointers are returned so that struct fields stay addressable.
func objectSlice(parameter any) ([]any, bool) {
	v := reflect.ValueOf(parameter)
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Slice {
		v = v.Elem()
	}

	if v.Kind() != reflect.Slice || v.Len() == 0 {
		return nil, false
	}

	if properties.IsSimple(v.Index(0).Interface()) {
		return nil, false
	}

	elements := make([]any, v.Len())
	for i := range elements {
		element := v.Index(i)
		if element.Kind() == reflect.Struct {
			element = element.Addr()
		}
		elements[i] = element.Interface()
	}

	return elements, true
}
