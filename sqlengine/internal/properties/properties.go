// Package properties reads and writes named properties of parameter and result objects.
//
// Supported objects are map[string]any and structs (or pointers to structs). Struct properties
// are resolved through sqlx/reflectx: the `db` tag wins, untagged fields match their lower-cased name.
package properties

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
)

var ErrUnknownProperty = errors.New("unknown property")
var ErrNotWritable = errors.New("object is not writable")
var ErrIncompatibleValue = errors.New("value is not assignable to property")

var mapper = reflectx.NewMapperFunc("db", strings.ToLower)

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// Mapper returns the shared field mapper.
func Mapper() *reflectx.Mapper {
	return mapper
}

// IsSimple reports whether obj is bound as a whole rather than by property.
func IsSimple(obj any) bool {
	if obj == nil {
		return true
	}

	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() == reflect.Map {
		return false
	}

	return t.Kind() != reflect.Struct || t.Implements(scannerType) || reflect.PointerTo(t).Implements(scannerType) ||
		t.PkgPath() == "time"
}

// Get reads the property name of obj.
func Get(obj any, name string) (any, error) {
	if m, ok := obj.(map[string]any); ok {
		value, found := m[name]
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
		}

		return value, nil
	}

	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: %q of nil %T", ErrUnknownProperty, name, obj)
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %q of %T", ErrUnknownProperty, name, obj)
	}

	field, err := structField(v, name)
	if err != nil {
		return nil, err
	}

	return field.Interface(), nil
}

// Set writes value into the property name of obj, converting it where Go allows.
// obj must be a map[string]any or a non-nil pointer to a struct.
func Set(obj any, name string, value any) error {
	if m, ok := obj.(map[string]any); ok {
		if m == nil {
			return fmt.Errorf("%w: nil map", ErrNotWritable)
		}
		m[name] = value

		return nil
	}

	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: %T", ErrNotWritable, obj)
	}

	return SetValue(v.Elem(), name, value)
}

// SetValue writes value into the property name of the addressable struct or map value v.
func SetValue(v reflect.Value, name string, value any) error {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return fmt.Errorf("%w: nil %s", ErrNotWritable, v.Type())
		}
		v = v.Elem()
	}

	if m, ok := v.Interface().(map[string]any); ok {
		return Set(m, name, value)
	}

	if v.Kind() != reflect.Struct || !v.CanAddr() {
		return fmt.Errorf("%w: %s", ErrNotWritable, v.Type())
	}

	field, err := structField(v, name)
	if err != nil {
		return err
	}

	return Assign(field, value)
}

// Assign stores value into the settable dst.
func Assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(value)
	}

	if dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}

		return Assign(dst.Elem(), value)
	}

	src := reflect.ValueOf(value)
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case src.Kind() == reflect.Slice && src.Type().Elem().Kind() == reflect.Uint8 && dst.Kind() == reflect.String:
		dst.SetString(string(src.Bytes()))
	case isNumeric(src.Kind()) && isNumeric(dst.Kind()):
		dst.Set(src.Convert(dst.Type()))
	case src.Type().ConvertibleTo(dst.Type()) && src.Kind() == dst.Kind():
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("%w: %T into %s", ErrIncompatibleValue, value, dst.Type())
	}

	return nil
}

func structField(v reflect.Value, name string) (reflect.Value, error) {
	typeMap := mapper.TypeMap(v.Type())

	fieldInfo := typeMap.GetByPath(name)
	if fieldInfo == nil {
		fieldInfo = typeMap.GetByPath(strings.ToLower(name))
	}

	if fieldInfo == nil {
		return reflect.Value{}, fmt.Errorf("%w: %q of %s", ErrUnknownProperty, name, v.Type())
	}

	if v.CanAddr() {
		return reflectx.FieldByIndexes(v, fieldInfo.Index), nil
	}

	return reflectx.FieldByIndexesReadOnly(v, fieldInfo.Index), nil
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
