package plugin

import (
	"fmt"
	"maps"
	"strconv"
	"time"
)

// Extension observes or rewrites calls on the role objects it wraps.
//
// Wrap is usually implemented as
//
//	func (e *MyExtension) Wrap(target any) (any, error) {
//		return plugin.Wrap(target, e)
//	}
//
// Intercept is only called for methods declared in Signatures. It may rewrite the
// invocation arguments, call Proceed zero or more times, and replace the result.
// Intercept is called concurrently for role objects owned by different goroutines.
type Extension interface {
	Signatures() SignatureSet
	Intercept(inv *Invocation) (any, error)
	Wrap(target any) (any, error)
	SetProperties(props Properties) error
}

// Properties are the free-form settings of an extension.
type Properties map[string]string

// Clone returns an independent copy.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}

	return maps.Clone(p)
}

// String returns the value of key or fallback when it is absent.
func (p Properties) String(key, fallback string) string {
	if value, ok := p[key]; ok {
		return value
	}

	return fallback
}

// Int returns the integer value of key or fallback when it is absent.
func (p Properties) Int(key string, fallback int) (int, error) {
	value, ok := p[key]
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalidProperty, key, value, err)
	}

	return parsed, nil
}

// Bool returns the boolean value of key or fallback when it is absent.
func (p Properties) Bool(key string, fallback bool) (bool, error) {
	value, ok := p[key]
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q: %w", ErrInvalidProperty, key, value, err)
	}

	return parsed, nil
}

// Duration returns the duration value of key or fallback when it is absent.
func (p Properties) Duration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := p[key]
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalidProperty, key, value, err)
	}

	return parsed, nil
}

// Base carries the signature set and properties most extensions need.
// Embed it and implement Intercept and Wrap.
type Base struct {
	signatures SignatureSet
	properties Properties
}

// NewBase creates a Base from a SignatureSet.
func NewBase(signatures SignatureSet) Base {
	return Base{signatures: signatures, properties: Properties{}}
}

// Signatures returns the declared signature set.
func (b *Base) Signatures() SignatureSet {
	return b.signatures
}

// SetProperties stores a copy of props.
func (b *Base) SetProperties(props Properties) error {
	b.properties = props.Clone()
	return nil
}

// Properties returns the stored properties.
func (b *Base) Properties() Properties {
	return b.properties
}

// InterceptorFunc adapts a function to the Extension interface.
type InterceptorFunc struct {
	Base
	intercept func(inv *Invocation) (any, error)
}

// NewInterceptorFunc creates an extension that calls fn for every declared method.
func NewInterceptorFunc(signatures SignatureSet, fn func(inv *Invocation) (any, error)) *InterceptorFunc {
	return &InterceptorFunc{
		Base:      NewBase(signatures),
		intercept: fn,
	}
}

// Intercept calls the wrapped function.
func (f *InterceptorFunc) Intercept(inv *Invocation) (any, error) {
	return f.intercept(inv)
}

// Wrap wraps target with f.
func (f *InterceptorFunc) Wrap(target any) (any, error) {
	return Wrap(target, f)
}
