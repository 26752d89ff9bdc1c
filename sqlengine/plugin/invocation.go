package plugin

import (
	"context"
	"fmt"
)

// Invocation is one intercepted call. Args is live: rewriting an argument changes what Proceed passes on.
type Invocation struct {
	target  any
	method  Method
	args    []any
	proceed func(args []any) (any, error)
}

// Target returns the wrapped object, which may itself be another extension's proxy.
func (inv *Invocation) Target() any {
	return inv.target
}

// Method returns the intercepted method.
func (inv *Invocation) Method() Method {
	return inv.method
}

// Args returns the live argument slice.
func (inv *Invocation) Args() []any {
	return inv.args
}

// Arg returns argument i, or nil when the method has no argument i.
func (inv *Invocation) Arg(i int) any {
	if i < 0 || i >= len(inv.args) {
		return nil
	}

	return inv.args[i]
}

// SetArg replaces argument i for subsequent calls to Proceed.
// It fails with ErrInvalidArgument when the method has no argument i.
func (inv *Invocation) SetArg(i int, value any) error {
	if i < 0 || i >= len(inv.args) {
		return fmt.Errorf("%w: %s has no argument %d", ErrInvalidArgument, inv.method, i)
	}

	inv.args[i] = value

	return nil
}

// Context returns the context argument of the call, or context.Background for methods without one.
func (inv *Invocation) Context() context.Context {
	if len(inv.args) > 0 {
		if ctx, ok := inv.args[0].(context.Context); ok {
			return ctx
		}
	}

	return context.Background()
}

// Proceed calls the target with the current arguments. It may be called any number of times.
func (inv *Invocation) Proceed() (any, error) {
	return inv.proceed(inv.args)
}

// ArgAs returns argument i of inv as T.
func ArgAs[T any](inv *Invocation, i int) (T, error) {
	return argAs[T](inv.method, inv.args, i)
}

func argAs[T any](m Method, args []any, i int) (T, error) {
	var zero T

	if i < 0 || i >= len(args) {
		return zero, fmt.Errorf("%w: %s has no argument %d", ErrInvalidArgument, m, i)
	}

	if args[i] == nil {
		return zero, nil
	}

	value, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d of %s is %T", ErrInvalidArgument, i, m, args[i])
	}

	return value, nil
}

// resultAs converts an intercepted result back to the static result type of m.
// A non-nil error is returned unchanged.
func resultAs[T any](m Method, result any, err error) (T, error) {
	var zero T

	if result == nil {
		return zero, err
	}

	value, ok := result.(T)
	if !ok {
		if err != nil {
			return zero, err
		}

		return zero, fmt.Errorf("%w: %s returned %T", ErrInvalidInterceptResult, m, result)
	}

	return value, err
}
