package plugin

import (
	"errors"
)

// ErrConfiguration is joined into every error caused by a misconfigured extension or chain.
var ErrConfiguration = errors.New("extension configuration error")

var ErrEmptySignatureSet = errors.New("extension declares no signatures")
var ErrUnknownRole = errors.New("unknown role")
var ErrUnknownMethod = errors.New("role has no such method")
var ErrNilExtension = errors.New("nil extension supplied")
var ErrNilTarget = errors.New("nil target supplied")
var ErrChainFrozen = errors.New("extension chain is frozen")
var ErrInvalidWrap = errors.New("wrap result does not implement the consumed roles")
var ErrUnknownExtension = errors.New("no factory registered for extension")
var ErrDuplicateFactory = errors.New("extension factory registered twice")
var ErrEmptyExtensionName = errors.New("empty extension name supplied")
var ErrInvalidProperty = errors.New("invalid extension property")

// ErrInvalidInterceptResult is returned when Intercept returns a value of the wrong type for the intercepted method.
var ErrInvalidInterceptResult = errors.New("intercept returned a result of the wrong type")

// ErrInvalidArgument is returned by Proceed when an argument was replaced by a value of the wrong type.
var ErrInvalidArgument = errors.New("invocation argument has the wrong type")

func configurationError(err error, cause error) error {
	return errors.Join(ErrConfiguration, err, cause)
}
