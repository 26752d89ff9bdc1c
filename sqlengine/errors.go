package sqlengine

import (
	"errors"
)

var ErrNilDatabaseConnection = errors.New("nil database connection supplied")
var ErrExecutionFailed = errors.New("statement execution failed")
var ErrKeyGenerationFailed = errors.New("key generation failed")
var ErrBindingParametersFailed = errors.New("binding parameters failed")
var ErrMappingResultFailed = errors.New("mapping result set failed")
var ErrExecutorClosed = errors.New("executor was closed")
var ErrNoResultSet = errors.New("statement has no open result set")
var ErrStatementClosed = errors.New("statement was closed")
var ErrCursorClosed = errors.New("cursor was closed")

var ErrEmptyStatementID = errors.New("empty mapped statement id supplied")
var ErrEmptyStatementSQL = errors.New("empty mapped statement sql supplied")
var ErrInvalidStatementKind = errors.New("invalid mapped statement kind")
var ErrMalformedPlaceholder = errors.New("malformed #{...} placeholder")
var ErrUnknownStatement = errors.New("unknown mapped statement")
var ErrDuplicateStatement = errors.New("mapped statement registered twice")
var ErrTooManyResults = errors.New("expected one result but found more")
var ErrMissingKeyProperties = errors.New("no key properties configured")
