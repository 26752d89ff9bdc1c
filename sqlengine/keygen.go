package sqlengine

import (
	"context"
)

// KeyGenerationContext is what a KeyGenerator sees around one write execution.
type KeyGenerationContext struct {
	Executor  Executor
	Statement *MappedStatement
	Stmt      *Statement
	Parameter any
}

// KeyGenerator is the hook pair a StatementHandler fires around the physical execution of a write.
// ProcessBefore always precedes the execution and ProcessAfter always follows it, exactly once each.
type KeyGenerator interface {
	ProcessBefore(ctx context.Context, kctx KeyGenerationContext) error
	ProcessAfter(ctx context.Context, kctx KeyGenerationContext) error
}

// GeneratedKeysRequester is implemented by key generators that need the write executed
// with the generated keys requested from the driver.
type GeneratedKeysRequester interface {
	RequestsGeneratedKeys() bool
}

// NoKeyGenerator is used for statements without key generation.
var NoKeyGenerator KeyGenerator = noKeyGenerator{}

type noKeyGenerator struct{}

func (noKeyGenerator) ProcessBefore(context.Context, KeyGenerationContext) error { return nil }

func (noKeyGenerator) ProcessAfter(context.Context, KeyGenerationContext) error { return nil }

// RequestsGeneratedKeys reports whether the generator wants the driver to return generated keys.
func RequestsGeneratedKeys(generator KeyGenerator) bool {
	requester, ok := generator.(GeneratedKeysRequester)
	return ok && requester.RequestsGeneratedKeys()
}
