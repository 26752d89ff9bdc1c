package plugin

import (
	"fmt"
	"slices"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

const (
	logMsgExtensionRegistered = "extension registered"
	logMsgChainFrozen         = "extension chain frozen"
	logAttrExtension          = "extension"
	logAttrSignatures         = "signatures"
	logAttrPosition           = "position"
	logAttrExtensionCount     = "extension_count"
)

// Chain is the ordered, append-only list of extensions applied to every role object.
//
// Extensions are registered at startup, then the chain is frozen and may be applied
// from any number of goroutines without locking. Applying folds Wrap in registration
// order, so the last registered extension ends up outermost and sees calls first.
type Chain struct {
	extensions []Extension
	frozen     bool
	logger     sqlengine.Logger
}

// ChainOption defines a functional option for configuring a Chain.
type ChainOption func(*Chain) error

// WithChainLogger sets the logger for registration messages.
func WithChainLogger(logger sqlengine.Logger) ChainOption {
	return func(c *Chain) error {
		c.logger = logger
		return nil
	}
}

// NewChain creates an empty chain.
func NewChain(options ...ChainOption) (*Chain, error) {
	c := &Chain{extensions: make([]Extension, 0)}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// AddExtension appends ext. Registering the same extension twice wraps every target twice.
func (c *Chain) AddExtension(ext Extension) error {
	if c.frozen {
		return configurationError(ErrChainFrozen, nil)
	}

	if ext == nil {
		return configurationError(ErrNilExtension, nil)
	}

	signatures := ext.Signatures()
	if signatures.IsEmpty() {
		return configurationError(ErrEmptySignatureSet, fmt.Errorf("extension %T", ext))
	}

	c.extensions = append(c.extensions, ext)

	if c.logger != nil {
		c.logger.Debug(
			logMsgExtensionRegistered,
			logAttrExtension, fmt.Sprintf("%T", ext),
			logAttrSignatures, signatures.String(),
			logAttrPosition, len(c.extensions)-1,
		)
	}

	return nil
}

// Freeze ends registration.
func (c *Chain) Freeze() {
	if c.frozen {
		return
	}

	c.frozen = true

	if c.logger != nil {
		c.logger.Info(logMsgChainFrozen, logAttrExtensionCount, len(c.extensions))
	}
}

// IsFrozen reports whether Freeze was called.
func (c *Chain) IsFrozen() bool {
	return c.frozen
}

// Extensions returns the registered extensions in registration order.
func (c *Chain) Extensions() []Extension {
	return slices.Clone(c.extensions)
}

// ApplyAll wraps target with every extension in registration order.
// A Wrap result that no longer implements a role the extension consumed from its input fails with ErrInvalidWrap.
func (c *Chain) ApplyAll(target any) (any, error) {
	if target == nil {
		return nil, configurationError(ErrNilTarget, nil)
	}

	current := target
	for _, ext := range c.extensions {
		wrapped, err := ext.Wrap(current)
		if err != nil {
			return nil, err
		}

		if err = verifyWrap(ext, current, wrapped); err != nil {
			return nil, err
		}

		current = wrapped
	}

	return current, nil
}

// Apply is the typed form of ApplyAll.
func Apply[T any](c *Chain, target T) (T, error) {
	var zero T

	wrapped, err := c.ApplyAll(target)
	if err != nil {
		return zero, err
	}

	typed, ok := wrapped.(T)
	if !ok {
		return zero, configurationError(ErrInvalidWrap, fmt.Errorf("wrapped %T is not a %s", wrapped, TypeOf[T]()))
	}

	return typed, nil
}

func verifyWrap(ext Extension, input, output any) error {
	if output == nil {
		return configurationError(ErrInvalidWrap, fmt.Errorf("extension %T returned nil", ext))
	}

	for _, role := range ext.Signatures().Roles() {
		if role.ImplementedBy(input) && !role.ImplementedBy(output) {
			return configurationError(ErrInvalidWrap, fmt.Errorf("extension %T dropped role %s", ext, role))
		}
	}

	return nil
}
