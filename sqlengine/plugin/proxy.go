package plugin

import (
	"fmt"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// Wrap puts target behind a capability proxy for ext.
//
// The proxy implements exactly those roles of ext's signature set that target implements.
// Declared methods are routed through ext.Intercept, all other methods call target directly.
// When target implements none of the declared roles, Wrap returns target itself.
func Wrap(target any, ext Extension) (any, error) {
	if ext == nil {
		return nil, configurationError(ErrNilExtension, nil)
	}

	if target == nil {
		return nil, configurationError(ErrNilTarget, nil)
	}

	signatures := ext.Signatures()
	if signatures.IsEmpty() {
		return nil, configurationError(ErrEmptySignatureSet, fmt.Errorf("extension %T", ext))
	}

	var resolved roleMask
	for _, role := range signatures.Roles() {
		if role.ImplementedBy(target) {
			resolved |= role.bit()
		}
	}

	if resolved == 0 {
		return target, nil
	}

	return newProxy(target, ext, signatures, resolved)
}

// Unwrap returns the object directly behind a capability proxy, or obj itself if it is not one.
func Unwrap(obj any) any {
	if p, ok := obj.(proxy); ok {
		return p.proxyTarget()
	}

	return obj
}

// Innermost unwraps every capability proxy layer around obj.
func Innermost(obj any) any {
	for {
		p, ok := obj.(proxy)
		if !ok {
			return obj
		}
		obj = p.proxyTarget()
	}
}

// IsProxy reports whether obj is a capability proxy.
func IsProxy(obj any) bool {
	_, ok := obj.(proxy)
	return ok
}

type proxy interface {
	proxyTarget() any
}

// capability binds one extension with the dispatch table of one role.
type capability struct {
	extension Extension
	table     []bool
}

func newCapability(ext Extension, signatures SignatureSet, role Role) capability {
	return capability{extension: ext, table: signatures.dispatchTable(role)}
}

func (c capability) intercepts(m Method) bool {
	return c.table[m.index]
}

func (c capability) invoke(target any, m Method, args []any, call func(args []any) (any, error)) (any, error) {
	return c.extension.Intercept(&Invocation{target: target, method: m, args: args, proceed: call})
}

const (
	maskE = roleMask(1 << 0)
	maskS = roleMask(1 << 1)
	maskP = roleMask(1 << 2)
	maskR = roleMask(1 << 3)
)

func newProxy(target any, ext Extension, signatures SignatureSet, resolved roleMask) (any, error) {
	var (
		e *executorProxy
		s *statementHandlerProxy
		p *parameterHandlerProxy
		r *resultSetHandlerProxy
	)

	if resolved&maskE != 0 {
		e = &executorProxy{
			capability: newCapability(ext, signatures, RoleExecutor),
			target:     target.(sqlengine.Executor),
			raw:        target,
		}
	}

	if resolved&maskS != 0 {
		s = &statementHandlerProxy{
			capability: newCapability(ext, signatures, RoleStatementHandler),
			target:     target.(sqlengine.StatementHandler),
			raw:        target,
		}
	}

	if resolved&maskP != 0 {
		p = &parameterHandlerProxy{
			capability: newCapability(ext, signatures, RoleParameterHandler),
			target:     target.(sqlengine.ParameterHandler),
			raw:        target,
		}
	}

	if resolved&maskR != 0 {
		r = &resultSetHandlerProxy{
			capability: newCapability(ext, signatures, RoleResultSetHandler),
			target:     target.(sqlengine.ResultSetHandler),
			raw:        target,
		}
	}

	switch resolved {
	case maskE:
		return e, nil
	case maskS:
		return s, nil
	case maskP:
		return p, nil
	case maskR:
		return r, nil
	case maskE | maskP:
		return &executorParameterProxy{e, p, target}, nil
	case maskE | maskR:
		return &executorResultSetProxy{e, r, target}, nil
	case maskE | maskP | maskR:
		return &executorParameterResultSetProxy{e, p, r, target}, nil
	case maskS | maskP:
		return &statementParameterProxy{s, p, target}, nil
	case maskS | maskR:
		return &statementResultSetProxy{s, r, target}, nil
	case maskS | maskP | maskR:
		return &statementParameterResultSetProxy{s, p, r, target}, nil
	case maskP | maskR:
		return &parameterResultSetProxy{p, r, target}, nil
	default:
		// Executor and StatementHandler share method names with different signatures,
		// so no Go type can implement both.
		return nil, configurationError(ErrInvalidWrap, fmt.Errorf("unsupported role combination for %T", target))
	}
}

/***** role combinations *****/

type executorParameterProxy struct {
	*executorProxy
	*parameterHandlerProxy
	raw any
}

func (p *executorParameterProxy) proxyTarget() any { return p.raw }

type executorResultSetProxy struct {
	*executorProxy
	*resultSetHandlerProxy
	raw any
}

func (p *executorResultSetProxy) proxyTarget() any { return p.raw }

type executorParameterResultSetProxy struct {
	*executorProxy
	*parameterHandlerProxy
	*resultSetHandlerProxy
	raw any
}

func (p *executorParameterResultSetProxy) proxyTarget() any { return p.raw }

type statementParameterProxy struct {
	*statementHandlerProxy
	*parameterHandlerProxy
	raw any
}

func (p *statementParameterProxy) proxyTarget() any { return p.raw }

type statementResultSetProxy struct {
	*statementHandlerProxy
	*resultSetHandlerProxy
	raw any
}

func (p *statementResultSetProxy) proxyTarget() any { return p.raw }

type statementParameterResultSetProxy struct {
	*statementHandlerProxy
	*parameterHandlerProxy
	*resultSetHandlerProxy
	raw any
}

func (p *statementParameterResultSetProxy) proxyTarget() any { return p.raw }

type parameterResultSetProxy struct {
	*parameterHandlerProxy
	*resultSetHandlerProxy
	raw any
}

func (p *parameterResultSetProxy) proxyTarget() any { return p.raw }
