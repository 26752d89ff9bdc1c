// Package rowlimit provides an extension that caps the number of rows any read may return.
package rowlimit

import (
	"fmt"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

// Name is the name the extension is registered under.
const Name = "rowlimit"

// DefaultMaxRows is used when the max_rows property is absent.
const DefaultMaxRows = 1000

const (
	propertyMaxRows = "max_rows"
	boundsArg       = 3
)

var signatures = plugin.MustSignatureSet(
	plugin.SignatureOf(plugin.ExecutorQuery),
	plugin.SignatureOf(plugin.ExecutorQueryCursor),
)

// Extension rewrites the RowBounds of executor reads so that the limit never exceeds max_rows.
// The offset is kept.
type Extension struct {
	plugin.Base
	maxRows int
}

// New creates the extension with the given cap.
func New(maxRows int) *Extension {
	return &Extension{
		Base:    plugin.NewBase(signatures),
		maxRows: maxRows,
	}
}

// Factory creates the extension with DefaultMaxRows.
func Factory(plugin.Dependencies) (plugin.Extension, error) {
	return New(DefaultMaxRows), nil
}

// Register adds the factory to factories.
func Register(factories *plugin.Factories) error {
	return factories.Register(Name, Factory)
}

// MaxRows returns the configured cap.
func (e *Extension) MaxRows() int {
	return e.maxRows
}

func (e *Extension) SetProperties(props plugin.Properties) error {
	maxRows, err := props.Int(propertyMaxRows, e.maxRows)
	if err != nil {
		return err
	}

	if maxRows <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", plugin.ErrInvalidProperty, propertyMaxRows, maxRows)
	}

	e.maxRows = maxRows

	return e.Base.SetProperties(props)
}

func (e *Extension) Wrap(target any) (any, error) {
	return plugin.Wrap(target, e)
}

func (e *Extension) Intercept(inv *plugin.Invocation) (any, error) {
	bounds, err := plugin.ArgAs[sqlengine.RowBounds](inv, boundsArg)
	if err != nil {
		return nil, err
	}

	if bounds.Limit > e.maxRows {
		if err := inv.SetArg(boundsArg, sqlengine.NewRowBounds(bounds.Offset, e.maxRows)); err != nil {
			return nil, err
		}
	}

	return inv.Proceed()
}
