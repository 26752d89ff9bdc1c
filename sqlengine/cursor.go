package sqlengine

import (
	"errors"
)

// Cursor is a lazy, single-pass view over a result set.
// It must be consumed by the goroutine that produced it.
type Cursor interface {
	Next() bool
	Value() any
	Err() error
	Close() error
	IsOpen() bool
	IsConsumed() bool
	CurrentIndex() int
}

// RowMapper maps the current row of rows to a result value.
type RowMapper func(rows Rows) (any, error)

type cursorState int

const (
	cursorOpen cursorState = iota
	cursorConsumed
	cursorClosed
)

type rowsCursor struct {
	rows    Rows
	mapRow  RowMapper
	bounds  RowBounds
	skipped bool
	index   int
	current any
	err     error
	state   cursorState
}

// NewRowsCursor creates a Cursor reading rows within bounds.
func NewRowsCursor(rows Rows, mapRow RowMapper, bounds RowBounds) Cursor {
	return &rowsCursor{
		rows:   rows,
		mapRow: mapRow,
		bounds: bounds,
		index:  -1,
	}
}

func (c *rowsCursor) Next() bool {
	if c.state != cursorOpen {
		return false
	}

	if !c.skipped {
		c.skipped = true
		for i := 0; i < c.bounds.Offset; i++ {
			if !c.rows.Next() {
				c.finish(c.rows.Err())
				return false
			}
		}
	}

	if c.index+1 >= c.bounds.Limit || !c.rows.Next() {
		c.finish(c.rows.Err())
		return false
	}

	value, err := c.mapRow(c.rows)
	if err != nil {
		c.finish(errors.Join(ErrMappingResultFailed, err))
		return false
	}

	c.index++
	c.current = value

	return true
}

func (c *rowsCursor) Value() any {
	return c.current
}

func (c *rowsCursor) Err() error {
	return c.err
}

func (c *rowsCursor) Close() error {
	if c.state == cursorClosed {
		return nil
	}

	c.state = cursorClosed
	c.current = nil

	return c.rows.Close()
}

func (c *rowsCursor) IsOpen() bool {
	return c.state == cursorOpen
}

func (c *rowsCursor) IsConsumed() bool {
	return c.state == cursorConsumed
}

func (c *rowsCursor) CurrentIndex() int {
	return c.index
}

func (c *rowsCursor) finish(err error) {
	c.current = nil
	c.state = cursorConsumed

	if closeErr := c.rows.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	c.err = err
}

// CollectCursor drains and closes c.
func CollectCursor(c Cursor) ([]any, error) {
	results := make([]any, 0)
	for c.Next() {
		results = append(results, c.Value())
	}

	return results, errors.Join(c.Err(), c.Close())
}
