package table

import "fmt"

// UpdateCursor iterates the rows of a Frame and allows in-place edits
type UpdateCursor struct {
	frame *Frame
	field int // -1 when every field is selected
	pos   int
}

func newUpdateCursor(frame *Frame, field int) *UpdateCursor {
	return &UpdateCursor{frame: frame, field: field, pos: -1}
}

// Next advances to the next live row
func (c *UpdateCursor) Next() bool {
	for c.pos+1 < len(c.frame.Records) {
		c.pos++
		if !c.frame.Records[c.pos].Deleted {
			return true
		}
	}
	return false
}

func (c *UpdateCursor) current() *Record {
	if c.pos < 0 || c.pos >= len(c.frame.Records) {
		panic("table: cursor is not positioned on a row")
	}
	return c.frame.Records[c.pos]
}

// Value returns the selected field of the current row
func (c *UpdateCursor) Value() interface{} {
	if c.field < 0 {
		return nil
	}
	return c.current().Values[c.field]
}

// Get returns a named field of the current row
func (c *UpdateCursor) Get(name string) (interface{}, bool) {
	idx := c.frame.FieldIndex(name)
	if idx < 0 {
		return nil, false
	}
	return c.current().Values[idx], true
}

// Set changes a named field of the current row
func (c *UpdateCursor) Set(name string, value interface{}) error {
	idx := c.frame.FieldIndex(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, name)
	}
	rec := c.current()
	rec.Values[idx] = value
	rec.Dirty = true
	return nil
}

// Fields returns the table's fields
func (c *UpdateCursor) Fields() []Field {
	return c.frame.Fields
}

// UpdateRow writes value into the selected field of the current row
func (c *UpdateCursor) UpdateRow(value interface{}) {
	rec := c.current()
	if c.field >= 0 {
		rec.Values[c.field] = value
	}
	rec.Dirty = true
}

// DeleteRow removes the current row
func (c *UpdateCursor) DeleteRow() {
	c.current().Deleted = true
}

// Update opens an update cursor on field of ds, runs fn and persists the
// edits when fn returns nil. Nothing is written when the field is missing or
// fn fails.
func Update(ds Dataset, field string, fn func(c *UpdateCursor) error) error {
	frame, err := ds.Load()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", ds.Name(), err)
	}

	idx := -1
	if field != AllFields {
		idx = frame.FieldIndex(field)
		if idx < 0 {
			return fmt.Errorf("%w: %s in %s", ErrFieldNotFound, field, ds.Name())
		}
	}

	if err := fn(newUpdateCursor(frame, idx)); err != nil {
		return err
	}

	if err := ds.Save(frame); err != nil {
		return fmt.Errorf("failed to save %s: %w", ds.Name(), err)
	}
	return nil
}
