package table

import (
	"errors"
	"strings"
)

// ErrFieldNotFound is returned when a cursor is requested for a field the table does not have
var ErrFieldNotFound = errors.New("field not found")

// AllFields selects every field of a table when passed to Update
const AllFields = "*"

// Kind is the storage type of a field
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

// Field describes one attribute column
type Field struct {
	Name      string
	Kind      Kind
	Size      uint8
	Precision uint8
}

// Record is one row of a Frame
type Record struct {
	Values  []interface{}
	Handle  interface{} // backend specific: shape geometry, primary key
	Deleted bool
	Dirty   bool
}

// Frame is an in-memory snapshot of a table
type Frame struct {
	Fields  []Field
	Records []*Record
}

// FieldIndex returns the index of a field, matched case-insensitively, or -1
func (f *Frame) FieldIndex(name string) int {
	for i, field := range f.Fields {
		if strings.EqualFold(field.Name, name) {
			return i
		}
	}
	return -1
}

// Live returns the records that are not marked deleted
func (f *Frame) Live() []*Record {
	out := make([]*Record, 0, len(f.Records))
	for _, r := range f.Records {
		if !r.Deleted {
			out = append(out, r)
		}
	}
	return out
}

// Dataset is a tabular resource that can be loaded and persisted as a whole
type Dataset interface {
	Name() string
	Load() (*Frame, error)
	Save(frame *Frame) error
}
