// Package dataview provides the immutable tabular-view abstraction that
// feature pipelines are assembled over. A view is a column schema plus
// row-addressable values; derived views wrap an upstream view and add or
// hide columns without copying data.
package dataview

import (
	"github.com/pulsarml/pulsar/pkg/errors"
)

// ItemType represents the item type of a column
type ItemType int

const (
	// TypeText is a UTF-8 text item
	TypeText ItemType = iota
	// TypeFloat is a 32-bit floating point item
	TypeFloat
)

// String returns a human-readable item type name
func (t ItemType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Metadata carries optional column annotations used by downstream
// consumers of a pipeline's output.
type Metadata struct {
	// SlotNames names each slot of a fixed-size vector column
	SlotNames []string `json:"slot_names,omitempty"`
	// IsNormalized marks a float vector that has been Lp-rescaled
	IsNormalized bool `json:"is_normalized,omitempty"`
}

// Column describes a single column: name, item type, and shape.
type Column struct {
	// Name is the column identifier
	Name string `json:"name"`
	// Type is the item type of the column's values
	Type ItemType `json:"type"`
	// Vector indicates the column holds a vector of items per row
	Vector bool `json:"vector,omitempty"`
	// Variable marks a vector column whose length varies per row
	Variable bool `json:"variable,omitempty"`
	// Size is the fixed vector length; zero for scalar and variable columns
	Size int `json:"size,omitempty"`
	// Metadata carries optional annotations
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Schema is an ordered, immutable set of columns with name lookup.
type Schema struct {
	cols  []Column
	index map[string]int
}

// NewSchema creates a schema from the given columns in order. Duplicate
// column names return an error.
func NewSchema(cols ...Column) (*Schema, error) {
	s := &Schema{
		cols:  make([]Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	copy(s.cols, cols)
	for i, c := range cols {
		if _, dup := s.index[c.Name]; dup {
			return nil, errors.Newf(errors.ErrorTypeSchema, "duplicate column %q", c.Name)
		}
		s.index[c.Name] = i
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for static schemas in tests.
func MustSchema(cols ...Column) *Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns
func (s *Schema) Len() int { return len(s.cols) }

// Column returns the column at position i
func (s *Schema) Column(i int) Column { return s.cols[i] }

// Columns returns a copy of the column list
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Names returns the column names in order
func (s *Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Name
	}
	return out
}

// Lookup returns the column with the given name
func (s *Schema) Lookup(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.cols[i], true
}

// Has reports whether a column with the given name exists
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Append returns a new schema with the given columns added at the end
func (s *Schema) Append(cols ...Column) (*Schema, error) {
	all := make([]Column, 0, len(s.cols)+len(cols))
	all = append(all, s.cols...)
	all = append(all, cols...)
	return NewSchema(all...)
}

// Without returns a new schema hiding the named columns. Unknown names
// are ignored since a drop is a projection, not a requirement.
func (s *Schema) Without(names ...string) *Schema {
	hide := make(map[string]struct{}, len(names))
	for _, n := range names {
		hide[n] = struct{}{}
	}
	kept := make([]Column, 0, len(s.cols))
	for _, c := range s.cols {
		if _, drop := hide[c.Name]; !drop {
			kept = append(kept, c)
		}
	}
	out, _ := NewSchema(kept...) // kept names were already unique
	return out
}
