package dataview

import (
	"github.com/pulsarml/pulsar/pkg/errors"
)

// View is an immutable tabular view: a schema plus row-addressable values.
// Value types by column shape:
//
//	text scalar   string
//	text vector   []string
//	float scalar  float32
//	float vector  []float32
//
// A stage never mutates a view in place; it wraps it in a new one.
type View interface {
	Schema() *Schema
	RowCount() int
	// Value returns the value of the named column at the given row.
	Value(row int, col string) (interface{}, error)
}

// MemoryView is a fully materialized view backed by in-memory columns.
type MemoryView struct {
	schema *Schema
	cols   map[string][]interface{}
	rows   int
}

// NewMemoryView creates a materialized view. Every schema column must be
// present in cols with exactly rows values.
func NewMemoryView(schema *Schema, cols map[string][]interface{}) (*MemoryView, error) {
	rows := -1
	for _, c := range schema.Columns() {
		vals, ok := cols[c.Name]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeSchema, "column %q has no data", c.Name)
		}
		if rows == -1 {
			rows = len(vals)
		} else if len(vals) != rows {
			return nil, errors.Newf(errors.ErrorTypeSchema,
				"column %q has %d rows, expected %d", c.Name, len(vals), rows)
		}
	}
	if rows == -1 {
		rows = 0
	}
	return &MemoryView{schema: schema, cols: cols, rows: rows}, nil
}

// Empty creates a zero-row view carrying only a schema. Used as the
// placeholder root when loading a persisted chain and when projecting
// output shapes without data.
func Empty(schema *Schema) *MemoryView {
	return &MemoryView{schema: schema, cols: map[string][]interface{}{}}
}

// Schema returns the view's schema
func (v *MemoryView) Schema() *Schema { return v.schema }

// RowCount returns the number of rows
func (v *MemoryView) RowCount() int { return v.rows }

// Value returns the value at (row, col)
func (v *MemoryView) Value(row int, col string) (interface{}, error) {
	vals, ok := v.cols[col]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeSchema, "column %q not found", col)
	}
	if row < 0 || row >= v.rows {
		return nil, errors.Newf(errors.ErrorTypeData, "row %d out of range [0,%d)", row, v.rows)
	}
	return vals[row], nil
}

// derivedView exposes an upstream view plus computed columns. Added
// column values are produced per row by a mapper over the upstream row.
type derivedView struct {
	up     View
	schema *Schema
	added  map[string]struct{}
	mapper RowMapper
}

// Derive returns a view exposing up's columns plus the added columns.
// mapper receives the full upstream row and must return a row containing
// a value for every added column.
func Derive(up View, added []Column, mapper RowMapper) (View, error) {
	schema, err := up.Schema().Append(added...)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(added))
	for _, c := range added {
		set[c.Name] = struct{}{}
	}
	return &derivedView{up: up, schema: schema, added: set, mapper: mapper}, nil
}

func (v *derivedView) Schema() *Schema { return v.schema }
func (v *derivedView) RowCount() int { return v.up.RowCount() }

func (v *derivedView) Value(row int, col string) (interface{}, error) {
	if _, computed := v.added[col]; !computed {
		return v.up.Value(row, col)
	}
	in, err := RowAt(v.up, row)
	if err != nil {
		return nil, err
	}
	out, err := v.mapper(in)
	if err != nil {
		return nil, err
	}
	val, ok := out[col]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "mapper produced no value for column %q", col)
	}
	return val, nil
}

// droppedView hides named columns of an upstream view.
type droppedView struct {
	up     View
	schema *Schema
}

// DropColumns returns a view hiding the named columns.
func DropColumns(up View, names ...string) View {
	return &droppedView{up: up, schema: up.Schema().Without(names...)}
}

func (v *droppedView) Schema() *Schema { return v.schema }
func (v *droppedView) RowCount() int { return v.up.RowCount() }

func (v *droppedView) Value(row int, col string) (interface{}, error) {
	if !v.schema.Has(col) {
		return nil, errors.Newf(errors.ErrorTypeSchema, "column %q not found", col)
	}
	return v.up.Value(row, col)
}

// Materialize copies every visible column of a view into a MemoryView.
func Materialize(v View) (*MemoryView, error) {
	cols := make(map[string][]interface{}, v.Schema().Len())
	for _, c := range v.Schema().Columns() {
		vals := make([]interface{}, v.RowCount())
		for i := 0; i < v.RowCount(); i++ {
			val, err := v.Value(i, c.Name)
			if err != nil {
				return nil, err
			}
			vals[i] = val
		}
		cols[c.Name] = vals
	}
	return NewMemoryView(v.Schema(), cols)
}
