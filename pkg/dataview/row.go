package dataview

// Row is one materialized row keyed by column name.
type Row map[string]interface{}

// RowMapper maps one row to another. Stage mappers extend the input row
// with their output columns; a drop mapper removes keys. Mappers must not
// mutate the input row.
type RowMapper func(Row) (Row, error)

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RowAt materializes row i of a view.
func RowAt(v View, i int) (Row, error) {
	row := make(Row, v.Schema().Len())
	for _, c := range v.Schema().Columns() {
		val, err := v.Value(i, c.Name)
		if err != nil {
			return nil, err
		}
		row[c.Name] = val
	}
	return row, nil
}

// ComposeMappers chains mappers in order, feeding each one's output row
// to the next.
func ComposeMappers(mappers ...RowMapper) RowMapper {
	return func(row Row) (Row, error) {
		cur := row
		var err error
		for _, m := range mappers {
			cur, err = m(cur)
			if err != nil {
				return nil, err
			}
		}
		return cur, nil
	}
}
