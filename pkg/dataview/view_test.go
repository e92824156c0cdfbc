package dataview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	_, err := NewSchema(
		Column{Name: "a", Type: TypeText},
		Column{Name: "a", Type: TypeText},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSchemaLookupAndWithout(t *testing.T) {
	s := MustSchema(
		Column{Name: "a", Type: TypeText},
		Column{Name: "b", Type: TypeFloat, Vector: true, Size: 4},
		Column{Name: "c", Type: TypeText, Vector: true, Variable: true},
	)

	col, ok := s.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, TypeFloat, col.Type)
	assert.Equal(t, 4, col.Size)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)

	trimmed := s.Without("b")
	assert.Equal(t, []string{"a", "c"}, trimmed.Names())
	assert.True(t, s.Has("b"), "Without must not mutate the receiver")
}

func TestSchemaAppendRejectsCollision(t *testing.T) {
	s := MustSchema(Column{Name: "a", Type: TypeText})
	_, err := s.Append(Column{Name: "a", Type: TypeFloat})
	require.Error(t, err)
}

func TestMemoryViewValidatesLengths(t *testing.T) {
	s := MustSchema(
		Column{Name: "a", Type: TypeText},
		Column{Name: "b", Type: TypeText},
	)

	_, err := NewMemoryView(s, map[string][]interface{}{
		"a": {"x", "y"},
		"b": {"z"},
	})
	require.Error(t, err)

	_, err = NewMemoryView(s, map[string][]interface{}{"a": {"x"}})
	require.Error(t, err, "missing column data")

	v, err := NewMemoryView(s, map[string][]interface{}{
		"a": {"x", "y"},
		"b": {"z", "w"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.RowCount())

	val, err := v.Value(1, "b")
	require.NoError(t, err)
	assert.Equal(t, "w", val)

	_, err = v.Value(2, "b")
	assert.Error(t, err)
	_, err = v.Value(0, "missing")
	assert.Error(t, err)
}

func TestDeriveComputesAddedColumns(t *testing.T) {
	s := MustSchema(Column{Name: "text", Type: TypeText})
	up, err := NewMemoryView(s, map[string][]interface{}{
		"text": {"hello", "world"},
	})
	require.NoError(t, err)

	derived, err := Derive(up,
		[]Column{{Name: "upper", Type: TypeText}},
		func(row Row) (Row, error) {
			out := row.Clone()
			out["upper"] = row["text"].(string) + "!"
			return out, nil
		})
	require.NoError(t, err)

	assert.Equal(t, 2, derived.RowCount())
	assert.Equal(t, []string{"text", "upper"}, derived.Schema().Names())

	val, err := derived.Value(0, "upper")
	require.NoError(t, err)
	assert.Equal(t, "hello!", val)

	// Upstream columns pass through untouched.
	val, err = derived.Value(1, "text")
	require.NoError(t, err)
	assert.Equal(t, "world", val)
}

func TestDropColumnsHidesValues(t *testing.T) {
	s := MustSchema(
		Column{Name: "keep", Type: TypeText},
		Column{Name: "drop", Type: TypeText},
	)
	up, err := NewMemoryView(s, map[string][]interface{}{
		"keep": {"a"},
		"drop": {"b"},
	})
	require.NoError(t, err)

	v := DropColumns(up, "drop")
	assert.Equal(t, []string{"keep"}, v.Schema().Names())

	_, err = v.Value(0, "drop")
	assert.Error(t, err)

	val, err := v.Value(0, "keep")
	require.NoError(t, err)
	assert.Equal(t, "a", val)
}

func TestComposeMappers(t *testing.T) {
	inc := func(key string) RowMapper {
		return func(row Row) (Row, error) {
			out := row.Clone()
			out[key] = out["n"].(int) + 1
			out["n"] = out[key]
			return out, nil
		}
	}
	m := ComposeMappers(inc("a"), inc("b"))

	out, err := m(Row{"n": 0})
	require.NoError(t, err)
	assert.Equal(t, 1, out["a"])
	assert.Equal(t, 2, out["b"])
}

func TestMaterializeCopiesDerivedView(t *testing.T) {
	s := MustSchema(Column{Name: "x", Type: TypeText})
	up, err := NewMemoryView(s, map[string][]interface{}{"x": {"1", "2"}})
	require.NoError(t, err)

	derived, err := Derive(up,
		[]Column{{Name: "y", Type: TypeText}},
		func(row Row) (Row, error) {
			out := row.Clone()
			out["y"] = row["x"]
			return out, nil
		})
	require.NoError(t, err)

	mat, err := Materialize(derived)
	require.NoError(t, err)
	assert.Equal(t, derived.Schema().Names(), mat.Schema().Names())

	val, err := mat.Value(1, "y")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}

func TestEmptyView(t *testing.T) {
	s := MustSchema(Column{Name: "a", Type: TypeText})
	v := Empty(s)
	assert.Equal(t, 0, v.RowCount())
	assert.Equal(t, s, v.Schema())
}
