package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/testutil"
)

func TestWordTokenizerSplitsOnWhitespace(t *testing.T) {
	up := testutil.TextView(t, map[string][]string{
		"text": {"  hello   world ", "one", ""},
	})

	stage, err := NewWordTokenizer(up, []ColumnPair{{Input: "text", Output: "tokens"}})
	require.NoError(t, err)
	out := stage.Output()

	col, ok := out.Schema().Lookup("tokens")
	require.True(t, ok)
	assert.True(t, col.Vector)
	assert.True(t, col.Variable)

	val, err := out.Value(0, "tokens")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, val)

	val, err = out.Value(1, "tokens")
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, val)

	val, err = out.Value(2, "tokens")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestWordTokenizerExtraSeparators(t *testing.T) {
	up := testutil.TextView(t, map[string][]string{
		"text": {"a,b c"},
	})

	stage, err := newWordTokenizer(up, wordTokenizeParams{
		Pairs:      []ColumnPair{{Input: "text", Output: "tokens"}},
		Separators: ",",
	})
	require.NoError(t, err)

	val, err := stage.Output().Value(0, "tokens")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, val)
}

func TestWordTokenizerFlattensVectorInput(t *testing.T) {
	schema := dataview.MustSchema(
		dataview.Column{Name: "parts", Type: dataview.TypeText, Vector: true, Variable: true},
	)
	up, err := dataview.NewMemoryView(schema, map[string][]interface{}{
		"parts": {[]string{"one two", "three"}},
	})
	require.NoError(t, err)

	stage, err := NewWordTokenizer(up, []ColumnPair{{Input: "parts", Output: "tokens"}})
	require.NoError(t, err)

	val, err := stage.Output().Value(0, "tokens")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, val)
}

func TestCharTokenizerWrapsUnits(t *testing.T) {
	up := testutil.TextView(t, map[string][]string{
		"text": {"ab"},
	})

	stage, err := NewCharTokenizer(up, []ColumnPair{{Input: "text", Output: "chars"}})
	require.NoError(t, err)

	val, err := stage.Output().Value(0, "chars")
	require.NoError(t, err)
	assert.Equal(t, []string{charUnitStart, "a", "b", charUnitEnd}, val)
}

func TestCharTokenizerMarksEveryVectorUnit(t *testing.T) {
	schema := dataview.MustSchema(
		dataview.Column{Name: "tokens", Type: dataview.TypeText, Vector: true, Variable: true},
	)
	up, err := dataview.NewMemoryView(schema, map[string][]interface{}{
		"tokens": {[]string{"ab", "c"}},
	})
	require.NoError(t, err)

	stage, err := NewCharTokenizer(up, []ColumnPair{{Input: "tokens", Output: "chars"}})
	require.NoError(t, err)

	val, err := stage.Output().Value(0, "chars")
	require.NoError(t, err)
	assert.Equal(t, []string{
		charUnitStart, "a", "b", charUnitEnd,
		charUnitStart, "c", charUnitEnd,
	}, val)
}

func TestTokenizerRequiresTextInput(t *testing.T) {
	up := testutil.TextView(t, map[string][]string{"text": {"x"}})

	_, err := NewWordTokenizer(up, []ColumnPair{{Input: "missing", Output: "tokens"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	_, err = NewCharTokenizer(up, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
