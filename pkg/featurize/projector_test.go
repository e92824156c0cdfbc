package featurize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/stages"
	"github.com/pulsarml/pulsar/pkg/testutil"
)

func inputSchema() *dataview.Schema {
	return dataview.MustSchema(
		dataview.Column{Name: "Title", Type: dataview.TypeText},
		dataview.Column{Name: "Body", Type: dataview.TypeText},
	)
}

func TestProjectOutputSchemaLearnedGrams(t *testing.T) {
	schema, err := ProjectOutputSchema(DefaultOptions("Features", "Title", "Body"), inputSchema())
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "Body", "Features"}, schema.Names())

	col, ok := schema.Lookup("Features")
	require.True(t, ok)
	assert.Equal(t, dataview.TypeFloat, col.Type)
	assert.True(t, col.Vector)
	// Learned vocabularies have no size until fit time.
	assert.Equal(t, 0, col.Size)
	require.NotNil(t, col.Metadata)
	assert.True(t, col.Metadata.IsNormalized)
}

func TestProjectOutputSchemaHashedGramsHaveExactSize(t *testing.T) {
	opts := Options{
		OutputColumn: "Features",
		InputColumns: []string{"Title", "Body"},
		Case:         stages.CaseLower,
		WordGrams:    &GramOptions{Length: 1, Hashing: true, HashBits: 4},
		CharGrams:    &GramOptions{Length: 3, Hashing: true, HashBits: 5},
	}
	schema, err := ProjectOutputSchema(opts, inputSchema())
	require.NoError(t, err)

	col, _ := schema.Lookup("Features")
	assert.Equal(t, 16+32, col.Size)
	assert.False(t, col.Metadata.IsNormalized, "no norm configured")
}

func TestProjectOutputSchemaTokenColumn(t *testing.T) {
	opts := DefaultOptions("Features", "Title")
	opts.OutputTokens = true

	schema, err := ProjectOutputSchema(opts, inputSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Body", "Features", "Features_TransformedText"}, schema.Names())

	col, _ := schema.Lookup("Features_TransformedText")
	assert.Equal(t, dataview.TypeText, col.Type)
	assert.True(t, col.Vector)
	assert.True(t, col.Variable)
}

func TestProjectOutputSchemaErrors(t *testing.T) {
	_, err := ProjectOutputSchema(DefaultOptions("Features", "Missing"), inputSchema())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	bad := DefaultOptions("", "Title")
	_, err = ProjectOutputSchema(bad, inputSchema())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestProjectionAgreesWithFittedPipeline(t *testing.T) {
	input := testutil.TextView(t, map[string][]string{
		"Title": {"Alpha Beta"},
		"Body":  {"gamma delta"},
	})
	opts := Options{
		OutputColumn: "Features",
		InputColumns: []string{"Title", "Body"},
		Case:         stages.CaseLower,
		OutputTokens: true,
		WordGrams:    &GramOptions{Length: 1, Hashing: true, HashBits: 6},
		Norm:         stages.NormL2,
	}

	projected, err := ProjectOutputSchema(opts, input.Schema())
	require.NoError(t, err)

	pipeline, err := Fit(opts, input)
	require.NoError(t, err)
	out, err := pipeline.Transform(input)
	require.NoError(t, err)

	assert.ElementsMatch(t, projected.Names(), out.Schema().Names())

	want, _ := out.Schema().Lookup("Features")
	got, _ := projected.Lookup("Features")
	assert.Equal(t, want.Size, got.Size, "hash-only projection is exact")
}
