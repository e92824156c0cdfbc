package featurize

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
	"github.com/pulsarml/pulsar/pkg/stages"
	"github.com/pulsarml/pulsar/pkg/testutil"
)

func trainView(t *testing.T) dataview.View {
	return testutil.TextView(t, map[string][]string{
		"Title": {"Go Pipelines", "Data Views"},
		"Body":  {"fast and simple", "lazy columns win"},
	})
}

func featureVector(t *testing.T, v dataview.View, row int, col string) []float32 {
	t.Helper()
	val, err := v.Value(row, col)
	require.NoError(t, err)
	vec, ok := val.([]float32)
	require.True(t, ok, "column %q is not a float vector", col)
	return vec
}

func TestFitDefaultTitleBody(t *testing.T) {
	input := trainView(t)
	pipeline, err := Fit(DefaultOptions("Features", "Title", "Body"), input)
	require.NoError(t, err)
	assert.Equal(t, "Features", pipeline.OutputColumn())

	out, err := pipeline.Transform(input)
	require.NoError(t, err)

	// Every temp column is dropped; only the inputs and the feature
	// column survive.
	assert.Equal(t, []string{"Body", "Title", "Features"}, out.Schema().Names())

	col, ok := out.Schema().Lookup("Features")
	require.True(t, ok)
	assert.Equal(t, dataview.TypeFloat, col.Type)
	assert.True(t, col.Vector)
	require.NotNil(t, col.Metadata)
	assert.True(t, col.Metadata.IsNormalized)
	require.NotEmpty(t, col.Metadata.SlotNames)

	// Both extractors ran, so every slot is tagged with its segment.
	var wordSlots, charSlots int
	for _, slot := range col.Metadata.SlotNames {
		switch {
		case strings.HasPrefix(slot, "Word."):
			wordSlots++
		case strings.HasPrefix(slot, "Char."):
			charSlots++
		default:
			t.Fatalf("slot %q carries no segment tag", slot)
		}
	}
	assert.Positive(t, wordSlots)
	assert.Positive(t, charSlots)
	assert.Len(t, col.Metadata.SlotNames, col.Size)

	// Each segment is L2-rescaled independently.
	vec := featureVector(t, out, 0, "Features")
	require.Len(t, vec, col.Size)
	var wordNorm, charNorm float64
	for i, slot := range col.Metadata.SlotNames {
		sq := float64(vec[i]) * float64(vec[i])
		if strings.HasPrefix(slot, "Word.") {
			wordNorm += sq
		} else {
			charNorm += sq
		}
	}
	assert.InDelta(t, 1.0, math.Sqrt(wordNorm), 1e-5)
	assert.InDelta(t, 1.0, math.Sqrt(charNorm), 1e-5)
}

func TestFitNoFeatureSink(t *testing.T) {
	opts := Options{
		OutputColumn: "Features",
		InputColumns: []string{"Title"},
		Case:         stages.CaseLower,
	}
	_, err := Fit(opts, trainView(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "feature sink")
}

func TestFitMissingInputColumn(t *testing.T) {
	_, err := Fit(DefaultOptions("Features", "Missing"), trainView(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	assert.Contains(t, err.Error(), `"Missing"`)
}

func TestFitRejectsOccupiedOutputColumn(t *testing.T) {
	input := testutil.TextView(t, map[string][]string{
		"Text":     {"x"},
		"Features": {"occupied"},
	})
	_, err := Fit(DefaultOptions("Features", "Text"), input)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestTempNamesAvoidExistingColumns(t *testing.T) {
	// A user column squatting on a would-be temp name must survive
	// untouched; the temp takes a suffixed name and is dropped as usual.
	input := testutil.TextView(t, map[string][]string{
		"text":               {"alpha beta"},
		"Features_WordGrams": {"keep me"},
	})
	opts := Options{
		OutputColumn:    "Features",
		InputColumns:    []string{"text"},
		Case:            stages.CaseNone,
		KeepDiacritics:  true,
		KeepPunctuation: true,
		KeepNumbers:     true,
		WordGrams:       &GramOptions{Length: 1},
	}

	pipeline, err := Fit(opts, input)
	require.NoError(t, err)
	out, err := pipeline.Transform(input)
	require.NoError(t, err)

	assert.Equal(t, []string{"Features_WordGrams", "text", "Features"}, out.Schema().Names())
	val, err := out.Value(0, "Features_WordGrams")
	require.NoError(t, err)
	assert.Equal(t, "keep me", val)
}

func TestOutputTokens(t *testing.T) {
	input := testutil.TextView(t, map[string][]string{
		"Text": {"The quick Fox"},
	})
	opts := Options{
		OutputColumn:    "Features",
		InputColumns:    []string{"Text"},
		Language:        "english",
		Case:            stages.CaseLower,
		KeepDiacritics:  true,
		KeepPunctuation: true,
		KeepNumbers:     true,
		OutputTokens:    true,
		StopWords:       &StopWordsOptions{},
		WordGrams:       &GramOptions{Length: 1},
	}

	pipeline, err := Fit(opts, input)
	require.NoError(t, err)
	out, err := pipeline.Transform(input)
	require.NoError(t, err)

	assert.Equal(t, []string{"Text", "Features_TransformedText", "Features"}, out.Schema().Names())

	val, err := out.Value(0, "Features_TransformedText")
	require.NoError(t, err)
	assert.Equal(t, []string{"quick", "fox"}, val, "lowercased, stop words removed")
}

func TestTokensOnlyPipeline(t *testing.T) {
	input := testutil.TextView(t, map[string][]string{"Text": {"One Two"}})
	opts := Options{
		OutputColumn:    "Features",
		InputColumns:    []string{"Text"},
		Case:            stages.CaseLower,
		KeepDiacritics:  true,
		KeepPunctuation: true,
		KeepNumbers:     true,
		OutputTokens:    true,
	}

	pipeline, err := Fit(opts, input)
	require.NoError(t, err)
	out, err := pipeline.Transform(input)
	require.NoError(t, err)

	// No extractor configured: the token column is the only output.
	assert.Equal(t, []string{"Text", "Features_TransformedText"}, out.Schema().Names())
	val, err := out.Value(0, "Features_TransformedText")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, val)
}

func TestSaveLoadTransformRoundTrip(t *testing.T) {
	train := trainView(t)
	test := testutil.TextView(t, map[string][]string{
		"Title": {"New Title", "Another One"},
		"Body":  {"unseen body text", "fast lazy columns"},
	})

	opts := DefaultOptions("Features", "Title", "Body")
	opts.OutputTokens = true

	fitted, err := Fit(opts, train)
	require.NoError(t, err)

	save := map[string]func(*FittedPipeline, *bytes.Buffer) error{
		"plain":      func(p *FittedPipeline, b *bytes.Buffer) error { return p.Save(b) },
		"compressed": func(p *FittedPipeline, b *bytes.Buffer) error { return p.SaveCompressed(b) },
	}
	for name, fn := range save {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, fn(fitted, &buf))

			loaded, err := Load(&buf)
			require.NoError(t, err)
			assert.Equal(t, "Features", loaded.OutputColumn())

			wantView, err := fitted.Transform(test)
			require.NoError(t, err)
			gotView, err := loaded.Transform(test)
			require.NoError(t, err)

			assert.Equal(t, wantView.Schema().Names(), gotView.Schema().Names())
			for i := 0; i < test.RowCount(); i++ {
				want, err := dataview.RowAt(wantView, i)
				require.NoError(t, err)
				got, err := dataview.RowAt(gotView, i)
				require.NoError(t, err)
				assert.Equal(t, want, got, "row %d", i)
			}
		})
	}
}

func TestTransformIgnoresColumnOrder(t *testing.T) {
	pipeline, err := Fit(DefaultOptions("Features", "Title", "Body"), trainView(t))
	require.NoError(t, err)

	data := map[string][]interface{}{
		"Title": {"Some Title"},
		"Body":  {"some body text"},
	}
	forward, err := dataview.NewMemoryView(dataview.MustSchema(
		dataview.Column{Name: "Title", Type: dataview.TypeText},
		dataview.Column{Name: "Body", Type: dataview.TypeText},
	), data)
	require.NoError(t, err)
	reversed, err := dataview.NewMemoryView(dataview.MustSchema(
		dataview.Column{Name: "Body", Type: dataview.TypeText},
		dataview.Column{Name: "Title", Type: dataview.TypeText},
	), data)
	require.NoError(t, err)

	a, err := pipeline.Transform(forward)
	require.NoError(t, err)
	b, err := pipeline.Transform(reversed)
	require.NoError(t, err)

	assert.Equal(t,
		featureVector(t, a, 0, "Features"),
		featureVector(t, b, 0, "Features"),
		"rebinding is by column name, not position")
}

func TestTransformMissingColumnFails(t *testing.T) {
	pipeline, err := Fit(DefaultOptions("Features", "Title", "Body"), trainView(t))
	require.NoError(t, err)

	_, err = pipeline.Transform(testutil.TextView(t, map[string][]string{
		"Title": {"only a title"},
	}))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestFitDeterministic(t *testing.T) {
	input := trainView(t)
	opts := DefaultOptions("Features", "Title", "Body")

	first, err := Fit(opts, input)
	require.NoError(t, err)
	second, err := Fit(opts, input)
	require.NoError(t, err)

	a, err := first.Transform(input)
	require.NoError(t, err)
	b, err := second.Transform(input)
	require.NoError(t, err)

	colA, _ := a.Schema().Lookup("Features")
	colB, _ := b.Schema().Lookup("Features")
	assert.Equal(t, colA.Metadata.SlotNames, colB.Metadata.SlotNames)
	assert.Equal(t,
		featureVector(t, a, 0, "Features"),
		featureVector(t, b, 0, "Features"))
}

func TestOutputSchemaMatchesTransform(t *testing.T) {
	input := trainView(t)
	pipeline, err := Fit(DefaultOptions("Features", "Title", "Body"), input)
	require.NoError(t, err)

	schema, err := pipeline.OutputSchema(input.Schema())
	require.NoError(t, err)

	out, err := pipeline.Transform(input)
	require.NoError(t, err)
	assert.Equal(t, out.Schema().Names(), schema.Names())

	want, _ := out.Schema().Lookup("Features")
	got, _ := schema.Lookup("Features")
	assert.Equal(t, want.Size, got.Size)
}

func TestAsRowMapper(t *testing.T) {
	input := trainView(t)
	pipeline, err := Fit(DefaultOptions("Features", "Title", "Body"), input)
	require.NoError(t, err)

	mapper, err := pipeline.AsRowMapper(input.Schema())
	require.NoError(t, err)

	in, err := dataview.RowAt(input, 0)
	require.NoError(t, err)
	row, err := mapper(in)
	require.NoError(t, err)

	// The mapped row carries exactly the output schema's columns; every
	// temp key the chain created has been removed again.
	assert.Len(t, row, 3)
	assert.Contains(t, row, "Title")
	assert.Contains(t, row, "Body")
	require.Contains(t, row, "Features")

	out, err := pipeline.Transform(input)
	require.NoError(t, err)
	assert.Equal(t, featureVector(t, out, 0, "Features"), row["Features"])
}

func TestLoadRejectsForeignStore(t *testing.T) {
	var buf bytes.Buffer
	w, err := modelstore.NewWriter(&buf, false)
	require.NoError(t, err)
	require.NoError(t, w.WriteBlock("NotSchema", verChain, struct{}{}))
	require.NoError(t, w.Close())

	_, err = Load(&buf)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
}

func TestLoadRejectsNewerChainVersion(t *testing.T) {
	var buf bytes.Buffer
	w, err := modelstore.NewWriter(&buf, false)
	require.NoError(t, err)
	tooNew := modelstore.Version{Written: 99, Readable: 99, MinReadable: 99}
	require.NoError(t, w.WriteBlock(chainSchemaBlock, tooNew, []dataview.Column{}))
	require.NoError(t, w.Close())

	_, err = Load(&buf)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
}

func TestCustomStopWordsThroughOptions(t *testing.T) {
	input := testutil.TextView(t, map[string][]string{
		"Text": {"foo bar baz"},
	})
	opts := Options{
		OutputColumn:    "Features",
		InputColumns:    []string{"Text"},
		Case:            stages.CaseNone,
		KeepDiacritics:  true,
		KeepPunctuation: true,
		KeepNumbers:     true,
		OutputTokens:    true,
		StopWords:       &StopWordsOptions{Custom: []string{"bar"}},
	}

	pipeline, err := Fit(opts, input)
	require.NoError(t, err)
	out, err := pipeline.Transform(input)
	require.NoError(t, err)

	val, err := out.Value(0, "Features_TransformedText")
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "baz"}, val)
}
