package stages

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
	"github.com/pulsarml/pulsar/pkg/stopwords"
)

func TestStageSaveLoadRoundTrip(t *testing.T) {
	up := tokenView(t, []string{"red", "blue", "red"})
	fitted, err := FitNGram(up, "grams", 1, false, 0, "tokens")
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := modelstore.NewWriter(&buf, false)
	require.NoError(t, err)
	require.NoError(t, fitted.Save(w))
	require.NoError(t, w.Close())

	r, err := modelstore.NewReader(&buf)
	require.NoError(t, err)
	blk, err := r.ReadBlock()
	require.NoError(t, err)
	assert.Equal(t, "NGramExtractor", blk.Name)

	ctx := &LoadContext{Stopwords: stopwords.Default()}
	loaded, err := Load(ctx, blk, up)
	require.NoError(t, err)

	want, err := fitted.Output().Value(0, "grams")
	require.NoError(t, err)
	got, err := loaded.Output().Value(0, "grams")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadUnknownKind(t *testing.T) {
	up := tokenView(t, []string{"x"})
	blk := &modelstore.Block{
		Name:    "Bogus",
		Ver:     modelstore.Version{Written: 1, Readable: 1, MinReadable: 1},
		Payload: []byte("{}"),
	}
	_, err := Load(nil, blk, up)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
	assert.Contains(t, err.Error(), "Bogus")
}

func TestLoadVersionGate(t *testing.T) {
	up := tokenView(t, []string{"x"})
	blk := &modelstore.Block{
		Name:    "WordTokenizer",
		Ver:     modelstore.Version{Written: 99, Readable: 99, MinReadable: 99},
		Payload: []byte("{}"),
	}
	_, err := Load(nil, blk, up)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSerialization))
}
