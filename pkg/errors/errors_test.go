package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesTypeAndStack(t *testing.T) {
	err := New(ErrorTypeConfig, "bad options")
	assert.Equal(t, ErrorTypeConfig, err.Type)
	assert.Equal(t, "config: bad options", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, ErrorTypeSerialization, "write header")

	assert.Equal(t, "serialization: write header: disk full", err.Error())
	assert.True(t, errors.Is(err, cause))

	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "no-op"))
}

func TestWrapKeepsInnerStack(t *testing.T) {
	inner := New(ErrorTypeData, "bad row")
	outer := Wrap(inner, ErrorTypeInternal, "stage failed")
	assert.Equal(t, inner.Stack, outer.Stack)
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeSchema, "column missing")
	assert.True(t, IsType(err, ErrorTypeSchema))
	assert.False(t, IsType(err, ErrorTypeConfig))

	// Survives wrapping with the standard library.
	wrapped := fmt.Errorf("fit failed: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeSchema))

	assert.False(t, IsType(errors.New("plain"), ErrorTypeSchema))
	assert.False(t, IsType(nil, ErrorTypeSchema))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeConfig, "bad").WithDetail("field", "norm")
	assert.Equal(t, "norm", err.Details["field"])
}

func TestSchemaMismatchNamesColumnAndStage(t *testing.T) {
	err := SchemaMismatch("WordTokenizer", "Title", "not found in the input schema")
	require.True(t, IsType(err, ErrorTypeSchema))
	assert.Contains(t, err.Error(), "WordTokenizer")
	assert.Contains(t, err.Error(), `"Title"`)
	assert.Equal(t, "WordTokenizer", err.Details["stage"])
	assert.Equal(t, "Title", err.Details["column"])
}
