// Package testutil provides testing utilities for Pulsar
package testutil

import (
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pulsarml/pulsar/pkg/dataview"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TextView builds a materialized view of scalar text columns from
// column-name -> values pairs. All columns must have the same length.
func TextView(t *testing.T, cols map[string][]string) dataview.View {
	t.Helper()

	schemaCols := make([]dataview.Column, 0, len(cols))
	data := make(map[string][]interface{}, len(cols))
	// Deterministic column order keeps temp naming reproducible in tests.
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		schemaCols = append(schemaCols, dataview.Column{Name: name, Type: dataview.TypeText})
		vals := make([]interface{}, len(cols[name]))
		for i, s := range cols[name] {
			vals[i] = s
		}
		data[name] = vals
	}

	schema, err := dataview.NewSchema(schemaCols...)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	view, err := dataview.NewMemoryView(schema, data)
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	return view
}
