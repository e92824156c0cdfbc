// Package stages implements the concrete columnar transforms a text
// featurization pipeline is assembled from: concatenation, normalization,
// tokenization, stop-word removal, n-gram extraction (learned and hashed),
// Lp rescaling, and column dropping.
//
// Every stage is built as "parameters + upstream view -> new view", knows
// how to serialize its own parameters into a versioned block, and can
// rebind the identical transform against a different upstream view.
package stages

import (
	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
	"github.com/pulsarml/pulsar/pkg/stopwords"
)

// Stage is one fitted columnar transform bound to an upstream view.
type Stage interface {
	// Kind is the loader signature used for persistence.
	Kind() string
	// Input returns the upstream view this stage is bound to.
	Input() dataview.View
	// Output returns the view produced by this stage.
	Output() dataview.View
	// InputColumns returns the columns this stage reads.
	InputColumns() []string
	// OutputColumns returns the columns this stage adds (or hides).
	OutputColumns() []string
	// Rebind re-derives the identical transform against a new upstream
	// view. The receiver is not mutated.
	Rebind(up dataview.View) (Stage, error)
	// Mapper returns a row mapper that extends an input row with this
	// stage's output columns. A drop stage's mapper removes keys instead.
	Mapper() dataview.RowMapper
	// Save writes this stage's parameters as one versioned block.
	Save(w *modelstore.Writer) error
}

// LoadContext carries the services needed to reconstruct stages from a
// persisted store.
type LoadContext struct {
	Stopwords *stopwords.Cache
}

// LoaderFunc reconstructs a stage of one kind from its stored block,
// bound to the given upstream view.
type LoaderFunc func(ctx *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error)

type loaderEntry struct {
	ver  modelstore.Version
	load LoaderFunc
}

var registry = map[string]loaderEntry{}

// register installs a stage loader under its kind signature. Called from
// init in each stage file.
func register(kind string, ver modelstore.Version, load LoaderFunc) {
	if _, dup := registry[kind]; dup {
		panic("stages: duplicate kind " + kind)
	}
	registry[kind] = loaderEntry{ver: ver, load: load}
}

// Load reconstructs a stage from a stored block, gating on the stage's
// own version triple before decoding.
func Load(ctx *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
	entry, ok := registry[blk.Name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeSerialization, "unknown stage kind %q", blk.Name)
	}
	if !entry.ver.CanRead(blk.Ver) {
		return nil, errors.Newf(errors.ErrorTypeSerialization,
			"stage %s: stored version %d outside readable range [%d,%d]",
			blk.Name, blk.Ver.Written, entry.ver.MinReadable, entry.ver.Written)
	}
	return entry.load(ctx, blk, up)
}

// ColumnPair binds one input column to one output column for the
// column-wise stages.
type ColumnPair struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// requireText returns the named column if it exists with text item type.
func requireText(kind string, schema *dataview.Schema, name string) (dataview.Column, error) {
	col, ok := schema.Lookup(name)
	if !ok {
		return dataview.Column{}, errors.SchemaMismatch(kind, name, "not found")
	}
	if col.Type != dataview.TypeText {
		return dataview.Column{}, errors.SchemaMismatch(kind, name, "must have text item type, has "+col.Type.String())
	}
	return col, nil
}

// requireFloatVector returns the named column if it is a float vector.
func requireFloatVector(kind string, schema *dataview.Schema, name string) (dataview.Column, error) {
	col, ok := schema.Lookup(name)
	if !ok {
		return dataview.Column{}, errors.SchemaMismatch(kind, name, "not found")
	}
	if col.Type != dataview.TypeFloat || !col.Vector {
		return dataview.Column{}, errors.SchemaMismatch(kind, name, "must be a float vector")
	}
	return col, nil
}

// textValues flattens a text column's row value to a token slice: a
// scalar becomes a one-element slice, a vector passes through.
func textValues(kind, col string, val interface{}) ([]string, error) {
	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	default:
		return nil, errors.SchemaMismatch(kind, col, "holds a non-text value")
	}
}

// floatVector coerces a row value to a float vector.
func floatVector(kind, col string, val interface{}) ([]float32, error) {
	v, ok := val.([]float32)
	if !ok {
		return nil, errors.SchemaMismatch(kind, col, "holds a non float-vector value")
	}
	return v, nil
}
