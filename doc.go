// Package pulsar provides a text featurization pipeline compiler that turns
// declarative configuration into fitted, persistable column transformations.
//
// A pipeline takes one or more text columns and produces a single numeric
// feature vector column, optionally alongside the normalized token stream.
// The stages between input and output — concatenation, text normalization,
// word and character tokenization, stop-word removal, n-gram counting or
// hashing, and vector rescaling — are selected purely from configuration,
// never from the data itself.
//
// # Architecture
//
// Pulsar is organized around three ideas:
//
// 1. Lazy views: data flows through dataview.View values. Each stage appends
// derived columns computed by a row mapper; nothing is materialized until a
// caller asks for values.
//
// 2. Rebindable stages: every fitted stage is a parameter block plus a
// constructor. Re-running the constructor against a new schema rebinds the
// stage, so a persisted pipeline replays against any schema-compatible input.
//
// 3. Versioned persistence: fitted pipelines serialize as a sequence of
// named, versioned blocks. Loaders check a version gate per block, so old
// models keep loading and incompatible ones fail with a clear error.
//
// # Quick Start
//
// Fit a pipeline and transform new data:
//
//	import (
//	    "github.com/pulsarml/pulsar/pkg/dataview"
//	    "github.com/pulsarml/pulsar/pkg/featurize"
//	)
//
//	opts := featurize.DefaultOptions("Features", "Title", "Body")
//	pipeline, err := featurize.Fit(opts, trainView)
//	if err != nil {
//	    return err
//	}
//	out, err := pipeline.Transform(testView)
//
// Persist and reload:
//
//	err = pipeline.Save(file)
//	pipeline, err = featurize.Load(file)
//
// # Package Layout
//
//   - pkg/featurize: configuration, stage planning, chain assembly, schema
//     projection, and the fitted pipeline API
//   - pkg/dataview: schemas, lazy views, and row mappers
//   - pkg/stages: the individual fitted transformations
//   - pkg/modelstore: the versioned block container format
//   - pkg/stopwords: built-in stop-word lists with a concurrent cache
//   - cmd/pulsar: the command-line interface
package pulsar
