package featurize

import (
	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/stages"
)

// ProjectOutputSchema computes the schema shape a pipeline built from
// opts would produce over the given input shape, without any data and
// without running the chain builder. The feature column's vector size is
// exact when every configured extractor is hash-based; with a learned
// vocabulary it stays zero until fit time.
//
// Used for upfront validation and for composing pipelines before fitting.
func ProjectOutputSchema(opts Options, input *dataview.Schema) (*dataview.Schema, error) {
	plan, err := newStagePlan(opts)
	if err != nil {
		return nil, err
	}
	if err := validateInputColumns(input, opts.InputColumns); err != nil {
		return nil, err
	}

	var added []dataview.Column
	if opts.WordGrams != nil || opts.CharGrams != nil {
		size := 0
		if opts.usesOnlyHashExtractors() {
			if opts.WordGrams != nil {
				size += 1 << opts.WordGrams.HashBits
			}
			if opts.CharGrams != nil {
				size += 1 << opts.CharGrams.HashBits
			}
		}
		added = append(added, dataview.Column{
			Name:   opts.OutputColumn,
			Type:   dataview.TypeFloat,
			Vector: true,
			Size:   size,
			Metadata: &dataview.Metadata{
				IsNormalized: plan.opts.normKind() != stages.NormNone,
			},
		})
	}
	if opts.OutputTokens {
		added = append(added, dataview.Column{
			Name:     opts.OutputColumn + TokenOutputSuffix,
			Type:     dataview.TypeText,
			Vector:   true,
			Variable: true,
		})
	}

	return input.Append(added...)
}
