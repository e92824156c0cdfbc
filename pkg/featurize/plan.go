package featurize

import (
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/stages"
)

// stagePlan is a read-only snapshot derived once from the options: which
// optional stages the chain needs. It is a pure function of the options
// and never consults the data.
type stagePlan struct {
	opts Options

	needsInitialConcat    bool
	needsNormalization    bool
	needsWordTokenization bool
	needsStopRemoval      bool
}

// newStagePlan validates the options and derives the stage flags. The
// flag order matters: later flags depend on earlier ones.
func newStagePlan(opts Options) (*stagePlan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	p := &stagePlan{opts: opts}

	// Non-hash extractors need one ordered stream to build a consistent
	// vocabulary across sources; hash-based ones do not, since each
	// source position hashes independently.
	p.needsInitialConcat = !opts.usesOnlyHashExtractors() && len(opts.InputColumns) > 1

	p.needsNormalization = opts.caseMode() != stages.CaseNone ||
		!opts.KeepDiacritics || !opts.KeepPunctuation || !opts.KeepNumbers

	p.needsWordTokenization = opts.WordGrams != nil || opts.StopWords != nil || opts.OutputTokens

	p.needsStopRemoval = opts.StopWords != nil
	if p.needsStopRemoval && !p.needsWordTokenization {
		// Unreachable: a configured remover forces word tokenization.
		return nil, errors.New(errors.ErrorTypeConfig, "stop-word removal requires word tokenization")
	}

	return p, nil
}

// usesOnlyHashExtractors reports whether every configured extractor uses
// the hashing trick (an absent extractor counts as hash-based).
func (o *Options) usesOnlyHashExtractors() bool {
	if o.WordGrams != nil && !o.WordGrams.Hashing {
		return false
	}
	if o.CharGrams != nil && !o.CharGrams.Hashing {
		return false
	}
	return true
}
