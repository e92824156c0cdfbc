package featurize

import (
	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/stages"
	"github.com/pulsarml/pulsar/pkg/stopwords"
)

// Stage tags used to derive temp column names.
const (
	tagInitialConcat = "InitialConcat"
	tagNormalized    = "Normalized"
	tagWordTokens    = "WordTokens"
	tagNoStopWords   = "NoStopWords"
	tagWordGrams     = "WordGrams"
	tagCharTokens    = "CharTokens"
	tagCharGrams     = "CharGrams"
	tagRescaled      = "Rescaled"
)

// Labels tagging the word and char segments of the final feature
// concatenation, so cross-segment slot identities never collide.
const (
	labelWord = "Word"
	labelChar = "Char"
)

// assembly is the state of one chain assembly run. It owns its temp
// registry exclusively; concurrent assemblies each use their own.
type assembly struct {
	plan  *stagePlan
	cache *stopwords.Cache
	temps *tempRegistry
	cur   dataview.View
	built []stages.Stage
}

// push appends a freshly constructed stage and advances the current view.
func (a *assembly) push(s stages.Stage, err error) error {
	if err != nil {
		return err
	}
	a.built = append(a.built, s)
	a.cur = s.Output()
	return nil
}

// reserve names a temp column against the current schema.
func (a *assembly) reserve(source, tag string) string {
	return a.temps.reserve(a.cur.Schema(), source, tag)
}

// assemble threads root through the stages the plan selected, in fixed
// dependency order, and returns the final view, the stage sequence, and
// the temp columns that were created and dropped along the way.
func assemble(plan *stagePlan, root dataview.View, cache *stopwords.Cache) (dataview.View, []stages.Stage, []string, error) {
	opts := plan.opts
	if err := validateInputColumns(root.Schema(), opts.InputColumns); err != nil {
		return nil, nil, nil, err
	}
	if root.Schema().Has(opts.OutputColumn) {
		return nil, nil, nil, errors.SchemaMismatch("assemble", opts.OutputColumn, "already exists in the input schema")
	}

	a := &assembly{plan: plan, cache: cache, temps: newTempRegistry(), cur: root}

	// Current text columns; stages rebind this as they rewrite text.
	textCols := append([]string(nil), opts.InputColumns...)

	// 1. Concatenate multiple inputs into one ordered stream when a
	// vocabulary-building extractor needs it.
	if plan.needsInitialConcat && len(textCols) > 1 {
		name := a.reserve(opts.OutputColumn, tagInitialConcat)
		if err := a.push(stages.NewTextConcat(a.cur, name, textCols...)); err != nil {
			return nil, nil, nil, err
		}
		textCols = []string{name}
	}

	// 2. Normalize every current text column.
	if plan.needsNormalization {
		pairs := make([]stages.ColumnPair, len(textCols))
		for i, c := range textCols {
			pairs[i] = stages.ColumnPair{Input: c, Output: a.reserve(c, tagNormalized)}
		}
		if err := a.push(stages.NewTextNormalizer(a.cur, pairs, opts.caseMode(),
			opts.KeepDiacritics, opts.KeepPunctuation, opts.KeepNumbers)); err != nil {
			return nil, nil, nil, err
		}
		textCols = pairOutputList(pairs)
	}

	// 3. Word-tokenize every current text column.
	var wordTokens []string
	if plan.needsWordTokenization {
		pairs := make([]stages.ColumnPair, len(textCols))
		for i, c := range textCols {
			pairs[i] = stages.ColumnPair{Input: c, Output: a.reserve(c, tagWordTokens)}
		}
		if err := a.push(stages.NewWordTokenizer(a.cur, pairs)); err != nil {
			return nil, nil, nil, err
		}
		wordTokens = pairOutputList(pairs)
	}

	// 4. Filter stop words out of every word-token column.
	if plan.needsStopRemoval {
		pairs := make([]stages.ColumnPair, len(wordTokens))
		for i, c := range wordTokens {
			pairs[i] = stages.ColumnPair{Input: c, Output: a.reserve(c, tagNoStopWords)}
		}
		var err error
		if len(opts.StopWords.Custom) > 0 {
			err = a.push(stages.NewCustomStopWordsRemover(a.cur, pairs, opts.StopWords.Custom))
		} else {
			err = a.push(stages.NewStopWordsRemover(a.cur, a.cache, pairs, opts.stopWordsLanguage()))
		}
		if err != nil {
			return nil, nil, nil, err
		}
		wordTokens = pairOutputList(pairs)
	}

	// 5. Word-gram extraction over all current word-token columns.
	var wordFeature string
	if opts.WordGrams != nil {
		wordFeature = a.reserve(opts.OutputColumn, tagWordGrams)
		if err := a.extract(opts.WordGrams, wordFeature, wordTokens); err != nil {
			return nil, nil, nil, err
		}
	}

	// 6. Raw-token capture into the user-visible token column.
	if opts.OutputTokens {
		sources := wordTokens
		if len(sources) == 0 {
			sources = textCols
		}
		name := opts.OutputColumn + TokenOutputSuffix
		if a.cur.Schema().Has(name) {
			return nil, nil, nil, errors.SchemaMismatch("assemble", name, "already exists in the input schema")
		}
		if err := a.push(stages.NewTextConcat(a.cur, name, sources...)); err != nil {
			return nil, nil, nil, err
		}
	}

	// 7. Char tokenization and char-gram extraction. Char tokens come
	// from the word-token columns when stop-word removal ran, otherwise
	// from the plain text columns.
	var charFeature string
	if opts.CharGrams != nil {
		charSources := textCols
		if plan.needsStopRemoval {
			charSources = wordTokens
		}
		pairs := make([]stages.ColumnPair, len(charSources))
		for i, c := range charSources {
			pairs[i] = stages.ColumnPair{Input: c, Output: a.reserve(c, tagCharTokens)}
		}
		if err := a.push(stages.NewCharTokenizer(a.cur, pairs)); err != nil {
			return nil, nil, nil, err
		}
		charFeature = a.reserve(opts.OutputColumn, tagCharGrams)
		if err := a.extract(opts.CharGrams, charFeature, pairOutputList(pairs)); err != nil {
			return nil, nil, nil, err
		}
	}

	// 8. Rescale each feature segment independently.
	if opts.normKind() != stages.NormNone && (wordFeature != "" || charFeature != "") {
		var pairs []stages.ColumnPair
		if wordFeature != "" {
			out := a.reserve(wordFeature, tagRescaled)
			pairs = append(pairs, stages.ColumnPair{Input: wordFeature, Output: out})
			wordFeature = out
		}
		if charFeature != "" {
			out := a.reserve(charFeature, tagRescaled)
			pairs = append(pairs, stages.ColumnPair{Input: charFeature, Output: out})
			charFeature = out
		}
		if err := a.push(stages.NewLpNormalizer(a.cur, pairs, opts.normKind())); err != nil {
			return nil, nil, nil, err
		}
	}

	// 9. Final combination into the declared output column. Always the
	// emission path when any extractor ran, so slot naming is uniform;
	// a single segment passes through under a degenerate self-tag.
	var sources []stages.ConcatSource
	if wordFeature != "" {
		sources = append(sources, stages.ConcatSource{Column: wordFeature, Label: labelWord})
	}
	if charFeature != "" {
		sources = append(sources, stages.ConcatSource{Column: charFeature, Label: labelChar})
	}
	switch {
	case len(sources) > 0:
		if err := a.push(stages.NewFeatureConcat(a.cur, opts.OutputColumn, sources...)); err != nil {
			return nil, nil, nil, err
		}
	case !opts.OutputTokens:
		// Guarded by Validate; kept as the builder's own invariant.
		return nil, nil, nil, errors.New(errors.ErrorTypeConfig, "no feature sink configured")
	}

	// 10. Drop every temp column ever registered.
	if temps := a.temps.names(); len(temps) > 0 {
		if err := a.push(stages.NewDropColumns(a.cur, temps...)); err != nil {
			return nil, nil, nil, err
		}
	}

	return a.cur, a.built, a.temps.names(), nil
}

// extract builds the configured extractor variant over the given token
// columns into the named output column.
func (a *assembly) extract(g *GramOptions, output string, inputs []string) error {
	if g.Hashing {
		return a.push(stages.NewHashGramExtractor(a.cur, output, g.Length, g.AllLengths, g.HashBits, inputs...))
	}
	return a.push(stages.FitNGram(a.cur, output, g.Length, g.AllLengths, g.MaxTerms, inputs...))
}

// validateInputColumns checks every declared input is present with text
// item type, scalar or vector.
func validateInputColumns(schema *dataview.Schema, inputs []string) error {
	for _, in := range inputs {
		col, ok := schema.Lookup(in)
		if !ok {
			return errors.SchemaMismatch("assemble", in, "not found in the input schema")
		}
		if col.Type != dataview.TypeText {
			return errors.SchemaMismatch("assemble", in, "must have text item type, has "+col.Type.String())
		}
	}
	return nil
}

func pairOutputList(pairs []stages.ColumnPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Output
	}
	return out
}
