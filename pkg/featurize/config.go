package featurize

import (
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/stages"
)

// GramOptions configures one n-gram feature extractor, either learned
// (a vocabulary is built at fit time) or hashed (the hashing trick, no
// vocabulary).
type GramOptions struct {
	// Length is the maximum gram length in tokens
	Length int `yaml:"length" json:"length"`
	// AllLengths emits grams of every length from 1 up to Length
	AllLengths bool `yaml:"all_lengths" json:"all_lengths"`
	// MaxTerms caps the learned vocabulary; zero means unlimited
	MaxTerms int `yaml:"max_terms,omitempty" json:"max_terms,omitempty"`
	// Hashing switches to the hashing-trick extractor
	Hashing bool `yaml:"hashing,omitempty" json:"hashing,omitempty"`
	// HashBits sets the hashed output size to 2^HashBits slots
	HashBits int `yaml:"hash_bits,omitempty" json:"hash_bits,omitempty"`
}

// StopWordsOptions configures stop-word removal: a predefined
// per-language list, or an explicit custom one.
type StopWordsOptions struct {
	// Language overrides the pipeline language for the predefined list
	Language string `yaml:"language,omitempty" json:"language,omitempty"`
	// Custom is an explicit word list; takes precedence over Language
	Custom []string `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// Options declares a text featurization pipeline: which input text
// columns feed it, which transforms run, and the name of the feature
// column it emits. Options are immutable once handed to Fit.
type Options struct {
	// OutputColumn is the name of the emitted feature column
	OutputColumn string `yaml:"output_column" json:"output_column"`
	// InputColumns are the source text columns, in order
	InputColumns []string `yaml:"input_columns" json:"input_columns"`
	// Language selects the default stop-word list
	Language string `yaml:"language,omitempty" json:"language,omitempty"`

	// Case controls letter casing during normalization
	Case stages.CaseMode `yaml:"case" json:"case"`
	// KeepDiacritics preserves combining marks
	KeepDiacritics bool `yaml:"keep_diacritics" json:"keep_diacritics"`
	// KeepPunctuation preserves punctuation runes
	KeepPunctuation bool `yaml:"keep_punctuation" json:"keep_punctuation"`
	// KeepNumbers preserves numeric runes
	KeepNumbers bool `yaml:"keep_numbers" json:"keep_numbers"`

	// OutputTokens additionally emits the post-processing tokens as a
	// text vector column named OutputColumn + TokenOutputSuffix
	OutputTokens bool `yaml:"output_tokens" json:"output_tokens"`

	// StopWords enables stop-word removal when non-nil
	StopWords *StopWordsOptions `yaml:"stop_words,omitempty" json:"stop_words,omitempty"`
	// WordGrams enables the word n-gram extractor when non-nil
	WordGrams *GramOptions `yaml:"word_grams,omitempty" json:"word_grams,omitempty"`
	// CharGrams enables the character n-gram extractor when non-nil
	CharGrams *GramOptions `yaml:"char_grams,omitempty" json:"char_grams,omitempty"`

	// Norm rescales each feature segment independently
	Norm stages.NormKind `yaml:"norm" json:"norm"`
}

// TokenOutputSuffix names the raw-token output column relative to the
// feature column.
const TokenOutputSuffix = "_TransformedText"

// DefaultOptions returns the conventional featurization defaults: lower
// casing, diacritics stripped, punctuation and numbers kept, unigram word
// features, trigram char features, and L2 rescaling.
func DefaultOptions(output string, inputs ...string) Options {
	return Options{
		OutputColumn:    output,
		InputColumns:    inputs,
		Language:        "english",
		Case:            stages.CaseLower,
		KeepDiacritics:  false,
		KeepPunctuation: true,
		KeepNumbers:     true,
		WordGrams:       &GramOptions{Length: 1},
		CharGrams:       &GramOptions{Length: 3},
		Norm:            stages.NormL2,
	}
}

// Validate checks the options for internal consistency. All violations
// are configuration errors, detected before any view is touched.
func (o *Options) Validate() error {
	if o.OutputColumn == "" {
		return errors.New(errors.ErrorTypeConfig, "output column name is empty")
	}
	if len(o.InputColumns) == 0 {
		return errors.New(errors.ErrorTypeConfig, "no input columns declared")
	}
	seen := make(map[string]struct{}, len(o.InputColumns))
	for _, in := range o.InputColumns {
		if in == "" {
			return errors.New(errors.ErrorTypeConfig, "input column name is empty")
		}
		if _, dup := seen[in]; dup {
			return errors.Newf(errors.ErrorTypeConfig, "input column %q declared twice", in)
		}
		seen[in] = struct{}{}
	}
	switch o.Case {
	case stages.CaseLower, stages.CaseUpper, stages.CaseNone, "":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown case mode %q", o.Case)
	}
	switch o.Norm {
	case stages.NormNone, stages.NormL1, stages.NormL2, stages.NormLInf, "":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown norm kind %q", o.Norm)
	}
	if o.WordGrams == nil && o.CharGrams == nil && !o.OutputTokens {
		return errors.New(errors.ErrorTypeConfig, "no feature sink configured: need a word extractor, a char extractor, or token output")
	}
	if err := validateGramOptions("word_grams", o.WordGrams); err != nil {
		return err
	}
	if err := validateGramOptions("char_grams", o.CharGrams); err != nil {
		return err
	}
	if o.StopWords != nil {
		if o.StopWords.Custom != nil && len(o.StopWords.Custom) == 0 {
			return errors.New(errors.ErrorTypeConfig, "custom stop-word list is empty")
		}
		if len(o.StopWords.Custom) == 0 && o.stopWordsLanguage() == "" {
			return errors.New(errors.ErrorTypeConfig, "stop-word removal configured without a language or custom list")
		}
	}
	return nil
}

// caseMode returns the effective case mode, defaulting to none.
func (o *Options) caseMode() stages.CaseMode {
	if o.Case == "" {
		return stages.CaseNone
	}
	return o.Case
}

// normKind returns the effective norm kind, defaulting to none.
func (o *Options) normKind() stages.NormKind {
	if o.Norm == "" {
		return stages.NormNone
	}
	return o.Norm
}

// stopWordsLanguage resolves the remover language, preferring the
// remover-specific override over the pipeline language.
func (o *Options) stopWordsLanguage() string {
	if o.StopWords != nil && o.StopWords.Language != "" {
		return o.StopWords.Language
	}
	return o.Language
}

func validateGramOptions(name string, g *GramOptions) error {
	if g == nil {
		return nil
	}
	if g.Length < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "%s: gram length %d must be positive", name, g.Length)
	}
	if g.MaxTerms < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "%s: max terms must not be negative", name)
	}
	if g.Hashing {
		if g.HashBits < 1 || g.HashBits > 30 {
			return errors.Newf(errors.ErrorTypeConfig, "%s: hash bits %d outside [1,30]", name, g.HashBits)
		}
	}
	return nil
}
