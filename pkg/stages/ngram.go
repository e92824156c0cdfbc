package stages

import (
	"strings"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
)

const kindNGramExtractor = "NGramExtractor"

var verNGramExtractor = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

// gramJoiner separates tokens inside a multi-token gram key.
const gramJoiner = "|"

type ngramParams struct {
	Inputs     []string `json:"inputs"`
	Output     string   `json:"output"`
	Length     int      `json:"length"`
	AllLengths bool     `json:"all_lengths"`
	MaxTerms   int      `json:"max_terms,omitempty"`
	// Vocabulary is the learned gram list in slot order
	Vocabulary []string `json:"vocabulary"`
}

// NGramExtractor maps token vector columns to a fixed-size count vector
// over a learned gram vocabulary. The vocabulary is learned once at fit
// time by scanning the upstream view in order; rebinding and loading
// reuse it unchanged.
type NGramExtractor struct {
	params ngramParams
	index  map[string]int
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// FitNGram learns a gram vocabulary from up and returns the bound stage.
// maxTerms <= 0 means unlimited.
func FitNGram(up dataview.View, output string, length int, allLengths bool, maxTerms int, inputs ...string) (*NGramExtractor, error) {
	p := ngramParams{
		Inputs:     inputs,
		Output:     output,
		Length:     length,
		AllLengths: allLengths,
		MaxTerms:   maxTerms,
	}
	if err := validateGramParams(kindNGramExtractor, up.Schema(), p.Inputs, p.Length); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for row := 0; row < up.RowCount(); row++ {
		for _, in := range p.Inputs {
			val, err := up.Value(row, in)
			if err != nil {
				return nil, err
			}
			tokens, err := textValues(kindNGramExtractor, in, val)
			if err != nil {
				return nil, err
			}
			full := p.MaxTerms > 0 && len(p.Vocabulary) >= p.MaxTerms
			if full {
				break
			}
			emitGrams(tokens, p.Length, p.AllLengths, func(gram string) {
				if p.MaxTerms > 0 && len(p.Vocabulary) >= p.MaxTerms {
					return
				}
				if _, dup := seen[gram]; dup {
					return
				}
				seen[gram] = struct{}{}
				p.Vocabulary = append(p.Vocabulary, gram)
			})
		}
	}
	return newNGramExtractor(up, p)
}

func newNGramExtractor(up dataview.View, p ngramParams) (*NGramExtractor, error) {
	if err := validateGramParams(kindNGramExtractor, up.Schema(), p.Inputs, p.Length); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(p.Vocabulary))
	for i, gram := range p.Vocabulary {
		index[gram] = i
	}

	outCol := dataview.Column{
		Name:     p.Output,
		Type:     dataview.TypeFloat,
		Vector:   true,
		Size:     len(p.Vocabulary),
		Metadata: &dataview.Metadata{SlotNames: p.Vocabulary},
	}

	params := p
	size := len(p.Vocabulary)
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		vec := make([]float32, size)
		for _, in := range params.Inputs {
			tokens, err := textValues(kindNGramExtractor, in, row[in])
			if err != nil {
				return nil, err
			}
			emitGrams(tokens, params.Length, params.AllLengths, func(gram string) {
				if slot, ok := index[gram]; ok {
					vec[slot]++
				}
			})
		}
		out[params.Output] = vec
		return out, nil
	}

	view, err := dataview.Derive(up, []dataview.Column{outCol}, mapper)
	if err != nil {
		return nil, err
	}
	return &NGramExtractor{params: p, index: index, up: up, out: view, mapper: mapper}, nil
}

// emitGrams enumerates the grams of a token sequence: every contiguous
// run of exactly length tokens, or of 1..length tokens when allLengths.
func emitGrams(tokens []string, length int, allLengths bool, emit func(string)) {
	minLen := length
	if allLengths {
		minLen = 1
	}
	for i := range tokens {
		for n := minLen; n <= length && i+n <= len(tokens); n++ {
			emit(strings.Join(tokens[i:i+n], gramJoiner))
		}
	}
}

func validateGramParams(kind string, schema *dataview.Schema, inputs []string, length int) error {
	if len(inputs) == 0 {
		return errors.New(errors.ErrorTypeConfig, kind+" requires at least one input column")
	}
	if length < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "%s: gram length %d must be positive", kind, length)
	}
	for _, in := range inputs {
		if _, err := requireText(kind, schema, in); err != nil {
			return err
		}
	}
	return nil
}

// VocabularySize returns the learned vocabulary size.
func (s *NGramExtractor) VocabularySize() int { return len(s.params.Vocabulary) }

func (s *NGramExtractor) Kind() string { return kindNGramExtractor }
func (s *NGramExtractor) Input() dataview.View { return s.up }
func (s *NGramExtractor) Output() dataview.View { return s.out }
func (s *NGramExtractor) Mapper() dataview.RowMapper { return s.mapper }
func (s *NGramExtractor) InputColumns() []string { return s.params.Inputs }
func (s *NGramExtractor) OutputColumns() []string { return []string{s.params.Output} }

func (s *NGramExtractor) Rebind(up dataview.View) (Stage, error) {
	return newNGramExtractor(up, s.params)
}

func (s *NGramExtractor) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindNGramExtractor, verNGramExtractor, s.params)
}

func init() {
	register(kindNGramExtractor, verNGramExtractor, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p ngramParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newNGramExtractor(up, p)
	})
}
