package stages

import (
	"unicode"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
)

const kindWordTokenizer = "WordTokenizer"

var verWordTokenizer = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

type wordTokenizeParams struct {
	Pairs []ColumnPair `json:"pairs"`
	// Separators are extra splitting runes beyond Unicode whitespace
	Separators string `json:"separators,omitempty"`
}

// WordTokenizer splits text columns into variable-length token vector
// columns. Splitting happens on Unicode whitespace plus any configured
// separator runes; empty tokens are dropped.
type WordTokenizer struct {
	params wordTokenizeParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewWordTokenizer builds a word tokenization stage over up.
func NewWordTokenizer(up dataview.View, pairs []ColumnPair) (*WordTokenizer, error) {
	return newWordTokenizer(up, wordTokenizeParams{Pairs: pairs})
}

func newWordTokenizer(up dataview.View, p wordTokenizeParams) (*WordTokenizer, error) {
	added, err := tokenOutputColumns(kindWordTokenizer, up.Schema(), p.Pairs)
	if err != nil {
		return nil, err
	}

	seps := map[rune]struct{}{}
	for _, r := range p.Separators {
		seps[r] = struct{}{}
	}
	isSep := func(r rune) bool {
		if unicode.IsSpace(r) {
			return true
		}
		_, ok := seps[r]
		return ok
	}

	params := p
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		for _, pair := range params.Pairs {
			vals, err := textValues(kindWordTokenizer, pair.Input, row[pair.Input])
			if err != nil {
				return nil, err
			}
			var tokens []string
			for _, s := range vals {
				tokens = appendFields(tokens, s, isSep)
			}
			out[pair.Output] = tokens
		}
		return out, nil
	}

	view, err := dataview.Derive(up, added, mapper)
	if err != nil {
		return nil, err
	}
	return &WordTokenizer{params: p, up: up, out: view, mapper: mapper}, nil
}

// appendFields splits s on isSep and appends the non-empty fields.
func appendFields(dst []string, s string, isSep func(rune) bool) []string {
	start := -1
	for i, r := range s {
		if isSep(r) {
			if start >= 0 {
				dst = append(dst, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		dst = append(dst, s[start:])
	}
	return dst
}

func (s *WordTokenizer) Kind() string { return kindWordTokenizer }
func (s *WordTokenizer) Input() dataview.View { return s.up }
func (s *WordTokenizer) Output() dataview.View { return s.out }
func (s *WordTokenizer) Mapper() dataview.RowMapper { return s.mapper }
func (s *WordTokenizer) InputColumns() []string { return pairInputs(s.params.Pairs) }
func (s *WordTokenizer) OutputColumns() []string { return pairOutputs(s.params.Pairs) }

func (s *WordTokenizer) Rebind(up dataview.View) (Stage, error) {
	return newWordTokenizer(up, s.params)
}

func (s *WordTokenizer) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindWordTokenizer, verWordTokenizer, s.params)
}

const kindCharTokenizer = "CharTokenizer"

var verCharTokenizer = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

// Start-of-unit and end-of-unit marker tokens emitted around each source
// string so char grams can distinguish word boundaries.
const (
	charUnitStart = "\x02"
	charUnitEnd   = "\x03"
)

type charTokenizeParams struct {
	Pairs []ColumnPair `json:"pairs"`
}

// CharTokenizer splits text columns into per-rune token vector columns,
// wrapping every source unit in start/end markers.
type CharTokenizer struct {
	params charTokenizeParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewCharTokenizer builds a character tokenization stage over up.
func NewCharTokenizer(up dataview.View, pairs []ColumnPair) (*CharTokenizer, error) {
	return newCharTokenizer(up, charTokenizeParams{Pairs: pairs})
}

func newCharTokenizer(up dataview.View, p charTokenizeParams) (*CharTokenizer, error) {
	added, err := tokenOutputColumns(kindCharTokenizer, up.Schema(), p.Pairs)
	if err != nil {
		return nil, err
	}

	params := p
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		for _, pair := range params.Pairs {
			vals, err := textValues(kindCharTokenizer, pair.Input, row[pair.Input])
			if err != nil {
				return nil, err
			}
			var tokens []string
			for _, s := range vals {
				tokens = append(tokens, charUnitStart)
				for _, r := range s {
					tokens = append(tokens, string(r))
				}
				tokens = append(tokens, charUnitEnd)
			}
			out[pair.Output] = tokens
		}
		return out, nil
	}

	view, err := dataview.Derive(up, added, mapper)
	if err != nil {
		return nil, err
	}
	return &CharTokenizer{params: p, up: up, out: view, mapper: mapper}, nil
}

func (s *CharTokenizer) Kind() string { return kindCharTokenizer }
func (s *CharTokenizer) Input() dataview.View { return s.up }
func (s *CharTokenizer) Output() dataview.View { return s.out }
func (s *CharTokenizer) Mapper() dataview.RowMapper { return s.mapper }
func (s *CharTokenizer) InputColumns() []string { return pairInputs(s.params.Pairs) }
func (s *CharTokenizer) OutputColumns() []string { return pairOutputs(s.params.Pairs) }

func (s *CharTokenizer) Rebind(up dataview.View) (Stage, error) {
	return newCharTokenizer(up, s.params)
}

func (s *CharTokenizer) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindCharTokenizer, verCharTokenizer, s.params)
}

// tokenOutputColumns validates the pairs' inputs are text and returns the
// variable-length token vector output columns.
func tokenOutputColumns(kind string, schema *dataview.Schema, pairs []ColumnPair) ([]dataview.Column, error) {
	if len(pairs) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, kind+" requires at least one column pair")
	}
	added := make([]dataview.Column, 0, len(pairs))
	for _, pair := range pairs {
		if _, err := requireText(kind, schema, pair.Input); err != nil {
			return nil, err
		}
		added = append(added, dataview.Column{
			Name:     pair.Output,
			Type:     dataview.TypeText,
			Vector:   true,
			Variable: true,
		})
	}
	return added, nil
}

func pairInputs(pairs []ColumnPair) []string {
	cols := make([]string, len(pairs))
	for i, p := range pairs {
		cols[i] = p.Input
	}
	return cols
}

func pairOutputs(pairs []ColumnPair) []string {
	cols := make([]string, len(pairs))
	for i, p := range pairs {
		cols[i] = p.Output
	}
	return cols
}

func init() {
	register(kindWordTokenizer, verWordTokenizer, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p wordTokenizeParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newWordTokenizer(up, p)
	})
	register(kindCharTokenizer, verCharTokenizer, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p charTokenizeParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newCharTokenizer(up, p)
	})
}
