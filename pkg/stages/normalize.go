package stages

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
)

// CaseMode controls letter casing during text normalization.
type CaseMode string

const (
	// CaseLower folds text to lower case
	CaseLower CaseMode = "lower"
	// CaseUpper folds text to upper case
	CaseUpper CaseMode = "upper"
	// CaseNone leaves casing untouched
	CaseNone CaseMode = "none"
)

const kindTextNormalizer = "TextNormalizer"

var verTextNormalizer = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

type normalizeParams struct {
	Pairs           []ColumnPair `json:"pairs"`
	Case            CaseMode     `json:"case"`
	KeepDiacritics  bool         `json:"keep_diacritics"`
	KeepPunctuation bool         `json:"keep_punctuation"`
	KeepNumbers     bool         `json:"keep_numbers"`
}

// TextNormalizer rewrites text columns applying case folding, diacritic
// stripping, and punctuation/number removal. Each input column produces
// one output column of the same shape.
type TextNormalizer struct {
	params normalizeParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewTextNormalizer builds a normalization stage over up.
func NewTextNormalizer(up dataview.View, pairs []ColumnPair, caseMode CaseMode, keepDiacritics, keepPunctuation, keepNumbers bool) (*TextNormalizer, error) {
	return newTextNormalizer(up, normalizeParams{
		Pairs:           pairs,
		Case:            caseMode,
		KeepDiacritics:  keepDiacritics,
		KeepPunctuation: keepPunctuation,
		KeepNumbers:     keepNumbers,
	})
}

func newTextNormalizer(up dataview.View, p normalizeParams) (*TextNormalizer, error) {
	schema := up.Schema()
	added := make([]dataview.Column, 0, len(p.Pairs))
	for _, pair := range p.Pairs {
		in, err := requireText(kindTextNormalizer, schema, pair.Input)
		if err != nil {
			return nil, err
		}
		added = append(added, dataview.Column{
			Name:     pair.Output,
			Type:     dataview.TypeText,
			Vector:   in.Vector,
			Variable: in.Vector,
		})
	}

	params := p
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		for _, pair := range params.Pairs {
			switch v := row[pair.Input].(type) {
			case string:
				out[pair.Output] = normalizeText(v, params)
			case []string:
				normed := make([]string, len(v))
				for i, s := range v {
					normed[i] = normalizeText(s, params)
				}
				out[pair.Output] = normed
			default:
				return nil, errors.SchemaMismatch(kindTextNormalizer, pair.Input, "holds a non-text value")
			}
		}
		return out, nil
	}

	view, err := dataview.Derive(up, added, mapper)
	if err != nil {
		return nil, err
	}
	return &TextNormalizer{params: p, up: up, out: view, mapper: mapper}, nil
}

// normalizeText applies diacritic stripping, case folding, and
// punctuation/number removal in that order.
func normalizeText(s string, p normalizeParams) string {
	if !p.KeepDiacritics {
		s = stripDiacritics(s)
	}
	switch p.Case {
	case CaseLower:
		s = strings.ToLower(s)
	case CaseUpper:
		s = strings.ToUpper(s)
	}
	if p.KeepPunctuation && p.KeepNumbers {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !p.KeepPunctuation && unicode.IsPunct(r) {
			continue
		}
		if !p.KeepNumbers && unicode.IsNumber(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripDiacritics decomposes to NFD, drops combining marks, and recomposes.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func (s *TextNormalizer) Kind() string { return kindTextNormalizer }
func (s *TextNormalizer) Input() dataview.View { return s.up }
func (s *TextNormalizer) Output() dataview.View { return s.out }
func (s *TextNormalizer) Mapper() dataview.RowMapper { return s.mapper }

func (s *TextNormalizer) InputColumns() []string {
	cols := make([]string, len(s.params.Pairs))
	for i, p := range s.params.Pairs {
		cols[i] = p.Input
	}
	return cols
}

func (s *TextNormalizer) OutputColumns() []string {
	cols := make([]string, len(s.params.Pairs))
	for i, p := range s.params.Pairs {
		cols[i] = p.Output
	}
	return cols
}

func (s *TextNormalizer) Rebind(up dataview.View) (Stage, error) {
	return newTextNormalizer(up, s.params)
}

func (s *TextNormalizer) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindTextNormalizer, verTextNormalizer, s.params)
}

func init() {
	register(kindTextNormalizer, verTextNormalizer, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p normalizeParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newTextNormalizer(up, p)
	})
}
