package stages

import (
	"strings"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
	"github.com/pulsarml/pulsar/pkg/stopwords"
)

const kindStopWordsRemover = "StopWordsRemover"

var verStopWordsRemover = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

type stopWordsParams struct {
	Pairs []ColumnPair `json:"pairs"`
	// Language selects a predefined list; ignored when CustomWords is set
	Language string `json:"language,omitempty"`
	// CustomWords is an explicit list overriding the predefined one
	CustomWords []string `json:"custom_words,omitempty"`
}

// StopWordsRemover filters stop words out of token vector columns. The
// word set comes either from the per-language cache or from an explicit
// custom list; matching is case-insensitive.
type StopWordsRemover struct {
	params stopWordsParams
	cache  *stopwords.Cache
	set    map[string]struct{}
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewStopWordsRemover builds a removal stage using the language's
// predefined list from cache.
func NewStopWordsRemover(up dataview.View, cache *stopwords.Cache, pairs []ColumnPair, language string) (*StopWordsRemover, error) {
	return newStopWordsRemover(up, cache, stopWordsParams{Pairs: pairs, Language: language})
}

// NewCustomStopWordsRemover builds a removal stage over an explicit list.
func NewCustomStopWordsRemover(up dataview.View, pairs []ColumnPair, words []string) (*StopWordsRemover, error) {
	return newStopWordsRemover(up, nil, stopWordsParams{Pairs: pairs, CustomWords: words})
}

func newStopWordsRemover(up dataview.View, cache *stopwords.Cache, p stopWordsParams) (*StopWordsRemover, error) {
	added, err := tokenOutputColumns(kindStopWordsRemover, up.Schema(), p.Pairs)
	if err != nil {
		return nil, err
	}

	var set map[string]struct{}
	switch {
	case len(p.CustomWords) > 0:
		set = stopwords.Set(p.CustomWords)
	case p.Language != "":
		if cache == nil {
			return nil, errors.New(errors.ErrorTypeInternal, "stop words remover requires a cache for predefined lists")
		}
		set, err = cache.Get(p.Language)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "stop words remover has neither a language nor a custom list")
	}

	params := p
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		for _, pair := range params.Pairs {
			tokens, err := textValues(kindStopWordsRemover, pair.Input, row[pair.Input])
			if err != nil {
				return nil, err
			}
			kept := make([]string, 0, len(tokens))
			for _, tok := range tokens {
				if _, stop := set[strings.ToLower(tok)]; !stop {
					kept = append(kept, tok)
				}
			}
			out[pair.Output] = kept
		}
		return out, nil
	}

	view, err := dataview.Derive(up, added, mapper)
	if err != nil {
		return nil, err
	}
	return &StopWordsRemover{params: p, cache: cache, set: set, up: up, out: view, mapper: mapper}, nil
}

func (s *StopWordsRemover) Kind() string { return kindStopWordsRemover }
func (s *StopWordsRemover) Input() dataview.View { return s.up }
func (s *StopWordsRemover) Output() dataview.View { return s.out }
func (s *StopWordsRemover) Mapper() dataview.RowMapper { return s.mapper }
func (s *StopWordsRemover) InputColumns() []string { return pairInputs(s.params.Pairs) }
func (s *StopWordsRemover) OutputColumns() []string { return pairOutputs(s.params.Pairs) }

func (s *StopWordsRemover) Rebind(up dataview.View) (Stage, error) {
	return newStopWordsRemover(up, s.cache, s.params)
}

func (s *StopWordsRemover) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindStopWordsRemover, verStopWordsRemover, s.params)
}

func init() {
	register(kindStopWordsRemover, verStopWordsRemover, func(ctx *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p stopWordsParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		var cache *stopwords.Cache
		if ctx != nil {
			cache = ctx.Stopwords
		}
		return newStopWordsRemover(up, cache, p)
	})
}
