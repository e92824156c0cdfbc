package stages

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
)

const kindHashGramExtractor = "HashGramExtractor"

var verHashGramExtractor = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

// maxHashBits bounds the output vector size at 2^30 slots.
const maxHashBits = 30

type hashGramParams struct {
	Inputs     []string `json:"inputs"`
	Output     string   `json:"output"`
	Length     int      `json:"length"`
	AllLengths bool     `json:"all_lengths"`
	Bits       int      `json:"bits"`
}

// HashGramExtractor maps token vector columns to a fixed-size count
// vector of 2^bits slots using the hashing trick. No vocabulary is
// learned: each gram hashes independently, mixed with the ordinal of its
// source column so the same gram in different sources lands apart. This
// is why hash-based extraction needs no initial column concatenation.
type HashGramExtractor struct {
	params hashGramParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewHashGramExtractor builds a hashing-trick extraction stage over up.
func NewHashGramExtractor(up dataview.View, output string, length int, allLengths bool, bits int, inputs ...string) (*HashGramExtractor, error) {
	return newHashGramExtractor(up, hashGramParams{
		Inputs:     inputs,
		Output:     output,
		Length:     length,
		AllLengths: allLengths,
		Bits:       bits,
	})
}

func newHashGramExtractor(up dataview.View, p hashGramParams) (*HashGramExtractor, error) {
	if err := validateGramParams(kindHashGramExtractor, up.Schema(), p.Inputs, p.Length); err != nil {
		return nil, err
	}
	if p.Bits < 1 || p.Bits > maxHashBits {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"%s: hash bits %d outside [1,%d]", kindHashGramExtractor, p.Bits, maxHashBits)
	}

	size := 1 << p.Bits
	mask := uint64(size - 1)
	outCol := dataview.Column{
		Name:   p.Output,
		Type:   dataview.TypeFloat,
		Vector: true,
		Size:   size,
	}

	params := p
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		vec := make([]float32, size)
		for ord, in := range params.Inputs {
			tokens, err := textValues(kindHashGramExtractor, in, row[in])
			if err != nil {
				return nil, err
			}
			seed := uint64(ord)
			emitGrams(tokens, params.Length, params.AllLengths, func(gram string) {
				vec[hashSlot(gram, seed, mask)]++
			})
		}
		out[params.Output] = vec
		return out, nil
	}

	view, err := dataview.Derive(up, []dataview.Column{outCol}, mapper)
	if err != nil {
		return nil, err
	}
	return &HashGramExtractor{params: p, up: up, out: view, mapper: mapper}, nil
}

// hashSlot maps a gram to a slot, mixing in the source ordinal.
func hashSlot(gram string, seed, mask uint64) int {
	var b strings.Builder
	b.Grow(len(gram) + 2)
	b.WriteByte(byte(seed))
	b.WriteByte(0)
	b.WriteString(gram)
	return int(xxhash.Sum64String(b.String()) & mask)
}

// Size returns the output vector size, 2^bits.
func (s *HashGramExtractor) Size() int { return 1 << s.params.Bits }

func (s *HashGramExtractor) Kind() string { return kindHashGramExtractor }
func (s *HashGramExtractor) Input() dataview.View { return s.up }
func (s *HashGramExtractor) Output() dataview.View { return s.out }
func (s *HashGramExtractor) Mapper() dataview.RowMapper { return s.mapper }
func (s *HashGramExtractor) InputColumns() []string { return s.params.Inputs }
func (s *HashGramExtractor) OutputColumns() []string { return []string{s.params.Output} }

func (s *HashGramExtractor) Rebind(up dataview.View) (Stage, error) {
	return newHashGramExtractor(up, s.params)
}

func (s *HashGramExtractor) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindHashGramExtractor, verHashGramExtractor, s.params)
}

func init() {
	register(kindHashGramExtractor, verHashGramExtractor, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p hashGramParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newHashGramExtractor(up, p)
	})
}
