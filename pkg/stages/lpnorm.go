package stages

import (
	"math"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
)

// NormKind selects the vector norm used for rescaling.
type NormKind string

const (
	// NormNone disables rescaling
	NormNone NormKind = "none"
	// NormL1 rescales by the sum of absolute values
	NormL1 NormKind = "l1"
	// NormL2 rescales by the Euclidean norm
	NormL2 NormKind = "l2"
	// NormLInf rescales by the maximum absolute value
	NormLInf NormKind = "linf"
)

const kindLpNormalizer = "LpNormalizer"

var verLpNormalizer = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

type lpNormParams struct {
	Pairs []ColumnPair `json:"pairs"`
	Norm  NormKind     `json:"norm"`
}

// LpNormalizer rescales fixed-size float vector columns by an Lp norm.
// Each pair is rescaled independently; a zero-norm vector passes through
// unchanged. Output columns keep the input's slot names and gain the
// is-normalized metadata flag.
type LpNormalizer struct {
	params lpNormParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewLpNormalizer builds a rescaling stage over up.
func NewLpNormalizer(up dataview.View, pairs []ColumnPair, norm NormKind) (*LpNormalizer, error) {
	return newLpNormalizer(up, lpNormParams{Pairs: pairs, Norm: norm})
}

func newLpNormalizer(up dataview.View, p lpNormParams) (*LpNormalizer, error) {
	switch p.Norm {
	case NormL1, NormL2, NormLInf:
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "%s: unsupported norm kind %q", kindLpNormalizer, p.Norm)
	}
	if len(p.Pairs) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, kindLpNormalizer+" requires at least one column pair")
	}

	schema := up.Schema()
	added := make([]dataview.Column, 0, len(p.Pairs))
	for _, pair := range p.Pairs {
		in, err := requireFloatVector(kindLpNormalizer, schema, pair.Input)
		if err != nil {
			return nil, err
		}
		meta := &dataview.Metadata{IsNormalized: true}
		if in.Metadata != nil {
			meta.SlotNames = in.Metadata.SlotNames
		}
		added = append(added, dataview.Column{
			Name:     pair.Output,
			Type:     dataview.TypeFloat,
			Vector:   true,
			Size:     in.Size,
			Metadata: meta,
		})
	}

	params := p
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		for _, pair := range params.Pairs {
			vec, err := floatVector(kindLpNormalizer, pair.Input, row[pair.Input])
			if err != nil {
				return nil, err
			}
			out[pair.Output] = rescale(vec, params.Norm)
		}
		return out, nil
	}

	view, err := dataview.Derive(up, added, mapper)
	if err != nil {
		return nil, err
	}
	return &LpNormalizer{params: p, up: up, out: view, mapper: mapper}, nil
}

// rescale divides vec by its Lp norm, returning a new slice.
func rescale(vec []float32, kind NormKind) []float32 {
	var norm float64
	switch kind {
	case NormL1:
		for _, v := range vec {
			norm += math.Abs(float64(v))
		}
	case NormL2:
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		norm = math.Sqrt(norm)
	case NormLInf:
		for _, v := range vec {
			if abs := math.Abs(float64(v)); abs > norm {
				norm = abs
			}
		}
	}
	out := make([]float32, len(vec))
	if norm == 0 {
		copy(out, vec)
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func (s *LpNormalizer) Kind() string { return kindLpNormalizer }
func (s *LpNormalizer) Input() dataview.View { return s.up }
func (s *LpNormalizer) Output() dataview.View { return s.out }
func (s *LpNormalizer) Mapper() dataview.RowMapper { return s.mapper }
func (s *LpNormalizer) InputColumns() []string { return pairInputs(s.params.Pairs) }
func (s *LpNormalizer) OutputColumns() []string { return pairOutputs(s.params.Pairs) }

func (s *LpNormalizer) Rebind(up dataview.View) (Stage, error) {
	return newLpNormalizer(up, s.params)
}

func (s *LpNormalizer) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindLpNormalizer, verLpNormalizer, s.params)
}

func init() {
	register(kindLpNormalizer, verLpNormalizer, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p lpNormParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newLpNormalizer(up, p)
	})
}
