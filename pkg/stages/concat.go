package stages

import (
	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
)

const kindTextConcat = "TextConcat"

var verTextConcat = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

type textConcatParams struct {
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

// TextConcat concatenates one or more text columns into a single
// variable-length text vector column, preserving declared input order.
type TextConcat struct {
	params textConcatParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewTextConcat builds a text concatenation stage over up.
func NewTextConcat(up dataview.View, output string, inputs ...string) (*TextConcat, error) {
	return newTextConcat(up, textConcatParams{Inputs: inputs, Output: output})
}

func newTextConcat(up dataview.View, p textConcatParams) (*TextConcat, error) {
	schema := up.Schema()
	if len(p.Inputs) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "text concat requires at least one input column")
	}
	for _, in := range p.Inputs {
		if _, err := requireText(kindTextConcat, schema, in); err != nil {
			return nil, err
		}
	}
	outCol := dataview.Column{Name: p.Output, Type: dataview.TypeText, Vector: true, Variable: true}

	inputs := p.Inputs
	output := p.Output
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		var joined []string
		for _, in := range inputs {
			vals, err := textValues(kindTextConcat, in, row[in])
			if err != nil {
				return nil, err
			}
			joined = append(joined, vals...)
		}
		out[output] = joined
		return out, nil
	}

	view, err := dataview.Derive(up, []dataview.Column{outCol}, mapper)
	if err != nil {
		return nil, err
	}
	return &TextConcat{params: p, up: up, out: view, mapper: mapper}, nil
}

func (s *TextConcat) Kind() string { return kindTextConcat }
func (s *TextConcat) Input() dataview.View { return s.up }
func (s *TextConcat) Output() dataview.View { return s.out }
func (s *TextConcat) InputColumns() []string { return s.params.Inputs }
func (s *TextConcat) OutputColumns() []string { return []string{s.params.Output} }
func (s *TextConcat) Mapper() dataview.RowMapper { return s.mapper }

func (s *TextConcat) Rebind(up dataview.View) (Stage, error) {
	return newTextConcat(up, s.params)
}

func (s *TextConcat) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindTextConcat, verTextConcat, s.params)
}

func init() {
	register(kindTextConcat, verTextConcat, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p textConcatParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newTextConcat(up, p)
	})
}

const kindFeatureConcat = "FeatureConcat"

var verFeatureConcat = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

// ConcatSource is one float-vector segment of a feature concatenation,
// tagged with a label that disambiguates slot identities across segments.
type ConcatSource struct {
	Column string `json:"column"`
	Label  string `json:"label,omitempty"`
}

type featureConcatParams struct {
	Sources []ConcatSource `json:"sources"`
	Output  string         `json:"output"`
}

// FeatureConcat concatenates fixed-size float vector columns into the
// final feature column. With more than one source, every slot name is
// prefixed with its segment label so that identical terms from different
// segments stay distinguishable. A single source passes its slot names
// through under a degenerate self-tag.
type FeatureConcat struct {
	params featureConcatParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
	size   int
}

// NewFeatureConcat builds the final feature concatenation stage.
func NewFeatureConcat(up dataview.View, output string, sources ...ConcatSource) (*FeatureConcat, error) {
	return newFeatureConcat(up, featureConcatParams{Sources: sources, Output: output})
}

func newFeatureConcat(up dataview.View, p featureConcatParams) (*FeatureConcat, error) {
	schema := up.Schema()
	if len(p.Sources) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "feature concat requires at least one source column")
	}

	total := 0
	var slotNames []string
	haveNames := true
	normalized := true
	for _, src := range p.Sources {
		col, err := requireFloatVector(kindFeatureConcat, schema, src.Column)
		if err != nil {
			return nil, err
		}
		total += col.Size
		meta := col.Metadata
		if meta == nil || len(meta.SlotNames) != col.Size {
			haveNames = false
		} else if haveNames {
			for _, slot := range meta.SlotNames {
				if len(p.Sources) > 1 {
					slotNames = append(slotNames, src.Label+"."+slot)
				} else {
					slotNames = append(slotNames, slot)
				}
			}
		}
		if meta == nil || !meta.IsNormalized {
			normalized = false
		}
	}
	if !haveNames {
		slotNames = nil
	}

	outCol := dataview.Column{
		Name:     p.Output,
		Type:     dataview.TypeFloat,
		Vector:   true,
		Size:     total,
		Metadata: &dataview.Metadata{SlotNames: slotNames, IsNormalized: normalized},
	}

	sources := p.Sources
	output := p.Output
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		vec := make([]float32, 0, total)
		for _, src := range sources {
			seg, err := floatVector(kindFeatureConcat, src.Column, row[src.Column])
			if err != nil {
				return nil, err
			}
			vec = append(vec, seg...)
		}
		out[output] = vec
		return out, nil
	}

	view, err := dataview.Derive(up, []dataview.Column{outCol}, mapper)
	if err != nil {
		return nil, err
	}
	return &FeatureConcat{params: p, up: up, out: view, mapper: mapper, size: total}, nil
}

func (s *FeatureConcat) Kind() string { return kindFeatureConcat }
func (s *FeatureConcat) Input() dataview.View { return s.up }
func (s *FeatureConcat) Output() dataview.View { return s.out }
func (s *FeatureConcat) Mapper() dataview.RowMapper { return s.mapper }

func (s *FeatureConcat) InputColumns() []string {
	cols := make([]string, len(s.params.Sources))
	for i, src := range s.params.Sources {
		cols[i] = src.Column
	}
	return cols
}

func (s *FeatureConcat) OutputColumns() []string { return []string{s.params.Output} }

func (s *FeatureConcat) Rebind(up dataview.View) (Stage, error) {
	return newFeatureConcat(up, s.params)
}

func (s *FeatureConcat) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindFeatureConcat, verFeatureConcat, s.params)
}

func init() {
	register(kindFeatureConcat, verFeatureConcat, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p featureConcatParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newFeatureConcat(up, p)
	})
}
