package stages

import (
	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
)

const kindDropColumns = "DropColumns"

var verDropColumns = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

type dropParams struct {
	Names []string `json:"names"`
}

// DropColumns hides the named columns of the upstream view. Its mapper
// removes the corresponding keys from a row.
type DropColumns struct {
	params dropParams
	up     dataview.View
	out    dataview.View
	mapper dataview.RowMapper
}

// NewDropColumns builds a drop stage over up.
func NewDropColumns(up dataview.View, names ...string) (*DropColumns, error) {
	return newDropColumns(up, dropParams{Names: names})
}

func newDropColumns(up dataview.View, p dropParams) (*DropColumns, error) {
	if len(p.Names) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, kindDropColumns+" requires at least one column name")
	}
	names := p.Names
	mapper := func(row dataview.Row) (dataview.Row, error) {
		out := row.Clone()
		for _, n := range names {
			delete(out, n)
		}
		return out, nil
	}
	return &DropColumns{
		params: p,
		up:     up,
		out:    dataview.DropColumns(up, p.Names...),
		mapper: mapper,
	}, nil
}

func (s *DropColumns) Kind() string { return kindDropColumns }
func (s *DropColumns) Input() dataview.View { return s.up }
func (s *DropColumns) Output() dataview.View { return s.out }
func (s *DropColumns) Mapper() dataview.RowMapper { return s.mapper }
func (s *DropColumns) InputColumns() []string { return s.params.Names }
func (s *DropColumns) OutputColumns() []string { return nil }

func (s *DropColumns) Rebind(up dataview.View) (Stage, error) {
	return newDropColumns(up, s.params)
}

func (s *DropColumns) Save(w *modelstore.Writer) error {
	return w.WriteBlock(kindDropColumns, verDropColumns, s.params)
}

func init() {
	register(kindDropColumns, verDropColumns, func(_ *LoadContext, blk *modelstore.Block, up dataview.View) (Stage, error) {
		var p dropParams
		if err := blk.Decode(&p); err != nil {
			return nil, err
		}
		return newDropColumns(up, p)
	})
}
