package featurize

import (
	"io"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/modelstore"
	"github.com/pulsarml/pulsar/pkg/stages"
)

// chainSchemaBlock names the root schema block in a persisted chain.
const chainSchemaBlock = "Schema"

var verChain = modelstore.Version{Written: 1, Readable: 1, MinReadable: 1}

// Chain is a fitted stage sequence in root-to-sink order plus the schema
// of the root view it was built against. Immutable once created; it may
// be rebound concurrently since rebinding only reads the stage list.
type Chain struct {
	rootSchema *dataview.Schema
	stages     []stages.Stage
}

func newChain(root *dataview.Schema, list []stages.Stage) *Chain {
	return &Chain{rootSchema: root, stages: list}
}

// RootSchema returns the schema the chain was fitted against.
func (c *Chain) RootSchema() *dataview.Schema { return c.rootSchema }

// Stages returns a copy of the stage list in root-to-sink order.
func (c *Chain) Stages() []stages.Stage {
	out := make([]stages.Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Save writes the chain: root schema block, stage count, then each
// stage's own versioned block in root-to-sink order.
func (c *Chain) Save(w io.Writer, compress bool) error {
	sw, err := modelstore.NewWriter(w, compress)
	if err != nil {
		return err
	}
	if err := sw.WriteBlock(chainSchemaBlock, verChain, c.rootSchema.Columns()); err != nil {
		return err
	}
	if err := sw.WriteCount(len(c.stages)); err != nil {
		return err
	}
	for _, s := range c.stages {
		if err := s.Save(sw); err != nil {
			return err
		}
	}
	return sw.Close()
}

// LoadChain reconstructs a chain, rebuilding each stage in order against
// a placeholder root carrying the stored schema.
func LoadChain(r io.Reader, ctx *stages.LoadContext) (*Chain, error) {
	sr, err := modelstore.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer sr.Close()

	blk, err := sr.ReadBlock()
	if err != nil {
		return nil, err
	}
	if blk.Name != chainSchemaBlock {
		return nil, errors.Newf(errors.ErrorTypeSerialization, "expected %s block, found %q", chainSchemaBlock, blk.Name)
	}
	if !verChain.CanRead(blk.Ver) {
		return nil, errors.Newf(errors.ErrorTypeSerialization, "chain version %d not readable", blk.Ver.Written)
	}
	var cols []dataview.Column
	if err := blk.Decode(&cols); err != nil {
		return nil, err
	}
	schema, err := dataview.NewSchema(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "stored root schema invalid")
	}

	count, err := sr.ReadCount()
	if err != nil {
		return nil, err
	}

	var cur dataview.View = dataview.Empty(schema)
	list := make([]stages.Stage, 0, count)
	for i := 0; i < count; i++ {
		blk, err := sr.ReadBlock()
		if err != nil {
			return nil, err
		}
		stage, err := stages.Load(ctx, blk, cur)
		if err != nil {
			return nil, err
		}
		list = append(list, stage)
		cur = stage.Output()
	}
	return newChain(schema, list), nil
}

// Rebind re-roots the recorded stage sequence onto a new input view with
// a schema-compatible (not positionally identical) layout, returning the
// final view of a transient chain. The receiver is only read.
func (c *Chain) Rebind(input dataview.View) (dataview.View, error) {
	cur := input
	for _, s := range c.stages {
		rebound, err := s.Rebind(cur)
		if err != nil {
			return nil, err
		}
		cur = rebound.Output()
	}
	return cur, nil
}

// RowMapper rebinds the chain onto an empty root of the given schema and
// composes the rebound stages' row mappers, in root-to-sink order, into
// a single row-to-row transform.
func (c *Chain) RowMapper(schema *dataview.Schema) (dataview.RowMapper, error) {
	var cur dataview.View = dataview.Empty(schema)
	mappers := make([]dataview.RowMapper, 0, len(c.stages))
	for _, s := range c.stages {
		r, err := s.Rebind(cur)
		if err != nil {
			return nil, err
		}
		mappers = append(mappers, r.Mapper())
		cur = r.Output()
	}
	return dataview.ComposeMappers(mappers...), nil
}
