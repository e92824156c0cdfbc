// Package featurize implements the text featurization pipeline compiler:
// it turns a declarative configuration into a fitted chain of columnar
// transforms over temporary columns, and exposes that chain as a single
// reusable, persistable unit that can be replayed against any new input
// with a schema-compatible layout.
package featurize

import (
	stderrors "errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pulsarml/pulsar/pkg/dataview"
	"github.com/pulsarml/pulsar/pkg/errors"
	"github.com/pulsarml/pulsar/pkg/logger"
	"github.com/pulsarml/pulsar/pkg/metrics"
	"github.com/pulsarml/pulsar/pkg/stages"
	"github.com/pulsarml/pulsar/pkg/stopwords"
)

// defaultStopwords backs Fit and Load when no cache is injected.
var defaultStopwords = stopwords.Default()

// FittedPipeline is a fitted, immutable featurization chain. It may be
// transformed, persisted, and row-mapped concurrently.
type FittedPipeline struct {
	chain        *Chain
	outputColumn string
}

// Fit assembles and fits a pipeline for opts over the input view, using
// the built-in stop-word lists.
func Fit(opts Options, input dataview.View) (*FittedPipeline, error) {
	return FitWithStopwords(opts, input, defaultStopwords)
}

// FitWithStopwords is Fit with an explicitly injected stop-word cache.
func FitWithStopwords(opts Options, input dataview.View, cache *stopwords.Cache) (*FittedPipeline, error) {
	start := time.Now()

	plan, err := newStagePlan(opts)
	if err != nil {
		return nil, countFitError(err)
	}
	_, built, temps, err := assemble(plan, input, cache)
	if err != nil {
		return nil, countFitError(err)
	}

	metrics.PipelinesFitted.Inc()
	for _, s := range built {
		metrics.StagesAssembled.WithLabelValues(s.Kind()).Inc()
	}
	logger.Get().Debug("pipeline fitted",
		zap.String("output", opts.OutputColumn),
		zap.Int("stages", len(built)),
		zap.Int("temp_columns", len(temps)),
		zap.Duration("elapsed", time.Since(start)))

	return &FittedPipeline{
		chain:        newChain(input.Schema(), built),
		outputColumn: opts.OutputColumn,
	}, nil
}

func countFitError(err error) error {
	label := "unknown"
	var e *errors.Error
	if stderrors.As(err, &e) {
		label = string(e.Type)
	}
	metrics.FitErrors.WithLabelValues(label).Inc()
	return err
}

// Transform replays the fitted stage sequence against a new,
// schema-compatible input view. The fitted chain is only read, so
// concurrent transforms are safe.
func (p *FittedPipeline) Transform(input dataview.View) (dataview.View, error) {
	start := time.Now()
	out, err := p.chain.Rebind(input)
	if err != nil {
		return nil, err
	}
	metrics.TransformDuration.Observe(time.Since(start).Seconds())
	return out, nil
}

// OutputSchema returns the exact output schema the pipeline produces for
// the given input schema, computed without data by rebinding onto an
// empty root.
func (p *FittedPipeline) OutputSchema(input *dataview.Schema) (*dataview.Schema, error) {
	out, err := p.chain.Rebind(dataview.Empty(input))
	if err != nil {
		return nil, err
	}
	return out.Schema(), nil
}

// AsRowMapper rebinds the pipeline onto the given input schema and
// returns one composed row-to-row transform, so an enclosing pipeline
// can treat this one as a single opaque stage.
func (p *FittedPipeline) AsRowMapper(input *dataview.Schema) (dataview.RowMapper, error) {
	return p.chain.RowMapper(input)
}

// OutputColumn returns the pipeline's declared feature column name.
func (p *FittedPipeline) OutputColumn() string { return p.outputColumn }

// Chain exposes the fitted chain for composition and inspection.
func (p *FittedPipeline) Chain() *Chain { return p.chain }

// Save persists the pipeline uncompressed.
func (p *FittedPipeline) Save(w io.Writer) error {
	return p.chain.Save(w, false)
}

// SaveCompressed persists the pipeline with a zstd-compressed body.
func (p *FittedPipeline) SaveCompressed(w io.Writer) error {
	return p.chain.Save(w, true)
}

// Load reconstructs a persisted pipeline using the built-in stop-word
// lists.
func Load(r io.Reader) (*FittedPipeline, error) {
	return LoadWithContext(r, &stages.LoadContext{Stopwords: defaultStopwords})
}

// LoadWithContext is Load with explicitly injected stage services.
func LoadWithContext(r io.Reader, ctx *stages.LoadContext) (*FittedPipeline, error) {
	chain, err := LoadChain(r, ctx)
	if err != nil {
		return nil, err
	}
	metrics.PipelinesLoaded.Inc()
	return &FittedPipeline{
		chain:        chain,
		outputColumn: sinkOutputColumn(chain),
	}, nil
}

// sinkOutputColumn recovers the declared output column from the last
// stage that adds columns (the final drop stage adds none). Token-only
// pipelines end in the token capture stage, whose column carries the
// declared name plus the token suffix.
func sinkOutputColumn(c *Chain) string {
	for i := len(c.stages) - 1; i >= 0; i-- {
		outs := c.stages[i].OutputColumns()
		if len(outs) == 0 {
			continue
		}
		return strings.TrimSuffix(outs[0], TokenOutputSuffix)
	}
	return ""
}
