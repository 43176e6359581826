package preprocess

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opengrants/triagency-cli/internal/table"
)

// DefaultChunkSize is the row-count threshold above which a table is split
// for parallel processing.
const DefaultChunkSize = 100000

// Stage is one pipeline step: a registered processor name plus its
// parameters.
type Stage struct {
	Processor string
	Params    Params
}

// Pipeline runs an ordered list of stages over a table, optionally in
// parallel over contiguous row chunks. A pipeline is reusable across
// Process calls; each call gets a fresh quality report.
type Pipeline struct {
	registry  *Registry
	stages    []Stage
	chunkSize int
}

// NewPipeline creates a pipeline. A nil registry gets the default
// processor set; a non-positive chunk size gets DefaultChunkSize.
func NewPipeline(reg *Registry, chunkSize int) *Pipeline {
	if reg == nil {
		reg = NewRegistry()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{registry: reg, chunkSize: chunkSize}
}

// Registry returns the pipeline's processor registry.
func (p *Pipeline) Registry() *Registry { return p.registry }

// AddStage appends a stage and returns the pipeline for chaining.
func (p *Pipeline) AddStage(name string, params Params) *Pipeline {
	p.stages = append(p.stages, Stage{Processor: name, Params: params})
	return p
}

// Stages returns a copy of the configured stage list.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// ConfigureStandard wires the standard stage order. The order is
// load-bearing: organization mapping must precede the org-dependent
// stages, year extraction must precede year consumers, and amendment
// consolidation runs last so it groups on cleaned discriminator fields.
func (p *Pipeline) ConfigureStandard() *Pipeline {
	return p.
		AddStage("clean_column_names", Params{}).
		AddStage("map_organization_codes", Params{}).
		AddStage("clean_research_organization_names", Params{}).
		AddStage("standardize_city_names", Params{}).
		AddStage("extract_year_from_date", Params{}).
		AddStage("fix_research_organizations", Params{}).
		AddStage("clean_encoded_characters", Params{}).
		AddStage("ensure_numeric_values", Params{}).
		AddStage("normalize_date_fields", Params{}).
		AddStage("process_amendments", Params{})
}

// Process runs every stage over the table and returns the processed table
// plus the run's quality report. Tables larger than the chunk size are
// split into contiguous chunks processed in parallel by up to maxWorkers
// goroutines; each chunk runs the full stage sequence independently and
// chunks are reassembled in original index order. Stages never share
// cross-chunk state, so a grant whose amendments span two chunks is not
// consolidated across them — run large consolidations with maxWorkers 1.
func (p *Pipeline) Process(ctx context.Context, t *table.Table, maxWorkers int) (*table.Table, *Report, error) {
	log := zap.L().With(zap.String("component", "preprocess.pipeline"))
	rep := NewReport()

	if t.Empty() {
		log.Warn("empty table provided for processing")
		rep.Finalize(t, t)
		return t, rep, nil
	}

	var result *table.Table
	if t.NumRows() <= p.chunkSize || maxWorkers <= 1 {
		log.Info("processing as a single chunk", zap.Int("rows", t.NumRows()))
		chunk := NewChunk(t.Clone(), nil)
		if err := p.processChunk(ctx, chunk, rep); err != nil {
			return nil, nil, err
		}
		result = chunk.Frame
	} else {
		chunks := p.split(t)
		log.Info("processing in parallel chunks",
			zap.Int("rows", t.NumRows()),
			zap.Int("chunks", len(chunks)),
			zap.Int("workers", maxWorkers),
		)

		reports := make([]*Report, len(chunks))
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(maxWorkers)
		for i, chunk := range chunks {
			g.Go(func() error {
				reports[i] = NewReport()
				return p.processChunk(gCtx, chunk, reports[i])
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}

		// Reassemble strictly by original chunk index, not completion
		// order.
		for _, chunk := range chunks {
			if result == nil {
				result = chunk.Frame
				continue
			}
			if err := result.Append(chunk.Frame); err != nil {
				return nil, nil, err
			}
		}
		for _, chunkRep := range reports {
			rep.MergeMax(chunkRep)
		}
	}

	rep.Finalize(t, result)
	return result, rep, nil
}

// split slices the table into contiguous chunks of at most chunkSize rows,
// tagged with their index.
func (p *Pipeline) split(t *table.Table) []*Chunk {
	var chunks []*Chunk
	for start := 0; start < t.NumRows(); start += p.chunkSize {
		end := start + p.chunkSize
		if end > t.NumRows() {
			end = t.NumRows()
		}
		chunks = append(chunks, NewChunk(t.Slice(start, end), map[string]any{
			"chunk_index": len(chunks),
		}))
	}
	return chunks
}

// processChunk runs the full stage sequence over one chunk. A stage
// failure is logged and recorded in the chunk history, and processing
// continues with the table state as of the last successful stage. An
// unknown processor name is a configuration bug and fails fast.
func (p *Pipeline) processChunk(ctx context.Context, c *Chunk, rep *Report) error {
	log := zap.L().With(zap.String("component", "preprocess.pipeline"))

	for _, stage := range p.stages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		proc, err := p.registry.Get(stage.Processor)
		if err != nil {
			return err
		}

		rowsBefore := c.Frame.NumRows()
		result, err := proc.Apply(c.Frame, rep, stage.Params)
		if err != nil {
			log.Error("stage failed, continuing with previous table state",
				zap.String("stage", stage.Processor),
				zap.Strings("columns", stage.Params.Columns),
				zap.Error(err),
			)
			c.RecordOperation(stage.Processor, map[string]any{
				"error":   err.Error(),
				"columns": stage.Params.Columns,
			})
			continue
		}

		c.RecordOperation(stage.Processor, map[string]any{
			"rows_before": rowsBefore,
			"rows_after":  result.NumRows(),
		})
		c.Frame = result
	}

	return nil
}
