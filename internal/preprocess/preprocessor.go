package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/table"
)

// Preprocessor is the composition root for the standard grant-cleaning
// pipeline: a default registry, the standard stage order, and save
// conveniences.
type Preprocessor struct {
	pipeline   *Pipeline
	maxWorkers int
	timestamp  string
}

// NewPreprocessor creates a preprocessor with the standard pipeline.
func NewPreprocessor(chunkSize, maxWorkers int) *Preprocessor {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Preprocessor{
		pipeline:   NewPipeline(nil, chunkSize).ConfigureStandard(),
		maxWorkers: maxWorkers,
		timestamp:  time.Now().Format("20060102_150405"),
	}
}

// Pipeline exposes the underlying pipeline for custom stage configuration.
func (p *Preprocessor) Pipeline() *Pipeline { return p.pipeline }

// Run processes a raw table through the standard pipeline.
func (p *Preprocessor) Run(ctx context.Context, t *table.Table) (*table.Table, *Report, error) {
	log := zap.L().With(zap.String("component", "preprocess"))

	if t.Empty() {
		log.Warn("empty table provided for preprocessing")
	} else {
		log.Info("starting preprocessing", zap.Int("rows", t.NumRows()))
	}

	result, rep, err := p.pipeline.Process(ctx, t, p.maxWorkers)
	if err != nil {
		return nil, nil, err
	}

	summary := rep.Summarize()
	log.Info("preprocessing complete",
		zap.Int("rows", result.NumRows()),
		zap.Int("issues", summary.TotalIssues),
		zap.Int("fixes", summary.TotalFixes),
		zap.Duration("elapsed", summary.ProcessingTime),
	)
	return result, rep, nil
}

// Save writes a processed table to dir as CSV, optionally gzip-compressed.
// An empty filename gets a timestamped default. Returns the written path.
func (p *Preprocessor) Save(t *table.Table, dir, filename string, compress bool) (string, error) {
	if t.Empty() {
		return "", eris.New("preprocess: refusing to save empty table")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "preprocess: create output dir %s", dir)
	}

	if filename == "" {
		filename = "data_" + p.timestamp + ".csv"
	}
	if compress && !strings.HasSuffix(filename, ".gz") {
		filename += ".gz"
	}

	path := filepath.Join(dir, filename)
	if err := t.WriteFile(path); err != nil {
		return "", err
	}

	zap.L().Info("saved processed data",
		zap.String("path", path),
		zap.Int("rows", t.NumRows()),
	)
	return path, nil
}
