package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/preprocess"
	"github.com/opengrants/triagency-cli/internal/table"
)

var (
	preprocessInput    string
	preprocessOutput   string
	preprocessWorkers  int
	preprocessChunk    int
	preprocessCompress bool
	preprocessDetailed bool
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Clean and consolidate a raw grant CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, err := table.ReadFile(preprocessInput)
		if err != nil {
			return eris.Wrap(err, "read input csv")
		}
		zap.L().Info("input loaded",
			zap.Int("rows", t.NumRows()),
			zap.Int("columns", t.NumCols()),
		)

		workers := preprocessWorkers
		if workers == 0 {
			workers = cfg.Preprocess.MaxWorkers
		}
		chunkSize := preprocessChunk
		if chunkSize == 0 {
			chunkSize = cfg.Preprocess.ChunkSize
		}

		pp := preprocess.NewPreprocessor(chunkSize, workers)
		cleaned, report, err := pp.Run(ctx, t)
		if err != nil {
			return eris.Wrap(err, "preprocess")
		}

		fmt.Print(report.Render(preprocessDetailed || cfg.Preprocess.DetailedReport))

		path, err := pp.Save(cleaned, cfg.Output.Dir, preprocessOutput, preprocessCompress || cfg.Output.Compress)
		if err != nil {
			return eris.Wrap(err, "save processed csv")
		}
		zap.L().Info("preprocess complete", zap.String("path", path))
		return nil
	},
}

func init() {
	preprocessCmd.Flags().StringVar(&preprocessInput, "input", "", "raw CSV path (required)")
	preprocessCmd.Flags().StringVar(&preprocessOutput, "output", "", "output filename (default: data_TIMESTAMP.csv)")
	preprocessCmd.Flags().IntVar(&preprocessWorkers, "workers", 0, "parallel chunk workers (default from config)")
	preprocessCmd.Flags().IntVar(&preprocessChunk, "chunk-size", 0, "rows per chunk (default from config)")
	preprocessCmd.Flags().BoolVar(&preprocessCompress, "compress", false, "gzip the output file")
	preprocessCmd.Flags().BoolVar(&preprocessDetailed, "detailed", false, "print per-column report breakdown")
	_ = preprocessCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(preprocessCmd)
}
