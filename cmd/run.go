package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/preprocess"
)

var (
	runLoad     bool
	runCompress bool
	runDetailed bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, preprocess and optionally load in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, err := newDataset().FetchAll(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch dataset")
		}

		pp := preprocess.NewPreprocessor(cfg.Preprocess.ChunkSize, cfg.Preprocess.MaxWorkers)
		cleaned, report, err := pp.Run(ctx, t)
		if err != nil {
			return eris.Wrap(err, "preprocess")
		}

		fmt.Print(report.Render(runDetailed || cfg.Preprocess.DetailedReport))

		path, err := pp.Save(cleaned, cfg.Output.Dir, "", runCompress || cfg.Output.Compress)
		if err != nil {
			return eris.Wrap(err, "save processed csv")
		}
		zap.L().Info("processed data saved", zap.String("path", path))

		if !runLoad {
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.LoadGrants(ctx, cleaned)
		if err != nil {
			return eris.Wrap(err, "load grants")
		}
		zap.L().Info("load complete",
			zap.String("batch_id", stats.BatchID),
			zap.Int("rows", stats.Rows),
			zap.Int64("grants", stats.Grants),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runLoad, "load", false, "load the processed data into the configured store")
	runCmd.Flags().BoolVar(&runCompress, "compress", false, "gzip the output file")
	runCmd.Flags().BoolVar(&runDetailed, "detailed", false, "print per-column report breakdown")
	rootCmd.AddCommand(runCmd)
}
