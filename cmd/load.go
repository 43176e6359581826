package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opengrants/triagency-cli/internal/table"
)

var loadInput string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a processed grant CSV into the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, err := table.ReadFile(loadInput)
		if err != nil {
			return eris.Wrap(err, "read processed csv")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.LoadGrants(ctx, t)
		if err != nil {
			return eris.Wrap(err, "load grants")
		}

		zap.L().Info("load complete",
			zap.String("batch_id", stats.BatchID),
			zap.Int("rows", stats.Rows),
			zap.Int("recipients", stats.Recipients),
			zap.Int("programs", stats.Programs),
			zap.Int("organizations", stats.Organizations),
			zap.Int64("grants", stats.Grants),
		)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadInput, "input", "", "processed CSV path (required)")
	_ = loadCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(loadCmd)
}
