package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opengrants/triagency-cli/internal/preprocess"
)

var processorsCmd = &cobra.Command{
	Use:   "processors",
	Short: "List available preprocessing steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := preprocess.NewRegistry()
		descriptions := reg.List()
		for _, name := range reg.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-35s %s\n", name, descriptions[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processorsCmd)
}
