package cli

import (
	"github.com/spf13/cobra"

	"procurement-audit/internal/app"
)

var (
	batchOpts   auditFlags
	batchOutDir string
	batchDryRun bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Audit every CSV or Excel file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sensitivity, err := batchOpts.parseSensitivity()
		if err != nil {
			return err
		}

		opts := app.BatchOptions{
			Dir:         args[0],
			OutDir:      batchOutDir,
			Mapping:     batchOpts.mapping(),
			Sensitivity: sensitivity,
			DryRun:      batchDryRun,
		}

		return getApp().Batch(cmd.Context(), opts)
	},
}

func init() {
	batchOpts.bind(batchCmd.Flags())
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "Directory for the per-file reports")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "Print summaries without writing reports")
}
