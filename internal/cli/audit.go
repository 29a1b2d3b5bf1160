package cli

import (
	"github.com/spf13/cobra"

	"procurement-audit/internal/app"
)

var (
	auditOpts    auditFlags
	auditCSVPath string
	auditPNGPath string
	auditNotify  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit <file>",
	Short: "Audit a CSV or Excel file and print the flagged rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sensitivity, err := auditOpts.parseSensitivity()
		if err != nil {
			return err
		}

		opts := app.AuditOptions{
			File:        args[0],
			Mapping:     auditOpts.mapping(),
			Sensitivity: sensitivity,
			CSVPath:     auditCSVPath,
			PNGPath:     auditPNGPath,
			Notify:      auditNotify,
		}

		_, err = getApp().Audit(cmd.Context(), opts)
		return err
	},
}

func init() {
	auditOpts.bind(auditCmd.Flags())
	auditCmd.Flags().StringVar(&auditCSVPath, "csv", "", "Path to write the audited CSV report")
	auditCmd.Flags().StringVar(&auditPNGPath, "png", "", "Path to write the variance chart")
	auditCmd.Flags().BoolVar(&auditNotify, "notify", false, "Send a risk alert through the configured channel")
}
