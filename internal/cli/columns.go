package cli

import (
	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "List a file's columns and the guessed mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Columns(args[0])
	},
}
