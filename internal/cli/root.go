package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"procurement-audit/internal/app"
	"procurement-audit/internal/config"
	"procurement-audit/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "priceaudit",
	Short:         "Audit procurement purchases against standard prices",
	Long: `priceaudit compares what was paid for each purchase with its standard
market price and flags rows whose markup exceeds a sensitivity threshold.

Run "serve" for the upload dashboard, "audit" for a one-shot report on a
single CSV or XLSX file, and "batch" to audit every file in a directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default ./config.yaml; PRICEAUDIT_* env vars override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level for this run: debug, info, warn, error or disabled")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(columnsCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(simulateCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
