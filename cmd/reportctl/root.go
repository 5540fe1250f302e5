package main

import (
	"os"

	"timesheets/internal/cli"
	"timesheets/internal/config"
	applog "timesheets/internal/log"

	"github.com/spf13/cobra"
)

var (
	logger *applog.Logger
	cfg    *config.Config
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Run and export detailed time reports",
	Long: `reportctl runs the detailed time report against the timesheets database
and writes it as CSV, XLSX, PDF or printable HTML, without the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		logger = cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentCLI)
		cfg = cli.LoadAndValidateConfig(logger)
		if dbPath != "" {
			cfg.SQLiteDBPath = dbPath
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	rootCmd.AddCommand(exportCmd)
}
