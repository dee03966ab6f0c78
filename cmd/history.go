package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/internal/iocache"
	"github.com/huangsam/radar/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackendFromConfig reads and validates the history backend settings.
// An empty backend means history tracking is disabled.
func historyBackendFromConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.NoneBackend
	if b := viper.GetString("history-backend"); b != "" {
		backend = schema.DatabaseBackend(b)
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
func historySetup() error {
	backend, connStr, err := historyBackendFromConfig()
	if err != nil {
		return err
	}

	// No forecast cache for history commands
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads the history backend without opening the store,
// so migrations can run on any schema version.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackendFromConfig()
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyStore returns the configured history store or exits when tracking is off.
func historyStore() contract.HistoryStore {
	store := iocache.Manager.GetHistoryStore()
	if store == nil {
		contract.LogFatal("History tracking is disabled", fmt.Errorf("set --history-backend or RADAR_HISTORY_BACKEND"))
	}
	return store
}

// historyCmd focused on forecast run history.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by forecast commands.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage forecast run history and exports",
	Long: `Manage the history of forecast runs used for trend tracking and reporting.

When enabled, Radar records every forecast run, storing:
- Run metadata (timestamp, configuration, duration, cutoff, horizon)
- End-of-horizon outcomes per account (engagement, churn probability, risk bucket)

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  # Record runs in the default SQLite history file
  RADAR_HISTORY_BACKEND=sqlite radar forecast -a accounts.csv -t touchpoints.csv

  # Export for analysis in pandas/DuckDB
  RADAR_HISTORY_BACKEND=sqlite radar history export --output-file history`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all forecast run history",
	Long: `Delete all stored forecast runs and account outcomes.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  radar history export --output-file backup
  radar history clear`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseCaching()
		if err := iocache.ClearHistory(cfg.HistoryBackend, sqlitePath(cfg.HistoryDBConnect, iocache.GetHistoryDBFilePath()), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history statistics and connection details",
	Long: `Show detailed information about forecast run history.

Displays:
- Backend type and connection status
- Total number of forecast runs stored
- Last and oldest run timestamps
- Distinct accounts forecast across all runs
- Database table sizes`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := historyStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export forecast history to Parquet for BI tools and analytics",
	Long: `Export all stored forecast runs and account outcomes to Parquet.

Writes <prefix>.forecast_runs.parquet and <prefix>.forecast_accounts.parquet.

Requires: --output-file parameter (used as the file prefix)

Examples:
  radar history export --output-file radar
  duckdb -c "SELECT * FROM read_parquet('radar.forecast_accounts.parquet') LIMIT 10"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteHistoryExport(os.Stdout, historyStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the forecast history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  radar history migrate

  # Rollback to the initial state
  radar history migrate --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
