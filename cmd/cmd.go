// Package cmd defines the command-line interface for radar.
package cmd

import (
	"github.com/huangsam/radar/core/baseline"
	"github.com/huangsam/radar/core/decay"
	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of accounts to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent simulation workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("emoji", "no", "Enable emojis in output headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of forecastCmd to Viper
	forecastCmd.Flags().StringP("accounts", "a", "", "Account registry snapshot (.csv or .parquet)")
	forecastCmd.Flags().StringP("touchpoints", "t", "", "Touchpoint snapshot (.csv or .parquet)")
	forecastCmd.Flags().String("cutoff", contract.CutoffAuto, "Last observed day (YYYY-MM-DD) or 'auto' for the latest touchpoint")
	forecastCmd.Flags().IntP("horizon", "H", contract.DefaultHorizonDays, "Number of days to forecast (1-365)")
	forecastCmd.Flags().Int("window-days", baseline.DefaultWindowDays, "Trailing days used to estimate weekday baselines")
	forecastCmd.Flags().Int("min-obs", baseline.DefaultMinObs, "Observations needed before a weekday rate is trusted")
	forecastCmd.Flags().Float64("decay-rate", decay.DefaultDecayRatePerDay, "Daily engagement decay rate in [0, 1)")
	forecastCmd.Flags().Float64("churn-threshold", decay.DefaultChurnThreshold, "Engagement level at which churn probability is 0.5")
	forecastCmd.Flags().Float64("risk-threshold", contract.DefaultRiskThreshold, "Churn probability that marks an account at risk")
	forecastCmd.Flags().Float64("max-engagement", decay.DefaultMaxEngagementScore, "Upper bound of the engagement score")
	forecastCmd.Flags().Float64("normalization-factor", 0, "Fixed interaction normalization factor (0 = auto-calibrate)")
	forecastCmd.Flags().Bool("reset-on-touchpoint", false, "Reset engagement to the maximum on days with expected touchpoints")
	forecastCmd.Flags().String("account-ids", "", "Comma-separated account ids to forecast (an empty list selects nobody)")
	forecastCmd.Flags().String("out-dir", "", "Directory for the CSV and Markdown report bundle")
	forecastCmd.Flags().Bool("summary", false, "Print a short plain-text summary after the results")
	if err := viper.BindPFlags(forecastCmd.Flags()); err != nil {
		contract.LogFatal("Error binding forecast flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
