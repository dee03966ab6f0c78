package cmd

import (
	"github.com/huangsam/radar/core"
	"github.com/huangsam/radar/internal/contract"
	"github.com/spf13/cobra"
)

// forecastCmd runs the churn forecast.
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast daily churn probability for every account.",
	Long: `Estimate weekday touchpoint baselines from recent history and simulate each
account's engagement forward, day by day, to forecast its churn probability.

Accounts that end the horizon at or above --risk-threshold are flagged at risk.
Accounts that cross the threshold mid-horizon but recover land on the watchlist.

Examples:
  # Forecast the next 30 days from the latest touchpoint
  radar forecast -a accounts.csv -t touchpoints.csv

  # 90 day horizon for two accounts from a fixed cutoff
  radar forecast -a accounts.csv -t touchpoints.csv --cutoff 2024-06-01 -H 90 --account-ids A1,A2

  # Write the CSV and Markdown report bundle
  radar forecast -a accounts.csv -t touchpoints.csv --out-dir reports/

  # Export every forecast row to Parquet
  radar forecast -a accounts.parquet -t touchpoints.parquet --output parquet --output-file forecast.parquet`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteForecast(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run forecast", err)
		}
	},
}
