package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/internal/parquet"
)

// ExecuteHistoryExport exports run history to two Parquet files prefixed by outputFile.
func ExecuteHistoryExport(w io.Writer, store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history tracking is disabled; set --history-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no forecast history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total forecast runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total account outcomes: %d\n", status.TableSizes[forecastAccountsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve forecast runs: %w", err)
	}
	outcomes, err := store.GetAllAccountOutcomes()
	if err != nil {
		return fmt.Errorf("failed to retrieve account outcomes: %w", err)
	}

	runsFile := outputFile + ".forecast_runs.parquet"
	if err := parquet.WriteForecastRunsParquet(parquet.ConvertForecastRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write forecast runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d forecast runs to: %s\n", len(runs), runsFile)

	accountsFile := outputFile + ".forecast_accounts.parquet"
	if err := parquet.WriteForecastAccountsParquet(parquet.ConvertForecastAccountRecords(outcomes), accountsFile); err != nil {
		return fmt.Errorf("failed to write account outcomes: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d account outcomes to: %s\n", len(outcomes), accountsFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with DuckDB, Pandas (via pyarrow), Spark or any Parquet reader.")
	return nil
}
