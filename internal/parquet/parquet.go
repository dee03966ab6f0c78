// Package parquet provides row types and functions for reading radar snapshots from
// and writing forecasts and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/radar/schema"
	"github.com/parquet-go/parquet-go"
)

// ForecastRun represents a single forecast run with metadata.
// This struct maps to the radar_forecast_runs database table.
type ForecastRun struct {
	// RunID is the unique identifier for this forecast run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// CutoffDate is the last day of observed history (YYYY-MM-DD)
	CutoffDate string `parquet:"cutoff_date,snappy"`

	// HorizonDays is the number of simulated days
	HorizonDays int32 `parquet:"horizon_days,snappy"`

	// AccountCount is the number of accounts forecast in this run
	AccountCount int32 `parquet:"account_count,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// ForecastAccount is the end-of-horizon outcome of one account in one run.
// This struct maps to the radar_forecast_accounts database table.
type ForecastAccount struct {
	RunID              int64     `parquet:"run_id,snappy"`
	AccountID          string    `parquet:"account_id,snappy"`
	ForecastTime       time.Time `parquet:"forecast_time,snappy"`
	EngagementScoreEnd float64   `parquet:"engagement_score_end,snappy"`
	DecayRiskEnd       float64   `parquet:"decay_risk_end,snappy"`
	ChurnProbEnd       float64   `parquet:"churn_prob_end,snappy"`
	MaxChurnProb       float64   `parquet:"max_churn_prob,snappy"`
	FirstAtRiskDate    *string   `parquet:"first_at_risk_date,optional,snappy"`
	RiskBucket         string    `parquet:"risk_bucket,snappy"`
}

// ForecastPoint is one simulated day of one account.
type ForecastPoint struct {
	AccountID       string  `parquet:"account_id,snappy"`
	Date            string  `parquet:"date,snappy"`
	EngagementScore float64 `parquet:"engagement_score,snappy"`
	DecayRisk       float64 `parquet:"decay_risk,snappy"`
	ChurnProb       float64 `parquet:"churn_prob,snappy"`
}

// SnapshotAccount is one registry row in a Parquet snapshot.
type SnapshotAccount struct {
	AccountID   string  `parquet:"account_id"`
	Company     string  `parquet:"company,optional"`
	Tier        string  `parquet:"tier,optional"`
	ARR         float64 `parquet:"arr,optional"`
	RenewalDate string  `parquet:"renewal_date,optional"`
}

// SnapshotTouchpoint is one touchpoint row in a Parquet snapshot.
// Dates are stored as YYYY-MM-DD or RFC3339 strings.
type SnapshotTouchpoint struct {
	AccountID        string  `parquet:"account_id"`
	TouchpointDate   string  `parquet:"touchpoint_dt"`
	InteractionValue float64 `parquet:"interaction_value"`
}

// writeParquet writes rows of any Parquet-tagged struct to a new file.
func writeParquet[T any](data []T, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is automatically derived from the struct tags
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteForecastRunsParquet writes a slice of ForecastRun structs to a Parquet file.
func WriteForecastRunsParquet(data []ForecastRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteForecastAccountsParquet writes a slice of ForecastAccount structs to a Parquet file.
func WriteForecastAccountsParquet(data []ForecastAccount, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteForecastPointsParquet writes forecast rows to a Parquet file.
func WriteForecastPointsParquet(rows []schema.AccountChurnPoint, outputPath string) error {
	return writeParquet(ConvertForecastPoints(rows), outputPath)
}

// ReadSnapshotAccounts reads registry rows from a Parquet file.
func ReadSnapshotAccounts(path string) ([]SnapshotAccount, error) {
	rows, err := parquet.ReadFile[SnapshotAccount](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts parquet %s: %w", path, err)
	}
	return rows, nil
}

// ReadSnapshotTouchpoints reads touchpoint rows from a Parquet file.
func ReadSnapshotTouchpoints(path string) ([]SnapshotTouchpoint, error) {
	rows, err := parquet.ReadFile[SnapshotTouchpoint](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read touchpoints parquet %s: %w", path, err)
	}
	return rows, nil
}

// WriteSnapshotAccountsParquet writes registry rows, mainly for fixtures and benchmarks.
func WriteSnapshotAccountsParquet(data []SnapshotAccount, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteSnapshotTouchpointsParquet writes touchpoint rows, mainly for fixtures and benchmarks.
func WriteSnapshotTouchpointsParquet(data []SnapshotTouchpoint, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertForecastRunRecords converts schema.ForecastRunRecord to ForecastRun for Parquet export.
func ConvertForecastRunRecords(records []schema.ForecastRunRecord) []ForecastRun {
	result := make([]ForecastRun, len(records))
	for i, record := range records {
		result[i] = ForecastRun{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			CutoffDate:    record.CutoffDate,
			HorizonDays:   record.HorizonDays,
			AccountCount:  record.AccountCount,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertForecastAccountRecords converts schema.ForecastAccountRecord to ForecastAccount for Parquet export.
func ConvertForecastAccountRecords(records []schema.ForecastAccountRecord) []ForecastAccount {
	result := make([]ForecastAccount, len(records))
	for i, record := range records {
		result[i] = ForecastAccount{
			RunID:              record.RunID,
			AccountID:          record.AccountID,
			ForecastTime:       record.ForecastTime,
			EngagementScoreEnd: record.EngagementScoreEnd,
			DecayRiskEnd:       record.DecayRiskEnd,
			ChurnProbEnd:       record.ChurnProbEnd,
			MaxChurnProb:       record.MaxChurnProb,
			FirstAtRiskDate:    record.FirstAtRiskDate,
			RiskBucket:         record.RiskBucket,
		}
	}
	return result
}

// ConvertForecastPoints converts forecast rows to their Parquet form.
func ConvertForecastPoints(rows []schema.AccountChurnPoint) []ForecastPoint {
	result := make([]ForecastPoint, len(rows))
	for i, r := range rows {
		result[i] = ForecastPoint{
			AccountID:       r.AccountID,
			Date:            schema.FormatDate(r.Date),
			EngagementScore: r.EngagementScore,
			DecayRisk:       r.DecayRisk,
			ChurnProb:       r.ChurnProb,
		}
	}
	return result
}
