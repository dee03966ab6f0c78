package schema

import "time"

// ForecastRunRecord represents a row from the radar_forecast_runs table.
type ForecastRunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	CutoffDate    string
	HorizonDays   int32
	AccountCount  int32
	ConfigParams  *string
}

// ForecastAccountRecord represents a row from the radar_forecast_accounts table.
// One row holds the end-of-horizon outcome of one account in one run.
type ForecastAccountRecord struct {
	RunID              int64
	AccountID          string
	ForecastTime       time.Time
	EngagementScoreEnd float64
	DecayRiskEnd       float64
	ChurnProbEnd       float64
	MaxChurnProb       float64
	FirstAtRiskDate    *string
	RiskBucket         string
}
