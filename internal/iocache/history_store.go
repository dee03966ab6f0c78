package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
)

// Table names for run history.
const (
	forecastRunsTable     = "radar_forecast_runs"
	forecastAccountsTable = "radar_forecast_accounts"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore opens a HistoryStore and brings its schema up to date.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	switch backend {
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
	case schema.NoneBackend:
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

func (hs *HistoryStoreImpl) table(name string) string {
	return quoteTableName(name, hs.backend)
}

// BeginRun creates a new forecast run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, hs.table(forecastRunsTable))
		err = hs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, hs.table(forecastRunsTable))
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert forecast run: %w", err)
	}
	return runID, nil
}

// EndRun updates the forecast run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, cutoff time.Time, horizonDays, accountCount int) error {
	if hs.disabled() {
		return nil
	}

	var startTime timeScanner
	query := rebind(hs.backend, fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, hs.table(forecastRunsTable)))
	if err := hs.db.QueryRow(query, runID).Scan(&startTime); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime.Time).Milliseconds()

	update := rebind(hs.backend, fmt.Sprintf(
		`UPDATE %s SET end_time = ?, run_duration_ms = ?, cutoff_date = ?, horizon_days = ?, account_count = ? WHERE run_id = ?`,
		hs.table(forecastRunsTable)))
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, schema.FormatDate(cutoff), horizonDays, accountCount, runID); err != nil {
		return fmt.Errorf("failed to update forecast run: %w", err)
	}
	return nil
}

// RecordAccountOutcomes stores the end-of-horizon outcome of every account in one transaction.
func (hs *HistoryStoreImpl) RecordAccountOutcomes(runID int64, forecastTime time.Time, summaries []schema.AccountSummary) error {
	if hs.disabled() || len(summaries) == 0 {
		return nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(hs.backend, fmt.Sprintf(`
		INSERT INTO %s (run_id, account_id, forecast_time, engagement_score_end, decay_risk_end,
		                churn_prob_end, max_churn_prob, first_at_risk_date, risk_bucket)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, hs.table(forecastAccountsTable)))
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare account outcome insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	ts := formatTime(forecastTime, hs.backend)
	for _, s := range summaries {
		var firstAtRisk *string
		if s.FirstAtRiskDate != nil {
			d := schema.FormatDate(*s.FirstAtRiskDate)
			firstAtRisk = &d
		}
		if _, err := stmt.Exec(runID, s.AccountID, ts, s.EngagementScoreEnd, s.DecayRiskEnd,
			s.ChurnProbEnd, s.MaxChurnProb, firstAtRisk, string(s.Bucket)); err != nil {
			return fmt.Errorf("failed to insert outcome for account %s: %w", s.AccountID, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	runs := hs.table(forecastRunsTable)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRunTime, oldestRunTime timeScanner
		lastQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs)
		if err := hs.db.QueryRow(lastQuery).Scan(&status.LastRunID, &lastRunTime); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs)
		if err := hs.db.QueryRow(oldestQuery).Scan(&oldestRunTime); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.LastRunTime = lastRunTime.Time
		status.OldestRunTime = oldestRunTime.Time

		seenQuery := fmt.Sprintf("SELECT COUNT(DISTINCT account_id) FROM %s", hs.table(forecastAccountsTable))
		if err := hs.db.QueryRow(seenQuery).Scan(&status.TotalAccountsSeen); err != nil {
			return status, fmt.Errorf("failed to get accounts seen: %w", err)
		}
	}

	for _, table := range []string{forecastRunsTable, forecastAccountsTable} {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all forecast runs ordered by run ID.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.ForecastRunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms,
		COALESCE(cutoff_date, ''), COALESCE(horizon_days, 0), COALESCE(account_count, 0), config_params
		FROM %s ORDER BY run_id`, hs.table(forecastRunsTable))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ForecastRunRecord
	for rows.Next() {
		var record schema.ForecastRunRecord
		var startTime, endTime timeScanner
		if err := rows.Scan(&record.RunID, &startTime, &endTime, &record.RunDurationMs,
			&record.CutoffDate, &record.HorizonDays, &record.AccountCount, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan forecast run: %w", err)
		}
		record.StartTime = startTime.Time
		record.EndTime = endTime.Ptr()
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecast runs: %w", err)
	}
	return results, nil
}

// GetAllAccountOutcomes retrieves all recorded account outcomes ordered by run and account.
func (hs *HistoryStoreImpl) GetAllAccountOutcomes() ([]schema.ForecastAccountRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, account_id, forecast_time, engagement_score_end, decay_risk_end,
		churn_prob_end, max_churn_prob, first_at_risk_date, risk_bucket
		FROM %s ORDER BY run_id, account_id`, hs.table(forecastAccountsTable))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query account outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ForecastAccountRecord
	for rows.Next() {
		var record schema.ForecastAccountRecord
		var forecastTime timeScanner
		if err := rows.Scan(&record.RunID, &record.AccountID, &forecastTime, &record.EngagementScoreEnd,
			&record.DecayRiskEnd, &record.ChurnProbEnd, &record.MaxChurnProb, &record.FirstAtRiskDate,
			&record.RiskBucket); err != nil {
			return nil, fmt.Errorf("failed to scan account outcome: %w", err)
		}
		record.ForecastTime = forecastTime.Time
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account outcomes: %w", err)
	}
	return results, nil
}
