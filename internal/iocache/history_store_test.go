package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/radar/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummaries() []schema.AccountSummary {
	firstAtRisk := schema.NewDate(2024, time.June, 10)
	return []schema.AccountSummary{
		{AccountID: "A1", EngagementScoreEnd: 0.2, DecayRiskEnd: 0.6, ChurnProbEnd: 0.81, MaxChurnProb: 0.81, FirstAtRiskDate: &firstAtRisk, Bucket: schema.CriticalBucket},
		{AccountID: "A2", EngagementScoreEnd: 0.9, ChurnProbEnd: 0.05, MaxChurnProb: 0.07, Bucket: schema.HealthyBucket},
	}
}

func TestHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun(time.Now(), map[string]any{"horizon_days": 30})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)
	assert.NoError(t, store.RecordAccountOutcomes(1, time.Now(), sampleSummaries()))
	assert.NoError(t, store.EndRun(1, time.Now(), time.Now(), 30, 2))

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, store.Close())
}

func TestHistoryStore_SQLite(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)
	runID, err := store.BeginRun(start, map[string]any{"horizon_days": 30, "account_filter": "all"})
	require.NoError(t, err)
	assert.Positive(t, runID)

	require.NoError(t, store.RecordAccountOutcomes(runID, start.Add(time.Second), sampleSummaries()))
	require.NoError(t, store.EndRun(runID, start.Add(1500*time.Millisecond), schema.NewDate(2024, time.June, 1), 30, 2))

	// A second, unfinished run
	_, err = store.BeginRun(start.Add(time.Hour), nil)
	require.NoError(t, err)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	first := runs[0]
	assert.Equal(t, runID, first.RunID)
	assert.True(t, start.Equal(first.StartTime))
	require.NotNil(t, first.EndTime)
	require.NotNil(t, first.RunDurationMs)
	assert.Equal(t, int32(1500), *first.RunDurationMs)
	assert.Equal(t, "2024-06-01", first.CutoffDate)
	assert.Equal(t, int32(30), first.HorizonDays)
	assert.Equal(t, int32(2), first.AccountCount)
	require.NotNil(t, first.ConfigParams)
	assert.JSONEq(t, `{"horizon_days":30,"account_filter":"all"}`, *first.ConfigParams)

	assert.Nil(t, runs[1].EndTime)
	assert.Equal(t, "", runs[1].CutoffDate)

	outcomes, err := store.GetAllAccountOutcomes()
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "A1", outcomes[0].AccountID)
	require.NotNil(t, outcomes[0].FirstAtRiskDate)
	assert.Equal(t, "2024-06-10", *outcomes[0].FirstAtRiskDate)
	assert.Equal(t, string(schema.CriticalBucket), outcomes[0].RiskBucket)
	assert.Nil(t, outcomes[1].FirstAtRiskDate)
	assert.InDelta(t, 0.07, outcomes[1].MaxChurnProb, 1e-12)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, 2, status.TotalAccountsSeen)
	assert.True(t, start.Equal(status.OldestRunTime))
	assert.Equal(t, int64(2), status.TableSizes[forecastRunsTable])
	assert.Equal(t, int64(2), status.TableSizes[forecastAccountsTable])
}

func TestHistoryStore_DuplicateOutcomeRollsBack(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)

	dup := append(sampleSummaries(), sampleSummaries()[0])
	assert.Error(t, store.RecordAccountOutcomes(runID, time.Now(), dup))

	outcomes, err := store.GetAllAccountOutcomes()
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestHistoryStore_EndUnknownRun(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.Error(t, store.EndRun(99, time.Now(), time.Now(), 30, 0))
}

func TestMigrateHistory(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		err := MigrateHistory(schema.NoneBackend, "", -1)
		assert.ErrorContains(t, err, "not supported")
	})

	t.Run("sqlite up down and pinned", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "history.db")
		var buf bytes.Buffer

		require.NoError(t, migrateHistory(&buf, schema.SQLiteBackend, dbPath, -1))
		assert.Contains(t, buf.String(), "to version 2")

		buf.Reset()
		require.NoError(t, migrateHistory(&buf, schema.SQLiteBackend, dbPath, -1))
		assert.Contains(t, buf.String(), "No migration needed")

		require.NoError(t, migrateHistory(&buf, schema.SQLiteBackend, dbPath, 1))
		require.NoError(t, migrateHistory(&buf, schema.SQLiteBackend, dbPath, 0))
		require.NoError(t, migrateHistory(&buf, schema.SQLiteBackend, dbPath, -1))

		// A store opened on a migrated database sees the same schema
		store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})
}

func TestExecuteHistoryExport(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, ExecuteHistoryExport(&buf, nil, "out"))

	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	prefix := filepath.Join(t.TempDir(), "history")
	assert.Error(t, ExecuteHistoryExport(&buf, store, ""))
	assert.ErrorContains(t, ExecuteHistoryExport(&buf, store, prefix), "no forecast history")

	runID, err := store.BeginRun(time.Now(), map[string]any{"horizon_days": 7})
	require.NoError(t, err)
	require.NoError(t, store.RecordAccountOutcomes(runID, time.Now(), sampleSummaries()))
	require.NoError(t, store.EndRun(runID, time.Now(), schema.NewDate(2024, time.June, 1), 7, 2))

	require.NoError(t, ExecuteHistoryExport(&buf, store, prefix))
	for _, suffix := range []string{".forecast_runs.parquet", ".forecast_accounts.parquet"} {
		_, err := os.Stat(prefix + suffix)
		assert.NoError(t, err)
	}
	assert.Contains(t, buf.String(), "Exported 2 account outcomes")
}

func TestPrintHistoryStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:           "sqlite",
		Connected:         true,
		TotalRuns:         1,
		LastRunID:         7,
		TotalAccountsSeen: 12,
		TableSizes:        map[string]int64{forecastRunsTable: 1, forecastAccountsTable: 12},
	})
	out := buf.String()
	assert.Contains(t, out, "Last Run ID: 7")
	assert.Contains(t, out, "Total Accounts Seen: 12")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(forecastAccountsTable)), bytes.Index(buf.Bytes(), []byte(forecastRunsTable)))
}
