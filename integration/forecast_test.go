//go:build basic

// Package integration contains integration tests for radar.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forecastJSON struct {
	Result struct {
		AccountCount int `json:"account_count"`
		HorizonDays  int `json:"horizon_days"`
		Forecast     []struct {
			AccountID string  `json:"account_id"`
			ChurnProb float64 `json:"churn_prob"`
		} `json:"forecast"`
	} `json:"result"`
	Report struct {
		AtRisk []struct {
			AccountID string `json:"account_id"`
		} `json:"at_risk"`
	} `json:"report"`
}

func TestForecastJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, _, err := runRadar(t, forecastArgs(t, "--output", "json", "--horizon", "14", "--cache-backend", "none")...)
	require.NoError(t, err)

	var decoded forecastJSON
	require.NoError(t, json.Unmarshal([]byte(out), &decoded), "stdout must be pure JSON")
	assert.Equal(t, 4, decoded.Result.AccountCount)
	assert.Equal(t, 14, decoded.Result.HorizonDays)
	assert.Len(t, decoded.Result.Forecast, 4*14)

	// The daily account ends healthier than the account with no touchpoints
	var a1, a4 float64
	for _, r := range decoded.Result.Forecast {
		switch r.AccountID {
		case "A1":
			a1 = r.ChurnProb
		case "A4":
			a4 = r.ChurnProb
		}
	}
	assert.Less(t, a1, a4)
}

func TestForecastExplicitEmptyFilter(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, _, err := runRadar(t, forecastArgs(t, "--output", "json", "--account-ids", "", "--cache-backend", "none")...)
	require.NoError(t, err)

	var decoded forecastJSON
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 0, decoded.Result.AccountCount)
	assert.Empty(t, decoded.Result.Forecast)
}

func TestForecastRejectsHorizon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, stderr, err := runRadar(t, forecastArgs(t, "--horizon", "400")...)
	require.Error(t, err)
	assert.Contains(t, stderr, "horizon must be between 1 and 365")
}

func TestForecastCachedOnSecondRun(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	first, _, err := runRadar(t, forecastArgs(t)...)
	require.NoError(t, err)
	assert.Contains(t, first, "Forecast completed in")
	assert.NotContains(t, first, "(cached)")

	second, _, err := runRadar(t, forecastArgs(t)...)
	require.NoError(t, err)
	assert.Contains(t, second, "(cached)")

	out, _, err := runRadar(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Entries: 1")

	_, _, err = runRadar(t, "cache", "clear")
	require.NoError(t, err)
}

func TestForecastReportBundle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	outDir := filepath.Join(t.TempDir(), "reports")

	_, _, err := runRadar(t, forecastArgs(t, "--out-dir", outDir, "--summary", "--cache-backend", "none")...)
	require.NoError(t, err)

	for _, name := range []string{
		"renewal_radar_forecast_2024-06-01.csv",
		"renewal_radar_account_summary_2024-06-01.csv",
		"renewal_radar_at_risk_2024-06-01.csv",
		"renewal_radar_summary_2024-06-01.md",
	} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	brief, err := os.ReadFile(filepath.Join(outDir, "renewal_radar_summary_2024-06-01.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(brief), "# Renewal Radar: 2024-06-01"))
}

func TestHistoryWithSQLite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RADAR_HISTORY_BACKEND", "sqlite")

	_, _, err := runRadar(t, forecastArgs(t, "--cache-backend", "none")...)
	require.NoError(t, err)
	_, _, err = runRadar(t, forecastArgs(t, "--cache-backend", "none", "--horizon", "60")...)
	require.NoError(t, err)

	out, _, err := runRadar(t, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 2")

	prefix := filepath.Join(t.TempDir(), "radar")
	_, _, err = runRadar(t, "history", "export", "--output-file", prefix)
	require.NoError(t, err)
	for _, suffix := range []string{".forecast_runs.parquet", ".forecast_accounts.parquet"} {
		_, err := os.Stat(prefix + suffix)
		assert.NoError(t, err)
	}

	out, _, err = runRadar(t, "history", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "No migration needed")

	_, _, err = runRadar(t, "history", "clear")
	require.NoError(t, err)
}
