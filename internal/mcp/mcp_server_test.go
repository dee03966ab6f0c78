package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/internal/iocache"
	mcp_internal "github.com/huangsam/radar/internal/mcp"
	"github.com/huangsam/radar/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func baseConfig(t *testing.T) *contract.Config {
	t.Helper()
	dir := t.TempDir()
	cutoff := schema.NewDate(2024, 6, 1)
	lines := []string{"account_id,touchpoint_dt,interaction_value"}
	for d := range 30 {
		lines = append(lines, "A1,"+schema.FormatDate(schema.AddDays(cutoff, -d))+",3")
	}
	return &contract.Config{
		AccountsPath:       writeFile(t, dir, "accounts.csv", "account_id,company,arr", "A1,Acme,1000", "A2,Globex,500"),
		TouchpointsPath:    writeFile(t, dir, "touchpoints.csv", lines...),
		HorizonDays:        14,
		WindowDays:         90,
		MinObs:             2,
		MaxEngagementScore: 10,
		ChurnThreshold:     3,
		DecayRatePerDay:    0.05,
		RiskThreshold:      0.5,
		AccountFilter:      schema.AllAccounts(),
		Workers:            2,
		Output:             schema.JSONOut,
	}
}

func noStores() *iocache.MockCacheManager {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetForecastStore").Return(nil)
	mgr.On("GetHistoryStore").Return(nil)
	return mgr
}

func call(t *testing.T, cfg *contract.Config, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(cfg, noStores())
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestGetChurnForecast(t *testing.T) {
	cfg := baseConfig(t)
	res := call(t, cfg, "get_churn_forecast", map[string]any{"horizon": 7.0})
	require.False(t, res.IsError, text(res))

	var report schema.ForecastReport
	require.NoError(t, json.Unmarshal([]byte(text(res)), &report))
	assert.Equal(t, 7, report.Summary.HorizonDays)
	assert.Equal(t, 2, report.Summary.AccountCount)
	assert.Equal(t, 14, cfg.HorizonDays, "base config must not be mutated")
}

func TestGetChurnForecastIncludesRows(t *testing.T) {
	res := call(t, baseConfig(t), "get_churn_forecast", map[string]any{
		"account_ids":      "A2",
		"include_forecast": true,
	})
	require.False(t, res.IsError, text(res))

	var output schema.ForecastOutput
	require.NoError(t, json.Unmarshal([]byte(text(res)), &output))
	assert.Equal(t, 1, output.Result.AccountCount)
	assert.Len(t, output.Result.Forecast, 14)
}

func TestGetChurnForecastValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"horizon too long", map[string]any{"horizon": 400.0}, "horizon_days out of range"},
		{"horizon zero", map[string]any{"horizon": 0.0}, "horizon_days out of range"},
		{"horizon negative", map[string]any{"horizon": -3.0}, "horizon_days out of range"},
		{"bad cutoff", map[string]any{"cutoff": "June"}, "invalid cutoff"},
		{"bad risk threshold", map[string]any{"risk_threshold": 1.5}, "risk_threshold must be between 0 and 1"},
		{"negative risk threshold", map[string]any{"risk_threshold": -0.5}, "risk_threshold must be between 0 and 1"},
		{"missing registry", map[string]any{"accounts": "/nonexistent/accounts.csv"}, "forecast failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, baseConfig(t), "get_churn_forecast", tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, text(res), tt.want)
		})
	}
}

func TestGetAccountTrajectory(t *testing.T) {
	res := call(t, baseConfig(t), "get_account_trajectory", map[string]any{"account_id": "A1", "cutoff": "2024-06-01"})
	require.False(t, res.IsError, text(res))

	var payload struct {
		AccountID string                     `json:"account_id"`
		Rows      []schema.AccountChurnPoint `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(res)), &payload))
	assert.Equal(t, "A1", payload.AccountID)
	require.Len(t, payload.Rows, 14)
	assert.Equal(t, "2024-06-02", schema.FormatDate(payload.Rows[0].Date))
}

func TestGetAccountTrajectoryRequiresID(t *testing.T) {
	res := call(t, baseConfig(t), "get_account_trajectory", map[string]any{"account_id": " "})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "account_id is required")
}

func TestGetAccountTrajectoryRejectsZeroHorizon(t *testing.T) {
	res := call(t, baseConfig(t), "get_account_trajectory", map[string]any{"account_id": "A1", "horizon": 0.0})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "invalid trajectory parameters: horizon_days out of range")
}
