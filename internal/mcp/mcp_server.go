// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/radar/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Radar MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Renewal Radar Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_churn_forecast ---
	s.AddTool(mcp.NewTool("get_churn_forecast",
		mcp.WithDescription("Forecast daily churn probability for customer accounts and summarize renewal risk."),
		mcp.WithString("accounts", mcp.Description("Path to the account registry (CSV or Parquet). Defaults to the configured registry.")),
		mcp.WithString("touchpoints", mcp.Description("Path to the touchpoint snapshot (CSV or Parquet).")),
		mcp.WithString("cutoff", mcp.Description("Last observed day as YYYY-MM-DD, or 'auto' for the latest touchpoint.")),
		mcp.WithNumber("horizon", mcp.Description("Number of days to forecast (1-365).")),
		mcp.WithString("account_ids", mcp.Description("Comma-separated account ids to forecast. Omit for all accounts.")),
		mcp.WithNumber("risk_threshold", mcp.Description("End-of-horizon churn probability that marks an account at risk (0-1).")),
		mcp.WithBoolean("include_forecast", mcp.Description("Include every daily forecast row in the response.")),
	), h.handleGetChurnForecast)

	// --- 2. Tool: get_account_trajectory ---
	s.AddTool(mcp.NewTool("get_account_trajectory",
		mcp.WithDescription("Return the daily engagement, decay risk and churn probability for one account."),
		mcp.WithString("account_id", mcp.Description("The account to forecast."), mcp.Required()),
		mcp.WithString("accounts", mcp.Description("Path to the account registry (CSV or Parquet).")),
		mcp.WithString("touchpoints", mcp.Description("Path to the touchpoint snapshot (CSV or Parquet).")),
		mcp.WithString("cutoff", mcp.Description("Last observed day as YYYY-MM-DD, or 'auto'.")),
		mcp.WithNumber("horizon", mcp.Description("Number of days to forecast (1-365).")),
	), h.handleGetAccountTrajectory)

	return s
}

// StartMCPServer starts the Radar MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
