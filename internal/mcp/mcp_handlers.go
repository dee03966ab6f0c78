package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/radar/core"
	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// applySnapshotArgs overrides the inputs shared by every tool.
func applySnapshotArgs(cfg *contract.Config, request mcp.CallToolRequest) error {
	if p := request.GetString("accounts", ""); p != "" {
		cfg.AccountsPath = p
	}
	if p := request.GetString("touchpoints", ""); p != "" {
		cfg.TouchpointsPath = p
	}
	if c := request.GetString("cutoff", ""); c != "" {
		cutoff, err := contract.ParseCutoff(c)
		if err != nil {
			return err
		}
		cfg.Cutoff = cutoff
	}
	if _, ok := request.GetArguments()["horizon"]; ok {
		h := request.GetInt("horizon", 0)
		if err := core.ValidateHorizon(h); err != nil {
			return err
		}
		cfg.HorizonDays = h
	}
	return nil
}

func (h *toolHandler) handleGetChurnForecast(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if err := applySnapshotArgs(cfg, request); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid forecast parameters: %v", err)), nil
	}
	if ids, ok := request.GetArguments()["account_ids"].(string); ok {
		cfg.AccountFilter = contract.ParseAccountIDs(ids)
	}
	if _, ok := request.GetArguments()["risk_threshold"]; ok {
		r := request.GetFloat("risk_threshold", -1)
		if !(r >= 0 && r <= 1) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid forecast parameters: risk_threshold must be between 0 and 1 (received %g)", r)), nil
		}
		cfg.RiskThreshold = r
	}

	output, err := core.GetForecastResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("forecast failed: %v", err)), nil
	}

	var payload any = output.Report
	if request.GetBool("include_forecast", false) {
		payload = output
	}
	jsonData, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetAccountTrajectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := strings.TrimSpace(request.GetString("account_id", ""))
	if accountID == "" {
		return mcp.NewToolResultError("invalid trajectory parameters: account_id is required"), nil
	}
	cfg := h.baseCfg.Clone()
	if err := applySnapshotArgs(cfg, request); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid trajectory parameters: %v", err)), nil
	}

	rows, err := core.GetAccountTrajectory(core.WithSuppressHeader(ctx), cfg, h.mgr, accountID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("forecast failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(struct {
		AccountID string                     `json:"account_id"`
		Rows      []schema.AccountChurnPoint `json:"rows"`
	}{accountID, rows}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
