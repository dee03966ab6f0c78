package core

import (
	"context"
	"time"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
)

// beginRun records the start of a forecast run when a history store is configured.
func beginRun(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, cutoff time.Time) context.Context {
	store := historyStore(mgr)
	if store == nil {
		return ctx
	}

	filter := "all"
	if !cfg.AccountFilter.IsAll() {
		filter = "explicit"
	}
	configParams := map[string]any{
		"accounts_path":        cfg.AccountsPath,
		"touchpoints_path":     cfg.TouchpointsPath,
		"cutoff_date":          schema.FormatDate(cutoff),
		"horizon_days":         cfg.HorizonDays,
		"window_days":          cfg.WindowDays,
		"min_obs":              cfg.MinObs,
		"decay_rate_per_day":   cfg.DecayRatePerDay,
		"churn_threshold":      cfg.ChurnThreshold,
		"risk_threshold":       cfg.RiskThreshold,
		"max_engagement_score": cfg.MaxEngagementScore,
		"normalization_factor": cfg.NormalizationFactor,
		"reset_on_touchpoint":  cfg.ResetOnTouchpoint,
		"account_filter":       filter,
		"account_ids":          cfg.AccountFilter.IDs(),
		"workers":              cfg.Workers,
	}
	runID, err := store.BeginRun(time.Now(), configParams)
	if err != nil {
		contract.LogWarn("Forecast run tracking initialization failed", err)
		return ctx
	}
	return withRunID(ctx, runID)
}

// endRun stores per-account outcomes and finalizes the run.
func endRun(ctx context.Context, mgr contract.CacheManager, result *schema.ChurnForecastResult, report schema.ForecastReport) {
	store := historyStore(mgr)
	runID := runIDFromContext(ctx)
	if store == nil || runID <= 0 {
		return
	}

	now := time.Now()
	if err := store.RecordAccountOutcomes(runID, now, report.Accounts); err != nil {
		contract.LogWarn("Failed to record account outcomes", err)
	}
	if err := store.EndRun(runID, now, result.CutoffDate, result.HorizonDays, result.AccountCount); err != nil {
		contract.LogWarn("Failed to finalize forecast run tracking", err)
	}
	contract.LogDebug("Recorded forecast run", contract.Fields{"run_id": runID, "accounts": result.AccountCount})
}

// abortRun closes a run whose forecast failed, so no run is left without an end time.
// The run keeps an account count of zero.
func abortRun(ctx context.Context, mgr contract.CacheManager, req schema.ChurnForecastRequest) {
	store := historyStore(mgr)
	runID := runIDFromContext(ctx)
	if store == nil || runID <= 0 {
		return
	}
	if err := store.EndRun(runID, time.Now(), req.CutoffDate, req.HorizonDays, 0); err != nil {
		contract.LogWarn("Failed to close aborted forecast run", err)
	}
}

func historyStore(mgr contract.CacheManager) contract.HistoryStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetHistoryStore()
}
