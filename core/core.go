// Package core has core logic for churn forecasting, caching and reporting.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/radar/core/decay"
	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/internal/loader"
	"github.com/huangsam/radar/internal/outwriter"
	"github.com/huangsam/radar/schema"
)

// ErrNoCutoff is returned when no cutoff is configured and none can be derived from touchpoints.
var ErrNoCutoff = errors.New("cannot determine cutoff date: pass --cutoff or provide touchpoints")

// ExecutorFunc defines the function signature for executing forecast commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteForecast runs a forecast, prints it, and writes the optional report bundle and summary.
// It serves as the main entry point for the 'forecast' command.
func ExecuteForecast(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	output, err := GetForecastResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	duration := time.Since(start)

	if err := outwriter.PrintForecastResults(output, cfg, duration); err != nil {
		return err
	}
	if cfg.OutDir != "" {
		if err := outwriter.WriteReportBundle(cfg.OutDir, output, cfg); err != nil {
			return fmt.Errorf("failed to write report bundle: %w", err)
		}
	}
	if cfg.Summary {
		return outwriter.PrintTextSummary(os.Stdout, output.Report)
	}
	return nil
}

// GetForecastResults loads the snapshots, runs the (cached) forecast, records the run
// in history, and builds the report. It performs no printing beyond the header.
func GetForecastResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.ForecastOutput, error) {
	if err := ValidateHorizon(cfg.HorizonDays); err != nil {
		return nil, err
	}

	registry, touchpoints, err := LoadSnapshots(cfg)
	if err != nil {
		return nil, err
	}
	cutoff, err := ResolveCutoff(cfg.Cutoff, touchpoints)
	if err != nil {
		return nil, err
	}

	if !shouldSuppressHeader(ctx) {
		outwriter.LogForecastHeader(cfg, cutoff)
	}
	contract.LogDebug("Loaded snapshots", contract.Fields{
		"accounts":    len(registry),
		"touchpoints": len(touchpoints),
		"cutoff":      schema.FormatDate(cutoff),
	})

	req := schema.ChurnForecastRequest{
		CutoffDate:    cutoff,
		HorizonDays:   cfg.HorizonDays,
		AccountFilter: cfg.AccountFilter,
	}

	ctx = beginRun(ctx, cfg, mgr, cutoff)
	result, err := CachedGenerateChurnForecast(mgr, req, touchpoints, registry, OptionsFromConfig(cfg))
	if err != nil {
		abortRun(ctx, mgr, req)
		return nil, err
	}
	report := BuildReport(result, registry, touchpoints, cfg.RiskThreshold)
	endRun(ctx, mgr, result, report)

	return &schema.ForecastOutput{Result: result, Report: report}, nil
}

// GetAccountTrajectory runs a forecast for a single account and returns its daily rows.
func GetAccountTrajectory(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, accountID string) ([]schema.AccountChurnPoint, error) {
	scoped := cfg.Clone()
	scoped.AccountFilter = schema.ExplicitAccounts(accountID)
	output, err := GetForecastResults(ctx, scoped, mgr)
	if err != nil {
		return nil, err
	}
	return FilterTrajectory(output.Result.Forecast, accountID), nil
}

// FilterTrajectory returns the rows that belong to one account.
func FilterTrajectory(rows []schema.AccountChurnPoint, accountID string) []schema.AccountChurnPoint {
	out := make([]schema.AccountChurnPoint, 0)
	for _, r := range rows {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out
}

// LoadSnapshots reads the registry and, when configured, the touchpoints.
func LoadSnapshots(cfg *contract.Config) ([]schema.Account, []schema.Touchpoint, error) {
	if cfg.AccountsPath == "" {
		return nil, nil, contract.ErrAccountsRequired
	}
	registry, err := loader.LoadAccounts(cfg.AccountsPath)
	if err != nil {
		return nil, nil, err
	}
	touchpoints := []schema.Touchpoint{}
	if cfg.TouchpointsPath != "" {
		touchpoints, err = loader.LoadTouchpoints(cfg.TouchpointsPath)
		if err != nil {
			return nil, nil, err
		}
	}
	return registry, touchpoints, nil
}

// ResolveCutoff returns the configured cutoff, or the latest touchpoint date when unset.
func ResolveCutoff(configured time.Time, touchpoints []schema.Touchpoint) (time.Time, error) {
	if !configured.IsZero() {
		return schema.NormalizeDate(configured), nil
	}
	_, latest := TouchpointRange(touchpoints)
	if latest.IsZero() {
		return time.Time{}, ErrNoCutoff
	}
	return latest, nil
}

// OptionsFromConfig maps the validated configuration onto forecast options.
func OptionsFromConfig(cfg *contract.Config) ForecastOptions {
	opts := DefaultForecastOptions()
	opts.WindowDays = cfg.WindowDays
	opts.MinObs = cfg.MinObs
	opts.Simulation = decay.Params{
		MaxEngagementScore:  cfg.MaxEngagementScore,
		ChurnThreshold:      cfg.ChurnThreshold,
		DecayRatePerDay:     cfg.DecayRatePerDay,
		NormalizationFactor: cfg.NormalizationFactorOverride(),
		ResetOnTouchpoint:   cfg.ResetOnTouchpoint,
		Workers:             cfg.Workers,
	}
	return opts
}
