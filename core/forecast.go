package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/radar/core/baseline"
	"github.com/huangsam/radar/core/decay"
	"github.com/huangsam/radar/schema"
)

// ErrInvalidHorizon is returned when a request's horizon is outside the supported range.
var ErrInvalidHorizon = errors.New("horizon_days out of range")

// ForecastOptions holds the tunables of a forecast run.
type ForecastOptions struct {
	WindowDays int              // Trailing estimation window ending at the cutoff
	MinObs     int              // Observations needed before a raw weekday rate is trusted
	Simulation decay.Params     // Reservoir parameters
	Now        func() time.Time // Clock used for GeneratedAt
}

// DefaultForecastOptions returns the documented defaults.
func DefaultForecastOptions() ForecastOptions {
	return ForecastOptions{
		WindowDays: baseline.DefaultWindowDays,
		MinObs:     baseline.DefaultMinObs,
		Simulation: decay.DefaultParams(),
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// ValidateHorizon checks the horizon bounds of a request.
func ValidateHorizon(horizonDays int) error {
	if horizonDays < schema.MinHorizonDays || horizonDays > schema.MaxHorizonDays {
		return fmt.Errorf("%w: got %d, want %d..%d", ErrInvalidHorizon, horizonDays, schema.MinHorizonDays, schema.MaxHorizonDays)
	}
	return nil
}

// ForecastWindow returns the first and last simulated dates of a request.
func ForecastWindow(cutoff time.Time, horizonDays int) (time.Time, time.Time) {
	start := schema.AddDays(cutoff, 1)
	return start, schema.AddDays(start, horizonDays-1)
}

// GenerateChurnForecast estimates baselines from the touchpoints observed up to
// the cutoff and simulates every selected account over the horizon.
// Inputs are never mutated.
func GenerateChurnForecast(req schema.ChurnForecastRequest, touchpoints []schema.Touchpoint, registry []schema.Account, opts ForecastOptions) (*schema.ChurnForecastResult, error) {
	if err := ValidateHorizon(req.HorizonDays); err != nil {
		return nil, err
	}
	if err := opts.Simulation.Validate(); err != nil {
		return nil, err
	}

	cutoff := schema.NormalizeDate(req.CutoffDate)
	start, end := ForecastWindow(cutoff, req.HorizonDays)
	result := &schema.ChurnForecastResult{
		CutoffDate:  cutoff,
		StartDate:   start,
		EndDate:     end,
		HorizonDays: req.HorizonDays,
		Forecast:    []schema.AccountChurnPoint{},
		GeneratedAt: now(opts),
	}

	population := ResolvePopulation(req.AccountFilter, registry, touchpoints)
	if len(population) == 0 {
		return result, nil
	}

	selected := make(map[string]struct{}, len(population))
	for _, id := range population {
		selected[id] = struct{}{}
	}
	training := make([]schema.Touchpoint, 0, len(touchpoints))
	for _, tp := range touchpoints {
		if _, ok := selected[tp.AccountID]; !ok {
			continue
		}
		if schema.NormalizeDate(tp.TouchpointDate).After(cutoff) {
			continue
		}
		training = append(training, tp)
	}

	baselines := baseline.Estimate(training, cutoff, opts.WindowDays, opts.MinObs)
	baselines = backfill(baselines, population)

	forecast, err := decay.Simulate(baselines, start, end, opts.Simulation)
	if err != nil {
		return nil, err
	}
	result.Forecast = forecast
	result.AccountCount = countAccounts(forecast)
	return result, nil
}

// ResolvePopulation returns the sorted set of accounts a filter selects.
// AllAccounts uses the registry, falling back to accounts seen in touchpoints
// only when the registry yields nobody.
func ResolvePopulation(filter schema.AccountFilter, registry []schema.Account, touchpoints []schema.Touchpoint) []string {
	if !filter.IsAll() {
		return filter.IDs()
	}
	ids := make([]string, 0, len(registry))
	for _, acc := range registry {
		if id := strings.TrimSpace(acc.AccountID); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		for _, tp := range touchpoints {
			if id := strings.TrimSpace(tp.AccountID); id != "" {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// backfill adds zero-rate weekday rows for accounts without any baseline.
func backfill(rows []schema.EngagementBaseline, population []string) []schema.EngagementBaseline {
	seen := make(map[string]struct{}, len(population))
	for _, r := range rows {
		seen[r.AccountID] = struct{}{}
	}
	for _, id := range population {
		if _, ok := seen[id]; !ok {
			rows = append(rows, baseline.ZeroRows(id)...)
		}
	}
	return rows
}

func countAccounts(rows []schema.AccountChurnPoint) int {
	n := 0
	for i, r := range rows {
		if i == 0 || rows[i-1].AccountID != r.AccountID {
			n++
		}
	}
	return n
}

func now(opts ForecastOptions) time.Time {
	if opts.Now != nil {
		return opts.Now()
	}
	return time.Now().UTC()
}
