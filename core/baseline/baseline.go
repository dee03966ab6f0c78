// Package baseline estimates per-weekday engagement rates from touchpoint history.
package baseline

import (
	"math"
	"sort"
	"time"

	"github.com/huangsam/radar/schema"
)

// Default estimation parameters.
const (
	DefaultWindowDays = 90
	DefaultMinObs     = 2
)

// weekdayStats accumulates touchpoints of one account on one weekday.
type weekdayStats struct {
	total float64
	obs   int
}

// Estimate derives an engagement baseline for every account that has at least
// one touchpoint inside the lookback window ending at cutoff (inclusive).
//
// For each weekday the raw rate is the summed interaction value divided by the
// number of calendar occurrences of that weekday in the window. Weekdays with
// fewer than minObs touchpoints are shrunk toward the account's mean daily
// value with prior strength minObs. Rates are never negative.
//
// The result holds exactly seven rows per account, sorted by account then weekday.
func Estimate(touchpoints []schema.Touchpoint, cutoff time.Time, windowDays, minObs int) []schema.EngagementBaseline {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if minObs <= 0 {
		minObs = DefaultMinObs
	}

	cutoff = schema.NormalizeDate(cutoff)
	windowStart := schema.AddDays(cutoff, -(windowDays - 1))
	occurrences := weekdayOccurrences(windowStart, windowDays)

	stats := make(map[string]*[schema.DaysPerWeek]weekdayStats)
	for _, tp := range touchpoints {
		day := schema.NormalizeDate(tp.TouchpointDate)
		if day.Before(windowStart) || day.After(cutoff) {
			continue
		}
		if math.IsNaN(tp.InteractionValue) || math.IsInf(tp.InteractionValue, 0) {
			continue
		}
		acc, ok := stats[tp.AccountID]
		if !ok {
			acc = &[schema.DaysPerWeek]weekdayStats{}
			stats[tp.AccountID] = acc
		}
		wd := schema.DayOfWeek(day)
		acc[wd].total += tp.InteractionValue
		acc[wd].obs++
	}

	accounts := make([]string, 0, len(stats))
	for id := range stats {
		accounts = append(accounts, id)
	}
	sort.Strings(accounts)

	rows := make([]schema.EngagementBaseline, 0, len(accounts)*schema.DaysPerWeek)
	for _, id := range accounts {
		acc := stats[id]
		grand := 0.0
		for wd := range schema.DaysPerWeek {
			grand += acc[wd].total
		}
		mean := grand / float64(windowDays)

		for wd := range schema.DaysPerWeek {
			rows = append(rows, schema.EngagementBaseline{
				AccountID:         id,
				DayOfWeek:         wd,
				EngagementRatePct: smoothedRate(acc[wd], occurrences[wd], mean, minObs),
			})
		}
	}
	return rows
}

// smoothedRate applies the shrinkage rule for a single weekday cell.
func smoothedRate(s weekdayStats, occurrences int, mean float64, minObs int) float64 {
	raw := 0.0
	if occurrences > 0 {
		raw = s.total / float64(occurrences)
	}
	rate := raw
	if s.obs < minObs {
		rate = (float64(s.obs)*raw + float64(minObs)*mean) / float64(s.obs+minObs)
	}
	return math.Max(0, rate)
}

// weekdayOccurrences counts how many times each weekday appears in the window.
func weekdayOccurrences(start time.Time, days int) [schema.DaysPerWeek]int {
	var occ [schema.DaysPerWeek]int
	full, rest := days/schema.DaysPerWeek, days%schema.DaysPerWeek
	first := schema.DayOfWeek(start)
	for wd := range schema.DaysPerWeek {
		occ[wd] = full
	}
	for i := range rest {
		occ[(first+i)%schema.DaysPerWeek]++
	}
	return occ
}

// Pivot arranges baseline rows into a seven-slot rate vector per account.
// Missing weekdays are zero.
func Pivot(rows []schema.EngagementBaseline) map[string][schema.DaysPerWeek]float64 {
	out := make(map[string][schema.DaysPerWeek]float64)
	for _, r := range rows {
		if r.DayOfWeek < 0 || r.DayOfWeek >= schema.DaysPerWeek {
			continue
		}
		rates := out[r.AccountID]
		rates[r.DayOfWeek] = r.EngagementRatePct
		out[r.AccountID] = rates
	}
	return out
}

// ZeroRows returns seven zero-rate rows for an account without usable history.
func ZeroRows(accountID string) []schema.EngagementBaseline {
	rows := make([]schema.EngagementBaseline, schema.DaysPerWeek)
	for wd := range rows {
		rows[wd] = schema.EngagementBaseline{AccountID: accountID, DayOfWeek: wd}
	}
	return rows
}
