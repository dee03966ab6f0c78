package core

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
)

// BuildReport condenses a forecast into per-account summaries, the at-risk list,
// the watchlist, risk buckets and a headline summary.
func BuildReport(result *schema.ChurnForecastResult, registry []schema.Account, touchpoints []schema.Touchpoint, riskThreshold float64) schema.ForecastReport {
	accounts := summarizeAccounts(result.Forecast, indexRegistry(registry), riskThreshold)

	atRisk := make([]schema.AccountSummary, 0)
	watchlist := make([]schema.AccountSummary, 0)
	for _, s := range accounts {
		switch {
		case s.ChurnProbEnd >= riskThreshold:
			atRisk = append(atRisk, s)
		case s.MaxChurnProb >= riskThreshold:
			watchlist = append(watchlist, s)
		}
	}
	slices.SortStableFunc(atRisk, func(a, b schema.AccountSummary) int {
		return cmp.Or(
			cmp.Compare(b.ChurnProbEnd, a.ChurnProbEnd),
			cmp.Compare(b.ARR, a.ARR),
			strings.Compare(a.AccountID, b.AccountID),
		)
	})
	slices.SortStableFunc(watchlist, func(a, b schema.AccountSummary) int {
		return cmp.Or(
			cmp.Compare(b.MaxChurnProb, a.MaxChurnProb),
			strings.Compare(a.AccountID, b.AccountID),
		)
	})

	summary := schema.ForecastSummary{
		CutoffDate:     result.CutoffDate,
		StartDate:      result.StartDate,
		EndDate:        result.EndDate,
		HorizonDays:    result.HorizonDays,
		AccountCount:   result.AccountCount,
		AccountsAtRisk: len(atRisk),
		WatchlistCount: len(watchlist),
		RiskThreshold:  riskThreshold,
		GeneratedAt:    result.GeneratedAt,
		Cached:         result.Cached,
	}
	for _, s := range accounts {
		summary.TotalARR += s.ARR
	}
	for _, s := range atRisk {
		summary.ARRAtRisk += s.ARR
	}
	summary.TouchpointMin, summary.TouchpointMax = TouchpointRange(touchpoints)

	return schema.ForecastReport{
		Summary:   summary,
		Accounts:  accounts,
		AtRisk:    atRisk,
		Watchlist: watchlist,
		Buckets:   bucketCounts(accounts),
	}
}

// summarizeAccounts folds each account's trajectory into one summary row.
// Rows must be sorted by account and date, which Simulate guarantees.
func summarizeAccounts(rows []schema.AccountChurnPoint, registry map[string]schema.Account, riskThreshold float64) []schema.AccountSummary {
	out := make([]schema.AccountSummary, 0)
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && rows[j].AccountID == rows[i].AccountID {
			j++
		}
		out = append(out, summarizeAccount(rows[i:j], registry[rows[i].AccountID], riskThreshold))
		i = j
	}
	return out
}

func summarizeAccount(traj []schema.AccountChurnPoint, meta schema.Account, riskThreshold float64) schema.AccountSummary {
	last := traj[len(traj)-1]
	s := schema.AccountSummary{
		AccountID:          last.AccountID,
		Company:            meta.Company,
		Tier:               meta.Tier,
		ARR:                meta.ARR,
		RenewalDate:        meta.RenewalDate,
		EngagementScoreEnd: last.EngagementScore,
		DecayRiskEnd:       last.DecayRisk,
		ChurnProbEnd:       last.ChurnProb,
		MaxChurnProb:       traj[0].ChurnProb,
		MinEngagementScore: traj[0].EngagementScore,
		Bucket:             contract.GetRiskBucket(last.ChurnProb),
	}
	for _, p := range traj {
		s.MaxChurnProb = max(s.MaxChurnProb, p.ChurnProb)
		s.MinEngagementScore = min(s.MinEngagementScore, p.EngagementScore)
		if s.FirstAtRiskDate == nil && p.ChurnProb >= riskThreshold {
			d := p.Date
			s.FirstAtRiskDate = &d
		}
	}
	return s
}

// indexRegistry keys the registry by account id; the first row wins.
func indexRegistry(registry []schema.Account) map[string]schema.Account {
	idx := make(map[string]schema.Account, len(registry))
	for _, acc := range registry {
		if _, ok := idx[acc.AccountID]; !ok {
			idx[acc.AccountID] = acc
		}
	}
	return idx
}

func bucketCounts(accounts []schema.AccountSummary) []schema.RiskBucketCount {
	counts := make([]schema.RiskBucketCount, len(schema.AllRiskBuckets))
	pos := make(map[schema.RiskBucket]int, len(schema.AllRiskBuckets))
	for i, b := range schema.AllRiskBuckets {
		counts[i].Bucket = b
		pos[b] = i
	}
	for _, s := range accounts {
		i := pos[s.Bucket]
		counts[i].Count++
		counts[i].ARR += s.ARR
	}
	return counts
}

// TouchpointRange returns the earliest and latest touchpoint dates, or zero times when empty.
func TouchpointRange(touchpoints []schema.Touchpoint) (earliest, latest time.Time) {
	for i, tp := range touchpoints {
		d := schema.NormalizeDate(tp.TouchpointDate)
		if i == 0 || d.Before(earliest) {
			earliest = d
		}
		if i == 0 || d.After(latest) {
			latest = d
		}
	}
	return earliest, latest
}
