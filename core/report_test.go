package core

import (
	"testing"
	"time"

	"github.com/huangsam/radar/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trajectory builds daily rows for one account from a list of churn probabilities.
func trajectory(id string, probs ...float64) []schema.AccountChurnPoint {
	rows := make([]schema.AccountChurnPoint, len(probs))
	for i, p := range probs {
		rows[i] = schema.AccountChurnPoint{
			AccountID:       id,
			Date:            schema.AddDays(testCutoff, i+1),
			EngagementScore: 1 - p,
			DecayRisk:       p / 2,
			ChurnProb:       p,
		}
	}
	return rows
}

func reportResult(rows ...[]schema.AccountChurnPoint) *schema.ChurnForecastResult {
	var forecast []schema.AccountChurnPoint
	for _, r := range rows {
		forecast = append(forecast, r...)
	}
	return &schema.ChurnForecastResult{
		CutoffDate:   testCutoff,
		StartDate:    schema.AddDays(testCutoff, 1),
		EndDate:      schema.AddDays(testCutoff, 3),
		HorizonDays:  3,
		AccountCount: len(rows),
		Forecast:     forecast,
		GeneratedAt:  fixedNow,
	}
}

func TestBuildReport(t *testing.T) {
	result := reportResult(
		trajectory("A1", 0.2, 0.4, 0.6),  // at risk from day 3
		trajectory("A2", 0.1, 0.1, 0.1),  // healthy
		trajectory("A3", 0.6, 0.55, 0.4), // recovered, watchlist
		trajectory("A4", 0.7, 0.8, 0.9),  // critical
		trajectory("A5", 0.5, 0.6, 0.6),  // ties A1 on end probability
	)
	registry := []schema.Account{
		{AccountID: "A1", Company: "Acme", ARR: 100},
		{AccountID: "A2", Company: "Globex", ARR: 50},
		{AccountID: "A3", Company: "Initech", ARR: 20},
		{AccountID: "A4", Company: "Umbrella", ARR: 10},
		{AccountID: "A5", Company: "Hooli", ARR: 500},
		{AccountID: "A1", Company: "Duplicate", ARR: 1},
	}
	tps := []schema.Touchpoint{
		{AccountID: "A1", TouchpointDate: schema.NewDate(2024, time.May, 3)},
		{AccountID: "A2", TouchpointDate: schema.NewDate(2024, time.April, 9)},
		{AccountID: "A1", TouchpointDate: schema.NewDate(2024, time.May, 30)},
	}

	report := BuildReport(result, registry, tps, 0.5)

	require.Len(t, report.Accounts, 5)
	a1 := report.Accounts[0]
	assert.Equal(t, "Acme", a1.Company)
	assert.Equal(t, 100.0, a1.ARR)
	assert.InDelta(t, 0.6, a1.ChurnProbEnd, 1e-12)
	assert.InDelta(t, 0.6, a1.MaxChurnProb, 1e-12)
	assert.InDelta(t, 0.4, a1.MinEngagementScore, 1e-12)
	require.NotNil(t, a1.FirstAtRiskDate)
	assert.True(t, schema.AddDays(testCutoff, 3).Equal(*a1.FirstAtRiskDate))
	assert.Equal(t, schema.HighRiskBucket, a1.Bucket)
	assert.Nil(t, report.Accounts[1].FirstAtRiskDate)

	var atRisk []string
	for _, s := range report.AtRisk {
		atRisk = append(atRisk, s.AccountID)
	}
	assert.Equal(t, []string{"A4", "A5", "A1"}, atRisk)

	require.Len(t, report.Watchlist, 1)
	assert.Equal(t, "A3", report.Watchlist[0].AccountID)

	summary := report.Summary
	assert.Equal(t, 5, summary.AccountCount)
	assert.Equal(t, 3, summary.AccountsAtRisk)
	assert.Equal(t, 1, summary.WatchlistCount)
	assert.Equal(t, 680.0, summary.TotalARR)
	assert.Equal(t, 610.0, summary.ARRAtRisk)
	assert.True(t, schema.NewDate(2024, time.April, 9).Equal(summary.TouchpointMin))
	assert.True(t, schema.NewDate(2024, time.May, 30).Equal(summary.TouchpointMax))
	assert.Equal(t, fixedNow, summary.GeneratedAt)

	expected := []schema.RiskBucketCount{
		{Bucket: schema.HealthyBucket, Count: 1, ARR: 50},
		{Bucket: schema.AtRiskBucket, Count: 1, ARR: 20},
		{Bucket: schema.HighRiskBucket, Count: 2, ARR: 600},
		{Bucket: schema.CriticalBucket, Count: 1, ARR: 10},
	}
	assert.Equal(t, expected, report.Buckets)
}

func TestBuildReportEmpty(t *testing.T) {
	report := BuildReport(reportResult(), nil, nil, 0.5)
	assert.NotNil(t, report.Accounts)
	assert.Empty(t, report.AtRisk)
	assert.Empty(t, report.Watchlist)
	require.Len(t, report.Buckets, 4)
	for _, b := range report.Buckets {
		assert.Zero(t, b.Count)
	}
	assert.True(t, report.Summary.TouchpointMin.IsZero())
}

func TestBuildReportAtRiskTieBreaks(t *testing.T) {
	result := reportResult(trajectory("B", 0.8), trajectory("A", 0.8), trajectory("C", 0.8))
	registry := []schema.Account{{AccountID: "A", ARR: 5}, {AccountID: "B", ARR: 5}, {AccountID: "C", ARR: 9}}

	report := BuildReport(result, registry, nil, 0.5)
	var ids []string
	for _, s := range report.AtRisk {
		ids = append(ids, s.AccountID)
	}
	assert.Equal(t, []string{"C", "A", "B"}, ids)
}

func TestTouchpointRange(t *testing.T) {
	earliest, latest := TouchpointRange(nil)
	assert.True(t, earliest.IsZero())
	assert.True(t, latest.IsZero())

	earliest, latest = TouchpointRange([]schema.Touchpoint{
		{TouchpointDate: time.Date(2024, time.March, 2, 18, 30, 0, 0, time.UTC)},
		{TouchpointDate: schema.NewDate(2024, time.January, 5)},
	})
	assert.True(t, schema.NewDate(2024, time.January, 5).Equal(earliest))
	assert.True(t, schema.NewDate(2024, time.March, 2).Equal(latest))
}
