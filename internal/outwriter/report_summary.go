package outwriter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huangsam/radar/schema"
)

// PrintTextSummary prints a short plain-text digest of a forecast report.
func PrintTextSummary(w io.Writer, report schema.ForecastReport) error {
	s := report.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Renewal Radar: %s → %s (%d days, cutoff %s)\n",
		schema.FormatDate(s.StartDate), schema.FormatDate(s.EndDate), s.HorizonDays, schema.FormatDate(s.CutoffDate))
	fmt.Fprintf(&b, "Accounts: %d | At risk: %d | Watchlist: %d | ARR at risk: %s of %s\n",
		s.AccountCount, s.AccountsAtRisk, s.WatchlistCount, formatMoney(s.ARRAtRisk), formatMoney(s.TotalARR))
	for _, bucket := range report.Buckets {
		fmt.Fprintf(&b, "  %-20s %4d accounts  %s ARR\n", bucket.Bucket, bucket.Count, formatMoney(bucket.ARR))
	}
	if len(report.AtRisk) > 0 {
		top := report.AtRisk[0]
		fmt.Fprintf(&b, "Highest risk: %s (%s) at %.0f%% churn probability\n", top.AccountID, displayName(top), top.ChurnProbEnd*100)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdownBrief renders the report as a Markdown brief for account teams.
func WriteMarkdownBrief(w io.Writer, report schema.ForecastReport, precision int) error {
	fmtFloat, _ := createFormatters(precision)
	s := report.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "# Renewal Radar: %s\n\n", schema.FormatDate(s.CutoffDate))
	fmt.Fprintf(&b, "Forecast window **%s → %s** (%d days) across **%d accounts** and %s ARR.\n\n",
		schema.FormatDate(s.StartDate), schema.FormatDate(s.EndDate), s.HorizonDays, s.AccountCount, formatMoney(s.TotalARR))
	if !s.TouchpointMin.IsZero() {
		fmt.Fprintf(&b, "Touchpoints observed from %s to %s.\n\n", schema.FormatDate(s.TouchpointMin), schema.FormatDate(s.TouchpointMax))
	}
	fmt.Fprintf(&b, "- **%d** accounts end the window at or above %s churn probability (%s ARR).\n",
		s.AccountsAtRisk, fmtFloat(s.RiskThreshold), formatMoney(s.ARRAtRisk))
	fmt.Fprintf(&b, "- **%d** accounts cross the threshold during the window but recover by the end.\n\n", s.WatchlistCount)

	b.WriteString("## Risk breakdown\n\n| Bucket | Accounts | ARR |\n|---|---:|---:|\n")
	for _, bucket := range report.Buckets {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", bucket.Bucket, bucket.Count, formatMoney(bucket.ARR))
	}

	b.WriteString("\n## Top at-risk accounts\n\n")
	if len(report.AtRisk) == 0 {
		b.WriteString("No accounts end the window above the risk threshold.\n")
	} else {
		b.WriteString("| # | Account | Company | ARR | Churn | First at risk | Renewal |\n|---:|---|---|---:|---:|---|---|\n")
		for i, a := range report.AtRisk[:min(markdownTopAtRisk, len(report.AtRisk))] {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
				i+1, a.AccountID, displayName(a), formatMoney(a.ARR), fmtFloat(a.ChurnProbEnd),
				optionalDate(a.FirstAtRiskDate), renewalDate(a))
		}
	}

	if len(report.Watchlist) > 0 {
		b.WriteString("\n## Watchlist\n\n| Account | Company | Peak churn | End churn |\n|---|---|---:|---:|\n")
		for _, a := range report.Watchlist {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", a.AccountID, displayName(a), fmtFloat(a.MaxChurnProb), fmtFloat(a.ChurnProbEnd))
		}
	}

	b.WriteString("\n## Next actions\n\n")
	switch {
	case len(report.AtRisk) > 0:
		top := report.AtRisk[0]
		fmt.Fprintf(&b, "1. Schedule an executive touchpoint with %s before %s.\n", displayName(top), optionalDate(top.FirstAtRiskDate))
		b.WriteString("2. Review engagement plans for every account in the at-risk table.\n")
		b.WriteString("3. Re-run the forecast after new touchpoints are logged.\n")
	case len(report.Watchlist) > 0:
		b.WriteString("1. Check in with watchlist accounts before their dip.\n")
		b.WriteString("2. Re-run the forecast after new touchpoints are logged.\n")
	default:
		b.WriteString("1. No action needed; keep the regular touchpoint cadence.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func displayName(s schema.AccountSummary) string {
	if s.Company != "" {
		return s.Company
	}
	return s.AccountID
}

func optionalDate(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return schema.FormatDate(*d)
}

func renewalDate(s schema.AccountSummary) string {
	if s.RenewalDate.IsZero() {
		return "-"
	}
	return schema.FormatDate(s.RenewalDate)
}
