package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
)

// bundlePrecision keeps report files precise regardless of the display precision.
const bundlePrecision = 6

// markdownTopAtRisk caps the at-risk table of the Markdown brief.
const markdownTopAtRisk = 15

var summaryHeader = []string{
	"account_id", "company", "tier", "arr", "renewal_date",
	"engagement_score_end", "decay_risk_end", "churn_prob_end", "max_churn_prob",
	"min_engagement_score", "first_at_risk_date", "risk_bucket",
}

// BundleFileNames returns the report bundle file names for a cutoff date.
func BundleFileNames(cutoff string) (forecast, accounts, atRisk, watchlist, brief string) {
	name := func(kind, ext string) string {
		return fmt.Sprintf("renewal_radar_%s_%s.%s", kind, cutoff, ext)
	}
	return name("forecast", "csv"), name("account_summary", "csv"), name("at_risk", "csv"),
		name("watchlist", "csv"), name("summary", "md")
}

// bundleFile is one file of the report bundle and the writer that fills it.
type bundleFile struct {
	name  string
	write func(io.Writer) error
}

// WriteReportBundle writes the forecast rows, account summaries, at-risk list,
// watchlist (only when non-empty) and a Markdown brief into outDir.
func WriteReportBundle(outDir string, output *schema.ForecastOutput, cfg *contract.Config) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	report := output.Report
	fmtFloat, _ := createFormatters(bundlePrecision)
	forecastName, accountsName, atRiskName, watchlistName, briefName := BundleFileNames(schema.FormatDate(report.Summary.CutoffDate))

	files := []bundleFile{
		{forecastName, func(w io.Writer) error { return writeForecastCSV(w, output.Result.Forecast, fmtFloat) }},
		{accountsName, func(w io.Writer) error { return writeSummaryCSV(w, report.Accounts, fmtFloat) }},
		{atRiskName, func(w io.Writer) error { return writeSummaryCSV(w, report.AtRisk, fmtFloat) }},
	}
	if len(report.Watchlist) > 0 {
		files = append(files, bundleFile{watchlistName, func(w io.Writer) error { return writeSummaryCSV(w, report.Watchlist, fmtFloat) }})
	}
	files = append(files, bundleFile{briefName, func(w io.Writer) error { return WriteMarkdownBrief(w, report, cfg.Precision) }})

	for _, f := range files {
		path := filepath.Join(outDir, f.name)
		if err := writeWithFile(path, f.write, "Wrote report"); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// writeSummaryCSV writes one row per account summary.
func writeSummaryCSV(w io.Writer, summaries []schema.AccountSummary, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, summaryHeader, func(cw *csv.Writer) error {
		for _, s := range summaries {
			renewal := ""
			if !s.RenewalDate.IsZero() {
				renewal = schema.FormatDate(s.RenewalDate)
			}
			firstAtRisk := ""
			if s.FirstAtRiskDate != nil {
				firstAtRisk = schema.FormatDate(*s.FirstAtRiskDate)
			}
			if err := cw.Write([]string{
				s.AccountID,
				s.Company,
				s.Tier,
				strconv.FormatFloat(s.ARR, 'f', -1, 64),
				renewal,
				fmtFloat(s.EngagementScoreEnd),
				fmtFloat(s.DecayRiskEnd),
				fmtFloat(s.ChurnProbEnd),
				fmtFloat(s.MaxChurnProb),
				fmtFloat(s.MinEngagementScore),
				firstAtRisk,
				string(s.Bucket),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
