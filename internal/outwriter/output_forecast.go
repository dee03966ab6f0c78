package outwriter

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/internal/parquet"
	"github.com/huangsam/radar/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// forecastHeader is the column layout of forecast row exports.
var forecastHeader = []string{"account_id", "date", "engagement_score", "decay_risk", "churn_prob"}

// PrintForecastResults outputs a forecast, dispatching based on the output format configured.
func PrintForecastResults(output *schema.ForecastOutput, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, output)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeForecastCSV(w, output.Result.Forecast, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return errors.New("parquet output requires --output-file")
		}
		if err := parquet.WriteForecastPointsParquet(output.Result.Forecast, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeForecastTable(w, output, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// writeForecastCSV writes one row per account and forecast day.
func writeForecastCSV(w io.Writer, rows []schema.AccountChurnPoint, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, forecastHeader, func(cw *csv.Writer) error {
		for _, r := range rows {
			if err := cw.Write([]string{
				r.AccountID,
				schema.FormatDate(r.Date),
				fmtFloat(r.EngagementScore),
				fmtFloat(r.DecayRisk),
				fmtFloat(r.ChurnProb),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// rankAccounts orders summaries from most to least likely to churn.
func rankAccounts(accounts []schema.AccountSummary) []schema.AccountSummary {
	ranked := slices.Clone(accounts)
	slices.SortStableFunc(ranked, func(a, b schema.AccountSummary) int {
		return cmp.Or(
			cmp.Compare(b.ChurnProbEnd, a.ChurnProbEnd),
			cmp.Compare(b.ARR, a.ARR),
			strings.Compare(a.AccountID, b.AccountID),
		)
	})
	return ranked
}

// writeForecastTable generates and writes the human-readable table.
func writeForecastTable(w io.Writer, output *schema.ForecastOutput, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	report := output.Report
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Account", "Company", "ARR", "Engagement", "Churn", "Max Churn", "First At Risk", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	nameWidth := getMaxTableNameWidth(cfg)

	ranked := rankAccounts(report.Accounts)
	shown := ranked
	if cfg.ResultLimit > 0 {
		shown = ranked[:min(cfg.ResultLimit, len(ranked))]
	}
	var data [][]string
	for i, s := range shown {
		firstAtRisk := "-"
		if s.FirstAtRiskDate != nil {
			firstAtRisk = schema.FormatDate(*s.FirstAtRiskDate)
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			s.AccountID,
			contract.TruncateText(s.Company, nameWidth),
			formatMoney(s.ARR),
			fmtFloat(s.EngagementScoreEnd),
			fmtFloat(s.ChurnProbEnd),
			fmtFloat(s.MaxChurnProb),
			firstAtRisk,
			label(s.ChurnProbEnd),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	summary := report.Summary
	if _, err := fmt.Fprintf(w, "Showing top %d of %d accounts (at risk: %d, watchlist: %d, ARR at risk: %s of %s)\n",
		len(shown), summary.AccountCount, summary.AccountsAtRisk, summary.WatchlistCount,
		formatMoney(summary.ARRAtRisk), formatMoney(summary.TotalARR)); err != nil {
		return err
	}
	cached := ""
	if summary.Cached {
		cached = " (cached)"
	}
	if _, err := fmt.Fprintf(w, "Forecast completed in %v with %d workers%s. Cache backend: %s\n", duration, cfg.Workers, cached, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// formatMoney renders an amount with thousands separators and no decimals.
func formatMoney(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
