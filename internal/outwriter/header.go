package outwriter

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
)

// LogForecastHeader prints a concise, 2-line header before a forecast.
// Machine-readable output on stdout gets no header.
func LogForecastHeader(cfg *contract.Config, cutoff time.Time) {
	if cfg.Output != schema.TextOut && cfg.OutputFile == "" {
		return
	}

	population := "all accounts"
	if !cfg.AccountFilter.IsAll() {
		population = fmt.Sprintf("%d selected accounts", len(cfg.AccountFilter.IDs()))
	}
	start, end := schema.AddDays(cutoff, 1), schema.AddDays(cutoff, cfg.HorizonDays)

	if cfg.UseEmojis {
		fmt.Printf("🔎 Registry: %s (%s)\n", filepath.Base(cfg.AccountsPath), population)
		fmt.Printf("📅 Horizon: %s → %s (cutoff %s)\n", schema.FormatDate(start), schema.FormatDate(end), schema.FormatDate(cutoff))
		return
	}
	fmt.Printf("Registry: %s (%s)\n", filepath.Base(cfg.AccountsPath), population)
	fmt.Printf("Horizon: %s to %s (cutoff %s)\n", schema.FormatDate(start), schema.FormatDate(end), schema.FormatDate(cutoff))
}
