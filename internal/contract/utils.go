package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/radar/schema"
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold)     // CriticalColor represents standard danger.
	HighColor     = color.New(color.FgMagenta, color.Bold) // HighColor represents strong, distinct warning.
	AtRiskColor   = color.New(color.FgYellow)              // AtRiskColor represents standard caution, not bold.
	HealthyColor  = color.New(color.FgCyan)                // HealthyColor represents informational / low-priority signal.
)

// GetRiskBucket maps a churn probability onto a right-closed risk bucket.
func GetRiskBucket(prob float64) schema.RiskBucket {
	switch {
	case prob > 0.7:
		return schema.CriticalBucket
	case prob > 0.5:
		return schema.HighRiskBucket
	case prob > 0.3:
		return schema.AtRiskBucket
	default:
		return schema.HealthyBucket
	}
}

// GetPlainLabel returns a short plain text label for a churn probability.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(prob float64) string {
	switch GetRiskBucket(prob) {
	case schema.CriticalBucket:
		return "Critical"
	case schema.HighRiskBucket:
		return "High"
	case schema.AtRiskBucket:
		return "At Risk"
	default:
		return "Healthy"
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(prob float64) string {
	text := GetPlainLabel(prob)
	switch GetRiskBucket(prob) {
	case schema.CriticalBucket:
		return CriticalColor.Sprint(text)
	case schema.HighRiskBucket:
		return HighColor.Sprint(text)
	case schema.AtRiskBucket:
		return AtRiskColor.Sprint(text)
	default:
		return HealthyColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".radar_cache.db"
	}
	return filepath.Join(homeDir, ".radar_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".radar_history.db"
	}
	return filepath.Join(homeDir, ".radar_history.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and some content.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
