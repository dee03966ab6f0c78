package outwriter

import (
	"os"

	"github.com/huangsam/radar/internal/contract"
	"golang.org/x/term"
)

// getMaxTableNameWidth calculates the maximum width for company names in table output
// based on terminal width.
func getMaxTableNameWidth(cfg *contract.Config) int {
	termWidth := cfg.Width // Absolute width override from flag/env

	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80
		} else {
			termWidth = detectedWidth
		}
	}

	// Rank, Account, ARR, End, Churn, Max, First At Risk and Label with borders/padding
	baseWidth := 95

	available := termWidth - baseWidth
	if available < 12 {
		return 12
	}
	if available > 40 {
		return 40
	}
	return available
}
