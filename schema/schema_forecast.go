package schema

import (
	"slices"
	"strings"
	"time"
)

// AccountFilter selects the population of a forecast.
// The zero value selects every known account. An explicit filter selects
// exactly the listed accounts, and an explicit empty filter selects nobody.
type AccountFilter struct {
	explicit bool
	ids      []string
}

// AllAccounts returns a filter that selects every known account.
func AllAccounts() AccountFilter {
	return AccountFilter{}
}

// ExplicitAccounts returns a filter restricted to the given account ids.
// Blank ids are dropped; the rest are trimmed, deduplicated and sorted.
func ExplicitAccounts(ids ...string) AccountFilter {
	set := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			set = append(set, id)
		}
	}
	slices.Sort(set)
	return AccountFilter{explicit: true, ids: slices.Compact(set)}
}

// IsAll reports whether the filter selects every known account.
func (f AccountFilter) IsAll() bool {
	return !f.explicit
}

// IDs returns a copy of the explicit account ids, sorted. It is nil for AllAccounts.
func (f AccountFilter) IDs() []string {
	if !f.explicit {
		return nil
	}
	return slices.Clone(f.ids)
}

// Contains reports whether the account is selected by the filter.
func (f AccountFilter) Contains(accountID string) bool {
	if !f.explicit {
		return true
	}
	_, found := slices.BinarySearch(f.ids, accountID)
	return found
}

// ChurnForecastRequest describes one forecast run.
type ChurnForecastRequest struct {
	CutoffDate    time.Time     // Last day of observed history
	HorizonDays   int           // Number of days to forecast, within [MinHorizonDays, MaxHorizonDays]
	AccountFilter AccountFilter // Population selection
}

// Horizon bounds for a forecast request.
const (
	MinHorizonDays = 1
	MaxHorizonDays = 365
)

// ChurnForecastResult is the outcome of a forecast run.
type ChurnForecastResult struct {
	CutoffDate   time.Time           `json:"cutoff_date"`
	StartDate    time.Time           `json:"start_date"`
	EndDate      time.Time           `json:"end_date"`
	HorizonDays  int                 `json:"horizon_days"`
	AccountCount int                 `json:"account_count"`
	Forecast     []AccountChurnPoint `json:"forecast"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Cached       bool                `json:"cached"`
}
