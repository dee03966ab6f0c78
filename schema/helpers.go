package schema

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used across inputs, reports and cache keys.
const DateLayout = "2006-01-02"

// DaysPerWeek is the number of weekday slots in an engagement baseline.
const DaysPerWeek = 7

// NormalizeDate strips the clock from t and returns UTC midnight of the same calendar day.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a normalized calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return NormalizeDate(t).AddDate(0, 0, n)
}

// DayOfWeek maps a date to Monday=0 through Sunday=6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % DaysPerWeek
}

// FormatDate renders a calendar date, or an empty string for the zero value.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate accepts YYYY-MM-DD, RFC3339 or a "YYYY-MM-DD HH:MM:SS" timestamp
// and returns the normalized calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	layouts := []string{DateLayout, time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
}
