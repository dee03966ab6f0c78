package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOfWeek(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{NewDate(2024, time.January, 1), 0}, // Monday
		{NewDate(2024, time.January, 2), 1},
		{NewDate(2024, time.January, 5), 4}, // Friday
		{NewDate(2024, time.January, 6), 5},
		{NewDate(2024, time.January, 7), 6}, // Sunday
	}
	for _, tt := range tests {
		t.Run(tt.date.Format(DateLayout), func(t *testing.T) {
			assert.Equal(t, tt.want, DayOfWeek(tt.date))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"plain date", "2024-03-15", NewDate(2024, time.March, 15), false},
		{"padded", "  2024-03-15 ", NewDate(2024, time.March, 15), false},
		{"rfc3339", "2024-03-15T22:10:00Z", NewDate(2024, time.March, 15), false},
		{"sql timestamp", "2024-03-15 08:00:00", NewDate(2024, time.March, 15), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "15/03/2024", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestAddDaysAndNormalize(t *testing.T) {
	local := time.Date(2024, time.February, 28, 23, 30, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, NewDate(2024, time.February, 28), NormalizeDate(local))
	assert.Equal(t, NewDate(2024, time.March, 1), AddDays(local, 2))
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "2024-02-28", FormatDate(NormalizeDate(local)))
}
