package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"plain", date(2024, time.January, 10), 3, date(2024, time.April, 10)},
		{"clamp non leap", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"clamp leap", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"clamp thirty", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"year rollover", date(2024, time.November, 30), 3, date(2025, time.February, 28)},
		{"twelve", date(2024, time.February, 29), 12, date(2025, time.February, 28)},
		{"zero", date(2024, time.May, 5), 0, date(2024, time.May, 5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonths(tc.start, tc.months))
		})
	}
}

func TestAddMonthsKeepsClock(t *testing.T) {
	start := time.Date(2024, time.January, 31, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 29, 14, 30, 0, 0, time.UTC), AddMonths(start, 1))
}

func TestParseISO(t *testing.T) {
	got, err := ParseISO("2024-01-10", nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 10), got)

	got, err = ParseISO("2024-01-10T08:00:00-03:00", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 10, 11, 0, 0, 0, time.UTC), got.UTC())

	_, err = ParseISO("10/01/2024", nil)
	assert.Error(t, err)
	_, err = ParseISO("  ", nil)
	assert.Error(t, err)
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2100, time.February))
	assert.Equal(t, 31, DaysIn(2024, time.December))
}
