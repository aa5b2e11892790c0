// Package timeutil holds calendar helpers used to compute registration windows.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// isoLayouts are tried in order when parsing caller supplied dates.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dateLayout,
}

// ParseISO parses an ISO-8601 date or date-time. Values without an offset are
// interpreted in loc (UTC when loc is nil).
func ParseISO(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 date %q", raw)
}

// AddMonths adds n calendar months to t keeping the clock time. When the
// target month is shorter than t's day, the result is clamped to the last day
// of that month: Jan 31 + 1 month is Feb 28 (Feb 29 in leap years).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	// first day of the target month; time.Date normalises month overflow
	target := time.Date(year, month+time.Month(n), 1, hour, minute, sec, t.Nanosecond(), t.Location())
	if last := DaysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
