package generic

import (
	"time"
)

// =============================================================================
// DAY MATH - All calendar math is done in UTC at day granularity
// =============================================================================

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Day is one calendar day.
const Day = 24 * time.Hour

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight converts t to UTC and truncates it to the start of its day.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59:59.999 UTC of t's day.
func EndOfDay(t time.Time) time.Time {
	return Midnight(t).Add(Day - time.Millisecond)
}

func Today() time.Time {
	return Midnight(time.Now())
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Invalid("date", "use YYYY-MM-DD")
	}
	return t, nil
}

// DaysBetween counts whole days from `from` to `to` (both truncated to midnight).
func DaysBetween(from, to time.Time) int {
	return int(Midnight(to).Sub(Midnight(from)) / Day)
}

func StartOfYear(year int) time.Time { return Date(year, time.January, 1) }
