package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive time window
// =============================================================================

// Period is an inclusive [Start, End] window.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within the period [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Days returns midnight of every day in the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := Midnight(p.Start); !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.Format(DateLayout) + ", " + p.End.Format(DateLayout) + "]"
}

// =============================================================================
// WEEK - Canonical payment week
// =============================================================================

// Week is the canonical payment week a date falls into.
//
// INVARIANT: Every payment record key is derived from ResolveWeek. Two dates
// in the same logical week always produce an identical Start, so they always
// upsert the same payment record. Never compute week starts ad hoc.
type Week struct {
	Start    time.Time // midnight UTC of the first day
	End      time.Time // Start + 6 days, 23:59:59.999 UTC
	Number   int
	Year     int
	StartDay int // 0 = Sunday ... 6 = Saturday
}

// Period returns the week as an inclusive window.
func (w Week) Period() Period {
	return Period{Start: w.Start, End: w.End}
}

func (w Week) String() string {
	return fmt.Sprintf("%d-W%02d %s", w.Year, w.Number, w.Period())
}

// NormalizeWeekStartDay folds any integer into 0..6.
func NormalizeWeekStartDay(d int) int {
	return ((d % 7) + 7) % 7
}

// ValidateWeekStartDay rejects values outside 0..6.
func ValidateWeekStartDay(d int) error {
	if d < 0 || d > 6 {
		return Invalid("week_start_day", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	return nil
}

// WeekBoundaries returns the week containing date for the given start day.
// The date is truncated to midnight UTC, then rolled back to the most recent
// weekStartDay.
func WeekBoundaries(date time.Time, weekStartDay int) Period {
	startDay := NormalizeWeekStartDay(weekStartDay)
	day := Midnight(date)
	back := (int(day.Weekday()) - startDay + 7) % 7
	start := day.AddDate(0, 0, -back)
	return Period{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
}

// WeekNumberAndYear numbers a week by its start day:
//
//	ceil((daysSinceJan1 + weekdayOfJan1 + 1) / 7)
//
// This is NOT ISO-8601 week numbering. The first and last weeks of a year can
// differ from the ISO calendar. Existing payment records are keyed on this
// sequence, so it must stay as is.
func WeekNumberAndYear(weekStart time.Time) (number, year int) {
	start := Midnight(weekStart)
	jan1 := StartOfYear(start.Year())
	days := DaysBetween(jan1, start)
	n := days + int(jan1.Weekday()) + 1
	return (n + 6) / 7, start.Year()
}

// ResolveWeek combines WeekBoundaries and WeekNumberAndYear.
func ResolveWeek(date time.Time, weekStartDay int) Week {
	p := WeekBoundaries(date, weekStartDay)
	number, year := WeekNumberAndYear(p.Start)
	return Week{
		Start:    p.Start,
		End:      p.End,
		Number:   number,
		Year:     year,
		StartDay: NormalizeWeekStartDay(weekStartDay),
	}
}
