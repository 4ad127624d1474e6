package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// =============================================================================
// WEEK BOUNDARIES
// =============================================================================

func TestWeekBoundaries_RollsBackToStartDay(t *testing.T) {
	wednesday := time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		startDay int
		want     time.Time
	}{
		{"sunday start", 0, generic.Date(2025, time.March, 9)},
		{"monday start", 1, generic.Date(2025, time.March, 10)},
		{"wednesday start is same day", 3, generic.Date(2025, time.March, 12)},
		{"thursday start goes to previous week", 4, generic.Date(2025, time.March, 6)},
		{"saturday start", 6, generic.Date(2025, time.March, 8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := generic.WeekBoundaries(wednesday, tt.startDay)
			assert.Equal(t, tt.want, p.Start)
			wantEnd := tt.want.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond)
			assert.Equal(t, wantEnd, p.End)
		})
	}
}

func TestWeekBoundaries_SameWeekSameKey(t *testing.T) {
	// GIVEN: any start day and any reference week
	// WHEN: resolving every instant inside that logical week
	// THEN: all of them produce the identical week start and end

	for startDay := 0; startDay <= 6; startDay++ {
		anchor := generic.WeekBoundaries(generic.Date(2025, time.December, 30), startDay)
		for offset := 0; offset < 7; offset++ {
			for _, hour := range []int{0, 11, 23} {
				at := anchor.Start.AddDate(0, 0, offset).Add(time.Duration(hour) * time.Hour)
				got := generic.WeekBoundaries(at, startDay)
				assert.Equal(t, anchor.Start, got.Start, "start day %d offset %d hour %d", startDay, offset, hour)
				assert.Equal(t, anchor.End, got.End)
			}
		}
		// Last millisecond still belongs to the week, the next one doesn't.
		assert.Equal(t, anchor.Start, generic.WeekBoundaries(anchor.End, startDay).Start)
		assert.Equal(t, anchor.Start.AddDate(0, 0, 7),
			generic.WeekBoundaries(anchor.End.Add(time.Millisecond), startDay).Start)
	}
}

func TestWeekBoundaries_ConvertsToUTCFirst(t *testing.T) {
	// 02:00 on Wednesday in UTC+5 is still Tuesday in UTC.
	zone := time.FixedZone("UTC+5", 5*60*60)
	local := time.Date(2025, time.March, 12, 2, 0, 0, 0, zone)

	p := generic.WeekBoundaries(local, 3)

	assert.Equal(t, generic.Date(2025, time.March, 5), p.Start)
}

func TestWeekBoundaries_NormalizesStartDay(t *testing.T) {
	date := generic.Date(2025, time.March, 12)
	assert.Equal(t, generic.WeekBoundaries(date, 1), generic.WeekBoundaries(date, 8))
	assert.Equal(t, generic.WeekBoundaries(date, 6), generic.WeekBoundaries(date, -1))
}

func TestValidateWeekStartDay(t *testing.T) {
	for d := 0; d <= 6; d++ {
		assert.NoError(t, generic.ValidateWeekStartDay(d))
	}
	err := generic.ValidateWeekStartDay(7)
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Error(t, generic.ValidateWeekStartDay(-1))
}

// =============================================================================
// WEEK NUMBERING
// =============================================================================

func TestWeekNumberAndYear(t *testing.T) {
	// Jan 1 2025 is a Wednesday (weekday 3).
	tests := []struct {
		start time.Time
		want  int
		year  int
	}{
		{generic.Date(2025, time.January, 1), 1, 2025},
		{generic.Date(2025, time.January, 4), 1, 2025},
		{generic.Date(2025, time.January, 5), 2, 2025},
		{generic.Date(2025, time.January, 6), 2, 2025},
		{generic.Date(2025, time.March, 10), 11, 2025},
		{generic.Date(2025, time.December, 29), 53, 2025},
		// Jan 1 2024 is a Monday (weekday 1).
		{generic.Date(2024, time.January, 1), 1, 2024},
		{generic.Date(2024, time.January, 7), 2, 2024},
	}

	for _, tt := range tests {
		t.Run(tt.start.Format(generic.DateLayout), func(t *testing.T) {
			n, y := generic.WeekNumberAndYear(tt.start)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, tt.year, y)
		})
	}
}

func TestWeekNumber_DiffersFromISOAtYearEdge(t *testing.T) {
	// Dec 29 2025 starts ISO week 1 of 2026, but the payroll sequence keeps
	// numbering within 2025.
	start := generic.Date(2025, time.December, 29)
	isoYear, isoWeek := start.ISOWeek()
	n, y := generic.WeekNumberAndYear(start)

	assert.Equal(t, 2026, isoYear)
	assert.Equal(t, 1, isoWeek)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 53, n)
}

func TestResolveWeek(t *testing.T) {
	w := generic.ResolveWeek(time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC), 1)

	assert.Equal(t, generic.Date(2025, time.March, 10), w.Start)
	assert.Equal(t, 11, w.Number)
	assert.Equal(t, 2025, w.Year)
	assert.Equal(t, 1, w.StartDay)
	assert.True(t, w.Period().Contains(generic.Date(2025, time.March, 16).Add(23*time.Hour)))
	assert.Equal(t, "2025-W11 [2025-03-10, 2025-03-16]", w.String())
}

func TestPeriod_Days(t *testing.T) {
	p := generic.WeekBoundaries(generic.Date(2025, time.March, 12), 1)
	days := p.Days()
	require.Len(t, days, 7)
	assert.Equal(t, generic.Date(2025, time.March, 10), days[0])
	assert.Equal(t, generic.Date(2025, time.March, 16), days[6])
}
