package payroll

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Em4Michael/AirHub-Server/generic"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(date time.Time, hours, quality string, approved bool) Entry {
	return Entry{
		ID:            generic.EntryID(generic.NewID()),
		WorkerID:      "w1",
		ProfileID:     "p1",
		Date:          date,
		Time:          dec(hours),
		Quality:       dec(quality),
		AdminApproved: approved,
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregate_ApprovedEntriesInWindow(t *testing.T) {
	// GIVEN: a Monday-start week with two approved entries, one unapproved
	// entry and one approved entry in the following week
	week := generic.WeekBoundaries(generic.Date(2025, time.March, 12), 1)
	entries := []Entry{
		entry(generic.Date(2025, time.March, 10), "6", "90", true),
		entry(generic.Date(2025, time.March, 11), "7", "85", true),
		entry(generic.Date(2025, time.March, 12), "8", "10", false),
		entry(generic.Date(2025, time.March, 17), "9", "50", true),
	}

	// WHEN: aggregating over the week
	stats := Aggregate(entries, week.Start, week.End)

	// THEN: only the two approved in-window entries count
	assert.Equal(t, 2, stats.EntryCount)
	assert.True(t, stats.TotalHours.Equal(dec("13")), stats.TotalHours.String())
	assert.True(t, stats.AvgQuality.Equal(dec("87.5")), stats.AvgQuality.String())
	assert.True(t, stats.AvgTime.Equal(dec("6.5")), stats.AvgTime.String())
}

func TestAggregate_UsesAdminValues(t *testing.T) {
	e := entry(generic.Date(2025, time.March, 10), "10", "60", true)
	adminTime, adminQuality := dec("8"), dec("95")
	e.AdminTime = &adminTime
	e.AdminQuality = &adminQuality

	stats := Aggregate([]Entry{e}, generic.Date(2025, time.March, 10), generic.EndOfDay(generic.Date(2025, time.March, 16)))

	assert.True(t, stats.TotalHours.Equal(dec("8")))
	assert.True(t, stats.AvgQuality.Equal(dec("95")))
}

func TestAggregate_EmptyWindowIsZero(t *testing.T) {
	stats := Aggregate(nil, generic.Date(2025, time.March, 10), generic.Date(2025, time.March, 16))

	assert.Equal(t, 0, stats.EntryCount)
	assert.True(t, stats.TotalHours.IsZero())
	assert.True(t, stats.AvgQuality.IsZero())
	assert.True(t, stats.PerformanceScore().IsZero())
}

func TestAggregate_InclusiveBounds(t *testing.T) {
	week := generic.WeekBoundaries(generic.Date(2025, time.March, 12), 1)
	entries := []Entry{
		entry(week.Start, "1", "100", true),
		entry(generic.Midnight(week.End), "2", "100", true),
	}

	stats := Aggregate(entries, week.Start, week.End)

	assert.Equal(t, 2, stats.EntryCount)
}

// =============================================================================
// UPSERT MERGE RULE
// =============================================================================

func TestMergeRegular_NewRecord(t *testing.T) {
	in := WeeklyPayment{
		ID:            "p1",
		BaseEarnings:  dec("6500"),
		BonusEarnings: dec("0"),
		ExtraBonus:    dec("0"),
		Status:        StatusDenied,
		Paid:          true,
	}

	got := MergeRegular(nil, in)

	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PaymentRegular, got.PaymentType)
	assert.False(t, got.Paid)
	assert.True(t, got.TotalEarnings.Equal(dec("6500")))
}

func TestMergeRegular_RefreshKeepsIdentityAndBonus(t *testing.T) {
	approvedAt := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	existing := &WeeklyPayment{
		ID:               "keep-me",
		PaymentType:      PaymentRegular,
		Status:           StatusApproved,
		ApprovedBy:       "admin",
		ApprovedAt:       &approvedAt,
		WeekStartDay:     1,
		TotalHours:       dec("5"),
		BaseEarnings:     dec("2500"),
		BonusEarnings:    dec("0"),
		ExtraBonus:       dec("300"),
		ExtraBonusReason: "referral",
	}
	incoming := WeeklyPayment{
		ID:            "fresh",
		WeekStartDay:  3,
		TotalHours:    dec("13"),
		EntryCount:    2,
		BaseEarnings:  dec("6500"),
		BonusEarnings: dec("650"),
		ExtraBonus:    dec("0"),
	}

	got := MergeRegular(existing, incoming)

	assert.Equal(t, generic.PaymentID("keep-me"), got.ID)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, "admin", got.ApprovedBy)
	assert.Equal(t, 1, got.WeekStartDay)
	assert.Equal(t, 2, got.EntryCount)
	assert.True(t, got.ExtraBonus.Equal(dec("300")))
	assert.True(t, got.TotalEarnings.Equal(dec("7450")), got.TotalEarnings.String())
}

func TestMergeRegular_PaidIsFrozen(t *testing.T) {
	existing := &WeeklyPayment{ID: "paid", Status: StatusPaid, Paid: true, TotalHours: dec("5"), TotalEarnings: dec("2500")}

	got := MergeRegular(existing, WeeklyPayment{TotalHours: dec("40"), BaseEarnings: dec("20000")})

	assert.Equal(t, *existing, got)
}

func TestRecalculate_BonusType(t *testing.T) {
	p := WeeklyPayment{PaymentType: PaymentBonus, BaseEarnings: dec("999"), ExtraBonus: dec("250")}
	p.Recalculate()
	assert.True(t, p.TotalEarnings.Equal(dec("250")))
}

// =============================================================================
// REVIEW TRANSITIONS
// =============================================================================

func TestApproveDeny_Transitions(t *testing.T) {
	at := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	p := &WeeklyPayment{Status: StatusPending}

	require.NoError(t, Approve(p, "alice", at))
	assert.Equal(t, StatusApproved, p.Status)
	assert.True(t, generic.IsInvalidState(Approve(p, "alice", at)))

	require.NoError(t, Deny(p, "hours disputed", "bob", at))
	assert.Equal(t, StatusDenied, p.Status)
	assert.Empty(t, p.ApprovedBy)
	assert.Nil(t, p.ApprovedAt)
	assert.Equal(t, "hours disputed", p.DenialReason)
	assert.True(t, generic.IsInvalidState(Deny(p, "again", "bob", at)))

	require.NoError(t, Approve(p, "alice", at))
	assert.Empty(t, p.DeniedBy)
	assert.Nil(t, p.DeniedAt)
	assert.Empty(t, p.DenialReason)
}

func TestApproveDeny_PaidIsTerminal(t *testing.T) {
	at := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	p := &WeeklyPayment{Status: StatusPaid, Paid: true}

	assert.True(t, generic.IsInvalidState(Approve(p, "alice", at)))
	assert.True(t, generic.IsInvalidState(Deny(p, "late", "alice", at)))
	assert.Equal(t, StatusPaid, p.Status)
}

func TestDeny_RequiresReason(t *testing.T) {
	p := &WeeklyPayment{Status: StatusPending}
	err := Deny(p, "  ", "bob", time.Now())
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Equal(t, StatusPending, p.Status)
}

// =============================================================================
// BONUS SUMMARY
// =============================================================================

func TestSummarize_JoinsReasons(t *testing.T) {
	s := summarize([]Bonus{
		{ID: "b1", Amount: dec("1000"), Reason: "great week"},
		{ID: "b2", Amount: dec("250.50"), Reason: ""},
		{ID: "b3", Amount: dec("500"), Reason: "referral"},
	})

	assert.True(t, s.Total.Equal(dec("1750.50")))
	assert.Equal(t, "great week; referral", s.Reason)
	assert.Equal(t, []generic.BonusID{"b1", "b2", "b3"}, s.IDs())
	assert.Equal(t, "existing; new", joinReasons("existing", "new"))
	assert.Equal(t, "new", joinReasons("", "new"))
}
