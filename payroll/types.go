// Package payroll turns vetted daily entries into weekly payment records.
// It owns the Entry Aggregator, the Bonus Ledger and the Weekly Payment
// Engine; pricing policy lives in package benchmark and calendar math in
// package generic.
package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// =============================================================================
// WORKER
// =============================================================================

// Worker is the subset of a user record the engine needs.
type Worker struct {
	ID           generic.WorkerID
	Name         string
	Email        string
	WeekStartDay int // 0 = Sunday ... 6 = Saturday

	// PendingBonus and PendingBonusReason are a denormalized cache of the
	// worker's pending bonus ledger entries. They are rebuilt from the ledger
	// after every ledger mutation and are never read to decide what to pay.
	PendingBonus       decimal.Decimal
	PendingBonusReason string

	CreatedAt time.Time
}

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one worker-day of time and quality against a client profile.
// Unique per (profile, worker, date).
type Entry struct {
	ID        generic.EntryID
	WorkerID  generic.WorkerID
	ProfileID generic.ProfileID
	Date      time.Time

	Time    decimal.Decimal // hours submitted by the worker
	Quality decimal.Decimal // 0-100 submitted by the worker

	AdminTime     *decimal.Decimal
	AdminQuality  *decimal.Decimal
	AdminApproved bool
	VettedBy      string
	VettedAt      *time.Time

	CreatedAt time.Time
}

// EffectiveHours is the admin-vetted time when present, else the submitted time.
func (e Entry) EffectiveHours() decimal.Decimal {
	if e.AdminTime != nil {
		return *e.AdminTime
	}
	return e.Time
}

// EffectiveQuality is the admin-vetted quality when present, else the submitted quality.
func (e Entry) EffectiveQuality() decimal.Decimal {
	if e.AdminQuality != nil {
		return *e.AdminQuality
	}
	return e.Quality
}

// =============================================================================
// WEEKLY PAYMENT
// =============================================================================

type PaymentType string

const (
	PaymentRegular PaymentType = "regular"
	PaymentBonus   PaymentType = "bonus"
)

type PaymentStatus string

const (
	StatusPending  PaymentStatus = "pending"
	StatusApproved PaymentStatus = "approved"
	StatusDenied   PaymentStatus = "denied"
	StatusPaid     PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied, StatusPaid:
		return true
	}
	return false
}

// WeeklyPayment records what a worker earned, and was paid, for one week.
//
// INVARIANTS:
//   - regular: TotalEarnings = BaseEarnings + BonusEarnings + ExtraBonus
//   - bonus:   TotalEarnings = ExtraBonus
//   - At most one regular record per (WorkerID, WeekStart), enforced by
//     upsert-by-key in the store, not by a unique index.
//   - StatusPaid is terminal.
type WeeklyPayment struct {
	ID           generic.PaymentID
	WorkerID     generic.WorkerID
	WeekStart    time.Time
	WeekEnd      time.Time
	WeekNumber   int
	Year         int
	WeekStartDay int // snapshot of the worker's setting at creation

	TotalHours    decimal.Decimal
	AvgQuality    decimal.Decimal
	EntryCount    int
	HourlyRate    decimal.Decimal
	Tier          string
	Multiplier    decimal.Decimal
	BaseEarnings  decimal.Decimal
	BonusEarnings decimal.Decimal

	ExtraBonus       decimal.Decimal
	ExtraBonusReason string
	TotalEarnings    decimal.Decimal

	PaymentType PaymentType
	Status      PaymentStatus
	Paid        bool
	PaidDate    *time.Time
	PaidBy      string

	ApprovedBy   string
	ApprovedAt   *time.Time
	DeniedBy     string
	DeniedAt     *time.Time
	DenialReason string
	Notes        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Frozen reports whether the record no longer accepts refreshes.
func (p WeeklyPayment) Frozen() bool {
	return p.Status == StatusPaid
}

// Recalculate restores the totals invariant for the payment type.
func (p *WeeklyPayment) Recalculate() {
	if p.PaymentType == PaymentBonus {
		p.TotalEarnings = p.ExtraBonus
		return
	}
	p.TotalEarnings = generic.Sum(p.BaseEarnings, p.BonusEarnings, p.ExtraBonus)
}

// MergeRegular is the single upsert rule every store applies atomically for
// key (WorkerID, WeekStart, regular).
//
//   - No existing record: incoming becomes a new pending record.
//   - Existing paid record: returned unchanged (paid weeks are frozen).
//   - Otherwise: hours, quality and earnings fields are refreshed from
//     incoming. Identity, status, payout, approval fields, merged ExtraBonus
//     and the WeekStartDay snapshot are kept.
func MergeRegular(existing *WeeklyPayment, incoming WeeklyPayment) WeeklyPayment {
	if existing == nil {
		p := incoming
		p.PaymentType = PaymentRegular
		p.Status = StatusPending
		p.Paid = false
		p.PaidDate = nil
		p.PaidBy = ""
		p.Recalculate()
		return p
	}
	if existing.Frozen() {
		return *existing
	}

	p := *existing
	p.WeekEnd = incoming.WeekEnd
	p.WeekNumber = incoming.WeekNumber
	p.Year = incoming.Year
	p.TotalHours = incoming.TotalHours
	p.AvgQuality = incoming.AvgQuality
	p.EntryCount = incoming.EntryCount
	p.HourlyRate = incoming.HourlyRate
	p.Tier = incoming.Tier
	p.Multiplier = incoming.Multiplier
	p.BaseEarnings = incoming.BaseEarnings
	p.BonusEarnings = incoming.BonusEarnings
	p.UpdatedAt = incoming.UpdatedAt
	p.Recalculate()
	return p
}

// =============================================================================
// BONUS
// =============================================================================

type BonusStatus string

const (
	BonusPending BonusStatus = "pending"
	BonusMerged  BonusStatus = "merged"
	BonusReset   BonusStatus = "reset"
)

// Bonus is an append-only grant. It moves from pending to merged exactly
// once, when a payment draining it is marked paid, or to reset when an
// admin cancels it first.
type Bonus struct {
	ID       generic.BonusID
	WorkerID generic.WorkerID
	Amount   decimal.Decimal
	Reason   string
	Status   BonusStatus

	MergedIntoPayment generic.PaymentID
	MergedAt          *time.Time
	ResetBy           string
	ResetAt           *time.Time

	CreatedBy string
	CreatedAt time.Time
}
