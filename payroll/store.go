/*
store.go - Persistence interface for the payroll engine

PURPOSE:
  Defines the boundary between engine logic and storage. Three logical
  collections are owned here (weekly_payments, bonuses, plus the worker
  bonus cache); workers and entries are external collaborators the engine
  only reads, with a small write surface for the vetting glue.

ATOMICITY:
  UpsertRegularPayment MUST be a single atomic operation at the storage
  layer (find-and-modify under one lock/transaction). Two concurrent
  vettings for the same worker and week must never both insert, and must
  never lose each other's update. Callers never read-then-write.

  TxStore.WithTx serializes callers. RefreshWeek runs "aggregate approved
  entries + upsert" inside it, so the aggregate a refresh writes is never
  older than one another refresh already wrote. Payouts run "read pending
  bonuses + pay payment + mark bonuses merged" inside it so a crash can't
  leave a bonus pending while a payment already includes it.

KEYS:
  Regular payments are looked up by (worker, week_start, payment_type).
  Stores index that key but do NOT enforce uniqueness with a constraint;
  uniqueness comes from always going through UpsertRegularPayment.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: In-memory for testing

NOT FOUND CONVENTION:
  Single-record getters return (nil, nil) when nothing matches. The engine
  turns that into generic.NotFound with the right kind.
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// =============================================================================
// STORE - Everything the engine reads and writes
// =============================================================================

type Store interface {
	// Workers
	GetWorker(ctx context.Context, id generic.WorkerID) (*Worker, error)
	ListWorkers(ctx context.Context) ([]Worker, error)
	SaveWorker(ctx context.Context, w Worker) error
	SetWorkerBonusCache(ctx context.Context, id generic.WorkerID, amount decimal.Decimal, reason string) error

	// Entries
	// SaveEntry returns ErrDuplicateEntry when another entry already holds
	// the same (profile, worker, date).
	SaveEntry(ctx context.Context, e Entry) error
	GetEntry(ctx context.Context, id generic.EntryID) (*Entry, error)
	// LoadEntries returns every entry of the worker dated within [from, to],
	// approved or not. Filtering is the aggregator's job.
	LoadEntries(ctx context.Context, workerID generic.WorkerID, from, to time.Time) ([]Entry, error)

	// Weekly payments
	UpsertRegularPayment(ctx context.Context, p WeeklyPayment) (WeeklyPayment, error)
	GetRegularPayment(ctx context.Context, workerID generic.WorkerID, weekStart time.Time) (*WeeklyPayment, error)
	LatestUnpaidRegularPayment(ctx context.Context, workerID generic.WorkerID) (*WeeklyPayment, error)
	GetPayment(ctx context.Context, id generic.PaymentID) (*WeeklyPayment, error)
	SavePayment(ctx context.Context, p WeeklyPayment) error
	ListPayments(ctx context.Context, filter PaymentFilter, page, limit int) ([]WeeklyPayment, int, error)

	// Bonus ledger
	AppendBonus(ctx context.Context, b Bonus) error
	PendingBonuses(ctx context.Context, workerID generic.WorkerID) ([]Bonus, error)
	ListBonuses(ctx context.Context, workerID generic.WorkerID) ([]Bonus, error)
	// MarkBonusesMerged flips only rows that are still pending, so a retried
	// drain for the same payment is a no-op. Returns the number flipped.
	MarkBonusesMerged(ctx context.Context, ids []generic.BonusID, paymentID generic.PaymentID, at time.Time) (int, error)
	// ResetPendingBonuses flips every pending bonus of the worker to reset.
	ResetPendingBonuses(ctx context.Context, workerID generic.WorkerID, actor string, at time.Time) (int, error)
}

// ErrDuplicateEntry is returned for a second entry on the same
// (profile, worker, date).
var ErrDuplicateEntry = fmt.Errorf("%w: entry already exists for this profile and date", generic.ErrInvalidState)

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// QUERIES
// =============================================================================

// PaymentFilter narrows ListPayments. Nil fields match everything.
type PaymentFilter struct {
	WorkerID    *generic.WorkerID
	Status      *PaymentStatus
	Paid        *bool
	Year        *int
	WeekNumber  *int
	PaymentType *PaymentType
}

// Matches applies the filter in memory. SQL stores translate it to a WHERE clause.
func (f PaymentFilter) Matches(p WeeklyPayment) bool {
	switch {
	case f.WorkerID != nil && p.WorkerID != *f.WorkerID:
		return false
	case f.Status != nil && p.Status != *f.Status:
		return false
	case f.Paid != nil && p.Paid != *f.Paid:
		return false
	case f.Year != nil && p.Year != *f.Year:
		return false
	case f.WeekNumber != nil && p.WeekNumber != *f.WeekNumber:
		return false
	case f.PaymentType != nil && p.PaymentType != *f.PaymentType:
		return false
	}
	return true
}

// Page is one page of a listing.
type Page struct {
	Items []WeeklyPayment
	Total int
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizePage clamps page (1-based) and limit.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
