/*
engine.go - Weekly payment engine

PURPOSE:
  Owns every write to weekly payment records. Vetting an entry, paying a
  week and paying out pending bonuses all end up here.

FLOW (entry vetted):
  1. Resolve the current benchmark (fresh read, never cached)
  2. Resolve the worker's week from the entry date and WeekStartDay
  3. Aggregate approved entries inside the week
  4. Price hours with the benchmark (flat at the default rate if none)
  5. Upsert by (worker, week_start, regular)

  Steps 2-5 run in one store transaction, so two vettings in the same week
  cannot write a stale aggregate over a fresher one.

  The upsert never drains bonuses. A pending bonus stays in the ledger until a
  payout merges it, so refreshing a week any number of times cannot pay a
  bonus twice.

FLOW (week paid / bonus paid):
  Everything runs inside one store transaction:
  read pending bonuses -> settle payment -> mark bonuses merged -> rebuild
  worker cache. Either all of it commits or none of it does.

SIDE EFFECTS:
  OnEntryVetted is best effort. A failed refresh is logged and counted but
  never fails the vetting request that triggered it. The next vetting (or an
  explicit RefreshWeek) heals the record.
*/
package payroll

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/generic"
)

// BenchmarkResolver yields the benchmark in force right now, or nil.
type BenchmarkResolver interface {
	ResolveCurrent(ctx context.Context) (*benchmark.Benchmark, error)
}

// Config carries the engine's tunables.
type Config struct {
	DefaultHourlyRate decimal.Decimal
	Now               func() time.Time
}

// DefaultHourlyRate applies when no benchmark sets PayPerHour.
var DefaultHourlyRate = decimal.NewFromInt(500)

type Engine struct {
	store       TxStore
	benchmarks  BenchmarkResolver
	bonuses     *BonusLedger
	defaultRate decimal.Decimal
	now         func() time.Time
}

func NewEngine(store TxStore, benchmarks BenchmarkResolver, cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if !cfg.DefaultHourlyRate.IsPositive() {
		cfg.DefaultHourlyRate = DefaultHourlyRate
	}
	return &Engine{
		store:       store,
		benchmarks:  benchmarks,
		bonuses:     NewBonusLedger(store, cfg.Now),
		defaultRate: cfg.DefaultHourlyRate,
		now:         cfg.Now,
	}
}

// Bonuses exposes the ledger sharing this engine's store and clock.
func (e *Engine) Bonuses() *BonusLedger { return e.bonuses }

func (e *Engine) DefaultRate() decimal.Decimal { return e.defaultRate }

// =============================================================================
// REGULAR PAYMENT UPSERT
// =============================================================================

// RegularInput is everything needed to price one regular week.
type RegularInput struct {
	WorkerID  generic.WorkerID
	Week      generic.Week
	Stats     Stats
	Benchmark *benchmark.Benchmark
}

func (e *Engine) buildRegular(in RegularInput) WeeklyPayment {
	earnings := in.Benchmark.CalculateEarnings(in.Stats.TotalHours, in.Stats.PerformanceScore(), e.defaultRate)
	now := e.now().UTC()

	return WeeklyPayment{
		ID:            generic.PaymentID(generic.NewID()),
		WorkerID:      in.WorkerID,
		WeekStart:     in.Week.Start,
		WeekEnd:       in.Week.End,
		WeekNumber:    in.Week.Number,
		Year:          in.Week.Year,
		WeekStartDay:  in.Week.StartDay,
		TotalHours:    in.Stats.TotalHours,
		AvgQuality:    generic.RoundMoney(in.Stats.AvgQuality),
		EntryCount:    in.Stats.EntryCount,
		HourlyRate:    earnings.HourlyRate,
		Tier:          string(earnings.Tier),
		Multiplier:    earnings.Multiplier,
		BaseEarnings:  earnings.BaseEarnings,
		BonusEarnings: earnings.BonusEarnings,
		ExtraBonus:    decimal.Zero,
		PaymentType:   PaymentRegular,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// UpsertRegularPayment creates or refreshes the regular record for the week.
// A paid record is returned unchanged.
func (e *Engine) UpsertRegularPayment(ctx context.Context, in RegularInput) (*WeeklyPayment, error) {
	return e.upsertRegular(ctx, e.store, in)
}

func (e *Engine) upsertRegular(ctx context.Context, st Store, in RegularInput) (*WeeklyPayment, error) {
	p, err := st.UpsertRegularPayment(ctx, e.buildRegular(in))
	if err != nil {
		return nil, err
	}
	if p.Frozen() {
		paymentUpserts.WithLabelValues("frozen").Inc()
	} else {
		paymentUpserts.WithLabelValues("applied").Inc()
	}
	return &p, nil
}

// RefreshWeek recomputes the worker's regular record for the week containing
// date from the approved entries currently stored. It always writes, even
// when the week has no approved entries left.
func (e *Engine) RefreshWeek(ctx context.Context, workerID generic.WorkerID, date time.Time) (*WeeklyPayment, error) {
	bm, err := e.benchmarks.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}

	var out *WeeklyPayment
	err = e.store.WithTx(ctx, func(st Store) error {
		worker, err := requireWorker(ctx, st, workerID)
		if err != nil {
			return err
		}
		week := generic.ResolveWeek(date, worker.WeekStartDay)
		stats, err := NewAggregator(st).ApprovedStats(ctx, workerID, week.Start, week.End)
		if err != nil {
			return err
		}
		out, err = e.upsertRegular(ctx, st, RegularInput{
			WorkerID:  workerID,
			Week:      week,
			Stats:     stats,
			Benchmark: bm,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

// SubmitEntry records a worker's day. Entries start unapproved, so no
// payment changes until an admin vets them.
func (e *Engine) SubmitEntry(ctx context.Context, entry Entry) (*Entry, error) {
	if err := validateHours("time", entry.Time); err != nil {
		return nil, err
	}
	if err := validateQuality("quality", entry.Quality); err != nil {
		return nil, err
	}
	if entry.Date.IsZero() {
		return nil, generic.Invalid("date", "required")
	}
	if _, err := requireWorker(ctx, e.store, entry.WorkerID); err != nil {
		return nil, err
	}

	if entry.ID == "" {
		entry.ID = generic.EntryID(generic.NewID())
	}
	entry.Date = generic.Midnight(entry.Date)
	entry.AdminApproved = false
	entry.AdminTime = nil
	entry.AdminQuality = nil
	entry.CreatedAt = e.now().UTC()

	if err := e.store.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Vetting is an admin's verdict on one entry.
type Vetting struct {
	AdminTime    *decimal.Decimal
	AdminQuality *decimal.Decimal
	Approved     bool
}

// VetEntry stores the admin verdict, then refreshes the week's payment.
// The refresh is best effort; VetEntry succeeds once the entry is saved.
func (e *Engine) VetEntry(ctx context.Context, id generic.EntryID, v Vetting, actor string) (*Entry, error) {
	if v.AdminTime != nil {
		if err := validateHours("admin_time", *v.AdminTime); err != nil {
			return nil, err
		}
	}
	if v.AdminQuality != nil {
		if err := validateQuality("admin_quality", *v.AdminQuality); err != nil {
			return nil, err
		}
	}

	entry, err := e.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, generic.NotFound("entry", string(id))
	}

	now := e.now().UTC()
	if v.AdminTime != nil {
		entry.AdminTime = v.AdminTime
	}
	if v.AdminQuality != nil {
		entry.AdminQuality = v.AdminQuality
	}
	entry.AdminApproved = v.Approved
	entry.VettedBy = actor
	entry.VettedAt = &now

	if err := e.store.SaveEntry(ctx, *entry); err != nil {
		return nil, err
	}

	// Un-approving also refreshes so the entry drops out of the week.
	e.OnEntryVetted(ctx, *entry, actor)
	return entry, nil
}

// OnEntryVetted refreshes the regular payment for the entry's week. Errors
// are logged and counted, never returned.
func (e *Engine) OnEntryVetted(ctx context.Context, entry Entry, actor string) {
	if _, err := e.RefreshWeek(ctx, entry.WorkerID, entry.Date); err != nil {
		sideEffectFailures.Inc()
		log.Printf("[Payroll] refresh after vetting entry %s (worker %s, %s, by %s) failed: %v",
			entry.ID, entry.WorkerID, entry.Date.Format(generic.DateLayout), actor, err)
	}
}

var (
	maxDailyHours = decimal.NewFromInt(24)
	maxQuality    = decimal.NewFromInt(100)
)

func validateHours(field string, d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(maxDailyHours) {
		return generic.Invalid(field, "must be between 0 and 24")
	}
	return nil
}

func validateQuality(field string, d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(maxQuality) {
		return generic.Invalid(field, "must be between 0 and 100")
	}
	return nil
}

// =============================================================================
// PAYOUTS
// =============================================================================

// MarkWeekPaid pays the worker's regular record for the week containing
// refDate. A missing record is synthesized from approved entries first.
// Every pending bonus is folded into ExtraBonus in the same transaction.
func (e *Engine) MarkWeekPaid(ctx context.Context, workerID generic.WorkerID, refDate time.Time, actor string) (*WeeklyPayment, error) {
	bm, err := e.benchmarks.ResolveCurrent(ctx)
	if err != nil {
		return nil, err
	}

	var paid WeeklyPayment
	var merged int
	var newlyPaid bool
	err = e.store.WithTx(ctx, func(st Store) error {
		worker, err := requireWorker(ctx, st, workerID)
		if err != nil {
			return err
		}
		week := generic.ResolveWeek(refDate, worker.WeekStartDay)

		pending, err := st.PendingBonuses(ctx, workerID)
		if err != nil {
			return err
		}

		existing, err := st.GetRegularPayment(ctx, workerID, week.Start)
		if err != nil {
			return err
		}
		if existing == nil {
			stats, err := NewAggregator(st).ApprovedStats(ctx, workerID, week.Start, week.End)
			if err != nil {
				return err
			}
			existing, err = e.upsertRegular(ctx, st, RegularInput{
				WorkerID:  workerID,
				Week:      week,
				Stats:     stats,
				Benchmark: bm,
			})
			if err != nil {
				return err
			}
		}

		newlyPaid = !existing.Paid
		paid, merged, err = e.settle(ctx, st, *existing, summarize(pending), actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !newlyPaid && merged == 0 {
		log.Printf("[Payroll] week %d-W%02d for worker %s already paid, nothing new to merge",
			paid.Year, paid.WeekNumber, workerID)
		return &paid, nil
	}

	paymentsPaid.WithLabelValues("week").Inc()
	paidEarnings.Observe(paid.TotalEarnings.InexactFloat64())
	bonusEvents.WithLabelValues("merged").Add(float64(merged))
	log.Printf("[Payroll] week %d-W%02d paid for worker %s by %s: total=%s",
		paid.Year, paid.WeekNumber, workerID, actor, paid.TotalEarnings.StringFixed(generic.MoneyPlaces))
	return &paid, nil
}

// PayBonusResult reports what PayPendingBonus did. When Pending is true no
// unpaid regular record existed: the bonuses stay queued in the ledger and
// will merge into the next payout.
type PayBonusResult struct {
	Pending       bool
	Payment       *WeeklyPayment
	QueuedBonuses []Bonus
	Amount        decimal.Decimal
}

// PayPendingBonus settles the worker's pending bonuses against their latest
// unpaid regular record, marking it paid.
func (e *Engine) PayPendingBonus(ctx context.Context, workerID generic.WorkerID, actor string) (*PayBonusResult, error) {
	var result PayBonusResult
	var merged int

	err := e.store.WithTx(ctx, func(st Store) error {
		if _, err := requireWorker(ctx, st, workerID); err != nil {
			return err
		}
		pending, err := st.PendingBonuses(ctx, workerID)
		if err != nil {
			return err
		}
		summary := summarize(pending)
		if summary.Empty() {
			return generic.InvalidState("pay bonus", "", "worker has no pending bonus")
		}
		result.Amount = summary.Total

		latest, err := st.LatestUnpaidRegularPayment(ctx, workerID)
		if err != nil {
			return err
		}
		if latest == nil {
			result.Pending = true
			result.QueuedBonuses = summary.Bonuses
			return nil
		}

		paid, n, err := e.settle(ctx, st, *latest, summary, actor)
		if err != nil {
			return err
		}
		result.Payment = &paid
		merged = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Pending {
		bonusEvents.WithLabelValues("queued").Add(float64(len(result.QueuedBonuses)))
		log.Printf("[Payroll] bonus %s for worker %s queued: no unpaid regular payment",
			result.Amount.StringFixed(generic.MoneyPlaces), workerID)
		return &result, nil
	}

	paymentsPaid.WithLabelValues("bonus").Inc()
	paidEarnings.Observe(result.Payment.TotalEarnings.InexactFloat64())
	bonusEvents.WithLabelValues("merged").Add(float64(merged))
	return &result, nil
}

// settle folds bonuses into p, marks it paid and drains the ledger. Must run
// inside a transaction. The first payout's date and actor are kept.
func (e *Engine) settle(ctx context.Context, st Store, p WeeklyPayment, bonuses PendingSummary, actor string) (WeeklyPayment, int, error) {
	now := e.now().UTC()

	if !bonuses.Empty() {
		p.ExtraBonus = generic.RoundMoney(p.ExtraBonus.Add(bonuses.Total))
		p.ExtraBonusReason = joinReasons(p.ExtraBonusReason, bonuses.Reason)
	}
	p.Recalculate()

	p.Status = StatusPaid
	p.Paid = true
	if p.PaidDate == nil {
		p.PaidDate = &now
	}
	if p.PaidBy == "" {
		p.PaidBy = actor
	}
	p.DeniedBy = ""
	p.DeniedAt = nil
	p.DenialReason = ""
	p.UpdatedAt = now

	if err := st.SavePayment(ctx, p); err != nil {
		return WeeklyPayment{}, 0, err
	}

	merged := 0
	if !bonuses.Empty() {
		n, err := st.MarkBonusesMerged(ctx, bonuses.IDs(), p.ID, now)
		if err != nil {
			return WeeklyPayment{}, 0, err
		}
		merged = n
	}
	if err := refreshBonusCache(ctx, st, p.WorkerID); err != nil {
		return WeeklyPayment{}, 0, err
	}
	return p, merged, nil
}
