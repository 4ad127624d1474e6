/*
bonus.go - Append-only bonus ledger

PURPOSE:
  Ad-hoc bonuses are recorded as their own documents instead of a scalar on
  the worker or a field on the weekly payment. That keeps bonus grants off
  the payment record's write path (no contention with vetting upserts) and
  removes the duplicate-key hazard of creating extra payment rows per grant.

LIFECYCLE:
  pending --pay week / pay bonus--> merged   (linked to exactly one payment)
  pending --admin reset----------> reset

  The sum of a worker's pending bonuses is exactly what is still owed and
  not folded into any payment.

WORKER CACHE:
  Worker.PendingBonus / PendingBonusReason mirror the pending sum for cheap
  display. They are rebuilt from the ledger after every ledger mutation and
  are never used to decide what gets paid.

MERGING:
  Merging is not done here. The payment engine drains pending bonuses inside
  the same store transaction that marks the payment paid (see engine.go).
*/
package payroll

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// PendingSummary is a worker's outstanding bonus total.
type PendingSummary struct {
	Bonuses []Bonus
	Total   decimal.Decimal
	Reason  string // reasons joined with "; "
}

func (s PendingSummary) IDs() []generic.BonusID {
	ids := make([]generic.BonusID, len(s.Bonuses))
	for i, b := range s.Bonuses {
		ids[i] = b.ID
	}
	return ids
}

func (s PendingSummary) Empty() bool { return len(s.Bonuses) == 0 }

func summarize(bonuses []Bonus) PendingSummary {
	s := PendingSummary{Bonuses: bonuses, Total: decimal.Zero}
	var reasons []string
	for _, b := range bonuses {
		s.Total = s.Total.Add(b.Amount)
		reasons = appendReason(reasons, b.Reason)
	}
	s.Reason = strings.Join(reasons, "; ")
	return s
}

func appendReason(reasons []string, r string) []string {
	if r = strings.TrimSpace(r); r != "" {
		reasons = append(reasons, r)
	}
	return reasons
}

func joinReasons(existing, added string) string {
	return strings.Join(appendReason(appendReason(nil, existing), added), "; ")
}

// =============================================================================
// BONUS LEDGER
// =============================================================================

type BonusLedger struct {
	store TxStore
	now   func() time.Time
}

func NewBonusLedger(store TxStore, now func() time.Time) *BonusLedger {
	if now == nil {
		now = time.Now
	}
	return &BonusLedger{store: store, now: now}
}

// Add grants a pending bonus.
func (l *BonusLedger) Add(ctx context.Context, workerID generic.WorkerID, amount decimal.Decimal, reason, actor string) (*Bonus, error) {
	if !amount.IsPositive() {
		return nil, generic.Invalid("amount", "must be greater than zero")
	}

	b := Bonus{
		ID:        generic.BonusID(generic.NewID()),
		WorkerID:  workerID,
		Amount:    generic.RoundMoney(amount),
		Reason:    strings.TrimSpace(reason),
		Status:    BonusPending,
		CreatedBy: actor,
		CreatedAt: l.now().UTC(),
	}

	err := l.store.WithTx(ctx, func(st Store) error {
		if _, err := requireWorker(ctx, st, workerID); err != nil {
			return err
		}
		if err := st.AppendBonus(ctx, b); err != nil {
			return err
		}
		return refreshBonusCache(ctx, st, workerID)
	})
	if err != nil {
		return nil, err
	}
	bonusEvents.WithLabelValues("added").Inc()
	return &b, nil
}

// Reset cancels every pending bonus of the worker and returns them.
func (l *BonusLedger) Reset(ctx context.Context, workerID generic.WorkerID, actor string) ([]Bonus, error) {
	at := l.now().UTC()
	var reset []Bonus

	err := l.store.WithTx(ctx, func(st Store) error {
		if _, err := requireWorker(ctx, st, workerID); err != nil {
			return err
		}
		pending, err := st.PendingBonuses(ctx, workerID)
		if err != nil {
			return err
		}
		if _, err := st.ResetPendingBonuses(ctx, workerID, actor, at); err != nil {
			return err
		}
		for _, b := range pending {
			b.Status = BonusReset
			b.ResetBy = actor
			b.ResetAt = &at
			reset = append(reset, b)
		}
		return refreshBonusCache(ctx, st, workerID)
	})
	if err != nil {
		return nil, err
	}
	bonusEvents.WithLabelValues("reset").Add(float64(len(reset)))
	return reset, nil
}

// Pending returns the worker's outstanding bonuses.
func (l *BonusLedger) Pending(ctx context.Context, workerID generic.WorkerID) (PendingSummary, error) {
	if _, err := requireWorker(ctx, l.store, workerID); err != nil {
		return PendingSummary{}, err
	}
	pending, err := l.store.PendingBonuses(ctx, workerID)
	if err != nil {
		return PendingSummary{}, err
	}
	return summarize(pending), nil
}

// List returns the worker's full bonus history, newest first.
func (l *BonusLedger) List(ctx context.Context, workerID generic.WorkerID) ([]Bonus, error) {
	if _, err := requireWorker(ctx, l.store, workerID); err != nil {
		return nil, err
	}
	return l.store.ListBonuses(ctx, workerID)
}

// =============================================================================
// HELPERS SHARED WITH THE ENGINE
// =============================================================================

// refreshBonusCache rebuilds the worker's denormalized pending total.
func refreshBonusCache(ctx context.Context, st Store, workerID generic.WorkerID) error {
	pending, err := st.PendingBonuses(ctx, workerID)
	if err != nil {
		return err
	}
	s := summarize(pending)
	return st.SetWorkerBonusCache(ctx, workerID, s.Total, s.Reason)
}

func requireWorker(ctx context.Context, st Store, id generic.WorkerID) (*Worker, error) {
	w, err := st.GetWorker(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, generic.NotFound("worker", string(id))
	}
	return w, nil
}
