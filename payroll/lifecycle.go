package payroll

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// =============================================================================
// REVIEW STATE MACHINE
// =============================================================================
//
//   pending  --approve--> approved --deny--> denied
//   pending  --deny-----> denied   --approve--> approved
//   any non-paid --pay--> paid      (terminal)
//
// Approval and denial are mutually exclusive: entering one clears the audit
// fields of the other.

// Approve moves p to approved.
func Approve(p *WeeklyPayment, actor string, at time.Time) error {
	switch p.Status {
	case StatusPaid:
		return generic.InvalidState("approve payment", string(p.Status), "payment already paid")
	case StatusApproved:
		return generic.InvalidState("approve payment", string(p.Status), "payment already approved")
	}
	p.Status = StatusApproved
	p.ApprovedBy = actor
	p.ApprovedAt = &at
	p.DeniedBy = ""
	p.DeniedAt = nil
	p.DenialReason = ""
	p.UpdatedAt = at
	return nil
}

// Deny moves p to denied.
func Deny(p *WeeklyPayment, reason, actor string, at time.Time) error {
	switch p.Status {
	case StatusPaid:
		return generic.InvalidState("deny payment", string(p.Status), "payment already paid")
	case StatusDenied:
		return generic.InvalidState("deny payment", string(p.Status), "payment already denied")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return generic.Invalid("reason", "a denial reason is required")
	}
	p.Status = StatusDenied
	p.DeniedBy = actor
	p.DeniedAt = &at
	p.DenialReason = reason
	p.ApprovedBy = ""
	p.ApprovedAt = nil
	p.UpdatedAt = at
	return nil
}

func (e *Engine) ApprovePayment(ctx context.Context, id generic.PaymentID, actor string) (*WeeklyPayment, error) {
	return e.transition(ctx, id, "approved", func(p *WeeklyPayment, at time.Time) error {
		return Approve(p, actor, at)
	})
}

func (e *Engine) DenyPayment(ctx context.Context, id generic.PaymentID, reason, actor string) (*WeeklyPayment, error) {
	return e.transition(ctx, id, "denied", func(p *WeeklyPayment, at time.Time) error {
		return Deny(p, reason, actor, at)
	})
}

// PaymentPatch is an admin edit. Nil fields are left alone.
type PaymentPatch struct {
	Status           *PaymentStatus
	ExtraBonus       *decimal.Decimal
	ExtraBonusReason *string
	Notes            *string
}

// UpdatePayment applies an admin override. Paid records accept notes and
// late bonus corrections but never leave the paid state.
func (e *Engine) UpdatePayment(ctx context.Context, id generic.PaymentID, patch PaymentPatch, actor string) (*WeeklyPayment, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, generic.Invalid("status", "must be one of pending, approved, denied, paid")
	}
	if patch.ExtraBonus != nil && patch.ExtraBonus.IsNegative() {
		return nil, generic.Invalid("extra_bonus", "must not be negative")
	}

	return e.transition(ctx, id, "updated", func(p *WeeklyPayment, at time.Time) error {
		if patch.Status != nil && *patch.Status != p.Status {
			if p.Frozen() {
				return generic.InvalidState("update payment", string(p.Status), "paid payments cannot change status")
			}
			applyStatusOverride(p, *patch.Status, actor, at)
		}
		if patch.ExtraBonus != nil {
			p.ExtraBonus = generic.RoundMoney(*patch.ExtraBonus)
		}
		if patch.ExtraBonusReason != nil {
			p.ExtraBonusReason = strings.TrimSpace(*patch.ExtraBonusReason)
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		p.Recalculate()
		p.UpdatedAt = at
		return nil
	})
}

// applyStatusOverride sets status directly, bypassing the review guards but
// keeping the audit fields consistent.
func applyStatusOverride(p *WeeklyPayment, status PaymentStatus, actor string, at time.Time) {
	p.Status = status
	switch status {
	case StatusApproved:
		p.ApprovedBy, p.ApprovedAt = actor, &at
		p.DeniedBy, p.DeniedAt, p.DenialReason = "", nil, ""
	case StatusDenied:
		p.DeniedBy, p.DeniedAt = actor, &at
		p.ApprovedBy, p.ApprovedAt = "", nil
	case StatusPaid:
		p.Paid = true
		p.PaidBy = actor
		if p.PaidDate == nil {
			p.PaidDate = &at
		}
		p.DeniedBy, p.DeniedAt, p.DenialReason = "", nil, ""
	case StatusPending:
		p.ApprovedBy, p.ApprovedAt = "", nil
		p.DeniedBy, p.DeniedAt, p.DenialReason = "", nil, ""
	}
}

func (e *Engine) transition(ctx context.Context, id generic.PaymentID, label string, apply func(*WeeklyPayment, time.Time) error) (*WeeklyPayment, error) {
	var out WeeklyPayment
	err := e.store.WithTx(ctx, func(st Store) error {
		p, err := st.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return generic.NotFound("payment", string(id))
		}
		if err := apply(p, e.now().UTC()); err != nil {
			return err
		}
		out = *p
		return st.SavePayment(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	paymentTransitions.WithLabelValues(label).Inc()
	return &out, nil
}

// =============================================================================
// READS
// =============================================================================

func (e *Engine) GetPayment(ctx context.Context, id generic.PaymentID) (*WeeklyPayment, error) {
	p, err := e.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, generic.NotFound("payment", string(id))
	}
	return p, nil
}

// ListPayments returns one page of payments, newest week first.
func (e *Engine) ListPayments(ctx context.Context, filter PaymentFilter, page, limit int) (Page, error) {
	page, limit = NormalizePage(page, limit)
	items, total, err := e.store.ListPayments(ctx, filter, page, limit)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []WeeklyPayment{}
	}
	return Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetWorker returns the worker or a not-found error.
func (e *Engine) GetWorker(ctx context.Context, id generic.WorkerID) (*Worker, error) {
	return requireWorker(ctx, e.store, id)
}

// RegisterWorker stores a new worker with a validated week start day.
func (e *Engine) RegisterWorker(ctx context.Context, w Worker) (*Worker, error) {
	if strings.TrimSpace(w.Name) == "" {
		return nil, generic.Invalid("name", "required")
	}
	if err := generic.ValidateWeekStartDay(w.WeekStartDay); err != nil {
		return nil, err
	}
	if w.ID == "" {
		w.ID = generic.WorkerID(generic.NewID())
	}
	w.PendingBonus = decimal.Zero
	w.PendingBonusReason = ""
	w.CreatedAt = e.now().UTC()
	if err := e.store.SaveWorker(ctx, w); err != nil {
		return nil, err
	}
	return &w, nil
}
