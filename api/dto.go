/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Money as decimal strings on the wire

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Workers:    WorkerDTO, CreateWorkerRequest
  Entries:    EntryDTO, SubmitEntryRequest, VetEntryRequest
  Payments:   PaymentDTO, PaymentListResponse, DenyPaymentRequest,
              UpdatePaymentRequest, MarkWeekPaidRequest
  Bonuses:    BonusDTO, BonusesResponse, AddBonusRequest, PayBonusResponse
  Benchmarks: factory.BenchmarkJSON is used as-is
  Weeks:      WeekDTO
  Scenarios:  ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry go-playground/validator tags. decodeJSON runs them
  through factory.Validate, so shape errors surface as 400s before any
  domain call. Domain rules (amount > 0, hours 0-24) stay in the engine.

MONEY:
  decimal.Decimal marshals as a quoted string ("6500.5"), so clients never
  see float rounding.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/benchmark.go: BenchmarkJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
)

// =============================================================================
// WORKERS
// =============================================================================

// WorkerDTO represents a worker in API responses.
type WorkerDTO struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Email              string          `json:"email,omitempty"`
	WeekStartDay       int             `json:"week_start_day"`
	PendingBonus       decimal.Decimal `json:"pending_bonus"`
	PendingBonusReason string          `json:"pending_bonus_reason,omitempty"`
	CreatedAt          string          `json:"created_at,omitempty"`
}

// CreateWorkerRequest is the request to register a worker. WeekStartDay
// falls back to the server's configured default.
type CreateWorkerRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	WeekStartDay *int   `json:"week_start_day" validate:"omitempty,min=0,max=6"`
}

func toWorkerDTO(w payroll.Worker) WorkerDTO {
	return WorkerDTO{
		ID:                 string(w.ID),
		Name:               w.Name,
		Email:              w.Email,
		WeekStartDay:       w.WeekStartDay,
		PendingBonus:       w.PendingBonus,
		PendingBonusReason: w.PendingBonusReason,
		CreatedAt:          formatTimestamp(w.CreatedAt),
	}
}

// =============================================================================
// ENTRIES
// =============================================================================

// EntryDTO represents one worker-day in API responses.
type EntryDTO struct {
	ID            string           `json:"id"`
	WorkerID      string           `json:"user_id"`
	ProfileID     string           `json:"profile_id"`
	Date          string           `json:"date"`
	Time          decimal.Decimal  `json:"time"`
	Quality       decimal.Decimal  `json:"quality"`
	AdminTime     *decimal.Decimal `json:"admin_time,omitempty"`
	AdminQuality  *decimal.Decimal `json:"admin_quality,omitempty"`
	AdminApproved bool             `json:"admin_approved"`
	VettedBy      string           `json:"vetted_by,omitempty"`
	VettedAt      *string          `json:"vetted_at,omitempty"`
	CreatedAt     string           `json:"created_at,omitempty"`
}

// SubmitEntryRequest records a worker's time and quality for one day.
type SubmitEntryRequest struct {
	ID        string          `json:"id"`
	ProfileID string          `json:"profile_id" validate:"required"`
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	Time      decimal.Decimal `json:"time"`
	Quality   decimal.Decimal `json:"quality"`
}

// VetEntryRequest is an admin's verdict on an entry. Omitted admin values
// keep whatever was vetted before.
type VetEntryRequest struct {
	AdminTime    *decimal.Decimal `json:"admin_time"`
	AdminQuality *decimal.Decimal `json:"admin_quality"`
	Approved     *bool            `json:"approved" validate:"required"`
}

func toEntryDTO(e payroll.Entry) EntryDTO {
	return EntryDTO{
		ID:            string(e.ID),
		WorkerID:      string(e.WorkerID),
		ProfileID:     string(e.ProfileID),
		Date:          formatDate(e.Date),
		Time:          e.Time,
		Quality:       e.Quality,
		AdminTime:     e.AdminTime,
		AdminQuality:  e.AdminQuality,
		AdminApproved: e.AdminApproved,
		VettedBy:      e.VettedBy,
		VettedAt:      formatTimestampPtr(e.VettedAt),
		CreatedAt:     formatTimestamp(e.CreatedAt),
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents a weekly payment record in API responses.
type PaymentDTO struct {
	ID           string `json:"id"`
	WorkerID     string `json:"user_id"`
	WeekStart    string `json:"week_start"`
	WeekEnd      string `json:"week_end"`
	WeekNumber   int    `json:"week_number"`
	Year         int    `json:"year"`
	WeekStartDay int    `json:"week_start_day"`

	TotalHours    decimal.Decimal `json:"total_hours"`
	AvgQuality    decimal.Decimal `json:"avg_quality"`
	EntryCount    int             `json:"entry_count"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	Tier          string          `json:"tier,omitempty"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	BaseEarnings  decimal.Decimal `json:"base_earnings"`
	BonusEarnings decimal.Decimal `json:"bonus_earnings"`

	ExtraBonus       decimal.Decimal `json:"extra_bonus"`
	ExtraBonusReason string          `json:"extra_bonus_reason,omitempty"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`

	PaymentType string  `json:"payment_type"`
	Status      string  `json:"status"`
	Paid        bool    `json:"paid"`
	PaidDate    *string `json:"paid_date,omitempty"`
	PaidBy      string  `json:"paid_by,omitempty"`

	ApprovedBy   string  `json:"approved_by,omitempty"`
	ApprovedAt   *string `json:"approved_at,omitempty"`
	DeniedBy     string  `json:"denied_by,omitempty"`
	DeniedAt     *string `json:"denied_at,omitempty"`
	DenialReason string  `json:"denial_reason,omitempty"`
	Notes        string  `json:"notes,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PaymentListResponse is one page of payments.
type PaymentListResponse struct {
	Items []PaymentDTO `json:"items"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// DenyPaymentRequest carries the mandatory denial reason.
type DenyPaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// UpdatePaymentRequest patches admin-editable fields. Nil means unchanged.
type UpdatePaymentRequest struct {
	Status           *string          `json:"status" validate:"omitempty,oneof=pending approved denied paid"`
	ExtraBonus       *decimal.Decimal `json:"extra_bonus"`
	ExtraBonusReason *string          `json:"extra_bonus_reason"`
	Notes            *string          `json:"notes"`
}

// MarkWeekPaidRequest names any date inside the week to pay. Empty means today.
type MarkWeekPaidRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func toPaymentDTO(p payroll.WeeklyPayment) PaymentDTO {
	return PaymentDTO{
		ID:               string(p.ID),
		WorkerID:         string(p.WorkerID),
		WeekStart:        formatDate(p.WeekStart),
		WeekEnd:          formatDate(p.WeekEnd),
		WeekNumber:       p.WeekNumber,
		Year:             p.Year,
		WeekStartDay:     p.WeekStartDay,
		TotalHours:       p.TotalHours,
		AvgQuality:       p.AvgQuality,
		EntryCount:       p.EntryCount,
		HourlyRate:       p.HourlyRate,
		Tier:             p.Tier,
		Multiplier:       p.Multiplier,
		BaseEarnings:     p.BaseEarnings,
		BonusEarnings:    p.BonusEarnings,
		ExtraBonus:       p.ExtraBonus,
		ExtraBonusReason: p.ExtraBonusReason,
		TotalEarnings:    p.TotalEarnings,
		PaymentType:      string(p.PaymentType),
		Status:           string(p.Status),
		Paid:             p.Paid,
		PaidDate:         formatTimestampPtr(p.PaidDate),
		PaidBy:           p.PaidBy,
		ApprovedBy:       p.ApprovedBy,
		ApprovedAt:       formatTimestampPtr(p.ApprovedAt),
		DeniedBy:         p.DeniedBy,
		DeniedAt:         formatTimestampPtr(p.DeniedAt),
		DenialReason:     p.DenialReason,
		Notes:            p.Notes,
		CreatedAt:        formatTimestamp(p.CreatedAt),
		UpdatedAt:        formatTimestamp(p.UpdatedAt),
	}
}

func toPaymentDTOs(ps []payroll.WeeklyPayment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

// =============================================================================
// BONUSES
// =============================================================================

// BonusDTO represents one ledger entry.
type BonusDTO struct {
	ID                string          `json:"id"`
	WorkerID          string          `json:"user_id"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason,omitempty"`
	Status            string          `json:"status"`
	MergedIntoPayment string          `json:"merged_into_payment,omitempty"`
	MergedAt          *string         `json:"merged_at,omitempty"`
	ResetBy           string          `json:"reset_by,omitempty"`
	ResetAt           *string         `json:"reset_at,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         string          `json:"created_at"`
}

// BonusesResponse is a worker's ledger plus the pending summary.
type BonusesResponse struct {
	PendingTotal  decimal.Decimal `json:"pending_total"`
	PendingReason string          `json:"pending_reason,omitempty"`
	Bonuses       []BonusDTO      `json:"bonuses"`
}

// AddBonusRequest grants a pending bonus.
type AddBonusRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// PayBonusResponse reports where pending bonuses went. When Pending is true
// no unpaid week existed and the bonuses stay queued for the next payout.
type PayBonusResponse struct {
	Pending       bool            `json:"pending"`
	Payment       *PaymentDTO     `json:"payment,omitempty"`
	QueuedBonuses []BonusDTO      `json:"queued_bonuses,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

func toBonusDTO(b payroll.Bonus) BonusDTO {
	return BonusDTO{
		ID:                string(b.ID),
		WorkerID:          string(b.WorkerID),
		Amount:            b.Amount,
		Reason:            b.Reason,
		Status:            string(b.Status),
		MergedIntoPayment: string(b.MergedIntoPayment),
		MergedAt:          formatTimestampPtr(b.MergedAt),
		ResetBy:           b.ResetBy,
		ResetAt:           formatTimestampPtr(b.ResetAt),
		CreatedBy:         b.CreatedBy,
		CreatedAt:         formatTimestamp(b.CreatedAt),
	}
}

func toBonusDTOs(bs []payroll.Bonus) []BonusDTO {
	dtos := make([]BonusDTO, len(bs))
	for i, b := range bs {
		dtos[i] = toBonusDTO(b)
	}
	return dtos
}

// =============================================================================
// WEEKS
// =============================================================================

// WeekDTO is a resolved payment week.
type WeekDTO struct {
	Start      string `json:"week_start"`
	End        string `json:"week_end"`
	WeekNumber int    `json:"week_number"`
	Year       int    `json:"year"`
	StartDay   int    `json:"week_start_day"`
}

func toWeekDTO(w generic.Week) WeekDTO {
	return WeekDTO{
		Start:      formatDate(w.Start),
		End:        formatDate(w.End),
		WeekNumber: w.Number,
		Year:       w.Year,
		StartDay:   w.StartDay,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// FORMATTING
// =============================================================================

func formatDate(t time.Time) string {
	return t.UTC().Format(generic.DateLayout)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}
