/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the weekly payment engine, bonus ledger and benchmark service via
  REST API. Handles HTTP request/response, JSON serialization, and delegates
  to domain logic.

ENDPOINTS:
  Workers:
    GET    /api/workers                      List all workers
    POST   /api/workers                      Register worker
    GET    /api/workers/{id}                 Get worker (with bonus cache)
    GET    /api/workers/{id}/entries         Entry history
    POST   /api/workers/{id}/entries         Submit a day's entry
    POST   /api/workers/{id}/weeks/paid      Mark the week containing a date paid

  Entries:
    POST   /api/entries/{id}/vet             Vet entry, then refresh its week

  Payments:
    GET    /api/payments                     List (user_id, status, paid, year,
                                             week_number, payment_type, page, limit)
    GET    /api/payments/{id}                Get payment
    PATCH  /api/payments/{id}                Admin edit (status, extra bonus, notes)
    POST   /api/payments/{id}/approve        Approve
    POST   /api/payments/{id}/deny           Deny with reason

  Bonuses:
    GET    /api/workers/{id}/bonuses         Ledger + pending summary
    POST   /api/workers/{id}/bonuses         Grant pending bonus
    POST   /api/workers/{id}/bonuses/pay     Merge pending bonuses into latest unpaid week
    POST   /api/workers/{id}/bonuses/reset   Cancel pending bonuses

  Benchmarks:
    GET    /api/benchmarks                   List
    POST   /api/benchmarks                   Create from JSON
    GET    /api/benchmarks/current           Benchmark in force now
    GET    /api/benchmarks/{id}              Get
    PUT    /api/benchmarks/{id}              Replace definition
    DELETE /api/benchmarks/{id}              Delete

  Weeks:
    GET    /api/weeks?date=&start_day=       Resolve a payment week

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: SQLite database (entries listing, reset)
  - Engine: payroll.Engine (payments, vetting, payouts)
  - Benchmarks: benchmark.Service (CRUD, current resolution)
  - BenchmarkFactory: JSON to Benchmark conversion

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (decodeJSON + factory.Validate)
  3. Call domain logic
  4. Serialize response
  5. Handle errors (writeDomainError)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Invalid state (approving a paid week, paying nothing)
  - 500: Internal errors

ACTOR:
  There is no authentication. The acting admin is taken from the X-Actor
  header and defaults to "admin"; it only feeds audit fields.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/factory"
	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
	"github.com/Em4Michael/AirHub-Server/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler.
type Options struct {
	DefaultHourlyRate decimal.Decimal
	WeekStartDay      int // default for workers registered without one
	Now               func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store            *sqlite.Store
	Engine           *payroll.Engine
	Benchmarks       *benchmark.Service
	BenchmarkFactory *factory.BenchmarkFactory

	weekStartDay int
	now          func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the engine and benchmark service onto store.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	benchmarks := benchmark.NewService(store).WithClock(opts.Now)
	return &Handler{
		Store:      store,
		Benchmarks: benchmarks,
		Engine: payroll.NewEngine(store, benchmarks, payroll.Config{
			DefaultHourlyRate: opts.DefaultHourlyRate,
			Now:               opts.Now,
		}),
		BenchmarkFactory: factory.NewBenchmarkFactory(),
		weekStartDay:     generic.NormalizeWeekStartDay(opts.WeekStartDay),
		now:              opts.Now,
	}
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns all workers.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}

	dtos := make([]WorkerDTO, len(workers))
	for i, wk := range workers {
		dtos[i] = toWorkerDTO(wk)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWorker returns a single worker.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := h.Engine.GetWorker(r.Context(), workerIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get worker", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*worker))
}

// CreateWorker registers a worker.
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	startDay := h.weekStartDay
	if req.WeekStartDay != nil {
		startDay = *req.WeekStartDay
	}

	worker, err := h.Engine.RegisterWorker(r.Context(), payroll.Worker{
		ID:           generic.WorkerID(req.ID),
		Name:         req.Name,
		Email:        req.Email,
		WeekStartDay: startDay,
	})
	if err != nil {
		writeDomainError(w, "Failed to create worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkerDTO(*worker))
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// ListEntries returns a worker's entries, newest first.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	workerID := workerIDParam(r)
	if _, err := h.Engine.GetWorker(r.Context(), workerID); err != nil {
		writeDomainError(w, "Failed to list entries", err)
		return
	}

	entries, err := h.Store.ListEntries(r.Context(), workerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitEntry records a worker's day. The entry is unapproved until vetted.
func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	entry, err := h.Engine.SubmitEntry(r.Context(), payroll.Entry{
		ID:        generic.EntryID(req.ID),
		WorkerID:  workerIDParam(r),
		ProfileID: generic.ProfileID(req.ProfileID),
		Date:      date,
		Time:      req.Time,
		Quality:   req.Quality,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// VetEntry stores the admin verdict and refreshes the entry's week. The
// refresh is best effort: the response reflects the saved entry even if the
// payment could not be recomputed.
func (h *Handler) VetEntry(w http.ResponseWriter, r *http.Request) {
	var req VetEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.Engine.VetEntry(r.Context(), generic.EntryID(chi.URLParam(r, "id")), payroll.Vetting{
		AdminTime:    req.AdminTime,
		AdminQuality: req.AdminQuality,
		Approved:     *req.Approved,
	}, actor(r))
	if err != nil {
		writeDomainError(w, "Failed to vet entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns one filtered page of payments, newest week first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter, page, limit, err := parsePaymentQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid query", err)
		return
	}

	result, err := h.Engine.ListPayments(r.Context(), filter, page, limit)
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentListResponse{
		Items: toPaymentDTOs(result.Items),
		Total: result.Total,
		Page:  result.Page,
		Limit: result.Limit,
	})
}

// GetPayment returns a single payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.GetPayment(r.Context(), paymentIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// ApprovePayment moves a payment to approved.
func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.ApprovePayment(r.Context(), paymentIDParam(r), actor(r))
	if err != nil {
		writeDomainError(w, "Failed to approve payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// DenyPayment moves a payment to denied with a reason.
func (h *Handler) DenyPayment(w http.ResponseWriter, r *http.Request) {
	var req DenyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Engine.DenyPayment(r.Context(), paymentIDParam(r), req.Reason, actor(r))
	if err != nil {
		writeDomainError(w, "Failed to deny payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// UpdatePayment applies an admin patch.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := payroll.PaymentPatch{
		ExtraBonus:       req.ExtraBonus,
		ExtraBonusReason: req.ExtraBonusReason,
		Notes:            req.Notes,
	}
	if req.Status != nil {
		status := payroll.PaymentStatus(*req.Status)
		patch.Status = &status
	}

	p, err := h.Engine.UpdatePayment(r.Context(), paymentIDParam(r), patch, actor(r))
	if err != nil {
		writeDomainError(w, "Failed to update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// MarkWeekPaid pays the week containing the given date (default today),
// merging every pending bonus of the worker into it.
func (h *Handler) MarkWeekPaid(w http.ResponseWriter, r *http.Request) {
	var req MarkWeekPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := factory.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	date := h.now()
	if req.Date != "" {
		d, err := generic.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		date = d
	}

	p, err := h.Engine.MarkWeekPaid(r.Context(), workerIDParam(r), date, actor(r))
	if err != nil {
		writeDomainError(w, "Failed to mark week paid", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// =============================================================================
// BONUS HANDLERS
// =============================================================================

// ListBonuses returns the worker's ledger, newest first, with the pending total.
func (h *Handler) ListBonuses(w http.ResponseWriter, r *http.Request) {
	workerID := workerIDParam(r)
	ledger := h.Engine.Bonuses()

	pending, err := ledger.Pending(r.Context(), workerID)
	if err != nil {
		writeDomainError(w, "Failed to load bonuses", err)
		return
	}
	all, err := ledger.List(r.Context(), workerID)
	if err != nil {
		writeDomainError(w, "Failed to load bonuses", err)
		return
	}

	writeJSON(w, http.StatusOK, BonusesResponse{
		PendingTotal:  pending.Total,
		PendingReason: pending.Reason,
		Bonuses:       toBonusDTOs(all),
	})
}

// AddBonus grants a pending bonus.
func (h *Handler) AddBonus(w http.ResponseWriter, r *http.Request) {
	var req AddBonusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	b, err := h.Engine.Bonuses().Add(r.Context(), workerIDParam(r), req.Amount, req.Reason, actor(r))
	if err != nil {
		writeDomainError(w, "Failed to add bonus", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBonusDTO(*b))
}

// PayBonus merges pending bonuses into the latest unpaid week and pays it.
// With no unpaid week the bonuses stay queued and Pending is true.
func (h *Handler) PayBonus(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.PayPendingBonus(r.Context(), workerIDParam(r), actor(r))
	if err != nil {
		writeDomainError(w, "Failed to pay bonus", err)
		return
	}

	resp := PayBonusResponse{
		Pending:       res.Pending,
		QueuedBonuses: toBonusDTOs(res.QueuedBonuses),
		Amount:        res.Amount,
	}
	if res.Payment != nil {
		dto := toPaymentDTO(*res.Payment)
		resp.Payment = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetBonuses cancels every pending bonus of the worker.
func (h *Handler) ResetBonuses(w http.ResponseWriter, r *http.Request) {
	reset, err := h.Engine.Bonuses().Reset(r.Context(), workerIDParam(r), actor(r))
	if err != nil {
		writeDomainError(w, "Failed to reset bonuses", err)
		return
	}
	writeJSON(w, http.StatusOK, toBonusDTOs(reset))
}

// =============================================================================
// BENCHMARK HANDLERS
// =============================================================================

// ListBenchmarks returns all benchmarks, latest start first.
func (h *Handler) ListBenchmarks(w http.ResponseWriter, r *http.Request) {
	bs, err := h.Benchmarks.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list benchmarks", err)
		return
	}
	dtos := make([]factory.BenchmarkJSON, len(bs))
	for i := range bs {
		dtos[i] = h.BenchmarkFactory.ToJSON(&bs[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CurrentBenchmark returns the benchmark in force now, or null.
func (h *Handler) CurrentBenchmark(w http.ResponseWriter, r *http.Request) {
	b, err := h.Benchmarks.ResolveCurrent(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to resolve benchmark", err)
		return
	}
	if b == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.BenchmarkFactory.ToJSON(b))
}

// GetBenchmark returns a single benchmark.
func (h *Handler) GetBenchmark(w http.ResponseWriter, r *http.Request) {
	b, err := h.Benchmarks.Get(r.Context(), generic.BenchmarkID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get benchmark", err)
		return
	}
	writeJSON(w, http.StatusOK, h.BenchmarkFactory.ToJSON(b))
}

// CreateBenchmark creates a benchmark from its JSON definition.
func (h *Handler) CreateBenchmark(w http.ResponseWriter, r *http.Request) {
	var req factory.BenchmarkJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	b, err := h.BenchmarkFactory.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid benchmark", err)
		return
	}

	created, err := h.Benchmarks.Create(r.Context(), *b, actor(r))
	if err != nil {
		writeDomainError(w, "Failed to create benchmark", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.BenchmarkFactory.ToJSON(created))
}

// UpdateBenchmark replaces a benchmark's definition.
func (h *Handler) UpdateBenchmark(w http.ResponseWriter, r *http.Request) {
	var req factory.BenchmarkJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	b, err := h.BenchmarkFactory.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid benchmark", err)
		return
	}

	updated, err := h.Benchmarks.Update(r.Context(), generic.BenchmarkID(chi.URLParam(r, "id")), *b)
	if err != nil {
		writeDomainError(w, "Failed to update benchmark", err)
		return
	}
	writeJSON(w, http.StatusOK, h.BenchmarkFactory.ToJSON(updated))
}

// DeleteBenchmark removes a benchmark. Payments already priced with it keep
// their snapshot of rate, tier and multiplier.
func (h *Handler) DeleteBenchmark(w http.ResponseWriter, r *http.Request) {
	if err := h.Benchmarks.Delete(r.Context(), generic.BenchmarkID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete benchmark", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// WEEK HANDLERS
// =============================================================================

// ResolveWeek previews the payment week a date falls into.
func (h *Handler) ResolveWeek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date := h.now()
	if s := q.Get("date"); s != "" {
		d, err := generic.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		date = d
	}

	startDay := h.weekStartDay
	if s := q.Get("start_day"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_day", err)
			return
		}
		if err := generic.ValidateWeekStartDay(d); err != nil {
			writeDomainError(w, "Invalid start_day", err)
			return
		}
		startDay = d
	}

	writeJSON(w, http.StatusOK, toWeekDTO(generic.ResolveWeek(date, startDay)))
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps generic error categories onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, generic.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, generic.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, generic.ErrInvalidState):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decodeJSON decodes the body into dst and runs its validate tags. On
// failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := factory.Validate(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

func parsePaymentQuery(r *http.Request) (payroll.PaymentFilter, int, int, error) {
	q := r.URL.Query()
	var f payroll.PaymentFilter

	if s := q.Get("user_id"); s != "" {
		id := generic.WorkerID(s)
		f.WorkerID = &id
	}
	if s := q.Get("status"); s != "" {
		status := payroll.PaymentStatus(s)
		if !status.Valid() {
			return f, 0, 0, generic.Invalid("status", "must be one of pending approved denied paid")
		}
		f.Status = &status
	}
	if s := q.Get("payment_type"); s != "" {
		pt := payroll.PaymentType(s)
		if pt != payroll.PaymentRegular && pt != payroll.PaymentBonus {
			return f, 0, 0, generic.Invalid("payment_type", "must be regular or bonus")
		}
		f.PaymentType = &pt
	}
	if s := q.Get("paid"); s != "" {
		paid, err := strconv.ParseBool(s)
		if err != nil {
			return f, 0, 0, generic.Invalid("paid", "must be true or false")
		}
		f.Paid = &paid
	}

	ints := map[string]**int{"year": &f.Year, "week_number": &f.WeekNumber}
	for name, dst := range ints {
		if s := q.Get(name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return f, 0, 0, generic.Invalid(name, "must be an integer")
			}
			*dst = &n
		}
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return f, page, limit, nil
}

func workerIDParam(r *http.Request) generic.WorkerID {
	return generic.WorkerID(chi.URLParam(r, "id"))
}

func paymentIDParam(r *http.Request) generic.PaymentID {
	return generic.PaymentID(chi.URLParam(r, "id"))
}

// actor names the admin performing the request, for audit fields.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "admin"
}
