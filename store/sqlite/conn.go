package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// conn runs every statement against q without locking. Store wraps it with
// the mutex; WithTx hands a conn bound to the *sql.Tx to the callback.
type conn struct {
	q querier
}

// =============================================================================
// WORKERS
// =============================================================================

const workerColumns = `id, name, email, week_start_day, pending_bonus, pending_bonus_reason, created_at`

func (c conn) GetWorker(ctx context.Context, id generic.WorkerID) (*payroll.Worker, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = ?`, id)
	w, err := scanWorker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return &w, nil
}

func (c conn) ListWorkers(ctx context.Context) ([]payroll.Worker, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+workerColumns+` FROM workers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var out []payroll.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (c conn) SaveWorker(ctx context.Context, w payroll.Worker) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO workers (`+workerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.Email, w.WeekStartDay, w.PendingBonus.String(), w.PendingBonusReason, formatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

func (c conn) SetWorkerBonusCache(ctx context.Context, id generic.WorkerID, amount decimal.Decimal, reason string) error {
	res, err := c.q.ExecContext(ctx,
		`UPDATE workers SET pending_bonus = ?, pending_bonus_reason = ? WHERE id = ?`,
		amount.String(), reason, id)
	if err != nil {
		return fmt.Errorf("failed to update bonus cache: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NotFound("worker", string(id))
	}
	return nil
}

func scanWorker(r scanner) (payroll.Worker, error) {
	var w payroll.Worker
	var email sql.NullString
	var pending, createdAt string
	if err := r.Scan(&w.ID, &w.Name, &email, &w.WeekStartDay, &pending, &w.PendingBonusReason, &createdAt); err != nil {
		return w, err
	}
	w.Email = email.String
	w.PendingBonus = generic.ParseDecimalOrZero(pending)
	w.CreatedAt = parseTime(createdAt)
	return w, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, worker_id, profile_id, date, time, quality, admin_time, admin_quality,
	admin_approved, vetted_by, vetted_at, created_at`

func (c conn) SaveEntry(ctx context.Context, e payroll.Entry) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			time = excluded.time,
			quality = excluded.quality,
			admin_time = excluded.admin_time,
			admin_quality = excluded.admin_quality,
			admin_approved = excluded.admin_approved,
			vetted_by = excluded.vetted_by,
			vetted_at = excluded.vetted_at
	`,
		e.ID, e.WorkerID, e.ProfileID, e.Date.UTC().Format(generic.DateLayout),
		e.Time.String(), e.Quality.String(),
		formatDecimalPtr(e.AdminTime), formatDecimalPtr(e.AdminQuality),
		e.AdminApproved, nullString(e.VettedBy), formatTimePtr(e.VettedAt),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

func (c conn) GetEntry(ctx context.Context, id generic.EntryID) (*payroll.Entry, error) {
	entries, err := c.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (c conn) LoadEntries(ctx context.Context, workerID generic.WorkerID, from, to time.Time) ([]payroll.Entry, error) {
	return c.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE worker_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC
	`, workerID, from.UTC().Format(generic.DateLayout), to.UTC().Format(generic.DateLayout))
}

func (c conn) queryEntries(ctx context.Context, query string, args ...any) ([]payroll.Entry, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var out []payroll.Entry
	for rows.Next() {
		var e payroll.Entry
		var date, hours, quality, createdAt string
		var adminTime, adminQuality, vettedBy, vettedAt sql.NullString
		if err := rows.Scan(&e.ID, &e.WorkerID, &e.ProfileID, &date, &hours, &quality,
			&adminTime, &adminQuality, &e.AdminApproved, &vettedBy, &vettedAt, &createdAt); err != nil {
			return nil, err
		}
		e.Date, _ = time.Parse(generic.DateLayout, date)
		e.Time = generic.ParseDecimalOrZero(hours)
		e.Quality = generic.ParseDecimalOrZero(quality)
		e.AdminTime = parseDecimalPtr(adminTime)
		e.AdminQuality = parseDecimalPtr(adminQuality)
		e.VettedBy = vettedBy.String
		e.VettedAt = parseTimePtr(vettedAt)
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// WEEKLY PAYMENTS
// =============================================================================

const paymentColumns = `id, user_id, week_start, week_end, week_number, year, week_start_day,
	total_hours, avg_quality, entry_count, hourly_rate, tier, multiplier, base_earnings, bonus_earnings,
	extra_bonus, extra_bonus_reason, total_earnings, payment_type, status, paid, paid_date, paid_by,
	approved_by, approved_at, denied_by, denied_at, denial_reason, notes, created_at, updated_at`

// UpsertRegularPayment must run inside a transaction; Store guarantees that.
func (c conn) UpsertRegularPayment(ctx context.Context, p payroll.WeeklyPayment) (payroll.WeeklyPayment, error) {
	existing, err := c.GetRegularPayment(ctx, p.WorkerID, p.WeekStart)
	if err != nil {
		return payroll.WeeklyPayment{}, err
	}
	merged := payroll.MergeRegular(existing, p)
	if existing != nil && existing.Frozen() {
		return merged, nil
	}
	if err := c.SavePayment(ctx, merged); err != nil {
		return payroll.WeeklyPayment{}, err
	}
	return merged, nil
}

func (c conn) GetRegularPayment(ctx context.Context, workerID generic.WorkerID, weekStart time.Time) (*payroll.WeeklyPayment, error) {
	return c.queryOnePayment(ctx, `
		SELECT `+paymentColumns+` FROM weekly_payments
		WHERE user_id = ? AND week_start = ? AND payment_type = ?
		ORDER BY created_at ASC LIMIT 1
	`, workerID, formatTime(weekStart), payroll.PaymentRegular)
}

func (c conn) LatestUnpaidRegularPayment(ctx context.Context, workerID generic.WorkerID) (*payroll.WeeklyPayment, error) {
	return c.queryOnePayment(ctx, `
		SELECT `+paymentColumns+` FROM weekly_payments
		WHERE user_id = ? AND payment_type = ? AND paid = FALSE AND status != ?
		ORDER BY week_start DESC LIMIT 1
	`, workerID, payroll.PaymentRegular, payroll.StatusPaid)
}

func (c conn) GetPayment(ctx context.Context, id generic.PaymentID) (*payroll.WeeklyPayment, error) {
	return c.queryOnePayment(ctx, `SELECT `+paymentColumns+` FROM weekly_payments WHERE id = ?`, id)
}

func (c conn) SavePayment(ctx context.Context, p payroll.WeeklyPayment) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO weekly_payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.WorkerID, formatTime(p.WeekStart), formatTime(p.WeekEnd), p.WeekNumber, p.Year, p.WeekStartDay,
		p.TotalHours.String(), p.AvgQuality.String(), p.EntryCount, p.HourlyRate.String(), p.Tier,
		p.Multiplier.String(), p.BaseEarnings.String(), p.BonusEarnings.String(),
		p.ExtraBonus.String(), p.ExtraBonusReason, p.TotalEarnings.String(),
		p.PaymentType, p.Status, p.Paid, formatTimePtr(p.PaidDate), nullString(p.PaidBy),
		nullString(p.ApprovedBy), formatTimePtr(p.ApprovedAt),
		nullString(p.DeniedBy), formatTimePtr(p.DeniedAt), nullString(p.DenialReason),
		nullString(p.Notes), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (c conn) ListPayments(ctx context.Context, f payroll.PaymentFilter, page, limit int) ([]payroll.WeeklyPayment, int, error) {
	where, args := paymentWhere(f)

	var total int
	if err := c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM weekly_payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	query := `SELECT ` + paymentColumns + ` FROM weekly_payments` + where +
		` ORDER BY week_start DESC, created_at DESC LIMIT ? OFFSET ?`
	items, err := c.queryPayments(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func paymentWhere(f payroll.PaymentFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		clauses = append(clauses, clause)
		args = append(args, v)
	}
	if f.WorkerID != nil {
		add("user_id = ?", *f.WorkerID)
	}
	if f.Status != nil {
		add("status = ?", *f.Status)
	}
	if f.Paid != nil {
		add("paid = ?", *f.Paid)
	}
	if f.Year != nil {
		add("year = ?", *f.Year)
	}
	if f.WeekNumber != nil {
		add("week_number = ?", *f.WeekNumber)
	}
	if f.PaymentType != nil {
		add("payment_type = ?", *f.PaymentType)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (c conn) queryOnePayment(ctx context.Context, query string, args ...any) (*payroll.WeeklyPayment, error) {
	items, err := c.queryPayments(ctx, query, args...)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (c conn) queryPayments(ctx context.Context, query string, args ...any) ([]payroll.WeeklyPayment, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []payroll.WeeklyPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(r scanner) (payroll.WeeklyPayment, error) {
	var p payroll.WeeklyPayment
	var weekStart, weekEnd, createdAt, updatedAt string
	var hours, quality, rate, multiplier, base, bonus, extra, total string
	var paidDate, paidBy, approvedBy, approvedAt, deniedBy, deniedAt, denialReason, notes sql.NullString

	err := r.Scan(
		&p.ID, &p.WorkerID, &weekStart, &weekEnd, &p.WeekNumber, &p.Year, &p.WeekStartDay,
		&hours, &quality, &p.EntryCount, &rate, &p.Tier, &multiplier, &base, &bonus,
		&extra, &p.ExtraBonusReason, &total, &p.PaymentType, &p.Status, &p.Paid, &paidDate, &paidBy,
		&approvedBy, &approvedAt, &deniedBy, &deniedAt, &denialReason, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return p, err
	}

	p.WeekStart = parseTime(weekStart)
	p.WeekEnd = parseTime(weekEnd)
	p.TotalHours = generic.ParseDecimalOrZero(hours)
	p.AvgQuality = generic.ParseDecimalOrZero(quality)
	p.HourlyRate = generic.ParseDecimalOrZero(rate)
	p.Multiplier = generic.ParseDecimalOrZero(multiplier)
	p.BaseEarnings = generic.ParseDecimalOrZero(base)
	p.BonusEarnings = generic.ParseDecimalOrZero(bonus)
	p.ExtraBonus = generic.ParseDecimalOrZero(extra)
	p.TotalEarnings = generic.ParseDecimalOrZero(total)
	p.PaidDate = parseTimePtr(paidDate)
	p.PaidBy = paidBy.String
	p.ApprovedBy = approvedBy.String
	p.ApprovedAt = parseTimePtr(approvedAt)
	p.DeniedBy = deniedBy.String
	p.DeniedAt = parseTimePtr(deniedAt)
	p.DenialReason = denialReason.String
	p.Notes = notes.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// BONUS LEDGER
// =============================================================================

const bonusColumns = `id, worker_id, amount, reason, status, merged_into_payment, merged_at,
	reset_by, reset_at, created_by, created_at`

func (c conn) AppendBonus(ctx context.Context, b payroll.Bonus) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO bonuses (`+bonusColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.WorkerID, b.Amount.String(), b.Reason, b.Status,
		nullString(string(b.MergedIntoPayment)), formatTimePtr(b.MergedAt),
		nullString(b.ResetBy), formatTimePtr(b.ResetAt),
		nullString(b.CreatedBy), formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append bonus: %w", err)
	}
	return nil
}

// PendingBonuses returns pending grants in append order.
func (c conn) PendingBonuses(ctx context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	return c.queryBonuses(ctx, `
		SELECT `+bonusColumns+` FROM bonuses
		WHERE worker_id = ? AND status = ?
		ORDER BY rowid ASC
	`, workerID, payroll.BonusPending)
}

// ListBonuses returns the whole history newest first.
func (c conn) ListBonuses(ctx context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	return c.queryBonuses(ctx, `
		SELECT `+bonusColumns+` FROM bonuses
		WHERE worker_id = ?
		ORDER BY rowid DESC
	`, workerID)
}

func (c conn) MarkBonusesMerged(ctx context.Context, ids []generic.BonusID, paymentID generic.PaymentID, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := []any{payroll.BonusMerged, paymentID, formatTime(at)}
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, payroll.BonusPending)

	res, err := c.q.ExecContext(ctx, `
		UPDATE bonuses SET status = ?, merged_into_payment = ?, merged_at = ?
		WHERE id IN (`+placeholders+`) AND status = ?
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to merge bonuses: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (c conn) ResetPendingBonuses(ctx context.Context, workerID generic.WorkerID, actor string, at time.Time) (int, error) {
	res, err := c.q.ExecContext(ctx, `
		UPDATE bonuses SET status = ?, reset_by = ?, reset_at = ?
		WHERE worker_id = ? AND status = ?
	`, payroll.BonusReset, nullString(actor), formatTime(at), workerID, payroll.BonusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to reset bonuses: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (c conn) queryBonuses(ctx context.Context, query string, args ...any) ([]payroll.Bonus, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bonuses: %w", err)
	}
	defer rows.Close()

	var out []payroll.Bonus
	for rows.Next() {
		var b payroll.Bonus
		var amount, createdAt string
		var mergedInto, mergedAt, resetBy, resetAt, createdBy sql.NullString
		if err := rows.Scan(&b.ID, &b.WorkerID, &amount, &b.Reason, &b.Status,
			&mergedInto, &mergedAt, &resetBy, &resetAt, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		b.Amount = generic.ParseDecimalOrZero(amount)
		b.MergedIntoPayment = generic.PaymentID(mergedInto.String)
		b.MergedAt = parseTimePtr(mergedAt)
		b.ResetBy = resetBy.String
		b.ResetAt = parseTimePtr(resetAt)
		b.CreatedBy = createdBy.String
		b.CreatedAt = parseTime(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// BENCHMARKS (benchmark.Store interface)
// =============================================================================

const benchmarkColumns = `id, name, time_benchmark, quality_benchmark, start_date, end_date, pay_per_hour,
	earnings_mode, thresholds_json, bonus_rates_json, is_active, created_by, created_at, updated_at`

func (c conn) SaveBenchmark(ctx context.Context, b benchmark.Benchmark) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO benchmarks (`+benchmarkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.Name, b.TimeBenchmark.String(), b.QualityBenchmark.String(),
		formatTime(b.StartDate), formatTime(b.EndDate), b.PayPerHour.String(),
		b.EarningsMode, marshalJSON(b.Thresholds), marshalJSON(b.BonusRates),
		b.IsActive, nullString(b.CreatedBy), formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save benchmark: %w", err)
	}
	return nil
}

func (c conn) GetBenchmark(ctx context.Context, id generic.BenchmarkID) (*benchmark.Benchmark, error) {
	items, err := c.queryBenchmarks(ctx, `SELECT `+benchmarkColumns+` FROM benchmarks WHERE id = ?`, id)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

// ListBenchmarks returns benchmarks newest start first.
func (c conn) ListBenchmarks(ctx context.Context) ([]benchmark.Benchmark, error) {
	return c.queryBenchmarks(ctx, `
		SELECT `+benchmarkColumns+` FROM benchmarks
		ORDER BY start_date DESC, created_at DESC
	`)
}

func (c conn) DeleteBenchmark(ctx context.Context, id generic.BenchmarkID) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM benchmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete benchmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NotFound("benchmark", string(id))
	}
	return nil
}

func (c conn) queryBenchmarks(ctx context.Context, query string, args ...any) ([]benchmark.Benchmark, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query benchmarks: %w", err)
	}
	defer rows.Close()

	var out []benchmark.Benchmark
	for rows.Next() {
		var b benchmark.Benchmark
		var timeBM, qualityBM, start, end, pay, thresholds, rates, createdAt, updatedAt string
		var createdBy sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &timeBM, &qualityBM, &start, &end, &pay,
			&b.EarningsMode, &thresholds, &rates, &b.IsActive, &createdBy, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		b.TimeBenchmark = generic.ParseDecimalOrZero(timeBM)
		b.QualityBenchmark = generic.ParseDecimalOrZero(qualityBM)
		b.StartDate = parseTime(start)
		b.EndDate = parseTime(end)
		b.PayPerHour = generic.ParseDecimalOrZero(pay)
		if err := json.Unmarshal([]byte(thresholds), &b.Thresholds); err != nil {
			return nil, fmt.Errorf("failed to decode thresholds for benchmark %s: %w", b.ID, err)
		}
		if err := json.Unmarshal([]byte(rates), &b.BonusRates); err != nil {
			return nil, fmt.Errorf("failed to decode bonus rates for benchmark %s: %w", b.ID, err)
		}
		b.CreatedBy = createdBy.String
		b.CreatedAt = parseTime(createdAt)
		b.UpdatedAt = parseTime(updatedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
