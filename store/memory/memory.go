// Package memory provides an in-memory payroll and benchmark store for tests
// and demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements payroll.TxStore and benchmark.Store. Every exported
// method takes the lock and delegates to data, which is lock-free. WithTx
// hands data itself to the callback while holding the lock.
type Memory struct {
	mu sync.RWMutex
	d  *data
}

var (
	_ payroll.TxStore = (*Memory)(nil)
	_ benchmark.Store = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{d: newData()}
}

// Reset drops everything.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d = newData()
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(payroll.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.d.clone()
	if err := fn(m.d); err != nil {
		m.d = snapshot
		return err
	}
	return nil
}

// ─── Workers ─────────────────────────────────────────────────────────────────

func (m *Memory) GetWorker(ctx context.Context, id generic.WorkerID) (*payroll.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.GetWorker(ctx, id)
}

func (m *Memory) ListWorkers(ctx context.Context) ([]payroll.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.ListWorkers(ctx)
}

func (m *Memory) SaveWorker(ctx context.Context, w payroll.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.SaveWorker(ctx, w)
}

func (m *Memory) SetWorkerBonusCache(ctx context.Context, id generic.WorkerID, amount decimal.Decimal, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.SetWorkerBonusCache(ctx, id, amount, reason)
}

// ─── Entries ─────────────────────────────────────────────────────────────────

func (m *Memory) SaveEntry(ctx context.Context, e payroll.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.SaveEntry(ctx, e)
}

func (m *Memory) GetEntry(ctx context.Context, id generic.EntryID) (*payroll.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.GetEntry(ctx, id)
}

func (m *Memory) LoadEntries(ctx context.Context, workerID generic.WorkerID, from, to time.Time) ([]payroll.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.LoadEntries(ctx, workerID, from, to)
}

// ─── Weekly payments ─────────────────────────────────────────────────────────

// UpsertRegularPayment holds the write lock across lookup and write.
func (m *Memory) UpsertRegularPayment(ctx context.Context, p payroll.WeeklyPayment) (payroll.WeeklyPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.UpsertRegularPayment(ctx, p)
}

func (m *Memory) GetRegularPayment(ctx context.Context, workerID generic.WorkerID, weekStart time.Time) (*payroll.WeeklyPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.GetRegularPayment(ctx, workerID, weekStart)
}

func (m *Memory) LatestUnpaidRegularPayment(ctx context.Context, workerID generic.WorkerID) (*payroll.WeeklyPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.LatestUnpaidRegularPayment(ctx, workerID)
}

func (m *Memory) GetPayment(ctx context.Context, id generic.PaymentID) (*payroll.WeeklyPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.GetPayment(ctx, id)
}

func (m *Memory) SavePayment(ctx context.Context, p payroll.WeeklyPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.SavePayment(ctx, p)
}

func (m *Memory) ListPayments(ctx context.Context, f payroll.PaymentFilter, page, limit int) ([]payroll.WeeklyPayment, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.ListPayments(ctx, f, page, limit)
}

// ─── Bonus ledger ────────────────────────────────────────────────────────────

func (m *Memory) AppendBonus(ctx context.Context, b payroll.Bonus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.AppendBonus(ctx, b)
}

func (m *Memory) PendingBonuses(ctx context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.PendingBonuses(ctx, workerID)
}

func (m *Memory) ListBonuses(ctx context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.ListBonuses(ctx, workerID)
}

func (m *Memory) MarkBonusesMerged(ctx context.Context, ids []generic.BonusID, paymentID generic.PaymentID, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.MarkBonusesMerged(ctx, ids, paymentID, at)
}

func (m *Memory) ResetPendingBonuses(ctx context.Context, workerID generic.WorkerID, actor string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.ResetPendingBonuses(ctx, workerID, actor, at)
}

// ─── Benchmarks ──────────────────────────────────────────────────────────────

func (m *Memory) SaveBenchmark(ctx context.Context, b benchmark.Benchmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.SaveBenchmark(ctx, b)
}

func (m *Memory) GetBenchmark(ctx context.Context, id generic.BenchmarkID) (*benchmark.Benchmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.GetBenchmark(ctx, id)
}

func (m *Memory) ListBenchmarks(ctx context.Context) ([]benchmark.Benchmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.d.ListBenchmarks(ctx)
}

func (m *Memory) DeleteBenchmark(ctx context.Context, id generic.BenchmarkID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.DeleteBenchmark(ctx, id)
}

// =============================================================================
// DATA - unlocked state, also the transactional view
// =============================================================================

type data struct {
	workers    map[generic.WorkerID]payroll.Worker
	entries    map[generic.EntryID]payroll.Entry
	payments   map[generic.PaymentID]payroll.WeeklyPayment
	bonuses    []payroll.Bonus // append order
	benchmarks map[generic.BenchmarkID]benchmark.Benchmark
}

func newData() *data {
	return &data{
		workers:    make(map[generic.WorkerID]payroll.Worker),
		entries:    make(map[generic.EntryID]payroll.Entry),
		payments:   make(map[generic.PaymentID]payroll.WeeklyPayment),
		benchmarks: make(map[generic.BenchmarkID]benchmark.Benchmark),
	}
}

// clone copies every collection. Records are values; their pointer fields are never
// mutated in place, so a shallow copy per record is enough.
func (d *data) clone() *data {
	c := newData()
	for k, v := range d.workers {
		c.workers[k] = v
	}
	for k, v := range d.entries {
		c.entries[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	c.bonuses = append([]payroll.Bonus(nil), d.bonuses...)
	for k, v := range d.benchmarks {
		c.benchmarks[k] = v
	}
	return c
}

func (d *data) GetWorker(_ context.Context, id generic.WorkerID) (*payroll.Worker, error) {
	w, ok := d.workers[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (d *data) ListWorkers(_ context.Context) ([]payroll.Worker, error) {
	out := make([]payroll.Worker, 0, len(d.workers))
	for _, w := range d.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *data) SaveWorker(_ context.Context, w payroll.Worker) error {
	d.workers[w.ID] = w
	return nil
}

func (d *data) SetWorkerBonusCache(_ context.Context, id generic.WorkerID, amount decimal.Decimal, reason string) error {
	w, ok := d.workers[id]
	if !ok {
		return generic.NotFound("worker", string(id))
	}
	w.PendingBonus = amount
	w.PendingBonusReason = reason
	d.workers[id] = w
	return nil
}

func (d *data) SaveEntry(_ context.Context, e payroll.Entry) error {
	for _, other := range d.entries {
		if other.ID != e.ID && other.WorkerID == e.WorkerID &&
			other.ProfileID == e.ProfileID && other.Date.Equal(e.Date) {
			return payroll.ErrDuplicateEntry
		}
	}
	d.entries[e.ID] = e
	return nil
}

func (d *data) GetEntry(_ context.Context, id generic.EntryID) (*payroll.Entry, error) {
	e, ok := d.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (d *data) LoadEntries(_ context.Context, workerID generic.WorkerID, from, to time.Time) ([]payroll.Entry, error) {
	window := generic.Period{Start: from, End: to}
	var out []payroll.Entry
	for _, e := range d.entries {
		if e.WorkerID == workerID && window.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (d *data) findRegular(workerID generic.WorkerID, weekStart time.Time) *payroll.WeeklyPayment {
	for _, p := range d.payments {
		if p.WorkerID == workerID && p.PaymentType == payroll.PaymentRegular && p.WeekStart.Equal(weekStart) {
			return &p
		}
	}
	return nil
}

func (d *data) UpsertRegularPayment(_ context.Context, p payroll.WeeklyPayment) (payroll.WeeklyPayment, error) {
	merged := payroll.MergeRegular(d.findRegular(p.WorkerID, p.WeekStart), p)
	d.payments[merged.ID] = merged
	return merged, nil
}

func (d *data) GetRegularPayment(_ context.Context, workerID generic.WorkerID, weekStart time.Time) (*payroll.WeeklyPayment, error) {
	return d.findRegular(workerID, weekStart), nil
}

func (d *data) LatestUnpaidRegularPayment(_ context.Context, workerID generic.WorkerID) (*payroll.WeeklyPayment, error) {
	var latest *payroll.WeeklyPayment
	for _, p := range d.payments {
		if p.WorkerID != workerID || p.PaymentType != payroll.PaymentRegular || p.Paid || p.Frozen() {
			continue
		}
		if latest == nil || p.WeekStart.After(latest.WeekStart) {
			p := p
			latest = &p
		}
	}
	return latest, nil
}

func (d *data) GetPayment(_ context.Context, id generic.PaymentID) (*payroll.WeeklyPayment, error) {
	p, ok := d.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (d *data) SavePayment(_ context.Context, p payroll.WeeklyPayment) error {
	d.payments[p.ID] = p
	return nil
}

func (d *data) ListPayments(_ context.Context, f payroll.PaymentFilter, page, limit int) ([]payroll.WeeklyPayment, int, error) {
	var matched []payroll.WeeklyPayment
	for _, p := range d.payments {
		if f.Matches(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].WeekStart.Equal(matched[j].WeekStart) {
			return matched[i].WeekStart.After(matched[j].WeekStart)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []payroll.WeeklyPayment{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (d *data) AppendBonus(_ context.Context, b payroll.Bonus) error {
	d.bonuses = append(d.bonuses, b)
	return nil
}

func (d *data) bonusesWhere(workerID generic.WorkerID, keep func(payroll.Bonus) bool) []payroll.Bonus {
	var out []payroll.Bonus
	for _, b := range d.bonuses {
		if b.WorkerID == workerID && keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// PendingBonuses returns pending grants oldest first.
func (d *data) PendingBonuses(_ context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	return d.bonusesWhere(workerID, func(b payroll.Bonus) bool { return b.Status == payroll.BonusPending }), nil
}

// ListBonuses returns the whole history newest first.
func (d *data) ListBonuses(_ context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	all := d.bonusesWhere(workerID, func(payroll.Bonus) bool { return true })
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func (d *data) MarkBonusesMerged(_ context.Context, ids []generic.BonusID, paymentID generic.PaymentID, at time.Time) (int, error) {
	want := make(map[generic.BonusID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	n := 0
	for i := range d.bonuses {
		b := &d.bonuses[i]
		if !want[b.ID] || b.Status != payroll.BonusPending {
			continue
		}
		b.Status = payroll.BonusMerged
		b.MergedIntoPayment = paymentID
		b.MergedAt = &at
		n++
	}
	return n, nil
}

func (d *data) ResetPendingBonuses(_ context.Context, workerID generic.WorkerID, actor string, at time.Time) (int, error) {
	n := 0
	for i := range d.bonuses {
		b := &d.bonuses[i]
		if b.WorkerID != workerID || b.Status != payroll.BonusPending {
			continue
		}
		b.Status = payroll.BonusReset
		b.ResetBy = actor
		b.ResetAt = &at
		n++
	}
	return n, nil
}

func (d *data) SaveBenchmark(_ context.Context, b benchmark.Benchmark) error {
	d.benchmarks[b.ID] = b
	return nil
}

func (d *data) GetBenchmark(_ context.Context, id generic.BenchmarkID) (*benchmark.Benchmark, error) {
	b, ok := d.benchmarks[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// ListBenchmarks returns benchmarks newest start first.
func (d *data) ListBenchmarks(_ context.Context) ([]benchmark.Benchmark, error) {
	out := make([]benchmark.Benchmark, 0, len(d.benchmarks))
	for _, b := range d.benchmarks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (d *data) DeleteBenchmark(_ context.Context, id generic.BenchmarkID) error {
	if _, ok := d.benchmarks[id]; !ok {
		return generic.NotFound("benchmark", string(id))
	}
	delete(d.benchmarks, id)
	return nil
}
