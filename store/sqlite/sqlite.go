/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements payroll.TxStore and benchmark.Store using SQLite. The same
  statements run on PostgreSQL with only dialect changes (placeholders,
  ON CONFLICT spelling).

INTERFACES IMPLEMENTED:
  payroll.Store:   Workers, entries, weekly payments, bonus ledger
  payroll.TxStore: WithTx for drain-and-pay
  benchmark.Store: Benchmark definitions

KEY TABLES:
  workers:          Worker records plus the pending bonus cache
  entries:          Daily time/quality submissions, vetted by admins
  weekly_payments:  One regular row per (user_id, week_start)
  bonuses:          Append-only bonus ledger
  benchmarks:       Pricing policy definitions

INDEXES:
  - idx_entries_unique_day: One entry per (profile, worker, date)
  - idx_payments_week_key: Lookup by (user_id, week_start, payment_type).
    Deliberately NOT unique: uniqueness comes from UpsertRegularPayment
    doing find-and-modify inside one transaction. Rows written before this
    rule existed may collide, and a unique index would refuse to build.
  - idx_bonuses_worker_status: Pending-bonus scans

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection, so a
  ":memory:" database is shared by every call and a transaction owns the
  connection for its whole lifetime.

STORAGE FORMATS:
  Decimals are TEXT (exact, never REAL). Timestamps are fixed-width UTC
  strings so lexical order equals time order. Entry dates are YYYY-MM-DD.

USAGE:
  store, err := sqlite.New("./payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := payroll.NewEngine(store, benchmark.NewService(store), cfg)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	base conn
}

var (
	_ payroll.TxStore = (*Store)(nil)
	_ benchmark.Store = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, base: conn{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		week_start_day INTEGER NOT NULL DEFAULT 1,
		pending_bonus TEXT NOT NULL DEFAULT '0',
		pending_bonus_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		quality TEXT NOT NULL,
		admin_time TEXT,
		admin_quality TEXT,
		admin_approved BOOLEAN NOT NULL DEFAULT FALSE,
		vetted_by TEXT,
		vetted_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_unique_day
		ON entries(profile_id, worker_id, date);
	CREATE INDEX IF NOT EXISTS idx_entries_worker_date
		ON entries(worker_id, date);

	CREATE TABLE IF NOT EXISTS weekly_payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		week_start TEXT NOT NULL,
		week_end TEXT NOT NULL,
		week_number INTEGER NOT NULL,
		year INTEGER NOT NULL,
		week_start_day INTEGER NOT NULL,
		total_hours TEXT NOT NULL,
		avg_quality TEXT NOT NULL,
		entry_count INTEGER NOT NULL,
		hourly_rate TEXT NOT NULL,
		tier TEXT NOT NULL,
		multiplier TEXT NOT NULL,
		base_earnings TEXT NOT NULL,
		bonus_earnings TEXT NOT NULL,
		extra_bonus TEXT NOT NULL,
		extra_bonus_reason TEXT NOT NULL DEFAULT '',
		total_earnings TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		status TEXT NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_date TEXT,
		paid_by TEXT,
		approved_by TEXT,
		approved_at TEXT,
		denied_by TEXT,
		denied_at TEXT,
		denial_reason TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_week_key
		ON weekly_payments(user_id, week_start, payment_type);
	CREATE INDEX IF NOT EXISTS idx_payments_status
		ON weekly_payments(status);

	CREATE TABLE IF NOT EXISTS bonuses (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		merged_into_payment TEXT,
		merged_at TEXT,
		reset_by TEXT,
		reset_at TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bonuses_worker_status
		ON bonuses(worker_id, status);

	CREATE TABLE IF NOT EXISTS benchmarks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		time_benchmark TEXT NOT NULL,
		quality_benchmark TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		pay_per_hour TEXT NOT NULL,
		earnings_mode TEXT NOT NULL,
		thresholds_json TEXT NOT NULL,
		bonus_rates_json TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (payroll.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store payroll.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withTxLocked(ctx, func(c conn) error { return fn(c) })
}

func (s *Store) withTxLocked(ctx context.Context, fn func(c conn) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(conn{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (s *Store) GetWorker(ctx context.Context, id generic.WorkerID) (*payroll.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.GetWorker(ctx, id)
}

func (s *Store) ListWorkers(ctx context.Context) ([]payroll.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.ListWorkers(ctx)
}

func (s *Store) SaveWorker(ctx context.Context, w payroll.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.SaveWorker(ctx, w)
}

func (s *Store) SetWorkerBonusCache(ctx context.Context, id generic.WorkerID, amount decimal.Decimal, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.SetWorkerBonusCache(ctx, id, amount, reason)
}

func (s *Store) SaveEntry(ctx context.Context, e payroll.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.SaveEntry(ctx, e)
}

func (s *Store) GetEntry(ctx context.Context, id generic.EntryID) (*payroll.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.GetEntry(ctx, id)
}

func (s *Store) LoadEntries(ctx context.Context, workerID generic.WorkerID, from, to time.Time) ([]payroll.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.LoadEntries(ctx, workerID, from, to)
}

// UpsertRegularPayment runs lookup, merge and write in one transaction.
func (s *Store) UpsertRegularPayment(ctx context.Context, p payroll.WeeklyPayment) (payroll.WeeklyPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out payroll.WeeklyPayment
	err := s.withTxLocked(ctx, func(c conn) error {
		var err error
		out, err = c.UpsertRegularPayment(ctx, p)
		return err
	})
	return out, err
}

func (s *Store) GetRegularPayment(ctx context.Context, workerID generic.WorkerID, weekStart time.Time) (*payroll.WeeklyPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.GetRegularPayment(ctx, workerID, weekStart)
}

func (s *Store) LatestUnpaidRegularPayment(ctx context.Context, workerID generic.WorkerID) (*payroll.WeeklyPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.LatestUnpaidRegularPayment(ctx, workerID)
}

func (s *Store) GetPayment(ctx context.Context, id generic.PaymentID) (*payroll.WeeklyPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.GetPayment(ctx, id)
}

func (s *Store) SavePayment(ctx context.Context, p payroll.WeeklyPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.SavePayment(ctx, p)
}

func (s *Store) ListPayments(ctx context.Context, f payroll.PaymentFilter, page, limit int) ([]payroll.WeeklyPayment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.ListPayments(ctx, f, page, limit)
}

func (s *Store) AppendBonus(ctx context.Context, b payroll.Bonus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.AppendBonus(ctx, b)
}

func (s *Store) PendingBonuses(ctx context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.PendingBonuses(ctx, workerID)
}

func (s *Store) ListBonuses(ctx context.Context, workerID generic.WorkerID) ([]payroll.Bonus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.ListBonuses(ctx, workerID)
}

func (s *Store) MarkBonusesMerged(ctx context.Context, ids []generic.BonusID, paymentID generic.PaymentID, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.MarkBonusesMerged(ctx, ids, paymentID, at)
}

func (s *Store) ResetPendingBonuses(ctx context.Context, workerID generic.WorkerID, actor string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.ResetPendingBonuses(ctx, workerID, actor, at)
}

func (s *Store) SaveBenchmark(ctx context.Context, b benchmark.Benchmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.SaveBenchmark(ctx, b)
}

func (s *Store) GetBenchmark(ctx context.Context, id generic.BenchmarkID) (*benchmark.Benchmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.GetBenchmark(ctx, id)
}

func (s *Store) ListBenchmarks(ctx context.Context) ([]benchmark.Benchmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.ListBenchmarks(ctx)
}

func (s *Store) DeleteBenchmark(ctx context.Context, id generic.BenchmarkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.DeleteBenchmark(ctx, id)
}

// ListEntries returns a worker's entries, newest first (for admin view).
func (s *Store) ListEntries(ctx context.Context, workerID generic.WorkerID) ([]payroll.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE worker_id = ?
		ORDER BY date DESC, created_at DESC
	`, workerID)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"bonuses", "weekly_payments", "entries", "benchmarks", "workers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

// timeLayout is fixed-width so stored strings sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func formatDecimalPtr(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimalPtr(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d := generic.ParseDecimalOrZero(ns.String)
	return &d
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func marshalJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
