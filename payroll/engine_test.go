package payroll_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
	"github.com/Em4Michael/AirHub-Server/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var fixedNow = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fixture struct {
	ctx    context.Context
	store  *memory.Memory
	engine *payroll.Engine
	ledger *payroll.BonusLedger
	worker generic.WorkerID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	return newFixtureWith(t, st, st)
}

func newFixtureWith(t *testing.T, st *memory.Memory, tx payroll.TxStore) *fixture {
	t.Helper()
	benchmarks := benchmark.NewService(st).WithClock(clock)
	engine := payroll.NewEngine(tx, benchmarks, payroll.Config{DefaultHourlyRate: dec("500"), Now: clock})

	f := &fixture{ctx: context.Background(), store: st, engine: engine, ledger: engine.Bonuses()}
	w, err := engine.RegisterWorker(f.ctx, payroll.Worker{Name: "Ada", Email: "ada@example.com", WeekStartDay: 1})
	require.NoError(t, err)
	f.worker = w.ID
	return f
}

// submit records one unvetted entry.
func (f *fixture) submit(t *testing.T, date time.Time, hours, quality string) payroll.Entry {
	t.Helper()
	e, err := f.engine.SubmitEntry(f.ctx, payroll.Entry{
		WorkerID:  f.worker,
		ProfileID: generic.ProfileID("profile-" + date.Format(generic.DateLayout)),
		Date:      date,
		Time:      dec(hours),
		Quality:   dec(quality),
	})
	require.NoError(t, err)
	return *e
}

// vet submits and approves one entry.
func (f *fixture) vet(t *testing.T, date time.Time, hours, quality string) payroll.Entry {
	t.Helper()
	e := f.submit(t, date, hours, quality)
	vetted, err := f.engine.VetEntry(f.ctx, e.ID, payroll.Vetting{Approved: true}, "admin")
	require.NoError(t, err)
	return *vetted
}

// paidCount reads payroll_payments_paid_total for one trigger.
func paidCount(t *testing.T, trigger string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "payroll_payments_paid_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "trigger" && lp.GetValue() == trigger {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func (f *fixture) payments(t *testing.T) []payroll.WeeklyPayment {
	t.Helper()
	page, err := f.engine.ListPayments(f.ctx, payroll.PaymentFilter{WorkerID: &f.worker}, 1, 100)
	require.NoError(t, err)
	return page.Items
}

var (
	monday  = generic.Date(2025, time.March, 10)
	tuesday = generic.Date(2025, time.March, 11)
)

// =============================================================================
// VETTING -> REGULAR PAYMENT
// =============================================================================

func TestVetting_CreatesRegularPayment(t *testing.T) {
	// GIVEN: no benchmark, default rate 500
	f := newFixture(t)

	// WHEN: two entries in the same week are approved
	f.vet(t, monday, "6", "90")
	f.vet(t, tuesday, "7", "85")

	// THEN: exactly one regular record holds both
	ps := f.payments(t)
	require.Len(t, ps, 1)
	p := ps[0]
	assert.Equal(t, payroll.PaymentRegular, p.PaymentType)
	assert.Equal(t, payroll.StatusPending, p.Status)
	assert.Equal(t, monday, p.WeekStart)
	assert.Equal(t, 2, p.EntryCount)
	assert.Equal(t, 11, p.WeekNumber)
	assert.True(t, p.TotalHours.Equal(dec("13")))
	assert.True(t, p.AvgQuality.Equal(dec("87.5")))
	assert.Equal(t, string(benchmark.TierFlat), p.Tier)
	assert.True(t, p.BaseEarnings.Equal(dec("6500")))
	assert.True(t, p.TotalEarnings.Equal(dec("6500")))
}

func TestRefreshWeek_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.vet(t, monday, "6", "90")

	first, err := f.engine.RefreshWeek(f.ctx, f.worker, tuesday)
	require.NoError(t, err)
	second, err := f.engine.RefreshWeek(f.ctx, f.worker, monday)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.payments(t), 1)
}

// holdingStore parks the first transaction that reads entries until
// release is closed, leaving a window for a second vetting to run.
type holdingStore struct {
	*memory.Memory
	loaded  chan struct{}
	release chan struct{}
	held    atomic.Bool
}

func newHoldingStore() *holdingStore {
	return &holdingStore{
		Memory:  memory.New(),
		loaded:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *holdingStore) hold() {
	if s.held.CompareAndSwap(false, true) {
		close(s.loaded)
		<-s.release
	}
}

func (s *holdingStore) LoadEntries(ctx context.Context, workerID generic.WorkerID, from, to time.Time) ([]payroll.Entry, error) {
	entries, err := s.Memory.LoadEntries(ctx, workerID, from, to)
	s.hold()
	return entries, err
}

func (s *holdingStore) WithTx(ctx context.Context, fn func(payroll.Store) error) error {
	return s.Memory.WithTx(ctx, func(st payroll.Store) error {
		return fn(holdingTx{Store: st, hold: s.hold})
	})
}

type holdingTx struct {
	payroll.Store
	hold func()
}

func (tx holdingTx) LoadEntries(ctx context.Context, workerID generic.WorkerID, from, to time.Time) ([]payroll.Entry, error) {
	entries, err := tx.Store.LoadEntries(ctx, workerID, from, to)
	tx.hold()
	return entries, err
}

func TestVetEntry_InterleavedVettingsKeepBothEntries(t *testing.T) {
	// GIVEN: two submitted entries in one week, and a store that parks the
	// first refresh right after it has read the week's entries
	st := newHoldingStore()
	f := newFixtureWith(t, st.Memory, st)
	mon := f.submit(t, monday, "8", "90")
	tue := f.submit(t, tuesday, "6", "80")

	// WHEN: Monday's vetting is parked mid-refresh while Tuesday's is vetted
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, err := f.engine.VetEntry(f.ctx, mon.ID, payroll.Vetting{Approved: true}, "admin")
		assert.NoError(t, err)
	}()
	<-st.loaded

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, err := f.engine.VetEntry(f.ctx, tue.ID, payroll.Vetting{Approved: true}, "admin")
		assert.NoError(t, err)
	}()
	select {
	case <-secondDone:
	case <-time.After(50 * time.Millisecond):
	}
	close(st.release)
	<-firstDone
	<-secondDone

	// THEN: the week's record reflects both approvals
	ps := f.payments(t)
	require.Len(t, ps, 1)
	assert.Equal(t, 2, ps[0].EntryCount)
	assert.True(t, ps[0].TotalHours.Equal(dec("14")), ps[0].TotalHours.String())
	assert.True(t, ps[0].TotalEarnings.Equal(dec("7000")), ps[0].TotalEarnings.String())
}

func TestVetEntry_ConcurrentDaysLandInOneRecord(t *testing.T) {
	// GIVEN: a full week of submitted entries
	f := newFixture(t)
	var entries []payroll.Entry
	for i := 0; i < 7; i++ {
		entries = append(entries, f.submit(t, monday.AddDate(0, 0, i), "5", "90"))
	}

	// WHEN: all seven are approved at once
	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(id generic.EntryID) {
			defer wg.Done()
			_, err := f.engine.VetEntry(f.ctx, id, payroll.Vetting{Approved: true}, "admin")
			assert.NoError(t, err)
		}(e.ID)
	}
	wg.Wait()

	// THEN: one record counts every day
	ps := f.payments(t)
	require.Len(t, ps, 1)
	assert.Equal(t, 7, ps[0].EntryCount)
	assert.True(t, ps[0].TotalEarnings.Equal(dec("17500")), ps[0].TotalEarnings.String())
}

func TestVetting_ScoreBenchmark(t *testing.T) {
	// GIVEN: an active score benchmark paying 1000/hour
	f := newFixture(t)
	require.NoError(t, f.store.SaveBenchmark(f.ctx, benchmark.Benchmark{
		ID:           "bm-1",
		Name:         "Q1",
		StartDate:    generic.Date(2025, time.January, 1),
		EndDate:      generic.Date(2025, time.December, 31),
		PayPerHour:   dec("1000"),
		EarningsMode: benchmark.ModeScore,
		Thresholds:   benchmark.DefaultThresholds(),
		BonusRates:   benchmark.DefaultBonusRates(),
		IsActive:     true,
	}))

	// WHEN: an 8h entry at quality 85 is approved
	f.vet(t, monday, "8", "85")

	// THEN: score 85*0.6 + 8*0.4 = 54.2 lands in the minimum tier (x0.9)
	p := f.payments(t)[0]
	assert.Equal(t, string(benchmark.TierMinimum), p.Tier)
	assert.True(t, p.BaseEarnings.Equal(dec("8000")))
	assert.True(t, p.BonusEarnings.Equal(dec("-800")), p.BonusEarnings.String())
	assert.True(t, p.TotalEarnings.Equal(dec("7200")))
}

func TestVetting_RespectsWorkerWeekStartDay(t *testing.T) {
	f := newFixture(t)
	w, err := f.engine.RegisterWorker(f.ctx, payroll.Worker{Name: "Sun", WeekStartDay: 0})
	require.NoError(t, err)
	f.worker = w.ID

	sunday := generic.Date(2025, time.March, 9)
	f.vet(t, sunday, "4", "80")
	f.vet(t, generic.Date(2025, time.March, 15), "4", "80")

	ps := f.payments(t)
	require.Len(t, ps, 1)
	assert.Equal(t, sunday, ps[0].WeekStart)
	assert.Equal(t, 0, ps[0].WeekStartDay)
	assert.Equal(t, 2, ps[0].EntryCount)
}

func TestVetting_UnapproveShrinksWeek(t *testing.T) {
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	e := f.vet(t, tuesday, "7", "85")

	_, err := f.engine.VetEntry(f.ctx, e.ID, payroll.Vetting{Approved: false}, "admin")
	require.NoError(t, err)

	p := f.payments(t)[0]
	assert.Equal(t, 1, p.EntryCount)
	assert.True(t, p.TotalHours.Equal(dec("6")))
}

func TestSubmitEntry_DuplicateDay(t *testing.T) {
	f := newFixture(t)
	e := payroll.Entry{WorkerID: f.worker, ProfileID: "p1", Date: monday, Time: dec("2"), Quality: dec("50")}

	_, err := f.engine.SubmitEntry(f.ctx, e)
	require.NoError(t, err)
	_, err = f.engine.SubmitEntry(f.ctx, e)

	assert.ErrorIs(t, err, payroll.ErrDuplicateEntry)
	assert.True(t, generic.IsInvalidState(err))
}

func TestVetEntry_RejectsOutOfRangeValues(t *testing.T) {
	f := newFixture(t)
	tooMany := dec("25")

	_, err := f.engine.VetEntry(f.ctx, "missing", payroll.Vetting{AdminTime: &tooMany}, "admin")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.engine.VetEntry(f.ctx, "missing", payroll.Vetting{Approved: true}, "admin")
	assert.True(t, generic.IsNotFound(err))
}

// failingResolver makes every refresh fail.
type failingResolver struct{}

func (failingResolver) ResolveCurrent(context.Context) (*benchmark.Benchmark, error) {
	return nil, errors.New("benchmark store unavailable")
}

func TestVetEntry_RefreshIsBestEffort(t *testing.T) {
	// GIVEN: an engine whose benchmark lookup always fails
	st := memory.New()
	engine := payroll.NewEngine(st, failingResolver{}, payroll.Config{Now: clock})
	w, err := engine.RegisterWorker(context.Background(), payroll.Worker{Name: "Ada", WeekStartDay: 1})
	require.NoError(t, err)
	e, err := engine.SubmitEntry(context.Background(), payroll.Entry{
		WorkerID: w.ID, ProfileID: "p1", Date: monday, Time: dec("6"), Quality: dec("90"),
	})
	require.NoError(t, err)

	// WHEN: the entry is vetted
	vetted, err := engine.VetEntry(context.Background(), e.ID, payroll.Vetting{Approved: true}, "admin")

	// THEN: vetting succeeds, the entry is approved, no payment was written
	require.NoError(t, err)
	assert.True(t, vetted.AdminApproved)
	stored, err := st.GetEntry(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, stored.AdminApproved)
	page, err := engine.ListPayments(context.Background(), payroll.PaymentFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

// =============================================================================
// BONUS LEDGER
// =============================================================================

func TestBonusLedger_AddAndCache(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Add(f.ctx, f.worker, dec("1000"), "great week", "admin")
	require.NoError(t, err)
	_, err = f.ledger.Add(f.ctx, f.worker, dec("500"), "referral", "admin")
	require.NoError(t, err)

	summary, err := f.ledger.Pending(f.ctx, f.worker)
	require.NoError(t, err)
	assert.Len(t, summary.Bonuses, 2)
	assert.True(t, summary.Total.Equal(dec("1500")))

	w, err := f.engine.GetWorker(f.ctx, f.worker)
	require.NoError(t, err)
	assert.True(t, w.PendingBonus.Equal(dec("1500")))
	assert.Equal(t, "great week; referral", w.PendingBonusReason)
}

func TestBonusLedger_AddValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Add(f.ctx, f.worker, dec("0"), "nothing", "admin")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.ledger.Add(f.ctx, "ghost", dec("10"), "who", "admin")
	assert.True(t, generic.IsNotFound(err))
}

func TestBonusLedger_Reset(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Add(f.ctx, f.worker, dec("200"), "spot", "admin")
	require.NoError(t, err)

	reset, err := f.ledger.Reset(f.ctx, f.worker, "admin")
	require.NoError(t, err)
	require.Len(t, reset, 1)
	assert.Equal(t, payroll.BonusReset, reset[0].Status)

	w, _ := f.engine.GetWorker(f.ctx, f.worker)
	assert.True(t, w.PendingBonus.IsZero())

	// Nothing pending: still fine.
	reset, err = f.ledger.Reset(f.ctx, f.worker, "admin")
	require.NoError(t, err)
	assert.Empty(t, reset)
}

// =============================================================================
// PAYOUTS
// =============================================================================

func TestMarkWeekPaid_MergesBonusesOnce(t *testing.T) {
	// GIVEN: a vetted week and two pending bonuses
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	f.vet(t, tuesday, "7", "85")
	_, err := f.ledger.Add(f.ctx, f.worker, dec("1000"), "great week", "admin")
	require.NoError(t, err)
	_, err = f.ledger.Add(f.ctx, f.worker, dec("500"), "referral", "admin")
	require.NoError(t, err)

	// WHEN: the week is paid
	paid, err := f.engine.MarkWeekPaid(f.ctx, f.worker, tuesday, "finance")
	require.NoError(t, err)

	// THEN: bonuses are folded in and drained
	assert.Equal(t, payroll.StatusPaid, paid.Status)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, "finance", paid.PaidBy)
	assert.True(t, paid.ExtraBonus.Equal(dec("1500")))
	assert.Equal(t, "great week; referral", paid.ExtraBonusReason)
	assert.True(t, paid.TotalEarnings.Equal(dec("8000")))

	history, err := f.ledger.List(f.ctx, f.worker)
	require.NoError(t, err)
	for _, b := range history {
		assert.Equal(t, payroll.BonusMerged, b.Status)
		assert.Equal(t, paid.ID, b.MergedIntoPayment)
	}
	w, _ := f.engine.GetWorker(f.ctx, f.worker)
	assert.True(t, w.PendingBonus.IsZero())
	assert.Empty(t, w.PendingBonusReason)

	// AND: paying again adds nothing
	again, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")
	require.NoError(t, err)
	assert.Equal(t, paid.ID, again.ID)
	assert.True(t, again.ExtraBonus.Equal(dec("1500")))
	assert.True(t, again.TotalEarnings.Equal(dec("8000")))
	assert.Equal(t, *paid.PaidDate, *again.PaidDate)
}

func TestMarkWeekPaid_PaidWeekIsFrozen(t *testing.T) {
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	paid, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")
	require.NoError(t, err)

	// A late vetting in the paid week must not touch the record.
	f.vet(t, tuesday, "7", "85")

	got, err := f.engine.GetPayment(f.ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EntryCount)
	assert.True(t, got.TotalEarnings.Equal(dec("3000")))
	assert.Len(t, f.payments(t), 1)
}

func TestMarkWeekPaid_RepayKeepsFirstPayout(t *testing.T) {
	// GIVEN: a week paid by finance
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	first, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")
	require.NoError(t, err)
	payouts := paidCount(t, "week")

	// WHEN: someone else pays it again with nothing new to merge
	again, err := f.engine.MarkWeekPaid(f.ctx, f.worker, tuesday, "auditor")

	// THEN: the original payout stands and no new payout is counted
	require.NoError(t, err)
	assert.Equal(t, "finance", again.PaidBy)
	assert.Equal(t, *first.PaidDate, *again.PaidDate)
	assert.True(t, again.TotalEarnings.Equal(dec("3000")))
	assert.Equal(t, payouts, paidCount(t, "week"))

	// AND: a late bonus merged into the paid week is a payout
	_, err = f.ledger.Add(f.ctx, f.worker, dec("250"), "late kudos", "admin")
	require.NoError(t, err)
	again, err = f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "auditor")
	require.NoError(t, err)
	assert.Equal(t, "finance", again.PaidBy)
	assert.True(t, again.TotalEarnings.Equal(dec("3250")))
	assert.Equal(t, payouts+1, paidCount(t, "week"))
}

func TestMarkWeekPaid_SynthesizesMissingRecord(t *testing.T) {
	// GIVEN: a worker with only a pending bonus, no entries
	f := newFixture(t)
	_, err := f.ledger.Add(f.ctx, f.worker, dec("750"), "onboarding", "admin")
	require.NoError(t, err)

	// WHEN: paying a week with no record
	paid, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")

	// THEN: a zero-hour regular record carries the bonus
	require.NoError(t, err)
	assert.Equal(t, payroll.PaymentRegular, paid.PaymentType)
	assert.Equal(t, 0, paid.EntryCount)
	assert.True(t, paid.TotalEarnings.Equal(dec("750")))
	assert.Len(t, f.payments(t), 1)
}

func TestMarkWeekPaid_UnknownWorker(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.MarkWeekPaid(f.ctx, "ghost", monday, "finance")
	assert.True(t, generic.IsNotFound(err))
}

func TestMarkWeekPaid_ClearsDenial(t *testing.T) {
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	p := f.payments(t)[0]
	_, err := f.engine.DenyPayment(f.ctx, p.ID, "missing timesheet", "admin")
	require.NoError(t, err)

	paid, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")
	require.NoError(t, err)
	assert.Empty(t, paid.DeniedBy)
	assert.Nil(t, paid.DeniedAt)
	assert.Empty(t, paid.DenialReason)
}

func TestPayPendingBonus_QueuesWithoutPayment(t *testing.T) {
	// GIVEN: a pending bonus and no regular payment at all
	f := newFixture(t)
	_, err := f.ledger.Add(f.ctx, f.worker, dec("300"), "spot", "admin")
	require.NoError(t, err)

	// WHEN: paying the bonus
	res, err := f.engine.PayPendingBonus(f.ctx, f.worker, "finance")

	// THEN: it stays queued and nothing is written
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assert.Nil(t, res.Payment)
	assert.Len(t, res.QueuedBonuses, 1)
	assert.True(t, res.Amount.Equal(dec("300")))
	assert.Empty(t, f.payments(t))

	summary, err := f.ledger.Pending(f.ctx, f.worker)
	require.NoError(t, err)
	assert.True(t, summary.Total.Equal(dec("300")))

	// AND: once a week exists the same call settles into it
	f.vet(t, monday, "2", "90")
	res, err = f.engine.PayPendingBonus(f.ctx, f.worker, "finance")
	require.NoError(t, err)
	assert.False(t, res.Pending)
	require.NotNil(t, res.Payment)
	assert.Equal(t, payroll.StatusPaid, res.Payment.Status)
	assert.True(t, res.Payment.TotalEarnings.Equal(dec("1300")))
}

func TestPayPendingBonus_NothingPending(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.PayPendingBonus(f.ctx, f.worker, "finance")
	assert.True(t, generic.IsInvalidState(err))
}

func TestPayPendingBonus_PicksLatestUnpaidWeek(t *testing.T) {
	f := newFixture(t)
	f.vet(t, generic.Date(2025, time.March, 3), "1", "90")
	f.vet(t, monday, "2", "90")
	_, err := f.ledger.Add(f.ctx, f.worker, dec("100"), "", "admin")
	require.NoError(t, err)

	res, err := f.engine.PayPendingBonus(f.ctx, f.worker, "finance")
	require.NoError(t, err)
	assert.Equal(t, monday, res.Payment.WeekStart)
}

// txFailingStore fails the bonus drain inside every transaction.
type txFailingStore struct {
	*memory.Memory
}

type failingDrain struct {
	payroll.Store
}

func (failingDrain) MarkBonusesMerged(context.Context, []generic.BonusID, generic.PaymentID, time.Time) (int, error) {
	return 0, errors.New("disk full")
}

func (s txFailingStore) WithTx(ctx context.Context, fn func(payroll.Store) error) error {
	return s.Memory.WithTx(ctx, func(st payroll.Store) error {
		return fn(failingDrain{Store: st})
	})
}

func TestMarkWeekPaid_RollsBackOnDrainFailure(t *testing.T) {
	// GIVEN: a vetted week, a pending bonus and a store whose bonus drain
	// fails mid-transaction
	st := memory.New()
	f := newFixtureWith(t, st, txFailingStore{Memory: st})
	f.vet(t, monday, "6", "90")
	require.NoError(t, st.AppendBonus(f.ctx, payroll.Bonus{
		ID: "b1", WorkerID: f.worker, Amount: dec("1000"), Reason: "great week",
		Status: payroll.BonusPending, CreatedAt: fixedNow,
	}))

	// WHEN: paying the week
	_, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")

	// THEN: nothing commits, the payment is unpaid and the bonus still pending
	require.Error(t, err)
	p := f.payments(t)[0]
	assert.Equal(t, payroll.StatusPending, p.Status)
	assert.False(t, p.Paid)
	assert.True(t, p.ExtraBonus.IsZero())

	pending, err := st.PendingBonuses(f.ctx, f.worker)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// =============================================================================
// ADMIN REVIEW
// =============================================================================

func TestApprovePayment_Lifecycle(t *testing.T) {
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	p := f.payments(t)[0]

	approved, err := f.engine.ApprovePayment(f.ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusApproved, approved.Status)
	assert.Equal(t, "alice", approved.ApprovedBy)

	_, err = f.engine.ApprovePayment(f.ctx, p.ID, "alice")
	assert.True(t, generic.IsInvalidState(err))

	// Approval survives a refresh of the same week.
	f.vet(t, tuesday, "7", "85")
	got, err := f.engine.GetPayment(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusApproved, got.Status)
	assert.Equal(t, 2, got.EntryCount)

	_, err = f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")
	require.NoError(t, err)
	_, err = f.engine.DenyPayment(f.ctx, p.ID, "too late", "bob")
	assert.True(t, generic.IsInvalidState(err))
}

func TestApprovePayment_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ApprovePayment(f.ctx, "nope", "alice")
	assert.True(t, generic.IsNotFound(err))
}

func TestUpdatePayment_ExtraBonusRecalculates(t *testing.T) {
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	p := f.payments(t)[0]
	extra := dec("250")
	reason := "weekend cover"
	notes := "checked by finance"

	got, err := f.engine.UpdatePayment(f.ctx, p.ID, payroll.PaymentPatch{
		ExtraBonus:       &extra,
		ExtraBonusReason: &reason,
		Notes:            &notes,
	}, "admin")

	require.NoError(t, err)
	assert.True(t, got.TotalEarnings.Equal(dec("3250")))
	assert.Equal(t, "weekend cover", got.ExtraBonusReason)
	assert.Equal(t, notes, got.Notes)
}

func TestUpdatePayment_PaidKeepsStatus(t *testing.T) {
	f := newFixture(t)
	f.vet(t, monday, "6", "90")
	paid, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")
	require.NoError(t, err)

	pending := payroll.StatusPending
	_, err = f.engine.UpdatePayment(f.ctx, paid.ID, payroll.PaymentPatch{Status: &pending}, "admin")
	assert.True(t, generic.IsInvalidState(err))

	notes := "late correction"
	got, err := f.engine.UpdatePayment(f.ctx, paid.ID, payroll.PaymentPatch{Notes: &notes}, "admin")
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusPaid, got.Status)
	assert.Equal(t, notes, got.Notes)
}

func TestUpdatePayment_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	negative := dec("-1")
	bogus := payroll.PaymentStatus("archived")

	_, err := f.engine.UpdatePayment(f.ctx, "any", payroll.PaymentPatch{ExtraBonus: &negative}, "admin")
	assert.ErrorIs(t, err, generic.ErrValidation)
	_, err = f.engine.UpdatePayment(f.ctx, "any", payroll.PaymentPatch{Status: &bogus}, "admin")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestListPayments_FiltersAndPages(t *testing.T) {
	f := newFixture(t)
	f.vet(t, generic.Date(2025, time.March, 3), "1", "90")
	f.vet(t, monday, "2", "90")
	f.vet(t, generic.Date(2025, time.March, 17), "3", "90")
	_, err := f.engine.MarkWeekPaid(f.ctx, f.worker, monday, "finance")
	require.NoError(t, err)

	page, err := f.engine.ListPayments(f.ctx, payroll.PaymentFilter{WorkerID: &f.worker}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, generic.Date(2025, time.March, 17), page.Items[0].WeekStart)

	paid := true
	page, err = f.engine.ListPayments(f.ctx, payroll.PaymentFilter{Paid: &paid}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, payroll.DefaultPageLimit, page.Limit)
	require.Len(t, page.Items, 1)
	assert.Equal(t, monday, page.Items[0].WeekStart)
}
