/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Workers are created
	- Benchmarks are created and resolve as current
	- Vetted entries produce the expected weekly payments
	- Bonuses and payouts land where the scenario says

These tests double as integration tests of the engine on SQLite.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
)

func setupTestHandler(t *testing.T) *Handler {
	return newTestServer(t).h
}

func paymentsFor(t *testing.T, h *Handler, workerID generic.WorkerID) []payroll.WeeklyPayment {
	t.Helper()
	page, err := h.Engine.ListPayments(context.Background(), payroll.PaymentFilter{WorkerID: &workerID}, 1, 50)
	require.NoError(t, err)
	return page.Items
}

func TestScenario_FlatWeek(t *testing.T) {
	// GIVEN: flat-week scenario
	// WHEN: Loading the scenario
	// THEN: last week holds one record of 40h at 600/h
	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadScenario(ctx, "flat-week"))

	workers, err := h.Store.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)

	ps := paymentsFor(t, h, "wrk-ada")
	require.Len(t, ps, 1)
	assert.Equal(t, generic.Date(2025, 3, 3), ps[0].WeekStart)
	assert.Equal(t, 5, ps[0].EntryCount)
	assertMoney(t, 24000, ps[0].TotalEarnings, "total")
	assert.Equal(t, payroll.StatusPending, ps[0].Status)
}

func TestScenario_ScoreTiers(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadScenario(ctx, "score-tiers"))

	bm, err := h.Benchmarks.ResolveCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, bm)

	want := map[generic.WorkerID]string{
		"wrk-grace": "excellent",
		"wrk-linus": "average",
		"wrk-ken":   "below",
	}
	for id, tier := range want {
		ps := paymentsFor(t, h, id)
		require.Len(t, ps, 1, id)
		assert.Equal(t, tier, ps[0].Tier, id)
		assert.Equal(t, generic.Date(2025, 3, 10), ps[0].WeekStart)
	}

	// 24h at 1000/h, excellent x1.2
	grace := paymentsFor(t, h, "wrk-grace")[0]
	assertMoney(t, 24000, grace.BaseEarnings, "base")
	assertMoney(t, 28800, grace.TotalEarnings, "total")
}

func TestScenario_BonusLedger(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadScenario(ctx, "bonus-ledger"))

	// Newest week first: open current week, then the paid one.
	ps := paymentsFor(t, h, "wrk-margaret")
	require.Len(t, ps, 2)
	assert.Equal(t, payroll.StatusPending, ps[0].Status)
	assertMoney(t, 7500, ps[0].TotalEarnings, "open week")
	assert.Equal(t, payroll.StatusPaid, ps[1].Status)
	assertMoney(t, 11000, ps[1].TotalEarnings, "paid week")

	margaret, err := h.Engine.GetWorker(ctx, "wrk-margaret")
	require.NoError(t, err)
	assertMoney(t, 1250, margaret.PendingBonus, "pending cache")
	assert.Equal(t, "apollo launch; peer nomination", margaret.PendingBonusReason)

	// Alan has no payment to merge into.
	res, err := h.Engine.PayPendingBonus(ctx, "wrk-alan", "ops")
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assertMoney(t, 800, res.Amount, "queued amount")

	// Margaret's bonuses land in the open week.
	res, err = h.Engine.PayPendingBonus(ctx, "wrk-margaret", "ops")
	require.NoError(t, err)
	require.NotNil(t, res.Payment)
	assert.Equal(t, ps[0].ID, res.Payment.ID)
	assertMoney(t, 8750, res.Payment.TotalEarnings, "settled")
}

func TestScenario_SundayWeeks(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadScenario(ctx, "sunday-weeks"))

	ps := paymentsFor(t, h, "wrk-barbara")
	require.Len(t, ps, 1, "Sunday through Saturday is one week")
	assert.Equal(t, generic.Date(2025, 3, 2), ps[0].WeekStart)
	assert.Equal(t, 0, ps[0].WeekStartDay)
	assert.Equal(t, 7, ps[0].EntryCount)
	assertMoney(t, 24000, ps[0].TotalEarnings, "48h at 500")
}

func TestScenario_ReloadReplacesData(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.loadScenario(ctx, "score-tiers"))
	require.NoError(t, h.loadScenario(ctx, "flat-week"))

	workers, err := h.Store.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Len(t, workers, 1)

	bs, err := h.Benchmarks.List(ctx)
	require.NoError(t, err)
	assert.Len(t, bs, 1)
}

func TestLoadScenario_HTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScenarioDTO](t, rec), len(scenarios))

	rec = s.do("POST", "/api/scenarios/load", map[string]any{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do("POST", "/api/scenarios/load", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("POST", "/api/scenarios/load", map[string]any{"scenario_id": "bonus-ledger"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do("GET", "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bonus-ledger", decodeBody[ScenarioDTO](t, rec).ID)

	rec = s.do("POST", "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do("GET", "/api/workers", nil)
	assert.Empty(t, decodeBody[[]WorkerDTO](t, rec))
}

func TestRepricingScheduler_SweepsOpenWeeks(t *testing.T) {
	// GIVEN: an open week priced without a benchmark, and a paid week
	s := newTestServer(t)
	s.createWorker("open")
	s.createWorker("paid")
	s.createWorker("idle")
	s.submitAndVet("open", "2025-03-10", "8", "90")
	s.submitAndVet("paid", "2025-03-10", "8", "90")
	rec := s.do("POST", "/api/workers/paid/weeks/paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: a benchmark switches the rate mid-week and the sweep runs
	rec = s.do("POST", "/api/benchmarks", `{"name": "Raise", "start_date": "2025-03-01", "end_date": "2025-03-31", "pay_per_hour": "800"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	n := NewRepricingScheduler(s.h).Sweep(context.Background())

	// THEN: only the open week is repriced; idle workers get no record
	assert.Equal(t, 1, n)
	assertMoney(t, 6400, s.onlyPayment("open").TotalEarnings, "repriced")
	assertMoney(t, 4000, s.onlyPayment("paid").TotalEarnings, "paid week frozen")
	assert.Empty(t, paymentsFor(t, s.h, "idle"))
}

func TestRepricingScheduler_StartStop(t *testing.T) {
	rs := NewRepricingScheduler(setupTestHandler(t))
	rs.Enabled = false
	rs.Start()
	rs.Stop()

	rs.Enabled = true
	rs.Start()
	rs.Start()
	rs.Stop()
	rs.Stop()
}
