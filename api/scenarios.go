/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a benchmark, workers,
	and vetted entries, and some go on to pay weeks and grant bonuses, all
	through the same engine calls the API uses.

AVAILABLE SCENARIOS:

	flat-week:     One worker, flat-rate benchmark, a fully vetted week
	score-tiers:   Score benchmark, three workers landing in different tiers
	bonus-ledger:  A paid week, an open week with pending bonuses, and a
	               worker whose bonus has no unpaid week to merge into
	sunday-weeks:  A worker whose payment weeks start on Sunday

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the benchmark via factory
 3. Register workers
 4. Submit entries and vet them (which upserts the weekly payments)
 5. Optionally grant bonuses and pay weeks

DATES:

	Everything is anchored on the handler clock, so a scenario loaded today
	always has a current week and a previous week to look at.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "bonus-ledger"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to loadScenario

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler wiring
  - factory/benchmark.go: Benchmark JSON presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/factory"
	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "flat-week",
		Name:        "Flat Week",
		Description: "Flat-rate benchmark, one worker with five vetted days last week",
		Category:    "payments",
	},
	{
		ID:          "score-tiers",
		Name:        "Score Tiers",
		Description: "Score benchmark pricing three workers into excellent, average and below tiers",
		Category:    "payments",
	},
	{
		ID:          "bonus-ledger",
		Name:        "Bonus Ledger",
		Description: "Paid previous week, open current week with pending bonuses, and a queued bonus",
		Category:    "bonuses",
	},
	{
		ID:          "sunday-weeks",
		Name:        "Sunday Weeks",
		Description: "Worker whose payment weeks run Sunday to Saturday",
		Category:    "weeks",
	},
}

const (
	scenarioActor   = "scenario"
	scenarioProfile = generic.ProfileID("profile-alpha")
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := findScenario(req.ScenarioID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""

	var err error
	switch id {
	case "flat-week":
		err = h.loadFlatWeekScenario(ctx)
	case "score-tiers":
		err = h.loadScoreTiersScenario(ctx)
	case "bonus-ledger":
		err = h.loadBonusLedgerScenario(ctx)
	case "sunday-weeks":
		err = h.loadSundayWeeksScenario(ctx)
	default:
		err = fmt.Errorf("unknown scenario %q", id)
	}
	if err != nil {
		return err
	}

	h.currentScenario = id
	return nil
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFlatWeekScenario(ctx context.Context) error {
	start, end := h.benchmarkWindow()
	if err := h.createBenchmark(ctx, factory.FlatBenchmarkJSON("Flat 600", start, end, 600)); err != nil {
		return err
	}

	if err := h.registerWorker(ctx, "wrk-ada", "Ada Lovelace", 1); err != nil {
		return err
	}

	// 5 x 8h at 600/h = 24000
	lastWeek := generic.ResolveWeek(h.now().AddDate(0, 0, -7), 1)
	return h.seedWeek(ctx, "wrk-ada", lastWeek, []dayLog{
		{8, 85}, {8, 90}, {8, 80}, {8, 88}, {8, 92},
	})
}

func (h *Handler) loadScoreTiersScenario(ctx context.Context) error {
	start, end := h.benchmarkWindow()
	// Cut points sized for the raw quality*0.6 + hours*0.4 blend.
	benchmarkJSON := fmt.Sprintf(`{
		"name": "Score Q",
		"time_benchmark": "8",
		"quality_benchmark": "85",
		"start_date": %q,
		"end_date": %q,
		"pay_per_hour": "1000",
		"earnings_mode": "score",
		"thresholds": {"excellent": "60", "good": "55", "average": "50", "minimum": "45"}
	}`, start, end)
	if err := h.createBenchmark(ctx, benchmarkJSON); err != nil {
		return err
	}

	week := generic.ResolveWeek(h.now(), 1)
	workers := []struct {
		id, name string
		day      dayLog
	}{
		{"wrk-grace", "Grace Hopper", dayLog{8, 95}},   // 60.2 excellent
		{"wrk-linus", "Linus Torvalds", dayLog{7, 85}}, // 53.8 average
		{"wrk-ken", "Ken Thompson", dayLog{6, 70}},     // 44.4 below
	}
	for _, wk := range workers {
		if err := h.registerWorker(ctx, wk.id, wk.name, 1); err != nil {
			return err
		}
		if err := h.seedWeek(ctx, generic.WorkerID(wk.id), week, []dayLog{wk.day, wk.day, wk.day}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBonusLedgerScenario(ctx context.Context) error {
	start, end := h.benchmarkWindow()
	if err := h.createBenchmark(ctx, factory.FlatBenchmarkJSON("Flat 500", start, end, 500)); err != nil {
		return err
	}

	if err := h.registerWorker(ctx, "wrk-margaret", "Margaret Hamilton", 1); err != nil {
		return err
	}
	if err := h.registerWorker(ctx, "wrk-alan", "Alan Turing", 1); err != nil {
		return err
	}

	// Previous week: worked, vetted and paid.
	lastWeekDate := h.now().AddDate(0, 0, -7)
	lastWeek := generic.ResolveWeek(lastWeekDate, 1)
	if err := h.seedWeek(ctx, "wrk-margaret", lastWeek, []dayLog{{8, 90}, {8, 90}, {6, 85}}); err != nil {
		return err
	}
	if _, err := h.Engine.MarkWeekPaid(ctx, "wrk-margaret", lastWeekDate, scenarioActor); err != nil {
		return err
	}

	// Current week: open, with bonuses waiting for the next payout.
	thisWeek := generic.ResolveWeek(h.now(), 1)
	if err := h.seedWeek(ctx, "wrk-margaret", thisWeek, []dayLog{{7, 88}, {8, 91}}); err != nil {
		return err
	}
	ledger := h.Engine.Bonuses()
	if _, err := ledger.Add(ctx, "wrk-margaret", decimal.NewFromInt(1000), "apollo launch", scenarioActor); err != nil {
		return err
	}
	if _, err := ledger.Add(ctx, "wrk-margaret", decimal.NewFromInt(250), "peer nomination", scenarioActor); err != nil {
		return err
	}

	// No entries at all: paying this bonus leaves it queued.
	_, err := ledger.Add(ctx, "wrk-alan", decimal.NewFromInt(800), "referral", scenarioActor)
	return err
}

func (h *Handler) loadSundayWeeksScenario(ctx context.Context) error {
	start, end := h.benchmarkWindow()
	if err := h.createBenchmark(ctx, factory.FlatBenchmarkJSON("Flat 500", start, end, 500)); err != nil {
		return err
	}

	if err := h.registerWorker(ctx, "wrk-barbara", "Barbara Liskov", 0); err != nil {
		return err
	}
	// Sunday through Saturday land in one record.
	week := generic.ResolveWeek(h.now().AddDate(0, 0, -7), 0)
	return h.seedWeek(ctx, "wrk-barbara", week, []dayLog{
		{4, 80}, {8, 85}, {8, 85}, {8, 85}, {8, 85}, {8, 85}, {4, 80},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// dayLog is one day of submitted hours and quality.
type dayLog struct {
	hours   int64
	quality int64
}

// benchmarkWindow returns start and end dates covering the scenario weeks.
func (h *Handler) benchmarkWindow() (string, string) {
	now := h.now()
	return formatDate(now.AddDate(0, 0, -90)), formatDate(now.AddDate(0, 0, 90))
}

func (h *Handler) createBenchmark(ctx context.Context, jsonStr string) error {
	b, err := h.BenchmarkFactory.ParseBenchmark(jsonStr)
	if err != nil {
		return err
	}
	_, err = h.Benchmarks.Create(ctx, *b, scenarioActor)
	return err
}

func (h *Handler) registerWorker(ctx context.Context, id, name string, weekStartDay int) error {
	_, err := h.Engine.RegisterWorker(ctx, payroll.Worker{
		ID:           generic.WorkerID(id),
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", id),
		WeekStartDay: weekStartDay,
	})
	return err
}

// seedWeek submits one entry per day from the week start and approves each.
func (h *Handler) seedWeek(ctx context.Context, workerID generic.WorkerID, week generic.Week, days []dayLog) error {
	for i, d := range days {
		entry, err := h.Engine.SubmitEntry(ctx, payroll.Entry{
			WorkerID:  workerID,
			ProfileID: scenarioProfile,
			Date:      week.Start.AddDate(0, 0, i),
			Time:      decimal.NewFromInt(d.hours),
			Quality:   decimal.NewFromInt(d.quality),
		})
		if err != nil {
			return err
		}
		if _, err := h.Engine.VetEntry(ctx, entry.ID, payroll.Vetting{Approved: true}, scenarioActor); err != nil {
			return err
		}
	}
	return nil
}
