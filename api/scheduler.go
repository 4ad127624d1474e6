/*
scheduler.go - Periodic repricing of open payment weeks

PURPOSE:
  Payments are recomputed whenever an entry is vetted. If an admin switches
  the active benchmark mid-week and nobody vets anything afterwards, the
  open week keeps the old price until the next vetting. The scheduler closes
  that gap by refreshing every worker's current week on an interval.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only touches weeks that already have a regular record; it never creates
    empty payments for idle workers
  - Paid weeks are skipped (the upsert would leave them unchanged anyway)
  - Failures are logged per worker and never stop the sweep

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRepricingScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - payroll/engine.go: RefreshWeek
  - benchmark/service.go: ResolveCurrent re-reads storage on every call
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// RepricingScheduler refreshes open payment weeks in the background.
type RepricingScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRepricingScheduler creates a new scheduler.
func NewRepricingScheduler(handler *Handler) *RepricingScheduler {
	return &RepricingScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (rs *RepricingScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight sweep.
func (rs *RepricingScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RepricingScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.Sweep(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// Sweep refreshes the current week of every worker that has an open regular
// record for it. Returns how many records were refreshed.
func (rs *RepricingScheduler) Sweep(ctx context.Context) int {
	h := rs.Handler
	now := h.now()

	workers, err := h.Store.ListWorkers(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing workers: %v", err)
		return 0
	}

	refreshed, skipped := 0, 0
	for _, wk := range workers {
		week := generic.ResolveWeek(now, wk.WeekStartDay)

		existing, err := h.Store.GetRegularPayment(ctx, wk.ID, week.Start)
		if err != nil {
			log.Printf("[Scheduler] Error loading week %s for %s: %v", week, wk.ID, err)
			continue
		}
		if existing == nil || existing.Frozen() {
			skipped++
			continue
		}

		if _, err := h.Engine.RefreshWeek(ctx, wk.ID, now); err != nil {
			log.Printf("[Scheduler] Error repricing week %s for %s: %v", week, wk.ID, err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		log.Printf("[Scheduler] Completed: %d repriced, %d skipped", refreshed, skipped)
	}
	return refreshed
}
