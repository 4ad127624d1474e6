package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/generic"
)

// =============================================================================
// STATS - Reduction of a worker's approved entries over a window
// =============================================================================

type Stats struct {
	TotalHours decimal.Decimal
	AvgQuality decimal.Decimal
	AvgTime    decimal.Decimal
	EntryCount int
}

// PerformanceScore is the raw quality/time blend used to pick a tier.
func (s Stats) PerformanceScore() decimal.Decimal {
	return benchmark.PerformanceScore(s.AvgQuality, s.AvgTime)
}

// Aggregate reduces entries to Stats. Only admin-approved entries dated
// inside [from, to] count; each contributes its effective (vetted) values.
// An empty window is all zeros, not an error.
func Aggregate(entries []Entry, from, to time.Time) Stats {
	window := generic.Period{Start: from, End: to}
	hours := decimal.Zero
	quality := decimal.Zero
	count := 0

	for _, e := range entries {
		if !e.AdminApproved || !window.Contains(e.Date) {
			continue
		}
		hours = hours.Add(e.EffectiveHours())
		quality = quality.Add(e.EffectiveQuality())
		count++
	}

	if count == 0 {
		return Stats{TotalHours: decimal.Zero, AvgQuality: decimal.Zero, AvgTime: decimal.Zero}
	}
	n := decimal.NewFromInt(int64(count))
	return Stats{
		TotalHours: hours,
		AvgQuality: quality.Div(n),
		AvgTime:    hours.Div(n),
		EntryCount: count,
	}
}

// =============================================================================
// AGGREGATOR - Loads entries from the store and reduces them
// =============================================================================

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// ApprovedStats aggregates the worker's approved entries within [from, to].
func (a *Aggregator) ApprovedStats(ctx context.Context, workerID generic.WorkerID, from, to time.Time) (Stats, error) {
	entries, err := a.store.LoadEntries(ctx, workerID, from, to)
	if err != nil {
		return Stats{}, err
	}
	return Aggregate(entries, from, to), nil
}
