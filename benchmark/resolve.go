package benchmark

import (
	"sort"
	"time"
)

// Current picks the benchmark in force at now.
//
// RESOLUTION ORDER:
//  1. Active benchmarks whose [StartDate, EndDate] contains now; the newest
//     StartDate wins when several overlap.
//  2. Otherwise the most recently started active benchmark (ties broken by
//     the latest CreatedAt).
//  3. Otherwise nil. The caller falls back to flat earnings at the default rate.
func Current(benchmarks []Benchmark, now time.Time) *Benchmark {
	var active []Benchmark
	for _, b := range benchmarks {
		if b.IsActive {
			active = append(active, b)
		}
	}
	if len(active) == 0 {
		return nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].StartDate.Equal(active[j].StartDate) {
			return active[i].StartDate.After(active[j].StartDate)
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	for i := range active {
		if active[i].Covers(now) {
			return &active[i]
		}
	}
	return &active[0]
}
