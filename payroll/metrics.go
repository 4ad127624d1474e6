package payroll

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Payroll metrics ────────────────────────────────────────────────────────
// Registered on the default registry and served by api at /metrics.

var paymentUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "payroll",
	Name:      "payment_upserts_total",
	Help:      "Regular payment upserts by outcome (applied, frozen).",
}, []string{"outcome"})

var paymentsPaid = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "payroll",
	Name:      "payments_paid_total",
	Help:      "Payments marked paid, by trigger (week, bonus).",
}, []string{"trigger"})

var paidEarnings = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "payroll",
	Name:      "paid_total_earnings",
	Help:      "Total earnings of payments at the moment they are marked paid.",
	Buckets:   prometheus.ExponentialBuckets(1000, 2, 12),
})

var bonusEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "payroll",
	Name:      "bonus_events_total",
	Help:      "Bonus ledger transitions (added, merged, reset, queued).",
}, []string{"event"})

var paymentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "payroll",
	Name:      "payment_transitions_total",
	Help:      "Admin review transitions (approved, denied, updated).",
}, []string{"transition"})

var sideEffectFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "payroll",
	Name:      "side_effect_failures_total",
	Help:      "Best-effort payment refreshes that failed after an entry was vetted.",
})
