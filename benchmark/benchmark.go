/*
Package benchmark implements the valuation policy used to price worked hours.

PURPOSE:
  A Benchmark is a time-boxed policy set by an administrator. It holds the
  time and quality targets, the performance tier cut points, the multiplier
  per tier and an optional pay-per-hour override. The payment engine only
  ever reads benchmarks; entry and payment flows never mutate them.

EARNINGS MODES:
  flat:  base = hours * rate, multiplier 1, tier "flat"
  score: base = hours * rate, multiplier = BonusRates[tier],
         bonus = base * (multiplier - 1), final = base * multiplier

PERFORMANCE SCORE:
  score = avgQuality*0.6 + avgTime*0.4

  The score is a raw blend of two magnitudes (quality out of 100 and hours
  per entry) compared directly against Thresholds, which are raw magnitudes
  too. There is no percentage-of-target normalization. Do not add one
  without redefining Thresholds at the same time.

EXAMPLE:
  b := benchmark.Benchmark{
      EarningsMode: benchmark.ModeScore,
      PayPerHour:   decimal.NewFromInt(1000),
      Thresholds:   benchmark.DefaultThresholds(),
      BonusRates:   benchmark.DefaultBonusRates(),
  }
  e := b.CalculateEarnings(decimal.NewFromInt(8), decimal.NewFromInt(85), defaultRate)
  // e.Tier == TierExcellent, e.BaseEarnings == 8000, e.FinalEarnings == 9600

SEE ALSO:
  - resolve.go: Which benchmark is "current"
  - service.go: CRUD and per-call resolution
  - factory/benchmark.go: JSON definitions
*/
package benchmark

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/generic"
)

// =============================================================================
// MODES AND TIERS
// =============================================================================

type Mode string

const (
	ModeFlat  Mode = "flat"
	ModeScore Mode = "score"
)

func (m Mode) Valid() bool { return m == ModeFlat || m == ModeScore }

type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierAverage   Tier = "average"
	TierMinimum   Tier = "minimum"
	TierBelow     Tier = "below"
	TierFlat      Tier = "flat"
)

// Thresholds are descending cut points. A score belongs to the first tier
// whose threshold it meets or exceeds.
type Thresholds struct {
	Excellent decimal.Decimal
	Good      decimal.Decimal
	Average   decimal.Decimal
	Minimum   decimal.Decimal
}

// BonusRates holds the earnings multiplier per tier.
type BonusRates struct {
	Excellent decimal.Decimal
	Good      decimal.Decimal
	Average   decimal.Decimal
	Minimum   decimal.Decimal
	Below     decimal.Decimal
}

// For returns the multiplier for a tier. Unknown tiers (including flat) get 1.
func (r BonusRates) For(t Tier) decimal.Decimal {
	switch t {
	case TierExcellent:
		return r.Excellent
	case TierGood:
		return r.Good
	case TierAverage:
		return r.Average
	case TierMinimum:
		return r.Minimum
	case TierBelow:
		return r.Below
	default:
		return decimal.NewFromInt(1)
	}
}

// =============================================================================
// BENCHMARK
// =============================================================================

type Benchmark struct {
	ID               generic.BenchmarkID
	Name             string
	TimeBenchmark    decimal.Decimal // hours target
	QualityBenchmark decimal.Decimal // 0-100 target
	StartDate        time.Time
	EndDate          time.Time
	PayPerHour       decimal.Decimal // zero means "use the configured default"
	EarningsMode     Mode
	Thresholds       Thresholds
	BonusRates       BonusRates
	IsActive         bool

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Covers reports whether at falls inside [StartDate, EndDate].
func (b *Benchmark) Covers(at time.Time) bool {
	return !at.Before(b.StartDate) && !at.After(b.EndDate)
}

// HourlyRate returns PayPerHour when set and positive, else defaultRate.
func (b *Benchmark) HourlyRate(defaultRate decimal.Decimal) decimal.Decimal {
	if b != nil && b.PayPerHour.IsPositive() {
		return b.PayPerHour
	}
	return defaultRate
}

// TierFor maps a performance score onto a tier.
func (b *Benchmark) TierFor(score decimal.Decimal) Tier {
	t := b.Thresholds
	switch {
	case score.GreaterThanOrEqual(t.Excellent):
		return TierExcellent
	case score.GreaterThanOrEqual(t.Good):
		return TierGood
	case score.GreaterThanOrEqual(t.Average):
		return TierAverage
	case score.GreaterThanOrEqual(t.Minimum):
		return TierMinimum
	default:
		return TierBelow
	}
}

// Earnings is the result of pricing a week of hours.
type Earnings struct {
	HourlyRate    decimal.Decimal
	BaseEarnings  decimal.Decimal
	Multiplier    decimal.Decimal
	Tier          Tier
	BonusEarnings decimal.Decimal
	FinalEarnings decimal.Decimal
}

// FlatEarnings prices hours at rate with no performance adjustment. Used
// directly when no benchmark resolves.
func FlatEarnings(hours, rate decimal.Decimal) Earnings {
	base := generic.RoundMoney(hours.Mul(rate))
	return Earnings{
		HourlyRate:    rate,
		BaseEarnings:  base,
		Multiplier:    decimal.NewFromInt(1),
		Tier:          TierFlat,
		BonusEarnings: decimal.Zero,
		FinalEarnings: base,
	}
}

// CalculateEarnings is a pure function of its inputs plus benchmark state.
func (b *Benchmark) CalculateEarnings(hours, score, defaultRate decimal.Decimal) Earnings {
	rate := b.HourlyRate(defaultRate)
	if b == nil || b.EarningsMode != ModeScore {
		return FlatEarnings(hours, rate)
	}

	base := generic.RoundMoney(hours.Mul(rate))
	tier := b.TierFor(score)
	multiplier := b.BonusRates.For(tier)
	final := generic.RoundMoney(base.Mul(multiplier))

	return Earnings{
		HourlyRate:    rate,
		BaseEarnings:  base,
		Multiplier:    multiplier,
		Tier:          tier,
		BonusEarnings: final.Sub(base),
		FinalEarnings: final,
	}
}

// =============================================================================
// PERFORMANCE SCORE
// =============================================================================

var (
	qualityWeight = decimal.RequireFromString("0.6")
	timeWeight    = decimal.RequireFromString("0.4")
)

// PerformanceScore blends average quality and average hours per entry.
func PerformanceScore(avgQuality, avgTime decimal.Decimal) decimal.Decimal {
	return avgQuality.Mul(qualityWeight).Add(avgTime.Mul(timeWeight))
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the benchmark is internally consistent.
func (b *Benchmark) Validate() error {
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return generic.Invalid("start_date", "start and end dates are required")
	}
	if b.EndDate.Before(b.StartDate) {
		return generic.Invalid("end_date", "end date before start date")
	}
	if !b.EarningsMode.Valid() {
		return generic.Invalid("earnings_mode", `must be "flat" or "score"`)
	}
	if b.PayPerHour.IsNegative() {
		return generic.Invalid("pay_per_hour", "must not be negative")
	}
	if b.QualityBenchmark.IsNegative() || b.QualityBenchmark.GreaterThan(decimal.NewFromInt(100)) {
		return generic.Invalid("quality_benchmark", "must be between 0 and 100")
	}
	if b.TimeBenchmark.IsNegative() {
		return generic.Invalid("time_benchmark", "must not be negative")
	}

	t := b.Thresholds
	if t.Excellent.LessThan(t.Good) || t.Good.LessThan(t.Average) || t.Average.LessThan(t.Minimum) {
		return generic.Invalid("thresholds", "must be ordered excellent >= good >= average >= minimum")
	}

	if b.EarningsMode == ModeScore {
		r := b.BonusRates
		for _, rate := range []decimal.Decimal{r.Excellent, r.Good, r.Average, r.Minimum, r.Below} {
			if !rate.IsPositive() {
				return generic.Invalid("bonus_rates", "every tier needs a positive multiplier")
			}
		}
	}
	return nil
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultThresholds are the cut points used when a definition omits them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Excellent: decimal.NewFromInt(80),
		Good:      decimal.NewFromInt(70),
		Average:   decimal.NewFromInt(60),
		Minimum:   decimal.NewFromInt(50),
	}
}

// DefaultBonusRates are the multipliers used when a definition omits them.
func DefaultBonusRates() BonusRates {
	return BonusRates{
		Excellent: decimal.RequireFromString("1.2"),
		Good:      decimal.RequireFromString("1.1"),
		Average:   decimal.RequireFromString("1.0"),
		Minimum:   decimal.RequireFromString("0.9"),
		Below:     decimal.RequireFromString("0.8"),
	}
}
