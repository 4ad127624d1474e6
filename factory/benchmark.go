/*
Package factory provides JSON to Go benchmark conversion.

PURPOSE:
  Converts JSON benchmark definitions into benchmark.Benchmark values. Admins
  define pricing policy in JSON (through the API or a scenario file), and
  the factory fills in defaults and validates the result.

JSON SCHEMA:
  {
    "name": "Q1 2025",
    "time_benchmark": "8",
    "quality_benchmark": "80",
    "start_date": "2025-01-01",
    "end_date": "2025-03-31",
    "pay_per_hour": "1000",
    "earnings_mode": "score",
    "thresholds":  {"excellent": "80", "good": "70", "average": "60", "minimum": "50"},
    "bonus_rates": {"excellent": "1.2", "good": "1.1", "average": "1.0", "minimum": "0.9", "below": "0.8"},
    "is_active": true
  }

DEFAULTS:
  - earnings_mode: flat
  - thresholds / bonus_rates: benchmark.DefaultThresholds / DefaultBonusRates
  - is_active: true
  - pay_per_hour: unset, meaning the engine's configured default rate
  - end_date covers the whole day (23:59:59.999)

USAGE:
  f := factory.NewBenchmarkFactory()
  b, err := f.ParseBenchmark(jsonString)

SEE ALSO:
  - benchmark/benchmark.go: Benchmark type and earnings formula
  - api/scenarios.go: Demo benchmarks built with this factory
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Em4Michael/AirHub-Server/benchmark"
	"github.com/Em4Michael/AirHub-Server/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BenchmarkJSON is the JSON representation of a benchmark.
type BenchmarkJSON struct {
	ID               string           `json:"id,omitempty"`
	Name             string           `json:"name" validate:"required"`
	TimeBenchmark    decimal.Decimal  `json:"time_benchmark"`
	QualityBenchmark decimal.Decimal  `json:"quality_benchmark"`
	StartDate        string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	PayPerHour       *decimal.Decimal `json:"pay_per_hour,omitempty"`
	EarningsMode     string           `json:"earnings_mode,omitempty" validate:"omitempty,oneof=flat score"`
	Thresholds       *ThresholdsJSON  `json:"thresholds,omitempty"`
	BonusRates       *BonusRatesJSON  `json:"bonus_rates,omitempty"`
	IsActive         *bool            `json:"is_active,omitempty"`

	// Output only
	CreatedBy string     `json:"created_by,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ThresholdsJSON are the minimum performance scores per tier.
type ThresholdsJSON struct {
	Excellent decimal.Decimal `json:"excellent"`
	Good      decimal.Decimal `json:"good"`
	Average   decimal.Decimal `json:"average"`
	Minimum   decimal.Decimal `json:"minimum"`
}

// BonusRatesJSON are the earnings multipliers per tier.
type BonusRatesJSON struct {
	Excellent decimal.Decimal `json:"excellent"`
	Good      decimal.Decimal `json:"good"`
	Average   decimal.Decimal `json:"average"`
	Minimum   decimal.Decimal `json:"minimum"`
	Below     decimal.Decimal `json:"below"`
}

// =============================================================================
// BENCHMARK FACTORY
// =============================================================================

// BenchmarkFactory converts JSON benchmarks to Go structs.
type BenchmarkFactory struct{}

// NewBenchmarkFactory creates a new benchmark factory.
func NewBenchmarkFactory() *BenchmarkFactory {
	return &BenchmarkFactory{}
}

// ParseBenchmark parses a JSON string into a Benchmark.
func (f *BenchmarkFactory) ParseBenchmark(jsonStr string) (*benchmark.Benchmark, error) {
	var bj BenchmarkJSON
	if err := json.Unmarshal([]byte(jsonStr), &bj); err != nil {
		return nil, generic.Invalid("benchmark", fmt.Sprintf("failed to parse JSON: %v", err))
	}
	return f.FromJSON(bj)
}

// FromJSON converts BenchmarkJSON to a validated benchmark.Benchmark.
func (f *BenchmarkFactory) FromJSON(bj BenchmarkJSON) (*benchmark.Benchmark, error) {
	if err := Validate(bj); err != nil {
		return nil, err
	}

	start, err := generic.ParseDate(bj.StartDate)
	if err != nil {
		return nil, generic.Invalid("start_date", "use YYYY-MM-DD")
	}
	end, err := generic.ParseDate(bj.EndDate)
	if err != nil {
		return nil, generic.Invalid("end_date", "use YYYY-MM-DD")
	}

	b := &benchmark.Benchmark{
		ID:               generic.BenchmarkID(bj.ID),
		Name:             bj.Name,
		TimeBenchmark:    bj.TimeBenchmark,
		QualityBenchmark: bj.QualityBenchmark,
		StartDate:        start,
		EndDate:          generic.EndOfDay(end),
		PayPerHour:       decimal.Zero,
		EarningsMode:     parseMode(bj.EarningsMode),
		Thresholds:       benchmark.DefaultThresholds(),
		BonusRates:       benchmark.DefaultBonusRates(),
		IsActive:         true,
	}
	if bj.PayPerHour != nil {
		b.PayPerHour = *bj.PayPerHour
	}
	if bj.IsActive != nil {
		b.IsActive = *bj.IsActive
	}
	if bj.Thresholds != nil {
		b.Thresholds = benchmark.Thresholds{
			Excellent: bj.Thresholds.Excellent,
			Good:      bj.Thresholds.Good,
			Average:   bj.Thresholds.Average,
			Minimum:   bj.Thresholds.Minimum,
		}
	}
	if bj.BonusRates != nil {
		b.BonusRates = benchmark.BonusRates{
			Excellent: bj.BonusRates.Excellent,
			Good:      bj.BonusRates.Good,
			Average:   bj.BonusRates.Average,
			Minimum:   bj.BonusRates.Minimum,
			Below:     bj.BonusRates.Below,
		}
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// ToJSON converts a Benchmark to BenchmarkJSON.
func (f *BenchmarkFactory) ToJSON(b *benchmark.Benchmark) BenchmarkJSON {
	active := b.IsActive
	bj := BenchmarkJSON{
		ID:               string(b.ID),
		Name:             b.Name,
		TimeBenchmark:    b.TimeBenchmark,
		QualityBenchmark: b.QualityBenchmark,
		StartDate:        b.StartDate.UTC().Format(generic.DateLayout),
		EndDate:          b.EndDate.UTC().Format(generic.DateLayout),
		EarningsMode:     string(b.EarningsMode),
		Thresholds: &ThresholdsJSON{
			Excellent: b.Thresholds.Excellent,
			Good:      b.Thresholds.Good,
			Average:   b.Thresholds.Average,
			Minimum:   b.Thresholds.Minimum,
		},
		BonusRates: &BonusRatesJSON{
			Excellent: b.BonusRates.Excellent,
			Good:      b.BonusRates.Good,
			Average:   b.BonusRates.Average,
			Minimum:   b.BonusRates.Minimum,
			Below:     b.BonusRates.Below,
		},
		IsActive:  &active,
		CreatedBy: b.CreatedBy,
	}
	if b.PayPerHour.IsPositive() {
		pay := b.PayPerHour
		bj.PayPerHour = &pay
	}
	if !b.CreatedAt.IsZero() {
		created := b.CreatedAt
		bj.CreatedAt = &created
	}
	if !b.UpdatedAt.IsZero() {
		updated := b.UpdatedAt
		bj.UpdatedAt = &updated
	}
	return bj
}

func parseMode(s string) benchmark.Mode {
	if s == string(benchmark.ModeScore) {
		return benchmark.ModeScore
	}
	return benchmark.ModeFlat
}

// =============================================================================
// PRESETS
// =============================================================================

// StandardScoreBenchmarkJSON returns a score-mode benchmark with the default
// tiers.
func StandardScoreBenchmarkJSON(name, start, end string, payPerHour int64) string {
	return fmt.Sprintf(`{
		"name": %q,
		"time_benchmark": "8",
		"quality_benchmark": "80",
		"start_date": %q,
		"end_date": %q,
		"pay_per_hour": "%d",
		"earnings_mode": "score"
	}`, name, start, end, payPerHour)
}

// FlatBenchmarkJSON returns a flat-rate benchmark.
func FlatBenchmarkJSON(name, start, end string, payPerHour int64) string {
	return fmt.Sprintf(`{
		"name": %q,
		"start_date": %q,
		"end_date": %q,
		"pay_per_hour": "%d",
		"earnings_mode": "flat"
	}`, name, start, end, payPerHour)
}
