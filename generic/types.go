/*
Package generic provides the domain-agnostic building blocks of the payroll engine.

PURPOSE:
  This package contains identifiers, decimal helpers, calendar math and the
  error taxonomy shared by every other package. Nothing in here knows about
  payments, bonuses or benchmarks; it only knows about days, weeks, money
  amounts and what kind of failure happened.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: Type-safe IDs so a worker ID is never passed as a payment ID
  - Decimal helpers: Parsing and rounding for money, hours and quality scores
  - NewID: Random identifiers for newly created records

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift in pay math
  2. Type Safety: Strong typing for IDs prevents mixing record kinds
  3. Purity: No I/O anywhere in this package

SEE ALSO:
  - period.go: Week boundaries and week numbering (payment key derivation)
  - errors.go: NotFound / InvalidState / Validation taxonomy
*/
package generic

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkerID string
type ProfileID string
type EntryID string
type PaymentID string
type BonusID string
type BenchmarkID string

// NewID returns a random identifier suitable for any record kind.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MoneyPlaces is the number of decimal places money amounts are rounded to.
const MoneyPlaces = 2

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDecimalOrZero treats the empty string as zero. Used when reading
// nullable TEXT columns back from storage.
func ParseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return MustParseDecimal(s)
}

// RoundMoney rounds half away from zero to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
