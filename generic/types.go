/*
Package generic provides the domain-agnostic primitives of the wholesale engine.

PURPOSE:
  This package contains the building blocks the warehouse orchestrator is
  assembled from: keys, prices, the simulated clock, the price-ordered
  stock ledger and the error taxonomy. Nothing in here knows about partners'
  loyalty tiers or transaction kinds.

KEY CONCEPTS IN THIS FILE (types.go):
  - Key: A case-insensitive registry key (products, partners)
  - TransactionID: Global, monotonic transaction identifier
  - Price helpers: decimal.Decimal everywhere a price or balance appears

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift in balances
  2. Type Safety: Distinct key types prevent mixing product and partner keys
  3. Identity by key: entities refer to each other through keys, never pointers

USAGE:
  price := generic.NewPrice(12.5)
  total := generic.Total(price, 4) // 50

SEE ALSO:
  - ledger.go: Batches and the StockLedger
  - time.go: The simulated Clock
  - errors.go: Typed failure signals
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// KEYS
// =============================================================================

// ProductKey identifies a product. Comparison is case-insensitive.
type ProductKey string

// PartnerKey identifies a partner. Comparison is case-insensitive.
type PartnerKey string

// TransactionID is assigned by the warehouse at registration and never reused.
type TransactionID int

// Normalize returns the registry form of the key.
func (k ProductKey) Normalize() string { return strings.ToLower(string(k)) }

// Normalize returns the registry form of the key.
func (k PartnerKey) Normalize() string { return strings.ToLower(string(k)) }

// Equal reports whether two product keys name the same product.
func (k ProductKey) Equal(other ProductKey) bool { return strings.EqualFold(string(k), string(other)) }

// Equal reports whether two partner keys name the same partner.
func (k PartnerKey) Equal(other PartnerKey) bool { return strings.EqualFold(string(k), string(other)) }

// CompareKeys orders keys case-insensitively, falling back to the raw
// string so that the order stays total.
func CompareKeys(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// =============================================================================
// PRICES
// =============================================================================

func NewPrice(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

func NewPriceFromInt(value int) decimal.Decimal {
	return decimal.NewFromInt(int64(value))
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Total is unit price × quantity.
func Total(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// Rounded renders a price the way records display it: rounded to the
// nearest integer, halves away from zero.
func Rounded(d decimal.Decimal) string {
	return d.Round(0).String()
}

// MaxDecimal returns the larger of a and b.
func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
