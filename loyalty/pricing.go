package loyalty

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/wholesale-engine/generic"
)

// =============================================================================
// PAYMENT PERIODS
// =============================================================================

// Period buckets the signed delay between today and a payment deadline.
type Period int

const (
	PeriodP1 Period = iota + 1 // delay <= -n: well ahead of the deadline
	PeriodP2                   // -n < delay <= 0: on time
	PeriodP3                   // 0 < delay <= n: slightly late
	PeriodP4                   // delay > n: late
)

func (p Period) String() string { return fmt.Sprintf("P%d", int(p)) }

// PeriodFor selects the period for delay given the product's time factor n.
func PeriodFor(delay, n int) Period {
	switch {
	case delay <= -n:
		return PeriodP1
	case delay <= 0:
		return PeriodP2
	case delay <= n:
		return PeriodP3
	default:
		return PeriodP4
	}
}

// Delay is the signed number of days between today and the deadline.
// Negative means the payment is early.
func Delay(today, deadline generic.Day) int {
	return today.Sub(deadline)
}

// =============================================================================
// PRICE - Recomputed on every read, never cached
// =============================================================================

// Price is the amount owed for a credit sale with the given base price,
// for a partner with status s, on day today, for a product with time factor n.
func Price(s Status, base decimal.Decimal, today, deadline generic.Day, n int) decimal.Decimal {
	delay := Delay(today, deadline)
	return s.Tier.Adjust(PeriodFor(delay, n), base, delay)
}
