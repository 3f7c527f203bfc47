/*
accrual.go - Point accounting on settlement

PURPOSE:
  Points are earned, never scheduled: they come from paying credit sales
  on time and from breakdown sales. Point counts are whole numbers; the
  fractional part of 10 × price is dropped.

SETTLEMENT ORDER (credit sale):
  1. Accrue 10 × price if delay <= 0
  2. Apply the current tier's penalty
  3. Reclassify by thresholds

EXAMPLE:
  s := loyalty.NewStatus("alice")
  s = s.Settle(decimal.NewFromInt(250), -3) // 2500 points, Selection
  s = s.Settle(decimal.NewFromInt(100), 4)  // late: 250 points, Normal
*/
package loyalty

import "github.com/shopspring/decimal"

var pointsPerUnit = decimal.NewFromInt(10)

// EarnedPoints is 10 × price, truncated.
func EarnedPoints(price decimal.Decimal) int64 {
	return price.Mul(pointsPerUnit).IntPart()
}

// Settle returns the status after paying price with the given delay.
func (s Status) Settle(price decimal.Decimal, delay int) Status {
	if delay <= 0 {
		s.Points += EarnedPoints(price)
	}
	s.Points = s.Tier.Penalize(s.Points, delay)
	return s.Reclassify()
}

// Reward returns the status after an immediately settled breakdown sale.
func (s Status) Reward(price decimal.Decimal) Status {
	s.Points += EarnedPoints(price)
	return s.Reclassify()
}
