/*
policies.go - Per-tier credit-sale price adjustments and penalties

PURPOSE:
  Each tier supplies four independent adjustment rules, one per payment
  period (see pricing.go), and a punctuality penalty applied when a credit
  sale is settled.

ADJUSTMENT TABLE (price multipliers, d = signed delay in days):

            P1      P2                  P3                    P4
  Normal    0.90    0.90                1 + 0.05d             1 + 0.10d
  Selection 0.90    0.95 if d <= -2     1 + 0.02d if d > 1    1 + 0.05d
  Elite     0.90    0.90                0.95                  1.00

PENALTIES (applied after on-time points were accrued):
  Normal:    d > 0 resets points to zero
  Selection: d > 2 keeps 10% of points (truncated)
  Elite:     none
*/
package loyalty

import (
	"github.com/shopspring/decimal"
)

var (
	tenPercentOff  = decimal.RequireFromString("0.90")
	fivePercentOff = decimal.RequireFromString("0.95")
	rateNormalP3   = decimal.RequireFromString("0.05")
	rateNormalP4   = decimal.RequireFromString("0.10")
	rateSelectP3   = decimal.RequireFromString("0.02")
	rateSelectP4   = decimal.RequireFromString("0.05")
	selectionKeeps = decimal.RequireFromString("0.10")
)

// Adjust applies the tier's rule for period to price.
func (t Tier) Adjust(period Period, price decimal.Decimal, delay int) decimal.Decimal {
	switch t {
	case TierSelection:
		return selectionAdjust(period, price, delay)
	case TierElite:
		return eliteAdjust(period, price)
	default:
		return normalAdjust(period, price, delay)
	}
}

func normalAdjust(period Period, price decimal.Decimal, delay int) decimal.Decimal {
	switch period {
	case PeriodP1, PeriodP2:
		return price.Mul(tenPercentOff)
	case PeriodP3:
		return price.Mul(surcharge(rateNormalP3, delay))
	default:
		return price.Mul(surcharge(rateNormalP4, delay))
	}
}

func selectionAdjust(period Period, price decimal.Decimal, delay int) decimal.Decimal {
	switch period {
	case PeriodP1:
		return price.Mul(tenPercentOff)
	case PeriodP2:
		if delay <= -2 {
			return price.Mul(fivePercentOff)
		}
		return price
	case PeriodP3:
		if delay > 1 {
			return price.Mul(surcharge(rateSelectP3, delay))
		}
		return price
	default:
		return price.Mul(surcharge(rateSelectP4, delay))
	}
}

func eliteAdjust(period Period, price decimal.Decimal) decimal.Decimal {
	switch period {
	case PeriodP1, PeriodP2:
		return price.Mul(tenPercentOff)
	case PeriodP3:
		return price.Mul(fivePercentOff)
	default:
		return price
	}
}

// surcharge is 1 + rate*delay.
func surcharge(rate decimal.Decimal, delay int) decimal.Decimal {
	return decimal.NewFromInt(1).Add(rate.Mul(decimal.NewFromInt(int64(delay))))
}

// Penalize applies the tier's punctuality penalty to points.
func (t Tier) Penalize(points int64, delay int) int64 {
	switch t {
	case TierNormal:
		if delay > 0 {
			return 0
		}
	case TierSelection:
		if delay > 2 {
			return decimal.NewFromInt(points).Mul(selectionKeeps).IntPart()
		}
	}
	return points
}
