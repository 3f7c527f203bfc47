/*
Package loyalty implements the partner Status state machine.

PURPOSE:
  Every partner carries a Status: a loyalty tier plus an accumulated point
  count. The tier decides how favorably a deferred (credit) sale is priced
  and how harshly late payment is punished. Points decide the tier.

TIERS:
  Normal:    points < 2000
  Selection: 2000 <= points < 25000
  Elite:     points >= 25000

  Lower bounds are inclusive. Promotion and demotion share the same
  threshold function (Classify).

LIFECYCLE:
  1. Partner registers: Normal, 0 points
  2. Pays a credit sale on time: +10 points per unit of price paid
  3. Pays late: tier penalty (Normal loses everything, Selection keeps 10%
     when more than 2 days late, Elite keeps everything)
  4. Reclassify by thresholds

  Status is a value. Settling returns the replacement Status; the point
  count carries over while the tier tag changes.

SEE ALSO:
  - policies.go: Per-tier P1..P4 price adjustments and penalties
  - pricing.go: Period selection and the pure Price function
  - accrual.go: Settle / Reward point accounting
*/
package loyalty

import (
	"fmt"

	"github.com/warp/wholesale-engine/generic"
)

// =============================================================================
// TIER
// =============================================================================

// Tier is the loyalty classification. The set is closed.
type Tier int

const (
	TierNormal Tier = iota
	TierSelection
	TierElite
)

func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "NORMAL"
	case TierSelection:
		return "SELECTION"
	case TierElite:
		return "ELITE"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier is the inverse of String.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "NORMAL":
		return TierNormal, nil
	case "SELECTION":
		return TierSelection, nil
	case "ELITE":
		return TierElite, nil
	}
	return TierNormal, fmt.Errorf("unknown tier %q", s)
}

// Point thresholds, inclusive lower bounds.
const (
	SelectionThreshold int64 = 2000
	EliteThreshold     int64 = 25000
)

// Classify maps a point count to its tier.
func Classify(points int64) Tier {
	switch {
	case points >= EliteThreshold:
		return TierElite
	case points >= SelectionThreshold:
		return TierSelection
	default:
		return TierNormal
	}
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the live loyalty record of one partner. Partner is a key into
// the warehouse registry, not a reference.
type Status struct {
	Partner generic.PartnerKey
	Tier    Tier
	Points  int64
}

// NewStatus is the starting status of a newly registered partner.
func NewStatus(partner generic.PartnerKey) Status {
	return Status{Partner: partner, Tier: TierNormal}
}

// Reclassify returns the status with its tier recomputed from points.
func (s Status) Reclassify() Status {
	s.Tier = Classify(s.Points)
	return s
}

func (s Status) String() string {
	return fmt.Sprintf("%s|%d", s.Tier, s.Points)
}
