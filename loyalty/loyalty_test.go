package loyalty_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/loyalty"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func status(tier loyalty.Tier, points int64) loyalty.Status {
	return loyalty.Status{Partner: "p", Tier: tier, Points: points}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestClassify_Thresholds(t *testing.T) {
	cases := []struct {
		points int64
		want   loyalty.Tier
	}{
		{0, loyalty.TierNormal},
		{1999, loyalty.TierNormal},
		{2000, loyalty.TierSelection},
		{24999, loyalty.TierSelection},
		{25000, loyalty.TierElite},
		{1000000, loyalty.TierElite},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, loyalty.Classify(tc.points), "points=%d", tc.points)
	}
}

func TestTier_StringRoundTrip(t *testing.T) {
	for _, tier := range []loyalty.Tier{loyalty.TierNormal, loyalty.TierSelection, loyalty.TierElite} {
		parsed, err := loyalty.ParseTier(tier.String())
		assert.NoError(t, err)
		assert.Equal(t, tier, parsed)
	}
	_, err := loyalty.ParseTier("GOLD")
	assert.Error(t, err)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestPeriodFor_Boundaries(t *testing.T) {
	// n = 5 (simple product)
	assert.Equal(t, loyalty.PeriodP1, loyalty.PeriodFor(-10, 5))
	assert.Equal(t, loyalty.PeriodP1, loyalty.PeriodFor(-5, 5))
	assert.Equal(t, loyalty.PeriodP2, loyalty.PeriodFor(-4, 5))
	assert.Equal(t, loyalty.PeriodP2, loyalty.PeriodFor(0, 5))
	assert.Equal(t, loyalty.PeriodP3, loyalty.PeriodFor(1, 5))
	assert.Equal(t, loyalty.PeriodP3, loyalty.PeriodFor(5, 5))
	assert.Equal(t, loyalty.PeriodP4, loyalty.PeriodFor(6, 5))

	// n = 3 (aggregate product)
	assert.Equal(t, loyalty.PeriodP1, loyalty.PeriodFor(-3, 3))
	assert.Equal(t, loyalty.PeriodP4, loyalty.PeriodFor(4, 3))
}

// =============================================================================
// ADJUSTMENT TABLES
// =============================================================================

func TestAdjust_Normal(t *testing.T) {
	base := dec("100")
	n := loyalty.TierNormal

	assert.True(t, dec("90").Equal(n.Adjust(loyalty.PeriodP1, base, -8)))
	assert.True(t, dec("90").Equal(n.Adjust(loyalty.PeriodP2, base, -1)))
	assert.True(t, dec("115").Equal(n.Adjust(loyalty.PeriodP3, base, 3)))
	assert.True(t, dec("170").Equal(n.Adjust(loyalty.PeriodP4, base, 7)))
}

func TestAdjust_Selection(t *testing.T) {
	base := dec("100")
	s := loyalty.TierSelection

	assert.True(t, dec("90").Equal(s.Adjust(loyalty.PeriodP1, base, -9)))
	assert.True(t, dec("95").Equal(s.Adjust(loyalty.PeriodP2, base, -2)))
	assert.True(t, dec("100").Equal(s.Adjust(loyalty.PeriodP2, base, -1)), "no discount right at the deadline")
	assert.True(t, dec("100").Equal(s.Adjust(loyalty.PeriodP3, base, 1)), "one day of grace")
	assert.True(t, dec("106").Equal(s.Adjust(loyalty.PeriodP3, base, 3)))
	assert.True(t, dec("140").Equal(s.Adjust(loyalty.PeriodP4, base, 8)))
}

func TestAdjust_Elite(t *testing.T) {
	base := dec("100")
	e := loyalty.TierElite

	assert.True(t, dec("90").Equal(e.Adjust(loyalty.PeriodP1, base, -9)))
	assert.True(t, dec("90").Equal(e.Adjust(loyalty.PeriodP2, base, 0)))
	assert.True(t, dec("95").Equal(e.Adjust(loyalty.PeriodP3, base, 2)))
	assert.True(t, dec("100").Equal(e.Adjust(loyalty.PeriodP4, base, 30)))
}

func TestPrice_UsesProductTimeFactor(t *testing.T) {
	// GIVEN: deadline day 10, today day 14 (4 days late)
	// WHEN: n=5 the sale is in P3, n=3 it is in P4
	s := status(loyalty.TierNormal, 0)
	base := dec("200")

	simple := loyalty.Price(s, base, generic.Day(14), generic.Day(10), 5)
	aggregate := loyalty.Price(s, base, generic.Day(14), generic.Day(10), 3)

	assert.True(t, dec("240").Equal(simple), "P3: 200 * 1.20, got %s", simple)
	assert.True(t, dec("280").Equal(aggregate), "P4: 200 * 1.40, got %s", aggregate)
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestSettle_OnTimeAccruesAndPromotes(t *testing.T) {
	s := loyalty.NewStatus("p").Settle(dec("200"), 0)

	assert.Equal(t, int64(2000), s.Points)
	assert.Equal(t, loyalty.TierSelection, s.Tier)
}

func TestSettle_FractionalPointsTruncated(t *testing.T) {
	s := loyalty.NewStatus("p").Settle(dec("12.34"), -1)

	assert.Equal(t, int64(123), s.Points)
}

func TestSettle_NormalLateResetsPoints(t *testing.T) {
	s := status(loyalty.TierNormal, 1500).Settle(dec("50"), 1)

	assert.Equal(t, int64(0), s.Points)
	assert.Equal(t, loyalty.TierNormal, s.Tier)
}

func TestSettle_SelectionSlightlyLateKeepsPoints(t *testing.T) {
	s := status(loyalty.TierSelection, 5000).Settle(dec("50"), 2)

	assert.Equal(t, int64(5000), s.Points, "late payments earn nothing but 2 days is not penalized")
	assert.Equal(t, loyalty.TierSelection, s.Tier)
}

func TestSettle_SelectionLateKeepsTenPercentAndDemotes(t *testing.T) {
	s := status(loyalty.TierSelection, 5005).Settle(dec("50"), 3)

	assert.Equal(t, int64(500), s.Points)
	assert.Equal(t, loyalty.TierNormal, s.Tier)
}

func TestSettle_EliteNeverPenalized(t *testing.T) {
	s := status(loyalty.TierElite, 30000).Settle(dec("50"), 40)

	assert.Equal(t, int64(30000), s.Points)
	assert.Equal(t, loyalty.TierElite, s.Tier)
}

func TestReward_BreakdownAccrues(t *testing.T) {
	s := status(loyalty.TierSelection, 24000).Reward(dec("100"))

	assert.Equal(t, int64(25000), s.Points)
	assert.Equal(t, loyalty.TierElite, s.Tier)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "SELECTION|2500", status(loyalty.TierSelection, 2500).String())
}
