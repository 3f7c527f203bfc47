package generic

import "strconv"

// =============================================================================
// DAY - Simulated calendar (a plain day counter)
// =============================================================================

// Day is a point on the simulated timeline. Day 0 is the start of the run.
type Day int

// Sub returns the signed number of days from other to d.
func (d Day) Sub(other Day) int { return int(d) - int(other) }

func (d Day) AddDays(n int) Day { return d + Day(n) }

func (d Day) Before(other Day) bool { return d < other }
func (d Day) After(other Day) bool  { return d > other }

func (d Day) String() string { return strconv.Itoa(int(d)) }

// =============================================================================
// CLOCK - Owned by the warehouse, advanced only by explicit calls
// =============================================================================

// Clock holds the current simulated day. It only moves forward.
type Clock struct {
	now Day
}

func NewClock(start Day) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() Day { return c.now }

// Advance moves the clock forward by days, which must be positive.
func (c *Clock) Advance(days int) error {
	if days <= 0 {
		return &InvalidDateIncrementError{Increment: days}
	}
	c.now = c.now.AddDays(days)
	return nil
}
