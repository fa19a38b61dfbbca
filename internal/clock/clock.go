// Package clock abstracts wall-clock access so the daily boundary and the
// freshness bonus can be pinned down in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// Today returns the current calendar date in the clock's local zone,
	// formatted as 2006-01-02. Quota entries are keyed by it.
	Today() string
}

type systemClock struct {
	loc *time.Location
}

func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time { return time.Now().In(c.loc) }

func (c *systemClock) Today() string { return c.Now().Format("2006-01-02") }

// Fixed is a settable clock for tests.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

func (f *Fixed) Today() string { return f.T.Format("2006-01-02") }

func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
