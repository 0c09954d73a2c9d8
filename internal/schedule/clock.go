package schedule

import "time"

// Clock abstracts wall-clock reads so the same-day cutoff and past-offset
// checks can be pinned in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the real wall clock, in UTC.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the given instant. Test helper.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }
