package support

import "time"

// Clock returns the current time. A nil Clock reads the wall clock.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// FixedClock is handy in tests.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
