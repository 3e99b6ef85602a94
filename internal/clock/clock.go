package clock

import "time"

// Clock abstracts time for day-boundary logic so tests can pin the date.
type Clock interface {
	Now() time.Time
}

// DefaultClock implements the Clock interface using the system clock.
type DefaultClock struct{}

// Now returns the current time.
func (c *DefaultClock) Now() time.Time {
	return time.Now()
}
