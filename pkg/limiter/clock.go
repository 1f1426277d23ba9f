package limiter

import "time"

// Clock abstracts time so the in-memory strategies can be driven by a
// fake clock in tests. time.Time values returned by Now carry Go's
// monotonic reading, which all elapsed-time math in this package relies
// on; wall-clock substitutes would break eviction and refill when the
// system clock steps backward.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
