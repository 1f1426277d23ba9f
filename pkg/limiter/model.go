package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidLimit is returned when a limit with a non-positive request
// count or window is passed to a constructor or SetLimit. Malformed
// limits are rejected outright, never clamped.
var ErrInvalidLimit = errors.New("invalid rate limit")

// Limit defines an admission policy: at most MaxRequests per Window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Validate reports whether the limit is well-formed.
func (l Limit) Validate() error {
	if l.MaxRequests < 1 {
		return fmt.Errorf("%w: max requests must be >= 1, got %d", ErrInvalidLimit, l.MaxRequests)
	}
	if l.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidLimit, l.Window)
	}
	return nil
}

// Usage is a point-in-time snapshot of a key's rate-limit state.
//
// Current is a request count for the sliding-window strategies and the
// number of tokens remaining for the token bucket. TTL is how long until
// the state next changes in the caller's favor (the oldest window entry
// expires, or the next whole token accrues); it is zero when the state
// is already favorable.
type Usage struct {
	Current float64
	TTL     time.Duration
}

// Strategy is the contract every rate limiting algorithm satisfies.
//
// Implementations are safe for concurrent use. The in-memory strategies
// never fail; RedisStrategy returns transport errors verbatim and makes
// no fail-open or fail-closed decision on the caller's behalf.
type Strategy interface {
	// AllowRequest admits or rejects one unit of consumption for key,
	// mutating that key's state exactly once per call.
	AllowRequest(ctx context.Context, key string) (bool, error)

	// GetUsage reports the key's current usage. It is read-only apart
	// from the lazy cleanup or refill the algorithm requires.
	GetUsage(ctx context.Context, key string) (Usage, error)

	// SetLimit installs a per-key override that takes precedence over
	// the strategy's default. It does not retroactively alter history
	// already recorded for the key.
	SetLimit(key string, limit Limit) error

	// Name identifies the algorithm ("sliding_window", "token_bucket",
	// "redis_sliding_window").
	Name() string
}
