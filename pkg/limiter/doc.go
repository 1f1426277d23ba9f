// Package limiter provides pluggable request-admission control: local
// and distributed rate limiting strategies behind one interface, with a
// dispatch layer that can swap the algorithm at runtime.
//
// The primary entry point is the Strategy interface:
//
//	allowed, err := strategy.AllowRequest(ctx, key)
//
// A key is any caller-supplied identifier (user ID, API key, IP). Each
// call spends one unit of consumption when admitted. GetUsage reports a
// key's current usage together with a TTL hint for callers that want to
// set rate-limit headers (for example, Retry-After).
//
// # Strategies
//
// The package implements three algorithms with the same API:
//
//   - SlidingWindowStrategy: an exact, in-process sliding window log.
//     It stores one timestamp per admitted request, so no sequence of
//     calls can exceed the limit within any trailing window. Memory is
//     O(limit) per key.
//
//   - TokenBucketStrategy: an in-process token bucket with continuous
//     refill. O(1) time and memory per key; allows bursts up to the
//     capacity, then throttles to the steady refill rate. Enforcement is
//     approximate at window boundaries, which is the accepted trade-off
//     for its efficiency.
//
//   - RedisStrategy: the sliding window delegated to Redis via an atomic
//     Lua script, so many application instances enforce one global
//     budget per key.
//
// Recommendation: use RedisStrategy in production when you need a global
// limit, and the in-memory strategies for single-instance deployments
// and tests.
//
// # Limits and Overrides
//
// A Limit is (MaxRequests, Window). Each strategy owns a default limit
// set at construction and a per-key override table populated through
// SetLimit; overrides take precedence on the key's next access. Limits
// with a non-positive request count or window are rejected with
// ErrInvalidLimit, never clamped. Overrides can also be loaded from a
// YAML file via LoadLimits.
//
// One surprise is preserved deliberately: TokenBucketStrategy.SetLimit
// rebuilds the key's bucket immediately, so tokens accrued under the old
// limit are discarded and the bucket restarts full at the new capacity.
//
// # Switching Strategies
//
// RateLimiter holds one active strategy and forwards AllowRequest,
// GetUsage, and SetLimit to it. SetStrategy swaps the algorithm behind
// an atomic pointer, so call sites never change and never observe a
// partially-switched strategy. Per-key state is strategy-local: after a
// swap, every key starts from the new strategy's initial state.
//
// # Concurrency
//
// All strategies are safe for concurrent use. The in-memory strategies
// create per-key state under a table-level mutex and serialize each
// key's critical section with a per-key mutex, so unrelated keys do not
// contend. RedisStrategy has no local locking; correctness rests on the
// Lua script executing as a single indivisible unit on the server.
//
// # Time
//
// All elapsed-time math in the in-memory strategies uses the monotonic
// reading carried by time.Time, so a wall clock stepping backward cannot
// violate eviction or refill invariants. RedisStrategy uses wall-clock
// milliseconds for sorted-set scores because they must be comparable
// across processes. Tests can drive the in-memory strategies with a fake
// clock via WithClock.
//
// # Context and Error Policy
//
// AllowRequest and GetUsage accept a context.Context. RedisStrategy
// passes it through to Redis (bounded by the WithTimeout deadline) so
// callers can cancel work during partial outages. This package does not
// impose a "fail open" vs "fail closed" policy: if Redis is unavailable,
// the call returns a non-nil error and the caller decides whether to
// deny traffic (protect the backend) or allow it (maximize
// availability). The in-memory strategies never return errors from
// admission or usage calls.
//
// # Configuration
//
// Strategies are configured with the functional options pattern:
//
//	strategy, err := limiter.NewRedisStrategy(client, limit,
//		limiter.WithPrefix("myapp:rate:"),
//		limiter.WithTimeout(2*time.Second),
//		limiter.WithRecorder(recorder),
//		limiter.WithLogger(logger),
//	)
//
// Supported options:
//
//   - WithPrefix(string): Redis key prefix (default "ratelimit:").
//   - WithTimeout(time.Duration): per-operation timeout for Redis calls
//     (default 5s).
//   - WithRecorder(MetricsRecorder): metrics backend; a Prometheus
//     implementation is provided by NewPrometheusRecorder.
//   - WithLogger(*zap.Logger): logger (default no-op).
//   - WithClock(Clock): clock for the in-memory strategies (tests).
//
// # Limitations and Notes
//
//   - The in-memory strategies do not evict idle keys; for long-lived
//     processes with high-cardinality keys use RedisStrategy, whose keys
//     expire with the window.
//   - Every admission call has a fixed cost of 1 request/token.
//   - RedisStrategy invokes its script by SHA; if Redis is restarted and
//     the script cache is cleared, calls fail with a NOSCRIPT error
//     until the strategy is recreated.
package limiter
