package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenBucketStrategy is an in-process token bucket with lazy,
// continuous refill.
//
// Each key owns a bucket of capacity MaxRequests that refills at
// MaxRequests/Window tokens per second and starts full. Every admitted
// request spends exactly one token. Time and memory are O(1) per key
// regardless of rate, and short bursts up to the capacity are allowed
// before throttling to the steady refill rate. Enforcement is not exact
// over arbitrary sub-windows: a burst straddling two window boundaries
// can momentarily exceed the nominal per-window count. That is the
// accepted cost of its efficiency.
//
// Calling SetLimit for a key that already has a bucket replaces the
// bucket, reinitializing its tokens to the new capacity. Tokens accrued
// under the old limit are lost.
type TokenBucketStrategy struct {
	defaultLimit Limit
	clock        Clock
	logger       *zap.Logger
	recorder     MetricsRecorder

	// mu guards the buckets and overrides maps; bucket creation happens
	// under mu so concurrent first access to a key yields one bucket.
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	overrides map[string]Limit
}

// tokenBucket holds one key's token balance. tokens only grows via
// refill, only shrinks by exactly 1.0 on admission, and never exceeds
// capacity.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	clock      Clock
}

// NewTokenBucket constructs a TokenBucketStrategy. Per-key buckets are
// created lazily with capacity = MaxRequests and a refill rate of
// MaxRequests/Window tokens per second, using the effective limit at
// creation time.
func NewTokenBucket(defaultLimit Limit, opts ...Option) (*TokenBucketStrategy, error) {
	if err := defaultLimit.Validate(); err != nil {
		return nil, fmt.Errorf("token bucket: %w", err)
	}
	cfg := newOptions(opts)
	return &TokenBucketStrategy{
		defaultLimit: defaultLimit,
		clock:        cfg.clock,
		logger:       cfg.logger,
		recorder:     cfg.recorder,
		buckets:      make(map[string]*tokenBucket),
		overrides:    make(map[string]Limit),
	}, nil
}

// AllowRequest refills the key's bucket for the elapsed time and admits
// the request if at least one whole token is available, spending it.
func (s *TokenBucketStrategy) AllowRequest(_ context.Context, key string) (bool, error) {
	start := time.Now()
	allowed := s.bucket(key).allow()
	recordDecision(s.recorder, s.Name(), start, allowed, nil)
	return allowed, nil
}

// GetUsage returns the tokens remaining after refill and, when no whole
// token is available, the time until one accrues.
func (s *TokenBucketStrategy) GetUsage(_ context.Context, key string) (Usage, error) {
	return s.bucket(key).usage(), nil
}

// SetLimit overrides the default limit for key and rebuilds its bucket
// immediately with the new capacity and refill rate. The replacement
// bucket starts full; token history for the key is discarded.
func (s *TokenBucketStrategy) SetLimit(key string, limit Limit) error {
	if err := limit.Validate(); err != nil {
		return fmt.Errorf("token bucket: %w", err)
	}

	s.mu.Lock()
	s.overrides[key] = limit
	s.buckets[key] = newBucket(limit, s.clock)
	s.mu.Unlock()

	s.logger.Debug("token bucket limit override installed",
		zap.String("key", key),
		zap.Int("max_requests", limit.MaxRequests),
		zap.Duration("window", limit.Window))
	return nil
}

// Name implements Strategy.
func (s *TokenBucketStrategy) Name() string { return "token_bucket" }

// bucket returns the key's bucket, creating it from the effective limit
// on first access.
func (s *TokenBucketStrategy) bucket(key string) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		limit, ok := s.overrides[key]
		if !ok {
			limit = s.defaultLimit
		}
		b = newBucket(limit, s.clock)
		s.buckets[key] = b
	}
	return b
}

func newBucket(limit Limit, clock Clock) *tokenBucket {
	capacity := float64(limit.MaxRequests)
	return &tokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: capacity / limit.Window.Seconds(),
		lastRefill: clock.Now(),
		clock:      clock,
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}

func (b *tokenBucket) usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		return Usage{Current: b.tokens}
	}

	missing := 1 - b.tokens
	return Usage{
		Current: b.tokens,
		TTL:     time.Duration(missing / b.refillRate * float64(time.Second)),
	}
}

// refill credits tokens for the time elapsed since the last refill.
// lastRefill only advances when tokens were actually gained; advancing
// it on zero-elapsed calls would silently drop fractional accrual across
// rapid successive calls. Caller must hold the bucket lock.
func (b *tokenBucket) refill() {
	now := b.clock.Now()
	added := now.Sub(b.lastRefill).Seconds() * b.refillRate
	if added > 0 {
		b.tokens = min(b.capacity, b.tokens+added)
		b.lastRefill = now
	}
}
