package limiter

import (
	"context"
	"sync/atomic"
)

// RateLimiter holds one active Strategy and forwards every call to it,
// so call sites stay fixed while the algorithm behind them changes.
//
// SetStrategy swaps the active strategy atomically: a call observes
// either the old strategy or the new one, never a torn reference.
// In-flight calls already inside the previous strategy complete against
// it. Per-key state is strategy-local and is not migrated, so after a
// swap every key starts from the new strategy's initial state.
type RateLimiter struct {
	current atomic.Pointer[strategyHolder]
}

// strategyHolder wraps the interface value so the dispatch pointer has a
// single concrete type to swap.
type strategyHolder struct {
	strategy Strategy
}

// NewRateLimiter constructs a RateLimiter dispatching to strategy.
// strategy must not be nil.
func NewRateLimiter(strategy Strategy) *RateLimiter {
	if strategy == nil {
		panic("limiter: nil strategy")
	}
	l := &RateLimiter{}
	l.current.Store(&strategyHolder{strategy: strategy})
	return l
}

// SetStrategy replaces the active strategy. strategy must not be nil.
func (l *RateLimiter) SetStrategy(strategy Strategy) {
	if strategy == nil {
		panic("limiter: nil strategy")
	}
	l.current.Store(&strategyHolder{strategy: strategy})
}

// Strategy returns the currently active strategy.
func (l *RateLimiter) Strategy() Strategy {
	return l.current.Load().strategy
}

// StrategyName returns the active strategy's algorithm name.
func (l *RateLimiter) StrategyName() string {
	return l.Strategy().Name()
}

// AllowRequest forwards to the active strategy.
func (l *RateLimiter) AllowRequest(ctx context.Context, key string) (bool, error) {
	return l.Strategy().AllowRequest(ctx, key)
}

// GetUsage forwards to the active strategy.
func (l *RateLimiter) GetUsage(ctx context.Context, key string) (Usage, error) {
	return l.Strategy().GetUsage(ctx, key)
}

// SetLimit forwards to the active strategy.
func (l *RateLimiter) SetLimit(key string, limit Limit) error {
	return l.Strategy().SetLimit(key, limit)
}
