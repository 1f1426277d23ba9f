package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SlidingWindowStrategy is an exact, in-process sliding window log.
//
// It records the timestamp of every admitted request and counts how many
// fall inside the trailing window. Enforcement is exact: no sequence of
// calls can exceed MaxRequests within any trailing Window interval. The
// cost is O(MaxRequests) memory per key and O(expired entries) work per
// call, which amortizes to O(1) at steady request rates.
//
// State is local to the process and is not shared across replicas. Use
// RedisStrategy when multiple processes must enforce one global limit.
type SlidingWindowStrategy struct {
	defaultLimit Limit
	clock        Clock
	logger       *zap.Logger
	recorder     MetricsRecorder

	// mu guards the entries and overrides maps. Entries are created
	// under mu so two callers racing on a brand-new key share one log;
	// the per-entry mutex then serializes the evict-check-append
	// critical section without blocking unrelated keys.
	mu        sync.Mutex
	entries   map[string]*windowLog
	overrides map[string]Limit
}

// windowLog holds one key's admitted timestamps, oldest first.
type windowLog struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// NewSlidingWindow constructs a SlidingWindowStrategy with the given
// default limit. The default applies to every key without an override.
func NewSlidingWindow(defaultLimit Limit, opts ...Option) (*SlidingWindowStrategy, error) {
	if err := defaultLimit.Validate(); err != nil {
		return nil, fmt.Errorf("sliding window: %w", err)
	}
	cfg := newOptions(opts)
	return &SlidingWindowStrategy{
		defaultLimit: defaultLimit,
		clock:        cfg.clock,
		logger:       cfg.logger,
		recorder:     cfg.recorder,
		entries:      make(map[string]*windowLog),
		overrides:    make(map[string]Limit),
	}, nil
}

// AllowRequest admits the request if fewer than MaxRequests timestamps
// remain in the trailing window after eviction, recording the current
// time on admission. Rejected calls leave the log untouched.
func (s *SlidingWindowStrategy) AllowRequest(_ context.Context, key string) (bool, error) {
	start := time.Now()
	limit, entry := s.lookup(key)

	entry.mu.Lock()
	now := s.clock.Now()
	entry.evict(now.Add(-limit.Window))

	allowed := len(entry.timestamps) < limit.MaxRequests
	if allowed {
		entry.timestamps = append(entry.timestamps, now)
	}
	entry.mu.Unlock()

	recordDecision(s.recorder, s.Name(), start, allowed, nil)
	return allowed, nil
}

// GetUsage returns the number of requests in the current window and the
// time until the oldest one expires. It evicts expired entries but never
// admits or records anything.
func (s *SlidingWindowStrategy) GetUsage(_ context.Context, key string) (Usage, error) {
	limit, entry := s.lookup(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := s.clock.Now()
	entry.evict(now.Add(-limit.Window))

	if len(entry.timestamps) == 0 {
		return Usage{}, nil
	}

	ttl := entry.timestamps[0].Add(limit.Window).Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	return Usage{Current: float64(len(entry.timestamps)), TTL: ttl}, nil
}

// SetLimit overrides the default limit for key, effective on its next
// access. Timestamps already recorded for the key are kept as-is.
func (s *SlidingWindowStrategy) SetLimit(key string, limit Limit) error {
	if err := limit.Validate(); err != nil {
		return fmt.Errorf("sliding window: %w", err)
	}

	s.mu.Lock()
	s.overrides[key] = limit
	s.mu.Unlock()

	s.logger.Debug("sliding window limit override installed",
		zap.String("key", key),
		zap.Int("max_requests", limit.MaxRequests),
		zap.Duration("window", limit.Window))
	return nil
}

// Name implements Strategy.
func (s *SlidingWindowStrategy) Name() string { return "sliding_window" }

// lookup resolves the effective limit for key and returns its log,
// creating the log on first access.
func (s *SlidingWindowStrategy) lookup(key string) (Limit, *windowLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit, ok := s.overrides[key]
	if !ok {
		limit = s.defaultLimit
	}

	entry, ok := s.entries[key]
	if !ok {
		entry = &windowLog{}
		s.entries[key] = entry
	}
	return limit, entry
}

// evict drops timestamps at or before boundary. A timestamp exactly on
// the boundary is expired. Caller must hold the entry lock.
func (w *windowLog) evict(boundary time.Time) {
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(boundary) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
}
