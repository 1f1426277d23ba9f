package limiter

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:embed sliding_window.lua
var slidingWindowScript string

// RedisStrategy is a sliding-window limiter backed by Redis, for
// deployments where multiple processes must share one logical limit.
//
// Each key maps to a Redis sorted set of (millisecond timestamp, unique
// member) pairs. One Lua script prunes expired members, reads the
// cardinality, and conditionally adds the new request as a single atomic
// unit, so no two processes can race past the limit between check and
// increment. The set expires with the window, so idle keys are reclaimed
// by Redis.
//
// Transport failures are returned to the caller as-is. The strategy
// never falls back to local state and never chooses fail-open or
// fail-closed; that policy belongs to the caller.
type RedisStrategy struct {
	client       *redis.Client
	scriptSHA    string
	defaultLimit Limit
	prefix       string
	timeout      time.Duration
	recorder     MetricsRecorder
	logger       *zap.Logger

	mu        sync.RWMutex
	overrides map[string]Limit
}

// NewRedisStrategy constructs a RedisStrategy, verifies connectivity,
// and loads the sliding window script into the Redis script cache.
//
// The script is invoked by SHA. If Redis restarts and its script cache
// is flushed, calls fail with a NOSCRIPT error until the strategy is
// recreated.
func NewRedisStrategy(client *redis.Client, defaultLimit Limit, opts ...Option) (*RedisStrategy, error) {
	if err := defaultLimit.Validate(); err != nil {
		return nil, fmt.Errorf("redis strategy: %w", err)
	}
	cfg := newOptions(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis strategy: ping: %w", err)
	}

	sha, err := client.ScriptLoad(ctx, slidingWindowScript).Result()
	if err != nil {
		return nil, fmt.Errorf("redis strategy: script load: %w", err)
	}

	cfg.logger.Debug("sliding window script loaded", zap.String("sha", sha))

	return &RedisStrategy{
		client:       client,
		scriptSHA:    sha,
		defaultLimit: defaultLimit,
		prefix:       cfg.prefix,
		timeout:      cfg.timeout,
		recorder:     cfg.recorder,
		logger:       cfg.logger,
		overrides:    make(map[string]Limit),
	}, nil
}

// AllowRequest runs the atomic prune-count-add script for key. The new
// entry's member is "<now_ms>-<uuid>" so requests landing on the same
// millisecond remain distinct set members.
func (r *RedisStrategy) AllowRequest(ctx context.Context, key string) (allowed bool, err error) {
	start := time.Now()
	defer func() { recordDecision(r.recorder, r.Name(), start, allowed, err) }()

	limit := r.limitFor(key)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	nowMs := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	result, err := r.client.EvalSha(ctx, r.scriptSHA, []string{r.prefix + key},
		nowMs,                       // ARGV[1]: now (ms)
		limit.Window.Milliseconds(), // ARGV[2]: window (ms)
		limit.MaxRequests,           // ARGV[3]: limit
		member,                      // ARGV[4]: unique member
	).Result()
	if err != nil {
		return false, fmt.Errorf("redis strategy: allow %q: %w", key, err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, fmt.Errorf("redis strategy: allow %q: unexpected script reply %v", key, result)
	}
	allowedVal, _ := values[0].(int64)
	return allowedVal == 1, nil
}

// GetUsage prunes expired members, then reports the window count and the
// time until the oldest member expires.
func (r *RedisStrategy) GetUsage(ctx context.Context, key string) (Usage, error) {
	limit := r.limitFor(key)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	redisKey := r.prefix + key
	nowMs := time.Now().UnixMilli()
	windowMs := limit.Window.Milliseconds()
	boundary := strconv.FormatInt(nowMs-windowMs, 10)

	if err := r.client.ZRemRangeByScore(ctx, redisKey, "0", boundary).Err(); err != nil {
		return Usage{}, fmt.Errorf("redis strategy: usage %q: prune: %w", key, err)
	}

	count, err := r.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("redis strategy: usage %q: count: %w", key, err)
	}
	if count == 0 {
		return Usage{}, nil
	}

	oldest, err := r.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("redis strategy: usage %q: oldest: %w", key, err)
	}

	usage := Usage{Current: float64(count)}
	if len(oldest) > 0 {
		ttlMs := int64(oldest[0].Score) + windowMs - nowMs
		if ttlMs > 0 {
			usage.TTL = time.Duration(ttlMs) * time.Millisecond
		}
	}
	return usage, nil
}

// SetLimit overrides the default limit for key. Entries already in the
// key's sorted set keep their original scores; only the window applied
// on subsequent calls changes.
func (r *RedisStrategy) SetLimit(key string, limit Limit) error {
	if err := limit.Validate(); err != nil {
		return fmt.Errorf("redis strategy: %w", err)
	}

	r.mu.Lock()
	r.overrides[key] = limit
	r.mu.Unlock()

	r.logger.Debug("redis limit override installed",
		zap.String("key", key),
		zap.Int("max_requests", limit.MaxRequests),
		zap.Duration("window", limit.Window))
	return nil
}

// Name implements Strategy.
func (r *RedisStrategy) Name() string { return "redis_sliding_window" }

func (r *RedisStrategy) limitFor(key string) Limit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit, ok := r.overrides[key]; ok {
		return limit
	}
	return r.defaultLimit
}
