package limiter

import (
	"time"

	"go.uber.org/zap"
)

const (
	defaultPrefix  = "ratelimit:"
	defaultTimeout = 5 * time.Second
)

// options holds the configuration shared by all strategy constructors.
// Prefix and Timeout only apply to RedisStrategy; Clock only applies to
// the in-memory strategies.
type options struct {
	clock    Clock
	logger   *zap.Logger
	recorder MetricsRecorder
	prefix   string
	timeout  time.Duration
}

// Option configures a strategy using the functional options pattern.
type Option func(*options)

func newOptions(opts []Option) *options {
	cfg := &options{
		clock:    systemClock{},
		logger:   zap.NewNop(),
		recorder: &NoOpMetricsRecorder{},
		prefix:   defaultPrefix,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithClock sets the clock used for elapsed-time math by the in-memory
// strategies. Intended for tests; the default is the system clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. The default is a no-op logger; strategies
// only log at debug level outside the hot path.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder injects a metrics backend. The default recorder discards
// everything.
func WithRecorder(r MetricsRecorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithPrefix sets the Redis key prefix (default "ratelimit:").
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithTimeout sets the per-operation context timeout for Redis calls
// (default 5s).
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}
