package limiter

import "time"

// MetricsRecorder receives counters and timing observations from the
// strategies. Implementations must be safe for concurrent use.
//
// Every AllowRequest emits a "ratelimit.call" count of 1 and a
// "ratelimit.latency" observation in seconds, tagged with the strategy
// name and the decision ("allowed", "denied", or "error").
type MetricsRecorder interface {
	Add(name string, value float64, tags map[string]string)
	Observe(name string, value float64, tags map[string]string)
}

// NoOpMetricsRecorder is a placeholder that does nothing. It ensures the
// hot path never has to check for a nil recorder.
type NoOpMetricsRecorder struct{}

func (n *NoOpMetricsRecorder) Add(name string, value float64, tags map[string]string)     {}
func (n *NoOpMetricsRecorder) Observe(name string, value float64, tags map[string]string) {}

const (
	metricCall    = "ratelimit.call"
	metricLatency = "ratelimit.latency"
)

// recordDecision emits the per-call counter and latency observation.
// Latency is measured against the wall clock on purpose: an injected
// fake Clock must not distort instrumentation.
func recordDecision(r MetricsRecorder, strategy string, start time.Time, allowed bool, err error) {
	tags := map[string]string{
		"strategy": strategy,
		"result":   decisionTag(allowed, err),
	}
	r.Add(metricCall, 1, tags)
	r.Observe(metricLatency, time.Since(start).Seconds(), tags)
}

func decisionTag(allowed bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case allowed:
		return "allowed"
	default:
		return "denied"
	}
}
