package limiter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder is a MetricsRecorder backed by Prometheus
// collectors. Counter events become a counter vector labelled by event
// name, strategy, and result; timing observations feed a histogram
// labelled by strategy.
type PrometheusRecorder struct {
	events  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors with reg and returns
// the recorder. Pass prometheus.DefaultRegisterer for the global
// registry, or a private registry in tests.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimit_events_total",
				Help: "Total number of rate limit recorder events",
			},
			[]string{"event", "strategy", "result"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratelimit_latency_seconds",
				Help:    "Duration of rate limit checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"strategy"},
		),
	}
}

// Add implements MetricsRecorder.
func (p *PrometheusRecorder) Add(name string, value float64, tags map[string]string) {
	p.events.WithLabelValues(name, tags["strategy"], tags["result"]).Add(value)
}

// Observe implements MetricsRecorder.
func (p *PrometheusRecorder) Observe(name string, value float64, tags map[string]string) {
	p.latency.WithLabelValues(tags["strategy"]).Observe(value)
}
