package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeExtractionMiss labels a successful call whose answer could not be extracted.
const OutcomeExtractionMiss = "extraction_miss"

// OutcomeUnknown labels a provider result of an unrecognised kind.
const OutcomeUnknown = "unknown"

// Recorder counts upstream outcomes and latencies on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
}

// New constructs a Recorder with its own registry, including Go runtime collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_upstream_requests_total",
			Help: "Total number of upstream chat completion calls by outcome",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_upstream_duration_seconds",
			Help:    "Duration of upstream chat completion calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)

	reg.MustRegister(
		outcomes,
		duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Recorder{
		registry: reg,
		outcomes: outcomes,
		duration: duration,
	}
}

// ObserveOutcome increments the counter for the given outcome label.
func (r *Recorder) ObserveOutcome(outcome string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveDuration records the latency of one upstream call.
func (r *Recorder) ObserveDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.duration.Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
