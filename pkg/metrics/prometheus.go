package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal *prometheus.CounterVec
	retries     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	buckets     *prometheus.HistogramVec
	cache       *prometheus.CounterVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barview_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barview_store_retries_total",
				Help: "Store operations retried after a transient failure",
			},
			[]string{"operation"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "barview_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		buckets: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "barview_aggregated_buckets",
				Help:    "Buckets produced per aggregation request",
				Buckets: prometheus.ExponentialBuckets(1, 4, 9),
			},
			[]string{"timeframe"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barview_response_cache_total",
				Help: "Response cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordRetry(op string) {
	r.retries.WithLabelValues(op).Inc()
}

func (r *Recorder) RecordBuckets(timeframe string, n int) {
	r.buckets.WithLabelValues(timeframe).Observe(float64(n))
}

// RecordCache counts a cache lookup; result is "hit", "miss" or "error".
func (r *Recorder) RecordCache(result string) {
	r.cache.WithLabelValues(result).Inc()
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordRetry(string)            {}
func (Nop) RecordBuckets(string, int)     {}
func (Nop) RecordCache(string)            {}
