package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ExportLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "barview",
			Subsystem: "export",
			Name:      "encode_seconds",
			Help:      "Time spent encoding download files",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	ExportBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barview",
			Subsystem: "export",
			Name:      "bytes_total",
			Help:      "Bytes written by download format",
		},
		[]string{"format"},
	)

	ExportRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barview",
			Subsystem: "export",
			Name:      "rejected_total",
			Help:      "Downloads refused before encoding",
		},
		[]string{"reason"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ExportLatency, ExportBytes, ExportRejected)
	})
}
