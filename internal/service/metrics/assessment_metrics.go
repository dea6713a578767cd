package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trirecover",
			Subsystem: "assessment",
			Name:      "endpoint_latency_seconds",
			Help:      "Latency of assessment endpoints",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trirecover",
			Subsystem: "assessment",
			Name:      "endpoint_errors_total",
			Help:      "Errors by assessment endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}

// Observe records one call of endpoint. Use with defer:
//
//	defer metrics.Observe("timeline", time.Now(), &err)
func Observe(endpoint string, start time.Time, err *error) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		EndpointErrors.WithLabelValues(endpoint).Inc()
	}
}
