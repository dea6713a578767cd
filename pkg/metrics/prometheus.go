package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	assessments    *prometheus.CounterVec
	confidence     prometheus.Histogram
	crashStatus    prometheus.Gauge
	entriesWritten *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New registers the collectors on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		assessments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trirecover_assessments_total",
				Help: "Day assessments computed, by recommendation color",
			},
			[]string{"rec"},
		),
		confidence: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trirecover_assessment_confidence",
				Help:    "Confidence of computed assessments",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
		crashStatus: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "trirecover_crash_status",
				Help: "Severity of the latest crash status (0 Stable .. 4 Crash-State)",
			},
		),
		entriesWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trirecover_entries_upserted_total",
				Help: "Entries written, by store backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trirecover_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trirecover_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAssessment(rec models.RecColor, confidence float64) {
	r.assessments.WithLabelValues(string(rec)).Inc()
	r.confidence.Observe(confidence)
}

func (r *Recorder) RecordCrashStatus(status models.CrashStatus) {
	r.crashStatus.Set(float64(status.Severity()))
}

func (r *Recorder) RecordEntriesUpserted(backend string, n int) {
	r.entriesWritten.WithLabelValues(backend).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

var _ repository.Metrics = Nop{}

func (Nop) RecordAssessment(models.RecColor, float64) {}
func (Nop) RecordCrashStatus(models.CrashStatus)      {}
func (Nop) RecordEntriesUpserted(string, int)         {}
func (Nop) RecordError(string)                        {}
func (Nop) RecordLatency(string, float64)             {}
