// Package metrics holds the Prometheus collectors for the compression service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics:
//   - mediacompress_admission_total{limiter,decision}
//   - mediacompress_items_total{kind,outcome}
//   - mediacompress_bytes_saved_total{kind}
//   - mediacompress_quality_attempts{format}
//   - mediacompress_batch_duration_seconds{kind,result}
type Metrics struct {
	AdmissionTotal  *prometheus.CounterVec
	ItemsTotal      *prometheus.CounterVec
	BytesSavedTotal *prometheus.CounterVec
	QualityAttempts *prometheus.HistogramVec
	BatchDuration   *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AdmissionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacompress_admission_total",
				Help: "Requests seen by the rate limiters",
			},
			[]string{"limiter", "decision"}, // "allowed" or "rejected"
		),
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacompress_items_total",
				Help: "Items processed, by outcome",
			},
			[]string{"kind", "outcome"}, // "compressed", "original", "rejected", "failed"
		),
		BytesSavedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacompress_bytes_saved_total",
				Help: "Bytes removed by compression",
			},
			[]string{"kind"},
		),
		QualityAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediacompress_quality_attempts",
				Help:    "Encode attempts made by the quality search per image",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
			},
			[]string{"format"},
		),
		BatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediacompress_batch_duration_seconds",
				Help:    "Wall-clock time to process a batch",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 11),
			},
			[]string{"kind", "result"},
		),
	}
}

func (m *Metrics) ObserveAdmission(limiter string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}
	m.AdmissionTotal.WithLabelValues(limiter, decision).Inc()
}
