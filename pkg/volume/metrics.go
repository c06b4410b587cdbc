package volume

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for volume ingestion.
// A nil *Metrics records nothing.
type Metrics struct {
	Ingests       *prometheus.CounterVec
	BytesAcquired *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	ingests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mrivolume_ingest_total",
		Help: "Completed ingestions by result",
	}, []string{"result"})

	bytesAcquired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mrivolume_bytes_acquired_total",
		Help: "Raw bytes acquired before decompression",
	}, []string{"source"})

	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mrivolume_stage_duration_seconds",
		Help:    "Time spent in each ingestion stage",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"stage"})

	reg.MustRegister(ingests, bytesAcquired, stageDuration)

	return &Metrics{
		Ingests:       ingests,
		BytesAcquired: bytesAcquired,
		StageDuration: stageDuration,
	}
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) addBytes(source string, n int) {
	if m == nil {
		return
	}
	m.BytesAcquired.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) countResult(result string) {
	if m == nil {
		return
	}
	m.Ingests.WithLabelValues(result).Inc()
}
