package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StageTransitions *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	DocumentCache    *prometheus.CounterVec
	RenderDuration   prometheus.Histogram
	DocumentBytes    prometheus.Histogram
	InFlightNotifies prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_pipeline_stage_total",
			Help: "Submissions reaching each pipeline stage",
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_pipeline_failures_total",
			Help: "Submissions failing at each pipeline stage",
		}, []string{"stage"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_notifications_total",
			Help: "Creation event publish outcomes",
		}, []string{"outcome"}),
		DocumentCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_document_cache_total",
			Help: "Document cache lookups by result",
		}, []string{"result"}),
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civreg_render_duration_seconds",
			Help:    "Time spent rendering certificate documents",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		DocumentBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civreg_document_bytes",
			Help:    "Size of rendered certificate documents",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 8),
		}),
		InFlightNotifies: f.NewGauge(prometheus.GaugeOpts{
			Name: "civreg_notifications_in_flight",
			Help: "Creation events currently being published",
		}),
	}
}

func (m *Metrics) IncrementStage(stage string) {
	if m == nil {
		return
	}
	m.StageTransitions.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncrementFailure(stage string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}

// IncrementNotification records a publish outcome: sent, failed or dropped.
func (m *Metrics) IncrementNotification(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementCache(result string) {
	if m == nil {
		return
	}
	m.DocumentCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRender(start time.Time, size int) {
	if m == nil {
		return
	}
	m.RenderDuration.Observe(time.Since(start).Seconds())
	m.DocumentBytes.Observe(float64(size))
}

func (m *Metrics) NotifyStarted() {
	if m == nil {
		return
	}
	m.InFlightNotifies.Inc()
}

func (m *Metrics) NotifyFinished() {
	if m == nil {
		return
	}
	m.InFlightNotifies.Dec()
}
