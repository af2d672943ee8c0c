// Package metrics exposes Prometheus collectors for ingestion, fan-out and
// background notification jobs.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	DetectionsIngested   *prometheus.CounterVec // by alert type
	NotificationsCreated prometheus.Counter
	FanoutFailures       *prometheus.CounterVec // by step
	JobsProcessed        *prometheus.CounterVec // by status
	JobQueueDepth        prometheus.Gauge
	CompanionWindows     prometheus.Histogram

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		DetectionsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpr_detections_ingested_total",
			Help: "Detections persisted, labelled by alert type code",
		}, []string{"alert"}),
		NotificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lpr_notifications_created_total",
			Help: "Notifications persisted for alert recipients",
		}),
		FanoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpr_fanout_failures_total",
			Help: "Failed best-effort fan-out steps",
		}, []string{"step"}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpr_notify_jobs_total",
			Help: "Background notification jobs by outcome",
		}, []string{"status"}),
		JobQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lpr_notify_queue_depth",
			Help: "Jobs waiting in the in-process notification queue",
		}),
		CompanionWindows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lpr_companion_windows",
			Help:    "Correlation windows opened per companion query",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}

	collectors := []prometheus.Collector{
		m.DetectionsIngested,
		m.NotificationsCreated,
		m.FanoutFailures,
		m.JobsProcessed,
		m.JobQueueDepth,
		m.CompanionWindows,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// NewNop returns metrics bound to a private registry, for tests and tools.
func NewNop() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) ObserveDetection(alert int) {
	m.DetectionsIngested.WithLabelValues(strconv.Itoa(alert)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
