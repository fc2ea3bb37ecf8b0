package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GCMetrics provides observability for the orphaned content collector.
type GCMetrics interface {
	// RecordRun records one collection run.
	//
	// Parameters:
	//   - duration: Time taken by the run
	//   - scanned: Blobs listed from the content store
	//   - orphaned: Blobs not referenced by any document
	//   - deleted: Orphans actually removed (0 on dry runs)
	//   - err: Error if the run failed
	RecordRun(duration time.Duration, scanned, orphaned, deleted int, err error)
}

type gcMetrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	orphanedTotal prometheus.Counter
	deletedTotal  prometheus.Counter
	lastScanned   prometheus.Gauge
}

// NewGCMetrics creates GCMetrics on the global registry.
//
// Returns a no-op implementation if metrics are not enabled.
func NewGCMetrics() GCMetrics {
	if !IsEnabled() {
		return NewNoopGCMetrics()
	}
	return NewGCMetricsWith(GetRegistry())
}

// NewGCMetricsWith registers collector metrics on reg.
func NewGCMetricsWith(reg prometheus.Registerer) GCMetrics {
	return &gcMetrics{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocmis_gc_runs_total",
				Help: "Total number of garbage collection runs by status",
			},
			[]string{"status"},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittocmis_gc_run_duration_seconds",
				Help:    "Duration of garbage collection runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		orphanedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittocmis_gc_orphaned_blobs_total",
				Help: "Total number of unreferenced blobs found",
			},
		),
		deletedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittocmis_gc_deleted_blobs_total",
				Help: "Total number of unreferenced blobs deleted",
			},
		),
		lastScanned: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittocmis_gc_last_scanned_blobs",
				Help: "Number of blobs listed by the most recent run",
			},
		),
	}
}

func (m *gcMetrics) RecordRun(duration time.Duration, scanned, orphaned, deleted int, err error) {
	m.runsTotal.WithLabelValues(statusOf(err)).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.orphanedTotal.Add(float64(orphaned))
	m.deletedTotal.Add(float64(deleted))
	m.lastScanned.Set(float64(scanned))
}
