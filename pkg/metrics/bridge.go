package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BridgeMetrics provides observability for repository bridge operations.
//
// The bridge records every facade operation (getObject, checkOut, ...) and
// the bytes moved through content streams.
type BridgeMetrics interface {
	// RecordOperation records a completed facade operation.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "getObject", "checkIn")
	//   - duration: Time taken to complete the operation
	//   - err: Error if operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordContentBytes records bytes moved through a content stream.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Number of bytes
	RecordContentBytes(direction string, bytes int64)
}

// bridgeMetrics is the Prometheus implementation of BridgeMetrics.
type bridgeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	contentBytes      *prometheus.CounterVec
}

// NewBridgeMetrics creates BridgeMetrics on the global registry.
//
// Returns a no-op implementation if metrics are not enabled.
func NewBridgeMetrics() BridgeMetrics {
	if !IsEnabled() {
		return NewNoopBridgeMetrics()
	}
	return NewBridgeMetricsWith(GetRegistry())
}

// NewBridgeMetricsWith registers bridge metrics on reg.
func NewBridgeMetricsWith(reg prometheus.Registerer) BridgeMetrics {
	return &bridgeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocmis_bridge_operations_total",
				Help: "Total number of bridge operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittocmis_bridge_operation_duration_seconds",
				Help: "Duration of bridge operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
					5.0,    // 5s
				},
			},
			[]string{"operation"},
		),
		contentBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocmis_bridge_content_bytes_total",
				Help: "Total bytes moved through content streams by direction",
			},
			[]string{"direction"},
		),
	}
}

func (m *bridgeMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(operation, statusOf(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *bridgeMetrics) RecordContentBytes(direction string, bytes int64) {
	m.contentBytes.WithLabelValues(direction).Add(float64(bytes))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
