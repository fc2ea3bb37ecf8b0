package metrics

import (
	"context"
	"time"

	"github.com/marmos91/dittocmis/pkg/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetadataMetrics provides observability for metadata store operations.
//
// Example usage:
//
//	// With metrics enabled
//	m := metrics.NewMetadataMetrics("badger")
//	provider = metrics.InstrumentProvider(provider, m)
type MetadataMetrics interface {
	// RecordStorageOperation records a low-level backend operation.
	//
	// Parameters:
	//   - collection: Collection name (e.g., "documents")
	//   - operation: Backend operation (e.g., "get", "put", "update", "scan")
	//   - duration: Time taken
	//   - err: Error if failed
	RecordStorageOperation(collection, operation string, duration time.Duration, err error)
}

// metadataMetrics is the Prometheus implementation of MetadataMetrics.
type metadataMetrics struct {
	storeType          string
	storageOpsTotal    *prometheus.CounterVec
	storageOpsDuration *prometheus.HistogramVec
}

// NewMetadataMetrics creates MetadataMetrics on the global registry.
//
// Parameters:
//   - storeType: Type of metadata store (e.g., "memory", "badger", "sqlite")
//     Used as a label to distinguish metrics from different store implementations.
//
// Returns a no-op implementation if metrics are not enabled.
func NewMetadataMetrics(storeType string) MetadataMetrics {
	if !IsEnabled() {
		return NewNoopMetadataMetrics()
	}
	return NewMetadataMetricsWith(GetRegistry(), storeType)
}

// NewMetadataMetricsWith registers metadata metrics on reg.
func NewMetadataMetricsWith(reg prometheus.Registerer, storeType string) MetadataMetrics {
	return &metadataMetrics{
		storeType: storeType,
		storageOpsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocmis_metadata_storage_operations_total",
				Help: "Total number of metadata backend operations by store type, collection, operation, and status",
			},
			[]string{"store_type", "collection", "operation", "status"},
		),
		storageOpsDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittocmis_metadata_storage_operation_duration_seconds",
				Help: "Duration of metadata backend operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.025,  // 25ms
					0.05,   // 50ms
					0.1,    // 100ms
				},
			},
			[]string{"store_type", "operation"},
		),
	}
}

func (m *metadataMetrics) RecordStorageOperation(collection, operation string, duration time.Duration, err error) {
	status := "success"
	switch {
	case repository.IsNotFound(err):
		status = "not_found"
	case err != nil:
		status = "error"
	}

	m.storageOpsTotal.WithLabelValues(m.storeType, collection, operation, status).Inc()
	m.storageOpsDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
}

// ============================================================================
// Backend instrumentation
// ============================================================================

// InstrumentProvider wraps every collection opened through provider so its
// operations are recorded in m.
func InstrumentProvider(provider repository.BackendProvider, m MetadataMetrics) repository.BackendProvider {
	return &instrumentedProvider{BackendProvider: provider, metrics: m}
}

type instrumentedProvider struct {
	repository.BackendProvider
	metrics MetadataMetrics
}

func (p *instrumentedProvider) Collection(name string) (repository.Backend, error) {
	backend, err := p.BackendProvider.Collection(name)
	if err != nil {
		return nil, err
	}
	return &instrumentedBackend{backend: backend, collection: name, metrics: p.metrics}, nil
}

type instrumentedBackend struct {
	backend    repository.Backend
	collection string
	metrics    MetadataMetrics
}

func (b *instrumentedBackend) observe(operation string, start time.Time, err error) {
	b.metrics.RecordStorageOperation(b.collection, operation, time.Since(start), err)
}

func (b *instrumentedBackend) Get(ctx context.Context, id string) (rec repository.Record, err error) {
	defer func(start time.Time) { b.observe("get", start, err) }(time.Now())
	return b.backend.Get(ctx, id)
}

func (b *instrumentedBackend) Put(ctx context.Context, rec repository.Record) (err error) {
	defer func(start time.Time) { b.observe("put", start, err) }(time.Now())
	return b.backend.Put(ctx, rec)
}

func (b *instrumentedBackend) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { b.observe("delete", start, err) }(time.Now())
	return b.backend.Delete(ctx, id)
}

func (b *instrumentedBackend) Update(ctx context.Context, id string, fn func(rec *repository.Record) error) (err error) {
	defer func(start time.Time) { b.observe("update", start, err) }(time.Now())
	return b.backend.Update(ctx, id, fn)
}

func (b *instrumentedBackend) ListByParent(ctx context.Context, parentID string) (recs []repository.Record, err error) {
	defer func(start time.Time) { b.observe("list_by_parent", start, err) }(time.Now())
	return b.backend.ListByParent(ctx, parentID)
}

func (b *instrumentedBackend) ListBySeries(ctx context.Context, seriesID string) (recs []repository.Record, err error) {
	defer func(start time.Time) { b.observe("list_by_series", start, err) }(time.Now())
	return b.backend.ListBySeries(ctx, seriesID)
}

func (b *instrumentedBackend) Scan(ctx context.Context, fn func(rec repository.Record) error) (err error) {
	defer func(start time.Time) { b.observe("scan", start, err) }(time.Now())
	return b.backend.Scan(ctx, fn)
}
