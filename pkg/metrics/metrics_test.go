package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittocmis/pkg/repository"
	"github.com/marmos91/dittocmis/pkg/store/metadata/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBridgeMetricsWith(reg).(*bridgeMetrics)

	m.RecordOperation("getObject", time.Millisecond, nil)
	m.RecordOperation("getObject", time.Millisecond, errors.New("boom"))
	m.RecordContentBytes("write", 42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("getObject", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("getObject", "error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.contentBytes.WithLabelValues("write")))
}

func TestGCMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGCMetricsWith(reg).(*gcMetrics)

	m.RecordRun(time.Second, 10, 3, 2, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.orphanedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deletedTotal))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.lastScanned))
}

func TestS3Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewS3MetricsWith(reg).(*s3Metrics)

	m.ObserveOperation("PutObject", time.Millisecond, errors.New("denied"))
	m.RecordBytes("write", 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("PutObject")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("write")))
}

func TestInstrumentProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetadataMetricsWith(reg, "memory").(*metadataMetrics)

	provider := InstrumentProvider(memory.NewMemoryMetadataStore(memory.MemoryMetadataStoreConfig{}), m)
	t.Cleanup(func() { _ = provider.Close() })

	backend, err := provider.Collection("documents")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, backend.Put(ctx, repository.Record{ID: "a", Data: []byte(`{}`)}))
	_, err = backend.Get(ctx, "a")
	require.NoError(t, err)
	_, err = backend.Get(ctx, "missing")
	require.True(t, repository.IsNotFound(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOpsTotal.WithLabelValues("memory", "documents", "put", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOpsTotal.WithLabelValues("memory", "documents", "get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOpsTotal.WithLabelValues("memory", "documents", "get", "not_found")))
}

func TestNoopMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNoopBridgeMetrics().RecordOperation("x", time.Second, nil)
		NewNoopBridgeMetrics().RecordContentBytes("read", 1)
		NewNoopGCMetrics().RecordRun(time.Second, 1, 1, 1, nil)
		NewNoopMetadataMetrics().RecordStorageOperation("c", "get", time.Second, nil)
	})
}

func TestServerHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBridgeMetricsWith(reg).RecordOperation("getObject", time.Millisecond, nil)

	server := NewServer(ServerConfig{Port: 9999, Registry: reg})
	assert.Equal(t, 9999, server.Port())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "dittocmis_bridge_operations_total"))

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerHandlerDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
