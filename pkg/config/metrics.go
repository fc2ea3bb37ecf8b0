package config

import (
	"github.com/marmos91/dittocmis/pkg/metrics"
	"github.com/marmos91/dittocmis/pkg/store/content/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// BridgeMetrics records facade operations (never nil, uses noop if disabled)
	BridgeMetrics metrics.BridgeMetrics

	// GCMetrics records garbage collection runs (never nil, uses noop if disabled)
	GCMetrics metrics.GCMetrics

	// S3Metrics records S3 requests (nil if disabled)
	S3Metrics s3.S3Metrics

	enabled bool
}

// MetadataMetrics returns metrics for a metadata store of the given type, or
// nil when metrics are disabled.
func (r *MetricsResult) MetadataMetrics(storeType string) metrics.MetadataMetrics {
	if !r.enabled {
		return nil
	}
	return metrics.NewMetadataMetrics(storeType)
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
//
// Collectors register on the global registry, so InitializeMetrics is called
// once per process.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return noopMetrics()
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:        metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}),
		BridgeMetrics: metrics.NewBridgeMetrics(),
		GCMetrics:     metrics.NewGCMetrics(),
		S3Metrics:     metrics.NewS3Metrics(),
		enabled:       true,
	}
}

func noopMetrics() *MetricsResult {
	return &MetricsResult{
		BridgeMetrics: metrics.NewNoopBridgeMetrics(),
		GCMetrics:     metrics.NewNoopGCMetrics(),
	}
}
