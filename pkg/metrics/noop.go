package metrics

import "time"

// NewNoopBridgeMetrics returns BridgeMetrics that discard everything.
func NewNoopBridgeMetrics() BridgeMetrics { return noopBridgeMetrics{} }

// NewNoopGCMetrics returns GCMetrics that discard everything.
func NewNoopGCMetrics() GCMetrics { return noopGCMetrics{} }

// NewNoopMetadataMetrics returns MetadataMetrics that discard everything.
func NewNoopMetadataMetrics() MetadataMetrics { return noopMetadataMetrics{} }

type noopBridgeMetrics struct{}

func (noopBridgeMetrics) RecordOperation(string, time.Duration, error) {}
func (noopBridgeMetrics) RecordContentBytes(string, int64)             {}

type noopGCMetrics struct{}

func (noopGCMetrics) RecordRun(time.Duration, int, int, int, error) {}

type noopMetadataMetrics struct{}

func (noopMetadataMetrics) RecordStorageOperation(string, string, time.Duration, error) {}
