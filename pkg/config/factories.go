package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/metrics"
	"github.com/marmos91/dittocmis/pkg/repository"
	blob "github.com/marmos91/dittocmis/pkg/store/content"
	contentfs "github.com/marmos91/dittocmis/pkg/store/content/fs"
	contentmemory "github.com/marmos91/dittocmis/pkg/store/content/memory"
	contents3 "github.com/marmos91/dittocmis/pkg/store/content/s3"
	"github.com/marmos91/dittocmis/pkg/store/metadata/badger"
	metadatamemory "github.com/marmos91/dittocmis/pkg/store/metadata/memory"
	"github.com/marmos91/dittocmis/pkg/store/metadata/sqlite"
	"github.com/mitchellh/mapstructure"
)

// CreateMetadataStore creates a metadata store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/metadata/memory (in-memory storage, ephemeral)
//   - "badger": Uses pkg/store/metadata/badger (BadgerDB storage, persistent)
//   - "sqlite": Uses pkg/store/metadata/sqlite (SQLite database, persistent)
//
// When m is not nil every collection opened through the returned provider
// records its backend operations in m.
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig, m metrics.MetadataMetrics) (repository.BackendProvider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		provider repository.BackendProvider
		err      error
	)
	switch cfg.Type {
	case "memory":
		provider, err = createMemoryMetadataStore(cfg.Memory)
	case "badger":
		provider, err = createBadgerMetadataStore(ctx, cfg.Badger)
	case "sqlite":
		provider, err = createSQLiteMetadataStore(ctx, cfg.SQLite)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger, sqlite)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if m != nil {
		provider = metrics.InstrumentProvider(provider, m)
	}
	return provider, nil
}

// createMemoryMetadataStore creates an in-memory metadata store.
func createMemoryMetadataStore(options map[string]any) (repository.BackendProvider, error) {
	var storeCfg metadatamemory.MemoryMetadataStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid memory metadata config: %w", err)
	}

	return metadatamemory.NewMemoryMetadataStore(storeCfg), nil
}

// createBadgerMetadataStore creates a BadgerDB-based persistent metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (repository.BackendProvider, error) {
	var storeCfg badger.BadgerMetadataStoreConfig
	if err := decodeWeakly(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid badger metadata config: %w", err)
	}

	store, err := badger.NewBadgerMetadataStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}
	return store, nil
}

// createSQLiteMetadataStore creates a SQLite-based persistent metadata store.
func createSQLiteMetadataStore(ctx context.Context, options map[string]any) (repository.BackendProvider, error) {
	var storeCfg sqlite.SQLiteMetadataStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid sqlite metadata config: %w", err)
	}

	store, err := sqlite.NewSQLiteMetadataStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite metadata store: %w", err)
	}
	return store, nil
}

// CreateContentStore creates a blob store based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/store/content/memory (in-memory storage, ephemeral)
//   - "filesystem": Uses pkg/store/content/fs (local filesystem storage)
//   - "s3": Uses pkg/store/content/s3 (Amazon S3 or compatible storage)
//
// s3Metrics is only used by the S3 store and may be nil.
func CreateContentStore(ctx context.Context, cfg *ContentConfig, s3Metrics contents3.S3Metrics) (blob.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryContentStore(ctx, cfg.Memory)
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown content store type: %q (supported: memory, filesystem, s3)", cfg.Type)
	}
}

// createMemoryContentStore creates an in-memory content store.
func createMemoryContentStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	var storeCfg contentmemory.MemoryContentStoreConfig
	if err := decodeWeakly(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid memory content config: %w", err)
	}

	store, err := contentmemory.NewMemoryContentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory content store: %w", err)
	}
	return store, nil
}

// createFilesystemContentStore creates a filesystem-backed content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (blob.Store, error) {
	var storeCfg contentfs.FSContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid filesystem content config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentfs.NewFSContentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}
	return store, nil
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any, m contents3.S3Metrics) (blob.Store, error) {
	var storeCfg contents3.S3ContentStoreConfig
	if err := decodeWeakly(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid S3 content config: %w", err)
	}

	if err := validate.Struct(&storeCfg); err != nil {
		return nil, fmt.Errorf("S3 content store: %w", formatValidationError(err))
	}

	storeCfg.Metrics = m

	store, err := contents3.NewS3ContentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// decodeWeakly decodes a type-specific options map, converting strings set
// through the environment into numbers, booleans and durations.
func decodeWeakly(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}
