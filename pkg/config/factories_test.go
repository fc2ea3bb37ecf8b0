package config

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittocmis/pkg/repository"
	blob "github.com/marmos91/dittocmis/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetadataMetrics struct {
	mu  sync.Mutex
	ops []string
}

func (m *recordingMetadataMetrics) RecordStorageOperation(collection, operation string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, collection+"/"+operation)
}

func TestCreateMetadataStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  MetadataConfig
	}{
		{"memory", MetadataConfig{Type: "memory", Memory: map[string]any{"max_objects": 100}}},
		{"badger in memory", MetadataConfig{Type: "badger", Badger: map[string]any{"in_memory": true}}},
		{"badger on disk", MetadataConfig{Type: "badger", Badger: map[string]any{"db_path": t.TempDir()}}},
		{"sqlite", MetadataConfig{Type: "sqlite", SQLite: map[string]any{"path": filepath.Join(t.TempDir(), "meta.db")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := CreateMetadataStore(ctx, &tt.cfg, nil)
			require.NoError(t, err)
			defer func() { assert.NoError(t, provider.Close()) }()

			backend, err := provider.Collection("documents")
			require.NoError(t, err)

			require.NoError(t, backend.Put(ctx, repository.Record{ID: "a", Data: []byte(`{}`)}))
			rec, err := backend.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "a", rec.ID)
		})
	}
}

func TestCreateMetadataStoreErrors(t *testing.T) {
	ctx := context.Background()

	_, err := CreateMetadataStore(ctx, &MetadataConfig{Type: "postgres"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown metadata store type")

	_, err = CreateMetadataStore(ctx, &MetadataConfig{Type: "sqlite", SQLite: map[string]any{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")

	_, err = CreateMetadataStore(ctx, &MetadataConfig{Type: "badger", Badger: map[string]any{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_path is required")

	_, err = CreateMetadataStore(ctx, &MetadataConfig{Type: "memory", Memory: map[string]any{"max_objects": "lots"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid memory metadata config")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = CreateMetadataStore(cancelled, &MetadataConfig{Type: "memory"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateMetadataStoreInstrumented(t *testing.T) {
	ctx := context.Background()
	m := &recordingMetadataMetrics{}

	provider, err := CreateMetadataStore(ctx, &MetadataConfig{Type: "memory"}, m)
	require.NoError(t, err)
	defer func() { _ = provider.Close() }()

	backend, err := provider.Collection("folders")
	require.NoError(t, err)

	require.NoError(t, backend.Put(ctx, repository.Record{ID: "f", Data: []byte(`{}`)}))
	_, err = backend.Get(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, []string{"folders/put", "folders/get"}, m.ops)
}

func TestCreateContentStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  ContentConfig
	}{
		{"memory", ContentConfig{Type: "memory", Memory: map[string]any{"max_size_bytes": "1024"}}},
		{"filesystem", ContentConfig{Type: "filesystem", Filesystem: map[string]any{"path": t.TempDir()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := CreateContentStore(ctx, &tt.cfg, nil)
			require.NoError(t, err)

			id := blob.ContentID("0123456789abcdef")
			require.NoError(t, store.WriteContent(ctx, id, []byte("hello")))

			ids, err := store.ListAllContent(ctx)
			require.NoError(t, err)
			assert.Equal(t, []blob.ContentID{id}, ids)
		})
	}
}

func TestCreateContentStoreErrors(t *testing.T) {
	ctx := context.Background()

	_, err := CreateContentStore(ctx, &ContentConfig{Type: "ftp"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown content store type")

	_, err = CreateContentStore(ctx, &ContentConfig{Type: "filesystem", Filesystem: map[string]any{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")

	_, err = CreateContentStore(ctx, &ContentConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket")

	_, err = CreateContentStore(ctx, &ContentConfig{Type: "s3", S3: map[string]any{"bucket": "b", "force_path_style": "sometimes"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid S3 content config")
}
