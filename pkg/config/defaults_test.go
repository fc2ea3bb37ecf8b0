package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/dittocmis/pkg/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsLogging(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestApplyDefaultsStores(t *testing.T) {
	dir := isolate(t)

	cfg := &Config{}
	ApplyDefaults(cfg)

	dataDir := filepath.Join(dir, "data", "dittocmis")
	assert.Equal(t, "badger", cfg.Metadata.Type)
	assert.Equal(t, filepath.Join(dataDir, "metadata"), cfg.Metadata.Badger["db_path"])
	assert.Equal(t, filepath.Join(dataDir, "metadata.db"), cfg.Metadata.SQLite["path"])
	assert.NotNil(t, cfg.Metadata.Memory)

	assert.Equal(t, "filesystem", cfg.Content.Type)
	assert.Equal(t, int64(DefaultMaxContentSize), cfg.Content.MaxContentSize)
	assert.Equal(t, filepath.Join(dataDir, "content"), cfg.Content.Filesystem["path"])
	assert.Equal(t, "us-east-1", cfg.Content.S3["region"])
	assert.Equal(t, "dittocmis/", cfg.Content.S3["key_prefix"])
	assert.NotNil(t, cfg.Content.Memory)
}

func TestApplyDefaultsRepository(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "default", cfg.Repository.ID)
	assert.Equal(t, "DittoCMIS", cfg.Repository.Name)
	assert.Equal(t, "DittoCMIS", cfg.Repository.VendorName)
	assert.Equal(t, Version, cfg.Repository.ProductVersion)
	assert.Equal(t, "@root@", cfg.Repository.RootFolderID)
	require.NotNil(t, cfg.Repository.Versioning)
	assert.True(t, *cfg.Repository.Versioning)
}

func TestApplyDefaultsUnlimitedContent(t *testing.T) {
	isolate(t)

	cfg := &Config{Content: ContentConfig{MaxContentSize: -1}}
	ApplyDefaults(cfg)

	assert.Equal(t, int64(-1), cfg.Content.MaxContentSize)
	require.NoError(t, Validate(cfg))
}

func TestApplyDefaultsGC(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 24*time.Hour, cfg.GC.Interval)
	assert.Equal(t, DefaultGCMinAge, cfg.GC.MinAge)

	cfg = &Config{GC: gc.Config{MinAge: -1}}
	ApplyDefaults(cfg)
	assert.Equal(t, time.Duration(-1), cfg.GC.MinAge)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	isolate(t)

	disabled := false
	cfg := &Config{
		Logging:  LoggingConfig{Level: "ERROR", Format: "json", Output: "stdout"},
		Metadata: MetadataConfig{Type: "sqlite", SQLite: map[string]any{"path": "/srv/meta.db"}},
		Content:  ContentConfig{Type: "s3", S3: map[string]any{"bucket": "docs", "region": "eu-west-1"}},
		Repository: RepositoryConfig{
			ID:           "archive",
			Name:         "Archive",
			RootFolderID: "root",
			Versioning:   &disabled,
		},
		GC:      gc.Config{Interval: time.Hour, BatchSize: 10, MinAge: time.Minute},
		Metrics: MetricsConfig{Enabled: true, Port: 9191},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "/srv/meta.db", cfg.Metadata.SQLite["path"])
	assert.Equal(t, "eu-west-1", cfg.Content.S3["region"])
	assert.Equal(t, "archive", cfg.Repository.ID)
	assert.Equal(t, "root", cfg.Repository.RootFolderID)
	assert.False(t, cfg.Repository.VersioningEnabled())
	assert.Equal(t, time.Hour, cfg.GC.Interval)
	assert.Equal(t, 10, cfg.GC.BatchSize)
	assert.Equal(t, time.Minute, cfg.GC.MinAge)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

func TestGetDefaultConfigIsValid(t *testing.T) {
	isolate(t)

	require.NoError(t, Validate(GetDefaultConfig()))
}
