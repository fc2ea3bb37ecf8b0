package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittocmis/pkg/cmis"
	"github.com/marmos91/dittocmis/pkg/gc"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetadataDefaults(&cfg.Metadata)
	applyContentDefaults(&cfg.Content)
	applyRepositoryDefaults(&cfg.Repository)
	applyGCDefaults(&cfg.GC)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyMetadataDefaults sets metadata store defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.SQLite == nil {
		cfg.SQLite = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(defaultDataDir(), "metadata")
	}
	if _, ok := cfg.SQLite["path"]; !ok {
		cfg.SQLite["path"] = filepath.Join(defaultDataDir(), "metadata.db")
	}
}

// DefaultMaxContentSize bounds the memory a single content write can use.
const DefaultMaxContentSize = 256 << 20

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}
	if cfg.MaxContentSize == 0 {
		cfg.MaxContentSize = DefaultMaxContentSize
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = filepath.Join(defaultDataDir(), "content")
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
	if _, ok := cfg.S3["key_prefix"]; !ok {
		cfg.S3["key_prefix"] = "dittocmis/"
	}
}

// applyRepositoryDefaults sets repository identity defaults.
func applyRepositoryDefaults(cfg *RepositoryConfig) {
	if cfg.ID == "" {
		cfg.ID = "default"
	}
	if cfg.Name == "" {
		cfg.Name = "DittoCMIS"
	}
	if cfg.VendorName == "" {
		cfg.VendorName = "DittoCMIS"
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "DittoCMIS"
	}
	if cfg.ProductVersion == "" {
		cfg.ProductVersion = Version
	}
	if cfg.RootFolderID == "" {
		cfg.RootFolderID = cmis.DefaultRootFolderID
	}
	if cfg.Versioning == nil {
		enabled := true
		cfg.Versioning = &enabled
	}
}

// DefaultGCMinAge keeps freshly written blobs out of garbage collection.
const DefaultGCMinAge = time.Hour

// applyGCDefaults sets collector defaults. A negative min_age disables the
// grace period.
func applyGCDefaults(cfg *gc.Config) {
	cfg.ApplyDefaults()
	if cfg.MinAge == 0 {
		cfg.MinAge = DefaultGCMinAge
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// Version is reported as the product version when none is configured.
var Version = "dev"

// defaultDataDir is where persistent stores keep their files by default:
// $XDG_DATA_HOME/dittocmis, or ~/.local/share/dittocmis.
func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "dittocmis")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "dittocmis-data"
	}

	return filepath.Join(home, ".local", "share", "dittocmis")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
