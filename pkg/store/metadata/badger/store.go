// Package badger implements a persistent metadata store on BadgerDB.
//
// See keys.go for the key namespace layout and serialization.go for the value
// format.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// maxConflictRetries bounds how often a transaction is retried after BadgerDB
// reports a serialization conflict.
const maxConflictRetries = 16

// BadgerMetadataStoreConfig contains configuration for creating a BadgerDB metadata store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory where BadgerDB will store its files
	// BadgerDB creates multiple files in this directory (value log, LSM tree, etc.)
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk. DBPath is ignored.
	InMemory bool `mapstructure:"in_memory"`

	// BadgerOptions allows customization of BadgerDB behavior
	// If nil, sensible defaults are used
	BadgerOptions *badger.Options `mapstructure:"-"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// BadgerMetadataStore stores every collection of one repository in a single
// BadgerDB database.
//
// Thread Safety:
// BadgerDB transactions are serializable; Update retries on conflict, so
// concurrent read-modify-write cycles on the same record never interleave.
type BadgerMetadataStore struct {
	db *badger.DB
}

var _ repository.BackendProvider = (*BadgerMetadataStore)(nil)

// NewBadgerMetadataStore opens (or creates) the database described by config.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database path and tuning options
//
// Returns:
//   - *BadgerMetadataStore: Store ready for use
//   - error: Error if the database cannot be opened or ctx is cancelled
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			if config.DBPath == "" {
				return nil, fmt.Errorf("badger db_path is required")
			}
			opts = badger.DefaultOptions(config.DBPath)
		}

		// Records are small JSON documents.
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	logger.Info("BadgerDB metadata store opened: path=%s in_memory=%v", config.DBPath, config.InMemory)

	return &BadgerMetadataStore{db: db}, nil
}

// Collection returns the backend for the named collection.
func (s *BadgerMetadataStore) Collection(name string) (repository.Backend, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if err := validateKeyPart("collection name", name); err != nil {
		return nil, err
	}
	return &collection{db: s.db, name: name}, nil
}

// Healthcheck fails once the database has been closed.
func (s *BadgerMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("BadgerDB metadata store is closed")
	}
	return nil
}

// Close flushes pending writes and closes the database.
func (s *BadgerMetadataStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on conflict.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		logger.Debug("BadgerDB transaction conflict, retrying (attempt %d)", attempt+1)
	}
	return fmt.Errorf("transaction abandoned after %d conflicts: %w", maxConflictRetries, err)
}
