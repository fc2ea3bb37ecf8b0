// Package memory implements in-memory blob storage.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/marmos91/dittocmis/pkg/store/content"
)

// MemoryContentStoreConfig contains configuration for the in-memory store.
type MemoryContentStoreConfig struct {
	// MaxSizeBytes caps the total stored bytes. 0 means unlimited.
	MaxSizeBytes uint64 `mapstructure:"max_size_bytes"`
}

// MemoryContentStore implements content.Store using a map.
//
// It's designed for:
//   - Testing and development
//   - Ephemeral repositories
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Data is copied on write
// and on read so callers never share buffers with the store.
type MemoryContentStore struct {
	// data stores blob bytes keyed by ContentID
	data map[content.ContentID][]byte

	// modified records when each blob was last written
	modified map[content.ContentID]time.Time

	// used is the sum of len(data[id])
	used uint64

	maxSize uint64

	mu sync.RWMutex
}

var _ content.Store = (*MemoryContentStore)(nil)

// NewMemoryContentStore creates a new in-memory content store.
//
// Returns an error only if the context is already cancelled.
func NewMemoryContentStore(ctx context.Context, config MemoryContentStoreConfig) (*MemoryContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryContentStore{
		data:     make(map[content.ContentID][]byte),
		modified: make(map[content.ContentID]time.Time),
		maxSize:  config.MaxSizeBytes,
	}, nil
}

// ============================================================================
// ContentStore
// ============================================================================

func (s *MemoryContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.data[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	// The stored slice is never mutated in place; a write replaces it.
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return uint64(len(data)), nil
}

func (s *MemoryContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[id]
	return ok, nil
}

// GetStorageStats reports unlimited capacity unless MaxSizeBytes is set.
func (s *MemoryContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := content.NewStorageStats(s.used, uint64(len(s.data)))
	if s.maxSize > 0 {
		stats.TotalSize = s.maxSize
		stats.AvailableSize = s.maxSize - min(s.used, s.maxSize)
	}
	return stats, nil
}

// ============================================================================
// WritableContentStore
// ============================================================================

// WriteContent stores a private copy of data.
func (s *MemoryContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	// ========================================================================
	// Step 1: Validate before acquiring the lock
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateContentID(id); err != nil {
		return err
	}

	// ========================================================================
	// Step 2: Enforce capacity and replace the blob
	// ========================================================================

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := uint64(len(s.data[id]))
	next := s.used - previous + uint64(len(data))
	if s.maxSize > 0 && next > s.maxSize {
		return fmt.Errorf("content %s: store full (%d of %d bytes used)", id, s.used, s.maxSize)
	}

	s.data[id] = bytes.Clone(data)
	if s.data[id] == nil {
		s.data[id] = []byte{}
	}
	s.modified[id] = time.Now()
	s.used = next
	return nil
}

func (s *MemoryContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(id)
	return nil
}

func (s *MemoryContentStore) deleteLocked(id content.ContentID) {
	if data, ok := s.data[id]; ok {
		s.used -= uint64(len(data))
		delete(s.data, id)
		delete(s.modified, id)
	}
}

// ============================================================================
// GarbageCollectableStore
// ============================================================================

// ListAllContent returns a snapshot of the stored ids.
func (s *MemoryContentStore) ListAllContent(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]content.ContentID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryContentStore) GetContentModTime(ctx context.Context, id content.ContentID) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	modified, ok := s.modified[id]
	if !ok {
		return time.Time{}, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return modified, nil
}

// DeleteBatch removes every id under a single write lock.
func (s *MemoryContentStore) DeleteBatch(ctx context.Context, ids []content.ContentID) (map[content.ContentID]error, error) {
	failures := make(map[content.ContentID]error)

	if err := ctx.Err(); err != nil {
		for _, id := range ids {
			failures[id] = err
		}
		return failures, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.deleteLocked(id)
	}
	return failures, nil
}
