// Package fs implements filesystem-based blob storage on go-billy.
//
// Production deployments mount an osfs rooted at the configured directory;
// tests use memfs. Blobs are sharded into sub-directories named after the
// first two characters of the ContentID to keep directory sizes bounded.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/store/content"
)

// FSContentStoreConfig contains configuration for the filesystem store.
type FSContentStoreConfig struct {
	// Path is the root directory for blobs. Created if missing.
	Path string `mapstructure:"path" validate:"required"`
}

// FSContentStore implements content.Store on a billy.Filesystem.
//
// Writes go to a temporary file in the shard directory and are renamed into
// place, so readers never observe a partially written blob.
//
// Thread Safety:
// The filesystem provides the required atomicity. Concurrent writes to the
// same ContentID are last-write-wins.
type FSContentStore struct {
	fs billy.Filesystem
}

var _ content.Store = (*FSContentStore)(nil)

// NewFSContentStore creates a store rooted at config.Path on the local disk.
func NewFSContentStore(ctx context.Context, config FSContentStoreConfig) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.Path == "" {
		return nil, fmt.Errorf("content path is required")
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	logger.Info("Filesystem content store opened: path=%s", config.Path)

	return NewFSContentStoreOn(osfs.New(config.Path)), nil
}

// NewFSContentStoreOn creates a store on an existing filesystem.
func NewFSContentStoreOn(filesystem billy.Filesystem) *FSContentStore {
	return &FSContentStore{fs: filesystem}
}

const tempPrefix = ".tmp-"

// blobPath returns the shard-relative path for id.
func blobPath(id content.ContentID) string {
	s := string(id)
	shard := s
	if len(s) > 2 {
		shard = s[:2]
	}
	return path.Join(shard, s)
}

// ============================================================================
// ContentStore
// ============================================================================

func (s *FSContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := content.ValidateContentID(id); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(blobPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to open content %s: %w", id, err)
	}
	return f, nil
}

func (s *FSContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	info, err := s.stat(ctx, id)
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

func (s *FSContentStore) stat(ctx context.Context, id content.ContentID) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := content.ValidateContentID(id); err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(blobPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to stat content %s: %w", id, err)
	}
	return info, nil
}

func (s *FSContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := s.GetContentSize(ctx, id)
	if errors.Is(err, content.ErrContentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetStorageStats walks every shard. Capacity is reported as unlimited.
func (s *FSContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	var used, count uint64
	err := s.walk(ctx, func(_ content.ContentID, info os.FileInfo) {
		used += uint64(info.Size())
		count++
	})
	if err != nil {
		return nil, err
	}
	return content.NewStorageStats(used, count), nil
}

// ============================================================================
// WritableContentStore
// ============================================================================

func (s *FSContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	// ========================================================================
	// Step 1: Validate and ensure the shard directory exists
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateContentID(id); err != nil {
		return err
	}

	target := blobPath(id)
	dir := path.Dir(target)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create shard %s: %w", dir, err)
	}

	// ========================================================================
	// Step 2: Write to a temporary file, then rename into place
	// ========================================================================

	tmp, err := s.fs.TempFile(dir, tempPrefix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write content %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close content %s: %w", id, err)
	}

	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to commit content %s: %w", id, err)
	}
	return nil
}

func (s *FSContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateContentID(id); err != nil {
		return err
	}

	if err := s.fs.Remove(blobPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete content %s: %w", id, err)
	}
	return nil
}

// ============================================================================
// GarbageCollectableStore
// ============================================================================

func (s *FSContentStore) ListAllContent(ctx context.Context) ([]content.ContentID, error) {
	var ids []content.ContentID
	err := s.walk(ctx, func(id content.ContentID, _ os.FileInfo) {
		ids = append(ids, id)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetContentModTime reports the file modification time. memfs always
// reports the current time.
func (s *FSContentStore) GetContentModTime(ctx context.Context, id content.ContentID) (time.Time, error) {
	info, err := s.stat(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *FSContentStore) DeleteBatch(ctx context.Context, ids []content.ContentID) (map[content.ContentID]error, error) {
	failures := make(map[content.ContentID]error)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			for _, rest := range ids[i:] {
				failures[rest] = err
			}
			return failures, err
		}
		if err := s.Delete(ctx, id); err != nil {
			failures[id] = err
		}
	}
	return failures, nil
}

// walk visits every committed blob. Temporary files are skipped.
func (s *FSContentStore) walk(ctx context.Context, fn func(id content.ContentID, info os.FileInfo)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	shards, err := s.fs.ReadDir("/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list content root: %w", err)
	}

	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := s.fs.ReadDir(shard.Name())
		if err != nil {
			return fmt.Errorf("failed to list shard %s: %w", shard.Name(), err)
		}
		for _, entry := range entries {
			if entry.IsDir() || isTemp(entry.Name()) {
				continue
			}
			fn(content.ContentID(entry.Name()), entry)
		}
	}
	return nil
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}
