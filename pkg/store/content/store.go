// Package content defines the blob storage interfaces used for document
// content streams.
//
// A blob store only knows opaque ContentIDs and bytes. Which document owns
// a blob, its MIME type and its length are tracked in the metadata
// repository; see pkg/content for the entity-level store that ties the two
// together.
package content

import (
	"context"
	"io"
	"time"
)

// ContentID identifies one blob in a content store.
//
// IDs are generated by the entity-level content store (UUIDs) and are never
// reused, so a blob is either present with its full data or absent.
type ContentID string

// ContentStore provides read access to blobs.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type ContentStore interface {
	// ReadContent returns a reader for the blob identified by id.
	//
	// The caller is responsible for closing the reader.
	//
	// Returns ErrContentNotFound if the blob does not exist.
	ReadContent(ctx context.Context, id ContentID) (io.ReadCloser, error)

	// GetContentSize returns the size of the blob in bytes without reading it.
	//
	// Returns ErrContentNotFound if the blob does not exist.
	GetContentSize(ctx context.Context, id ContentID) (uint64, error)

	// ContentExists reports whether the blob exists. A missing blob is not
	// an error.
	ContentExists(ctx context.Context, id ContentID) (bool, error)

	// GetStorageStats returns usage statistics for the store.
	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// WritableContentStore extends ContentStore with whole-blob writes.
type WritableContentStore interface {
	ContentStore

	// WriteContent stores data under id, replacing any previous blob.
	//
	// Writes are all-or-nothing: a reader never observes a partially
	// written blob.
	WriteContent(ctx context.Context, id ContentID, data []byte) error

	// Delete removes the blob. Deleting a missing blob succeeds.
	Delete(ctx context.Context, id ContentID) error
}

// GarbageCollectableStore supports the orphan sweep run by pkg/gc.
//
// Garbage Collection Flow:
//  1. The metadata repository reports every referenced ContentID
//  2. ListAllContent returns every stored ContentID
//  3. unreferenced = stored - referenced
//  4. Unreferenced blobs younger than the grace period are kept
//  5. DeleteBatch removes the rest
type GarbageCollectableStore interface {
	ContentStore

	// ListAllContent returns every ContentID currently stored.
	ListAllContent(ctx context.Context) ([]ContentID, error)

	// GetContentModTime returns when the blob was last written.
	//
	// Returns ErrContentNotFound if the blob does not exist.
	GetContentModTime(ctx context.Context, id ContentID) (time.Time, error)

	// DeleteBatch removes multiple blobs. The operation is best-effort:
	// individual failures are returned in the map and the error is reserved
	// for context cancellation or catastrophic failures. Missing blobs count
	// as successful deletions.
	DeleteBatch(ctx context.Context, ids []ContentID) (failures map[ContentID]error, err error)
}

// Store is the full capability set required by the bridge. Every backend
// shipped with the server (memory, filesystem, S3) implements it.
type Store interface {
	WritableContentStore
	GarbageCollectableStore
}

// StorageStats contains statistics about blob storage.
//
// Backends that cannot report a field leave it at 0. Unbounded backends
// (memory, S3) report ^uint64(0) for TotalSize and AvailableSize.
type StorageStats struct {
	// TotalSize is the storage capacity in bytes.
	TotalSize uint64

	// UsedSize is the sum of all blob sizes in bytes.
	UsedSize uint64

	// AvailableSize is the remaining capacity in bytes.
	AvailableSize uint64

	// ContentCount is the number of stored blobs.
	ContentCount uint64

	// AverageSize is UsedSize / ContentCount, or 0 for an empty store.
	AverageSize uint64
}

// NewStorageStats builds unbounded-capacity statistics from a used size and
// a blob count.
func NewStorageStats(usedSize, count uint64) *StorageStats {
	stats := &StorageStats{
		TotalSize:     ^uint64(0),
		UsedSize:      usedSize,
		AvailableSize: ^uint64(0),
		ContentCount:  count,
	}
	if count > 0 {
		stats.AverageSize = usedSize / count
	}
	return stats
}
