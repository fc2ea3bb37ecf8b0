// Package content binds blob storage to content-bearing domain objects.
//
// A blob store (pkg/store/content) only knows ids and bytes. Store keeps the
// content roles of an object (content id, length, MIME type) in step with
// the blob it points at. It mutates the object it is given but never
// persists it; the caller saves the returned object through its repository.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/model"
	blob "github.com/marmos91/dittocmis/pkg/store/content"
)

var (
	// ErrNoContent indicates the object has no content stream set.
	ErrNoContent = errors.New("no content stream")

	// ErrNotContentBearing indicates the object type cannot carry content.
	ErrNotContentBearing = errors.New("object cannot carry content")

	// ErrContentTooLarge indicates a stream exceeding the configured limit.
	ErrContentTooLarge = errors.New("content stream too large")
)

// Config configures a Store.
type Config struct {
	// MaxContentSize rejects larger streams. Blob stores take whole blobs,
	// so every stream is buffered in memory up to this size. 0 or negative
	// means unlimited.
	MaxContentSize int64
}

// Store is the entity-level content store.
type Store struct {
	blobs   blob.Store
	maxSize int64
}

// NewStore creates a Store writing blobs to blobs.
func NewStore(blobs blob.Store, cfg Config) *Store {
	return &Store{blobs: blobs, maxSize: cfg.MaxContentSize}
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blob.Store {
	return s.blobs
}

// GetContent opens the content stream of obj. The caller closes it.
//
// Fails with ErrNoContent when the object's content length is 0, and with
// blob.ErrContentNotFound when the blob it points at is missing.
func (s *Store) GetContent(ctx context.Context, obj model.Object) (io.ReadCloser, error) {
	bearer, err := contentBearing(obj)
	if err != nil {
		return nil, err
	}
	if bearer.ContentLength() == 0 || bearer.ContentID() == "" {
		return nil, fmt.Errorf("object %s: %w", obj.ID(), ErrNoContent)
	}

	return s.blobs.ReadContent(ctx, blob.ContentID(bearer.ContentID()))
}

// SetContent stores the bytes read from r as a new blob and points obj at
// it. The previous blob, if any, is deleted once the new one is written.
//
// When obj carries a MIME type role it is set to mimeType, or to the type
// detected from the data when mimeType is empty. An empty stream leaves obj
// without content, as UnsetContent does.
func (s *Store) SetContent(ctx context.Context, obj model.Object, r io.Reader, mimeType string) (model.Object, error) {
	previous, err := s.StageContent(ctx, obj, r, mimeType)
	if err != nil {
		return nil, err
	}
	s.Release(ctx, obj, previous)
	return obj, nil
}

// StageContent is SetContent without deleting the previous blob. It returns
// the id of the blob obj referenced before, which the caller hands to
// Release once the updated object is persisted.
func (s *Store) StageContent(ctx context.Context, obj model.Object, r io.Reader, mimeType string) (previous string, err error) {
	// ========================================================================
	// Step 1: Read the stream
	// ========================================================================

	bearer, err := contentBearing(obj)
	if err != nil {
		return "", err
	}

	data, err := s.readAll(r)
	if err != nil {
		return "", fmt.Errorf("object %s: %w", obj.ID(), err)
	}

	if len(data) == 0 {
		return s.DetachContent(obj)
	}

	// ========================================================================
	// Step 2: Write the new blob and point obj at it
	// ========================================================================

	previous = bearer.ContentID()
	id := uuid.NewString()

	if err := s.blobs.WriteContent(ctx, blob.ContentID(id), data); err != nil {
		return "", fmt.Errorf("failed to store content of %s: %w", obj.ID(), err)
	}

	bearer.SetContentID(id)
	bearer.SetContentLength(int64(len(data)))

	if setter, ok := obj.(model.MimeTypeSetter); ok {
		if mimeType == "" {
			mimeType = mimetype.Detect(data).String()
		}
		setter.SetMimeType(mimeType)
	}

	logger.Debug("StageContent: %s -> %s (%d bytes, %s)", obj.ID(), id, len(data), mimeType)
	return previous, nil
}

// UnsetContent deletes the blob of obj and clears its content roles.
// Unsetting an object without content is a no-op.
func (s *Store) UnsetContent(ctx context.Context, obj model.Object) (model.Object, error) {
	bearer, err := contentBearing(obj)
	if err != nil {
		return nil, err
	}

	if id := bearer.ContentID(); id != "" {
		if err := s.blobs.Delete(ctx, blob.ContentID(id)); err != nil {
			return nil, fmt.Errorf("failed to delete content of %s: %w", obj.ID(), err)
		}
		logger.Debug("UnsetContent: %s released %s", obj.ID(), id)
	}

	if _, err := s.DetachContent(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// DetachContent clears the content roles of obj without deleting its blob
// and returns the id of the blob it referenced.
func (s *Store) DetachContent(obj model.Object) (previous string, err error) {
	bearer, err := contentBearing(obj)
	if err != nil {
		return "", err
	}

	previous = bearer.ContentID()
	bearer.SetContentID("")
	bearer.SetContentLength(0)
	if setter, ok := obj.(model.MimeTypeSetter); ok {
		setter.SetMimeType("")
	}
	return previous, nil
}

// Release deletes a blob that obj no longer references. An empty id, or the
// id obj still points at, is ignored. Failures leave an orphan for the
// garbage collector and are only logged.
func (s *Store) Release(ctx context.Context, obj model.Object, id string) {
	if id == "" {
		return
	}
	if bearer, ok := obj.(model.ContentBearing); ok && bearer.ContentID() == id {
		return
	}
	if err := s.blobs.Delete(ctx, blob.ContentID(id)); err != nil {
		logger.Warn("Release: failed to delete previous content %s of %s: %v", id, obj.ID(), err)
		return
	}
	logger.Debug("Release: %s released %s", obj.ID(), id)
}

// CopyContent gives dst a private copy of src's blob, so either object can
// later replace or unset its content without affecting the other. The MIME
// type is copied along. A src without content leaves dst without content.
func (s *Store) CopyContent(ctx context.Context, src, dst model.Object) (model.Object, error) {
	from, err := contentBearing(src)
	if err != nil {
		return nil, err
	}
	if _, err := contentBearing(dst); err != nil {
		return nil, err
	}

	mimeType := ""
	if typed, ok := src.(model.MimeTyped); ok {
		mimeType = typed.MimeType()
	}

	if from.ContentLength() == 0 || from.ContentID() == "" {
		// dst may still point at src's blob after a clone.
		to := dst.(model.ContentBearing)
		to.SetContentID("")
		to.SetContentLength(0)
		return dst, nil
	}

	rc, err := s.blobs.ReadContent(ctx, blob.ContentID(from.ContentID()))
	if err != nil {
		return nil, fmt.Errorf("failed to read content of %s: %w", src.ID(), err)
	}
	defer func() { _ = rc.Close() }()

	// dst shares src's id after a clone; clear it so SetContent does not
	// release the blob src still references.
	dst.(model.ContentBearing).SetContentID("")

	return s.SetContent(ctx, dst, rc, mimeType)
}

func (s *Store) readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	if s.maxSize <= 0 {
		return io.ReadAll(r)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if n > s.maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrContentTooLarge, s.maxSize)
	}
	return buf.Bytes(), nil
}

func contentBearing(obj model.Object) (model.ContentBearing, error) {
	if obj == nil {
		return nil, ErrNotContentBearing
	}
	bearer, ok := obj.(model.ContentBearing)
	if !ok {
		return nil, fmt.Errorf("object %s (%s): %w", obj.ID(), obj.Kind(), ErrNotContentBearing)
	}
	return bearer, nil
}
