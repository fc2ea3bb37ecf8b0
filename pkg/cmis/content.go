package cmis

import (
	"context"
	"io"
	"strings"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/content"
	"github.com/marmos91/dittocmis/pkg/metrics"
	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// ContentStream is a content stream and its metadata.
//
// Streams returned by the bridge must be closed by the caller. Length is -1
// when unknown.
type ContentStream struct {
	FileName string
	MimeType string
	Length   int64
	Stream   io.Reader
}

// NewContentStream wraps r.
func NewContentStream(r io.Reader, mimeType, fileName string, length int64) *ContentStream {
	return &ContentStream{Stream: r, MimeType: mimeType, FileName: fileName, Length: length}
}

func (c *ContentStream) Read(p []byte) (int, error) {
	if c.Stream == nil {
		return 0, io.EOF
	}
	return c.Stream.Read(p)
}

// Close closes the underlying stream if it is closable.
func (c *ContentStream) Close() error {
	if closer, ok := c.Stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// empty reports whether the stream is known to carry no bytes.
func (c *ContentStream) empty() bool {
	return c == nil || c.Stream == nil || c.Length == 0
}

// ContentLifecycle reads and writes the content stream of documents and
// keeps their content roles in step.
//
// Updated documents are saved before their previous blob is released, so a
// failed save leaves an orphaned blob rather than a dangling reference.
type ContentLifecycle struct {
	documents repository.Repository
	store     *content.Store
	metrics   metrics.BridgeMetrics
}

// NewContentLifecycle creates a ContentLifecycle.
func NewContentLifecycle(documents repository.Repository, store *content.Store, m metrics.BridgeMetrics) *ContentLifecycle {
	if m == nil {
		m = metrics.NewNoopBridgeMetrics()
	}
	return &ContentLifecycle{documents: documents, store: store, metrics: m}
}

// Get opens the content stream of obj. It fails with ErrNotFound when obj
// has no content.
func (c *ContentLifecycle) Get(ctx context.Context, obj model.Object) (*ContentStream, error) {
	length := model.ContentLengthOf(obj)
	if length == 0 {
		return nil, newError(ErrNotFound, obj.ID(), "object has no content stream")
	}

	rc, err := c.store.GetContent(ctx, obj)
	if err != nil {
		return nil, translate(err, obj.ID())
	}

	return &ContentStream{
		FileName: model.NameOf(obj),
		MimeType: mimeTypeOf(obj),
		Length:   length,
		Stream:   &countingReadCloser{ReadCloser: rc, record: c.recordRead},
	}, nil
}

// Set replaces the content of obj with the bytes of r and saves obj. An
// empty stream removes the content.
func (c *ContentLifecycle) Set(ctx context.Context, obj model.Object, r io.Reader, mimeType string) (model.Object, error) {
	if r == nil {
		r = strings.NewReader("")
	}
	counted := &countingReader{Reader: r}

	previous, err := c.store.StageContent(ctx, obj, counted, mimeType)
	if err != nil {
		return nil, translate(err, obj.ID())
	}
	c.metrics.RecordContentBytes("write", counted.n)

	saved, err := c.documents.Save(ctx, obj)
	if err != nil {
		return nil, translate(err, obj.ID())
	}
	c.store.Release(ctx, saved, previous)

	logger.Debug("Content set: %s (%d bytes)", obj.ID(), counted.n)
	return saved, nil
}

// Unset removes the content of obj and saves it.
func (c *ContentLifecycle) Unset(ctx context.Context, obj model.Object) (model.Object, error) {
	previous, err := c.store.DetachContent(obj)
	if err != nil {
		return nil, translate(err, obj.ID())
	}

	saved, err := c.documents.Save(ctx, obj)
	if err != nil {
		return nil, translate(err, obj.ID())
	}
	c.store.Release(ctx, saved, previous)

	logger.Debug("Content unset: %s", obj.ID())
	return saved, nil
}

// Copy gives dst a private copy of the content of src and saves dst.
func (c *ContentLifecycle) Copy(ctx context.Context, src, dst model.Object) (model.Object, error) {
	if _, err := c.store.CopyContent(ctx, src, dst); err != nil {
		return nil, translate(err, src.ID())
	}
	saved, err := c.documents.Save(ctx, dst)
	if err != nil {
		return nil, translate(err, dst.ID())
	}
	return saved, nil
}

// Discard deletes the blob of an object that is about to be deleted. obj is
// not saved.
func (c *ContentLifecycle) Discard(ctx context.Context, obj model.Object) error {
	if _, ok := obj.(model.ContentBearing); !ok {
		return nil
	}
	if _, err := c.store.UnsetContent(ctx, obj); err != nil {
		return translate(err, obj.ID())
	}
	return nil
}

func (c *ContentLifecycle) recordRead(n int64) {
	c.metrics.RecordContentBytes("read", n)
}

type countingReader struct {
	io.Reader
	n int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	r.n += int64(n)
	return n, err
}

// countingReadCloser reports the bytes read once, on Close.
type countingReadCloser struct {
	io.ReadCloser
	n      int64
	record func(int64)
	closed bool
}

func (r *countingReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	return n, err
}

func (r *countingReadCloser) Close() error {
	err := r.ReadCloser.Close()
	if !r.closed {
		r.closed = true
		r.record(r.n)
	}
	return err
}
