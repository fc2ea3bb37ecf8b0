package cmis

import (
	"context"
	"time"

	"github.com/marmos91/dittocmis/internal/logger"
)

// CheckOut creates the private working copy of a document's version series.
func (b *Bridge) CheckOut(ctx context.Context, objectID string) (result CheckOutResult, err error) {
	start := time.Now()
	defer func() { b.observe("checkOut", start, err) }()

	logger.Debug("CheckOut: id=%s", objectID)

	if err := b.requireVersioning(objectID); err != nil {
		return CheckOutResult{}, err
	}

	doc, err := b.findDocument(ctx, objectID)
	if err != nil {
		return CheckOutResult{}, err
	}
	return b.versioning.CheckOut(ctx, doc)
}

// CancelCheckOut discards the working copy of a document's version series.
// It does nothing when the series is not checked out.
func (b *Bridge) CancelCheckOut(ctx context.Context, objectID string) (err error) {
	start := time.Now()
	defer func() { b.observe("cancelCheckOut", start, err) }()

	logger.Debug("CancelCheckOut: id=%s", objectID)

	if err := b.requireVersioning(objectID); err != nil {
		return err
	}

	doc, err := b.findDocument(ctx, objectID)
	if err != nil {
		return err
	}
	return b.versioning.CancelCheckOut(ctx, doc)
}

// CheckIn makes the working copy of a document's version series its latest
// version and returns the new version's id.
func (b *Bridge) CheckIn(ctx context.Context, objectID string, req CheckInRequest) (id string, err error) {
	start := time.Now()
	defer func() { b.observe("checkIn", start, err) }()

	logger.Debug("CheckIn: id=%s major=%v", objectID, req.Major)

	if err := b.requireVersioning(objectID); err != nil {
		return "", err
	}
	if !req.Content.empty() {
		if err := b.requireContent(objectID); err != nil {
			return "", err
		}
	}

	doc, err := b.findDocument(ctx, objectID)
	if err != nil {
		return "", err
	}

	head, err := b.versioning.CheckIn(ctx, doc, req)
	if err != nil {
		return "", err
	}
	return head.ID(), nil
}

// GetAllVersions lists every version of a document's series, newest first.
// Documents of an unversioned repository are their own only version.
func (b *Bridge) GetAllVersions(ctx context.Context, objectID string, opts ObjectOptions) (versions []*ObjectData, err error) {
	start := time.Now()
	defer func() { b.observe("getAllVersions", start, err) }()

	logger.Debug("GetAllVersions: id=%s", objectID)

	if err := b.validateFilter(opts.Filter); err != nil {
		return nil, err
	}

	doc, err := b.findDocument(ctx, objectID)
	if err != nil {
		return nil, err
	}

	if b.versioning == nil {
		data, err := b.project(ctx, doc, opts)
		if err != nil {
			return nil, err
		}
		return []*ObjectData{data}, nil
	}

	members, err := b.versioning.AllVersions(ctx, doc)
	if err != nil {
		return nil, err
	}

	versions = make([]*ObjectData, 0, len(members))
	for _, member := range members {
		data, err := b.project(ctx, member, opts)
		if err != nil {
			return nil, err
		}
		versions = append(versions, data)
	}
	return versions, nil
}
