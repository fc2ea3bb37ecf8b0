package cmis

import (
	"context"
	"time"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// CreateDocument creates a document filed in folderID, or at the root when
// folderID is empty, and returns its id. stream is optional.
func (b *Bridge) CreateDocument(ctx context.Context, props map[string]any, folderID string, stream *ContentStream) (id string, err error) {
	start := time.Now()
	defer func() { b.observe("createDocument", start, err) }()

	logger.Debug("CreateDocument: folder=%q", folderID)

	if b.documents == nil {
		return "", newError(ErrUnsupported, "", "no document repository")
	}
	if !stream.empty() {
		if err := b.requireContent(""); err != nil {
			return "", err
		}
	}

	doc, err := b.create(ctx, b.documents, props, folderID)
	if err != nil {
		return "", err
	}

	if !stream.empty() {
		if _, err := b.content.Set(ctx, doc, stream, stream.MimeType); err != nil {
			b.discardCreated(ctx, doc)
			return "", err
		}
	}

	logger.Debug("CreateDocument: created %s (%s)", doc.ID(), model.NameOf(doc))
	return doc.ID(), nil
}

// discardCreated removes a document whose content was rejected, so the
// name stays free for a retry.
func (b *Bridge) discardCreated(ctx context.Context, doc model.Object) {
	if err := b.nav.Unfile(ctx, doc); err != nil {
		logger.Warn("CreateDocument: failed to unfile %s: %v", doc.ID(), err)
	}
	if err := b.documents.Delete(ctx, doc); err != nil && !repository.IsNotFound(err) {
		logger.Warn("CreateDocument: failed to remove %s: %v", doc.ID(), err)
	}
}

// CreateFolder creates a folder filed in folderID, or at the root when
// folderID is empty, and returns its id.
func (b *Bridge) CreateFolder(ctx context.Context, props map[string]any, folderID string) (id string, err error) {
	start := time.Now()
	defer func() { b.observe("createFolder", start, err) }()

	logger.Debug("CreateFolder: folder=%q", folderID)

	if b.folders == nil {
		return "", newError(ErrUnsupported, "", "no folder repository")
	}

	folder, err := b.create(ctx, b.folders, props, folderID)
	if err != nil {
		return "", err
	}

	logger.Debug("CreateFolder: created %s (%s)", folder.ID(), model.NameOf(folder))
	return folder.ID(), nil
}

// create instantiates, files and saves a new entity of repo.
func (b *Bridge) create(ctx context.Context, repo repository.Repository, props map[string]any, folderID string) (model.Object, error) {
	// ========================================================================
	// Step 1: Populate the new entity
	// ========================================================================

	obj := repo.New()
	setter := b.setters[obj.Kind()]

	if err := setter.apply(obj, props, true); err != nil {
		return nil, err
	}
	if setter.reg.Has(RoleName) {
		if err := ValidateName(model.NameOf(obj)); err != nil {
			return nil, err
		}
	}

	// ========================================================================
	// Step 2: Resolve the parent and keep names unique within it
	// ========================================================================

	var parent model.Object
	if folderID != "" && !b.nav.IsRoot(folderID) {
		var err error
		if parent, err = b.nav.FindFolder(ctx, folderID); err != nil {
			return nil, err
		}
	}

	if _, fileable := obj.(model.ParentReferencing); fileable {
		if err := b.nav.SetParent(obj, parent); err != nil {
			return nil, err
		}
	} else if parent != nil {
		return nil, newError(ErrInvalidArgument, folderID, "objects of type %s cannot be filed", b.typeOf(obj).ID)
	}

	if setter.reg.Has(RoleName) {
		if err := b.nav.CheckNameAvailable(ctx, parent, model.NameOf(obj), nil); err != nil {
			return nil, err
		}
	}

	// ========================================================================
	// Step 3: Save and link into the parent
	// ========================================================================

	saved, err := repo.Save(ctx, obj)
	if err != nil {
		return nil, translate(err, obj.ID())
	}
	if parent != nil {
		if err := b.nav.Link(ctx, parent.ID(), saved.ID()); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

// UpdateProperties applies writable property values to an object and
// returns its id.
func (b *Bridge) UpdateProperties(ctx context.Context, objectID string, props map[string]any) (id string, err error) {
	start := time.Now()
	defer func() { b.observe("updateProperties", start, err) }()

	logger.Debug("UpdateProperties: id=%s properties=%d", objectID, len(props))

	if b.nav.IsRoot(objectID) {
		return "", newError(ErrInvalidArgument, objectID, "the root folder cannot be updated")
	}

	obj, err := b.nav.FindByID(ctx, objectID)
	if err != nil {
		return "", err
	}

	oldName := model.NameOf(obj)
	if err := b.setters[obj.Kind()].apply(obj, props, false); err != nil {
		return "", err
	}

	if name := model.NameOf(obj); name != oldName {
		parent, err := b.nav.GetParent(ctx, obj)
		if err != nil {
			return "", err
		}
		if err := b.nav.CheckNameAvailable(ctx, parent, name, obj); err != nil {
			return "", err
		}
	}

	saved, err := b.repositoryOf(obj.Kind()).Save(ctx, obj)
	if err != nil {
		return "", translate(err, objectID)
	}
	return saved.ID(), nil
}

// SetContentStream replaces the content of a document and returns its id.
// When overwrite is false and the document already has content it fails
// with ErrConflict.
func (b *Bridge) SetContentStream(ctx context.Context, objectID string, overwrite bool, stream *ContentStream) (id string, err error) {
	start := time.Now()
	defer func() { b.observe("setContentStream", start, err) }()

	logger.Debug("SetContentStream: id=%s overwrite=%v", objectID, overwrite)

	if err := b.requireContent(objectID); err != nil {
		return "", err
	}

	doc, err := b.findDocument(ctx, objectID)
	if err != nil {
		return "", err
	}
	if !overwrite && model.ContentLengthOf(doc) > 0 {
		return "", newError(ErrConflict, objectID, "content stream already exists")
	}

	if stream == nil {
		doc, err = b.content.Unset(ctx, doc)
	} else {
		doc, err = b.content.Set(ctx, doc, stream, stream.MimeType)
	}
	if err != nil {
		return "", err
	}
	return doc.ID(), nil
}

// DeleteContentStream removes the content of a document and returns its id.
func (b *Bridge) DeleteContentStream(ctx context.Context, objectID string) (id string, err error) {
	start := time.Now()
	defer func() { b.observe("deleteContentStream", start, err) }()

	logger.Debug("DeleteContentStream: id=%s", objectID)

	if err := b.requireContent(objectID); err != nil {
		return "", err
	}

	doc, err := b.findDocument(ctx, objectID)
	if err != nil {
		return "", err
	}

	doc, err = b.content.Unset(ctx, doc)
	if err != nil {
		return "", err
	}
	return doc.ID(), nil
}

// DeleteObject deletes a folder or a document. Documents of a versioned
// repository are deleted one version at a time unless allVersions is set.
// The root and non-empty folders cannot be deleted.
func (b *Bridge) DeleteObject(ctx context.Context, objectID string, allVersions bool) (err error) {
	start := time.Now()
	defer func() { b.observe("deleteObject", start, err) }()

	logger.Debug("DeleteObject: id=%s allVersions=%v", objectID, allVersions)

	if b.nav.IsRoot(objectID) {
		return newError(ErrInvalidArgument, objectID, "the root folder cannot be deleted")
	}

	obj, err := b.nav.FindByID(ctx, objectID)
	if err != nil {
		return err
	}

	if obj.Kind() == model.KindFolder {
		return b.deleteFolder(ctx, obj)
	}

	switch {
	case b.versioning != nil && allVersions:
		return b.versioning.DeleteAllVersions(ctx, obj)
	case b.versioning != nil:
		return b.versioning.Delete(ctx, obj)
	}

	if err := b.nav.Unfile(ctx, obj); err != nil {
		return err
	}
	if b.content != nil {
		if err := b.content.Discard(ctx, obj); err != nil {
			return err
		}
	}
	if err := b.documents.Delete(ctx, obj); err != nil {
		return translate(err, objectID)
	}
	return nil
}

func (b *Bridge) deleteFolder(ctx context.Context, folder model.Object) error {
	children, err := b.nav.GetChildren(ctx, folder)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return newError(ErrConflict, folder.ID(), "folder is not empty (%d children)", len(children))
	}

	if err := b.nav.Unfile(ctx, folder); err != nil {
		return err
	}
	if err := b.folders.Delete(ctx, folder); err != nil {
		return translate(err, folder.ID())
	}
	return nil
}
