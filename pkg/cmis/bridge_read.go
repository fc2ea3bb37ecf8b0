package cmis

import (
	"context"
	"time"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/model"
)

// GetRepositoryInfo describes the repository.
func (b *Bridge) GetRepositoryInfo(ctx context.Context) RepositoryInfo {
	return b.info
}

// GetTypeChildren lists the types derived from typeID. An empty typeID
// lists the base types. The bridge defines no subtypes, so any known type
// id yields an empty list.
func (b *Bridge) GetTypeChildren(ctx context.Context, typeID string, includePropertyDefinitions bool, page ListOptions) (result *TypeDefinitionList, err error) {
	start := time.Now()
	defer func() { b.observe("getTypeChildren", start, err) }()

	logger.Debug("GetTypeChildren: type=%q", typeID)

	var defs []*TypeDefinition
	if typeID == "" {
		defs = b.types.List()
	} else if _, ok := b.types.Get(typeID); !ok {
		return nil, newError(ErrNotFound, typeID, "type not found")
	}

	from, to, err := page.page(len(defs))
	if err != nil {
		return nil, err
	}

	result = &TypeDefinitionList{
		Types:        make([]*TypeDefinition, 0, to-from),
		HasMoreItems: to < len(defs),
		NumItems:     len(defs),
	}
	for _, def := range defs[from:to] {
		if !includePropertyDefinitions {
			def = def.withoutProperties()
		}
		result.Types = append(result.Types, def)
	}
	return result, nil
}

// GetTypeDefinition returns the definition of typeID.
func (b *Bridge) GetTypeDefinition(ctx context.Context, typeID string) (def *TypeDefinition, err error) {
	start := time.Now()
	defer func() { b.observe("getTypeDefinition", start, err) }()

	logger.Debug("GetTypeDefinition: type=%q", typeID)

	def, ok := b.types.Get(typeID)
	if !ok {
		return nil, newError(ErrNotFound, typeID, "type not found")
	}
	return def, nil
}

// GetChildren lists one page of the children of a folder.
func (b *Bridge) GetChildren(ctx context.Context, folderID string, opts ObjectOptions, page ListOptions) (result *ObjectInFolderList, err error) {
	start := time.Now()
	defer func() { b.observe("getChildren", start, err) }()

	logger.Debug("GetChildren: folder=%s skip=%d max=%d", folderID, page.SkipCount, page.MaxItems)

	if err := b.validateFilter(opts.Filter); err != nil {
		return nil, err
	}

	folder, err := b.nav.FindFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	children, err := b.nav.GetChildren(ctx, folder)
	if err != nil {
		return nil, err
	}

	from, to, err := page.page(len(children))
	if err != nil {
		return nil, err
	}

	result = &ObjectInFolderList{
		Objects:      make([]ObjectInFolder, 0, to-from),
		HasMoreItems: to < len(children),
		NumItems:     len(children),
	}
	for _, child := range children[from:to] {
		data, err := b.project(ctx, child, opts)
		if err != nil {
			return nil, err
		}
		entry := ObjectInFolder{Object: data}
		if opts.IncludePathSegment {
			entry.PathSegment = model.NameOf(child)
		}
		result.Objects = append(result.Objects, entry)
	}
	return result, nil
}

// GetObjectParents returns the folder an object is filed in. The root has
// no parents and fails with ErrInvalidArgument; an object that cannot be
// filed has an empty parent list.
func (b *Bridge) GetObjectParents(ctx context.Context, objectID string, opts ObjectOptions) (parents []ObjectParentData, err error) {
	start := time.Now()
	defer func() { b.observe("getObjectParents", start, err) }()

	logger.Debug("GetObjectParents: id=%s", objectID)

	if err := b.validateFilter(opts.Filter); err != nil {
		return nil, err
	}
	if b.nav.IsRoot(objectID) {
		return nil, newError(ErrInvalidArgument, objectID, "the root folder has no parent")
	}

	obj, err := b.nav.FindByID(ctx, objectID)
	if err != nil {
		return nil, err
	}

	parent, err := b.nav.GetParent(ctx, obj)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return []ObjectParentData{}, nil
	}

	data, err := b.project(ctx, parent, opts)
	if err != nil {
		return nil, err
	}

	entry := ObjectParentData{Object: data}
	if opts.IncludePathSegment {
		entry.RelativePathSegment = model.NameOf(obj)
	}
	return []ObjectParentData{entry}, nil
}

// GetFolderParent returns the parent of a folder, which is the root for
// folders filed at the root.
func (b *Bridge) GetFolderParent(ctx context.Context, folderID string, opts ObjectOptions) (data *ObjectData, err error) {
	start := time.Now()
	defer func() { b.observe("getFolderParent", start, err) }()

	logger.Debug("GetFolderParent: id=%s", folderID)

	if err := b.validateFilter(opts.Filter); err != nil {
		return nil, err
	}
	if b.nav.IsRoot(folderID) {
		return nil, newError(ErrInvalidArgument, folderID, "the root folder has no parent")
	}

	folder, err := b.nav.FindFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	parent, err := b.nav.GetParent(ctx, folder)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		parent = b.nav.Root()
	}
	return b.project(ctx, parent, opts)
}

// GetObjectByPath resolves an absolute path.
func (b *Bridge) GetObjectByPath(ctx context.Context, path string, opts ObjectOptions) (data *ObjectData, err error) {
	start := time.Now()
	defer func() { b.observe("getObjectByPath", start, err) }()

	logger.Debug("GetObjectByPath: path=%q", path)

	if err := b.validateFilter(opts.Filter); err != nil {
		return nil, err
	}

	obj, err := b.nav.ResolvePath(ctx, path)
	if err != nil {
		return nil, err
	}
	return b.project(ctx, obj, opts)
}

// GetObject loads an object by id.
func (b *Bridge) GetObject(ctx context.Context, objectID string, opts ObjectOptions) (data *ObjectData, err error) {
	start := time.Now()
	defer func() { b.observe("getObject", start, err) }()

	logger.Debug("GetObject: id=%s", objectID)

	if err := b.validateFilter(opts.Filter); err != nil {
		return nil, err
	}

	obj, err := b.nav.FindByID(ctx, objectID)
	if err != nil {
		return nil, err
	}
	return b.project(ctx, obj, opts)
}

// GetContentStream opens the content stream of a document. The caller must
// close the returned stream. Documents without content fail with
// ErrNotFound.
func (b *Bridge) GetContentStream(ctx context.Context, objectID string) (stream *ContentStream, err error) {
	start := time.Now()
	defer func() { b.observe("getContentStream", start, err) }()

	logger.Debug("GetContentStream: id=%s", objectID)

	obj, err := b.findDocument(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if b.content == nil {
		return nil, newError(ErrNotFound, objectID, "object has no content stream")
	}
	return b.content.Get(ctx, obj)
}
