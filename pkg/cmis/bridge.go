package cmis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/content"
	"github.com/marmos91/dittocmis/pkg/metrics"
	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// CMISVersion is the protocol version the bridge reports.
const CMISVersion = "1.1"

// Config is the repository configuration a Bridge is built from.
type Config struct {
	// Folders persists folders. When nil only the root folder exists.
	Folders repository.Repository

	// Documents persists documents. When it implements
	// repository.VersioningRepository documents are versionable.
	Documents repository.Repository

	// Content stores content streams. When nil documents carry no content.
	Content *content.Store

	// Navigation lists folder children. Defaults to listing the parent
	// references stored in Folders and Documents.
	Navigation repository.NavigationService

	// RootFolderID is the id of the synthetic root folder.
	// Default: "@root@"
	RootFolderID string

	// Info describes the repository. Capability fields are derived.
	Info RepositoryInfo

	// FulltextIndexed marks the document type as full-text indexed.
	FulltextIndexed bool

	// Metrics records operations. Optional.
	Metrics metrics.BridgeMetrics
}

// RepositoryInfo describes a repository to clients.
type RepositoryInfo struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	VendorName     string                 `json:"vendorName"`
	ProductName    string                 `json:"productName"`
	ProductVersion string                 `json:"productVersion"`
	CMISVersion    string                 `json:"cmisVersionSupported"`
	RootFolderID   string                 `json:"rootFolderId"`
	Capabilities   RepositoryCapabilities `json:"capabilities"`
}

// RepositoryCapabilities are the optional protocol features a repository
// supports.
type RepositoryCapabilities struct {
	ContentStreamUpdatability string `json:"contentStreamUpdatability"`
	Changes                   string `json:"changes"`
	Renditions                string `json:"renditions"`
	GetDescendants            bool   `json:"getDescendants"`
	GetFolderTree             bool   `json:"getFolderTree"`
	MultiFiling               bool   `json:"multifiling"`
	Unfiling                  bool   `json:"unfiling"`
	VersionSpecificFiling     bool   `json:"versionSpecificFiling"`
	PWCUpdatable              bool   `json:"pwcUpdatable"`
	PWCSearchable             bool   `json:"pwcSearchable"`
	AllVersionsSearchable     bool   `json:"allVersionsSearchable"`
	Query                     string `json:"query"`
	Join                      string `json:"join"`
	ACL                       string `json:"acl"`
	Versioning                bool   `json:"versioning"`
}

// Bridge projects a folder repository, a document repository and a content
// store onto the repository protocol's operation catalogue.
//
// Every operation is synchronous. Type definitions are built once by
// NewBridge and shared read-only by all callers, so a Bridge is safe for
// concurrent use as far as its repositories are.
type Bridge struct {
	folders    repository.Repository
	documents  repository.Repository
	versioning *Versioning
	content    *ContentLifecycle

	nav       *Navigation
	projector *Projector

	types        *TypeTable
	documentType *TypeDefinition
	folderType   *TypeDefinition
	queryNames   map[string]struct{}
	setters      map[model.Kind]propertySetter

	info    RepositoryInfo
	metrics metrics.BridgeMetrics
}

// NewBridge synthesizes the document and folder types of cfg and assembles
// the bridge components. It fails with ErrIllegalState when an entity type is
// neither a document nor a folder.
func NewBridge(cfg Config) (*Bridge, error) {
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoopBridgeMetrics()
	}

	// ========================================================================
	// Step 1: Derive capabilities
	// ========================================================================

	versioningRepo, versioned := cfg.Documents.(repository.VersioningRepository)

	documentCaps := Capabilities{
		HasRepository:   cfg.Documents != nil,
		HasContentStore: cfg.Content != nil,
		Versioning:      versioned,
		FulltextIndexed: cfg.FulltextIndexed,
	}
	folderCaps := Capabilities{HasRepository: cfg.Folders != nil}

	// ========================================================================
	// Step 2: Synthesize types
	// ========================================================================

	documentReg, err := NewRoleRegistry(prototypeOf(cfg.Documents, func() model.Object { return model.NewDocument("") }))
	if err != nil {
		return nil, fmt.Errorf("document type: %w", err)
	}
	if documentReg.Kind() != model.KindDocument {
		return nil, newError(ErrIllegalState, "", "document repository stores %s entities", documentReg.Kind())
	}
	documentType, err := SynthesizeTypeDefinition(documentReg, documentCaps)
	if err != nil {
		return nil, err
	}

	folderReg, err := NewRoleRegistry(prototypeOf(cfg.Folders, func() model.Object { return model.NewFolder("") }))
	if err != nil {
		return nil, fmt.Errorf("folder type: %w", err)
	}
	if folderReg.Kind() != model.KindFolder {
		return nil, newError(ErrIllegalState, "", "folder repository stores %s entities", folderReg.Kind())
	}
	folderType, err := SynthesizeTypeDefinition(folderReg, folderCaps)
	if err != nil {
		return nil, err
	}

	types := NewTypeTable(documentType, folderType)

	// ========================================================================
	// Step 3: Assemble components
	// ========================================================================

	nav := NewNavigation(cfg.Folders, cfg.Documents, cfg.Navigation, cfg.RootFolderID)

	var lifecycle *ContentLifecycle
	if cfg.Content != nil && cfg.Documents != nil {
		lifecycle = NewContentLifecycle(cfg.Documents, cfg.Content, m)
	}

	documentSetter := propertySetter{def: documentType, reg: documentReg}

	b := &Bridge{
		folders:      cfg.Folders,
		documents:    cfg.Documents,
		content:      lifecycle,
		nav:          nav,
		types:        types,
		documentType: documentType,
		folderType:   folderType,
		queryNames:   types.queryNames(),
		setters: map[model.Kind]propertySetter{
			model.KindDocument: documentSetter,
			model.KindFolder:   {def: folderType, reg: folderReg},
		},
		info:    repositoryInfo(cfg.Info, nav.RootID(), versioned, lifecycle != nil),
		metrics: m,
	}

	if versioned {
		b.versioning = NewVersioning(versioningRepo, nav, lifecycle, documentSetter)
		b.projector = NewProjector(nav, versioningRepo)
	} else {
		b.projector = NewProjector(nav, nil)
	}

	logger.Info("Repository bridge ready: id=%s root=%s versioning=%v content=%v",
		b.info.ID, nav.RootID(), versioned, lifecycle != nil)

	return b, nil
}

func prototypeOf(repo repository.Repository, fallback func() model.Object) model.Object {
	if repo == nil {
		return fallback()
	}
	return repo.New()
}

func repositoryInfo(info RepositoryInfo, rootID string, versioned, hasContent bool) RepositoryInfo {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if info.Name == "" {
		info.Name = info.ID
	}
	info.CMISVersion = CMISVersion
	info.RootFolderID = rootID

	updatability := "none"
	if hasContent {
		updatability = "anytime"
	}
	info.Capabilities = RepositoryCapabilities{
		ContentStreamUpdatability: updatability,
		Changes:                   "none",
		Renditions:                "none",
		GetFolderTree:             true,
		PWCUpdatable:              versioned,
		Query:                     "none",
		Join:                      "none",
		ACL:                       "none",
		Versioning:                versioned,
	}
	return info
}

// ============================================================================
// Accessors
// ============================================================================

// Types returns the type table.
func (b *Bridge) Types() *TypeTable { return b.types }

// Navigation returns the folder tree resolver.
func (b *Bridge) Navigation() *Navigation { return b.nav }

// RootFolderID returns the id of the root folder.
func (b *Bridge) RootFolderID() string { return b.nav.RootID() }

// ============================================================================
// Operation results
// ============================================================================

// ObjectData is a projected object.
type ObjectData struct {
	Properties       Properties `json:"properties"`
	AllowableActions ActionSet  `json:"-"`
}

// ID returns the object id.
func (o *ObjectData) ID() string { return o.Properties.String(PropObjectID) }

// ObjectInFolder is a child entry of a folder listing.
type ObjectInFolder struct {
	Object      *ObjectData
	PathSegment string
}

// ObjectInFolderList is one page of a folder listing.
type ObjectInFolderList struct {
	Objects      []ObjectInFolder
	HasMoreItems bool
	NumItems     int
}

// ObjectParentData is a parent of an object.
type ObjectParentData struct {
	Object              *ObjectData
	RelativePathSegment string
}

// TypeDefinitionList is one page of a type listing.
type TypeDefinitionList struct {
	Types        []*TypeDefinition
	HasMoreItems bool
	NumItems     int
}

// ListOptions pages a listing. MaxItems <= 0 returns every remaining item.
type ListOptions struct {
	MaxItems  int
	SkipCount int
}

// ObjectOptions control how objects are projected.
type ObjectOptions struct {
	// Filter selects properties. nil selects every property.
	Filter Filter

	IncludeAllowableActions bool

	// IncludePathSegment reports the path segment of listed children and
	// parents.
	IncludePathSegment bool

	// Info receives the ObjectInfo of every projected object. Optional.
	Info ObjectInfoHandler
}

// page returns the bounds of the requested page of n items.
func (o ListOptions) page(n int) (start, end int, err error) {
	if o.SkipCount < 0 {
		return 0, 0, newError(ErrInvalidArgument, "", "skipCount must not be negative")
	}
	start = min(o.SkipCount, n)
	end = n
	if o.MaxItems > 0 {
		end = min(start+o.MaxItems, n)
	}
	return start, end, nil
}

// ============================================================================
// Shared helpers
// ============================================================================

func (b *Bridge) observe(operation string, start time.Time, err error) {
	b.metrics.RecordOperation(operation, time.Since(start), err)
}

func (b *Bridge) typeOf(obj model.Object) *TypeDefinition {
	if obj.Kind() == model.KindFolder {
		return b.folderType
	}
	return b.documentType
}

func (b *Bridge) repositoryOf(kind model.Kind) repository.Repository {
	if kind == model.KindFolder {
		return b.folders
	}
	return b.documents
}

func (b *Bridge) validateFilter(filter Filter) error {
	return filter.Validate(b.queryNames)
}

// project converts obj into ObjectData and reports its ObjectInfo.
func (b *Bridge) project(ctx context.Context, obj model.Object, opts ObjectOptions) (*ObjectData, error) {
	def := b.typeOf(obj)
	root := b.nav.IsRoot(obj.ID())

	props, info, err := b.projector.Project(ctx, def, obj, root, opts.Filter)
	if err != nil {
		return nil, err
	}

	data := &ObjectData{Properties: props}
	if opts.IncludeAllowableActions {
		readOnly := repository.PrincipalFromContext(ctx).ReadOnly
		data.AllowableActions = AllowableActions(def, obj, root, readOnly)
	}

	if opts.Info != nil {
		info.Object = data
		opts.Info.AddObjectInfo(info)
	}
	return data, nil
}

// findDocument loads a document. Folders fail with ErrInvalidArgument.
func (b *Bridge) findDocument(ctx context.Context, id string) (model.Object, error) {
	obj, err := b.nav.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj.Kind() != model.KindDocument {
		return nil, newError(ErrInvalidArgument, id, "object is not a document")
	}
	return obj, nil
}

func (b *Bridge) requireVersioning(id string) error {
	if b.versioning == nil {
		return newError(ErrUnsupported, id, "documents are not versionable")
	}
	return nil
}

func (b *Bridge) requireContent(id string) error {
	if b.content == nil || !b.documentType.ContentAllowed() {
		return newError(ErrUnsupported, id, "documents cannot carry content streams")
	}
	return nil
}

