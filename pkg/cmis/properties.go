package cmis

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
)

const (
	// unknownUser is projected for empty audit principals.
	unknownUser = "<unknown>"

	defaultMimeType = "application/octet-stream"
)

// Property is one projected property. A nil Value is a property without
// value.
type Property struct {
	ID        string       `json:"id"`
	QueryName string       `json:"queryName"`
	Type      PropertyType `json:"type"`
	Value     any          `json:"value"`
}

// Properties is an ordered property list.
type Properties []Property

// Get returns the property with the given id.
func (p Properties) Get(id string) (Property, bool) {
	for _, prop := range p {
		if prop.ID == id {
			return prop, true
		}
	}
	return Property{}, false
}

// Value returns the value of id, or nil.
func (p Properties) Value(id string) any {
	prop, _ := p.Get(id)
	return prop.Value
}

// String returns the value of id as a string, or "".
func (p Properties) String(id string) string {
	s, _ := p.Value(id).(string)
	return s
}

// Bool returns the value of id as a bool.
func (p Properties) Bool(id string) bool {
	b, _ := p.Value(id).(bool)
	return b
}

// IDs returns the property ids in order.
func (p Properties) IDs() []string {
	ids := make([]string, len(p))
	for i, prop := range p {
		ids[i] = prop.ID
	}
	return ids
}

// ObjectInfo is the per-object metadata collected for a transport layer
// that renders links and feeds.
type ObjectInfo struct {
	ID                    string
	Name                  string
	BaseType              string
	TypeID                string
	CreatedBy             string
	CreationDate          time.Time
	LastModificationDate  time.Time
	HasContent            bool
	ContentType           string
	FileName              string
	HasParent             bool
	SupportsDescendants   bool
	SupportsFolderTree    bool
	IsCurrentVersion      bool
	VersionSeriesID       string
	WorkingCopyID         string
	WorkingCopyOriginalID string
	Object                *ObjectData
}

// ObjectInfoHandler receives the ObjectInfo of every object an operation
// projects.
type ObjectInfoHandler interface {
	AddObjectInfo(info *ObjectInfo)
}

// ObjectInfoCollector is an ObjectInfoHandler that keeps every info it is
// given.
type ObjectInfoCollector struct {
	Infos []*ObjectInfo
}

func (c *ObjectInfoCollector) AddObjectInfo(info *ObjectInfo) {
	c.Infos = append(c.Infos, info)
}

// Get returns the last info collected for id.
func (c *ObjectInfoCollector) Get(id string) *ObjectInfo {
	for i := len(c.Infos) - 1; i >= 0; i-- {
		if c.Infos[i].ID == id {
			return c.Infos[i]
		}
	}
	return nil
}

// Projector converts objects into property lists.
type Projector struct {
	nav        *Navigation
	versioning repository.VersioningRepository
}

// NewProjector creates a Projector. versioning may be nil when documents are
// not versioned.
func NewProjector(nav *Navigation, versioning repository.VersioningRepository) *Projector {
	return &Projector{nav: nav, versioning: versioning}
}

// propertyList accumulates properties declared by a type that pass a filter.
type propertyList struct {
	def    *TypeDefinition
	filter Filter
	props  Properties
}

func (l *propertyList) add(id string, value any) {
	pd := l.def.Property(id)
	if pd == nil {
		return
	}
	if !slices.Contains(requiredProperties, id) && !l.filter.take(pd.QueryName) {
		return
	}
	l.props = append(l.props, Property{ID: id, QueryName: pd.QueryName, Type: pd.Type, Value: value})
}

// Project returns the properties of obj declared by def and selected by
// filter, and the object's ObjectInfo. root marks the synthetic root folder.
func (p *Projector) Project(ctx context.Context, def *TypeDefinition, obj model.Object, root bool, filter Filter) (Properties, *ObjectInfo, error) {
	list := &propertyList{def: def, filter: filter.clone()}
	info := newObjectInfo(def, obj)

	// ========================================================================
	// Base properties
	// ========================================================================

	list.add(PropObjectID, obj.ID())
	list.add(PropName, model.NameOf(obj))

	if audited, ok := obj.(model.Audited); ok {
		info.CreatedBy = orUnknown(audited.CreatedBy())
		info.CreationDate = audited.CreatedDate()
		info.LastModificationDate = audited.LastModifiedDate()

		list.add(PropCreatedBy, info.CreatedBy)
		list.add(PropCreationDate, timeValue(audited.CreatedDate()))
		list.add(PropLastModifiedBy, orUnknown(audited.LastModifiedBy()))
		list.add(PropLastModificationDate, timeValue(audited.LastModifiedDate()))
	}

	list.add(PropDescription, GetRoleString(obj, RoleDescription))
	list.add(PropChangeToken, GetRoleString(obj, RoleChangeToken))
	list.add(PropBaseTypeID, def.BaseType)
	list.add(PropObjectTypeID, def.ID)
	list.add(PropSecondaryObjectTypeIDs, []string{})

	// ========================================================================
	// Folder or document properties
	// ========================================================================

	var err error
	if def.IsFolder() {
		err = p.projectFolder(ctx, list, info, obj, root)
	} else {
		err = p.projectDocument(ctx, list, info, obj)
	}
	if err != nil {
		return nil, nil, err
	}

	return list.props, info, nil
}

func (p *Projector) projectFolder(ctx context.Context, list *propertyList, info *ObjectInfo, obj model.Object, root bool) error {
	if root {
		list.add(PropPath, "/")
		list.add(PropParentID, nil)
		info.HasParent = false
	} else {
		path, err := p.nav.Path(ctx, obj)
		if err != nil {
			return err
		}
		list.add(PropPath, path)
		list.add(PropParentID, p.nav.ParentIDOf(obj))
		info.HasParent = true
	}
	list.add(PropAllowedChildObjectTypeIDs, nil)
	return nil
}

func (p *Projector) projectDocument(ctx context.Context, list *propertyList, info *ObjectInfo, obj model.Object) error {
	def := list.def

	if def.Versionable {
		if err := p.projectVersioning(ctx, list, info, obj); err != nil {
			return err
		}
	}

	if !def.ContentAllowed() {
		info.HasContent = false
		return nil
	}

	length := model.ContentLengthOf(obj)
	if length == 0 {
		list.add(PropContentStreamLength, nil)
		list.add(PropContentStreamMimeType, nil)
		list.add(PropContentStreamFileName, nil)
		list.add(PropContentStreamID, nil)

		info.HasContent = false
		info.ContentType = ""
		info.FileName = ""
		return nil
	}

	mimeType := mimeTypeOf(obj)
	name := model.NameOf(obj)

	list.add(PropContentStreamLength, length)
	list.add(PropContentStreamMimeType, mimeType)
	list.add(PropContentStreamFileName, name)
	list.add(PropContentStreamID, nilIfEmpty(GetRoleString(obj, RoleContentID)))

	info.HasContent = true
	info.ContentType = mimeType
	info.FileName = name
	return nil
}

func (p *Projector) projectVersioning(ctx context.Context, list *propertyList, info *ObjectInfo, obj model.Object) error {
	state, err := p.versionState(ctx, obj)
	if err != nil {
		return err
	}

	list.add(PropIsImmutable, false)
	list.add(PropIsLatestVersion, state.latest)
	list.add(PropIsMajorVersion, state.major)
	list.add(PropIsLatestMajorVersion, state.latest && state.major)
	list.add(PropVersionLabel, GetRoleString(obj, RoleVersionNumber))
	list.add(PropVersionSeriesID, model.SeriesIDOf(obj))
	list.add(PropIsPrivateWorkingCopy, state.pwc)
	list.add(PropIsVersionSeriesCheckedOut, state.checkedOut)
	list.add(PropVersionSeriesCheckedOutBy, nilIfEmpty(state.checkedOutBy))
	list.add(PropVersionSeriesCheckedOutID, nilIfEmpty(state.checkedOutID))
	list.add(PropCheckinComment, nilIfEmpty(state.comment))

	info.IsCurrentVersion = state.latest
	info.VersionSeriesID = model.SeriesIDOf(obj)
	info.WorkingCopyID = state.checkedOutID
	if state.pwc {
		info.WorkingCopyOriginalID = GetRoleString(obj, RoleAncestorID)
	}
	return nil
}

// versionState is the derived versioning state of one document.
type versionState struct {
	latest       bool
	major        bool
	pwc          bool
	checkedOut   bool
	checkedOutBy string
	checkedOutID string
	comment      string
}

func (p *Projector) versionState(ctx context.Context, obj model.Object) (versionState, error) {
	var state versionState
	if p.versioning == nil {
		state.latest = true
		return state, nil
	}

	state.pwc = p.versioning.IsPrivateWorkingCopy(obj)
	state.latest = isLatestVersion(obj, state.pwc)
	state.major = isMajorVersion(obj)
	if !state.pwc {
		state.comment = GetRoleString(obj, RoleVersionLabel)
	}

	workingCopy, err := p.versioning.FindWorkingCopy(ctx, obj)
	if err != nil {
		return state, translate(err, obj.ID())
	}
	if workingCopy == nil {
		return state, nil
	}

	state.checkedOut = true
	state.checkedOutID = workingCopy.ID()
	state.checkedOutBy, err = p.checkedOutBy(ctx, workingCopy)
	return state, err
}

// checkedOutBy returns the owner of the lock backing a working copy. The
// lock is held on the version the working copy was cloned from.
func (p *Projector) checkedOutBy(ctx context.Context, workingCopy model.Object) (string, error) {
	if owner := GetRoleString(workingCopy, RoleLockOwner); owner != "" {
		return owner, nil
	}

	ancestorID := GetRoleString(workingCopy, RoleAncestorID)
	if ancestorID == "" {
		return "", nil
	}
	ancestor, err := p.versioning.FindByID(ctx, ancestorID)
	if repository.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", translate(err, ancestorID)
	}
	return GetRoleString(ancestor, RoleLockOwner), nil
}

// isLatestVersion holds when obj has no successor and is not a working copy.
func isLatestVersion(obj model.Object, workingCopy bool) bool {
	return GetRoleString(obj, RoleSuccessorID) == "" && !workingCopy
}

// isMajorVersion holds when the version number ends in ".0".
func isMajorVersion(obj model.Object) bool {
	return strings.HasSuffix(GetRoleString(obj, RoleVersionNumber), ".0")
}

func newObjectInfo(def *TypeDefinition, obj model.Object) *ObjectInfo {
	info := &ObjectInfo{
		ID:               obj.ID(),
		Name:             model.NameOf(obj),
		BaseType:         def.BaseType,
		TypeID:           def.ID,
		CreatedBy:        unknownUser,
		IsCurrentVersion: true,
	}
	if def.IsFolder() {
		info.SupportsDescendants = true
		info.SupportsFolderTree = true
	} else {
		info.HasParent = implementsParent(obj)
	}
	return info
}

func implementsParent(obj model.Object) bool {
	_, ok := obj.(model.ParentReferencing)
	return ok
}

func mimeTypeOf(obj model.Object) string {
	if mt := GetRoleString(obj, RoleMimeType); mt != "" {
		return mt
	}
	return defaultMimeType
}

func orUnknown(s string) string {
	if s == "" {
		return unknownUser
	}
	return s
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
