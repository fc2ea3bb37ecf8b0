package cmis

import "sort"

// Base type ids. Every synthesized type is one of the two base types.
const (
	BaseTypeDocument = "cmis:document"
	BaseTypeFolder   = "cmis:folder"
)

// Property ids. For base type properties the query name equals the id.
const (
	PropName                      = "cmis:name"
	PropDescription               = "cmis:description"
	PropObjectID                  = "cmis:objectId"
	PropBaseTypeID                = "cmis:baseTypeId"
	PropObjectTypeID              = "cmis:objectTypeId"
	PropSecondaryObjectTypeIDs    = "cmis:secondaryObjectTypeIds"
	PropCreatedBy                 = "cmis:createdBy"
	PropCreationDate              = "cmis:creationDate"
	PropLastModifiedBy            = "cmis:lastModifiedBy"
	PropLastModificationDate      = "cmis:lastModificationDate"
	PropChangeToken               = "cmis:changeToken"
	PropContentStreamLength       = "cmis:contentStreamLength"
	PropContentStreamMimeType     = "cmis:contentStreamMimeType"
	PropContentStreamFileName     = "cmis:contentStreamFileName"
	PropContentStreamID           = "cmis:contentStreamId"
	PropIsImmutable               = "cmis:isImmutable"
	PropIsLatestVersion           = "cmis:isLatestVersion"
	PropIsMajorVersion            = "cmis:isMajorVersion"
	PropIsLatestMajorVersion      = "cmis:isLatestMajorVersion"
	PropIsPrivateWorkingCopy      = "cmis:isPrivateWorkingCopy"
	PropVersionLabel              = "cmis:versionLabel"
	PropVersionSeriesID           = "cmis:versionSeriesId"
	PropIsVersionSeriesCheckedOut = "cmis:isVersionSeriesCheckedOut"
	PropVersionSeriesCheckedOutBy = "cmis:versionSeriesCheckedOutBy"
	PropVersionSeriesCheckedOutID = "cmis:versionSeriesCheckedOutId"
	PropCheckinComment            = "cmis:checkinComment"
	PropParentID                  = "cmis:parentId"
	PropPath                      = "cmis:path"
	PropAllowedChildObjectTypeIDs = "cmis:allowedChildObjectTypeIds"
)

// PropertyType is the datatype of a property.
type PropertyType int

const (
	PropertyTypeString PropertyType = iota
	PropertyTypeBoolean
	PropertyTypeDateTime
	PropertyTypeInteger
	PropertyTypeDecimal
	PropertyTypeURI
	PropertyTypeID
	PropertyTypeHTML
)

func (t PropertyType) String() string {
	switch t {
	case PropertyTypeString:
		return "string"
	case PropertyTypeBoolean:
		return "boolean"
	case PropertyTypeDateTime:
		return "datetime"
	case PropertyTypeInteger:
		return "integer"
	case PropertyTypeDecimal:
		return "decimal"
	case PropertyTypeURI:
		return "uri"
	case PropertyTypeID:
		return "id"
	case PropertyTypeHTML:
		return "html"
	default:
		return "unknown"
	}
}

func (t PropertyType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

type Cardinality int

const (
	CardinalitySingle Cardinality = iota
	CardinalityMulti
)

func (c Cardinality) String() string {
	if c == CardinalityMulti {
		return "multi"
	}
	return "single"
}

func (c Cardinality) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Updatability says when a property may be written.
type Updatability int

const (
	UpdatabilityReadOnly Updatability = iota
	UpdatabilityReadWrite
	UpdatabilityOnCreate
	UpdatabilityWhenCheckedOut
)

func (u Updatability) String() string {
	switch u {
	case UpdatabilityReadWrite:
		return "readwrite"
	case UpdatabilityOnCreate:
		return "oncreate"
	case UpdatabilityWhenCheckedOut:
		return "whencheckedout"
	default:
		return "readonly"
	}
}

func (u Updatability) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// ContentStreamAllowed says whether documents of a type carry content.
type ContentStreamAllowed int

const (
	ContentStreamNotAllowed ContentStreamAllowed = iota
	ContentStreamAllowedOptional
	ContentStreamRequired
)

func (c ContentStreamAllowed) String() string {
	switch c {
	case ContentStreamAllowedOptional:
		return "allowed"
	case ContentStreamRequired:
		return "required"
	default:
		return "notallowed"
	}
}

func (c ContentStreamAllowed) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// PropertyDefinition describes one property of a type.
type PropertyDefinition struct {
	ID           string       `json:"id"`
	LocalName    string       `json:"localName"`
	QueryName    string       `json:"queryName"`
	DisplayName  string       `json:"displayName"`
	Description  string       `json:"description"`
	Type         PropertyType `json:"propertyType"`
	Cardinality  Cardinality  `json:"cardinality"`
	Updatability Updatability `json:"updatability"`
	Inherited    bool         `json:"inherited"`
	Required     bool         `json:"required"`
	Queryable    bool         `json:"queryable"`
	Orderable    bool         `json:"orderable"`
}

// TypeMutability says whether clients may create, update or delete subtypes.
type TypeMutability struct {
	CanCreate bool `json:"canCreate"`
	CanUpdate bool `json:"canUpdate"`
	CanDelete bool `json:"canDelete"`
}

// TypeDefinition is the synthesized schema of a document or folder type.
//
// Type definitions are built once and never modified afterwards; callers
// must treat them as read-only.
type TypeDefinition struct {
	ID                       string         `json:"id"`
	LocalName                string         `json:"localName"`
	LocalNamespace           string         `json:"localNamespace"`
	QueryName                string         `json:"queryName"`
	DisplayName              string         `json:"displayName"`
	Description              string         `json:"description"`
	BaseType                 string         `json:"baseId"`
	ParentTypeID             string         `json:"parentId,omitempty"`
	Creatable                bool           `json:"creatable"`
	Fileable                 bool           `json:"fileable"`
	Queryable                bool           `json:"queryable"`
	FulltextIndexed          bool           `json:"fulltextIndexed"`
	IncludedInSupertypeQuery bool           `json:"includedInSupertypeQuery"`
	ControllablePolicy       bool           `json:"controllablePolicy"`
	ControllableACL          bool           `json:"controllableACL"`
	TypeMutability           TypeMutability `json:"typeMutability"`

	// Document types only.
	Versionable          bool                 `json:"versionable,omitempty"`
	ContentStreamAllowed ContentStreamAllowed `json:"contentStreamAllowed,omitempty"`

	PropertyDefinitions map[string]*PropertyDefinition `json:"propertyDefinitions,omitempty"`

	order []string
}

// IsFolder reports whether the type derives from cmis:folder.
func (t *TypeDefinition) IsFolder() bool { return t.BaseType == BaseTypeFolder }

// ContentAllowed reports whether documents of the type may carry content.
func (t *TypeDefinition) ContentAllowed() bool {
	return t.ContentStreamAllowed != ContentStreamNotAllowed
}

// PropertyIDs returns the declared property ids in declaration order.
func (t *TypeDefinition) PropertyIDs() []string {
	return append([]string(nil), t.order...)
}

// Property returns the definition of id, or nil.
func (t *TypeDefinition) Property(id string) *PropertyDefinition {
	return t.PropertyDefinitions[id]
}

func (t *TypeDefinition) addProperty(def *PropertyDefinition) {
	if t.PropertyDefinitions == nil {
		t.PropertyDefinitions = make(map[string]*PropertyDefinition)
	}
	if _, exists := t.PropertyDefinitions[def.ID]; !exists {
		t.order = append(t.order, def.ID)
	}
	t.PropertyDefinitions[def.ID] = def
}

// withoutProperties returns a shallow copy without property definitions.
func (t *TypeDefinition) withoutProperties() *TypeDefinition {
	c := *t
	c.PropertyDefinitions = nil
	c.order = nil
	return &c
}

// TypeTable is the immutable id -> TypeDefinition table of a bridge.
type TypeTable struct {
	types map[string]*TypeDefinition
	ids   []string
}

// NewTypeTable indexes defs by id. Later definitions with the same id
// replace earlier ones.
func NewTypeTable(defs ...*TypeDefinition) *TypeTable {
	t := &TypeTable{types: make(map[string]*TypeDefinition, len(defs))}
	for _, def := range defs {
		if def == nil {
			continue
		}
		if _, exists := t.types[def.ID]; !exists {
			t.ids = append(t.ids, def.ID)
		}
		t.types[def.ID] = def
	}
	sort.Strings(t.ids)
	return t
}

// Get returns the definition of id.
func (t *TypeTable) Get(id string) (*TypeDefinition, bool) {
	def, ok := t.types[id]
	return def, ok
}

// List returns every definition ordered by id.
func (t *TypeTable) List() []*TypeDefinition {
	defs := make([]*TypeDefinition, 0, len(t.ids))
	for _, id := range t.ids {
		defs = append(defs, t.types[id])
	}
	return defs
}

// queryNames returns the union of the query names of every type.
func (t *TypeTable) queryNames() map[string]struct{} {
	names := make(map[string]struct{})
	for _, def := range t.types {
		for _, prop := range def.PropertyDefinitions {
			names[prop.QueryName] = struct{}{}
		}
	}
	return names
}
