package cmis

import "github.com/marmos91/dittocmis/pkg/model"

// Capabilities are the features of the repositories and content store
// backing a type.
type Capabilities struct {
	// HasRepository makes the type creatable.
	HasRepository bool

	// HasContentStore allows documents of the type to carry content.
	HasContentStore bool

	// Versioning marks document types backed by a VersioningRepository.
	Versioning bool

	// FulltextIndexed marks document types whose content is indexed.
	FulltextIndexed bool
}

// SynthesizeTypeDefinition builds the type definition of the entity
// described by reg.
func SynthesizeTypeDefinition(reg *RoleRegistry, caps Capabilities) (*TypeDefinition, error) {
	if reg == nil {
		return nil, newError(ErrIllegalState, "", "no role registry")
	}

	switch reg.Kind() {
	case model.KindDocument:
		return synthesizeDocumentType(reg, caps), nil
	case model.KindFolder:
		return synthesizeFolderType(reg, caps), nil
	default:
		return nil, newError(ErrIllegalState, "", "entity type %s is neither a document nor a folder", reg.Type())
	}
}

func baseType(id, name string, caps Capabilities) *TypeDefinition {
	return &TypeDefinition{
		ID:                       id,
		LocalName:                name,
		QueryName:                id,
		DisplayName:              name,
		Description:              name,
		BaseType:                 id,
		Creatable:                caps.HasRepository,
		Fileable:                 true,
		IncludedInSupertypeQuery: true,
	}
}

func synthesizeDocumentType(reg *RoleRegistry, caps Capabilities) *TypeDefinition {
	def := baseType(BaseTypeDocument, "Document", caps)
	def.FulltextIndexed = caps.FulltextIndexed
	def.Versionable = caps.Versioning
	if caps.HasContentStore {
		def.ContentStreamAllowed = ContentStreamAllowedOptional
	}

	addBaseProperties(def, reg)

	if def.ContentAllowed() {
		def.addProperty(readOnlyProperty(PropContentStreamLength, "Content Stream Length", PropertyTypeInteger))
		def.addProperty(readOnlyProperty(PropContentStreamMimeType, "MIME Type", PropertyTypeString))
		def.addProperty(readOnlyProperty(PropContentStreamFileName, "Filename", PropertyTypeString))
		def.addProperty(readOnlyProperty(PropContentStreamID, "Content Stream Id", PropertyTypeID))
	}

	if def.Versionable {
		def.addProperty(readOnlyProperty(PropIsImmutable, "Is Immutable", PropertyTypeBoolean))
		def.addProperty(readOnlyProperty(PropIsLatestVersion, "Is Latest Version", PropertyTypeBoolean))
		def.addProperty(readOnlyProperty(PropIsMajorVersion, "Is Major Version", PropertyTypeBoolean))
		def.addProperty(readOnlyProperty(PropIsLatestMajorVersion, "Is Latest Major Version", PropertyTypeBoolean))
		def.addProperty(queryable(readOnlyProperty(PropIsPrivateWorkingCopy, "Is Private Working Copy", PropertyTypeBoolean)))
		def.addProperty(queryable(readOnlyProperty(PropVersionLabel, "Version Label", PropertyTypeString)))
		def.addProperty(queryable(readOnlyProperty(PropVersionSeriesID, "Version Series Id", PropertyTypeID)))
		def.addProperty(queryable(readOnlyProperty(PropIsVersionSeriesCheckedOut, "Is Version Series Checked Out", PropertyTypeBoolean)))
		def.addProperty(readOnlyProperty(PropVersionSeriesCheckedOutBy, "Version Series Checked Out By", PropertyTypeString))
		def.addProperty(readOnlyProperty(PropVersionSeriesCheckedOutID, "Version Series Checked Out Id", PropertyTypeID))
		def.addProperty(readOnlyProperty(PropCheckinComment, "Checkin Comment", PropertyTypeString))
	}

	return def
}

func synthesizeFolderType(reg *RoleRegistry, caps Capabilities) *TypeDefinition {
	def := baseType(BaseTypeFolder, "Folder", caps)

	addBaseProperties(def, reg)

	def.addProperty(readOnlyProperty(PropParentID, "Parent Id", PropertyTypeID))
	def.addProperty(readOnlyProperty(PropPath, "Path", PropertyTypeString))

	allowed := readOnlyProperty(PropAllowedChildObjectTypeIDs, "Allowed Child Object Type Ids", PropertyTypeID)
	allowed.Cardinality = CardinalityMulti
	def.addProperty(allowed)

	return def
}

// addBaseProperties emits the properties shared by documents and folders.
// Role-backed properties appear only when the entity plays the role.
func addBaseProperties(def *TypeDefinition, reg *RoleRegistry) {
	if info, ok := reg.Info(RoleName); ok {
		p := roleProperty(PropName, "Name", info)
		p.Required = true
		p.Queryable = true
		p.Orderable = true
		def.addProperty(p)
	}
	if info, ok := reg.Info(RoleDescription); ok {
		def.addProperty(roleProperty(PropDescription, "Description", info))
	}

	def.addProperty(readOnlyProperty(PropObjectID, "Object Id", PropertyTypeID))
	def.addProperty(readOnlyProperty(PropBaseTypeID, "Base Type Id", PropertyTypeID))

	typeID := readOnlyProperty(PropObjectTypeID, "Object Type Id", PropertyTypeID)
	typeID.Updatability = UpdatabilityOnCreate
	typeID.Required = true
	def.addProperty(typeID)

	secondary := readOnlyProperty(PropSecondaryObjectTypeIDs, "Secondary Type Ids", PropertyTypeID)
	secondary.Cardinality = CardinalityMulti
	def.addProperty(secondary)

	audit := []struct {
		role Role
		id   string
		name string
	}{
		{RoleCreatedBy, PropCreatedBy, "Created By"},
		{RoleCreatedDate, PropCreationDate, "Creation Date"},
		{RoleLastModifiedBy, PropLastModifiedBy, "Last Modified By"},
		{RoleLastModifiedDate, PropLastModificationDate, "Last Modification Date"},
	}
	for _, a := range audit {
		if info, ok := reg.Info(a.role); ok {
			p := roleProperty(a.id, a.name, info)
			p.Updatability = UpdatabilityReadOnly
			def.addProperty(p)
		}
	}

	if reg.Has(RoleChangeToken) {
		def.addProperty(readOnlyProperty(PropChangeToken, "Change Token", PropertyTypeString))
	}
}

func readOnlyProperty(id, name string, typ PropertyType) *PropertyDefinition {
	return &PropertyDefinition{
		ID:           id,
		LocalName:    id,
		QueryName:    id,
		DisplayName:  name,
		Description:  name,
		Type:         typ,
		Cardinality:  CardinalitySingle,
		Updatability: UpdatabilityReadOnly,
	}
}

// roleProperty derives datatype, cardinality and updatability from the role.
func roleProperty(id, name string, info RoleInfo) *PropertyDefinition {
	p := readOnlyProperty(id, name, datatypeOf(info.ValueType))
	p.Cardinality = cardinalityOf(info.ValueType)
	if info.Writable {
		p.Updatability = UpdatabilityReadWrite
	}
	return p
}

func queryable(p *PropertyDefinition) *PropertyDefinition {
	p.Queryable = true
	return p
}
