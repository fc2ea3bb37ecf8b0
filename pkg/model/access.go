package model

var (
	_ Object            = (*Document)(nil)
	_ NameSetter        = (*Document)(nil)
	_ DescriptionSetter = (*Document)(nil)
	_ ContentBearing    = (*Document)(nil)
	_ MimeTypeSetter    = (*Document)(nil)
	_ Audited           = (*Document)(nil)
	_ AuditStamper      = (*Document)(nil)
	_ Versionable       = (*Document)(nil)
	_ LockOwnerBearing  = (*Document)(nil)
	_ ParentReferencing = (*Document)(nil)
	_ Object            = (*Folder)(nil)
	_ NameSetter        = (*Folder)(nil)
	_ ParentReferencing = (*Folder)(nil)
	_ ChildReferencing  = (*Folder)(nil)
)

// NameOf returns the object's name, or "" when it has no name role.
func NameOf(obj Object) string {
	if n, ok := obj.(Named); ok {
		return n.Name()
	}
	return ""
}

// ParentIDOf returns the id of the folder obj is filed in, or "".
func ParentIDOf(obj Object) string {
	if p, ok := obj.(ParentReferencing); ok {
		return p.ParentID()
	}
	return ""
}

// ContentLengthOf returns the content length, or 0 when obj carries no content.
func ContentLengthOf(obj Object) int64 {
	if c, ok := obj.(ContentBearing); ok {
		return c.ContentLength()
	}
	return 0
}

// SeriesIDOf returns the version series id of obj. Objects outside any series
// form their own series.
func SeriesIDOf(obj Object) string {
	if v, ok := obj.(Versionable); ok && v.AncestorRootID() != "" {
		return v.AncestorRootID()
	}
	return obj.ID()
}
