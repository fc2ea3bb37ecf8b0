// Package model defines the domain objects exposed through the repository bridge.
//
// A domain type opts into each semantic role by implementing the matching trait
// interface. Getters and setters are split so that a role can be present but
// read-only: a type implementing Named but not NameSetter exposes cmis:name as
// READONLY.
//
// Every object must implement Object. Its Kind decides whether the object is
// projected as a document or a folder.
package model

import "time"

// Kind is the base type marker of a domain object.
type Kind int

const (
	KindUnknown Kind = iota
	KindDocument
	KindFolder
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// ============================================================================
// Identity
// ============================================================================

// Identifiable is the only mandatory role.
type Identifiable interface {
	ID() string
	SetID(id string)
}

// Object is a persisted domain object: Document | Folder.
type Object interface {
	Identifiable
	Kind() Kind
}

// ============================================================================
// Descriptive roles
// ============================================================================

type Named interface {
	Name() string
}

type NameSetter interface {
	SetName(name string)
}

type Described interface {
	Description() string
}

type DescriptionSetter interface {
	SetDescription(description string)
}

// ChangeTokenBearing exposes an optimistic concurrency token.
type ChangeTokenBearing interface {
	ChangeToken() string
}

// ============================================================================
// Content roles
// ============================================================================

// ContentBearing objects own at most one binary content stream. A zero
// ContentLength means no stream is set.
type ContentBearing interface {
	ContentID() string
	SetContentID(id string)
	ContentLength() int64
	SetContentLength(length int64)
}

type MimeTyped interface {
	MimeType() string
}

type MimeTypeSetter interface {
	SetMimeType(mimeType string)
}

// ============================================================================
// Auditing
// ============================================================================

type Audited interface {
	CreatedBy() string
	CreatedDate() time.Time
	LastModifiedBy() string
	LastModifiedDate() time.Time
}

// AuditStamper lets a repository record who touched an object and when.
type AuditStamper interface {
	SetCreated(by string, at time.Time)
	SetLastModified(by string, at time.Time)
}

// ============================================================================
// Versioning
// ============================================================================

// Versionable objects take part in a version series. The series is identified
// by AncestorRootID, the id of its first member.
type Versionable interface {
	VersionNumber() string
	SetVersionNumber(number string)
	VersionLabel() string
	SetVersionLabel(label string)
	AncestorID() string
	SetAncestorID(id string)
	AncestorRootID() string
	SetAncestorRootID(id string)
	SuccessorID() string
	SetSuccessorID(id string)
}

type LockOwnerBearing interface {
	LockOwner() string
	SetLockOwner(owner string)
}

// ============================================================================
// Hierarchy
// ============================================================================

// ParentReferencing objects store the id of the folder they are filed in.
// An empty id means the object sits directly under the root.
type ParentReferencing interface {
	ParentID() string
	SetParentID(id string)
}

// ChildReferencing folders keep the ids of the objects filed in them.
type ChildReferencing interface {
	ChildIDs() []string
	SetChildIDs(ids []string)
}
