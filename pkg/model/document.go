package model

import (
	"encoding/json"
	"time"
)

// Document is the default document entity. It implements every document role.
type Document struct {
	id               string
	name             string
	description      string
	contentID        string
	contentLength    int64
	mimeType         string
	createdBy        string
	createdDate      time.Time
	lastModifiedBy   string
	lastModifiedDate time.Time
	versionNumber    string
	versionLabel     string
	ancestorID       string
	ancestorRootID   string
	successorID      string
	lockOwner        string
	parentID         string
}

// NewDocument returns a document with the given name.
func NewDocument(name string) *Document {
	return &Document{name: name}
}

func (d *Document) Kind() Kind { return KindDocument }

func (d *Document) ID() string      { return d.id }
func (d *Document) SetID(id string) { d.id = id }

func (d *Document) Name() string        { return d.name }
func (d *Document) SetName(name string) { d.name = name }

func (d *Document) Description() string               { return d.description }
func (d *Document) SetDescription(description string) { d.description = description }

func (d *Document) ContentID() string                { return d.contentID }
func (d *Document) SetContentID(id string)           { d.contentID = id }
func (d *Document) ContentLength() int64             { return d.contentLength }
func (d *Document) SetContentLength(length int64)    { d.contentLength = length }
func (d *Document) MimeType() string                 { return d.mimeType }
func (d *Document) SetMimeType(mimeType string)      { d.mimeType = mimeType }
func (d *Document) CreatedBy() string                { return d.createdBy }
func (d *Document) CreatedDate() time.Time           { return d.createdDate }
func (d *Document) LastModifiedBy() string           { return d.lastModifiedBy }
func (d *Document) LastModifiedDate() time.Time      { return d.lastModifiedDate }
func (d *Document) VersionNumber() string            { return d.versionNumber }
func (d *Document) SetVersionNumber(number string)   { d.versionNumber = number }
func (d *Document) VersionLabel() string             { return d.versionLabel }
func (d *Document) SetVersionLabel(label string)     { d.versionLabel = label }
func (d *Document) AncestorID() string               { return d.ancestorID }
func (d *Document) SetAncestorID(id string)          { d.ancestorID = id }
func (d *Document) AncestorRootID() string           { return d.ancestorRootID }
func (d *Document) SetAncestorRootID(id string)      { d.ancestorRootID = id }
func (d *Document) SuccessorID() string              { return d.successorID }
func (d *Document) SetSuccessorID(id string)         { d.successorID = id }
func (d *Document) LockOwner() string                { return d.lockOwner }
func (d *Document) SetLockOwner(owner string)        { d.lockOwner = owner }
func (d *Document) ParentID() string                 { return d.parentID }
func (d *Document) SetParentID(id string)            { d.parentID = id }

func (d *Document) SetCreated(by string, at time.Time) {
	d.createdBy = by
	d.createdDate = at
}

func (d *Document) SetLastModified(by string, at time.Time) {
	d.lastModifiedBy = by
	d.lastModifiedDate = at
}

// documentJSON is the persisted form of a Document.
type documentJSON struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	ContentID        string    `json:"content_id,omitempty"`
	ContentLength    int64     `json:"content_length,omitempty"`
	MimeType         string    `json:"mime_type,omitempty"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedDate      time.Time `json:"created_date"`
	LastModifiedBy   string    `json:"last_modified_by,omitempty"`
	LastModifiedDate time.Time `json:"last_modified_date"`
	VersionNumber    string    `json:"version_number,omitempty"`
	VersionLabel     string    `json:"version_label,omitempty"`
	AncestorID       string    `json:"ancestor_id,omitempty"`
	AncestorRootID   string    `json:"ancestor_root_id,omitempty"`
	SuccessorID      string    `json:"successor_id,omitempty"`
	LockOwner        string    `json:"lock_owner,omitempty"`
	ParentID         string    `json:"parent_id,omitempty"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		ID:               d.id,
		Name:             d.name,
		Description:      d.description,
		ContentID:        d.contentID,
		ContentLength:    d.contentLength,
		MimeType:         d.mimeType,
		CreatedBy:        d.createdBy,
		CreatedDate:      d.createdDate,
		LastModifiedBy:   d.lastModifiedBy,
		LastModifiedDate: d.lastModifiedDate,
		VersionNumber:    d.versionNumber,
		VersionLabel:     d.versionLabel,
		AncestorID:       d.ancestorID,
		AncestorRootID:   d.ancestorRootID,
		SuccessorID:      d.successorID,
		LockOwner:        d.lockOwner,
		ParentID:         d.parentID,
	})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var v documentJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Document{
		id:               v.ID,
		name:             v.Name,
		description:      v.Description,
		contentID:        v.ContentID,
		contentLength:    v.ContentLength,
		mimeType:         v.MimeType,
		createdBy:        v.CreatedBy,
		createdDate:      v.CreatedDate,
		lastModifiedBy:   v.LastModifiedBy,
		lastModifiedDate: v.LastModifiedDate,
		versionNumber:    v.VersionNumber,
		versionLabel:     v.VersionLabel,
		ancestorID:       v.AncestorID,
		ancestorRootID:   v.AncestorRootID,
		successorID:      v.SuccessorID,
		lockOwner:        v.LockOwner,
		parentID:         v.ParentID,
	}
	return nil
}
