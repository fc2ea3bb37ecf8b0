package model

import (
	"encoding/json"
	"slices"
	"time"
)

// Folder is the default folder entity.
type Folder struct {
	id               string
	name             string
	description      string
	createdBy        string
	createdDate      time.Time
	lastModifiedBy   string
	lastModifiedDate time.Time
	parentID         string
	childIDs         []string
}

// NewFolder returns a folder with the given name.
func NewFolder(name string) *Folder {
	return &Folder{name: name}
}

func (f *Folder) Kind() Kind { return KindFolder }

func (f *Folder) ID() string      { return f.id }
func (f *Folder) SetID(id string) { f.id = id }

func (f *Folder) Name() string        { return f.name }
func (f *Folder) SetName(name string) { f.name = name }

func (f *Folder) Description() string               { return f.description }
func (f *Folder) SetDescription(description string) { f.description = description }

func (f *Folder) CreatedBy() string           { return f.createdBy }
func (f *Folder) CreatedDate() time.Time      { return f.createdDate }
func (f *Folder) LastModifiedBy() string      { return f.lastModifiedBy }
func (f *Folder) LastModifiedDate() time.Time { return f.lastModifiedDate }

func (f *Folder) SetCreated(by string, at time.Time) {
	f.createdBy = by
	f.createdDate = at
}

func (f *Folder) SetLastModified(by string, at time.Time) {
	f.lastModifiedBy = by
	f.lastModifiedDate = at
}

func (f *Folder) ParentID() string      { return f.parentID }
func (f *Folder) SetParentID(id string) { f.parentID = id }

// ChildIDs returns a copy of the filed child ids.
func (f *Folder) ChildIDs() []string      { return slices.Clone(f.childIDs) }
func (f *Folder) SetChildIDs(ids []string) { f.childIDs = slices.Clone(ids) }

type folderJSON struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedDate      time.Time `json:"created_date"`
	LastModifiedBy   string    `json:"last_modified_by,omitempty"`
	LastModifiedDate time.Time `json:"last_modified_date"`
	ParentID         string    `json:"parent_id,omitempty"`
	ChildIDs         []string  `json:"child_ids,omitempty"`
}

func (f *Folder) MarshalJSON() ([]byte, error) {
	return json.Marshal(folderJSON{
		ID:               f.id,
		Name:             f.name,
		Description:      f.description,
		CreatedBy:        f.createdBy,
		CreatedDate:      f.createdDate,
		LastModifiedBy:   f.lastModifiedBy,
		LastModifiedDate: f.lastModifiedDate,
		ParentID:         f.parentID,
		ChildIDs:         f.childIDs,
	})
}

func (f *Folder) UnmarshalJSON(data []byte) error {
	var v folderJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Folder{
		id:               v.ID,
		name:             v.Name,
		description:      v.Description,
		createdBy:        v.CreatedBy,
		createdDate:      v.CreatedDate,
		lastModifiedBy:   v.LastModifiedBy,
		lastModifiedDate: v.LastModifiedDate,
		parentID:         v.ParentID,
		childIDs:         v.ChildIDs,
	}
	return nil
}
