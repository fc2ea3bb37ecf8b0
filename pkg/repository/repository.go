// Package repository provides the persistence contracts the repository bridge
// consumes, and a generic implementation of them over a pluggable Backend.
//
// Three contracts are defined:
//   - Repository: CRUD over one entity collection (folders or documents)
//   - VersioningRepository: Repository plus locking, working copies and
//     version series management
//   - NavigationService: ordered children of a folder
//
// Store implements Repository and VersioningRepository for any model.Object
// type, persisting records through a Backend (memory, BadgerDB, SQLite).
package repository

import (
	"context"

	"github.com/marmos91/dittocmis/pkg/model"
)

// WorkingCopyLabel marks the private working copy of a version series.
const WorkingCopyLabel = "~~PWC~~"

// InitialVersion is assigned to versionable objects on their first save.
const InitialVersion = "1.0"

// SortOrder orders version listings by identity.
type SortOrder int

const (
	SortDescending SortOrder = iota
	SortAscending
)

// VersionInfo carries the number and label of a new version.
type VersionInfo struct {
	Number string
	Label  string
}

// Repository is CRUD persistence for one entity collection.
//
// FindByID returns an *Error with code ErrNotFound when the id is unknown.
// Save assigns an id to new objects and returns the stored object.
type Repository interface {
	// New returns a fresh, unsaved instance of the collection's entity type.
	New() model.Object

	FindByID(ctx context.Context, id string) (model.Object, error)
	Save(ctx context.Context, obj model.Object) (model.Object, error)
	Delete(ctx context.Context, obj model.Object) error

	// FindByParent returns the objects filed directly in parentID. An empty
	// parentID selects the objects filed at the root.
	FindByParent(ctx context.Context, parentID string) ([]model.Object, error)

	// ContentIDs returns every content id referenced by the collection.
	ContentIDs(ctx context.Context) ([]string, error)
}

// VersioningRepository adds version series management to Repository.
//
// All lock operations act on behalf of the principal carried by ctx.
type VersioningRepository interface {
	Repository

	// Lock atomically takes the lock on obj. It fails with ErrLocked when
	// the object is already locked, by anyone.
	Lock(ctx context.Context, obj model.Object) (model.Object, error)

	// Unlock releases the lock. The caller must own it.
	Unlock(ctx context.Context, obj model.Object) (model.Object, error)

	// WorkingCopy clones a locked head version into the series' private
	// working copy.
	WorkingCopy(ctx context.Context, obj model.Object) (model.Object, error)

	// FindWorkingCopy returns the working copy of obj's series, or nil.
	FindWorkingCopy(ctx context.Context, obj model.Object) (model.Object, error)

	IsPrivateWorkingCopy(obj model.Object) bool

	// Version promotes a working copy to the new head of its series.
	Version(ctx context.Context, obj model.Object, info VersionInfo) (model.Object, error)

	FindAllVersions(ctx context.Context, obj model.Object, order SortOrder) ([]model.Object, error)
	DeleteAllVersions(ctx context.Context, obj model.Object) error
}

// NavigationService lists the children of a folder. A nil parent means the
// root folder.
type NavigationService interface {
	GetChildren(ctx context.Context, parent model.Object) ([]model.Object, error)
}
