package cmis

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// DefaultRootFolderID is the id of the synthetic root folder when none is
// configured.
const DefaultRootFolderID = "@root@"

// Navigation resolves the folder tree over a folder and a document
// repository.
//
// The root folder is synthetic: it is never stored, its id is the
// configured root id and its name is empty. Objects filed at the root have
// an empty parent id.
type Navigation struct {
	folders   repository.Repository
	documents repository.Repository
	children  repository.NavigationService
	rootID    string
}

// NewNavigation creates a Navigation. When children is nil, children are
// listed through the parent references stored in both repositories.
func NewNavigation(folders, documents repository.Repository, children repository.NavigationService, rootID string) *Navigation {
	if rootID == "" {
		rootID = DefaultRootFolderID
	}
	if children == nil {
		children = &repository.Navigator{Folders: folders, Documents: documents}
	}
	return &Navigation{
		folders:   folders,
		documents: documents,
		children:  children,
		rootID:    rootID,
	}
}

// RootID returns the configured root folder id.
func (n *Navigation) RootID() string { return n.rootID }

// IsRoot reports whether id names the root folder.
func (n *Navigation) IsRoot(id string) bool { return id == n.rootID }

// Root returns the synthetic root folder.
func (n *Navigation) Root() model.Object {
	root := model.NewFolder("")
	root.SetID(n.rootID)
	return root
}

// FindByID loads the root, a folder or a document.
func (n *Navigation) FindByID(ctx context.Context, id string) (model.Object, error) {
	if id == "" {
		return nil, newError(ErrInvalidArgument, "", "object id is required")
	}
	if n.IsRoot(id) {
		return n.Root(), nil
	}

	for _, repo := range []repository.Repository{n.folders, n.documents} {
		if repo == nil {
			continue
		}
		obj, err := repo.FindByID(ctx, id)
		if err == nil {
			return obj, nil
		}
		if !repository.IsNotFound(err) {
			return nil, translate(err, id)
		}
	}
	return nil, newError(ErrNotFound, id, "object not found")
}

// FindFolder loads the root or a folder. Ids of documents fail with
// ErrInvalidArgument.
func (n *Navigation) FindFolder(ctx context.Context, id string) (model.Object, error) {
	obj, err := n.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj.Kind() != model.KindFolder {
		return nil, newError(ErrInvalidArgument, id, "object is not a folder")
	}
	return obj, nil
}

// GetChildren returns the ordered children of parent. A nil parent, or the
// root, lists the objects filed at the root.
func (n *Navigation) GetChildren(ctx context.Context, parent model.Object) ([]model.Object, error) {
	if parent != nil && n.IsRoot(parent.ID()) {
		parent = nil
	}
	children, err := n.children.GetChildren(ctx, parent)
	if err != nil {
		id := n.rootID
		if parent != nil {
			id = parent.ID()
		}
		return nil, translate(err, id)
	}
	return children, nil
}

// CheckNameAvailable fails with ErrConflict when a child of parent is named
// name. Members of self's version series are ignored, since a working copy
// carries the name of the version it was cloned from. A nil parent is the
// root; self may be nil.
func (n *Navigation) CheckNameAvailable(ctx context.Context, parent model.Object, name string, self model.Object) error {
	children, err := n.GetChildren(ctx, parent)
	if err != nil {
		return err
	}
	for _, child := range children {
		if self != nil && (child.ID() == self.ID() || model.SeriesIDOf(child) == model.SeriesIDOf(self)) {
			continue
		}
		if model.NameOf(child) == name {
			return newError(ErrConflict, child.ID(), "an object named %q already exists in this folder", name)
		}
	}
	return nil
}

// GetParent returns the folder obj is filed in. The root and objects that
// cannot be filed have no parent; for them GetParent returns nil.
func (n *Navigation) GetParent(ctx context.Context, obj model.Object) (model.Object, error) {
	if n.IsRoot(obj.ID()) {
		return nil, nil
	}
	ref, ok := obj.(model.ParentReferencing)
	if !ok {
		return nil, nil
	}

	parentID := ref.ParentID()
	if parentID == "" || n.IsRoot(parentID) {
		return n.Root(), nil
	}
	if n.folders == nil {
		return nil, newError(ErrIllegalState, obj.ID(), "parent %s set but no folder repository", parentID)
	}

	parent, err := n.folders.FindByID(ctx, parentID)
	if err != nil {
		return nil, translate(err, parentID)
	}
	return parent, nil
}

// ParentIDOf returns the projected parent id of obj: the stored parent id,
// or the root id for objects filed at the root.
func (n *Navigation) ParentIDOf(obj model.Object) string {
	if id := model.ParentIDOf(obj); id != "" {
		return id
	}
	return n.rootID
}

// ResolvePath walks a /-delimited path from the root, matching each segment
// exactly against child names. Segments may be percent-encoded.
func (n *Navigation) ResolvePath(ctx context.Context, path string) (model.Object, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, newError(ErrInvalidArgument, path, "path must be absolute")
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return n.Root(), nil
	}

	var current model.Object
	for _, segment := range strings.Split(trimmed, "/") {
		if current != nil && current.Kind() != model.KindFolder {
			return nil, newError(ErrNotFound, path, "object not found for path")
		}

		name := unescapeSegment(segment)
		children, err := n.GetChildren(ctx, current)
		if err != nil {
			return nil, err
		}

		idx := slices.IndexFunc(children, func(child model.Object) bool {
			return model.NameOf(child) == name
		})
		if idx < 0 {
			return nil, newError(ErrNotFound, path, "object not found for path")
		}
		current = children[idx]
	}
	return current, nil
}

// Path returns the percent-encoded path of obj from the root.
func (n *Navigation) Path(ctx context.Context, obj model.Object) (string, error) {
	if n.IsRoot(obj.ID()) {
		return "/", nil
	}

	segments := []string{model.NameOf(obj)}
	visited := map[string]struct{}{obj.ID(): {}}

	parentID := model.ParentIDOf(obj)
	for parentID != "" && !n.IsRoot(parentID) {
		if _, loop := visited[parentID]; loop {
			return "", newError(ErrIllegalState, obj.ID(), "folder cycle through %s", parentID)
		}
		visited[parentID] = struct{}{}

		if n.folders == nil {
			return "", newError(ErrIllegalState, obj.ID(), "parent %s set but no folder repository", parentID)
		}
		parent, err := n.folders.FindByID(ctx, parentID)
		if err != nil {
			return "", translate(err, parentID)
		}
		segments = append(segments, model.NameOf(parent))
		parentID = model.ParentIDOf(parent)
	}

	var b strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segments[i]))
	}
	return b.String(), nil
}

// SetParent points obj at parent. obj is not saved. Passing the root, or
// nil, files obj at the root.
func (n *Navigation) SetParent(obj, parent model.Object) error {
	ref, ok := obj.(model.ParentReferencing)
	if !ok {
		return newError(ErrInvalidArgument, obj.ID(), "object cannot be filed")
	}
	if parent == nil || n.IsRoot(parent.ID()) {
		ref.SetParentID("")
		return nil
	}
	ref.SetParentID(parent.ID())
	return nil
}

// Link adds childID to the child list of the folder parentID, when folders
// keep one. The folder is re-read and saved, so the caller's copies are
// never mutated.
func (n *Navigation) Link(ctx context.Context, parentID, childID string) error {
	return n.updateChildren(ctx, parentID, func(ids []string) []string {
		if slices.Contains(ids, childID) {
			return ids
		}
		return append(ids, childID)
	})
}

// Unlink removes childID from the child list of the folder parentID.
func (n *Navigation) Unlink(ctx context.Context, parentID, childID string) error {
	return n.updateChildren(ctx, parentID, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return id == childID })
	})
}

// Unfile removes obj from its parent on both sides of the relation. The
// parent is saved; obj is left for the caller to save or delete.
func (n *Navigation) Unfile(ctx context.Context, obj model.Object) error {
	ref, ok := obj.(model.ParentReferencing)
	if !ok {
		return nil
	}
	if err := n.Unlink(ctx, ref.ParentID(), obj.ID()); err != nil {
		return err
	}
	ref.SetParentID("")
	return nil
}

func (n *Navigation) updateChildren(ctx context.Context, parentID string, fn func([]string) []string) error {
	if parentID == "" || n.IsRoot(parentID) || n.folders == nil {
		return nil
	}

	parent, err := n.folders.FindByID(ctx, parentID)
	if err != nil {
		return translate(err, parentID)
	}
	ref, ok := parent.(model.ChildReferencing)
	if !ok {
		return nil
	}

	ref.SetChildIDs(fn(ref.ChildIDs()))
	if _, err := n.folders.Save(ctx, parent); err != nil {
		return translate(err, parentID)
	}
	return nil
}

func unescapeSegment(segment string) string {
	if name, err := url.PathUnescape(segment); err == nil {
		return name
	}
	return segment
}
