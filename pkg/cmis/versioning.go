package cmis

import (
	"context"
	"strconv"
	"strings"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// defaultVersionNumber is assumed for documents without a version number.
const defaultVersionNumber = "0.0"

// IncrementVersion returns the version number following number. A major
// increment bumps the first component, a minor one the second; the other
// component is kept as is, so "1.3" becomes "2.3" on a major increment.
//
// An empty number counts as "0.0". Anything other than two dot-separated
// non-negative integers fails with ErrInvalidArgument.
func IncrementVersion(number string, major bool) (string, error) {
	if number == "" {
		number = defaultVersionNumber
	}

	parts := strings.Split(number, ".")
	if len(parts) != 2 {
		return "", newError(ErrInvalidArgument, "", "malformed version number %q", number)
	}

	maj, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || maj < 0 || minor < 0 {
		return "", newError(ErrInvalidArgument, "", "malformed version number %q", number)
	}

	if major {
		maj++
	} else {
		minor++
	}
	return strconv.Itoa(maj) + "." + strconv.Itoa(minor), nil
}

// CheckOutResult is the outcome of a checkout.
type CheckOutResult struct {
	// ID is the id of the private working copy.
	ID string

	// ContentCopied reports whether the working copy received a copy of the
	// checked-out version's content.
	ContentCopied bool
}

// CheckInRequest carries the optional changes applied on check-in.
type CheckInRequest struct {
	Major      bool
	Properties map[string]any
	Content    *ContentStream
	Comment    string
}

// Versioning is the checkout state machine of a version series.
//
// A series is Published while it has no working copy and CheckedOut while
// it has one. The working copy is guarded by the repository lock on the
// version it was cloned from, so concurrent checkouts of one series cannot
// both succeed.
type Versioning struct {
	repo    repository.VersioningRepository
	nav     *Navigation
	content *ContentLifecycle
	setter  propertySetter
}

// NewVersioning creates the state machine. content may be nil when
// documents carry no content.
func NewVersioning(repo repository.VersioningRepository, nav *Navigation, content *ContentLifecycle, setter propertySetter) *Versioning {
	return &Versioning{repo: repo, nav: nav, content: content, setter: setter}
}

// CheckOut locks obj and creates the series' working copy. It fails with
// ErrConflict when the series is already checked out or obj is not the
// latest version.
func (v *Versioning) CheckOut(ctx context.Context, obj model.Object) (CheckOutResult, error) {
	// ========================================================================
	// Step 1: Only the latest version of a published series can be checked out
	// ========================================================================

	if v.repo.IsPrivateWorkingCopy(obj) {
		return CheckOutResult{}, newError(ErrConflict, obj.ID(), "object is a private working copy")
	}
	if !isLatestVersion(obj, false) {
		return CheckOutResult{}, newError(ErrConflict, obj.ID(), "object is not the latest version")
	}

	// ========================================================================
	// Step 2: Lock, then clone
	// ========================================================================

	locked, err := v.repo.Lock(ctx, obj)
	if err != nil {
		return CheckOutResult{}, translate(err, obj.ID())
	}

	pwc, err := v.repo.WorkingCopy(ctx, locked)
	if err != nil {
		v.rollbackLock(ctx, locked)
		return CheckOutResult{}, translate(err, obj.ID())
	}

	// ========================================================================
	// Step 3: File the working copy next to its original with its own content
	// ========================================================================

	copied := false
	if v.content != nil && model.ContentLengthOf(pwc) > 0 {
		withContent, err := v.content.Copy(ctx, locked, pwc)
		if err != nil {
			v.rollbackWorkingCopy(ctx, locked, pwc)
			return CheckOutResult{}, err
		}
		pwc = withContent
		copied = true
	}

	if parentID := model.ParentIDOf(pwc); parentID != "" {
		if err := v.nav.Link(ctx, parentID, pwc.ID()); err != nil {
			v.rollbackWorkingCopy(ctx, locked, pwc)
			return CheckOutResult{}, err
		}
	}

	logger.Debug("CheckOut: %s -> working copy %s (content copied: %v)", obj.ID(), pwc.ID(), copied)
	return CheckOutResult{ID: pwc.ID(), ContentCopied: copied}, nil
}

func (v *Versioning) rollbackWorkingCopy(ctx context.Context, locked, pwc model.Object) {
	if v.content != nil && model.ContentLengthOf(pwc) > 0 {
		if err := v.content.Discard(ctx, pwc); err != nil {
			logger.Warn("CheckOut: failed to remove content of working copy %s: %v", pwc.ID(), err)
		}
	}
	if err := v.repo.Delete(ctx, pwc); err != nil && !repository.IsNotFound(err) {
		logger.Warn("CheckOut: failed to remove working copy %s: %v", pwc.ID(), err)
	}
	v.rollbackLock(ctx, locked)
}

func (v *Versioning) rollbackLock(ctx context.Context, locked model.Object) {
	if _, err := v.repo.Unlock(ctx, locked); err != nil {
		logger.Warn("CheckOut: failed to release lock on %s: %v", locked.ID(), err)
	}
}

// CancelCheckOut discards the working copy of obj's series and unlocks the
// version it was cloned from. It is a no-op when the series is not checked
// out.
func (v *Versioning) CancelCheckOut(ctx context.Context, obj model.Object) error {
	pwc, err := v.repo.FindWorkingCopy(ctx, obj)
	if err != nil {
		return translate(err, obj.ID())
	}
	if pwc == nil {
		logger.Debug("CancelCheckOut: %s is not checked out", obj.ID())
		return nil
	}

	// ========================================================================
	// Step 1: Check ownership before touching anything
	// ========================================================================

	ancestorID := GetRoleString(pwc, RoleAncestorID)
	ancestor, err := v.repo.FindByID(ctx, ancestorID)
	if err != nil {
		return translate(err, ancestorID)
	}

	principal := repository.PrincipalFromContext(ctx).Name
	if owner := GetRoleString(ancestor, RoleLockOwner); owner != "" && owner != principal {
		return newError(ErrConflict, obj.ID(), "version series is checked out by %s", owner)
	}

	// ========================================================================
	// Step 2: Unfile, drop content, delete the working copy, unlock
	// ========================================================================

	if err := v.nav.Unfile(ctx, pwc); err != nil {
		return err
	}
	if v.content != nil {
		if err := v.content.Discard(ctx, pwc); err != nil {
			return err
		}
	}
	if err := v.repo.Delete(ctx, pwc); err != nil {
		return translate(err, pwc.ID())
	}
	if GetRoleString(ancestor, RoleLockOwner) != "" {
		if _, err := v.repo.Unlock(ctx, ancestor); err != nil {
			return translate(err, ancestorID)
		}
	}

	logger.Debug("CancelCheckOut: %s discarded working copy %s", ancestorID, pwc.ID())
	return nil
}

// CheckIn turns the working copy of obj's series into its new latest
// version and returns it. obj may be the working copy or any member of the
// series.
//
// Property and content changes are stored on the working copy before it is
// promoted, so a rejected change leaves the series checked out and the
// check-in can be retried or cancelled.
func (v *Versioning) CheckIn(ctx context.Context, obj model.Object, req CheckInRequest) (model.Object, error) {
	// ========================================================================
	// Step 1: Locate the working copy and check the caller holds the series
	// ========================================================================

	pwc := obj
	if !v.repo.IsPrivateWorkingCopy(obj) {
		found, err := v.repo.FindWorkingCopy(ctx, obj)
		if err != nil {
			return nil, translate(err, obj.ID())
		}
		if found == nil {
			return nil, newError(ErrConflict, obj.ID(), "version series is not checked out")
		}
		pwc = found
	}

	ancestorID := GetRoleString(pwc, RoleAncestorID)
	ancestor, err := v.repo.FindByID(ctx, ancestorID)
	if err != nil {
		return nil, translate(err, ancestorID)
	}
	principal := repository.PrincipalFromContext(ctx).Name
	if owner := GetRoleString(ancestor, RoleLockOwner); owner != principal {
		return nil, newError(ErrConflict, obj.ID(), "version series is checked out by %s", owner)
	}

	// ========================================================================
	// Step 2: Number the new version and validate the changes
	// ========================================================================

	if req.Comment == repository.WorkingCopyLabel {
		return nil, newError(ErrInvalidArgument, pwc.ID(), "check-in comment %q is reserved", req.Comment)
	}

	number, err := IncrementVersion(GetRoleString(pwc, RoleVersionNumber), req.Major)
	if err != nil {
		return nil, err
	}

	if len(req.Properties) > 0 {
		oldName := model.NameOf(pwc)
		if err := v.setter.apply(pwc, req.Properties, false); err != nil {
			return nil, err
		}
		if name := model.NameOf(pwc); name != oldName {
			parent, err := v.nav.GetParent(ctx, pwc)
			if err != nil {
				return nil, err
			}
			if err := v.nav.CheckNameAvailable(ctx, parent, name, pwc); err != nil {
				return nil, err
			}
		}
	}

	// ========================================================================
	// Step 3: Store the changes on the working copy
	// ========================================================================

	switch {
	case !req.Content.empty() && v.content != nil:
		if pwc, err = v.content.Set(ctx, pwc, req.Content, req.Content.MimeType); err != nil {
			return nil, err
		}
	case len(req.Properties) > 0:
		if pwc, err = v.repo.Save(ctx, pwc); err != nil {
			return nil, translate(err, pwc.ID())
		}
	}

	// ========================================================================
	// Step 4: Promote and unlock
	// ========================================================================

	head, err := v.repo.Version(ctx, pwc, repository.VersionInfo{Number: number, Label: req.Comment})
	if err != nil {
		return nil, translate(err, pwc.ID())
	}
	headID := head.ID()

	if head, err = v.repo.Unlock(ctx, head); err != nil {
		return nil, translate(err, headID)
	}

	logger.Debug("CheckIn: %s -> version %s (%s)", ancestorID, headID, number)
	return head, nil
}

// AllVersions returns every member of obj's series, newest first.
func (v *Versioning) AllVersions(ctx context.Context, obj model.Object) ([]model.Object, error) {
	versions, err := v.repo.FindAllVersions(ctx, obj, repository.SortDescending)
	if err != nil {
		return nil, translate(err, obj.ID())
	}
	return versions, nil
}

// Delete deletes one version of a document. Deleting the working copy
// cancels the checkout. The lock owner may delete the checked-out version,
// which cancels the checkout first; anyone else fails with ErrConflict.
func (v *Versioning) Delete(ctx context.Context, obj model.Object) error {
	if v.repo.IsPrivateWorkingCopy(obj) {
		return v.CancelCheckOut(ctx, obj)
	}
	if !isLatestVersion(obj, false) {
		return newError(ErrConflict, obj.ID(), "only the latest version can be deleted")
	}

	if owner := GetRoleString(obj, RoleLockOwner); owner != "" {
		if owner != repository.PrincipalFromContext(ctx).Name {
			return newError(ErrConflict, obj.ID(), "version series is checked out by %s", owner)
		}
		unlocked, err := v.release(ctx, obj)
		if err != nil {
			return err
		}
		obj = unlocked
	}

	if err := v.nav.Unfile(ctx, obj); err != nil {
		return err
	}
	if v.content != nil {
		if err := v.content.Discard(ctx, obj); err != nil {
			return err
		}
	}
	if err := v.repo.Delete(ctx, obj); err != nil {
		return translate(err, obj.ID())
	}
	return nil
}

// release cancels the checkout guarded by the caller's lock on obj and
// returns obj unlocked.
func (v *Versioning) release(ctx context.Context, obj model.Object) (model.Object, error) {
	if err := v.CancelCheckOut(ctx, obj); err != nil {
		return nil, err
	}

	current, err := v.repo.FindByID(ctx, obj.ID())
	if err != nil {
		return nil, translate(err, obj.ID())
	}
	if GetRoleString(current, RoleLockOwner) == "" {
		return current, nil
	}
	if current, err = v.repo.Unlock(ctx, current); err != nil {
		return nil, translate(err, obj.ID())
	}
	return current, nil
}

// DeleteAllVersions deletes every member of obj's series with its content.
func (v *Versioning) DeleteAllVersions(ctx context.Context, obj model.Object) error {
	versions, err := v.AllVersions(ctx, obj)
	if err != nil {
		return err
	}

	for _, version := range versions {
		if v.content != nil {
			if err := v.content.Discard(ctx, version); err != nil {
				return err
			}
		}
		if err := v.nav.Unlink(ctx, model.ParentIDOf(version), version.ID()); err != nil {
			return err
		}
	}

	if err := v.repo.DeleteAllVersions(ctx, obj); err != nil {
		return translate(err, obj.ID())
	}

	logger.Debug("DeleteAllVersions: series %s (%d versions)", model.SeriesIDOf(obj), len(versions))
	return nil
}
