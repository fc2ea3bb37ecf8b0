package repository

import (
	"context"
	"sort"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/model"
)

func (s *Store) Lock(ctx context.Context, obj model.Object) (model.Object, error) {
	principal := PrincipalFromContext(ctx).Name

	locked, err := s.update(ctx, obj.ID(), func(current model.Object) error {
		holder, ok := current.(model.LockOwnerBearing)
		if !ok {
			return NewError(ErrInvalidObject, current.ID(), "%s: entity cannot be locked", s.name)
		}
		if owner := holder.LockOwner(); owner != "" {
			return NewError(ErrLocked, current.ID(), "%s: already locked by %s", s.name, owner)
		}
		holder.SetLockOwner(principal)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Lock: %s %s locked by %s", s.name, obj.ID(), principal)
	return locked, nil
}

func (s *Store) Unlock(ctx context.Context, obj model.Object) (model.Object, error) {
	principal := PrincipalFromContext(ctx).Name

	unlocked, err := s.update(ctx, obj.ID(), func(current model.Object) error {
		holder, ok := current.(model.LockOwnerBearing)
		if !ok {
			return NewError(ErrInvalidObject, current.ID(), "%s: entity cannot be locked", s.name)
		}
		if holder.LockOwner() != principal {
			return NewError(ErrNotLockOwner, current.ID(), "%s: %s does not hold the lock", s.name, principal)
		}
		holder.SetLockOwner("")
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Unlock: %s %s released by %s", s.name, obj.ID(), principal)
	return unlocked, nil
}

func (s *Store) IsPrivateWorkingCopy(obj model.Object) bool {
	v, ok := obj.(model.Versionable)
	return ok && v.VersionLabel() == WorkingCopyLabel
}

func (s *Store) FindWorkingCopy(ctx context.Context, obj model.Object) (model.Object, error) {
	members, err := s.series(ctx, obj)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		if s.IsPrivateWorkingCopy(member) {
			return member, nil
		}
	}
	return nil, nil
}

// WorkingCopy clones the head version obj into a private working copy. The
// caller must hold the lock on obj and the series must not already have a
// working copy.
func (s *Store) WorkingCopy(ctx context.Context, obj model.Object) (model.Object, error) {
	principal := PrincipalFromContext(ctx).Name

	current, err := s.checkLockedHead(ctx, obj.ID(), principal)
	if err != nil {
		return nil, err
	}

	existing, err := s.FindWorkingCopy(ctx, current)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewError(ErrLocked, current.ID(), "%s: series already has working copy %s", s.name, existing.ID())
	}

	pwc, err := s.clone(current)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pwc.SetID(NewID())
	v := pwc.(model.Versionable)
	v.SetVersionLabel(WorkingCopyLabel)
	v.SetAncestorID(current.ID())
	v.SetAncestorRootID(model.SeriesIDOf(current))
	v.SetSuccessorID("")
	if holder, ok := pwc.(model.LockOwnerBearing); ok {
		holder.SetLockOwner("")
	}
	if stamper, ok := pwc.(model.AuditStamper); ok {
		stamper.SetCreated(principal, now)
		stamper.SetLastModified(principal, now)
	}

	if err := s.put(ctx, pwc); err != nil {
		return nil, err
	}

	logger.Debug("WorkingCopy: %s %s -> %s", s.name, current.ID(), pwc.ID())
	return pwc, nil
}

// Version creates the new head of obj's series.
//
// When obj is the working copy it is promoted in place: it takes the version
// number and label from info and its ancestor is unlocked. Otherwise obj must
// be a head version locked by the caller; it is cloned into the new head and
// the lock moves to the clone.
//
// Either way the returned version is locked by the caller.
func (s *Store) Version(ctx context.Context, obj model.Object, info VersionInfo) (model.Object, error) {
	principal := PrincipalFromContext(ctx).Name

	if info.Label == WorkingCopyLabel {
		return nil, NewError(ErrInvalidObject, obj.ID(), "%s: version label %q is reserved", s.name, info.Label)
	}

	current, err := s.FindByID(ctx, obj.ID())
	if err != nil {
		return nil, err
	}
	if _, ok := current.(model.Versionable); !ok {
		return nil, NewError(ErrInvalidObject, current.ID(), "%s: entity is not versionable", s.name)
	}

	var (
		head        model.Object
		predecessor string
	)

	if s.IsPrivateWorkingCopy(current) {
		predecessor = current.(model.Versionable).AncestorID()
		if _, err := s.checkLockedHead(ctx, predecessor, principal); err != nil {
			return nil, err
		}
		head = current
	} else {
		if _, err := s.checkLockedHead(ctx, current.ID(), principal); err != nil {
			return nil, err
		}
		predecessor = current.ID()
		if head, err = s.clone(current); err != nil {
			return nil, err
		}
		head.SetID(NewID())
		head.(model.Versionable).SetAncestorID(predecessor)
		head.(model.Versionable).SetAncestorRootID(model.SeriesIDOf(current))
	}

	now := s.now()
	v := head.(model.Versionable)
	v.SetVersionNumber(info.Number)
	v.SetVersionLabel(info.Label)
	v.SetSuccessorID("")
	if holder, ok := head.(model.LockOwnerBearing); ok {
		holder.SetLockOwner(principal)
	}
	if stamper, ok := head.(model.AuditStamper); ok {
		stamper.SetLastModified(principal, now)
	}

	if err := s.put(ctx, head); err != nil {
		return nil, err
	}

	_, err = s.update(ctx, predecessor, func(ancestor model.Object) error {
		ancestor.(model.Versionable).SetSuccessorID(head.ID())
		if holder, ok := ancestor.(model.LockOwnerBearing); ok {
			holder.SetLockOwner("")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Version: %s %s -> %s (%s)", s.name, predecessor, head.ID(), info.Number)
	return head, nil
}

func (s *Store) FindAllVersions(ctx context.Context, obj model.Object, order SortOrder) ([]model.Object, error) {
	members, err := s.series(ctx, obj)
	if err != nil {
		return nil, err
	}

	sort.Slice(members, func(i, j int) bool {
		if order == SortAscending {
			return members[i].ID() < members[j].ID()
		}
		return members[i].ID() > members[j].ID()
	})
	return members, nil
}

func (s *Store) DeleteAllVersions(ctx context.Context, obj model.Object) error {
	members, err := s.series(ctx, obj)
	if err != nil {
		return err
	}
	for _, member := range members {
		if err := s.backend.Delete(ctx, member.ID()); err != nil && !IsNotFound(err) {
			return err
		}
	}

	logger.Debug("DeleteAllVersions: %s series %s (%d members)", s.name, model.SeriesIDOf(obj), len(members))
	return nil
}

// series returns every member of obj's version series. The series of an
// object stored before its ancestor root was assigned is the object alone.
func (s *Store) series(ctx context.Context, obj model.Object) ([]model.Object, error) {
	recs, err := s.backend.ListBySeries(ctx, model.SeriesIDOf(obj))
	if err != nil {
		return nil, err
	}
	members, err := s.decodeAll(recs)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		current, err := s.FindByID(ctx, obj.ID())
		if err != nil {
			return nil, err
		}
		members = append(members, current)
	}
	return members, nil
}

// checkLockedHead loads id and verifies it is a head version locked by
// principal.
func (s *Store) checkLockedHead(ctx context.Context, id, principal string) (model.Object, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v, ok := current.(model.Versionable)
	if !ok {
		return nil, NewError(ErrInvalidObject, id, "%s: entity is not versionable", s.name)
	}
	if s.IsPrivateWorkingCopy(current) || v.SuccessorID() != "" {
		return nil, NewError(ErrNotHead, id, "%s: not the latest version", s.name)
	}

	holder, ok := current.(model.LockOwnerBearing)
	if !ok {
		return nil, NewError(ErrInvalidObject, id, "%s: entity cannot be locked", s.name)
	}
	if holder.LockOwner() != principal {
		return nil, NewError(ErrNotLockOwner, id, "%s: %s does not hold the lock", s.name, principal)
	}
	return current, nil
}
