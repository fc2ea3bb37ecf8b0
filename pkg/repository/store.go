package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/model"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Name identifies the collection in logs and errors (e.g. "documents").
	Name string

	// New returns a fresh instance of the collection's entity type. Records
	// are decoded into the value it returns, so it must be a pointer that
	// implements json.Unmarshaler or has exported fields.
	New func() model.Object

	// Now overrides the clock used for audit stamps. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Store implements Repository and VersioningRepository over a Backend.
//
// Thread Safety:
// Safe for concurrent use. Lock owner and successor only change through Lock,
// Unlock, Version and Delete, which go through Backend.Update. Save keeps the
// stored values of both, so a stale object can never release a lock or
// detach a successor.
type Store struct {
	name    string
	backend Backend
	newFn   func() model.Object
	kind    model.Kind
	now     func() time.Time
}

var (
	_ Repository           = (*Store)(nil)
	_ VersioningRepository = (*Store)(nil)
)

// NewStore creates a Store persisting to backend.
func NewStore(backend Backend, cfg StoreConfig) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("repository %q: backend is required", cfg.Name)
	}
	if cfg.New == nil {
		return nil, fmt.Errorf("repository %q: entity factory is required", cfg.Name)
	}

	prototype := cfg.New()
	if prototype == nil {
		return nil, fmt.Errorf("repository %q: entity factory returned nil", cfg.Name)
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	logger.Debug("Repository %q ready: kind=%s", cfg.Name, prototype.Kind())

	return &Store{
		name:    cfg.Name,
		backend: backend,
		newFn:   cfg.New,
		kind:    prototype.Kind(),
		now:     now,
	}, nil
}

// NewID returns a fresh, time-ordered object id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ============================================================================
// Repository
// ============================================================================

func (s *Store) New() model.Object {
	return s.newFn()
}

func (s *Store) FindByID(ctx context.Context, id string) (model.Object, error) {
	if id == "" {
		return nil, NewError(ErrNotFound, id, "%s: empty id", s.name)
	}

	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decode(rec)
}

func (s *Store) Save(ctx context.Context, obj model.Object) (model.Object, error) {
	if err := s.checkKind(obj); err != nil {
		return nil, err
	}

	principal := PrincipalFromContext(ctx).Name
	now := s.now()

	if obj.ID() == "" {
		obj.SetID(NewID())
		if stamper, ok := obj.(model.AuditStamper); ok {
			stamper.SetCreated(principal, now)
		}
		s.prepare(obj, principal, now)
		return obj, s.put(ctx, obj)
	}

	err := s.backend.Update(ctx, obj.ID(), func(rec *Record) error {
		stored, err := s.decode(*rec)
		if err != nil {
			return err
		}
		if holder, ok := obj.(model.LockOwnerBearing); ok {
			holder.SetLockOwner(stored.(model.LockOwnerBearing).LockOwner())
		}
		if v, ok := obj.(model.Versionable); ok {
			v.SetSuccessorID(stored.(model.Versionable).SuccessorID())
		}
		s.prepare(obj, principal, now)
		return s.encodeInto(obj, rec)
	})
	if IsNotFound(err) {
		// Caller-assigned id that was never stored.
		if stamper, ok := obj.(model.AuditStamper); ok {
			stamper.SetCreated(principal, now)
		}
		s.prepare(obj, principal, now)
		return obj, s.put(ctx, obj)
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// prepare applies the defaults every stored object carries.
func (s *Store) prepare(obj model.Object, principal string, now time.Time) {
	if stamper, ok := obj.(model.AuditStamper); ok {
		if audited, ok := obj.(model.Audited); ok && audited.CreatedDate().IsZero() {
			stamper.SetCreated(principal, now)
		}
		stamper.SetLastModified(principal, now)
	}
	if v, ok := obj.(model.Versionable); ok {
		if v.VersionNumber() == "" {
			v.SetVersionNumber(InitialVersion)
		}
		if v.AncestorRootID() == "" {
			v.SetAncestorRootID(obj.ID())
		}
	}
}

// Delete removes obj. Deleting the head of a series hands the head role back
// to its predecessor; deleting any other series member fails with ErrNotHead.
func (s *Store) Delete(ctx context.Context, obj model.Object) error {
	current, err := s.FindByID(ctx, obj.ID())
	if err != nil {
		return err
	}

	if v, ok := current.(model.Versionable); ok && !s.IsPrivateWorkingCopy(current) {
		if v.SuccessorID() != "" {
			return NewError(ErrNotHead, current.ID(), "%s: only the latest version can be deleted", s.name)
		}
		if v.AncestorID() != "" {
			err := s.backend.Update(ctx, v.AncestorID(), func(rec *Record) error {
				ancestor, err := s.decode(*rec)
				if err != nil {
					return err
				}
				av := ancestor.(model.Versionable)
				if av.SuccessorID() != current.ID() {
					return nil
				}
				av.SetSuccessorID("")
				return s.encodeInto(ancestor, rec)
			})
			if err != nil && !IsNotFound(err) {
				return fmt.Errorf("failed to release predecessor of %s: %w", current.ID(), err)
			}
		}
	}

	return s.backend.Delete(ctx, current.ID())
}

func (s *Store) FindByParent(ctx context.Context, parentID string) ([]model.Object, error) {
	recs, err := s.backend.ListByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return s.decodeAll(recs)
}

func (s *Store) ContentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.backend.Scan(ctx, func(rec Record) error {
		if rec.ContentID != "" {
			ids = append(ids, rec.ContentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ============================================================================
// Encoding
// ============================================================================

func (s *Store) checkKind(obj model.Object) error {
	if obj == nil {
		return NewError(ErrInvalidObject, "", "%s: nil object", s.name)
	}
	if obj.Kind() != s.kind {
		return NewError(ErrInvalidObject, obj.ID(), "%s: expected %s, got %s", s.name, s.kind, obj.Kind())
	}
	return nil
}

func (s *Store) put(ctx context.Context, obj model.Object) error {
	var rec Record
	if err := s.encodeInto(obj, &rec); err != nil {
		return err
	}
	return s.backend.Put(ctx, rec)
}

func (s *Store) encodeInto(obj model.Object, rec *Record) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", s.name, obj.ID(), err)
	}

	rec.ID = obj.ID()
	rec.ParentID = model.ParentIDOf(obj)
	rec.SeriesID = ""
	if v, ok := obj.(model.Versionable); ok {
		rec.SeriesID = v.AncestorRootID()
	}
	rec.ContentID = ""
	if c, ok := obj.(model.ContentBearing); ok {
		rec.ContentID = c.ContentID()
	}
	rec.Data = data
	return nil
}

func (s *Store) decode(rec Record) (model.Object, error) {
	obj := s.newFn()
	if err := json.Unmarshal(rec.Data, obj); err != nil {
		return nil, NewError(ErrInvalidObject, rec.ID, "%s: failed to decode record: %v", s.name, err)
	}
	return obj, nil
}

func (s *Store) decodeAll(recs []Record) ([]model.Object, error) {
	objs := make([]model.Object, 0, len(recs))
	for _, rec := range recs {
		obj, err := s.decode(rec)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// clone deep-copies obj through its persisted form.
func (s *Store) clone(obj model.Object) (model.Object, error) {
	var rec Record
	if err := s.encodeInto(obj, &rec); err != nil {
		return nil, err
	}
	return s.decode(rec)
}

// update applies fn to the stored version of id atomically and returns the
// result.
func (s *Store) update(ctx context.Context, id string, fn func(obj model.Object) error) (model.Object, error) {
	var result model.Object
	err := s.backend.Update(ctx, id, func(rec *Record) error {
		obj, err := s.decode(*rec)
		if err != nil {
			return err
		}
		if err := fn(obj); err != nil {
			return err
		}
		result = obj
		return s.encodeInto(obj, rec)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
