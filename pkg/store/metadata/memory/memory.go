// Package memory implements an in-memory metadata store.
//
// Records live in maps guarded by a single RWMutex. Parent and series
// indexes are maintained alongside the primary map so that children and
// version listings do not require a full scan.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// MemoryMetadataStoreConfig contains configuration for the memory metadata store.
type MemoryMetadataStoreConfig struct {
	// MaxObjects caps the number of records across all collections.
	// 0 means unlimited (constrained only by available memory).
	MaxObjects uint64 `mapstructure:"max_objects"`
}

// MemoryMetadataStore holds every collection of one repository in memory.
//
// Thread Safety:
// All collections share one read-write mutex. Queries take the read lock,
// mutations take the write lock, so Update is trivially atomic.
//
// Data stored in a record is copied on the way in and on the way out; callers
// may reuse their buffers.
type MemoryMetadataStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	count       uint64
	maxObjects  uint64
}

type collection struct {
	store   *MemoryMetadataStore
	name    string
	records map[string]repository.Record

	// parents maps a parent id to the ids filed in it.
	parents map[string]map[string]struct{}

	// series maps a series id to its member ids.
	series map[string]map[string]struct{}
}

var _ repository.BackendProvider = (*MemoryMetadataStore)(nil)

// NewMemoryMetadataStore creates an empty in-memory metadata store.
func NewMemoryMetadataStore(config MemoryMetadataStoreConfig) *MemoryMetadataStore {
	logger.Info("Memory metadata store ready: max_objects=%d", config.MaxObjects)

	return &MemoryMetadataStore{
		collections: make(map[string]*collection),
		maxObjects:  config.MaxObjects,
	}
}

// Collection returns the backend for the named collection, creating it on
// first use.
func (s *MemoryMetadataStore) Collection(name string) (repository.Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{
			store:   s,
			name:    name,
			records: make(map[string]repository.Record),
			parents: make(map[string]map[string]struct{}),
			series:  make(map[string]map[string]struct{}),
		}
		s.collections[name] = c
	}
	return c, nil
}

// Close is a no-op; the data is simply dropped with the store.
func (s *MemoryMetadataStore) Close() error {
	return nil
}

// ============================================================================
// Backend
// ============================================================================

func (c *collection) Get(ctx context.Context, id string) (repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return repository.Record{}, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	rec, ok := c.records[id]
	if !ok {
		return repository.Record{}, repository.NewError(repository.ErrNotFound, id, "%s: object not found", c.name)
	}
	return copyRecord(rec), nil
}

func (c *collection) Put(ctx context.Context, rec repository.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	return c.putLocked(rec)
}

func (c *collection) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	old, ok := c.records[id]
	if !ok {
		return repository.NewError(repository.ErrNotFound, id, "%s: object not found", c.name)
	}

	c.unindex(old)
	delete(c.records, id)
	c.store.count--
	return nil
}

func (c *collection) Update(ctx context.Context, id string, fn func(rec *repository.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	old, ok := c.records[id]
	if !ok {
		return repository.NewError(repository.ErrNotFound, id, "%s: object not found", c.name)
	}

	rec := copyRecord(old)
	if err := fn(&rec); err != nil {
		return err
	}
	rec.ID = id
	return c.putLocked(rec)
}

func (c *collection) ListByParent(ctx context.Context, parentID string) ([]repository.Record, error) {
	return c.listIndex(ctx, c.parents, parentID)
}

func (c *collection) ListBySeries(ctx context.Context, seriesID string) ([]repository.Record, error) {
	if seriesID == "" {
		return nil, nil
	}
	return c.listIndex(ctx, c.series, seriesID)
}

func (c *collection) Scan(ctx context.Context, fn func(rec repository.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.store.mu.RLock()
	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	recs := make([]repository.Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, copyRecord(c.records[id]))
	}
	c.store.mu.RUnlock()

	for _, rec := range recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Helpers (callers hold the store lock)
// ============================================================================

func (c *collection) putLocked(rec repository.Record) error {
	old, exists := c.records[rec.ID]
	if exists {
		c.unindex(old)
	} else {
		if c.store.maxObjects > 0 && c.store.count >= c.store.maxObjects {
			return repository.NewError(repository.ErrInvalidObject, rec.ID, "%s: object limit %d reached", c.name, c.store.maxObjects)
		}
		c.store.count++
	}

	rec = copyRecord(rec)
	c.records[rec.ID] = rec
	c.index(rec)
	return nil
}

func (c *collection) index(rec repository.Record) {
	addToIndex(c.parents, rec.ParentID, rec.ID)
	if rec.SeriesID != "" {
		addToIndex(c.series, rec.SeriesID, rec.ID)
	}
}

func (c *collection) unindex(rec repository.Record) {
	removeFromIndex(c.parents, rec.ParentID, rec.ID)
	if rec.SeriesID != "" {
		removeFromIndex(c.series, rec.SeriesID, rec.ID)
	}
}

func (c *collection) listIndex(ctx context.Context, idx map[string]map[string]struct{}, key string) ([]repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	ids := make([]string, 0, len(idx[key]))
	for id := range idx[key] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	recs := make([]repository.Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, copyRecord(c.records[id]))
	}
	return recs, nil
}

func addToIndex(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func copyRecord(rec repository.Record) repository.Record {
	rec.Data = slices.Clone(rec.Data)
	return rec
}
