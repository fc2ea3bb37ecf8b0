package repository

import "context"

// Record is the persisted form of one object. The index fields are
// denormalized from Data so backends can answer parent, series and content
// queries without decoding.
type Record struct {
	ID        string
	ParentID  string
	SeriesID  string
	ContentID string
	Data      []byte
}

// Backend stores the records of one entity collection.
//
// Implementations must be safe for concurrent use. Get, Update and Delete
// return an *Error with code ErrNotFound for unknown ids.
type Backend interface {
	Get(ctx context.Context, id string) (Record, error)

	// Put inserts or replaces a record.
	Put(ctx context.Context, rec Record) error

	Delete(ctx context.Context, id string) error

	// Update runs fn on the current record and stores the result atomically.
	// No other Update or Put of the same id may interleave. If fn returns an
	// error nothing is written and the error is returned unchanged.
	Update(ctx context.Context, id string, fn func(rec *Record) error) error

	// ListByParent returns the records whose ParentID equals parentID.
	ListByParent(ctx context.Context, parentID string) ([]Record, error)

	// ListBySeries returns the records whose SeriesID equals seriesID.
	ListBySeries(ctx context.Context, seriesID string) ([]Record, error)

	// Scan calls fn for every record until fn returns an error.
	Scan(ctx context.Context, fn func(rec Record) error) error
}

// BackendProvider opens the per-collection backends of one metadata store.
type BackendProvider interface {
	Collection(name string) (Backend, error)

	// Healthcheck reports whether the store can serve requests.
	Healthcheck(ctx context.Context) error

	Close() error
}
