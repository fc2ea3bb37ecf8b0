// Package sqlite implements a persistent metadata store on SQLite
// (modernc.org/sqlite, no cgo).
//
// All collections share one table keyed by (collection, id), with secondary
// indexes on the parent and series columns.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/repository"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	parent_id  TEXT NOT NULL DEFAULT '',
	series_id  TEXT NOT NULL DEFAULT '',
	content_id TEXT NOT NULL DEFAULT '',
	data       BLOB NOT NULL,
	PRIMARY KEY (collection, id)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_records_parent ON records(collection, parent_id);
CREATE INDEX IF NOT EXISTS idx_records_series ON records(collection, series_id);
`

// SQLiteMetadataStoreConfig contains configuration for the SQLite metadata store.
type SQLiteMetadataStoreConfig struct {
	// Path is the database file. ":memory:" keeps the database in memory.
	Path string `mapstructure:"path"`
}

// SQLiteMetadataStore stores every collection of one repository in a single
// SQLite database.
//
// Thread Safety:
// The pool is limited to one connection, so transactions are serialized and
// Update is atomic without relying on SQLITE_BUSY retries.
type SQLiteMetadataStore struct {
	db *sql.DB
}

var _ repository.BackendProvider = (*SQLiteMetadataStore)(nil)

// NewSQLiteMetadataStore opens (or creates) the database at config.Path and
// applies the schema.
func NewSQLiteMetadataStore(ctx context.Context, config SQLiteMetadataStoreConfig) (*SQLiteMetadataStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", config.Path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("SQLite metadata store opened: path=%s", config.Path)

	return &SQLiteMetadataStore{db: db}, nil
}

func (s *SQLiteMetadataStore) Collection(name string) (repository.Backend, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	return &collection{db: s.db, name: name}, nil
}

func (s *SQLiteMetadataStore) Healthcheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite metadata store unavailable: %w", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) Close() error {
	return s.db.Close()
}

// collection implements repository.Backend for one collection.
type collection struct {
	db   *sql.DB
	name string
}

const selectColumns = `SELECT id, parent_id, series_id, content_id, data FROM records`

func (c *collection) Get(ctx context.Context, id string) (repository.Record, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+` WHERE collection = ? AND id = ?`, c.name, id)
	return c.scanRow(row, id)
}

func (c *collection) Put(ctx context.Context, rec repository.Record) error {
	if rec.ID == "" {
		return repository.NewError(repository.ErrInvalidObject, "", "record id is required")
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, parent_id, series_id, content_id, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			parent_id = excluded.parent_id,
			series_id = excluded.series_id,
			content_id = excluded.content_id,
			data = excluded.data
	`, c.name, rec.ID, rec.ParentID, rec.SeriesID, rec.ContentID, rec.Data)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", c.name, rec.ID, err)
	}
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return c.notFound(id)
	}
	return nil
}

func (c *collection) Update(ctx context.Context, id string, fn func(rec *repository.Record) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectColumns+` WHERE collection = ? AND id = ?`, c.name, id)
	rec, err := c.scanRow(row, id)
	if err != nil {
		return err
	}

	if err := fn(&rec); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE records SET parent_id = ?, series_id = ?, content_id = ?, data = ?
		WHERE collection = ? AND id = ?
	`, rec.ParentID, rec.SeriesID, rec.ContentID, rec.Data, c.name, id)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", c.name, id, err)
	}

	return tx.Commit()
}

func (c *collection) ListByParent(ctx context.Context, parentID string) ([]repository.Record, error) {
	return c.query(ctx, selectColumns+` WHERE collection = ? AND parent_id = ? ORDER BY id`, c.name, parentID)
}

func (c *collection) ListBySeries(ctx context.Context, seriesID string) ([]repository.Record, error) {
	if seriesID == "" {
		return nil, nil
	}
	return c.query(ctx, selectColumns+` WHERE collection = ? AND series_id = ? ORDER BY id`, c.name, seriesID)
}

// Scan loads the collection before calling fn, so fn may use the store.
func (c *collection) Scan(ctx context.Context, fn func(rec repository.Record) error) error {
	recs, err := c.query(ctx, selectColumns+` WHERE collection = ? ORDER BY id`, c.name)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *collection) query(ctx context.Context, query string, args ...any) ([]repository.Record, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer func() { _ = rows.Close() }()

	var recs []repository.Record
	for rows.Next() {
		var rec repository.Record
		if err := rows.Scan(&rec.ID, &rec.ParentID, &rec.SeriesID, &rec.ContentID, &rec.Data); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (c *collection) scanRow(row *sql.Row, id string) (repository.Record, error) {
	var rec repository.Record
	err := row.Scan(&rec.ID, &rec.ParentID, &rec.SeriesID, &rec.ContentID, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Record{}, c.notFound(id)
	}
	if err != nil {
		return repository.Record{}, fmt.Errorf("get %s %s: %w", c.name, id, err)
	}
	return rec, nil
}

func (c *collection) notFound(id string) error {
	return repository.NewError(repository.ErrNotFound, id, "%s: object not found", c.name)
}
