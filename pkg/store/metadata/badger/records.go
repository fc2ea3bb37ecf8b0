package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittocmis/pkg/repository"
)

// collection implements repository.Backend for one collection.
type collection struct {
	db   *badger.DB
	name string
}

func (c *collection) notFound(id string) error {
	return repository.NewError(repository.ErrNotFound, id, "%s: object not found", c.name)
}

func (c *collection) Get(ctx context.Context, id string) (repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return repository.Record{}, err
	}

	var rec repository.Record
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = c.getTxn(txn, id)
		return err
	})
	return rec, err
}

func (c *collection) Put(ctx context.Context, rec repository.Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	return update(ctx, c.db, func(txn *badger.Txn) error {
		old, err := c.getTxn(txn, rec.ID)
		switch {
		case err == nil:
			if err := c.unindexTxn(txn, old); err != nil {
				return err
			}
		case !repository.IsNotFound(err):
			return err
		}
		return c.putTxn(txn, rec)
	})
}

func (c *collection) Delete(ctx context.Context, id string) error {
	return update(ctx, c.db, func(txn *badger.Txn) error {
		old, err := c.getTxn(txn, id)
		if err != nil {
			return err
		}
		if err := c.unindexTxn(txn, old); err != nil {
			return err
		}
		return txn.Delete(keyObject(c.name, id))
	})
}

func (c *collection) Update(ctx context.Context, id string, fn func(rec *repository.Record) error) error {
	return update(ctx, c.db, func(txn *badger.Txn) error {
		old, err := c.getTxn(txn, id)
		if err != nil {
			return err
		}

		rec := old
		if err := fn(&rec); err != nil {
			return err
		}
		rec.ID = id
		if err := validateRecord(rec); err != nil {
			return err
		}

		if err := c.unindexTxn(txn, old); err != nil {
			return err
		}
		return c.putTxn(txn, rec)
	})
}

func (c *collection) ListByParent(ctx context.Context, parentID string) ([]repository.Record, error) {
	return c.listIndex(ctx, keyParentPrefix(c.name, parentID))
}

func (c *collection) ListBySeries(ctx context.Context, seriesID string) ([]repository.Record, error) {
	if seriesID == "" {
		return nil, nil
	}
	return c.listIndex(ctx, keySeriesPrefix(c.name, seriesID))
}

func (c *collection) Scan(ctx context.Context, fn func(rec repository.Record) error) error {
	prefix := keyObjectPrefix(c.name)

	return c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			id := idFromIndexKey(item.Key(), prefix)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(id, val)
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// ============================================================================
// Transaction helpers
// ============================================================================

func (c *collection) getTxn(txn *badger.Txn, id string) (repository.Record, error) {
	item, err := txn.Get(keyObject(c.name, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return repository.Record{}, c.notFound(id)
	}
	if err != nil {
		return repository.Record{}, err
	}

	var rec repository.Record
	err = item.Value(func(val []byte) error {
		var err error
		rec, err = decodeRecord(id, val)
		return err
	})
	return rec, err
}

func (c *collection) putTxn(txn *badger.Txn, rec repository.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := txn.Set(keyObject(c.name, rec.ID), data); err != nil {
		return err
	}
	if err := txn.Set(keyParent(c.name, rec.ParentID, rec.ID), nil); err != nil {
		return err
	}
	if rec.SeriesID != "" {
		if err := txn.Set(keySeries(c.name, rec.SeriesID, rec.ID), nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *collection) unindexTxn(txn *badger.Txn, rec repository.Record) error {
	if err := txn.Delete(keyParent(c.name, rec.ParentID, rec.ID)); err != nil {
		return err
	}
	if rec.SeriesID != "" {
		if err := txn.Delete(keySeries(c.name, rec.SeriesID, rec.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (c *collection) listIndex(ctx context.Context, prefix []byte) ([]repository.Record, error) {
	var recs []repository.Record

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id := idFromIndexKey(it.Item().Key(), prefix)
			rec, err := c.getTxn(txn, id)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func validateRecord(rec repository.Record) error {
	if rec.ID == "" {
		return repository.NewError(repository.ErrInvalidObject, "", "record id is required")
	}
	for kind, part := range map[string]string{"id": rec.ID, "parent id": rec.ParentID, "series id": rec.SeriesID} {
		if err := validateKeyPart(kind, part); err != nil {
			return repository.NewError(repository.ErrInvalidObject, rec.ID, "%v", err)
		}
	}
	return nil
}
