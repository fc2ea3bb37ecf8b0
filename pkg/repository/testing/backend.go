package testing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/marmos91/dittocmis/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBackendTests executes the raw Backend contract tests.
func (suite *StoreTestSuite) RunBackendTests(t *testing.T) {
	t.Run("GetNotFound", suite.testBackendGetNotFound)
	t.Run("PutGet", suite.testBackendPutGet)
	t.Run("PutReplacesIndexes", suite.testBackendPutReplacesIndexes)
	t.Run("Delete", suite.testBackendDelete)
	t.Run("UpdateAbortsOnError", suite.testBackendUpdateAborts)
	t.Run("UpdateIsAtomic", suite.testBackendUpdateAtomic)
	t.Run("Scan", suite.testBackendScan)
	t.Run("CollectionsAreIsolated", suite.testBackendCollectionsIsolated)
}

func (suite *StoreTestSuite) testBackendGetNotFound(t *testing.T) {
	backend := suite.newBackend(t, "things")

	_, err := backend.Get(context.Background(), "missing")
	requireCode(t, repository.ErrNotFound, err)

	err = backend.Update(context.Background(), "missing", func(*repository.Record) error { return nil })
	requireCode(t, repository.ErrNotFound, err)
}

func (suite *StoreTestSuite) testBackendPutGet(t *testing.T) {
	backend := suite.newBackend(t, "things")
	ctx := context.Background()

	rec := repository.Record{ID: "a", ParentID: "p1", SeriesID: "s1", ContentID: "c1", Data: []byte(`{"v":1}`)}
	require.NoError(t, backend.Put(ctx, rec))

	got, err := backend.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	byParent, err := backend.ListByParent(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, byParent, 1)
	assert.Equal(t, "a", byParent[0].ID)

	bySeries, err := backend.ListBySeries(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, bySeries, 1)
}

func (suite *StoreTestSuite) testBackendPutReplacesIndexes(t *testing.T) {
	backend := suite.newBackend(t, "things")
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, repository.Record{ID: "a", ParentID: "p1", Data: []byte(`{}`)}))
	require.NoError(t, backend.Put(ctx, repository.Record{ID: "a", ParentID: "p2", Data: []byte(`{}`)}))

	old, err := backend.ListByParent(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := backend.ListByParent(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, moved, 1)

	// Root-level records use the empty parent id.
	require.NoError(t, backend.Put(ctx, repository.Record{ID: "b", Data: []byte(`{}`)}))
	atRoot, err := backend.ListByParent(ctx, "")
	require.NoError(t, err)
	require.Len(t, atRoot, 1)
	assert.Equal(t, "b", atRoot[0].ID)
}

func (suite *StoreTestSuite) testBackendDelete(t *testing.T) {
	backend := suite.newBackend(t, "things")
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, repository.Record{ID: "a", ParentID: "p", SeriesID: "s", Data: []byte(`{}`)}))
	require.NoError(t, backend.Delete(ctx, "a"))

	_, err := backend.Get(ctx, "a")
	requireCode(t, repository.ErrNotFound, err)

	bySeries, err := backend.ListBySeries(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, bySeries)

	requireCode(t, repository.ErrNotFound, backend.Delete(ctx, "a"))
}

func (suite *StoreTestSuite) testBackendUpdateAborts(t *testing.T) {
	backend := suite.newBackend(t, "things")
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, repository.Record{ID: "a", Data: []byte(`{"v":1}`)}))

	boom := errors.New("boom")
	err := backend.Update(ctx, "a", func(rec *repository.Record) error {
		rec.Data = []byte(`{"v":2}`)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := backend.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got.Data))
}

// testBackendUpdateAtomic runs concurrent compare-and-set updates; exactly
// one must observe the unclaimed state.
func (suite *StoreTestSuite) testBackendUpdateAtomic(t *testing.T) {
	backend := suite.newBackend(t, "things")
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, repository.Record{ID: "a", Data: []byte(`""`)}))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	claimed := errors.New("claimed")

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := backend.Update(ctx, "a", func(rec *repository.Record) error {
				if string(rec.Data) != `""` {
					return claimed
				}
				rec.Data = []byte(`"owner"`)
				return nil
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func (suite *StoreTestSuite) testBackendScan(t *testing.T) {
	backend := suite.newBackend(t, "things")
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, backend.Put(ctx, repository.Record{ID: id, ContentID: "blob-" + id, Data: []byte(`{}`)}))
	}

	var seen []string
	require.NoError(t, backend.Scan(ctx, func(rec repository.Record) error {
		seen = append(seen, rec.ContentID)
		return nil
	}))
	assert.ElementsMatch(t, []string{"blob-a", "blob-b", "blob-c"}, seen)

	stop := errors.New("stop")
	calls := 0
	err := backend.Scan(ctx, func(repository.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func (suite *StoreTestSuite) testBackendCollectionsIsolated(t *testing.T) {
	provider := suite.NewProvider(t)
	t.Cleanup(func() { _ = provider.Close() })
	ctx := context.Background()

	first, err := provider.Collection("first")
	require.NoError(t, err)
	second, err := provider.Collection("second")
	require.NoError(t, err)

	require.NoError(t, first.Put(ctx, repository.Record{ID: "same", Data: []byte(`1`)}))

	_, err = second.Get(ctx, "same")
	requireCode(t, repository.ErrNotFound, err)

	atRoot, err := second.ListByParent(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, atRoot)
}
