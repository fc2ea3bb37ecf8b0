package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/dittocmis/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGCTests executes the GarbageCollectableStore tests.
func (suite *StoreTestSuite) RunGCTests(t *testing.T) {
	t.Run("ListAllContent_Empty", suite.testListAllContentEmpty)
	t.Run("ListAllContent_Multiple", suite.testListAllContentMultiple)
	t.Run("GetContentModTime", suite.testGetContentModTime)
	t.Run("GetContentModTime_Missing", suite.testGetContentModTimeMissing)
	t.Run("DeleteBatch_Empty", suite.testDeleteBatchEmpty)
	t.Run("DeleteBatch_Multiple", suite.testDeleteBatchMultiple)
	t.Run("DeleteBatch_MissingIsSuccess", suite.testDeleteBatchMissing)
	t.Run("DeleteBatch_Cancelled", suite.testDeleteBatchCancelled)
}

func (suite *StoreTestSuite) testListAllContentEmpty(t *testing.T) {
	store := suite.NewStore(t)

	ids, err := store.ListAllContent(testContext())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func (suite *StoreTestSuite) testListAllContentMultiple(t *testing.T) {
	store := suite.NewStore(t)

	expected := []content.ContentID{
		generateTestID("list-1"),
		generateTestID("list-2"),
		generateTestID("list-3"),
	}
	for _, id := range expected {
		mustWriteContent(t, store, id, []byte("data"))
	}

	ids, err := store.ListAllContent(testContext())
	require.NoError(t, err)
	assert.ElementsMatch(t, expected, ids)
}

func (suite *StoreTestSuite) testGetContentModTime(t *testing.T) {
	store := suite.NewStore(t)

	// Remote stores report whole seconds.
	before := time.Now().Add(-2 * time.Second)
	id := generateTestID("modtime")
	mustWriteContent(t, store, id, []byte("data"))
	after := time.Now().Add(2 * time.Second)

	modified, err := store.GetContentModTime(testContext(), id)
	require.NoError(t, err)
	assert.True(t, modified.After(before), "modified %s before write started", modified)
	assert.True(t, modified.Before(after), "modified %s after write ended", modified)
}

func (suite *StoreTestSuite) testGetContentModTimeMissing(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.GetContentModTime(testContext(), generateTestID("never-written"))
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testDeleteBatchEmpty(t *testing.T) {
	store := suite.NewStore(t)

	failures, err := store.DeleteBatch(testContext(), nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func (suite *StoreTestSuite) testDeleteBatchMultiple(t *testing.T) {
	store := suite.NewStore(t)

	keep := generateTestID("batch-keep")
	mustWriteContent(t, store, keep, []byte("keep"))

	var doomed []content.ContentID
	for _, name := range []string{"batch-1", "batch-2", "batch-3"} {
		id := generateTestID(name)
		mustWriteContent(t, store, id, []byte(name))
		doomed = append(doomed, id)
	}

	failures, err := store.DeleteBatch(testContext(), doomed)
	require.NoError(t, err)
	assert.Empty(t, failures)

	ids, err := store.ListAllContent(testContext())
	require.NoError(t, err)
	assert.Equal(t, []content.ContentID{keep}, ids)
}

func (suite *StoreTestSuite) testDeleteBatchMissing(t *testing.T) {
	store := suite.NewStore(t)

	failures, err := store.DeleteBatch(testContext(), []content.ContentID{generateTestID("never-written")})
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func (suite *StoreTestSuite) testDeleteBatchCancelled(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("batch-cancel")
	mustWriteContent(t, store, id, []byte("data"))

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	failures, err := store.DeleteBatch(ctx, []content.ContentID{id})
	AssertErrorIs(t, context.Canceled, err)
	assert.Contains(t, failures, id)
	assertContentExists(t, store, id, true)
}
