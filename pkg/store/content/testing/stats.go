package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStatsTests executes the storage statistics tests.
func (suite *StoreTestSuite) RunStatsTests(t *testing.T) {
	t.Run("GetStorageStats_Empty", suite.testGetStorageStatsEmpty)
	t.Run("GetStorageStats_WithContent", suite.testGetStorageStatsWithContent)
	t.Run("GetStorageStats_AfterDelete", suite.testGetStorageStatsAfterDelete)
}

func (suite *StoreTestSuite) testGetStorageStatsEmpty(t *testing.T) {
	store := suite.NewStore(t)

	stats, err := store.GetStorageStats(testContext())
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, uint64(0), stats.UsedSize)
	assert.Equal(t, uint64(0), stats.ContentCount)
	assert.Equal(t, uint64(0), stats.AverageSize)
}

func (suite *StoreTestSuite) testGetStorageStatsWithContent(t *testing.T) {
	store := suite.NewStore(t)

	mustWriteContent(t, store, generateTestID("stats-1"), generateTestData(100))
	mustWriteContent(t, store, generateTestID("stats-2"), generateTestData(200))
	mustWriteContent(t, store, generateTestID("stats-3"), generateTestData(300))

	stats, err := store.GetStorageStats(testContext())
	require.NoError(t, err)

	assert.Equal(t, uint64(600), stats.UsedSize)
	assert.Equal(t, uint64(3), stats.ContentCount)
	assert.Equal(t, uint64(200), stats.AverageSize)
}

func (suite *StoreTestSuite) testGetStorageStatsAfterDelete(t *testing.T) {
	store := suite.NewStore(t)

	mustWriteContent(t, store, generateTestID("keep"), generateTestData(10))
	mustWriteContent(t, store, generateTestID("drop"), generateTestData(20))
	require.NoError(t, store.Delete(testContext(), generateTestID("drop")))

	stats, err := store.GetStorageStats(testContext())
	require.NoError(t, err)

	assert.Equal(t, uint64(10), stats.UsedSize)
	assert.Equal(t, uint64(1), stats.ContentCount)
}
