package testing

import (
	"testing"

	"github.com/marmos91/dittocmis/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes the read-side ContentStore tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("ReadContent_NotFound", suite.testReadContentNotFound)
	t.Run("ReadContent_Success", suite.testReadContentSuccess)
	t.Run("ReadContent_EmptyContent", suite.testReadContentEmpty)
	t.Run("ReadContent_LargeContent", suite.testReadContentLarge)
	t.Run("GetContentSize_NotFound", suite.testGetContentSizeNotFound)
	t.Run("ContentExists", suite.testContentExists)
}

func (suite *StoreTestSuite) testReadContentNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.ReadContent(testContext(), generateTestID("nonexistent"))
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testReadContentSuccess(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("read-success")
	testData := []byte("Hello, World!")
	mustWriteContent(t, store, id, testData)

	assertContentEquals(t, store, id, testData)
	assertContentSize(t, store, id, uint64(len(testData)))
}

func (suite *StoreTestSuite) testReadContentEmpty(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("empty")
	mustWriteContent(t, store, id, []byte{})

	data := mustReadContent(t, store, id)
	assert.Empty(t, data)
	assertContentExists(t, store, id, true)
}

func (suite *StoreTestSuite) testReadContentLarge(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("large")
	testData := generateTestData(1024 * 1024)
	mustWriteContent(t, store, id, testData)

	assertContentEquals(t, store, id, testData)
}

func (suite *StoreTestSuite) testGetContentSizeNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.GetContentSize(testContext(), generateTestID("nonexistent"))
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testContentExists(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID("exists")

	assertContentExists(t, store, id, false)

	mustWriteContent(t, store, id, []byte("x"))
	assertContentExists(t, store, id, true)

	require.NoError(t, store.Delete(testContext(), id))
	assertContentExists(t, store, id, false)
}
