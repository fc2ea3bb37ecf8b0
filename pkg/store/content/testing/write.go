package testing

import (
	"testing"

	"github.com/marmos91/dittocmis/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes the WritableContentStore tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("WriteContent_Overwrite", suite.testWriteContentOverwrite)
	t.Run("WriteContent_CopiesBuffer", suite.testWriteContentCopiesBuffer)
	t.Run("WriteContent_InvalidID", suite.testWriteContentInvalidID)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
}

func (suite *StoreTestSuite) testWriteContentOverwrite(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("write-overwrite")
	mustWriteContent(t, store, id, []byte("Old data that is longer"))
	mustWriteContent(t, store, id, []byte("New data"))

	assertContentEquals(t, store, id, []byte("New data"))
	assertContentSize(t, store, id, 8)
}

func (suite *StoreTestSuite) testWriteContentCopiesBuffer(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("write-copy")
	buf := []byte("original")
	mustWriteContent(t, store, id, buf)

	// Mutating the caller's buffer must not change the stored blob.
	copy(buf, "mutated!")
	assertContentEquals(t, store, id, []byte("original"))
}

func (suite *StoreTestSuite) testWriteContentInvalidID(t *testing.T) {
	store := suite.NewStore(t)

	for _, id := range []content.ContentID{"", "..", "a/b"} {
		err := store.WriteContent(testContext(), id, []byte("x"))
		AssertErrorIs(t, content.ErrInvalidContentID, err)
	}
}

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("delete")
	mustWriteContent(t, store, id, []byte("data"))

	require.NoError(t, store.Delete(testContext(), id))

	_, err := store.ReadContent(testContext(), id)
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	store := suite.NewStore(t)

	id := generateTestID("delete-twice")
	assert.NoError(t, store.Delete(testContext(), id))
	assert.NoError(t, store.Delete(testContext(), id))
}
