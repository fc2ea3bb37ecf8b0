package testing

import (
	"testing"
	"time"

	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCRUDTests executes Repository and NavigationService tests.
func (suite *StoreTestSuite) RunCRUDTests(t *testing.T) {
	t.Run("SaveAssignsIDAndDefaults", suite.testSaveAssignsID)
	t.Run("SaveStampsAudit", suite.testSaveStampsAudit)
	t.Run("SaveRejectsWrongKind", suite.testSaveRejectsWrongKind)
	t.Run("SavePreservesLock", suite.testSavePreservesLock)
	t.Run("FindByIDNotFound", suite.testFindByIDNotFound)
	t.Run("FindByParent", suite.testFindByParent)
	t.Run("Navigation", suite.testNavigation)
	t.Run("ContentIDs", suite.testContentIDs)
	t.Run("Delete", suite.testDelete)
}

func (suite *StoreTestSuite) testSaveAssignsID(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	require.NotEmpty(t, doc.ID())
	assert.Equal(t, repository.InitialVersion, doc.VersionNumber())
	assert.Equal(t, doc.ID(), doc.AncestorRootID())

	found, err := f.documents.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, "a.txt", model.NameOf(found))
	assert.Equal(t, doc.ID(), found.(*model.Document).AncestorRootID())
}

func (suite *StoreTestSuite) testSaveStampsAudit(t *testing.T) {
	f := suite.newFixture(t)

	doc := mustSaveDocument(t, asUser("alice"), f, "a.txt", "")
	assert.Equal(t, "alice", doc.CreatedBy())
	assert.Equal(t, "alice", doc.LastModifiedBy())
	assert.False(t, doc.CreatedDate().IsZero())

	created := doc.CreatedDate()
	time.Sleep(time.Millisecond)

	doc.SetDescription("edited")
	saved, err := f.documents.Save(asUser("bob"), doc)
	require.NoError(t, err)

	updated := saved.(*model.Document)
	assert.Equal(t, "alice", updated.CreatedBy())
	assert.Equal(t, "bob", updated.LastModifiedBy())
	assert.True(t, updated.CreatedDate().Equal(created))
	assert.True(t, updated.LastModifiedDate().After(created))
}

func (suite *StoreTestSuite) testSaveRejectsWrongKind(t *testing.T) {
	f := suite.newFixture(t)

	_, err := f.documents.Save(asUser("alice"), model.NewFolder("nope"))
	requireCode(t, repository.ErrInvalidObject, err)
}

func (suite *StoreTestSuite) testSavePreservesLock(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	stale := *doc

	_, err := f.documents.Lock(ctx, doc)
	require.NoError(t, err)

	// Saving a copy loaded before the lock must not release it.
	stale.SetDescription("stale write")
	_, err = f.documents.Save(ctx, &stale)
	require.NoError(t, err)

	found, err := f.documents.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, "alice", found.(*model.Document).LockOwner())
	assert.Equal(t, "stale write", found.(*model.Document).Description())
}

func (suite *StoreTestSuite) testFindByIDNotFound(t *testing.T) {
	f := suite.newFixture(t)

	_, err := f.documents.FindByID(asUser("alice"), "does-not-exist")
	requireCode(t, repository.ErrNotFound, err)

	_, err = f.documents.FindByID(asUser("alice"), "")
	requireCode(t, repository.ErrNotFound, err)
}

func (suite *StoreTestSuite) testFindByParent(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	folder := mustSaveFolder(t, ctx, f, "a", "")
	mustSaveDocument(t, ctx, f, "in-a.txt", folder.ID())
	mustSaveDocument(t, ctx, f, "at-root.txt", "")

	inA, err := f.documents.FindByParent(ctx, folder.ID())
	require.NoError(t, err)
	require.Len(t, inA, 1)
	assert.Equal(t, "in-a.txt", model.NameOf(inA[0]))

	atRoot, err := f.documents.FindByParent(ctx, "")
	require.NoError(t, err)
	require.Len(t, atRoot, 1)
	assert.Equal(t, "at-root.txt", model.NameOf(atRoot[0]))
}

func (suite *StoreTestSuite) testNavigation(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	mustSaveDocument(t, ctx, f, "b.txt", "")
	mustSaveDocument(t, ctx, f, "a.txt", "")
	sub := mustSaveFolder(t, ctx, f, "z-folder", "")
	mustSaveDocument(t, ctx, f, "nested.txt", sub.ID())

	children, err := f.nav.GetChildren(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, child := range children {
		names = append(names, model.NameOf(child))
	}
	assert.Equal(t, []string{"z-folder", "a.txt", "b.txt"}, names)

	nested, err := f.nav.GetChildren(ctx, sub)
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "nested.txt", model.NameOf(nested[0]))
}

func (suite *StoreTestSuite) testContentIDs(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	withContent := model.NewDocument("with.bin")
	withContent.SetContentID("blob-1")
	withContent.SetContentLength(3)
	_, err := f.documents.Save(ctx, withContent)
	require.NoError(t, err)
	mustSaveDocument(t, ctx, f, "without.bin", "")

	ids, err := f.documents.ContentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"blob-1"}, ids)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	require.NoError(t, f.documents.Delete(ctx, doc))

	_, err := f.documents.FindByID(ctx, doc.ID())
	requireCode(t, repository.ErrNotFound, err)

	requireCode(t, repository.ErrNotFound, f.documents.Delete(ctx, doc))
}
