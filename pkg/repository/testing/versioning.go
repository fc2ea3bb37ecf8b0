package testing

import (
	"sync"
	"testing"

	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunVersioningTests executes VersioningRepository tests.
func (suite *StoreTestSuite) RunVersioningTests(t *testing.T) {
	t.Run("LockUnlock", suite.testLockUnlock)
	t.Run("ConcurrentLockHasOneWinner", suite.testConcurrentLock)
	t.Run("WorkingCopy", suite.testWorkingCopy)
	t.Run("WorkingCopyRequiresLock", suite.testWorkingCopyRequiresLock)
	t.Run("VersionPromotesWorkingCopy", suite.testVersionPromotesWorkingCopy)
	t.Run("VersionClonesLockedHead", suite.testVersionClonesHead)
	t.Run("VersionRejectsWorkingCopyLabel", suite.testVersionRejectsWorkingCopyLabel)
	t.Run("FindAllVersionsOrdering", suite.testFindAllVersions)
	t.Run("DeleteHeadRestoresPredecessor", suite.testDeleteHead)
	t.Run("DeleteAllVersions", suite.testDeleteAllVersions)
	t.Run("NavigationHidesSupersededVersions", suite.testNavigationHidesSuperseded)
}

func (suite *StoreTestSuite) testLockUnlock(t *testing.T) {
	f := suite.newFixture(t)
	alice, bob := asUser("alice"), asUser("bob")

	doc := mustSaveDocument(t, alice, f, "a.txt", "")

	locked, err := f.documents.Lock(alice, doc)
	require.NoError(t, err)
	assert.Equal(t, "alice", locked.(*model.Document).LockOwner())

	_, err = f.documents.Lock(alice, doc)
	requireCode(t, repository.ErrLocked, err)

	_, err = f.documents.Lock(bob, doc)
	requireCode(t, repository.ErrLocked, err)

	_, err = f.documents.Unlock(bob, doc)
	requireCode(t, repository.ErrNotLockOwner, err)

	unlocked, err := f.documents.Unlock(alice, doc)
	require.NoError(t, err)
	assert.Empty(t, unlocked.(*model.Document).LockOwner())
}

func (suite *StoreTestSuite) testConcurrentLock(t *testing.T) {
	f := suite.newFixture(t)
	doc := mustSaveDocument(t, asUser("alice"), f, "a.txt", "")

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.documents.Lock(asUser("user-"+string(rune('a'+n))), doc)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
				return
			}
			if code, ok := repository.CodeOf(err); ok && code == repository.ErrLocked {
				losers++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, workers-1, losers)
}

func (suite *StoreTestSuite) testWorkingCopy(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	folder := mustSaveFolder(t, ctx, f, "docs", "")
	doc := mustSaveDocument(t, ctx, f, "a.txt", folder.ID())

	_, err := f.documents.Lock(ctx, doc)
	require.NoError(t, err)

	pwcObj, err := f.documents.WorkingCopy(ctx, doc)
	require.NoError(t, err)
	pwc := pwcObj.(*model.Document)

	assert.NotEqual(t, doc.ID(), pwc.ID())
	assert.Equal(t, repository.WorkingCopyLabel, pwc.VersionLabel())
	assert.Equal(t, doc.ID(), pwc.AncestorID())
	assert.Equal(t, doc.ID(), pwc.AncestorRootID())
	assert.Equal(t, folder.ID(), pwc.ParentID())
	assert.Empty(t, pwc.LockOwner())
	assert.True(t, f.documents.IsPrivateWorkingCopy(pwc))
	assert.False(t, f.documents.IsPrivateWorkingCopy(doc))

	found, err := f.documents.FindWorkingCopy(ctx, doc)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, pwc.ID(), found.ID())

	// At most one working copy per series.
	_, err = f.documents.WorkingCopy(ctx, doc)
	requireCode(t, repository.ErrLocked, err)
}

func (suite *StoreTestSuite) testWorkingCopyRequiresLock(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")

	_, err := f.documents.WorkingCopy(ctx, doc)
	requireCode(t, repository.ErrNotLockOwner, err)

	none, err := f.documents.FindWorkingCopy(ctx, doc)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func (suite *StoreTestSuite) testVersionRejectsWorkingCopyLabel(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	_, err := f.documents.Lock(ctx, doc)
	require.NoError(t, err)
	pwc, err := f.documents.WorkingCopy(ctx, doc)
	require.NoError(t, err)

	_, err = f.documents.Version(ctx, pwc, repository.VersionInfo{Number: "1.1", Label: repository.WorkingCopyLabel})
	requireCode(t, repository.ErrInvalidObject, err)

	// The series is untouched: the original is still the locked head.
	stored, err := f.documents.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Empty(t, stored.(*model.Document).SuccessorID())
	assert.Equal(t, "alice", stored.(*model.Document).LockOwner())

	head, err := f.documents.Version(ctx, pwc, repository.VersionInfo{Number: "1.1", Label: "done"})
	require.NoError(t, err)
	assert.Equal(t, "done", head.(*model.Document).VersionLabel())
}

func (suite *StoreTestSuite) testVersionPromotesWorkingCopy(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	_, err := f.documents.Lock(ctx, doc)
	require.NoError(t, err)
	pwc, err := f.documents.WorkingCopy(ctx, doc)
	require.NoError(t, err)

	head, err := f.documents.Version(ctx, pwc, repository.VersionInfo{Number: "1.1", Label: "typo fixed"})
	require.NoError(t, err)

	v := head.(*model.Document)
	assert.Equal(t, pwc.ID(), v.ID())
	assert.Equal(t, "1.1", v.VersionNumber())
	assert.Equal(t, "typo fixed", v.VersionLabel())
	assert.Equal(t, "alice", v.LockOwner())
	assert.Empty(t, v.SuccessorID())
	assert.False(t, f.documents.IsPrivateWorkingCopy(v))

	previous, err := f.documents.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Equal(t, v.ID(), previous.(*model.Document).SuccessorID())
	assert.Empty(t, previous.(*model.Document).LockOwner())

	none, err := f.documents.FindWorkingCopy(ctx, doc)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func (suite *StoreTestSuite) testVersionClonesHead(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")

	_, err := f.documents.Version(ctx, doc, repository.VersionInfo{Number: "2.0"})
	requireCode(t, repository.ErrNotLockOwner, err)

	_, err = f.documents.Lock(ctx, doc)
	require.NoError(t, err)

	head, err := f.documents.Version(ctx, doc, repository.VersionInfo{Number: "2.0", Label: "major"})
	require.NoError(t, err)
	assert.NotEqual(t, doc.ID(), head.ID())
	assert.Equal(t, doc.ID(), head.(*model.Document).AncestorID())
	assert.Equal(t, doc.ID(), head.(*model.Document).AncestorRootID())

	// The predecessor is no longer the head.
	_, err = f.documents.Lock(ctx, doc)
	require.NoError(t, err)
	_, err = f.documents.WorkingCopy(ctx, doc)
	requireCode(t, repository.ErrNotHead, err)
}

func (suite *StoreTestSuite) testFindAllVersions(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	current := model.Object(doc)
	for _, number := range []string{"1.1", "1.2"} {
		_, err := f.documents.Lock(ctx, current)
		require.NoError(t, err)
		pwc, err := f.documents.WorkingCopy(ctx, current)
		require.NoError(t, err)
		current, err = f.documents.Version(ctx, pwc, repository.VersionInfo{Number: number})
		require.NoError(t, err)
		current, err = f.documents.Unlock(ctx, current)
		require.NoError(t, err)
	}

	desc, err := f.documents.FindAllVersions(ctx, doc, repository.SortDescending)
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, current.ID(), desc[0].ID())
	assert.Equal(t, doc.ID(), desc[2].ID())

	asc, err := f.documents.FindAllVersions(ctx, current, repository.SortAscending)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, doc.ID(), asc[0].ID())
}

func (suite *StoreTestSuite) testDeleteHead(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	_, err := f.documents.Lock(ctx, doc)
	require.NoError(t, err)
	pwc, err := f.documents.WorkingCopy(ctx, doc)
	require.NoError(t, err)
	head, err := f.documents.Version(ctx, pwc, repository.VersionInfo{Number: "1.1"})
	require.NoError(t, err)

	requireCode(t, repository.ErrNotHead, f.documents.Delete(ctx, doc))

	require.NoError(t, f.documents.Delete(ctx, head))

	previous, err := f.documents.FindByID(ctx, doc.ID())
	require.NoError(t, err)
	assert.Empty(t, previous.(*model.Document).SuccessorID())
}

func (suite *StoreTestSuite) testDeleteAllVersions(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	doc := mustSaveDocument(t, ctx, f, "a.txt", "")
	other := mustSaveDocument(t, ctx, f, "b.txt", "")
	_, err := f.documents.Lock(ctx, doc)
	require.NoError(t, err)
	_, err = f.documents.WorkingCopy(ctx, doc)
	require.NoError(t, err)

	require.NoError(t, f.documents.DeleteAllVersions(ctx, doc))

	atRoot, err := f.documents.FindByParent(ctx, "")
	require.NoError(t, err)
	require.Len(t, atRoot, 1)
	assert.Equal(t, other.ID(), atRoot[0].ID())
}

func (suite *StoreTestSuite) testNavigationHidesSuperseded(t *testing.T) {
	f := suite.newFixture(t)
	ctx := asUser("alice")

	folder := mustSaveFolder(t, ctx, f, "docs", "")
	doc := mustSaveDocument(t, ctx, f, "a.txt", folder.ID())

	_, err := f.documents.Lock(ctx, doc)
	require.NoError(t, err)
	pwc, err := f.documents.WorkingCopy(ctx, doc)
	require.NoError(t, err)

	// Checked out: the head and its working copy are both listed.
	children, err := f.nav.GetChildren(ctx, folder)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, doc.ID(), children[0].ID())
	assert.Equal(t, pwc.ID(), children[1].ID())

	head, err := f.documents.Version(ctx, pwc, repository.VersionInfo{Number: "1.1"})
	require.NoError(t, err)

	children, err = f.nav.GetChildren(ctx, folder)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, head.ID(), children[0].ID())
}
