// Package testing provides a conformance suite for repository backends.
//
// Every metadata store (memory, BadgerDB, SQLite) runs the same suite, which
// exercises the raw Backend contract and the Store built on top of it.
package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite runs the repository conformance tests against one backend
// implementation.
//
// Usage:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &repotesting.StoreTestSuite{
//	        NewProvider: func(t *testing.T) repository.BackendProvider {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewProvider returns a fresh, empty provider for each test.
	NewProvider func(t *testing.T) repository.BackendProvider
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Backend", suite.RunBackendTests)
	t.Run("CRUD", suite.RunCRUDTests)
	t.Run("Versioning", suite.RunVersioningTests)
	t.Run("Healthcheck", suite.testHealthcheck)
}

func (suite *StoreTestSuite) testHealthcheck(t *testing.T) {
	provider := suite.NewProvider(t)
	t.Cleanup(func() { _ = provider.Close() })

	require.NoError(t, provider.Healthcheck(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, provider.Healthcheck(ctx))
}

// fixture bundles the repositories built over one provider.
type fixture struct {
	provider  repository.BackendProvider
	folders   *repository.Store
	documents *repository.Store
	nav       *repository.Navigator
}

func (suite *StoreTestSuite) newFixture(t *testing.T) *fixture {
	t.Helper()

	provider := suite.NewProvider(t)
	t.Cleanup(func() { _ = provider.Close() })

	folderBackend, err := provider.Collection("folders")
	require.NoError(t, err)
	documentBackend, err := provider.Collection("documents")
	require.NoError(t, err)

	folders, err := repository.NewStore(folderBackend, repository.StoreConfig{
		Name: "folders",
		New:  func() model.Object { return &model.Folder{} },
	})
	require.NoError(t, err)

	documents, err := repository.NewStore(documentBackend, repository.StoreConfig{
		Name: "documents",
		New:  func() model.Object { return &model.Document{} },
	})
	require.NoError(t, err)

	return &fixture{
		provider:  provider,
		folders:   folders,
		documents: documents,
		nav:       &repository.Navigator{Folders: folders, Documents: documents},
	}
}

func (suite *StoreTestSuite) newBackend(t *testing.T, name string) repository.Backend {
	t.Helper()

	provider := suite.NewProvider(t)
	t.Cleanup(func() { _ = provider.Close() })

	backend, err := provider.Collection(name)
	require.NoError(t, err)
	return backend
}

// asUser returns a context acting as the named principal.
func asUser(name string) context.Context {
	return repository.WithPrincipal(context.Background(), repository.Principal{Name: name})
}

func mustSaveDocument(t *testing.T, ctx context.Context, f *fixture, name, parentID string) *model.Document {
	t.Helper()

	doc := model.NewDocument(name)
	doc.SetParentID(parentID)
	saved, err := f.documents.Save(ctx, doc)
	require.NoError(t, err)
	return saved.(*model.Document)
}

func mustSaveFolder(t *testing.T, ctx context.Context, f *fixture, name, parentID string) *model.Folder {
	t.Helper()

	folder := model.NewFolder(name)
	folder.SetParentID(parentID)
	saved, err := f.folders.Save(ctx, folder)
	require.NoError(t, err)
	return saved.(*model.Folder)
}

func requireCode(t *testing.T, expected repository.ErrorCode, err error) {
	t.Helper()

	require.Error(t, err)
	code, ok := repository.CodeOf(err)
	require.True(t, ok, "expected repository error, got %v", err)
	require.Equal(t, expected, code, "unexpected error: %v", err)
}
