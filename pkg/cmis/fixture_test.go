package cmis

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/marmos91/dittocmis/pkg/content"
	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
	blobmemory "github.com/marmos91/dittocmis/pkg/store/content/memory"
	metamemory "github.com/marmos91/dittocmis/pkg/store/metadata/memory"
	"github.com/stretchr/testify/require"
)

// fixture is a bridge over in-memory repositories and blob storage.
type fixture struct {
	bridge          *Bridge
	folders         *repository.Store
	documents       *repository.Store
	documentBackend repository.Backend
	blobs           *blobmemory.MemoryContentStore
}

type fixtureOption func(cfg *Config, blobs *blobmemory.MemoryContentStore)

func withoutContent() fixtureOption {
	return func(cfg *Config, _ *blobmemory.MemoryContentStore) { cfg.Content = nil }
}

func withMaxContentSize(n int64) fixtureOption {
	return func(cfg *Config, blobs *blobmemory.MemoryContentStore) {
		cfg.Content = content.NewStore(blobs, content.Config{MaxContentSize: n})
	}
}

// plainRepository hides the versioning methods of a repository.
type plainRepository struct {
	repository.Repository
}

func unversioned() fixtureOption {
	return func(cfg *Config, _ *blobmemory.MemoryContentStore) {
		cfg.Documents = plainRepository{cfg.Documents}
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	provider := metamemory.NewMemoryMetadataStore(metamemory.MemoryMetadataStoreConfig{})
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

	blobs, err := blobmemory.NewMemoryContentStore(context.Background(), blobmemory.MemoryContentStoreConfig{})
	require.NoError(t, err)

	cfg := Config{
		Folders:   folders,
		Documents: documents,
		Content:   content.NewStore(blobs, content.Config{}),
		Info:      RepositoryInfo{ID: "test-repo", Name: "Test"},
	}
	for _, opt := range opts {
		opt(&cfg, blobs)
	}

	bridge, err := NewBridge(cfg)
	require.NoError(t, err)

	return &fixture{
		bridge:          bridge,
		folders:         folders,
		documents:       documents,
		documentBackend: documentBackend,
		blobs:           blobs,
	}
}

// asUser returns a context acting as the named principal.
func asUser(name string) context.Context {
	return repository.WithPrincipal(context.Background(), repository.Principal{Name: name})
}

func (f *fixture) mkdir(t *testing.T, ctx context.Context, parentID, name string) string {
	t.Helper()

	id, err := f.bridge.CreateFolder(ctx, map[string]any{PropName: name}, parentID)
	require.NoError(t, err)
	return id
}

func (f *fixture) put(t *testing.T, ctx context.Context, parentID, name, data string) string {
	t.Helper()

	var stream *ContentStream
	if data != "" {
		stream = NewContentStream(strings.NewReader(data), "text/plain", name, int64(len(data)))
	}
	id, err := f.bridge.CreateDocument(ctx, map[string]any{PropName: name}, parentID, stream)
	require.NoError(t, err)
	return id
}

func (f *fixture) read(t *testing.T, ctx context.Context, id string) string {
	t.Helper()

	stream, err := f.bridge.GetContentStream(ctx, id)
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) get(t *testing.T, ctx context.Context, id string) Properties {
	t.Helper()

	data, err := f.bridge.GetObject(ctx, id, ObjectOptions{})
	require.NoError(t, err)
	return data.Properties
}

// rows counts the records in the document collection.
func (f *fixture) rows(t *testing.T) int {
	t.Helper()

	n := 0
	err := f.documentBackend.Scan(context.Background(), func(repository.Record) error {
		n++
		return nil
	})
	require.NoError(t, err)
	return n
}

func requireCode(t *testing.T, expected ErrorCode, err error) {
	t.Helper()

	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok, "expected a bridge error, got %T: %v", err, err)
	require.Equal(t, expected, code, "unexpected error: %v", err)
}
