package cmis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
	blob "github.com/marmos91/dittocmis/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Construction and types
// ============================================================================

func TestNewBridgeSynthesizesTypes(t *testing.T) {
	f := newFixture(t)

	defs := f.bridge.Types().List()
	require.Len(t, defs, 2)
	assert.Equal(t, BaseTypeDocument, defs[0].ID)
	assert.Equal(t, BaseTypeFolder, defs[1].ID)

	doc := defs[0]
	assert.True(t, doc.Versionable)
	assert.True(t, doc.ContentAllowed())
	assert.True(t, doc.Creatable)
	assert.NotNil(t, doc.Property(PropVersionSeriesID))
	assert.NotNil(t, doc.Property(PropContentStreamLength))
}

func TestNewBridgeWithoutContentOrVersioning(t *testing.T) {
	f := newFixture(t, withoutContent(), unversioned())

	def, err := f.bridge.GetTypeDefinition(context.Background(), BaseTypeDocument)
	require.NoError(t, err)
	assert.False(t, def.Versionable)
	assert.False(t, def.ContentAllowed())
	assert.Nil(t, def.Property(PropContentStreamLength))
	assert.Nil(t, def.Property(PropIsLatestVersion))

	info := f.bridge.GetRepositoryInfo(context.Background())
	assert.False(t, info.Capabilities.Versioning)
	assert.Equal(t, "none", info.Capabilities.ContentStreamUpdatability)
}

func TestNewBridgeRejectsMismatchedRepositories(t *testing.T) {
	f := newFixture(t)

	_, err := NewBridge(Config{Folders: f.documents, Documents: f.documents})
	requireCode(t, ErrIllegalState, err)

	_, err = NewBridge(Config{Folders: f.folders, Documents: f.folders})
	requireCode(t, ErrIllegalState, err)
}

func TestRepositoryInfo(t *testing.T) {
	f := newFixture(t)

	info := f.bridge.GetRepositoryInfo(context.Background())
	assert.Equal(t, "test-repo", info.ID)
	assert.Equal(t, "Test", info.Name)
	assert.Equal(t, DefaultRootFolderID, info.RootFolderID)
	assert.Equal(t, CMISVersion, info.CMISVersion)
	assert.True(t, info.Capabilities.Versioning)
	assert.Equal(t, "anytime", info.Capabilities.ContentStreamUpdatability)
	assert.Equal(t, "none", info.Capabilities.Query)

	generated, err := NewBridge(Config{Folders: f.folders, Documents: f.documents})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.GetRepositoryInfo(context.Background()).ID)
}

func TestGetTypeChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.bridge.GetTypeChildren(ctx, "", true, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.NumItems)
	assert.False(t, all.HasMoreItems)
	require.Len(t, all.Types, 2)
	assert.NotEmpty(t, all.Types[0].PropertyDefinitions)

	first, err := f.bridge.GetTypeChildren(ctx, "", false, ListOptions{MaxItems: 1})
	require.NoError(t, err)
	require.Len(t, first.Types, 1)
	assert.True(t, first.HasMoreItems)
	assert.Empty(t, first.Types[0].PropertyDefinitions)

	// The table itself keeps its property definitions.
	def, _ := f.bridge.Types().Get(first.Types[0].ID)
	assert.NotEmpty(t, def.PropertyDefinitions)

	sub, err := f.bridge.GetTypeChildren(ctx, BaseTypeFolder, true, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, sub.Types)
	assert.Zero(t, sub.NumItems)

	_, err = f.bridge.GetTypeChildren(ctx, "acme:invoice", true, ListOptions{})
	requireCode(t, ErrNotFound, err)

	_, err = f.bridge.GetTypeChildren(ctx, "", true, ListOptions{SkipCount: -1})
	requireCode(t, ErrInvalidArgument, err)
}

func TestGetTypeDefinitionUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.bridge.GetTypeDefinition(context.Background(), "cmis:relationship")
	requireCode(t, ErrNotFound, err)
}

// ============================================================================
// Objects and navigation
// ============================================================================

func TestCreateAndGetObject(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	docID, err := f.bridge.CreateDocument(ctx, map[string]any{
		PropName:         "readme.txt",
		PropDescription:  "Read me first",
		PropObjectTypeID: BaseTypeDocument,
	}, folderID, nil)
	require.NoError(t, err)

	props := f.get(t, ctx, docID)
	assert.Equal(t, docID, props.String(PropObjectID))
	assert.Equal(t, "readme.txt", props.String(PropName))
	assert.Equal(t, "Read me first", props.String(PropDescription))
	assert.Equal(t, BaseTypeDocument, props.String(PropBaseTypeID))
	assert.Equal(t, "alice", props.String(PropCreatedBy))
	assert.Equal(t, "1.0", props.String(PropVersionLabel))
	assert.True(t, props.Bool(PropIsLatestVersion))
	assert.True(t, props.Bool(PropIsMajorVersion))
	assert.False(t, props.Bool(PropIsVersionSeriesCheckedOut))
	assert.Nil(t, props.Value(PropContentStreamLength))

	folder := f.get(t, ctx, folderID)
	assert.Equal(t, "/docs", folder.String(PropPath))
	assert.Equal(t, DefaultRootFolderID, folder.String(PropParentID))
}

func TestGetRootFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	props := f.get(t, ctx, DefaultRootFolderID)
	assert.Equal(t, "/", props.String(PropPath))
	assert.Nil(t, props.Value(PropParentID))
	assert.Equal(t, BaseTypeFolder, props.String(PropBaseTypeID))

	byPath, err := f.bridge.GetObjectByPath(ctx, "/", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRootFolderID, byPath.ID())
}

func TestGetObjectNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.bridge.GetObject(context.Background(), "missing", ObjectOptions{})
	requireCode(t, ErrNotFound, err)

	_, err = f.bridge.GetObject(context.Background(), "", ObjectOptions{})
	requireCode(t, ErrInvalidArgument, err)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	tests := []struct {
		name  string
		props map[string]any
	}{
		{"missing name", map[string]any{}},
		{"slash in name", map[string]any{PropName: "a/b"}},
		{"dot dot", map[string]any{PropName: ".."}},
		{"unknown property", map[string]any{PropName: "a", "acme:color": "red"}},
		{"read-only property", map[string]any{PropName: "a", PropCreatedBy: "mallory"}},
		{"wrong type id", map[string]any{PropName: "a", PropObjectTypeID: BaseTypeFolder}},
		{"non-string name", map[string]any{PropName: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bridge.CreateDocument(ctx, tt.props, "", nil)
			requireCode(t, ErrInvalidArgument, err)
		})
	}

	assert.Zero(t, f.rows(t))
}

func TestCreateInDocumentFails(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	docID := f.put(t, ctx, "", "a.txt", "")
	_, err := f.bridge.CreateFolder(ctx, map[string]any{PropName: "sub"}, docID)
	requireCode(t, ErrInvalidArgument, err)

	_, err = f.bridge.CreateFolder(ctx, map[string]any{PropName: "sub"}, "missing")
	requireCode(t, ErrNotFound, err)
}

func TestDuplicateNamesConflict(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	f.put(t, ctx, folderID, "a.txt", "")

	_, err := f.bridge.CreateDocument(ctx, map[string]any{PropName: "a.txt"}, folderID, nil)
	requireCode(t, ErrConflict, err)

	_, err = f.bridge.CreateFolder(ctx, map[string]any{PropName: "docs"}, "")
	requireCode(t, ErrConflict, err)

	// Same name in another folder is fine.
	f.put(t, ctx, "", "a.txt", "")
}

func TestGetChildrenPaging(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	f.put(t, ctx, folderID, "c.txt", "")
	f.put(t, ctx, folderID, "a.txt", "")
	f.mkdir(t, ctx, folderID, "z")
	f.put(t, ctx, folderID, "b.txt", "")

	names := func(list *ObjectInFolderList) []string {
		var out []string
		for _, entry := range list.Objects {
			out = append(out, entry.PathSegment)
		}
		return out
	}

	all, err := f.bridge.GetChildren(ctx, folderID, ObjectOptions{IncludePathSegment: true}, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a.txt", "b.txt", "c.txt"}, names(all))
	assert.Equal(t, 4, all.NumItems)
	assert.False(t, all.HasMoreItems)

	page, err := f.bridge.GetChildren(ctx, folderID, ObjectOptions{IncludePathSegment: true}, ListOptions{SkipCount: 1, MaxItems: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(page))
	assert.True(t, page.HasMoreItems)
	assert.Equal(t, 4, page.NumItems)

	beyond, err := f.bridge.GetChildren(ctx, folderID, ObjectOptions{}, ListOptions{SkipCount: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Objects)
	assert.False(t, beyond.HasMoreItems)

	root, err := f.bridge.GetChildren(ctx, DefaultRootFolderID, ObjectOptions{}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, root.Objects, 1)
	assert.Equal(t, folderID, root.Objects[0].Object.ID())
}

func TestGetChildrenOfDocumentFails(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	docID := f.put(t, ctx, "", "a.txt", "")
	_, err := f.bridge.GetChildren(ctx, docID, ObjectOptions{}, ListOptions{})
	requireCode(t, ErrInvalidArgument, err)
}

func TestResolvePath(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	a := f.mkdir(t, ctx, "", "a")
	b := f.mkdir(t, ctx, a, "b")
	c := f.put(t, ctx, b, "c.txt", "")

	doc, err := f.bridge.GetObjectByPath(ctx, "/a/b/c.txt", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, c, doc.ID())

	folder, err := f.bridge.GetObjectByPath(ctx, "/a/b/", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, b, folder.ID())

	_, err = f.bridge.GetObjectByPath(ctx, "/a/x", ObjectOptions{})
	requireCode(t, ErrNotFound, err)

	_, err = f.bridge.GetObjectByPath(ctx, "/a/b/c.txt/d", ObjectOptions{})
	requireCode(t, ErrNotFound, err)

	_, err = f.bridge.GetObjectByPath(ctx, "/A", ObjectOptions{})
	requireCode(t, ErrNotFound, err)

	_, err = f.bridge.GetObjectByPath(ctx, "a/b", ObjectOptions{})
	requireCode(t, ErrInvalidArgument, err)
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "my docs")
	docID := f.put(t, ctx, folderID, "50% off.txt", "")

	props := f.get(t, ctx, folderID)
	assert.Equal(t, "/my%20docs", props.String(PropPath))

	doc, err := f.bridge.GetObjectByPath(ctx, "/my%20docs/50%25%20off.txt", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, docID, doc.ID())

	raw, err := f.bridge.GetObjectByPath(ctx, "/my docs", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, folderID, raw.ID())
}

func TestGetObjectParents(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "")

	parents, err := f.bridge.GetObjectParents(ctx, docID, ObjectOptions{IncludePathSegment: true})
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, folderID, parents[0].Object.ID())
	assert.Equal(t, "a.txt", parents[0].RelativePathSegment)

	parents, err = f.bridge.GetObjectParents(ctx, folderID, ObjectOptions{})
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, DefaultRootFolderID, parents[0].Object.ID())
	assert.Empty(t, parents[0].RelativePathSegment)

	_, err = f.bridge.GetObjectParents(ctx, DefaultRootFolderID, ObjectOptions{})
	requireCode(t, ErrInvalidArgument, err)
}

func TestGetFolderParent(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	a := f.mkdir(t, ctx, "", "a")
	b := f.mkdir(t, ctx, a, "b")
	docID := f.put(t, ctx, b, "c.txt", "")

	parent, err := f.bridge.GetFolderParent(ctx, b, ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, a, parent.ID())

	parent, err = f.bridge.GetFolderParent(ctx, a, ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRootFolderID, parent.ID())

	_, err = f.bridge.GetFolderParent(ctx, DefaultRootFolderID, ObjectOptions{})
	requireCode(t, ErrInvalidArgument, err)

	_, err = f.bridge.GetFolderParent(ctx, docID, ObjectOptions{})
	requireCode(t, ErrInvalidArgument, err)
}

func TestCustomRootFolderID(t *testing.T) {
	f := newFixture(t)
	bridge, err := NewBridge(Config{Folders: f.folders, Documents: f.documents, RootFolderID: "root"})
	require.NoError(t, err)
	ctx := asUser("alice")

	id, err := bridge.CreateFolder(ctx, map[string]any{PropName: "docs"}, "root")
	require.NoError(t, err)

	data, err := bridge.GetObject(ctx, id, ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "root", data.Properties.String(PropParentID))
	assert.Equal(t, "root", bridge.GetRepositoryInfo(ctx).RootFolderID)
}

// ============================================================================
// Filters, actions and object info
// ============================================================================

func TestFilterRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "hello")

	data, err := f.bridge.GetObject(ctx, docID, ObjectOptions{Filter: ParseFilter("cmis:name")})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{PropObjectID, PropName, PropBaseTypeID, PropObjectTypeID},
		data.Properties.IDs())

	def, _ := f.bridge.Types().Get(BaseTypeDocument)
	for _, filter := range []string{"*", ""} {
		data, err := f.bridge.GetObject(ctx, docID, ObjectOptions{Filter: ParseFilter(filter)})
		require.NoError(t, err)
		assert.ElementsMatch(t, def.PropertyIDs(), data.Properties.IDs(), "filter %q", filter)
	}
}

func TestFilterRepeatsAndForeignProperties(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	// cmis:path is declared by folders only; documents skip it.
	data, err := f.bridge.GetObject(ctx, docID, ObjectOptions{Filter: ParseFilter("cmis:name, cmis:name,cmis:path")})
	require.NoError(t, err)
	assert.Len(t, data.Properties, 4)
}

func TestFilterUnknownProperty(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	_, err := f.bridge.GetObject(ctx, docID, ObjectOptions{Filter: ParseFilter("cmis:name,acme:color")})
	requireCode(t, ErrInvalidArgument, err)
	assert.Contains(t, err.Error(), "acme:color")

	_, err = f.bridge.GetChildren(ctx, DefaultRootFolderID, ObjectOptions{Filter: NewFilter("nope")}, ListOptions{})
	requireCode(t, ErrInvalidArgument, err)
}

func TestAllowableActionsFollowPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "data")

	data, err := f.bridge.GetObject(ctx, docID, ObjectOptions{IncludeAllowableActions: true})
	require.NoError(t, err)
	assert.True(t, data.AllowableActions.Has(ActionSetContentStream))
	assert.True(t, data.AllowableActions.Has(ActionGetContentStream))
	assert.True(t, data.AllowableActions.Has(ActionCheckOut))

	reader := repository.WithPrincipal(context.Background(), repository.Principal{Name: "bob", ReadOnly: true})
	data, err = f.bridge.GetObject(reader, docID, ObjectOptions{IncludeAllowableActions: true})
	require.NoError(t, err)
	assert.False(t, data.AllowableActions.Has(ActionSetContentStream))
	assert.False(t, data.AllowableActions.Has(ActionDeleteObject))
	assert.True(t, data.AllowableActions.Has(ActionGetContentStream))

	root, err := f.bridge.GetObject(ctx, DefaultRootFolderID, ObjectOptions{IncludeAllowableActions: true})
	require.NoError(t, err)
	assert.False(t, root.AllowableActions.Has(ActionDeleteObject))
	assert.False(t, root.AllowableActions.Has(ActionGetFolderParent))
	assert.True(t, root.AllowableActions.Has(ActionCreateDocument))

	plain, err := f.bridge.GetObject(ctx, docID, ObjectOptions{})
	require.NoError(t, err)
	assert.Nil(t, plain.AllowableActions)
}

func TestObjectInfoCollector(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "hello")

	collector := &ObjectInfoCollector{}
	_, err := f.bridge.GetChildren(ctx, folderID, ObjectOptions{Info: collector}, ListOptions{})
	require.NoError(t, err)

	info := collector.Get(docID)
	require.NotNil(t, info)
	assert.Equal(t, "a.txt", info.Name)
	assert.Equal(t, BaseTypeDocument, info.BaseType)
	assert.True(t, info.HasContent)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.True(t, info.HasParent)
	assert.True(t, info.IsCurrentVersion)
	assert.Equal(t, docID, info.VersionSeriesID)
	require.NotNil(t, info.Object)
	assert.Equal(t, docID, info.Object.ID())

	collector = &ObjectInfoCollector{}
	_, err = f.bridge.GetObject(ctx, DefaultRootFolderID, ObjectOptions{Info: collector})
	require.NoError(t, err)
	root := collector.Get(DefaultRootFolderID)
	require.NotNil(t, root)
	assert.False(t, root.HasParent)
	assert.True(t, root.SupportsFolderTree)
}

// ============================================================================
// Properties
// ============================================================================

func TestUpdateProperties(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "")
	f.put(t, ctx, folderID, "taken.txt", "")

	id, err := f.bridge.UpdateProperties(asUser("bob"), docID, map[string]any{
		PropName:        "b.txt",
		PropDescription: []any{"renamed"},
	})
	require.NoError(t, err)
	assert.Equal(t, docID, id)

	props := f.get(t, ctx, docID)
	assert.Equal(t, "b.txt", props.String(PropName))
	assert.Equal(t, "renamed", props.String(PropDescription))
	assert.Equal(t, "bob", props.String(PropLastModifiedBy))
	assert.Equal(t, "alice", props.String(PropCreatedBy))

	_, err = f.bridge.UpdateProperties(ctx, docID, map[string]any{PropName: "taken.txt"})
	requireCode(t, ErrConflict, err)

	_, err = f.bridge.UpdateProperties(ctx, docID, map[string]any{PropObjectTypeID: BaseTypeDocument})
	requireCode(t, ErrInvalidArgument, err)

	_, err = f.bridge.UpdateProperties(ctx, docID, map[string]any{PropVersionLabel: "9.9"})
	requireCode(t, ErrInvalidArgument, err)

	_, err = f.bridge.UpdateProperties(ctx, DefaultRootFolderID, map[string]any{PropName: "x"})
	requireCode(t, ErrInvalidArgument, err)

	// Renaming to its own name is not a conflict.
	_, err = f.bridge.UpdateProperties(ctx, docID, map[string]any{PropName: "b.txt"})
	require.NoError(t, err)

	// Rejected updates leave the object untouched.
	_, err = f.bridge.UpdateProperties(ctx, docID, map[string]any{PropDescription: "x", "acme:bad": 1})
	requireCode(t, ErrInvalidArgument, err)
	assert.Equal(t, "renamed", f.get(t, ctx, docID).String(PropDescription))
}

func TestUpdateFolderName(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "old")
	docID := f.put(t, ctx, folderID, "a.txt", "")

	_, err := f.bridge.UpdateProperties(ctx, folderID, map[string]any{PropName: "new"})
	require.NoError(t, err)

	doc, err := f.bridge.GetObjectByPath(ctx, "/new/a.txt", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, docID, doc.ID())
}

// ============================================================================
// Content streams
// ============================================================================

func TestContentRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	payload := "binary\x00payload"
	_, err := f.bridge.SetContentStream(ctx, docID, true,
		NewContentStream(strings.NewReader(payload), "application/x-test", "a.txt", int64(len(payload))))
	require.NoError(t, err)

	stream, err := f.bridge.GetContentStream(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "application/x-test", stream.MimeType)
	assert.Equal(t, int64(len(payload)), stream.Length)
	assert.Equal(t, "a.txt", stream.FileName)
	require.NoError(t, stream.Close())

	assert.Equal(t, payload, f.read(t, ctx, docID))

	props := f.get(t, ctx, docID)
	assert.Equal(t, int64(len(payload)), props.Value(PropContentStreamLength))
	assert.Equal(t, "application/x-test", props.String(PropContentStreamMimeType))
	assert.Equal(t, "a.txt", props.String(PropContentStreamFileName))
}

func TestContentLengthZeroMeansNoStream(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	empty := f.put(t, ctx, "", "empty.txt", "")
	full := f.put(t, ctx, "", "full.txt", "x")

	for id, wantStream := range map[string]bool{empty: false, full: true} {
		length, _ := f.get(t, ctx, id).Value(PropContentStreamLength).(int64)
		stream, err := f.bridge.GetContentStream(ctx, id)
		if wantStream {
			require.NoError(t, err)
			_ = stream.Close()
			assert.NotZero(t, length)
		} else {
			requireCode(t, ErrNotFound, err)
			assert.Zero(t, length)
		}
	}
}

func TestSetContentStreamWithoutOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "first")

	_, err := f.bridge.SetContentStream(ctx, docID, false, NewContentStream(strings.NewReader("second"), "", "", -1))
	requireCode(t, ErrConflict, err)
	assert.Equal(t, "first", f.read(t, ctx, docID))

	_, err = f.bridge.SetContentStream(ctx, docID, true, NewContentStream(strings.NewReader("second"), "", "", -1))
	require.NoError(t, err)
	assert.Equal(t, "second", f.read(t, ctx, docID))

	// Only the current blob remains.
	ids, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSetContentStreamDetectsMimeType(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "page", "")

	html := "<html><body>hi</body></html>"
	_, err := f.bridge.SetContentStream(ctx, docID, true, NewContentStream(strings.NewReader(html), "", "", -1))
	require.NoError(t, err)

	props := f.get(t, ctx, docID)
	assert.Contains(t, props.String(PropContentStreamMimeType), "text/html")
}

func TestDeleteContentStream(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "data")

	_, err := f.bridge.DeleteContentStream(ctx, docID)
	require.NoError(t, err)

	_, err = f.bridge.GetContentStream(ctx, docID)
	requireCode(t, ErrNotFound, err)

	ids, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	props := f.get(t, ctx, docID)
	assert.Nil(t, props.Value(PropContentStreamLength))
	assert.Nil(t, props.Value(PropContentStreamID))
}

func TestCreateDocumentRejectedContentLeavesNothing(t *testing.T) {
	f := newFixture(t, withMaxContentSize(4))
	ctx := asUser("alice")
	folderID := f.mkdir(t, ctx, "", "docs")

	_, err := f.bridge.CreateDocument(ctx, map[string]any{PropName: "a.txt"}, folderID,
		NewContentStream(strings.NewReader("oversized"), "text/plain", "", 9))
	requireCode(t, ErrInvalidArgument, err)
	assert.Zero(t, f.rows(t))

	children, err := f.bridge.GetChildren(ctx, folderID, ObjectOptions{}, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, children.Objects)

	id := f.put(t, ctx, folderID, "a.txt", "ok")
	assert.Equal(t, "ok", f.read(t, ctx, id))
}

func TestContentOperationsOnFolders(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	folderID := f.mkdir(t, ctx, "", "docs")

	_, err := f.bridge.GetContentStream(ctx, folderID)
	requireCode(t, ErrInvalidArgument, err)

	_, err = f.bridge.SetContentStream(ctx, folderID, true, NewContentStream(strings.NewReader("x"), "", "", 1))
	requireCode(t, ErrInvalidArgument, err)
}

func TestContentWithoutContentStore(t *testing.T) {
	f := newFixture(t, withoutContent())
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	_, err := f.bridge.GetContentStream(ctx, docID)
	requireCode(t, ErrNotFound, err)

	_, err = f.bridge.SetContentStream(ctx, docID, true, NewContentStream(strings.NewReader("x"), "", "", 1))
	requireCode(t, ErrUnsupported, err)

	_, err = f.bridge.CreateDocument(ctx, map[string]any{PropName: "b.txt"}, "",
		NewContentStream(strings.NewReader("x"), "", "", 1))
	requireCode(t, ErrUnsupported, err)
}

func TestMissingBlobIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "data")

	ids, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.NoError(t, f.blobs.Delete(ctx, ids[0]))

	_, err = f.bridge.GetContentStream(ctx, docID)
	requireCode(t, ErrNotFound, err)
	assert.True(t, errors.Is(err, blob.ErrContentNotFound))
}

// ============================================================================
// Versioning
// ============================================================================

func TestCheckOutTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)
	assert.NotEqual(t, docID, result.ID)
	assert.True(t, result.ContentCopied)

	_, err = f.bridge.CheckOut(ctx, docID)
	requireCode(t, ErrConflict, err)

	_, err = f.bridge.CheckOut(ctx, result.ID)
	requireCode(t, ErrConflict, err)

	children, err := f.bridge.GetChildren(ctx, folderID, ObjectOptions{}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, children.Objects, 2)

	// Cancel restores the published state.
	require.NoError(t, f.bridge.CancelCheckOut(ctx, docID))

	children, err = f.bridge.GetChildren(ctx, folderID, ObjectOptions{}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, children.Objects, 1)
	assert.Equal(t, docID, children.Objects[0].Object.ID())

	_, err = f.bridge.GetObject(ctx, result.ID, ObjectOptions{})
	requireCode(t, ErrNotFound, err)

	props := f.get(t, ctx, docID)
	assert.False(t, props.Bool(PropIsVersionSeriesCheckedOut))
	assert.Equal(t, "v1", f.read(t, ctx, docID))

	// And the series can be checked out again.
	_, err = f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)
}

func TestCheckedOutProperties(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	head := f.get(t, ctx, docID)
	assert.True(t, head.Bool(PropIsVersionSeriesCheckedOut))
	assert.Equal(t, "alice", head.String(PropVersionSeriesCheckedOutBy))
	assert.Equal(t, result.ID, head.String(PropVersionSeriesCheckedOutID))
	assert.True(t, head.Bool(PropIsLatestVersion))
	assert.False(t, head.Bool(PropIsPrivateWorkingCopy))

	pwc := f.get(t, ctx, result.ID)
	assert.True(t, pwc.Bool(PropIsPrivateWorkingCopy))
	assert.False(t, pwc.Bool(PropIsLatestVersion))
	assert.Equal(t, docID, pwc.String(PropVersionSeriesID))
	assert.Nil(t, pwc.Value(PropCheckinComment))
	assert.Equal(t, "v1", f.read(t, ctx, result.ID))

	collector := &ObjectInfoCollector{}
	_, err = f.bridge.GetObject(ctx, result.ID, ObjectOptions{Info: collector})
	require.NoError(t, err)
	assert.Equal(t, docID, collector.Get(result.ID).WorkingCopyOriginalID)
}

func TestCancelCheckOutWithoutWorkingCopyIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	require.NoError(t, f.bridge.CancelCheckOut(ctx, docID))
	assert.Equal(t, 1, f.rows(t))
}

func TestCancelCheckOutByAnotherUserConflicts(t *testing.T) {
	f := newFixture(t)
	alice := asUser("alice")
	docID := f.put(t, alice, "", "a.txt", "")

	result, err := f.bridge.CheckOut(alice, docID)
	require.NoError(t, err)

	err = f.bridge.CancelCheckOut(asUser("bob"), docID)
	requireCode(t, ErrConflict, err)

	_, err = f.bridge.GetObject(alice, result.ID, ObjectOptions{})
	require.NoError(t, err)
}

func TestCancelCheckOutKeepsHeadContent(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "original")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)
	_, err = f.bridge.SetContentStream(ctx, result.ID, true, NewContentStream(strings.NewReader("draft"), "text/plain", "", -1))
	require.NoError(t, err)

	require.NoError(t, f.bridge.CancelCheckOut(ctx, result.ID))
	assert.Equal(t, "original", f.read(t, ctx, docID))

	ids, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	newID, err := f.bridge.CheckIn(ctx, result.ID, CheckInRequest{
		Properties: map[string]any{PropDescription: "second draft"},
		Content:    NewContentStream(strings.NewReader("v2"), "text/plain", "", 2),
		Comment:    "fixed typos",
	})
	require.NoError(t, err)
	assert.Equal(t, result.ID, newID)

	head := f.get(t, ctx, newID)
	assert.Equal(t, "1.1", head.String(PropVersionLabel))
	assert.Equal(t, "fixed typos", head.String(PropCheckinComment))
	assert.Equal(t, "second draft", head.String(PropDescription))
	assert.True(t, head.Bool(PropIsLatestVersion))
	assert.False(t, head.Bool(PropIsMajorVersion))
	assert.False(t, head.Bool(PropIsVersionSeriesCheckedOut))
	assert.False(t, head.Bool(PropIsPrivateWorkingCopy))
	assert.Equal(t, docID, head.String(PropVersionSeriesID))
	assert.Equal(t, "v2", f.read(t, ctx, newID))

	previous := f.get(t, ctx, docID)
	assert.False(t, previous.Bool(PropIsLatestVersion))
	assert.Equal(t, "v1", f.read(t, ctx, docID))

	// The path now resolves to the new version.
	byPath, err := f.bridge.GetObjectByPath(ctx, "/docs/a.txt", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, newID, byPath.ID())

	// The series is published again.
	_, err = f.bridge.CheckOut(ctx, newID)
	require.NoError(t, err)
}

func TestCheckInThroughSeriesMember(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	_, err := f.bridge.CheckIn(ctx, docID, CheckInRequest{})
	requireCode(t, ErrConflict, err)

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	newID, err := f.bridge.CheckIn(ctx, docID, CheckInRequest{Major: true})
	require.NoError(t, err)
	assert.Equal(t, result.ID, newID)
	assert.Equal(t, "2.0", f.get(t, ctx, newID).String(PropVersionLabel))
}

func TestCheckInRejectsBadPropertiesBeforeVersioning(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	_, err = f.bridge.CheckIn(ctx, result.ID, CheckInRequest{Properties: map[string]any{PropCreatedBy: "x"}})
	requireCode(t, ErrInvalidArgument, err)

	// Still checked out.
	assert.True(t, f.get(t, ctx, docID).Bool(PropIsVersionSeriesCheckedOut))
	assert.True(t, f.get(t, ctx, result.ID).Bool(PropIsPrivateWorkingCopy))
}

func TestCheckInRejectsWorkingCopyComment(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	_, err = f.bridge.CheckIn(ctx, result.ID, CheckInRequest{Comment: "~~PWC~~"})
	requireCode(t, ErrInvalidArgument, err)

	assert.True(t, f.get(t, ctx, docID).Bool(PropIsVersionSeriesCheckedOut))
	assert.True(t, f.get(t, ctx, result.ID).Bool(PropIsPrivateWorkingCopy))

	newID, err := f.bridge.CheckIn(ctx, result.ID, CheckInRequest{Comment: "done"})
	require.NoError(t, err)

	head := f.get(t, ctx, newID)
	assert.True(t, head.Bool(PropIsLatestVersion))
	assert.False(t, head.Bool(PropIsPrivateWorkingCopy))
	assert.Equal(t, "done", head.String(PropCheckinComment))
}

func TestRejectedCheckInContentKeepsCheckout(t *testing.T) {
	f := newFixture(t, withMaxContentSize(4))
	ctx := asUser("alice")
	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	_, err = f.bridge.CheckIn(ctx, result.ID, CheckInRequest{
		Properties: map[string]any{PropDescription: "too big"},
		Content:    NewContentStream(strings.NewReader("oversized"), "text/plain", "", 9),
	})
	requireCode(t, ErrInvalidArgument, err)

	// Nothing was promoted.
	head := f.get(t, ctx, docID)
	assert.True(t, head.Bool(PropIsLatestVersion))
	assert.True(t, head.Bool(PropIsVersionSeriesCheckedOut))
	pwc := f.get(t, ctx, result.ID)
	assert.True(t, pwc.Bool(PropIsPrivateWorkingCopy))
	assert.Nil(t, pwc.Value(PropDescription))
	assert.Equal(t, "v1", f.read(t, ctx, result.ID))

	newID, err := f.bridge.CheckIn(ctx, result.ID, CheckInRequest{
		Content: NewContentStream(strings.NewReader("v2"), "text/plain", "", 2),
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", f.read(t, ctx, newID))
	assert.False(t, f.get(t, ctx, newID).Bool(PropIsVersionSeriesCheckedOut))

	_, err = f.bridge.CheckOut(ctx, newID)
	require.NoError(t, err)
}

func TestCheckInRenameConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "")
	f.put(t, ctx, folderID, "b.txt", "")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	_, err = f.bridge.CheckIn(ctx, result.ID, CheckInRequest{Properties: map[string]any{PropName: "b.txt"}})
	requireCode(t, ErrConflict, err)
	assert.True(t, f.get(t, ctx, docID).Bool(PropIsVersionSeriesCheckedOut))
	assert.Equal(t, "a.txt", f.get(t, ctx, result.ID).String(PropName))

	newID, err := f.bridge.CheckIn(ctx, result.ID, CheckInRequest{Properties: map[string]any{PropName: "c.txt"}})
	require.NoError(t, err)

	byPath, err := f.bridge.GetObjectByPath(ctx, "/docs/c.txt", ObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, newID, byPath.ID())
}

func TestCheckOutRollsBackWhenFilingFails(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "v1")

	folder, err := f.folders.FindByID(ctx, folderID)
	require.NoError(t, err)
	require.NoError(t, f.folders.Delete(ctx, folder))

	_, err = f.bridge.CheckOut(ctx, docID)
	require.Error(t, err)

	assert.Equal(t, 1, f.rows(t))
	assert.False(t, f.get(t, ctx, docID).Bool(PropIsVersionSeriesCheckedOut))
	ids, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestCheckInByAnotherUserConflicts(t *testing.T) {
	f := newFixture(t)
	alice := asUser("alice")
	docID := f.put(t, alice, "", "a.txt", "")

	result, err := f.bridge.CheckOut(alice, docID)
	require.NoError(t, err)

	_, err = f.bridge.CheckIn(asUser("bob"), result.ID, CheckInRequest{})
	requireCode(t, ErrConflict, err)
}

func TestMajorCheckInKeepsMinor(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	id := f.put(t, ctx, "", "a.txt", "")

	checkIn := func(major bool) {
		t.Helper()
		result, err := f.bridge.CheckOut(ctx, id)
		require.NoError(t, err)
		id, err = f.bridge.CheckIn(ctx, result.ID, CheckInRequest{Major: major})
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		checkIn(false)
	}
	assert.Equal(t, "1.3", f.get(t, ctx, id).String(PropVersionLabel))

	checkIn(true)
	props := f.get(t, ctx, id)
	assert.Equal(t, "2.3", props.String(PropVersionLabel))
	assert.False(t, props.Bool(PropIsMajorVersion))
}

func TestConcurrentCheckOutHasOneWinner(t *testing.T) {
	f := newFixture(t)
	docID := f.put(t, asUser("alice"), "", "a.txt", "data")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.bridge.CheckOut(asUser(string(rune('a'+i))), docID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case IsConflict(err):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, workers-1, conflicts)

	versions, err := f.bridge.GetAllVersions(context.Background(), docID, ObjectOptions{})
	require.NoError(t, err)
	pwcs := 0
	for _, v := range versions {
		if v.Properties.Bool(PropIsPrivateWorkingCopy) {
			pwcs++
		}
	}
	assert.Equal(t, 1, pwcs)
}

func TestGetAllVersions(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	first := f.put(t, ctx, "", "a.txt", "")

	id := first
	for i := 0; i < 2; i++ {
		result, err := f.bridge.CheckOut(ctx, id)
		require.NoError(t, err)
		id, err = f.bridge.CheckIn(ctx, result.ID, CheckInRequest{})
		require.NoError(t, err)
	}

	versions, err := f.bridge.GetAllVersions(ctx, first, ObjectOptions{Filter: ParseFilter(PropVersionLabel)})
	require.NoError(t, err)
	require.Len(t, versions, 3)

	var labels []string
	for _, v := range versions {
		labels = append(labels, v.Properties.String(PropVersionLabel))
	}
	assert.Equal(t, []string{"1.2", "1.1", "1.0"}, labels)
	assert.Equal(t, id, versions[0].ID())
}

func TestVersioningUnsupported(t *testing.T) {
	f := newFixture(t, unversioned())
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "")

	_, err := f.bridge.CheckOut(ctx, docID)
	requireCode(t, ErrUnsupported, err)

	err = f.bridge.CancelCheckOut(ctx, docID)
	requireCode(t, ErrUnsupported, err)

	_, err = f.bridge.CheckIn(ctx, docID, CheckInRequest{})
	requireCode(t, ErrUnsupported, err)

	versions, err := f.bridge.GetAllVersions(ctx, docID, ObjectOptions{})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, docID, versions[0].ID())
}

// ============================================================================
// Deletion
// ============================================================================

func TestDeleteAllVersions(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	folderID := f.mkdir(t, ctx, "", "docs")
	first := f.put(t, ctx, folderID, "a.txt", "v1")

	members := []string{first}
	id := first
	for _, data := range []string{"v2", "v3"} {
		result, err := f.bridge.CheckOut(ctx, id)
		require.NoError(t, err)
		id, err = f.bridge.CheckIn(ctx, result.ID, CheckInRequest{
			Content: NewContentStream(strings.NewReader(data), "text/plain", "", int64(len(data))),
		})
		require.NoError(t, err)
		members = append(members, id)
	}
	require.Equal(t, 3, f.rows(t))

	blobs, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	require.Len(t, blobs, 3)

	require.NoError(t, f.bridge.DeleteObject(ctx, first, true))
	assert.Zero(t, f.rows(t))

	for _, member := range members {
		_, err := f.bridge.GetContentStream(ctx, member)
		requireCode(t, ErrNotFound, err)
	}
	for _, id := range blobs {
		exists, err := f.blobs.ContentExists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)
	}

	children, err := f.bridge.GetChildren(ctx, folderID, ObjectOptions{}, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, children.Objects)
}

func TestDeleteLatestVersionRestoresPredecessor(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	first := f.put(t, ctx, "", "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, first)
	require.NoError(t, err)
	second, err := f.bridge.CheckIn(ctx, result.ID, CheckInRequest{})
	require.NoError(t, err)

	err = f.bridge.DeleteObject(ctx, first, false)
	requireCode(t, ErrConflict, err)

	require.NoError(t, f.bridge.DeleteObject(ctx, second, false))
	assert.True(t, f.get(t, ctx, first).Bool(PropIsLatestVersion))
	assert.Equal(t, "v1", f.read(t, ctx, first))
}

func TestDeleteCheckedOutDocument(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	err = f.bridge.DeleteObject(asUser("bob"), docID, false)
	requireCode(t, ErrConflict, err)

	// Deleting the working copy cancels the checkout.
	require.NoError(t, f.bridge.DeleteObject(ctx, result.ID, false))
	assert.False(t, f.get(t, ctx, docID).Bool(PropIsVersionSeriesCheckedOut))
	assert.Equal(t, 1, f.rows(t))
}

func TestOwnerDeletesCheckedOutDocument(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, docID)
	require.NoError(t, err)

	require.NoError(t, f.bridge.DeleteObject(ctx, docID, false))
	assert.Zero(t, f.rows(t))

	_, err = f.bridge.GetObject(ctx, result.ID, ObjectOptions{})
	requireCode(t, ErrNotFound, err)
	ids, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOwnerDeletesCheckedOutLatestVersion(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")
	first := f.put(t, ctx, "", "a.txt", "v1")

	result, err := f.bridge.CheckOut(ctx, first)
	require.NoError(t, err)
	second, err := f.bridge.CheckIn(ctx, result.ID, CheckInRequest{
		Content: NewContentStream(strings.NewReader("v2"), "text/plain", "", 2),
	})
	require.NoError(t, err)

	_, err = f.bridge.CheckOut(ctx, second)
	require.NoError(t, err)

	require.NoError(t, f.bridge.DeleteObject(ctx, second, false))
	assert.Equal(t, 1, f.rows(t))

	props := f.get(t, ctx, first)
	assert.True(t, props.Bool(PropIsLatestVersion))
	assert.False(t, props.Bool(PropIsVersionSeriesCheckedOut))
	assert.Equal(t, "v1", f.read(t, ctx, first))

	// The predecessor is published and unlocked.
	_, err = f.bridge.CheckOut(asUser("bob"), first)
	require.NoError(t, err)
}

func TestDeleteFolders(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	err := f.bridge.DeleteObject(ctx, DefaultRootFolderID, false)
	requireCode(t, ErrInvalidArgument, err)

	parentID := f.mkdir(t, ctx, "", "parent")
	childID := f.mkdir(t, ctx, parentID, "child")

	err = f.bridge.DeleteObject(ctx, parentID, false)
	requireCode(t, ErrConflict, err)

	require.NoError(t, f.bridge.DeleteObject(ctx, childID, false))
	require.NoError(t, f.bridge.DeleteObject(ctx, parentID, false))

	_, err = f.bridge.GetObject(ctx, parentID, ObjectOptions{})
	requireCode(t, ErrNotFound, err)

	err = f.bridge.DeleteObject(ctx, parentID, false)
	requireCode(t, ErrNotFound, err)
}

func TestDeleteUnlinksFromParent(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("alice")

	folderID := f.mkdir(t, ctx, "", "docs")
	docID := f.put(t, ctx, folderID, "a.txt", "data")

	stored, err := f.folders.FindByID(ctx, folderID)
	require.NoError(t, err)
	assert.Equal(t, []string{docID}, stored.(*model.Folder).ChildIDs())

	require.NoError(t, f.bridge.DeleteObject(ctx, docID, false))

	stored, err = f.folders.FindByID(ctx, folderID)
	require.NoError(t, err)
	assert.Empty(t, stored.(*model.Folder).ChildIDs())

	ids, err := f.blobs.ListAllContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteUnversionedDocument(t *testing.T) {
	f := newFixture(t, unversioned())
	ctx := asUser("alice")
	docID := f.put(t, ctx, "", "a.txt", "data")

	require.NoError(t, f.bridge.DeleteObject(ctx, docID, true))
	assert.Zero(t, f.rows(t))
}
