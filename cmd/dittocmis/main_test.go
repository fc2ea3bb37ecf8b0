package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/dittocmis/pkg/cmis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig writes a sqlite + filesystem configuration into a temporary
// directory and returns its path.
func newTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: "ERROR"

metadata:
  type: "sqlite"
  sqlite:
    path: "` + filepath.ToSlash(filepath.Join(dir, "meta.db")) + `"

content:
  type: "filesystem"
  filesystem:
    path: "` + filepath.ToSlash(filepath.Join(dir, "content")) + `"

repository:
  id: "cli-test"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs one command line against configPath and returns its output.
func execute(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", configPath}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, configPath, stdin string, args ...string) string {
	t.Helper()

	out, err := execute(t, configPath, stdin, args...)
	require.NoError(t, err, "dittocmis %s", strings.Join(args, " "))
	return out
}

func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestInfo(t *testing.T) {
	cfg := newTestConfig(t)

	out := mustExecute(t, cfg, "", "info")
	assert.Contains(t, out, "cli-test")
	assert.Contains(t, out, "@root@")
	assert.Contains(t, out, "metadata=sqlite content=filesystem")
	assert.Contains(t, out, "Health:")

	var info cmis.RepositoryInfo
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "info"), &info)
	assert.Equal(t, "cli-test", info.ID)
	assert.True(t, info.Capabilities.Versioning)
}

func TestTypes(t *testing.T) {
	cfg := newTestConfig(t)

	out := mustExecute(t, cfg, "", "types")
	assert.Contains(t, out, cmis.BaseTypeDocument)
	assert.Contains(t, out, cmis.BaseTypeFolder)

	out = mustExecute(t, cfg, "", "type", cmis.BaseTypeDocument)
	assert.Contains(t, out, cmis.PropName)
	assert.Contains(t, out, "readwrite")

	var def map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "type", cmis.BaseTypeFolder), &def)
	assert.Equal(t, cmis.BaseTypeFolder, def["id"])

	_, err := execute(t, cfg, "", "type", "cmis:missing")
	assert.True(t, cmis.IsNotFound(err))
}

func TestDocumentLifecycle(t *testing.T) {
	cfg := newTestConfig(t)

	folderID := strings.TrimSpace(mustExecute(t, cfg, "", "mkdir", "/", "reports"))
	require.NotEmpty(t, folderID)

	docID := strings.TrimSpace(mustExecute(t, cfg, "hello world", "put", "/reports", "-", "--name", "notes.txt", "--mime-type", "text/plain"))
	require.NotEmpty(t, docID)

	out := mustExecute(t, cfg, "", "ls", "/reports")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, docID)

	assert.Equal(t, "hello world", mustExecute(t, cfg, "", "get", "/reports/notes.txt"))

	mustExecute(t, cfg, "", "set", docID, "cmis:description=quarterly")

	var props map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "stat", docID), &props)
	assert.Equal(t, "quarterly", props[cmis.PropDescription])
	assert.Equal(t, "notes.txt", props[cmis.PropName])
	assert.Equal(t, "/reports/notes.txt", mustPath(t, cfg, docID))

	out = mustExecute(t, cfg, "", "parents", docID)
	assert.Contains(t, out, "/reports")
	assert.Contains(t, out, folderID)

	mustExecute(t, cfg, "", "rm", docID)
	_, err := execute(t, cfg, "", "stat", docID)
	assert.True(t, cmis.IsNotFound(err))
}

// mustPath returns the path of the folder containing objectID joined with
// the object's name.
func mustPath(t *testing.T, cfg, objectID string) string {
	t.Helper()

	var parents []map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "parents", objectID), &parents)
	require.Len(t, parents, 1)

	parentPath, _ := parents[0][cmis.PropPath].(string)
	segment, _ := parents[0]["relativePathSegment"].(string)
	return strings.TrimSuffix(parentPath, "/") + "/" + segment
}

func TestContentCommands(t *testing.T) {
	cfg := newTestConfig(t)

	source := filepath.Join(t.TempDir(), "draft.txt")
	require.NoError(t, os.WriteFile(source, []byte("first draft"), 0644))

	docID := strings.TrimSpace(mustExecute(t, cfg, "", "put", "/", source))
	out := mustExecute(t, cfg, "", "stat", docID, "--filter", "cmis:name,cmis:contentStreamLength")
	assert.Contains(t, out, "draft.txt")
	assert.Contains(t, out, "11")

	_, err := execute(t, cfg, "second", "set-content", docID, "-", "--no-overwrite")
	assert.True(t, cmis.IsConflict(err))

	mustExecute(t, cfg, "second", "set-content", docID, "-", "--mime-type", "text/plain")

	target := filepath.Join(t.TempDir(), "out.txt")
	mustExecute(t, cfg, "", "get", docID, "-o", target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	mustExecute(t, cfg, "", "rm-content", docID)
	_, err = execute(t, cfg, "", "get", docID)
	assert.True(t, cmis.IsNotFound(err))
}

func TestVersioningCommands(t *testing.T) {
	cfg := newTestConfig(t)

	docID := strings.TrimSpace(mustExecute(t, cfg, "v1", "put", "/", "-", "--name", "plan.txt"))

	var checkout map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "checkout", docID), &checkout)
	pwcID, _ := checkout["id"].(string)
	require.NotEmpty(t, pwcID)
	assert.NotEqual(t, docID, pwcID)

	_, err := execute(t, cfg, "", "checkout", docID)
	assert.Error(t, err)

	newID := strings.TrimSpace(mustExecute(t, cfg, "v2", "checkin", pwcID, "--major", "-m", "final", "--file", "-"))
	require.NotEmpty(t, newID)

	assert.Equal(t, "v2", mustExecute(t, cfg, "", "get", newID))
	assert.Equal(t, "v1", mustExecute(t, cfg, "", "get", docID))

	var versions []map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "versions", newID), &versions)
	require.Len(t, versions, 2)
	assert.Equal(t, newID, versions[0][cmis.PropObjectID])
	assert.Equal(t, "final", versions[0][cmis.PropCheckinComment])
	assert.Equal(t, true, versions[0][cmis.PropIsLatestVersion])

	pwcID = strings.TrimSpace(mustExecute(t, cfg, "", "checkout", newID))
	mustExecute(t, cfg, "", "cancel-checkout", pwcID)
	_, err = execute(t, cfg, "", "stat", pwcID)
	assert.True(t, cmis.IsNotFound(err))

	mustExecute(t, cfg, "", "rm", newID, "--all-versions")
	_, err = execute(t, cfg, "", "stat", docID)
	assert.True(t, cmis.IsNotFound(err))
}

func TestReadOnlyPrincipal(t *testing.T) {
	cfg := newTestConfig(t)

	docID := strings.TrimSpace(mustExecute(t, cfg, "", "put", "/", "--name", "empty.txt"))

	var props map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "stat", docID, "--actions"), &props)
	assert.Contains(t, props["allowableActions"], string(cmis.ActionUpdateProperties))

	decodeJSON(t, mustExecute(t, cfg, "", "--json", "--read-only", "stat", docID, "--actions"), &props)
	assert.Contains(t, props["allowableActions"], string(cmis.ActionGetProperties))
	assert.NotContains(t, props["allowableActions"], string(cmis.ActionUpdateProperties))
}

func TestListPaging(t *testing.T) {
	cfg := newTestConfig(t)

	for _, name := range []string{"a", "b", "c"} {
		mustExecute(t, cfg, "", "mkdir", "/", name)
	}

	var page map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "ls", "--max-items", "2"), &page)
	assert.Len(t, page["objects"], 2)
	assert.Equal(t, true, page["hasMoreItems"])
	assert.Equal(t, float64(3), page["numItems"])

	decodeJSON(t, mustExecute(t, cfg, "", "--json", "ls", "--skip-count", "2"), &page)
	assert.Len(t, page["objects"], 1)
	assert.Equal(t, false, page["hasMoreItems"])

	_, err := execute(t, cfg, "", "ls", "--skip-count", "-1")
	assert.True(t, cmis.IsInvalidArgument(err))
}

func TestArgumentErrors(t *testing.T) {
	cfg := newTestConfig(t)

	_, err := execute(t, cfg, "", "set", "/", "no-equals-sign")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid property assignment")

	_, err = execute(t, cfg, "", "put", "/", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")

	_, err = execute(t, cfg, "", "stat", "/missing")
	assert.True(t, cmis.IsNotFound(err))

	_, err = execute(t, cfg, "", "--log-level", "loud", "info")
	assert.Error(t, err)
}

func TestGC(t *testing.T) {
	cfg := newTestConfig(t)

	docID := strings.TrimSpace(mustExecute(t, cfg, "keep me", "put", "/", "-", "--name", "kept.txt"))
	require.NotEmpty(t, docID)

	var stats map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "gc", "--dry-run"), &stats)
	assert.Equal(t, float64(1), stats["referenced"])
	assert.Equal(t, float64(1), stats["existing"])
	assert.Equal(t, float64(0), stats["deleted"])
	assert.Equal(t, true, stats["dryRun"])

	out := mustExecute(t, cfg, "", "gc")
	assert.Contains(t, out, "orphaned=0")
}

func TestGCKeepsFreshContent(t *testing.T) {
	cfg := newTestConfig(t)
	mustExecute(t, cfg, "", "info")

	// A blob whose document has not been saved yet.
	stray := filepath.Join(filepath.Dir(cfg), "content", "st", "stray-blob")
	require.NoError(t, os.MkdirAll(filepath.Dir(stray), 0755))
	require.NoError(t, os.WriteFile(stray, []byte("in flight"), 0644))

	var stats map[string]any
	decodeJSON(t, mustExecute(t, cfg, "", "--json", "gc"), &stats)
	assert.Equal(t, float64(1), stats["skipped"])
	assert.Equal(t, float64(0), stats["deleted"])
	assert.FileExists(t, stray)

	decodeJSON(t, mustExecute(t, cfg, "", "--json", "gc", "--min-age", "0s"), &stats)
	assert.Equal(t, float64(0), stats["skipped"])
	assert.Equal(t, float64(1), stats["deleted"])
	assert.NoFileExists(t, stray)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	path := filepath.Join(dir, "custom", "config.yaml")
	out := mustExecute(t, path, "", "init")
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# DittoCMIS Configuration File")

	_, err = execute(t, path, "", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	mustExecute(t, path, "", "init", "--force")

	out = mustExecute(t, path, "", "info")
	assert.Contains(t, out, "DittoCMIS")
}
