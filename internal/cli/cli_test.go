package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/tablekit/internal/db"
	"github.com/rpattn/tablekit/internal/domain"
)

const postsTable = `
name: posts
table: posts
per_page: 2
page_options: [2, 10]
columns:
  - field: title
    sortable: true
    searchable: true
  - field: status
    kind: badge
filters:
  - name: status
    kind: select
presets: true
`

func setupWorkspace(t *testing.T) string {
	t.Helper()
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tables"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables", "posts.yaml"), []byte(postsTable), 0o644))

	dbPath := filepath.Join(dir, "app.db")
	cfg := fmt.Sprintf(`
database:
  driver: sqlite
  sqlite_path: %s
tables:
  dir: %s
presets:
  store: file
  path: %s
export:
  directory: %s
`, dbPath, filepath.Join(dir, "tables"), filepath.Join(dir, "presets.json"), filepath.Join(dir, "exports"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644))

	conn, err := db.OpenSQLite(dbPath)
	require.NoError(t, err)
	_, err = conn.Exec(`
CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT NOT NULL, status TEXT NOT NULL);
INSERT INTO posts (id, title, status) VALUES (1, 'Alpha', 'draft'), (2, 'Beta', 'published'), (3, 'Gamma', 'draft');
`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderText(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := run(t, "render", "posts", "-c", dir, "--sort", "title", "--direction", "desc", "--page", "2")
	require.NoError(t, err)
	assert.Equal(t, "Title\tStatus\nAlpha\tdraft\npage 2 of 2 (3 rows)\n", out)
}

func TestRenderJSONWithFilterFlag(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := run(t, "render", "posts", "-c", dir, "-o", "json", "--filter", "status=draft")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, map[string]any{"status": "draft"}, payload["tableFilters"])
	assert.Len(t, payload["data"], 2)
}

func TestRenderRejectsBadInput(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := run(t, "render", "missing", "-c", dir)
	assert.ErrorContains(t, err, `unknown table "missing"`)

	_, err = run(t, "render", "posts", "-c", dir, "--filter", "status")
	assert.ErrorContains(t, err, "want name=value")

	_, err = run(t, "render", "posts", "-c", dir, "-o", "yaml")
	assert.ErrorContains(t, err, "invalid output")
}

func TestExportToStdout(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := run(t, "export", "posts", "-c", dir, "--stdout", "--search", "a", "--sort", "title")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Title", "Status"}, {"Alpha", "draft"}, {"Beta", "published"}, {"Gamma", "draft"}}, records)
}

func TestExportToFile(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := run(t, "export", "posts", "-c", dir, "-f", "xlsx", "-o", "json")
	require.NoError(t, err)
	var result struct {
		Rows int    `json:"rows"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, filepath.Join(dir, "exports"), filepath.Dir(result.Path))
	assert.FileExists(t, result.Path)
}

func TestPresetLifecycle(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := run(t, "presets", "list", "posts", "-c", dir)
	assert.ErrorContains(t, err, "--owner is required")

	out, err := run(t, "presets", "save", "posts", "Drafts", "-c", dir, "--owner", "u1", "--filters", `{"status":"draft"}`, "--default", "-o", "json")
	require.NoError(t, err)
	var saved domain.FilterPreset
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.True(t, saved.IsDefault)

	out, err = run(t, "presets", "list", "posts", "-c", dir, "--owner", "u1")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s\tDrafts (default)\n", saved.ID), out)

	out, err = run(t, "render", "posts", "-c", dir, "--owner", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 rows)", "the default preset applies on first render")

	out, err = run(t, "presets", "list", "posts", "-c", dir, "--owner", "u2")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "presets", "delete", "posts", saved.ID.String(), "-c", dir, "--owner", "u2")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	out, err = run(t, "presets", "delete", "posts", saved.ID.String(), "-c", dir, "--owner", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted preset")

	out, err = run(t, "presets", "list", "posts", "-c", dir, "--owner", "u1")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMigrateSQLite(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := run(t, "migrate", "-c", dir)
	require.NoError(t, err)
	assert.Equal(t, "schema version 1 (dirty=false)\n", out)

	out, err = run(t, "migrate", "down", "-c", dir)
	require.NoError(t, err)
	assert.Equal(t, "no migrations applied\n", out)

	_, err = run(t, "migrate", "sideways", "-c", dir)
	assert.Error(t, err)
}
