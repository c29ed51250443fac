package tabledef

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/pipeline"
	"github.com/rpattn/tablekit/internal/source/memory"
	"github.com/rpattn/tablekit/internal/source/sqlsource"
)

const postsYAML = `
name: posts
table: posts
primary_key: id
relations:
  user:
    kind: belongs_to
    table: users
    foreign_key: user_id
    relations:
      company:
        kind: belongs_to
        table: companies
        foreign_key: company_id
  comments:
    kind: has_many
    table: comments
    foreign_key: post_id
per_page: 2
page_options: [2, 10]
columns:
  - field: title
    sortable: true
    searchable: true
    limit: 8
  - field: user.name
    label: Author
    searchable: true
  - field: status
    kind: badge
    colors: {draft: gray, published: green}
  - field: views
    kind: editable
    rules: required|integer|min:0
    input_type: number
filters:
  - name: min_views
    column: views
    kind: select
    operator: ">="
    default: 5
  - name: company
    column: user.company.name
    kind: select
    global: true
    options:
      - {value: Acme, label: Acme}
group_by: status
collapsible: false
sub_rows:
  relation: comments
  lazy: false
column_toggle: true
always_visible: [title]
presets: true
live_update: 30s
`

const fixtureSQL = `
CREATE TABLE companies (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, company_id INTEGER REFERENCES companies(id));
CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT NOT NULL, status TEXT NOT NULL, views INTEGER, user_id INTEGER REFERENCES users(id));
CREATE TABLE comments (id INTEGER PRIMARY KEY, post_id INTEGER NOT NULL REFERENCES posts(id), body TEXT NOT NULL);

INSERT INTO companies (id, name) VALUES (1, 'Acme'), (2, 'Globex');
INSERT INTO users (id, name, company_id) VALUES (1, 'Ada', 1), (2, 'Bob', 2);
INSERT INTO posts (id, title, status, views, user_id) VALUES
	(1, 'Hello World', 'published', 10, 1),
	(2, 'Second post', 'draft', 3, 2),
	(3, 'third', 'draft', NULL, 2),
	(4, 'Orphan', 'published', 7, NULL);
INSERT INTO comments (id, post_id, body) VALUES (1, 1, 'first!'), (2, 1, 'nice');
`

func TestParseBuildsDefinition(t *testing.T) {
	doc, err := Parse([]byte(postsYAML))
	require.NoError(t, err)

	def, err := doc.Definition(memory.New(nil))
	require.NoError(t, err)

	assert.Equal(t, "posts", def.Name())
	assert.Equal(t, 2, def.PerPage())
	assert.Equal(t, []int{2, 10}, def.PageOptions())
	assert.Equal(t, 30*time.Second, def.LiveUpdateInterval())
	assert.True(t, def.PresetsEnabled())
	assert.True(t, def.ColumnToggleEnabled())
	assert.Equal(t, []string{"title", "user.name"}, def.SearchableFields())

	require.NotNil(t, def.Grouping())
	assert.Equal(t, "status", def.Grouping().Field)
	assert.False(t, def.Grouping().Collapsible)
	require.NotNil(t, def.SubRows())
	assert.False(t, def.SubRows().Lazy)

	author, ok := def.Column("user.name")
	require.True(t, ok)
	assert.Equal(t, "Author", author.Label)

	views, ok := def.Column("views")
	require.True(t, ok)
	require.NotNil(t, views.Editable)
	assert.Equal(t, "number", views.Editable.InputType)
	assert.Equal(t, "required|integer|min:0", views.Editable.Rules)

	require.Len(t, def.Filters(), 1)
	assert.Equal(t, domain.OpGreaterEqual, def.Filters()[0].Operator)
	require.Len(t, def.GlobalFilters(), 1)
	assert.Equal(t, "user.company.name", def.GlobalFilters()[0].Field())
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	_, err := Parse([]byte("name: posts\ntable: posts\ncolumns: [{field: title}]\nunknown: 1\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = Parse([]byte("columns: [{label: Title}]\nlive_update: soon\n"))
	require.Error(t, err)
	for _, want := range []string{"name is required", "table is required", "columns[0]: field is required", "live_update"} {
		assert.Contains(t, err.Error(), want)
	}

	doc, err := Parse([]byte("name: posts\ntable: posts\ncolumns: [{field: title, kind: sparkline}]\n"))
	require.NoError(t, err)
	_, err = doc.Definition(memory.New(nil))
	assert.ErrorContains(t, err, `unknown kind "sparkline"`)
}

func TestSchemaFromRelations(t *testing.T) {
	doc, err := Parse([]byte(postsYAML))
	require.NoError(t, err)

	schema, err := doc.Schema()
	require.NoError(t, err)
	assert.Equal(t, "posts", schema.Table)

	user := schema.Relations["user"]
	assert.Equal(t, sqlsource.BelongsTo, user.Kind)
	require.NotNil(t, user.Schema)
	assert.Equal(t, "companies", user.Schema.Relations["company"].Table)
	assert.Nil(t, schema.Relations["comments"].Schema)

	doc.Relations["user"] = RelationDoc{Kind: "many_to_many", Table: "users", ForeignKey: "user_id"}
	_, err = doc.Schema()
	assert.ErrorContains(t, err, "unknown relation kind")
}

func TestDefinitionRunsAgainstSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(fixtureSQL)
	require.NoError(t, err)

	doc, err := Parse([]byte(postsYAML))
	require.NoError(t, err)
	schema, err := doc.Schema()
	require.NoError(t, err)
	src, err := sqlsource.New(db, schema)
	require.NoError(t, err)
	def, err := doc.Definition(src)
	require.NoError(t, err)

	p := pipeline.New(pipeline.WithLogger(log.New(io.Discard, "", 0)))
	ctx := context.Background()

	state := domain.NewViewState(def).WithSort("title", domain.SortDirectionAsc)
	result, err := p.Run(ctx, def, state)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, result.Page.IDs(), "default min_views filter applies")
	assert.Empty(t, result.Skipped)

	state = state.WithoutFilter("min_views").WithSearch("bob")
	result, err = p.Run(ctx, def, state)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Page.Total)
	assert.Equal(t, []string{"2", "3"}, result.Page.IDs())

	state = domain.NewViewState(def).WithFilter("company", "Acme")
	result, err = p.Run(ctx, def, state)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, result.Page.IDs())
	comments := result.Page.Items[0].RelatedRecords("comments")
	assert.Len(t, comments, 2, "eager sub rows are loaded with the page")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yaml", "name: users\ntable: users\ncolumns: [{field: name}]\n")
	write("a.yml", postsYAML)
	write("notes.txt", "ignored")

	docs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "posts", docs[0].Name)
	assert.Equal(t, "users", docs[1].Name)

	defaults := docs[1].WithDefaults(25, []int{25, 50})
	assert.Equal(t, 25, defaults.PerPage)
	assert.Equal(t, []int{25, 50}, defaults.PageOptions)
	assert.Equal(t, 2, docs[0].WithDefaults(25, nil).PerPage)

	write("c.yaml", "name: users\ntable: people\ncolumns: [{field: name}]\n")
	_, err = LoadDir(dir)
	assert.ErrorContains(t, err, `table "users" defined in both`)
}
