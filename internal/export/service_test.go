package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/source/memory"
	"github.com/rpattn/tablekit/internal/table"
)

func postsDefinition(t *testing.T) domain.Definition {
	t.Helper()
	records := make([]domain.Record, 0, 5)
	for i := 1; i <= 5; i++ {
		status := "published"
		if i%2 == 1 {
			status = "draft"
		}
		records = append(records, domain.NewRecord(fmt.Sprint(i), map[string]any{
			"title":  fmt.Sprintf("Post %d", i),
			"status": status,
			"views":  i * 10,
		}))
	}
	def, err := domain.NewTable(memory.New(records)).
		Name("Blog Posts").
		Columns(
			domain.TextColumn("title").WithLabel("Title").AsSortable().AsSearchable(),
			domain.BadgeColumn("status").WithLabel("Status"),
			domain.TextColumn("views").WithLabel("Views"),
		).
		Filters(domain.NewSelectFilter("status")).
		ColumnToggle(true).
		PerPage(2).
		Build()
	require.NoError(t, err)
	return def
}

func quietService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return NewService(opts...)
}

func TestWriteCSVWalksEveryPage(t *testing.T) {
	def := postsDefinition(t)
	service := quietService(t, WithPageSize(2))
	state := domain.NewViewState(def).
		WithFilter("status", "draft").
		WithSort("title", domain.SortDirectionDesc)

	var buf bytes.Buffer
	result, err := service.Write(context.Background(), &buf, def, state, FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "Title,Status,Views\nPost 5,draft,50\nPost 3,draft,30\nPost 1,draft,10\n", buf.String())
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, int64(buf.Len()), result.Bytes)
	assert.Equal(t, "text/csv", result.MimeType)
}

func TestWriteSkipsHiddenColumns(t *testing.T) {
	def := postsDefinition(t)
	service := quietService(t)
	state := domain.NewViewState(def).ToggleColumn("views").WithSearch("post 2")

	var buf bytes.Buffer
	_, err := service.Write(context.Background(), &buf, def, state, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Title,Status\nPost 2,published\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	def := postsDefinition(t)
	service := quietService(t, WithPageSize(3))

	var buf bytes.Buffer
	result, err := service.Write(context.Background(), &buf, def, domain.NewViewState(def), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Rows)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Title", "Status", "Views"}, rows[0])
	assert.Equal(t, []string{"Post 1", "draft", "10"}, rows[1])
}

func TestExportPromotesFile(t *testing.T) {
	def := postsDefinition(t)
	dir := t.TempDir()
	service := quietService(t, WithDirectory(dir))

	result, err := service.Export(context.Background(), def, domain.NewViewState(def), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(result.Path))
	assert.Regexp(t, `^blog-posts-.*\.csv$`, filepath.Base(result.Path))

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), result.Bytes)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is renamed, not copied")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSanitizeFileComponent(t *testing.T) {
	assert.Equal(t, "blog-posts", sanitizeFileComponent(" Blog Posts "))
	assert.Equal(t, "export", sanitizeFileComponent("***"))
	assert.Equal(t, "export", sanitizeFileComponent(""))
}

func TestHTTPHandlerStreamsExport(t *testing.T) {
	def := postsDefinition(t)
	registry := table.NewRegistry()
	require.NoError(t, registry.Register(table.New(def, table.WithLogger(log.New(io.Discard, "", 0)))))

	mux := http.NewServeMux()
	mux.Handle("GET /tables/{name}/export", NewHTTPHandler(quietService(t), registry))

	query := url.Values{}
	query.Set("filters", `{"status":"published"}`)
	query.Set("sort", "title")
	query.Set("direction", "desc")
	req := httptest.NewRequest(http.MethodGet, "/tables/"+url.PathEscape("Blog Posts")+"/export?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="blog-posts.csv"`)
	assert.Equal(t, "Title,Status,Views\nPost 4,published,40\nPost 2,published,20\n", rec.Body.String())
}

func TestHTTPHandlerErrors(t *testing.T) {
	registry := table.NewRegistry()
	require.NoError(t, registry.Register(table.New(postsDefinition(t), table.WithLogger(log.New(io.Discard, "", 0)))))
	mux := http.NewServeMux()
	mux.Handle("GET /tables/{name}/export", NewHTTPHandler(quietService(t), registry))

	cases := map[string]int{
		"/tables/missing/export":                  http.StatusNotFound,
		"/tables/Blog%20Posts/export?format=pdf":  http.StatusBadRequest,
		"/tables/Blog%20Posts/export?filters=%7B": http.StatusBadRequest,
	}
	for target, want := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, want, rec.Code, target)
	}
}
