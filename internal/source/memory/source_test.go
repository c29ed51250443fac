package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/tablekit/internal/domain"
)

func fixture() *Source {
	acme := domain.NewRecord("c1", map[string]any{"name": "Acme"})
	globex := domain.NewRecord("c2", map[string]any{"name": "Globex"})
	ada := domain.NewRecord("u1", map[string]any{"name": "Ada"}).WithRelated("company", domain.One(&acme))
	bob := domain.NewRecord("u2", map[string]any{"name": "Bob"}).WithRelated("company", domain.One(&globex))

	posts := []domain.Record{
		domain.NewRecord("1", map[string]any{"title": "Hello Wörld", "views": 10, "created_at": time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}).
			WithRelated("user", domain.One(&ada)).
			WithRelated("tags", domain.Many(domain.NewRecord("t1", map[string]any{"label": "go"}))),
		domain.NewRecord("2", map[string]any{"title": "Second", "views": 3, "created_at": "2024-05-20 12:00:00"}).
			WithRelated("user", domain.One(&bob)).
			WithRelated("tags", domain.Many()),
		domain.NewRecord("3", map[string]any{"title": "third", "views": nil, "created_at": "2024-06-02"}).
			WithRelated("user", domain.One(nil)).
			WithRelated("tags", domain.Many(domain.NewRecord("t2", map[string]any{"label": "sql"}))),
	}
	return New(posts, WithRelations(map[string]bool{"user": false, "user.company": false, "tags": true}))
}

func ids(t *testing.T, q domain.Query) []string {
	t.Helper()
	records, err := q.Fetch(context.Background(), 0, 0)
	require.NoError(t, err)
	return domain.RecordIDs(records)
}

func TestWhereCompareAndLike(t *testing.T) {
	src := fixture()

	q, err := src.NewQuery().Where(domain.Compare{Field: "title", Op: domain.OpLike, Value: "WÖRLD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(t, q))

	q, err = src.NewQuery().Where(domain.Compare{Field: "views", Op: domain.OpGreaterEqual, Value: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(t, q))

	q, err = src.NewQuery().Where(domain.In{Field: "id", Values: []any{"3", "1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(t, q))
}

func TestWhereExistsDoesNotMultiplyRows(t *testing.T) {
	src := fixture()

	cond, err := domain.QualifyCompare("user.company.name", domain.OpLike, "glob")
	require.NoError(t, err)
	q, err := src.NewQuery().Where(cond)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(t, q))

	q, err = src.NewQuery().Where(domain.Exists{Relation: "tags"})
	require.NoError(t, err)
	count, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWhereUnknownRelation(t *testing.T) {
	_, err := fixture().NewQuery().Where(domain.Exists{Relation: "author", Where: domain.Compare{Field: "name", Op: domain.OpEqual, Value: "x"}})
	assert.True(t, errors.Is(err, domain.ErrUnknownRelationship))

	_, err = fixture().NewQuery().With("user.missing")
	assert.ErrorIs(t, err, domain.ErrUnknownRelationship)
}

func TestDateCompare(t *testing.T) {
	src := fixture()

	q, err := src.NewQuery().Where(domain.AllOf{
		domain.DateCompare{Field: "created_at", Op: domain.OpGreaterEqual, Value: "2024-05-01"},
		domain.DateCompare{Field: "created_at", Op: domain.OpLessEqual, Value: "2024-05-31"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(t, q))
}

func TestOrderByNilLastAndRelational(t *testing.T) {
	src := fixture()

	q, err := src.NewQuery().OrderBy("views", domain.SortDirectionAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "3"}, ids(t, q))

	q, err = src.NewQuery().OrderBy("views", domain.SortDirectionDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(t, q))

	q, err = src.NewQuery().OrderBy("user.name", domain.SortDirectionDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "3"}, ids(t, q))

	_, err = src.NewQuery().OrderBy("tags.label", domain.SortDirectionAsc)
	assert.ErrorContains(t, err, "to-many")
}

func TestQueryIsImmutable(t *testing.T) {
	src := fixture()
	base := src.NewQuery()
	_, err := base.Where(domain.Compare{Field: "views", Op: domain.OpEqual, Value: 10})
	require.NoError(t, err)
	assert.Len(t, ids(t, base), 3)
}

func TestFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	src := fixture()

	_, err := src.Find(ctx, "404")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	before, err := src.Find(ctx, "2")
	require.NoError(t, err)

	require.NoError(t, src.Update(ctx, "2", "title", "Renamed"))
	after, err := src.Find(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", after.Attributes["title"])
	assert.Equal(t, "Second", before.Attributes["title"])
	assert.Equal(t, "Bob", after.Value("user.name"))

	assert.ErrorIs(t, src.Update(ctx, "2", "user.name", "x"), domain.ErrInvalidField)
	assert.ErrorIs(t, src.Update(ctx, "404", "title", "x"), domain.ErrRecordNotFound)

	many, err := src.FindMany(ctx, []string{"3", "404", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, domain.RecordIDs(many))
}

func TestLikeTreatsWildcardsLiterally(t *testing.T) {
	src := New([]domain.Record{
		domain.NewRecord("1", map[string]any{"title": "50% off"}),
		domain.NewRecord("2", map[string]any{"title": "snake_case"}),
	})
	for term, want := range map[string][]string{"_": {"2"}, "%": {"1"}, `\`: {}} {
		q, err := src.NewQuery().Where(domain.Compare{Field: "title", Op: domain.OpLike, Value: term})
		require.NoError(t, err)
		assert.Equal(t, want, ids(t, q), "term %q", term)
	}
}
