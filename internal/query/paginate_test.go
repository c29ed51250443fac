package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceQuery struct {
	records  []domain.Record
	countErr error
	fetches  int
}

func (q *sliceQuery) With(...string) (domain.Query, error)                       { return q, nil }
func (q *sliceQuery) Where(domain.Condition) (domain.Query, error)               { return q, nil }
func (q *sliceQuery) OrderBy(string, domain.SortDirection) (domain.Query, error) { return q, nil }

func (q *sliceQuery) Count(context.Context) (int, error) {
	return len(q.records), q.countErr
}

func (q *sliceQuery) Fetch(_ context.Context, limit, offset int) ([]domain.Record, error) {
	q.fetches++
	return Slice(q.records, limit, offset), nil
}

func records(n int) []domain.Record {
	out := make([]domain.Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.NewRecord(fmt.Sprint(i), nil))
	}
	return out
}

func TestPaginate(t *testing.T) {
	page, err := Paginate(context.Background(), &sliceQuery{records: records(23)}, 10, 2)
	require.NoError(t, err)

	assert.Equal(t, 23, page.Total)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 11, page.From)
	assert.Equal(t, 20, page.To)
	assert.Equal(t, "11", page.Items[0].ID)
	assert.True(t, page.HasMorePages())
}

func TestPaginateSelfCorrectsBeyondLastPage(t *testing.T) {
	page, err := Paginate(context.Background(), &sliceQuery{records: records(3)}, 10, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.LastPage)
	assert.Equal(t, []string{"1", "2", "3"}, page.IDs())
}

func TestPaginateEmpty(t *testing.T) {
	q := &sliceQuery{}
	page, err := Paginate(context.Background(), q, 10, 4)
	require.NoError(t, err)

	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Empty(t, page.Items)
	assert.Zero(t, q.fetches)
	assert.Zero(t, page.From)
}

func TestPaginateCountError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Paginate(context.Background(), &sliceQuery{countErr: boom}, 10, 1)
	assert.ErrorIs(t, err, boom)
}

func TestSlice(t *testing.T) {
	all := records(5)
	assert.Len(t, Slice(all, 2, 4), 1)
	assert.Empty(t, Slice(all, 2, 5))
	assert.Len(t, Slice(all, 0, 1), 4)
}
