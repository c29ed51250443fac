package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyFilter(t *testing.T, f Filter, value any) []Condition {
	t.Helper()
	q, err := f.Apply(recordingQuery{}, value)
	require.NoError(t, err)
	return q.(recordingQuery).conds
}

func TestFilterEmptyValuesAreNoOps(t *testing.T) {
	for _, value := range []any{nil, "", "   ", []string{}, map[string]any{}, DateRange{}, map[string]any{"from": "", "to": ""}} {
		assert.Empty(t, applyFilter(t, NewTextFilter("name"), value), "%#v", value)
	}
}

func TestTextFilterTargetsColumn(t *testing.T) {
	f := NewTextFilter("author", "user.name")
	assert.Equal(t, "user.name", f.Field())
	assert.Equal(t, "Author", f.Label)

	got := applyFilter(t, f, " ada ")
	want := []Condition{Exists{Relation: "user", Where: Compare{Field: "name", Op: OpLike, Value: "ada"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("conditions mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectFilter(t *testing.T) {
	got := applyFilter(t, NewSelectFilter("status"), "active")
	assert.Equal(t, []Condition{Compare{Field: "status", Op: OpEqual, Value: "active"}}, got)

	got = applyFilter(t, NewSelectFilter("status"), []string{"active", "draft"})
	assert.Equal(t, []Condition{In{Field: "status", Values: []any{"active", "draft"}}}, got)
}

func TestDateFilter(t *testing.T) {
	got := applyFilter(t, NewDateFilter("created_at"), "2024-05-01")
	assert.Equal(t, []Condition{DateCompare{Field: "created_at", Op: OpEqual, Value: "2024-05-01"}}, got)

	got = applyFilter(t, NewDateFilter("created_at"), map[string]any{"from": "2024-05-01", "to": "2024-05-31"})
	want := []Condition{AllOf{
		DateCompare{Field: "created_at", Op: OpGreaterEqual, Value: "2024-05-01"},
		DateCompare{Field: "created_at", Op: OpLessEqual, Value: "2024-05-31"},
	}}
	assert.Equal(t, want, got)

	got = applyFilter(t, NewDateFilter("created_at"), DateRange{To: "2024-05-31"})
	assert.Equal(t, []Condition{DateCompare{Field: "created_at", Op: OpLessEqual, Value: "2024-05-31"}}, got)
}

func TestDateFilterRejectsBadDates(t *testing.T) {
	_, err := NewDateFilter("created_at").Apply(recordingQuery{}, "yesterday")
	require.Error(t, err)
}

func TestFilterRejectsMalformedColumn(t *testing.T) {
	_, err := NewTextFilter("bad", "user..name").Apply(recordingQuery{}, "x")
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("<>")
	require.NoError(t, err)
	assert.Equal(t, OpNotEqual, op)

	op, err = ParseOperator("LIKE")
	require.NoError(t, err)
	assert.Equal(t, OpLike, op)

	_, err = ParseOperator("between")
	require.Error(t, err)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%ada%", LikePattern("ada"))
	assert.Equal(t, `%50\% off\_sale%`, LikePattern("50% off_sale"))
	assert.Equal(t, `%a\\b%`, LikePattern(`a\b`))
}
