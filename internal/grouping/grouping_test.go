package grouping

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/tablekit/internal/domain"
)

func rows(statuses ...string) []domain.Record {
	out := make([]domain.Record, 0, len(statuses))
	for i, status := range statuses {
		out = append(out, domain.NewRecord(fmt.Sprint(i+1), map[string]any{"status": status}))
	}
	return out
}

func TestNoGroupingIsSingleSyntheticGroup(t *testing.T) {
	items := rows("a", "b")
	groups := Partition(items, nil, []string{"a"})

	require.Len(t, groups, 1)
	assert.Nil(t, groups[0].Key)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, items, groups[0].Items)
	assert.False(t, groups[0].Collapsed)
}

func TestGroupFirstAppearanceOrderAndLabels(t *testing.T) {
	spec := &domain.GroupSpec{Field: "status", Collapsible: true}
	groups := Partition(rows("B", "A", "B", "C"), spec, []string{"A", "stale"})

	got := make([]string, 0, len(groups))
	for _, g := range groups {
		got = append(got, fmt.Sprintf("%s|%d|%t", g.Label, g.Count, g.Collapsed))
	}
	want := []string{"B (2)|2|true", "A (1)|1|false", "C (1)|1|true"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupingOperatesOnPaginatedSlice(t *testing.T) {
	// Ten rows sorted by group, A x6 then B x4, page size 5: the first page
	// holds only A rows, so only group A exists with count 5.
	all := rows("A", "A", "A", "A", "A", "A", "B", "B", "B", "B")
	firstPage := all[:5]

	groups := Partition(firstPage, &domain.GroupSpec{Field: "status"}, nil)
	require.Len(t, groups, 1)
	assert.Equal(t, "A", groups[0].Key)
	assert.Equal(t, 5, groups[0].Count)
	assert.Equal(t, "A (5)", groups[0].Label)
}

func TestKeyFuncAndHeader(t *testing.T) {
	spec := &domain.GroupSpec{
		KeyFunc: func(r domain.Record) any {
			return strings.ToLower(r.Attributes["status"].(string))
		},
		Header: func(key any, items []domain.Record) string {
			return fmt.Sprintf("Status %v: %d rows", key, len(items))
		},
	}
	groups := Partition(rows("X", "x", "Y"), spec, []string{"x"})

	require.Len(t, groups, 2)
	assert.Equal(t, "Status x: 2 rows", groups[0].Label)
	assert.False(t, groups[0].Collapsed)
	assert.True(t, groups[1].Collapsed)
}

func TestNilKeysGroupTogether(t *testing.T) {
	items := []domain.Record{
		domain.NewRecord("1", map[string]any{"status": nil}),
		domain.NewRecord("2", nil),
	}
	groups := Partition(items, &domain.GroupSpec{Field: "status"}, nil)
	require.Len(t, groups, 1)
	assert.Nil(t, groups[0].Key)
	assert.Equal(t, " (2)", groups[0].Label)
}
