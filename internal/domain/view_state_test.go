package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortByToggles(t *testing.T) {
	state := ViewState{Page: 3}

	state = state.SortBy("name")
	assert.Equal(t, "name", state.SortField)
	assert.Equal(t, SortDirectionAsc, state.SortDirection)
	assert.Equal(t, 1, state.Page)

	state = state.SortBy("name")
	assert.Equal(t, SortDirectionDesc, state.SortDirection)

	state = state.SortBy("name")
	assert.Equal(t, SortDirectionAsc, state.SortDirection)

	state = state.WithPage(4).SortBy("name").SortBy("email")
	assert.Equal(t, "email", state.SortField)
	assert.Equal(t, SortDirectionAsc, state.SortDirection)
	assert.Equal(t, 1, state.Page)
}

func TestViewStateResetsPage(t *testing.T) {
	state := ViewState{Page: 5, PerPage: 10}

	assert.Equal(t, 1, state.WithSearch("abc").Page)
	assert.Equal(t, 1, state.WithFilter("status", "active").Page)
	assert.Equal(t, 1, state.WithPerPage(25).Page)
	assert.Equal(t, 5, state.ToggleGroup("A").Page)
}

func TestViewStateIsImmutable(t *testing.T) {
	original := ViewState{Filters: map[string]any{"status": "active"}, Selected: []string{"1"}}

	next := original.WithFilter("role", "admin").WithSelected("2", "3")

	assert.Equal(t, map[string]any{"status": "active"}, original.Filters)
	assert.Equal(t, []string{"1"}, original.Selected)
	assert.Equal(t, map[string]any{"status": "active", "role": "admin"}, next.Filters)
}

func TestWithFilterEmptyRemoves(t *testing.T) {
	state := ViewState{}.WithFilter("status", "active").WithFilter("status", "")
	assert.NotContains(t, state.Filters, "status")
}

func TestToggles(t *testing.T) {
	state := ViewState{}.ToggleGroup("A").ToggleGroup("B").ToggleGroup("A")
	assert.Equal(t, []string{"B"}, state.ExpandedGroups)

	state = state.ToggleRow("7")
	assert.True(t, state.IsRowExpanded("7"))
	assert.False(t, state.ToggleRow("7").IsRowExpanded("7"))

	state = state.ToggleColumn("email").ToggleColumn("name")
	assert.Equal(t, []string{"email", "name"}, state.HiddenColumns)
	assert.Empty(t, state.ShowAllColumns().HiddenColumns)
}

func TestSelectAllAndSync(t *testing.T) {
	page := []string{"1", "2", "3"}

	state := ViewState{}.SelectAll(page)
	assert.True(t, state.AllSelected)
	assert.Equal(t, page, state.Selected)

	state = state.WithSelected("1", "2").SyncSelectAll(page)
	assert.False(t, state.AllSelected)

	state = state.WithSelected("3", "2", "1", "9").SyncSelectAll(page)
	assert.True(t, state.AllSelected)

	state = state.ClearSelection()
	assert.Empty(t, state.Selected)
	assert.False(t, state.AllSelected)

	assert.False(t, ViewState{}.SyncSelectAll(nil).AllSelected)
}

func TestClearFilters(t *testing.T) {
	id := uuid.New()
	state := ViewState{Page: 4}.
		WithActivePreset(id, map[string]any{"status": "active"}).
		WithSearch("bob").
		WithPage(3)
	require.True(t, state.HasActivePreset())

	cleared := state.ClearFilters()
	assert.Empty(t, cleared.Filters)
	assert.Empty(t, cleared.Search)
	assert.False(t, cleared.HasActivePreset())
	assert.Equal(t, 1, cleared.Page)
}

func TestNewViewStateSeedsDefaults(t *testing.T) {
	def, err := NewTable(&stubSource{}).
		PerPage(25).
		Filters(NewSelectFilter("status").WithDefault("active"), NewTextFilter("name")).
		Build()
	require.NoError(t, err)

	state := NewViewState(def)
	assert.Equal(t, 25, state.PerPage)
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, map[string]any{"status": "active"}, state.Filters)
}
