package domain

import (
	"slices"

	"github.com/google/uuid"
)

// ViewState is the caller owned, per-user state of a rendered table. It is a
// value: every With method returns a modified copy.
type ViewState struct {
	Filters        map[string]any `json:"filters"`
	Search         string         `json:"search"`
	SortField      string         `json:"sort_field"`
	SortDirection  SortDirection  `json:"sort_direction"`
	Page           int            `json:"page"`
	PerPage        int            `json:"per_page"`
	Selected       []string       `json:"selected"`
	AllSelected    bool           `json:"select_all"`
	ExpandedGroups []string       `json:"expanded_groups"`
	ExpandedRows   []string       `json:"expanded_rows"`
	HiddenColumns  []string       `json:"hidden_columns"`
	ActivePresetID uuid.UUID      `json:"active_preset_id"`
}

// NewViewState seeds a state from a definition: first page, default page
// size and the filters' default values.
func NewViewState(def Definition) ViewState {
	filters := make(map[string]any)
	for _, f := range def.AllFilters() {
		if !IsEmptyValue(f.Default) {
			filters[f.Name] = f.Default
		}
	}
	return ViewState{
		Filters:       filters,
		SortDirection: SortDirectionAsc,
		Page:          1,
		PerPage:       def.PerPage(),
	}
}

func (s ViewState) clone() ViewState {
	out := s
	out.Filters = copyProperties(s.Filters)
	out.Selected = slices.Clone(s.Selected)
	out.ExpandedGroups = slices.Clone(s.ExpandedGroups)
	out.ExpandedRows = slices.Clone(s.ExpandedRows)
	out.HiddenColumns = slices.Clone(s.HiddenColumns)
	return out
}

// CurrentPage returns the requested page, at least 1.
func (s ViewState) CurrentPage() int {
	if s.Page < 1 {
		return 1
	}
	return s.Page
}

// FilterValue returns the active value of a filter.
func (s ViewState) FilterValue(name string) any {
	return s.Filters[name]
}

// WithSearch sets the search text and resets the page.
func (s ViewState) WithSearch(search string) ViewState {
	out := s.clone()
	out.Search = search
	out.Page = 1
	return out
}

// WithFilter sets one filter value and resets the page. An empty value
// removes the filter.
func (s ViewState) WithFilter(name string, value any) ViewState {
	out := s.clone()
	if IsEmptyValue(value) {
		delete(out.Filters, name)
	} else {
		out.Filters[name] = value
	}
	out.Page = 1
	return out
}

// WithFilters replaces all filter values and resets the page.
func (s ViewState) WithFilters(filters map[string]any) ViewState {
	out := s.clone()
	out.Filters = copyProperties(filters)
	out.Page = 1
	return out
}

// WithoutFilter removes one filter value and resets the page.
func (s ViewState) WithoutFilter(name string) ViewState {
	return s.WithFilter(name, nil)
}

// SortBy sorts by field. Sorting by the current field flips the direction;
// a new field starts ascending. The page is reset.
func (s ViewState) SortBy(field string) ViewState {
	out := s.clone()
	if out.SortField == field {
		out.SortDirection = out.SortDirection.Opposite()
	} else {
		out.SortField = field
		out.SortDirection = SortDirectionAsc
	}
	out.Page = 1
	return out
}

// WithSort sets field and direction explicitly.
func (s ViewState) WithSort(field string, dir SortDirection) ViewState {
	out := s.clone()
	out.SortField = field
	out.SortDirection = dir
	out.Page = 1
	return out
}

func (s ViewState) WithPage(page int) ViewState {
	out := s.clone()
	if page < 1 {
		page = 1
	}
	out.Page = page
	return out
}

// WithPerPage sets the page size and resets the page.
func (s ViewState) WithPerPage(perPage int) ViewState {
	out := s.clone()
	out.PerPage = perPage
	out.Page = 1
	return out
}

func (s ViewState) ToggleGroup(key string) ViewState {
	out := s.clone()
	out.ExpandedGroups = toggle(out.ExpandedGroups, key)
	return out
}

func (s ViewState) ToggleRow(id string) ViewState {
	out := s.clone()
	out.ExpandedRows = toggle(out.ExpandedRows, id)
	return out
}

func (s ViewState) ToggleColumn(field string) ViewState {
	out := s.clone()
	out.HiddenColumns = toggle(out.HiddenColumns, field)
	return out
}

func (s ViewState) ShowAllColumns() ViewState {
	out := s.clone()
	out.HiddenColumns = nil
	return out
}

func (s ViewState) IsGroupExpanded(key string) bool {
	return slices.Contains(s.ExpandedGroups, key)
}

func (s ViewState) IsRowExpanded(id string) bool {
	return slices.Contains(s.ExpandedRows, id)
}

func (s ViewState) IsSelected(id string) bool {
	return slices.Contains(s.Selected, id)
}

// WithSelected replaces the selection.
func (s ViewState) WithSelected(ids ...string) ViewState {
	out := s.clone()
	out.Selected = slices.Clone(ids)
	return out
}

// SelectAll selects exactly the given ids, normally the current page.
func (s ViewState) SelectAll(ids []string) ViewState {
	out := s.clone()
	out.Selected = slices.Clone(ids)
	out.AllSelected = len(ids) > 0
	return out
}

func (s ViewState) ClearSelection() ViewState {
	out := s.clone()
	out.Selected = nil
	out.AllSelected = false
	return out
}

// SyncSelectAll sets the select-all flag when every id on the page is selected.
func (s ViewState) SyncSelectAll(pageIDs []string) ViewState {
	out := s.clone()
	if len(pageIDs) == 0 {
		out.AllSelected = false
		return out
	}
	for _, id := range pageIDs {
		if !slices.Contains(out.Selected, id) {
			out.AllSelected = false
			return out
		}
	}
	out.AllSelected = true
	return out
}

// ClearFilters drops filters, search and the active preset and resets the page.
func (s ViewState) ClearFilters() ViewState {
	out := s.clone()
	out.Filters = map[string]any{}
	out.Search = ""
	out.ActivePresetID = uuid.Nil
	out.Page = 1
	return out
}

// WithActivePreset replaces the filters with a preset's snapshot.
func (s ViewState) WithActivePreset(id uuid.UUID, filters map[string]any) ViewState {
	out := s.WithFilters(filters)
	out.ActivePresetID = id
	return out
}

// HasActivePreset reports whether a preset is active.
func (s ViewState) HasActivePreset() bool {
	return s.ActivePresetID != uuid.Nil
}

func toggle(list []string, value string) []string {
	if idx := slices.Index(list, value); idx >= 0 {
		return slices.Delete(list, idx, idx+1)
	}
	return append(list, value)
}
