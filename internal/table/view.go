package table

import (
	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/grouping"
	"github.com/rpattn/tablekit/internal/query"
)

// View is everything a renderer needs to draw one table state.
type View struct {
	Name              string                `json:"name"`
	Columns           []ColumnView          `json:"columns"`
	ToggleableColumns []ColumnView          `json:"toggleable_columns,omitempty"`
	Rows              []Row                 `json:"rows"`
	Groups            []GroupView           `json:"groups"`
	Grouped           bool                  `json:"grouped"`
	GroupBy           string                `json:"group_by,omitempty"`
	Collapsible       bool                  `json:"collapsible"`
	HasSubRows        bool                  `json:"has_sub_rows"`
	ColumnToggle      bool                  `json:"column_toggle"`
	Pagination        Pagination            `json:"pagination"`
	Filters           []FilterView          `json:"filters"`
	GlobalFilters     []FilterView          `json:"global_filters"`
	BulkActions       []ActionState         `json:"bulk_actions"`
	PresetsEnabled    bool                  `json:"presets_enabled"`
	Presets           []domain.FilterPreset `json:"presets,omitempty"`
	Scheme            domain.Scheme         `json:"scheme"`
	LiveUpdateSeconds int                   `json:"live_update_seconds,omitempty"`
	State             domain.ViewState      `json:"state"`
	Warnings          []string              `json:"warnings,omitempty"`
}

// ColumnView describes a visible column header.
type ColumnView struct {
	Field             string            `json:"field"`
	Label             string            `json:"label"`
	Kind              domain.ColumnKind `json:"kind"`
	Sortable          bool              `json:"sortable"`
	Sorted            bool              `json:"sorted"`
	SortDirection     string            `json:"sort_direction,omitempty"`
	Editable          bool              `json:"editable"`
	InputType         string            `json:"input_type,omitempty"`
	ResponsiveClasses string            `json:"responsive_classes,omitempty"`
	Visible           bool              `json:"visible"`
	View              string            `json:"view,omitempty"`
}

// Cell is one column of one row.
type Cell struct {
	Field    string `json:"field"`
	Value    any    `json:"value"`
	Display  any    `json:"display"`
	Color    string `json:"color,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Editable bool   `json:"editable"`
	Disabled bool   `json:"disabled,omitempty"`
}

// ActionState is an action as it applies to one record, or to the selection
// for bulk actions.
type ActionState struct {
	Name         string               `json:"name"`
	Label        string               `json:"label"`
	Icon         string               `json:"icon,omitempty"`
	Color        string               `json:"color"`
	Kind         domain.ActionKind    `json:"kind"`
	Confirmation *domain.Confirmation `json:"confirmation,omitempty"`
	Modal        *domain.Modal        `json:"modal,omitempty"`
	Visible      bool                 `json:"visible"`
	Disabled     bool                 `json:"disabled"`
}

// Row is one record with its rendered cells and actions.
type Row struct {
	ID       string        `json:"id"`
	Record   domain.Record `json:"record"`
	Cells    []Cell        `json:"cells"`
	Actions  []ActionState `json:"actions"`
	Selected bool          `json:"selected"`
	Expanded bool          `json:"expanded"`
	SubRows  *SubRows      `json:"sub_rows,omitempty"`
}

// SubRows holds the related records of an expanded row.
type SubRows struct {
	Relation string          `json:"relation"`
	Records  []domain.Record `json:"records"`
	Rendered any             `json:"rendered,omitempty"`
}

// GroupView is a group header plus the ids of its rows.
type GroupView struct {
	Key       any      `json:"key"`
	KeyString string   `json:"key_string"`
	Label     string   `json:"label"`
	Count     int      `json:"count"`
	Collapsed bool     `json:"collapsed"`
	RowIDs    []string `json:"row_ids"`
}

// Pagination is the page metadata of a view.
type Pagination struct {
	Total        int   `json:"total"`
	CurrentPage  int   `json:"current_page"`
	LastPage     int   `json:"last_page"`
	PerPage      int   `json:"per_page"`
	From         int   `json:"from"`
	To           int   `json:"to"`
	HasMorePages bool  `json:"has_more_pages"`
	PageOptions  []int `json:"page_options"`
}

// FilterView is a filter control with its current value.
type FilterView struct {
	Name        string            `json:"name"`
	Label       string            `json:"label"`
	Kind        domain.FilterKind `json:"kind"`
	Placeholder string            `json:"placeholder,omitempty"`
	Options     []domain.Option   `json:"options,omitempty"`
	Value       any               `json:"value,omitempty"`
	Active      bool              `json:"active"`
}

func columnView(c domain.Column, state domain.ViewState, visible bool) ColumnView {
	cv := ColumnView{
		Field:             c.Field,
		Label:             c.Label,
		Kind:              c.Kind,
		Sortable:          c.Sortable,
		Editable:          c.IsEditable(),
		ResponsiveClasses: c.ResponsiveClasses(),
		Visible:           visible,
		View:              c.View,
	}
	if c.Editable != nil {
		cv.InputType = c.Editable.InputType
	}
	if state.SortField == c.Field {
		cv.Sorted = true
		cv.SortDirection = string(state.SortDirection)
	}
	return cv
}

func cell(c domain.Column, record domain.Record) Cell {
	value := c.Value(record)
	out := Cell{
		Field:    c.Field,
		Value:    value,
		Display:  c.Display(record),
		Editable: c.IsEditable(),
	}
	if c.Kind == domain.ColumnKindBadge {
		out.Color = c.BadgeColor(value)
		out.Icon = c.BadgeIcon(value)
	}
	if c.Gate.ShouldBeDisabled(&record) {
		out.Editable = false
		out.Disabled = true
	}
	return out
}

func actionState(a domain.Action, record domain.Record) ActionState {
	return ActionState{
		Name:         a.Name,
		Label:        a.Label,
		Icon:         a.Icon,
		Color:        a.Color,
		Kind:         a.Kind,
		Confirmation: a.Confirmation,
		Modal:        a.Modal,
		Visible:      !a.Gate.ShouldBeHidden(&record),
		Disabled:     a.Gate.ShouldBeDisabled(&record),
	}
}

// bulkActionState evaluates a bulk action gate without a record, so only the
// static visibility flag applies.
func bulkActionState(a domain.BulkAction) ActionState {
	return ActionState{
		Name:         a.Name,
		Label:        a.Label,
		Icon:         a.Icon,
		Color:        a.Color,
		Kind:         a.Kind,
		Confirmation: a.Confirmation,
		Modal:        a.Modal,
		Visible:      a.Gate.IsVisible(nil),
	}
}

func filterView(f domain.Filter, state domain.ViewState) FilterView {
	value := state.FilterValue(f.Name)
	return FilterView{
		Name:        f.Name,
		Label:       f.Label,
		Kind:        f.Kind,
		Placeholder: f.Placeholder,
		Options:     f.Options,
		Value:       value,
		Active:      !domain.IsEmptyValue(value),
	}
}

func groupViews(groups []grouping.Group) []GroupView {
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupView{
			Key:       g.Key,
			KeyString: g.KeyString,
			Label:     g.Label,
			Count:     g.Count,
			Collapsed: g.Collapsed,
			RowIDs:    domain.RecordIDs(g.Items),
		})
	}
	return out
}

func pagination(page query.Page, options []int) Pagination {
	return Pagination{
		Total:        page.Total,
		CurrentPage:  page.CurrentPage,
		LastPage:     page.LastPage,
		PerPage:      page.PerPage,
		From:         page.From,
		To:           page.To,
		HasMorePages: page.HasMorePages(),
		PageOptions:  options,
	}
}
