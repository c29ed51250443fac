// Package render turns table views into the payload handed to a view
// renderer.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/rpattn/tablekit/internal/table"
)

// DefaultView is the view name of a full table render.
const DefaultView = "table"

// Renderer draws a named view from a payload.
type Renderer interface {
	Render(view string, payload map[string]any) (string, error)
}

// Payload flattens a view into the keys a table template reads.
func Payload(view table.View) map[string]any {
	hidden := view.State.HiddenColumns
	if hidden == nil {
		hidden = []string{}
	}
	var activePreset any
	if view.State.HasActivePreset() {
		activePreset = view.State.ActivePresetID.String()
	}

	return map[string]any{
		"name":                view.Name,
		"columns":             view.Columns,
		"toggleableColumns":   view.ToggleableColumns,
		"filters":             view.Filters,
		"globalFilters":       view.GlobalFilters,
		"bulkActions":         view.BulkActions,
		"data":                view.Rows,
		"groups":              view.Groups,
		"pagination":          view.Pagination,
		"perPage":             view.Pagination.PerPage,
		"pageOptions":         view.Pagination.PageOptions,
		"liveUpdateInterval":  view.LiveUpdateSeconds,
		"scheme":              view.Scheme,
		"groupBy":             view.GroupBy,
		"isCollapsible":       view.Collapsible,
		"hasSubRows":          view.HasSubRows,
		"expandedRows":        view.State.ExpandedRows,
		"expandedGroups":      view.State.ExpandedGroups,
		"columnToggleEnabled": view.ColumnToggle,
		"hiddenColumns":       hidden,
		"presetsEnabled":      view.PresetsEnabled,
		"presets":             view.Presets,
		"activePresetId":      activePreset,
		"tableSortColumn":     view.State.SortField,
		"tableSortDirection":  string(view.State.SortDirection),
		"tableSelected":       view.State.Selected,
		"tableSelectAll":      view.State.AllSelected,
		"tableSearch":         view.State.Search,
		"tableFilters":        view.State.Filters,
		"warnings":            view.Warnings,
	}
}

// JSONRenderer renders every view as the JSON encoding of its payload.
type JSONRenderer struct {
	Indent string
}

func (r JSONRenderer) Render(view string, payload map[string]any) (string, error) {
	var (
		data []byte
		err  error
	)
	if r.Indent != "" {
		data, err = json.MarshalIndent(payload, "", r.Indent)
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", view, err)
	}
	return string(data), nil
}

// View renders a table view through r.
func View(r Renderer, view table.View) (string, error) {
	return r.Render(DefaultView, Payload(view))
}
