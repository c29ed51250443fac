// Package grouping partitions a page of records into labelled groups.
package grouping

import (
	"fmt"

	"github.com/rpattn/tablekit/internal/domain"
)

// Group is one partition of the current page.
type Group struct {
	// Key is nil for the single synthetic group of an ungrouped table.
	Key       any             `json:"key"`
	KeyString string          `json:"key_string"`
	Label     string          `json:"label"`
	Items     []domain.Record `json:"items"`
	Count     int             `json:"count"`
	Collapsed bool            `json:"collapsed"`
}

// Partition splits items, the already paginated slice, by spec. Groups keep
// the order in which their keys first appear. A group is collapsed unless its
// key is in expanded; stale expanded keys are ignored. With a nil spec the
// result is one group holding every item.
func Partition(items []domain.Record, spec *domain.GroupSpec, expanded []string) []Group {
	if items == nil {
		items = []domain.Record{}
	}
	if spec == nil || (spec.Field == "" && spec.KeyFunc == nil) {
		return []Group{{Key: nil, Items: items, Count: len(items)}}
	}

	open := make(map[string]struct{}, len(expanded))
	for _, key := range expanded {
		open[key] = struct{}{}
	}

	var order []string
	byKey := make(map[string]*Group)
	for _, item := range items {
		key := groupKey(item, spec)
		ks := KeyString(key)
		g, ok := byKey[ks]
		if !ok {
			g = &Group{Key: key, KeyString: ks}
			byKey[ks] = g
			order = append(order, ks)
		}
		g.Items = append(g.Items, item)
	}

	groups := make([]Group, 0, len(order))
	for _, ks := range order {
		g := byKey[ks]
		g.Count = len(g.Items)
		g.Label = label(spec, g.Key, g.Items)
		_, isOpen := open[ks]
		g.Collapsed = !isOpen
		groups = append(groups, *g)
	}
	return groups
}

func groupKey(item domain.Record, spec *domain.GroupSpec) any {
	if spec.KeyFunc != nil {
		return spec.KeyFunc(item)
	}
	return item.Value(spec.Field)
}

// KeyString is the canonical string form of a group key; nil maps to "".
func KeyString(key any) string {
	if key == nil {
		return ""
	}
	return fmt.Sprint(key)
}

func label(spec *domain.GroupSpec, key any, items []domain.Record) string {
	if spec.Header != nil {
		return spec.Header(key, items)
	}
	return fmt.Sprintf("%s (%d)", KeyString(key), len(items))
}
