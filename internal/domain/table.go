package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Default pagination settings.
const DefaultPerPage = 10

// DefaultPageOptions are the page sizes offered when none are configured.
var DefaultPageOptions = []int{10, 25, 50, 100}

// GroupKeyFunc derives a group key from a record.
type GroupKeyFunc func(record Record) any

// GroupHeaderFunc formats a group label from its key and items.
type GroupHeaderFunc func(key any, items []Record) string

// GroupSpec configures row grouping. Field is ignored when KeyFunc is set.
type GroupSpec struct {
	Field       string
	KeyFunc     GroupKeyFunc
	Collapsible bool
	Header      GroupHeaderFunc
}

// SubRowRenderFunc renders the nested rows of an expanded parent.
type SubRowRenderFunc func(related []Record, parent Record) any

// SubRowSpec configures nested rows loaded through a relation.
type SubRowSpec struct {
	Relation string
	Render   SubRowRenderFunc
	Lazy     bool
}

// Scheme holds responsive layout hints.
type Scheme struct {
	Mobile            []string `json:"mobile" yaml:"mobile"`
	Tablet            []string `json:"tablet" yaml:"tablet"`
	Desktop           []string `json:"desktop" yaml:"desktop"`
	ResponsiveClasses string   `json:"responsive_classes" yaml:"responsive_classes"`
}

func (s Scheme) clone() Scheme {
	s.Mobile = slices.Clone(s.Mobile)
	s.Tablet = slices.Clone(s.Tablet)
	s.Desktop = slices.Clone(s.Desktop)
	return s
}

// DefaultScheme stacks on mobile, scrolls on tablet and shows everything on desktop.
func DefaultScheme() Scheme {
	return Scheme{
		Mobile:  []string{"stack"},
		Tablet:  []string{"scroll"},
		Desktop: []string{"full"},
	}
}

// Definition is an immutable table definition. Build one with NewTable.
type Definition struct {
	name          string
	source        Source
	columns       []Column
	filters       []Filter
	globalFilters []Filter
	actions       []Action
	bulkActions   []BulkAction
	perPage       int
	pageOptions   []int
	grouping      *GroupSpec
	subRows       *SubRowSpec
	columnToggle  bool
	alwaysVisible []string
	presets       bool
	scheme        Scheme
	liveUpdate    time.Duration
}

// TableBuilder accumulates a Definition.
type TableBuilder struct {
	def Definition
	err error
}

// NewTable starts a definition over source with the default settings.
func NewTable(source Source) *TableBuilder {
	return &TableBuilder{def: Definition{
		source:       source,
		perPage:      DefaultPerPage,
		pageOptions:  append([]int(nil), DefaultPageOptions...),
		columnToggle: true,
		scheme:       DefaultScheme(),
	}}
}

func (b *TableBuilder) Name(name string) *TableBuilder {
	b.def.name = name
	return b
}

func (b *TableBuilder) Columns(columns ...Column) *TableBuilder {
	b.def.columns = append(b.def.columns, columns...)
	return b
}

func (b *TableBuilder) Filters(filters ...Filter) *TableBuilder {
	for _, f := range filters {
		if f.Global {
			b.def.globalFilters = append(b.def.globalFilters, f)
			continue
		}
		b.def.filters = append(b.def.filters, f)
	}
	return b
}

func (b *TableBuilder) GlobalFilters(filters ...Filter) *TableBuilder {
	for _, f := range filters {
		f.Global = true
		b.def.globalFilters = append(b.def.globalFilters, f)
	}
	return b
}

func (b *TableBuilder) Actions(actions ...Action) *TableBuilder {
	b.def.actions = append(b.def.actions, actions...)
	return b
}

func (b *TableBuilder) BulkActions(actions ...BulkAction) *TableBuilder {
	b.def.bulkActions = append(b.def.bulkActions, actions...)
	return b
}

func (b *TableBuilder) PerPage(n int) *TableBuilder {
	if n <= 0 {
		b.err = errors.Join(b.err, fmt.Errorf("per page must be positive, got %d", n))
		return b
	}
	b.def.perPage = n
	return b
}

func (b *TableBuilder) PageOptions(options ...int) *TableBuilder {
	for _, n := range options {
		if n <= 0 {
			b.err = errors.Join(b.err, fmt.Errorf("page option must be positive, got %d", n))
			return b
		}
	}
	b.def.pageOptions = append([]int(nil), options...)
	return b
}

// GroupBy groups the page by field, or by keyFn when it is not nil.
func (b *TableBuilder) GroupBy(field string, keyFn GroupKeyFunc) *TableBuilder {
	spec := b.groupSpec()
	spec.Field = field
	spec.KeyFunc = keyFn
	b.def.grouping = &spec
	return b
}

func (b *TableBuilder) CollapsibleGroups(collapsible bool) *TableBuilder {
	spec := b.groupSpec()
	spec.Collapsible = collapsible
	b.def.grouping = &spec
	return b
}

func (b *TableBuilder) GroupHeader(fn GroupHeaderFunc) *TableBuilder {
	spec := b.groupSpec()
	spec.Header = fn
	b.def.grouping = &spec
	return b
}

func (b *TableBuilder) groupSpec() GroupSpec {
	if b.def.grouping == nil {
		return GroupSpec{Collapsible: true}
	}
	return *b.def.grouping
}

// SubRows renders nested rows of relation for expanded records. Loading is
// lazy unless LazyLoadSubRows(false) is called.
func (b *TableBuilder) SubRows(relation string, render SubRowRenderFunc) *TableBuilder {
	lazy := true
	if b.def.subRows != nil {
		lazy = b.def.subRows.Lazy
	}
	b.def.subRows = &SubRowSpec{Relation: relation, Render: render, Lazy: lazy}
	return b
}

func (b *TableBuilder) LazyLoadSubRows(lazy bool) *TableBuilder {
	if b.def.subRows == nil {
		b.def.subRows = &SubRowSpec{}
	}
	spec := *b.def.subRows
	spec.Lazy = lazy
	b.def.subRows = &spec
	return b
}

func (b *TableBuilder) ColumnToggle(enabled bool) *TableBuilder {
	b.def.columnToggle = enabled
	return b
}

func (b *TableBuilder) AlwaysVisible(fields ...string) *TableBuilder {
	b.def.alwaysVisible = append([]string(nil), fields...)
	return b
}

func (b *TableBuilder) Presets(enabled bool) *TableBuilder {
	b.def.presets = enabled
	return b
}

func (b *TableBuilder) Scheme(s Scheme) *TableBuilder {
	b.def.scheme = s
	return b
}

func (b *TableBuilder) LiveUpdate(interval time.Duration) *TableBuilder {
	b.def.liveUpdate = interval
	return b
}

// Build validates and returns the definition.
func (b *TableBuilder) Build() (Definition, error) {
	if b.err != nil {
		return Definition{}, b.err
	}
	if b.def.source == nil {
		return Definition{}, errors.New("table has no data source")
	}
	seenColumns := make(map[string]struct{}, len(b.def.columns))
	for _, c := range b.def.columns {
		if _, dup := seenColumns[c.Field]; dup {
			return Definition{}, fmt.Errorf("duplicate column %q", c.Field)
		}
		seenColumns[c.Field] = struct{}{}
	}
	seenFilters := make(map[string]struct{})
	for _, f := range append(append([]Filter(nil), b.def.filters...), b.def.globalFilters...) {
		if _, dup := seenFilters[f.Name]; dup {
			return Definition{}, fmt.Errorf("duplicate filter %q", f.Name)
		}
		seenFilters[f.Name] = struct{}{}
	}
	if b.def.subRows != nil && b.def.subRows.Relation == "" {
		return Definition{}, errors.New("sub rows configured without a relation")
	}

	def := b.def
	def.columns = append([]Column(nil), b.def.columns...)
	def.filters = append([]Filter(nil), b.def.filters...)
	def.globalFilters = append([]Filter(nil), b.def.globalFilters...)
	def.actions = append([]Action(nil), b.def.actions...)
	def.bulkActions = append([]BulkAction(nil), b.def.bulkActions...)
	return def, nil
}

func (d Definition) Name() string                      { return d.name }
func (d Definition) Source() Source                    { return d.source }
func (d Definition) Columns() []Column                 { return slices.Clone(d.columns) }
func (d Definition) Filters() []Filter                 { return slices.Clone(d.filters) }
func (d Definition) GlobalFilters() []Filter           { return slices.Clone(d.globalFilters) }
func (d Definition) Actions() []Action                 { return slices.Clone(d.actions) }
func (d Definition) BulkActions() []BulkAction         { return slices.Clone(d.bulkActions) }
func (d Definition) PerPage() int                      { return d.perPage }
func (d Definition) PageOptions() []int                { return slices.Clone(d.pageOptions) }
func (d Definition) Grouping() *GroupSpec              { return clonePtr(d.grouping) }
func (d Definition) SubRows() *SubRowSpec              { return clonePtr(d.subRows) }
func (d Definition) ColumnToggleEnabled() bool         { return d.columnToggle }
func (d Definition) AlwaysVisibleFields() []string     { return slices.Clone(d.alwaysVisible) }
func (d Definition) PresetsEnabled() bool              { return d.presets }
func (d Definition) Scheme() Scheme                    { return d.scheme.clone() }
func (d Definition) LiveUpdateInterval() time.Duration { return d.liveUpdate }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// WithSource returns a copy of the definition reading from another source.
func (d Definition) WithSource(source Source) Definition {
	d.source = source
	return d
}

// Column looks up a column by field path.
func (d Definition) Column(field string) (Column, bool) {
	for _, c := range d.columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// Action looks up a record action by name.
func (d Definition) Action(name string) (Action, bool) {
	for _, a := range d.actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// BulkAction looks up a bulk action by name.
func (d Definition) BulkAction(name string) (BulkAction, bool) {
	for _, a := range d.bulkActions {
		if a.Name == name {
			return a, true
		}
	}
	return BulkAction{}, false
}

// AllFilters returns column filters followed by global filters.
func (d Definition) AllFilters() []Filter {
	out := make([]Filter, 0, len(d.filters)+len(d.globalFilters))
	out = append(out, d.filters...)
	return append(out, d.globalFilters...)
}

// SearchableFields returns the searchable column paths in declaration order.
func (d Definition) SearchableFields() []string {
	var fields []string
	for _, c := range d.columns {
		if c.Searchable {
			fields = append(fields, c.Field)
		}
	}
	return fields
}

// IsSortable reports whether field belongs to a sortable column.
func (d Definition) IsSortable(field string) bool {
	c, ok := d.Column(field)
	return ok && c.Sortable
}

// AllowsPerPage reports whether n is one of the configured page sizes.
func (d Definition) AllowsPerPage(n int) bool {
	if n == d.perPage {
		return true
	}
	for _, option := range d.pageOptions {
		if option == n {
			return true
		}
	}
	return false
}

// VisibleColumns returns the columns shown for state: not hidden by the
// column itself, not toggled off, and not gated out.
func (d Definition) VisibleColumns(state ViewState) []Column {
	hidden := make(map[string]struct{}, len(state.HiddenColumns))
	for _, field := range state.HiddenColumns {
		hidden[field] = struct{}{}
	}
	always := d.alwaysVisibleSet()
	out := make([]Column, 0, len(d.columns))
	for _, c := range d.columns {
		if c.IsHidden() || !c.Gate.IsVisible(nil) {
			continue
		}
		if _, off := hidden[c.Field]; off && d.columnToggle {
			if _, pinned := always[c.Field]; !pinned {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// ToggleableColumns returns the columns the user may show or hide.
func (d Definition) ToggleableColumns() []Column {
	if !d.columnToggle {
		return nil
	}
	always := d.alwaysVisibleSet()
	var out []Column
	for _, c := range d.columns {
		if c.IsHidden() || !c.Gate.IsVisible(nil) {
			continue
		}
		if _, pinned := always[c.Field]; pinned {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (d Definition) alwaysVisibleSet() map[string]struct{} {
	set := make(map[string]struct{}, len(d.alwaysVisible))
	for _, field := range d.alwaysVisible {
		set[field] = struct{}{}
	}
	return set
}

// BoundTable pairs a definition with the view state it renders.
type BoundTable struct {
	Definition Definition
	State      ViewState
}

// WithState binds the definition to state.
func (d Definition) WithState(state ViewState) BoundTable {
	return BoundTable{Definition: d, State: state}
}
