// Package table renders table definitions into views and mediates the
// mutations a rendered table offers.
package table

import (
	"context"
	"fmt"
	"log"

	"github.com/rpattn/tablekit/internal/auth"
	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/pipeline"
	"github.com/rpattn/tablekit/internal/presets"
	"github.com/rpattn/tablekit/pkg/validator"
)

// Event names emitted by the engine.
const (
	EventCellUpdated        = "cell-updated"
	EventActionExecuted     = "action-executed"
	EventBulkActionExecuted = "bulk-action-executed"
	EventPresetSaved        = "preset-saved"
	EventPresetLoaded       = "preset-loaded"
	EventPresetDeleted      = "preset-deleted"
)

// Event is a notification about a completed mutation.
type Event struct {
	Name    string         `json:"name"`
	Table   string         `json:"table"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EventFunc receives engine events.
type EventFunc func(Event)

// Engine binds a definition to the collaborators needed to render and
// mutate it. An Engine holds no view state and is safe for concurrent use.
type Engine struct {
	def       domain.Definition
	pipeline  *pipeline.Pipeline
	presets   *presets.Service
	validator *validator.RulesValidator
	logger    *log.Logger
	listeners []EventFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes engine and pipeline warnings to logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPresets enables preset operations backed by svc.
func WithPresets(svc *presets.Service) Option {
	return func(e *Engine) {
		e.presets = svc
	}
}

// OnEvent registers a listener for engine events.
func OnEvent(fn EventFunc) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, fn)
	}
}

// New creates an engine for def.
func New(def domain.Definition, opts ...Option) *Engine {
	e := &Engine{
		def:       def,
		validator: validator.NewRulesValidator(),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pipeline = pipeline.New(pipeline.WithLogger(e.logger))
	return e
}

// Definition returns the bound table definition.
func (e *Engine) Definition() domain.Definition {
	return e.def
}

// Pipeline returns the query pipeline the engine renders with.
func (e *Engine) Pipeline() *pipeline.Pipeline {
	return e.pipeline
}

// InitialState returns the state of a first render: definition defaults
// plus, when presets are enabled, the owner's default preset.
func (e *Engine) InitialState(ctx context.Context) domain.ViewState {
	state := domain.NewViewState(e.def)
	owner, ok := e.presetOwner(ctx)
	if !ok {
		return state
	}
	next, err := e.presets.ApplyDefault(ctx, owner, e.def.Name(), state)
	if err != nil {
		e.logger.Printf("[table] failed to apply default preset for %s: %v", e.def.Name(), err)
		return state
	}
	return next
}

// NormalizeState fixes values a client may have sent out of range.
func (e *Engine) NormalizeState(state domain.ViewState) domain.ViewState {
	if state.Filters == nil {
		state.Filters = map[string]any{}
	}
	if state.PerPage <= 0 || !e.def.AllowsPerPage(state.PerPage) {
		if state.PerPage != 0 {
			e.logger.Printf("[table] per page %d not allowed for %s, using %d", state.PerPage, e.def.Name(), e.def.PerPage())
		}
		state.PerPage = e.def.PerPage()
	}
	if state.Page < 1 {
		state.Page = 1
	}
	if state.SortDirection != domain.SortDirectionDesc {
		state.SortDirection = domain.SortDirectionAsc
	}
	return state
}

// Render derives the view for state. The returned view carries the state as
// rendered: the page is corrected when it was past the last page and the
// select-all flag follows the current page.
func (e *Engine) Render(ctx context.Context, state domain.ViewState) (View, error) {
	state = e.NormalizeState(state)

	result, err := e.pipeline.Run(ctx, e.def, state)
	if err != nil {
		return View{}, fmt.Errorf("failed to render %s: %w", e.tableName(), err)
	}
	state.Page = result.Page.CurrentPage
	state = state.SyncSelectAll(result.Page.IDs())

	view := View{
		Name:           e.def.Name(),
		Grouped:        e.def.Grouping() != nil,
		Pagination:     pagination(result.Page, e.def.PageOptions()),
		PresetsEnabled: e.def.PresetsEnabled() && e.presets != nil,
		Scheme:         e.def.Scheme(),
		State:          state,
	}
	if spec := e.def.Grouping(); spec != nil {
		view.GroupBy = spec.Field
		view.Collapsible = spec.Collapsible
	}
	view.HasSubRows = e.def.SubRows() != nil
	view.ColumnToggle = e.def.ColumnToggleEnabled()
	if interval := e.def.LiveUpdateInterval(); interval > 0 {
		view.LiveUpdateSeconds = int(interval.Seconds())
	}

	visible := e.def.VisibleColumns(state)
	for _, c := range visible {
		view.Columns = append(view.Columns, columnView(c, state, true))
	}
	shown := make(map[string]struct{}, len(visible))
	for _, c := range visible {
		shown[c.Field] = struct{}{}
	}
	for _, c := range e.def.ToggleableColumns() {
		_, on := shown[c.Field]
		view.ToggleableColumns = append(view.ToggleableColumns, columnView(c, state, on))
	}

	subRows := e.loadSubRows(ctx, result.Page.Items, state)
	view.Rows = make([]Row, 0, len(result.Page.Items))
	for _, record := range result.Page.Items {
		view.Rows = append(view.Rows, e.row(record, visible, state, subRows))
	}
	view.Groups = groupViews(result.Groups)

	for _, f := range e.def.Filters() {
		if f.Gate.IsVisible(nil) {
			view.Filters = append(view.Filters, filterView(f, state))
		}
	}
	for _, f := range e.def.GlobalFilters() {
		if f.Gate.IsVisible(nil) {
			view.GlobalFilters = append(view.GlobalFilters, filterView(f, state))
		}
	}
	for _, a := range e.def.BulkActions() {
		view.BulkActions = append(view.BulkActions, bulkActionState(a))
	}

	if owner, ok := e.presetOwner(ctx); ok {
		list, err := e.presets.List(ctx, owner, e.def.Name())
		if err != nil {
			e.logger.Printf("[table] failed to list presets for %s: %v", e.def.Name(), err)
		} else {
			view.Presets = list
		}
	}

	for _, w := range result.Skipped {
		view.Warnings = append(view.Warnings, w.String())
	}
	return view, nil
}

func (e *Engine) row(record domain.Record, columns []domain.Column, state domain.ViewState, subRows map[string]*SubRows) Row {
	r := Row{
		ID:       record.ID,
		Record:   record,
		Cells:    make([]Cell, 0, len(columns)),
		Actions:  make([]ActionState, 0, len(e.def.Actions())),
		Selected: state.IsSelected(record.ID),
		Expanded: state.IsRowExpanded(record.ID),
	}
	for _, c := range columns {
		if c.Gate.ShouldBeHidden(&record) {
			r.Cells = append(r.Cells, Cell{Field: c.Field})
			continue
		}
		r.Cells = append(r.Cells, cell(c, record))
	}
	for _, a := range e.def.Actions() {
		r.Actions = append(r.Actions, actionState(a, record))
	}
	if r.Expanded {
		r.SubRows = subRows[record.ID]
	}
	return r
}

// loadSubRows resolves the sub-row relation for the expanded rows of the
// page. Eager sub-rows are already attached to the records; lazy ones are
// fetched in one query for all expanded rows.
func (e *Engine) loadSubRows(ctx context.Context, items []domain.Record, state domain.ViewState) map[string]*SubRows {
	spec := e.def.SubRows()
	if spec == nil || len(state.ExpandedRows) == 0 {
		return nil
	}

	var expanded []domain.Record
	for _, record := range items {
		if state.IsRowExpanded(record.ID) {
			expanded = append(expanded, record)
		}
	}
	if len(expanded) == 0 {
		return nil
	}

	if spec.Lazy {
		loaded, err := e.fetchWithRelation(ctx, spec.Relation, domain.RecordIDs(expanded))
		if err != nil {
			e.logger.Printf("[table] skipping sub rows %q for %s: %v", spec.Relation, e.tableName(), err)
			return nil
		}
		expanded = loaded
	}

	out := make(map[string]*SubRows, len(expanded))
	for _, parent := range expanded {
		related := parent.RelatedRecords(spec.Relation)
		if related == nil {
			related = []domain.Record{}
		}
		sr := &SubRows{Relation: spec.Relation, Records: related}
		if spec.Render != nil {
			sr.Rendered = spec.Render(related, parent)
		}
		out[parent.ID] = sr
	}
	return out
}

func (e *Engine) fetchWithRelation(ctx context.Context, relation string, ids []string) ([]domain.Record, error) {
	q, err := e.def.Source().NewQuery().With(domain.EagerPrefixes(relation)...)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	q, err = q.Where(domain.In{Field: domain.IDField, Values: values})
	if err != nil {
		return nil, err
	}
	return q.Fetch(ctx, 0, 0)
}

func (e *Engine) presetOwner(ctx context.Context) (string, bool) {
	if e.presets == nil || !e.def.PresetsEnabled() {
		return "", false
	}
	return auth.OwnerIDFromContext(ctx)
}

func (e *Engine) emit(name string, payload map[string]any) {
	event := Event{Name: name, Table: e.def.Name(), Payload: payload}
	for _, fn := range e.listeners {
		fn(event)
	}
}

func (e *Engine) tableName() string {
	if e.def.Name() == "" {
		return "table"
	}
	return e.def.Name()
}
