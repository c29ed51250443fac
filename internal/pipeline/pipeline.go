// Package pipeline derives the displayed page of a table from its definition
// and view state.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/grouping"
	"github.com/rpattn/tablekit/internal/query"
)

// Stage names a pipeline step.
type Stage string

const (
	StageEagerLoad    Stage = "eager_load"
	StageFilter       Stage = "filter"
	StageGlobalFilter Stage = "global_filter"
	StageSearch       Stage = "search"
	StageSort         Stage = "sort"
	StagePaginate     Stage = "paginate"
)

// Stages lists the steps in the order they are applied.
var Stages = []Stage{StageEagerLoad, StageFilter, StageGlobalFilter, StageSearch, StageSort, StagePaginate}

// StageWarning records a step that was skipped.
type StageWarning struct {
	Stage Stage  `json:"stage"`
	Field string `json:"field"`
	Err   error  `json:"-"`
}

func (w StageWarning) String() string {
	return fmt.Sprintf("%s %s: %v", w.Stage, w.Field, w.Err)
}

// Result is the derived shape of one render.
type Result struct {
	Page        query.Page       `json:"page"`
	Groups      []grouping.Group `json:"groups"`
	EagerLoaded []string         `json:"eager_loaded"`
	Skipped     []StageWarning   `json:"-"`
	// Applied lists the stages that changed the query, in order.
	Applied []Stage `json:"-"`
}

// Pipeline runs the query composition steps.
type Pipeline struct {
	logger *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger routes skip warnings to logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: log.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run applies, in order: eager loading, column filters, global filters,
// search, sort and pagination, then groups the resulting page. A failing
// filter, search term or sort is logged and skipped; only counting or
// fetching errors are returned.
func (p *Pipeline) Run(ctx context.Context, def domain.Definition, state domain.ViewState) (Result, error) {
	q, result := p.Compose(def, state)

	perPage := state.PerPage
	if perPage <= 0 {
		perPage = def.PerPage()
	}
	page, err := query.Paginate(ctx, q, perPage, state.CurrentPage())
	if err != nil {
		return Result{}, fmt.Errorf("failed to paginate %s: %w", tableLabel(def), err)
	}
	result.Page = page
	result.Applied = append(result.Applied, StagePaginate)
	result.Groups = grouping.Partition(page.Items, def.Grouping(), state.ExpandedGroups)
	return result, nil
}

// Compose builds the query for state without executing it. The returned
// result carries the eager-load set and the skipped steps.
func (p *Pipeline) Compose(def domain.Definition, state domain.ViewState) (domain.Query, Result) {
	var result Result
	q := def.Source().NewQuery()

	for _, path := range domain.EagerLoadPaths(p.logger, def) {
		if skippedPrefix(result.Skipped, path) {
			continue
		}
		next, err := q.With(path)
		if err != nil {
			p.skip(&result, StageEagerLoad, path, err)
			continue
		}
		q = next
		result.EagerLoaded = append(result.EagerLoaded, path)
	}
	if len(result.EagerLoaded) > 0 {
		result.Applied = append(result.Applied, StageEagerLoad)
	}

	q = p.applyFilters(q, &result, StageFilter, def.Filters(), state)
	q = p.applyFilters(q, &result, StageGlobalFilter, def.GlobalFilters(), state)
	q = p.applySearch(q, &result, def, state.Search)
	q = p.applySort(q, &result, def, state)
	return q, result
}

func (p *Pipeline) applyFilters(q domain.Query, result *Result, stage Stage, filters []domain.Filter, state domain.ViewState) domain.Query {
	applied := false
	for _, f := range filters {
		if !f.Gate.IsVisible(nil) {
			continue
		}
		value, ok := state.Filters[f.Name]
		if !ok || domain.IsEmptyValue(value) {
			continue
		}
		next, err := f.Apply(q, value)
		if err != nil {
			p.skip(result, stage, f.Name, err)
			continue
		}
		q = next
		applied = true
	}
	if applied {
		result.Applied = append(result.Applied, stage)
	}
	return q
}

// applySearch ORs a case-insensitive substring match across searchable
// columns. Relational columns match through an existential sub-constraint.
func (p *Pipeline) applySearch(q domain.Query, result *Result, def domain.Definition, search string) domain.Query {
	term := strings.TrimSpace(search)
	if term == "" {
		return q
	}
	var anyOf domain.AnyOf
	var fields []string
	for _, field := range def.SearchableFields() {
		cond, err := domain.QualifyCompare(field, domain.OpLike, term)
		if err != nil {
			p.skip(result, StageSearch, field, err)
			continue
		}
		anyOf = append(anyOf, cond)
		fields = append(fields, field)
	}
	if len(anyOf) == 0 {
		return q
	}
	next, err := q.Where(anyOf)
	if err != nil {
		// Retry column by column and drop only the failing terms.
		return p.applySearchIsolated(q, result, anyOf, fields, err)
	}
	result.Applied = append(result.Applied, StageSearch)
	return next
}

func (p *Pipeline) applySearchIsolated(q domain.Query, result *Result, conds domain.AnyOf, fields []string, cause error) domain.Query {
	var usable domain.AnyOf
	for i, cond := range conds {
		if _, err := q.Where(cond); err != nil {
			p.skip(result, StageSearch, searchField(fields, i), err)
			continue
		}
		usable = append(usable, cond)
	}
	if len(usable) == 0 {
		return q
	}
	next, err := q.Where(usable)
	if err != nil {
		p.skip(result, StageSearch, "*", cause)
		return q
	}
	result.Applied = append(result.Applied, StageSearch)
	return next
}

func searchField(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return "?"
}

func (p *Pipeline) applySort(q domain.Query, result *Result, def domain.Definition, state domain.ViewState) domain.Query {
	if state.SortField == "" {
		return q
	}
	if !def.IsSortable(state.SortField) {
		p.skip(result, StageSort, state.SortField, fmt.Errorf("no sortable column %q: %w", state.SortField, domain.ErrInvalidField))
		return q
	}
	dir := state.SortDirection
	if dir != domain.SortDirectionDesc {
		dir = domain.SortDirectionAsc
	}
	next, err := q.OrderBy(state.SortField, dir)
	if err != nil {
		p.skip(result, StageSort, state.SortField, err)
		return q
	}
	result.Applied = append(result.Applied, StageSort)
	return next
}

func (p *Pipeline) skip(result *Result, stage Stage, field string, err error) {
	p.logger.Printf("[pipeline] skipping %s for %q: %v", stage, field, err)
	result.Skipped = append(result.Skipped, StageWarning{Stage: stage, Field: field, Err: err})
}

// skippedPrefix reports whether an ancestor of path already failed to load,
// keeping the loaded set closed under prefix.
func skippedPrefix(skipped []StageWarning, path string) bool {
	for _, w := range skipped {
		if w.Stage == StageEagerLoad && strings.HasPrefix(path, w.Field+".") {
			return true
		}
	}
	return false
}

func tableLabel(def domain.Definition) string {
	if def.Name() == "" {
		return "table"
	}
	return def.Name()
}
