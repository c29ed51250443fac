// Package tabledef loads table definitions from YAML documents.
package tabledef

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/source/sqlsource"
)

// Document is one table definition file.
type Document struct {
	Name          string                 `yaml:"name"`
	Table         string                 `yaml:"table"`
	PrimaryKey    string                 `yaml:"primary_key,omitempty"`
	Relations     map[string]RelationDoc `yaml:"relations,omitempty"`
	PerPage       int                    `yaml:"per_page,omitempty"`
	PageOptions   []int                  `yaml:"page_options,omitempty"`
	Columns       []ColumnDoc            `yaml:"columns"`
	Filters       []FilterDoc            `yaml:"filters,omitempty"`
	GroupBy       string                 `yaml:"group_by,omitempty"`
	Collapsible   *bool                  `yaml:"collapsible,omitempty"`
	SubRows       *SubRowsDoc            `yaml:"sub_rows,omitempty"`
	ColumnToggle  bool                   `yaml:"column_toggle,omitempty"`
	AlwaysVisible []string               `yaml:"always_visible,omitempty"`
	Presets       bool                   `yaml:"presets,omitempty"`
	// LiveUpdate is a duration such as "30s".
	LiveUpdate string `yaml:"live_update,omitempty"`
}

// RelationDoc describes a related table. Nested relations describe the
// related table's own relations.
type RelationDoc struct {
	Kind       string                 `yaml:"kind"`
	Table      string                 `yaml:"table"`
	ForeignKey string                 `yaml:"foreign_key"`
	OwnerKey   string                 `yaml:"owner_key,omitempty"`
	PrimaryKey string                 `yaml:"primary_key,omitempty"`
	Relations  map[string]RelationDoc `yaml:"relations,omitempty"`
}

type ColumnDoc struct {
	Field       string            `yaml:"field"`
	Label       string            `yaml:"label,omitempty"`
	Kind        string            `yaml:"kind,omitempty"`
	Sortable    bool              `yaml:"sortable,omitempty"`
	Searchable  bool              `yaml:"searchable,omitempty"`
	Hidden      bool              `yaml:"hidden,omitempty"`
	Limit       int               `yaml:"limit,omitempty"`
	Placeholder string            `yaml:"placeholder,omitempty"`
	Copyable    bool              `yaml:"copyable,omitempty"`
	Colors      map[string]string `yaml:"colors,omitempty"`
	Icons       map[string]string `yaml:"icons,omitempty"`
	Rules       string            `yaml:"rules,omitempty"`
	InputType   string            `yaml:"input_type,omitempty"`
	Options     []domain.Option   `yaml:"options,omitempty"`
	View        string            `yaml:"view,omitempty"`
	HideOn      []string          `yaml:"hide_on,omitempty"`
}

type FilterDoc struct {
	Name        string          `yaml:"name"`
	Column      string          `yaml:"column,omitempty"`
	Label       string          `yaml:"label,omitempty"`
	Kind        string          `yaml:"kind,omitempty"`
	Operator    string          `yaml:"operator,omitempty"`
	Global      bool            `yaml:"global,omitempty"`
	Default     any             `yaml:"default,omitempty"`
	Placeholder string          `yaml:"placeholder,omitempty"`
	Options     []domain.Option `yaml:"options,omitempty"`
}

type SubRowsDoc struct {
	Relation string `yaml:"relation"`
	Lazy     *bool  `yaml:"lazy,omitempty"`
}

// Load reads and validates the document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read table definition: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadDir loads every .yaml and .yml file in dir, ordered by file name.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read table definitions: %w", err)
	}
	var names []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		doc, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[doc.Name]; dup {
			return nil, fmt.Errorf("table %q defined in both %s and %s", doc.Name, prev, name)
		}
		seen[doc.Name] = name
		docs = append(docs, doc)
	}
	return docs, nil
}

// Parse decodes a document. Unknown fields are rejected.
func Parse(data []byte) (Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse table definition: %w", err)
	}
	if err := doc.validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (d Document) validate() error {
	var errs []error
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(d.Table) == "" {
		errs = append(errs, errors.New("table is required"))
	}
	if len(d.Columns) == 0 {
		errs = append(errs, errors.New("at least one column is required"))
	}
	for i, c := range d.Columns {
		if strings.TrimSpace(c.Field) == "" {
			errs = append(errs, fmt.Errorf("columns[%d]: field is required", i))
		}
	}
	for i, f := range d.Filters {
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, fmt.Errorf("filters[%d]: name is required", i))
		}
	}
	if d.LiveUpdate != "" {
		if _, err := time.ParseDuration(d.LiveUpdate); err != nil {
			errs = append(errs, fmt.Errorf("live_update: %w", err))
		}
	}
	return errors.Join(errs...)
}

// WithDefaults fills per_page and page_options when the document leaves
// them out.
func (d Document) WithDefaults(perPage int, pageOptions []int) Document {
	if d.PerPage <= 0 {
		d.PerPage = perPage
	}
	if len(d.PageOptions) == 0 {
		d.PageOptions = append([]int(nil), pageOptions...)
	}
	return d
}

// Schema returns the SQL description of the table and its relations.
func (d Document) Schema() (*sqlsource.Schema, error) {
	relations, err := relationsFrom(d.Relations)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", d.Name, err)
	}
	schema := &sqlsource.Schema{
		Table:      d.Table,
		PrimaryKey: d.PrimaryKey,
		Relations:  relations,
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", d.Name, err)
	}
	return schema, nil
}

func relationsFrom(docs map[string]RelationDoc) (map[string]sqlsource.Relation, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make(map[string]sqlsource.Relation, len(docs))
	for name, doc := range docs {
		kind, err := sqlsource.ParseRelationKind(doc.Kind)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", name, err)
		}
		rel := sqlsource.Relation{
			Kind:       kind,
			Table:      doc.Table,
			ForeignKey: doc.ForeignKey,
			OwnerKey:   doc.OwnerKey,
		}
		if len(doc.Relations) > 0 || doc.PrimaryKey != "" {
			nested, err := relationsFrom(doc.Relations)
			if err != nil {
				return nil, fmt.Errorf("relation %s: %w", name, err)
			}
			rel.Schema = &sqlsource.Schema{Table: doc.Table, PrimaryKey: doc.PrimaryKey, Relations: nested}
		}
		out[name] = rel
	}
	return out, nil
}

// Definition builds the table definition bound to source.
func (d Document) Definition(source domain.Source) (domain.Definition, error) {
	b := domain.NewTable(source).Name(d.Name)

	columns := make([]domain.Column, 0, len(d.Columns))
	for _, doc := range d.Columns {
		c, err := doc.column()
		if err != nil {
			return domain.Definition{}, fmt.Errorf("table %s: %w", d.Name, err)
		}
		columns = append(columns, c)
	}
	b.Columns(columns...)

	var filters, globals []domain.Filter
	for _, doc := range d.Filters {
		f, err := doc.filter()
		if err != nil {
			return domain.Definition{}, fmt.Errorf("table %s: %w", d.Name, err)
		}
		if f.Global {
			globals = append(globals, f)
		} else {
			filters = append(filters, f)
		}
	}
	b.Filters(filters...).GlobalFilters(globals...)

	if d.PerPage > 0 {
		b.PerPage(d.PerPage)
	}
	if len(d.PageOptions) > 0 {
		b.PageOptions(d.PageOptions...)
	}
	if d.GroupBy != "" {
		b.GroupBy(d.GroupBy, nil)
		if d.Collapsible != nil {
			b.CollapsibleGroups(*d.Collapsible)
		}
	}
	if d.SubRows != nil {
		b.SubRows(d.SubRows.Relation, nil)
		if d.SubRows.Lazy != nil {
			b.LazyLoadSubRows(*d.SubRows.Lazy)
		}
	}
	b.ColumnToggle(d.ColumnToggle).AlwaysVisible(d.AlwaysVisible...).Presets(d.Presets)
	if d.LiveUpdate != "" {
		interval, err := time.ParseDuration(d.LiveUpdate)
		if err != nil {
			return domain.Definition{}, fmt.Errorf("table %s: live_update: %w", d.Name, err)
		}
		b.LiveUpdate(interval)
	}

	def, err := b.Build()
	if err != nil {
		return domain.Definition{}, fmt.Errorf("table %s: %w", d.Name, err)
	}
	return def, nil
}

func (c ColumnDoc) column() (domain.Column, error) {
	var col domain.Column
	switch domain.ColumnKind(strings.ToLower(c.Kind)) {
	case "", domain.ColumnKindText:
		col = domain.TextColumn(c.Field)
	case domain.ColumnKindBadge:
		col = domain.BadgeColumn(c.Field)
	case domain.ColumnKindImage:
		col = domain.ImageColumn(c.Field)
	case domain.ColumnKindEditable:
		col = domain.EditableColumn(c.Field)
	case domain.ColumnKindCustom:
		if c.View == "" {
			return domain.Column{}, fmt.Errorf("column %s: custom columns need a view", c.Field)
		}
		col = domain.CustomColumn(c.Field, c.View)
	default:
		return domain.Column{}, fmt.Errorf("column %s: unknown kind %q", c.Field, c.Kind)
	}

	if c.Label != "" {
		col = col.WithLabel(c.Label)
	}
	if c.Sortable {
		col = col.AsSortable()
	}
	if c.Searchable {
		col = col.AsSearchable()
	}
	if c.Hidden {
		col = col.AsHidden()
	}
	if len(c.HideOn) > 0 {
		col = col.HideOn(c.HideOn...)
	}
	if c.View != "" && col.Kind != domain.ColumnKindCustom {
		col = col.WithView(c.View)
	}

	switch col.Kind {
	case domain.ColumnKindText:
		if c.Limit > 0 {
			col = col.WithLimit(c.Limit)
		}
		if c.Placeholder != "" {
			col = col.WithPlaceholder(c.Placeholder)
		}
		if c.Copyable {
			col = col.AsCopyable()
		}
	case domain.ColumnKindBadge:
		if len(c.Colors) > 0 {
			col = col.WithColors(c.Colors)
		}
		if len(c.Icons) > 0 {
			col = col.WithIcons(c.Icons)
		}
	case domain.ColumnKindEditable:
		if c.Rules != "" {
			col = col.WithRules(c.Rules)
		}
		if c.InputType != "" {
			col = col.WithInputType(c.InputType)
		}
		if len(c.Options) > 0 {
			col = col.WithEditOptions(c.Options...)
		}
	}
	return col, nil
}

func (f FilterDoc) filter() (domain.Filter, error) {
	var out domain.Filter
	switch domain.FilterKind(strings.ToLower(f.Kind)) {
	case "", domain.FilterKindText:
		out = domain.NewTextFilter(f.Name, f.Column)
	case domain.FilterKindSelect:
		out = domain.NewSelectFilter(f.Name, f.Column)
	case domain.FilterKindDate:
		out = domain.NewDateFilter(f.Name, f.Column)
	default:
		return domain.Filter{}, fmt.Errorf("filter %s: unknown kind %q", f.Name, f.Kind)
	}
	if f.Operator != "" {
		op, err := domain.ParseOperator(f.Operator)
		if err != nil {
			return domain.Filter{}, fmt.Errorf("filter %s: %w", f.Name, err)
		}
		out = out.WithOperator(op)
	}
	if f.Label != "" {
		out = out.WithLabel(f.Label)
	}
	if f.Placeholder != "" {
		out = out.WithPlaceholder(f.Placeholder)
	}
	if len(f.Options) > 0 {
		out = out.WithOptions(f.Options...)
	}
	if f.Default != nil {
		out = out.WithDefault(f.Default)
	}
	if f.Global {
		out = out.AsGlobal()
	}
	return out, nil
}
