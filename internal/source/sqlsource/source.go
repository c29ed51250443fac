// Package sqlsource implements the data source contract over a SQL database
// using squirrel for statement generation.
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"

	"github.com/rpattn/tablekit/internal/domain"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Source reads and writes one table described by a Schema.
type Source struct {
	db      Querier
	schema  *Schema
	builder sq.StatementBuilderType
	logger  *log.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithPlaceholder selects the bind parameter style: sq.Dollar for
// PostgreSQL, sq.Question for SQLite.
func WithPlaceholder(format sq.PlaceholderFormat) Option {
	return func(s *Source) {
		s.builder = sq.StatementBuilder.PlaceholderFormat(format)
	}
}

// WithLogger routes warnings to logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a source. The schema is validated up front.
func New(db Querier, schema *Schema, opts ...Option) (*Source, error) {
	if db == nil {
		return nil, errors.New("sqlsource: nil database")
	}
	if schema == nil {
		return nil, errors.New("sqlsource: nil schema")
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	s := &Source{
		db:      db,
		schema:  schema,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Schema returns the table description.
func (s *Source) Schema() *Schema {
	return s.schema
}

func (s *Source) NewQuery() domain.Query {
	return &Query{source: s}
}

func (s *Source) table(alias string) (string, error) {
	return tableRef(s.schema.Table, alias)
}

func tableRef(table, alias string) (string, error) {
	quoted, err := quoteIdent(table)
	if err != nil {
		return "", err
	}
	return quoted + " AS " + alias, nil
}

func (s *Source) Find(ctx context.Context, id string) (domain.Record, error) {
	records, err := s.FindMany(ctx, []string{id})
	if err != nil {
		return domain.Record{}, err
	}
	if len(records) == 0 {
		return domain.Record{}, fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
	}
	return records[0], nil
}

func (s *Source) FindMany(ctx context.Context, ids []string) ([]domain.Record, error) {
	if len(ids) == 0 {
		return []domain.Record{}, nil
	}
	from, err := s.table(baseAlias)
	if err != nil {
		return nil, err
	}
	pk, err := s.schema.column(baseAlias, s.schema.primaryKey())
	if err != nil {
		return nil, err
	}
	keys := make([]any, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id)
	}
	query, args, err := s.builder.Select(baseAlias + ".*").From(from).Where(sq.Eq{pk: keys}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}
	records, err := scanRecords(rows, s.schema.primaryKey())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Record, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}
	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		if record, ok := byID[id]; ok {
			out = append(out, record)
		}
	}
	return out, nil
}

// Update sets a single direct column on one row.
func (s *Source) Update(ctx context.Context, id, field string, value any) error {
	fp, err := domain.ParseFieldPath(field)
	if err != nil {
		return err
	}
	if fp.Relational {
		return fmt.Errorf("cannot update relational field %s: %w", field, domain.ErrInvalidField)
	}
	if _, err := s.schema.column(baseAlias, field); err != nil {
		return err
	}
	column, _ := quoteIdent(field)
	pk, _ := quoteIdent(s.schema.primaryKey())
	table, _ := quoteIdent(s.schema.Table)

	query, args, err := s.builder.Update(table).Set(column, value).Where(sq.Eq{pk: id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
	}
	return nil
}

// scanRecords reads every row into a record keyed by pk. Byte slices are
// converted to strings.
func scanRecords(rows *sql.Rows, pk string) ([]domain.Record, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records []domain.Record
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		attributes := make(map[string]any, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				attributes[name] = string(b)
				continue
			}
			attributes[name] = values[i]
		}
		id := ""
		if v := attributes[pk]; v != nil {
			id = fmt.Sprint(v)
		}
		records = append(records, domain.Record{ID: id, Attributes: attributes})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return records, nil
}
