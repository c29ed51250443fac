// Package memory implements the data source contract over an in-memory
// record set whose relations are already attached to each record.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/query"
)

// Source holds records in insertion order.
type Source struct {
	mu        sync.RWMutex
	records   []domain.Record
	relations map[string]bool
}

// Option configures a Source.
type Option func(*Source)

// WithRelations declares the relation paths the records carry and whether
// each is to-many. Once declared, unknown relations are rejected.
func WithRelations(relations map[string]bool) Option {
	return func(s *Source) {
		s.relations = make(map[string]bool, len(relations))
		for path, many := range relations {
			s.relations[path] = many
		}
	}
}

// New creates a source over a copy of records.
func New(records []domain.Record, opts ...Option) *Source {
	s := &Source{records: append([]domain.Record(nil), records...)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) NewQuery() domain.Query {
	return &Query{source: s}
}

func (s *Source) snapshot() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Record(nil), s.records...)
}

func (s *Source) Find(_ context.Context, id string) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return domain.Record{}, fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
}

func (s *Source) FindMany(_ context.Context, ids []string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := make(map[string]domain.Record, len(s.records))
	for _, record := range s.records {
		index[record.ID] = record
	}
	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		if record, ok := index[id]; ok {
			out = append(out, record)
		}
	}
	return out, nil
}

// Update replaces the record with a copy carrying the new attribute value.
// Relational fields cannot be updated.
func (s *Source) Update(_ context.Context, id, field string, value any) error {
	fp, err := domain.ParseFieldPath(field)
	if err != nil {
		return err
	}
	if fp.Relational {
		return fmt.Errorf("cannot update relational field %s on record %s: %w", field, id, domain.ErrInvalidField)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, record := range s.records {
		if record.ID == id {
			s.records[i] = record.WithAttribute(field, value)
			return nil
		}
	}
	return fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
}

// checkRelation validates a relation path against the declared relations.
func (s *Source) checkRelation(path string) error {
	if s.relations == nil {
		return nil
	}
	if _, ok := s.relations[path]; !ok {
		return domain.UnknownRelationshipError(path, path)
	}
	return nil
}

// toMany reports whether any hop of a relation path is to-many.
func (s *Source) toMany(records []domain.Record, relationPath string) bool {
	fp, err := domain.ParseFieldPath(relationPath + ".x")
	if err != nil {
		return false
	}
	for _, prefix := range fp.Ancestors {
		if many, ok := s.relations[prefix]; ok {
			if many {
				return true
			}
			continue
		}
		for _, record := range records {
			if hopIsMany(record, prefix) {
				return true
			}
		}
	}
	return false
}

func hopIsMany(record domain.Record, path string) bool {
	head, rest, nested := strings.Cut(path, ".")
	related, ok := record.Related[head]
	if !ok {
		return false
	}
	if !nested {
		return related.Many
	}
	for _, child := range related.Records {
		if hopIsMany(child, rest) {
			return true
		}
	}
	return false
}

type sortKey struct {
	field string
	dir   domain.SortDirection
}

// Query is an immutable query over a Source.
type Query struct {
	source *Source
	with   []string
	where  []domain.Condition
	order  *sortKey
}

func (q *Query) clone() *Query {
	return &Query{
		source: q.source,
		with:   append([]string(nil), q.with...),
		where:  append([]domain.Condition(nil), q.where...),
		order:  q.order,
	}
}

// With validates relation paths; the records already carry their relations.
func (q *Query) With(paths ...string) (domain.Query, error) {
	for _, path := range paths {
		if err := domain.ValidateFieldPath(path); err != nil {
			return q, err
		}
		if err := q.source.checkRelation(path); err != nil {
			return q, err
		}
	}
	next := q.clone()
	next.with = append(next.with, paths...)
	return next, nil
}

func (q *Query) Where(cond domain.Condition) (domain.Query, error) {
	if err := q.validate(cond); err != nil {
		return q, err
	}
	next := q.clone()
	next.where = append(next.where, cond)
	return next, nil
}

func (q *Query) validate(cond domain.Condition) error {
	switch c := cond.(type) {
	case domain.Exists:
		if err := q.source.checkRelation(c.Relation); err != nil {
			return err
		}
		if c.Where == nil {
			return nil
		}
		return q.validateNested(c.Relation, c.Where)
	case domain.AnyOf:
		for _, inner := range c {
			if err := q.validate(inner); err != nil {
				return err
			}
		}
	case domain.AllOf:
		for _, inner := range c {
			if err := q.validate(inner); err != nil {
				return err
			}
		}
	case nil:
		return fmt.Errorf("nil condition: %w", domain.ErrInvalidField)
	}
	return nil
}

func (q *Query) validateNested(prefix string, cond domain.Condition) error {
	switch c := cond.(type) {
	case domain.Exists:
		path := prefix + "." + c.Relation
		if err := q.source.checkRelation(path); err != nil {
			return err
		}
		if c.Where == nil {
			return nil
		}
		return q.validateNested(path, c.Where)
	case domain.AnyOf:
		for _, inner := range c {
			if err := q.validateNested(prefix, inner); err != nil {
				return err
			}
		}
	case domain.AllOf:
		for _, inner := range c {
			if err := q.validateNested(prefix, inner); err != nil {
				return err
			}
		}
	}
	return nil
}

// OrderBy sorts by a direct or to-one relational field. Sorting across a
// to-many hop is rejected because it has no single value per row.
func (q *Query) OrderBy(field string, dir domain.SortDirection) (domain.Query, error) {
	fp, err := domain.ParseFieldPath(field)
	if err != nil {
		return q, err
	}
	if fp.Relational {
		if err := q.source.checkRelation(fp.Owner); err != nil {
			return q, err
		}
		if q.source.toMany(q.source.snapshot(), fp.Owner) {
			return q, fmt.Errorf("cannot sort by %s: relation %s is to-many", field, fp.Owner)
		}
	}
	next := q.clone()
	next.order = &sortKey{field: field, dir: dir}
	return next, nil
}

func (q *Query) Count(_ context.Context) (int, error) {
	return len(q.evaluate()), nil
}

func (q *Query) Fetch(_ context.Context, limit, offset int) ([]domain.Record, error) {
	return query.Slice(q.evaluate(), limit, offset), nil
}

func (q *Query) evaluate() []domain.Record {
	records := q.source.snapshot()
	matched := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if q.matchesAll(record) {
			matched = append(matched, record)
		}
	}
	if q.order != nil {
		sortRecords(matched, q.order.field, q.order.dir)
	}
	return matched
}

func (q *Query) matchesAll(record domain.Record) bool {
	for _, cond := range q.where {
		if !Matches(record, cond) {
			return false
		}
	}
	return true
}

// Matches evaluates a condition against a record.
func Matches(record domain.Record, cond domain.Condition) bool {
	switch c := cond.(type) {
	case domain.Compare:
		value, _ := record.Attribute(c.Field)
		return matchOperator(c.Op, value, c.Value)
	case domain.DateCompare:
		value, _ := record.Attribute(c.Field)
		day, ok := datePart(value)
		if !ok {
			return false
		}
		return matchOperator(c.Op, day, c.Value)
	case domain.In:
		value, _ := record.Attribute(c.Field)
		for _, candidate := range c.Values {
			if matchOperator(domain.OpEqual, value, candidate) {
				return true
			}
		}
		return false
	case domain.Exists:
		related := record.Related[c.Relation]
		for _, child := range related.Records {
			if c.Where == nil || Matches(child, c.Where) {
				return true
			}
		}
		return false
	case domain.AnyOf:
		for _, inner := range c {
			if Matches(record, inner) {
				return true
			}
		}
		return false
	case domain.AllOf:
		for _, inner := range c {
			if !Matches(record, inner) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// sortRecords orders records stably by field with nil values last in both
// directions.
func sortRecords(records []domain.Record, field string, dir domain.SortDirection) {
	sort.SliceStable(records, func(i, j int) bool {
		left := records[i].Value(field)
		right := records[j].Value(field)
		switch {
		case left == nil && right == nil:
			return false
		case left == nil:
			return false
		case right == nil:
			return true
		}
		cmp := compareValues(left, right)
		if dir == domain.SortDirectionDesc {
			return cmp > 0
		}
		return cmp < 0
	})
}
