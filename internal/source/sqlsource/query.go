package sqlsource

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rpattn/tablekit/internal/domain"
)

const baseAlias = "t0"

var lower = cases.Lower(language.Und)

type orderSpec struct {
	joins  []string
	column string
	dir    domain.SortDirection
}

// Query is an immutable query over a Source. Conditions are translated
// eagerly so that errors surface at the step that caused them.
type Query struct {
	source  *Source
	with    []string
	where   []sq.Sqlizer
	order   *orderSpec
	aliases int
}

func (q *Query) clone() *Query {
	return &Query{
		source:  q.source,
		with:    append([]string(nil), q.with...),
		where:   append([]sq.Sqlizer(nil), q.where...),
		order:   q.order,
		aliases: q.aliases,
	}
}

func (q *Query) nextAlias(prefix string) string {
	q.aliases++
	return fmt.Sprintf("%s%d", prefix, q.aliases)
}

// With requests relation paths to be loaded after Fetch. Every hop must be
// declared in the schema.
func (q *Query) With(paths ...string) (domain.Query, error) {
	for _, path := range paths {
		if err := q.source.checkRelationPath(path); err != nil {
			return q, err
		}
	}
	next := q.clone()
	for _, path := range paths {
		if !containsString(next.with, path) {
			next.with = append(next.with, path)
		}
	}
	return next, nil
}

func (s *Source) checkRelationPath(path string) error {
	if err := domain.ValidateFieldPath(path); err != nil {
		return err
	}
	schema := s.schema
	for _, name := range strings.Split(path, ".") {
		_, target, err := schema.relation(path, name)
		if err != nil {
			return err
		}
		schema = target
	}
	return nil
}

func (q *Query) Where(cond domain.Condition) (domain.Query, error) {
	next := q.clone()
	expr, err := next.translate(q.source.schema, baseAlias, cond)
	if err != nil {
		return q, err
	}
	next.where = append(next.where, expr)
	return next, nil
}

// translate turns a condition into SQL scoped to alias. Nested Exists
// conditions open correlated subqueries with fresh aliases.
func (q *Query) translate(schema *Schema, alias string, cond domain.Condition) (sq.Sqlizer, error) {
	switch c := cond.(type) {
	case domain.Compare:
		column, err := schema.column(alias, c.Field)
		if err != nil {
			return nil, err
		}
		return compareExpr(column, c.Op, c.Value)
	case domain.DateCompare:
		column, err := schema.column(alias, c.Field)
		if err != nil {
			return nil, err
		}
		op, err := sqlOperator(c.Op)
		if err != nil {
			return nil, err
		}
		return sq.Expr(fmt.Sprintf("DATE(%s) %s ?", column, op), c.Value), nil
	case domain.In:
		column, err := schema.column(alias, c.Field)
		if err != nil {
			return nil, err
		}
		return sq.Eq{column: append([]any{}, c.Values...)}, nil
	case domain.Exists:
		return q.exists(schema, alias, c)
	case domain.AnyOf:
		or := sq.Or{}
		for _, inner := range c {
			expr, err := q.translate(schema, alias, inner)
			if err != nil {
				return nil, err
			}
			or = append(or, expr)
		}
		return or, nil
	case domain.AllOf:
		and := sq.And{}
		for _, inner := range c {
			expr, err := q.translate(schema, alias, inner)
			if err != nil {
				return nil, err
			}
			and = append(and, expr)
		}
		return and, nil
	default:
		return nil, fmt.Errorf("unsupported condition %T", cond)
	}
}

// exists builds EXISTS (SELECT 1 FROM related AS rN WHERE link AND cond).
// The subquery uses ? placeholders; the outer builder rewrites them.
func (q *Query) exists(schema *Schema, alias string, c domain.Exists) (sq.Sqlizer, error) {
	rel, target, err := schema.relation(c.Relation, c.Relation)
	if err != nil {
		return nil, err
	}
	sub := q.nextAlias("r")
	from, err := tableRef(target.Table, sub)
	if err != nil {
		return nil, err
	}
	parentKey, relatedKey := rel.keys(schema, target)
	parentCol, err := quoteIdent(parentKey)
	if err != nil {
		return nil, err
	}
	relatedCol, err := quoteIdent(relatedKey)
	if err != nil {
		return nil, err
	}

	inner := sq.Select("1").From(from).
		Where(fmt.Sprintf("%s.%s = %s.%s", sub, relatedCol, alias, parentCol))
	if c.Where != nil {
		expr, err := q.translate(target, sub, c.Where)
		if err != nil {
			return nil, err
		}
		inner = inner.Where(expr)
	}
	sql, args, err := inner.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build exists subquery: %w", err)
	}
	return sq.Expr("EXISTS ("+sql+")", args...), nil
}

func sqlOperator(op domain.Operator) (string, error) {
	switch op {
	case domain.OpEqual, domain.OpGreater, domain.OpGreaterEqual, domain.OpLess, domain.OpLessEqual:
		return string(op), nil
	case domain.OpNotEqual:
		return "<>", nil
	default:
		return "", fmt.Errorf("unsupported operator %q", op)
	}
}

func compareExpr(column string, op domain.Operator, value any) (sq.Sqlizer, error) {
	switch op {
	case domain.OpEqual, "":
		return sq.Eq{column: value}, nil
	case domain.OpNotEqual:
		return sq.NotEq{column: value}, nil
	case domain.OpGreater:
		return sq.Gt{column: value}, nil
	case domain.OpGreaterEqual:
		return sq.GtOrEq{column: value}, nil
	case domain.OpLess:
		return sq.Lt{column: value}, nil
	case domain.OpLessEqual:
		return sq.LtOrEq{column: value}, nil
	case domain.OpLike:
		term := lower.String(fmt.Sprint(value))
		return sq.Expr(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '%s'", column, domain.LikeEscape), domain.LikePattern(term)), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
}

// OrderBy sorts by a direct column or through to-one relations joined with
// LEFT JOIN. A to-many hop would multiply rows and is rejected.
func (q *Query) OrderBy(field string, dir domain.SortDirection) (domain.Query, error) {
	fp, err := domain.ParseFieldPath(field)
	if err != nil {
		return q, err
	}
	next := q.clone()
	schema := q.source.schema
	alias := baseAlias
	var joins []string
	for _, name := range fp.Segments[:len(fp.Segments)-1] {
		rel, target, err := schema.relation(field, name)
		if err != nil {
			return q, err
		}
		if rel.Kind.ToMany() {
			return q, fmt.Errorf("cannot sort by %s: relation %s is to-many", field, name)
		}
		joinAlias := next.nextAlias("s")
		from, err := tableRef(target.Table, joinAlias)
		if err != nil {
			return q, err
		}
		parentKey, relatedKey := rel.keys(schema, target)
		parentCol, err := quoteIdent(parentKey)
		if err != nil {
			return q, err
		}
		relatedCol, err := quoteIdent(relatedKey)
		if err != nil {
			return q, err
		}
		joins = append(joins, fmt.Sprintf("%s ON %s.%s = %s.%s", from, joinAlias, relatedCol, alias, parentCol))
		schema = target
		alias = joinAlias
	}
	column, err := schema.column(alias, fp.Leaf)
	if err != nil {
		return q, err
	}
	next.order = &orderSpec{joins: joins, column: column, dir: dir}
	return next, nil
}

func (q *Query) filtered(builder sq.SelectBuilder) sq.SelectBuilder {
	for _, expr := range q.where {
		builder = builder.Where(expr)
	}
	return builder
}

// CountSQL returns the COUNT statement for the current conditions.
func (q *Query) CountSQL() (string, []any, error) {
	from, err := q.source.table(baseAlias)
	if err != nil {
		return "", nil, err
	}
	return q.filtered(q.source.builder.Select("COUNT(*)").From(from)).ToSql()
}

// SelectSQL returns the page statement. Only base columns are selected so
// sort joins never leak related columns into the record.
func (q *Query) SelectSQL(limit, offset int) (string, []any, error) {
	from, err := q.source.table(baseAlias)
	if err != nil {
		return "", nil, err
	}
	builder := q.source.builder.Select(baseAlias + ".*").From(from)
	if q.order != nil {
		for _, join := range q.order.joins {
			builder = builder.LeftJoin(join)
		}
	}
	builder = q.filtered(builder)
	pk, err := q.source.schema.column(baseAlias, q.source.schema.primaryKey())
	if err != nil {
		return "", nil, err
	}
	if q.order != nil {
		direction := "ASC"
		if q.order.dir == domain.SortDirectionDesc {
			direction = "DESC"
		}
		builder = builder.OrderBy(fmt.Sprintf("%s %s NULLS LAST", q.order.column, direction))
	}
	builder = builder.OrderBy(pk + " ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		if limit <= 0 {
			builder = builder.Limit(uint64(1<<63 - 1))
		}
		builder = builder.Offset(uint64(offset))
	}
	return builder.ToSql()
}

func (q *Query) Count(ctx context.Context) (int, error) {
	query, args, err := q.CountSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	rows, err := q.source.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()
	var total int
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, fmt.Errorf("failed to scan count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return total, nil
}

// Fetch runs the page statement and then loads the requested relations.
func (q *Query) Fetch(ctx context.Context, limit, offset int) ([]domain.Record, error) {
	query, args, err := q.SelectSQL(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}
	rows, err := q.source.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	records, err := scanRecords(rows, q.source.schema.primaryKey())
	if err != nil {
		return nil, err
	}
	if len(q.with) == 0 || len(records) == 0 {
		return records, nil
	}
	return newEagerLoader(q.source).load(ctx, q.source.schema, records, buildTree(q.with))
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
