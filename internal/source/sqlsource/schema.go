package sqlsource

import (
	"fmt"
	"regexp"

	"github.com/rpattn/tablekit/internal/domain"
)

// RelationKind describes the cardinality and key placement of a relation.
type RelationKind string

const (
	// BelongsTo: the parent row holds ForeignKey pointing at OwnerKey of the related row.
	BelongsTo RelationKind = "belongs_to"
	// HasOne: the related row holds ForeignKey pointing at OwnerKey of the parent.
	HasOne RelationKind = "has_one"
	// HasMany: like HasOne with any number of related rows.
	HasMany RelationKind = "has_many"
)

// ParseRelationKind accepts the snake case kind names.
func ParseRelationKind(s string) (RelationKind, error) {
	switch kind := RelationKind(s); kind {
	case BelongsTo, HasOne, HasMany:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown relation kind %q", s)
	}
}

// ToMany reports whether the relation can yield more than one row.
func (k RelationKind) ToMany() bool {
	return k == HasMany
}

// Relation links a table to a related table.
type Relation struct {
	Kind       RelationKind
	Table      string
	ForeignKey string
	// OwnerKey defaults to "id" for BelongsTo and to the parent primary key otherwise.
	OwnerKey string
	// Schema describes the related table's own relations. Nil means a plain
	// table keyed by "id".
	Schema *Schema
}

// Schema describes a table the source reads.
type Schema struct {
	Table      string
	PrimaryKey string
	// Columns optionally restricts the columns conditions and sorts may use.
	Columns   []string
	Relations map[string]Relation
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent validates and double quotes an identifier.
func quoteIdent(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q: %w", name, domain.ErrInvalidField)
	}
	return `"` + name + `"`, nil
}

func (s *Schema) primaryKey() string {
	if s == nil || s.PrimaryKey == "" {
		return "id"
	}
	return s.PrimaryKey
}

// column returns the alias qualified, quoted column reference.
func (s *Schema) column(alias, name string) (string, error) {
	if name == domain.IDField {
		name = s.primaryKey()
	}
	quoted, err := quoteIdent(name)
	if err != nil {
		return "", err
	}
	if s != nil && len(s.Columns) > 0 && name != s.primaryKey() {
		found := false
		for _, c := range s.Columns {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("unknown column %q on %s: %w", name, s.Table, domain.ErrInvalidField)
		}
	}
	return alias + "." + quoted, nil
}

// relation resolves a single relation hop.
func (s *Schema) relation(path, name string) (Relation, *Schema, error) {
	if s == nil {
		return Relation{}, nil, domain.UnknownRelationshipError(path, name)
	}
	rel, ok := s.Relations[name]
	if !ok {
		return Relation{}, nil, domain.UnknownRelationshipError(path, name)
	}
	target := rel.Schema
	if target == nil {
		target = &Schema{Table: rel.Table, PrimaryKey: "id"}
	}
	if target.Table == "" {
		copied := *target
		copied.Table = rel.Table
		target = &copied
	}
	return rel, target, nil
}

// keys returns the parent and related column names that link the relation.
func (r Relation) keys(parent, related *Schema) (parentKey, relatedKey string) {
	switch r.Kind {
	case BelongsTo:
		owner := r.OwnerKey
		if owner == "" {
			owner = related.primaryKey()
		}
		return r.ForeignKey, owner
	default:
		owner := r.OwnerKey
		if owner == "" {
			owner = parent.primaryKey()
		}
		return owner, r.ForeignKey
	}
}

// Validate checks identifiers and relation kinds recursively.
func (s *Schema) Validate() error {
	return s.validate(map[*Schema]bool{})
}

func (s *Schema) validate(seen map[*Schema]bool) error {
	if seen[s] {
		return nil
	}
	seen[s] = true
	if _, err := quoteIdent(s.Table); err != nil {
		return fmt.Errorf("schema table: %w", err)
	}
	if _, err := quoteIdent(s.primaryKey()); err != nil {
		return fmt.Errorf("schema %s primary key: %w", s.Table, err)
	}
	for name, rel := range s.Relations {
		if _, err := ParseRelationKind(string(rel.Kind)); err != nil {
			return fmt.Errorf("relation %s.%s: %w", s.Table, name, err)
		}
		if rel.ForeignKey == "" {
			return fmt.Errorf("relation %s.%s: missing foreign key", s.Table, name)
		}
		for _, ident := range []string{rel.Table, rel.ForeignKey} {
			if _, err := quoteIdent(ident); err != nil {
				return fmt.Errorf("relation %s.%s: %w", s.Table, name, err)
			}
		}
		if rel.Schema != nil {
			if err := rel.Schema.validate(seen); err != nil {
				return err
			}
		}
	}
	return nil
}
