package domain

import "context"

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// ParseSortDirection maps anything other than "desc" to ascending.
func ParseSortDirection(s string) SortDirection {
	if SortDirection(s) == SortDirectionDesc {
		return SortDirectionDesc
	}
	return SortDirectionAsc
}

// Opposite flips the direction.
func (d SortDirection) Opposite() SortDirection {
	if d == SortDirectionDesc {
		return SortDirectionAsc
	}
	return SortDirectionDesc
}

// Query is an immutable query handle. Every method returns a new handle and
// leaves the receiver untouched, so a failed step can be skipped by keeping
// the previous value.
type Query interface {
	// With requests eager loading of relation paths.
	With(paths ...string) (Query, error)
	Where(cond Condition) (Query, error)
	OrderBy(field string, dir SortDirection) (Query, error)
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, limit, offset int) ([]Record, error)
}

// Source produces queries and performs single record reads and writes.
type Source interface {
	NewQuery() Query
	// Find returns ErrRecordNotFound when no record has the id.
	Find(ctx context.Context, id string) (Record, error)
	// FindMany returns the records that exist, in the order of ids.
	FindMany(ctx context.Context, ids []string) ([]Record, error)
	Update(ctx context.Context, id, field string, value any) error
}
