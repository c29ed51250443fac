package query

import (
	"context"
	"fmt"

	"github.com/rpattn/tablekit/internal/domain"
)

// Query and Source are declared next to the condition model; the aliases keep
// call sites reading naturally.
type (
	Query  = domain.Query
	Source = domain.Source
)

// Page is one slice of a counted result set.
type Page struct {
	Items       []domain.Record `json:"items"`
	Total       int             `json:"total"`
	CurrentPage int             `json:"current_page"`
	LastPage    int             `json:"last_page"`
	PerPage     int             `json:"per_page"`
	From        int             `json:"from"`
	To          int             `json:"to"`
}

// HasMorePages reports whether pages follow the current one.
func (p Page) HasMorePages() bool {
	return p.CurrentPage < p.LastPage
}

// IDs returns the ids of the page items in order.
func (p Page) IDs() []string {
	return domain.RecordIDs(p.Items)
}

// LastPageFor returns the number of the last page, at least 1.
func LastPageFor(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// Paginate counts q and fetches the requested page. A page beyond the last
// one is clamped to the last page, so an emptied page shows the final rows
// instead of nothing.
func Paginate(ctx context.Context, q Query, perPage, page int) (Page, error) {
	if perPage <= 0 {
		perPage = domain.DefaultPerPage
	}
	if page < 1 {
		page = 1
	}

	total, err := q.Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("failed to count records: %w", err)
	}

	last := LastPageFor(total, perPage)
	if page > last {
		page = last
	}

	offset := (page - 1) * perPage
	items := []domain.Record{}
	if total > 0 {
		items, err = q.Fetch(ctx, perPage, offset)
		if err != nil {
			return Page{}, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
	}

	result := Page{
		Items:       items,
		Total:       total,
		CurrentPage: page,
		LastPage:    last,
		PerPage:     perPage,
	}
	if len(items) > 0 {
		result.From = offset + 1
		result.To = offset + len(items)
	}
	return result, nil
}

// Slice applies limit and offset to an already ordered record set. A
// non-positive limit returns everything after offset.
func Slice(records []domain.Record, limit, offset int) []domain.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []domain.Record{}
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return records[offset:end]
}
