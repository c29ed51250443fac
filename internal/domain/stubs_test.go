package domain

import "context"

type stubSource struct {
	updates []stubUpdate
}

type stubUpdate struct {
	id, field string
	value     any
}

func (stubSource) NewQuery() Query { return recordingQuery{} }

func (stubSource) Find(context.Context, string) (Record, error) {
	return Record{}, ErrRecordNotFound
}

func (stubSource) FindMany(context.Context, []string) ([]Record, error) { return nil, nil }

func (s *stubSource) Update(_ context.Context, id, field string, value any) error {
	s.updates = append(s.updates, stubUpdate{id: id, field: field, value: value})
	return nil
}

// recordingQuery collects the conditions applied to it.
type recordingQuery struct {
	conds []Condition
}

func (q recordingQuery) With(...string) (Query, error) { return q, nil }

func (q recordingQuery) Where(cond Condition) (Query, error) {
	next := append(append([]Condition(nil), q.conds...), cond)
	return recordingQuery{conds: next}, nil
}

func (q recordingQuery) OrderBy(string, SortDirection) (Query, error) { return q, nil }

func (q recordingQuery) Count(context.Context) (int, error) { return 0, nil }

func (q recordingQuery) Fetch(context.Context, int, int) ([]Record, error) { return nil, nil }
