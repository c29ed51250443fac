package sqlsource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/tablekit/internal/domain"
)

// relationTree is the nested form of a set of relation paths.
type relationTree map[string]relationTree

func buildTree(paths []string) relationTree {
	tree := relationTree{}
	for _, path := range paths {
		node := tree
		for _, segment := range strings.Split(path, ".") {
			child, ok := node[segment]
			if !ok {
				child = relationTree{}
				node[segment] = child
			}
			node = child
		}
	}
	return tree
}

// eagerLoader attaches related rows to fetched records. It creates one
// batched loader per relation path for the lifetime of a single Fetch.
type eagerLoader struct {
	source  *Source
	loaders map[string]*dataloader.Loader
}

func newEagerLoader(source *Source) *eagerLoader {
	return &eagerLoader{source: source, loaders: make(map[string]*dataloader.Loader)}
}

func (l *eagerLoader) load(ctx context.Context, schema *Schema, records []domain.Record, tree relationTree) ([]domain.Record, error) {
	return l.loadLevel(ctx, "", schema, records, tree)
}

func (l *eagerLoader) loadLevel(ctx context.Context, prefix string, schema *Schema, records []domain.Record, tree relationTree) ([]domain.Record, error) {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	out := append([]domain.Record(nil), records...)
	for _, name := range names {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		rel, target, err := schema.relation(path, name)
		if err != nil {
			return nil, err
		}
		parentKey, relatedKey := rel.keys(schema, target)
		loader := l.loaderFor(path, target, relatedKey)

		thunks := make([]dataloader.Thunk, len(out))
		for i, record := range out {
			key := record.Attributes[parentKey]
			if key == nil {
				continue
			}
			thunks[i] = loader.Load(ctx, dataloader.StringKey(fmt.Sprint(key)))
		}

		children := make([][]domain.Record, len(out))
		var flat []domain.Record
		for i, thunk := range thunks {
			if thunk == nil {
				continue
			}
			data, err := thunk()
			if err != nil {
				return nil, fmt.Errorf("failed to load relation %s: %w", path, err)
			}
			related, _ := data.([]domain.Record)
			if rel.Kind != HasMany && len(related) > 1 {
				related = related[:1]
			}
			children[i] = related
			flat = append(flat, related...)
		}

		if sub := tree[name]; len(sub) > 0 && len(flat) > 0 {
			loaded, err := l.loadLevel(ctx, path, target, flat, sub)
			if err != nil {
				return nil, err
			}
			offset := 0
			for i := range children {
				n := len(children[i])
				children[i] = loaded[offset : offset+n]
				offset += n
			}
		}

		for i := range out {
			out[i] = out[i].WithRelated(name, domain.Related{Many: rel.Kind.ToMany(), Records: children[i]})
		}
	}
	return out, nil
}

// loaderFor returns the batched loader for a relation path. Keys are values
// of relatedKey; each result is the slice of rows carrying that key.
func (l *eagerLoader) loaderFor(path string, target *Schema, relatedKey string) *dataloader.Loader {
	if loader, ok := l.loaders[path]; ok {
		return loader
	}

	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = k.String()
		}

		rows, err := l.fetchRelated(ctx, target, relatedKey, values)
		if err != nil {
			l.source.logger.Printf("[sqlsource] eager load of %s failed: %v", path, err)
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Group rows by key so results line up with the requested keys
		grouped := make(map[string][]domain.Record)
		for _, row := range rows {
			key := fmt.Sprint(row.Attributes[relatedKey])
			grouped[key] = append(grouped[key], row)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, k := range keys {
			results[i] = &dataloader.Result{Data: grouped[k.String()]}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond))
	l.loaders[path] = loader
	return loader
}

func (l *eagerLoader) fetchRelated(ctx context.Context, target *Schema, relatedKey string, keys []any) ([]domain.Record, error) {
	from, err := tableRef(target.Table, "t0")
	if err != nil {
		return nil, err
	}
	column, err := quoteIdent(relatedKey)
	if err != nil {
		return nil, err
	}
	pk, err := quoteIdent(target.primaryKey())
	if err != nil {
		return nil, err
	}
	query, args, err := l.source.builder.
		Select("t0.*").
		From(from).
		Where(sq.Eq{"t0." + column: keys}).
		OrderBy("t0." + pk + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build relation query: %w", err)
	}
	rows, err := l.source.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", target.Table, err)
	}
	return scanRecords(rows, target.primaryKey())
}
