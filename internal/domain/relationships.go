package domain

import (
	"log"
	"sort"
	"strings"
)

// CollectAncestors returns the relation prefixes that must be eagerly loaded
// for the given columns. The result is unique and ordered by depth, then
// lexically. Invalid field paths are logged and skipped.
func CollectAncestors(logger *log.Logger, columns []Column) []string {
	paths := make([]string, 0, len(columns))
	for _, column := range columns {
		paths = append(paths, column.Field)
	}
	return collectPaths(logger, paths, false)
}

// EagerLoadPaths returns every relation path the definition needs: the
// ancestors of its columns plus the sub-row relation and its prefixes.
func EagerLoadPaths(logger *log.Logger, def Definition) []string {
	paths := make([]string, 0, len(def.columns)+1)
	for _, column := range def.columns {
		paths = append(paths, column.Field)
	}
	out := collectPaths(logger, paths, false)
	if def.subRows != nil && def.subRows.Relation != "" && !def.subRows.Lazy {
		out = mergePaths(out, collectPaths(logger, []string{def.subRows.Relation}, true))
	}
	return out
}

// collectPaths gathers ancestors of each path. When includeSelf is set the
// path itself is treated as a relation and included.
func collectPaths(logger *log.Logger, paths []string, includeSelf bool) []string {
	if logger == nil {
		logger = log.Default()
	}
	seen := make(map[string]struct{})
	for _, path := range paths {
		fp, err := ParseFieldPath(path)
		if err != nil {
			logger.Printf("[relationships] skipping field %q: %v", path, err)
			continue
		}
		for _, ancestor := range fp.Ancestors {
			seen[ancestor] = struct{}{}
		}
		if includeSelf {
			seen[fp.Raw] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sortPaths(out)
	return out
}

func mergePaths(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, path := range list {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			out = append(out, path)
		}
	}
	sortPaths(out)
	return out
}

func sortPaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		di := strings.Count(paths[i], ".")
		dj := strings.Count(paths[j], ".")
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
}

// PrefixClosed reports whether every prefix of every path is also present.
func PrefixClosed(paths []string) bool {
	set := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		set[path] = struct{}{}
	}
	for _, path := range paths {
		for i := 0; i < len(path); i++ {
			if path[i] != '.' {
				continue
			}
			if _, ok := set[path[:i]]; !ok {
				return false
			}
		}
	}
	return true
}

// EagerPrefixes returns relation and each of its prefixes, shallowest first.
func EagerPrefixes(relation string) []string {
	segments := strings.Split(relation, ".")
	out := make([]string, 0, len(segments))
	for i := range segments {
		out = append(out, strings.Join(segments[:i+1], "."))
	}
	return out
}
