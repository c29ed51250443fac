package domain

import "strings"

// FieldPath is a parsed field reference. A direct field has no dots; a
// relational path "a.b.c" traverses relation a, then b, and reads leaf c.
type FieldPath struct {
	Raw        string
	Segments   []string
	Relational bool
	// Ancestors holds the successive relation prefixes, excluding the full path.
	Ancestors []string
	// Owner is the relation path that owns the leaf ("" for direct fields).
	Owner string
	Leaf  string
}

// ParseFieldPath validates and decomposes a field reference.
func ParseFieldPath(path string) (FieldPath, error) {
	if err := ValidateFieldPath(path); err != nil {
		return FieldPath{}, err
	}

	segments := strings.Split(path, ".")
	fp := FieldPath{
		Raw:        path,
		Segments:   segments,
		Relational: len(segments) > 1,
		Leaf:       segments[len(segments)-1],
	}
	if !fp.Relational {
		return fp, nil
	}

	fp.Ancestors = make([]string, 0, len(segments)-1)
	current := ""
	for _, segment := range segments[:len(segments)-1] {
		if current == "" {
			current = segment
		} else {
			current = current + "." + segment
		}
		fp.Ancestors = append(fp.Ancestors, current)
	}
	fp.Owner = current
	return fp, nil
}

// ParseRelationPath is ParseFieldPath for callers that require a relation.
func ParseRelationPath(path string) (FieldPath, error) {
	fp, err := ParseFieldPath(path)
	if err != nil {
		return FieldPath{}, err
	}
	if !fp.Relational {
		return FieldPath{}, invalidField(path, "invalid relationship field")
	}
	return fp, nil
}

// ValidateFieldPath rejects empty paths, consecutive dots and leading or
// trailing dots.
func ValidateFieldPath(path string) error {
	if path == "" {
		return invalidField(path, "field cannot be empty")
	}
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return invalidField(path, "cannot start or end with a dot")
	}
	if strings.Contains(path, "..") {
		return invalidField(path, "consecutive dots")
	}
	return nil
}

// IsRelational reports whether path is a well formed relationship path.
func IsRelational(path string) bool {
	fp, err := ParseFieldPath(path)
	return err == nil && fp.Relational
}

// RelationPath returns the owning relation path of a field, or "" for direct
// and malformed fields.
func RelationPath(path string) string {
	fp, err := ParseFieldPath(path)
	if err != nil {
		return ""
	}
	return fp.Owner
}

// LeafName returns the final attribute name of a field path.
func LeafName(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// Relation returns the first relation hop ("" for direct fields).
func (fp FieldPath) Relation() string {
	if !fp.Relational {
		return ""
	}
	return fp.Segments[0]
}

// Rest returns the remainder of the path after the first relation hop.
func (fp FieldPath) Rest() string {
	if !fp.Relational {
		return fp.Raw
	}
	return strings.Join(fp.Segments[1:], ".")
}

// Depth is the number of relation hops.
func (fp FieldPath) Depth() int {
	return len(fp.Segments) - 1
}
