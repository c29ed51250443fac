package domain

import "strings"

// IDField addresses the record identifier in conditions, whatever the
// source calls its key.
const IDField = "id"

// Record is one row of a data source with its eagerly resolved relations.
type Record struct {
	ID         string             `json:"id"`
	Attributes map[string]any     `json:"attributes"`
	Related    map[string]Related `json:"related,omitempty"`
}

// Related holds the records reached through a single relation hop.
type Related struct {
	Many    bool     `json:"many"`
	Records []Record `json:"records"`
}

// NewRecord creates a record holding a copy of attributes.
func NewRecord(id string, attributes map[string]any) Record {
	return Record{
		ID:         id,
		Attributes: copyProperties(attributes),
	}
}

// One wraps a to-one related record. A nil pointer means the relation is empty.
func One(record *Record) Related {
	if record == nil {
		return Related{}
	}
	return Related{Records: []Record{*record}}
}

// Many wraps to-many related records.
func Many(records ...Record) Related {
	return Related{Many: true, Records: records}
}

// WithAttribute returns a new record with an added/updated attribute
func (r Record) WithAttribute(key string, value any) Record {
	attributes := copyProperties(r.Attributes)
	attributes[key] = value
	return Record{
		ID:         r.ID,
		Attributes: attributes,
		Related:    copyRelated(r.Related),
	}
}

// WithRelated returns a new record with the relation set
func (r Record) WithRelated(name string, related Related) Record {
	relations := copyRelated(r.Related)
	relations[name] = related
	return Record{
		ID:         r.ID,
		Attributes: copyProperties(r.Attributes),
		Related:    relations,
	}
}

// Attribute reads a direct attribute. The id is exposed as "id" when no
// attribute shadows it.
func (r Record) Attribute(name string) (any, bool) {
	if v, ok := r.Attributes[name]; ok {
		return v, true
	}
	if name == IDField {
		return r.ID, true
	}
	return nil, false
}

// Value resolves a field path against the record. Relational paths walk the
// loaded relations; a to-many hop yields a slice of the leaf values. Missing
// data resolves to nil.
func (r Record) Value(path string) any {
	if !strings.Contains(path, ".") {
		v, _ := r.Attribute(path)
		return v
	}
	head, rest, _ := strings.Cut(path, ".")
	related, ok := r.Related[head]
	if !ok || len(related.Records) == 0 {
		return nil
	}
	if !related.Many {
		return related.Records[0].Value(rest)
	}
	values := make([]any, 0, len(related.Records))
	for _, child := range related.Records {
		values = append(values, child.Value(rest))
	}
	return values
}

// RelatedRecords returns the records reached by walking a relation path.
func (r Record) RelatedRecords(path string) []Record {
	head, rest, nested := strings.Cut(path, ".")
	related, ok := r.Related[head]
	if !ok {
		return nil
	}
	if !nested {
		return related.Records
	}
	var out []Record
	for _, child := range related.Records {
		out = append(out, child.RelatedRecords(rest)...)
	}
	return out
}

// HasRelation reports whether the relation path was loaded on the record.
func (r Record) HasRelation(path string) bool {
	head, rest, nested := strings.Cut(path, ".")
	related, ok := r.Related[head]
	if !ok {
		return false
	}
	if !nested {
		return true
	}
	for _, child := range related.Records {
		if !child.HasRelation(rest) {
			return false
		}
	}
	return true
}

// RecordIDs returns the ids of records in order.
func RecordIDs(records []Record) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}

// copyProperties creates a shallow copy of an attribute map
func copyProperties(properties map[string]any) map[string]any {
	newProperties := make(map[string]any, len(properties))
	for k, v := range properties {
		newProperties[k] = v
	}
	return newProperties
}

func copyRelated(related map[string]Related) map[string]Related {
	out := make(map[string]Related, len(related))
	for k, v := range related {
		out[k] = v
	}
	return out
}
