package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxPresetNameLength bounds preset names in characters.
const MaxPresetNameLength = 255

// FilterPreset is a named, user owned snapshot of a table's filter values.
type FilterPreset struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   string         `json:"owner_id"`
	TableName string         `json:"table_name"`
	Name      string         `json:"name"`
	Filters   map[string]any `json:"filters"`
	IsDefault bool           `json:"is_default"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewFilterPreset validates the name and creates a preset with a fresh id.
func NewFilterPreset(ownerID, tableName, name string, filters map[string]any, isDefault bool) (FilterPreset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return FilterPreset{}, &ValidationError{Field: "name", Messages: []string{"The name field is required."}}
	}
	if utf8.RuneCountInString(name) > MaxPresetNameLength {
		return FilterPreset{}, &ValidationError{Field: "name", Messages: []string{
			fmt.Sprintf("The name field must not be greater than %d characters.", MaxPresetNameLength),
		}}
	}
	now := time.Now().UTC()
	return FilterPreset{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		TableName: tableName,
		Name:      name,
		Filters:   copyProperties(filters),
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OwnedBy reports whether owner may read or delete the preset.
func (p FilterPreset) OwnedBy(owner string) bool {
	return p.OwnerID == owner
}

// FiltersToJSON marshals the filter snapshot into its stored layout.
func (p FilterPreset) FiltersToJSON() (json.RawMessage, error) {
	filters := p.Filters
	if filters == nil {
		filters = map[string]any{}
	}
	return json.Marshal(filters)
}

// PresetFiltersFromJSON unmarshals a stored filter snapshot.
func PresetFiltersFromJSON(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var filters map[string]any
	if err := json.Unmarshal(data, &filters); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = map[string]any{}
	}
	return filters, nil
}
