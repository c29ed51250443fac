// Package presets persists named filter snapshots and applies them to view
// state.
package presets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rpattn/tablekit/internal/domain"
)

// Store is the keyed persistence behind saved filter presets.
type Store interface {
	// Create stores a preset. When the preset is a default, any previous
	// default of the same owner and table is cleared in the same operation.
	Create(ctx context.Context, preset domain.FilterPreset) (domain.FilterPreset, error)
	Get(ctx context.Context, id uuid.UUID) (domain.FilterPreset, error)
	// ListByOwner returns the owner's presets for a table ordered by name.
	ListByOwner(ctx context.Context, owner, table string) ([]domain.FilterPreset, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DefaultFor returns the owner's default preset for a table, if any.
	DefaultFor(ctx context.Context, owner, table string) (domain.FilterPreset, bool, error)
}

// MemoryStore keeps presets in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	presets map[uuid.UUID]domain.FilterPreset
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{presets: make(map[uuid.UUID]domain.FilterPreset)}
}

func (s *MemoryStore) Create(_ context.Context, preset domain.FilterPreset) (domain.FilterPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if preset.ID == uuid.Nil {
		preset.ID = uuid.New()
	}
	if _, exists := s.presets[preset.ID]; exists {
		return domain.FilterPreset{}, fmt.Errorf("preset %s already exists", preset.ID)
	}
	if preset.IsDefault {
		clearDefaults(s.presets, preset.OwnerID, preset.TableName)
	}
	s.presets[preset.ID] = preset
	return preset, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (domain.FilterPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	preset, ok := s.presets[id]
	if !ok {
		return domain.FilterPreset{}, fmt.Errorf("preset %s: %w", id, domain.ErrRecordNotFound)
	}
	return preset, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner, table string) ([]domain.FilterPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterPresets(s.presets, owner, table), nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presets[id]; !ok {
		return fmt.Errorf("preset %s: %w", id, domain.ErrRecordNotFound)
	}
	delete(s.presets, id)
	return nil
}

func (s *MemoryStore) DefaultFor(_ context.Context, owner, table string) (domain.FilterPreset, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	preset, ok := defaultPreset(filterPresets(s.presets, owner, table))
	return preset, ok, nil
}

func clearDefaults(presets map[uuid.UUID]domain.FilterPreset, owner, table string) {
	for id, p := range presets {
		if p.IsDefault && p.OwnerID == owner && p.TableName == table {
			p.IsDefault = false
			presets[id] = p
		}
	}
}

func filterPresets(presets map[uuid.UUID]domain.FilterPreset, owner, table string) []domain.FilterPreset {
	out := make([]domain.FilterPreset, 0)
	for _, p := range presets {
		if p.OwnerID == owner && p.TableName == table {
			out = append(out, p)
		}
	}
	sortPresets(out)
	return out
}

func sortPresets(presets []domain.FilterPreset) {
	sort.SliceStable(presets, func(i, j int) bool {
		if presets[i].Name != presets[j].Name {
			return presets[i].Name < presets[j].Name
		}
		return presets[i].CreatedAt.Before(presets[j].CreatedAt)
	})
}

func defaultPreset(presets []domain.FilterPreset) (domain.FilterPreset, bool) {
	for _, p := range presets {
		if p.IsDefault {
			return p, true
		}
	}
	return domain.FilterPreset{}, false
}
