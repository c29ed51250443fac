package presets

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rpattn/tablekit/internal/domain"
)

// Service applies preset operations to view state on behalf of an owner.
type Service struct {
	store  Store
	logger *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for preset warnings.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a preset service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save snapshots filters under name. Making the preset the default clears
// the owner's previous default for the table.
func (s *Service) Save(ctx context.Context, owner, table, name string, filters map[string]any, makeDefault bool) (domain.FilterPreset, error) {
	preset, err := domain.NewFilterPreset(owner, table, name, filters, makeDefault)
	if err != nil {
		return domain.FilterPreset{}, err
	}
	created, err := s.store.Create(ctx, preset)
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to save preset %q: %w", preset.Name, err)
	}
	return created, nil
}

// List returns the owner's presets for a table.
func (s *Service) List(ctx context.Context, owner, table string) ([]domain.FilterPreset, error) {
	presets, err := s.store.ListByOwner(ctx, owner, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets for %s: %w", table, err)
	}
	return presets, nil
}

// Load replaces the state's filters with the preset's, marks it active and
// resets the page. Presets owned by someone else are rejected and the state
// is returned unchanged.
func (s *Service) Load(ctx context.Context, owner string, id uuid.UUID, state domain.ViewState) (domain.ViewState, error) {
	preset, err := s.owned(ctx, owner, id)
	if err != nil {
		return state, err
	}
	return state.WithActivePreset(preset.ID, preset.Filters), nil
}

// Delete removes an owned preset. When it was the active preset, the active
// preset and the filters are cleared in the returned state.
func (s *Service) Delete(ctx context.Context, owner string, id uuid.UUID, state domain.ViewState) (domain.ViewState, error) {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return state, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return state, fmt.Errorf("failed to delete preset %s: %w", id, err)
	}
	if state.ActivePresetID == id {
		return state.WithActivePreset(uuid.Nil, nil), nil
	}
	return state, nil
}

// ApplyDefault loads the owner's default preset for a table when the state
// has no active preset yet. A missing default leaves the state unchanged.
func (s *Service) ApplyDefault(ctx context.Context, owner, table string, state domain.ViewState) (domain.ViewState, error) {
	if state.HasActivePreset() {
		return state, nil
	}
	preset, ok, err := s.store.DefaultFor(ctx, owner, table)
	if err != nil {
		return state, fmt.Errorf("failed to load default preset for %s: %w", table, err)
	}
	if !ok {
		return state, nil
	}
	return state.WithActivePreset(preset.ID, preset.Filters), nil
}

func (s *Service) owned(ctx context.Context, owner string, id uuid.UUID) (domain.FilterPreset, error) {
	preset, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return domain.FilterPreset{}, fmt.Errorf("failed to get preset %s: %w", id, err)
		}
		return domain.FilterPreset{}, err
	}
	if !preset.OwnedBy(owner) {
		s.logger.Printf("[presets] owner %q denied access to preset %s", owner, id)
		return domain.FilterPreset{}, fmt.Errorf("preset %s: %w", id, domain.ErrNotAuthorized)
	}
	return preset, nil
}
