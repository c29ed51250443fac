package presets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/rpattn/tablekit/internal/domain"
)

const (
	lockTimeout   = 3 * time.Second
	lockRetryWait = 100 * time.Millisecond
)

// FileStore keeps presets in a JSON file guarded by a cross-process lock.
type FileStore struct {
	path     string
	fileLock *flock.Flock
	mu       sync.Mutex
}

type fileData struct {
	Presets   []domain.FilterPreset `json:"presets"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		fileLock: flock.New(path + ".lock"),
	}
}

func (s *FileStore) Create(ctx context.Context, preset domain.FilterPreset) (domain.FilterPreset, error) {
	err := s.update(ctx, func(data *fileData) error {
		if preset.ID == uuid.Nil {
			preset.ID = uuid.New()
		}
		for i, p := range data.Presets {
			if p.ID == preset.ID {
				return fmt.Errorf("preset %s already exists", preset.ID)
			}
			if preset.IsDefault && p.IsDefault && p.OwnerID == preset.OwnerID && p.TableName == preset.TableName {
				data.Presets[i].IsDefault = false
			}
		}
		data.Presets = append(data.Presets, preset)
		return nil
	})
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to create preset: %w", err)
	}
	return preset, nil
}

func (s *FileStore) Get(ctx context.Context, id uuid.UUID) (domain.FilterPreset, error) {
	data, err := s.read(ctx)
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to get preset: %w", err)
	}
	for _, p := range data.Presets {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.FilterPreset{}, fmt.Errorf("preset %s: %w", id, domain.ErrRecordNotFound)
}

func (s *FileStore) ListByOwner(ctx context.Context, owner, table string) ([]domain.FilterPreset, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	out := make([]domain.FilterPreset, 0)
	for _, p := range data.Presets {
		if p.OwnerID == owner && p.TableName == table {
			out = append(out, p)
		}
	}
	sortPresets(out)
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.update(ctx, func(data *fileData) error {
		for i, p := range data.Presets {
			if p.ID == id {
				data.Presets = append(data.Presets[:i], data.Presets[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("preset %s: %w", id, domain.ErrRecordNotFound)
	})
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	return nil
}

func (s *FileStore) DefaultFor(ctx context.Context, owner, table string) (domain.FilterPreset, bool, error) {
	presets, err := s.ListByOwner(ctx, owner, table)
	if err != nil {
		return domain.FilterPreset{}, false, err
	}
	preset, ok := defaultPreset(presets)
	return preset, ok, nil
}

func (s *FileStore) read(ctx context.Context) (fileData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return fileData{}, err
	}
	defer unlock()

	return s.load()
}

// update runs fn against the file contents under the lock and writes the
// result back only when fn succeeds.
func (s *FileStore) update(ctx context.Context, fn func(*fileData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(&data); err != nil {
		return err
	}
	data.UpdatedAt = time.Now().UTC()
	return s.save(data)
}

func (s *FileStore) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, errors.New("could not acquire file lock")
	}
	return func() { _ = s.fileLock.Unlock() }, nil
}

func (s *FileStore) load() (fileData, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileData{}, nil
	}
	if err != nil {
		return fileData{}, fmt.Errorf("failed to read file: %w", err)
	}
	if len(raw) == 0 {
		return fileData{}, nil
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fileData{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return data, nil
}

// save writes through a temporary file so readers never see a partial file.
func (s *FileStore) save(data fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
