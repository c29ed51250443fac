package table

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rpattn/tablekit/internal/domain"
)

// Registry holds engines by table name.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// Register adds an engine under its definition name.
func (r *Registry) Register(e *Engine) error {
	name := e.Definition().Name()
	if name == "" {
		return fmt.Errorf("failed to register table: %w", domain.ErrInvalidField)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("table %q already registered", name)
	}
	r.engines[name] = e
	return nil
}

func (r *Registry) Engine(name string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Names returns the registered table names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
