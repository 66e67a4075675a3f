package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCategory indicates a request named a category with no registered
// engine.
var ErrUnknownCategory = errors.New("unknown category")

// Registry maps category names to their compiled engines. Registration
// happens once at startup; lookups are concurrent and read-only afterwards.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// Register adds an engine under its hook's name. Registering the same
// category twice is a wiring bug and returns an error rather than silently
// replacing the earlier engine.
func (r *Registry) Register(e *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.hook.Name()
	if name == "" {
		return errors.New("hook has empty category name")
	}
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("category %q already registered", name)
	}
	r.engines[name] = e
	return nil
}

// Lookup returns the engine for a category.
func (r *Registry) Lookup(category string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.engines[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return e, nil
}

// Categories returns the registered category names, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
