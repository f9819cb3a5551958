package source

import (
	"fmt"
	"sync"
)

// Registry holds all registered source adapters keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[Name]Source
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[Name]Source),
	}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get returns a source by name, or nil if not registered.
func (r *Registry) Get(name Name) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// Lookup is Get with an error for unregistered names.
func (r *Registry) Lookup(name string) (Source, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	s := r.Get(n)
	if s == nil {
		return nil, fmt.Errorf("source %s is not configured", n)
	}
	return s, nil
}

// All returns all registered sources in a stable order.
func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Source
	for _, name := range AllNames() {
		if s, ok := r.sources[name]; ok {
			result = append(result, s)
		}
	}
	return result
}
