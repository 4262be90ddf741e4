// Package provider manages the lifecycle of external tool providers: ordered
// startup, capability discovery, and reverse-order teardown.
package provider

import (
	"sync"

	waypost "github.com/skyefallon/waypost"
)

// Registry holds connected providers in the order they were connected.
// Iteration order matters: teardown walks the registry in reverse.
type Registry struct {
	mutex     sync.RWMutex
	names     []string
	providers map[string]waypost.ToolProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]waypost.ToolProvider),
	}
}

// Add appends a provider under the given name. Re-adding an existing name
// replaces the provider but keeps its original position.
func (r *Registry) Add(name string, p waypost.ToolProvider) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.providers[name]; !exists {
		r.names = append(r.names, name)
	}
	r.providers[name] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (waypost.ToolProvider, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, exists := r.providers[name]
	return p, exists
}

// Names returns the provider names in connection order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.names)
}

// Remove deletes a provider from the registry without closing it.
// A removed provider is no longer part of teardown.
func (r *Registry) Remove(name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.providers[name]; !exists {
		return false
	}

	delete(r.providers, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return true
}
