package cache

import "context"

// Backend is the error-returning cache contract implemented in this package.
type Backend interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Adapter bridges a Backend to the found-flag cache contract the runtime
// consumes. Lookup and store failures degrade to cache misses.
type Adapter struct {
	backend Backend
}

// NewAdapter wraps a cache backend.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Get implements waypost.Cache.
func (a *Adapter) Get(ctx context.Context, key string) (interface{}, bool) {
	value, err := a.backend.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set implements waypost.Cache.
func (a *Adapter) Set(ctx context.Context, key string, value interface{}) {
	_ = a.backend.Set(ctx, key, value)
}
