package secrets

import (
	"context"
	"fmt"
	"sync"
)

// Resolver maps reference schemes to sources and caches resolved
// values so repeated publishes do not re-fetch the same token.
type Resolver struct {
	sources map[string]Source

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver creates a Resolver over the given scheme sources.
func NewResolver(sources map[string]Source) *Resolver {
	return &Resolver{
		sources: sources,
		cache:   make(map[string]string),
	}
}

// Token resolves a scheme:name reference to its token value.
func (r *Resolver) Token(ctx context.Context, ref string) (string, error) {
	parsed, err := ParseRef(ref)
	if err != nil {
		return "", err
	}

	r.mu.RLock()
	if value, ok := r.cache[ref]; ok {
		r.mu.RUnlock()
		return value, nil
	}
	r.mu.RUnlock()

	source, ok := r.sources[parsed.Scheme]
	if !ok {
		return "", fmt.Errorf("no source configured for token scheme %q", parsed.Scheme)
	}

	value, err := source.Resolve(ctx, parsed.Name)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[ref] = value
	r.mu.Unlock()

	return value, nil
}
