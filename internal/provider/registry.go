package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider kinds to implementations.
type Registry struct {
	mu        sync.RWMutex
	providers map[Kind]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Kind]Provider)}
}

// Register adds p under its kind, replacing any previous registration.
// Every candidate the registered provider returns is normalized for its
// item kind.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Kind()] = newNormalizer(p)
}

// Get returns the provider for kind.
func (r *Registry) Get(kind Kind) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", ErrUnknownProvider, kind)
	}
	return p, nil
}

// Lookup parses name and returns the matching provider.
func (r *Registry) Lookup(name string) (Provider, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return r.Get(kind)
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
