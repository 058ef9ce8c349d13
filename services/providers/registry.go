package providers

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrNoProviders is returned when a registry is built with no providers
	ErrNoProviders = errors.New("registry requires at least one provider")

	// ErrDuplicateProvider is returned when two providers share a name
	ErrDuplicateProvider = errors.New("duplicate provider name")
)

// Registry holds the provider set in priority order. Registration is
// static configuration loaded once at startup; the registry is read-mostly
// and safe for concurrent use. Availability is re-evaluated on every
// ListAvailable call because credentials and local services come and go
// between requests.
type Registry struct {
	order  []string
	byName map[string]Provider
}

// NewRegistry builds a registry from providers in priority order.
func NewRegistry(list []Provider) (*Registry, error) {
	if len(list) == 0 {
		return nil, ErrNoProviders
	}

	r := &Registry{
		order:  make([]string, 0, len(list)),
		byName: make(map[string]Provider, len(list)),
	}
	for _, p := range list {
		if p.Name == "" {
			return nil, errors.New("provider name cannot be empty")
		}
		if _, exists := r.byName[p.Name]; exists {
			return nil, ErrDuplicateProvider
		}
		r.order = append(r.order, p.Name)
		r.byName[p.Name] = p
	}
	return r, nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return Provider{}, ErrProviderNotFound
	}
	return p, nil
}

// Has reports whether a provider is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns every registered provider name in priority order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every registered provider in priority order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.order)
}

// ListAvailable returns the providers that pass their availability check
// right now, in registry priority order. Checks run concurrently, each on
// its own goroutine, so one slow probe never delays the others beyond its
// own timeout.
func (r *Registry) ListAvailable(ctx context.Context) []Provider {
	available := make([]bool, len(r.order))

	var wg sync.WaitGroup
	for i, name := range r.order {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			available[i] = p.Available(ctx)
		}(i, r.byName[name])
	}
	wg.Wait()

	out := make([]Provider, 0, len(r.order))
	for i, name := range r.order {
		if available[i] {
			out = append(out, r.byName[name])
		}
	}
	return out
}

// IsAvailable re-checks a single provider's availability.
func (r *Registry) IsAvailable(ctx context.Context, name string) bool {
	p, ok := r.byName[name]
	if !ok {
		return false
	}
	return p.Available(ctx)
}
