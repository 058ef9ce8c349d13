// Package providers holds the static capability profile of each backend
// provider and the availability checks consulted at decision time.
//
// Providers are data, not types: every backend is described by the same
// Provider record, so adding one is a configuration change rather than a
// new implementation.
package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

// Tier is an ordinal rank, low to high. Cost tier 0 means free (local),
// quality tier 5 means best-in-registry. Tiers are only compared against
// each other, never interpreted as absolute units.
type Tier int

// Provider is the immutable capability/cost/speed/quality profile of one
// backend. Safe for concurrent read; never mutated after registration.
type Provider struct {
	// Name identifies the provider (e.g. "ollama", "claude").
	Name string

	// MaxContextTokens is the hard context ceiling. A provider whose
	// ceiling is below a request's estimate is never a candidate.
	MaxContextTokens int

	// OptimalContextTokens is the soft target below which the provider
	// performs best on quality and cost.
	OptimalContextTokens int

	CostTier    Tier
	SpeedTier   Tier
	QualityTier Tier

	// Checker answers whether the provider can be used right now
	// (credential present, local service reachable). Queried per decision,
	// never cached longer than one decision.
	Checker AvailabilityChecker
}

// Available reports whether the provider can currently serve requests.
// A provider without a checker is treated as always available.
func (p Provider) Available(ctx context.Context) bool {
	if p.Checker == nil {
		return true
	}
	return p.Checker.Available(ctx)
}

// AvailabilityChecker is a point-in-time availability predicate. A check
// may perform short blocking I/O and must honor the context deadline.
type AvailabilityChecker interface {
	Available(ctx context.Context) bool
}

// AvailabilityFunc adapts a function to the AvailabilityChecker interface.
type AvailabilityFunc func(ctx context.Context) bool

// Available implements AvailabilityChecker.
func (f AvailabilityFunc) Available(ctx context.Context) bool {
	return f(ctx)
}

// StaticChecker reports a fixed availability. Useful for tests and for
// providers that are always on.
type StaticChecker bool

// Available implements AvailabilityChecker.
func (s StaticChecker) Available(context.Context) bool {
	return bool(s)
}

// APIKeyChecker reports availability when the named environment variable
// holds a non-blank credential.
type APIKeyChecker struct {
	EnvVar string
}

// Available implements AvailabilityChecker.
func (c APIKeyChecker) Available(context.Context) bool {
	return strings.TrimSpace(os.Getenv(c.EnvVar)) != ""
}

// DefaultProbeTimeout bounds a local-service reachability probe. A probe
// that has not answered by then counts as unavailable.
const DefaultProbeTimeout = 2 * time.Second

// HTTPProbeChecker reports availability when an HTTP GET against URL
// returns a 2xx status within Timeout. Used for local services such as an
// Ollama daemon.
type HTTPProbeChecker struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// Available implements AvailabilityChecker. A hung or failing probe is
// treated as unavailable once the timeout elapses.
func (c HTTPProbeChecker) Available(ctx context.Context) bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.URL, nil)
	if err != nil {
		return false
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
