// Package session keeps per-session provider overrides.
//
// An override is a user-forced provider choice: it takes priority within
// capacity constraints for every subsequent decision in that session until
// it is explicitly cleared or the session ends.
package session

import (
	"sync"
	"time"

	"github.com/samara-ai/modelrouter/services"
	"github.com/samara-ai/modelrouter/services/providers"
)

// Override is a forced provider choice for one session.
type Override struct {
	Provider string    `json:"provider"`
	SetAt    time.Time `json:"set_at"`
}

// Store holds session overrides. Reads are concurrent; writes (set/clear)
// are serialized. Overrides are owned exclusively by their session: only
// the override command handler mutates them.
type Store struct {
	mu        sync.RWMutex
	overrides map[string]Override
	registry  *providers.Registry
	now       func() time.Time
}

// NewStore creates an override store validating provider names against the
// given registry.
func NewStore(registry *providers.Registry) *Store {
	return &Store{
		overrides: make(map[string]Override),
		registry:  registry,
		now:       time.Now,
	}
}

// Set forces a provider for the session. A provider name absent from the
// registry is rejected with ErrInvalidOverride and the override state is
// left unchanged.
func (s *Store) Set(sessionID, providerName string) error {
	if sessionID == "" {
		return services.ErrInvalidSessionID
	}
	if !s.registry.Has(providerName) {
		return services.NewDomainError(services.ErrorTypeInvalidOverride, "override provider is not registered", nil).
			WithDetail("provider", providerName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[sessionID] = Override{
		Provider: providerName,
		SetAt:    s.now(),
	}
	return nil
}

// Get returns the live override for a session, if any.
func (s *Store) Get(sessionID string) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ov, ok := s.overrides[sessionID]
	return ov, ok
}

// Clear removes the override for a session. Clearing a session without an
// override is a no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, sessionID)
}

// Len returns the number of sessions with a live override.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overrides)
}
