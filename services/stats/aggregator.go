// Package stats aggregates routing decisions and fallback outcomes.
//
// The aggregator is the process-wide shared counter store: every completed
// attempt increments the provider, category, and bucket dimensions as one
// logical event, so a concurrent reader never sees a partial update.
package stats

import (
	"sync"
	"time"

	"github.com/samara-ai/modelrouter/services/classify"
	"github.com/samara-ai/modelrouter/services/routing"
)

// ProviderStats counts outcomes for one provider.
type ProviderStats struct {
	Attempts       int `json:"attempts"`
	Successes      int `json:"successes"`
	Failures       int `json:"failures"`
	Skipped        int `json:"skipped"`
	FallbackServed int `json:"fallback_served"` // attempts reached by falling back from an earlier candidate
}

// CategoryStats counts outcomes for one task category.
type CategoryStats struct {
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// BucketStats counts usage for one context-size bucket. AvgTokens is the
// running mean estimate observed in the bucket.
type BucketStats struct {
	Count       int            `json:"count"`
	AvgTokens   int            `json:"avg_tokens"`
	ByProvider  map[string]int `json:"by_provider"`
	totalTokens int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	TotalAttempts  int                                     `json:"total_attempts"`
	TotalFallbacks int                                     `json:"total_fallbacks"`
	TotalFailures  int                                     `json:"total_failures"`
	ByProvider     map[string]ProviderStats                `json:"by_provider"`
	ByCategory     map[classify.TaskCategory]CategoryStats `json:"by_category"`
	ByBucket       map[routing.ContextBucket]BucketStats   `json:"by_bucket"`
	TakenAt        time.Time                               `json:"taken_at"`
}

// Aggregator is the statistics store. Safe for concurrent use; writes hold
// the lock only for the increment itself and reads copy out under the same
// lock.
type Aggregator struct {
	mu         sync.Mutex
	attempts   int
	fallbacks  int
	failures   int
	byProvider map[string]*ProviderStats
	byCategory map[classify.TaskCategory]*CategoryStats
	byBucket   map[routing.ContextBucket]*BucketStats
	now        func() time.Time
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byProvider: make(map[string]*ProviderStats),
		byCategory: make(map[classify.TaskCategory]*CategoryStats),
		byBucket:   make(map[routing.ContextBucket]*BucketStats),
		now:        time.Now,
	}
}

// Record counts one attempt across every dimension. The whole update runs
// under a single lock acquisition: one logical event, no partial update
// visible to readers. Recorded outcomes are never un-recorded.
func (a *Aggregator) Record(obs routing.Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attempts++
	if obs.FallbackOrigin {
		a.fallbacks++
	}

	ps := a.byProvider[obs.Attempt.Provider]
	if ps == nil {
		ps = &ProviderStats{}
		a.byProvider[obs.Attempt.Provider] = ps
	}
	ps.Attempts++
	if obs.FallbackOrigin {
		ps.FallbackServed++
	}

	cs := a.byCategory[obs.Category]
	if cs == nil {
		cs = &CategoryStats{}
		a.byCategory[obs.Category] = cs
	}
	cs.Attempts++

	switch obs.Attempt.Outcome {
	case routing.OutcomeSuccess:
		ps.Successes++
		cs.Successes++
	case routing.OutcomeFailure:
		ps.Failures++
		cs.Failures++
		a.failures++
	case routing.OutcomeSkippedUnavailable:
		ps.Skipped++
	}

	bs := a.byBucket[obs.Bucket]
	if bs == nil {
		bs = &BucketStats{ByProvider: make(map[string]int)}
		a.byBucket[obs.Bucket] = bs
	}
	bs.Count++
	bs.totalTokens += int64(obs.Tokens)
	bs.AvgTokens = int(bs.totalTokens / int64(bs.Count))
	bs.ByProvider[obs.Attempt.Provider]++
}

// Snapshot returns a point-in-time copy. Writers are only blocked for the
// duration of the copy.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		TotalAttempts:  a.attempts,
		TotalFallbacks: a.fallbacks,
		TotalFailures:  a.failures,
		ByProvider:     make(map[string]ProviderStats, len(a.byProvider)),
		ByCategory:     make(map[classify.TaskCategory]CategoryStats, len(a.byCategory)),
		ByBucket:       make(map[routing.ContextBucket]BucketStats, len(a.byBucket)),
		TakenAt:        a.now(),
	}

	for name, ps := range a.byProvider {
		snap.ByProvider[name] = *ps
	}
	for cat, cs := range a.byCategory {
		snap.ByCategory[cat] = *cs
	}
	for bucket, bs := range a.byBucket {
		copied := *bs
		copied.ByProvider = make(map[string]int, len(bs.ByProvider))
		for name, n := range bs.ByProvider {
			copied.ByProvider[name] = n
		}
		snap.ByBucket[bucket] = copied
	}
	return snap
}

// Reset clears all counters. Intended for tests and operator tooling.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts = 0
	a.fallbacks = 0
	a.failures = 0
	a.byProvider = make(map[string]*ProviderStats)
	a.byCategory = make(map[classify.TaskCategory]*CategoryStats)
	a.byBucket = make(map[routing.ContextBucket]*BucketStats)
}
