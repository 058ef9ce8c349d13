package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samara-ai/modelrouter/services/classify"
	"github.com/samara-ai/modelrouter/services/routing"
)

func obs(provider string, outcome routing.AttemptOutcome, fallback bool) routing.Observation {
	return routing.Observation{
		Attempt:        routing.AttemptRecord{Provider: provider, Outcome: outcome},
		Category:       classify.CategorySimpleConsult,
		Bucket:         routing.BucketTiny,
		Tokens:         100,
		FallbackOrigin: fallback,
	}
}

func TestAggregator_RecordSingleAttempt(t *testing.T) {
	a := NewAggregator()
	a.Record(obs("ollama", routing.OutcomeSuccess, false))

	snap := a.Snapshot()
	assert.Equal(t, 1, snap.TotalAttempts)
	assert.Equal(t, 0, snap.TotalFallbacks)
	assert.Equal(t, 0, snap.TotalFailures)

	ps := snap.ByProvider["ollama"]
	assert.Equal(t, 1, ps.Attempts)
	assert.Equal(t, 1, ps.Successes)
	assert.Equal(t, 0, ps.Failures)

	cs := snap.ByCategory[classify.CategorySimpleConsult]
	assert.Equal(t, 1, cs.Attempts)
	assert.Equal(t, 1, cs.Successes)

	bs := snap.ByBucket[routing.BucketTiny]
	assert.Equal(t, 1, bs.Count)
	assert.Equal(t, 100, bs.AvgTokens)
	assert.Equal(t, 1, bs.ByProvider["ollama"])
}

func TestAggregator_FallbackScenario(t *testing.T) {
	// Two failures then a success on the third candidate.
	a := NewAggregator()
	a.Record(obs("a", routing.OutcomeFailure, false))
	a.Record(obs("b", routing.OutcomeFailure, true))
	a.Record(obs("c", routing.OutcomeSuccess, true))

	snap := a.Snapshot()
	assert.Equal(t, 3, snap.TotalAttempts)
	assert.Equal(t, 2, snap.TotalFallbacks)
	assert.Equal(t, 2, snap.TotalFailures)

	assert.Equal(t, 1, snap.ByProvider["a"].Failures)
	assert.Equal(t, 1, snap.ByProvider["b"].Failures)
	assert.Equal(t, 1, snap.ByProvider["c"].Successes)
	assert.Equal(t, 1, snap.ByProvider["c"].FallbackServed)
	assert.Equal(t, 0, snap.ByProvider["a"].FallbackServed)
}

func TestAggregator_SkippedCountedDistinctly(t *testing.T) {
	a := NewAggregator()
	a.Record(obs("down", routing.OutcomeSkippedUnavailable, false))

	snap := a.Snapshot()
	ps := snap.ByProvider["down"]
	assert.Equal(t, 1, ps.Attempts)
	assert.Equal(t, 1, ps.Skipped)
	assert.Equal(t, 0, ps.Failures)
	assert.Equal(t, 0, snap.TotalFailures)
}

func TestAggregator_RunningTokenAverage(t *testing.T) {
	a := NewAggregator()
	for _, tokens := range []int{100, 200, 600} {
		o := obs("p", routing.OutcomeSuccess, false)
		o.Tokens = tokens
		a.Record(o)
	}

	snap := a.Snapshot()
	assert.Equal(t, 3, snap.ByBucket[routing.BucketTiny].Count)
	assert.Equal(t, 300, snap.ByBucket[routing.BucketTiny].AvgTokens)
}

func TestAggregator_ConcurrentRecordsLoseNoUpdates(t *testing.T) {
	a := NewAggregator()

	const goroutines = 20
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				outcome := routing.OutcomeSuccess
				if i%2 == 0 {
					outcome = routing.OutcomeFailure
				}
				a.Record(obs("shared", outcome, i%3 == 0))
			}
		}(g)
	}
	wg.Wait()

	snap := a.Snapshot()
	total := goroutines * perGoroutine
	assert.Equal(t, total, snap.TotalAttempts)
	assert.Equal(t, total, snap.ByProvider["shared"].Attempts)
	assert.Equal(t, total/2, snap.ByProvider["shared"].Successes)
	assert.Equal(t, total/2, snap.ByProvider["shared"].Failures)
	assert.Equal(t, total, snap.ByCategory[classify.CategorySimpleConsult].Attempts)
	assert.Equal(t, total, snap.ByBucket[routing.BucketTiny].Count)
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	a := NewAggregator()
	a.Record(obs("p", routing.OutcomeSuccess, false))

	snap := a.Snapshot()
	snap.ByBucket[routing.BucketTiny].ByProvider["p"] = 999

	fresh := a.Snapshot()
	assert.Equal(t, 1, fresh.ByBucket[routing.BucketTiny].ByProvider["p"])
}

func TestAggregator_SnapshotWhileWriting(t *testing.T) {
	a := NewAggregator()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			a.Record(obs("p", routing.OutcomeSuccess, false))
		}
	}()

	for i := 0; i < 100; i++ {
		snap := a.Snapshot()
		assert.LessOrEqual(t, snap.TotalAttempts, 1000)
	}
	<-done

	require.Equal(t, 1000, a.Snapshot().TotalAttempts)
}

func TestAggregator_Reset(t *testing.T) {
	a := NewAggregator()
	a.Record(obs("p", routing.OutcomeSuccess, false))
	a.Reset()

	snap := a.Snapshot()
	assert.Equal(t, 0, snap.TotalAttempts)
	assert.Empty(t, snap.ByProvider)
	assert.Empty(t, snap.ByCategory)
	assert.Empty(t, snap.ByBucket)
}
