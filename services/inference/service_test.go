package inference

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/services"
	"github.com/samara-ai/modelrouter/services/providers"
	"github.com/samara-ai/modelrouter/services/routing"
	"github.com/samara-ai/modelrouter/services/session"
	"github.com/samara-ai/modelrouter/services/stats"
)

func testRegistry(t *testing.T) *providers.Registry {
	t.Helper()
	reg, err := providers.NewRegistry([]providers.Provider{
		{Name: "ollama", MaxContextTokens: 8192, OptimalContextTokens: 4096, CostTier: 0, SpeedTier: 3, QualityTier: 2},
		{Name: "claude", MaxContextTokens: 200000, OptimalContextTokens: 100000, CostTier: 3, SpeedTier: 1, QualityTier: 5},
		{Name: "gemini", MaxContextTokens: 32768, OptimalContextTokens: 16384, CostTier: 1, SpeedTier: 3, QualityTier: 3},
	})
	require.NoError(t, err)
	return reg
}

// scriptedInvoker fails the named providers and succeeds on everything else
type scriptedInvoker struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (si *scriptedInvoker) invoke(ctx context.Context, provider string, req routing.InvokeRequest) (*routing.InvokeResponse, error) {
	si.mu.Lock()
	si.calls = append(si.calls, provider)
	failing := si.failing[provider]
	si.mu.Unlock()

	if failing {
		return nil, errors.New("provider unavailable")
	}
	return &routing.InvokeResponse{Provider: provider, Content: "response from " + provider}, nil
}

func (si *scriptedInvoker) invoked() []string {
	si.mu.Lock()
	defer si.mu.Unlock()
	out := make([]string, len(si.calls))
	copy(out, si.calls)
	return out
}

func newTestService(t *testing.T, invoker *scriptedInvoker) (*Service, *stats.Aggregator) {
	t.Helper()
	logger := zap.NewNop()
	reg := testRegistry(t)
	sessions := session.NewStore(reg)
	aggregator := stats.NewAggregator()

	router := routing.NewService(reg, sessions, logger)
	executor := routing.NewExecutor(reg, aggregator, logger)

	svc := NewService(router, executor, sessions, aggregator, nil, invoker.invoke, logger)
	return svc, aggregator
}

func TestService_Plan(t *testing.T) {
	svc, _ := newTestService(t, &scriptedInvoker{})

	decision, err := svc.Plan(context.Background(), DispatchRequest{Text: "what is the capital of France"})
	require.NoError(t, err)

	assert.NotEmpty(t, decision.Candidates)
	assert.Equal(t, "trivial-query", string(decision.Category))
	assert.Equal(t, "tiny", string(decision.Bucket))
}

func TestService_Dispatch_FirstCandidateServes(t *testing.T) {
	invoker := &scriptedInvoker{}
	svc, aggregator := newTestService(t, invoker)

	resp, err := svc.Dispatch(context.Background(), DispatchRequest{Text: "hello there"})
	require.NoError(t, err)

	assert.Equal(t, resp.Candidates[0], resp.Provider)
	assert.False(t, resp.FallbackUsed)
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, "success", resp.Attempts[0].Outcome)
	assert.Len(t, invoker.invoked(), 1)

	snap := aggregator.Snapshot()
	assert.Equal(t, 1, snap.TotalAttempts)
	assert.Equal(t, 0, snap.TotalFallbacks)
}

func TestService_Dispatch_FallbackToNextCandidate(t *testing.T) {
	invoker := &scriptedInvoker{failing: map[string]bool{"ollama": true}}
	svc, aggregator := newTestService(t, invoker)

	// Short text routes tiny bucket: lowest cost (ollama) leads the chain
	resp, err := svc.Dispatch(context.Background(), DispatchRequest{Text: "hello there"})
	require.NoError(t, err)

	assert.NotEqual(t, "ollama", resp.Provider)
	assert.True(t, resp.FallbackUsed)
	require.Len(t, resp.Attempts, 2)
	assert.Equal(t, "failure", resp.Attempts[0].Outcome)
	assert.Equal(t, "success", resp.Attempts[1].Outcome)

	snap := aggregator.Snapshot()
	assert.Equal(t, 2, snap.TotalAttempts)
	assert.Equal(t, 1, snap.TotalFallbacks)
	assert.Equal(t, 1, snap.TotalFailures)
}

func TestService_Dispatch_AllCandidatesFail(t *testing.T) {
	invoker := &scriptedInvoker{failing: map[string]bool{"ollama": true, "claude": true, "gemini": true}}
	svc, _ := newTestService(t, invoker)

	_, err := svc.Dispatch(context.Background(), DispatchRequest{Text: "hello there"})
	require.Error(t, err)
	assert.True(t, services.IsExhaustedError(err))
	assert.Len(t, invoker.invoked(), 3)
}

func TestService_Dispatch_CapacityFailureBeforeInvocation(t *testing.T) {
	invoker := &scriptedInvoker{}
	svc, _ := newTestService(t, invoker)

	_, err := svc.Dispatch(context.Background(), DispatchRequest{
		Text:           "migrate the project",
		MeasuredTokens: 500000,
	})
	require.Error(t, err)
	assert.True(t, services.IsCapacityError(err))
	assert.Empty(t, invoker.invoked(), "no provider may be called when routing fails")
}

func TestService_OverrideLifecycle(t *testing.T) {
	invoker := &scriptedInvoker{}
	svc, _ := newTestService(t, invoker)

	require.NoError(t, svc.SetOverride("sess-1", "claude"))

	ov, ok := svc.GetOverride("sess-1")
	require.True(t, ok)
	assert.Equal(t, "claude", ov.Provider)

	resp, err := svc.Dispatch(context.Background(), DispatchRequest{
		Text:      "hello there",
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "claude", resp.Provider)
	assert.True(t, resp.OverrideApplied)

	svc.ClearOverride("sess-1")
	_, ok = svc.GetOverride("sess-1")
	assert.False(t, ok)
}

func TestService_SetOverride_UnknownProvider(t *testing.T) {
	svc, _ := newTestService(t, &scriptedInvoker{})

	err := svc.SetOverride("sess-1", "nonexistent")
	require.Error(t, err)
	assert.True(t, services.IsInvalidOverrideError(err))
}

func TestService_SnapshotStatistics(t *testing.T) {
	invoker := &scriptedInvoker{}
	svc, _ := newTestService(t, invoker)

	for i := 0; i < 3; i++ {
		_, err := svc.Dispatch(context.Background(), DispatchRequest{Text: "hello there"})
		require.NoError(t, err)
	}

	snap := svc.SnapshotStatistics()
	assert.Equal(t, 3, snap.TotalAttempts)
	assert.NotEmpty(t, snap.ByProvider)
}
