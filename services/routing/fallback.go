package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/services"
	"github.com/samara-ai/modelrouter/services/providers"
)

// InvokeRequest is the payload handed to the external invocation
// capability. The router never implements a provider's wire protocol; it
// passes the request through untouched.
type InvokeRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// InvokeResponse is the result of a successful provider invocation.
type InvokeResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Content  string `json:"content"`
}

// Invoker is the external provider-call capability supplied by the caller.
// The networking layer behind it is out of scope here.
type Invoker func(ctx context.Context, provider string, req InvokeRequest) (*InvokeResponse, error)

// DefaultAttemptTimeout bounds a single provider invocation. Distinct from
// the overall request deadline carried by the context.
const DefaultAttemptTimeout = 60 * time.Second

// Executor drives a decision's candidate chain against the external
// invoker, advancing to the next candidate on failure. Every attempt is
// reported to the recorder exactly once.
type Executor struct {
	registry       *providers.Registry
	recorder       Recorder
	logger         *zap.Logger
	attemptTimeout time.Duration
	now            func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithAttemptTimeout overrides the per-attempt invocation timeout.
func WithAttemptTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.attemptTimeout = d
		}
	}
}

// NewExecutor creates a fallback executor. recorder may be nil when no
// statistics are collected (tests).
func NewExecutor(registry *providers.Registry, recorder Recorder, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:       registry,
		recorder:       recorder,
		logger:         logger,
		attemptTimeout: DefaultAttemptTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute iterates the candidate chain in order. Each candidate is invoked
// at most once, under the per-attempt timeout. On success it returns the
// response plus the trace accumulated so far; once every candidate has
// been tried it returns ErrRoutingExhausted carrying the full trace.
// Caller cancellation halts the chain between and during attempts.
func (e *Executor) Execute(ctx context.Context, decision *Decision, req InvokeRequest, invoke Invoker) (*InvokeResponse, *Trace, error) {
	trace := &Trace{
		Decision: *decision,
		Attempts: make([]AttemptRecord, 0, len(decision.Candidates)),
	}

	if len(decision.Candidates) == 0 {
		// Empty chains come out of the capacity/availability filters; the
		// caller treats this as a capacity failure.
		return nil, trace, services.NewDomainError(services.ErrorTypeExhausted, "no candidates to attempt", nil)
	}

	for i, name := range decision.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, trace, services.WrapExternal("routing aborted by caller", err)
		}

		// Availability can change between the routing decision and this
		// attempt; a candidate that dropped out is skipped, not invoked.
		if !e.registry.IsAvailable(ctx, name) {
			rec := AttemptRecord{Provider: name, Outcome: OutcomeSkippedUnavailable}
			trace.Attempts = append(trace.Attempts, rec)
			e.record(rec, decision, i > 0)
			e.logger.Debug("candidate skipped, unavailable",
				zap.String("decision_id", decision.ID.String()),
				zap.String("provider", name))
			continue
		}

		rec, resp := e.attempt(ctx, name, req, invoke)
		trace.Attempts = append(trace.Attempts, rec)
		e.record(rec, decision, i > 0)

		if rec.Outcome == OutcomeSuccess {
			e.logger.Info("invocation succeeded",
				zap.String("decision_id", decision.ID.String()),
				zap.String("provider", name),
				zap.Int("attempt", i+1),
				zap.Duration("latency", rec.Latency))
			return resp, trace, nil
		}

		e.logger.Warn("invocation failed, advancing chain",
			zap.String("decision_id", decision.ID.String()),
			zap.String("provider", name),
			zap.Int("attempt", i+1),
			zap.String("error", rec.Error))

		if err := ctx.Err(); err != nil {
			return nil, trace, services.WrapExternal("routing aborted by caller", err)
		}
	}

	return nil, trace, services.NewDomainError(services.ErrorTypeExhausted, "all candidate providers failed", nil).
		WithDetail("attempts", len(trace.Attempts)).
		WithDetail("candidates", decision.Candidates)
}

// attempt invokes one provider under the per-attempt timeout and returns
// its record plus the response on success.
func (e *Executor) attempt(ctx context.Context, name string, req InvokeRequest, invoke Invoker) (AttemptRecord, *InvokeResponse) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	start := e.now()
	resp, err := invoke(attemptCtx, name, req)
	latency := e.now().Sub(start)

	if err != nil {
		return AttemptRecord{
			Provider: name,
			Outcome:  OutcomeFailure,
			Latency:  latency,
			Error:    err.Error(),
		}, nil
	}

	return AttemptRecord{
		Provider: name,
		Outcome:  OutcomeSuccess,
		Latency:  latency,
	}, resp
}

// record reports one attempt to the statistics recorder.
func (e *Executor) record(rec AttemptRecord, decision *Decision, fallbackOrigin bool) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(Observation{
		Attempt:        rec,
		Category:       decision.Category,
		Bucket:         decision.Bucket,
		Tokens:         decision.Estimate.Tokens,
		FallbackOrigin: fallbackOrigin,
	})
}
