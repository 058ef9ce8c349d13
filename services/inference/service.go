// Package inference orchestrates the dispatch pipeline: route the request,
// drive the fallback chain, hand the completed trace to the audit trail,
// and shape the response for the gateway.
package inference

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/services/audit"
	"github.com/samara-ai/modelrouter/services/classify"
	"github.com/samara-ai/modelrouter/services/routing"
	"github.com/samara-ai/modelrouter/services/session"
	"github.com/samara-ai/modelrouter/services/stats"
)

// Service is the dispatch pipeline. The invoker is the caller-supplied
// provider-call capability; the pipeline never speaks a provider's wire
// protocol itself.
type Service struct {
	router   *routing.Service
	executor *routing.Executor
	sessions *session.Store
	stats    *stats.Aggregator
	audit    *audit.Service // nil when auditing is disabled
	invoker  routing.Invoker
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a dispatch service. auditSvc may be nil.
func NewService(
	router *routing.Service,
	executor *routing.Executor,
	sessions *session.Store,
	aggregator *stats.Aggregator,
	auditSvc *audit.Service,
	invoker routing.Invoker,
	logger *zap.Logger,
) *Service {
	return &Service{
		router:   router,
		executor: executor,
		sessions: sessions,
		stats:    aggregator,
		audit:    auditSvc,
		invoker:  invoker,
		logger:   logger,
		now:      time.Now,
	}
}

// Plan produces the routing decision for a request without invoking any
// provider. This is the decision-preview operation behind POST /route.
func (s *Service) Plan(ctx context.Context, req DispatchRequest) (*routing.Decision, error) {
	return s.router.Route(ctx, routeRequest(req))
}

// Dispatch runs the full pipeline for one request: decision, fallback
// execution, audit. The returned error is always one of the domain error
// types; the trace reaches the audit trail on every path that produced a
// decision.
func (s *Service) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResponse, error) {
	start := s.now()

	decision, err := s.router.Route(ctx, routeRequest(req))
	if err != nil {
		s.logger.Warn("routing failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return nil, err
	}

	invokeReq := routing.InvokeRequest{
		Prompt:      req.Text,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, trace, execErr := s.executor.Execute(ctx, decision, invokeReq, s.invoker)
	s.recordTrace(trace, resp, execErr)

	if execErr != nil {
		return nil, execErr
	}

	completed := s.now()
	out := &DispatchResponse{
		DecisionID:      decision.ID,
		Provider:        resp.Provider,
		Model:           resp.Model,
		Content:         resp.Content,
		Category:        string(decision.Category),
		Bucket:          string(decision.Bucket),
		EstimateTokens:  decision.Estimate.Tokens,
		Provenance:      string(decision.Estimate.Provenance),
		OverrideApplied: decision.OverrideApplied,
		Candidates:      decision.Candidates,
		Attempts:        attemptViews(trace.Attempts),
		FallbackUsed:    len(trace.Attempts) > 1,
		LatencyMs:       int(completed.Sub(start).Milliseconds()),
		CreatedAt:       decision.CreatedAt,
		CompletedAt:     completed,
	}

	s.logger.Info("dispatch completed",
		zap.String("decision_id", decision.ID.String()),
		zap.String("provider", resp.Provider),
		zap.Bool("fallback_used", out.FallbackUsed),
		zap.Int("latency_ms", out.LatencyMs))

	return out, nil
}

// SetOverride forces a provider for every subsequent decision in a session
func (s *Service) SetOverride(sessionID, provider string) error {
	if err := s.sessions.Set(sessionID, provider); err != nil {
		return err
	}
	s.logger.Info("session override set",
		zap.String("session_id", sessionID),
		zap.String("provider", provider))
	return nil
}

// ClearOverride removes a session's forced provider
func (s *Service) ClearOverride(sessionID string) {
	s.sessions.Clear(sessionID)
	s.logger.Info("session override cleared", zap.String("session_id", sessionID))
}

// GetOverride returns a session's live override, if any
func (s *Service) GetOverride(sessionID string) (session.Override, bool) {
	return s.sessions.Get(sessionID)
}

// SnapshotStatistics returns a point-in-time copy of the usage counters
func (s *Service) SnapshotStatistics() stats.Snapshot {
	return s.stats.Snapshot()
}

// recordTrace forwards the completed trace to the audit trail. Auditing is
// best effort; a full buffer only logs.
func (s *Service) recordTrace(trace *routing.Trace, resp *routing.InvokeResponse, execErr error) {
	if s.audit == nil || trace == nil {
		return
	}
	if err := s.audit.RecordTrace(trace, resp, execErr); err != nil {
		s.logger.Warn("decision audit dropped",
			zap.String("decision_id", trace.Decision.ID.String()),
			zap.Error(err))
	}
}

func routeRequest(req DispatchRequest) routing.RouteRequest {
	return routing.RouteRequest{
		Text:           req.Text,
		SessionID:      req.SessionID,
		Mode:           classify.SessionMode(req.Mode),
		MeasuredTokens: req.MeasuredTokens,
		IsCode:         req.IsCode,
		LargeProject:   req.LargeProject,
	}
}
