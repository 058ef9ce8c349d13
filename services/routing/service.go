// Package routing decides which providers should serve an inference
// request, in what order, and drives the fallback chain against the
// caller-supplied invocation capability.
package routing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/services"
	"github.com/samara-ai/modelrouter/services/classify"
	"github.com/samara-ai/modelrouter/services/providers"
	"github.com/samara-ai/modelrouter/services/session"
	"github.com/samara-ai/modelrouter/services/tokens"
)

// Service is the routing engine. It combines the token estimate, the task
// category, the provider registry, and any session override into an
// ordered candidate chain. Stateless apart from its injected
// collaborators; safe for concurrent use.
type Service struct {
	registry   *providers.Registry
	sessions   *session.Store
	estimator  *tokens.Estimator
	classifier *classify.Classifier
	boundaries BucketBoundaries
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBucketBoundaries overrides the default context bucket edges.
func WithBucketBoundaries(b BucketBoundaries) Option {
	return func(s *Service) { s.boundaries = b }
}

// WithEstimator overrides the default token estimator.
func WithEstimator(e *tokens.Estimator) Option {
	return func(s *Service) { s.estimator = e }
}

// NewService creates a routing engine.
func NewService(registry *providers.Registry, sessions *session.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		registry:   registry,
		sessions:   sessions,
		estimator:  tokens.NewEstimator(),
		classifier: classify.NewClassifier(),
		boundaries: DefaultBucketBoundaries(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Route produces the ordered candidate chain for one request.
//
// Fails fast before any external call: ErrNoProviderAvailable when the
// registry yields zero available providers, ErrCapacityExceeded when every
// available provider's context ceiling is below the estimate.
func (s *Service) Route(ctx context.Context, req RouteRequest) (*Decision, error) {
	estimate := s.estimate(req)
	category := s.classifier.Classify(req.Text, req.Mode)
	bucket := s.boundaries.Bucket(estimate.Tokens)

	available := s.registry.ListAvailable(ctx)
	if len(available) == 0 {
		return nil, services.ErrNoProviderAvailable
	}

	capable := filterByCapacity(available, estimate.Tokens)
	if len(capable) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeCapacity, "no available provider can hold the estimated context", nil).
			WithDetail("estimate", estimate.Tokens).
			WithDetail("available", names(available))
	}

	candidates, overrideApplied := s.buildChain(req, category, bucket, estimate.Tokens, capable)

	decision := &Decision{
		ID:              uuid.New(),
		Candidates:      candidates,
		Category:        category,
		Estimate:        estimate,
		Bucket:          bucket,
		OverrideApplied: overrideApplied,
		SessionID:       req.SessionID,
		CreatedAt:       s.now(),
	}

	s.logger.Debug("routing decision",
		zap.String("decision_id", decision.ID.String()),
		zap.String("category", string(category)),
		zap.String("bucket", string(bucket)),
		zap.Int("estimate_tokens", estimate.Tokens),
		zap.Bool("override_applied", overrideApplied),
		zap.Strings("candidates", candidates))

	return decision, nil
}

// estimate resolves the context estimate, preferring a caller-measured
// count over the text heuristic.
func (s *Service) estimate(req RouteRequest) tokens.ContextEstimate {
	if req.MeasuredTokens > 0 {
		return tokens.Measured(req.MeasuredTokens)
	}
	return s.estimator.Estimate(req.Text, tokens.EstimateOptions{
		IsCode:       req.IsCode,
		LargeProject: req.LargeProject,
	})
}

// buildChain produces the ordered, deduplicated candidate names.
func (s *Service) buildChain(req RouteRequest, category classify.TaskCategory, bucket ContextBucket, estimate int, capable []providers.Provider) ([]string, bool) {
	// Session override: tried first, but the chain keeps full fallback
	// depth behind it. An override that cannot physically hold the context
	// is not applied at all; the capacity filter governs unconditionally.
	if req.SessionID != "" && s.sessions != nil {
		if ov, ok := s.sessions.Get(req.SessionID); ok {
			if p, err := s.registry.Get(ov.Provider); err == nil && p.MaxContextTokens >= estimate {
				// The override leads the chain only while it is available;
				// otherwise it is excluded and the remaining capable
				// providers keep registry priority order.
				if containsProvider(capable, ov.Provider) {
					chain := append([]string{ov.Provider}, names(capable)...)
					return dedupe(chain), true
				}
				return dedupe(names(capable)), false
			}
			s.logger.Debug("session override skipped by capacity filter",
				zap.String("session_id", req.SessionID),
				zap.String("provider", ov.Provider),
				zap.Int("estimate_tokens", estimate))
		}
	}

	ordered := orderForBucket(capable, bucket, estimate)
	ordered = rerankForCategory(ordered, category)
	return dedupe(names(ordered)), false
}

// filterByCapacity drops providers whose hard ceiling is below the
// estimate. A provider that cannot hold the context is never a candidate,
// even as a fallback.
func filterByCapacity(list []providers.Provider, estimate int) []providers.Provider {
	out := make([]providers.Provider, 0, len(list))
	for _, p := range list {
		if p.MaxContextTokens >= estimate {
			out = append(out, p)
		}
	}
	return out
}

// orderForBucket applies the bucket's default priority ordering: low-cost
// and local first for small contexts, highest capacity first for large
// ones, optimal-fit first in between. Ties always break on the
// lexicographically smaller name so the ordering is deterministic.
func orderForBucket(list []providers.Provider, bucket ContextBucket, estimate int) []providers.Provider {
	out := make([]providers.Provider, len(list))
	copy(out, list)

	switch bucket {
	case BucketTiny, BucketSmall:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.CostTier != b.CostTier {
				return a.CostTier < b.CostTier
			}
			if a.QualityTier != b.QualityTier {
				return a.QualityTier > b.QualityTier
			}
			return a.Name < b.Name
		})
	case BucketMedium:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			aFit, bFit := a.OptimalContextTokens >= estimate, b.OptimalContextTokens >= estimate
			if aFit != bFit {
				return aFit
			}
			if a.CostTier != b.CostTier {
				return a.CostTier < b.CostTier
			}
			if a.QualityTier != b.QualityTier {
				return a.QualityTier > b.QualityTier
			}
			return a.Name < b.Name
		})
	default: // large, huge
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.MaxContextTokens != b.MaxContextTokens {
				return a.MaxContextTokens > b.MaxContextTokens
			}
			if a.QualityTier != b.QualityTier {
				return a.QualityTier > b.QualityTier
			}
			return a.Name < b.Name
		})
	}
	return out
}

// qualityCategories promote higher-quality providers ahead of cheaper ones
// even within the same bucket.
var qualityCategories = map[classify.TaskCategory]bool{
	classify.CategoryCodeAnalysis:     true,
	classify.CategoryDebugging:        true,
	classify.CategoryArchitecture:     true,
	classify.CategoryComplexMigration: true,
}

// cheapCategories demote anything that is not lowest-cost.
var cheapCategories = map[classify.TaskCategory]bool{
	classify.CategoryConversation: true,
	classify.CategoryTrivialQuery: true,
}

// rerankForCategory applies the category-specific re-rank on top of the
// bucket ordering. Both re-ranks are stable, so the bucket ordering keeps
// deciding among peers.
func rerankForCategory(list []providers.Provider, category classify.TaskCategory) []providers.Provider {
	if len(list) == 0 {
		return list
	}
	out := make([]providers.Provider, len(list))
	copy(out, list)

	switch {
	case qualityCategories[category]:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].QualityTier > out[j].QualityTier
		})
	case cheapCategories[category]:
		minCost := out[0].CostTier
		for _, p := range out {
			if p.CostTier < minCost {
				minCost = p.CostTier
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return (out[i].CostTier == minCost) && (out[j].CostTier != minCost)
		})
	}
	return out
}

func containsProvider(list []providers.Provider, name string) bool {
	for _, p := range list {
		if p.Name == name {
			return true
		}
	}
	return false
}

func names(list []providers.Provider) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.Name
	}
	return out
}

// dedupe removes duplicate names preserving first-seen order.
func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, name := range list {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
