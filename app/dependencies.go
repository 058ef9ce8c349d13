// Package app wires the application graph: configuration in, a ready
// dispatch pipeline out.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/config"
	"github.com/samara-ai/modelrouter/repositories"
	"github.com/samara-ai/modelrouter/repositories/postgres"
	"github.com/samara-ai/modelrouter/services"
	"github.com/samara-ai/modelrouter/services/audit"
	"github.com/samara-ai/modelrouter/services/inference"
	"github.com/samara-ai/modelrouter/services/providers"
	"github.com/samara-ai/modelrouter/services/routing"
	"github.com/samara-ai/modelrouter/services/session"
	"github.com/samara-ai/modelrouter/services/stats"
	"github.com/samara-ai/modelrouter/services/tokens"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Persistence; nil unless the audit trail is enabled
	DB          *postgres.DB
	RepoFactory *postgres.RepositoryFactory
	Decisions   repositories.DecisionRepository
	TxManager   repositories.TransactionManager

	// Routing core
	Registry *providers.Registry
	Sessions *session.Store
	Router   *routing.Service
	Executor *routing.Executor
	Stats    *stats.Aggregator

	// Pipeline
	Audit     *audit.Service
	Inference *inference.Service

	invoker routing.Invoker
}

// Option adjusts dependency construction.
type Option func(*Dependencies)

// WithInvoker supplies the provider-call capability used by dispatch. The
// gateway itself never speaks a provider wire protocol; without this
// option every dispatch attempt fails as an external error.
func WithInvoker(invoke routing.Invoker) Option {
	return func(d *Dependencies) {
		d.invoker = invoke
	}
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	for _, opt := range opts {
		opt(deps)
	}
	if deps.invoker == nil {
		deps.invoker = unconfiguredInvoker
	}

	if err := deps.initRouting(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize routing: %w", err)
	}

	if cfg.Audit.Enabled {
		if err := deps.initAudit(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize audit trail: %w", err)
		}
	} else {
		logger.Info("audit trail disabled, decisions are not persisted")
	}

	deps.Inference = inference.NewService(
		deps.Router,
		deps.Executor,
		deps.Sessions,
		deps.Stats,
		deps.Audit,
		deps.invoker,
		logger,
	)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRouting builds the registry, the decision service and the fallback
// executor from configuration
func (d *Dependencies) initRouting(cfg *config.Config) error {
	registry, err := buildRegistry(cfg.Providers)
	if err != nil {
		return err
	}
	d.Registry = registry
	d.Sessions = session.NewStore(registry)
	d.Stats = stats.NewAggregator()

	boundaries := routing.BucketBoundaries{
		Small:  cfg.Routing.SmallBucketEdge,
		Medium: cfg.Routing.MediumBucketEdge,
		Large:  cfg.Routing.LargeBucketEdge,
		Huge:   cfg.Routing.HugeBucketEdge,
	}
	estimator := tokens.NewEstimatorWith(cfg.Routing.CharsPerToken, cfg.Routing.CodeMultiplier, cfg.Routing.ProjectFloor)

	d.Router = routing.NewService(registry, d.Sessions, d.Logger,
		routing.WithBucketBoundaries(boundaries),
		routing.WithEstimator(estimator))
	d.Executor = routing.NewExecutor(registry, d.Stats, d.Logger,
		routing.WithAttemptTimeout(cfg.Routing.AttemptTimeout))

	d.Logger.Info("routing initialized",
		zap.Strings("providers", registry.Names()))
	return nil
}

// initAudit connects PostgreSQL, prepares the schema and starts the async
// audit workers
func (d *Dependencies) initAudit(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}
	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.Decisions = repos.Decisions
	d.TxManager = factory.GetTransactionManager()

	d.Audit = audit.NewService(d.Decisions, d.TxManager, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := d.Audit.Start(); err != nil {
		return err
	}

	d.Logger.Info("audit trail initialized",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// buildRegistry turns provider specs into registry entries with their
// availability checkers
func buildRegistry(specs []config.ProviderSpec) (*providers.Registry, error) {
	list := make([]providers.Provider, 0, len(specs))
	for _, spec := range specs {
		p := providers.Provider{
			Name:                 spec.Name,
			MaxContextTokens:     spec.MaxContextTokens,
			OptimalContextTokens: spec.OptimalContextTokens,
			CostTier:             providers.Tier(spec.CostTier),
			SpeedTier:            providers.Tier(spec.SpeedTier),
			QualityTier:          providers.Tier(spec.QualityTier),
		}
		switch {
		case spec.Availability.EnvKey != "":
			p.Checker = providers.APIKeyChecker{EnvVar: spec.Availability.EnvKey}
		case spec.Availability.ProbeURL != "":
			p.Checker = providers.HTTPProbeChecker{URL: spec.Availability.ProbeURL}
		}
		list = append(list, p)
	}
	return providers.NewRegistry(list)
}

// unconfiguredInvoker is the default invoker when none is supplied
func unconfiguredInvoker(ctx context.Context, provider string, req routing.InvokeRequest) (*routing.InvokeResponse, error) {
	return nil, services.WrapExternal("no invocation backend configured", nil)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		if err := d.Audit.Stop(d.Config.Audit.StopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
