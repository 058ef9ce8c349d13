package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samara-ai/modelrouter/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// DecisionRepository handles routing decision audit rows
type DecisionRepository interface {
	// Insert inserts a new decision record
	Insert(ctx context.Context, rec *models.DecisionRecord) error

	// GetByID retrieves a decision record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.DecisionRecord, error)

	// GetBySessionID retrieves decision records for a session with pagination
	GetBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]*models.DecisionRecord, error)

	// GetByOutcome retrieves decision records by terminal state with pagination
	GetByOutcome(ctx context.Context, outcome models.DecisionOutcome, limit, offset int) ([]*models.DecisionRecord, error)

	// GetByDateRange retrieves decision records within a date range
	GetByDateRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*models.DecisionRecord, error)

	// GetMetrics retrieves aggregate metrics over a date range
	GetMetrics(ctx context.Context, start, end time.Time) (*DecisionMetrics, error)
}

// DecisionMetrics represents aggregated decision metrics
type DecisionMetrics struct {
	TotalDecisions     int     `json:"total_decisions"`
	ServedDecisions    int     `json:"served_decisions"`
	ExhaustedDecisions int     `json:"exhausted_decisions"`
	AbortedDecisions   int     `json:"aborted_decisions"`
	AvgEstimateTokens  float64 `json:"avg_estimate_tokens"`
	AvgAttempts        float64 `json:"avg_attempts"`
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Decisions DecisionRepository
}
