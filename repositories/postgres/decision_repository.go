package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samara-ai/modelrouter/models"
	"github.com/samara-ai/modelrouter/repositories"
	"go.uber.org/zap"
)

const decisionColumns = `id, session_id, category, bucket, estimate_tokens, provenance,
       override_applied, candidates, attempts, attempt_count, served_by, outcome,
       error_message, created_at`

// DecisionRepository implements the repositories.DecisionRepository interface
type DecisionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *DB, logger *zap.Logger) repositories.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new decision record
func (r *DecisionRepository) Insert(ctx context.Context, rec *models.DecisionRecord) error {
	query := `
		INSERT INTO routing_decisions (
			id, session_id, category, bucket, estimate_tokens, provenance,
			override_applied, candidates, attempts, attempt_count, served_by,
			outcome, error_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.Category,
		rec.Bucket,
		rec.EstimateTokens,
		rec.Provenance,
		rec.OverrideApplied,
		rec.Candidates,
		rec.Attempts,
		rec.AttemptCount,
		rec.ServedBy,
		rec.Outcome,
		rec.ErrorMessage,
		rec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert decision record: %w", err)
	}

	r.logger.Debug("decision record inserted",
		zap.String("id", rec.ID.String()),
		zap.String("outcome", string(rec.Outcome)))
	return nil
}

// GetByID retrieves a decision record by ID
func (r *DecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM routing_decisions
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	rec := &models.DecisionRecord{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Category,
		&rec.Bucket,
		&rec.EstimateTokens,
		&rec.Provenance,
		&rec.OverrideApplied,
		&rec.Candidates,
		&rec.Attempts,
		&rec.AttemptCount,
		&rec.ServedBy,
		&rec.Outcome,
		&rec.ErrorMessage,
		&rec.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("decision record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get decision record: %w", err)
	}

	return rec, nil
}

// GetBySessionID retrieves decision records for a session with pagination
func (r *DecisionRepository) GetBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM routing_decisions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryDecisions(ctx, query, sessionID, limit, offset)
}

// GetByOutcome retrieves decision records by terminal state with pagination
func (r *DecisionRepository) GetByOutcome(ctx context.Context, outcome models.DecisionOutcome, limit, offset int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM routing_decisions
		WHERE outcome = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryDecisions(ctx, query, outcome, limit, offset)
}

// GetByDateRange retrieves decision records within a date range
func (r *DecisionRepository) GetByDateRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM routing_decisions
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	return r.queryDecisions(ctx, query, start, end, limit, offset)
}

// GetMetrics retrieves aggregate metrics over a date range
func (r *DecisionRepository) GetMetrics(ctx context.Context, start, end time.Time) (*repositories.DecisionMetrics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'served'),
			COUNT(*) FILTER (WHERE outcome = 'exhausted'),
			COUNT(*) FILTER (WHERE outcome = 'aborted'),
			COALESCE(AVG(estimate_tokens), 0),
			COALESCE(AVG(attempt_count), 0)
		FROM routing_decisions
		WHERE created_at >= $1 AND created_at <= $2
	`

	executor := GetExecutor(ctx, r.db)
	metrics := &repositories.DecisionMetrics{}

	err := executor.QueryRowContext(ctx, query, start, end).Scan(
		&metrics.TotalDecisions,
		&metrics.ServedDecisions,
		&metrics.ExhaustedDecisions,
		&metrics.AbortedDecisions,
		&metrics.AvgEstimateTokens,
		&metrics.AvgAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision metrics: %w", err)
	}

	return metrics, nil
}

// queryDecisions is a helper method to query multiple decision records
func (r *DecisionRepository) queryDecisions(ctx context.Context, query string, args ...interface{}) ([]*models.DecisionRecord, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision records: %w", err)
	}
	defer rows.Close()

	var recs []*models.DecisionRecord
	for rows.Next() {
		rec := &models.DecisionRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Category,
			&rec.Bucket,
			&rec.EstimateTokens,
			&rec.Provenance,
			&rec.OverrideApplied,
			&rec.Candidates,
			&rec.Attempts,
			&rec.AttemptCount,
			&rec.ServedBy,
			&rec.Outcome,
			&rec.ErrorMessage,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision record: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decision record rows: %w", err)
	}

	return recs, nil
}
