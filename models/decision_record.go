package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DecisionOutcome is the terminal state of a routed request.
type DecisionOutcome string

const (
	// OutcomeServed means a provider in the chain returned a response.
	OutcomeServed DecisionOutcome = "served"
	// OutcomeExhausted means every candidate was tried and none succeeded.
	OutcomeExhausted DecisionOutcome = "exhausted"
	// OutcomeAborted means the caller cancelled before the chain finished.
	OutcomeAborted DecisionOutcome = "aborted"
)

// DecisionRecord is the audit trail entry for one routing decision plus the
// fallback attempts made under it. Candidates and Attempts are stored as
// JSONB so the row shape survives chain-length changes.
type DecisionRecord struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	SessionID       *string         `json:"session_id,omitempty" db:"session_id"`
	Category        string          `json:"category" db:"category"`
	Bucket          string          `json:"bucket" db:"bucket"`
	EstimateTokens  int             `json:"estimate_tokens" db:"estimate_tokens"`
	Provenance      string          `json:"provenance" db:"provenance"`
	OverrideApplied bool            `json:"override_applied" db:"override_applied"`
	Candidates      json.RawMessage `json:"candidates" db:"candidates"`
	Attempts        json.RawMessage `json:"attempts" db:"attempts"`
	AttemptCount    int             `json:"attempt_count" db:"attempt_count"`
	ServedBy        *string         `json:"served_by,omitempty" db:"served_by"`
	Outcome         DecisionOutcome `json:"outcome" db:"outcome"`
	ErrorMessage    *string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the DecisionRecord model
func (DecisionRecord) TableName() string {
	return "routing_decisions"
}

// NewDecisionRecord creates a record for one decision. The ID is the
// decision's own ID so a trace and its row share an identifier.
func NewDecisionRecord(id uuid.UUID, category, bucket string, estimateTokens int) *DecisionRecord {
	return &DecisionRecord{
		ID:             id,
		Category:       category,
		Bucket:         bucket,
		EstimateTokens: estimateTokens,
		CreatedAt:      time.Now(),
	}
}

// WithSession sets the session the decision belonged to
func (d *DecisionRecord) WithSession(sessionID string) *DecisionRecord {
	if sessionID != "" {
		d.SessionID = &sessionID
	}
	return d
}

// WithCandidates stores the ordered candidate chain
func (d *DecisionRecord) WithCandidates(candidates []string) *DecisionRecord {
	if data, err := json.Marshal(candidates); err == nil {
		d.Candidates = data
	}
	return d
}

// WithAttempts stores the attempt trail
func (d *DecisionRecord) WithAttempts(attempts interface{}, count int) *DecisionRecord {
	if data, err := json.Marshal(attempts); err == nil {
		d.Attempts = data
	}
	d.AttemptCount = count
	return d
}

// WithOutcome sets the terminal state
func (d *DecisionRecord) WithOutcome(outcome DecisionOutcome, servedBy string) *DecisionRecord {
	d.Outcome = outcome
	if servedBy != "" {
		d.ServedBy = &servedBy
	}
	return d
}

// WithError sets the failure message for exhausted or aborted decisions
func (d *DecisionRecord) WithError(message string) *DecisionRecord {
	if message != "" {
		d.ErrorMessage = &message
	}
	return d
}
