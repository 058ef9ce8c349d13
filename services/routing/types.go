package routing

import (
	"time"

	"github.com/google/uuid"

	"github.com/samara-ai/modelrouter/services/classify"
	"github.com/samara-ai/modelrouter/services/tokens"
)

// ContextBucket is a discrete range of context-estimate values used to
// select a default provider ordering.
type ContextBucket string

const (
	BucketTiny   ContextBucket = "tiny"   // < 500 tokens
	BucketSmall  ContextBucket = "small"  // 500 – 2,000
	BucketMedium ContextBucket = "medium" // 2,000 – 10,000
	BucketLarge  ContextBucket = "large"  // 10,000 – 30,000
	BucketHuge   ContextBucket = "huge"   // >= 30,000
)

// BucketBoundaries holds the bucket edges. The defaults mirror the sizes
// the providers in the default registry handle well; deployments with a
// different provider mix can tune them in configuration.
type BucketBoundaries struct {
	Small  int `yaml:"small" json:"small"`
	Medium int `yaml:"medium" json:"medium"`
	Large  int `yaml:"large" json:"large"`
	Huge   int `yaml:"huge" json:"huge"`
}

// DefaultBucketBoundaries returns the standard bucket edges.
func DefaultBucketBoundaries() BucketBoundaries {
	return BucketBoundaries{
		Small:  500,
		Medium: 2000,
		Large:  10000,
		Huge:   30000,
	}
}

// Bucket returns the context bucket for a token count.
func (b BucketBoundaries) Bucket(estimate int) ContextBucket {
	switch {
	case estimate < b.Small:
		return BucketTiny
	case estimate < b.Medium:
		return BucketSmall
	case estimate < b.Large:
		return BucketMedium
	case estimate < b.Huge:
		return BucketLarge
	default:
		return BucketHuge
	}
}

// AttemptOutcome is the result of one fallback attempt.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"

	// OutcomeSkippedUnavailable marks a candidate that failed its
	// availability re-check at attempt time. Distinct from an invocation
	// failure: the provider was never called.
	OutcomeSkippedUnavailable AttemptOutcome = "skipped-unavailable"
)

// AttemptRecord is one entry in a decision's fallback trace.
type AttemptRecord struct {
	Provider string         `json:"provider"`
	Outcome  AttemptOutcome `json:"outcome"`
	Latency  time.Duration  `json:"latency"`
	Error    string         `json:"error,omitempty"`
}

// RouteRequest is one routing call's input.
type RouteRequest struct {
	// Text is the raw request text.
	Text string

	// SessionID keys the session override lookup. Empty means no session.
	SessionID string

	// Mode is the explicit session mode ("default", "dev", "game", ...).
	Mode classify.SessionMode

	// MeasuredTokens, when positive, is a caller-supplied context size that
	// replaces the text heuristic (e.g. from a fragment pipeline).
	MeasuredTokens int

	// IsCode and LargeProject are estimator hints.
	IsCode       bool
	LargeProject bool
}

// Decision is the immutable output of one routing call: the ordered
// candidate chain plus the inputs that produced it.
type Decision struct {
	ID              uuid.UUID              `json:"id"`
	Candidates      []string               `json:"candidates"`
	Category        classify.TaskCategory  `json:"category"`
	Estimate        tokens.ContextEstimate `json:"estimate"`
	Bucket          ContextBucket          `json:"bucket"`
	OverrideApplied bool                   `json:"override_applied"`
	SessionID       string                 `json:"session_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Trace is a decision plus the attempts accumulated while executing it.
// The attempt list is append-only; a recorded failure is never removed
// even if a later attempt succeeds.
type Trace struct {
	Decision Decision        `json:"decision"`
	Attempts []AttemptRecord `json:"attempts"`
}

// Observation is one attempt reported to the statistics recorder, with the
// decision dimensions it should be counted under.
type Observation struct {
	Attempt        AttemptRecord
	Category       classify.TaskCategory
	Bucket         ContextBucket
	Tokens         int
	FallbackOrigin bool // attempt was reached by falling back from an earlier candidate
}

// Recorder receives one observation per attempt. Implementations must make
// the multi-dimension increment atomic with respect to concurrent readers.
type Recorder interface {
	Record(obs Observation)
}
