package inference

import (
	"time"

	"github.com/google/uuid"

	"github.com/samara-ai/modelrouter/services/routing"
)

// DispatchRequest is one inference request entering the pipeline
type DispatchRequest struct {
	// Prompt text; also the input to estimation and classification
	Text string `json:"text"`

	// Session the request belongs to, empty for one-shot requests
	SessionID string `json:"session_id,omitempty"`

	// Session mode hint (default, dev, conversation, game)
	Mode string `json:"mode,omitempty"`

	// Caller-measured token count; 0 means estimate from Text
	MeasuredTokens int `json:"measured_tokens,omitempty"`

	// Estimation hints
	IsCode       bool `json:"is_code,omitempty"`
	LargeProject bool `json:"large_project,omitempty"`

	// Invocation parameters passed through to the provider call
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// AttemptView is the wire shape of one fallback attempt
type AttemptView struct {
	Provider  string `json:"provider"`
	Outcome   string `json:"outcome"`
	LatencyMs int    `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// DispatchResponse is the result of a served request plus its trail
type DispatchResponse struct {
	DecisionID uuid.UUID `json:"decision_id"`

	// Provider that served the request
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Content  string `json:"content"`

	// Decision context
	Category        string   `json:"category"`
	Bucket          string   `json:"bucket"`
	EstimateTokens  int      `json:"estimate_tokens"`
	Provenance      string   `json:"provenance"`
	OverrideApplied bool     `json:"override_applied"`
	Candidates      []string `json:"candidates"`

	// Fallback trail
	Attempts     []AttemptView `json:"attempts"`
	FallbackUsed bool          `json:"fallback_used"`

	LatencyMs   int       `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// attemptViews converts a trace's attempts to their wire shape
func attemptViews(attempts []routing.AttemptRecord) []AttemptView {
	out := make([]AttemptView, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptView{
			Provider:  a.Provider,
			Outcome:   string(a.Outcome),
			LatencyMs: int(a.Latency.Milliseconds()),
			Error:     a.Error,
		}
	}
	return out
}
