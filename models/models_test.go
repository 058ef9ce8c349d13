package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecisionRecord(t *testing.T) {
	id := uuid.New()
	rec := NewDecisionRecord(id, "code-analysis", "medium", 5000)

	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "code-analysis", rec.Category)
	assert.Equal(t, "medium", rec.Bucket)
	assert.Equal(t, 5000, rec.EstimateTokens)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.SessionID)
	assert.Nil(t, rec.ServedBy)
}

func TestDecisionRecord_Builders(t *testing.T) {
	rec := NewDecisionRecord(uuid.New(), "debugging", "small", 800).
		WithSession("sess-42").
		WithCandidates([]string{"claude", "gpt4", "ollama"}).
		WithOutcome(OutcomeServed, "gpt4").
		WithError("")

	require.NotNil(t, rec.SessionID)
	assert.Equal(t, "sess-42", *rec.SessionID)

	var candidates []string
	require.NoError(t, json.Unmarshal(rec.Candidates, &candidates))
	assert.Equal(t, []string{"claude", "gpt4", "ollama"}, candidates)

	require.NotNil(t, rec.ServedBy)
	assert.Equal(t, "gpt4", *rec.ServedBy)
	assert.Equal(t, OutcomeServed, rec.Outcome)
	assert.Nil(t, rec.ErrorMessage)
}

func TestDecisionRecord_EmptySessionStaysNil(t *testing.T) {
	rec := NewDecisionRecord(uuid.New(), "conversation", "tiny", 20).WithSession("")
	assert.Nil(t, rec.SessionID)
}

func TestDecisionRecord_WithAttempts(t *testing.T) {
	type attempt struct {
		Provider string `json:"provider"`
		Outcome  string `json:"outcome"`
	}
	rec := NewDecisionRecord(uuid.New(), "simple-consult", "tiny", 100).
		WithAttempts([]attempt{{"ollama", "failure"}, {"gemini", "success"}}, 2)

	assert.Equal(t, 2, rec.AttemptCount)

	var got []attempt
	require.NoError(t, json.Unmarshal(rec.Attempts, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "gemini", got[1].Provider)
}

func TestDecisionRecord_TableName(t *testing.T) {
	assert.Equal(t, "routing_decisions", DecisionRecord{}.TableName())
}
