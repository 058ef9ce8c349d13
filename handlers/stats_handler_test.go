package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatsHandler_HandleStats(t *testing.T) {
	svc := newTestService(t, nil)
	routing := NewRoutingHandler(svc, zap.NewNop())
	h := NewStatsHandler(svc, nil, zap.NewNop())

	// Drive one request through the pipeline so the counters move
	rec := postJSON(t, routing.HandleDispatch, "/api/v1/dispatch", `{"text":"hello there"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Data.Statistics.TotalAttempts)
	assert.NotEmpty(t, resp.Data.Statistics.ByProvider)
	assert.Nil(t, resp.Data.Audit, "audit stats absent when auditing is disabled")
}

func TestStatsHandler_HandleStats_Empty(t *testing.T) {
	svc := newTestService(t, nil)
	h := NewStatsHandler(svc, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Zero(t, resp.Data.Statistics.TotalAttempts)
}
