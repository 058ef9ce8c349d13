package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/app"
	"github.com/samara-ai/modelrouter/config"
	"github.com/samara-ai/modelrouter/services/routing"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg := &config.Config{
		Routing: config.RoutingConfig{
			SmallBucketEdge:  500,
			MediumBucketEdge: 2000,
			LargeBucketEdge:  10000,
			HugeBucketEdge:   30000,
			CharsPerToken:    4,
			CodeMultiplier:   1.2,
			ProjectFloor:     50000,
		},
		Providers:   config.DefaultProviderSpecs(),
		Environment: "test",
	}

	invoke := func(ctx context.Context, provider string, req routing.InvokeRequest) (*routing.InvokeResponse, error) {
		return &routing.InvokeResponse{Provider: provider, Content: "ok"}, nil
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop(), app.WithInvoker(invoke))
	require.NoError(t, err)

	return SetupRoutes(deps)
}

func TestSetupRoutes_Health(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRoutes_RoutePreview(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route",
		strings.NewReader(`{"text":"what is the capital of France"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Category   string   `json:"category"`
			Candidates []string `json:"candidates"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "trivial-query", resp.Data.Category)
	assert.NotEmpty(t, resp.Data.Candidates)
}

func TestSetupRoutes_DispatchAndStats(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch",
		strings.NewReader(`{"text":"hello there"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Statistics struct {
				TotalAttempts int `json:"total_attempts"`
			} `json:"statistics"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Data.Statistics.TotalAttempts)
}

func TestSetupRoutes_SessionOverride(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/sess-1/override",
		strings.NewReader(`{"provider":"gemini"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/sess-1/override", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetupRoutes_DecisionsUnavailableWithoutAudit(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/decisions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSetupRoutes_NotFound(t *testing.T) {
	handler := testHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "endpoint not found", resp["error"])
}
