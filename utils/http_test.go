package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteOK(rec, map[string]string{"hello": "world"}))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Data)
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(rec *httptest.ResponseRecorder) error
		wantStatus int
		wantError  string
	}{
		{
			name: "bad request",
			write: func(rec *httptest.ResponseRecorder) error {
				return WriteBadRequest(rec, "bad input", map[string]interface{}{"field": "text"})
			},
			wantStatus: 400,
			wantError:  "bad_request",
		},
		{
			name: "not found",
			write: func(rec *httptest.ResponseRecorder) error {
				return WriteNotFound(rec, "")
			},
			wantStatus: 404,
			wantError:  "not_found",
		},
		{
			name: "unprocessable",
			write: func(rec *httptest.ResponseRecorder) error {
				return WriteUnprocessableEntity(rec, "too large", nil)
			},
			wantStatus: 422,
			wantError:  "unprocessable_entity",
		},
		{
			name: "bad gateway",
			write: func(rec *httptest.ResponseRecorder) error {
				return WriteBadGateway(rec, "all providers failed", nil)
			},
			wantStatus: 502,
			wantError:  "bad_gateway",
		},
		{
			name: "service unavailable",
			write: func(rec *httptest.ResponseRecorder) error {
				return WriteServiceUnavailable(rec, "", nil)
			},
			wantStatus: 503,
			wantError:  "service_unavailable",
		},
		{
			name: "internal",
			write: func(rec *httptest.ResponseRecorder) error {
				return WriteInternalServerError(rec, "")
			},
			wantStatus: 500,
			wantError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, tt.write(rec))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}
