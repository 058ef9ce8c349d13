package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/services/inference"
	"github.com/samara-ai/modelrouter/utils"
)

// overrideRequestBody is the body of PUT /api/v1/sessions/{id}/override
type overrideRequestBody struct {
	Provider string `json:"provider" validate:"required"`
}

// OverrideResponse is the wire shape of a session override
type OverrideResponse struct {
	SessionID string    `json:"session_id"`
	Provider  string    `json:"provider"`
	SetAt     time.Time `json:"set_at"`
}

// SessionHandler exposes the session override operations
type SessionHandler struct {
	service *inference.Service
	logger  *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(service *inference.Service, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSetOverride handles PUT /api/v1/sessions/{id}/override
// Forces a provider for every subsequent decision in the session
func (h *SessionHandler) HandleSetOverride(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body overrideRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondMalformedBody(w, err)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.service.SetOverride(sessionID, body.Provider); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	override, _ := h.service.GetOverride(sessionID)
	_ = utils.WriteOK(w, OverrideResponse{
		SessionID: sessionID,
		Provider:  override.Provider,
		SetAt:     override.SetAt,
	})
}

// HandleGetOverride handles GET /api/v1/sessions/{id}/override
func (h *SessionHandler) HandleGetOverride(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	override, ok := h.service.GetOverride(sessionID)
	if !ok {
		_ = utils.WriteNotFound(w, "No override set for session")
		return
	}

	_ = utils.WriteOK(w, OverrideResponse{
		SessionID: sessionID,
		Provider:  override.Provider,
		SetAt:     override.SetAt,
	})
}

// HandleClearOverride handles DELETE /api/v1/sessions/{id}/override
// Clearing an absent override is a no-op, not an error
func (h *SessionHandler) HandleClearOverride(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	h.service.ClearOverride(sessionID)
	utils.WriteNoContent(w)
}
