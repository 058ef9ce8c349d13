package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/services/inference"
	"github.com/samara-ai/modelrouter/utils"
)

// routeRequestBody is the request body shared by the route preview and
// dispatch endpoints.
type routeRequestBody struct {
	Text           string  `json:"text" validate:"required"`
	SessionID      string  `json:"session_id" validate:"omitempty,max=255"`
	Mode           string  `json:"mode" validate:"omitempty,oneof=default dev conversation game"`
	MeasuredTokens int     `json:"measured_tokens" validate:"omitempty,gte=0"`
	IsCode         bool    `json:"is_code"`
	LargeProject   bool    `json:"large_project"`
	MaxTokens      int     `json:"max_tokens" validate:"omitempty,gt=0"`
	Temperature    float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

func (b routeRequestBody) toDispatchRequest() inference.DispatchRequest {
	return inference.DispatchRequest{
		Text:           b.Text,
		SessionID:      b.SessionID,
		Mode:           b.Mode,
		MeasuredTokens: b.MeasuredTokens,
		IsCode:         b.IsCode,
		LargeProject:   b.LargeProject,
		MaxTokens:      b.MaxTokens,
		Temperature:    b.Temperature,
	}
}

// RouteResponse is the wire shape of a routing decision preview
type RouteResponse struct {
	DecisionID      uuid.UUID `json:"decision_id"`
	Candidates      []string  `json:"candidates"`
	Category        string    `json:"category"`
	Bucket          string    `json:"bucket"`
	EstimateTokens  int       `json:"estimate_tokens"`
	Provenance      string    `json:"provenance"`
	OverrideApplied bool      `json:"override_applied"`
	SessionID       string    `json:"session_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// RoutingHandler exposes the decision preview and dispatch operations
type RoutingHandler struct {
	service *inference.Service
	logger  *zap.Logger
}

// NewRoutingHandler creates a new RoutingHandler
func NewRoutingHandler(service *inference.Service, logger *zap.Logger) *RoutingHandler {
	return &RoutingHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRoute handles POST /api/v1/route
// Produces the routing decision for a request without calling any provider
func (h *RoutingHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var body routeRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondMalformedBody(w, err)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	decision, err := h.service.Plan(r.Context(), body.toDispatchRequest())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, RouteResponse{
		DecisionID:      decision.ID,
		Candidates:      decision.Candidates,
		Category:        string(decision.Category),
		Bucket:          string(decision.Bucket),
		EstimateTokens:  decision.Estimate.Tokens,
		Provenance:      string(decision.Estimate.Provenance),
		OverrideApplied: decision.OverrideApplied,
		SessionID:       decision.SessionID,
		CreatedAt:       decision.CreatedAt,
	})
}

// HandleDispatch handles POST /api/v1/dispatch
// Runs the full pipeline: decision, fallback execution, audit
func (h *RoutingHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	var body routeRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondMalformedBody(w, err)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	resp, err := h.service.Dispatch(r.Context(), body.toDispatchRequest())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, resp)
}
