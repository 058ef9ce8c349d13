package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/models"
	"github.com/samara-ai/modelrouter/repositories"
	"github.com/samara-ai/modelrouter/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// DecisionHandler exposes the persisted decision audit trail. repo is nil
// when the audit trail is disabled; every operation then answers 503.
type DecisionHandler struct {
	repo   repositories.DecisionRepository
	logger *zap.Logger
}

// NewDecisionHandler creates a new DecisionHandler
func NewDecisionHandler(repo repositories.DecisionRepository, logger *zap.Logger) *DecisionHandler {
	return &DecisionHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleGetDecision handles GET /api/v1/decisions/{id}
func (h *DecisionHandler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		_ = utils.WriteServiceUnavailable(w, "Audit trail is disabled", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid decision ID", nil)
		return
	}

	rec, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, rec)
}

// HandleListDecisions handles GET /api/v1/decisions
// Filters: session_id, outcome, from/to (RFC 3339). session_id wins over
// outcome; with neither set the window defaults to the last 24 hours.
func (h *DecisionHandler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		_ = utils.WriteServiceUnavailable(w, "Audit trail is disabled", nil)
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var recs []*models.DecisionRecord

	switch {
	case r.URL.Query().Get("session_id") != "":
		recs, err = h.repo.GetBySessionID(r.Context(), r.URL.Query().Get("session_id"), limit, offset)

	case r.URL.Query().Get("outcome") != "":
		outcome := models.DecisionOutcome(r.URL.Query().Get("outcome"))
		switch outcome {
		case models.OutcomeServed, models.OutcomeExhausted, models.OutcomeAborted:
		default:
			_ = utils.WriteBadRequest(w, "Invalid outcome filter", map[string]interface{}{
				"outcome": r.URL.Query().Get("outcome"),
			})
			return
		}
		recs, err = h.repo.GetByOutcome(r.Context(), outcome, limit, offset)

	default:
		start, end, rangeErr := parseDateRange(r)
		if rangeErr != nil {
			_ = utils.WriteBadRequest(w, rangeErr.Error(), nil)
			return
		}
		recs, err = h.repo.GetByDateRange(r.Context(), start, end, limit, offset)
	}

	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, recs)
}

// HandleGetMetrics handles GET /api/v1/decisions/metrics
// Aggregates over from/to, defaulting to the last 24 hours
func (h *DecisionHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		_ = utils.WriteServiceUnavailable(w, "Audit trail is disabled", nil)
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	metrics, err := h.repo.GetMetrics(r.Context(), start, end)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, metrics)
}

func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return 0, 0, &paramError{"limit must be an integer between 1 and 500"}
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, &paramError{"offset must be a non-negative integer"}
		}
	}
	return limit, offset, nil
}

func parseDateRange(r *http.Request) (start, end time.Time, err error) {
	end = time.Now().UTC()
	start = end.Add(-24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		start, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &paramError{"from must be an RFC 3339 timestamp"}
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		end, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &paramError{"to must be an RFC 3339 timestamp"}
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, &paramError{"to must not precede from"}
	}
	return start, end, nil
}

type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }
