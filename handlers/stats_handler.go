package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/samara-ai/modelrouter/services/audit"
	"github.com/samara-ai/modelrouter/services/inference"
	"github.com/samara-ai/modelrouter/services/stats"
	"github.com/samara-ai/modelrouter/utils"
)

// StatsResponse bundles the usage counters with the audit queue state
type StatsResponse struct {
	Statistics stats.Snapshot `json:"statistics"`
	Audit      *audit.Stats   `json:"audit,omitempty"`
}

// StatsHandler exposes the statistics snapshot. audit is nil when the
// audit trail is disabled.
type StatsHandler struct {
	service *inference.Service
	audit   *audit.Service
	logger  *zap.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(service *inference.Service, auditSvc *audit.Service, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		audit:   auditSvc,
		logger:  logger,
	}
}

// HandleStats handles GET /api/v1/stats
// Returns a point-in-time copy of the usage counters
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{
		Statistics: h.service.SnapshotStatistics(),
	}
	if h.audit != nil {
		auditStats := h.audit.GetStats()
		response.Audit = &auditStats
	}

	_ = utils.WriteOK(w, response)
}
