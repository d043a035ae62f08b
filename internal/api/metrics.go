package api

import (
	"github.com/helix-ml/tier-router/internal/services/executor"
	"github.com/helix-ml/tier-router/internal/services/rolemodels"

	"github.com/gofiber/fiber/v2"
)

// MetricsHandler serves the ledger snapshot and related gauges.
type MetricsHandler struct {
	executor   *executor.Executor
	roleClient *rolemodels.Client
}

// NewMetricsHandler creates a MetricsHandler. The role client may be nil when
// the per-role surface is disabled.
func NewMetricsHandler(exec *executor.Executor, roleClient *rolemodels.Client) *MetricsHandler {
	return &MetricsHandler{executor: exec, roleClient: roleClient}
}

// Metrics handles GET /v1/metrics.
func (h *MetricsHandler) Metrics(c *fiber.Ctx) error {
	response := fiber.Map{
		"ledger":   h.executor.Snapshot(),
		"breakers": h.executor.BreakerStates(),
	}
	if h.roleClient != nil {
		response["role_fallbacks"] = h.roleClient.FallbackCounts()
	}

	return c.JSON(response)
}
