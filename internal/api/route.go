package api

import (
	"github.com/helix-ml/tier-router/internal/config"
	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/executor"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// RouteHandler exposes the routing engine over HTTP.
type RouteHandler struct {
	cfg      *config.Config
	executor *executor.Executor
}

// NewRouteHandler creates a RouteHandler.
func NewRouteHandler(cfg *config.Config, exec *executor.Executor) *RouteHandler {
	return &RouteHandler{cfg: cfg, executor: exec}
}

// routeRequest is the POST /v1/route body: an inference request plus an
// optional routing mode.
type routeRequest struct {
	models.InferenceRequest
	Mode models.RoutingMode `json:"mode,omitempty"`
}

// routeResponse flattens the engine result for HTTP callers.
type routeResponse struct {
	RequestID string                 `json:"request_id"`
	Tier      models.Tier            `json:"tier"`
	Output    string                 `json:"output"`
	Usage     models.TokenUsage      `json:"usage"`
	LatencyMs int64                  `json:"latency_ms"`
	CostUSD   float64                `json:"cost_usd"`
	FellBack  bool                   `json:"fell_back"`
	Decision  models.RoutingDecision `json:"decision"`
	Mode      models.RoutingMode     `json:"mode"`
}

// Route handles POST /v1/route.
func (h *RouteHandler) Route(c *fiber.Ctx) error {
	requestID := RequestID(c)
	fiberlog.Infof("[%s] starting route request", requestID)

	var body routeRequest
	if err := c.BodyParser(&body); err != nil {
		return handleError(c, requestID, models.NewValidationError("invalid request body", err))
	}

	mode := body.Mode
	if mode == "" {
		mode = h.cfg.Routing.DefaultMode
	}

	result, err := h.executor.Route(c.UserContext(), requestID, &body.InferenceRequest, mode)
	if err != nil {
		return handleError(c, requestID, err)
	}

	return c.JSON(routeResponse{
		RequestID: requestID,
		Tier:      result.Tier,
		Output:    result.Output,
		Usage:     result.Usage,
		LatencyMs: result.Latency.Milliseconds(),
		CostUSD:   result.CostUSD,
		FellBack:  result.FellBack,
		Decision:  result.Decision,
		Mode:      mode,
	})
}

// Decide handles POST /v1/route/decide: scoring and selection without
// executing, for callers that do their own dispatch.
func (h *RouteHandler) Decide(c *fiber.Ctx) error {
	requestID := RequestID(c)

	var body routeRequest
	if err := c.BodyParser(&body); err != nil {
		return handleError(c, requestID, models.NewValidationError("invalid request body", err))
	}

	mode := body.Mode
	if mode == "" {
		mode = h.cfg.Routing.DefaultMode
	}
	if !mode.Valid() {
		return handleError(c, requestID, models.NewValidationError("unknown routing mode "+string(mode), nil))
	}

	decision := h.executor.Decide(c.UserContext(), &body.InferenceRequest, mode)
	return c.JSON(fiber.Map{
		"request_id": requestID,
		"decision":   decision,
		"mode":       mode,
	})
}
