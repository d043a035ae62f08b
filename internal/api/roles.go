package api

import (
	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/rolemodels"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// RolesHandler exposes the per-role model client over HTTP.
type RolesHandler struct {
	client *rolemodels.Client
}

// NewRolesHandler creates a RolesHandler.
func NewRolesHandler(client *rolemodels.Client) *RolesHandler {
	return &RolesHandler{client: client}
}

type roleGenerateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate handles POST /v1/roles/:role/generate.
func (h *RolesHandler) Generate(c *fiber.Ctx) error {
	requestID := RequestID(c)
	role := models.Role(c.Params("role"))
	fiberlog.Infof("[%s] starting role generation for %s", requestID, role)

	var body roleGenerateRequest
	if err := c.BodyParser(&body); err != nil {
		return handleError(c, requestID, models.NewValidationError("invalid request body", err))
	}

	result, err := h.client.Generate(c.UserContext(), requestID, role, body.Prompt)
	if err != nil {
		return handleError(c, requestID, err)
	}

	return c.JSON(fiber.Map{
		"request_id":    requestID,
		"role":          role,
		"text":          result.Text,
		"model":         result.Model,
		"usage":         result.Usage,
		"cost_usd":      result.CostUSD,
		"fallback_used": result.FallbackUsed,
	})
}
