package api

import (
	"errors"

	"github.com/helix-ml/tier-router/internal/models"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// handleError maps engine errors to HTTP responses. Exhaustion errors carry
// the per-tier attempt list so callers can see every failure reason.
func handleError(c *fiber.Ctx, requestID string, err error) error {
	var exhausted *models.ExhaustedError
	if errors.As(err, &exhausted) {
		fiberlog.Errorf("[%s] %v", requestID, exhausted)
		return c.Status(exhausted.GetStatusCode()).JSON(fiber.Map{
			"error": fiber.Map{
				"type":     string(models.ErrorTypeExhausted),
				"message":  exhausted.Error(),
				"attempts": exhausted.Attempts,
			},
			"request_id": requestID,
		})
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		fiberlog.Warnf("[%s] %v", requestID, appErr)
		return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{
			"error": fiber.Map{
				"type":    string(appErr.Type),
				"message": appErr.Error(),
			},
			"request_id": requestID,
		})
	}

	fiberlog.Errorf("[%s] unexpected error: %v", requestID, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{
			"type":    string(models.ErrorTypeInternal),
			"message": err.Error(),
		},
		"request_id": requestID,
	})
}
