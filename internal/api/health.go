package api

import (
	"context"
	"fmt"
	"time"

	"github.com/helix-ml/tier-router/internal/services/selector"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	probe       selector.Probe
	redisClient *redis.Client
}

// NewHealthHandler creates a new health check handler. Both dependencies are
// optional; absent ones report as "unknown".
func NewHealthHandler(probe selector.Probe, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{probe: probe, redisClient: redisClient}
}

// HealthCheck returns the health status of the service and its dependencies
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	localStatus := h.checkLocalTier()
	redisStatus := h.checkRedis()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK

	if localStatus == "unhealthy" || redisStatus == "unhealthy" {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"local_tier":  localStatus,
			"audit_redis": redisStatus,
		},
	})
}

// checkLocalTier queries the availability probe for the local tier.
func (h *HealthHandler) checkLocalTier() string {
	if h.probe == nil {
		return "unknown"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	available, load, err := h.probe.LocalStatus(ctx)
	if err != nil || !available {
		return "unhealthy"
	}
	if load >= 0.95 {
		return fmt.Sprintf("overloaded (%.0f%%)", load*100)
	}
	return "healthy"
}

// checkRedis verifies audit stream connectivity.
func (h *HealthHandler) checkRedis() string {
	if h.redisClient == nil {
		return "unknown"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
