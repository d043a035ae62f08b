// Package budget converts a request's token volume into a monetary ceiling.
package budget

import (
	"github.com/helix-ml/tier-router/internal/models"
)

// Calculator derives per-request spending ceilings from a configured cost
// target (currency per story point). Deterministic, no failure mode.
type Calculator struct {
	costTargetPerPoint      float64
	referenceTokensPerPoint float64
}

// New creates a Calculator. referenceTokensPerPoint is the token volume that
// corresponds to one unit of work at the cost target.
func New(costTargetPerPoint float64, referenceTokensPerPoint int) *Calculator {
	return &Calculator{
		costTargetPerPoint:      costTargetPerPoint,
		referenceTokensPerPoint: float64(referenceTokensPerPoint),
	}
}

// Ceiling returns the monetary ceiling for the request. When the caller did
// not estimate output tokens, output volume is assumed equal to input volume.
func (c *Calculator) Ceiling(req *models.InferenceRequest) float64 {
	output := req.EstimatedOutputTokens
	if output <= 0 {
		output = req.InputTokens
	}
	totalTokens := float64(req.InputTokens + output)

	return c.costTargetPerPoint * (totalTokens / c.referenceTokensPerPoint)
}
