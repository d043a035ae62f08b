package budget

import (
	"testing"

	"github.com/helix-ml/tier-router/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCeilingUsesEstimatedOutput(t *testing.T) {
	c := New(2.0, 10000)

	// 4000 in + 6000 estimated out = 10000 tokens = one point at the target.
	ceiling := c.Ceiling(&models.InferenceRequest{
		InputTokens:           4000,
		EstimatedOutputTokens: 6000,
	})
	assert.InDelta(t, 2.0, ceiling, 1e-9)
}

func TestCeilingDefaultsOutputToInput(t *testing.T) {
	c := New(2.0, 10000)

	ceiling := c.Ceiling(&models.InferenceRequest{InputTokens: 5000})
	assert.InDelta(t, 2.0, ceiling, 1e-9)
}

func TestCeilingScalesLinearly(t *testing.T) {
	c := New(3.0, 10000)

	base := c.Ceiling(&models.InferenceRequest{InputTokens: 1000})
	doubled := c.Ceiling(&models.InferenceRequest{InputTokens: 2000})
	tenfold := c.Ceiling(&models.InferenceRequest{InputTokens: 10000})

	assert.InDelta(t, 2*base, doubled, 1e-9)
	assert.InDelta(t, 10*base, tenfold, 1e-9)
}
