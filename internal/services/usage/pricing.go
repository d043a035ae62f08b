// Package usage prices provider-reported token usage for the per-role model
// client. Prices are USD per 1M tokens.
package usage

import "github.com/helix-ml/tier-router/internal/models"

type ModelPricing struct {
	InputTokenCost  float64
	OutputTokenCost float64
}

type ProviderPricing map[string]ModelPricing

var GlobalPricing = map[string]ProviderPricing{
	"openai": {
		"gpt-5": {
			InputTokenCost:  1.25,
			OutputTokenCost: 10.0,
		},
		"gpt-5-mini": {
			InputTokenCost:  0.25,
			OutputTokenCost: 2.0,
		},
		"gpt-4o": {
			InputTokenCost:  2.5,
			OutputTokenCost: 10.0,
		},
		"gpt-4o-mini": {
			InputTokenCost:  0.15,
			OutputTokenCost: 0.6,
		},
	},
	"anthropic": {
		"claude-opus-4-1": {
			InputTokenCost:  15.0,
			OutputTokenCost: 75.0,
		},
		"claude-sonnet-4-5": {
			InputTokenCost:  3.0,
			OutputTokenCost: 15.0,
		},
		"claude-3-5-haiku-latest": {
			InputTokenCost:  0.8,
			OutputTokenCost: 4.0,
		},
	},
	"gemini": {
		"gemini-2.5-pro": {
			InputTokenCost:  1.25,
			OutputTokenCost: 10.0,
		},
		"gemini-2.5-flash": {
			InputTokenCost:  0.3,
			OutputTokenCost: 2.5,
		},
	},
}

// CalculateCost prices the reported usage for a provider/model pair. Unknown
// models cost zero rather than failing the call that produced the usage.
func CalculateCost(provider, model string, tokenUsage models.TokenUsage) float64 {
	providerPricing, ok := GlobalPricing[provider]
	if !ok {
		return 0
	}
	pricing, ok := providerPricing[model]
	if !ok {
		return 0
	}

	inputCost := float64(tokenUsage.PromptTokens) / 1_000_000 * pricing.InputTokenCost
	outputCost := float64(tokenUsage.CompletionTokens) / 1_000_000 * pricing.OutputTokenCost
	return inputCost + outputCost
}
