// Package backends holds the generation clients for the execution tiers. All
// three tiers speak the chat-completions contract: the premium provider
// natively, the local and elastic tiers through their OpenAI-compatible
// serving frontends (vLLM, llama.cpp, Ollama).
package backends

import (
	"context"

	"github.com/helix-ml/tier-router/internal/models"
)

// GenerationRequest is the invocation contract shared by every tier backend.
type GenerationRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Backend is one tier's generation dependency.
type Backend interface {
	// Name identifies the backend in logs, breaker state, and errors.
	Name() string
	// Generate performs one completion. The context carries the tier's
	// deadline; an expired deadline is a failure for fallback purposes.
	Generate(ctx context.Context, req *GenerationRequest) (*models.Completion, error)
}
