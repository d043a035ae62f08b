package rolemodels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakerConfig() circuitbreaker.Config {
	return circuitbreaker.Config{FailureThreshold: 3, Cooldown: time.Minute}
}

func staticInvoker(text string, usage models.TokenUsage) Invoker {
	return func(context.Context, string) (*models.Completion, error) {
		return &models.Completion{Text: text, Usage: usage}, nil
	}
}

func failingInvoker(err error) Invoker {
	return func(context.Context, string) (*models.Completion, error) {
		return nil, err
	}
}

func newTestClient(primaryArb, primaryCoord, fallback Invoker) *Client {
	return NewWithInvokers(
		map[models.Role]Primary{
			models.RoleArbitration:  {Provider: "anthropic", Model: "claude-sonnet-4-5", Invoke: primaryArb},
			models.RoleCoordination: {Provider: "gemini", Model: "gemini-2.5-flash", Invoke: primaryCoord},
		},
		Fallback{Model: "qwen2.5-7b-instruct", Invoke: fallback},
		testBreakerConfig(),
	)
}

func TestGeneratePrimarySuccessIsPriced(t *testing.T) {
	usage := models.TokenUsage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}
	client := newTestClient(
		staticInvoker("verdict", usage),
		failingInvoker(errors.New("unused")),
		failingInvoker(errors.New("unused")),
	)

	result, err := client.Generate(context.Background(), "req-1", models.RoleArbitration, "resolve this conflict")

	require.NoError(t, err)
	assert.Equal(t, "verdict", result.Text)
	assert.Equal(t, "claude-sonnet-4-5", result.Model)
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, usage, result.Usage)
	// claude-sonnet-4-5: $3/M input + $15/M output.
	assert.InDelta(t, 1000.0/1_000_000*3.0+500.0/1_000_000*15.0, result.CostUSD, 1e-12)
	assert.Empty(t, client.FallbackCounts())
}

func TestGeneratePricesProviderAliases(t *testing.T) {
	reported := models.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000}

	for _, provider := range []string{"google", "Google", "GEMINI"} {
		client := NewWithInvokers(
			map[models.Role]Primary{
				models.RoleCoordination: {Provider: provider, Model: "gemini-2.5-flash", Invoke: staticInvoker("plan", reported)},
			},
			Fallback{Model: "qwen2.5-7b-instruct", Invoke: failingInvoker(errors.New("unused"))},
			testBreakerConfig(),
		)

		result, err := client.Generate(context.Background(), "req-alias", models.RoleCoordination, "plan the rollout")

		require.NoError(t, err, "provider %q", provider)
		assert.False(t, result.FallbackUsed)
		// gemini-2.5-flash: $0.30/M input + $2.50/M output.
		assert.InDelta(t, 2.80, result.CostUSD, 1e-12, "provider %q must price as gemini", provider)
	}
}

func TestGenerateFallsBackOnPrimaryFailure(t *testing.T) {
	fallbackCalls := 0
	client := newTestClient(
		failingInvoker(errors.New("connection refused")),
		staticInvoker("unused", models.TokenUsage{}),
		func(_ context.Context, prompt string) (*models.Completion, error) {
			fallbackCalls++
			return &models.Completion{Text: "local verdict"}, nil
		},
	)

	prompt := "resolve this conflict please"
	result, err := client.Generate(context.Background(), "req-2", models.RoleArbitration, prompt)

	require.NoError(t, err)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "qwen2.5-7b-instruct", result.Model)
	assert.Equal(t, 1, fallbackCalls)
	assert.Zero(t, result.CostUSD)

	// Unmetered local usage is estimated at ceil(chars/4).
	wantPrompt := int64((len(prompt) + 3) / 4)
	wantOutput := int64((len("local verdict") + 3) / 4)
	assert.Equal(t, wantPrompt, result.Usage.PromptTokens)
	assert.Equal(t, wantOutput, result.Usage.CompletionTokens)
	assert.Equal(t, wantPrompt+wantOutput, result.Usage.TotalTokens)

	assert.Equal(t, int64(1), client.FallbackCounts()[models.RoleArbitration])
	assert.Zero(t, client.FallbackCounts()[models.RoleCoordination])
}

func TestGenerateBothFailedNamesBothFailures(t *testing.T) {
	client := newTestClient(
		failingInvoker(errors.New("primary timeout")),
		staticInvoker("unused", models.TokenUsage{}),
		failingInvoker(errors.New("local model not loaded")),
	)

	_, err := client.Generate(context.Background(), "req-3", models.RoleArbitration, "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary timeout")
	assert.Contains(t, err.Error(), "local model not loaded")
	assert.Contains(t, err.Error(), "arbitration")
}

func TestGenerateCountersAreIndependentPerRole(t *testing.T) {
	client := newTestClient(
		failingInvoker(errors.New("arb down")),
		failingInvoker(errors.New("coord down")),
		staticInvoker("local", models.TokenUsage{}),
	)

	for i := 0; i < 2; i++ {
		_, err := client.Generate(context.Background(), "req", models.RoleArbitration, "p")
		require.NoError(t, err)
	}
	_, err := client.Generate(context.Background(), "req", models.RoleCoordination, "p")
	require.NoError(t, err)

	counts := client.FallbackCounts()
	assert.Equal(t, int64(2), counts[models.RoleArbitration])
	assert.Equal(t, int64(1), counts[models.RoleCoordination])
}

func TestGenerateRejectsUnknownRoleAndEmptyPrompt(t *testing.T) {
	client := newTestClient(
		staticInvoker("a", models.TokenUsage{}),
		staticInvoker("b", models.TokenUsage{}),
		staticInvoker("c", models.TokenUsage{}),
	)

	_, err := client.Generate(context.Background(), "req", models.Role("observer"), "p")
	require.Error(t, err)

	_, err = client.Generate(context.Background(), "req", models.RoleArbitration, "")
	require.Error(t, err)
}

func TestGenerateOpenPrimaryBreakerGoesStraightToFallback(t *testing.T) {
	primaryCalls := 0
	client := newTestClient(
		func(context.Context, string) (*models.Completion, error) {
			primaryCalls++
			return nil, errors.New("still down")
		},
		staticInvoker("unused", models.TokenUsage{}),
		staticInvoker("local", models.TokenUsage{}),
	)

	// Trip the arbitration primary breaker.
	for i := 0; i < 3; i++ {
		_, err := client.Generate(context.Background(), "req", models.RoleArbitration, "p")
		require.NoError(t, err)
	}
	require.Equal(t, 3, primaryCalls)

	result, err := client.Generate(context.Background(), "req", models.RoleArbitration, "p")
	require.NoError(t, err)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, 3, primaryCalls, "open breaker must skip the primary without invoking it")
	assert.Equal(t, int64(4), client.FallbackCounts()[models.RoleArbitration])
}
