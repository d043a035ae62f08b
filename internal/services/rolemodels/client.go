// Package rolemodels is the per-role model client: a two-link fallback chain
// (configured primary provider, then the universal local model) for the fixed
// arbitration and coordination roles. It shares the chain machinery with the
// tier executor but keeps independent breakers and counters.
package rolemodels

import (
	"context"
	"fmt"
	"sync"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/circuitbreaker"
	"github.com/helix-ml/tier-router/internal/services/failover"
	"github.com/helix-ml/tier-router/internal/services/usage"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Invoker performs one generation against a concrete model.
type Invoker func(ctx context.Context, prompt string) (*models.Completion, error)

// Primary is a role's first-choice model path.
type Primary struct {
	Provider string
	Model    string
	Invoke   Invoker
}

// Fallback is the universal local model path shared by both roles.
type Fallback struct {
	Model  string
	Invoke Invoker
}

// Client serves generation requests for the two fixed roles.
type Client struct {
	primaries map[models.Role]Primary
	fallback  Fallback

	primaryBreakers map[models.Role]*circuitbreaker.CircuitBreaker
	fallbackBreaker *circuitbreaker.CircuitBreaker

	mu             sync.Mutex
	fallbackCounts map[models.Role]int64
}

// New builds the client from config, constructing real provider invokers.
func New(cfg models.RolesConfig, breakerCfg circuitbreaker.Config) (*Client, error) {
	primaries := make(map[models.Role]Primary, 2)
	for role, roleCfg := range map[models.Role]models.ComponentModelConfig{
		models.RoleArbitration:  cfg.Arbitration,
		models.RoleCoordination: cfg.Coordination,
	} {
		invoke, err := buildPrimaryInvoker(role, roleCfg)
		if err != nil {
			return nil, err
		}
		primaries[role] = Primary{
			Provider: roleCfg.Provider,
			Model:    roleCfg.Model,
			Invoke:   invoke,
		}
	}

	fallbackInvoke, err := buildFallbackInvoker(cfg.Fallback)
	if err != nil {
		return nil, err
	}

	return NewWithInvokers(primaries, Fallback{Model: cfg.Fallback.Model, Invoke: fallbackInvoke}, breakerCfg), nil
}

// NewWithInvokers builds the client from pre-built invocation paths. Tests use
// this to substitute deterministic doubles for the provider SDKs. Provider
// names are canonicalized so pricing lookups see the spelling the table uses.
func NewWithInvokers(primaries map[models.Role]Primary, fallback Fallback, breakerCfg circuitbreaker.Config) *Client {
	canonical := make(map[models.Role]Primary, len(primaries))
	primaryBreakers := make(map[models.Role]*circuitbreaker.CircuitBreaker, len(primaries))
	for role, primary := range primaries {
		primary.Provider = normalizeProvider(primary.Provider)
		canonical[role] = primary
		primaryBreakers[role] = circuitbreaker.NewWithConfig("role-"+string(role), breakerCfg)
	}

	return &Client{
		primaries:       canonical,
		fallback:        fallback,
		primaryBreakers: primaryBreakers,
		fallbackBreaker: circuitbreaker.NewWithConfig("role-local-fallback", breakerCfg),
		fallbackCounts:  make(map[models.Role]int64, len(primaries)),
	}
}

// Generate runs one generation for the role: primary first, then the local
// fallback. A fallback-served result is marked as such and counted per role.
func (c *Client) Generate(ctx context.Context, requestID string, role models.Role, prompt string) (*models.RoleResult, error) {
	if !role.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown role %q", role), nil)
	}
	if prompt == "" {
		return nil, models.NewValidationError("prompt cannot be empty", nil)
	}

	primary, ok := c.primaries[role]
	if !ok {
		return nil, models.NewConfigurationError(string(role), "role has no configured primary model")
	}

	candidates := []failover.Candidate[*models.Completion]{
		{
			Name:    fmt.Sprintf("%s/%s", primary.Provider, primary.Model),
			Breaker: c.primaryBreakers[role],
			Invoke: func(ctx context.Context) (*models.Completion, error) {
				return primary.Invoke(ctx, prompt)
			},
		},
		{
			Name:    "local/" + c.fallback.Model,
			Breaker: c.fallbackBreaker,
			Invoke: func(ctx context.Context) (*models.Completion, error) {
				return c.fallback.Invoke(ctx, prompt)
			},
		},
	}

	result, err := failover.Run(ctx, requestID, candidates)
	if err != nil && result == nil {
		return nil, err
	}
	if result.Winner < 0 {
		primaryErr, fallbackErr := splitAttemptErrors(result.Attempts)
		fiberlog.Errorf("[%s] Role %s: primary and fallback both failed", requestID, role)
		return nil, models.NewRoleExhaustedError(string(role), primaryErr, fallbackErr)
	}

	completion := result.Value
	if result.Winner == 0 {
		return &models.RoleResult{
			Text:    completion.Text,
			Model:   primary.Model,
			Usage:   completion.Usage,
			CostUSD: usage.CalculateCost(primary.Provider, primary.Model, completion.Usage),
		}, nil
	}

	c.recordFallback(role)
	fiberlog.Warnf("[%s] Role %s served by local fallback %s", requestID, role, c.fallback.Model)

	// Local computation is not metered; approximate token usage from
	// character counts and report zero spend.
	estimated := models.TokenUsage{
		PromptTokens:     estimateTokens(prompt),
		CompletionTokens: estimateTokens(completion.Text),
	}
	estimated.TotalTokens = estimated.PromptTokens + estimated.CompletionTokens

	return &models.RoleResult{
		Text:         completion.Text,
		Model:        c.fallback.Model,
		Usage:        estimated,
		CostUSD:      0,
		FallbackUsed: true,
	}, nil
}

// FallbackCounts returns a copy of the per-role fallback counters.
func (c *Client) FallbackCounts() map[models.Role]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[models.Role]int64, len(c.fallbackCounts))
	for role, n := range c.fallbackCounts {
		counts[role] = n
	}
	return counts
}

func (c *Client) recordFallback(role models.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbackCounts[role]++
}

// estimateTokens approximates token usage as ceil(len/4).
func estimateTokens(text string) int64 {
	return int64((len(text) + 3) / 4)
}

func splitAttemptErrors(attempts []failover.Attempt) (primaryErr, fallbackErr error) {
	for i, a := range attempts {
		if i == 0 {
			primaryErr = a.Err
		} else {
			fallbackErr = a.Err
		}
	}
	return primaryErr, fallbackErr
}
