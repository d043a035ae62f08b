// Package executor is the routing engine's core: it scores a request, selects
// a tier, and drives the fallback chain until a tier serves the request or
// the hierarchy is exhausted.
package executor

import (
	"context"
	"time"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/backends"
	"github.com/helix-ml/tier-router/internal/services/budget"
	"github.com/helix-ml/tier-router/internal/services/circuitbreaker"
	"github.com/helix-ml/tier-router/internal/services/estimator"
	"github.com/helix-ml/tier-router/internal/services/failover"
	"github.com/helix-ml/tier-router/internal/services/ledger"
	"github.com/helix-ml/tier-router/internal/services/selector"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Sink is the audit collaborator; emission failures never fail routing.
type Sink interface {
	Emit(ctx context.Context, event models.AuditEvent)
}

// Executor routes inference requests across the execution tiers.
type Executor struct {
	registry  *models.TierRegistry
	estimator *estimator.Estimator
	budget    *budget.Calculator
	selector  *selector.Selector
	backends  map[models.Tier]backends.Backend
	breakers  map[models.Tier]*circuitbreaker.CircuitBreaker
	ledger    *ledger.CostLedger
	sink      Sink
}

// New wires the executor. Every tier in the registry must have a backend and
// a breaker; the sink may be nil.
func New(
	registry *models.TierRegistry,
	est *estimator.Estimator,
	budgetCalc *budget.Calculator,
	sel *selector.Selector,
	tierBackends map[models.Tier]backends.Backend,
	breakers map[models.Tier]*circuitbreaker.CircuitBreaker,
	costLedger *ledger.CostLedger,
	sink Sink,
) (*Executor, error) {
	for _, tier := range models.FallbackHierarchy {
		if tierBackends[tier] == nil {
			return nil, models.NewConfigurationError("executor", "no backend for tier "+string(tier))
		}
		if breakers[tier] == nil {
			return nil, models.NewConfigurationError("executor", "no circuit breaker for tier "+string(tier))
		}
	}

	return &Executor{
		registry:  registry,
		estimator: est,
		budget:    budgetCalc,
		selector:  sel,
		backends:  tierBackends,
		breakers:  breakers,
		ledger:    costLedger,
		sink:      sink,
	}, nil
}

// Route scores the request, selects a tier for the mode, and executes the
// fallback chain. Only exhaustion, validation, and cancellation errors reach
// the caller; single-tier failures are recovered by advancing the chain.
func (e *Executor) Route(ctx context.Context, requestID string, req *models.InferenceRequest, mode models.RoutingMode) (*models.RouteResult, error) {
	if req == nil {
		return nil, models.NewValidationError("inference request cannot be nil", nil)
	}
	if req.Prompt == "" {
		return nil, models.NewValidationError("prompt cannot be empty", nil)
	}
	if !mode.Valid() {
		return nil, models.NewValidationError("unknown routing mode "+string(mode), nil)
	}

	decision := e.decide(ctx, req, mode)
	fiberlog.Infof("[%s] Routing decision: tier=%s complexity=%d budget=%.4f mode=%s",
		requestID, decision.Tier, decision.Complexity, decision.Budget, mode)

	chain := e.registry.ChainFrom(decision.Tier)
	candidates := make([]failover.Candidate[*models.Completion], 0, len(chain))
	genReq := &backends.GenerationRequest{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for _, tier := range chain {
		backend := e.backends[tier]
		candidates = append(candidates, failover.Candidate[*models.Completion]{
			Name:    string(tier),
			Breaker: e.breakers[tier],
			Invoke: func(ctx context.Context) (*models.Completion, error) {
				return backend.Generate(ctx, genReq)
			},
		})
	}

	start := time.Now()
	result, err := failover.Run(ctx, requestID, candidates)
	if err != nil && result == nil {
		// Cancelled before a definitive outcome; nothing reaches the ledger.
		return nil, err
	}
	if result.Winner < 0 {
		attempts := tierAttempts(result.Attempts)
		fiberlog.Errorf("[%s] All %d tiers exhausted", requestID, len(attempts))
		return nil, models.NewExhaustedError(attempts)
	}

	servingTier := chain[result.Winner]
	latency := time.Since(start)
	completion := result.Value

	totalTokens := completion.Usage.TotalTokens
	if totalTokens == 0 {
		totalTokens = completion.Usage.PromptTokens + completion.Usage.CompletionTokens
	}

	cost := e.ledger.RecordRouting(servingTier, totalTokens)
	fellBack := servingTier != decision.Tier
	if fellBack {
		e.ledger.RecordFallback()
		e.emitFallbackEvents(ctx, requestID, req, servingTier, result.Attempts)
	}
	e.emit(ctx, models.AuditEvent{
		Type:      models.AuditRoutingCompleted,
		RequestID: requestID,
		Tier:      servingTier,
		Tokens:    totalTokens,
		CostUSD:   cost,
		LatencyMs: latency.Milliseconds(),
		ProjectID: req.ProjectID,
		TaskID:    req.TaskID,
	})

	return &models.RouteResult{
		Tier:     servingTier,
		Output:   completion.Text,
		Usage:    completion.Usage,
		Latency:  latency,
		CostUSD:  cost,
		FellBack: fellBack,
		Decision: decision,
	}, nil
}

// Decide exposes the scoring and selection step without executing, for
// callers that only want the routing decision.
func (e *Executor) Decide(ctx context.Context, req *models.InferenceRequest, mode models.RoutingMode) models.RoutingDecision {
	return e.decide(ctx, req, mode)
}

func (e *Executor) decide(ctx context.Context, req *models.InferenceRequest, mode models.RoutingMode) models.RoutingDecision {
	complexity := e.estimator.Estimate(req)
	ceiling := e.budget.Ceiling(req)
	tier := e.selector.Select(ctx, mode, complexity, ceiling)

	return models.RoutingDecision{
		Tier:       tier,
		Complexity: complexity,
		Budget:     ceiling,
	}
}

// Snapshot returns the current ledger aggregates.
func (e *Executor) Snapshot() ledger.Snapshot {
	return e.ledger.Snapshot()
}

// BreakerStates reports each tier's circuit state for the metrics surface.
func (e *Executor) BreakerStates() map[models.Tier]string {
	states := make(map[models.Tier]string, len(e.breakers))
	for tier, cb := range e.breakers {
		states[tier] = cb.GetState().String()
	}
	return states
}

func (e *Executor) emitFallbackEvents(ctx context.Context, requestID string, req *models.InferenceRequest, servingTier models.Tier, attempts []failover.Attempt) {
	for _, attempt := range attempts {
		e.emit(ctx, models.AuditEvent{
			Type:       models.AuditFallbackTriggered,
			RequestID:  requestID,
			Tier:       servingTier,
			FailedTier: models.Tier(attempt.Name),
			Reason:     attempt.Err.Error(),
			ProjectID:  req.ProjectID,
			TaskID:     req.TaskID,
		})
	}
}

func (e *Executor) emit(ctx context.Context, event models.AuditEvent) {
	if e.sink == nil {
		return
	}
	e.sink.Emit(ctx, event)
}

func tierAttempts(attempts []failover.Attempt) []models.TierAttempt {
	out := make([]models.TierAttempt, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, models.TierAttempt{
			Tier:   models.Tier(a.Name),
			Reason: a.Err.Error(),
		})
	}
	return out
}
