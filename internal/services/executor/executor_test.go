package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/backends"
	"github.com/helix-ml/tier-router/internal/services/budget"
	"github.com/helix-ml/tier-router/internal/services/circuitbreaker"
	"github.com/helix-ml/tier-router/internal/services/estimator"
	"github.com/helix-ml/tier-router/internal/services/ledger"
	"github.com/helix-ml/tier-router/internal/services/selector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name  string
	calls int
	fn    func(ctx context.Context, req *backends.GenerationRequest) (*models.Completion, error)
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Generate(ctx context.Context, req *backends.GenerationRequest) (*models.Completion, error) {
	s.calls++
	return s.fn(ctx, req)
}

func serveText(text string, tokens int64) func(context.Context, *backends.GenerationRequest) (*models.Completion, error) {
	return func(context.Context, *backends.GenerationRequest) (*models.Completion, error) {
		return &models.Completion{
			Text:  text,
			Usage: models.TokenUsage{PromptTokens: tokens / 2, CompletionTokens: tokens / 2, TotalTokens: tokens},
		}, nil
	}
}

func alwaysFail(err error) func(context.Context, *backends.GenerationRequest) (*models.Completion, error) {
	return func(context.Context, *backends.GenerationRequest) (*models.Completion, error) {
		return nil, err
	}
}

type stubProbe struct {
	available bool
	load      float64
}

func (p *stubProbe) LocalStatus(context.Context) (bool, float64, error) {
	return p.available, p.load, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, event models.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) byType(t models.AuditEventType) []models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditEvent
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	executor *Executor
	backends map[models.Tier]*stubBackend
	breakers map[models.Tier]*circuitbreaker.CircuitBreaker
	sink     *recordingSink
}

func newHarness(t *testing.T, probe selector.Probe) *harness {
	t.Helper()

	registry, err := models.NewTierRegistry(models.DefaultTierInfos())
	require.NoError(t, err)

	stubs := map[models.Tier]*stubBackend{
		models.TierLocal:   {name: "local", fn: serveText("local output", 100)},
		models.TierElastic: {name: "elastic", fn: serveText("elastic output", 100)},
		models.TierPremium: {name: "premium", fn: serveText("premium output", 100)},
	}
	tierBackends := make(map[models.Tier]backends.Backend, len(stubs))
	breakers := make(map[models.Tier]*circuitbreaker.CircuitBreaker, len(stubs))
	for tier, stub := range stubs {
		tierBackends[tier] = stub
		breakers[tier] = circuitbreaker.NewWithConfig(string(tier), circuitbreaker.Config{
			FailureThreshold: 3,
			Cooldown:         time.Minute,
		})
	}

	sink := &recordingSink{}
	exec, err := New(
		registry,
		estimator.New(),
		budget.New(2.0, 10000),
		selector.New(probe, 0.01, 0.80),
		tierBackends,
		breakers,
		ledger.New(registry),
		sink,
	)
	require.NoError(t, err)

	return &harness{executor: exec, backends: stubs, breakers: breakers, sink: sink}
}

func simpleRequest() *models.InferenceRequest {
	return &models.InferenceRequest{
		Prompt:      "What is the capital of France?",
		InputTokens: 300,
		TaskType:    models.TaskSimpleQA,
	}
}

func TestRouteServesSelectedTier(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})

	result, err := h.executor.Route(context.Background(), "req-1", simpleRequest(), models.ModeCostOptimized)

	require.NoError(t, err)
	assert.Equal(t, models.TierLocal, result.Tier)
	assert.Equal(t, "local output", result.Output)
	assert.Equal(t, 2, result.Decision.Complexity)
	assert.False(t, result.FellBack)
	assert.Equal(t, 1, h.backends[models.TierLocal].calls)
	assert.Zero(t, h.backends[models.TierElastic].calls)

	snap := h.executor.Snapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.PerTier[models.TierLocal])
	assert.Zero(t, snap.FallbackCount)
}

func TestRouteFallsBackToNextTier(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})
	h.backends[models.TierLocal].fn = alwaysFail(errors.New("local down"))

	result, err := h.executor.Route(context.Background(), "req-2", simpleRequest(), models.ModeCostOptimized)

	require.NoError(t, err)
	assert.Equal(t, models.TierElastic, result.Tier)
	assert.True(t, result.FellBack)
	assert.Equal(t, 1, h.backends[models.TierLocal].calls)
	assert.Equal(t, 1, h.backends[models.TierElastic].calls)

	snap := h.executor.Snapshot()
	assert.Equal(t, int64(1), snap.FallbackCount)
	assert.Equal(t, int64(1), snap.PerTier[models.TierElastic])
	assert.Zero(t, snap.PerTier[models.TierLocal])

	fallbackEvents := h.sink.byType(models.AuditFallbackTriggered)
	require.Len(t, fallbackEvents, 1)
	assert.Equal(t, models.TierLocal, fallbackEvents[0].FailedTier)
	assert.Equal(t, models.TierElastic, fallbackEvents[0].Tier)
	assert.Contains(t, fallbackEvents[0].Reason, "local down")
}

func TestRouteExhaustionNamesEveryTier(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})
	for _, stub := range h.backends {
		stub.fn = alwaysFail(errors.New(stub.name + " unavailable"))
	}

	_, err := h.executor.Route(context.Background(), "req-3", simpleRequest(), models.ModeCostOptimized)

	require.Error(t, err)
	require.True(t, models.IsExhausted(err))
	assert.Contains(t, err.Error(), "local")
	assert.Contains(t, err.Error(), "elastic")
	assert.Contains(t, err.Error(), "premium")

	snap := h.executor.Snapshot()
	assert.Zero(t, snap.TotalRequests, "exhausted routings must not reach the per-tier counters")
	assert.Zero(t, snap.TotalSpendUSD)
}

func TestRouteSkipsTierWithOpenBreaker(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})
	for i := 0; i < 3; i++ {
		h.breakers[models.TierLocal].RecordFailure()
	}
	require.Equal(t, circuitbreaker.Open, h.breakers[models.TierLocal].GetState())

	result, err := h.executor.Route(context.Background(), "req-4", simpleRequest(), models.ModeCostOptimized)

	require.NoError(t, err)
	assert.Equal(t, models.TierElastic, result.Tier)
	assert.Zero(t, h.backends[models.TierLocal].calls, "open breaker must prevent the call")
	assert.True(t, result.FellBack)
}

func TestRouteChainStartsAtSelectedTier(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})

	req := &models.InferenceRequest{
		Prompt:      "Plan a migration",
		InputTokens: 9000,
		TaskType:    models.TaskMultiStepPlanning,
		ContextSize: 4000,
	}

	result, err := h.executor.Route(context.Background(), "req-5", req, models.ModeBalanced)

	require.NoError(t, err)
	assert.Equal(t, 10, result.Decision.Complexity)
	assert.Equal(t, models.TierPremium, result.Tier)
	assert.Zero(t, h.backends[models.TierLocal].calls)
	assert.Zero(t, h.backends[models.TierElastic].calls)
}

func TestRouteCancellationLeavesLedgerUntouched(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})
	ctx, cancel := context.WithCancel(context.Background())
	h.backends[models.TierLocal].fn = func(ctx context.Context, _ *backends.GenerationRequest) (*models.Completion, error) {
		cancel()
		return nil, ctx.Err()
	}

	_, err := h.executor.Route(ctx, "req-6", simpleRequest(), models.ModeCostOptimized)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.executor.Snapshot().TotalRequests)
	assert.Equal(t, 1, h.breakers[models.TierLocal].FailureCount(),
		"cancelled attempt still counts for breaker accounting")
}

func TestRouteValidation(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})

	_, err := h.executor.Route(context.Background(), "req-7", nil, models.ModeBalanced)
	require.Error(t, err)

	_, err = h.executor.Route(context.Background(), "req-8", &models.InferenceRequest{}, models.ModeBalanced)
	require.Error(t, err)

	_, err = h.executor.Route(context.Background(), "req-9", simpleRequest(), models.RoutingMode("turbo"))
	require.Error(t, err)

	for _, stub := range h.backends {
		assert.Zero(t, stub.calls)
	}
}

func TestRouteEmitsRoutingCompletedEvent(t *testing.T) {
	h := newHarness(t, &stubProbe{available: true})

	req := simpleRequest()
	req.ProjectID = "proj-42"

	_, err := h.executor.Route(context.Background(), "req-10", req, models.ModeCostOptimized)
	require.NoError(t, err)

	completed := h.sink.byType(models.AuditRoutingCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "req-10", completed[0].RequestID)
	assert.Equal(t, models.TierLocal, completed[0].Tier)
	assert.Equal(t, int64(100), completed[0].Tokens)
	assert.Equal(t, "proj-42", completed[0].ProjectID)
}
