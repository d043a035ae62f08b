package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/helix-ml/tier-router/internal/models"

	"github.com/stretchr/testify/assert"
)

type stubProbe struct {
	available bool
	load      float64
	err       error
	calls     int
}

func (p *stubProbe) LocalStatus(ctx context.Context) (bool, float64, error) {
	p.calls++
	return p.available, p.load, p.err
}

func newTestSelector(p Probe) *Selector {
	return New(p, 0.01, 0.80)
}

func TestCostOptimizedPrefersLocalForSimpleWork(t *testing.T) {
	s := newTestSelector(&stubProbe{available: true})

	for complexity := 0; complexity <= 3; complexity++ {
		tier := s.Select(context.Background(), models.ModeCostOptimized, complexity, 1.0)
		assert.Equal(t, models.TierLocal, tier, "complexity %d", complexity)
	}
}

func TestCostOptimizedSkipsUnavailableLocal(t *testing.T) {
	s := newTestSelector(&stubProbe{available: false})

	tier := s.Select(context.Background(), models.ModeCostOptimized, 2, 1.0)
	assert.Equal(t, models.TierElastic, tier)
}

func TestCostOptimizedBudgetGateOnElastic(t *testing.T) {
	s := newTestSelector(&stubProbe{available: false})

	// Below the minimum elastic budget everything escalates to premium.
	tier := s.Select(context.Background(), models.ModeCostOptimized, 5, 0.005)
	assert.Equal(t, models.TierPremium, tier)

	tier = s.Select(context.Background(), models.ModeCostOptimized, 5, 0.5)
	assert.Equal(t, models.TierElastic, tier)
}

func TestCostOptimizedEscalatesHighComplexity(t *testing.T) {
	s := newTestSelector(&stubProbe{available: true})

	tier := s.Select(context.Background(), models.ModeCostOptimized, 8, 100.0)
	assert.Equal(t, models.TierPremium, tier)
}

func TestBalancedUsesLoadThreshold(t *testing.T) {
	s := newTestSelector(&stubProbe{available: true, load: 0.5})
	assert.Equal(t, models.TierLocal, s.Select(context.Background(), models.ModeBalanced, 5, 1.0))

	s = newTestSelector(&stubProbe{available: true, load: 0.85})
	assert.Equal(t, models.TierElastic, s.Select(context.Background(), models.ModeBalanced, 5, 1.0))
}

func TestBalancedEscalatesToPremium(t *testing.T) {
	s := newTestSelector(&stubProbe{available: true, load: 0.1})

	assert.Equal(t, models.TierElastic, s.Select(context.Background(), models.ModeBalanced, 8, 1.0))
	assert.Equal(t, models.TierPremium, s.Select(context.Background(), models.ModeBalanced, 9, 1.0))
	assert.Equal(t, models.TierPremium, s.Select(context.Background(), models.ModeBalanced, 10, 1.0))
}

func TestPerformanceNeverSelectsLocal(t *testing.T) {
	probe := &stubProbe{available: true, load: 0.0}
	s := newTestSelector(probe)

	for complexity := 0; complexity <= 10; complexity++ {
		tier := s.Select(context.Background(), models.ModePerformance, complexity, 100.0)
		assert.NotEqual(t, models.TierLocal, tier, "complexity %d", complexity)
	}
	assert.Zero(t, probe.calls, "performance mode must not consult the probe")
}

func TestProbeErrorMakesLocalIneligible(t *testing.T) {
	s := newTestSelector(&stubProbe{available: true, err: errors.New("probe down")})

	assert.Equal(t, models.TierElastic, s.Select(context.Background(), models.ModeCostOptimized, 1, 1.0))
	assert.Equal(t, models.TierElastic, s.Select(context.Background(), models.ModeBalanced, 1, 1.0))
}

func TestNilProbeTreatsLocalAsIneligible(t *testing.T) {
	s := New(nil, 0.01, 0.80)

	assert.Equal(t, models.TierElastic, s.Select(context.Background(), models.ModeCostOptimized, 1, 1.0))
}
