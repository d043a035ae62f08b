// Package selector picks a candidate tier from the routing mode, complexity
// score, and budget ceiling.
package selector

import (
	"context"

	"github.com/helix-ml/tier-router/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Probe reports the local tier's reachability and load fraction (0-1). A probe
// error makes the local tier ineligible for the branch that asked; it never
// fails the selection itself.
type Probe interface {
	LocalStatus(ctx context.Context) (available bool, load float64, err error)
}

// Selector applies the mode-driven selection policy. Branches are evaluated in
// order, first match wins, so cheaper tiers are preferred whenever eligible.
type Selector struct {
	probe            Probe
	minElasticBudget float64
	loadThreshold    float64
}

// New creates a Selector. minElasticBudget gates the cost-optimized elastic
// branch; loadThreshold gates the balanced local branch.
func New(probe Probe, minElasticBudget, loadThreshold float64) *Selector {
	return &Selector{
		probe:            probe,
		minElasticBudget: minElasticBudget,
		loadThreshold:    loadThreshold,
	}
}

// Select returns exactly one tier for the given mode, complexity, and budget.
func (s *Selector) Select(ctx context.Context, mode models.RoutingMode, complexity int, budgetCeiling float64) models.Tier {
	switch mode {
	case models.ModeCostOptimized:
		return s.selectCostOptimized(ctx, complexity, budgetCeiling)
	case models.ModeBalanced:
		return s.selectBalanced(ctx, complexity)
	case models.ModePerformance:
		return s.selectPerformance(complexity)
	default:
		fiberlog.Warnf("Selector: unknown routing mode %q, using balanced", mode)
		return s.selectBalanced(ctx, complexity)
	}
}

func (s *Selector) selectCostOptimized(ctx context.Context, complexity int, budgetCeiling float64) models.Tier {
	if complexity <= 3 && s.localAvailable(ctx) {
		return models.TierLocal
	}
	if complexity <= 7 && budgetCeiling > s.minElasticBudget {
		return models.TierElastic
	}
	return models.TierPremium
}

func (s *Selector) selectBalanced(ctx context.Context, complexity int) models.Tier {
	if complexity <= 5 && s.localLoadBelowThreshold(ctx) {
		return models.TierLocal
	}
	if complexity <= 8 {
		return models.TierElastic
	}
	return models.TierPremium
}

// selectPerformance never picks the local tier.
func (s *Selector) selectPerformance(complexity int) models.Tier {
	if complexity <= 8 {
		return models.TierElastic
	}
	return models.TierPremium
}

func (s *Selector) localAvailable(ctx context.Context) bool {
	if s.probe == nil {
		return false
	}
	available, _, err := s.probe.LocalStatus(ctx)
	if err != nil {
		fiberlog.Debugf("Selector: local availability probe failed, treating tier as ineligible: %v", err)
		return false
	}
	return available
}

func (s *Selector) localLoadBelowThreshold(ctx context.Context) bool {
	if s.probe == nil {
		return false
	}
	available, load, err := s.probe.LocalStatus(ctx)
	if err != nil {
		fiberlog.Debugf("Selector: local load probe failed, treating tier as ineligible: %v", err)
		return false
	}
	return available && load < s.loadThreshold
}
