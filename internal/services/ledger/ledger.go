// Package ledger keeps the process-wide routing and cost aggregates. Counters
// are monotonically updated under a single mutex; cost figures feed
// billing-adjacent reporting, so lost updates are a correctness defect.
package ledger

import (
	"sync"

	"github.com/helix-ml/tier-router/internal/models"
)

// CostLedger accumulates per-tier request counts, spend, and estimated savings
// versus an all-premium baseline.
type CostLedger struct {
	registry *models.TierRegistry

	mu            sync.Mutex
	perTier       map[models.Tier]int64
	totalSpendUSD float64
	savingsUSD    float64
	fallbacks     int64
}

// Snapshot is a point-in-time read of the ledger.
type Snapshot struct {
	TotalRequests     int64                  `json:"total_requests"`
	PerTier           map[models.Tier]int64  `json:"per_tier"`
	TotalSpendUSD     float64                `json:"total_spend_usd"`
	TotalSavingsUSD   float64                `json:"total_savings_usd"`
	AvgCostPerRequest float64                `json:"avg_cost_per_request"`
	FallbackCount     int64                  `json:"fallback_count"`
	FallbackRate      float64                `json:"fallback_rate"`
	CostReductionPct  float64                `json:"cost_reduction_pct"`
}

// New creates a ledger bound to the tier registry it prices against.
func New(registry *models.TierRegistry) *CostLedger {
	return &CostLedger{
		registry: registry,
		perTier:  make(map[models.Tier]int64, len(models.FallbackHierarchy)),
	}
}

// RecordRouting accounts one completed routing served by the given tier and
// returns the computed cost. Savings are the difference against serving the
// same token volume on the premium tier; since premium is the most expensive
// tier in the registry this difference is never negative.
func (l *CostLedger) RecordRouting(tier models.Tier, totalTokens int64) float64 {
	info, ok := l.registry.Get(tier)
	if !ok {
		return 0
	}

	cost := float64(totalTokens) / 1000 * info.CostPer1KTokens
	premiumCost := float64(totalTokens) / 1000 * l.registry.Premium().CostPer1KTokens

	l.mu.Lock()
	defer l.mu.Unlock()

	l.perTier[tier]++
	l.totalSpendUSD += cost
	l.savingsUSD += premiumCost - cost

	return cost
}

// RecordFallback counts one routing whose serving tier differed from the
// selected one.
func (l *CostLedger) RecordFallback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fallbacks++
}

// Snapshot returns a consistent copy of all aggregates.
func (l *CostLedger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total int64
	perTier := make(map[models.Tier]int64, len(l.perTier))
	for tier, count := range l.perTier {
		perTier[tier] = count
		total += count
	}

	snap := Snapshot{
		TotalRequests:   total,
		PerTier:         perTier,
		TotalSpendUSD:   l.totalSpendUSD,
		TotalSavingsUSD: l.savingsUSD,
		FallbackCount:   l.fallbacks,
	}

	if total > 0 {
		snap.AvgCostPerRequest = l.totalSpendUSD / float64(total)
		snap.FallbackRate = float64(l.fallbacks) / float64(total)
	}
	if denom := l.totalSpendUSD + l.savingsUSD; denom > 0 {
		snap.CostReductionPct = l.savingsUSD / denom * 100
	}

	return snap
}
