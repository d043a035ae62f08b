package models

import (
	"fmt"
	"time"
)

// Tier identifies one of the fixed execution backends.
type Tier string

const (
	// TierLocal is the on-host model server, cheapest and closest.
	TierLocal Tier = "local"
	// TierElastic is the auto-scaling pool, mid cost and latency.
	TierElastic Tier = "elastic"
	// TierPremium is the externally metered provider, most expensive.
	TierPremium Tier = "premium"
)

// FallbackHierarchy is the fixed order attempts advance through after a failure.
var FallbackHierarchy = []Tier{TierLocal, TierElastic, TierPremium}

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierLocal, TierElastic, TierPremium:
		return true
	default:
		return false
	}
}

// TierInfo describes the static cost/latency/reliability characteristics of a tier.
type TierInfo struct {
	Tier            Tier          `json:"tier" yaml:"tier"`
	CostPer1KTokens float64       `json:"cost_per_1k_tokens" yaml:"cost_per_1k_tokens"`
	P95Latency      time.Duration `json:"p95_latency" yaml:"p95_latency"`
	CapacityRPS     int           `json:"capacity_rps" yaml:"capacity_rps"`
	Reliability     float64       `json:"reliability" yaml:"reliability"`
}

// TierRegistry is the immutable catalog of tiers, built once at process start.
type TierRegistry struct {
	tiers map[Tier]TierInfo
}

// DefaultTierInfos returns the built-in tier catalog used when config omits one.
func DefaultTierInfos() []TierInfo {
	return []TierInfo{
		{Tier: TierLocal, CostPer1KTokens: 0.0001, P95Latency: 500 * time.Millisecond, CapacityRPS: 10, Reliability: 0.95},
		{Tier: TierElastic, CostPer1KTokens: 0.002, P95Latency: 2 * time.Second, CapacityRPS: 100, Reliability: 0.99},
		{Tier: TierPremium, CostPer1KTokens: 0.015, P95Latency: 5 * time.Second, CapacityRPS: 1000, Reliability: 0.999},
	}
}

// NewTierRegistry builds a registry from the given tier infos. All three tiers
// must be present and premium must carry the highest per-token cost, otherwise
// the savings accounting would go negative.
func NewTierRegistry(infos []TierInfo) (*TierRegistry, error) {
	tiers := make(map[Tier]TierInfo, len(infos))
	for _, info := range infos {
		if !info.Tier.Valid() {
			return nil, fmt.Errorf("unknown tier %q in registry", info.Tier)
		}
		if info.CostPer1KTokens < 0 {
			return nil, fmt.Errorf("tier %s has negative cost", info.Tier)
		}
		tiers[info.Tier] = info
	}

	for _, t := range FallbackHierarchy {
		if _, ok := tiers[t]; !ok {
			return nil, fmt.Errorf("tier registry missing %s tier", t)
		}
	}

	premium := tiers[TierPremium]
	for _, info := range tiers {
		if info.CostPer1KTokens > premium.CostPer1KTokens {
			return nil, fmt.Errorf("tier %s is more expensive than premium", info.Tier)
		}
	}

	return &TierRegistry{tiers: tiers}, nil
}

// Get returns the info for a tier.
func (r *TierRegistry) Get(t Tier) (TierInfo, bool) {
	info, ok := r.tiers[t]
	return info, ok
}

// Premium returns the premium tier's info, used as the savings baseline.
func (r *TierRegistry) Premium() TierInfo {
	return r.tiers[TierPremium]
}

// ChainFrom returns the fallback hierarchy starting at the given tier. The
// executor walks this slice in order after a failed attempt.
func (r *TierRegistry) ChainFrom(start Tier) []Tier {
	for i, t := range FallbackHierarchy {
		if t == start {
			return FallbackHierarchy[i:]
		}
	}
	return nil
}
