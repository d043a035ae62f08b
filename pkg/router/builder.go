package router

import (
	"github.com/helix-ml/tier-router/internal/config"
	"github.com/helix-ml/tier-router/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Builder assembles a Router configuration programmatically, as an alternative
// to LoadFromFile.
type Builder struct {
	cfg         *config.Config
	middlewares []fiber.Handler
}

// NewBuilder creates a Builder seeded with the documented defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: config.Default()}
}

func (b *Builder) Port(port string) *Builder {
	b.cfg.Server.Port = port
	return b
}

func (b *Builder) AllowedOrigins(origins string) *Builder {
	b.cfg.Server.AllowedOrigins = origins
	return b
}

func (b *Builder) Environment(env string) *Builder {
	b.cfg.Server.Environment = env
	return b
}

func (b *Builder) LogLevel(level string) *Builder {
	b.cfg.Server.LogLevel = level
	return b
}

// DefaultMode sets the routing mode used when a request omits one.
func (b *Builder) DefaultMode(mode models.RoutingMode) *Builder {
	b.cfg.Routing.DefaultMode = mode
	return b
}

// CostTarget sets the budget calculator's cost target per complexity point.
func (b *Builder) CostTarget(costPerPoint float64, referenceTokens int) *Builder {
	b.cfg.Routing.CostTargetPerPoint = costPerPoint
	b.cfg.Routing.ReferenceTokensPerPoint = referenceTokens
	return b
}

// Tier configures one execution tier's backend and registry entry.
func (b *Builder) Tier(tier models.Tier, tc models.TierConfig) *Builder {
	switch tier {
	case models.TierLocal:
		b.cfg.Tiers.Local = tc
	case models.TierElastic:
		b.cfg.Tiers.Elastic = tc
	case models.TierPremium:
		b.cfg.Tiers.Premium = tc
	}
	return b
}

// CircuitBreaker sets the failure isolation thresholds shared by all breakers.
func (b *Builder) CircuitBreaker(failureThreshold, cooldownMs int) *Builder {
	b.cfg.CircuitBreaker.FailureThreshold = failureThreshold
	b.cfg.CircuitBreaker.CooldownMs = cooldownMs
	return b
}

// Probe configures the local tier availability/load probe.
func (b *Builder) Probe(probe models.ProbeConfig) *Builder {
	b.cfg.Probe = probe
	return b
}

// Role binds a role to its primary model config.
func (b *Builder) Role(role models.Role, mc models.ComponentModelConfig) *Builder {
	switch role {
	case models.RoleArbitration:
		b.cfg.Roles.Arbitration = mc
	case models.RoleCoordination:
		b.cfg.Roles.Coordination = mc
	}
	return b
}

// LocalFallback configures the universal local model used when a role's
// primary fails.
func (b *Builder) LocalFallback(fc models.LocalModelConfig) *Builder {
	b.cfg.Roles.Fallback = fc
	return b
}

// RedisAudit enables the Redis stream audit sink.
func (b *Builder) RedisAudit(rc models.RedisAuditConfig) *Builder {
	if b.cfg.Audit == nil {
		b.cfg.Audit = &models.AuditConfig{}
	}
	b.cfg.Audit.Redis = &rc
	return b
}

// DatabaseAudit enables the persistent audit sink.
func (b *Builder) DatabaseAudit(dc models.DatabaseConfig) *Builder {
	if b.cfg.Audit == nil {
		b.cfg.Audit = &models.AuditConfig{}
	}
	b.cfg.Audit.Database = &dc
	return b
}

// Use registers additional middleware applied before the routes.
func (b *Builder) Use(handler fiber.Handler) *Builder {
	b.middlewares = append(b.middlewares, handler)
	return b
}

// Build creates the Router.
func (b *Builder) Build() *Router {
	r := New(b.cfg)
	r.middlewares = b.middlewares
	return r
}
