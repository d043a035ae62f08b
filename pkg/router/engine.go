package router

import (
	"fmt"

	"github.com/helix-ml/tier-router/internal/config"
	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/audit"
	"github.com/helix-ml/tier-router/internal/services/backends"
	"github.com/helix-ml/tier-router/internal/services/budget"
	"github.com/helix-ml/tier-router/internal/services/circuitbreaker"
	"github.com/helix-ml/tier-router/internal/services/database"
	"github.com/helix-ml/tier-router/internal/services/estimator"
	"github.com/helix-ml/tier-router/internal/services/executor"
	"github.com/helix-ml/tier-router/internal/services/health"
	"github.com/helix-ml/tier-router/internal/services/ledger"
	"github.com/helix-ml/tier-router/internal/services/rolemodels"
	"github.com/helix-ml/tier-router/internal/services/selector"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// engine bundles the routing core with the infrastructure it owns.
type engine struct {
	executor   *executor.Executor
	roleClient *rolemodels.Client
	probe      selector.Probe
	redisSink  *audit.RedisSink
	db         *database.DB
}

// buildEngine wires the routing engine from config: registry, backends,
// breakers, probe, selector, ledger, audit sinks, and the per-role client.
func buildEngine(cfg *config.Config) (*engine, error) {
	registry, err := cfg.TierRegistry()
	if err != nil {
		return nil, fmt.Errorf("tier registry: %w", err)
	}

	breakerCfg := circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		Cooldown:         cfg.Cooldown(),
	}

	tierBackends := make(map[models.Tier]backends.Backend, len(models.FallbackHierarchy))
	breakers := make(map[models.Tier]*circuitbreaker.CircuitBreaker, len(models.FallbackHierarchy))
	for _, tier := range models.FallbackHierarchy {
		backend, err := backends.NewOpenAIBackend(string(tier), cfg.Tiers.Get(tier))
		if err != nil {
			return nil, err
		}
		tierBackends[tier] = backend
		breakers[tier] = circuitbreaker.NewWithConfig(string(tier), breakerCfg)
	}

	eng := &engine{}

	if cfg.Probe.BaseURL != "" {
		probe, err := health.NewHTTPProbe(cfg.Probe)
		if err != nil {
			return nil, err
		}
		eng.probe = probe
	} else {
		fiberlog.Warn("Availability probe not configured - local tier treated as unavailable for selection")
	}

	sink, err := eng.buildSink(cfg)
	if err != nil {
		return nil, err
	}

	exec, err := executor.New(
		registry,
		estimator.New(),
		budget.New(cfg.Routing.CostTargetPerPoint, cfg.Routing.ReferenceTokensPerPoint),
		selector.New(eng.probe, cfg.Routing.MinElasticBudget, cfg.Routing.BalancedLoadThreshold),
		tierBackends,
		breakers,
		ledger.New(registry),
		sink,
	)
	if err != nil {
		return nil, err
	}
	eng.executor = exec

	if cfg.Roles.Fallback.BaseURL != "" {
		roleClient, err := rolemodels.New(cfg.Roles, breakerCfg)
		if err != nil {
			return nil, err
		}
		eng.roleClient = roleClient
	} else {
		fiberlog.Warn("Role models not configured - per-role endpoints disabled")
	}

	return eng, nil
}

// buildSink assembles the audit fan-out: the log sink is always on, Redis and
// database sinks join when configured.
func (e *engine) buildSink(cfg *config.Config) (executor.Sink, error) {
	sinks := []audit.Sink{audit.NewLogSink()}

	if cfg.Audit != nil && cfg.Audit.Redis != nil && cfg.Audit.Redis.Addr != "" {
		redisSink, err := audit.NewRedisSink(*cfg.Audit.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis audit sink: %w", err)
		}
		e.redisSink = redisSink
		sinks = append(sinks, redisSink)
		fiberlog.Info("Redis audit sink enabled")
	}

	if cfg.Audit != nil && cfg.Audit.Database != nil && cfg.Audit.Database.DSN != "" {
		db, err := database.Open(*cfg.Audit.Database)
		if err != nil {
			return nil, fmt.Errorf("database audit sink: %w", err)
		}
		storeSink, err := audit.NewStoreSink(db.DB)
		if err != nil {
			return nil, fmt.Errorf("database audit sink: %w", err)
		}
		e.db = db
		sinks = append(sinks, storeSink)
		fiberlog.Infof("Database (%s) audit sink enabled", db.DriverName())
	}

	return audit.NewMultiSink(sinks...), nil
}

// redisClient returns the audit Redis client, or nil when not configured.
func (e *engine) redisClient() *redis.Client {
	if e.redisSink == nil {
		return nil
	}
	return e.redisSink.Client()
}

// close releases the engine's infrastructure connections.
func (e *engine) close() {
	if e.redisSink != nil {
		if err := e.redisSink.Close(); err != nil {
			fiberlog.Errorf("Failed to close Redis client: %v", err)
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			fiberlog.Errorf("Failed to close database connection: %v", err)
		}
	}
}
