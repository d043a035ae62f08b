package models

import "time"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// RoutingConfig holds the tunables of the selection policy. The load threshold
// and minimum elastic budget ship as documented defaults rather than constants
// so degraded-probe behavior can be tuned per deployment.
type RoutingConfig struct {
	DefaultMode             RoutingMode `yaml:"default_mode"`
	CostTargetPerPoint      float64     `yaml:"cost_target_per_point"`
	ReferenceTokensPerPoint int         `yaml:"reference_tokens_per_point"`
	MinElasticBudget        float64     `yaml:"min_elastic_budget"`
	BalancedLoadThreshold   float64     `yaml:"balanced_load_threshold"`
}

// TierConfig configures one execution tier's backend and registry entry.
type TierConfig struct {
	BaseURL         string  `yaml:"base_url"`
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	TimeoutMs       int     `yaml:"timeout_ms"`
	CostPer1KTokens float64 `yaml:"cost_per_1k_tokens"`
	P95LatencyMs    int     `yaml:"p95_latency_ms"`
	CapacityRPS     int     `yaml:"capacity_rps"`
	Reliability     float64 `yaml:"reliability"`
}

// Timeout returns the tier invocation deadline.
func (tc TierConfig) Timeout() time.Duration {
	if tc.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(tc.TimeoutMs) * time.Millisecond
}

// CircuitBreakerConfig configures the failure isolation layer.
type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownMs       int `yaml:"cooldown_ms"`
}

// ProbeConfig configures the availability/load probe client for the local tier.
type ProbeConfig struct {
	BaseURL   string `yaml:"base_url"`
	JWTSecret string `yaml:"jwt_secret"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// LocalModelConfig configures the universal local fallback model used by the
// per-role client.
type LocalModelConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// RolesConfig binds the two fixed roles to their primary models.
type RolesConfig struct {
	Arbitration  ComponentModelConfig `yaml:"arbitration"`
	Coordination ComponentModelConfig `yaml:"coordination"`
	Fallback     LocalModelConfig     `yaml:"fallback"`
}

// RedisAuditConfig configures the Redis-stream audit sink.
type RedisAuditConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// DatabaseConfig configures the persistent audit sink.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuditConfig enables audit sinks beyond the always-on log sink.
type AuditConfig struct {
	Redis    *RedisAuditConfig `yaml:"redis,omitempty"`
	Database *DatabaseConfig   `yaml:"database,omitempty"`
}
