package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/helix-ml/tier-router/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Documented defaults for the routing policy (see RoutingConfig). The load
// threshold governs the balanced-mode local branch; the elastic minimum budget
// gates the cost-optimized elastic branch.
const (
	DefaultCostTargetPerPoint      = 2.0
	DefaultReferenceTokensPerPoint = 10000
	DefaultMinElasticBudget        = 0.01
	DefaultBalancedLoadThreshold   = 0.80

	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Second

	DefaultLocalTimeout   = 10 * time.Second
	DefaultElasticTimeout = 30 * time.Second
	DefaultPremiumTimeout = 60 * time.Second
)

// Config represents the complete application configuration
type Config struct {
	Server         models.ServerConfig         `yaml:"server"`
	Routing        models.RoutingConfig        `yaml:"routing"`
	Tiers          TiersConfig                 `yaml:"tiers"`
	CircuitBreaker models.CircuitBreakerConfig `yaml:"circuit_breaker"`
	Probe          models.ProbeConfig          `yaml:"probe"`
	Roles          models.RolesConfig          `yaml:"roles"`
	Audit          *models.AuditConfig         `yaml:"audit,omitempty"`
}

// TiersConfig holds the three fixed tier entries.
type TiersConfig struct {
	Local   models.TierConfig `yaml:"local"`
	Elastic models.TierConfig `yaml:"elastic"`
	Premium models.TierConfig `yaml:"premium"`
}

// Get returns the config entry for a tier.
func (tc TiersConfig) Get(t models.Tier) models.TierConfig {
	switch t {
	case models.TierLocal:
		return tc.Local
	case models.TierElastic:
		return tc.Elastic
	default:
		return tc.Premium
	}
}

// LoadFromFile loads configuration from a YAML file with environment variable substitution
func LoadFromFile(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	content := substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadEnvFiles loads environment variables from .env files in order of precedence
// Loads files in the order provided (first has highest priority)
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// New creates a new Config instance by loading from the specified config file path
func New(configPath string) (*Config, error) {
	return LoadFromFile(configPath)
}

// Default returns a Config populated with every documented default. Callers
// that build config programmatically start from here.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}

	if c.Routing.DefaultMode == "" {
		c.Routing.DefaultMode = models.ModeBalanced
	}
	if c.Routing.CostTargetPerPoint <= 0 {
		c.Routing.CostTargetPerPoint = DefaultCostTargetPerPoint
	}
	if c.Routing.ReferenceTokensPerPoint <= 0 {
		c.Routing.ReferenceTokensPerPoint = DefaultReferenceTokensPerPoint
	}
	if c.Routing.MinElasticBudget <= 0 {
		c.Routing.MinElasticBudget = DefaultMinElasticBudget
	}
	if c.Routing.BalancedLoadThreshold <= 0 {
		c.Routing.BalancedLoadThreshold = DefaultBalancedLoadThreshold
	}

	if c.CircuitBreaker.FailureThreshold <= 0 {
		c.CircuitBreaker.FailureThreshold = DefaultFailureThreshold
	}
	if c.CircuitBreaker.CooldownMs <= 0 {
		c.CircuitBreaker.CooldownMs = int(DefaultCooldown / time.Millisecond)
	}

	if c.Tiers.Local.TimeoutMs <= 0 {
		c.Tiers.Local.TimeoutMs = int(DefaultLocalTimeout / time.Millisecond)
	}
	if c.Tiers.Elastic.TimeoutMs <= 0 {
		c.Tiers.Elastic.TimeoutMs = int(DefaultElasticTimeout / time.Millisecond)
	}
	if c.Tiers.Premium.TimeoutMs <= 0 {
		c.Tiers.Premium.TimeoutMs = int(DefaultPremiumTimeout / time.Millisecond)
	}

	defaults := models.DefaultTierInfos()
	applyTierDefaults(&c.Tiers.Local, defaults[0])
	applyTierDefaults(&c.Tiers.Elastic, defaults[1])
	applyTierDefaults(&c.Tiers.Premium, defaults[2])
}

func applyTierDefaults(tc *models.TierConfig, def models.TierInfo) {
	if tc.CostPer1KTokens <= 0 {
		tc.CostPer1KTokens = def.CostPer1KTokens
	}
	if tc.P95LatencyMs <= 0 {
		tc.P95LatencyMs = int(def.P95Latency / time.Millisecond)
	}
	if tc.CapacityRPS <= 0 {
		tc.CapacityRPS = def.CapacityRPS
	}
	if tc.Reliability <= 0 {
		tc.Reliability = def.Reliability
	}
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if !c.Routing.DefaultMode.Valid() {
		return fmt.Errorf("unknown default routing mode %q", c.Routing.DefaultMode)
	}
	if c.Routing.BalancedLoadThreshold > 1 {
		return fmt.Errorf("balanced_load_threshold must be a fraction in (0, 1], got %.2f", c.Routing.BalancedLoadThreshold)
	}
	return nil
}

// TierRegistry builds the immutable tier registry from the configured tiers.
func (c *Config) TierRegistry() (*models.TierRegistry, error) {
	infos := []models.TierInfo{
		tierInfo(models.TierLocal, c.Tiers.Local),
		tierInfo(models.TierElastic, c.Tiers.Elastic),
		tierInfo(models.TierPremium, c.Tiers.Premium),
	}
	return models.NewTierRegistry(infos)
}

func tierInfo(t models.Tier, tc models.TierConfig) models.TierInfo {
	return models.TierInfo{
		Tier:            t,
		CostPer1KTokens: tc.CostPer1KTokens,
		P95Latency:      time.Duration(tc.P95LatencyMs) * time.Millisecond,
		CapacityRPS:     tc.CapacityRPS,
		Reliability:     tc.Reliability,
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// GetNormalizedLogLevel returns the configured log level, lowercased.
func (c *Config) GetNormalizedLogLevel() string {
	return strings.ToLower(strings.TrimSpace(c.Server.LogLevel))
}

// Cooldown returns the circuit breaker cooldown window.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CircuitBreaker.CooldownMs) * time.Millisecond
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variables
func substituteEnvVars(content string) string {
	// Pattern matches ${VAR_NAME} or ${VAR_NAME:-default_value}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		submatches := re.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""

		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
