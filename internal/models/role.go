package models

// Role is one of the two fixed logical consumers of the per-role model client.
type Role string

const (
	// RoleArbitration resolves conflicts between agent outputs.
	RoleArbitration Role = "arbitration"
	// RoleCoordination sequences multi-agent workflows.
	RoleCoordination Role = "coordination"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleArbitration, RoleCoordination:
		return true
	default:
		return false
	}
}

// ComponentModelConfig binds a role to its primary external model. The fallback
// is always the universal local model and is configured once, not per role.
type ComponentModelConfig struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"api_key" json:"-"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// RoleResult is the outcome of one per-role generation.
type RoleResult struct {
	Text         string     `json:"text"`
	Model        string     `json:"model"`
	Usage        TokenUsage `json:"usage"`
	CostUSD      float64    `json:"cost_usd"`
	FallbackUsed bool       `json:"fallback_used"`
}
