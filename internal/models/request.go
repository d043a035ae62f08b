package models

import "time"

// TaskType is the caller-declared category of work for a request.
type TaskType string

const (
	TaskSimpleQA          TaskType = "simple_qa"
	TaskCodeGeneration    TaskType = "code_generation"
	TaskComplexReasoning  TaskType = "complex_reasoning"
	TaskMultiStepPlanning TaskType = "multi_step_planning"
)

// RoutingMode selects the cost/latency tradeoff policy for tier selection.
type RoutingMode string

const (
	ModeCostOptimized RoutingMode = "cost_optimized"
	ModeBalanced      RoutingMode = "balanced"
	ModePerformance   RoutingMode = "performance"
)

// Valid returns true if the mode is a known value.
func (m RoutingMode) Valid() bool {
	switch m {
	case ModeCostOptimized, ModeBalanced, ModePerformance:
		return true
	default:
		return false
	}
}

// InferenceRequest is one unit of routable work. It is owned by the call that
// created it and treated as immutable once scored.
type InferenceRequest struct {
	Prompt                string   `json:"prompt"`
	InputTokens           int      `json:"input_tokens"`
	TaskType              TaskType `json:"task_type"`
	ContextSize           int      `json:"context_size"`
	EstimatedOutputTokens int      `json:"estimated_output_tokens,omitempty"`
	MaxTokens             int      `json:"max_tokens,omitempty"`
	Temperature           float64  `json:"temperature,omitempty"`

	// Optional budget-tracking identifiers, passed through to audit events.
	ProjectID string `json:"project_id,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
}

// RoutingDecision is the selector's output for one request. Derived per call,
// never persisted.
type RoutingDecision struct {
	Tier       Tier    `json:"tier"`
	Complexity int     `json:"complexity"`
	Budget     float64 `json:"budget"`
}

// TokenUsage is the token accounting reported by a serving backend.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Completion is the raw result of a single backend invocation.
type Completion struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`
}

// RouteResult is the caller-visible outcome of a successful routing.
type RouteResult struct {
	Tier     Tier            `json:"tier"`
	Output   string          `json:"output"`
	Usage    TokenUsage      `json:"usage"`
	Latency  time.Duration   `json:"latency"`
	CostUSD  float64         `json:"cost_usd"`
	FellBack bool            `json:"fell_back"`
	Decision RoutingDecision `json:"decision"`
}
