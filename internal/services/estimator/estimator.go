// Package estimator scores inbound requests on a bounded difficulty scale.
package estimator

import (
	"github.com/helix-ml/tier-router/internal/models"
)

const (
	// MaxComplexity is the upper bound of the score; sums are clamped to it.
	MaxComplexity = 10

	// unknownTaskWeight is applied when the declared task type is not in the
	// weight table.
	unknownTaskWeight = 5
)

var taskWeights = map[models.TaskType]int{
	models.TaskSimpleQA:          1,
	models.TaskCodeGeneration:    4,
	models.TaskComplexReasoning:  7,
	models.TaskMultiStepPlanning: 9,
}

// Estimator computes complexity scores. It is stateless and deterministic.
type Estimator struct{}

// New creates a new Estimator.
func New() *Estimator {
	return &Estimator{}
}

// Estimate returns an integer score in [0, MaxComplexity] for the request.
// The score is the sum of a token-count band, a task-type weight, and a
// capped context contribution.
func (e *Estimator) Estimate(req *models.InferenceRequest) int {
	score := tokenBand(req.InputTokens)

	weight, ok := taskWeights[req.TaskType]
	if !ok {
		weight = unknownTaskWeight
	}
	score += weight

	score += min(req.ContextSize/1000, 3)

	return min(max(score, 0), MaxComplexity)
}

// tokenBand maps the input token count to its band contribution. Thresholds at
// 500/2000/8000 tokens contribute 1/3/5/8, monotonically non-decreasing.
func tokenBand(tokens int) int {
	switch {
	case tokens <= 500:
		return 1
	case tokens <= 2000:
		return 3
	case tokens <= 8000:
		return 5
	default:
		return 8
	}
}
