// Package failover runs an ordered candidate chain until one invocation
// succeeds. Both the tier fallback executor and the per-role model client are
// built on this one chain; each candidate may be guarded by a circuit breaker.
package failover

import (
	"context"
	"errors"

	"github.com/helix-ml/tier-router/internal/models"
	"github.com/helix-ml/tier-router/internal/services/circuitbreaker"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Candidate is one link in a fallback chain.
type Candidate[T any] struct {
	// Name identifies the candidate in logs and attempt records.
	Name string
	// Breaker, when set, gates the invocation and receives its outcome.
	Breaker *circuitbreaker.CircuitBreaker
	// Invoke performs the actual call.
	Invoke func(ctx context.Context) (T, error)
}

// Attempt records the outcome of one candidate that did not win.
type Attempt struct {
	Name string
	Err  error
}

// Result carries the winning invocation plus the failures that preceded it.
type Result[T any] struct {
	Value    T
	Winner   int
	Attempts []Attempt
}

// Run tries candidates in order. A circuit-open rejection advances the chain
// without a network call. Context cancellation aborts the chain; a cancelled
// in-flight invocation is recorded as a breaker failure (fail-safe default).
// On exhaustion the returned error joins every attempt's failure.
func Run[T any](ctx context.Context, requestID string, candidates []Candidate[T]) (*Result[T], error) {
	var attempts []Attempt

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if cand.Breaker != nil && !cand.Breaker.CanExecute() {
			rejection := models.NewCircuitOpenError(cand.Name)
			fiberlog.Warnf("[%s] Skipping %s: %v", requestID, cand.Name, rejection)
			attempts = append(attempts, Attempt{Name: cand.Name, Err: rejection})
			continue
		}

		fiberlog.Infof("[%s] Trying candidate [%d/%d]: %s", requestID, i+1, len(candidates), cand.Name)

		value, err := cand.Invoke(ctx)
		if err == nil {
			if cand.Breaker != nil {
				cand.Breaker.RecordSuccess()
			}
			fiberlog.Infof("[%s] Candidate %s succeeded", requestID, cand.Name)
			return &Result[T]{Value: value, Winner: i, Attempts: attempts}, nil
		}

		// A cancelled attempt has no definitive outcome; count it as a
		// failure for isolation purposes and stop the chain.
		if cand.Breaker != nil {
			cand.Breaker.RecordFailure()
		}
		if ctx.Err() != nil {
			fiberlog.Warnf("[%s] Candidate %s aborted by caller: %v", requestID, cand.Name, err)
			return nil, ctx.Err()
		}

		fiberlog.Warnf("[%s] Candidate %s failed: %v", requestID, cand.Name, err)
		attempts = append(attempts, Attempt{Name: cand.Name, Err: err})
	}

	errs := make([]error, 0, len(attempts))
	for _, a := range attempts {
		errs = append(errs, a.Err)
	}
	return &Result[T]{Winner: -1, Attempts: attempts}, errors.Join(errs...)
}
