// Package audit fans routing and fallback events out to observability sinks.
// Emission is best-effort: a sink failure is logged and never propagates to
// the routing operation that produced the event.
package audit

import (
	"context"
	"time"

	"github.com/helix-ml/tier-router/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Sink receives audit events.
type Sink interface {
	Emit(ctx context.Context, event models.AuditEvent)
}

// LogSink writes events to the application log. Always enabled.
type LogSink struct{}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Emit logs the event.
func (s *LogSink) Emit(_ context.Context, event models.AuditEvent) {
	switch event.Type {
	case models.AuditFallbackTriggered:
		fiberlog.Warnf("[%s] AUDIT fallback: %s failed (%s), served by %s",
			event.RequestID, event.FailedTier, event.Reason, event.Tier)
	default:
		fiberlog.Infof("[%s] AUDIT routing: tier=%s tokens=%d cost=%.6f latency=%dms",
			event.RequestID, event.Tier, event.Tokens, event.CostUSD, event.LatencyMs)
	}
}

// MultiSink fans one event out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink. Nil members are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept}
}

// Emit delivers the event to every sink.
func (s *MultiSink) Emit(ctx context.Context, event models.AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, sink := range s.sinks {
		sink.Emit(ctx, event)
	}
}
