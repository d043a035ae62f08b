package audit

import (
	"context"
	"testing"

	"github.com/helix-ml/tier-router/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	sink, err := NewRedisSink(models.RedisAuditConfig{
		Addr:   mr.Addr(),
		Stream: "test:events",
		MaxLen: 100,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	return sink, mr
}

func readStream(t *testing.T, sink *RedisSink) []redis.XMessage {
	t.Helper()
	entries, err := sink.Client().XRange(context.Background(), "test:events", "-", "+").Result()
	require.NoError(t, err)
	return entries
}

func TestNewRedisSinkFailsWhenUnreachable(t *testing.T) {
	_, err := NewRedisSink(models.RedisAuditConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.True(t, models.IsConfiguration(err))
}

func TestRedisSinkAppendsEvents(t *testing.T) {
	sink, _ := newTestSink(t)

	sink.Emit(context.Background(), models.AuditEvent{
		Type:      models.AuditRoutingCompleted,
		RequestID: "req-1",
		Tier:      models.TierElastic,
		Tokens:    1500,
		CostUSD:   0.003,
	})

	entries := readStream(t, sink)
	require.Len(t, entries, 1)
	assert.Equal(t, "routing_completed", entries[0].Values["type"])
	assert.Equal(t, "req-1", entries[0].Values["request_id"])
	assert.Equal(t, "elastic", entries[0].Values["tier"])
	assert.Equal(t, "1500", entries[0].Values["tokens"])
}

func TestRedisSinkRecordsFallbackEvents(t *testing.T) {
	sink, _ := newTestSink(t)

	sink.Emit(context.Background(), models.AuditEvent{
		Type:       models.AuditFallbackTriggered,
		RequestID:  "req-2",
		Tier:       models.TierPremium,
		FailedTier: models.TierElastic,
		Reason:     "connection refused",
	})

	entries := readStream(t, sink)
	require.Len(t, entries, 1)
	assert.Equal(t, "fallback_triggered", entries[0].Values["type"])
	assert.Equal(t, "elastic", entries[0].Values["failed_tier"])
	assert.Equal(t, "connection refused", entries[0].Values["reason"])
}

func TestRedisSinkSwallowsEmitFailures(t *testing.T) {
	sink, mr := newTestSink(t)
	mr.Close()

	// Must not panic or propagate the failure.
	sink.Emit(context.Background(), models.AuditEvent{
		Type:      models.AuditRoutingCompleted,
		RequestID: "req-3",
		Tier:      models.TierLocal,
	})
}
