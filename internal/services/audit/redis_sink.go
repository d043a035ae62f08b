package audit

import (
	"context"
	"time"

	"github.com/helix-ml/tier-router/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	defaultStream    = "tier-router:events"
	defaultMaxLen    = 10000
	redisEmitTimeout = 1 * time.Second
)

// RedisSink appends events to a capped Redis stream for downstream consumers.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink creates a stream sink from config. The connection is verified
// once at startup; later failures are tolerated per the sink contract.
func NewRedisSink(cfg models.RedisAuditConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, models.NewConfigurationError("audit.redis", "connection failed: "+err.Error())
	}

	stream := cfg.Stream
	if stream == "" {
		stream = defaultStream
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}

	return &RedisSink{client: client, stream: stream, maxLen: maxLen}, nil
}

// Emit appends the event to the stream. Failures are logged and swallowed.
func (s *RedisSink) Emit(ctx context.Context, event models.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, redisEmitTimeout)
	defer cancel()

	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":        string(event.Type),
			"request_id":  event.RequestID,
			"tier":        string(event.Tier),
			"failed_tier": string(event.FailedTier),
			"reason":      event.Reason,
			"tokens":      event.Tokens,
			"cost_usd":    event.CostUSD,
			"latency_ms":  event.LatencyMs,
			"project_id":  event.ProjectID,
			"task_id":     event.TaskID,
		},
	}).Err()
	if err != nil {
		fiberlog.Errorf("Audit: failed to append event to redis stream %s: %v", s.stream, err)
	}
}

// Client exposes the underlying Redis client for health checks.
func (s *RedisSink) Client() *redis.Client {
	return s.client
}

// Close closes the underlying Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
