package models

import "time"

// AuditEventType distinguishes the two event shapes the engine emits.
type AuditEventType string

const (
	// AuditRoutingCompleted is emitted for every successfully served routing.
	AuditRoutingCompleted AuditEventType = "routing_completed"
	// AuditFallbackTriggered is emitted when the serving tier differs from the
	// selected one; it names the failed tier and the reason.
	AuditFallbackTriggered AuditEventType = "fallback_triggered"
)

// AuditEvent is the observability record handed to audit sinks. Sink failures
// never fail the routing that produced the event.
type AuditEvent struct {
	Type       AuditEventType `json:"type"`
	RequestID  string         `json:"request_id"`
	Tier       Tier           `json:"tier"`
	FailedTier Tier           `json:"failed_tier,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Tokens     int64          `json:"tokens"`
	CostUSD    float64        `json:"cost_usd"`
	LatencyMs  int64          `json:"latency_ms"`
	ProjectID  string         `json:"project_id,omitempty"`
	TaskID     string         `json:"task_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// RoutingEventRecord is the persisted form of an AuditEvent for the database
// audit sink.
type RoutingEventRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EventType  string    `gorm:"index;size:32" json:"event_type"`
	RequestID  string    `gorm:"index;size:64" json:"request_id"`
	Tier       string    `gorm:"size:16" json:"tier"`
	FailedTier string    `gorm:"size:16" json:"failed_tier"`
	Reason     string    `gorm:"size:512" json:"reason"`
	Tokens     int64     `json:"tokens"`
	CostUSD    float64   `json:"cost_usd"`
	LatencyMs  int64     `json:"latency_ms"`
	ProjectID  string    `gorm:"index;size:64" json:"project_id"`
	TaskID     string    `gorm:"size:64" json:"task_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName overrides the default gorm table name.
func (RoutingEventRecord) TableName() string {
	return "routing_events"
}
