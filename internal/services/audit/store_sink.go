package audit

import (
	"context"

	"github.com/helix-ml/tier-router/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// StoreSink persists events as routing_events rows for offline analysis.
type StoreSink struct {
	db *gorm.DB
}

// NewStoreSink creates a database sink and migrates its table.
func NewStoreSink(db *gorm.DB) (*StoreSink, error) {
	if err := db.AutoMigrate(&models.RoutingEventRecord{}); err != nil {
		return nil, err
	}
	return &StoreSink{db: db}, nil
}

// Emit inserts the event. Failures are logged and swallowed.
func (s *StoreSink) Emit(ctx context.Context, event models.AuditEvent) {
	record := models.RoutingEventRecord{
		EventType:  string(event.Type),
		RequestID:  event.RequestID,
		Tier:       string(event.Tier),
		FailedTier: string(event.FailedTier),
		Reason:     event.Reason,
		Tokens:     event.Tokens,
		CostUSD:    event.CostUSD,
		LatencyMs:  event.LatencyMs,
		ProjectID:  event.ProjectID,
		TaskID:     event.TaskID,
		CreatedAt:  event.Timestamp,
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		fiberlog.Errorf("Audit: failed to persist routing event: %v", err)
	}
}
