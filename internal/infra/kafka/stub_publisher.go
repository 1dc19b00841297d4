package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishActivityRecorded logs workspace.activity.recorded events.
func (p *StubPublisher) PublishActivityRecorded(_ context.Context, event domain.ActivityRecordedEvent) error {
	payload := map[string]any{
		"activity_id":  event.ActivityID,
		"workspace_id": event.WorkspaceID,
		"user_id":      event.UserID,
		"type":         event.Type,
		"description":  event.Description,
		"entity_type":  event.EntityType,
		"entity_id":    event.EntityID,
		"persisted":    event.Persisted,
		"recorded_at":  event.RecordedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("workspace.activity.recorded", event.UserID, event.RecordedAt, payload)
	return nil
}

// PublishPresenceChanged logs workspace.presence.changed events.
func (p *StubPublisher) PublishPresenceChanged(_ context.Context, event domain.PresenceChangedEvent) error {
	payload := map[string]any{
		"workspace_id": event.WorkspaceID,
		"user_id":      event.UserID,
		"status":       string(event.Status),
		"changed_at":   event.ChangedAt,
	}
	p.logEvent("workspace.presence.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
