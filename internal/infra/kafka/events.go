package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishActivityRecorded publishes workspace.activity.recorded events.
func (p *EventPublisher) PublishActivityRecorded(ctx context.Context, event domain.ActivityRecordedEvent) error {
	payload := struct {
		ActivityID  string            `json:"activity_id"`
		WorkspaceID string            `json:"workspace_id"`
		UserID      string            `json:"user_id"`
		Type        string            `json:"type"`
		Description string            `json:"description"`
		EntityType  string            `json:"entity_type,omitempty"`
		EntityID    string            `json:"entity_id,omitempty"`
		Persisted   bool              `json:"persisted"`
		RecordedAt  time.Time         `json:"recorded_at"`
		Metadata    map[string]string `json:"metadata,omitempty"`
	}{
		ActivityID:  event.ActivityID,
		WorkspaceID: event.WorkspaceID,
		UserID:      event.UserID,
		Type:        event.Type,
		Description: event.Description,
		EntityType:  event.EntityType,
		EntityID:    event.EntityID,
		Persisted:   event.Persisted,
		RecordedAt:  event.RecordedAt,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, "workspace.activity.recorded", event.UserID, event.RecordedAt, payload)
}

// PublishPresenceChanged publishes workspace.presence.changed events.
func (p *EventPublisher) PublishPresenceChanged(ctx context.Context, event domain.PresenceChangedEvent) error {
	payload := struct {
		WorkspaceID string    `json:"workspace_id"`
		UserID      string    `json:"user_id"`
		Status      string    `json:"status"`
		ChangedAt   time.Time `json:"changed_at"`
	}{
		WorkspaceID: event.WorkspaceID,
		UserID:      event.UserID,
		Status:      string(event.Status),
		ChangedAt:   event.ChangedAt,
	}

	return p.publish(ctx, "workspace.presence.changed", event.UserID, event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
