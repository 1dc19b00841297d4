package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

// Actor identifies the principal an activity is attributed to.
type Actor struct {
	ID   string
	Name string
}

// ActivityService owns the activity dual-write: persist to the feed table,
// broadcast for immediate reflection, and publish the domain event. The
// insert and the broadcast are deliberately independent; an insert failure
// is logged and marked on the event but never blocks the broadcast.
type ActivityService struct {
	activities port.ActivityRepository
	bus        port.Bus
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewActivityService constructs an activity service.
func NewActivityService(activities port.ActivityRepository, bus port.Bus, events port.EventPublisher, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activities: activities,
		bus:        bus,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source.
func (s *ActivityService) WithClock(now func() time.Time) *ActivityService {
	if now != nil {
		s.now = now
	}
	return s
}

// Record persists and broadcasts one activity entry, returning it with the
// Persisted flag reflecting the insert outcome.
func (s *ActivityService) Record(ctx context.Context, workspaceID string, actor Actor, actType, description, entityType, entityID string, metadata map[string]string) domain.ActivityEvent {
	activity := domain.ActivityEvent{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Type:        actType,
		Description: description,
		UserID:      actor.ID,
		UserName:    actor.Name,
		EntityType:  entityType,
		EntityID:    entityID,
		Timestamp:   s.now().UTC(),
		Metadata:    metadata,
		Persisted:   true,
	}

	if s.activities != nil {
		if err := s.activities.Insert(ctx, activity); err != nil {
			s.logger.Warn("activity insert failed",
				zap.String("workspace_id", workspaceID),
				zap.String("type", actType),
				zap.Error(err),
			)
			activity.Persisted = false
		}
	} else {
		activity.Persisted = false
	}

	if s.bus != nil {
		ch := s.bus.Broadcast(workspaceID, nil)
		if payload, err := json.Marshal(activity); err == nil {
			if err := ch.Send(ctx, eventActivity, payload); err != nil {
				s.logger.Warn("activity broadcast failed",
					zap.String("workspace_id", workspaceID),
					zap.Error(err),
				)
			}
		}
	}

	if s.events != nil {
		if err := s.events.PublishActivityRecorded(ctx, domain.ActivityRecordedEvent{
			ActivityID:  activity.ID,
			WorkspaceID: activity.WorkspaceID,
			UserID:      activity.UserID,
			Type:        activity.Type,
			Description: activity.Description,
			EntityType:  activity.EntityType,
			EntityID:    activity.EntityID,
			Persisted:   activity.Persisted,
			RecordedAt:  activity.Timestamp,
			Metadata:    activity.Metadata,
		}); err != nil {
			s.logger.Warn("publish activity event failed", zap.Error(err))
		}
	}

	return activity
}

// Recent returns the newest persisted activities for a workspace.
func (s *ActivityService) Recent(ctx context.Context, workspaceID string, limit int) ([]domain.ActivityEvent, error) {
	if s.activities == nil {
		return []domain.ActivityEvent{}, nil
	}
	return s.activities.ListRecent(ctx, workspaceID, limit)
}
