package port

import (
	"context"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishActivityRecorded(ctx context.Context, event domain.ActivityRecordedEvent) error
	PublishPresenceChanged(ctx context.Context, event domain.PresenceChangedEvent) error
}
