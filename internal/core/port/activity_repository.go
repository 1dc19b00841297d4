package port

import (
	"context"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
)

// ActivityRepository manages the persisted workspace activity feed.
type ActivityRepository interface {
	Insert(ctx context.Context, activity domain.ActivityEvent) error
	ListRecent(ctx context.Context, workspaceID string, limit int) ([]domain.ActivityEvent, error)
}
