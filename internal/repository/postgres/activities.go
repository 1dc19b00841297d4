package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

// ActivityRepository implements port.ActivityRepository over PostgreSQL.
// After a successful insert it fans the row out through the optional insert
// notifier so live subscribers see it without polling.
type ActivityRepository struct {
	pool     *pgxpool.Pool
	builder  squirrel.StatementBuilderType
	notifier port.InsertNotifier
	logger   *zap.Logger
}

// NewActivityRepository constructs an activity repository instance.
func NewActivityRepository(pool *pgxpool.Pool, logger *zap.Logger) *ActivityRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger:  logger,
	}
}

// WithNotifier attaches an insert notifier for live fan-out.
func (r *ActivityRepository) WithNotifier(notifier port.InsertNotifier) *ActivityRepository {
	r.notifier = notifier
	return r
}

// Insert persists one activity row. All values are bound parameters.
func (r *ActivityRepository) Insert(ctx context.Context, activity domain.ActivityEvent) error {
	var metadata []byte
	if len(activity.Metadata) > 0 {
		encoded, err := json.Marshal(activity.Metadata)
		if err != nil {
			return fmt.Errorf("marshal activity metadata: %w", err)
		}
		metadata = encoded
	}

	stmt, args, err := r.builder.Insert("workspace_activities").
		Columns("id", "workspace_id", "actor_id", "actor_name", "action_type", "title", "entity_type", "entity_id", "metadata", "created_at").
		Values(
			activity.ID,
			activity.WorkspaceID,
			activity.UserID,
			activity.UserName,
			activity.Type,
			activity.Description,
			nullable(activity.EntityType),
			nullable(activity.EntityID),
			metadata,
			activity.Timestamp,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activity sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	if r.notifier != nil {
		payload, err := json.Marshal(activity)
		if err == nil {
			if err := r.notifier.NotifyInsert(ctx, "workspace_activities", activity.WorkspaceID, payload); err != nil {
				r.logger.Warn("activity insert notification failed",
					zap.String("workspace_id", activity.WorkspaceID),
					zap.Error(err),
				)
			}
		}
	}

	return nil
}

// ListRecent returns the newest activities for a workspace, newest first.
func (r *ActivityRepository) ListRecent(ctx context.Context, workspaceID string, limit int) ([]domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	stmt, args, err := r.builder.Select("id", "workspace_id", "actor_id", "actor_name", "action_type", "title", "entity_type", "entity_id", "metadata", "created_at").
		From("workspace_activities").
		Where(squirrel.Eq{"workspace_id": workspaceID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select activities sql: %w", err)
	}

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]domain.ActivityEvent, 0, limit)
	for rows.Next() {
		var (
			activity   domain.ActivityEvent
			entityType sql.NullString
			entityID   sql.NullString
			metadata   []byte
		)

		if err := rows.Scan(
			&activity.ID,
			&activity.WorkspaceID,
			&activity.UserID,
			&activity.UserName,
			&activity.Type,
			&activity.Description,
			&entityType,
			&entityID,
			&metadata,
			&activity.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}

		activity.EntityType = entityType.String
		activity.EntityID = entityID.String
		activity.Persisted = true

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &activity.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal activity metadata: %w", err)
			}
		}

		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return activities, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
