package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/repository"
)

// MembershipRepository implements port.MembershipRepository over PostgreSQL.
type MembershipRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewMembershipRepository constructs a membership repository instance.
func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetActive returns the active membership for the user in the workspace.
// Absence of a row is a normal outcome reported as repository.ErrNotFound.
func (r *MembershipRepository) GetActive(ctx context.Context, workspaceID, userID string) (*domain.Membership, error) {
	stmt, args, err := r.builder.Select("workspace_id", "user_id", "role", "status", "joined_at").
		From("workspace_members").
		Where(squirrel.Eq{
			"workspace_id": workspaceID,
			"user_id":      userID,
			"status":       string(domain.MembershipActive),
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select membership sql: %w", err)
	}

	row := r.pool.QueryRow(ctx, stmt, args...)

	var (
		membership domain.Membership
		status     string
		joinedAt   time.Time
	)

	if err := row.Scan(&membership.WorkspaceID, &membership.UserID, &membership.Role, &status, &joinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}

	membership.Status = domain.MembershipStatus(status)
	membership.JoinedAt = joinedAt

	return &membership, nil
}
