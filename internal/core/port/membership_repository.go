package port

import (
	"context"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
)

// MembershipRepository exposes read access to workspace memberships. The
// permission core never mutates membership.
type MembershipRepository interface {
	// GetActive returns the active membership for the user in the workspace.
	// Absence of an active row is reported as repository.ErrNotFound.
	GetActive(ctx context.Context, workspaceID, userID string) (*domain.Membership, error)
}
