package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CapabilityChecker implements port.CapabilityChecker by calling the
// database-level capability function. The store owns the semantics; this
// side only relays the boolean.
type CapabilityChecker struct {
	pool *pgxpool.Pool
}

// NewCapabilityChecker constructs a capability checker instance.
func NewCapabilityChecker(pool *pgxpool.Pool) *CapabilityChecker {
	return &CapabilityChecker{pool: pool}
}

// HasCapability invokes workspace_has_permission with bound parameters.
func (c *CapabilityChecker) HasCapability(ctx context.Context, workspaceID, userID, permission string) (bool, error) {
	var allowed bool
	row := c.pool.QueryRow(ctx, "SELECT workspace_has_permission($1, $2, $3)", workspaceID, userID, permission)
	if err := row.Scan(&allowed); err != nil {
		return false, fmt.Errorf("call workspace_has_permission: %w", err)
	}
	return allowed, nil
}
