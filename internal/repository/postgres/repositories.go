package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Memberships  *MembershipRepository
	Activities   *ActivityRepository
	Capabilities *CapabilityChecker
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool, logger *zap.Logger) *Repositories {
	return &Repositories{
		Memberships:  NewMembershipRepository(pool),
		Activities:   NewActivityRepository(pool, logger),
		Capabilities: NewCapabilityChecker(pool),
	}
}
