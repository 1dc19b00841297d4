package port

import "context"

// CapabilityChecker answers the server-side fallback question for checks the
// static role table cannot resolve. Implementations call an opaque boolean
// RPC owned by the backing store.
type CapabilityChecker interface {
	HasCapability(ctx context.Context, workspaceID, userID, permission string) (bool, error)
}
