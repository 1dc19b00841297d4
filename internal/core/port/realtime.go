package port

import (
	"context"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
)

// PresenceHandlers receives presence lifecycle callbacks for one channel.
// Sync delivers the full replacement state; Join and Leave deliver deltas in
// receipt order.
type PresenceHandlers struct {
	OnSync  func(entries []domain.PresenceEntry)
	OnJoin  func(entries []domain.PresenceEntry)
	OnLeave func(userIDs []string)
}

// BroadcastHandler receives a named broadcast event with its raw payload.
type BroadcastHandler func(event string, payload []byte)

// Channel is one subscription to the realtime substrate. Track is only
// meaningful on presence channels and Send on broadcast channels; the other
// operations no-op.
type Channel interface {
	Subscribe(ctx context.Context) error
	Unsubscribe(ctx context.Context) error
	Track(ctx context.Context, entry domain.PresenceEntry) error
	Send(ctx context.Context, event string, payload []byte) error
}

// InsertNotifier fans out row-insert notifications to table-change
// subscribers. Repositories call it after a successful insert.
type InsertNotifier interface {
	NotifyInsert(ctx context.Context, table, workspaceID string, payload []byte) error
}

// Bus hands out workspace-scoped channels over the realtime substrate. The
// core treats it as opaque pub/sub: subscribe, receive named events, publish
// named events.
type Bus interface {
	// Presence opens the presence-tracking channel for a workspace.
	Presence(workspaceID string, handlers PresenceHandlers) Channel
	// Broadcast opens the named-event broadcast channel for a workspace.
	Broadcast(workspaceID string, handler BroadcastHandler) Channel
	// TableInserts subscribes to row-insert notifications on a table,
	// filtered to one workspace.
	TableInserts(table, workspaceID string, handler func(payload []byte)) Channel
}
