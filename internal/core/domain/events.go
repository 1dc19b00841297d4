package domain

import "time"

// ActivityRecordedEvent is emitted when an activity entry is recorded for a
// workspace, whether or not the database insert succeeded.
type ActivityRecordedEvent struct {
	ActivityID  string
	WorkspaceID string
	UserID      string
	Type        string
	Description string
	EntityType  string
	EntityID    string
	Persisted   bool
	RecordedAt  time.Time
	Metadata    map[string]string
}

// PresenceChangedEvent is emitted when a member's tracked presence payload
// changes on a workspace channel.
type PresenceChangedEvent struct {
	WorkspaceID string
	UserID      string
	Status      PresenceStatus
	ChangedAt   time.Time
}
