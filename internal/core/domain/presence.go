package domain

import "time"

// PresenceStatus is the live availability of a workspace member.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

// PresenceEntry is one member's live state on a workspace channel. Entries
// exist only for the lifetime of the underlying realtime connection.
type PresenceEntry struct {
	UserID   string            `json:"user_id"`
	Name     string            `json:"name"`
	Status   PresenceStatus    `json:"status"`
	LastSeen time.Time         `json:"last_seen"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MessageType distinguishes broadcast message payloads.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// Message is an ephemeral chat-style broadcast scoped to one workspace.
type Message struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	UserID    string            `json:"user_id"`
	UserName  string            `json:"user_name"`
	Timestamp time.Time         `json:"timestamp"`
	Type      MessageType       `json:"type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ActivityEvent is one entry in a workspace's rolling activity feed. The
// Persisted flag distinguishes rows that reached the activity table from
// best-effort broadcast echoes.
type ActivityEvent struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspace_id"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	UserID      string            `json:"user_id"`
	UserName    string            `json:"user_name"`
	EntityType  string            `json:"entity_type,omitempty"`
	EntityID    string            `json:"entity_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Persisted   bool              `json:"persisted"`
}
