package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

const (
	defaultMaxMessages   = 100
	defaultMaxActivities = 50

	eventMessage  = "message"
	eventActivity = "activity"

	activityTable = "workspace_activities"
)

// ChannelState is the lifecycle of one workspace realtime session.
type ChannelState string

const (
	StateDisconnected ChannelState = "disconnected"
	StateConnecting   ChannelState = "connecting"
	StateConnected    ChannelState = "connected"
)

// WorkspaceChannel maintains the live view of one workspace: who is online,
// a rolling message window, and a rolling activity feed. All realtime wiring
// is best-effort; transport failures are logged and swallowed so consumers
// degrade to last-known state instead of failing.
type WorkspaceChannel struct {
	workspaceID string
	userID      string
	userName    string

	bus      port.Bus
	activity *ActivityService
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time

	maxMessages   int
	maxActivities int
	onChange      func()

	mu          sync.Mutex
	state       ChannelState
	presenceCh  port.Channel
	broadcastCh port.Channel
	insertCh    port.Channel
	online      []domain.PresenceEntry
	messages    []domain.Message
	feed        []domain.ActivityEvent
}

// NewWorkspaceChannel constructs a disconnected channel for one principal in
// one workspace.
func NewWorkspaceChannel(
	workspaceID, userID, userName string,
	bus port.Bus,
	activity *ActivityService,
	events port.EventPublisher,
	logger *zap.Logger,
) (*WorkspaceChannel, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace id is required")
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if bus == nil {
		return nil, errors.New("realtime bus is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkspaceChannel{
		workspaceID:   workspaceID,
		userID:        userID,
		userName:      userName,
		bus:           bus,
		activity:      activity,
		events:        events,
		logger:        logger,
		now:           time.Now,
		maxMessages:   defaultMaxMessages,
		maxActivities: defaultMaxActivities,
		state:         StateDisconnected,
	}, nil
}

// WithLimits overrides the rolling window caps.
func (w *WorkspaceChannel) WithLimits(messages, activities int) *WorkspaceChannel {
	if messages > 0 {
		w.maxMessages = messages
	}
	if activities > 0 {
		w.maxActivities = activities
	}
	return w
}

// WithClock overrides the time source.
func (w *WorkspaceChannel) WithClock(now func() time.Time) *WorkspaceChannel {
	if now != nil {
		w.now = now
	}
	return w
}

// WithListener registers a callback fired after every state change. Must be
// set before Connect; invoked without holding internal locks.
func (w *WorkspaceChannel) WithListener(fn func()) *WorkspaceChannel {
	w.onChange = fn
	return w
}

func (w *WorkspaceChannel) notify() {
	if w.onChange != nil {
		w.onChange()
	}
}

// State returns the current session state.
func (w *WorkspaceChannel) State() ChannelState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Connect opens the presence, broadcast, and activity-insert channels.
// Subscription failures are logged but do not abort the session; the
// affected feed stays silent until Reconnect.
func (w *WorkspaceChannel) Connect(ctx context.Context) {
	w.mu.Lock()
	if w.state == StateConnected {
		w.mu.Unlock()
		return
	}
	w.state = StateConnecting
	w.mu.Unlock()

	presence := w.bus.Presence(w.workspaceID, port.PresenceHandlers{
		OnSync:  w.handlePresenceSync,
		OnJoin:  w.handlePresenceJoin,
		OnLeave: w.handlePresenceLeave,
	})
	broadcast := w.bus.Broadcast(w.workspaceID, w.handleBroadcast)
	inserts := w.bus.TableInserts(activityTable, w.workspaceID, w.handleActivityInsert)

	for name, ch := range map[string]port.Channel{
		"presence":  presence,
		"broadcast": broadcast,
		"inserts":   inserts,
	} {
		if err := ch.Subscribe(ctx); err != nil {
			w.logger.Warn("channel subscribe failed",
				zap.String("workspace_id", w.workspaceID),
				zap.String("channel", name),
				zap.Error(err),
			)
		}
	}

	w.mu.Lock()
	w.presenceCh = presence
	w.broadcastCh = broadcast
	w.insertCh = inserts
	w.state = StateConnected
	w.mu.Unlock()
}

// Reconnect tears down every open channel and re-initializes the session
// from scratch. Manual recovery for stalled connections; there is no
// automatic retry.
func (w *WorkspaceChannel) Reconnect(ctx context.Context) {
	w.teardown(ctx)
	w.Connect(ctx)
}

// Disconnect unsubscribes all channels and leaves the session disconnected.
func (w *WorkspaceChannel) Disconnect(ctx context.Context) {
	w.teardown(ctx)
}

func (w *WorkspaceChannel) teardown(ctx context.Context) {
	w.mu.Lock()
	channels := []port.Channel{w.presenceCh, w.broadcastCh, w.insertCh}
	w.presenceCh = nil
	w.broadcastCh = nil
	w.insertCh = nil
	w.state = StateDisconnected
	w.mu.Unlock()

	for _, ch := range channels {
		if ch == nil {
			continue
		}
		if err := ch.Unsubscribe(ctx); err != nil {
			w.logger.Warn("channel unsubscribe failed",
				zap.String("workspace_id", w.workspaceID),
				zap.Error(err),
			)
		}
	}
}

// UpdatePresence publishes the principal's presence payload to every
// connected client of the workspace.
func (w *WorkspaceChannel) UpdatePresence(ctx context.Context, status domain.PresenceStatus, metadata map[string]string) {
	w.mu.Lock()
	ch := w.presenceCh
	w.mu.Unlock()
	if ch == nil {
		return
	}

	entry := domain.PresenceEntry{
		UserID:   w.userID,
		Name:     w.userName,
		Status:   status,
		LastSeen: w.now().UTC(),
		Metadata: metadata,
	}

	if err := ch.Track(ctx, entry); err != nil {
		w.logger.Warn("presence track failed",
			zap.String("workspace_id", w.workspaceID),
			zap.String("user_id", w.userID),
			zap.Error(err),
		)
		return
	}

	if w.events != nil {
		if err := w.events.PublishPresenceChanged(ctx, domain.PresenceChangedEvent{
			WorkspaceID: w.workspaceID,
			UserID:      w.userID,
			Status:      status,
			ChangedAt:   entry.LastSeen,
		}); err != nil {
			w.logger.Warn("publish presence event failed", zap.Error(err))
		}
	}
}

// SendMessage broadcasts a message to all subscribers and prepends it to the
// local window. The broadcast echo is deduplicated by message id.
func (w *WorkspaceChannel) SendMessage(ctx context.Context, content string, msgType domain.MessageType, metadata map[string]string) {
	if msgType == "" {
		msgType = domain.MessageText
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		Content:   content,
		UserID:    w.userID,
		UserName:  w.userName,
		Timestamp: w.now().UTC(),
		Type:      msgType,
		Metadata:  metadata,
	}

	w.mu.Lock()
	ch := w.broadcastCh
	w.messages = prependMessage(w.messages, msg, w.maxMessages)
	w.mu.Unlock()
	w.notify()

	if ch == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		w.logger.Warn("marshal message failed", zap.Error(err))
		return
	}
	if err := ch.Send(ctx, eventMessage, payload); err != nil {
		w.logger.Warn("message broadcast failed",
			zap.String("workspace_id", w.workspaceID),
			zap.Error(err),
		)
	}
}

// AddActivity records an activity entry through the activity service (insert
// plus broadcast) and prepends it to the local feed. The broadcast echo is
// deduplicated by id.
func (w *WorkspaceChannel) AddActivity(ctx context.Context, actType, description, entityType, entityID string) {
	if w.activity == nil {
		return
	}

	activity := w.activity.Record(ctx, w.workspaceID, Actor{ID: w.userID, Name: w.userName}, actType, description, entityType, entityID, nil)
	w.appendActivity(activity)
}

// OnlineUsers returns a copy of the current presence list.
func (w *WorkspaceChannel) OnlineUsers() []domain.PresenceEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.PresenceEntry, len(w.online))
	copy(out, w.online)
	return out
}

// Messages returns a copy of the rolling message window, newest first.
func (w *WorkspaceChannel) Messages() []domain.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// Activities returns a copy of the rolling activity feed, newest first.
func (w *WorkspaceChannel) Activities() []domain.ActivityEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.ActivityEvent, len(w.feed))
	copy(out, w.feed)
	return out
}

// handlePresenceSync replaces the entire online list. Last sync wins.
func (w *WorkspaceChannel) handlePresenceSync(entries []domain.PresenceEntry) {
	w.mu.Lock()
	w.online = append([]domain.PresenceEntry(nil), entries...)
	w.mu.Unlock()
	w.notify()
}

func (w *WorkspaceChannel) handlePresenceJoin(entries []domain.PresenceEntry) {
	w.mu.Lock()
	w.online = append(w.online, entries...)
	w.mu.Unlock()
	w.notify()
}

func (w *WorkspaceChannel) handlePresenceLeave(userIDs []string) {
	gone := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		gone[id] = struct{}{}
	}

	w.mu.Lock()
	kept := w.online[:0]
	for _, entry := range w.online {
		if _, ok := gone[entry.UserID]; !ok {
			kept = append(kept, entry)
		}
	}
	w.online = kept
	w.mu.Unlock()
	w.notify()
}

func (w *WorkspaceChannel) handleBroadcast(event string, payload []byte) {
	switch event {
	case eventMessage:
		var msg domain.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			w.logger.Warn("decode broadcast message failed", zap.Error(err))
			return
		}
		w.mu.Lock()
		if !containsMessage(w.messages, msg.ID) {
			w.messages = prependMessage(w.messages, msg, w.maxMessages)
		}
		w.mu.Unlock()
		w.notify()
	case eventActivity:
		var activity domain.ActivityEvent
		if err := json.Unmarshal(payload, &activity); err != nil {
			w.logger.Warn("decode broadcast activity failed", zap.Error(err))
			return
		}
		w.appendActivity(activity)
	}
}

func (w *WorkspaceChannel) handleActivityInsert(payload []byte) {
	var activity domain.ActivityEvent
	if err := json.Unmarshal(payload, &activity); err != nil {
		w.logger.Warn("decode activity insert failed", zap.Error(err))
		return
	}
	activity.Persisted = true
	w.appendActivity(activity)
}

func (w *WorkspaceChannel) appendActivity(activity domain.ActivityEvent) {
	w.mu.Lock()
	if !containsActivity(w.feed, activity.ID) {
		w.feed = prependActivity(w.feed, activity, w.maxActivities)
	}
	w.mu.Unlock()
	w.notify()
}

func prependMessage(window []domain.Message, msg domain.Message, limit int) []domain.Message {
	window = append([]domain.Message{msg}, window...)
	if len(window) > limit {
		window = window[:limit]
	}
	return window
}

func prependActivity(window []domain.ActivityEvent, activity domain.ActivityEvent, limit int) []domain.ActivityEvent {
	window = append([]domain.ActivityEvent{activity}, window...)
	if len(window) > limit {
		window = window[:limit]
	}
	return window
}

func containsMessage(window []domain.Message, id string) bool {
	for _, m := range window {
		if m.ID == id {
			return true
		}
	}
	return false
}

func containsActivity(window []domain.ActivityEvent, id string) bool {
	for _, a := range window {
		if a.ID == id {
			return true
		}
	}
	return false
}
