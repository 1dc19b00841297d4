package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

// busMock fans every Send back out to all registered broadcast handlers,
// mirroring how pub/sub echoes a publisher's own message.

type sentEvent struct {
	event   string
	payload []byte
}

type busMock struct {
	mu                sync.Mutex
	presenceHandlers  port.PresenceHandlers
	broadcastHandlers []port.BroadcastHandler
	insertHandlers    []func(payload []byte)
	tracked           []domain.PresenceEntry
	sent              []sentEvent
	subscribeCalls    int
	unsubscribeCalls  int
}

func (b *busMock) Presence(_ string, handlers port.PresenceHandlers) port.Channel {
	b.mu.Lock()
	b.presenceHandlers = handlers
	b.mu.Unlock()
	return &busChannelMock{bus: b, presence: true}
}

func (b *busMock) Broadcast(_ string, handler port.BroadcastHandler) port.Channel {
	b.mu.Lock()
	if handler != nil {
		b.broadcastHandlers = append(b.broadcastHandlers, handler)
	}
	b.mu.Unlock()
	return &busChannelMock{bus: b}
}

func (b *busMock) TableInserts(_, _ string, handler func(payload []byte)) port.Channel {
	b.mu.Lock()
	b.insertHandlers = append(b.insertHandlers, handler)
	b.mu.Unlock()
	return &busChannelMock{bus: b}
}

func (b *busMock) sync(entries []domain.PresenceEntry) {
	b.mu.Lock()
	handlers := b.presenceHandlers
	b.mu.Unlock()
	if handlers.OnSync != nil {
		handlers.OnSync(entries)
	}
}

func (b *busMock) join(entries []domain.PresenceEntry) {
	b.mu.Lock()
	handlers := b.presenceHandlers
	b.mu.Unlock()
	if handlers.OnJoin != nil {
		handlers.OnJoin(entries)
	}
}

func (b *busMock) leave(userIDs []string) {
	b.mu.Lock()
	handlers := b.presenceHandlers
	b.mu.Unlock()
	if handlers.OnLeave != nil {
		handlers.OnLeave(userIDs)
	}
}

func (b *busMock) notifyInsert(payload []byte) {
	b.mu.Lock()
	handlers := append([]func([]byte){}, b.insertHandlers...)
	b.mu.Unlock()
	for _, handler := range handlers {
		handler(payload)
	}
}

func (b *busMock) sentEvents() []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentEvent{}, b.sent...)
}

func (b *busMock) trackedEntries() []domain.PresenceEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.PresenceEntry{}, b.tracked...)
}

type busChannelMock struct {
	bus      *busMock
	presence bool
}

func (c *busChannelMock) Subscribe(_ context.Context) error {
	c.bus.mu.Lock()
	c.bus.subscribeCalls++
	c.bus.mu.Unlock()
	return nil
}

func (c *busChannelMock) Unsubscribe(_ context.Context) error {
	c.bus.mu.Lock()
	c.bus.unsubscribeCalls++
	c.bus.mu.Unlock()
	return nil
}

func (c *busChannelMock) Track(_ context.Context, entry domain.PresenceEntry) error {
	if !c.presence {
		return nil
	}
	c.bus.mu.Lock()
	c.bus.tracked = append(c.bus.tracked, entry)
	c.bus.mu.Unlock()
	return nil
}

func (c *busChannelMock) Send(_ context.Context, event string, payload []byte) error {
	c.bus.mu.Lock()
	c.bus.sent = append(c.bus.sent, sentEvent{event: event, payload: payload})
	handlers := append([]port.BroadcastHandler{}, c.bus.broadcastHandlers...)
	c.bus.mu.Unlock()

	for _, handler := range handlers {
		handler(event, payload)
	}
	return nil
}

type eventsMock struct {
	mu         sync.Mutex
	activities []domain.ActivityRecordedEvent
	presence   []domain.PresenceChangedEvent
}

func (e *eventsMock) PublishActivityRecorded(_ context.Context, event domain.ActivityRecordedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activities = append(e.activities, event)
	return nil
}

func (e *eventsMock) PublishPresenceChanged(_ context.Context, event domain.PresenceChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.presence = append(e.presence, event)
	return nil
}

type activityRepoMock struct {
	mu        sync.Mutex
	inserted  []domain.ActivityEvent
	insertErr error
}

func (r *activityRepoMock) Insert(_ context.Context, activity domain.ActivityEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, activity)
	return nil
}

func (r *activityRepoMock) ListRecent(_ context.Context, _ string, limit int) ([]domain.ActivityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]domain.ActivityEvent{}, r.inserted...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestChannel(t *testing.T, bus *busMock, activity *ActivityService, events port.EventPublisher) *WorkspaceChannel {
	t.Helper()
	channel, err := NewWorkspaceChannel("ws-1", "user-1", "Amira", bus, activity, events, nil)
	if err != nil {
		t.Fatalf("NewWorkspaceChannel: %v", err)
	}
	return channel
}

func entry(userID string) domain.PresenceEntry {
	return domain.PresenceEntry{
		UserID:   userID,
		Name:     userID,
		Status:   domain.PresenceOnline,
		LastSeen: time.Now().UTC(),
	}
}

func TestConnectLifecycle(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil)
	ctx := context.Background()

	if channel.State() != StateDisconnected {
		t.Fatalf("initial state = %v, want disconnected", channel.State())
	}

	channel.Connect(ctx)
	if channel.State() != StateConnected {
		t.Fatalf("state after Connect = %v, want connected", channel.State())
	}
	if bus.subscribeCalls != 3 {
		t.Errorf("expected 3 subscriptions, got %d", bus.subscribeCalls)
	}

	// Connect is idempotent.
	channel.Connect(ctx)
	if bus.subscribeCalls != 3 {
		t.Errorf("repeat Connect must not resubscribe, got %d", bus.subscribeCalls)
	}

	channel.Disconnect(ctx)
	if channel.State() != StateDisconnected {
		t.Errorf("state after Disconnect = %v, want disconnected", channel.State())
	}
	if bus.unsubscribeCalls != 3 {
		t.Errorf("expected 3 unsubscriptions, got %d", bus.unsubscribeCalls)
	}
}

func TestReconnectReinitializes(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil)
	ctx := context.Background()

	channel.Connect(ctx)
	channel.Reconnect(ctx)

	if channel.State() != StateConnected {
		t.Errorf("state after Reconnect = %v, want connected", channel.State())
	}
	if bus.subscribeCalls != 6 {
		t.Errorf("expected 6 subscriptions across both connects, got %d", bus.subscribeCalls)
	}
	if bus.unsubscribeCalls != 3 {
		t.Errorf("expected 3 unsubscriptions from the teardown, got %d", bus.unsubscribeCalls)
	}
}

func TestPresenceSyncReplacesState(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil)
	channel.Connect(context.Background())

	bus.sync([]domain.PresenceEntry{entry("a"), entry("b")})
	if got := channel.OnlineUsers(); len(got) != 2 {
		t.Fatalf("expected 2 online users, got %d", len(got))
	}

	bus.sync([]domain.PresenceEntry{entry("c")})
	got := channel.OnlineUsers()
	if len(got) != 1 || got[0].UserID != "c" {
		t.Errorf("sync must replace the full state, got %v", got)
	}
}

func TestPresenceJoinAndLeave(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil)
	channel.Connect(context.Background())

	bus.sync([]domain.PresenceEntry{entry("a")})
	bus.join([]domain.PresenceEntry{entry("b")})

	if got := channel.OnlineUsers(); len(got) != 2 {
		t.Fatalf("expected 2 online users after join, got %d", len(got))
	}

	bus.leave([]string{"a"})
	got := channel.OnlineUsers()
	if len(got) != 1 || got[0].UserID != "b" {
		t.Errorf("expected only b after leave, got %v", got)
	}
}

func TestUpdatePresenceTracksAndPublishes(t *testing.T) {
	bus := &busMock{}
	events := &eventsMock{}
	channel := newTestChannel(t, bus, nil, events)
	ctx := context.Background()

	channel.Connect(ctx)
	channel.UpdatePresence(ctx, domain.PresenceBusy, map[string]string{"page": "dashboard"})

	tracked := bus.trackedEntries()
	if len(tracked) != 1 {
		t.Fatalf("expected 1 tracked entry, got %d", len(tracked))
	}
	if tracked[0].UserID != "user-1" || tracked[0].Status != domain.PresenceBusy {
		t.Errorf("unexpected tracked entry %+v", tracked[0])
	}

	if len(events.presence) != 1 || events.presence[0].Status != domain.PresenceBusy {
		t.Errorf("expected one presence changed event, got %v", events.presence)
	}
}

func TestMessageWindowRollsOldestOut(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil).WithLimits(3, 10)
	ctx := context.Background()

	channel.Connect(ctx)
	for _, content := range []string{"one", "two", "three", "four"} {
		channel.SendMessage(ctx, content, domain.MessageText, nil)
	}

	messages := channel.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected window of 3 messages, got %d", len(messages))
	}
	if messages[0].Content != "four" {
		t.Errorf("newest message must be first, got %q", messages[0].Content)
	}
	for _, m := range messages {
		if m.Content == "one" {
			t.Error("oldest message must have rolled out of the window")
		}
	}
}

func TestBroadcastEchoIsDeduplicated(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil)
	ctx := context.Background()

	channel.Connect(ctx)
	channel.SendMessage(ctx, "hello", domain.MessageText, nil)

	// The bus fans the publish back to the sender's own handler; the local
	// prepend plus the echo must still leave one copy.
	if got := channel.Messages(); len(got) != 1 {
		t.Errorf("expected 1 message after echo, got %d", len(got))
	}
	if sent := bus.sentEvents(); len(sent) != 1 || sent[0].event != "message" {
		t.Errorf("expected one message broadcast, got %v", sent)
	}
}

func TestPeerMessageReceived(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil)
	channel.Connect(context.Background())

	peer := domain.Message{
		ID:        "msg-peer",
		Content:   "hi from peer",
		UserID:    "user-2",
		Timestamp: time.Now().UTC(),
		Type:      domain.MessageText,
	}
	payload, err := json.Marshal(peer)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	bus.mu.Lock()
	handlers := append([]port.BroadcastHandler{}, bus.broadcastHandlers...)
	bus.mu.Unlock()
	for _, handler := range handlers {
		handler("message", payload)
	}

	messages := channel.Messages()
	if len(messages) != 1 || messages[0].ID != "msg-peer" {
		t.Errorf("expected the peer message in the window, got %v", messages)
	}
}

func TestAddActivityInsertFailureStillBroadcasts(t *testing.T) {
	bus := &busMock{}
	events := &eventsMock{}
	repo := &activityRepoMock{insertErr: errors.New("insert failed")}
	activity := NewActivityService(repo, bus, events, nil)
	channel := newTestChannel(t, bus, activity, events)
	ctx := context.Background()

	channel.Connect(ctx)
	channel.AddActivity(ctx, "challenge_created", "Created challenge X", "challenge", "ch-1")

	feed := channel.Activities()
	if len(feed) != 1 {
		t.Fatalf("expected 1 feed entry, got %d", len(feed))
	}
	if feed[0].Persisted {
		t.Error("entry must be marked unpersisted after insert failure")
	}

	sent := bus.sentEvents()
	if len(sent) != 1 || sent[0].event != "activity" {
		t.Fatalf("insert failure must not block the broadcast, got %v", sent)
	}

	if len(events.activities) != 1 || events.activities[0].Persisted {
		t.Errorf("expected one unpersisted activity event, got %v", events.activities)
	}
}

func TestAddActivityPersists(t *testing.T) {
	bus := &busMock{}
	repo := &activityRepoMock{}
	activity := NewActivityService(repo, bus, nil, nil)
	channel := newTestChannel(t, bus, activity, nil)
	ctx := context.Background()

	channel.Connect(ctx)
	channel.AddActivity(ctx, "idea_submitted", "Submitted idea Y", "idea", "idea-1")

	feed := channel.Activities()
	if len(feed) != 1 || !feed[0].Persisted {
		t.Fatalf("expected 1 persisted feed entry, got %v", feed)
	}
	if len(repo.inserted) != 1 {
		t.Errorf("expected 1 inserted row, got %d", len(repo.inserted))
	}
}

func TestActivityFeedRollsOldestOut(t *testing.T) {
	bus := &busMock{}
	repo := &activityRepoMock{}
	activity := NewActivityService(repo, bus, nil, nil)
	channel := newTestChannel(t, bus, activity, nil).WithLimits(10, 2)
	ctx := context.Background()

	channel.Connect(ctx)
	channel.AddActivity(ctx, "t1", "first", "", "")
	channel.AddActivity(ctx, "t2", "second", "", "")
	channel.AddActivity(ctx, "t3", "third", "", "")

	feed := channel.Activities()
	if len(feed) != 2 {
		t.Fatalf("expected feed of 2, got %d", len(feed))
	}
	if feed[0].Description != "third" {
		t.Errorf("newest entry must be first, got %q", feed[0].Description)
	}
}

func TestInsertNotificationMarksPersisted(t *testing.T) {
	bus := &busMock{}
	channel := newTestChannel(t, bus, nil, nil)
	channel.Connect(context.Background())

	row := domain.ActivityEvent{
		ID:          "act-db",
		WorkspaceID: "ws-1",
		Type:        "comment_added",
		Description: "Commented on idea Z",
		UserID:      "user-2",
		Timestamp:   time.Now().UTC(),
	}
	payload, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	bus.notifyInsert(payload)

	feed := channel.Activities()
	if len(feed) != 1 {
		t.Fatalf("expected 1 feed entry, got %d", len(feed))
	}
	if !feed[0].Persisted {
		t.Error("rows arriving via insert notification are persisted by definition")
	}
}
