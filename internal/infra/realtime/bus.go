package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

const defaultPresenceTTL = 90 * time.Second

// Bus implements port.Bus and port.InsertNotifier over Redis pub/sub.
// Presence state lives in a per-workspace hash so late subscribers can build
// the full member list; join/leave/sync deltas travel over pub/sub.
type Bus struct {
	rdb         *redis.Client
	logger      *zap.Logger
	presenceTTL time.Duration
}

// NewBus constructs a redis-backed realtime bus.
func NewBus(rdb *redis.Client, presenceTTL time.Duration, logger *zap.Logger) *Bus {
	if presenceTTL <= 0 {
		presenceTTL = defaultPresenceTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{rdb: rdb, logger: logger, presenceTTL: presenceTTL}
}

func presenceTopic(workspaceID string) string {
	return "workspace:presence:" + workspaceID
}

func presenceStateKey(workspaceID string) string {
	return "workspace:presence:state:" + workspaceID
}

func broadcastTopic(workspaceID string) string {
	return "workspace:broadcast:" + workspaceID
}

func tableTopic(table, workspaceID string) string {
	return fmt.Sprintf("table:%s:%s", table, workspaceID)
}

// Presence opens the presence-tracking channel for a workspace.
func (b *Bus) Presence(workspaceID string, handlers port.PresenceHandlers) port.Channel {
	return &presenceChannel{
		bus:         b,
		workspaceID: workspaceID,
		handlers:    handlers,
	}
}

// Broadcast opens the named-event broadcast channel for a workspace.
func (b *Bus) Broadcast(workspaceID string, handler port.BroadcastHandler) port.Channel {
	return &broadcastChannel{
		bus:     b,
		topic:   broadcastTopic(workspaceID),
		handler: handler,
	}
}

// TableInserts subscribes to row-insert notifications for one workspace.
func (b *Bus) TableInserts(table, workspaceID string, handler func(payload []byte)) port.Channel {
	return &broadcastChannel{
		bus:   b,
		topic: tableTopic(table, workspaceID),
		handler: func(_ string, payload []byte) {
			if handler != nil {
				handler(payload)
			}
		},
	}
}

// NotifyInsert publishes a row-insert notification for table subscribers.
func (b *Bus) NotifyInsert(ctx context.Context, table, workspaceID string, payload []byte) error {
	envelope := busEnvelope{Event: "insert", Payload: payload}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal insert notification: %w", err)
	}
	if err := b.rdb.Publish(ctx, tableTopic(table, workspaceID), data).Err(); err != nil {
		return fmt.Errorf("publish insert notification: %w", err)
	}
	return nil
}

type busEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type presenceEnvelope struct {
	Kind    string                 `json:"kind"` // sync, join, leave
	Entries []domain.PresenceEntry `json:"entries,omitempty"`
	UserIDs []string               `json:"user_ids,omitempty"`
}

type presenceChannel struct {
	bus         *Bus
	workspaceID string
	handlers    port.PresenceHandlers

	mu          sync.Mutex
	pubsub      *redis.PubSub
	trackedUser string
}

func (c *presenceChannel) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubsub != nil {
		return nil
	}

	pubsub := c.bus.rdb.Subscribe(ctx, presenceTopic(c.workspaceID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe presence channel: %w", err)
	}
	c.pubsub = pubsub

	go c.consume(pubsub.Channel())

	// Deliver the current member list so the subscriber starts from a full
	// state instead of an empty one.
	if entries, err := c.bus.readPresenceState(ctx, c.workspaceID); err != nil {
		c.bus.logger.Warn("read presence state failed",
			zap.String("workspace_id", c.workspaceID),
			zap.Error(err),
		)
	} else if c.handlers.OnSync != nil {
		c.handlers.OnSync(entries)
	}

	return nil
}

func (c *presenceChannel) consume(messages <-chan *redis.Message) {
	for msg := range messages {
		var envelope presenceEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			c.bus.logger.Warn("decode presence envelope failed", zap.Error(err))
			continue
		}

		switch envelope.Kind {
		case "sync":
			if c.handlers.OnSync != nil {
				c.handlers.OnSync(envelope.Entries)
			}
		case "join":
			if c.handlers.OnJoin != nil {
				c.handlers.OnJoin(envelope.Entries)
			}
		case "leave":
			if c.handlers.OnLeave != nil {
				c.handlers.OnLeave(envelope.UserIDs)
			}
		}
	}
}

// Track publishes this client's presence payload. A first-time track fans
// out as a join; updates fan out as a full sync so every subscriber
// converges on the hash state.
func (c *presenceChannel) Track(ctx context.Context, entry domain.PresenceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal presence entry: %w", err)
	}

	stateKey := presenceStateKey(c.workspaceID)
	added, err := c.bus.rdb.HSet(ctx, stateKey, entry.UserID, data).Result()
	if err != nil {
		return fmt.Errorf("store presence entry: %w", err)
	}
	_ = c.bus.rdb.Expire(ctx, stateKey, c.bus.presenceTTL).Err()

	c.mu.Lock()
	c.trackedUser = entry.UserID
	c.mu.Unlock()

	var envelope presenceEnvelope
	if added > 0 {
		envelope = presenceEnvelope{Kind: "join", Entries: []domain.PresenceEntry{entry}}
	} else {
		entries, err := c.bus.readPresenceState(ctx, c.workspaceID)
		if err != nil {
			return fmt.Errorf("read presence state: %w", err)
		}
		envelope = presenceEnvelope{Kind: "sync", Entries: entries}
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal presence envelope: %w", err)
	}
	if err := c.bus.rdb.Publish(ctx, presenceTopic(c.workspaceID), payload).Err(); err != nil {
		return fmt.Errorf("publish presence: %w", err)
	}
	return nil
}

func (c *presenceChannel) Send(_ context.Context, _ string, _ []byte) error {
	return nil
}

// Unsubscribe removes this client's tracked entry, announces the leave, and
// closes the subscription.
func (c *presenceChannel) Unsubscribe(ctx context.Context) error {
	c.mu.Lock()
	pubsub := c.pubsub
	tracked := c.trackedUser
	c.pubsub = nil
	c.trackedUser = ""
	c.mu.Unlock()

	if tracked != "" {
		if err := c.bus.rdb.HDel(ctx, presenceStateKey(c.workspaceID), tracked).Err(); err != nil {
			c.bus.logger.Warn("remove presence entry failed", zap.Error(err))
		}
		envelope := presenceEnvelope{Kind: "leave", UserIDs: []string{tracked}}
		if payload, err := json.Marshal(envelope); err == nil {
			_ = c.bus.rdb.Publish(ctx, presenceTopic(c.workspaceID), payload).Err()
		}
	}

	if pubsub == nil {
		return nil
	}
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("close presence subscription: %w", err)
	}
	return nil
}

func (b *Bus) readPresenceState(ctx context.Context, workspaceID string) ([]domain.PresenceEntry, error) {
	fields, err := b.rdb.HGetAll(ctx, presenceStateKey(workspaceID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.PresenceEntry, 0, len(fields))
	for _, raw := range fields {
		var entry domain.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			b.logger.Warn("decode presence entry failed", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type broadcastChannel struct {
	bus     *Bus
	topic   string
	handler port.BroadcastHandler

	mu     sync.Mutex
	pubsub *redis.PubSub
}

func (c *broadcastChannel) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubsub != nil {
		return nil
	}

	pubsub := c.bus.rdb.Subscribe(ctx, c.topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}
	c.pubsub = pubsub

	go c.consume(pubsub.Channel())
	return nil
}

func (c *broadcastChannel) consume(messages <-chan *redis.Message) {
	for msg := range messages {
		var envelope busEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			c.bus.logger.Warn("decode broadcast envelope failed",
				zap.String("topic", c.topic),
				zap.Error(err),
			)
			continue
		}
		if c.handler != nil {
			c.handler(envelope.Event, envelope.Payload)
		}
	}
}

func (c *broadcastChannel) Track(_ context.Context, _ domain.PresenceEntry) error {
	return nil
}

// Send publishes a named event to every subscriber of the topic, including
// the sender.
func (c *broadcastChannel) Send(ctx context.Context, event string, payload []byte) error {
	envelope := busEnvelope{Event: event, Payload: payload}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal broadcast envelope: %w", err)
	}
	if err := c.bus.rdb.Publish(ctx, c.topic, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", c.topic, err)
	}
	return nil
}

func (c *broadcastChannel) Unsubscribe(_ context.Context) error {
	c.mu.Lock()
	pubsub := c.pubsub
	c.pubsub = nil
	c.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("close subscription %s: %w", c.topic, err)
	}
	return nil
}

var (
	_ port.Bus            = (*Bus)(nil)
	_ port.InsertNotifier = (*Bus)(nil)
)
