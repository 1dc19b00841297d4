package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/http/middleware"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/usecase"
)

const (
	pongWait       = 60 * time.Second
	maxMessageSize = 32 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientCommand is the inbound wire format.
type clientCommand struct {
	Action      string            `json:"action"`
	Status      string            `json:"status,omitempty"`
	Content     string            `json:"content,omitempty"`
	MessageType string            `json:"message_type,omitempty"`
	Type        string            `json:"type,omitempty"`
	Description string            `json:"description,omitempty"`
	EntityType  string            `json:"entity_type,omitempty"`
	EntityID    string            `json:"entity_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// stateSnapshot is the outbound wire format: the full live view of the
// workspace after any change.
type stateSnapshot struct {
	Event       string                 `json:"event"`
	State       usecase.ChannelState   `json:"state"`
	OnlineUsers []domain.PresenceEntry `json:"online_users"`
	Messages    []domain.Message       `json:"messages"`
	Activities  []domain.ActivityEvent `json:"activities"`
}

// Handler upgrades workspace realtime sessions onto websockets. Each socket
// owns one WorkspaceChannel; inbound commands drive presence, messaging, and
// the activity feed, and every state change is pushed back as a snapshot.
type Handler struct {
	permissions *usecase.PermissionService
	activity    *usecase.ActivityService
	bus         port.Bus
	events      port.EventPublisher
	logger      *zap.Logger

	maxMessages   int
	maxActivities int
}

// NewHandler constructs a websocket handler.
func NewHandler(
	permissions *usecase.PermissionService,
	activity *usecase.ActivityService,
	bus port.Bus,
	events port.EventPublisher,
	maxMessages, maxActivities int,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		permissions:   permissions,
		activity:      activity,
		bus:           bus,
		events:        events,
		logger:        logger,
		maxMessages:   maxMessages,
		maxActivities: maxActivities,
	}
}

// Serve handles GET /api/v1/workspaces/:type/:id/ws.
func (h *Handler) Serve(c *gin.Context) {
	workspace := domain.WorkspaceRef{
		Type: domain.WorkspaceType(c.Param("type")),
		ID:   c.Param("id"),
	}
	if !workspace.Type.Valid() || workspace.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace reference"})
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	userName := middleware.GetAuthenticatedUserName(c)

	manager, err := h.permissions.ManagerFor(workspace, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !manager.HasWorkspaceAccess(c.Request.Context(), usecase.AccessView) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient workspace access"})
		return
	}

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("workspace_id", workspace.ID),
			zap.Error(err),
		)
		return
	}

	conn := NewConnection(userID, socket)
	conn.Start()

	channel, err := usecase.NewWorkspaceChannel(workspace.ID, userID, userName, h.bus, h.activity, h.events, h.logger)
	if err != nil {
		h.logger.Warn("workspace channel init failed", zap.Error(err))
		conn.Close(websocket.CloseInternalServerErr, "channel init failed")
		return
	}
	channel.WithLimits(h.maxMessages, h.maxActivities)
	channel.WithListener(func() { h.pushSnapshot(conn, channel) })

	ctx := c.Request.Context()
	channel.Connect(ctx)
	channel.UpdatePresence(ctx, domain.PresenceOnline, nil)
	h.pushSnapshot(conn, channel)

	h.readLoop(c, conn, channel)
}

func (h *Handler) readLoop(c *gin.Context, conn *Connection, channel *usecase.WorkspaceChannel) {
	ctx := c.Request.Context()
	socket := conn.ws

	socket.SetReadLimit(maxMessageSize)
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	defer func() {
		channel.UpdatePresence(ctx, domain.PresenceOffline, nil)
		channel.Disconnect(ctx)
		conn.Close(websocket.CloseNormalClosure, "session ended")
	}()

	for {
		_, payload, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.logger.Warn("decode client command failed", zap.Error(err))
			continue
		}

		switch cmd.Action {
		case "presence":
			channel.UpdatePresence(ctx, domain.PresenceStatus(cmd.Status), cmd.Metadata)
		case "message":
			channel.SendMessage(ctx, cmd.Content, domain.MessageType(cmd.MessageType), cmd.Metadata)
		case "activity":
			channel.AddActivity(ctx, cmd.Type, cmd.Description, cmd.EntityType, cmd.EntityID)
		case "reconnect":
			channel.Reconnect(ctx)
			h.pushSnapshot(conn, channel)
		default:
			h.logger.Warn("unknown client command", zap.String("action", cmd.Action))
		}
	}
}

func (h *Handler) pushSnapshot(conn *Connection, channel *usecase.WorkspaceChannel) {
	snapshot := stateSnapshot{
		Event:       "state",
		State:       channel.State(),
		OnlineUsers: channel.OnlineUsers(),
		Messages:    channel.Messages(),
		Activities:  channel.Activities(),
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Warn("marshal snapshot failed", zap.Error(err))
		return
	}
	if err := conn.Send(payload); err != nil {
		h.logger.Debug("snapshot delivery failed", zap.Error(err))
	}
}
