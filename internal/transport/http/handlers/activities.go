package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/http/middleware"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/usecase"
)

const defaultActivityPageSize = 50

// ActivitiesHandler serves the workspace activity feed API.
type ActivitiesHandler struct {
	activities  *usecase.ActivityService
	permissions *usecase.PermissionService
	logger      *zap.Logger
}

// NewActivitiesHandler constructs an activities handler.
func NewActivitiesHandler(activities *usecase.ActivityService, permissions *usecase.PermissionService, logger *zap.Logger) *ActivitiesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivitiesHandler{activities: activities, permissions: permissions, logger: logger}
}

func (h *ActivitiesHandler) authorize(c *gin.Context, level usecase.AccessLevel) (domain.WorkspaceRef, string, bool) {
	workspace, ok := workspaceFromPath(c)
	if !ok {
		return domain.WorkspaceRef{}, "", false
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return domain.WorkspaceRef{}, "", false
	}

	manager, err := h.permissions.ManagerFor(workspace, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return domain.WorkspaceRef{}, "", false
	}

	if !manager.HasWorkspaceAccess(c.Request.Context(), level) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "insufficient workspace access"))
		return domain.WorkspaceRef{}, "", false
	}

	return workspace, userID, true
}

// Create records one activity entry and broadcasts it to the workspace.
// POST /api/v1/workspaces/:type/:id/activities
func (h *ActivitiesHandler) Create(c *gin.Context) {
	workspace, userID, ok := h.authorize(c, usecase.AccessEdit)
	if !ok {
		return
	}

	var req ActivityCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body: "+err.Error()))
		return
	}

	actor := usecase.Actor{
		ID:   userID,
		Name: middleware.GetAuthenticatedUserName(c),
	}

	activity := h.activities.Record(c.Request.Context(), workspace.ID, actor,
		req.Type, req.Description, req.EntityType, req.EntityID, req.Metadata)

	c.JSON(http.StatusCreated, toActivityView(activity))
}

// List returns the newest persisted activities for the workspace.
// GET /api/v1/workspaces/:type/:id/activities?limit=N
func (h *ActivitiesHandler) List(c *gin.Context) {
	workspace, _, ok := h.authorize(c, usecase.AccessView)
	if !ok {
		return
	}

	limit := defaultActivityPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	activities, err := h.activities.Recent(c.Request.Context(), workspace.ID, limit)
	if err != nil {
		h.logger.Error("list activities failed",
			zap.String("workspace_id", workspace.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list activities"))
		return
	}

	views := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		views = append(views, toActivityView(activity))
	}

	c.JSON(http.StatusOK, ActivityListResponse{Activities: views})
}

func toActivityView(activity domain.ActivityEvent) ActivityView {
	return ActivityView{
		ID:          activity.ID,
		WorkspaceID: activity.WorkspaceID,
		Type:        activity.Type,
		Description: activity.Description,
		UserID:      activity.UserID,
		UserName:    activity.UserName,
		EntityType:  activity.EntityType,
		EntityID:    activity.EntityID,
		Timestamp:   activity.Timestamp,
		Metadata:    activity.Metadata,
		Persisted:   activity.Persisted,
	}
}
