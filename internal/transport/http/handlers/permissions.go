package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/http/middleware"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/usecase"
)

// PermissionsHandler serves the workspace permission evaluation API.
type PermissionsHandler struct {
	permissions *usecase.PermissionService
	logger      *zap.Logger
}

// NewPermissionsHandler constructs a permissions handler.
func NewPermissionsHandler(permissions *usecase.PermissionService, logger *zap.Logger) *PermissionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionsHandler{permissions: permissions, logger: logger}
}

// workspaceFromPath parses and validates the :type/:id path parameters.
func workspaceFromPath(c *gin.Context) (domain.WorkspaceRef, bool) {
	ref := domain.WorkspaceRef{
		Type: domain.WorkspaceType(c.Param("type")),
		ID:   c.Param("id"),
	}
	if !ref.Type.Valid() {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown workspace type"))
		return domain.WorkspaceRef{}, false
	}
	if ref.ID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "workspace id is required"))
		return domain.WorkspaceRef{}, false
	}
	return ref, true
}

func (h *PermissionsHandler) managerFor(c *gin.Context) (*usecase.PermissionManager, bool) {
	workspace, ok := workspaceFromPath(c)
	if !ok {
		return nil, false
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return nil, false
	}

	manager, err := h.permissions.ManagerFor(workspace, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return nil, false
	}
	return manager, true
}

// Check evaluates one permission question.
// POST /api/v1/workspaces/:type/:id/permissions/check
func (h *PermissionsHandler) Check(c *gin.Context) {
	manager, ok := h.managerFor(c)
	if !ok {
		return
	}

	var req PermissionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body: "+err.Error()))
		return
	}

	allowed := manager.HasPermission(c.Request.Context(), domain.PermissionCheck{
		Resource: req.Resource,
		Action:   req.Action,
		Context:  req.Context,
	})

	c.JSON(http.StatusOK, PermissionCheckResponse{Allowed: allowed})
}

// CheckBatch evaluates several permission questions in one round trip.
// POST /api/v1/workspaces/:type/:id/permissions/check-batch
func (h *PermissionsHandler) CheckBatch(c *gin.Context) {
	manager, ok := h.managerFor(c)
	if !ok {
		return
	}

	var req PermissionBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body: "+err.Error()))
		return
	}

	checks := make([]domain.PermissionCheck, 0, len(req.Checks))
	for _, item := range req.Checks {
		checks = append(checks, domain.PermissionCheck{
			Resource: item.Resource,
			Action:   item.Action,
			Context:  item.Context,
		})
	}

	c.JSON(http.StatusOK, PermissionBatchResponse{
		Results: manager.HasPermissions(c.Request.Context(), checks),
	})
}

// Role reports the principal's resolved role and static permission patterns.
// GET /api/v1/workspaces/:type/:id/role
func (h *PermissionsHandler) Role(c *gin.Context) {
	manager, ok := h.managerFor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	role, hasRole := manager.UserRole(ctx)

	c.JSON(http.StatusOK, RoleResponse{
		Role:        role,
		HasRole:     hasRole,
		Permissions: manager.AllPermissions(ctx),
	})
}

// Access answers a coarse access level question.
// GET /api/v1/workspaces/:type/:id/access?level=view|edit|admin
func (h *PermissionsHandler) Access(c *gin.Context) {
	manager, ok := h.managerFor(c)
	if !ok {
		return
	}

	level := usecase.AccessLevel(strings.ToLower(c.DefaultQuery("level", string(usecase.AccessView))))
	switch level {
	case usecase.AccessView, usecase.AccessEdit, usecase.AccessAdmin:
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "level must be one of view, edit, admin"))
		return
	}

	c.JSON(http.StatusOK, AccessResponse{
		Level:   string(level),
		Allowed: manager.HasWorkspaceAccess(c.Request.Context(), level),
	})
}
