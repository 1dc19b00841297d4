package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// PermissionCheckRequest defines the payload for a single permission check.
type PermissionCheckRequest struct {
	Resource string            `json:"resource" binding:"required"`
	Action   string            `json:"action" binding:"required"`
	Context  map[string]string `json:"context,omitempty"`
}

// PermissionCheckResponse reports one decision.
type PermissionCheckResponse struct {
	Allowed bool `json:"allowed"`
}

// PermissionBatchRequest defines the payload for a batch permission check.
type PermissionBatchRequest struct {
	Checks []PermissionCheckRequest `json:"checks" binding:"required,min=1"`
}

// PermissionBatchResponse maps check keys to decisions.
type PermissionBatchResponse struct {
	Results map[string]bool `json:"results"`
}

// RoleResponse reports the resolved role and its static permission patterns.
type RoleResponse struct {
	Role        string   `json:"role,omitempty"`
	HasRole     bool     `json:"has_role"`
	Permissions []string `json:"permissions"`
}

// AccessResponse reports coarse workspace access for one level.
type AccessResponse struct {
	Level   string `json:"level"`
	Allowed bool   `json:"allowed"`
}

// ActivityCreateRequest defines the payload for recording an activity.
type ActivityCreateRequest struct {
	Type        string            `json:"type" binding:"required"`
	Description string            `json:"description" binding:"required"`
	EntityType  string            `json:"entity_type,omitempty"`
	EntityID    string            `json:"entity_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ActivityView is the API projection of one activity entry.
type ActivityView struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspace_id"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	UserID      string            `json:"user_id"`
	UserName    string            `json:"user_name,omitempty"`
	EntityType  string            `json:"entity_type,omitempty"`
	EntityID    string            `json:"entity_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Persisted   bool              `json:"persisted"`
}

// ActivityListResponse wraps a page of activities.
type ActivityListResponse struct {
	Activities []ActivityView `json:"activities"`
}
