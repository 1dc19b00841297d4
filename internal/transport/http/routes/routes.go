package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/config"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/security"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/http/handlers"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/http/middleware"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/ws"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Permissions *usecase.PermissionService
	Activities  *usecase.ActivityService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Verifier *security.TokenVerifier
	Realtime *ws.Handler
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Namespace: "workspace"}); err != nil {
		deps.Logger.Warn("http metrics registration failed", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Verifier)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(authMiddleware)
	{
		workspaceGroup := api.Group("/workspaces/:type/:id")

		permissionsHandler := handlers.NewPermissionsHandler(deps.Services.Permissions, deps.Logger)
		workspaceGroup.POST("/permissions/check", permissionsHandler.Check)
		workspaceGroup.POST("/permissions/check-batch", permissionsHandler.CheckBatch)
		workspaceGroup.GET("/role", permissionsHandler.Role)
		workspaceGroup.GET("/access", permissionsHandler.Access)

		activitiesHandler := handlers.NewActivitiesHandler(deps.Services.Activities, deps.Services.Permissions, deps.Logger)
		workspaceGroup.POST("/activities", activitiesHandler.Create)
		workspaceGroup.GET("/activities", activitiesHandler.List)

		if deps.Realtime != nil {
			workspaceGroup.GET("/ws", deps.Realtime.Serve)
		}
	}

	return r
}
