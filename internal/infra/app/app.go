package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/config"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/database"
	kafkainfra "github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/kafka"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/logger"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/realtime"
	redisinfra "github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/redis"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/security"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/infra/telemetry"
	postgresrepo "github.com/momah-innovation/saudi-innovate-flow-sub014/internal/repository/postgres"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/http/routes"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/transport/ws"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	bus := realtime.NewBus(redisClient.Client(), cfg.Redis.PresenceTTL, log)

	repos := postgresrepo.NewRepositories(pool, log)
	repos.Activities.WithNotifier(bus)

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	verifier, err := security.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	permissionMetrics, err := telemetry.NewPermissionMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Warn("permission metrics registration failed", zap.Error(err))
	}

	permissionService := usecase.NewPermissionService(
		domain.DefaultRoleTable(),
		repos.Memberships,
		repos.Capabilities,
		log,
	)
	if permissionMetrics != nil {
		permissionService.WithMetrics(permissionMetrics).WithSecurityMetrics(permissionMetrics)
	}

	activityService := usecase.NewActivityService(repos.Activities, bus, eventPublisher, log)

	realtimeHandler := ws.NewHandler(
		permissionService,
		activityService,
		bus,
		eventPublisher,
		cfg.Realtime.MaxMessages,
		cfg.Realtime.MaxActivities,
		log,
	)

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Verifier: verifier,
		Realtime: realtimeHandler,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Permissions: permissionService,
			Activities:  activityService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracer:   tracer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting workspace API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
