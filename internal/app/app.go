// Package app wires configuration, storage and transport into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"skillsync/internal/auth"
	"skillsync/internal/config"
	"skillsync/internal/db"
	"skillsync/internal/handlers"
	"skillsync/internal/logging"
	"skillsync/internal/mailer"
	"skillsync/internal/middleware"
	"skillsync/internal/observability"
	"skillsync/internal/rabbitmq"
	"skillsync/internal/repositories"
	"skillsync/internal/services"
	"skillsync/internal/storage"
	"skillsync/internal/telemetry"
)

const (
	auditRoutingKey = "audit.logs"
	shutdownTimeout = 10 * time.Second
)

// App is a fully wired SkillSync server.
type App struct {
	cfg       config.Config
	logger    *zerolog.Logger
	store     repositories.Store
	publisher rabbitmq.Publisher
	tracing   func(context.Context) error
	router    *gin.Engine
}

// OpenStore connects the backend selected by STORE_DRIVER and prepares its
// schema or indexes.
func OpenStore(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (repositories.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return repositories.Store{}, err
		}
		if err := repositories.EnsureMongoIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
			_ = client.Disconnect(context.Background())
			return repositories.Store{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("mongo store ready")
		return repositories.NewMongoStore(client, cfg.MongoDatabase), nil

	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.DatabaseDSN)
		if err != nil {
			return repositories.Store{}, err
		}
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return repositories.Store{}, err
		}
		logger.Info().Msg("postgres store ready")
		return repositories.NewPostgresStore(database), nil

	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return repositories.NewMemoryStore(), nil
	}
	return repositories.Store{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// New wires every component. The caller owns Close.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, err
	}

	avatars, err := storage.NewAvatarStore(ctx, cfg.S3)
	if err != nil {
		_ = store.Close(context.Background())
		_ = shutdownTracing(context.Background())
		return nil, err
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	logger.Info().
		Str("publisher", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		publisher: publisher,
		tracing:   shutdownTracing,
	}
	a.router = a.buildRouter(avatars)
	return a, nil
}

func (a *App) buildRouter(avatars *storage.AvatarStore) *gin.Engine {
	cfg, logger := a.cfg, a.logger
	dev := cfg.IsDevelopment()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	events := telemetry.NewEventEmitter(a.publisher, logger)
	audit := telemetry.NewAuditEmitter(a.publisher, logger, auditRoutingKey, cfg.ServiceName, cfg.AppEnv)

	userOpts := []services.UserServiceOption{
		services.WithMailer(mailer.New(cfg.SMTP, logger)),
		services.WithPublicURL(cfg.PublicURL),
	}
	if avatars != nil {
		userOpts = append(userOpts, services.WithAvatarStore(avatars))
	}
	users := services.NewUserService(a.store.Users, tokens, events, logger, userOpts...)
	connections := services.NewConnectionService(a.store.Connections, a.store.Users, events, logger)
	messages := services.NewMessageService(a.store.Messages, a.store.Users, connections, events, logger)

	if !dev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(cfg.ServiceName),
		logging.RequestLogger(logger),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/metrics", observability.MetricsHandler())
	router.GET("/healthz", a.health)
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	handlers.API{
		Auth:        handlers.NewAuthHandler(users, audit, cfg.CookieSecure, logger, dev),
		Users:       handlers.NewUserHandler(users, logger, dev),
		Connections: handlers.NewConnectionHandler(connections, logger, dev),
		Messages:    handlers.NewMessageHandler(messages, logger, dev),
	}.Register(router.Group("/api"), middleware.RequireSession(tokens))

	router.NoRoute(middleware.PageGate(tokens, a.store.Users, cfg.StaticDir, logger))
	return router
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info().Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

// Close releases the store, the publisher and the tracer.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(
		a.store.Close(ctx),
		a.publisher.Close(),
		a.tracing(ctx),
	)
}
