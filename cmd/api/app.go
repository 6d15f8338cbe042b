package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/staff-service/internal/api/http"
	"github.com/spec-kit/staff-service/internal/api/http/handlers"
	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/discord"
	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/gameserver"
	"github.com/spec-kit/staff-service/internal/observability"
	"github.com/spec-kit/staff-service/internal/persistence"
	"github.com/spec-kit/staff-service/internal/repository"
	"github.com/spec-kit/staff-service/internal/repository/memstore"
	"github.com/spec-kit/staff-service/internal/service"
)

// runtime holds the long-lived dependencies shared by every command.
type runtime struct {
	pg       *persistence.Postgres
	redis    *persistence.Redis
	repos    *repository.Repositories
	sessions auth.SessionStore
	runner   events.Runner
	metrics  *observability.Metrics
	services *service.Services
	verifier *discord.Verifier
}

// bootstrap connects storage and builds the service graph. With inline set, outbox
// intents are delivered synchronously, which suits one-shot commands.
func bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger, inline bool) (*runtime, error) {
	rt := &runtime{}
	if cfg.Metrics.Enabled {
		rt.metrics = observability.NewMetrics()
	}

	if cfg.Postgres.DSN != "" {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.pg = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				rt.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		rt.repos = repository.NewPostgres(pg.PoolHandle())
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory storage")
		rt.repos = memstore.New().Repositories()
	}

	useAsynq := !inline && cfg.Outbox.Driver == "asynq"
	if cfg.Auth.SessionBackend != "memory" || useAsynq {
		rt.redis = persistence.NewRedis(cfg.Redis, logger)
	}

	if cfg.Auth.SessionBackend == "memory" {
		rt.sessions = auth.NewMemorySessionStore(cfg.Auth.SessionTTL)
	} else {
		rt.sessions = auth.NewRedisSessionStore(rt.redis.Client, rt.redis.Key("session"), cfg.Auth.SessionTTL)
	}

	observer := func(eventType events.EventType, _ int, err error) {
		rt.metrics.RecordDelivery(string(eventType), err)
	}
	var dispatcher events.Dispatcher
	switch {
	case inline:
		dispatcher = events.NewSyncDispatcher(logger)
	case useAsynq:
		runner := events.NewAsynqDispatcher(rt.redis.Client, events.AsynqOptions{
			Concurrency: cfg.Outbox.Workers,
			MaxAttempts: cfg.Outbox.MaxAttempts,
			Observer:    observer,
		}, logger)
		rt.runner, dispatcher = runner, runner
	default:
		runner := events.NewAsyncDispatcher(events.AsyncOptions{
			Workers:     cfg.Outbox.Workers,
			BufferSize:  cfg.Outbox.BufferSize,
			MaxAttempts: cfg.Outbox.MaxAttempts,
			Observer:    observer,
		}, logger)
		rt.runner, dispatcher = runner, runner
	}

	var commands service.CommandSink = gameserver.NewLogSink(logger)
	if cfg.GameServer.CommandURL != "" {
		commands = gameserver.NewHTTPSink(cfg.GameServer)
	}

	if cfg.Discord.PublicKey != "" {
		verifier, err := discord.NewVerifier(cfg.Discord.PublicKey)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("discord public key: %w", err)
		}
		rt.verifier = verifier
	}

	bot := discord.NewClient(cfg.Discord)
	rt.services = service.New(service.Dependencies{
		Config:     *cfg,
		Repos:      rt.repos,
		Sessions:   rt.sessions,
		Identity:   discord.NewIdentityProvider(cfg.Discord),
		Notifier:   bot,
		Grantor:    bot,
		Commands:   commands,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	return rt, nil
}

// Close releases storage connections.
func (rt *runtime) Close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	if rt.pg != nil {
		rt.pg.Close()
	}
}

func (rt *runtime) healthDeps() map[string]handlers.Pinger {
	deps := map[string]handlers.Pinger{}
	if rt.pg != nil {
		deps["postgres"] = rt.pg
	}
	if rt.redis != nil {
		deps["redis"] = rt.redis
	}
	return deps
}

func newHTTPApp(cfg *config.Config, rt *runtime, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, rt.metrics),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:      logger,
		Metrics:     rt.metrics,
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})

	svc := rt.services
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, rt.healthDeps()),
		Auth: handlers.NewAuthHandler(svc.Auth, handlers.CookieConfig{
			Name:        cfg.Auth.CookieName,
			Secure:      cfg.Auth.CookieSecure,
			TTL:         cfg.Auth.SessionTTL,
			FrontendURL: cfg.App.FrontendURL,
		}),
		Accounts:       handlers.NewAccountsHandler(svc.Accounts),
		Applications:   handlers.NewApplicationsHandler(svc.Applications),
		Reports:        handlers.NewReportsHandler(svc.Reports),
		Teams:          handlers.NewTeamsHandler(svc.Teams),
		Staff:          handlers.NewStaffHandler(svc.Lifecycle, svc.Teams),
		Approvals:      handlers.NewApprovalsHandler(svc.Approvals, rt.verifier, logger),
		Stats:          handlers.NewStatsHandler(svc.Stats),
		AuthMiddleware: auth.NewAuthMiddleware(cfg.Auth.CookieName, rt.sessions, rt.repos.Accounts, rt.repos.Teams),
		Metrics:        rt.metrics,
	})
	return app
}
