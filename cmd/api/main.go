package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/observability"
	"github.com/spec-kit/staff-service/internal/persistence"
	"github.com/spec-kit/staff-service/internal/worker"
)

var rootCmd = &cobra.Command{
	Use:   "staff-service",
	Short: "staff management backend for the community panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP API with the outbox worker and probation sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "apply SQL migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrate(cmd.Context())
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "run one probation sweep and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweepOnce(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	return cfg, logger
}

func serve(parent context.Context) error {
	cfg, logger := setup()
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := bootstrap(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("bootstrap failed", zap.Error(err))
		return err
	}
	defer rt.Close()

	notifications := worker.NewNotificationWorker(rt.services.Notifications, rt.runner, logger)
	if err := notifications.Start(); err != nil {
		logger.Error("failed to start outbox", zap.Error(err))
		return err
	}

	sweeper := worker.NewProbationSweeper(rt.services.Lifecycle, rt.metrics, cfg.Lifecycle.SweepInterval, logger)
	sweeper.Start(ctx)

	app := newHTTPApp(cfg, rt, logger)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	_ = app.ShutdownWithContext(shutdownCtx)
	sweeper.Stop()
	_ = notifications.Stop(shutdownCtx)
	return nil
}

func migrate(ctx context.Context) error {
	cfg, logger := setup()
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
		logger.Error("failed to run migrations", zap.Error(err))
		return err
	}
	return nil
}

func sweepOnce(ctx context.Context) error {
	cfg, logger := setup()
	defer logger.Sync() //nolint:errcheck

	rt, err := bootstrap(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("bootstrap failed", zap.Error(err))
		return err
	}
	defer rt.Close()
	rt.services.Notifications.RegisterHandlers()

	sweeper := worker.NewProbationSweeper(rt.services.Lifecycle, rt.metrics, cfg.Lifecycle.SweepInterval, logger)
	result := sweeper.RunOnce(ctx)
	if result.Failed > 0 {
		logger.Warn("sweep finished with failures", zap.Int("failed", result.Failed))
	}
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
