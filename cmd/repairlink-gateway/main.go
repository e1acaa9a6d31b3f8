package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/repairlink/ui-gateway/config"
	"github.com/repairlink/ui-gateway/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting repairlink gateway",
		"addr", cfg.HTTP.Addr,
		"backend", cfg.Backend.BaseURL,
		"snapshot_mode", cfg.Snapshot.Mode,
		"dev", cfg.IsDev)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient redis.UniversalClient
	if cfg.Snapshot.Mode == config.SnapshotModeRedis {
		redisClient, err = bootstrap.ConnectRedis(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	manager, err := bootstrap.BuildSessionManager(bootstrap.SessionDeps{
		Config: &cfg,
		Redis:  redisClient,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	go manager.RunReaper(ctx, cfg.Session.ReapInterval)

	server, err := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config:  &cfg,
		Manager: manager,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	return bootstrap.ShutdownHTTPServer(bootstrap.ShutdownConfig{
		Context: context.Background(),
		Server:  server,
		Manager: manager,
		Logger:  logger,
	})
}
