// Command repairlink-backend runs the development stand-in for the
// RepairLink backend's auth endpoints. It is not the production backend.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/repairlink/ui-gateway/internal/bootstrap"
	"github.com/repairlink/ui-gateway/internal/devbackend"
	httpx "github.com/repairlink/ui-gateway/internal/http"
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

	logger.InfoContext(ctx, "starting repairlink dev backend",
		"addr", cfg.DevBackend.Addr,
		"db_host", cfg.Postgres.Host,
		"db_name", cfg.Postgres.Name)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectPool(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, pool, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	srv, err := devbackend.NewServer(devbackend.ServerOptions{
		Users:          devbackend.NewPGUserRepository(pool),
		AccessTokens:   devbackend.NewJWTManager(cfg.DevBackend.JWTSecret, cfg.DevBackend.AccessTokenTTL),
		RefreshTokens:  devbackend.NewRefreshTokenStore(cfg.DevBackend.RefreshTokenTTL),
		AccessTokenTTL: cfg.DevBackend.AccessTokenTTL,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	h := httpx.Logging(logger)(srv.Routes())
	h = httpx.Recover(logger)(h)

	server := &http.Server{
		Addr:         cfg.DevBackend.Addr,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", serveErr)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
