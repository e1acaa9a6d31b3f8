package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/repairlink/ui-gateway/config"
	httpx "github.com/repairlink/ui-gateway/internal/http"
	"github.com/repairlink/ui-gateway/internal/session"
)

// HTTPServerConfig contains configuration for the gateway HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Manager *session.Manager
	Logger  *slog.Logger
}

// StartHTTPServer builds the router and starts the gateway HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, fmt.Errorf("server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	target, err := url.Parse(cfg.Config.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Manager: cfg.Manager,
		Backend: httpx.NewBackendProxy(target, logger),
		Logger:  logger,
	})

	h := httpx.Logging(logger)(router)
	h = httpx.Recover(logger)(h)

	return startServer(logger, h, cfg.Config.HTTP.Addr), nil
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Manager *session.Manager
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server and closes all
// session stores.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Manager != nil {
		cfg.Manager.Close()
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
