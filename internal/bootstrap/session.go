package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/repairlink/ui-gateway/config"
	"github.com/repairlink/ui-gateway/internal/adapters/backend"
	"github.com/repairlink/ui-gateway/internal/adapters/snapshot"
	"github.com/repairlink/ui-gateway/internal/ports"
	"github.com/repairlink/ui-gateway/internal/session"
)

// SessionDeps groups the dependencies for BuildSessionManager.
type SessionDeps struct {
	Config *config.AppConfig
	// Redis is required when the snapshot mode is redis.
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// BuildSessionManager wires the session manager: snapshot persistence and a
// per-session backend client sharing one token cache.
func BuildSessionManager(deps SessionDeps) (*session.Manager, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	snapshots, newTokenCache, err := buildSnapshotLayer(cfg, deps.Redis, logger)
	if err != nil {
		return nil, err
	}

	newAPI := func(_ string, tokens ports.TokenCache) (ports.AuthAPI, error) {
		return backend.NewClient(backend.ClientOptions{
			BaseURL: cfg.Backend.BaseURL,
			Tokens:  tokens,
			Timeout: cfg.Backend.Timeout,
			Logger:  logger,
		})
	}

	return session.NewManager(session.ManagerOptions{
		NewTokenCache: newTokenCache,
		NewAPI:        newAPI,
		Snapshots:     snapshots,
		IdleTimeout:   cfg.Session.IdleTimeout,
		Config: session.Config{
			CheckThrottle:   cfg.Session.CheckThrottle,
			RevalidateEvery: cfg.Session.RevalidateEvery,
		},
		Logger: logger,
	})
}

func buildSnapshotLayer(
	cfg *config.AppConfig,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) (ports.SnapshotStore, func(id string) ports.TokenCache, error) {
	switch cfg.Snapshot.Mode {
	case config.SnapshotModeRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("snapshot mode %q requires a redis connection", cfg.Snapshot.Mode)
		}
		store := snapshot.NewRedisStoreWithTTL(redisClient, cfg.Snapshot.TTL)
		newTokenCache := func(id string) ports.TokenCache {
			return snapshot.NewRedisTokenCache(redisClient, id)
		}
		return store, newTokenCache, nil

	case config.SnapshotModeFile, "":
		store, err := snapshot.NewFileStore(cfg.Snapshot.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot dir: %w", err)
		}
		newTokenCache := func(id string) ports.TokenCache {
			cache, cacheErr := snapshot.NewFileTokenCache(cfg.Snapshot.Dir, id)
			if cacheErr != nil {
				// Sessions degrade to no silent refresh rather than failing.
				logger.Warn("token cache unavailable", "session_id", id, "error", cacheErr)
				return nil
			}
			return cache
		}
		return store, newTokenCache, nil

	default:
		return nil, nil, fmt.Errorf("unknown snapshot mode %q", cfg.Snapshot.Mode)
	}
}
