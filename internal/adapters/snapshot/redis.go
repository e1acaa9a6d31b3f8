package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
	"github.com/repairlink/ui-gateway/internal/ports"
)

const (
	snapshotPrefix = "snapshot:"
	refreshPrefix  = "refresh:"

	// DefaultSnapshotTTL bounds how long an untouched snapshot survives.
	// Every Save resets the clock, so active sessions never expire here.
	DefaultSnapshotTTL = 24 * time.Hour

	// DefaultRefreshTokenTTL matches the backend's refresh token lifetime.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// RedisStore is a Redis-backed snapshot store for multi-replica deployments.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ ports.SnapshotStore = (*RedisStore)(nil)

// NewRedisStore creates a snapshot store with the default TTL.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return NewRedisStoreWithTTL(client, DefaultSnapshotTTL)
}

// NewRedisStoreWithTTL creates a snapshot store with a custom TTL.
// A non-positive ttl means snapshots never expire.
func NewRedisStoreWithTTL(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, id string, user domainauth.SessionUser) error {
	if id == "" {
		return errors.New("snapshot id cannot be empty")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, snapshotPrefix+id, data, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (domainauth.SessionUser, error) {
	if id == "" {
		return domainauth.SessionUser{}, ports.ErrSnapshotNotFound
	}

	data, err := s.client.Get(ctx, snapshotPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.SessionUser{}, ports.ErrSnapshotNotFound
		}
		return domainauth.SessionUser{}, fmt.Errorf("redis get: %w", err)
	}

	var user domainauth.SessionUser
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return domainauth.SessionUser{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return user, nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, snapshotPrefix+id).Err()
}

// RedisTokenCache stores one refresh token per session in Redis.
type RedisTokenCache struct {
	client redis.UniversalClient
	id     string
	ttl    time.Duration
}

var _ ports.TokenCache = (*RedisTokenCache)(nil)

// NewRedisTokenCache returns a cache bound to a single session id.
func NewRedisTokenCache(client redis.UniversalClient, id string) *RedisTokenCache {
	return &RedisTokenCache{client: client, id: id, ttl: DefaultRefreshTokenTTL}
}

func (c *RedisTokenCache) SaveRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("refresh token cannot be empty")
	}
	return c.client.Set(ctx, refreshPrefix+c.id, token, c.ttl).Err()
}

func (c *RedisTokenCache) RefreshToken(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, refreshPrefix+c.id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrNoRefreshToken
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	if token == "" {
		return "", ports.ErrNoRefreshToken
	}
	return token, nil
}

func (c *RedisTokenCache) ClearRefreshToken(ctx context.Context) error {
	return c.client.Del(ctx, refreshPrefix+c.id).Err()
}
