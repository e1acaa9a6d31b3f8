package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairlink/ui-gateway/internal/ports"
	"github.com/repairlink/ui-gateway/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	user := testUser()
	require.NoError(t, store.Save(ctx, "test-sess-1", user))

	loaded, err := store.Load(ctx, "test-sess-1")
	require.NoError(t, err)
	assert.Equal(t, user, loaded)
}

func TestRedisStore_LoadMissing(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRedisStore(client)

	_, err := store.Load(context.Background(), "non-existent")
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
}

func TestRedisStore_Clear(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "test-sess-clear", testUser()))
	require.NoError(t, store.Clear(ctx, "test-sess-clear"))

	_, err := store.Load(ctx, "test-sess-clear")
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRedisStoreWithTTL(client, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "test-sess-ttl", testUser()))

	time.Sleep(200 * time.Millisecond)

	_, err := store.Load(ctx, "test-sess-ttl")
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "test-prefix", testUser()))

	exists := client.Exists(ctx, "snapshot:test-prefix").Val()
	assert.Equal(t, int64(1), exists)
}

func TestRedisStore_EmptyID(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	require.Error(t, store.Save(ctx, "", testUser()))

	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)

	assert.NoError(t, store.Clear(ctx, ""))
}

func TestRedisTokenCache_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	cache := NewRedisTokenCache(client, "test-sess-1")
	ctx := context.Background()

	_, err := cache.RefreshToken(ctx)
	assert.ErrorIs(t, err, ports.ErrNoRefreshToken)

	require.NoError(t, cache.SaveRefreshToken(ctx, "refresh-1"))

	token, err := cache.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", token)

	require.NoError(t, cache.ClearRefreshToken(ctx))
	_, err = cache.RefreshToken(ctx)
	assert.ErrorIs(t, err, ports.ErrNoRefreshToken)
}

func TestRedisTokenCache_IsolatedPerSession(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	first := NewRedisTokenCache(client, "test-sess-1")
	second := NewRedisTokenCache(client, "test-sess-2")

	require.NoError(t, first.SaveRefreshToken(ctx, "token-1"))

	_, err := second.RefreshToken(ctx)
	assert.ErrorIs(t, err, ports.ErrNoRefreshToken)
}
