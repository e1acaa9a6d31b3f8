// Package testutil holds shared helpers for tests that need live
// infrastructure. Redis- and Postgres-backed tests skip when the backing
// service is unavailable unless TEST_REQUIRE_INFRA is set.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/repairlink/ui-gateway/internal/migrate"
)

// TestingTB covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...interface{})
	Skipf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetTestRedisAddr returns the Redis address tests should use and whether
// something answered there. REDIS_ADDR wins when set; otherwise the usual
// CI and local addresses are probed in order.
func GetTestRedisAddr(t TestingTB) (string, bool) {
	t.Helper()

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr, probeRedis(t, addr)
	}

	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	for _, addr := range candidates[:len(candidates)-1] {
		if probeRedis(t, addr) {
			return addr, true
		}
	}
	last := candidates[len(candidates)-1]
	return last, probeRedis(t, last)
}

func probeRedis(t TestingTB, addr string) bool {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("redis not answering at %s: %v", addr, err)
		return false
	}
	return true
}

// SetupTestRedis hands out a Redis client on a throwaway DB, flushed before
// use. Tests skip when no Redis answers, or fail when infra is required.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := GetTestRedisAddr(t)
	if !ok {
		if requireRedis() {
			t.Fatal("redis not available for testing")
		}
		t.Skip("redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: testRedisDB()})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if requireRedis() {
			t.Fatalf("redis not available for testing at %s: %v", addr, err)
		}
		t.Skipf("redis not available for testing at %s: %v", addr, err)
	}

	client.FlushDB(ctx)
	return client
}

func testRedisDB() int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil && i >= 0 {
			return i
		}
	}
	return 1
}

// TestDBConfig holds connection settings for the test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig returns the local test database defaults. CI sets
// TEST_DB_PORT explicitly.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "55432"),
		User:     envOr("TEST_DB_USER", "repairlink"),
		Password: envOr("TEST_DB_PASSWORD", "repairlink"),
		DBName:   envOr("TEST_DB_NAME", "repairlink"),
	}
}

func (c TestDBConfig) dsn() string {
	hostPort := net.JoinHostPort(c.Host, c.Port)
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		c.User, c.Password, hostPort, c.DBName)
}

// SetupTestPool connects to the test database, applies migrations, and wipes
// user rows. Tests skip when the database is not reachable, or fail when
// infra is required. The pool closes with the test.
func SetupTestPool(t TestingTB) *pgxpool.Pool {
	t.Helper()

	cfg := DefaultTestDBConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		if requireDB() {
			t.Fatal("test database not available:", err)
		}
		t.Skip("test database not available:", err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		if requireDB() {
			t.Fatal("test database not available:", pingErr)
		}
		t.Skip("test database not available:", pingErr)
	}

	if migrateErr := migrate.Run(ctx, pool); migrateErr != nil {
		pool.Close()
		t.Fatal("failed to run migrations:", migrateErr)
	}

	if _, err := pool.Exec(ctx, "DELETE FROM users"); err != nil {
		pool.Close()
		t.Fatalf("failed to clean up users table: %v", err)
	}

	if tc, ok := any(t).(interface{ Cleanup(func()) }); ok {
		tc.Cleanup(pool.Close)
	}
	return pool
}

// FixedTimeFunc returns a clock pinned at t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// TestTime returns the fixed instant used by tests that pin the clock.
func TestTime() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}
