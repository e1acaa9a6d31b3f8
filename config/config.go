package config

import (
	"os"
	"strings"
)

// AppConfig is the gateway's configuration, composed from domain-specific
// files in this package.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// the available variables:
//   - http.go: HTTP server configuration
//   - session.go: session store and manager tuning
//   - backend.go: upstream backend configuration
//   - snapshot.go: snapshot persistence configuration
//   - database.go: Postgres and Redis connections (dev backend, redis snapshots)
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	HTTP     HTTPConfig
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Backend  BackendConfig  `envPrefix:"BACKEND_"`
	Snapshot SnapshotConfig `envPrefix:"SNAPSHOT_"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	DevBackend DevBackendConfig `envPrefix:"DEV_BACKEND_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// It should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Session.Sanitize()
	c.Backend.Sanitize()
	c.Snapshot.Sanitize()
	c.DevBackend.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
