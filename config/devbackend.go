package config

import "time"

// DevBackendConfig configures the development auth backend.
type DevBackendConfig struct {
	// Addr is the address to bind the dev backend to.
	Addr string `env:"ADDR" envDefault:":9090"`

	// JWTSecret signs access tokens. The default is for local use only.
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-only-secret"`

	// AccessTokenTTL is the lifetime of the access token cookie.
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	// RefreshTokenTTL is the lifetime of issued refresh tokens.
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

// Sanitize applies guardrails to dev backend configuration values.
func (d *DevBackendConfig) Sanitize() {
	if d.AccessTokenTTL <= 0 {
		d.AccessTokenTTL = 15 * time.Minute
	}
	if d.RefreshTokenTTL <= 0 {
		d.RefreshTokenTTL = 168 * time.Hour
	}
}
