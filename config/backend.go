package config

import "time"

// BackendConfig points the gateway at the RepairLink backend.
type BackendConfig struct {
	// BaseURL is the backend's base URL for auth calls and proxied traffic.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:9090"`

	// Timeout bounds each backend auth call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	if b.Timeout <= 0 {
		b.Timeout = 10 * time.Second
	}
}
