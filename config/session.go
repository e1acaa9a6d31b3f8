package config

import "time"

// SessionConfig tunes the per-browser session stores and their manager.
type SessionConfig struct {
	// CheckThrottle is the minimum gap between auth status checks per
	// session. Repeat checks inside the window reuse the cached answer.
	CheckThrottle time.Duration `env:"CHECK_THROTTLE" envDefault:"5s"`

	// RevalidateEvery is the background revalidation cadence while a user
	// is signed in.
	RevalidateEvery time.Duration `env:"REVALIDATE_EVERY" envDefault:"4m"`

	// IdleTimeout is how long a session store may go untouched before the
	// reaper closes it.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"30m"`

	// ReapInterval is how often idle stores are swept.
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.CheckThrottle <= 0 {
		s.CheckThrottle = 5 * time.Second
	}
	if s.RevalidateEvery <= 0 {
		s.RevalidateEvery = 4 * time.Minute
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = 30 * time.Minute
	}
	if s.ReapInterval <= 0 {
		s.ReapInterval = 5 * time.Minute
	}
}
