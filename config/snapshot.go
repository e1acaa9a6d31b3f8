package config

import (
	"fmt"
	"strings"
	"time"
)

// SnapshotMode selects the snapshot persistence backend.
type SnapshotMode string

const (
	// SnapshotModeFile keeps snapshots on local disk (single-node).
	SnapshotModeFile SnapshotMode = "file"
	// SnapshotModeRedis keeps snapshots in Redis (multi-replica).
	SnapshotModeRedis SnapshotMode = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SnapshotMode.
func (m *SnapshotMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "file", "redis":
		*m = SnapshotMode(v)
		return nil
	default:
		return fmt.Errorf("invalid SnapshotMode: %q (valid options: file, redis)", v)
	}
}

// SnapshotConfig controls where session snapshots and refresh tokens live.
type SnapshotConfig struct {
	Mode SnapshotMode `env:"MODE" envDefault:"file"`

	// Dir is the snapshot directory (Mode=file).
	Dir string `env:"DIR" envDefault:"./data/snapshots"`

	// TTL bounds how long an untouched snapshot survives (Mode=redis).
	TTL time.Duration `env:"TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to snapshot configuration values.
func (s *SnapshotConfig) Sanitize() {
	if s.Mode == "" {
		s.Mode = SnapshotModeFile
	}
	if s.Dir == "" {
		s.Dir = "./data/snapshots"
	}
	if s.TTL <= 0 {
		s.TTL = 24 * time.Hour
	}
}
