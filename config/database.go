package config

import (
	"fmt"
	"net"
)

// DBConfig contains PostgreSQL configuration for the dev backend.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"repairlink"`
	Password string `env:"PASSWORD" envDefault:"repairlink"`
	Name     string `env:"NAME"     envDefault:"repairlink"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
	// RunMigrationsOnStart controls whether the dev backend applies
	// migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN builds a pgx connection string.
func (d DBConfig) DSN() string {
	hostPort := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.User, d.Password, hostPort, d.Name, d.SSLMode)
}

// RedisConfig contains Redis configuration for the redis snapshot store.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}
