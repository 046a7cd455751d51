package postgres

import "time"

// Config configures the Postgres-backed staging store.
type Config struct {
	// DSN is a libpq-style connection string.
	DSN string

	// MaxConns bounds the pgx pool's connection count.
	MaxConns int32

	// ConnectTimeout bounds connection acquisition.
	ConnectTimeout time.Duration

	// AutoMigrate runs pending schema migrations at startup when true.
	AutoMigrate bool
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}
