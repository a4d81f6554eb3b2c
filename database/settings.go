package database

import "time"

// Supported driver names.
const (
	DriverPGX    = "pgx"
	DriverPQ     = "postgres"
	DriverSQLX   = "sqlx"
	DriverSQLite = "sqlite"
)

// Settings is the read-only configuration a SessionFactory is built from.
type Settings interface {
	ConnectionURI() string
	DriverName() string
	Pool() PoolSettings
}

// PoolSettings tunes the connection pool. Zero values keep the driver defaults.
type PoolSettings struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// StaticSettings is a Settings value for callers that already know their connection.
type StaticSettings struct {
	URI          string
	Driver       string
	PoolSettings PoolSettings
}

func (s StaticSettings) ConnectionURI() string { return s.URI }
func (s StaticSettings) DriverName() string    { return s.Driver }
func (s StaticSettings) Pool() PoolSettings    { return s.PoolSettings }
