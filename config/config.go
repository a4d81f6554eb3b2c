// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/centraunit/ambientdb/database"
)

// Config is the whole process configuration.
type Config struct {
	Database    Database    `envPrefix:"DB_"`
	Application Application `envPrefix:"APP_"`
	Security    Security    `envPrefix:"SECURITY_"`
	Log         Log         `envPrefix:"LOG_"`
}

// Database describes the backend connection and pool.
// ConnectionURI wins over the individual parts when set.
type Database struct {
	Driver   string `env:"DRIVER"   envDefault:"pgx"`
	URI      string `env:"CONNECTION_URI"`
	Username string `env:"USERNAME" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Host     string `env:"HOST"     envDefault:"pg_database"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	Name     string `env:"NAME"     envDefault:"db"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`

	MaxConns          int32         `env:"MAX_CONNS"           envDefault:"10"`
	MinConns          int32         `env:"MIN_CONNS"           envDefault:"0"`
	MaxConnLifetime   time.Duration `env:"MAX_CONN_LIFETIME"   envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"MAX_CONN_IDLE_TIME"  envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"HEALTH_CHECK_PERIOD" envDefault:"1m"`
	ConnectTimeout    time.Duration `env:"CONNECT_TIMEOUT"     envDefault:"5s"`
}

// Application holds process-level switches.
type Application struct {
	Name string `env:"NAME" envDefault:"ambientdb"`
	Mode string `env:"MODE" envDefault:"development"`
}

// Security configures password hashing and access tokens.
type Security struct {
	PasswordHasher string        `env:"PASSWORD_HASHER"      envDefault:"argon2"`
	JWTAlgorithm   string        `env:"JWT_ALGORITHM"        envDefault:"HS256"`
	JWTSecretKey   string        `env:"JWT_SECRET_KEY"       envDefault:"change me"`
	JWTExpiresIn   time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"30m"`
}

// Log configures the logger.
type Log struct {
	Level     string `env:"LEVEL"     envDefault:"debug"`
	Redaction bool   `env:"REDACTION" envDefault:"true"`
	HashSalt  string `env:"HASH_SALT"`
}

var _ database.Settings = Database{}

// ConnectionURI returns URI, or assembles one from the parts. For sqlite the database
// name is the file path.
func (d Database) ConnectionURI() string {
	if d.URI != "" {
		return d.URI
	}
	if d.Driver == database.DriverSQLite {
		return d.Name
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.Username, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

func (d Database) DriverName() string {
	return d.Driver
}

func (d Database) Pool() database.PoolSettings {
	return database.PoolSettings{
		MaxConns:          d.MaxConns,
		MinConns:          d.MinConns,
		MaxConnLifetime:   d.MaxConnLifetime,
		MaxConnIdleTime:   d.MaxConnIdleTime,
		HealthCheckPeriod: d.HealthCheckPeriod,
		ConnectTimeout:    d.ConnectTimeout,
	}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the process environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environment map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case database.DriverPGX, database.DriverPQ, database.DriverSQLX, database.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, c.Database.Driver))
	}
	if c.Database.ConnectionURI() == "" {
		errs = append(errs, database.ErrEmptyConnectionURI)
	}
	if c.Database.MinConns > c.Database.MaxConns && c.Database.MaxConns > 0 {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns))
	}

	switch c.Security.PasswordHasher {
	case "argon2", "bcrypt":
	default:
		errs = append(errs, fmt.Errorf("unknown password hasher %q", c.Security.PasswordHasher))
	}
	switch c.Security.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported jwt algorithm %q", c.Security.JWTAlgorithm))
	}
	if c.Security.JWTSecretKey == "" {
		errs = append(errs, errors.New("SECURITY_JWT_SECRET_KEY is required"))
	}
	if c.Security.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("SECURITY_JWT_ACCESS_TOKEN_TTL must be positive"))
	}

	return errors.Join(errs...)
}
