package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/centraunit/ambientdb/database/internal/adapters"
)

const tracerName = "github.com/centraunit/ambientdb/database"

// Driver begins transactions on a connection pool.
type Driver = adapters.DBAdapter

// Tx is one backend transaction bound to one pooled connection.
type Tx = adapters.DBTx

// Rows is a backend result set.
type Rows = adapters.DBRows

// ExecResult is a backend execution result.
type ExecResult = adapters.DBResult

// Logger interface for SQL query logging, rollbacks, and operational messages.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Database is the capability the query layer depends on.
type Database interface {
	// Scoped runs fn inside a unit of work, joining the ambient one if ctx carries it.
	Scoped(ctx context.Context, fn func(ctx context.Context, s *Session) error) error
	// Dialect returns the statement builder matching the backend.
	Dialect() goqu.DialectWrapper
	// DialectName returns the name Dialect was built from.
	DialectName() string
	// Close releases the connection pool.
	Close(ctx context.Context) error
}

var _ Database = (*SessionFactory)(nil)

// SessionFactory opens transactional sessions against a configured backend.
type SessionFactory struct {
	driver  Driver
	dialect string
	log     Logger
	tracer  trace.Tracer
}

// Option defines a functional option for configuring a SessionFactory.
type Option func(*SessionFactory) error

// WithLogger sets the logger for the SessionFactory.
// Debug level: SQL statements with timing
// Info level: pool lifecycle
// Warn level: rollbacks and cleanup failures
// Error level: commit failures.
func WithLogger(logger Logger) Option {
	return func(f *SessionFactory) error {
		if logger != nil {
			f.log = logger
		}
		return nil
	}
}

// WithDialect overrides the statement dialect inferred from the driver.
func WithDialect(dialect string) Option {
	return func(f *SessionFactory) error {
		if dialect != DialectPostgres && dialect != DialectSQLite {
			return fmt.Errorf("unknown dialect %q", dialect)
		}
		f.dialect = dialect
		return nil
	}
}

// WithTracerProvider sets the provider unit-of-work spans are created with.
// The global provider is used by default.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(f *SessionFactory) error {
		if provider != nil {
			f.tracer = provider.Tracer(tracerName)
		}
		return nil
	}
}

// Open connects to the backend described by settings.
func Open(ctx context.Context, settings Settings, options ...Option) (*SessionFactory, error) {
	if settings == nil || strings.TrimSpace(settings.ConnectionURI()) == "" {
		return nil, ErrEmptyConnectionURI
	}
	uri := settings.ConnectionURI()
	pool := settings.Pool()
	driver := settings.DriverName()
	options = append([]Option{WithDialect(dialectForDriver(driver))}, options...)

	switch driver {
	case DriverPGX:
		cfg, err := pgxpool.ParseConfig(uri)
		if err != nil {
			return nil, fmt.Errorf("parse pgx config: %w", err)
		}
		applyPGXPool(cfg, pool)
		db, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open pgx pool: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping pgx pool: %w", err)
		}
		return NewFromPGXPool(db, options...)

	case DriverPQ, DriverSQLite:
		db, err := sql.Open(driver, uri)
		if err != nil {
			return nil, fmt.Errorf("open %s db: %w", driver, err)
		}
		applySQLPool(db, pool)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping %s db: %w", driver, err)
		}
		return NewFromSQLDB(db, options...)

	case DriverSQLX:
		db, err := sqlx.Open(DriverPQ, uri)
		if err != nil {
			return nil, fmt.Errorf("open sqlx db: %w", err)
		}
		applySQLPool(db.DB, pool)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping sqlx db: %w", err)
		}
		return NewFromSQLX(db, options...)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// NewFromPGXPool creates a SessionFactory using a pgx Pool with optional configuration.
func NewFromPGXPool(db *pgxpool.Pool, options ...Option) (*SessionFactory, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}
	return NewFromDriver(adapters.NewPGXAdapter(db), options...)
}

// NewFromSQLDB creates a SessionFactory using a sql.DB with optional configuration.
func NewFromSQLDB(db *sql.DB, options ...Option) (*SessionFactory, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}
	return NewFromDriver(adapters.NewSQLAdapter(db), options...)
}

// NewFromSQLX creates a SessionFactory using a sqlx.DB with optional configuration.
func NewFromSQLX(db *sqlx.DB, options ...Option) (*SessionFactory, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}
	return NewFromDriver(adapters.NewSQLXAdapter(db), options...)
}

// NewFromDriver creates a SessionFactory over any Driver implementation.
func NewFromDriver(driver Driver, options ...Option) (*SessionFactory, error) {
	if driver == nil {
		return nil, ErrNilDatabaseConnection
	}

	f := &SessionFactory{
		driver:  driver,
		dialect: DialectPostgres,
		log:     nopLogger{},
		tracer:  otel.Tracer(tracerName),
	}
	for _, option := range options {
		if err := option(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Dialect returns the goqu dialect statements for this backend are built with.
func (f *SessionFactory) Dialect() goqu.DialectWrapper {
	return goqu.Dialect(f.dialect)
}

// DialectName returns DialectPostgres or DialectSQLite.
func (f *SessionFactory) DialectName() string {
	return f.dialect
}

// Close closes the connection pool.
func (f *SessionFactory) Close(context.Context) error {
	f.log.Info("closing database pool")
	return f.driver.Close()
}

func applyPGXPool(cfg *pgxpool.Config, pool PoolSettings) {
	if pool.MaxConns > 0 {
		cfg.MaxConns = pool.MaxConns
	}
	if pool.MinConns > 0 {
		cfg.MinConns = pool.MinConns
	}
	if pool.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pool.MaxConnLifetime
	}
	if pool.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pool.MaxConnIdleTime
	}
	if pool.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = pool.HealthCheckPeriod
	}
	if pool.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = pool.ConnectTimeout
	}
}

func applySQLPool(db *sql.DB, pool PoolSettings) {
	if pool.MaxConns > 0 {
		db.SetMaxOpenConns(int(pool.MaxConns))
	}
	if pool.MinConns > 0 {
		db.SetMaxIdleConns(int(pool.MinConns))
	}
	if pool.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(pool.MaxConnLifetime)
	}
	if pool.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.MaxConnIdleTime)
	}
}
