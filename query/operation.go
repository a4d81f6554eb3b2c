package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/database"
)

// Statement is anything that renders to SQL with bind arguments; every goqu dataset does.
type Statement interface {
	ToSQL() (string, []interface{}, error)
}

// Builder maps operation arguments to a statement. It must not perform I/O.
type Builder[A any] func(d goqu.DialectWrapper, args A) (Statement, error)

// Shaper maps a materialized result to the operation's return type. It must not perform I/O.
type Shaper[R any] func(*database.Result) (R, error)

var errEmptyChange = errors.New("update sets no columns")

// BuildError represents a statement that could not be built or rendered.
type BuildError struct {
	Op  string
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building statement for %s failed: %v", e.Op, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

type config struct {
	db       database.Database
	registry *ambientdb.Registry
	key      string
}

// Option configures operations and tables.
type Option func(*config)

// WithDatabase pins the database instead of resolving it from a registry.
func WithDatabase(db database.Database) Option {
	return func(c *config) {
		c.db = db
	}
}

// WithRegistry resolves the database from r instead of the default registry.
func WithRegistry(r *ambientdb.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithPrimaryKey sets the column tables order by. Defaults to "id".
func WithPrimaryKey(column string) Option {
	return func(c *config) {
		c.key = column
	}
}

func newConfig(options []Option) config {
	c := config{key: "id"}
	for _, option := range options {
		option(&c)
	}
	return c
}

// Operation is an executable, reusable database operation.
type Operation[A, R any] struct {
	name  string
	build Builder[A]
	shape Shaper[R]
	exec  bool
	cfg   config
}

// New creates an operation whose statement returns rows.
func New[A, R any](name string, build Builder[A], shape Shaper[R], options ...Option) *Operation[A, R] {
	return &Operation[A, R]{name: name, build: build, shape: shape, cfg: newConfig(options)}
}

// NewExec creates an operation whose statement returns no rows; the shaper sees only
// RowsAffected.
func NewExec[A, R any](name string, build Builder[A], shape Shaper[R], options ...Option) *Operation[A, R] {
	op := New(name, build, shape, options...)
	op.exec = true
	return op
}

// Name returns the operation name.
func (o *Operation[A, R]) Name() string {
	return o.name
}

// Execute builds the statement, runs it in the ambient unit of work or a new one, and
// shapes the result.
func (o *Operation[A, R]) Execute(ctx context.Context, args A) (R, error) {
	var zero R

	db, err := o.database()
	if err != nil {
		return zero, err
	}

	stmt, err := o.build(db.Dialect(), args)
	if err != nil {
		return zero, &BuildError{Op: o.name, Err: err}
	}
	sqlText, params, err := stmt.ToSQL()
	if err != nil {
		return zero, &BuildError{Op: o.name, Err: err}
	}

	var result *database.Result
	if session, ok := database.SessionFor(ctx, db); ok {
		result, err = o.run(ctx, session, sqlText, params)
	} else {
		err = db.Scoped(ctx, func(ctx context.Context, session *database.Session) error {
			var runErr error
			result, runErr = o.run(ctx, session, sqlText, params)
			return runErr
		})
	}
	if err != nil {
		return zero, err
	}

	return o.shape(result)
}

func (o *Operation[A, R]) run(ctx context.Context, session *database.Session, sqlText string, params []interface{}) (*database.Result, error) {
	if o.exec {
		return session.Exec(ctx, sqlText, params...)
	}
	return session.Query(ctx, sqlText, params...)
}

func (o *Operation[A, R]) database() (database.Database, error) {
	if o.cfg.db != nil {
		return o.cfg.db, nil
	}
	registry := o.cfg.registry
	if registry == nil {
		registry = ambientdb.Default()
	}
	return ambientdb.ResolveFrom[database.Database](registry)
}
