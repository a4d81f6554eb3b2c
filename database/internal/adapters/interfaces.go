package adapters

import "context"

// DBAdapter begins transactions on a connection pool.
type DBAdapter interface {
	Begin(ctx context.Context) (DBTx, error)
	Close() error
}

// DBTx is one backend transaction bound to one pooled connection.
// Commit and Rollback release the connection.
type DBTx interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Columns() ([]string, error)
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
