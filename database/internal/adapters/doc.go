// Package adapters provide transaction-capable backend drivers for the session factory.
//
// Three PostgreSQL client libraries are supported, pgx.Pool, sql.DB and sqlx.DB, and
// sql.DB also carries the embedded SQLite driver. Every adapter begins a transaction on
// a pooled connection, runs parameterized statements on it, and returns the connection
// to the pool on commit or rollback.
package adapters
