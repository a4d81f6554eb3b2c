package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")
	ErrUnsupportedDriver     = errors.New("unsupported database driver")
	ErrEmptyConnectionURI    = errors.New("empty connection uri supplied")
	// ErrSessionClosed is the panic value raised when a closed session is used.
	ErrSessionClosed = errors.New("session used after its unit of work ended")
)

// Transaction operations reported by TransactionError.
const (
	OpBegin    = "begin"
	OpCommit   = "commit"
	OpRollback = "rollback"
)

const uniqueViolation = "23505"

// TransactionError represents a backend failure to begin, commit or roll back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is a uniqueness violation raised by any supported backend.
// The error itself is never rewritten; callers decide what a conflict means to them.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
