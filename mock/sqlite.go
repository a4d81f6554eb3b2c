package mock

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/centraunit/ambientdb/database"
)

// SQLiteSettings points at a fresh database file under the test's temp dir.
// A single connection serializes units of work the way one sqlite writer requires.
func SQLiteSettings(tb testing.TB) database.StaticSettings {
	tb.Helper()
	return database.StaticSettings{
		URI:          filepath.Join(tb.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)",
		Driver:       database.DriverSQLite,
		PoolSettings: database.PoolSettings{MaxConns: 1},
	}
}

// OpenSQLite opens a session factory over a fresh sqlite database closed at test end.
func OpenSQLite(tb testing.TB, options ...database.Option) *database.SessionFactory {
	tb.Helper()
	factory, err := database.Open(context.Background(), SQLiteSettings(tb), options...)
	require.NoError(tb, err)
	tb.Cleanup(func() {
		_ = factory.Close(context.Background())
	})
	return factory
}
