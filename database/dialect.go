package database

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

// Statement dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

func init() {
	// SQLite has supported RETURNING since 3.35; the stock goqu options predate it.
	opts := sqlite3.DialectOptions()
	opts.SupportsReturn = true
	goqu.RegisterDialect(DialectSQLite, opts)
}

func dialectForDriver(driver string) string {
	if driver == DriverSQLite {
		return DialectSQLite
	}
	return DialectPostgres
}
