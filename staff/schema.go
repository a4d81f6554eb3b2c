package staff

import (
	"context"
	"fmt"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/database"
)

const tableUsers = "users"

var schemas = map[string][]string{
	database.DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
	id            BIGINT GENERATED ALWAYS AS IDENTITY (CACHE 5) PRIMARY KEY,
	first_name    VARCHAR(100),
	last_name     VARCHAR(100),
	phone_number  TEXT,
	email         VARCHAR(70) UNIQUE,
	password_hash VARCHAR(100),
	balance       DECIMAL DEFAULT 0,
	username      VARCHAR(70) NOT NULL UNIQUE
)`,
	},
	database.DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name    VARCHAR(100),
	last_name     VARCHAR(100),
	phone_number  TEXT,
	email         VARCHAR(70) UNIQUE,
	password_hash VARCHAR(100),
	balance       REAL DEFAULT 0,
	username      VARCHAR(70) NOT NULL UNIQUE
)`,
	},
}

// Schema returns the DDL statements creating the staff tables for dialect.
func Schema(dialect string) ([]string, error) {
	statements, ok := schemas[dialect]
	if !ok {
		return nil, fmt.Errorf("no staff schema for dialect %q", dialect)
	}
	return statements, nil
}

var dropStatements = []string{`DROP TABLE IF EXISTS users`}

// CreateSchema creates the staff tables if they do not exist.
func CreateSchema(ctx context.Context) error {
	db, err := ambientdb.Resolve[database.Database]()
	if err != nil {
		return err
	}
	statements, err := Schema(db.DialectName())
	if err != nil {
		return err
	}
	return execSchema(ctx, db, "create", statements)
}

// DropSchema drops the staff tables and every row in them.
func DropSchema(ctx context.Context) error {
	db, err := ambientdb.Resolve[database.Database]()
	if err != nil {
		return err
	}
	return execSchema(ctx, db, "drop", dropStatements)
}

// RecreateSchema drops and creates the staff tables in one unit of work.
func RecreateSchema(ctx context.Context) error {
	db, err := ambientdb.Resolve[database.Database]()
	if err != nil {
		return err
	}
	return db.Scoped(ctx, func(ctx context.Context, _ *database.Session) error {
		if err := DropSchema(ctx); err != nil {
			return err
		}
		return CreateSchema(ctx)
	})
}

func execSchema(ctx context.Context, db database.Database, action string, statements []string) error {
	return db.Scoped(ctx, func(ctx context.Context, s *database.Session) error {
		for _, stmt := range statements {
			if _, err := s.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s staff schema: %w", action, err)
			}
		}
		return nil
	})
}
