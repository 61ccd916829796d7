// Package database centralises sqlx connection helpers for the direct SQL
// store backend.  Three drivers are linked in:
//
//	mysql   – go-sql-driver/mysql (MySQL, MariaDB).
//	pgx     – jackc/pgx/v5 through its database/sql shim (Postgres, Supabase).
//	sqlite  – modernc.org/sqlite, pure Go, used for local runs and tests.
//
// Public entry points:
//
//	Open(ctx, driver, dsn)                         – conservative pool sizes.
//	OpenWithOptions(ctx, driver, dsn, maxOpen, maxIdle) – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported driver names, as registered with database/sql.
const (
	DriverMySQL  = "mysql"
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Supported reports whether driver is one of the linked drivers.
func Supported(driver string) bool {
	switch driver {
	case DriverMySQL, DriverPgx, DriverSQLite:
		return true
	}
	return false
}

// Open returns a *sqlx.DB with sane defaults: 10 max open, 5 idle, and a
// 30-minute connection lifetime.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, driver, dsn, 10, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.  SQLite is pinned
// to a single connection so in-memory databases survive pool churn.
func OpenWithOptions(ctx context.Context, driver, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	if !Supported(driver) {
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	lifetime := 30 * time.Minute
	if driver == DriverSQLite {
		maxOpen, maxIdle, lifetime = 1, 1, 0
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
