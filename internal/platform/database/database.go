// Package database opens and initializes the relational store. Two backends
// are supported: PostgreSQL (production) and SQLite (development, tests).
// Dialect-specific behavior (DDL, array storage, timestamp encoding) is
// selected here at configuration time so the stores stay dialect-free.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the active store backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Open connects to the configured backend and verifies connectivity.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	var dialect Dialect
	switch driver {
	case "postgres":
		dialect = DialectPostgres
	case "sqlite":
		dialect = DialectSQLite
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", driver, err)
	}

	if dialect == DialectPostgres {
		db.SetMaxOpenConns(15)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	} else {
		// modernc/sqlite serializes writers; a single connection avoids
		// SQLITE_BUSY under concurrent units of work.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, dialect, nil
}

// Init applies the embedded schema for the dialect. All statements are
// idempotent (IF NOT EXISTS) so startup can run them unconditionally.
func Init(db *sql.DB, dialect Dialect) error {
	for _, stmt := range Schema(dialect) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping reports whether the store answers a trivial query. Used by the
// health endpoint.
func Ping(db *sql.DB) error {
	var one int
	return db.QueryRow("SELECT 1").Scan(&one)
}
