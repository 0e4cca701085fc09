// Package sqlitestore opens a persistence.Store backed by SQLite, the
// default backend for single-operator deployments and test isolation.
package sqlitestore

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/fredsystems/zabbid/internal/persistence"
)

// Open opens (creating if absent) the sqlite database at path and migrates
// it to the latest schema version.
func Open(path string) (*persistence.Store, error) {
	db, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver serializes writers; avoid SQLITE_BUSY storms

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return persistence.New(db, persistence.DialectSQLite), nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
}

func migrate(db *sqlx.DB) error {
	goose.SetBaseFS(persistence.SQLiteMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations/sqlite"); err != nil {
		return fmt.Errorf("run sqlite migrations: %w", err)
	}
	return nil
}
