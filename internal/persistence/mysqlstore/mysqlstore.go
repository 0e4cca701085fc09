// Package mysqlstore opens a persistence.Store backed by MySQL, the
// multi-operator/HA backend named in the deployment spec.
package mysqlstore

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"

	"github.com/fredsystems/zabbid/internal/persistence"
)

// Open connects to the MySQL database named by dsn (a standard
// go-sql-driver/mysql DSN, e.g. "user:pass@tcp(host:3306)/dbname?parseTime=true")
// and migrates it to the latest schema version.
func Open(dsn string) (*persistence.Store, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return persistence.New(db, persistence.DialectMySQL), nil
}

func migrate(db *sqlx.DB) error {
	goose.SetBaseFS(persistence.MySQLMigrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations/mysql"); err != nil {
		return fmt.Errorf("run mysql migrations: %w", err)
	}
	return nil
}
