package persistence

import "embed"

// SQLiteMigrations and MySQLMigrations are embedded so sqlitestore/mysqlstore
// can run goose migrations without shipping .sql files alongside the binary.

//go:embed migrations/sqlite/*.sql
var SQLiteMigrations embed.FS

//go:embed migrations/mysql/*.sql
var MySQLMigrations embed.FS
