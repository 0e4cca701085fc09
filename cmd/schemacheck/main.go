// Package main verifies that the sqlite and mysql migration sets produce
// semantically equivalent schemas (spec.md §4.8 schema parity). It applies
// both migration directories to fresh databases, introspects each via the
// dialect's own catalog, normalizes column types, and diffs the result.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/fredsystems/zabbid/internal/persistence"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "schemacheck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	mysqlDSN := flag.String("mysql-dsn", "", "MySQL DSN for a scratch database to migrate and compare (required)")
	flag.Parse()

	if *mysqlDSN == "" {
		return fmt.Errorf("--mysql-dsn is required: schemacheck needs a reachable scratch MySQL instance")
	}

	sqliteSchema, err := introspectSQLite()
	if err != nil {
		return fmt.Errorf("introspect sqlite: %w", err)
	}
	mysqlSchema, err := introspectMySQL(*mysqlDSN)
	if err != nil {
		return fmt.Errorf("introspect mysql: %w", err)
	}

	diffs := diffSchemas(sqliteSchema, mysqlSchema)
	if len(diffs) > 0 {
		fmt.Fprintln(os.Stderr, "schema parity violation:")
		for _, d := range diffs {
			fmt.Fprintf(os.Stderr, "  - %s\n", d)
		}
		return fmt.Errorf("%d schema mismatch(es)", len(diffs))
	}

	fmt.Println("schemas are parity-equivalent")
	return nil
}

// table maps a table name to its columns, keyed by column name.
type table map[string]column

type column struct {
	semanticType string
	nullable     bool
}

type schema map[string]table

func introspectSQLite() (schema, error) {
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(persistence.SQLiteMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	if err := goose.Up(db.DB, "migrations/sqlite"); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	var tableNames []string
	if err := db.Select(&tableNames, `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name != 'goose_db_version'`); err != nil {
		return nil, err
	}

	out := schema{}
	for _, name := range tableNames {
		rows, err := db.Queryx(fmt.Sprintf("PRAGMA table_info(%s)", name))
		if err != nil {
			return nil, err
		}
		tbl := table{}
		for rows.Next() {
			var (
				cid        int
				colName    string
				colType    string
				notNull    int
				dfltValue  sql.NullString
				pk         int
			)
			if err := rows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
				rows.Close()
				return nil, err
			}
			tbl[colName] = column{semanticType: normalizeType(colType), nullable: notNull == 0}
		}
		rows.Close()
		out[name] = tbl
	}
	return out, nil
}

func introspectMySQL(dsn string) (schema, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql scratch database: %w", err)
	}

	goose.SetBaseFS(persistence.MySQLMigrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return nil, err
	}
	if err := goose.Up(db.DB, "migrations/mysql"); err != nil {
		return nil, fmt.Errorf("migrate mysql: %w", err)
	}

	rows, err := db.Queryx(`
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name != 'goose_db_version'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := schema{}
	for rows.Next() {
		var tableName, colName, dataType, isNullable string
		if err := rows.Scan(&tableName, &colName, &dataType, &isNullable); err != nil {
			return nil, err
		}
		tbl, ok := out[tableName]
		if !ok {
			tbl = table{}
			out[tableName] = tbl
		}
		tbl[colName] = column{semanticType: normalizeType(dataType), nullable: isNullable == "YES"}
	}
	return out, rows.Err()
}

// normalizeType collapses each dialect's type spellings to one of a small
// semantic set, so "TEXT" (sqlite) and "varchar"/"text" (mysql) compare
// equal, likewise "INTEGER" and "int"/"bigint", "REAL" and "double"/"float".
func normalizeType(raw string) string {
	t := strings.ToLower(raw)
	switch {
	case strings.Contains(t, "int"):
		return "integer"
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"):
		return "text"
	case strings.Contains(t, "real"), strings.Contains(t, "double"), strings.Contains(t, "float"), strings.Contains(t, "decimal"), strings.Contains(t, "numeric"):
		return "real"
	default:
		return t
	}
}

func diffSchemas(a, b schema) []string {
	var diffs []string

	names := unionKeys(a, b)
	for _, tableName := range names {
		ta, inA := a[tableName]
		tb, inB := b[tableName]
		if !inA {
			diffs = append(diffs, fmt.Sprintf("table %q present in mysql but not sqlite", tableName))
			continue
		}
		if !inB {
			diffs = append(diffs, fmt.Sprintf("table %q present in sqlite but not mysql", tableName))
			continue
		}

		colNames := unionColumnKeys(ta, tb)
		for _, colName := range colNames {
			ca, inA := ta[colName]
			cb, inB := tb[colName]
			switch {
			case !inA:
				diffs = append(diffs, fmt.Sprintf("%s.%s present in mysql but not sqlite", tableName, colName))
			case !inB:
				diffs = append(diffs, fmt.Sprintf("%s.%s present in sqlite but not mysql", tableName, colName))
			case ca.semanticType != cb.semanticType:
				diffs = append(diffs, fmt.Sprintf("%s.%s type mismatch: sqlite=%s mysql=%s", tableName, colName, ca.semanticType, cb.semanticType))
			case ca.nullable != cb.nullable:
				diffs = append(diffs, fmt.Sprintf("%s.%s nullability mismatch: sqlite=%v mysql=%v", tableName, colName, ca.nullable, cb.nullable))
			}
		}
	}

	sort.Strings(diffs)
	return diffs
}

func unionKeys(a, b schema) []string {
	seen := map[string]struct{}{}
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unionColumnKeys(a, b table) []string {
	seen := map[string]struct{}{}
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
