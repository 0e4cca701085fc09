package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/fredsystems/zabbid/internal/persistence"
	"github.com/fredsystems/zabbid/internal/persistence/mysqlstore"
)

var nonIdentChars = regexp.MustCompile(`[^a-z0-9_]+`)

// OpenMySQLStore opens a persistence.Store backed by MySQL with an isolated,
// per-test schema. It skips when TEST_MYSQL_DSN/MYSQL_DSN is unset, so the
// sqlite path remains the default for local development.
func OpenMySQLStore(t *testing.T, prefix string) *persistence.Store {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_MYSQL_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("MYSQL_DSN"))
	}
	if dsn == "" {
		t.Skip("MySQL test DSN not set: set TEST_MYSQL_DSN or MYSQL_DSN to run this test")
	}

	schema := newSchemaName(prefix)
	ctx := context.Background()

	adminDB, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open mysql admin connection: %v", err)
	}
	t.Cleanup(func() { _ = adminDB.Close() })

	if err := adminDB.PingContext(ctx); err != nil {
		t.Fatalf("ping mysql: %v", err)
	}
	if _, err := adminDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE `%s`", schema)); err != nil {
		t.Fatalf("create test schema %q: %v", schema, err)
	}
	t.Cleanup(func() {
		_, _ = adminDB.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", schema))
	})

	schemaDSN, err := dsnWithSchema(dsn, schema)
	if err != nil {
		t.Fatalf("build mysql DSN with schema: %v", err)
	}

	store, err := mysqlstore.Open(schemaDSN)
	if err != nil {
		t.Fatalf("open mysql test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func dsnWithSchema(dsn, schema string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}
	cfg.DBName = schema
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func newSchemaName(prefix string) string {
	base := strings.ToLower(prefix)
	base = strings.ReplaceAll(base, "-", "_")
	base = nonIdentChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "test"
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	const maxMySQLIdentLen = 64
	maxBaseLen := maxMySQLIdentLen - len("t__") - len(suffix)
	if maxBaseLen < 1 {
		maxBaseLen = 1
	}
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}
	return fmt.Sprintf("t_%s_%s", base, suffix)
}
