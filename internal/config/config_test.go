package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATABASE_SQLITE_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.AllowCredentials)
	assert.False(t, cfg.Server.UnsafeAllowAllOrigins)

	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, "./zabbid.db", cfg.Database.SQLitePath)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, 16, cfg.Worker.CSVImportPoolSize)
	assert.Equal(t, "I CONFIRM THIS BID YEAR IS READY", cfg.Bidding.ConfirmationToken)
}

func TestLoad_MySQLBackendFromEnv(t *testing.T) {
	t.Setenv("DATABASE_BACKEND", "mysql")
	t.Setenv("DATABASE_MYSQL_URL", "user:pass@tcp(db:3306)/zabbid")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Backend)
	assert.Equal(t, "user:pass@tcp(db:3306)/zabbid", cfg.Database.MySQLURL)
}

func TestValidate_RejectsShortSessionSecret(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{SessionSecret: "short"},
		Database: DatabaseConfig{Backend: "sqlite", SQLitePath: "x.db"},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{SessionSecret: "0123456789012345678901234567890123456789"},
		Database: DatabaseConfig{Backend: "postgres"},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresBackendSpecificField(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{SessionSecret: "0123456789012345678901234567890123456789"},
		Database: DatabaseConfig{Backend: "mysql"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Database.MySQLURL = "user:pass@tcp(db:3306)/zabbid"
	assert.NoError(t, cfg.Validate())
}

func TestEnsureSecrets_GeneratesMissingValues(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.ensureSecrets())

	assert.Len(t, cfg.Security.SessionSecret, 64)
	assert.Len(t, cfg.Security.JWTSigningKey, 64)
}

func TestEnsureSecrets_PreservesProvidedValues(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{
			SessionSecret: "abcdefghijklmnopqrstuvwxyzABCDEF123456",
			JWTSigningKey: "keep-existing-key",
		},
	}
	require.NoError(t, cfg.ensureSecrets())

	assert.Equal(t, "abcdefghijklmnopqrstuvwxyzABCDEF123456", cfg.Security.SessionSecret)
	assert.Equal(t, "keep-existing-key", cfg.Security.JWTSigningKey)
}
